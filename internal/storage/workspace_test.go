/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"plantilla/internal/codec"
	"plantilla/internal/domain"
)

func sampleDoc(t *testing.T, headline string) []byte {
	t.Helper()
	s := domain.NewScene(1080, 1080, "#ffffff")
	el := domain.NewElement(domain.TypeText)
	el.Content = headline
	el.FontSize = 40
	s.Elements = append(s.Elements, el)
	data, err := codec.Serialize(s)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	return data
}

func TestWorkspaceInitScaffoldsSubdirs(t *testing.T) {
	root := t.TempDir()
	if _, err := InitWorkspace(root); err != nil {
		t.Fatalf("InitWorkspace: %v", err)
	}
	for _, d := range standardSubDirs {
		if fi, err := os.Stat(filepath.Join(root, d)); err != nil || !fi.IsDir() {
			t.Fatalf("subdir %s missing", d)
		}
	}
}

func TestWorkspaceSaveLoadRoundTrip(t *testing.T) {
	w, err := InitWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("InitWorkspace: %v", err)
	}
	ctx := context.Background()
	doc := sampleDoc(t, "hola")
	thumb := []byte{0x89, 'P', 'N', 'G'}
	if err := w.SaveDocument(ctx, "promo", doc, thumb); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}
	got, err := w.LoadDocument(ctx, "promo")
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if !bytes.Equal(got, doc) {
		t.Fatalf("document bytes changed on round trip")
	}
	if _, err := codec.Deserialize(got); err != nil {
		t.Fatalf("stored document no longer deserializes: %v", err)
	}
	tb, err := os.ReadFile(w.thumbnailPath("promo"))
	if err != nil || !bytes.Equal(tb, thumb) {
		t.Fatalf("thumbnail not stored: %v", err)
	}
}

func TestWorkspaceSaveBacksUpPreviousVersion(t *testing.T) {
	w, err := InitWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("InitWorkspace: %v", err)
	}
	ctx := context.Background()
	v1 := sampleDoc(t, "v1")
	v2 := sampleDoc(t, "v2")
	if err := w.SaveDocument(ctx, "promo", v1, nil); err != nil {
		t.Fatalf("save v1: %v", err)
	}
	if err := w.SaveDocument(ctx, "promo", v2, nil); err != nil {
		t.Fatalf("save v2: %v", err)
	}
	backup, err := w.latestBackup("promo")
	if err != nil {
		t.Fatalf("latestBackup: %v", err)
	}
	if !bytes.Equal(backup, v1) {
		t.Fatalf("backup is not the previous version")
	}
}

func TestWorkspaceLoadFallsBackToBackup(t *testing.T) {
	w, err := InitWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("InitWorkspace: %v", err)
	}
	ctx := context.Background()
	v1 := sampleDoc(t, "good")
	if err := w.SaveDocument(ctx, "promo", v1, nil); err != nil {
		t.Fatalf("save v1: %v", err)
	}
	if err := w.SaveDocument(ctx, "promo", sampleDoc(t, "newer"), nil); err != nil {
		t.Fatalf("save v2: %v", err)
	}
	// Simulate losing the current file; the latest backup takes over.
	if err := os.Remove(w.documentPath("promo")); err != nil {
		t.Fatalf("remove current: %v", err)
	}
	got, err := w.LoadDocument(ctx, "promo")
	if err != nil {
		t.Fatalf("LoadDocument after loss: %v", err)
	}
	if !bytes.Equal(got, v1) {
		t.Fatalf("fallback did not return the latest backup")
	}
}

func TestWorkspaceListAndDelete(t *testing.T) {
	w, err := InitWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("InitWorkspace: %v", err)
	}
	ctx := context.Background()
	for _, id := range []string{"b", "a", "c"} {
		if err := w.SaveDocument(ctx, id, sampleDoc(t, id), nil); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	ids, err := w.ListDocuments()
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(ids) != 3 || ids[0] != "a" || ids[2] != "c" {
		t.Fatalf("ids = %v", ids)
	}
	if err := w.DeleteDocument("b"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	ids, _ = w.ListDocuments()
	if len(ids) != 2 {
		t.Fatalf("delete did not remove document: %v", ids)
	}
}
