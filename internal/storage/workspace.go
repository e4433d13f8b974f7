/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package storage persists template documents locally: a workspace directory
// of JSON documents with transactional writes and timestamped backups, plus an
// embedded SQLite library for project records and saved palettes.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	DocumentsDirName  = "documents"
	ThumbnailsDirName = "thumbnails"
	BackupsDirName    = "backups"
)

var standardSubDirs = []string{
	DocumentsDirName,
	ThumbnailsDirName,
	BackupsDirName,
	LibraryDirName,
}

// Workspace is a local document store rooted at one directory. Documents are
// stored as <id>.json under documents/; every save snapshots the previous
// version into backups/ first, and a document that fails to read or parse is
// recovered from its latest backup.
type Workspace struct {
	Root string
}

// InitWorkspace creates the workspace directory and its standard subfolders.
func InitWorkspace(root string) (*Workspace, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	return &Workspace{Root: root}, nil
}

// OpenWorkspace opens an existing workspace directory.
func OpenWorkspace(root string) (*Workspace, error) {
	fi, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("open workspace: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("open workspace: %s is not a directory", root)
	}
	return &Workspace{Root: root}, nil
}

func (w *Workspace) documentPath(id string) string {
	return filepath.Join(w.Root, DocumentsDirName, id+".json")
}

func (w *Workspace) thumbnailPath(id string) string {
	return filepath.Join(w.Root, ThumbnailsDirName, id+".png")
}

// LoadDocument reads a document by id. When the current file is missing or
// unreadable it falls back to the latest timestamped backup.
func (w *Workspace) LoadDocument(_ context.Context, id string) ([]byte, error) {
	path := w.documentPath(id)
	b, err := os.ReadFile(path)
	if err != nil {
		bb, berr := w.latestBackup(id)
		if berr != nil {
			return nil, fmt.Errorf("read document %s: %w; backup attempt: %v", id, err, berr)
		}
		return bb, nil
	}
	return b, nil
}

// SaveDocument writes the document transactionally: the previous version is
// copied to a timestamped backup, the new bytes go to a temp file in the same
// directory, and a rename replaces the target. The thumbnail (optional) is
// written alongside.
func (w *Workspace) SaveDocument(_ context.Context, id string, doc, thumbnail []byte) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("document id is required")
	}
	path := w.documentPath(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure documents dir: %w", err)
	}
	bdir := filepath.Join(w.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}

	if _, statErr := os.Stat(path); statErr == nil {
		stamp := time.Now().Format("20060102-150405")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", id, stamp))
		if cerr := copyFile(path, bpath); cerr != nil {
			return fmt.Errorf("backup current document: %w", cerr)
		}
	}

	temp := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.tmp-%d-%d", id, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, doc); werr != nil {
		return fmt.Errorf("write temp document: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if rerr := os.Rename(temp, path); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace document: %w", rerr)
	}

	if len(thumbnail) > 0 {
		if err := os.MkdirAll(filepath.Join(w.Root, ThumbnailsDirName), 0o755); err != nil {
			return fmt.Errorf("ensure thumbnails dir: %w", err)
		}
		if err := writeFileSync(w.thumbnailPath(id), thumbnail); err != nil {
			return fmt.Errorf("write thumbnail: %w", err)
		}
	}
	return nil
}

// DeleteDocument removes a document and its thumbnail; backups are kept.
func (w *Workspace) DeleteDocument(id string) error {
	if err := os.Remove(w.documentPath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	_ = os.Remove(w.thumbnailPath(id))
	return nil
}

// ListDocuments returns the ids of all stored documents.
func (w *Workspace) ListDocuments() ([]string, error) {
	ents, err := os.ReadDir(filepath.Join(w.Root, DocumentsDirName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read documents dir: %w", err)
	}
	var ids []string
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// latestBackup returns the newest timestamped backup for the document.
func (w *Workspace) latestBackup(id string) ([]byte, error) {
	bdir := filepath.Join(w.Root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, id+".") && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	b, err := os.ReadFile(candidates[len(candidates)-1])
	if err != nil {
		return nil, fmt.Errorf("read latest backup: %w", err)
	}
	return b, nil
}

// writeFileSync writes data to a file and flushes it to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	return nil
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	if err := df.Sync(); err != nil {
		return err
	}
	return nil
}
