/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package editor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zoobzio/clockz"

	"plantilla/internal/access"
	"plantilla/internal/codec"
	"plantilla/internal/domain"
)

type memStore struct {
	docs   map[string][]byte
	thumbs map[string][]byte
	err    error
}

func newMemStore() *memStore {
	return &memStore{docs: map[string][]byte{}, thumbs: map[string][]byte{}}
}

func (m *memStore) LoadDocument(_ context.Context, id string) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	d, ok := m.docs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return d, nil
}

func (m *memStore) SaveDocument(_ context.Context, id string, doc, thumb []byte) error {
	if m.err != nil {
		return m.err
	}
	m.docs[id] = doc
	m.thumbs[id] = thumb
	return nil
}

type fakeImages struct {
	w, h int
	err  error
	gate chan struct{} // when set, FetchSize blocks until closed
}

func (f *fakeImages) FetchSize(_ context.Context, _ string) (int, int, error) {
	if f.gate != nil {
		<-f.gate
	}
	return f.w, f.h, f.err
}

func newTestSession(t *testing.T, role access.Role, opts Options) (*Session, *clockz.FakeClock) {
	t.Helper()
	clk := clockz.NewFakeClock()
	clk.Advance(time.Hour)
	opts.Role = role
	opts.Clock = clk
	s := NewSession(1080, 1080, "#ffffff", opts)
	t.Cleanup(s.Close)
	return s, clk
}

func templateDoc(t *testing.T) []byte {
	t.Helper()
	sc := domain.NewScene(1080, 1920, "#f0f0f0")
	bg := domain.NewElement(domain.TypeShape)
	bg.ShapeKind = domain.ShapeRectangle
	bg.Width, bg.Height = 1080, 1920
	txt := domain.NewElement(domain.TypeText)
	txt.Content = "Oferta"
	txt.FontSize = 48
	txt.IsCustomizable = true
	txt.CustomizableName = "Titular"
	txt.AllowedProperties = []domain.PropertyTag{domain.PropText, domain.PropColor}
	sc.Elements = append(sc.Elements, bg, txt)
	data, err := codec.Serialize(sc)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	return data
}

func TestLoadDocumentInstallsSceneAndRoleState(t *testing.T) {
	store := newMemStore()
	store.docs["tpl-1"] = templateDoc(t)
	s, clk := newTestSession(t, access.RoleClient, Options{Store: store})

	if err := s.LoadDocument(context.Background(), "tpl-1"); err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	sc := s.Engine().Scene()
	if len(sc.Elements) != 2 || sc.Width != 1080 || sc.Height != 1920 {
		t.Fatalf("scene not installed: %d elements, %vx%v", len(sc.Elements), sc.Width, sc.Height)
	}
	// Background shape is non-customizable: locked for the client role.
	if s.Engine().StateOf(sc.Elements[0].ID).Interactive() {
		t.Fatalf("non-customizable element interactive after client load")
	}
	if !s.Engine().StateOf(sc.Elements[1].ID).Interactive() {
		t.Fatalf("customizable element locked after client load")
	}

	// The baseline snapshot lands after the load settle.
	clk.Advance(600 * time.Millisecond)
	clk.BlockUntilReady()
	if s.History().Len() != 1 {
		t.Fatalf("baseline commits = %d, want 1", s.History().Len())
	}
}

func TestLoadDocumentFailureKeepsCurrentScene(t *testing.T) {
	store := newMemStore()
	store.docs["bad"] = []byte(`{"canvasWidth": broken`)
	s, _ := newTestSession(t, access.RoleAdmin, Options{Store: store})

	el := domain.NewElement(domain.TypeText)
	el.Content = "keep me"
	if err := s.Engine().Add(el); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.LoadDocument(context.Background(), "bad"); err == nil {
		t.Fatalf("expected error for malformed document")
	}
	var derr *codec.DeserializationError
	if err := s.LoadDocument(context.Background(), "bad"); !errors.As(err, &derr) {
		t.Fatalf("expected *DeserializationError, got %v", err)
	}
	if s.Engine().Scene().ElementByID(el.ID) == nil {
		t.Fatalf("failed load clobbered the live scene")
	}
}

func TestSaveDocumentRoundTripsAndFailureKeepsState(t *testing.T) {
	store := newMemStore()
	s, _ := newTestSession(t, access.RoleAdmin, Options{
		Store:     store,
		Thumbnail: func(*domain.Scene) ([]byte, error) { return []byte{0x89, 'P', 'N', 'G'}, nil },
	})
	el := domain.NewElement(domain.TypeText)
	el.Content = "hola"
	if err := s.Engine().Add(el); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := s.SaveDocument(context.Background(), "doc-1"); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}
	if len(store.thumbs["doc-1"]) == 0 {
		t.Fatalf("thumbnail not stored")
	}
	got, err := codec.Deserialize(store.docs["doc-1"])
	if err != nil {
		t.Fatalf("stored document does not round-trip: %v", err)
	}
	if got.ElementByID(el.ID) == nil {
		t.Fatalf("stored document missing element")
	}

	store.err = errors.New("backend down")
	if err := s.SaveDocument(context.Background(), "doc-1"); err == nil {
		t.Fatalf("expected save error")
	}
	if s.Engine().Scene().ElementByID(el.ID) == nil {
		t.Fatalf("failed save cleared local state")
	}
}

func TestInsertImageCompletionOrderAndFailure(t *testing.T) {
	imgs := &fakeImages{w: 640, h: 480}
	s, _ := newTestSession(t, access.RoleAdmin, Options{Images: imgs})

	done := make(chan *domain.Element, 1)
	s.InsertImage(context.Background(), "https://images.example/a.jpg", func(el *domain.Element, err error) {
		if err != nil {
			t.Errorf("insert failed: %v", err)
		}
		done <- el
	})
	el := <-done
	if el.Width != 640 || el.Height != 480 {
		t.Fatalf("element not sized from fetch: %vx%v", el.Width, el.Height)
	}
	if el.X != 540 || el.Y != 540 {
		t.Fatalf("element not centered: %v,%v", el.X, el.Y)
	}
	if s.Engine().Scene().ElementByID(el.ID) == nil {
		t.Fatalf("element not inserted")
	}

	imgs.err = errors.New("404")
	errs := make(chan error, 1)
	s.InsertImage(context.Background(), "https://images.example/missing.jpg", func(_ *domain.Element, err error) {
		errs <- err
	})
	if err := <-errs; err == nil {
		t.Fatalf("expected fetch error")
	}
	if got := len(s.Engine().Scene().Elements); got != 1 {
		t.Fatalf("failed insert changed the scene: %d elements", got)
	}
}

func TestInsertImageAfterCloseIsDropped(t *testing.T) {
	imgs := &fakeImages{w: 100, h: 100, gate: make(chan struct{})}
	s, _ := newTestSession(t, access.RoleAdmin, Options{Images: imgs})

	called := make(chan struct{}, 1)
	s.InsertImage(context.Background(), "https://images.example/slow.jpg", func(*domain.Element, error) {
		called <- struct{}{}
	})
	s.Close()
	close(imgs.gate)

	select {
	case <-called:
		t.Fatalf("deferred insert resumed after Close")
	case <-time.After(50 * time.Millisecond):
	}
	if len(s.Engine().Scene().Elements) != 0 {
		t.Fatalf("disposed session mutated the scene")
	}
}

func TestApplyPaletteRecolorsBoundElements(t *testing.T) {
	s, _ := newTestSession(t, access.RoleAdmin, Options{})
	pal, err := domain.NewColorPalette("#101010", "#202020", "#303030", "#404040", "#505050")
	if err != nil {
		t.Fatalf("NewColorPalette: %v", err)
	}
	bound := domain.NewElement(domain.TypeText)
	bound.Content = "x"
	if err := domain.ApplyColorVariable(bound, domain.SlotPrincipal2, pal); err != nil {
		t.Fatalf("ApplyColorVariable: %v", err)
	}
	free := domain.NewElement(domain.TypeShape)
	free.ShapeKind = domain.ShapeCircle
	free.Width, free.Height = 10, 10
	free.Fill = "#abcdef"
	for _, el := range []*domain.Element{bound, free} {
		if err := s.Engine().Add(el); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	next, err := domain.NewColorPalette("#aa0000", "#bb0000", "#cc0000", "#dd0000", "#ee0000")
	if err != nil {
		t.Fatalf("NewColorPalette: %v", err)
	}
	if n := s.ApplyPalette(next); n != 1 {
		t.Fatalf("recolored %d elements, want 1", n)
	}
	if bound.Fill != "#bb0000" {
		t.Fatalf("bound fill = %s, want #bb0000", bound.Fill)
	}
	if free.Fill != "#abcdef" {
		t.Fatalf("unbound fill overwritten: %s", free.Fill)
	}
}

func TestClientMutationGating(t *testing.T) {
	store := newMemStore()
	store.docs["tpl"] = templateDoc(t)
	s, _ := newTestSession(t, access.RoleClient, Options{Store: store})
	if err := s.LoadDocument(context.Background(), "tpl"); err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	sc := s.Engine().Scene()
	bg, txt := sc.Elements[0], sc.Elements[1]

	// Allowed: text edit on a customizable element with the text property.
	if err := s.SetText(txt.ID, "Rebajas"); err != nil {
		t.Fatalf("SetText: %v", err)
	}
	// Denied: position change when only text+color are allowed.
	if err := s.SetPosition(txt.ID, 10, 10); err == nil {
		t.Fatalf("position change allowed without the position property")
	}
	// Denied: any mutation of a non-customizable element.
	if err := s.SetFill(bg.ID, "#000000"); err == nil {
		t.Fatalf("mutation of non-customizable element allowed")
	}
	// Denied: delete and restack are admin-only.
	if err := s.Delete(txt.ID); err == nil {
		t.Fatalf("client delete allowed")
	}
	if err := s.BringToFront(txt.ID); err == nil {
		t.Fatalf("client restack allowed")
	}
}

func TestManualFillClearsPaletteBinding(t *testing.T) {
	s, _ := newTestSession(t, access.RoleAdmin, Options{})
	pal, _ := domain.NewColorPalette("#1", "#2", "#3", "#4", "#5")
	el := domain.NewElement(domain.TypeText)
	el.Content = "x"
	if err := domain.ApplyColorVariable(el, domain.SlotPrincipal1, pal); err != nil {
		t.Fatalf("ApplyColorVariable: %v", err)
	}
	if err := s.Engine().Add(el); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.SetFill(el.ID, "#123456"); err != nil {
		t.Fatalf("SetFill: %v", err)
	}
	if el.ColorVariable != nil {
		t.Fatalf("manual fill left the palette binding in place")
	}
	if n := s.ApplyPalette(pal); n != 0 {
		t.Fatalf("palette reapplied to a manually colored element")
	}
}

// Runs against the real clock so debounced commits fire on timer goroutines
// while mutations are in flight; the race detector verifies both paths hold
// the session lock.
func TestDeferredCommitsSerializeWithMutations(t *testing.T) {
	s := NewSession(1080, 1080, "#ffffff", Options{Role: access.RoleAdmin})
	defer s.Close()

	el := domain.NewElement(domain.TypeShape)
	el.ShapeKind = domain.ShapeRectangle
	el.Width, el.Height = 10, 10
	if err := s.Engine().Add(el); err != nil {
		t.Fatalf("Add: %v", err)
	}

	// Keep writing element fields across the settle window so the add's
	// deferred commit serializes the scene mid-burst.
	deadline := time.Now().Add(600 * time.Millisecond)
	for i := 0; time.Now().Before(deadline); i++ {
		if err := s.SetPosition(el.ID, float64(i), float64(i)); err != nil {
			t.Fatalf("SetPosition: %v", err)
		}
	}

	// The add commit plus the trailing modification commit leave an undo
	// step once the timers drain.
	undone := false
	for i := 0; i < 40 && !undone; i++ {
		time.Sleep(50 * time.Millisecond)
		undone = s.Undo()
	}
	if !undone {
		t.Fatalf("deferred commits never landed")
	}
}

func TestUndoRedoReappliesRoleState(t *testing.T) {
	s, clk := newTestSession(t, access.RoleAdmin, Options{})
	el := domain.NewElement(domain.TypeText)
	el.Content = "v1"
	el.IsCustomizable = true
	el.AllowedProperties = []domain.PropertyTag{domain.PropText}
	if err := s.Engine().Add(el); err != nil {
		t.Fatalf("Add: %v", err)
	}
	clk.Advance(400 * time.Millisecond)
	clk.BlockUntilReady()
	if err := s.SetText(el.ID, "v2"); err != nil {
		t.Fatalf("SetText: %v", err)
	}
	clk.Advance(400 * time.Millisecond)
	clk.BlockUntilReady()

	if !s.Undo() {
		t.Fatalf("undo failed")
	}
	got := s.Engine().Scene().ElementByID(el.ID)
	if got.Content != "v1" {
		t.Fatalf("undo content = %s, want v1", got.Content)
	}
	if !s.Engine().StateOf(got.ID).Interactive() {
		t.Fatalf("interaction state not re-derived after undo")
	}
	if !s.Redo() {
		t.Fatalf("redo failed")
	}
	if s.Engine().Scene().ElementByID(el.ID).Content != "v2" {
		t.Fatalf("redo did not restore the edit")
	}
}
