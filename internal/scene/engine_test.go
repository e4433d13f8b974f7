/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package scene

import (
	"testing"

	"plantilla/internal/domain"
)

type countingSurface struct{ renders int }

func (c *countingSurface) RequestRender(*domain.Scene) { c.renders++ }

func shape(id string) *domain.Element {
	el := domain.NewElement(domain.TypeShape)
	el.ID = id
	el.ShapeKind = domain.ShapeRectangle
	el.Width, el.Height = 10, 10
	return el
}

// newEngine builds an engine over n shapes named e0..e{n-1}, with the first
// k locked at the bottom.
func newEngine(t *testing.T, n, k int) (*Engine, *countingSurface) {
	t.Helper()
	s := domain.NewScene(1080, 1080, "#ffffff")
	surf := &countingSurface{}
	e := New(s, surf, Hooks{})
	for i := 0; i < n; i++ {
		if err := e.Add(shape(idFor(i))); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	for i := 0; i < k; i++ {
		e.SetState(idFor(i), Locked())
	}
	return e, surf
}

func idFor(i int) string { return string(rune('a' + i)) }

func order(e *Engine) string {
	out := ""
	for _, el := range e.Scene().Elements {
		out += el.ID
	}
	return out
}

func TestSendBackwardRespectsLockedPrefix(t *testing.T) {
	// 5 elements, first 2 locked: order "abcde", locked prefix "ab".
	e, _ := newEngine(t, 5, 2)

	// The lowest unlocked element cannot move backward.
	if e.SendBackward(idFor(2)) {
		t.Fatalf("SendBackward on lowest unlocked element must be a no-op")
	}
	if got := order(e); got != "abcde" {
		t.Fatalf("order changed on no-op: %q", got)
	}

	// The element just above it moves down exactly one slot.
	if !e.SendBackward(idFor(3)) {
		t.Fatalf("SendBackward on index K+1 should move")
	}
	if got := order(e); got != "abdce" {
		t.Fatalf("order = %q, want abdce", got)
	}
}

func TestSendToBackStopsAtLockedPrefix(t *testing.T) {
	e, _ := newEngine(t, 5, 2)
	if !e.SendToBack(idFor(4)) {
		t.Fatalf("SendToBack should move the top element")
	}
	if got := order(e); got != "abecd" {
		t.Fatalf("order = %q, want abecd", got)
	}
}

func TestBringForwardNoOpAtTop(t *testing.T) {
	e, _ := newEngine(t, 3, 0)
	if e.BringForward(idFor(2)) {
		t.Fatalf("BringForward at top must be a no-op")
	}
	if !e.BringForward(idFor(0)) {
		t.Fatalf("BringForward should swap with next-higher")
	}
	if got := order(e); got != "bac" {
		t.Fatalf("order = %q, want bac", got)
	}
}

func TestLockedElementIsNeverAReorderTarget(t *testing.T) {
	e, _ := newEngine(t, 4, 2)
	if e.BringForward(idFor(0)) || e.BringToFront(idFor(1)) || e.SendBackward(idFor(1)) {
		t.Fatalf("reordering a locked element must be a no-op")
	}
	if got := order(e); got != "abcd" {
		t.Fatalf("order = %q, want abcd", got)
	}
}

func TestSelectLockedElementPreservesSelection(t *testing.T) {
	var notified []*domain.Element
	s := domain.NewScene(500, 500, "#fff")
	e := New(s, &countingSurface{}, Hooks{
		OnSelectionChanged: func(el *domain.Element) { notified = append(notified, el) },
	})
	a, b := shape("a"), shape("b")
	if err := e.Add(a); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := e.Add(b); err != nil {
		t.Fatalf("Add: %v", err)
	}
	e.SetState("b", Locked())

	if !e.Select("a") {
		t.Fatalf("selecting an interactive element failed")
	}
	if e.Select("b") {
		t.Fatalf("selecting a locked element must fail")
	}
	if sel := e.Selected(); sel == nil || sel.ID != "a" {
		t.Fatalf("prior selection was not preserved: %v", sel)
	}
	if len(notified) != 1 || notified[0].ID != "a" {
		t.Fatalf("unexpected selection notifications: %d", len(notified))
	}
}

func TestRemoveSelectedClearsSelection(t *testing.T) {
	e, _ := newEngine(t, 2, 0)
	if !e.Select("a") {
		t.Fatalf("select failed")
	}
	if !e.Remove("a") {
		t.Fatalf("remove failed")
	}
	if e.Selected() != nil {
		t.Fatalf("selection should be cleared after removing the selected element")
	}
}

func TestRepaintsAreCoalescedNotDropped(t *testing.T) {
	e, surf := newEngine(t, 3, 0)
	surf.renders = 0
	e.Flush()
	if surf.renders != 1 {
		t.Fatalf("pending mutations must flush exactly once, got %d", surf.renders)
	}
	e.Flush()
	if surf.renders != 1 {
		t.Fatalf("flush without mutations must not render, got %d", surf.renders)
	}
	e.BringForward("a")
	e.SendBackward("c")
	e.Flush()
	if surf.renders != 2 {
		t.Fatalf("two mutations must coalesce into one render, got %d", surf.renders)
	}
}

func TestReorderEmitsRemoveAddPair(t *testing.T) {
	e, _ := newEngine(t, 3, 0)
	var kinds []MutationKind
	e.OnMutation(func(k MutationKind, el *domain.Element) { kinds = append(kinds, k) })
	e.BringForward("a")
	if len(kinds) != 2 || kinds[0] != ObjectRemoved || kinds[1] != ObjectAdded {
		t.Fatalf("reorder must emit remove then add, got %v", kinds)
	}
}

func TestPostInsertHookRunsOnEveryInsertion(t *testing.T) {
	e, _ := newEngine(t, 0, 0)
	var stamped []string
	e.RegisterPostInsert(func(el *domain.Element) { stamped = append(stamped, el.ID) })
	if err := e.Add(shape("x")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := e.InsertAt(0, shape("y")); err != nil {
		t.Fatalf("InsertAt: %v", err)
	}
	if len(stamped) != 2 || stamped[0] != "x" || stamped[1] != "y" {
		t.Fatalf("post-insert hook missed insertions: %v", stamped)
	}
}

func TestInsertAtClampsBelowLockedPrefix(t *testing.T) {
	e, _ := newEngine(t, 3, 2)
	if err := e.InsertAt(0, shape("z")); err != nil {
		t.Fatalf("InsertAt: %v", err)
	}
	if got := order(e); got != "abzc" {
		t.Fatalf("order = %q, want abzc (insert clamped above locked prefix)", got)
	}
}

func TestAddRejectsDuplicateID(t *testing.T) {
	e, _ := newEngine(t, 1, 0)
	if err := e.Add(shape("a")); err == nil {
		t.Fatalf("expected duplicate id rejection")
	}
}

func TestReplaceResetsSelectionAndEmitsNothing(t *testing.T) {
	e, _ := newEngine(t, 2, 0)
	var events int
	e.OnMutation(func(MutationKind, *domain.Element) { events++ })
	e.Select("a")
	next := domain.NewScene(100, 100, "#000")
	next.Elements = append(next.Elements, shape("z"))
	e.Replace(next)
	if e.Selected() != nil {
		t.Fatalf("selection must be dropped on replace")
	}
	if events != 0 {
		t.Fatalf("replace must not emit mutation events, got %d", events)
	}
	if got := order(e); got != "z" {
		t.Fatalf("scene not replaced: %q", got)
	}
}
