/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package scene maintains the live canvas document: element paint order,
// selection, interaction state, and repaint scheduling. Rendering and
// hit-testing are delegated to an external drawing surface; the engine owns
// ordering rules and the locked-prefix invariant.
package scene

import (
	"fmt"
	"log/slog"

	"plantilla/internal/domain"
	applog "plantilla/internal/log"
)

// Surface is the external 2D drawing contract. On any structural mutation
// the engine schedules a repaint; repaints are coalesced per Flush but never
// dropped.
type Surface interface {
	RequestRender(s *domain.Scene)
}

// InteractionState is the live interactive configuration of one element on
// the surface. It lives in a side table keyed by element id, never on the
// element itself, so the persisted model stays free of runtime flags.
type InteractionState struct {
	Selectable    bool
	Evented       bool
	LockMovementX bool
	LockMovementY bool
	LockScalingX  bool
	LockScalingY  bool
	LockRotation  bool
	LockSkewingX  bool
	LockSkewingY  bool
	HasControls   bool
	HasBorders    bool
	TextEditable  bool
}

// FullAccess is the interaction state of an unrestricted element.
func FullAccess() InteractionState {
	return InteractionState{
		Selectable:   true,
		Evented:      true,
		HasControls:  true,
		HasBorders:   true,
		TextEditable: true,
	}
}

// Locked is the interaction state of an element excluded from all
// interaction (background layers for client roles).
func Locked() InteractionState { return InteractionState{} }

// Interactive reports whether the element participates in pick/selection.
func (st InteractionState) Interactive() bool { return st.Selectable && st.Evented }

// MutationKind tags engine mutation events consumed by the history layer.
type MutationKind int

const (
	ObjectAdded MutationKind = iota
	ObjectRemoved
	ObjectModified
)

// MutationListener observes structural and property mutations.
type MutationListener func(kind MutationKind, el *domain.Element)

// Hooks are the outward notifications the engine emits to surrounding UI.
type Hooks struct {
	OnSelectionChanged func(el *domain.Element) // nil = selection cleared
	OnSceneReady       func(e *Engine)
}

// Engine is the canvas engine over one scene. It is not safe for concurrent
// use; callers on other goroutines must serialize through their own session.
type Engine struct {
	log     *slog.Logger
	scene   *domain.Scene
	state   map[string]InteractionState
	sel     string // selected element id, "" = none
	surface Surface
	hooks   Hooks

	dirty      bool
	listeners  []MutationListener
	postInsert []func(el *domain.Element)
}

// New creates an engine over the given scene and surface and announces
// readiness through the hooks. All elements start fully interactive; the
// access layer reapplies role state afterwards.
func New(s *domain.Scene, surface Surface, hooks Hooks) *Engine {
	e := &Engine{
		log:     applog.WithComponent("scene"),
		surface: surface,
		hooks:   hooks,
	}
	e.install(s)
	if hooks.OnSceneReady != nil {
		hooks.OnSceneReady(e)
	}
	return e
}

// install wires a scene in wholesale, resetting selection and state.
func (e *Engine) install(s *domain.Scene) {
	e.scene = s
	e.sel = ""
	e.state = make(map[string]InteractionState, len(s.Elements))
	for _, el := range s.Elements {
		e.state[el.ID] = FullAccess()
	}
	e.markDirty()
}

// Scene returns the live scene. Callers must not reorder it directly.
func (e *Engine) Scene() *domain.Scene { return e.scene }

// Replace swaps the live scene wholesale (load, undo, redo). The previous
// selection is dropped and no mutation events are emitted: a restore is not
// an edit.
func (e *Engine) Replace(s *domain.Scene) {
	hadSel := e.sel != ""
	e.install(s)
	if hadSel && e.hooks.OnSelectionChanged != nil {
		e.hooks.OnSelectionChanged(nil)
	}
	e.log.Debug("scene replaced", slog.Int("elements", len(s.Elements)))
}

// OnMutation registers a listener for add/remove/modify events.
func (e *Engine) OnMutation(fn MutationListener) { e.listeners = append(e.listeners, fn) }

// RegisterPostInsert registers a hook invoked after every insertion. This is
// the single extension point for attaching per-element behavior; callers must
// not wrap or override Add.
func (e *Engine) RegisterPostInsert(fn func(el *domain.Element)) {
	e.postInsert = append(e.postInsert, fn)
}

func (e *Engine) emit(kind MutationKind, el *domain.Element) {
	for _, fn := range e.listeners {
		fn(kind, el)
	}
}

// Add validates the element and appends it at the top of the paint order.
func (e *Engine) Add(el *domain.Element) error {
	if err := el.Validate(); err != nil {
		return err
	}
	if e.scene.ElementByID(el.ID) != nil {
		return &domain.ValidationError{Field: "id", Reason: fmt.Sprintf("element %q already in scene", el.ID)}
	}
	e.scene.Elements = append(e.scene.Elements, el)
	e.state[el.ID] = FullAccess()
	for _, fn := range e.postInsert {
		fn(el)
	}
	e.markDirty()
	e.emit(ObjectAdded, el)
	return nil
}

// InsertAt inserts the element at the given paint-order index, clamped to
// [lockedPrefix, len]. Argument order is (index, element).
func (e *Engine) InsertAt(idx int, el *domain.Element) error {
	if err := el.Validate(); err != nil {
		return err
	}
	if e.scene.ElementByID(el.ID) != nil {
		return &domain.ValidationError{Field: "id", Reason: fmt.Sprintf("element %q already in scene", el.ID)}
	}
	min := e.lockedPrefixLen()
	if idx < min {
		idx = min
	}
	if idx > len(e.scene.Elements) {
		idx = len(e.scene.Elements)
	}
	els := e.scene.Elements
	els = append(els, nil)
	copy(els[idx+1:], els[idx:])
	els[idx] = el
	e.scene.Elements = els
	e.state[el.ID] = FullAccess()
	for _, fn := range e.postInsert {
		fn(el)
	}
	e.markDirty()
	e.emit(ObjectAdded, el)
	return nil
}

// Remove deletes the element from the scene. Removing the selected element
// clears the selection.
func (e *Engine) Remove(id string) bool {
	idx := e.indexOf(id)
	if idx < 0 {
		return false
	}
	el := e.scene.Elements[idx]
	e.scene.Elements = append(e.scene.Elements[:idx], e.scene.Elements[idx+1:]...)
	delete(e.state, id)
	if e.sel == id {
		e.sel = ""
		if e.hooks.OnSelectionChanged != nil {
			e.hooks.OnSelectionChanged(nil)
		}
	}
	e.markDirty()
	e.emit(ObjectRemoved, el)
	return true
}

func (e *Engine) indexOf(id string) int {
	for i, el := range e.scene.Elements {
		if el.ID == id {
			return i
		}
	}
	return -1
}

// lockedPrefixLen counts the run of non-interactive elements pinned at the
// bottom of the paint order. It is the minimum index for any backward move.
func (e *Engine) lockedPrefixLen() int {
	n := 0
	for _, el := range e.scene.Elements {
		if e.state[el.ID].Interactive() {
			break
		}
		n++
	}
	return n
}

// assertPrefixStable panics if a reorder changed the leading locked run.
// Reorders must treat locked elements as neither target nor destination.
var prefixChecks = true

func (e *Engine) assertPrefixStable(before int, op string) {
	if !prefixChecks {
		return
	}
	if after := e.lockedPrefixLen(); after != before {
		panic(fmt.Sprintf("scene: %s moved the locked prefix (%d -> %d)", op, before, after))
	}
}

// reorderable reports whether the element may be reordered at all: it must
// exist and must not itself be locked.
func (e *Engine) reorderable(id string) (int, bool) {
	idx := e.indexOf(id)
	if idx < 0 {
		return -1, false
	}
	if !e.state[id].Interactive() {
		return idx, false
	}
	return idx, true
}

// moveTo splices the element from one index to another, emitting the same
// remove/add event pair the drawing surface produces for a restack.
func (e *Engine) moveTo(from, to int) {
	el := e.scene.Elements[from]
	els := append(e.scene.Elements[:from], e.scene.Elements[from+1:]...)
	els = append(els, nil)
	copy(els[to+1:], els[to:])
	els[to] = el
	e.scene.Elements = els
	e.markDirty()
	e.emit(ObjectRemoved, el)
	e.emit(ObjectAdded, el)
}

// BringForward swaps the element with its next-higher neighbor. No-op at the
// top of the order or for locked elements.
func (e *Engine) BringForward(id string) bool {
	idx, ok := e.reorderable(id)
	if !ok || idx >= len(e.scene.Elements)-1 {
		return false
	}
	before := e.lockedPrefixLen()
	e.moveTo(idx, idx+1)
	e.assertPrefixStable(before, "BringForward")
	return true
}

// SendBackward swaps the element with its next-lower neighbor, but never
// below the locked prefix.
func (e *Engine) SendBackward(id string) bool {
	idx, ok := e.reorderable(id)
	if !ok {
		return false
	}
	min := e.lockedPrefixLen()
	if idx <= min {
		return false
	}
	before := min
	e.moveTo(idx, idx-1)
	e.assertPrefixStable(before, "SendBackward")
	return true
}

// BringToFront moves the element to the absolute top of the paint order.
func (e *Engine) BringToFront(id string) bool {
	idx, ok := e.reorderable(id)
	if !ok || idx == len(e.scene.Elements)-1 {
		return false
	}
	before := e.lockedPrefixLen()
	e.moveTo(idx, len(e.scene.Elements)-1)
	e.assertPrefixStable(before, "BringToFront")
	return true
}

// SendToBack moves the element to the lowest unlocked position.
func (e *Engine) SendToBack(id string) bool {
	idx, ok := e.reorderable(id)
	if !ok {
		return false
	}
	min := e.lockedPrefixLen()
	if idx <= min {
		return false
	}
	before := min
	e.moveTo(idx, min)
	e.assertPrefixStable(before, "SendToBack")
	return true
}

// StateOf returns the live interaction state for an element id.
func (e *Engine) StateOf(id string) InteractionState { return e.state[id] }

// SetState installs interaction state for an element. Locking the currently
// selected element drops the selection.
func (e *Engine) SetState(id string, st InteractionState) {
	if e.indexOf(id) < 0 {
		return
	}
	e.state[id] = st
	if e.sel == id && !st.Interactive() {
		e.ClearSelection()
	}
	e.markDirty()
}

// Select makes the element the single active selection. Picking an element
// that is not interactive is a no-op that preserves the prior selection.
func (e *Engine) Select(id string) bool {
	if e.indexOf(id) < 0 {
		return false
	}
	if !e.state[id].Interactive() {
		return false
	}
	if e.sel == id {
		return true
	}
	e.sel = id
	if e.hooks.OnSelectionChanged != nil {
		e.hooks.OnSelectionChanged(e.scene.ElementByID(id))
	}
	return true
}

// ClearSelection drops the active selection, if any.
func (e *Engine) ClearSelection() {
	if e.sel == "" {
		return
	}
	e.sel = ""
	if e.hooks.OnSelectionChanged != nil {
		e.hooks.OnSelectionChanged(nil)
	}
}

// Selected returns the active element, or nil.
func (e *Engine) Selected() *domain.Element {
	if e.sel == "" {
		return nil
	}
	return e.scene.ElementByID(e.sel)
}

// NotifyModified records a committed property edit (drag end, resize end,
// text edit commit) and schedules a repaint.
func (e *Engine) NotifyModified(id string) {
	el := e.scene.ElementByID(id)
	if el == nil {
		return
	}
	e.markDirty()
	e.emit(ObjectModified, el)
}

func (e *Engine) markDirty() { e.dirty = true }

// Dirty reports whether a repaint is pending.
func (e *Engine) Dirty() bool { return e.dirty }

// Flush delivers at most one coalesced repaint to the surface. Mutations
// since the last flush produce exactly one render request.
func (e *Engine) Flush() {
	if !e.dirty {
		return
	}
	e.dirty = false
	if e.surface != nil {
		e.surface.RequestRender(e.scene)
	}
}
