/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package history implements snapshot-based undo/redo over a scene engine: a
// linear stack of serialized scenes with a current position, capped depth,
// and a debounced committer that coalesces rapid edits into single entries.
package history

import (
	"log/slog"

	"plantilla/internal/codec"
	applog "plantilla/internal/log"
	"plantilla/internal/scene"
)

// MaxEntries caps the undo stack; the oldest snapshot is evicted beyond it.
const MaxEntries = 50

// History is a linear undo/redo stack for one engine. The restoring guard is
// instance state, never package state, so independent editors (and tests)
// cannot bleed into each other. Not safe for concurrent use; the Committer
// serializes access for its timer callbacks.
type History struct {
	log     *slog.Logger
	engine  *scene.Engine
	entries [][]byte
	pos     int // index of the current snapshot, -1 when empty
	max     int

	restoring bool
	onChange  func(canUndo, canRedo bool)
}

// New creates an empty history over the engine. onChange may be nil.
func New(e *scene.Engine, onChange func(canUndo, canRedo bool)) *History {
	return &History{
		log:      applog.WithComponent("history"),
		engine:   e,
		pos:      -1,
		max:      MaxEntries,
		onChange: onChange,
	}
}

func (h *History) notify() {
	if h.onChange != nil {
		h.onChange(h.CanUndo(), h.CanRedo())
	}
}

// Len returns the number of retained snapshots.
func (h *History) Len() int { return len(h.entries) }

// CanUndo reports whether an earlier snapshot exists.
func (h *History) CanUndo() bool { return h.pos > 0 }

// CanRedo reports whether a later snapshot exists.
func (h *History) CanRedo() bool { return h.pos < len(h.entries)-1 }

// Commit serializes the live scene and appends it as the new current entry.
// Entries after the current position are dropped first: committing after an
// undo makes the undone future unreachable. While a restore is in progress
// Commit is suppressed; restoring a snapshot is not an edit.
func (h *History) Commit() error {
	if h.restoring {
		return nil
	}
	blob, err := codec.Serialize(h.engine.Scene())
	if err != nil {
		return err
	}
	h.entries = append(h.entries[:h.pos+1], blob)
	h.pos++
	if len(h.entries) > h.max {
		drop := len(h.entries) - h.max
		h.entries = append([][]byte(nil), h.entries[drop:]...)
		h.pos -= drop
	}
	h.log.Debug("snapshot committed", slog.Int("pos", h.pos), slog.Int("len", len(h.entries)))
	h.notify()
	return nil
}

// Undo steps back one snapshot and replaces the live scene wholesale.
// It is a no-op at the earliest entry.
func (h *History) Undo() bool {
	if !h.CanUndo() {
		return false
	}
	if !h.restore(h.pos - 1) {
		return false
	}
	h.notify()
	return true
}

// Redo steps forward one snapshot. It is a no-op at the latest entry.
func (h *History) Redo() bool {
	if !h.CanRedo() {
		return false
	}
	if !h.restore(h.pos + 1) {
		return false
	}
	h.notify()
	return true
}

func (h *History) restore(target int) bool {
	h.restoring = true
	defer func() { h.restoring = false }()

	s, err := codec.Deserialize(h.entries[target])
	if err != nil {
		// A corrupt snapshot means a defect upstream; keep the live scene.
		h.log.Error("snapshot restore failed", slog.Int("target", target), slog.Any("err", err))
		return false
	}
	h.engine.Replace(s)
	h.pos = target
	return true
}
