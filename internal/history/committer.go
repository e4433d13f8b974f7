/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package history

import (
	"log/slog"
	"sync"
	"time"

	"github.com/zoobzio/clockz"

	"plantilla/internal/domain"
	"plantilla/internal/scene"
)

// Debounce windows for commit triggering. An add and a remove within
// PairWindow of each other are one restack, not two edits; a lone structural
// event or the last of a burst of property edits commits SettleDelay later.
const (
	PairWindow  = 250 * time.Millisecond
	SettleDelay = 300 * time.Millisecond
	LoadSettle  = 500 * time.Millisecond
)

// Committer turns raw engine mutation events into debounced history commits.
// Timer callbacks run on arbitrary goroutines. Committer state is guarded by
// mu; the history and the scene it serializes belong to the owner, so a
// deferred commit first acquires the owner's lock (see Synchronize) and then
// re-checks the disposed flag. A stale timer can never touch a torn-down
// editor or race a live mutation.
type Committer struct {
	mu    sync.Mutex
	clock clockz.Clock
	hist  *History
	log   *slog.Logger
	lock  sync.Locker

	disposed   bool
	lastAdd    time.Time
	lastRemove time.Time
	seq        int
	modID      int
	pending    map[int]clockz.Timer
}

// NewCommitter wires a committer to the engine's mutation stream. Pass
// clockz.RealClock outside tests.
func NewCommitter(h *History, e *scene.Engine, clock clockz.Clock) *Committer {
	c := &Committer{
		clock:   clock,
		hist:    h,
		log:     h.log.With(slog.String("op", "debounce")),
		seq:     1,
		pending: make(map[int]clockz.Timer),
	}
	e.OnMutation(func(kind scene.MutationKind, _ *domain.Element) { c.Observe(kind) })
	return c
}

// Synchronize makes every deferred commit acquire l before touching the
// history or serializing the scene. The owner passes the same lock its own
// mutations run under; call it before the first mutation reaches the engine.
func (c *Committer) Synchronize(l sync.Locker) {
	c.mu.Lock()
	c.lock = l
	c.mu.Unlock()
}

// Baseline schedules the initial snapshot after a short settle delay, so
// undo always has a known-good state to return to after a scene load.
func (c *Committer) Baseline() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.schedule(LoadSettle, c.commit)
}

// Observe is the engine-facing mutation listener.
func (c *Committer) Observe(kind scene.MutationKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	now := c.clock.Now()
	switch kind {
	case scene.ObjectModified:
		// Trailing debounce: only the last edit of a burst commits.
		if t, ok := c.pending[c.modID]; ok {
			t.Stop()
			delete(c.pending, c.modID)
		}
		c.modID = c.schedule(SettleDelay, c.commit)

	case scene.ObjectAdded:
		c.lastAdd = now
		// A removal just happened: this add is the reinsert half of a
		// restack, not a genuine edit.
		if !c.lastRemove.IsZero() && now.Sub(c.lastRemove) < PairWindow {
			return
		}
		c.schedule(SettleDelay, func() {
			c.mu.Lock()
			stale := c.disposed || (!c.lastRemove.IsZero() && c.clock.Now().Sub(c.lastRemove) <= PairWindow)
			c.mu.Unlock()
			if !stale {
				c.commit()
			}
		})

	case scene.ObjectRemoved:
		c.lastRemove = now
		if !c.lastAdd.IsZero() && now.Sub(c.lastAdd) < PairWindow {
			return
		}
		c.schedule(SettleDelay, func() {
			c.mu.Lock()
			stale := c.disposed || (!c.lastAdd.IsZero() && c.clock.Now().Sub(c.lastAdd) <= PairWindow)
			c.mu.Unlock()
			if !stale {
				c.commit()
			}
		})
	}
}

// commit runs on a timer goroutine. It takes the owner's lock first (when one
// is registered) so the serialize inside History.Commit cannot overlap the
// owner's mutations, then re-checks disposal under mu.
func (c *Committer) commit() {
	c.mu.Lock()
	lock := c.lock
	c.mu.Unlock()
	if lock != nil {
		lock.Lock()
		defer lock.Unlock()
	}
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	if err := c.hist.Commit(); err != nil {
		c.log.Error("debounced commit failed", slog.Any("err", err))
	}
}

// schedule registers a timer in the pending set; the entry is removed again
// when the timer fires, so only live timers are retained. Caller holds mu.
func (c *Committer) schedule(d time.Duration, fn func()) int {
	id := c.seq
	c.seq++
	c.pending[id] = c.clock.AfterFunc(d, func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		fn()
	})
	return id
}

// Close cancels every pending timer and marks the committer disposed.
// It must be called when the editor is torn down or the underlying template
// identity changes; stale timers then fire as no-ops.
func (c *Committer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.disposed = true
	for _, t := range c.pending {
		t.Stop()
	}
	c.pending = nil
	c.modID = 0
}
