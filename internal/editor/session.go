/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package editor coordinates one editing session: the scene engine, history,
// role gating, the persistence store and the image source. Async work (image
// decode, debounce timers) resumes on other goroutines, so every deferred
// mutation re-enters through the session mutex and checks the disposed flag.
package editor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zoobzio/clockz"

	"plantilla/internal/access"
	"plantilla/internal/codec"
	"plantilla/internal/domain"
	"plantilla/internal/history"
	applog "plantilla/internal/log"
	"plantilla/internal/palette"
	"plantilla/internal/scene"
)

// DocumentStore is the persistence collaborator. Both the local file/SQLite
// store and the backend client satisfy it.
type DocumentStore interface {
	LoadDocument(ctx context.Context, id string) ([]byte, error)
	SaveDocument(ctx context.Context, id string, doc, thumbnail []byte) error
}

// ImageSource resolves a picked image URL to its pixel dimensions so a new
// image element can be sized before the surface ever fetches the bitmap.
type ImageSource interface {
	FetchSize(ctx context.Context, url string) (width, height int, err error)
}

// Thumbnailer renders a small preview of a scene for the save payload.
// Rendering belongs to the drawing surface, so it arrives as a collaborator.
type Thumbnailer func(s *domain.Scene) ([]byte, error)

// Session is one user's editing session over one document. It is safe to call
// from multiple goroutines; all mutations serialize through its mutex.
type Session struct {
	mu  sync.Mutex
	log *slog.Logger

	role      access.Role
	engine    *scene.Engine
	hist      *history.History
	committer *history.Committer

	store     DocumentStore
	images    ImageSource
	thumbnail Thumbnailer

	activePalette *domain.ColorPalette
	docID         string
	disposed      bool
}

// Options carries the session collaborators. Store, Images and Thumbnail may
// be nil; the corresponding operations then report an error or skip the part.
type Options struct {
	Role      access.Role
	Surface   scene.Surface
	Hooks     scene.Hooks
	Store     DocumentStore
	Images    ImageSource
	Thumbnail Thumbnailer
	Clock     clockz.Clock // nil = clockz.RealClock
}

// NewSession builds a session over an empty scene with the given canvas size.
func NewSession(width, height float64, background domain.Color, opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = clockz.RealClock
	}
	s := &Session{
		log:    applog.WithComponent("editor"),
		role:   opts.Role,
		store:  opts.Store,
		images: opts.Images,
	}
	s.thumbnail = opts.Thumbnail
	s.engine = scene.New(domain.NewScene(width, height, background), opts.Surface, opts.Hooks)
	s.hist = history.New(s.engine, nil)
	s.committer = history.NewCommitter(s.hist, s.engine, opts.Clock)
	// Debounce timers fire on their own goroutines; commits must hold the
	// same lock the mutators do.
	s.committer.Synchronize(&s.mu)
	access.Apply(s.engine, s.role)
	return s
}

// Role returns the editing role the session was opened with.
func (s *Session) Role() access.Role { return s.role }

// Engine exposes the scene engine for read access (paint order, selection).
func (s *Session) Engine() *scene.Engine { return s.engine }

// History exposes undo/redo availability for UI state.
func (s *Session) History() *history.History { return s.hist }

// LoadDocument fetches a document from the store and installs it: deserialize,
// reapply the active palette, re-derive role state, then schedule the history
// baseline. On any failure the current scene is left untouched so the caller
// can fall back to a known-good template.
func (s *Session) LoadDocument(ctx context.Context, id string) error {
	if s.store == nil {
		return fmt.Errorf("load document %s: no store configured", id)
	}
	data, err := s.store.LoadDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("load document %s: %w", id, err)
	}
	if err := s.LoadBytes(data); err != nil {
		return fmt.Errorf("load document %s: %w", id, err)
	}
	s.mu.Lock()
	s.docID = id
	s.mu.Unlock()
	return nil
}

// LoadBytes installs a serialized document already in hand (local open,
// crash autosave). Same pipeline as LoadDocument minus the store fetch.
func (s *Session) LoadBytes(data []byte) error {
	sc, err := codec.Deserialize(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return fmt.Errorf("load: session closed")
	}
	if s.activePalette != nil {
		n := palette.Reapply(sc, *s.activePalette)
		s.log.Debug("palette reapplied on load", slog.Int("recolored", n))
	}
	s.engine.Replace(sc)
	access.Apply(s.engine, s.role)
	s.engine.Flush()
	s.committer.Baseline()
	return nil
}

// SaveDocument serializes the live scene and hands it to the store together
// with a rendered thumbnail when a thumbnailer is configured. A failed save
// never clears or alters local state; the user keeps editing and retries.
func (s *Session) SaveDocument(ctx context.Context, id string) error {
	if s.store == nil {
		return fmt.Errorf("save document %s: no store configured", id)
	}
	s.mu.Lock()
	sc := s.engine.Scene().Clone()
	thumbnailer := s.thumbnail
	s.mu.Unlock()

	data, err := codec.Serialize(sc)
	if err != nil {
		return fmt.Errorf("save document %s: %w", id, err)
	}
	var thumb []byte
	if thumbnailer != nil {
		if thumb, err = thumbnailer(sc); err != nil {
			// A preview is decoration; save the document without it.
			s.log.Warn("thumbnail render failed", slog.Any("err", err))
			thumb = nil
		}
	}
	if err := s.store.SaveDocument(ctx, id, data, thumb); err != nil {
		return fmt.Errorf("save document %s: %w", id, err)
	}
	s.mu.Lock()
	s.docID = id
	s.mu.Unlock()
	return nil
}

// InsertImage resolves the image dimensions asynchronously and inserts a new
// image element at the canvas center when the fetch completes. Concurrent
// inserts land in completion order. A fetch failure skips the insert and
// leaves the scene unchanged; done (may be nil) receives the outcome.
func (s *Session) InsertImage(ctx context.Context, url string, done func(*domain.Element, error)) {
	if s.images == nil {
		if done != nil {
			done(nil, fmt.Errorf("insert image: no image source configured"))
		}
		return
	}
	go func() {
		w, h, err := s.images.FetchSize(ctx, url)

		s.mu.Lock()
		if s.disposed {
			s.mu.Unlock()
			return
		}
		if err != nil {
			s.mu.Unlock()
			s.log.Warn("image fetch failed, insert skipped", slog.String("url", url), slog.Any("err", err))
			if done != nil {
				done(nil, err)
			}
			return
		}
		el := domain.NewElement(domain.TypeImage)
		el.Src = url
		el.Width, el.Height = float64(w), float64(h)
		sc := s.engine.Scene()
		el.X, el.Y = sc.Width/2, sc.Height/2
		addErr := s.engine.Add(el)
		if addErr == nil {
			s.engine.Flush()
		}
		s.mu.Unlock()

		if done != nil {
			if addErr != nil {
				done(nil, addErr)
			} else {
				done(el, nil)
			}
		}
	}()
}

// ApplyPalette makes pal the active palette and recolors every bound element.
// Each recolored element reports a modification so the debounced committer
// folds the whole application into one history entry.
func (s *Session) ApplyPalette(pal domain.ColorPalette) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return 0
	}
	p := pal
	s.activePalette = &p
	sc := s.engine.Scene()
	n := palette.Reapply(sc, pal)
	if n > 0 {
		for _, el := range sc.Elements {
			if el.ColorVariable != nil {
				s.engine.NotifyModified(el.ID)
			}
		}
		s.engine.Flush()
	}
	return n
}

// Delete removes an element, gated by role: deletion is admin-only.
func (s *Session) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !access.CanDelete(s.role) {
		return fmt.Errorf("delete %s: role %s may not delete elements", id, s.role)
	}
	if !s.engine.Remove(id) {
		return fmt.Errorf("delete %s: no such element", id)
	}
	s.engine.Flush()
	return nil
}

// SetPosition moves an element, gated by the element's allowed properties.
func (s *Session) SetPosition(id string, x, y float64) error {
	return s.mutate(id, domain.PropPosition, func(el *domain.Element) {
		el.X, el.Y = x, y
	})
}

// SetText replaces the text content of a text element.
func (s *Session) SetText(id, content string) error {
	return s.mutate(id, domain.PropText, func(el *domain.Element) {
		el.Content = content
	})
}

// SetFill sets a literal fill color and clears any palette binding: a manual
// color choice must not be overwritten by the next palette application.
func (s *Session) SetFill(id string, fill domain.Color) error {
	return s.mutate(id, domain.PropColor, func(el *domain.Element) {
		domain.ClearColorVariable(el)
		el.Fill = fill
	})
}

// BindColorVariable binds an element's fill to a palette slot, resolving it
// against the active palette (or leaving the literal fill when none is set).
func (s *Session) BindColorVariable(id string, slot domain.ColorSlot) error {
	return s.mutate(id, domain.PropColor, func(el *domain.Element) {
		if s.activePalette != nil {
			_ = domain.ApplyColorVariable(el, slot, *s.activePalette)
			return
		}
		cv := slot
		el.ColorVariable = &cv
	})
}

// SetSize resizes an element, gated by the size permission.
func (s *Session) SetSize(id string, w, h float64) error {
	return s.mutate(id, domain.PropSize, func(el *domain.Element) {
		el.Width, el.Height = w, h
	})
}

// ReplaceImage swaps the source of an image element.
func (s *Session) ReplaceImage(id, src string) error {
	return s.mutate(id, domain.PropImage, func(el *domain.Element) {
		el.Src = src
	})
}

func (s *Session) mutate(id string, tag domain.PropertyTag, apply func(*domain.Element)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return fmt.Errorf("mutate %s: session closed", id)
	}
	el := s.engine.Scene().ElementByID(id)
	if el == nil {
		return fmt.Errorf("mutate %s: no such element", id)
	}
	if !access.CanMutate(el, s.role, tag) {
		return fmt.Errorf("mutate %s: property %q not allowed for role %s", id, tag, s.role)
	}
	apply(el)
	s.engine.NotifyModified(id)
	s.engine.Flush()
	return nil
}

// Restack operations, gated to admins.

func (s *Session) BringForward(id string) error { return s.reorder(id, s.engine.BringForward) }
func (s *Session) SendBackward(id string) error { return s.reorder(id, s.engine.SendBackward) }
func (s *Session) BringToFront(id string) error { return s.reorder(id, s.engine.BringToFront) }
func (s *Session) SendToBack(id string) error   { return s.reorder(id, s.engine.SendToBack) }

func (s *Session) reorder(id string, op func(string) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !access.CanReorder(s.role) {
		return fmt.Errorf("reorder %s: role %s may not restack elements", id, s.role)
	}
	if !op(id) {
		return fmt.Errorf("reorder %s: move not possible", id)
	}
	s.engine.Flush()
	return nil
}

// Undo steps the scene back one snapshot and repaints.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hist.Undo() {
		return false
	}
	access.Apply(s.engine, s.role)
	s.engine.Flush()
	return true
}

// Redo steps the scene forward one snapshot and repaints.
func (s *Session) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hist.Redo() {
		return false
	}
	access.Apply(s.engine, s.role)
	s.engine.Flush()
	return true
}

// Close tears the session down: pending debounce timers are cancelled and
// every deferred mutation still in flight becomes a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.disposed = true
	s.committer.Close()
	s.log.Debug("session closed", slog.String("doc", s.docID))
}
