/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// ValidationError reports an invalid element or palette construction. It is a
// programmer error: the triggering call fails fast, the session survives.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid element: %s: %s", e.Field, e.Reason)
}

// validTagsByType lists the property tags meaningful for each variant.
var validTagsByType = map[ElementType]map[PropertyTag]bool{
	TypeText: {
		PropPosition: true, PropText: true, PropColor: true, PropSize: true,
		PropFontFamily: true, PropFontWeight: true, PropFontStyle: true,
	},
	TypeImage: {
		PropPosition: true, PropSize: true, PropImage: true,
	},
	TypeShape: {
		PropPosition: true, PropColor: true, PropSize: true,
	},
}

// NewElement returns an element of the given type with a fresh identifier and
// full opacity.
func NewElement(t ElementType) *Element {
	return &Element{ID: uuid.NewString(), Type: t, Opacity: 1, Editable: true}
}

// Validate checks the element's structural invariants. A violation means the
// caller constructed the element incorrectly; it is never a recoverable
// runtime condition.
func (e *Element) Validate() error {
	if e.ID == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	switch e.Type {
	case TypeText, TypeImage, TypeShape:
	default:
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown element type %q", e.Type)}
	}
	if e.Opacity < 0 || e.Opacity > 1 {
		return &ValidationError{Field: "opacity", Reason: "must be within [0,1]"}
	}
	if e.FontSize < 0 {
		return &ValidationError{Field: "fontSize", Reason: "must be non-negative"}
	}
	if e.Width < 0 {
		return &ValidationError{Field: "width", Reason: "must be non-negative"}
	}
	if e.Height < 0 {
		return &ValidationError{Field: "height", Reason: "must be non-negative"}
	}
	if e.StrokeWidth < 0 {
		return &ValidationError{Field: "strokeWidth", Reason: "must be non-negative"}
	}
	if e.Type == TypeShape {
		switch e.ShapeKind {
		case ShapeRectangle, ShapeCircle:
		default:
			return &ValidationError{Field: "shapeType", Reason: fmt.Sprintf("unknown shape kind %q", e.ShapeKind)}
		}
	}
	valid := validTagsByType[e.Type]
	for _, tag := range e.AllowedProperties {
		if !valid[tag] {
			return &ValidationError{
				Field:  "allowedProperties",
				Reason: fmt.Sprintf("tag %q is not valid for element type %q", tag, e.Type),
			}
		}
	}
	return nil
}

// Allows reports whether the tag is present in the element's allowed set.
func (e *Element) Allows(tag PropertyTag) bool {
	for _, t := range e.AllowedProperties {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the element.
func (e *Element) Clone() *Element {
	c := *e
	if e.ColorVariable != nil {
		slot := *e.ColorVariable
		c.ColorVariable = &slot
	}
	if e.AllowedProperties != nil {
		c.AllowedProperties = append([]PropertyTag(nil), e.AllowedProperties...)
	}
	return &c
}

// SlotColor returns the palette color assigned to the slot. The five slots
// are exhaustive; an unknown slot is a defect in the caller.
func (p ColorPalette) SlotColor(slot ColorSlot) (Color, bool) {
	switch slot {
	case SlotPrincipal1:
		return p.Principal1, true
	case SlotPrincipal2:
		return p.Principal2, true
	case SlotSecundario1:
		return p.Secundario1, true
	case SlotSecundario2:
		return p.Secundario2, true
	case SlotSecundario3:
		return p.Secundario3, true
	}
	return "", false
}

// NewColorPalette builds a palette, rejecting partial input. A palette with
// an empty slot is invalid; no partial palettes ever reach the resolver.
func NewColorPalette(p1, p2, s1, s2, s3 Color) (ColorPalette, error) {
	pal := ColorPalette{Principal1: p1, Principal2: p2, Secundario1: s1, Secundario2: s2, Secundario3: s3}
	for _, slot := range Slots {
		c, _ := pal.SlotColor(slot)
		if c == "" {
			return ColorPalette{}, &ValidationError{Field: string(slot), Reason: "palette slot must not be empty"}
		}
	}
	return pal, nil
}

// ApplyColorVariable binds the element's fill to a palette slot and resolves
// the literal fill in the same step. Callers must never set ColorVariable and
// Fill independently.
func ApplyColorVariable(e *Element, slot ColorSlot, pal ColorPalette) error {
	c, ok := pal.SlotColor(slot)
	if !ok {
		return &ValidationError{Field: "colorVariable", Reason: fmt.Sprintf("unknown color slot %q", slot)}
	}
	s := slot
	e.ColorVariable = &s
	e.Fill = c
	return nil
}

// ClearColorVariable detaches the element from the palette, keeping the
// current literal fill.
func ClearColorVariable(e *Element) { e.ColorVariable = nil }

// NewScene returns an empty scene with the given canvas dimensions and
// background.
func NewScene(width, height float64, background Color) *Scene {
	return &Scene{Width: width, Height: height, Background: background}
}

// Clone returns a deep copy of the scene. History restores and load paths
// always replace the live scene wholesale with a copy, never merge.
func (s *Scene) Clone() *Scene {
	c := &Scene{Width: s.Width, Height: s.Height, Background: s.Background}
	c.Elements = make([]*Element, len(s.Elements))
	for i, el := range s.Elements {
		c.Elements[i] = el.Clone()
	}
	return c
}

// ElementByID returns the element with the given id, or nil.
func (s *Scene) ElementByID(id string) *Element {
	for _, el := range s.Elements {
		if el.ID == id {
			return el
		}
	}
	return nil
}

// Validate checks scene-level invariants: element validity and unique ids.
func (s *Scene) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return &ValidationError{Field: "canvas", Reason: "dimensions must be positive"}
	}
	seen := make(map[string]bool, len(s.Elements))
	for _, el := range s.Elements {
		if err := el.Validate(); err != nil {
			return err
		}
		if seen[el.ID] {
			return &ValidationError{Field: "id", Reason: fmt.Sprintf("duplicate element id %q", el.ID)}
		}
		seen[el.ID] = true
	}
	return nil
}
