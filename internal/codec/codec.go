/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package codec converts a scene to and from the persistable document format.
//
// The drawing surface serializes only its native property set and silently
// drops anything else, so the codec re-attaches the customization metadata
// (colorVariable, editable, isCustomizable, customizableName,
// allowedProperties) to every object record, and restores canvas-level
// configuration (dimensions, background) explicitly on load.
package codec

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"plantilla/internal/domain"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var documentSchema string

// DeserializationError reports a malformed or corrupt document. Callers fall
// back to re-rendering a known-good template; they never crash the editor.
type DeserializationError struct {
	Reason string
	Err    error
}

func (e *DeserializationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("deserialize document: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("deserialize document: %s", e.Reason)
}

func (e *DeserializationError) Unwrap() error { return e.Err }

// object is one serialized element: the surface's native fields plus the
// re-attached customization metadata.
type object struct {
	// Native drawing fields.
	ID          string             `json:"id"`
	Type        domain.ElementType `json:"type"`
	X           float64            `json:"x"`
	Y           float64            `json:"y"`
	Fill        domain.Color       `json:"fill,omitempty"`
	Opacity     float64            `json:"opacity"`
	Content     string             `json:"content,omitempty"`
	FontFamily  domain.FontFamily  `json:"fontFamily,omitempty"`
	FontSize    float64            `json:"fontSize,omitempty"`
	FontWeight  domain.FontWeight  `json:"fontWeight,omitempty"`
	FontStyle   domain.FontStyle   `json:"fontStyle,omitempty"`
	TextAlign   domain.TextAlign   `json:"textAlign,omitempty"`
	Src         string             `json:"src,omitempty"`
	Width       float64            `json:"width,omitempty"`
	Height      float64            `json:"height,omitempty"`
	ShapeKind   domain.ShapeKind   `json:"shapeType,omitempty"`
	Stroke      domain.Color       `json:"stroke,omitempty"`
	StrokeWidth float64            `json:"strokeWidth,omitempty"`

	// Customization metadata the surface would drop on its own.
	ColorVariable     *domain.ColorSlot    `json:"colorVariable,omitempty"`
	Editable          bool                 `json:"editable"`
	IsCustomizable    bool                 `json:"isCustomizable"`
	CustomizableName  string               `json:"customizableName,omitempty"`
	AllowedProperties []domain.PropertyTag `json:"allowedProperties,omitempty"`
}

// Document is the persisted shape of a scene.
type Document struct {
	CanvasWidth     float64      `json:"canvasWidth"`
	CanvasHeight    float64      `json:"canvasHeight"`
	BackgroundColor domain.Color `json:"backgroundColor"`
	Objects         []object     `json:"objects"`
}

func toObject(el *domain.Element) object {
	o := object{
		ID:          el.ID,
		Type:        el.Type,
		X:           el.X,
		Y:           el.Y,
		Fill:        el.Fill,
		Opacity:     el.Opacity,
		Content:     el.Content,
		FontFamily:  el.FontFamily,
		FontSize:    el.FontSize,
		FontWeight:  el.FontWeight,
		FontStyle:   el.FontStyle,
		TextAlign:   el.TextAlign,
		Src:         el.Src,
		Width:       el.Width,
		Height:      el.Height,
		ShapeKind:   el.ShapeKind,
		Stroke:      el.Stroke,
		StrokeWidth: el.StrokeWidth,
	}
	// Re-attach what the surface serializer drops.
	o.Editable = el.Editable
	o.IsCustomizable = el.IsCustomizable
	o.CustomizableName = el.CustomizableName
	if el.ColorVariable != nil {
		slot := *el.ColorVariable
		o.ColorVariable = &slot
	}
	if el.AllowedProperties != nil {
		o.AllowedProperties = append([]domain.PropertyTag(nil), el.AllowedProperties...)
	}
	return o
}

func fromObject(o object) *domain.Element {
	el := &domain.Element{
		ID:          o.ID,
		Type:        o.Type,
		X:           o.X,
		Y:           o.Y,
		Fill:        o.Fill,
		Opacity:     o.Opacity,
		Content:     o.Content,
		FontFamily:  o.FontFamily,
		FontSize:    o.FontSize,
		FontWeight:  o.FontWeight,
		FontStyle:   o.FontStyle,
		TextAlign:   o.TextAlign,
		Src:         o.Src,
		Width:       o.Width,
		Height:      o.Height,
		ShapeKind:   o.ShapeKind,
		Stroke:      o.Stroke,
		StrokeWidth: o.StrokeWidth,

		Editable:         o.Editable,
		IsCustomizable:   o.IsCustomizable,
		CustomizableName: o.CustomizableName,
	}
	if o.ColorVariable != nil {
		slot := *o.ColorVariable
		el.ColorVariable = &slot
	}
	if o.AllowedProperties != nil {
		el.AllowedProperties = append([]domain.PropertyTag(nil), o.AllowedProperties...)
	}
	return el
}

// Serialize converts a scene into document bytes. The element order in
// Objects is the paint order (index 0 = bottom).
func Serialize(s *domain.Scene) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("serialize: nil scene")
	}
	doc := Document{
		CanvasWidth:     s.Width,
		CanvasHeight:    s.Height,
		BackgroundColor: s.Background,
		Objects:         make([]object, len(s.Elements)),
	}
	for i, el := range s.Elements {
		doc.Objects[i] = toObject(el)
	}
	return json.Marshal(doc)
}

// Deserialize parses document bytes into a scene, restoring canvas dimensions
// and background explicitly. Malformed input yields a *DeserializationError.
func Deserialize(data []byte) (*domain.Scene, error) {
	res, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(documentSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, &DeserializationError{Reason: "document is not valid JSON", Err: err}
	}
	if !res.Valid() {
		return nil, &DeserializationError{Reason: fmt.Sprintf("document violates schema: %v", res.Errors())}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &DeserializationError{Reason: "cannot decode document", Err: err}
	}
	s := domain.NewScene(doc.CanvasWidth, doc.CanvasHeight, doc.BackgroundColor)
	s.Elements = make([]*domain.Element, len(doc.Objects))
	for i, o := range doc.Objects {
		s.Elements[i] = fromObject(o)
	}
	if err := s.Validate(); err != nil {
		return nil, &DeserializationError{Reason: "document contains invalid elements", Err: err}
	}
	return s, nil
}
