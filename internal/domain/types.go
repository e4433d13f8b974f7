/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the core data model for the template editor: drawable
// elements, the scene document, and the color palette types. The model is
// plain data; behavior that maintains invariants lives in element.go.

// ElementType tags the element variant.
type ElementType string

const (
	TypeText  ElementType = "text"
	TypeImage ElementType = "image"
	TypeShape ElementType = "shape"
)

// ShapeKind distinguishes shape variants.
type ShapeKind string

const (
	ShapeRectangle ShapeKind = "rectangle"
	ShapeCircle    ShapeKind = "circle"
)

// Color is a CSS-style color literal (e.g. "#667eea" or "#fff").
type Color string

// ColorSlot names one of the five fixed palette slots an element's fill may
// be bound to instead of a literal color.
type ColorSlot string

const (
	SlotPrincipal1  ColorSlot = "principal1"
	SlotPrincipal2  ColorSlot = "principal2"
	SlotSecundario1 ColorSlot = "secundario1"
	SlotSecundario2 ColorSlot = "secundario2"
	SlotSecundario3 ColorSlot = "secundario3"
)

// Slots lists all palette slots in canonical order.
var Slots = []ColorSlot{SlotPrincipal1, SlotPrincipal2, SlotSecundario1, SlotSecundario2, SlotSecundario3}

// PropertyTag names one client-editable property of a customizable element.
type PropertyTag string

const (
	PropPosition   PropertyTag = "position"
	PropText       PropertyTag = "text"
	PropColor      PropertyTag = "color"
	PropSize       PropertyTag = "size"
	PropImage      PropertyTag = "image"
	PropFontFamily PropertyTag = "fontFamily"
	PropFontWeight PropertyTag = "fontWeight"
	PropFontStyle  PropertyTag = "fontStyle"
)

// FontFamily is the fixed set of supported fonts.
type FontFamily string

const (
	FontArial     FontFamily = "Arial"
	FontHelvetica FontFamily = "Helvetica"
	FontTimes     FontFamily = "Times New Roman"
	FontGeorgia   FontFamily = "Georgia"
	FontCourier   FontFamily = "Courier New"
	FontVerdana   FontFamily = "Verdana"
)

// FontWeight and FontStyle are restricted two-value enums.
type FontWeight string

const (
	WeightNormal FontWeight = "normal"
	WeightBold   FontWeight = "bold"
)

type FontStyle string

const (
	StyleNormal FontStyle = "normal"
	StyleItalic FontStyle = "italic"
)

// TextAlign is the horizontal alignment of a text element.
type TextAlign string

const (
	AlignLeft   TextAlign = "left"
	AlignCenter TextAlign = "center"
	AlignRight  TextAlign = "right"
)

// Element is one drawable unit on the canvas. The Type field selects the
// variant; variant-specific fields are zero for other variants.
//
// When ColorVariable is non-nil the literal Fill is derived from the active
// palette and must always equal the resolved slot value; the literal persists
// only as a fallback for rendering without a palette.
type Element struct {
	ID      string      `json:"id"`
	Type    ElementType `json:"type"`
	X       float64     `json:"x"`
	Y       float64     `json:"y"`
	Fill    Color       `json:"fill,omitempty"`
	Opacity float64     `json:"opacity"`

	// Legacy single-flag interaction gate, superseded by the customization
	// metadata below but still round-tripped for older documents.
	Editable bool `json:"editable"`

	ColorVariable *ColorSlot `json:"colorVariable,omitempty"`

	// Text variant.
	Content    string     `json:"content,omitempty"`
	FontFamily FontFamily `json:"fontFamily,omitempty"`
	FontSize   float64    `json:"fontSize,omitempty"`
	FontWeight FontWeight `json:"fontWeight,omitempty"`
	FontStyle  FontStyle  `json:"fontStyle,omitempty"`
	TextAlign  TextAlign  `json:"textAlign,omitempty"`

	// Image variant. Src is a URL or embedded data URI; Width/Height are the
	// post-scale bounding box in design-space units.
	Src string `json:"src,omitempty"`

	// Image and shape variants.
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`

	// Shape variant.
	ShapeKind   ShapeKind `json:"shapeType,omitempty"`
	Stroke      Color     `json:"stroke,omitempty"`
	StrokeWidth float64   `json:"strokeWidth,omitempty"`

	// Customization metadata: what a client role may touch.
	IsCustomizable    bool          `json:"isCustomizable"`
	CustomizableName  string        `json:"customizableName,omitempty"`
	AllowedProperties []PropertyTag `json:"allowedProperties,omitempty"`
}

// ColorPalette assigns a concrete color to each of the five fixed slots.
// It is an immutable record; swapping palettes is always wholesale.
type ColorPalette struct {
	Principal1  Color `json:"principal1"`
	Principal2  Color `json:"principal2"`
	Secundario1 Color `json:"secundario1"`
	Secundario2 Color `json:"secundario2"`
	Secundario3 Color `json:"secundario3"`
}

// SavedPalette is a named, owner-scoped palette record.
type SavedPalette struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	OwnerID   string       `json:"ownerId,omitempty"`
	Palette   ColorPalette `json:"palette"`
	CreatedAt string       `json:"createdAt,omitempty"`
}

// Scene is the full in-memory canvas document: an ordered element list
// (index 0 = bottom of the paint order), a background color, and canvas
// dimensions in design-space pixels (independent of on-screen scale).
type Scene struct {
	Width      float64    `json:"canvasWidth"`
	Height     float64    `json:"canvasHeight"`
	Background Color      `json:"backgroundColor"`
	Elements   []*Element `json:"objects"`
}
