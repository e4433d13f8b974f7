/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package palette resolves symbolic color slots against a concrete palette
// and propagates palette swaps across a scene. A template's look can be
// re-skinned wholesale without touching per-element data: elements bound to a
// slot get their literal fill recomputed, everything else is left alone.
package palette

import (
	"fmt"

	"plantilla/internal/domain"
)

// ResolutionError reports a color slot absent from a palette. Given the fixed
// five-slot invariant enforced at palette construction this is unreachable;
// it exists so the defect is loud rather than silent.
type ResolutionError struct {
	Slot domain.ColorSlot
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("color slot %q not present in palette", e.Slot)
}

// Resolve maps a slot to the palette's color. It is total over the five
// fixed slots; any other slot value returns a *ResolutionError.
func Resolve(slot domain.ColorSlot, pal domain.ColorPalette) (domain.Color, error) {
	c, ok := pal.SlotColor(slot)
	if !ok {
		return "", &ResolutionError{Slot: slot}
	}
	return c, nil
}

// MustResolve is Resolve for call sites where the slot is known valid.
// It panics on an unknown slot: that is a programming defect, not input.
func MustResolve(slot domain.ColorSlot, pal domain.ColorPalette) domain.Color {
	c, err := Resolve(slot, pal)
	if err != nil {
		panic(err)
	}
	return c
}

// Reapply recomputes the literal fill of every element carrying a color
// variable. Elements without a variable are untouched. The operation is
// idempotent: applying the same palette twice yields identical fills.
// It returns the number of fills rewritten; callers schedule a repaint when
// the count is non-zero.
func Reapply(scene *domain.Scene, pal domain.ColorPalette) int {
	if scene == nil {
		return 0
	}
	n := 0
	for _, el := range scene.Elements {
		if el.ColorVariable == nil {
			continue
		}
		el.Fill = MustResolve(*el.ColorVariable, pal)
		n++
	}
	return n
}

// DefaultPalettes returns the built-in palette set offered to admins with no
// saved palettes of their own.
func DefaultPalettes() []domain.SavedPalette {
	return []domain.SavedPalette{
		{
			ID:   "default-vibrant",
			Name: "Vibrante",
			Palette: domain.ColorPalette{
				Principal1:  "#667eea",
				Principal2:  "#764ba2",
				Secundario1: "#f093fb",
				Secundario2: "#4facfe",
				Secundario3: "#43e97b",
			},
		},
		{
			ID:   "default-food",
			Name: "Comida",
			Palette: domain.ColorPalette{
				Principal1:  "#FF6B35",
				Principal2:  "#004E89",
				Secundario1: "#F7931E",
				Secundario2: "#C1121F",
				Secundario3: "#FFFFFF",
			},
		},
		{
			ID:   "default-real-estate",
			Name: "Inmobiliaria",
			Palette: domain.ColorPalette{
				Principal1:  "#2C3E50",
				Principal2:  "#3498DB",
				Secundario1: "#E74C3C",
				Secundario2: "#F39C12",
				Secundario3: "#ECF0F1",
			},
		},
		{
			ID:   "default-fashion",
			Name: "Moda",
			Palette: domain.ColorPalette{
				Principal1:  "#000000",
				Principal2:  "#C4A77D",
				Secundario1: "#8B7355",
				Secundario2: "#D4AF37",
				Secundario3: "#FFFFFF",
			},
		},
	}
}

// Active picks the palette to use from an owner's saved set: the one matching
// activeID if present, otherwise the first, otherwise the first built-in
// default. The second return is false only when even the defaults are empty,
// which does not happen in practice.
func Active(saved []domain.SavedPalette, activeID string) (domain.ColorPalette, bool) {
	if len(saved) == 0 {
		saved = DefaultPalettes()
	}
	if activeID != "" {
		for _, sp := range saved {
			if sp.ID == activeID {
				return sp.Palette, true
			}
		}
	}
	if len(saved) > 0 {
		return saved[0].Palette, true
	}
	return domain.ColorPalette{}, false
}
