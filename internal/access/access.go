/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package access derives, per element and per role, which properties are
// mutable and which interactions are permitted. Permission flags live on the
// elements; this layer translates them into the engine's live interaction
// state and must be reapplied after every scene load or reload.
package access

import (
	"log/slog"

	"plantilla/internal/domain"
	applog "plantilla/internal/log"
	"plantilla/internal/scene"
)

// Role is the editing role of the current user.
type Role string

const (
	// RoleAdmin is unrestricted: every element is selectable, movable,
	// resizable, rotatable, deletable and reorderable.
	RoleAdmin Role = "admin"
	// RoleClient may only touch customizable elements, within each
	// element's allowed property set.
	RoleClient Role = "client"
)

// StateFor derives the live interaction state of one element for a role.
//
// For clients: a non-customizable element is excluded from pick/selection
// entirely; a customizable one is always selectable, with movement and
// resizing gated by its allowed set. Rotation and skew are always locked for
// clients. Resize handles track the resize permission; the selection border
// stays on for feedback.
func StateFor(el *domain.Element, role Role) scene.InteractionState {
	if role == RoleAdmin {
		return scene.FullAccess()
	}
	if !el.IsCustomizable {
		return scene.Locked()
	}
	canMove := el.Allows(domain.PropPosition)
	canResize := el.Allows(domain.PropSize)
	canEditText := el.Type == domain.TypeText && el.Allows(domain.PropText)
	return scene.InteractionState{
		Selectable:    true,
		Evented:       true,
		LockMovementX: !canMove,
		LockMovementY: !canMove,
		LockScalingX:  !canResize,
		LockScalingY:  !canResize,
		LockRotation:  true,
		LockSkewingX:  true,
		LockSkewingY:  true,
		HasControls:   canResize,
		HasBorders:    true,
		TextEditable:  canEditText,
	}
}

// Apply re-derives and installs interaction state for every element in the
// engine. Call it whenever a scene is loaded or replaced: the flags stored on
// elements are inert data until translated into live state.
func Apply(e *scene.Engine, role Role) {
	l := applog.WithComponent("access")
	locked, customizable := 0, 0
	for _, el := range e.Scene().Elements {
		st := StateFor(el, role)
		e.SetState(el.ID, st)
		if role == RoleClient {
			if st.Interactive() {
				customizable++
			} else {
				locked++
			}
		}
	}
	if role == RoleClient {
		l.Debug("client restrictions applied",
			slog.Int("locked", locked), slog.Int("customizable", customizable))
	}
}

// CanDelete reports whether the role may remove elements, via the Delete key
// or programmatically. Deletion is admin-only regardless of per-element flags.
func CanDelete(role Role) bool { return role == RoleAdmin }

// CanReorder reports whether the role may restack elements.
func CanReorder(role Role) bool { return role == RoleAdmin }

// CanMutate reports whether the role may change the given property of the
// element. Admins may change anything; clients need the element to be
// customizable and the property to be in its allowed set.
func CanMutate(el *domain.Element, role Role, tag domain.PropertyTag) bool {
	if role == RoleAdmin {
		return true
	}
	if !el.IsCustomizable {
		return false
	}
	return el.Allows(tag)
}
