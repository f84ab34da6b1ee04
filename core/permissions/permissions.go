/*
SPDX-License-Identifier: Apache-2.0

Copyright 2024 The Tabula Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package permissions gates engine operations behind capability flags
// supplied by an external permission source.
package permissions

import (
	"errors"
	"fmt"
)

// Action is an operation that requires a capability.
type Action string

const (
	ActionEdit    Action = "edit"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionDelete  Action = "delete"
	ActionExport  Action = "export"
)

// ErrNotPermitted is returned, wrapped, when an action is refused.
var ErrNotPermitted = errors.New("not permitted")

// Capabilities are the flags granted to a caller.
type Capabilities struct {
	CanEdit    bool `yaml:"can_edit" json:"can_edit"`
	CanApprove bool `yaml:"can_approve" json:"can_approve"`
	CanReject  bool `yaml:"can_reject" json:"can_reject"`
	CanDelete  bool `yaml:"can_delete" json:"can_delete"`
	CanExport  bool `yaml:"can_export" json:"can_export"`
}

// All grants every capability.
func All() Capabilities {
	return Capabilities{CanEdit: true, CanApprove: true, CanReject: true, CanDelete: true, CanExport: true}
}

// ReadOnly grants only export.
func ReadOnly() Capabilities {
	return Capabilities{CanExport: true}
}

// Allows reports whether the capabilities permit action.
func (c Capabilities) Allows(action Action) bool {
	switch action {
	case ActionEdit:
		return c.CanEdit
	case ActionApprove:
		return c.CanApprove
	case ActionReject:
		return c.CanReject
	case ActionDelete:
		return c.CanDelete
	case ActionExport:
		return c.CanExport
	default:
		return false
	}
}

// Check returns an error wrapping ErrNotPermitted when action is refused.
func (c Capabilities) Check(action Action) error {
	if c.Allows(action) {
		return nil
	}
	return fmt.Errorf("%s: %w", action, ErrNotPermitted)
}

// Source supplies capabilities, e.g. per user or per screen.
type Source interface {
	Capabilities(subject string) Capabilities
}

// Static is a Source that grants the same capabilities to every subject,
// with optional per-subject overrides.
type Static struct {
	Default  Capabilities
	Subjects map[string]Capabilities
}

// Capabilities returns the override for subject, or the default.
func (s Static) Capabilities(subject string) Capabilities {
	if c, ok := s.Subjects[subject]; ok {
		return c
	}
	return s.Default
}
