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

package editing

import (
	"errors"
	"fmt"
)

// ErrCommitInFlight is returned when a commit is requested for a row whose
// previous commit has not resolved yet.
var ErrCommitInFlight = errors.New("commit already in flight")

// ValidationGap is returned when an operation is rejected before any call to
// a collaborator, e.g. a missing row id or an empty id list.
type ValidationGap struct {
	Message string
}

func (e *ValidationGap) Error() string { return e.Message }

// UpdateFailure is returned when the write collaborator fails or refuses a
// change. The edit session stays open with its draft.
type UpdateFailure struct {
	RowID   string
	Message string // collaborator message, when one was given
	Err     error  // transport error, nil when the collaborator refused
}

func (e *UpdateFailure) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("update %s failed: %s: %v", e.RowID, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("update %s failed: %v", e.RowID, e.Err)
	case e.Message != "":
		return fmt.Sprintf("update %s failed: %s", e.RowID, e.Message)
	default:
		return fmt.Sprintf("update %s failed", e.RowID)
	}
}

func (e *UpdateFailure) Unwrap() error { return e.Err }

// ErrValidation creates a ValidationGap with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationGap {
	return &ValidationGap{Message: fmt.Sprintf(format, args...)}
}

// IsValidationGap reports whether err is or wraps a ValidationGap.
func IsValidationGap(err error) bool {
	var v *ValidationGap
	return errors.As(err, &v)
}

// IsUpdateFailure reports whether err is or wraps an UpdateFailure.
func IsUpdateFailure(err error) bool {
	var u *UpdateFailure
	return errors.As(err, &u)
}
