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

package permissions

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheck(t *testing.T) {
	caps := Capabilities{CanEdit: true}

	assert.NoError(t, caps.Check(ActionEdit))
	err := caps.Check(ActionApprove)
	assert.True(t, errors.Is(err, ErrNotPermitted))
	assert.Contains(t, err.Error(), "approve")
	assert.False(t, caps.Allows(Action("unknown")))
}

func TestPresets(t *testing.T) {
	for _, a := range []Action{ActionEdit, ActionApprove, ActionReject, ActionDelete, ActionExport} {
		assert.True(t, All().Allows(a), a)
	}
	ro := ReadOnly()
	assert.True(t, ro.Allows(ActionExport))
	assert.False(t, ro.Allows(ActionEdit))
}

func TestStaticSource(t *testing.T) {
	src := Static{
		Default:  ReadOnly(),
		Subjects: map[string]Capabilities{"treasury": All()},
	}
	assert.True(t, src.Capabilities("treasury").CanApprove)
	assert.False(t, src.Capabilities("guest").CanApprove)
}
