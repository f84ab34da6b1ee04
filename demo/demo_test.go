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

package demo

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nyneos/tabula/core/config"
	"github.com/nyneos/tabula/core/permissions"
)

func TestExposuresAreDeterministic(t *testing.T) {
	a, b := Exposures(50), Exposures(50)
	require.Len(t, a, 50)
	for i := range a {
		assert.True(t, a[i].Equal(b[i]), "row %d differs", i)
	}
	assert.Equal(t, "EXP-00001", a[0].ID(ExposureIDField))
	assert.Nil(t, a[5].Value("business_unit"), "every sixth row has no business unit")
}

func testApp(t *testing.T) *App {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "tabula.db")
	cfg.Permissions.Subjects = map[string]permissions.Capabilities{"guest": {}}
	app, err := Open(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	return app
}

func TestSeedAndLoad(t *testing.T) {
	app := testApp(t)
	ctx := context.Background()
	require.NoError(t, app.SeedAll(ctx, 40))
	require.NoError(t, app.SeedAll(ctx, 40), "seeding again replaces rows")

	table, err := app.Manager.LoadTable(ctx, "exposures", ExposureIDField)
	require.NoError(t, err)
	assert.Equal(t, 40, table.Length())

	row, ok := table.Row("EXP-00002")
	require.True(t, ok)
	assert.Equal(t, "Trading", row.Value("business_unit"))
	assert.IsType(t, float64(0), row.Value("total_open_amount"))
	assert.IsType(t, false, row.Value("hedged"))
}

func TestExport(t *testing.T) {
	app := testApp(t)
	ctx := context.Background()
	require.NoError(t, app.SeedAll(ctx, 12))

	var buf bytes.Buffer
	err := app.Export(ctx, &buf, "exposures", "columns=exposure_header_id,currency&filter:currency=USD", "csv", "anyone")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{"Exposure Header Id,Currency", "EXP-00001,USD", "EXP-00008,USD"}, lines)

	err = app.Export(ctx, &buf, "exposures", "", "csv", "guest")
	assert.ErrorIs(t, err, permissions.ErrNotPermitted)

	err = app.Export(ctx, &buf, "missing", "", "csv", "anyone")
	assert.Error(t, err)
}

func TestServerWiring(t *testing.T) {
	app := testApp(t)
	srv, err := app.Server()
	require.NoError(t, err)
	assert.NotNil(t, srv.Handler())
}
