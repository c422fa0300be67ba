package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/fxavier/restaurant-pro-api-sub000/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add printers table", "add_printers_table"},
		{"Add-Printers-Table", "add_printers_table"},
		{"ADD_PRINTERS_TABLE", "add_printers_table"},
		{"add__printers__table", "add_printers_table"},
		{"Add Stations 123", "add_stations_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration_NumbersSequentially(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "add printer zones", "Zones for printers")
	require.NoError(t, err)
	assert.Equal(t, "000001", first.Version)
	assert.Equal(t, "000001_add_printer_zones.up.sql", filepath.Base(first.UpPath))
	assert.Equal(t, "000001_add_printer_zones.down.sql", filepath.Base(first.DownPath))

	second, err := CreateMigration(dir, "Add-Tips", "")
	require.NoError(t, err)
	assert.Equal(t, "000002", second.Version)

	up, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "add printer zones")
	assert.Contains(t, string(up), "Zones for printers")
	assert.Contains(t, string(up), "tenant_id")

	down, err := os.ReadFile(first.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "Rollback")
}

func TestCreateMigration_CreatesDirectory(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "nested", "migrations")

	_, err := CreateMigration(nested, "test", "test migration")
	require.NoError(t, err)

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrationsFS(t *testing.T) {
	fsys := fstest.MapFS{
		"000003_add_tips.up.sql":       {Data: []byte("--")},
		"000001_init_schema.up.sql":    {Data: []byte("--")},
		"000001_init_schema.down.sql":  {Data: []byte("--")},
		"000002_tenant_rls.up.sql":     {Data: []byte("--")},
		"000002_tenant_rls.down.sql":   {Data: []byte("--")},
		"README.md":                    {Data: []byte("docs")},
		"notes_without_version.up.sql": {Data: []byte("--")},
		"subdir.up.sql/readme":         {Data: []byte("x")},
	}

	list, err := ListMigrationsFS(fsys)
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, uint(1), list[0].Version)
	assert.Equal(t, "init_schema", list[0].Name)
	assert.True(t, list[0].HasDown)
	assert.Equal(t, "000002_tenant_rls", list[1].BaseName())
	assert.False(t, list[2].HasDown)
}

func TestListMigrationsFS_ConflictingVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"000001_a.up.sql": {Data: []byte("--")},
		"000001_b.up.sql": {Data: []byte("--")},
	}
	_, err := ListMigrationsFS(fsys)
	assert.ErrorContains(t, err, "version 1")
}

func TestListMigrations_NonexistentDirectory(t *testing.T) {
	list, err := ListMigrations("/nonexistent/path/to/migrations")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	list, err := ListMigrationsFS(migrations.FS)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(list), 2)

	for i, m := range list {
		assert.Equal(t, uint(i+1), m.Version, "versions are contiguous")
		assert.True(t, m.HasDown, "%s has a rollback", m.BaseName())
	}

	schema, err := migrations.FS.ReadFile(list[0].BaseName() + upSuffix)
	require.NoError(t, err)
	for _, constraint := range []string{
		"uq_payments_tenant_key",
		"uq_cash_movements_tenant_payment",
		"uq_print_jobs_tenant_dedupe",
		"uq_cash_sessions_open_register",
	} {
		assert.True(t, strings.Contains(string(schema), constraint), constraint)
	}
}
