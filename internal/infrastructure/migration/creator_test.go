package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMigration(t *testing.T) {
	t.Run("creates an up and down pair", func(t *testing.T) {
		dir := t.TempDir()

		mf, err := CreateMigration(dir, "add entitlement table", "entitlement rows per account and book")
		require.NoError(t, err)

		assert.Equal(t, "add entitlement table", mf.Name)
		assert.Len(t, mf.Version, 14)
		assert.True(t, strings.HasSuffix(mf.UpPath, "_add_entitlement_table.up.sql"))
		assert.True(t, strings.HasSuffix(mf.DownPath, "_add_entitlement_table.down.sql"))

		up, err := os.ReadFile(mf.UpPath)
		require.NoError(t, err)
		assert.Contains(t, string(up), "-- Migration: add entitlement table")
		assert.Contains(t, string(up), "-- Description: entitlement rows per account and book")

		down, err := os.ReadFile(mf.DownPath)
		require.NoError(t, err)
		assert.Contains(t, string(down), "(Rollback)")
		assert.Contains(t, string(down), "Rollback for entitlement rows per account and book")
	})

	t.Run("creates the directory when missing", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "migrations")

		mf, err := CreateMigration(dir, "init", "initial schema")
		require.NoError(t, err)

		_, err = os.Stat(mf.UpPath)
		assert.NoError(t, err)
	})
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "AddOrders", "addorders"},
		{"spaces to underscores", "add orders table", "add_orders_table"},
		{"collapses separators", "add -- orders__table", "add_orders_table"},
		{"drops punctuation", "add orders!!", "add_orders"},
		{"trims trailing separator", "add orders ", "add_orders"},
		{"keeps digits", "v2 schema", "v2_schema"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeName(tt.in))
		})
	}
}

func TestListMigrations(t *testing.T) {
	t.Run("lists pairs once by base name", func(t *testing.T) {
		dir := t.TempDir()

		for _, name := range []string{
			"20250412093000_init_schema.up.sql",
			"20250412093000_init_schema.down.sql",
			"20250501120000_add_failure_reason.up.sql",
			"20250501120000_add_failure_reason.down.sql",
			"README.md",
		} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("--"), 0644))
		}

		migrations, err := ListMigrations(dir)
		require.NoError(t, err)

		assert.Equal(t, []string{
			"20250412093000_init_schema",
			"20250501120000_add_failure_reason",
		}, migrations)
	})

	t.Run("missing directory is empty", func(t *testing.T) {
		migrations, err := ListMigrations(filepath.Join(t.TempDir(), "absent"))
		require.NoError(t, err)
		assert.Empty(t, migrations)
	})
}
