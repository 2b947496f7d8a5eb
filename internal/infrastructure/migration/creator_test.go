package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/erp/returns/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add return photos", "add_return_photos"},
		{"Add-Write-Off-Index", "add_write_off_index"},
		{"outbox__seller__idx", "outbox_seller_idx"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "special_chars"},
		{"_leading_and_trailing_", "leading_and_trailing"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "init returns", "base schema")
	require.NoError(t, err)
	assert.Equal(t, "000001", first.Version)
	assert.Equal(t, filepath.Join(dir, "000001_init_returns.up.sql"), first.UpPath)

	second, err := CreateMigration(dir, "add outbox index", "")
	require.NoError(t, err)
	assert.Equal(t, "000002", second.Version)

	up, err := os.ReadFile(second.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Migration: add outbox index")

	down, err := os.ReadFile(second.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "(Rollback)")

	t.Run("rejects names without usable characters", func(t *testing.T) {
		_, err := CreateMigration(dir, "!!!", "")
		assert.Error(t, err)
	})

	t.Run("creates a missing directory", func(t *testing.T) {
		nested := filepath.Join(dir, "nested", "migrations")
		_, err := CreateMigration(nested, "x", "")
		require.NoError(t, err)
		info, err := os.Stat(nested)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestListMigrations(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{
		"000002_add_index.up.sql",
		"000010_late.up.sql",
		"000010_late.down.sql",
		"000001_init.up.sql",
		"000001_init.down.sql",
		"README.md",
		"notes.up.sql",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("-- test"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "000003_dir.up.sql"), 0o755))

	list, err := ListMigrations(dir)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "000001_init", list[0].ID())
	assert.Equal(t, "000002_add_index", list[1].ID())
	assert.False(t, list[1].HasDown)
	assert.Equal(t, 10, list[2].Sequence)
	assert.True(t, list[2].HasDown)

	t.Run("missing directory is empty", func(t *testing.T) {
		list, err := ListMigrations(filepath.Join(dir, "nope"))
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := migrations.FS.ReadDir(".")
	require.NoError(t, err)

	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name()] = true
	}
	assert.True(t, names["000001_init_returns.up.sql"])
	assert.True(t, names["000001_init_returns.down.sql"])
}
