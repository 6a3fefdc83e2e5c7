package migration

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add orders table", "add_orders_table"},
		{"Add-Orders-Table", "add_orders_table"},
		{"add__orders__table", "add_orders_table"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"_leading", "leading"},
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

	t.Run("first migration is 000001", func(t *testing.T) {
		mf, err := CreateMigration(dir, "create orders", "orders and items")
		require.NoError(t, err)

		assert.Equal(t, "000001", mf.Version)
		assert.Equal(t, filepath.Join(dir, "000001_create_orders.up.sql"), mf.UpPath)
		assert.Equal(t, filepath.Join(dir, "000001_create_orders.down.sql"), mf.DownPath)

		up, err := os.ReadFile(mf.UpPath)
		require.NoError(t, err)
		assert.Contains(t, string(up), "-- Migration: create orders")
		assert.Contains(t, string(up), "-- orders and items")
	})

	t.Run("next migration continues the sequence", func(t *testing.T) {
		mf, err := CreateMigration(dir, "add remark", "")
		require.NoError(t, err)
		assert.Equal(t, "000002", mf.Version)

		down, err := os.ReadFile(mf.DownPath)
		require.NoError(t, err)
		assert.Contains(t, string(down), "-- Rollback: add remark")
	})

	t.Run("rejects names without usable characters", func(t *testing.T) {
		_, err := CreateMigration(dir, "!!!", "")
		assert.Error(t, err)
	})
}

func TestListMigrations(t *testing.T) {
	t.Run("sorted by version and only up files", func(t *testing.T) {
		fsys := fstest.MapFS{
			"000010_later.up.sql":   {},
			"000010_later.down.sql": {},
			"000002_second.up.sql":  {},
			"README.md":             {},
		}
		got, err := ListMigrations(fsys)
		require.NoError(t, err)
		assert.Equal(t, []string{"000002_second", "000010_later"}, got)
	})

	t.Run("missing directory is empty", func(t *testing.T) {
		got, err := ListMigrations(os.DirFS(filepath.Join(t.TempDir(), "missing")))
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestEmbeddedMigrations(t *testing.T) {
	got, err := ListMigrations(mustSub(t))
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "000001_create_orders", got[0])
}

func mustSub(t *testing.T) fs.FS {
	t.Helper()
	sub, err := fs.Sub(Embedded(), "sql")
	require.NoError(t, err)
	return sub
}
