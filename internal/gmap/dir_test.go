package gmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "world.gmap", "GRMAP001\nWIDTH 2\nHEIGHT 1\nLEVELNAMES\n\"w_a.nw\",\"w_b.nw\"\nLEVELNAMESEND\n")
	writeFile(t, dir, "cave_0_1.nw", "GLEVNW01\n")
	writeFile(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.gmap"), 0o755))

	r := NewResolver()
	n, err := r.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	level, ok := r.ResolveLevel("world.gmap", 70, 5)
	require.True(t, ok)
	assert.Equal(t, "w_b.nw", level)

	level, ok = r.ResolveLevel("cave.gmap", 10, 70)
	require.True(t, ok, "known level found by naming convention")
	assert.Equal(t, "cave_0_1.nw", level)
}

func TestLoadDir_Missing(t *testing.T) {
	r := NewResolver()
	n, err := r.LoadDir(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLoadDir_InvalidGMap(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.gmap", "NOTAMAP\n")

	_, err := NewResolver().LoadDir(dir)
	assert.ErrorIs(t, err, ErrInvalidStructure)
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "town-1-0.nw", "")

	exists := FileExists(dir)
	assert.True(t, exists("town-1-0.nw"))
	assert.False(t, exists("town-2-0.nw"))
	assert.False(t, exists("../town-1-0.nw"))
	assert.False(t, exists(""))

	r := NewResolver(WithLevelExists(exists))
	level, ok := r.ResolveLevel("town.gmap", 64, 0)
	require.True(t, ok)
	assert.Equal(t, "town-1-0.nw", level)
}
