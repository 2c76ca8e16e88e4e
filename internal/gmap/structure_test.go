package gmap

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const townGMap = `GRMAP001
WIDTH 3
HEIGHT 2
LEVELNAMES
"town1.nw","town2.nw",""
"","town5.nw","town6.nw"
LEVELNAMESEND
MAPIMG town.png
LOADFULLMAP
`

func TestParseStructure(t *testing.T) {
	s, err := ParseStructure("town.gmap", strings.NewReader(townGMap))
	require.NoError(t, err)

	assert.Equal(t, "town.gmap", s.Name)
	assert.Equal(t, 3, s.Width)
	assert.Equal(t, 2, s.Height)
	assert.Equal(t, map[string]Segment{
		"town1.nw": {X: 0, Y: 0},
		"town2.nw": {X: 1, Y: 0},
		"town5.nw": {X: 1, Y: 1},
		"town6.nw": {X: 2, Y: 1},
	}, s.Levels)

	level, ok := s.LevelAt(Segment{X: 2, Y: 1})
	require.True(t, ok)
	assert.Equal(t, "town6.nw", level)

	_, ok = s.LevelAt(Segment{X: 0, Y: 1})
	assert.False(t, ok)
}

func TestParseStructure_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"wrong magic", "GRMAP002\nWIDTH 1\n"},
		{"bad width", "GRMAP001\nWIDTH x\n"},
		{"missing width value", "GRMAP001\nWIDTH\n"},
		{"unterminated names", "GRMAP001\nLEVELNAMES\n\"a.nw\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStructure("bad.gmap", strings.NewReader(tt.input))
			assert.ErrorIs(t, err, ErrInvalidStructure)
		})
	}
}

func TestLoadStructure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "town.gmap")
	require.NoError(t, os.WriteFile(path, []byte(townGMap), 0o644))

	s, err := LoadStructure(path)
	require.NoError(t, err)
	assert.Equal(t, "town.gmap", s.Name)
	assert.Len(t, s.Levels, 4)

	_, err = LoadStructure(filepath.Join(dir, "missing.gmap"))
	assert.Error(t, err)
}

func TestIsGMap(t *testing.T) {
	assert.True(t, IsGMap("town.gmap"))
	assert.True(t, IsGMap("TOWN.GMAP"))
	assert.False(t, IsGMap("town1.nw"))
}
