package gmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func townResolver(opts ...Option) *Resolver {
	r := NewResolver(opts...)
	r.Register("town.gmap", map[string]Segment{
		"town1.nw": {X: 0, Y: 0},
		"town2.nw": {X: 1, Y: 0},
	})
	return r
}

func TestResolve(t *testing.T) {
	r := townResolver()

	tests := []struct {
		name string
		x, y float64
		hint ScaleHint
		want string
		ok   bool
	}{
		{"tiles second segment", 70, 5, ScaleTiles, "town2.nw", true},
		{"pixels scaled to first segment", 5, 5 * 16, ScalePixels, "town1.nw", true},
		{"segment boundary", 64, 0, ScaleTiles, "town2.nw", true},
		{"just before boundary", 63.99, 63.99, ScaleTiles, "town1.nw", true},
		{"absent segment", 9*64 + 1, 9*64 + 1, ScaleTiles, "", false},
		{"negative coordinate", -1, 5, ScaleTiles, "", false},
		{"auto falls through to pixels", 1100, 10, ScaleAuto, "town2.nw", true},
		{"auto exhausts every scale", 18432, 18432, ScaleAuto, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := r.Resolve("town.gmap", tt.x, tt.y, tt.hint)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, res.Level)
		})
	}
}

func TestResolve_ReportsScale(t *testing.T) {
	r := townResolver()

	res, ok := r.Resolve("town.gmap", 1100, 10, ScaleAuto)
	require.True(t, ok)
	assert.Equal(t, ScalePixels, res.Scale)
	assert.Equal(t, Segment{X: 1, Y: 0}, res.Segment)
	assert.False(t, res.Fallback)
}

func TestResolveLevel(t *testing.T) {
	r := townResolver()

	level, ok := r.ResolveLevel("town.gmap", 70, 5)
	require.True(t, ok)
	assert.Equal(t, "town2.nw", level)

	_, ok = r.ResolveLevel("unknown.gmap", 70, 5)
	assert.False(t, ok)
}

func TestResolve_NamingConventions(t *testing.T) {
	tests := []struct {
		name  string
		level string
		seg   Segment
	}{
		{"concatenated row zero", "town3.nw", Segment{X: 3, Y: 0}},
		{"concatenated with row", "town3n2.nw", Segment{X: 3, Y: 2}},
		{"underscore", "town_4_1.nw", Segment{X: 4, Y: 1}},
		{"dash", "town-5-5.nw", Segment{X: 5, Y: 5}},
		{"space", "town 6_0.nw", Segment{X: 6, Y: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := townResolver(WithLevelExists(func(level string) bool {
				return level == tt.level
			}))

			x := float64(tt.seg.X*64 + 10)
			y := float64(tt.seg.Y*64 + 10)
			res, ok := r.Resolve("town.gmap", x, y, ScaleTiles)
			require.True(t, ok)
			assert.Equal(t, tt.level, res.Level)
			assert.True(t, res.Fallback)
		})
	}
}

func TestResolve_KnownLevelFallback(t *testing.T) {
	r := NewResolver()
	r.AddKnownLevel("world2n1.nw")

	level, ok := r.ResolveLevel("world.gmap", 2*64+1, 64+1)
	require.True(t, ok)
	assert.Equal(t, "world2n1.nw", level)
}

func TestRegisterStructure_FullReplace(t *testing.T) {
	r := townResolver()

	r.Register("town.gmap", map[string]Segment{
		"newtown.nw": {X: 0, Y: 0},
	})

	level, ok := r.ResolveLevel("town.gmap", 5, 5)
	require.True(t, ok)
	assert.Equal(t, "newtown.nw", level)

	_, ok = r.Resolve("town.gmap", 70, 5, ScaleTiles)
	assert.False(t, ok, "segment from the previous registration must not survive")

	s, ok := r.Structure("town.gmap")
	require.True(t, ok)
	assert.Len(t, s.Levels, 1)
}

func TestRegisterStructure_CopiesInput(t *testing.T) {
	levels := map[string]Segment{"a.nw": {X: 0, Y: 0}}
	r := NewResolver()
	r.Register("a.gmap", levels)

	levels["b.nw"] = Segment{X: 1, Y: 0}

	_, ok := r.Resolve("a.gmap", 70, 5, ScaleTiles)
	assert.False(t, ok)
}

func TestNeighbors(t *testing.T) {
	r := NewResolver()
	r.Register("w.gmap", map[string]Segment{
		"w00.nw": {X: 0, Y: 0},
		"w10.nw": {X: 1, Y: 0},
		"w01.nw": {X: 0, Y: 1},
		"w11.nw": {X: 1, Y: 1},
		"w22.nw": {X: 2, Y: 2},
	})

	got := r.Neighbors("w.gmap", Segment{X: 0, Y: 0})
	assert.ElementsMatch(t, []string{"w10.nw", "w01.nw", "w11.nw"}, got)

	got = r.Neighbors("w.gmap", Segment{X: 1, Y: 1})
	assert.ElementsMatch(t, []string{"w00.nw", "w10.nw", "w01.nw", "w22.nw"}, got)

	assert.Nil(t, r.Neighbors("missing.gmap", Segment{}))
}

func TestSegmentOf(t *testing.T) {
	r := townResolver()

	seg, ok := r.SegmentOf("town.gmap", "TOWN2.nw")
	require.True(t, ok)
	assert.Equal(t, Segment{X: 1, Y: 0}, seg)

	_, ok = r.SegmentOf("town.gmap", "other.nw")
	assert.False(t, ok)
}

func TestParseScaleHint(t *testing.T) {
	h, err := ParseScaleHint("")
	require.NoError(t, err)
	assert.Equal(t, ScaleAuto, h)

	h, err = ParseScaleHint(" Pixels ")
	require.NoError(t, err)
	assert.Equal(t, ScalePixels, h)

	_, err = ParseScaleHint("furlongs")
	assert.Error(t, err)
}
