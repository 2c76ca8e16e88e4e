package gmap

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/sasha-s/go-deadlock"

	"github.com/graalreborn/graalclient/internal/constants"
)

// ScaleHint tells the resolver which unit world coordinates are expressed in.
type ScaleHint string

const (
	ScaleAuto   ScaleHint = "auto"
	ScaleTiles  ScaleHint = "tiles"
	ScalePixels ScaleHint = "pixels"
	ScaleDouble ScaleHint = "double"
	ScaleHalf   ScaleHint = "half"
)

// Factor returns the multiplier that converts a coordinate in this unit to tiles.
func (h ScaleHint) Factor() (float64, bool) {
	switch h {
	case ScaleTiles:
		return 1.0, true
	case ScalePixels:
		return 1.0 / constants.PixelsPerTile, true
	case ScaleDouble:
		return 2.0, true
	case ScaleHalf:
		return 0.5, true
	default:
		return 0, false
	}
}

// ParseScaleHint parses a config or command line value. Empty means auto.
func ParseScaleHint(s string) (ScaleHint, error) {
	h := ScaleHint(strings.ToLower(strings.TrimSpace(s)))
	if h == "" || h == ScaleAuto {
		return ScaleAuto, nil
	}
	if _, ok := h.Factor(); !ok {
		return "", fmt.Errorf("unknown scale hint %q", s)
	}
	return h, nil
}

// trialOrder is the scale order tried when no hint pins one.
var trialOrder = []ScaleHint{ScaleTiles, ScalePixels, ScaleDouble, ScaleHalf}

// Resolution is a resolved level and where it was found.
type Resolution struct {
	Level    string
	Segment  Segment
	Scale    ScaleHint
	Fallback bool // name came from a naming convention, not the segment map
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLevelExists sets the check used to validate convention-generated level
// names, typically a lookup in the local level file cache.
func WithLevelExists(fn func(level string) bool) Option {
	return func(r *Resolver) { r.levelExists = fn }
}

// WithLogger sets the resolver's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// Resolver holds the registered GMAP structures. Safe for concurrent use.
type Resolver struct {
	mu          deadlock.RWMutex
	structures  map[string]*Structure
	known       map[string]struct{} // level names seen outside any structure
	levelExists func(string) bool
	logger      *slog.Logger
}

// NewResolver creates an empty resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		structures: make(map[string]*Structure),
		known:      make(map[string]struct{}),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "gmap")
	return r
}

// RegisterStructure installs s under its name, replacing any previous
// registration of that name entirely.
func (r *Resolver) RegisterStructure(s *Structure) {
	levels := make(map[string]Segment, len(s.Levels))
	for name, seg := range s.Levels {
		levels[name] = seg
	}
	cp := &Structure{Name: s.Name, Width: s.Width, Height: s.Height, Levels: levels}

	r.mu.Lock()
	r.structures[key(s.Name)] = cp
	r.mu.Unlock()

	r.logger.Debug("gmap registered", "gmap", s.Name, "levels", len(levels))
}

// Register installs a structure built from a level -> segment map.
func (r *Resolver) Register(name string, levels map[string]Segment) {
	s := &Structure{Name: name, Levels: levels}
	for _, seg := range levels {
		s.Width = max(s.Width, seg.X+1)
		s.Height = max(s.Height, seg.Y+1)
	}
	r.RegisterStructure(s)
}

// AddKnownLevel records a level that exists on the server, so naming
// conventions may resolve to it.
func (r *Resolver) AddKnownLevel(level string) {
	r.mu.Lock()
	r.known[key(level)] = struct{}{}
	r.mu.Unlock()
}

// Structure returns a copy of the registered structure.
func (r *Resolver) Structure(name string) (*Structure, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.structures[key(name)]
	if !ok {
		return nil, false
	}
	levels := make(map[string]Segment, len(s.Levels))
	for n, seg := range s.Levels {
		levels[n] = seg
	}
	return &Structure{Name: s.Name, Width: s.Width, Height: s.Height, Levels: levels}, true
}

// SegmentOf returns the segment of level within gmap.
func (r *Resolver) SegmentOf(gmap, level string) (Segment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.structures[key(gmap)]
	if !ok {
		return Segment{}, false
	}
	for name, seg := range s.Levels {
		if strings.EqualFold(name, level) {
			return seg, true
		}
	}
	return Segment{}, false
}

// ResolveLevel resolves world coordinates trying every scale.
func (r *Resolver) ResolveLevel(gmap string, x, y float64) (string, bool) {
	res, ok := r.Resolve(gmap, x, y, ScaleAuto)
	return res.Level, ok
}

// Resolve finds the level that contains world coordinate (x, y).
//
// Scales are tried in order tiles, pixels, double, half unless hint pins one.
// For each scale the segment map is consulted first, then the naming
// conventions. ok is false when nothing matched.
func (r *Resolver) Resolve(gmap string, x, y float64, hint ScaleHint) (Resolution, bool) {
	scales := trialOrder
	if _, pinned := hint.Factor(); pinned {
		scales = []ScaleHint{hint}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	s := r.structures[key(gmap)]
	for _, sc := range scales {
		f, _ := sc.Factor()
		seg, ok := segmentFor(x*f, y*f)
		if !ok {
			continue
		}
		if s != nil {
			if name, found := s.LevelAt(seg); found {
				return Resolution{Level: name, Segment: seg, Scale: sc}, true
			}
		}
		if name, found := r.byConvention(gmap, seg); found {
			r.logger.Debug("level resolved by naming convention", "gmap", gmap, "segment", seg, "level", name)
			return Resolution{Level: name, Segment: seg, Scale: sc, Fallback: true}, true
		}
	}
	return Resolution{}, false
}

// Neighbors returns the registered levels around seg, excluding seg itself.
func (r *Resolver) Neighbors(gmap string, seg Segment) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.structures[key(gmap)]
	if !ok {
		return nil
	}

	var out []string
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if name, found := s.LevelAt(Segment{X: seg.X + dx, Y: seg.Y + dy}); found {
				out = append(out, name)
			}
		}
	}
	return out
}

func segmentFor(tx, ty float64) (Segment, bool) {
	if tx < 0 || ty < 0 || math.IsNaN(tx) || math.IsNaN(ty) {
		return Segment{}, false
	}
	return Segment{
		X: int(math.Floor(tx / constants.SegmentSize)),
		Y: int(math.Floor(ty / constants.SegmentSize)),
	}, true
}

// ConventionNames returns the candidate level names for seg on gmap in trial order.
func ConventionNames(gmap string, seg Segment) []string {
	base := strings.TrimSuffix(gmap, ".gmap")
	if len(base) == len(gmap) {
		base = strings.TrimSuffix(gmap, ".GMAP")
	}

	first := fmt.Sprintf("%s%d", base, seg.X)
	if seg.Y != 0 {
		first += fmt.Sprintf("n%d", seg.Y)
	}
	return []string{
		first + ".nw",
		fmt.Sprintf("%s_%d_%d.nw", base, seg.X, seg.Y),
		fmt.Sprintf("%s-%d-%d.nw", base, seg.X, seg.Y),
		fmt.Sprintf("%s %d_%d.nw", base, seg.X, seg.Y),
	}
}

// byConvention must be called with r.mu held.
func (r *Resolver) byConvention(gmap string, seg Segment) (string, bool) {
	for _, name := range ConventionNames(gmap, seg) {
		if _, ok := r.known[key(name)]; ok {
			return name, true
		}
		if r.levelExists != nil && r.levelExists(name) {
			return name, true
		}
	}
	return "", false
}

func key(name string) string {
	return strings.ToLower(name)
}
