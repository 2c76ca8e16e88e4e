// Package movement reconciles locally predicted player movement with the
// authoritative position updates sent by the server.
package movement

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/sasha-s/go-deadlock"

	"github.com/graalreborn/graalclient/internal/constants"
	"github.com/graalreborn/graalclient/internal/gmap"
	"github.com/graalreborn/graalclient/internal/props"
)

// State is the prediction state of the coordinator.
type State int

const (
	Idle State = iota
	Predicting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Predicting:
		return "Predicting"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Outcome describes what happened to a server position update.
type Outcome int

const (
	// NoPosition: the update carried no coordinate properties.
	NoPosition Outcome = iota
	// Applied: the update was validated and became the current position.
	Applied
	// Wrapped: applied after correcting a stale segment index.
	Wrapped
	// Ignored: a prediction is in flight, the local position wins.
	Ignored
	// Rejected: the jump failed validation, state is unchanged.
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case NoPosition:
		return "NoPosition"
	case Applied:
		return "Applied"
	case Wrapped:
		return "Wrapped"
	case Ignored:
		return "Ignored"
	case Rejected:
		return "Rejected"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Snapshot is a copy of the coordinate state.
type Snapshot struct {
	State          State
	GMap           string // empty when the player is on a single level
	Level          string
	X, Y           float64 // world tiles
	Segment        gmap.Segment
	HasPosition    bool
	PredictedX     float64
	PredictedY     float64
	PredictedLevel string
	PredictedAt    time.Time
}

// LocalMove is the outcome of a predicted local move.
type LocalMove struct {
	Level          string  // predicted level
	LocalX, LocalY float64 // level-local tiles
	Segment        gmap.Segment
	OnGMap         bool
}

// anchor is the last position accepted from the server.
type anchor struct {
	x, y   float64
	seg    gmap.Segment
	level  string
	hasPos bool
}

type prediction struct {
	x, y  float64
	level string
	at    time.Time
	from  anchor
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithTimeout sets how long a prediction suppresses server updates.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.timeout = d }
}

// WithMaxJump sets the per-axis limit (tiles) of one server update.
func WithMaxJump(tiles float64) Option {
	return func(c *Coordinator) { c.maxJump = tiles }
}

// WithPrefetcher sets the collaborator notified of neighbouring levels when
// the player enters a new segment.
func WithPrefetcher(p gmap.Prefetcher) Option {
	return func(c *Coordinator) { c.prefetcher = p }
}

// WithScale pins the scale used to resolve world coordinates.
func WithScale(h gmap.ScaleHint) Option {
	return func(c *Coordinator) { c.scale = h }
}

// WithLogger sets the coordinator's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// Coordinator owns the player's coordinate state. It is shared by the inbound
// and outbound activities of a session and is safe for concurrent use.
//
// Lock order: c.mu may be held while the resolver and prefetcher take their
// own locks. Neither calls back into the coordinator.
type Coordinator struct {
	resolver   *gmap.Resolver
	prefetcher gmap.Prefetcher
	now        func() time.Time
	timeout    time.Duration
	maxJump    float64
	scale      gmap.ScaleHint
	logger     *slog.Logger

	mu       deadlock.Mutex
	gmapName string
	level    string
	x, y     float64
	seg      gmap.Segment
	hasPos   bool
	pred     *prediction
	held     string // level name received while predicting, applied on expiry
}

// NewCoordinator creates a coordinator in the Idle state.
func NewCoordinator(resolver *gmap.Resolver, opts ...Option) *Coordinator {
	if resolver == nil {
		resolver = gmap.NewResolver()
	}
	c := &Coordinator{
		resolver: resolver,
		now:      time.Now,
		timeout:  constants.PredictionTimeout,
		maxJump:  constants.MaxCoordinateJump,
		scale:    gmap.ScaleTiles,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "movement")
	return c
}

// OnLocalMove records a move issued by the local player to world tile
// coordinate (x, y) and enters Predicting. It returns the level the player is
// predicted to be on.
func (c *Coordinator) OnLocalMove(x, y float64) string {
	return c.Predict(x, y).Level
}

// Predict is OnLocalMove returning the level-local position and segment of
// the prediction as well, taken under the same lock.
func (c *Coordinator) Predict(x, y float64) LocalMove {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expireLocked()

	from := anchor{x: c.x, y: c.y, seg: c.seg, level: c.level, hasPos: c.hasPos}
	if c.pred != nil {
		from = c.pred.from
	}

	prevSeg, hadPos := c.seg, c.hasPos
	c.x, c.y = x, y
	c.hasPos = true
	c.relocateLocked()

	c.pred = &prediction{x: x, y: y, level: c.level, at: c.now(), from: from}
	c.held = ""

	if !hadPos || prevSeg != c.seg {
		c.prefetchLocked()
	}

	c.logger.Debug("local move", "x", x, "y", y, "level", c.level)

	ox, oy := c.originLocked(c.seg)
	return LocalMove{
		Level:   c.level,
		LocalX:  x - ox,
		LocalY:  y - oy,
		Segment: c.seg,
		OnGMap:  c.gmapName != "",
	}
}

// OnServerProperties applies the coordinate and level properties of a server
// player-properties packet.
//
// While a prediction is in flight the coordinates are ignored. Otherwise they
// are validated against the last accepted position; a rejected update returns
// ErrSuspiciousJump and leaves the state untouched.
func (c *Coordinator) OnServerProperties(list []props.Property) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expireLocked()

	if v, ok := props.Find(list, props.CurLevel); ok {
		c.levelNameLocked(v.Str)
	}

	u := extract(list)
	if !u.any() {
		return NoPosition, nil
	}

	if c.pred != nil {
		c.logger.Debug("server position ignored while predicting",
			"predicted_x", c.pred.x, "predicted_y", c.pred.y)
		return Ignored, nil
	}

	seg := c.seg
	if u.hasSegX {
		seg.X = u.segX
	}
	if u.hasSegY {
		seg.Y = u.segY
	}

	var localX, localY float64
	if c.hasPos {
		ox, oy := c.originLocked(c.seg)
		localX, localY = c.x-ox, c.y-oy
	}
	if u.hasX {
		localX = u.x
	}
	if u.hasY {
		localY = u.y
	}
	originX, originY := c.originLocked(seg)
	wx, wy := originX+localX, originY+localY

	outcome := Applied
	if c.hasPos {
		if err := ValidateJump(c.x, c.y, wx, wy, c.maxJump); err != nil {
			fixed := false
			if c.gmapName != "" {
				// an axis whose segment came with the update is not corrected
				sx, okX := wrapAxis(c.x, wx, c.maxJump)
				sy, okY := wrapAxis(c.y, wy, c.maxJump)
				okX = okX && (sx == 0 || !u.hasSegX)
				okY = okY && (sy == 0 || !u.hasSegY)
				if okX && okY {
					wx += float64(sx * constants.SegmentSize)
					wy += float64(sy * constants.SegmentSize)
					fixed = true
					outcome = Wrapped
					c.logger.Debug("segment wrap corrected", "shift_x", sx, "shift_y", sy)
				}
			}
			if !fixed {
				c.logger.Warn("server position rejected", "err", err)
				return Rejected, err
			}
		}
	}

	prevSeg, hadPos := c.seg, c.hasPos
	c.x, c.y = wx, wy
	c.hasPos = true
	c.relocateLocked()

	if !hadPos || prevSeg != c.seg {
		c.prefetchLocked()
	}
	return outcome, nil
}

// OnServerLevelName handles a level name sent by the server and reports
// whether it was accepted.
//
// While predicting only the predicted level confirms the move and returns the
// coordinator to Idle. Any other name is held and applied if the prediction
// expires unconfirmed.
func (c *Coordinator) OnServerLevelName(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expireLocked()
	return c.levelNameLocked(name)
}

func (c *Coordinator) levelNameLocked(name string) bool {
	if c.pred != nil {
		if strings.EqualFold(name, c.pred.level) {
			c.logger.Debug("prediction confirmed", "level", name)
			c.pred = nil
			c.held = ""
			c.level = name
			return true
		}
		c.logger.Debug("level name held while predicting", "level", name, "predicted", c.pred.level)
		c.held = name
		return false
	}

	c.applyLevelLocked(name)
	return true
}

// applyLevelLocked switches to a gmap or a plain level.
func (c *Coordinator) applyLevelLocked(name string) {
	if gmap.IsGMap(name) {
		if !strings.EqualFold(c.gmapName, name) {
			c.gmapName = name
			c.hasPos = false
		}
		if c.hasPos {
			c.relocateLocked()
		}
		return
	}

	if c.gmapName != "" {
		if seg, ok := c.resolver.SegmentOf(c.gmapName, name); ok {
			c.level = name
			c.seg = seg
			return
		}
		c.gmapName = ""
		c.hasPos = false
	}
	if !strings.EqualFold(c.level, name) {
		c.hasPos = false
	}
	c.level = name
	c.seg = gmap.Segment{}
}

// Warp moves the player without validation, as the server does for a
// teleport. level may be a gmap; x and y are level-local tiles inside seg.
// Any prediction is discarded.
func (c *Coordinator) Warp(level string, seg gmap.Segment, x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pred = nil
	c.held = ""

	if gmap.IsGMap(level) {
		c.gmapName = level
		c.seg = seg
		c.x = float64(seg.X*constants.SegmentSize) + x
		c.y = float64(seg.Y*constants.SegmentSize) + y
	} else {
		c.gmapName = ""
		c.level = level
		c.seg = gmap.Segment{}
		c.x, c.y = x, y
	}
	c.hasPos = true
	c.relocateLocked()
	c.prefetchLocked()

	c.logger.Debug("warped", "level", c.level, "gmap", c.gmapName, "x", c.x, "y", c.y)
}

// State returns the current prediction state, expiring a stale prediction.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expireLocked()
	if c.pred != nil {
		return Predicting
	}
	return Idle
}

// Snapshot returns a copy of the coordinate state. While predicting the
// position is the predicted one.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expireLocked()
	s := Snapshot{
		State:       Idle,
		GMap:        c.gmapName,
		Level:       c.level,
		X:           c.x,
		Y:           c.y,
		Segment:     c.seg,
		HasPosition: c.hasPos,
	}
	if c.pred != nil {
		s.State = Predicting
		s.PredictedX = c.pred.x
		s.PredictedY = c.pred.y
		s.PredictedLevel = c.pred.level
		s.PredictedAt = c.pred.at
	}
	return s
}

// LocalPosition returns the level-local position of the player in tiles.
func (c *Coordinator) LocalPosition() (x, y float64, seg gmap.Segment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ox, oy := c.originLocked(c.seg)
	return c.x - ox, c.y - oy, c.seg
}

func (c *Coordinator) expireLocked() {
	if c.pred == nil || c.now().Sub(c.pred.at) < c.timeout {
		return
	}
	c.logger.Debug("prediction expired", "level", c.pred.level, "age", c.now().Sub(c.pred.at))

	// back to the last server-accepted position
	from, prevSeg := c.pred.from, c.seg
	c.pred = nil
	c.x, c.y = from.x, from.y
	c.seg, c.level, c.hasPos = from.seg, from.level, from.hasPos
	if c.hasPos && prevSeg != c.seg {
		c.prefetchLocked()
	}
	if held := c.held; held != "" {
		c.held = ""
		c.applyLevelLocked(held)
	}
}

func (c *Coordinator) originLocked(seg gmap.Segment) (float64, float64) {
	if c.gmapName == "" {
		return 0, 0
	}
	return float64(seg.X * constants.SegmentSize), float64(seg.Y * constants.SegmentSize)
}

// relocateLocked recomputes segment and level from the world position.
// On an unresolvable segment the last known level is kept.
func (c *Coordinator) relocateLocked() {
	if c.gmapName == "" {
		return
	}
	c.seg = gmap.Segment{
		X: int(math.Floor(c.x / constants.SegmentSize)),
		Y: int(math.Floor(c.y / constants.SegmentSize)),
	}
	res, ok := c.resolver.Resolve(c.gmapName, c.x, c.y, c.scale)
	if !ok {
		c.logger.Debug("segment unresolved, keeping last level",
			"gmap", c.gmapName, "x", c.x, "y", c.y, "level", c.level)
		return
	}
	c.level = res.Level
}

func (c *Coordinator) prefetchLocked() {
	if c.prefetcher == nil || c.gmapName == "" {
		return
	}
	if names := c.resolver.Neighbors(c.gmapName, c.seg); len(names) > 0 {
		c.prefetcher.Prefetch(names)
	}
}

// update is the coordinate content of one properties packet, in tiles.
type update struct {
	x, y             float64
	hasX, hasY       bool
	segX, segY       int
	hasSegX, hasSegY bool
}

func (u update) any() bool {
	return u.hasX || u.hasY || u.hasSegX || u.hasSegY
}

// extract reads the position properties. Pixel coordinates take priority
// over half-tile ones.
func extract(list []props.Property) update {
	var u update
	for _, p := range list {
		switch p.ID {
		case props.X:
			if !u.hasX {
				u.x, u.hasX = props.Tiles(p.ID, p.Value)
			}
		case props.Y:
			if !u.hasY {
				u.y, u.hasY = props.Tiles(p.ID, p.Value)
			}
		case props.GMapLevelX:
			u.segX, u.hasSegX = int(p.Value.Int), true
		case props.GMapLevelY:
			u.segY, u.hasSegY = int(p.Value.Int), true
		}
	}
	if v, ok := props.Find(list, props.X2); ok {
		u.x, u.hasX = props.Tiles(props.X2, v)
	}
	if v, ok := props.Find(list, props.Y2); ok {
		u.y, u.hasY = props.Tiles(props.Y2, v)
	}
	return u
}
