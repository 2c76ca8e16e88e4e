package movement

import (
	"errors"
	"fmt"
	"math"

	"github.com/graalreborn/graalclient/internal/constants"
)

// ErrSuspiciousJump is returned when a server position update moves the player
// further than one update can. The update is dropped and state is kept.
var ErrSuspiciousJump = errors.New("suspicious coordinate jump")

// ValidateJump checks a position change against the per-axis limit (tiles).
func ValidateJump(fromX, fromY, toX, toY, limit float64) error {
	dx := toX - fromX
	dy := toY - fromY
	if math.Abs(dx) > limit || math.Abs(dy) > limit {
		return fmt.Errorf("%w: (%.2f,%.2f) -> (%.2f,%.2f), limit %.0f",
			ErrSuspiciousJump, fromX, fromY, toX, toY, limit)
	}
	return nil
}

// wrapAxis corrects a composed coordinate that was paired with a segment index
// one off from the local value. It returns the segment shift to apply and
// whether the corrected value is within limit of from.
//
// Example: the player walks from local 63 of segment 0 to local 0.5, but the
// update still names segment 0. Composed world is 0.5, a jump of -62.5; one
// segment forward gives 64.5, a step of +1.5.
func wrapAxis(from, to, limit float64) (shift int, ok bool) {
	d := to - from
	if math.Abs(d) <= limit {
		return 0, true
	}
	for _, s := range []int{1, -1} {
		if math.Abs(d+float64(s*constants.SegmentSize)) <= limit {
			return s, true
		}
	}
	return 0, false
}
