package crypto

import (
	"errors"
	"fmt"

	"github.com/sasha-s/go-deadlock"
)

// ErrPositionRegressed is returned when a transform reports a keystream position
// behind the current one or beyond the bytes it was given. The peers are out of
// step and the session cannot recover in-band.
var ErrPositionRegressed = errors.New("cipher position out of step")

// Direction selects one of the two independent cipher states.
type Direction int

const (
	Inbound Direction = iota
	Outbound
)

func (d Direction) String() string {
	switch d {
	case Inbound:
		return "inbound"
	case Outbound:
		return "outbound"
	default:
		return "unknown"
	}
}

// State is the keystream state of one direction.
type State struct {
	Key      byte
	Position uint64
}

type direction struct {
	state   State
	enabled bool // false until the first packet of the connection passed in the clear
}

// Session owns the inbound and outbound cipher states of one connection.
//
//   - The first packet in each direction passes unencrypted.
//   - Position advances by exactly the number of bytes the transform consumed.
//   - Reset re-keys both directions at position 0 once login succeeds.
//
// Encrypt, Decrypt and Reset are atomic with respect to each other.
type Session struct {
	mu        deadlock.Mutex
	transform Transform
	dirs      [2]direction
}

// NewSession creates a session whose both directions start under key at position 0.
func NewSession(t Transform, key byte) *Session {
	if t == nil {
		t = Passthrough
	}
	s := &Session{transform: t}
	s.dirs[Inbound].state.Key = key
	s.dirs[Outbound].state.Key = key
	return s
}

// Encrypt transforms an outbound packet in place.
func (s *Session) Encrypt(data []byte) error {
	return s.process(Outbound, data)
}

// Decrypt transforms an inbound packet in place.
func (s *Session) Decrypt(data []byte) error {
	return s.process(Inbound, data)
}

func (s *Session) process(dir Direction, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := &s.dirs[dir]
	if !d.enabled {
		d.enabled = true
		return nil
	}

	pc := packetCipher{transform: s.transform, state: d.state}
	if err := pc.apply(data); err != nil {
		return fmt.Errorf("%s: %w", dir, err)
	}
	d.state = pc.state
	return nil
}

// Reset re-keys both directions at position 0. Called when login succeeds;
// every packet after it is encrypted.
func (s *Session) Reset(key byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.dirs {
		s.dirs[i] = direction{state: State{Key: key}, enabled: true}
	}
}

// State returns a copy of the state of one direction.
func (s *Session) State(dir Direction) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirs[dir].state
}

// IsEnabled reports whether dir has passed its clear-text first packet.
func (s *Session) IsEnabled(dir Direction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirs[dir].enabled
}

// packetCipher is a short-lived cipher for one packet, seeded with the running
// position. The caller writes the advanced state back only on success.
type packetCipher struct {
	transform Transform
	state     State
}

func (pc *packetCipher) apply(data []byte) error {
	start := pc.state.Position
	next := pc.transform.Apply(pc.state.Key, start, data)
	if next < start || next-start > uint64(len(data)) {
		return fmt.Errorf("%w: position %d -> %d for %d bytes", ErrPositionRegressed, start, next, len(data))
	}
	pc.state.Position = next
	return nil
}
