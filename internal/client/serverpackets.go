package client

import (
	"fmt"

	"github.com/graalreborn/graalclient/internal/gmap"
	"github.com/graalreborn/graalclient/internal/packet"
	"github.com/graalreborn/graalclient/internal/props"
)

// Warp is the destination of a PLAYERWARPED or PLAYERWARP2 packet.
// X and Y are level-local tiles.
type Warp struct {
	X, Y    float64
	Z       int
	Segment gmap.Segment
	Level   string
}

// ParsePlayerWarped decodes PLAYERWARPED: x*2, y*2, level.
func ParsePlayerWarped(payload []byte) (Warp, error) {
	r := packet.NewReader(payload)
	x, err := r.ReadGChar()
	if err != nil {
		return Warp{}, fmt.Errorf("parsing warp x: %w", err)
	}
	y, err := r.ReadGChar()
	if err != nil {
		return Warp{}, fmt.Errorf("parsing warp y: %w", err)
	}
	level, err := r.ReadRawString()
	if err != nil {
		return Warp{}, fmt.Errorf("parsing warp level: %w", err)
	}
	return Warp{X: float64(x) / 2, Y: float64(y) / 2, Level: level}, nil
}

// ParsePlayerWarp2 decodes PLAYERWARP2: x*2, y*2, z+50, segment x, segment y, level.
func ParsePlayerWarp2(payload []byte) (Warp, error) {
	r := packet.NewReader(payload)
	var v [5]int
	for i := range v {
		b, err := r.ReadGChar()
		if err != nil {
			return Warp{}, fmt.Errorf("parsing warp2 field %d: %w", i, err)
		}
		v[i] = b
	}
	level, err := r.ReadRawString()
	if err != nil {
		return Warp{}, fmt.Errorf("parsing warp2 level: %w", err)
	}
	return Warp{
		X:       float64(v[0]) / 2,
		Y:       float64(v[1]) / 2,
		Z:       v[2] - 50,
		Segment: gmap.Segment{X: v[3], Y: v[4]},
		Level:   level,
	}, nil
}

// ParseText decodes packets whose payload is one raw string: LEVELNAME,
// DISCMESSAGE, WARPFAILED. A raw string delivered as RAWDATA may hold newlines.
func ParseText(payload []byte) (string, error) {
	return packet.NewReader(payload).ReadRawString()
}

// ChatMessage is a TOALL or PRIVATEMESSAGE from another player.
type ChatMessage struct {
	From int
	Text string
}

// ParseChat decodes TOALL and PRIVATEMESSAGE: sender id, text.
func ParseChat(payload []byte) (ChatMessage, error) {
	r := packet.NewReader(payload)
	from, err := r.ReadGShort()
	if err != nil {
		return ChatMessage{}, fmt.Errorf("parsing chat sender: %w", err)
	}
	text, err := r.ReadRawString()
	if err != nil {
		return ChatMessage{}, fmt.Errorf("parsing chat text: %w", err)
	}
	return ChatMessage{From: from, Text: text}, nil
}

// OtherPlayer is an OTHERPLPROPS update.
type OtherPlayer struct {
	ID    int
	Props []props.Property
}

// ParseOtherPlayerProps decodes OTHERPLPROPS: player id, property list.
// On a truncated list the properties decoded so far are returned with the error.
func ParseOtherPlayerProps(payload []byte) (OtherPlayer, error) {
	r := packet.NewReader(payload)
	id, err := r.ReadGShort()
	if err != nil {
		return OtherPlayer{}, fmt.Errorf("parsing player id: %w", err)
	}
	list, err := props.DecodeFrom(r)
	return OtherPlayer{ID: id, Props: list}, err
}

// File is a FILE packet: modification time, name and contents.
type File struct {
	ModTime int64
	Name    string
	Data    []byte
}

// ParseFile decodes FILE. Data aliases payload.
func ParseFile(payload []byte) (File, error) {
	r := packet.NewReader(payload)
	mod, err := r.ReadGInt5()
	if err != nil {
		return File{}, fmt.Errorf("parsing file time: %w", err)
	}
	name, err := r.ReadLengthString()
	if err != nil {
		return File{}, fmt.Errorf("parsing file name: %w", err)
	}
	data, _ := r.ReadBytes(r.Remaining())
	return File{ModTime: mod, Name: name, Data: data}, nil
}

// NewFilePayload builds a FILE payload. Used by tools and tests that play the server side.
func NewFilePayload(f File) ([]byte, error) {
	w := packet.NewWriter(len(f.Data) + len(f.Name) + 8)
	w.WriteGInt5(f.ModTime)
	w.WriteLengthString(f.Name)
	w.WriteBytes(f.Data)
	if err := w.Err(); err != nil {
		return nil, fmt.Errorf("building file payload: %w", err)
	}
	return w.Bytes(), nil
}
