package client

import (
	"bytes"
	"fmt"

	"github.com/graalreborn/graalclient/internal/constants"
	"github.com/graalreborn/graalclient/internal/gmap"
	"github.com/graalreborn/graalclient/internal/packet"
	"github.com/graalreborn/graalclient/internal/props"
	"github.com/graalreborn/graalclient/internal/protocol"
)

// Login is the first packet of a connection. Its id byte is the client type.
type Login struct {
	ClientType int
	Key        byte
	Version    string
	Account    string
	Password   string
	Identity   string
}

// build runs fn on a pooled writer and returns a copy of the payload.
func build(id byte, fn func(w *packet.Writer)) (protocol.Message, error) {
	w := packet.Get()
	defer w.Put()

	fn(w)
	if err := w.Err(); err != nil {
		return protocol.Message{}, fmt.Errorf("building packet %d: %w", id, err)
	}
	return protocol.Message{ID: id, Payload: bytes.Clone(w.Bytes())}, nil
}

// NewLogin builds the login packet.
func NewLogin(l Login) (protocol.Message, error) {
	if len(l.Version) != constants.ProtocolVersionSize {
		return protocol.Message{}, fmt.Errorf("building login: version %q must be %d bytes", l.Version, constants.ProtocolVersionSize)
	}
	if l.ClientType < 0 || l.ClientType > constants.MaxPacketID {
		return protocol.Message{}, fmt.Errorf("building login: client type %d out of range", l.ClientType)
	}
	return build(byte(l.ClientType), func(w *packet.Writer) {
		w.WriteGChar(int(l.Key))
		w.WriteFixedString(l.Version)
		w.WriteLengthString(l.Account)
		w.WriteLengthString(l.Password)
		w.WriteLengthString(l.Identity)
	})
}

// ParseLogin decodes a login packet.
func ParseLogin(msg protocol.Message) (Login, error) {
	r := packet.NewReader(msg.Payload)
	l := Login{ClientType: int(msg.ID)}

	key, err := r.ReadGChar()
	if err != nil {
		return l, fmt.Errorf("parsing login key: %w", err)
	}
	l.Key = byte(key)
	if l.Version, err = r.ReadFixedString(constants.ProtocolVersionSize); err != nil {
		return l, fmt.Errorf("parsing login version: %w", err)
	}
	if l.Account, err = r.ReadLengthString(); err != nil {
		return l, fmt.Errorf("parsing login account: %w", err)
	}
	if l.Password, err = r.ReadLengthString(); err != nil {
		return l, fmt.Errorf("parsing login password: %w", err)
	}
	if r.Remaining() > 0 {
		if l.Identity, err = r.ReadLengthString(); err != nil {
			return l, fmt.Errorf("parsing login identity: %w", err)
		}
	}
	return l, nil
}

// NewPlayerProps builds a property update for the local player.
func NewPlayerProps(list []props.Property) (protocol.Message, error) {
	var encErr error
	msg, err := build(constants.PLIPlayerProps, func(w *packet.Writer) {
		encErr = props.EncodeTo(w, list)
	})
	if encErr != nil {
		return protocol.Message{}, encErr
	}
	return msg, err
}

// NewMove builds the position update for level-local tile coordinates.
// seg is nil when the player is not on a gmap.
func NewMove(x, y float64, seg *gmap.Segment) (protocol.Message, error) {
	vx, err := props.Coordinate(props.X2, x)
	if err != nil {
		return protocol.Message{}, err
	}
	vy, err := props.Coordinate(props.Y2, y)
	if err != nil {
		return protocol.Message{}, err
	}

	list := []props.Property{
		{ID: props.X2, Value: vx},
		{ID: props.Y2, Value: vy},
	}
	if seg != nil {
		list = append(list,
			props.Property{ID: props.GMapLevelX, Value: props.UInt8(seg.X)},
			props.Property{ID: props.GMapLevelY, Value: props.UInt8(seg.Y)},
		)
	}
	return NewPlayerProps(list)
}

// NewLevelWarp asks the server to move the player to level at tile (x, y).
func NewLevelWarp(x, y float64, level string) (protocol.Message, error) {
	return build(constants.PLILevelWarp, func(w *packet.Writer) {
		w.WriteGChar(int(x * 2))
		w.WriteGChar(int(y * 2))
		w.WriteRawString(level)
	})
}

// NewToAll builds a message to all players.
func NewToAll(text string) (protocol.Message, error) {
	return build(constants.PLIToAll, func(w *packet.Writer) {
		w.WriteRawString(text)
	})
}

// NewPrivateMessage builds a private message to the given player ids.
func NewPrivateMessage(to []int, text string) (protocol.Message, error) {
	return build(constants.PLIPrivateMessage, func(w *packet.Writer) {
		w.WriteGShort(len(to))
		for _, id := range to {
			w.WriteGShort(id)
		}
		w.WriteRawString(text)
	})
}

// NewWantFile requests a file by name.
func NewWantFile(name string) (protocol.Message, error) {
	return build(constants.PLIWantFile, func(w *packet.Writer) {
		w.WriteRawString(name)
	})
}

// NewAdjacentLevel asks for a neighbouring level unless the local copy,
// modified at modTime (unix seconds), is current.
func NewAdjacentLevel(modTime int64, level string) (protocol.Message, error) {
	return build(constants.PLIAdjacentLevel, func(w *packet.Writer) {
		w.WriteGInt5(modTime)
		w.WriteRawString(level)
	})
}

// NewMapInfo announces the gmap the client is displaying.
func NewMapInfo(gmapName string) (protocol.Message, error) {
	return build(constants.PLIMapInfo, func(w *packet.Writer) {
		w.WriteRawString(gmapName)
	})
}

// NewLanguage sets the client language.
func NewLanguage(lang string) (protocol.Message, error) {
	return build(constants.PLILanguage, func(w *packet.Writer) {
		w.WriteRawString(lang)
	})
}
