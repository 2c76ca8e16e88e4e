package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"github.com/graalreborn/graalclient/internal/constants"
	"github.com/graalreborn/graalclient/internal/packet"
	"github.com/graalreborn/graalclient/internal/props"
)

// ErrMalformedFrame reports a truncated or unterminated packet. The caller drops
// the rest of the buffer and resynchronizes on the next frame.
var ErrMalformedFrame = errors.New("malformed frame")

// Message is one packet of the decompressed stream.
// Payload excludes the id byte and the terminator.
type Message struct {
	ID      byte
	Payload []byte
}

// Codec splits and joins the newline-framed packet stream of one direction.
type Codec struct {
	rawDataID byte
	// property-list packet id -> bytes of fixed prefix before the list
	propertyLists map[byte]int
}

// ServerCodec returns the codec for the server -> client stream.
func ServerCodec() *Codec {
	return &Codec{
		rawDataID: constants.PLORawData,
		propertyLists: map[byte]int{
			constants.PLOPlayerProps:  0,
			constants.PLOOtherPlProps: 2,
		},
	}
}

// ClientCodec returns the codec for the client -> server stream.
func ClientCodec() *Codec {
	return &Codec{
		rawDataID: constants.PLIRawData,
		propertyLists: map[byte]int{
			constants.PLIPlayerProps: 0,
		},
	}
}

// Split splits a decompressed buffer into packets.
//
// Returned payloads share memory with data. On ErrMalformedFrame the packets
// decoded before the bad tail are still returned.
func (c *Codec) Split(data []byte) ([]Message, error) {
	var (
		msgs []Message
		pos  int
		raw  = -1 // pending RAWDATA length
	)

	for pos < len(data) {
		if raw >= 0 {
			n := raw
			raw = -1
			if n == 0 {
				continue
			}
			if pos+n > len(data) {
				return msgs, fmt.Errorf("%w: raw packet of %d bytes, %d left", ErrMalformedFrame, n, len(data)-pos)
			}
			chunk := data[pos : pos+n]
			pos += n
			chunk = bytes.TrimSuffix(chunk, []byte{constants.Terminator})
			if len(chunk) == 0 {
				continue
			}
			msgs = append(msgs, Message{ID: byte(packet.DecodeByte(chunk[0])), Payload: chunk[1:]})
			continue
		}

		if data[pos] == constants.Terminator {
			pos++
			continue
		}

		id := byte(packet.DecodeByte(data[pos]))
		body := pos + 1

		if id == c.rawDataID {
			r := packet.NewReader(data[body:])
			n, err := r.ReadGInt3()
			if err != nil {
				return msgs, fmt.Errorf("%w: raw data length: %v", ErrMalformedFrame, err)
			}
			nl := bytes.IndexByte(data[body:], constants.Terminator)
			if nl < 0 {
				return msgs, fmt.Errorf("%w: unterminated raw data announcement", ErrMalformedFrame)
			}
			raw = n
			pos = body + nl + 1
			continue
		}

		end := body
		if prefix, ok := c.propertyLists[id]; ok {
			e, err := propertyListEnd(data, body+prefix)
			if err != nil {
				return msgs, err
			}
			end = e
		}

		nl := bytes.IndexByte(data[end:], constants.Terminator)
		if nl < 0 {
			return msgs, fmt.Errorf("%w: packet %d: %d bytes without terminator", ErrMalformedFrame, id, len(data)-pos)
		}
		msgs = append(msgs, Message{ID: id, Payload: data[body : end+nl]})
		pos = end + nl + 1
	}

	return msgs, nil
}

// propertyListEnd lets the property decoder find where a property list stops.
// A newline inside a length-prefixed string is content, not the terminator.
func propertyListEnd(data []byte, start int) (int, error) {
	if start > len(data) {
		return 0, fmt.Errorf("%w: property list prefix truncated", ErrMalformedFrame)
	}
	r := packet.NewReader(data)
	_ = r.Seek(start)
	if _, err := props.DecodeFrom(r); err != nil {
		if errors.Is(err, props.ErrOverrun) {
			return 0, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		return 0, err
	}
	if r.Position() < len(data) && data[r.Position()] != constants.Terminator {
		slog.Debug("property list stopped before terminator, skipping tail",
			"offset", r.Position(), "tail", r.RemainingInPacket())
	}
	return r.Position(), nil
}

// Join serializes one packet. Payloads that contain the terminator are
// preceded by a RAWDATA announcement so the peer reads them by length.
func (c *Codec) Join(id byte, payload []byte) ([]byte, error) {
	return c.AppendJoin(nil, id, payload)
}

// AppendJoin appends the serialized packet to dst.
func (c *Codec) AppendJoin(dst []byte, id byte, payload []byte) ([]byte, error) {
	if id > constants.MaxPacketID {
		return dst, fmt.Errorf("packet id %d exceeds %d", id, constants.MaxPacketID)
	}

	if bytes.IndexByte(payload, constants.Terminator) >= 0 {
		w := packet.NewWriter(4)
		w.WriteGChar(int(c.rawDataID))
		w.WriteGInt3(len(payload) + 2)
		if err := w.Err(); err != nil {
			return dst, fmt.Errorf("raw data announcement: %w", err)
		}
		dst = append(dst, w.Bytes()...)
		dst = append(dst, constants.Terminator)
	}

	dst = append(dst, id+constants.ByteOffset)
	dst = append(dst, payload...)
	dst = append(dst, constants.Terminator)
	return dst, nil
}
