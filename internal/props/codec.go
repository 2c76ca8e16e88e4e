package props

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/graalreborn/graalclient/internal/constants"
	"github.com/graalreborn/graalclient/internal/packet"
)

// ErrOverrun is returned when a known property needs more bytes than the packet holds.
// Decoding of the rest of that packet is abandoned; the session is unaffected.
var ErrOverrun = errors.New("property decode overrun")

// Unknown-property recovery limits.
const (
	// MaxUnknownRun consecutive unknown ids abort the property loop.
	MaxUnknownRun = 2

	// FlagIDThreshold: unknown ids at or above it are treated as zero-width flags.
	FlagIDThreshold = 120

	// MaxUnframedString is the longest unframed string the recovery will skip.
	MaxUnframedString = 64
)

// Decode decodes a property-list payload. It stops at the packet terminator,
// at the end of data, or when the unknown-id recovery gives up.
func Decode(data []byte) ([]Property, error) {
	return DecodeFrom(packet.NewReader(data))
}

// DecodeFrom decodes properties starting at the reader's cursor.
//
// On return the cursor sits on the terminator (not consumed), at the end of
// data, or at the first byte of an abandoned run of unknown ids. On ErrOverrun
// the cursor is rewound to the start of the truncated property.
func DecodeFrom(r *packet.Reader) ([]Property, error) {
	var (
		list     []Property
		run      int
		runStart int
	)

	for r.Remaining() > 0 {
		if b, _ := r.PeekRaw(); b == constants.Terminator {
			break
		}

		start := r.Position()
		raw, _ := r.ReadGChar()
		id := ID(raw)

		spec, ok := Lookup(id)
		if !ok {
			if run == 0 {
				runStart = start
			}
			run++
			if run >= MaxUnknownRun {
				slog.Debug("abandoning property list after unknown ids",
					"ids", run, "offset", runStart)
				_ = r.Seek(runStart)
				break
			}
			skipUnknown(r, id)
			continue
		}

		val, err := decodeValue(r, spec)
		if err != nil {
			_ = r.Seek(start)
			return list, fmt.Errorf("%w: %s at offset %d: %v", ErrOverrun, spec.Name, start, err)
		}
		list = append(list, Property{ID: id, Value: val})
		run = 0
	}

	return list, nil
}

// skipUnknown applies the lossy recovery for an id missing from the table.
// It never steps over the packet terminator.
func skipUnknown(r *packet.Reader, id ID) {
	left := r.RemainingInPacket()
	if next, ok := r.PeekRaw(); ok && next != constants.Terminator {
		n := packet.DecodeByte(next)
		if n >= 1 && n <= MaxUnframedString && n+1 <= left {
			slog.Debug("unknown property skipped as string", "id", uint8(id), "len", n)
			_ = r.Skip(n + 1)
			return
		}
	}

	if id >= FlagIDThreshold {
		slog.Debug("unknown property treated as flag", "id", uint8(id))
		return
	}

	if left > 0 {
		slog.Debug("unknown property skipped one byte", "id", uint8(id))
		_ = r.Skip(1)
	}
}

func decodeValue(r *packet.Reader, s Spec) (Value, error) {
	switch s.Encoding {
	case EncByte:
		v, err := r.ReadGChar()
		return UInt8(v), err
	case EncShort:
		v, err := r.ReadShort()
		return UInt16(v), err
	case EncGShort:
		v, err := r.ReadGShort()
		return Short14(v), err
	case EncGInt3:
		v, err := r.ReadGInt3()
		return Int21(v), err
	case EncGInt5:
		v, err := r.ReadGInt5()
		return Int35(v), err
	case EncLengthString:
		v, err := r.ReadLengthString()
		return String(v), err
	case EncHeadImage:
		v, err := r.ReadHeadImage()
		return String(v), err
	case EncPowerImage:
		p, img, err := r.ReadPowerImage(s.Size)
		return PowerImage(p, img), err
	case EncFixedBytes:
		return readByteArray(r, s.Size)
	case EncCountedBytes:
		n, err := r.ReadGChar()
		if err != nil {
			return Value{}, err
		}
		return readByteArray(r, n)
	case EncAttachNPC:
		if _, err := r.ReadGChar(); err != nil {
			return Value{}, err
		}
		v, err := r.ReadGInt3()
		return UInt32(v), err
	case EncEmpty:
		return UInt8(0), nil
	default:
		return Value{}, fmt.Errorf("no decoder for encoding %d", s.Encoding)
	}
}

func readByteArray(r *packet.Reader, n int) (Value, error) {
	out := make([]byte, n)
	for i := range out {
		v, err := r.ReadGChar()
		if err != nil {
			return Value{}, err
		}
		out[i] = byte(v)
	}
	return ByteArray(out), nil
}

// Encode serializes a property list. Every value must match its table kind.
func Encode(list []Property) ([]byte, error) {
	w := packet.NewWriter(16 * len(list))
	if err := EncodeTo(w, list); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// EncodeTo appends a property list to w.
func EncodeTo(w *packet.Writer, list []Property) error {
	for _, p := range list {
		spec, ok := Lookup(p.ID)
		if !ok {
			return fmt.Errorf("encoding property %d: not in table", uint8(p.ID))
		}
		if p.Value.Kind != spec.Kind() {
			return fmt.Errorf("encoding property %s: value kind %s, want %s", spec.Name, p.Value.Kind, spec.Kind())
		}
		if spec.Encoding == EncFixedBytes && len(p.Value.Bytes) != spec.Size {
			return fmt.Errorf("encoding property %s: %d bytes, want %d", spec.Name, len(p.Value.Bytes), spec.Size)
		}
		w.WriteGChar(int(p.ID))
		encodeValue(w, spec, p.Value)
		if err := w.Err(); err != nil {
			return fmt.Errorf("encoding property %s: %w", spec.Name, err)
		}
	}
	return nil
}

func encodeValue(w *packet.Writer, s Spec, v Value) {
	switch s.Encoding {
	case EncByte:
		w.WriteGChar(int(v.Int))
	case EncShort:
		w.WriteShort(int(v.Int))
	case EncGShort:
		w.WriteGShort(int(v.Int))
	case EncGInt3:
		w.WriteGInt3(int(v.Int))
	case EncGInt5:
		w.WriteGInt5(v.Int)
	case EncLengthString:
		w.WriteLengthString(v.Str)
	case EncHeadImage:
		w.WriteHeadImage(v.Str)
	case EncPowerImage:
		w.WritePowerImage(v.Power, v.Str, s.Size)
	case EncFixedBytes:
		for _, b := range v.Bytes {
			w.WriteGChar(int(b))
		}
	case EncCountedBytes:
		w.WriteGChar(len(v.Bytes))
		for _, b := range v.Bytes {
			w.WriteGChar(int(b))
		}
	case EncAttachNPC:
		w.WriteGChar(0)
		w.WriteGInt3(int(v.Int))
	case EncEmpty:
	}
}
