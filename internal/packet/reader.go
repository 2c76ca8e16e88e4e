package packet

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/graalreborn/graalclient/internal/constants"
)

// ErrShortData is returned when a field needs more bytes than remain.
var ErrShortData = errors.New("not enough data")

// ErrInvalidLength is returned when a length prefix is out of range.
var ErrInvalidLength = errors.New("invalid length prefix")

// Reader decodes the protocol's primitive field encodings from a packet payload.
// Every multi-byte integer is big-endian base-128 with each byte offset by 32.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a new packet reader.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// DecodeByte converts a single wire byte to its value (wire-32, clamped to 0).
func DecodeByte(b byte) int {
	v := int(b) - constants.ByteOffset
	if v < 0 {
		return 0
	}
	return v
}

func (r *Reader) need(op string, n int) error {
	if r.pos+n > len(r.data) {
		return fmt.Errorf("%s: %w (pos=%d, need=%d, len=%d)", op, ErrShortData, r.pos, n, len(r.data))
	}
	return nil
}

// ReadRaw reads one undecoded byte.
func (r *Reader) ReadRaw() (byte, error) {
	if err := r.need("ReadRaw", 1); err != nil {
		return 0, err
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// PeekRaw returns the next undecoded byte without consuming it.
func (r *Reader) PeekRaw() (byte, bool) {
	if r.pos >= len(r.data) {
		return 0, false
	}
	return r.data[r.pos], true
}

// ReadGChar reads a Byte field: wire-32, clamped to >= 0.
func (r *Reader) ReadGChar() (int, error) {
	if err := r.need("ReadGChar", 1); err != nil {
		return 0, err
	}
	v := DecodeByte(r.data[r.pos])
	r.pos++
	return v, nil
}

// ReadShort reads the naive two-byte Short: (Byte<<8)|Byte.
// Not to be confused with ReadGShort.
func (r *Reader) ReadShort() (int, error) {
	if err := r.need("ReadShort", 2); err != nil {
		return 0, err
	}
	v := DecodeByte(r.data[r.pos])<<8 | DecodeByte(r.data[r.pos+1])
	r.pos += 2
	return v, nil
}

// ReadGShort reads a 14-bit GShort. Values above 16383 wrap to negative.
func (r *Reader) ReadGShort() (int, error) {
	if err := r.need("ReadGShort", 2); err != nil {
		return 0, err
	}
	b0 := int(r.data[r.pos]) - constants.ByteOffset
	b1 := int(r.data[r.pos+1]) - constants.ByteOffset
	r.pos += 2

	v := b0<<7 + b1
	if v > 16383 {
		v -= 32768
	}
	return v, nil
}

// ReadGInt3 reads a 21-bit unsigned GInt.
func (r *Reader) ReadGInt3() (int, error) {
	if err := r.need("ReadGInt3", 3); err != nil {
		return 0, err
	}
	b0 := int(r.data[r.pos]) - constants.ByteOffset
	b1 := int(r.data[r.pos+1]) - constants.ByteOffset
	b2 := int(r.data[r.pos+2]) - constants.ByteOffset
	r.pos += 3
	return b0<<14 | b1<<7 | b2, nil
}

// ReadGInt5 reads a 35-bit unsigned GInt5.
func (r *Reader) ReadGInt5() (int64, error) {
	if err := r.need("ReadGInt5", 5); err != nil {
		return 0, err
	}
	var v int64
	for i := range 5 {
		v = v<<7 | int64((r.data[r.pos+i]-constants.ByteOffset)&0x7F)
	}
	r.pos += 5
	return v, nil
}

// ReadBytes reads n raw bytes (ZERO-COPY, shares the underlying array).
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("ReadBytes: negative count %d", n)
	}
	if err := r.need("ReadBytes", n); err != nil {
		return nil, err
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadFixedString reads n bytes of Latin-1 text.
func (r *Reader) ReadFixedString(n int) (string, error) {
	b, err := r.ReadBytes(n)
	if err != nil {
		return "", fmt.Errorf("ReadFixedString: %w", err)
	}
	return decodeLatin1(b)
}

// ReadLengthString reads a Byte length prefix followed by that many bytes.
func (r *Reader) ReadLengthString() (string, error) {
	if err := r.need("ReadLengthString", 1); err != nil {
		return "", err
	}
	n := int(r.data[r.pos]) - constants.ByteOffset
	if n < 0 || n > constants.MaxByteValue {
		return "", fmt.Errorf("ReadLengthString: %w: %d", ErrInvalidLength, n)
	}
	r.pos++
	return r.ReadFixedString(n)
}

// ReadRawString reads the rest of the packet as one string. It is always the
// last field; newlines inside it come from RAWDATA and are kept.
func (r *Reader) ReadRawString() (string, error) {
	return r.ReadFixedString(r.Remaining())
}

// ReadHeadImage reads the dual-mode head image field. Lengths below 100 are a
// preset index ("head<n>.png"); otherwise len-100 bytes of image name follow.
func (r *Reader) ReadHeadImage() (string, error) {
	n, err := r.ReadGChar()
	if err != nil {
		return "", fmt.Errorf("ReadHeadImage: %w", err)
	}
	if n < HeadImagePresetLimit {
		return fmt.Sprintf("head%d.png", n), nil
	}
	return r.ReadFixedString(n - HeadImagePresetLimit)
}

// ReadPowerImage reads the power+image tuple used by sword and shield.
// A length up to plainMax carries only a power level.
func (r *Reader) ReadPowerImage(plainMax int) (power int, image string, err error) {
	n, err := r.ReadGChar()
	if err != nil {
		return 0, "", fmt.Errorf("ReadPowerImage: %w", err)
	}
	if n <= plainMax {
		return n, "", nil
	}
	p, err := r.ReadGChar()
	if err != nil {
		return 0, "", fmt.Errorf("ReadPowerImage: %w", err)
	}
	image, err = r.ReadFixedString(n - 1)
	if err != nil {
		return 0, "", fmt.Errorf("ReadPowerImage: %w", err)
	}
	return p - PowerImageBias, image, nil
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// RemainingInPacket returns the number of unread bytes before the next terminator.
func (r *Reader) RemainingInPacket() int {
	rest := r.data[r.pos:]
	if i := bytes.IndexByte(rest, constants.Terminator); i >= 0 {
		return i
	}
	return len(rest)
}

// Position returns the current read position.
func (r *Reader) Position() int {
	return r.pos
}

// Seek moves the cursor to an absolute position.
func (r *Reader) Seek(pos int) error {
	if pos < 0 || pos > len(r.data) {
		return fmt.Errorf("Seek: position %d out of range [0,%d]", pos, len(r.data))
	}
	r.pos = pos
	return nil
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) error {
	if err := r.need("Skip", n); err != nil {
		return err
	}
	r.pos += n
	return nil
}
