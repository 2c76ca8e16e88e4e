package packet

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/graalreborn/graalclient/internal/constants"
)

// ErrOutOfRange is returned when a value does not fit its field encoding.
var ErrOutOfRange = errors.New("value out of range")

// Writer encodes the protocol's primitive field encodings.
// The first failing write is remembered and returned by Err; later writes are no-ops.
type Writer struct {
	buf *bytes.Buffer
	err error
}

// writerPool reduces allocations by reusing Writers.
var writerPool = sync.Pool{
	New: func() any {
		return &Writer{
			buf: bytes.NewBuffer(make([]byte, 0, 256)),
		}
	},
}

// Get returns a Writer from the pool (already Reset).
func Get() *Writer {
	w := writerPool.Get().(*Writer)
	w.Reset()
	return w
}

// Put returns a Writer to the pool for reuse.
// IMPORTANT: Do not use the Writer or its Bytes after calling Put.
func (w *Writer) Put() {
	writerPool.Put(w)
}

// NewWriter creates a new packet writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{
		buf: bytes.NewBuffer(make([]byte, 0, capacity)),
	}
}

func (w *Writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

// EncodeByte converts a value in [0,223] to its wire byte.
func EncodeByte(v int) (byte, error) {
	if v < 0 {
		v = 0
	}
	if v > constants.MaxByteValue {
		return 0, fmt.Errorf("byte %d: %w (max %d)", v, ErrOutOfRange, constants.MaxByteValue)
	}
	return byte(v + constants.ByteOffset), nil
}

// WriteRaw writes one undecoded byte.
func (w *Writer) WriteRaw(b byte) {
	if w.err != nil {
		return
	}
	w.buf.WriteByte(b)
}

// WriteGChar writes a Byte field. Negative values clamp to 0 so the wire byte is never below 32.
func (w *Writer) WriteGChar(v int) {
	if w.err != nil {
		return
	}
	b, err := EncodeByte(v)
	if err != nil {
		w.fail(fmt.Errorf("WriteGChar: %w", err))
		return
	}
	w.buf.WriteByte(b)
}

// WriteShort writes the naive two-byte Short. Both halves must fit a Byte.
func (w *Writer) WriteShort(v int) {
	if w.err != nil {
		return
	}
	if v < 0 || v>>8 > constants.MaxByteValue || v&0xFF > constants.MaxByteValue {
		w.fail(fmt.Errorf("WriteShort %d: %w", v, ErrOutOfRange))
		return
	}
	w.buf.WriteByte(byte(v>>8 + constants.ByteOffset))
	w.buf.WriteByte(byte(v&0xFF + constants.ByteOffset))
}

// WriteGShort writes a 14-bit GShort. Negative values use the +32768 overflow form.
func (w *Writer) WriteGShort(v int) {
	if w.err != nil {
		return
	}
	if v < -16384 || v > 16383 {
		w.fail(fmt.Errorf("WriteGShort %d: %w", v, ErrOutOfRange))
		return
	}
	u := v
	if u < 0 {
		u += 32768
	}
	hi := u >> 7
	if hi > constants.MaxByteValue {
		w.fail(fmt.Errorf("WriteGShort %d: %w", v, ErrOutOfRange))
		return
	}
	w.buf.WriteByte(byte(hi + constants.ByteOffset))
	w.buf.WriteByte(byte(u&0x7F + constants.ByteOffset))
}

// WriteGInt3 writes a 21-bit unsigned GInt.
func (w *Writer) WriteGInt3(v int) {
	if w.err != nil {
		return
	}
	if v < 0 || v >= 1<<21 {
		w.fail(fmt.Errorf("WriteGInt3 %d: %w", v, ErrOutOfRange))
		return
	}
	w.buf.WriteByte(byte(v>>14&0x7F + constants.ByteOffset))
	w.buf.WriteByte(byte(v>>7&0x7F + constants.ByteOffset))
	w.buf.WriteByte(byte(v&0x7F + constants.ByteOffset))
}

// WriteGInt5 writes a 35-bit unsigned GInt5.
func (w *Writer) WriteGInt5(v int64) {
	if w.err != nil {
		return
	}
	if v < 0 || v >= 1<<35 {
		w.fail(fmt.Errorf("WriteGInt5 %d: %w", v, ErrOutOfRange))
		return
	}
	for shift := 28; shift >= 0; shift -= 7 {
		w.buf.WriteByte(byte(v>>shift&0x7F) + constants.ByteOffset)
	}
}

// WriteBytes writes raw bytes.
func (w *Writer) WriteBytes(data []byte) {
	if w.err != nil {
		return
	}
	w.buf.Write(data)
}

// WriteFixedString writes s as Latin-1 without a length prefix.
func (w *Writer) WriteFixedString(s string) {
	if w.err != nil {
		return
	}
	b, err := encodeLatin1(s)
	if err != nil {
		w.fail(fmt.Errorf("WriteFixedString: %w", err))
		return
	}
	w.buf.Write(b)
}

// WriteLengthString writes a Byte length prefix followed by s.
func (w *Writer) WriteLengthString(s string) {
	if w.err != nil {
		return
	}
	b, err := encodeLatin1(s)
	if err != nil {
		w.fail(fmt.Errorf("WriteLengthString: %w", err))
		return
	}
	if len(b) > constants.MaxByteValue {
		w.fail(fmt.Errorf("WriteLengthString: length %d: %w", len(b), ErrOutOfRange))
		return
	}
	w.buf.WriteByte(byte(len(b) + constants.ByteOffset))
	w.buf.Write(b)
}

// WriteRawString writes s undecoded. It must be the last field of a packet.
func (w *Writer) WriteRawString(s string) {
	w.WriteFixedString(s)
}

// WriteHeadImage writes the dual-mode head image field.
// Names of the form head<n>.png with n < 100 are sent as a preset index.
func (w *Writer) WriteHeadImage(name string) {
	if w.err != nil {
		return
	}
	var idx int
	if n, err := fmt.Sscanf(name, "head%d.png", &idx); err == nil && n == 1 &&
		idx >= 0 && idx < HeadImagePresetLimit && fmt.Sprintf("head%d.png", idx) == name {
		w.WriteGChar(idx)
		return
	}
	b, err := encodeLatin1(name)
	if err != nil {
		w.fail(fmt.Errorf("WriteHeadImage: %w", err))
		return
	}
	w.WriteGChar(len(b) + HeadImagePresetLimit)
	w.WriteBytes(b)
}

// WritePowerImage writes the power+image tuple. An empty image sends the power alone,
// which must then be at most plainMax.
func (w *Writer) WritePowerImage(power int, image string, plainMax int) {
	if w.err != nil {
		return
	}
	if image == "" {
		if power < 0 || power > plainMax {
			w.fail(fmt.Errorf("WritePowerImage: bare power %d: %w (max %d)", power, ErrOutOfRange, plainMax))
			return
		}
		w.WriteGChar(power)
		return
	}
	b, err := encodeLatin1(image)
	if err != nil {
		w.fail(fmt.Errorf("WritePowerImage: %w", err))
		return
	}
	if len(b)+1 <= plainMax {
		w.fail(fmt.Errorf("WritePowerImage: image %q too short to be framed", image))
		return
	}
	w.WriteGChar(len(b) + 1)
	w.WriteGChar(power + PowerImageBias)
	w.WriteBytes(b)
}

// Bytes returns the accumulated packet data.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Err returns the first encoding error, if any.
func (w *Writer) Err() error {
	return w.err
}

// Len returns the current length of the packet.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Reset clears the buffer and error for reuse.
func (w *Writer) Reset() {
	w.buf.Reset()
	w.err = nil
}
