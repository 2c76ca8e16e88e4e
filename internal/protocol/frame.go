package protocol

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/graalreborn/graalclient/internal/constants"
)

// Frame is one unit of the TCP stream: a compression selector and a body that
// is compressed, then encrypted.
type Frame struct {
	Compression byte
	Body        []byte
}

// WriteFrame writes the length-prefixed frame to w.
func WriteFrame(w io.Writer, f Frame) error {
	total := 1 + len(f.Body)
	if total > constants.MaxFrameSize {
		return fmt.Errorf("write frame: body of %d bytes exceeds frame limit", len(f.Body))
	}

	buf := make([]byte, constants.FrameHeaderSize+total)
	binary.BigEndian.PutUint16(buf[:constants.FrameHeaderSize], uint16(total))
	buf[constants.FrameHeaderSize] = f.Compression
	copy(buf[constants.FrameHeaderSize+1:], f.Body)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

// ReadFrame reads one frame from r into buf, growing it when needed.
// The returned Body aliases the returned buffer.
func ReadFrame(r io.Reader, buf []byte) (Frame, []byte, error) {
	var header [constants.FrameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Frame{}, buf, fmt.Errorf("reading frame header: %w", err)
	}

	total := int(binary.BigEndian.Uint16(header[:]))
	if total < 1 {
		return Frame{}, buf, fmt.Errorf("%w: empty frame", ErrMalformedFrame)
	}

	if cap(buf) < total {
		buf = make([]byte, total)
	}
	buf = buf[:total]
	if _, err := io.ReadFull(r, buf); err != nil {
		return Frame{}, buf, fmt.Errorf("reading frame body: %w", err)
	}

	return Frame{Compression: buf[0], Body: buf[1:]}, buf, nil
}
