// Package compress implements the frame body compression selected by the
// outer frame's selector byte.
package compress

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/zlib"

	"github.com/graalreborn/graalclient/internal/constants"
)

// ErrUnknownSelector is returned for a selector byte outside the negotiated set.
var ErrUnknownSelector = errors.New("unknown compression selector")

// Mode picks the selector for outbound frames.
type Mode string

const (
	ModeAuto Mode = "auto" // uncompressed for small bodies, zlib otherwise
	ModeNone Mode = "none"
	ModeZlib Mode = "zlib"
	ModeBz2  Mode = "bz2"
)

// Select returns the selector for a body of n bytes.
func Select(mode Mode, n int) byte {
	switch mode {
	case ModeNone:
		return constants.CompressNone
	case ModeZlib:
		return constants.CompressZlib
	case ModeBz2:
		return constants.CompressBz2
	default:
		if n <= constants.CompressThreshold {
			return constants.CompressNone
		}
		return constants.CompressZlib
	}
}

// Compress compresses data with the codec named by sel.
func Compress(sel byte, data []byte) ([]byte, error) {
	switch sel {
	case constants.CompressNone:
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	case constants.CompressZlib:
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, fmt.Errorf("zlib compress: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("zlib compress: %w", err)
		}
		return buf.Bytes(), nil
	case constants.CompressBz2:
		var buf bytes.Buffer
		bw, err := bzip2.NewWriter(&buf, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
		if err != nil {
			return nil, fmt.Errorf("bz2 compress: %w", err)
		}
		if _, err := bw.Write(data); err != nil {
			return nil, fmt.Errorf("bz2 compress: %w", err)
		}
		if err := bw.Close(); err != nil {
			return nil, fmt.Errorf("bz2 compress: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: 0x%02X", ErrUnknownSelector, sel)
	}
}

// Decompress reverses Compress.
func Decompress(sel byte, data []byte) ([]byte, error) {
	switch sel {
	case constants.CompressNone:
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	case constants.CompressZlib:
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("zlib decompress: %w", err)
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("zlib decompress: %w", err)
		}
		return out, nil
	case constants.CompressBz2:
		br, err := bzip2.NewReader(bytes.NewReader(data), nil)
		if err != nil {
			return nil, fmt.Errorf("bz2 decompress: %w", err)
		}
		defer br.Close()
		out, err := io.ReadAll(br)
		if err != nil {
			return nil, fmt.Errorf("bz2 decompress: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: 0x%02X", ErrUnknownSelector, sel)
	}
}
