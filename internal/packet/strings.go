package packet

import (
	"fmt"

	"golang.org/x/text/encoding/charmap"
)

const (
	// HeadImagePresetLimit separates preset head indices from explicit names.
	HeadImagePresetLimit = 100

	// PowerImageBias is added to the power byte when an image name follows.
	PowerImageBias = 30
)

// Strings on the wire are Latin-1. Go strings are UTF-8, so every string field
// goes through charmap to keep non-ASCII nicknames and chat intact.
func decodeLatin1(b []byte) (string, error) {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decoding latin-1: %w", err)
	}
	return string(out), nil
}

func encodeLatin1(s string) ([]byte, error) {
	out, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil {
		return nil, fmt.Errorf("encoding %q as latin-1: %w", s, err)
	}
	return []byte(out), nil
}
