// Package gmap maps world coordinates on a GMAP to the level segments it is
// built from.
package gmap

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrInvalidStructure is returned for a .gmap file that cannot be parsed.
var ErrInvalidStructure = errors.New("invalid gmap structure")

const structureMagic = "GRMAP001"

// Segment addresses one level on the GMAP grid.
type Segment struct {
	X, Y int
}

func (s Segment) String() string {
	return fmt.Sprintf("(%d,%d)", s.X, s.Y)
}

// Structure is the segment layout of one GMAP.
type Structure struct {
	Name   string
	Width  int
	Height int
	Levels map[string]Segment
}

// LevelAt returns the level placed at seg.
func (s *Structure) LevelAt(seg Segment) (string, bool) {
	for name, at := range s.Levels {
		if at == seg {
			return name, true
		}
	}
	return "", false
}

// ParseStructure reads a .gmap file:
//
//	GRMAP001
//	WIDTH 2
//	HEIGHT 1
//	LEVELNAMES
//	"town1.nw","town2.nw"
//	LEVELNAMESEND
//
// Unknown directives are ignored. Empty cells leave holes in the grid.
func ParseStructure(name string, r io.Reader) (*Structure, error) {
	s := &Structure{Name: name, Levels: make(map[string]Segment)}

	sc := bufio.NewScanner(r)
	line := 0
	next := func() (string, bool) {
		for sc.Scan() {
			line++
			if t := strings.TrimSpace(sc.Text()); t != "" {
				return t, true
			}
		}
		return "", false
	}

	first, ok := next()
	if !ok || first != structureMagic {
		return nil, fmt.Errorf("%w: %s: missing %s header", ErrInvalidStructure, name, structureMagic)
	}

	for {
		text, ok := next()
		if !ok {
			break
		}
		fields := strings.Fields(text)
		switch strings.ToUpper(fields[0]) {
		case "WIDTH", "HEIGHT":
			if len(fields) < 2 {
				return nil, fmt.Errorf("%w: %s:%d: %s without value", ErrInvalidStructure, name, line, fields[0])
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: %s:%d: bad %s %q", ErrInvalidStructure, name, line, fields[0], fields[1])
			}
			if strings.EqualFold(fields[0], "WIDTH") {
				s.Width = n
			} else {
				s.Height = n
			}
		case "LEVELNAMES":
			for y := 0; ; y++ {
				row, ok := next()
				if !ok {
					return nil, fmt.Errorf("%w: %s: LEVELNAMES without LEVELNAMESEND", ErrInvalidStructure, name)
				}
				if strings.EqualFold(row, "LEVELNAMESEND") {
					break
				}
				for x, cell := range splitRow(row) {
					if cell == "" {
						continue
					}
					s.Levels[cell] = Segment{X: x, Y: y}
				}
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	return s, nil
}

// splitRow splits a row of comma separated, optionally quoted level names.
func splitRow(row string) []string {
	parts := strings.Split(row, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.Trim(p, `"`)
		out = append(out, strings.TrimSpace(p))
	}
	// a trailing comma is not a cell
	if n := len(out); n > 0 && out[n-1] == "" && strings.HasSuffix(strings.TrimSpace(row), ",") {
		out = out[:n-1]
	}
	return out
}

// LoadStructure parses the .gmap file at path. The structure is named after
// the file's base name.
func LoadStructure(path string) (*Structure, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gmap: %w", err)
	}
	defer f.Close()

	return ParseStructure(filepath.Base(path), f)
}

// IsGMap reports whether name refers to a .gmap file.
func IsGMap(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".gmap")
}
