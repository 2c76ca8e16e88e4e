package gmap

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadDir registers every .gmap file in dir and records every .nw file as a
// known level. It returns the number of structures registered.
// A missing directory is not an error.
func (r *Resolver) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading level dir %s: %w", dir, err)
	}

	var n int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch {
		case IsGMap(name):
			s, err := LoadStructure(filepath.Join(dir, name))
			if err != nil {
				return n, err
			}
			r.RegisterStructure(s)
			n++
		case strings.EqualFold(filepath.Ext(name), ".nw"):
			r.AddKnownLevel(name)
		}
	}
	return n, nil
}

// FileExists returns a level existence check over the files in dir,
// for use with WithLevelExists.
func FileExists(dir string) func(level string) bool {
	return func(level string) bool {
		if level == "" || strings.ContainsAny(level, `/\`) {
			return false
		}
		st, err := os.Stat(filepath.Join(dir, level))
		return err == nil && !st.IsDir()
	}
}
