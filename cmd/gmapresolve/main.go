// gmapresolve shows how world coordinates map onto the levels of a gmap.
//
// Usage:
//
//	go run ./cmd/gmapresolve -gmap levels/world.gmap
//	go run ./cmd/gmapresolve -gmap levels/world.gmap -scale pixels 1200,80 70,5
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/graalreborn/graalclient/internal/constants"
	"github.com/graalreborn/graalclient/internal/gmap"
)

func main() {
	path := flag.String("gmap", "", "path to a .gmap file")
	levels := flag.String("levels", "", "level directory used to check convention names (default: the gmap's directory)")
	scale := flag.String("scale", "auto", "coordinate unit: auto, tiles, pixels, double, half")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "error: -gmap is required")
		flag.Usage()
		os.Exit(2)
	}
	if *levels == "" {
		*levels = filepath.Dir(*path)
	}

	if err := run(*path, *levels, *scale, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(path, levelDir, scale string, coords []string) error {
	hint, err := gmap.ParseScaleHint(scale)
	if err != nil {
		return err
	}

	s, err := gmap.LoadStructure(path)
	if err != nil {
		return err
	}

	r := gmap.NewResolver(gmap.WithLevelExists(gmap.FileExists(levelDir)))
	r.RegisterStructure(s)

	if len(coords) == 0 {
		printStructure(s)
		return nil
	}

	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"X", "Y", "Scale", "Segment", "Level", "Source"})
	tw.SetAutoWrapText(false)

	for _, c := range coords {
		x, y, err := parseCoord(c)
		if err != nil {
			return err
		}

		res, ok := r.Resolve(s.Name, x, y, hint)
		if !ok {
			tw.Append([]string{fmtFloat(x), fmtFloat(y), string(hint), "-", "-", "unresolved"})
			continue
		}
		source := "gmap"
		if res.Fallback {
			source = "convention"
		}
		tw.Append([]string{fmtFloat(x), fmtFloat(y), string(res.Scale), res.Segment.String(), res.Level, source})
	}

	tw.Render()
	return nil
}

// printStructure lists every level with its segment and tile origin.
func printStructure(s *gmap.Structure) {
	names := make([]string, 0, len(s.Levels))
	for name := range s.Levels {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := s.Levels[names[i]], s.Levels[names[j]]
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})

	fmt.Printf("%s: %dx%d segments, %d levels\n", s.Name, s.Width, s.Height, len(names))

	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"Level", "Segment", "Origin X", "Origin Y"})
	tw.SetAutoWrapText(false)
	for _, name := range names {
		seg := s.Levels[name]
		tw.Append([]string{
			name,
			seg.String(),
			strconv.Itoa(seg.X * constants.SegmentSize),
			strconv.Itoa(seg.Y * constants.SegmentSize),
		})
	}
	tw.Render()
}

func parseCoord(s string) (float64, float64, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("coordinate %q: want x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("coordinate %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("coordinate %q: %w", s, err)
	}
	return x, y, nil
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
