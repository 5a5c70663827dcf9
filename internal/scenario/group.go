// Package scenario recognizes which map the game is showing by scoring edge
// templates grouped per map.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Variant slots of a candidate
const (
	Base = iota
	Feature2
	Feature3
	numVariants
)

var variantLabels = [numVariants]string{"base", "feat2", "feat3"}

// Candidate is one map and its template files. An empty path means the
// variant does not exist.
type Candidate struct {
	Name     string
	Variants [numVariants]string
}

// Count returns the number of variants present
func (c Candidate) Count() int {
	n := 0
	for _, p := range c.Variants {
		if p != "" {
			n++
		}
	}
	return n
}

// splitVariant maps "mapA-2" to ("mapA", Feature2)
func splitVariant(stem string) (string, int) {
	switch {
	case strings.HasSuffix(stem, "-2"):
		return strings.TrimSuffix(stem, "-2"), Feature2
	case strings.HasSuffix(stem, "-3"):
		return strings.TrimSuffix(stem, "-3"), Feature3
	default:
		return stem, Base
	}
}

// Group collects .png files under their canonical base name. Other files,
// and files with nothing left once the suffix is removed, are ignored.
// Candidates are sorted by name.
func Group(files []string) []Candidate {
	byName := make(map[string]*Candidate)
	for _, f := range files {
		base := filepath.Base(f)
		ext := filepath.Ext(base)
		if !strings.EqualFold(ext, ".png") {
			continue
		}
		name, slot := splitVariant(strings.TrimSuffix(base, ext))
		if strings.TrimSpace(name) == "" {
			continue
		}
		c, ok := byName[name]
		if !ok {
			c = &Candidate{Name: name}
			byName[name] = c
		}
		c.Variants[slot] = f
	}

	out := make([]Candidate, 0, len(byName))
	for _, c := range byName {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Scan groups the templates of one map directory. A missing directory has no
// candidates.
func Scan(dir string) ([]Candidate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read map templates in %s: %w", dir, err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return Group(files), nil
}
