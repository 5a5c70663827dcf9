package script

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound means no script file exists for a name
var ErrNotFound = errors.New("script not found")

const ext = ".json"

// Dir is a directory of <name>.json scripts
type Dir struct {
	Path string
}

// Resolve returns the file for name, falling back to a case-insensitive
// match when the exact file does not exist
func (d Dir) Resolve(name string) (string, error) {
	name = strings.TrimSpace(name)
	exact := filepath.Join(d.Path, name+ext)
	if info, err := os.Stat(exact); err == nil && !info.IsDir() {
		return exact, nil
	}

	entries, err := os.ReadDir(d.Path)
	if err != nil {
		return exact, fmt.Errorf("%w: %s: %v", ErrNotFound, exact, err)
	}
	want := strings.ToLower(name + ext)
	for _, e := range entries {
		if !e.IsDir() && strings.ToLower(e.Name()) == want {
			return filepath.Join(d.Path, e.Name()), nil
		}
	}
	return exact, fmt.Errorf("%w: %s", ErrNotFound, exact)
}

// Load resolves and parses the script for name
func (d Dir) Load(name string) (*Script, error) {
	path, err := d.Resolve(name)
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile parses one script file
func LoadFile(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse script %s: %w", path, err)
	}
	s.Path = path
	return s, nil
}

// List returns the script file names in the directory, sorted. A missing
// directory is an empty list.
func (d Dir) List() ([]string, error) {
	entries, err := os.ReadDir(d.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list scripts in %s: %w", d.Path, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ext) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Names returns List without extensions
func (d Dir) Names() ([]string, error) {
	files, err := d.List()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = strings.TrimSuffix(f, filepath.Ext(f))
	}
	return names, nil
}

// Save writes s to <dir>/<name>.json, creating the directory
func (d Dir) Save(s *Script) (string, error) {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return "", fmt.Errorf("%w: script has no name", ErrInvalid)
	}
	if err := os.MkdirAll(d.Path, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", d.Path, err)
	}
	data, err := s.Marshal()
	if err != nil {
		return "", fmt.Errorf("failed to encode script %s: %w", name, err)
	}
	path := filepath.Join(d.Path, name+ext)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	s.Path = path
	return path, nil
}
