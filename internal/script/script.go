// Package script reads and writes recorded action scripts.
package script

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Step types
const (
	TypeKey   = "key"
	TypeMouse = "mouse"
)

// Mouse buttons
const (
	ButtonLeft  = "left"
	ButtonRight = "right"
)

// ErrInvalid is wrapped by parse failures
var ErrInvalid = errors.New("invalid script")

// Seconds is a duration in seconds. It decodes from a JSON number or a
// numeric string; negative values count as zero.
type Seconds float64

// UnmarshalJSON accepts 1.5, "1.5" and null
func (s *Seconds) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		data = []byte(strings.TrimSpace(str))
		if len(data) == 0 {
			*s = 0
			return nil
		}
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid seconds value %s", data)
	}
	*s = Seconds(v)
	return nil
}

// Duration converts to time.Duration
func (s Seconds) Duration() time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(float64(s) * float64(time.Second))
}

// Step is one recorded input event
type Step struct {
	Type   string  `json:"type"`
	Key    string  `json:"key,omitempty"`
	Button string  `json:"button,omitempty"`
	Hold   Seconds `json:"hold"`
	Delay  Seconds `json:"delay"`
}

// Kind returns the normalized step type
func (s Step) Kind() string {
	return strings.ToLower(strings.TrimSpace(s.Type))
}

// MouseButton returns the normalized button, defaulting to left
func (s Step) MouseButton() string {
	b := strings.ToLower(strings.TrimSpace(s.Button))
	if b == "" {
		return ButtonLeft
	}
	return b
}

// Actionable reports whether the step sends input
func (s Step) Actionable() bool {
	k := s.Kind()
	return k == TypeKey || k == TypeMouse
}

// String describes the step for logs
func (s Step) String() string {
	switch s.Kind() {
	case TypeKey:
		return fmt.Sprintf("key %s hold=%gs delay=%gs", s.Key, float64(s.Hold), float64(s.Delay))
	case TypeMouse:
		return fmt.Sprintf("mouse %s hold=%gs delay=%gs", s.MouseButton(), float64(s.Hold), float64(s.Delay))
	default:
		return fmt.Sprintf("unknown step type %q", s.Type)
	}
}

// Script is an ordered list of steps recorded for one scenario
type Script struct {
	Name  string `json:"name"`
	Steps []Step `json:"steps"`

	// Path is the file the script was loaded from
	Path string `json:"-"`
}

// Parse decodes a script document
func Parse(data []byte) (*Script, error) {
	var s Script
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return &s, nil
}

// Problems lists steps that will be skipped or fail at playback. A script
// with problems is still playable.
func (s *Script) Problems() []string {
	var out []string
	for i, st := range s.Steps {
		switch st.Kind() {
		case TypeKey:
			if strings.TrimSpace(st.Key) == "" {
				out = append(out, fmt.Sprintf("step %d: key step without key", i+1))
			}
		case TypeMouse:
			if b := st.MouseButton(); b != ButtonLeft && b != ButtonRight {
				out = append(out, fmt.Sprintf("step %d: unknown mouse button %q", i+1, st.Button))
			}
		default:
			out = append(out, fmt.Sprintf("step %d: unknown step type %q", i+1, st.Type))
		}
	}
	return out
}

// Duration sums every hold and delay
func (s *Script) Duration() time.Duration {
	var d time.Duration
	for _, st := range s.Steps {
		d += st.Hold.Duration() + st.Delay.Duration()
	}
	return d
}

// Marshal encodes the script the way the recorder writes it
func (s *Script) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
