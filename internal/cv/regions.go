package cv

import (
	"fmt"
	"image"
)

// Region limits a search to part of the frame. Corners are inclusive, the
// way marker overrides are written by hand.
type Region struct {
	X1, Y1, X2, Y2 int
}

func (r Region) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.X1, r.Y1, r.X2, r.Y2)
}

// Width is the inclusive width in pixels
func (r Region) Width() int { return r.X2 - r.X1 + 1 }

// Height is the inclusive height in pixels
func (r Region) Height() int { return r.Y2 - r.Y1 + 1 }

// Valid reports whether the corners are ordered
func (r Region) Valid() bool {
	return r.X1 >= 0 && r.Y1 >= 0 && r.X2 >= r.X1 && r.Y2 >= r.Y1
}

// Rect converts to the half-open rectangle the matcher searches
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2+1, r.Y2+1)
}
