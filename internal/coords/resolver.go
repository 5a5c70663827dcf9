// Package coords maps frame pixels to the window that should receive input.
package coords

import (
	"fmt"
	"image"
	"strings"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/win"
)

// DefaultMaxDepth bounds the child-window walk
const DefaultMaxDepth = 16

// Hop is one window visited while descending to the deepest child
type Hop struct {
	Handle win.HWND
	Class  string
	Client win.Point
}

// String formats a hop as handle:class@(x,y)
func (h Hop) String() string {
	return fmt.Sprintf("%s:%s@(%d,%d)", h.Handle, h.Class, h.Client.X, h.Client.Y)
}

// Target is the resolved recipient of a click
type Target struct {
	Root      win.HWND
	Handle    win.HWND  // deepest valid window
	Point     win.Point // client coordinates of Handle
	RootPoint win.Point // client coordinates of Root
	Screen    win.Point
	Hops      []Hop

	// Degraded is set when a window vanished mid-walk and the last good
	// ancestor was kept instead
	Degraded bool
}

// Chain renders the walk from root to deepest child
func (t Target) Chain() string {
	parts := make([]string, len(t.Hops))
	for i, h := range t.Hops {
		parts[i] = h.String()
	}
	return strings.Join(parts, " -> ")
}

// String returns a one-line diagnostic description
func (t Target) String() string {
	s := fmt.Sprintf("parent=%s deepest_child=%s parent_client=(%d,%d) child_client=(%d,%d) screen=(%d,%d)",
		t.Root, t.Handle, t.RootPoint.X, t.RootPoint.Y, t.Point.X, t.Point.Y, t.Screen.X, t.Screen.Y)
	if t.Degraded {
		s += " degraded"
	}
	return s
}

// Resolver converts between frame, screen and client coordinates. Window
// rectangles are re-read on every call since the window may move.
type Resolver struct {
	api      win.API
	flags    uint32
	maxDepth int
}

// NewResolver creates a resolver that skips invisible, disabled and
// transparent children
func NewResolver(api win.API) *Resolver {
	return &Resolver{
		api:      api,
		flags:    win.CWP_SKIPALL,
		maxDepth: DefaultMaxDepth,
	}
}

// FrameToScreen offsets a frame pixel by the window's current top-left corner.
// Frames cover the full window rectangle, so this is the inverse of capture.
func (r *Resolver) FrameToScreen(root win.HWND, p image.Point) (win.Point, error) {
	rect, err := r.api.WindowRect(root)
	if err != nil {
		return win.Point{}, fmt.Errorf("failed to read window rect of %s: %w", root, err)
	}
	return win.Point{X: rect.Left + p.X, Y: rect.Top + p.Y}, nil
}

// ScreenToFrame is the inverse of FrameToScreen
func (r *Resolver) ScreenToFrame(root win.HWND, s win.Point) (image.Point, error) {
	rect, err := r.api.WindowRect(root)
	if err != nil {
		return image.Point{}, fmt.Errorf("failed to read window rect of %s: %w", root, err)
	}
	return image.Pt(s.X-rect.Left, s.Y-rect.Top), nil
}

// FrameToClient converts a frame pixel to the root window's client coordinates
func (r *Resolver) FrameToClient(root win.HWND, p image.Point) (win.Point, error) {
	s, err := r.FrameToScreen(root, p)
	if err != nil {
		return win.Point{}, err
	}
	c, err := r.api.ScreenToClient(root, s)
	if err != nil {
		return win.Point{}, fmt.Errorf("failed to map screen point to %s: %w", root, err)
	}
	return c, nil
}

// ClientCenter returns the midpoint of the root's client area
func (r *Resolver) ClientCenter(root win.HWND) (win.Point, error) {
	rect, err := r.api.ClientRect(root)
	if err != nil {
		return win.Point{}, fmt.Errorf("failed to read client rect of %s: %w", root, err)
	}
	return rect.Center(), nil
}

// Resolve finds the deepest child under a frame pixel. An error is returned
// only when the root itself cannot be queried.
func (r *Resolver) Resolve(root win.HWND, p image.Point) (Target, error) {
	s, err := r.FrameToScreen(root, p)
	if err != nil {
		return Target{}, err
	}
	return r.resolveScreen(root, s)
}

// ResolveClient finds the deepest child under a point in root client coordinates
func (r *Resolver) ResolveClient(root win.HWND, c win.Point) (Target, error) {
	s, err := r.api.ClientToScreen(root, c)
	if err != nil {
		return Target{}, fmt.Errorf("failed to map client point of %s: %w", root, err)
	}
	return r.resolveScreen(root, s)
}

func (r *Resolver) resolveScreen(root win.HWND, s win.Point) (Target, error) {
	rootPt, err := r.api.ScreenToClient(root, s)
	if err != nil {
		return Target{}, fmt.Errorf("failed to map screen point to %s: %w", root, err)
	}

	t := Target{
		Root:      root,
		Handle:    root,
		Point:     rootPt,
		RootPoint: rootPt,
		Screen:    s,
		Hops:      []Hop{{Handle: root, Class: r.api.ClassName(root), Client: rootPt}},
	}

	cur, pt := root, rootPt
	for depth := 0; depth < r.maxDepth; depth++ {
		child := r.api.ChildWindowFromPointEx(cur, pt, r.flags)
		if child == 0 || child == cur {
			break
		}
		if !r.api.IsWindow(child) {
			t.Degraded = true
			break
		}
		local, err := r.api.ScreenToClient(child, s)
		if err != nil {
			t.Degraded = true
			break
		}
		cur, pt = child, local
		t.Handle, t.Point = cur, pt
		t.Hops = append(t.Hops, Hop{Handle: cur, Class: r.api.ClassName(cur), Client: pt})
	}
	return t, nil
}
