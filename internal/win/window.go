package win

import (
	"errors"
	"fmt"
	"strings"
)

// HWND is an opaque window handle. Zero means no window.
type HWND uintptr

// String formats a handle the way Spy++ shows it
func (h HWND) String() string {
	return fmt.Sprintf("0x%08X", uintptr(h))
}

// Point is a position in screen or client coordinates depending on context
type Point struct {
	X, Y int
}

// Rect is a rectangle with exclusive Right/Bottom edges
type Rect struct {
	Left, Top, Right, Bottom int
}

// Width returns the horizontal extent
func (r Rect) Width() int {
	return r.Right - r.Left
}

// Height returns the vertical extent
func (r Rect) Height() int {
	return r.Bottom - r.Top
}

// Empty reports a zero or negative area
func (r Rect) Empty() bool {
	return r.Width() <= 0 || r.Height() <= 0
}

// Contains reports whether p lies inside r
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X < r.Right && p.Y >= r.Top && p.Y < r.Bottom
}

// Center returns the integer midpoint relative to the rect origin
func (r Rect) Center() Point {
	w, h := r.Width(), r.Height()
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return Point{X: w / 2, Y: h / 2}
}

// Window messages and flags used for background input
const (
	WM_ACTIVATE      = 0x0006
	WM_SETFOCUS      = 0x0007
	WM_SETCURSOR     = 0x0020
	WM_MOUSEACTIVATE = 0x0021
	WM_KEYDOWN       = 0x0100
	WM_KEYUP         = 0x0101
	WM_MOUSEMOVE     = 0x0200
	WM_LBUTTONDOWN   = 0x0201
	WM_LBUTTONUP     = 0x0202
	WM_RBUTTONDOWN   = 0x0204
	WM_RBUTTONUP     = 0x0205
	WM_MOUSEWHEEL    = 0x020A

	MK_LBUTTON = 0x0001
	MK_RBUTTON = 0x0002

	WA_ACTIVE = 1
	HTCLIENT  = 1

	CWP_SKIPINVISIBLE   = 0x0001
	CWP_SKIPDISABLED    = 0x0002
	CWP_SKIPTRANSPARENT = 0x0004
	CWP_SKIPALL         = CWP_SKIPINVISIBLE | CWP_SKIPDISABLED | CWP_SKIPTRANSPARENT

	SW_RESTORE = 9

	MAPVK_VK_TO_VSC = 0
)

// Virtual key codes for the named keys scripts may use
const (
	VK_LBUTTON = 0x01
	VK_TAB     = 0x09
	VK_SHIFT   = 0x10
	VK_CONTROL = 0x11
	VK_MENU    = 0x12
	VK_ESCAPE  = 0x1B
	VK_SPACE   = 0x20
)

// ErrUnsupported is returned by every API call on platforms without user32
var ErrUnsupported = errors.New("window API not supported on this platform")

// ErrInvalidWindow reports a null or destroyed handle
var ErrInvalidWindow = errors.New("invalid window handle")

// API is the subset of user32 the automation needs. Every call must tolerate
// handles that were destroyed since they were obtained.
type API interface {
	IsWindow(h HWND) bool
	IsWindowVisible(h HWND) bool
	WindowRect(h HWND) (Rect, error)
	ClientRect(h HWND) (Rect, error)
	ScreenToClient(h HWND, p Point) (Point, error)
	ClientToScreen(h HWND, p Point) (Point, error)
	ChildWindowFromPointEx(parent HWND, p Point, flags uint32) HWND
	SendMessage(h HWND, msg uint32, wParam, lParam uintptr) uintptr
	MapVirtualKey(code, mapType uint32) uint32
	IsMinimized(h HWND) bool
	ShowWindow(h HWND, cmd int) bool
	WindowText(h HWND) string
	ClassName(h HWND) string
	TopLevelWindows() ([]HWND, error)
}

// WindowInfo describes a candidate target window
type WindowInfo struct {
	Handle HWND
	Class  string
	Title  string
}

// String renders the row shown in window pickers
func (w WindowInfo) String() string {
	return fmt.Sprintf("%s | %s | %s", w.Handle, w.Title, w.Class)
}

// Enumerate lists visible top-level windows that have a title
func Enumerate(api API) ([]WindowInfo, error) {
	handles, err := api.TopLevelWindows()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate windows: %w", err)
	}

	infos := make([]WindowInfo, 0, len(handles))
	for _, h := range handles {
		if !api.IsWindowVisible(h) {
			continue
		}
		title := api.WindowText(h)
		if title == "" {
			continue
		}
		infos = append(infos, WindowInfo{
			Handle: h,
			Class:  api.ClassName(h),
			Title:  title,
		})
	}
	return infos, nil
}

// FindByKeyword returns the last listed window whose title contains keyword.
// An empty keyword never matches.
func FindByKeyword(windows []WindowInfo, keyword string) (WindowInfo, bool) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return WindowInfo{}, false
	}

	var found WindowInfo
	ok := false
	for _, w := range windows {
		if strings.Contains(w.Title, keyword) {
			found = w
			ok = true
		}
	}
	return found, ok
}
