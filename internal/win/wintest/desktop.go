// Package wintest provides an in-memory window tree implementing win.API.
package wintest

import (
	"sort"
	"sync"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/win"
)

// Window describes one fake window. Rect and Client are in screen coordinates;
// a zero Client means the client area equals Rect.
type Window struct {
	Handle      win.HWND
	Parent      win.HWND
	Title       string
	Class       string
	Rect        win.Rect
	Client      win.Rect
	Hidden      bool
	Disabled    bool
	Transparent bool
	Minimized   bool
}

// Message is one recorded SendMessage call
type Message struct {
	Hwnd   win.HWND
	Msg    uint32
	WParam uintptr
	LParam uintptr
}

// Desktop is a fake window manager. The zero value is not usable; use New.
type Desktop struct {
	mu       sync.Mutex
	windows  map[win.HWND]*Window
	order    []win.HWND
	messages []Message
	next     win.HWND

	// ScanCodes overrides MapVirtualKey results per virtual key
	ScanCodes map[uint32]uint32

	// OnSend runs after a message is recorded, outside the lock
	OnSend func(Message)
}

// New creates an empty desktop with scan codes for the keys tests use
func New() *Desktop {
	return &Desktop{
		windows: make(map[win.HWND]*Window),
		next:    0x1000,
		ScanCodes: map[uint32]uint32{
			'W':          0x11,
			'A':          0x1E,
			'S':          0x1F,
			'D':          0x20,
			'E':          0x12,
			'Q':          0x10,
			win.VK_SPACE: 0x39,
			win.VK_SHIFT: 0x2A,
		},
	}
}

// Add registers a window and returns its handle. A zero Handle is assigned.
func (d *Desktop) Add(w Window) win.HWND {
	d.mu.Lock()
	defer d.mu.Unlock()

	if w.Handle == 0 {
		d.next += 0x10
		w.Handle = d.next
	}
	if w.Client == (win.Rect{}) {
		w.Client = w.Rect
	}
	cp := w
	d.windows[w.Handle] = &cp
	d.order = append(d.order, w.Handle)
	return w.Handle
}

// Destroy removes a window and all of its descendants
func (d *Desktop) Destroy(h win.HWND) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroyLocked(h)
}

func (d *Desktop) destroyLocked(h win.HWND) {
	if _, ok := d.windows[h]; !ok {
		return
	}
	doomed := map[win.HWND]bool{h: true}
	for changed := true; changed; {
		changed = false
		for c, w := range d.windows {
			if !doomed[c] && doomed[w.Parent] {
				doomed[c] = true
				changed = true
			}
		}
	}

	kept := make([]win.HWND, 0, len(d.order))
	for _, c := range d.order {
		if doomed[c] {
			delete(d.windows, c)
			continue
		}
		kept = append(kept, c)
	}
	d.order = kept
}

// SetMinimized changes the iconic state of a window
func (d *Desktop) SetMinimized(h win.HWND, minimized bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if w, ok := d.windows[h]; ok {
		w.Minimized = minimized
	}
}

// Messages returns a copy of every message sent so far
func (d *Desktop) Messages() []Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Message, len(d.messages))
	copy(out, d.messages)
	return out
}

// MessagesTo returns the recorded messages addressed to h
func (d *Desktop) MessagesTo(h win.HWND) []Message {
	var out []Message
	for _, m := range d.Messages() {
		if m.Hwnd == h {
			out = append(out, m)
		}
	}
	return out
}

// Reset clears the message log
func (d *Desktop) Reset() {
	d.mu.Lock()
	d.messages = nil
	d.mu.Unlock()
}

func (d *Desktop) get(h win.HWND) (Window, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, ok := d.windows[h]
	if !ok {
		return Window{}, false
	}
	return *w, true
}

func (d *Desktop) IsWindow(h win.HWND) bool {
	_, ok := d.get(h)
	return ok
}

func (d *Desktop) IsWindowVisible(h win.HWND) bool {
	w, ok := d.get(h)
	return ok && !w.Hidden
}

func (d *Desktop) WindowRect(h win.HWND) (win.Rect, error) {
	w, ok := d.get(h)
	if !ok {
		return win.Rect{}, win.ErrInvalidWindow
	}
	return w.Rect, nil
}

func (d *Desktop) ClientRect(h win.HWND) (win.Rect, error) {
	w, ok := d.get(h)
	if !ok {
		return win.Rect{}, win.ErrInvalidWindow
	}
	return win.Rect{Right: w.Client.Width(), Bottom: w.Client.Height()}, nil
}

func (d *Desktop) ScreenToClient(h win.HWND, p win.Point) (win.Point, error) {
	w, ok := d.get(h)
	if !ok {
		return p, win.ErrInvalidWindow
	}
	return win.Point{X: p.X - w.Client.Left, Y: p.Y - w.Client.Top}, nil
}

func (d *Desktop) ClientToScreen(h win.HWND, p win.Point) (win.Point, error) {
	w, ok := d.get(h)
	if !ok {
		return p, win.ErrInvalidWindow
	}
	return win.Point{X: p.X + w.Client.Left, Y: p.Y + w.Client.Top}, nil
}

// ChildWindowFromPointEx returns the first direct child containing the point,
// the parent itself when no child does, or zero when the point is outside.
func (d *Desktop) ChildWindowFromPointEx(parent win.HWND, p win.Point, flags uint32) win.HWND {
	d.mu.Lock()
	defer d.mu.Unlock()

	pw, ok := d.windows[parent]
	if !ok {
		return 0
	}
	local := win.Rect{Right: pw.Client.Width(), Bottom: pw.Client.Height()}
	if !local.Contains(p) {
		return 0
	}
	screen := win.Point{X: p.X + pw.Client.Left, Y: p.Y + pw.Client.Top}

	for _, h := range d.order {
		c := d.windows[h]
		if c == nil || c.Parent != parent {
			continue
		}
		if flags&win.CWP_SKIPINVISIBLE != 0 && c.Hidden {
			continue
		}
		if flags&win.CWP_SKIPDISABLED != 0 && c.Disabled {
			continue
		}
		if flags&win.CWP_SKIPTRANSPARENT != 0 && c.Transparent {
			continue
		}
		if c.Rect.Contains(screen) {
			return h
		}
	}
	return parent
}

func (d *Desktop) SendMessage(h win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	m := Message{Hwnd: h, Msg: msg, WParam: wParam, LParam: lParam}
	d.mu.Lock()
	d.messages = append(d.messages, m)
	hook := d.OnSend
	d.mu.Unlock()

	if hook != nil {
		hook(m)
	}
	return 0
}

func (d *Desktop) MapVirtualKey(code, mapType uint32) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if sc, ok := d.ScanCodes[code]; ok {
		return sc
	}
	return code & 0xFF
}

func (d *Desktop) IsMinimized(h win.HWND) bool {
	w, ok := d.get(h)
	return ok && w.Minimized
}

func (d *Desktop) ShowWindow(h win.HWND, cmd int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, ok := d.windows[h]
	if !ok {
		return false
	}
	wasVisible := !w.Hidden
	if cmd == win.SW_RESTORE {
		w.Minimized = false
		w.Hidden = false
	}
	return wasVisible
}

func (d *Desktop) WindowText(h win.HWND) string {
	w, _ := d.get(h)
	return w.Title
}

func (d *Desktop) ClassName(h win.HWND) string {
	w, _ := d.get(h)
	return w.Class
}

// TopLevelWindows lists parentless windows in insertion order
func (d *Desktop) TopLevelWindows() ([]win.HWND, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []win.HWND
	for _, h := range d.order {
		if d.windows[h].Parent == 0 {
			out = append(out, h)
		}
	}
	return out, nil
}

// Handles returns every live handle sorted ascending
func (d *Desktop) Handles() []win.HWND {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]win.HWND, 0, len(d.windows))
	for h := range d.windows {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var _ win.API = (*Desktop)(nil)
