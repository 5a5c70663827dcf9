// Package input delivers synthetic mouse and keyboard messages straight to a
// window's message handler, without focusing it or using the system input queue.
package input

import (
	"context"
	"fmt"
	"time"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/logging"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/session"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/win"
)

// Timing of the multi-message sequences
const (
	ActivateSettle = 30 * time.Millisecond
	FocusSettle    = 10 * time.Millisecond
	HoldStep       = 10 * time.Millisecond
	WheelTick      = 60 * time.Millisecond
	WheelDelta     = 120
)

// Injector sends input messages. Every call returns once the target has
// processed the message; nothing is retried.
type Injector struct {
	api    win.API
	sleep  session.SleepFunc
	logger *logging.Logger
}

// Option configures an Injector
type Option func(*Injector)

// WithSleeper replaces the interruptible sleep used for holds and settles
func WithSleeper(fn session.SleepFunc) Option {
	return func(in *Injector) {
		in.sleep = fn
	}
}

// WithLogger routes wheel and click diagnostics to l
func WithLogger(l *logging.Logger) Option {
	return func(in *Injector) {
		in.logger = l
	}
}

// NewInjector creates an injector over api
func NewInjector(api win.API, opts ...Option) *Injector {
	in := &Injector{
		api:    api,
		sleep:  session.SleepEvery,
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Hold waits interruptibly; it reports whether the full duration elapsed
func (in *Injector) Hold(ctx context.Context, d time.Duration) bool {
	return in.sleep(ctx, d, session.SleepStep)
}

func (in *Injector) send(h win.HWND, msg uint32, wParam, lParam uintptr) {
	in.api.SendMessage(h, msg, wParam, lParam)
}

// Move sends WM_MOUSEMOVE at a client point of h
func (in *Injector) Move(h win.HWND, p win.Point) {
	in.send(h, win.WM_MOUSEMOVE, 0, PackPoint(p.X, p.Y))
}

// LeftClick sends move, button down and button up with no hold
func (in *Injector) LeftClick(h win.HWND, p win.Point) {
	lp := PackPoint(p.X, p.Y)
	in.Move(h, p)
	in.send(h, win.WM_LBUTTONDOWN, win.MK_LBUTTON, lp)
	in.send(h, win.WM_LBUTTONUP, 0, lp)
}

// RightDown sends move then right button down
func (in *Injector) RightDown(h win.HWND, p win.Point) {
	in.Move(h, p)
	in.send(h, win.WM_RBUTTONDOWN, win.MK_RBUTTON, PackPoint(p.X, p.Y))
}

// RightUp releases the right button
func (in *Injector) RightUp(h win.HWND, p win.Point) {
	in.send(h, win.WM_RBUTTONUP, 0, PackPoint(p.X, p.Y))
}

// RightClick presses the right button for hold. The button is released even
// when the hold is interrupted.
func (in *Injector) RightClick(ctx context.Context, h win.HWND, p win.Point, hold time.Duration) {
	in.RightDown(h, p)
	if hold > 0 {
		in.Hold(ctx, hold)
	}
	in.RightUp(h, p)
}

func (in *Injector) key(h win.HWND, name string, up bool) error {
	vk, err := ResolveKey(name)
	if err != nil {
		return err
	}
	scan := in.api.MapVirtualKey(vk, win.MAPVK_VK_TO_VSC) & 0xFF
	msg := uint32(win.WM_KEYDOWN)
	if up {
		msg = win.WM_KEYUP
	}
	in.send(h, msg, uintptr(vk), KeyLParam(scan, up))
	return nil
}

// KeyDown sends WM_KEYDOWN for a named key
func (in *Injector) KeyDown(h win.HWND, name string) error {
	return in.key(h, name, false)
}

// KeyUp sends WM_KEYUP for a named key
func (in *Injector) KeyUp(h win.HWND, name string) error {
	return in.key(h, name, true)
}

// KeyPress sends key down, holds, then key up. A zero hold is a tap. The key
// is released even when the hold is interrupted.
func (in *Injector) KeyPress(ctx context.Context, h win.HWND, name string, hold time.Duration) error {
	if err := in.KeyDown(h, name); err != nil {
		return err
	}
	if hold > 0 {
		in.Hold(ctx, hold)
	}
	return in.KeyUp(h, name)
}

// Wheel sends steps WM_MOUSEWHEEL messages to h, pausing WheelTick after
// each. The wheel lParam carries screen coordinates.
func (in *Injector) Wheel(ctx context.Context, h win.HWND, delta, steps int, screen win.Point) error {
	if steps < 1 {
		steps = 1
	}
	wp := WheelWParam(delta)
	lp := PackPoint(screen.X, screen.Y)
	for i := 0; i < steps; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		in.send(h, win.WM_MOUSEWHEEL, wp, lp)
		in.logger.Infof("wheel delta=%d -> target=%s screen(%d,%d)", delta, h, screen.X, screen.Y)
		in.sleep(ctx, WheelTick, HoldStep)
	}
	return nil
}

// StrictClick activates root, prepares the child for mouse input and then
// clicks it. Some UI frameworks ignore a bare down/up pair on a background
// window.
//
//	root:  WM_ACTIVATE, WM_MOUSEACTIVATE
//	child: WM_SETCURSOR, WM_SETFOCUS, WM_MOUSEMOVE, WM_LBUTTONDOWN, hold, WM_LBUTTONUP
//
// p is in the child's client coordinates. No message is sent when ctx is
// already done; once the button is down it is always released.
func (in *Injector) StrictClick(ctx context.Context, root, child win.HWND, p win.Point, hold time.Duration) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("click on %s skipped: %w", child, err)
	}

	in.send(root, win.WM_ACTIVATE, win.WA_ACTIVE, 0)
	in.sleep(ctx, ActivateSettle, HoldStep)
	in.send(root, win.WM_MOUSEACTIVATE, uintptr(root), MakeLong(win.WM_LBUTTONDOWN, win.HTCLIENT))
	in.sleep(ctx, FocusSettle, HoldStep)
	in.send(child, win.WM_SETCURSOR, uintptr(child), MakeLong(win.HTCLIENT, win.WM_MOUSEMOVE))
	in.send(child, win.WM_SETFOCUS, 0, 0)
	in.sleep(ctx, FocusSettle, HoldStep)

	lp := PackPoint(p.X, p.Y)
	in.send(child, win.WM_MOUSEMOVE, 0, lp)
	in.send(child, win.WM_LBUTTONDOWN, win.MK_LBUTTON, lp)
	if hold > 0 {
		in.sleep(ctx, hold, HoldStep)
	}
	in.send(child, win.WM_LBUTTONUP, 0, lp)
	return nil
}
