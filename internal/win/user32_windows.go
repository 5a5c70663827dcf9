//go:build windows
// +build windows

package win

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                     = windows.NewLazySystemDLL("user32.dll")
	procGetWindowRect          = user32.NewProc("GetWindowRect")
	procGetClientRect          = user32.NewProc("GetClientRect")
	procScreenToClient         = user32.NewProc("ScreenToClient")
	procClientToScreen         = user32.NewProc("ClientToScreen")
	procChildWindowFromPointEx = user32.NewProc("ChildWindowFromPointEx")
	procSendMessageW           = user32.NewProc("SendMessageW")
	procMapVirtualKeyW         = user32.NewProc("MapVirtualKeyW")
	procIsIconic               = user32.NewProc("IsIconic")
	procShowWindow             = user32.NewProc("ShowWindow")
	procGetWindowTextW         = user32.NewProc("GetWindowTextW")
)

// POINT matches the Win32 layout
type POINT struct {
	X int32
	Y int32
}

type user32API struct{}

// Default returns the user32-backed API
func Default() API {
	return user32API{}
}

func (user32API) IsWindow(h HWND) bool {
	if h == 0 {
		return false
	}
	return windows.IsWindow(windows.HWND(h))
}

func (user32API) IsWindowVisible(h HWND) bool {
	return windows.IsWindowVisible(windows.HWND(h))
}

func (a user32API) WindowRect(h HWND) (Rect, error) {
	if !a.IsWindow(h) {
		return Rect{}, ErrInvalidWindow
	}
	var r windows.Rect
	ret, _, err := procGetWindowRect.Call(uintptr(h), uintptr(unsafe.Pointer(&r)))
	if ret == 0 {
		return Rect{}, fmt.Errorf("GetWindowRect failed: %v", err)
	}
	return fromRect(r), nil
}

func (a user32API) ClientRect(h HWND) (Rect, error) {
	if !a.IsWindow(h) {
		return Rect{}, ErrInvalidWindow
	}
	var r windows.Rect
	ret, _, err := procGetClientRect.Call(uintptr(h), uintptr(unsafe.Pointer(&r)))
	if ret == 0 {
		return Rect{}, fmt.Errorf("GetClientRect failed: %v", err)
	}
	return fromRect(r), nil
}

func (a user32API) ScreenToClient(h HWND, p Point) (Point, error) {
	if !a.IsWindow(h) {
		return p, ErrInvalidWindow
	}
	pt := POINT{X: int32(p.X), Y: int32(p.Y)}
	ret, _, err := procScreenToClient.Call(uintptr(h), uintptr(unsafe.Pointer(&pt)))
	if ret == 0 {
		return p, fmt.Errorf("ScreenToClient failed: %v", err)
	}
	return Point{X: int(pt.X), Y: int(pt.Y)}, nil
}

func (a user32API) ClientToScreen(h HWND, p Point) (Point, error) {
	if !a.IsWindow(h) {
		return p, ErrInvalidWindow
	}
	pt := POINT{X: int32(p.X), Y: int32(p.Y)}
	ret, _, err := procClientToScreen.Call(uintptr(h), uintptr(unsafe.Pointer(&pt)))
	if ret == 0 {
		return p, fmt.Errorf("ClientToScreen failed: %v", err)
	}
	return Point{X: int(pt.X), Y: int(pt.Y)}, nil
}

func (user32API) ChildWindowFromPointEx(parent HWND, p Point, flags uint32) HWND {
	// POINT is passed by value: one register on 64-bit, two stack slots on 32-bit
	var ret uintptr
	if unsafe.Sizeof(uintptr(0)) == 8 {
		packed := uint64(uint32(int32(p.X))) | uint64(uint32(int32(p.Y)))<<32
		ret, _, _ = procChildWindowFromPointEx.Call(uintptr(parent), uintptr(packed), uintptr(flags))
	} else {
		ret, _, _ = procChildWindowFromPointEx.Call(uintptr(parent), uintptr(int32(p.X)), uintptr(int32(p.Y)), uintptr(flags))
	}
	return HWND(ret)
}

func (user32API) SendMessage(h HWND, msg uint32, wParam, lParam uintptr) uintptr {
	ret, _, _ := procSendMessageW.Call(uintptr(h), uintptr(msg), wParam, lParam)
	return ret
}

func (user32API) MapVirtualKey(code, mapType uint32) uint32 {
	ret, _, _ := procMapVirtualKeyW.Call(uintptr(code), uintptr(mapType))
	return uint32(ret)
}

func (user32API) IsMinimized(h HWND) bool {
	ret, _, _ := procIsIconic.Call(uintptr(h))
	return ret != 0
}

func (user32API) ShowWindow(h HWND, cmd int) bool {
	ret, _, _ := procShowWindow.Call(uintptr(h), uintptr(cmd))
	return ret != 0
}

func (user32API) WindowText(h HWND) string {
	buf := make([]uint16, 512)
	ret, _, _ := procGetWindowTextW.Call(uintptr(h), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if ret == 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:ret])
}

func (user32API) ClassName(h HWND) string {
	buf := make([]uint16, 256)
	n, err := windows.GetClassName(windows.HWND(h), &buf[0], int32(len(buf)))
	if err != nil || n == 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}

// One callback for the process lifetime; NewCallback slots are never freed.
var (
	enumMu       sync.Mutex
	enumHandles  []HWND
	enumCallback = windows.NewCallback(func(hwnd windows.HWND, _ uintptr) uintptr {
		enumHandles = append(enumHandles, HWND(hwnd))
		return 1 // continue enumeration
	})
)

func (user32API) TopLevelWindows() ([]HWND, error) {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumHandles = nil
	if err := windows.EnumWindows(enumCallback, nil); err != nil {
		return nil, err
	}
	handles := enumHandles
	enumHandles = nil
	return handles, nil
}

func fromRect(r windows.Rect) Rect {
	return Rect{Left: int(r.Left), Top: int(r.Top), Right: int(r.Right), Bottom: int(r.Bottom)}
}
