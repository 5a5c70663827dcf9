//go:build windows
// +build windows

package cv

import (
	"fmt"
	"image"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/win"
)

var (
	user32                     = windows.NewLazySystemDLL("user32.dll")
	gdi32                      = windows.NewLazySystemDLL("gdi32.dll")
	procGetWindowDC            = user32.NewProc("GetWindowDC")
	procReleaseDC              = user32.NewProc("ReleaseDC")
	procPrintWindow            = user32.NewProc("PrintWindow")
	procCreateCompatibleDC     = gdi32.NewProc("CreateCompatibleDC")
	procCreateCompatibleBitmap = gdi32.NewProc("CreateCompatibleBitmap")
	procSelectObject           = gdi32.NewProc("SelectObject")
	procBitBlt                 = gdi32.NewProc("BitBlt")
	procDeleteDC               = gdi32.NewProc("DeleteDC")
	procDeleteObject           = gdi32.NewProc("DeleteObject")
	procGetDIBits              = gdi32.NewProc("GetDIBits")
)

const (
	SRCCOPY        = 0x00CC0020
	BI_RGB         = 0
	DIB_RGB_COLORS = 0

	// PW_RENDERFULLCONTENT captures DirectComposition and GPU surfaces
	PW_RENDERFULLCONTENT = 0x00000002
)

// BITMAPINFOHEADER structure
type BITMAPINFOHEADER struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

// BITMAPINFO structure
type BITMAPINFO struct {
	BmiHeader BITMAPINFOHEADER
	BmiColors [1]uint32
}

// WindowCapture renders a window's full bounds into an off-screen bitmap.
// It works for occluded and unfocused windows.
type WindowCapture struct {
	api win.API
}

// NewWindowCapture creates a capturer backed by user32/gdi32
func NewWindowCapture(api win.API) *WindowCapture {
	return &WindowCapture{api: api}
}

// Capture grabs the current contents of h. PrintWindow is tried first; if the
// window refuses, a BitBlt of its DC is used instead.
func (wc *WindowCapture) Capture(h win.HWND) (*Frame, error) {
	if !wc.api.IsWindow(h) {
		return nil, fmt.Errorf("%w: %v", ErrCaptureUnavailable, win.ErrInvalidWindow)
	}

	rect, err := wc.api.WindowRect(h)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	width, height := rect.Width(), rect.Height()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: window area is %dx%d", ErrCaptureUnavailable, width, height)
	}

	hwnd := uintptr(h)
	hdcWindow, _, err := procGetWindowDC.Call(hwnd)
	if hdcWindow == 0 {
		return nil, fmt.Errorf("%w: GetWindowDC failed: %v", ErrCaptureUnavailable, err)
	}
	defer procReleaseDC.Call(hwnd, hdcWindow)

	hdcMem, _, err := procCreateCompatibleDC.Call(hdcWindow)
	if hdcMem == 0 {
		return nil, fmt.Errorf("%w: CreateCompatibleDC failed: %v", ErrCaptureUnavailable, err)
	}
	defer procDeleteDC.Call(hdcMem)

	hBitmap, _, err := procCreateCompatibleBitmap.Call(hdcWindow, uintptr(width), uintptr(height))
	if hBitmap == 0 {
		return nil, fmt.Errorf("%w: CreateCompatibleBitmap failed: %v", ErrCaptureUnavailable, err)
	}
	defer procDeleteObject.Call(hBitmap)

	method, err := render(hwnd, hdcWindow, hdcMem, hBitmap, width, height)
	if err != nil {
		return nil, err
	}

	var bi BITMAPINFO
	bi.BmiHeader.Size = uint32(unsafe.Sizeof(bi.BmiHeader))
	bi.BmiHeader.Width = int32(width)
	bi.BmiHeader.Height = -int32(height) // top-down rows
	bi.BmiHeader.Planes = 1
	bi.BmiHeader.BitCount = 32
	bi.BmiHeader.Compression = BI_RGB

	// the bitmap must not be selected into any DC here
	buffer := make([]byte, width*height*4)
	ret, _, err = procGetDIBits.Call(
		hdcMem,
		hBitmap,
		0,
		uintptr(height),
		uintptr(unsafe.Pointer(&buffer[0])),
		uintptr(unsafe.Pointer(&bi)),
		DIB_RGB_COLORS,
	)
	if ret == 0 {
		return nil, fmt.Errorf("%w: GetDIBits failed: %v", ErrCaptureUnavailable, err)
	}

	// BGRA to RGBA; GDI leaves alpha undefined
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(buffer); i += 4 {
		img.Pix[i] = buffer[i+2]
		img.Pix[i+1] = buffer[i+1]
		img.Pix[i+2] = buffer[i]
		img.Pix[i+3] = 255
	}

	return &Frame{
		Image:      img,
		Handle:     h,
		CapturedAt: time.Now(),
		Method:     method,
	}, nil
}

// render draws the window into hBitmap through hdcMem and deselects it again
func render(hwnd, hdcWindow, hdcMem, hBitmap uintptr, width, height int) (CaptureMethod, error) {
	old, _, _ := procSelectObject.Call(hdcMem, hBitmap)
	defer procSelectObject.Call(hdcMem, old)

	ret, _, _ := procPrintWindow.Call(hwnd, hdcMem, PW_RENDERFULLCONTENT)
	if ret == 1 {
		return CaptureMethodPrintWindow, nil
	}
	ret, _, err := procBitBlt.Call(
		hdcMem,
		0, 0,
		uintptr(width), uintptr(height),
		hdcWindow,
		0, 0,
		SRCCOPY,
	)
	if ret == 0 {
		return CaptureMethodBitBlt, fmt.Errorf("%w: PrintWindow refused and BitBlt failed: %v", ErrCaptureUnavailable, err)
	}
	return CaptureMethodBitBlt, nil
}
