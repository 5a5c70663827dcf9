//go:build !windows
// +build !windows

package cv

import (
	"fmt"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/win"
)

// WindowCapture is unavailable off Windows; every capture fails
type WindowCapture struct {
	api win.API
}

// NewWindowCapture returns a capturer that always reports ErrCaptureUnavailable
func NewWindowCapture(api win.API) *WindowCapture {
	return &WindowCapture{api: api}
}

func (wc *WindowCapture) Capture(h win.HWND) (*Frame, error) {
	return nil, fmt.Errorf("%w: %v", ErrCaptureUnavailable, win.ErrUnsupported)
}
