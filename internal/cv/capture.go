package cv

import (
	"errors"
	"image"
	"sync"
	"time"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/win"
)

// ErrCaptureUnavailable is returned when no frame could be produced this poll
var ErrCaptureUnavailable = errors.New("capture unavailable")

// Capturer produces frames of a window's current contents
type Capturer interface {
	Capture(h win.HWND) (*Frame, error)
}

// CaptureFunc adapts a function to Capturer
type CaptureFunc func(h win.HWND) (*Frame, error)

func (f CaptureFunc) Capture(h win.HWND) (*Frame, error) {
	return f(h)
}

// CaptureMethod records how a frame's pixels were obtained
type CaptureMethod int

const (
	// CaptureMethodPrintWindow asks the window to render itself off-screen
	CaptureMethodPrintWindow CaptureMethod = iota
	// CaptureMethodBitBlt copies what is already drawn; may be stale when occluded
	CaptureMethodBitBlt
	// CaptureMethodSynthetic marks frames built in memory
	CaptureMethodSynthetic
)

func (m CaptureMethod) String() string {
	switch m {
	case CaptureMethodPrintWindow:
		return "PrintWindow"
	case CaptureMethodBitBlt:
		return "BitBlt"
	default:
		return "synthetic"
	}
}

// Frame is one captured image of one window. Pixels are opaque RGB; the alpha
// byte is always 255. A Frame must not be modified after creation.
type Frame struct {
	Image      *image.RGBA
	Handle     win.HWND
	CapturedAt time.Time
	Method     CaptureMethod

	edgesOnce sync.Once
	edges     *image.Gray
	edgeBits  *bitmap
}

// NewFrame wraps img as a frame of h, forcing every pixel opaque
func NewFrame(h win.HWND, img *image.RGBA) *Frame {
	b := img.Bounds()
	if b.Min != (image.Point{}) {
		img = CropRegion(img, b)
	}
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return &Frame{
		Image:      img,
		Handle:     h,
		CapturedAt: time.Now(),
		Method:     CaptureMethodSynthetic,
	}
}

// Width returns the frame width in pixels
func (f *Frame) Width() int { return f.Image.Bounds().Dx() }

// Height returns the frame height in pixels
func (f *Frame) Height() int { return f.Image.Bounds().Dy() }

// Edges returns the dilated Canny edge map of the frame, computed once
func (f *Frame) Edges() *image.Gray {
	f.edgesOnce.Do(func() {
		f.edges = EdgeMap(f.Image)
		f.edgeBits = toBitmap(f.edges, 1)
	})
	return f.edges
}

func (f *Frame) edgeBitmap() *bitmap {
	f.Edges()
	return f.edgeBits
}
