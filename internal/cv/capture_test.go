//go:build windows
// +build windows

package cv

import (
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/win"
)

// findTestWindow picks a visible window the smoke tests can capture
func findTestWindow(t testing.TB) win.HWND {
	api := win.Default()
	windows, err := win.Enumerate(api)
	if err != nil {
		t.Skipf("window enumeration failed: %v", err)
	}
	for _, keyword := range []string{"二重螺旋", "Notepad", "记事本", "Calculator"} {
		if w, ok := win.FindByKeyword(windows, keyword); ok {
			return w.Handle
		}
	}
	t.Skip("No test window found. Please open the game client, Notepad or Calculator")
	return 0
}

func TestWindowCapture(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping window capture test in short mode")
	}

	api := win.Default()
	hwnd := findTestWindow(t)
	rect, err := api.WindowRect(hwnd)
	if err != nil {
		t.Fatalf("WindowRect failed: %v", err)
	}

	frame, err := NewWindowCapture(api).Capture(hwnd)
	if err != nil {
		t.Fatalf("Failed to capture frame: %v", err)
	}
	t.Logf("captured %dx%d via %s", frame.Width(), frame.Height(), frame.Method)

	if frame.Width() != rect.Width() || frame.Height() != rect.Height() {
		t.Errorf("Frame size mismatch: expected %dx%d, got %dx%d",
			rect.Width(), rect.Height(), frame.Width(), frame.Height())
	}
	if frame.Handle != hwnd {
		t.Errorf("frame handle = %s, want %s", frame.Handle, hwnd)
	}
	for i := 3; i < len(frame.Image.Pix); i += 4 {
		if frame.Image.Pix[i] != 255 {
			t.Fatalf("pixel %d is not opaque", i/4)
		}
	}

	path := filepath.Join(t.TempDir(), "capture.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, frame.Image); err != nil {
		t.Errorf("could not save capture: %v", err)
	}
}

func TestWindowCaptureRepeated(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping window capture test in short mode")
	}

	api := win.Default()
	hwnd := findTestWindow(t)
	capture := NewWindowCapture(api)

	first, err := capture.Capture(hwnd)
	if err != nil {
		t.Fatalf("first capture failed: %v", err)
	}
	// pixels are read after the bitmap leaves the memory DC, so every
	// capture must yield a full frame of the same size
	for i := 0; i < 20; i++ {
		frame, err := capture.Capture(hwnd)
		if err != nil {
			t.Fatalf("capture %d failed: %v", i, err)
		}
		if frame.Image.Bounds() != first.Image.Bounds() {
			t.Fatalf("capture %d bounds = %v, want %v", i, frame.Image.Bounds(), first.Image.Bounds())
		}
	}
}

func TestWindowCaptureInvalidHandle(t *testing.T) {
	_, err := NewWindowCapture(win.Default()).Capture(0)
	if !errors.Is(err, ErrCaptureUnavailable) {
		t.Fatalf("expected ErrCaptureUnavailable, got %v", err)
	}
}

func BenchmarkWindowCapture(b *testing.B) {
	hwnd := findTestWindow(b)
	capture := NewWindowCapture(win.Default())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := capture.Capture(hwnd); err != nil {
			b.Fatalf("Capture failed: %v", err)
		}
	}
}
