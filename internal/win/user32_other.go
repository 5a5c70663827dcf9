//go:build !windows
// +build !windows

package win

type unsupportedAPI struct{}

// Default returns an API whose calls all fail; background input needs user32
func Default() API {
	return unsupportedAPI{}
}

func (unsupportedAPI) IsWindow(HWND) bool        { return false }
func (unsupportedAPI) IsWindowVisible(HWND) bool { return false }

func (unsupportedAPI) WindowRect(HWND) (Rect, error) { return Rect{}, ErrUnsupported }
func (unsupportedAPI) ClientRect(HWND) (Rect, error) { return Rect{}, ErrUnsupported }

func (unsupportedAPI) ScreenToClient(_ HWND, p Point) (Point, error) { return p, ErrUnsupported }
func (unsupportedAPI) ClientToScreen(_ HWND, p Point) (Point, error) { return p, ErrUnsupported }

func (unsupportedAPI) ChildWindowFromPointEx(HWND, Point, uint32) HWND { return 0 }

func (unsupportedAPI) SendMessage(HWND, uint32, uintptr, uintptr) uintptr { return 0 }
func (unsupportedAPI) MapVirtualKey(uint32, uint32) uint32              { return 0 }

func (unsupportedAPI) IsMinimized(HWND) bool     { return false }
func (unsupportedAPI) ShowWindow(HWND, int) bool { return false }
func (unsupportedAPI) WindowText(HWND) string    { return "" }
func (unsupportedAPI) ClassName(HWND) string     { return "" }

func (unsupportedAPI) TopLevelWindows() ([]HWND, error) { return nil, ErrUnsupported }
