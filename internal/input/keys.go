package input

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/win"
)

// ErrUnsupportedKey is wrapped by every KeyError
var ErrUnsupportedKey = errors.New("unsupported key")

// KeyError names a key that has no virtual key code
type KeyError struct {
	Name string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("unsupported key: %q", e.Name)
}

func (e *KeyError) Unwrap() error {
	return ErrUnsupportedKey
}

var namedKeys = map[string]uint32{
	"space":   win.VK_SPACE,
	"shift":   win.VK_SHIFT,
	"ctrl":    win.VK_CONTROL,
	"control": win.VK_CONTROL,
	"alt":     win.VK_MENU,
	"tab":     win.VK_TAB,
	"esc":     win.VK_ESCAPE,
	"escape":  win.VK_ESCAPE,
}

// ResolveKey maps a script key name to a virtual key code. Single characters
// map to their upper-case code point; digits and a few named keys are fixed.
func ResolveKey(name string) (uint32, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if utf8.RuneCountInString(n) == 1 {
		r, _ := utf8.DecodeRuneInString(strings.ToUpper(n))
		return uint32(r), nil
	}
	if vk, ok := namedKeys[n]; ok {
		return vk, nil
	}
	return 0, &KeyError{Name: name}
}
