package input

// MakeLong packs two 16-bit values the way MAKELONG does
func MakeLong(low, high int) uintptr {
	return uintptr(uint32(high&0xFFFF)<<16 | uint32(low&0xFFFF))
}

// PackPoint packs a point into a mouse message lParam
func PackPoint(x, y int) uintptr {
	return MakeLong(x, y)
}

// KeyLParam builds the lParam of WM_KEYDOWN/WM_KEYUP: repeat count 1, the
// scan code in bits 16-23 and, for key-up, the previous-state and
// transition bits.
func KeyLParam(scan uint32, up bool) uintptr {
	lp := uint32(1) | (scan&0xFF)<<16
	if up {
		lp |= 1<<30 | 1<<31
	}
	return uintptr(lp)
}

// WheelWParam places a signed wheel delta in the high word
func WheelWParam(delta int) uintptr {
	return uintptr(uint32(delta&0xFFFF) << 16)
}
