// Package hostio defines the interfaces this module expects the emulator
// host to implement. The module ships no concrete emulator: everything
// here is a seam for a real VGA core (or a demo stand-in, see
// cmd/textstream-host) to plug into the session and rendering pipeline.
package hostio

// VGAMode enumerates the host's reported display mode. Values mirror the
// ad-hoc mode constants used by the emulator this module was extracted
// from; only the text/graphics/other classification in Classify matters
// to the session controller.
type VGAMode int

const (
	ModeText       VGAMode = iota // M_TEXT
	ModeHercText                  // M_HERC_TEXT
	ModeTandyText                 // M_TANDY_TEXT
	ModeCGA2                      // M_CGA2
	ModeCGA4                      // M_CGA4
	ModeCGA16                     // M_CGA16
	ModeEGA                       // M_EGA
	ModeVGA                       // M_VGA
	ModeLin4                      // M_LIN4
	ModeLin8                      // M_LIN8
	ModeLin15                     // M_LIN15
	ModeLin16                     // M_LIN16
	ModeLin24                     // M_LIN24
	ModeLin32                     // M_LIN32
	ModeOther                     // anything else the host reports
)

// ModeClass is the coarse classification the session controller acts on.
type ModeClass int

const (
	ClassText ModeClass = iota
	ClassGraphics
	ClassOther
)

// Classify buckets a VGAMode into the three classes the session controller
// cares about: text modes drive the renderer, graphics modes trigger
// MODE_UNSUPPORTED, everything else is treated the same as graphics.
func (m VGAMode) Classify() ModeClass {
	switch m {
	case ModeText, ModeHercText, ModeTandyText:
		return ClassText
	case ModeCGA2, ModeCGA4, ModeCGA16, ModeEGA, ModeVGA,
		ModeLin4, ModeLin8, ModeLin15, ModeLin16, ModeLin24, ModeLin32:
		return ClassGraphics
	default:
		return ClassOther
	}
}

// TextGeometry is the raw register state needed to locate and walk the
// active text plane: the offset register (logical row width in words,
// so the column count is twice its value), the maximum
// scanline register (used to derive character cell height), the vertical
// display end register, and the computed display start address.
type TextGeometry struct {
	OffsetRegister             uint16
	MaxScanlineRegister        uint8
	VerticalDisplayEndRegister uint16
	DisplayStart               uint32
}

// CursorRegisters is the raw cursor register state: cursor location high
// byte, cursor location low byte, and the cursor start (shape/enable) byte.
type CursorRegisters struct {
	LocationHigh uint8
	LocationLow  uint8
	Start        uint8
}

// VideoSource is implemented by the emulator host. It is the only way
// this module observes VGA state; nothing here owns or simulates a video
// card.
type VideoSource interface {
	// VGAMode reports the host's current display mode.
	VGAMode() VGAMode

	// TextGeometry reports the register state needed to walk the text
	// plane. Only meaningful while VGAMode().Classify() == ClassText.
	TextGeometry() TextGeometry

	// ReadTextByte reads one byte at a physical address inside the text
	// plane (character or attribute byte, depending on addr's parity).
	ReadTextByte(addr uint32) uint8

	// CursorRegisters reports the current cursor register state.
	CursorRegisters() CursorRegisters
}

// KeyInjector is implemented by the emulator host's keyboard controller.
// InjectKey enqueues one BIOS keycode (scancode in the high byte, ASCII
// or 0 in the low byte) as if it had arrived from a physical keyboard.
type KeyInjector interface {
	InjectKey(code uint16)
}

// VSyncSource is implemented by the emulator host's display tick source.
// Subscribe registers handler to be called once per vsync; the returned
// function, if non-nil, cancels the subscription. A host that cannot
// cancel a subscription may return nil.
type VSyncSource interface {
	Subscribe(handler func()) (cancel func())
}
