// Package keymap turns a byte stream of terminal input (plain ASCII and
// escape sequences) into BIOS keycodes for injection into an emulated
// keyboard, the reverse direction of the CSI/SS3 byte sequences a
// terminal emulator would send for those same keys.
package keymap

import "github.com/moonshot-emu/textstream/internal/hostio"

// asciiScancode maps a 7-bit ASCII value to the DOS BIOS scancode that
// would have produced it. Index 0 is unused.
var asciiScancode = [128]uint8{
	0x00, 0x1E, 0x30, 0x2E, 0x20, 0x12, 0x21, 0x22, 0x0E, 0x0F, 0x1C, 0x25, 0x26, 0x1C, 0x31, 0x18,
	0x19, 0x10, 0x13, 0x1F, 0x14, 0x16, 0x2F, 0x11, 0x2D, 0x15, 0x2C, 0x01, 0x2B, 0x1B, 0x07, 0x0C,
	0x39, 0x02, 0x28, 0x04, 0x05, 0x06, 0x08, 0x28, 0x0A, 0x0B, 0x09, 0x0D, 0x33, 0x0C, 0x34, 0x35,
	0x0B, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x27, 0x27, 0x33, 0x0D, 0x34, 0x35,
	0x03, 0x1E, 0x30, 0x2E, 0x20, 0x12, 0x21, 0x22, 0x23, 0x17, 0x24, 0x25, 0x26, 0x32, 0x31, 0x18,
	0x19, 0x10, 0x13, 0x1F, 0x14, 0x16, 0x2F, 0x11, 0x2D, 0x15, 0x2C, 0x1A, 0x2B, 0x1B, 0x07, 0x0C,
	0x29, 0x1E, 0x30, 0x2E, 0x20, 0x12, 0x21, 0x22, 0x23, 0x17, 0x24, 0x25, 0x26, 0x32, 0x31, 0x18,
	0x19, 0x10, 0x13, 0x1F, 0x14, 0x16, 0x2F, 0x11, 0x2D, 0x15, 0x2C, 0x1A, 0x2B, 0x1B, 0x29, 0x0E,
}

// state is the tokenizer's current position in the escape-sequence state
// machine.
type state int

const (
	stateNormal state = iota
	stateESC
	stateCSI
	stateSS3
)

// Tokenizer converts a byte stream into BIOS keycodes, dispatched to a
// hostio.KeyInjector as they're recognized. It holds no reference to a
// connection; feed it bytes as they arrive from the KEYBOARD_IN channel.
type Tokenizer struct {
	st     state
	params []byte
	sink   hostio.KeyInjector
}

// NewTokenizer returns a Tokenizer that dispatches recognized keys to sink.
func NewTokenizer(sink hostio.KeyInjector) *Tokenizer {
	return &Tokenizer{st: stateNormal, sink: sink}
}

// Feed processes one input byte, advancing the state machine and
// dispatching zero or one key injection.
func (t *Tokenizer) Feed(b byte) {
	switch t.st {
	case stateNormal:
		t.feedNormal(b)
	case stateESC:
		t.feedESC(b)
	case stateCSI:
		t.feedCSI(b)
	case stateSS3:
		t.feedSS3(b)
	}
}

// FeedAll processes a byte slice in order.
func (t *Tokenizer) FeedAll(data []byte) {
	for _, b := range data {
		t.Feed(b)
	}
}

// State reports the tokenizer's current state, for tests asserting the
// parser-reset property.
func (t *Tokenizer) State() state { return t.st }

// InNormalState reports whether the tokenizer is idle with an empty
// parameter buffer — the state it must return to after every dispatch.
func (t *Tokenizer) InNormalState() bool {
	return t.st == stateNormal && len(t.params) == 0
}

func (t *Tokenizer) feedNormal(b byte) {
	switch {
	case b == 0x1B:
		t.st = stateESC
	case b == 0x7F:
		t.inject(0x0E, 0x08, false) // DEL -> Backspace
	case b == 0x0D:
		t.inject(0x1C, 0x0D, false) // Enter
	case b == 0x09:
		t.inject(0x0F, 0x09, false) // Tab
	case b == 0x08:
		t.inject(0x0E, 0x08, false) // Backspace
	case b < 0x20:
		if b >= 1 && b <= 26 {
			sc := asciiScancode['a'+b-1]
			t.inject(sc, b, false)
		}
	case b < 0x80:
		sc := asciiScancode[b]
		t.inject(sc, b, false)
	}
}

func (t *Tokenizer) feedESC(b byte) {
	switch {
	case b == '[':
		t.st = stateCSI
		t.params = t.params[:0]
	case b == 'O':
		t.st = stateSS3
	case b >= 'a' && b <= 'z':
		sc := asciiScancode[b]
		t.sink.InjectKey(uint16(sc) << 8)
		t.st = stateNormal
	default:
		t.inject(0x01, 0x1B, false) // bare ESC
		t.st = stateNormal
	}
}

func (t *Tokenizer) feedCSI(b byte) {
	switch {
	case b >= 0x30 && b <= 0x3F:
		t.params = append(t.params, b)
	case b >= 0x40 && b <= 0x7E:
		t.dispatchCSIFinal(b)
		t.params = t.params[:0]
		t.st = stateNormal
	default:
		t.params = t.params[:0]
		t.st = stateNormal
	}
}

func (t *Tokenizer) dispatchCSIFinal(final byte) {
	switch final {
	case 'A':
		t.inject(0x48, 0, true) // Up
	case 'B':
		t.inject(0x50, 0, true) // Down
	case 'C':
		t.inject(0x4D, 0, true) // Right
	case 'D':
		t.inject(0x4B, 0, true) // Left
	case 'H':
		t.inject(0x47, 0, true) // Home
	case 'F':
		t.inject(0x4F, 0, true) // End
	case '~':
		t.dispatchTilde(parseParam(t.params))
	}
}

func (t *Tokenizer) dispatchTilde(param int) {
	switch param {
	case 1:
		t.inject(0x47, 0, true) // Home
	case 2:
		t.inject(0x52, 0, true) // Insert
	case 3:
		t.inject(0x53, 0, true) // Delete
	case 4:
		t.inject(0x4F, 0, true) // End
	case 5:
		t.inject(0x49, 0, true) // PgUp
	case 6:
		t.inject(0x51, 0, true) // PgDn
	case 11:
		t.inject(0x3B, 0, false) // F1
	case 12:
		t.inject(0x3C, 0, false) // F2
	case 13:
		t.inject(0x3D, 0, false) // F3
	case 14:
		t.inject(0x3E, 0, false) // F4
	case 15:
		t.inject(0x3F, 0, false) // F5
	case 17:
		t.inject(0x40, 0, false) // F6
	case 18:
		t.inject(0x41, 0, false) // F7
	case 19:
		t.inject(0x42, 0, false) // F8
	case 20:
		t.inject(0x43, 0, false) // F9
	case 21:
		t.inject(0x44, 0, false) // F10
	case 23:
		t.inject(0x85, 0, false) // F11
	case 24:
		t.inject(0x86, 0, false) // F12
	}
}

func (t *Tokenizer) feedSS3(b byte) {
	switch b {
	case 'A':
		t.inject(0x48, 0, true) // Up
	case 'B':
		t.inject(0x50, 0, true) // Down
	case 'C':
		t.inject(0x4D, 0, true) // Right
	case 'D':
		t.inject(0x4B, 0, true) // Left
	case 'P':
		t.inject(0x3B, 0, false) // F1
	case 'Q':
		t.inject(0x3C, 0, false) // F2
	case 'R':
		t.inject(0x3D, 0, false) // F3
	case 'S':
		t.inject(0x3E, 0, false) // F4
	}
	t.st = stateNormal
}

// inject posts one keycode to the sink. For extended keys the low byte is
// always 0; for non-extended keys it carries the ASCII value.
func (t *Tokenizer) inject(scancode, ascii uint8, extended bool) {
	var keycode uint16
	if extended {
		keycode = uint16(scancode) << 8
	} else {
		keycode = uint16(scancode)<<8 | uint16(ascii)
	}
	t.sink.InjectKey(keycode)
}

// parseParam parses a CSI parameter buffer as an unsigned decimal integer,
// stopping at the first non-digit byte (so "1;5" yields 1, the first
// parameter, not 15) and returning 0 for an empty buffer — matching
// atoi's behavior on both counts.
func parseParam(params []byte) int {
	n := 0
	for _, b := range params {
		if b < '0' || b > '9' {
			break
		}
		n = n*10 + int(b-'0')
	}
	return n
}
