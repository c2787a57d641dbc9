package keymap

import "testing"

type fakeInjector struct {
	codes []uint16
}

func (f *fakeInjector) InjectKey(code uint16) {
	f.codes = append(f.codes, code)
}

// CSI arrow key sequence dispatches to an extended scancode.
func TestCSIArrowUp(t *testing.T) {
	sink := &fakeInjector{}
	tok := NewTokenizer(sink)
	tok.FeedAll([]byte{0x1B, 0x5B, 0x41})

	if len(sink.codes) != 1 || sink.codes[0] != 0x4800 {
		t.Fatalf("codes = %#v, want [0x4800]", sink.codes)
	}
	if !tok.InNormalState() {
		t.Errorf("tokenizer not reset to NORMAL after dispatch")
	}
}

// Function key via CSI numeric-tilde (F9).
func TestCSITildeF9(t *testing.T) {
	sink := &fakeInjector{}
	tok := NewTokenizer(sink)
	tok.FeedAll([]byte{0x1B, 0x5B, 0x32, 0x30, 0x7E})

	if len(sink.codes) != 1 || sink.codes[0] != 0x4300 {
		t.Fatalf("codes = %#v, want [0x4300]", sink.codes)
	}
	if !tok.InNormalState() {
		t.Errorf("tokenizer not reset to NORMAL after dispatch")
	}
}

// Ctrl-A dispatches via the ASCII->scancode table.
func TestCtrlA(t *testing.T) {
	sink := &fakeInjector{}
	tok := NewTokenizer(sink)
	tok.Feed(0x01)

	if len(sink.codes) != 1 || sink.codes[0] != 0x1E01 {
		t.Fatalf("codes = %#v, want [0x1E01]", sink.codes)
	}
}

func TestPlainASCII(t *testing.T) {
	sink := &fakeInjector{}
	tok := NewTokenizer(sink)
	tok.Feed('a')

	want := uint16(asciiScancode['a'])<<8 | uint16('a')
	if len(sink.codes) != 1 || sink.codes[0] != want {
		t.Fatalf("codes = %#v, want [%#x]", sink.codes, want)
	}
}

func TestAltLetterBypass(t *testing.T) {
	sink := &fakeInjector{}
	tok := NewTokenizer(sink)
	tok.FeedAll([]byte{0x1B, 'a'})

	want := uint16(asciiScancode['a']) << 8
	if len(sink.codes) != 1 || sink.codes[0] != want {
		t.Fatalf("codes = %#v, want [%#x] (no ASCII byte)", sink.codes, want)
	}
	if !tok.InNormalState() {
		t.Errorf("tokenizer not reset to NORMAL after Alt+letter")
	}
}

func TestBareEscape(t *testing.T) {
	sink := &fakeInjector{}
	tok := NewTokenizer(sink)
	tok.FeedAll([]byte{0x1B, '9'}) // not '[', not 'O', not a-z -> bare ESC

	if len(sink.codes) != 1 || sink.codes[0] != 0x011B {
		t.Fatalf("codes = %#v, want [0x011B]", sink.codes)
	}
}

func TestSS3ArrowsAndFunctionKeys(t *testing.T) {
	cases := []struct {
		final byte
		want  uint16
	}{
		{'A', 0x4800},
		{'B', 0x5000},
		{'C', 0x4D00},
		{'D', 0x4B00},
		{'P', 0x3B00},
		{'Q', 0x3C00},
		{'R', 0x3D00},
		{'S', 0x3E00},
	}
	for _, tc := range cases {
		sink := &fakeInjector{}
		tok := NewTokenizer(sink)
		tok.FeedAll([]byte{0x1B, 'O', tc.final})
		if len(sink.codes) != 1 || sink.codes[0] != tc.want {
			t.Errorf("SS3 %q: codes = %#v, want [%#x]", string(tc.final), sink.codes, tc.want)
		}
		if !tok.InNormalState() {
			t.Errorf("SS3 %q: tokenizer not reset to NORMAL", string(tc.final))
		}
	}
}

// Parser resets to NORMAL, injecting nothing, when a CSI sequence is
// cut short by a byte that is neither a parameter nor a final byte.
func TestParserResetAfterNonFinalCSIByte(t *testing.T) {
	sink := &fakeInjector{}
	tok := NewTokenizer(sink)
	tok.FeedAll([]byte{0x1B, 0x5B, 0x7F}) // 0x7F is outside 0x40..0x7E

	if len(sink.codes) != 0 {
		t.Fatalf("unrecognized CSI byte injected a key: %#v", sink.codes)
	}
	if !tok.InNormalState() {
		t.Errorf("tokenizer not reset to NORMAL after unrecognized CSI byte")
	}
}

// Modifier parameters (CSI 1;5~) must dispatch on the first parameter
// (Home), not on the two params concatenated as a single decimal run.
func TestCSITildeWithModifierParam(t *testing.T) {
	sink := &fakeInjector{}
	tok := NewTokenizer(sink)
	tok.FeedAll([]byte{0x1B, 0x5B, '1', ';', '5', 0x7E})

	if len(sink.codes) != 1 || sink.codes[0] != 0x4700 {
		t.Fatalf("codes = %#v, want [0x4700] (Home)", sink.codes)
	}
	if !tok.InNormalState() {
		t.Errorf("tokenizer not reset to NORMAL after dispatch")
	}
}

func TestCSIUnknownFinalStillResets(t *testing.T) {
	sink := &fakeInjector{}
	tok := NewTokenizer(sink)
	tok.FeedAll([]byte{0x1B, 0x5B, 'Z'}) // valid final range, no case matches

	if len(sink.codes) != 0 {
		t.Fatalf("unknown CSI final injected a key: %#v", sink.codes)
	}
	if !tok.InNormalState() {
		t.Errorf("tokenizer not reset to NORMAL after unknown CSI final")
	}
}
