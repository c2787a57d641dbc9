package protocol

import (
	"reflect"
	"testing"
)

func TestHelloRoundTrip(t *testing.T) {
	h := Hello{Version: 0x0001, Capabilities: []Capability{CapTextOutput, CapKeyboardInput, CapMouseInput}}
	got, err := DecodeHello(EncodeHello(h))
	if err != nil {
		t.Fatalf("DecodeHello: %v", err)
	}
	if !reflect.DeepEqual(got, h) {
		t.Fatalf("got %+v, want %+v", got, h)
	}
}

func TestDecodeHelloTruncatedCapabilityList(t *testing.T) {
	// Declares 5 capabilities but only 2 bytes follow; must not error.
	payload := []byte{0x00, 0x01, 0x05, byte(CapTextOutput), byte(CapGraphicsPNG)}
	h, err := DecodeHello(payload)
	if err != nil {
		t.Fatalf("DecodeHello: %v", err)
	}
	if len(h.Capabilities) != 2 {
		t.Fatalf("len(Capabilities) = %d, want 2", len(h.Capabilities))
	}
}

func TestDecodeHelloUnknownCapabilityIsTolerated(t *testing.T) {
	payload := []byte{0x00, 0x01, 0x01, 0xEE}
	h, err := DecodeHello(payload)
	if err != nil {
		t.Fatalf("DecodeHello: %v", err)
	}
	if h.HasCapability(CapTextOutput) {
		t.Fatalf("unexpected capability match")
	}
}

func TestDecodeHelloRejectsShortPayload(t *testing.T) {
	if _, err := DecodeHello([]byte{0x00, 0x01}); err != ErrMalformedPayload {
		t.Fatalf("err = %v, want ErrMalformedPayload", err)
	}
}

func TestModeTextRoundTrip(t *testing.T) {
	m := ModeText{Cols: 80, Rows: 25}
	got, err := DecodeModeText(EncodeModeText(m))
	if err != nil {
		t.Fatalf("DecodeModeText: %v", err)
	}
	if got != m {
		t.Fatalf("got %+v, want %+v", got, m)
	}
}

func TestResizeRoundTrip(t *testing.T) {
	r := Resize{Cols: 132, Rows: 43}
	got, err := DecodeResize(EncodeResize(r))
	if err != nil {
		t.Fatalf("DecodeResize: %v", err)
	}
	if got != r {
		t.Fatalf("got %+v, want %+v", got, r)
	}
}

func TestUnwrapControlRejectsEmptyPayload(t *testing.T) {
	if _, _, err := UnwrapControl(nil); err != ErrMalformedPayload {
		t.Fatalf("err = %v, want ErrMalformedPayload", err)
	}
}

func TestWrapUnwrapControl(t *testing.T) {
	wrapped := WrapControl(MsgRefresh, nil)
	msg, rest, err := UnwrapControl(wrapped)
	if err != nil {
		t.Fatalf("UnwrapControl: %v", err)
	}
	if msg != MsgRefresh {
		t.Fatalf("msg = %v, want MsgRefresh", msg)
	}
	if len(rest) != 0 {
		t.Fatalf("rest = %v, want empty", rest)
	}
}
