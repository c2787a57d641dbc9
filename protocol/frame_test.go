package protocol

import (
	"bytes"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		channel Channel
		payload []byte
	}{
		{"empty", ChannelControl, nil},
		{"text", ChannelTextOut, []byte("\x1b[2J\x1b[H")},
		{"keyboard", ChannelKeyboardIn, []byte{0x1b, '[', 'A'}},
		{"max-ish", ChannelGfxRaw, bytes.Repeat([]byte{0xAA}, 70000)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteFrame(&buf, tc.channel, tc.payload); err != nil {
				t.Fatalf("WriteFrame: %v", err)
			}

			gotChannel, gotPayload, err := ReadFrame(&buf)
			if err != nil {
				t.Fatalf("ReadFrame: %v", err)
			}
			if gotChannel != tc.channel {
				t.Errorf("channel = %#x, want %#x", gotChannel, tc.channel)
			}
			if !bytes.Equal(gotPayload, tc.payload) {
				t.Errorf("payload = %v, want %v", gotPayload, tc.payload)
			}
		})
	}
}

func TestWriteFrameRejectsOversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	payload := make([]byte, maxPayloadLen+1)
	if err := WriteFrame(&buf, ChannelTextOut, payload); err != ErrPayloadTooLarge {
		t.Fatalf("err = %v, want ErrPayloadTooLarge", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no bytes written on rejection, got %d", buf.Len())
	}
}

func TestReadFrameIncompleteHeader(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0x01, 0x00})
	if _, _, err := ReadFrame(buf); err != ErrIncomplete {
		t.Fatalf("err = %v, want ErrIncomplete", err)
	}
}

func TestReadFramePeerClosedMidPayload(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0x01, 0x00, 0x00, 0x05, 'h', 'i'})
	if _, _, err := ReadFrame(buf); err != ErrPeerClosed {
		t.Fatalf("err = %v, want ErrPeerClosed", err)
	}
}

func TestHelloWireExample(t *testing.T) {
	// The exact CONTROL/HELLO payload bytes a client should see on connect.
	h := Hello{Version: ProtocolVersion, Capabilities: ServerCapabilities}
	payload := WrapControl(MsgHello, EncodeHello(h))

	want := []byte{0x01, 0x00, 0x01, 0x03, 0x01, 0x02, 0x03}
	if !bytes.Equal(payload, want) {
		t.Fatalf("payload = % x, want % x", payload, want)
	}

	var buf bytes.Buffer
	if err := WriteFrame(&buf, ChannelControl, payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	wantFrame := []byte{0x00, 0x00, 0x00, 0x07, 0x01, 0x00, 0x01, 0x03, 0x01, 0x02, 0x03}
	if !bytes.Equal(buf.Bytes(), wantFrame) {
		t.Fatalf("frame = % x, want % x", buf.Bytes(), wantFrame)
	}
}

func TestModeTextWireExample(t *testing.T) {
	// The exact CONTROL/MODE_TEXT payload bytes for an 80x25 text mode.
	payload := WrapControl(MsgModeText, EncodeModeText(ModeText{Cols: 80, Rows: 25}))
	var buf bytes.Buffer
	if err := WriteFrame(&buf, ChannelControl, payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	want := []byte{0x00, 0x00, 0x00, 0x05, 0x10, 0x00, 0x50, 0x00, 0x19}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("frame = % x, want % x", buf.Bytes(), want)
	}
}
