package stream

import (
	"testing"

	"github.com/moonshot-emu/textstream/internal/hostio"
	"github.com/moonshot-emu/textstream/protocol"
)

func TestSessionHandleHelloSetsCapabilities(t *testing.T) {
	cases := []struct {
		name         string
		caps         []protocol.Capability
		wantText     bool
		wantGraphics bool
		wantAudio    bool
	}{
		{"text-only", []protocol.Capability{protocol.CapTextOutput}, true, false, false},
		{"text-and-keyboard", []protocol.Capability{protocol.CapTextOutput, protocol.CapKeyboardInput}, true, false, false},
		{"graphics-png", []protocol.Capability{protocol.CapGraphicsPNG}, false, true, false},
		{"audio-opus", []protocol.Capability{protocol.CapAudioOpus}, false, false, true},
		{"none", nil, false, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSession()
			hello := protocol.Hello{Version: protocol.ProtocolVersion, Capabilities: tc.caps}
			if _, err := s.HandleHello(protocol.EncodeHello(hello)); err != nil {
				t.Fatalf("HandleHello: %v", err)
			}

			snap := s.Snapshot()
			if !snap.HandshakeDone {
				t.Error("HandshakeDone = false after valid HELLO")
			}
			if snap.WantsText != tc.wantText {
				t.Errorf("WantsText = %v, want %v", snap.WantsText, tc.wantText)
			}
			if snap.WantsGraphics != tc.wantGraphics {
				t.Errorf("WantsGraphics = %v, want %v", snap.WantsGraphics, tc.wantGraphics)
			}
			if snap.WantsAudio != tc.wantAudio {
				t.Errorf("WantsAudio = %v, want %v", snap.WantsAudio, tc.wantAudio)
			}
		})
	}
}

func TestSessionHandleHelloRejectsMalformed(t *testing.T) {
	s := NewSession()
	if _, err := s.HandleHello([]byte{0x00}); err != protocol.ErrMalformedPayload {
		t.Fatalf("err = %v, want ErrMalformedPayload", err)
	}
	if s.Snapshot().HandshakeDone {
		t.Error("HandshakeDone = true after malformed HELLO")
	}
}

func TestSessionResetClearsHandshakeAndForcesRedraw(t *testing.T) {
	s := NewSession()
	hello := protocol.Hello{Version: protocol.ProtocolVersion, Capabilities: protocol.ServerCapabilities}
	if _, err := s.HandleHello(protocol.EncodeHello(hello)); err != nil {
		t.Fatalf("HandleHello: %v", err)
	}

	s.Reset()
	snap := s.Snapshot()
	if snap.HandshakeDone {
		t.Error("HandshakeDone still true after Reset")
	}
	if !snap.ForceRedraw {
		t.Error("ForceRedraw not set after Reset")
	}
}

func TestSessionConsumeForceRedrawClearsFlag(t *testing.T) {
	s := NewSession()
	s.HandleRefresh()
	if !s.ConsumeForceRedraw() {
		t.Fatal("ConsumeForceRedraw = false after HandleRefresh")
	}
	if s.ConsumeForceRedraw() {
		t.Fatal("ConsumeForceRedraw did not clear the flag")
	}
}

func TestSessionNoteModeObservedDetectsFirstAndSubsequentChanges(t *testing.T) {
	s := NewSession()

	if !s.NoteModeObserved(hostio.ModeText) {
		t.Error("first NoteModeObserved call should report a change")
	}
	if s.NoteModeObserved(hostio.ModeText) {
		t.Error("repeating the same mode should not report a change")
	}
	if !s.NoteModeObserved(hostio.ModeVGA) {
		t.Error("switching modes should report a change")
	}
}

func TestSessionMarkModeNotified(t *testing.T) {
	s := NewSession()
	s.NoteModeObserved(hostio.ModeText)
	if s.Snapshot().ModeNotified {
		t.Error("ModeNotified true before MarkModeNotified")
	}
	s.MarkModeNotified()
	if !s.Snapshot().ModeNotified {
		t.Error("ModeNotified false after MarkModeNotified")
	}
}
