package stream

import (
	"sync"

	"github.com/moonshot-emu/textstream/internal/hostio"
	"github.com/moonshot-emu/textstream/protocol"
)

// SessionSnapshot is a consistent point-in-time copy of Session's flags,
// taken under Session's single mutex so the vsync context never observes
// a torn combination of fields — handshakeDone in particular gates both
// TEXT_OUT emission and mode notification and must not be read alone.
type SessionSnapshot struct {
	HandshakeDone bool
	WantsText     bool
	WantsGraphics bool
	WantsAudio    bool
	ForceRedraw   bool
	LastMode      hostio.VGAMode
	ModeNotified  bool
}

// Session tracks one client's handshake state, advertised capabilities,
// and the mode-change bookkeeping the vsync path consults every tick. All
// mutation happens under one mutex; readers take a Snapshot rather than
// reading individual fields.
type Session struct {
	mu sync.Mutex

	handshakeDone bool
	wantsText     bool
	wantsGraphics bool
	wantsAudio    bool
	forceRedraw   bool
	lastMode      hostio.VGAMode
	modeNotified  bool
	haveLastMode  bool
}

// NewSession returns a fresh, un-handshaken Session. ForceRedraw starts
// set so the first tick after a handshake always performs a full redraw
// instead of diffing against an empty Previous grid.
func NewSession() *Session {
	return &Session{forceRedraw: true}
}

// Reset clears handshake and capability state, for a disconnect or a
// server-initiated GOODBYE. The mode/modeNotified bookkeeping is left
// alone so a reconnecting client doesn't trigger a spurious redraw purely
// from session recreation; ForceRedraw is set instead, which does.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handshakeDone = false
	s.wantsText = false
	s.wantsGraphics = false
	s.wantsAudio = false
	s.forceRedraw = true
}

// HandleHello decodes a client HELLO payload, records the capabilities it
// implies, and marks the handshake complete. Parsing tolerates a
// truncated capability list and unknown ids; it only fails on a payload
// shorter than the 3-byte fixed header.
func (s *Session) HandleHello(payload []byte) (protocol.Hello, error) {
	hello, err := protocol.DecodeHello(payload)
	if err != nil {
		return hello, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.wantsText = hello.HasCapability(protocol.CapTextOutput)
	s.wantsGraphics = hello.HasCapability(protocol.CapGraphicsPNG) ||
		hello.HasCapability(protocol.CapGraphicsJPEG) ||
		hello.HasCapability(protocol.CapGraphicsH264)
	s.wantsAudio = hello.HasCapability(protocol.CapAudioPCM) ||
		hello.HasCapability(protocol.CapAudioOpus)
	s.handshakeDone = true
	return hello, nil
}

// HandleRefresh implements the client's REFRESH control message: force a
// full redraw on the next vsync tick.
func (s *Session) HandleRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forceRedraw = true
}

// ConsumeForceRedraw reports and clears the pending force-redraw flag.
func (s *Session) ConsumeForceRedraw() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.forceRedraw
	s.forceRedraw = false
	return v
}

// SetForceRedraw sets the force-redraw flag, used internally by the
// stream orchestrator when it detects a mode or dimension change.
func (s *Session) SetForceRedraw() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forceRedraw = true
}

// NoteModeObserved records the emulator's currently observed mode. It
// reports whether this differs from the last observed mode; on a change
// it clears modeNotified so the caller knows to send a fresh MODE_* frame.
func (s *Session) NoteModeObserved(mode hostio.VGAMode) (changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed = !s.haveLastMode || mode != s.lastMode
	if changed {
		s.lastMode = mode
		s.haveLastMode = true
		s.modeNotified = false
	}
	return changed
}

// MarkModeNotified records that a MODE_* frame has been sent for the
// currently observed mode.
func (s *Session) MarkModeNotified() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modeNotified = true
}

// Snapshot returns a consistent copy of all session flags.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionSnapshot{
		HandshakeDone: s.handshakeDone,
		WantsText:     s.wantsText,
		WantsGraphics: s.wantsGraphics,
		WantsAudio:    s.wantsAudio,
		ForceRedraw:   s.forceRedraw,
		LastMode:      s.lastMode,
		ModeNotified:  s.modeNotified,
	}
}
