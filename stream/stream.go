// Package stream ties the wire protocol, session handshake, differential
// text renderer, and input tokenizer into the one orchestrator an
// emulator host attaches to its display tick and keyboard controller.
package stream

import (
	"sync"

	"github.com/moonshot-emu/textstream/internal/hostio"
	"github.com/moonshot-emu/textstream/internal/keymap"
	"github.com/moonshot-emu/textstream/internal/textmode"
	"github.com/moonshot-emu/textstream/protocol"
)

// textPlaneBase is the physical segment base of the VGA text plane.
const textPlaneBase = 0xB8000

// Stream is the top-level owned value an emulator host creates, attaches
// to its vsync source, and closes on shutdown. It replaces the original
// reference's process-wide singleton: none of a Stream's state lives in a
// package-level variable, and a host may in principle run more than one.
type Stream struct {
	transport *Transport
	session   *Session
	screen    *textmode.Screen
	renderer  *textmode.Renderer
	tokenizer *keymap.Tokenizer

	video hostio.VideoSource

	enabledMu sync.Mutex
	enabled   bool

	textBuf []byte

	vsyncCancel func()

	quit chan struct{}
	wg   sync.WaitGroup
}

// New returns a Stream wired to the given video source and key injector.
// Call Listen to start accepting a client and Attach to start ticking.
func New(video hostio.VideoSource, keys hostio.KeyInjector) *Stream {
	return &Stream{
		transport: NewTransport(),
		session:   NewSession(),
		screen:    &textmode.Screen{},
		renderer:  textmode.NewRenderer(),
		tokenizer: keymap.NewTokenizer(keys),
		video:     video,
		enabled:   true,
		quit:      make(chan struct{}),
	}
}

// Listen starts the transport's accept loop and this Stream's dispatch
// loop, which handles control/keyboard/mouse frames and connect/disconnect
// events as they arrive.
func (s *Stream) Listen(primaryPath, bulkPath string) error {
	if err := s.transport.Listen(primaryPath, bulkPath); err != nil {
		return err
	}
	s.wg.Add(1)
	go s.dispatchLoop()
	return nil
}

// Attach subscribes OnVSync to the host's display tick source. Stream.Close
// unsubscribes again through the cancel function the source returned,
// mirroring the reference's explicit init/shutdown pair instead of a
// global singleton.
func (s *Stream) Attach(vsync hostio.VSyncSource) {
	s.vsyncCancel = vsync.Subscribe(s.OnVSync)
}

// SetEnabled toggles whether OnVSync does anything. Disabling does not
// drop the client connection or reset the session.
func (s *Stream) SetEnabled(enabled bool) {
	s.enabledMu.Lock()
	defer s.enabledMu.Unlock()
	s.enabled = enabled
}

// Enabled reports the current enabled state.
func (s *Stream) Enabled() bool {
	s.enabledMu.Lock()
	defer s.enabledMu.Unlock()
	return s.enabled
}

// Invalidate forces the next text-mode vsync tick to perform a full
// redraw and resets the renderer's attribute/position sentinels.
func (s *Stream) Invalidate() {
	s.renderer.Invalidate()
	s.session.SetForceRedraw()
}

// Stats returns the underlying transport's byte/frame counters.
func (s *Stream) Stats() TransportStats {
	return s.transport.Stats()
}

func (s *Stream) dispatchLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.quit:
			return
		case ev := <-s.transport.Events():
			s.handleEvent(ev)
		case f := <-s.transport.Frames():
			s.dispatchFrame(f)
		}
	}
}

func (s *Stream) handleEvent(ev Event) {
	switch ev {
	case EventConnected:
		s.sendServerHello()
	case EventDisconnected:
		s.session.Reset()
	}
}

func (s *Stream) sendServerHello() {
	hello := protocol.Hello{Version: protocol.ProtocolVersion, Capabilities: protocol.ServerCapabilities}
	s.transport.Send(protocol.ChannelControl, protocol.WrapControl(protocol.MsgHello, protocol.EncodeHello(hello)))
}

func (s *Stream) dispatchFrame(f Frame) {
	switch f.Channel {
	case protocol.ChannelControl:
		s.handleControl(f.Payload)
	case protocol.ChannelKeyboardIn:
		s.tokenizer.FeedAll(f.Payload)
	case protocol.ChannelMouseIn:
		debugLog.Printf("stream: mouse input ignored (%d bytes)", len(f.Payload))
	default:
		debugLog.Printf("stream: unknown channel %#x ignored", f.Channel)
	}
}

func (s *Stream) handleControl(payload []byte) {
	msg, rest, err := protocol.UnwrapControl(payload)
	if err != nil {
		debugLog.Printf("stream: malformed control payload: %v", err)
		return
	}

	switch msg {
	case protocol.MsgHello:
		if _, err := s.session.HandleHello(rest); err != nil {
			debugLog.Printf("stream: malformed HELLO: %v", err)
			return
		}
		// Handshake complete; notify the client of the current mode
		// without waiting for the next vsync tick. This also primes
		// the session's mode-tracking state so the first OnVSync tick
		// doesn't perceive an unrelated "change".
		s.noteAndMaybeNotify(true)
	case protocol.MsgGoodbye:
		// GOODBYE is the client telling us it's leaving; close the
		// connection from our end too rather than leaving the socket
		// open and the accept loop wedged waiting on a peer that
		// already considers the session over.
		s.transport.DropClient()
		s.session.Reset()
	case protocol.MsgRefresh:
		s.Invalidate()
	case protocol.MsgResize:
		resize, err := protocol.DecodeResize(rest)
		if err != nil {
			debugLog.Printf("stream: malformed RESIZE: %v", err)
			return
		}
		debugLog.Printf("stream: client requested resize to %dx%d (recorded only)", resize.Cols, resize.Rows)
	default:
		debugLog.Printf("stream: unknown control message %#x ignored", msg)
	}
}

func (s *Stream) sendModeNotification() {
	mode := s.video.VGAMode()
	if mode.Classify() == hostio.ClassText {
		cols, rows := textmode.Geometry(s.video.TextGeometry())
		// Prime the screen's dimensions to whatever we just announced so
		// the first renderText call doesn't see its own initial Resize
		// as a fresh dimension change and re-announce the same MODE_TEXT.
		s.screen.Resize(cols, rows)
		payload := protocol.EncodeModeText(protocol.ModeText{Cols: uint16(cols), Rows: uint16(rows)})
		s.transport.Send(protocol.ChannelControl, protocol.WrapControl(protocol.MsgModeText, payload))
	} else {
		s.transport.Send(protocol.ChannelControl, protocol.WrapControl(protocol.MsgModeUnsupported, nil))
	}
	s.session.MarkModeNotified()
}

// noteAndMaybeNotify records the emulator's currently observed mode and
// sends a MODE_* frame when it changed, or unconditionally when force is
// set (the handshake-completion case, which always notifies once even
// though there is by definition no prior mode to compare against).
func (s *Stream) noteAndMaybeNotify(force bool) (changed bool) {
	mode := s.video.VGAMode()
	changed = s.session.NoteModeObserved(mode)
	if changed || force {
		s.sendModeNotification()
	}
	return changed
}

// OnVSync is called once per display tick by the host's hostio.VSyncSource.
// It is the entire vsync-context half of the concurrency model: it never
// blocks on anything but the transport's best-effort socket write.
func (s *Stream) OnVSync() {
	if !s.Enabled() || !s.transport.Connected() {
		return
	}
	if !s.session.Snapshot().HandshakeDone {
		return
	}

	periodicResync := s.renderer.Tick()

	if s.noteAndMaybeNotify(false) {
		s.session.SetForceRedraw()
	}

	if s.video.VGAMode().Classify() != hostio.ClassText {
		return
	}
	if !s.session.Snapshot().WantsText {
		return
	}

	s.renderText(periodicResync)
}

func (s *Stream) renderText(periodicResync bool) {
	geom := s.video.TextGeometry()
	cols, rows := textmode.Geometry(geom)

	if s.screen.Resize(cols, rows) {
		s.sendModeNotification()
		s.session.SetForceRedraw()
	}

	base := uint32(textPlaneBase) + geom.DisplayStart*2
	s.screen.Snapshot(s.video, base)

	forceRedraw := s.session.ConsumeForceRedraw() || periodicResync
	s.textBuf = s.renderer.Render(s.textBuf[:0], s.screen, forceRedraw)
	if len(s.textBuf) > 0 {
		s.transport.Send(protocol.ChannelTextOut, s.textBuf)
	}
}

// Close unsubscribes from the vsync source, stops the dispatch loop, and
// closes the transport (which unlinks the primary path).
func (s *Stream) Close() error {
	if s.vsyncCancel != nil {
		s.vsyncCancel()
	}

	select {
	case <-s.quit:
	default:
		close(s.quit)
	}
	s.wg.Wait()

	return s.transport.Close()
}
