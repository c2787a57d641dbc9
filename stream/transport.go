package stream

import (
	"errors"
	"net"
	"os"
	"sync"

	"github.com/moonshot-emu/textstream/protocol"
)

// ErrTransportUnavailable is returned by Listen when the socket cannot be
// created, bound, or placed into listening mode.
var ErrTransportUnavailable = errors.New("stream: transport unavailable")

// maxPayloadLen mirrors protocol's 24-bit length field; Send treats a
// larger payload as a silent no-op rather than propagating an error into
// the vsync path.
const maxPayloadLen = 0xFFFFFF

// Event reports a client connecting to or disconnecting from the
// transport's single socket.
type Event int

const (
	EventConnected Event = iota
	EventDisconnected
)

// Frame is one decoded (channel, payload) pair delivered to the session
// loop by the reader goroutine.
type Frame struct {
	Channel protocol.Channel
	Payload []byte
}

// TransportStats is a point-in-time snapshot of transport-level counters.
type TransportStats struct {
	BytesSent     uint64
	BytesReceived uint64
	FramesDropped uint64
}

// Transport owns the Unix-domain listener and the at-most-one active
// client connection. Writes are serialised through a send mutex so the
// vsync path and the session controller never interleave frames; reads
// happen only on the dedicated reader goroutine, which feeds decoded
// frames to Frames() and connect/disconnect events to Events().
//
// The backlog is effectively 1: acceptLoop only calls Accept again once
// the current connection's read loop has returned, so at most one client
// is ever active, matching the listen(primary_path) backlog-1 contract.
type Transport struct {
	primaryPath string
	listener    net.Listener

	connMu sync.Mutex
	conn   net.Conn

	sendMu sync.Mutex

	statsMu sync.Mutex
	stats   TransportStats

	frames chan Frame
	events chan Event
	quit   chan struct{}
	wg     sync.WaitGroup
}

// NewTransport returns an idle Transport; call Listen to start accepting.
func NewTransport() *Transport {
	return &Transport{
		frames: make(chan Frame, 64),
		events: make(chan Event, 4),
		quit:   make(chan struct{}),
	}
}

// Listen unlinks any pre-existing file at primaryPath, binds a Unix-domain
// stream listener there, and starts the accept loop. bulkPath is accepted
// for forward compatibility with a second, bulk-data stream but is not
// used by this core; that second stream is reserved for later.
func (t *Transport) Listen(primaryPath, bulkPath string) error {
	if err := os.RemoveAll(primaryPath); err != nil {
		return errors.Join(ErrTransportUnavailable, err)
	}

	l, err := net.Listen("unix", primaryPath)
	if err != nil {
		return errors.Join(ErrTransportUnavailable, err)
	}

	t.primaryPath = primaryPath
	t.listener = l
	t.wg.Add(1)
	go t.acceptLoop()
	return nil
}

func (t *Transport) acceptLoop() {
	defer t.wg.Done()
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.quit:
				return
			default:
				continue
			}
		}

		t.setConn(conn)
		t.postEvent(EventConnected)
		t.readLoop(conn)
		t.clearConn(conn)
		t.postEvent(EventDisconnected)
	}
}

func (t *Transport) readLoop(conn net.Conn) {
	for {
		channel, payload, err := protocol.ReadFrame(conn)
		if err != nil {
			debugLog.Printf("stream: read error, closing client: %v", err)
			_ = conn.Close()
			return
		}

		t.statsMu.Lock()
		t.stats.BytesReceived += uint64(4 + len(payload))
		t.statsMu.Unlock()

		select {
		case t.frames <- Frame{Channel: channel, Payload: payload}:
		case <-t.quit:
			return
		}
	}
}

func (t *Transport) postEvent(e Event) {
	select {
	case t.events <- e:
	default:
		// Events channel is small and advisory; a full channel means the
		// session loop is behind and will catch up via Connected()/frame
		// traffic regardless.
	}
}

func (t *Transport) setConn(c net.Conn) {
	t.connMu.Lock()
	t.conn = c
	t.connMu.Unlock()
}

func (t *Transport) clearConn(c net.Conn) {
	t.connMu.Lock()
	if t.conn == c {
		t.conn = nil
	}
	t.connMu.Unlock()
}

func (t *Transport) currentConn() net.Conn {
	t.connMu.Lock()
	defer t.connMu.Unlock()
	return t.conn
}

// Connected reports whether a client is currently attached.
func (t *Transport) Connected() bool {
	return t.currentConn() != nil
}

// DropClient closes the current client connection, if any. This makes
// acceptLoop's readLoop return with an error, which runs the usual
// clearConn/EventDisconnected path and then loops back into Accept for
// the next client — the proactive-close half of a server-initiated
// GOODBYE, as opposed to the client simply hanging up on its own.
func (t *Transport) DropClient() {
	if conn := t.currentConn(); conn != nil {
		_ = conn.Close()
	}
}

// Frames returns the channel of decoded frames read from the client.
func (t *Transport) Frames() <-chan Frame {
	return t.frames
}

// Events returns the channel of connect/disconnect notifications.
func (t *Transport) Events() <-chan Event {
	return t.events
}

// Send writes one frame to the current client, serialised against
// concurrent callers by a send mutex. A no-op if there is no client or
// the payload exceeds the 24-bit length field. A write error is logged
// and the frame is counted as dropped; the connection is not torn down
// (only a read error does that, via readLoop).
func (t *Transport) Send(channel protocol.Channel, payload []byte) {
	if len(payload) > maxPayloadLen {
		return
	}

	conn := t.currentConn()
	if conn == nil {
		return
	}

	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	if err := protocol.WriteFrame(conn, channel, payload); err != nil {
		debugLog.Printf("stream: write error on channel %#x: %v", channel, err)
		t.statsMu.Lock()
		t.stats.FramesDropped++
		t.statsMu.Unlock()
		return
	}

	t.statsMu.Lock()
	t.stats.BytesSent += uint64(4 + len(payload))
	t.statsMu.Unlock()
}

// Stats returns a snapshot of the transport's byte/frame counters.
func (t *Transport) Stats() TransportStats {
	t.statsMu.Lock()
	defer t.statsMu.Unlock()
	return t.stats
}

// Close stops the accept loop and reader goroutine, closes the listener
// and any active client connection, and unlinks the primary path.
func (t *Transport) Close() error {
	select {
	case <-t.quit:
		return nil
	default:
		close(t.quit)
	}

	if t.listener != nil {
		_ = t.listener.Close()
	}
	if conn := t.currentConn(); conn != nil {
		_ = conn.Close()
	}
	t.wg.Wait()

	if t.primaryPath != "" {
		_ = os.RemoveAll(t.primaryPath)
	}
	return nil
}
