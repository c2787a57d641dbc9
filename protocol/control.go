package protocol

import "errors"

// ControlMessage is the first payload byte on ChannelControl, identifying
// the kind of control message that follows.
type ControlMessage uint8

const (
	MsgHello   ControlMessage = 0x01
	MsgGoodbye ControlMessage = 0x02

	MsgModeText        ControlMessage = 0x10
	MsgModeGraphics    ControlMessage = 0x11
	MsgModeUnsupported ControlMessage = 0x12

	MsgRefresh ControlMessage = 0x20
	MsgResize  ControlMessage = 0x21

	MsgCapsQuery ControlMessage = 0x30
	MsgCapsReply ControlMessage = 0x31
)

// Capability identifies one client- or server-advertised feature in a
// HELLO payload's capability list.
type Capability uint8

const (
	CapTextOutput    Capability = 0x01
	CapKeyboardInput Capability = 0x02
	CapMouseInput    Capability = 0x03
	CapGraphicsPNG   Capability = 0x10
	CapGraphicsJPEG  Capability = 0x11
	CapGraphicsH264  Capability = 0x12
	CapAudioPCM      Capability = 0x20
	CapAudioOpus     Capability = 0x21
)

// ProtocolVersion is the version advertised in every HELLO payload.
const ProtocolVersion uint16 = 0x0001

// ServerCapabilities are the capabilities this core advertises in its own
// HELLO. Graphics and audio channels exist on the wire (see Channel) but
// are not yet implemented by this core, so they are not advertised.
var ServerCapabilities = []Capability{CapTextOutput, CapKeyboardInput, CapMouseInput}

var (
	// ErrMalformedPayload is returned when a control payload is shorter
	// than its fixed fields require.
	ErrMalformedPayload = errors.New("protocol: malformed control payload")
)

// Hello is the HELLO control payload exchanged by both peers during the
// handshake: protocol version followed by a capability-id list.
type Hello struct {
	Version      uint16
	Capabilities []Capability
}

// EncodeHello serialises a Hello as: version (2 bytes BE) + count (1 byte)
// + capability ids (1 byte each).
func EncodeHello(h Hello) []byte {
	out := make([]byte, 0, 3+len(h.Capabilities))
	out = append(out, byte(h.Version>>8), byte(h.Version))
	out = append(out, byte(len(h.Capabilities)))
	for _, cap := range h.Capabilities {
		out = append(out, byte(cap))
	}
	return out
}

// DecodeHello parses a HELLO payload. Parsing tolerates a
// truncated capability list — it stops at whatever prefix of the declared
// count is actually present in the payload — and never fails on an unknown
// capability id; only a payload shorter than the 3-byte fixed header is
// rejected.
func DecodeHello(payload []byte) (Hello, error) {
	if len(payload) < 3 {
		return Hello{}, ErrMalformedPayload
	}
	h := Hello{Version: uint16(payload[0])<<8 | uint16(payload[1])}
	count := int(payload[2])
	available := payload[3:]
	if count > len(available) {
		count = len(available)
	}
	h.Capabilities = make([]Capability, count)
	for i := 0; i < count; i++ {
		h.Capabilities[i] = Capability(available[i])
	}
	return h, nil
}

// HasCapability reports whether id appears in the capability list.
func (h Hello) HasCapability(id Capability) bool {
	for _, cap := range h.Capabilities {
		if cap == id {
			return true
		}
	}
	return false
}

// ModeText is the MODE_TEXT control payload: the negotiated text-mode
// geometry, cols then rows, both big-endian 16-bit.
type ModeText struct {
	Cols uint16
	Rows uint16
}

// EncodeModeText serialises a ModeText payload.
func EncodeModeText(m ModeText) []byte {
	return []byte{
		byte(m.Cols >> 8), byte(m.Cols),
		byte(m.Rows >> 8), byte(m.Rows),
	}
}

// DecodeModeText parses a MODE_TEXT payload.
func DecodeModeText(payload []byte) (ModeText, error) {
	if len(payload) < 4 {
		return ModeText{}, ErrMalformedPayload
	}
	return ModeText{
		Cols: uint16(payload[0])<<8 | uint16(payload[1]),
		Rows: uint16(payload[2])<<8 | uint16(payload[3]),
	}, nil
}

// Resize is the client-to-server RESIZE control payload. This core records
// it (for logging) but does not propagate it to the guest.
type Resize struct {
	Cols uint16
	Rows uint16
}

// EncodeResize serialises a Resize payload.
func EncodeResize(r Resize) []byte {
	return []byte{
		byte(r.Cols >> 8), byte(r.Cols),
		byte(r.Rows >> 8), byte(r.Rows),
	}
}

// DecodeResize parses a RESIZE payload.
func DecodeResize(payload []byte) (Resize, error) {
	if len(payload) < 4 {
		return Resize{}, ErrMalformedPayload
	}
	return Resize{
		Cols: uint16(payload[0])<<8 | uint16(payload[1]),
		Rows: uint16(payload[2])<<8 | uint16(payload[3]),
	}, nil
}

// WrapControl prefixes a control message's type byte onto its payload, as
// sent on ChannelControl.
func WrapControl(msg ControlMessage, payload []byte) []byte {
	out := make([]byte, 0, 1+len(payload))
	out = append(out, byte(msg))
	out = append(out, payload...)
	return out
}

// UnwrapControl splits a ChannelControl payload into its message type and
// the remaining bytes. Returns ErrMalformedPayload for an empty payload.
func UnwrapControl(payload []byte) (ControlMessage, []byte, error) {
	if len(payload) < 1 {
		return 0, nil, ErrMalformedPayload
	}
	return ControlMessage(payload[0]), payload[1:], nil
}
