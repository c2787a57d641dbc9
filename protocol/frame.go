// Package protocol implements the length-prefixed multi-channel wire format
// used between the emulator host and a remote text/keyboard viewer, plus the
// control-channel message payloads exchanged during session setup.
package protocol

import (
	"errors"
	"io"
)

// Channel identifies which logical stream a frame belongs to. Payload
// layout is owned by whichever component reads that channel.
type Channel uint8

const (
	ChannelControl    Channel = 0x00
	ChannelTextOut    Channel = 0x01
	ChannelKeyboardIn Channel = 0x02
	ChannelMouseIn    Channel = 0x03

	ChannelGfxRaw  Channel = 0x40
	ChannelGfxPNG  Channel = 0x41
	ChannelGfxJPEG Channel = 0x42
	ChannelGfxH264 Channel = 0x43

	ChannelAudioPCM  Channel = 0x50
	ChannelAudioOpus Channel = 0x51
)

// maxPayloadLen is the largest payload length representable in the frame's
// 24-bit length field.
const maxPayloadLen = 0xFFFFFF

// headerSize is the fixed 4-byte header: 1 channel byte + 3 length bytes.
const headerSize = 4

var (
	// ErrPayloadTooLarge is returned by WriteFrame when the payload exceeds
	// the 24-bit length field.
	ErrPayloadTooLarge = errors.New("protocol: payload exceeds 24-bit length field")

	// ErrIncomplete is returned by ReadFrame when fewer than 4 header bytes
	// could be read before the peer closed the connection.
	ErrIncomplete = errors.New("protocol: incomplete frame header")

	// ErrPeerClosed is returned by ReadFrame when the peer closed the
	// connection while a payload was still being read.
	ErrPeerClosed = errors.New("protocol: peer closed connection mid-frame")
)

// WriteFrame serialises channel and payload as a single frame: a 4-byte
// header (channel id, 24-bit big-endian length) followed by the payload
// bytes. Returns ErrPayloadTooLarge without writing anything if payload
// exceeds the 24-bit length field.
//
// WriteFrame performs two separate Write calls (header, then payload) and
// does not retry partial writes — callers that need single-writer framing
// across concurrent goroutines must serialise calls themselves, the same
// discipline stream.Transport.Send applies around this function.
func WriteFrame(w io.Writer, channel Channel, payload []byte) error {
	if len(payload) > maxPayloadLen {
		return ErrPayloadTooLarge
	}

	var header [headerSize]byte
	header[0] = byte(channel)
	length := uint32(len(payload))
	header[1] = byte(length >> 16)
	header[2] = byte(length >> 8)
	header[3] = byte(length)

	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one frame from r: 4 header bytes followed by exactly the
// declared payload length. Returns ErrIncomplete if the header itself could
// not be read in full, or ErrPeerClosed if the connection closed while the
// payload was still arriving.
func ReadFrame(r io.Reader) (Channel, []byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, ErrIncomplete
	}

	channel := Channel(header[0])
	length := uint32(header[1])<<16 | uint32(header[2])<<8 | uint32(header[3])

	if length == 0 {
		return channel, nil, nil
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return channel, nil, ErrPeerClosed
	}
	return channel, payload, nil
}
