package main

import (
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/moonshot-emu/textstream/protocol"
)

func main() {
	var (
		socketPath string
		verbose    bool
	)

	root := &cobra.Command{
		Use:   "textstream-client",
		Short: "Connects to a textstream host, renders TEXT_OUT, and forwards keystrokes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(socketPath, verbose)
		},
		DisableAutoGenTag: true,
	}

	root.Flags().StringVar(&socketPath, "socket", "/tmp/textstream.sock", "primary Unix socket path")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "print MODE_* notifications to stderr")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runClient(socketPath string, verbose bool) error {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	if err := handshake(conn); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}

	stdinFd := int(os.Stdin.Fd())
	prevState, err := term.MakeRaw(stdinFd)
	if err != nil {
		return fmt.Errorf("raw mode: %w", err)
	}
	defer term.Restore(stdinFd, prevState)

	errCh := make(chan error, 2)
	go forwardKeyboard(conn, errCh)
	go renderLoop(conn, verbose, errCh)

	return <-errCh
}

// handshake performs the CONTROL/HELLO exchange: read the server's HELLO,
// then send ours advertising the capabilities this client actually
// implements.
func handshake(conn net.Conn) error {
	channel, payload, err := protocol.ReadFrame(conn)
	if err != nil {
		return fmt.Errorf("reading server HELLO: %w", err)
	}
	if channel != protocol.ChannelControl {
		return fmt.Errorf("expected CONTROL frame, got channel %#x", channel)
	}
	msg, rest, err := protocol.UnwrapControl(payload)
	if err != nil || msg != protocol.MsgHello {
		return fmt.Errorf("expected HELLO, got %v (%v)", msg, err)
	}
	if _, err := protocol.DecodeHello(rest); err != nil {
		return fmt.Errorf("decoding server HELLO: %w", err)
	}

	clientHello := protocol.Hello{
		Version:      protocol.ProtocolVersion,
		Capabilities: []protocol.Capability{protocol.CapTextOutput, protocol.CapKeyboardInput},
	}
	return protocol.WriteFrame(conn, protocol.ChannelControl, protocol.WrapControl(protocol.MsgHello, protocol.EncodeHello(clientHello)))
}

// forwardKeyboard copies raw stdin bytes onto KEYBOARD_IN, one frame per
// read, matching how a real terminal delivers keystrokes as they arrive
// rather than batching them.
func forwardKeyboard(conn net.Conn, errCh chan<- error) {
	buf := make([]byte, 256)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			if werr := protocol.WriteFrame(conn, protocol.ChannelKeyboardIn, buf[:n]); werr != nil {
				errCh <- fmt.Errorf("writing KEYBOARD_IN: %w", werr)
				return
			}
		}
		if err != nil {
			errCh <- fmt.Errorf("reading stdin: %w", err)
			return
		}
	}
}

// renderLoop reads frames off the connection and writes TEXT_OUT payloads
// straight to stdout; they're already a complete ANSI escape stream.
func renderLoop(conn net.Conn, verbose bool, errCh chan<- error) {
	for {
		channel, payload, err := protocol.ReadFrame(conn)
		if err != nil {
			errCh <- fmt.Errorf("reading frame: %w", err)
			return
		}

		switch channel {
		case protocol.ChannelTextOut:
			os.Stdout.Write(payload)
		case protocol.ChannelControl:
			handleControl(payload, verbose)
		}
	}
}

func handleControl(payload []byte, verbose bool) {
	msg, rest, err := protocol.UnwrapControl(payload)
	if err != nil {
		return
	}
	switch msg {
	case protocol.MsgModeText:
		if verbose {
			mode, err := protocol.DecodeModeText(rest)
			if err == nil {
				fmt.Fprintf(os.Stderr, "\r\n[textstream] MODE_TEXT %dx%d\r\n", mode.Cols, mode.Rows)
			}
		}
	case protocol.MsgModeUnsupported:
		if verbose {
			fmt.Fprint(os.Stderr, "\r\n[textstream] MODE_UNSUPPORTED\r\n")
		}
	}
}
