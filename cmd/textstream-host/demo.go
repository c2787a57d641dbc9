package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/moonshot-emu/textstream/internal/hostio"
)

// demoCols and demoRows fix the simulated text plane's geometry: 80x25,
// the same dimensions the module's own stream tests drive a fake host
// with.
const (
	demoCols = 80
	demoRows = 25
	demoBase = 0xB8000
)

// demoHost is a self-contained stand-in for a real VGA core: it implements
// hostio.VideoSource, hostio.KeyInjector, and hostio.VSyncSource so
// stream.Stream has something to attach to without a real emulator
// present. It renders a scrolling banner and echoes whatever the client
// types back onto the bottom row.
type demoHost struct {
	mu      sync.Mutex
	mem     map[uint32]uint8
	cursor  hostio.CursorRegisters
	echoBuf []byte
	tick    uint64

	subMu sync.Mutex
	subs  map[int]func()
	nextH int
}

func newDemoHost() *demoHost {
	h := &demoHost{
		mem:  make(map[uint32]uint8, demoCols*demoRows*2),
		subs: make(map[int]func()),
	}
	h.paintBanner()
	return h
}

func (h *demoHost) VGAMode() hostio.VGAMode { return hostio.ModeText }

func (h *demoHost) TextGeometry() hostio.TextGeometry {
	return hostio.TextGeometry{
		OffsetRegister:             demoCols / 2,
		MaxScanlineRegister:        15,
		VerticalDisplayEndRegister: 399,
	}
}

func (h *demoHost) ReadTextByte(addr uint32) uint8 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mem[addr]
}

func (h *demoHost) CursorRegisters() hostio.CursorRegisters {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor
}

// InjectKey implements hostio.KeyInjector. The demo host has no real
// keyboard controller to forward to, so it echoes the ASCII byte (if any)
// onto the bottom row, a visible round trip for KEYBOARD_IN traffic.
func (h *demoHost) InjectKey(code uint16) {
	ascii := byte(code)
	if ascii < 0x20 || ascii >= 0x7F {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.echoBuf = append(h.echoBuf, ascii)
	if len(h.echoBuf) > demoCols {
		h.echoBuf = h.echoBuf[len(h.echoBuf)-demoCols:]
	}
	h.paintEchoRowLocked()
	h.cursor.LocationHigh = uint8(((demoRows - 1) * demoCols) >> 8)
	h.cursor.LocationLow = uint8(((demoRows-1)*demoCols + len(h.echoBuf)) & 0xFF)
}

// Subscribe implements hostio.VSyncSource.
func (h *demoHost) Subscribe(handler func()) (cancel func()) {
	h.subMu.Lock()
	id := h.nextH
	h.nextH++
	h.subs[id] = handler
	h.subMu.Unlock()

	return func() {
		h.subMu.Lock()
		delete(h.subs, id)
		h.subMu.Unlock()
	}
}

// Run drives the demo simulation and fires every subscribed handler once
// per tick until done is closed.
func (h *demoHost) Run(done <-chan struct{}, rate time.Duration) {
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			h.advance()
			h.fireSubscribers()
		}
	}
}

func (h *demoHost) fireSubscribers() {
	h.subMu.Lock()
	handlers := make([]func(), 0, len(h.subs))
	for _, fn := range h.subs {
		handlers = append(handlers, fn)
	}
	h.subMu.Unlock()

	for _, fn := range handlers {
		fn()
	}
}

func (h *demoHost) advance() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tick++
	h.paintBannerLocked()
}

func (h *demoHost) setCell(row, col int, ch byte, attr uint8) {
	addr := uint32(demoBase + (row*demoCols+col)*2)
	h.mem[addr] = ch
	h.mem[addr+1] = attr
}

func (h *demoHost) paintBanner() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for row := 0; row < demoRows; row++ {
		for col := 0; col < demoCols; col++ {
			h.setCell(row, col, ' ', 0x07)
		}
	}
	h.paintBannerLocked()
	h.paintEchoRowLocked()
}

// paintBannerLocked writes a one-line marquee across row 0 that shifts one
// column per tick, and a tick counter on row 1. Caller holds h.mu.
func (h *demoHost) paintBannerLocked() {
	const text = "  TEXTSTREAM DEMO HOST -- type to see KEYBOARD_IN echoed below  "
	offset := int(h.tick) % len(text)
	for col := 0; col < demoCols; col++ {
		ch := text[(col+offset)%len(text)]
		h.setCell(0, col, ch, 0x1F)
	}

	counter := fmt.Sprintf("vsync tick %d", h.tick)
	for col := 0; col < demoCols; col++ {
		var ch byte = ' '
		if col < len(counter) {
			ch = counter[col]
		}
		h.setCell(1, col, ch, 0x07)
	}
}

// paintEchoRowLocked redraws the bottom row from echoBuf. Caller holds h.mu.
func (h *demoHost) paintEchoRowLocked() {
	row := demoRows - 1
	for col := 0; col < demoCols; col++ {
		var ch byte = ' '
		if col < len(h.echoBuf) {
			ch = h.echoBuf[col]
		}
		h.setCell(row, col, ch, 0x2F)
	}
}
