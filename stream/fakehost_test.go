package stream

import (
	"sync"

	"github.com/moonshot-emu/textstream/internal/hostio"
)

// fakeVideo is a minimal in-memory hostio.VideoSource for tests. It has no
// relation to any real VGA core; it exists only to drive Stream.
type fakeVideo struct {
	mu     sync.Mutex
	mode   hostio.VGAMode
	geom   hostio.TextGeometry
	mem    map[uint32]uint8
	cursor hostio.CursorRegisters
}

func newFakeVideo() *fakeVideo {
	return &fakeVideo{mode: hostio.ModeText, mem: make(map[uint32]uint8)}
}

func (f *fakeVideo) VGAMode() hostio.VGAMode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

func (f *fakeVideo) SetMode(m hostio.VGAMode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mode = m
}

func (f *fakeVideo) TextGeometry() hostio.TextGeometry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.geom
}

func (f *fakeVideo) SetGeometry(g hostio.TextGeometry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.geom = g
}

func (f *fakeVideo) ReadTextByte(addr uint32) uint8 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mem[addr]
}

func (f *fakeVideo) CursorRegisters() hostio.CursorRegisters {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cursor
}

func (f *fakeVideo) SetCursor(c hostio.CursorRegisters) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursor = c
}

// FillPlane writes rows*cols default cells (space, attribute 0x07)
// starting at physical address base.
func (f *fakeVideo) FillPlane(base uint32, cols, rows int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			addr := base + uint32((row*cols+col)*2)
			f.mem[addr] = ' '
			f.mem[addr+1] = 0x07
		}
	}
}

// SetCell writes one character/attribute pair at (row, col) within a
// cols-wide plane starting at base.
func (f *fakeVideo) SetCell(base uint32, cols, row, col int, ch, attr uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	addr := base + uint32((row*cols+col)*2)
	f.mem[addr] = ch
	f.mem[addr+1] = attr
}

type fakeKeys struct {
	mu    sync.Mutex
	codes []uint16
}

func (f *fakeKeys) InjectKey(code uint16) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = append(f.codes, code)
}

func (f *fakeKeys) Codes() []uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]uint16, len(f.codes))
	copy(out, f.codes)
	return out
}
