package textmode

import "github.com/moonshot-emu/textstream/internal/hostio"

// MaxCols and MaxRows bound the fixed-capacity cell grid. Geometry beyond
// these is clamped, never allocated past.
const (
	MaxCols = 132
	MaxRows = 60
)

// Cell is one character-and-attribute pair read from the text plane.
type Cell struct {
	Char      uint8
	Attribute uint8
}

// Cursor is the snapshot cursor position and visibility.
type Cursor struct {
	Row, Col uint16
	Visible  bool
}

// Screen holds the current and previous cell grids plus cursor state for
// one session. Rows/Cols are always within [1, MaxRows]/[1, MaxCols];
// only the first Rows*Cols entries of each grid are meaningful.
type Screen struct {
	Cols, Rows         int
	prevCols, prevRows int

	Current  [MaxRows][MaxCols]Cell
	Previous [MaxRows][MaxCols]Cell

	Cursor     Cursor
	PrevCursor Cursor

	unstable bool
}

// Geometry computes cols/rows from the emulator's text geometry registers:
// cols is twice the offset register clamped to
// [1, MaxCols] (defaulting to 80 when the register is zero); rows is
// (vertical_display_end+1)/(max_scanline+1) clamped to [1, MaxRows]
// (defaulting to 25 when max_scanline is zero), with values below 24
// corrected to 25 as a transient mode-switch artefact.
func Geometry(g hostio.TextGeometry) (cols, rows int) {
	cols = int(g.OffsetRegister) * 2
	if cols == 0 {
		cols = 80
	}
	if cols > MaxCols {
		cols = MaxCols
	}
	if cols < 1 {
		cols = 1
	}

	maxScanline := int(g.MaxScanlineRegister & 0x1F)
	if maxScanline > 0 {
		rows = (int(g.VerticalDisplayEndRegister) + 1) / (maxScanline + 1)
	} else {
		rows = 25
	}
	if rows < 24 {
		rows = 25
	}
	if rows > MaxRows {
		rows = MaxRows
	}
	if rows < 1 {
		rows = 1
	}
	return cols, rows
}

// Resize sets the screen's dimensions, reporting whether they changed from
// the prior call. A changed dimension also marks the screen Unstable for
// this tick, signalling that the caller may want to suppress emission
// during a transient mode switch instead of forcing the clamp-and-redraw
// behavior immediately; the caller decides which policy to apply.
func (s *Screen) Resize(cols, rows int) (changed bool) {
	changed = cols != s.prevCols || rows != s.prevRows
	s.Cols, s.Rows = cols, rows
	s.unstable = changed
	s.prevCols, s.prevRows = cols, rows
	return changed
}

// Unstable reports whether the most recent Resize call changed dimensions.
func (s *Screen) Unstable() bool {
	return s.unstable
}

// Snapshot reads Rows*Cols cells from src starting at physical address
// base, two bytes per cell (character, attribute), row-major, and records
// the cursor position and visibility.
func (s *Screen) Snapshot(src hostio.VideoSource, base uint32) {
	for row := 0; row < s.Rows; row++ {
		for col := 0; col < s.Cols; col++ {
			addr := base + uint32((row*s.Cols+col)*2)
			s.Current[row][col] = Cell{
				Char:      src.ReadTextByte(addr),
				Attribute: src.ReadTextByte(addr + 1),
			}
		}
	}

	regs := src.CursorRegisters()
	pos := int(regs.LocationHigh)<<8 | int(regs.LocationLow)
	row, col := 0, 0
	if s.Cols > 0 {
		row, col = pos/s.Cols, pos%s.Cols
	}
	s.Cursor = Cursor{
		Row:     uint16(row),
		Col:     uint16(col),
		Visible: regs.Start&0x20 == 0,
	}
}

// Commit advances Previous/PrevCursor to the just-rendered Current/Cursor.
// Called once per tick after emission, regardless of whether anything was
// actually emitted.
func (s *Screen) Commit() {
	s.Previous = s.Current
	s.PrevCursor = s.Cursor
}
