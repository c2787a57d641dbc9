package textmode

import "github.com/mattn/go-runewidth"

// defaultAttribute is the VGA default attribute, light grey on black.
const defaultAttribute = 0x07

// noAttribute is the sentinel meaning "nothing emitted yet this frame" —
// distinct from every real attribute byte, so the first cell always emits
// its SGR.
const noAttribute = 0xFF

// RenderState tracks what the renderer last actually emitted: attr lets a
// run of cells with the same attribute skip redundant SGR escapes, and
// row/col record the last tracked write-head position (no emission
// consults them; every cursor move is emitted explicitly).
// Reset via Invalidate when a full resync is needed.
type RenderState struct {
	attr     uint8
	row, col int
}

// NewRenderState returns a RenderState with sentinel values so the first
// emitted cell's SGR is never skipped as "unchanged".
func NewRenderState() RenderState {
	return RenderState{attr: noAttribute, row: -1, col: -1}
}

// Invalidate resets the render state sentinels, forcing the next emission
// to set attribute and position explicitly rather than relying on stale
// tracked values.
func (rs *RenderState) Invalidate() {
	*rs = NewRenderState()
}

// Renderer turns a Screen's current/previous grids into a TEXT_OUT byte
// stream: either a full redraw or a differential update.
type Renderer struct {
	state RenderState
	tick  uint64
}

// NewRenderer returns a Renderer with fresh sentinel state.
func NewRenderer() *Renderer {
	return &Renderer{state: NewRenderState()}
}

// Invalidate resets the attribute/position sentinels, mirroring the
// reference's ansi_attr/ansi_row/ansi_col reset. It does not by itself
// select a full redraw: that is decided by Render's forceRedraw argument
// (Stream.Invalidate sets the session's force-redraw flag for it).
func (r *Renderer) Invalidate() {
	r.state.Invalidate()
}

// resyncPeriod is how many vsync ticks elapse between forced full redraws,
// guarding against an undetected desync between client and host state.
const resyncPeriod = 120

// Tick advances the renderer's vsync counter and reports whether this tick
// falls on the periodic full-redraw boundary.
func (r *Renderer) Tick() (periodicResync bool) {
	r.tick++
	return r.tick%resyncPeriod == 0
}

// Render appends the TEXT_OUT payload for one vsync tick to dst and
// returns the extended slice. forceRedraw selects a full redraw over a
// differential update; it is the caller's OR of Invalidate-pending state,
// the periodic resync, and a dimension change. Render updates the
// screen's Previous/PrevCursor via Commit once emission is complete.
func (r *Renderer) Render(dst []byte, s *Screen, forceRedraw bool) []byte {
	if forceRedraw {
		dst = r.renderFull(dst, s)
	} else {
		dst = r.renderDiff(dst, s)
	}

	if s.Cursor != s.PrevCursor {
		if s.Cursor.Visible {
			dst = r.moveCursor(dst, int(s.Cursor.Row), int(s.Cursor.Col))
		}
		if s.Cursor.Visible != s.PrevCursor.Visible {
			dst = emitCursorVisibility(dst, s.Cursor.Visible)
		}
	}

	s.Commit()
	return dst
}

func (r *Renderer) renderFull(dst []byte, s *Screen) []byte {
	dst = append(dst, "\x1b[?25l"...)
	dst = append(dst, "\x1b[2J\x1b[H"...)
	r.state.row, r.state.col = 0, 0

	dst = r.setAttribute(dst, defaultAttribute)

	for row := 0; row < s.Rows; row++ {
		if row > 0 {
			if r.state.attr != defaultAttribute {
				dst = r.setAttribute(dst, defaultAttribute)
			}
			dst = append(dst, '\r', '\n')
		}

		lastCol := s.Cols - 1
		for lastCol >= 0 {
			cell := s.Current[row][lastCol]
			if cell.Char == ' ' && cell.Attribute&0x70 == 0 {
				lastCol--
				continue
			}
			break
		}

		for col := 0; col <= lastCol; col++ {
			cell := s.Current[row][col]
			if cell.Attribute != r.state.attr {
				dst = r.setAttribute(dst, cell.Attribute)
			}
			dst = r.emitCharacter(dst, cell.Char, s.Cols)
		}

		if r.state.attr != defaultAttribute && lastCol < s.Cols-1 {
			dst = r.setAttribute(dst, defaultAttribute)
		}
	}

	r.state.row = s.Rows - 1
	r.state.col = 0
	return dst
}

func (r *Renderer) renderDiff(dst []byte, s *Screen) []byte {
	writeRow, writeCol := -1, -1

	for row := 0; row < s.Rows; row++ {
		for col := 0; col < s.Cols; col++ {
			curr := s.Current[row][col]
			prev := s.Previous[row][col]
			if curr == prev {
				continue
			}

			if row != writeRow || col != writeCol {
				dst = r.moveCursor(dst, row, col)
			}
			if curr.Attribute != r.state.attr {
				dst = r.setAttribute(dst, curr.Attribute)
			}
			dst = r.emitCharacter(dst, curr.Char, s.Cols)

			writeRow, writeCol = row, col+1
			if writeCol >= s.Cols {
				writeCol = 0
				writeRow++
			}
		}
	}
	return dst
}

func (r *Renderer) moveCursor(dst []byte, row, col int) []byte {
	dst = append(dst, "\x1b["...)
	dst = appendInt(dst, row+1)
	dst = append(dst, ';')
	dst = appendInt(dst, col+1)
	dst = append(dst, 'H')
	r.state.row, r.state.col = row, col
	return dst
}

func (r *Renderer) setAttribute(dst []byte, attr uint8) []byte {
	fg := vgaForeground[attr&0x0F]
	bg := vgaBackground[(attr>>4)&0x07]
	blink := attr&0x80 != 0

	dst = append(dst, "\x1b[0;"...)
	dst = appendInt(dst, fg)
	dst = append(dst, ';')
	dst = appendInt(dst, bg)
	if blink {
		dst = append(dst, ";5"...)
	}
	dst = append(dst, 'm')
	r.state.attr = attr
	return dst
}

// emitCharacter encodes ch as UTF-8 via the CP437 table and advances the
// tracked write head, wrapping at the row width. runewidth.RuneWidth is
// consulted defensively: every CP437 glyph is single-width, but a future
// table extension into combining or wide ranges should not silently
// desync the tracked cursor column.
func (r *Renderer) emitCharacter(dst []byte, ch uint8, cols int) []byte {
	u := cp437ToUnicode[ch]
	dst = appendUTF8(dst, u)

	width := runewidth.RuneWidth(u)
	if width < 1 {
		width = 1
	}
	r.state.col += width
	if r.state.col >= cols {
		r.state.col = 0
		r.state.row++
	}
	return dst
}

func emitCursorVisibility(dst []byte, visible bool) []byte {
	if visible {
		return append(dst, "\x1b[?25h"...)
	}
	return append(dst, "\x1b[?25l"...)
}

// appendUTF8 encodes u as 1, 2, or 3 UTF-8 bytes; every CP437 mapping is a
// BMP scalar below 0x10000, so a 4-byte encoding never occurs.
func appendUTF8(dst []byte, u rune) []byte {
	switch {
	case u < 0x80:
		return append(dst, byte(u))
	case u < 0x800:
		return append(dst, byte(0xC0|(u>>6)), byte(0x80|(u&0x3F)))
	default:
		return append(dst, byte(0xE0|(u>>12)), byte(0x80|((u>>6)&0x3F)), byte(0x80|(u&0x3F)))
	}
}

// appendInt appends the decimal representation of a small non-negative
// integer, avoiding strconv/fmt allocation in the hot render path.
func appendInt(dst []byte, n int) []byte {
	if n == 0 {
		return append(dst, '0')
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return append(dst, buf[i:]...)
}
