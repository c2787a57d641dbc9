package textmode

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/gdamore/tcell/v2"
)

// vgaPalette gives each of the 16 foreground color indices an RGB triple,
// the standard VGA/CGA 16-color set in index order (black, blue, green,
// cyan, red, magenta, brown, light grey, then the eight bright variants).
var vgaPalette = [16][3]int32{
	{0x00, 0x00, 0x00}, {0x00, 0x00, 0xAA}, {0x00, 0xAA, 0x00}, {0x00, 0xAA, 0xAA},
	{0xAA, 0x00, 0x00}, {0xAA, 0x00, 0xAA}, {0xAA, 0x55, 0x00}, {0xAA, 0xAA, 0xAA},
	{0x55, 0x55, 0x55}, {0x55, 0x55, 0xFF}, {0x55, 0xFF, 0x55}, {0x55, 0xFF, 0xFF},
	{0xFF, 0x55, 0x55}, {0xFF, 0x55, 0xFF}, {0xFF, 0xFF, 0x55}, {0xFF, 0xFF, 0xFF},
}

func vgaTcellColor(index uint8) tcell.Color {
	rgb := vgaPalette[index&0x0F]
	return tcell.NewRGBColor(rgb[0], rgb[1], rgb[2])
}

// attrStyle decomposes a VGA attribute byte into a tcell.Style, the same
// decompose-then-hash shape a style digest typically takes. The renderer
// itself never emits SGR text derived from this value — the escape bytes
// always come from vgaForeground/vgaBackground — but Digest uses it to
// fold a cell's full visual state, foreground, background, and blink,
// into one hash term.
func attrStyle(attr uint8) tcell.Style {
	style := tcell.StyleDefault.
		Foreground(vgaTcellColor(attr & 0x0F)).
		Background(vgaTcellColor((attr >> 4) & 0x07))
	if attr&0x80 != 0 {
		style = style.Blink(true)
	}
	return style
}

// Digest folds the screen's visible Rows*Cols cells into one hash, the
// same fnv64a accumulation hashPaneBuffer uses for its pane-buffer digest.
// Tests use it to confirm a differential render converges to the same
// visual state a full redraw of the same Current grid would have reached.
func Digest(s *Screen) uint64 {
	hasher := fnv.New64a()
	var scratch [4]byte
	writeUint32 := func(v uint32) {
		binary.LittleEndian.PutUint32(scratch[:], v)
		hasher.Write(scratch[:])
	}

	for row := 0; row < s.Rows; row++ {
		for col := 0; col < s.Cols; col++ {
			cell := s.Current[row][col]
			writeUint32(uint32(cell.Char))

			fg, bg, attrs := attrStyle(cell.Attribute).Decompose()
			fgR, fgG, fgB := fg.RGB()
			bgR, bgG, bgB := bg.RGB()
			writeUint32(uint32(fgR)<<16 | uint32(fgG)<<8 | uint32(fgB))
			writeUint32(uint32(bgR)<<16 | uint32(bgG)<<8 | uint32(bgB))
			writeUint32(uint32(attrs))
		}
	}
	return hasher.Sum64()
}
