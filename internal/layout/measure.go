package layout

import (
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// Measurer is the text-layout capability the pagination engine depends on.
// Given the full document text, a starting byte offset, and the layout
// settings, PageBreak returns the byte offset just past the maximal
// contiguous range starting at start that fits one page.
//
// Contracts:
//   - The returned offset falls on a rune boundary.
//   - start <= end <= len(text).
//   - end == start signals that not even a single rune fits (a layout
//     anomaly for non-empty remaining text); callers treat it as such.
//
// Implementations must be deterministic: the same inputs always produce
// the same break.
type Measurer interface {
	PageBreak(text string, start int, s Settings) (end int, err error)
}

// tabWidth is the column budget charged for a tab stop.
const tabWidth = 4

// Monospace is the shipped Measurer. It models the viewport as a fixed
// grid of character cells, sized from the font metrics, and fills it
// greedily: runes flow left to right, wrapping at the right edge, until
// the last line is consumed. East-Asian wide runes occupy two cells.
//
// The cell geometry is a deterministic function of the settings: a cell is
// 0.6 em wide and LineSpacing ems tall, matching the advance width of
// common monospaced faces. The grid collapses to zero when the viewport
// cannot hold a single cell, which PageBreak reports as a zero-length
// range.
type Monospace struct{}

// NewMonospace returns the monospace grid measurer.
func NewMonospace() *Monospace {
	return &Monospace{}
}

// Grid returns the column and line capacity of one page under s.
func (m *Monospace) Grid(s Settings) (cols, lines int) {
	if s.FontSize <= 0 {
		return 0, 0
	}
	cellW := s.FontSize * 0.6
	lineH := s.FontSize * s.LineSpacing
	if lineH < s.FontSize {
		lineH = s.FontSize
	}
	cols = int(float64(s.ViewportWidthInt()) / cellW)
	lines = int(float64(s.ViewportHeightInt()) / lineH)
	return cols, lines
}

// PageBreak implements Measurer.
func (m *Monospace) PageBreak(text string, start int, s Settings) (int, error) {
	if start >= len(text) {
		return len(text), nil
	}

	cols, lines := m.Grid(s)
	if cols < 1 || lines < 1 {
		// Viewport too small for a single cell; zero-length range.
		return start, nil
	}

	line := 0
	col := 0
	off := start
	for off < len(text) {
		r, size := utf8.DecodeRuneInString(text[off:])

		if r == '\n' {
			line++
			col = 0
			off += size
			if line >= lines {
				break
			}
			continue
		}

		w := runeCells(r)
		if col+w > cols {
			line++
			col = 0
			if line >= lines {
				break
			}
		}
		col += w
		off += size
	}
	return off, nil
}

func runeCells(r rune) int {
	if r == '\t' {
		return tabWidth
	}
	w := runewidth.RuneWidth(r)
	if w == 0 {
		// Combining marks and other zero-width runes ride along with the
		// previous cell.
		return 0
	}
	return w
}

var _ Measurer = (*Monospace)(nil)
