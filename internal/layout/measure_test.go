package layout

import (
	"strings"
	"testing"
)

// gridSettings builds settings whose monospace grid is exactly cols x lines.
// With FontSize 10, cells are 6pt wide; LineSpacing 1 pins line height to
// the font size, so lines are 10pt tall.
func gridSettings(cols, lines int) Settings {
	return Settings{
		FontName:       "Menlo",
		FontSize:       10,
		LineSpacing:    1,
		ViewportWidth:  float64(cols * 6),
		ViewportHeight: float64(lines * 10),
	}
}

func TestMonospaceGrid(t *testing.T) {
	m := NewMonospace()
	cols, lines := m.Grid(gridSettings(20, 5))
	if cols != 20 || lines != 5 {
		t.Fatalf("Grid() = %dx%d, want 20x5", cols, lines)
	}
}

func TestMonospacePageBreak(t *testing.T) {
	m := NewMonospace()

	t.Run("fills the grid exactly", func(t *testing.T) {
		s := gridSettings(10, 3)
		text := strings.Repeat("a", 100)
		end, err := m.PageBreak(text, 0, s)
		if err != nil {
			t.Fatalf("PageBreak() error = %v", err)
		}
		if end != 30 {
			t.Errorf("end = %d, want 30 (10 cols x 3 lines)", end)
		}
	})

	t.Run("newline ends the line early", func(t *testing.T) {
		s := gridSettings(10, 2)
		text := "ab\ncdefghij-OVERFLOW"
		end, err := m.PageBreak(text, 0, s)
		if err != nil {
			t.Fatalf("PageBreak() error = %v", err)
		}
		// Line 1: "ab\n" (3 bytes), line 2: "cdefghij" stops mid-word at
		// the column limit after 10 cells... "cdefghij-O" is 10 runes.
		if got := text[:end]; got != "ab\ncdefghij-O" {
			t.Errorf("page = %q, want %q", got, "ab\ncdefghij-O")
		}
	})

	t.Run("wide runes take two cells", func(t *testing.T) {
		s := gridSettings(4, 1)
		text := "日本語"
		end, err := m.PageBreak(text, 0, s)
		if err != nil {
			t.Fatalf("PageBreak() error = %v", err)
		}
		if got := text[:end]; got != "日本" {
			t.Errorf("page = %q, want two wide runes", got)
		}
	})

	t.Run("break lands on a rune boundary", func(t *testing.T) {
		s := gridSettings(3, 1)
		text := "日本語"
		end, err := m.PageBreak(text, 0, s)
		if err != nil {
			t.Fatalf("PageBreak() error = %v", err)
		}
		// Only one wide rune fits: the second would straddle the edge.
		if got := text[:end]; got != "日" {
			t.Errorf("page = %q, want %q", got, "日")
		}
	})

	t.Run("degenerate viewport yields zero-length range", func(t *testing.T) {
		s := gridSettings(0, 0)
		end, err := m.PageBreak("hello", 2, s)
		if err != nil {
			t.Fatalf("PageBreak() error = %v", err)
		}
		if end != 2 {
			t.Errorf("end = %d, want start offset 2", end)
		}
	})

	t.Run("start past the end clamps to len", func(t *testing.T) {
		end, err := m.PageBreak("hi", 10, gridSettings(10, 10))
		if err != nil {
			t.Fatalf("PageBreak() error = %v", err)
		}
		if end != 2 {
			t.Errorf("end = %d, want 2", end)
		}
	})

	t.Run("consecutive pages concatenate to the original", func(t *testing.T) {
		s := gridSettings(7, 3)
		text := "The quick brown fox\njumps over the lazy dog.\n日本語のテキストも混ぜる。"
		var parts []string
		off := 0
		for off < len(text) {
			end, err := m.PageBreak(text, off, s)
			if err != nil {
				t.Fatalf("PageBreak() error = %v", err)
			}
			if end <= off {
				t.Fatalf("zero-length page at offset %d", off)
			}
			parts = append(parts, text[off:end])
			off = end
		}
		if joined := strings.Join(parts, ""); joined != text {
			t.Errorf("concatenated pages differ from source:\n got %q\nwant %q", joined, text)
		}
	})
}

func TestFixedCapacity(t *testing.T) {
	t.Run("counts runes not bytes", func(t *testing.T) {
		f := &FixedCapacity{Runes: 2}
		text := "日本語"
		end, err := f.PageBreak(text, 0, Settings{})
		if err != nil {
			t.Fatalf("PageBreak() error = %v", err)
		}
		if got := text[:end]; got != "日本" {
			t.Errorf("page = %q, want %q", got, "日本")
		}
	})

	t.Run("zero capacity reproduces the anomaly", func(t *testing.T) {
		f := &FixedCapacity{}
		end, err := f.PageBreak("abc", 1, Settings{})
		if err != nil {
			t.Fatalf("PageBreak() error = %v", err)
		}
		if end != 1 {
			t.Errorf("end = %d, want 1", end)
		}
	})
}
