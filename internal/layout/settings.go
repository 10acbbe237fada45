package layout

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Settings captures the layout parameters that determine how text flows
// into pages. Two Settings values that derive the same Key share pagination
// results; any field change produces a new Key and therefore a fresh cache
// entry.
type Settings struct {
	FontName    string  `mapstructure:"font_name" yaml:"font_name"`
	FontSize    float64 `mapstructure:"font_size" yaml:"font_size"`
	LineSpacing float64 `mapstructure:"line_spacing" yaml:"line_spacing"`

	// Viewport dimensions in points. Truncated to integers when deriving
	// the key so sub-pixel jitter does not invalidate the cache.
	ViewportWidth  float64 `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight float64 `mapstructure:"viewport_height" yaml:"viewport_height"`
}

// ViewportWidthInt returns the viewport width truncated to a whole point.
// Non-finite and negative values clamp to zero.
func (s Settings) ViewportWidthInt() int {
	return clampDimension(s.ViewportWidth)
}

// ViewportHeightInt returns the viewport height truncated to a whole point.
// Non-finite and negative values clamp to zero.
func (s Settings) ViewportHeightInt() int {
	return clampDimension(s.ViewportHeight)
}

// Key derives the stable settings key for this layout. The key is pure and
// total: identical settings always derive identical keys, and every field
// participates so changing any one of them derives a new key.
//
// Format: <font>-<size>-<spacing>-<width>x<height>, e.g.
// "Georgia-18-1.5-390x844". The font name is sanitized so the separator
// stays unambiguous.
func (s Settings) Key() string {
	return fmt.Sprintf("%s-%s-%s-%dx%d",
		sanitizeFontName(s.FontName),
		formatScalar(s.FontSize),
		formatScalar(s.LineSpacing),
		s.ViewportWidthInt(),
		s.ViewportHeightInt(),
	)
}

// CacheKey composes a document content hash with a settings key into the
// full cache partition key. Entries under different cache keys never share
// data.
func CacheKey(documentHash string, s Settings) string {
	return documentHash + ":" + s.Key()
}

func clampDimension(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return int(v)
}

func formatScalar(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func sanitizeFontName(name string) string {
	if name == "" {
		return "default"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', ':', ' ':
			return '_'
		}
		return r
	}, name)
}
