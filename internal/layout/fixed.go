package layout

import "unicode/utf8"

// FixedCapacity is a deterministic Measurer that fits exactly Runes runes
// per page regardless of settings. It exists for tests and for embedders
// that want pagination without a layout engine.
type FixedCapacity struct {
	// Runes per page. Zero or negative reproduces the zero-length
	// layout-anomaly case.
	Runes int

	// BreakHook, when set, runs before each measurement. Tests use it to
	// flip generations or settings mid-run at a deterministic point.
	BreakHook func(start int)
}

// PageBreak implements Measurer.
func (f *FixedCapacity) PageBreak(text string, start int, _ Settings) (int, error) {
	if f.BreakHook != nil {
		f.BreakHook(start)
	}
	if start >= len(text) {
		return len(text), nil
	}
	if f.Runes <= 0 {
		return start, nil
	}

	off := start
	for i := 0; i < f.Runes && off < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[off:])
		off += size
	}
	return off, nil
}

var _ Measurer = (*FixedCapacity)(nil)
