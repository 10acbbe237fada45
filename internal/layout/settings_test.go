package layout

import (
	"math"
	"strings"
	"testing"
)

func baseSettings() Settings {
	return Settings{
		FontName:       "Georgia",
		FontSize:       18,
		LineSpacing:    1.5,
		ViewportWidth:  390,
		ViewportHeight: 844,
	}
}

func TestSettingsKey(t *testing.T) {
	t.Run("stable for identical inputs", func(t *testing.T) {
		a := baseSettings().Key()
		b := baseSettings().Key()
		if a != b {
			t.Errorf("same settings derived different keys: %q vs %q", a, b)
		}
	})

	t.Run("every field participates", func(t *testing.T) {
		base := baseSettings()
		variants := map[string]Settings{
			"font name":    {FontName: "Palatino", FontSize: 18, LineSpacing: 1.5, ViewportWidth: 390, ViewportHeight: 844},
			"font size":    {FontName: "Georgia", FontSize: 20, LineSpacing: 1.5, ViewportWidth: 390, ViewportHeight: 844},
			"line spacing": {FontName: "Georgia", FontSize: 18, LineSpacing: 1.2, ViewportWidth: 390, ViewportHeight: 844},
			"width":        {FontName: "Georgia", FontSize: 18, LineSpacing: 1.5, ViewportWidth: 428, ViewportHeight: 844},
			"height":       {FontName: "Georgia", FontSize: 18, LineSpacing: 1.5, ViewportWidth: 390, ViewportHeight: 926},
		}
		for name, v := range variants {
			if v.Key() == base.Key() {
				t.Errorf("changing %s did not change the key", name)
			}
		}
	})

	t.Run("sub-pixel viewport jitter keeps the key", func(t *testing.T) {
		a := baseSettings()
		b := baseSettings()
		b.ViewportWidth = 390.7
		b.ViewportHeight = 844.3
		if a.Key() != b.Key() {
			t.Errorf("fractional viewport change altered key: %q vs %q", a.Key(), b.Key())
		}
	})

	t.Run("non-finite and negative dimensions clamp to zero", func(t *testing.T) {
		for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -10} {
			s := baseSettings()
			s.ViewportWidth = v
			s.ViewportHeight = v
			if got := s.ViewportWidthInt(); got != 0 {
				t.Errorf("width %v: got %d, want 0", v, got)
			}
			if got := s.ViewportHeightInt(); got != 0 {
				t.Errorf("height %v: got %d, want 0", v, got)
			}
			if !strings.HasSuffix(s.Key(), "-0x0") {
				t.Errorf("key for clamped viewport = %q, want -0x0 suffix", s.Key())
			}
		}
	})

	t.Run("font names cannot collide across separators", func(t *testing.T) {
		a := Settings{FontName: "Sans-12", FontSize: 1.5, LineSpacing: 1}
		b := Settings{FontName: "Sans", FontSize: 12, LineSpacing: 1.5}
		if a.Key() == b.Key() {
			t.Error("sanitization failed to keep font name distinct from numeric fields")
		}
	})
}

func TestCacheKey(t *testing.T) {
	s := baseSettings()
	a := CacheKey("abc123", s)
	b := CacheKey("def456", s)
	if a == b {
		t.Error("different documents derived the same cache key")
	}
	if !strings.HasPrefix(a, "abc123:") {
		t.Errorf("cache key %q missing document hash prefix", a)
	}
}
