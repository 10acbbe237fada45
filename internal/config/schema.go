package config

import (
	"time"

	"github.com/jackzampolin/folio/internal/layout"
)

// Config holds folio configuration.
// Stored at: ~/.folio/config.yaml
type Config struct {
	Layout LayoutCfg `mapstructure:"layout" yaml:"layout"`
	Worker WorkerCfg `mapstructure:"worker" yaml:"worker"`
	Reader ReaderCfg `mapstructure:"reader" yaml:"reader"`
}

// LayoutCfg is the user-facing layout settings block. Editing any field
// here produces a new settings key and repaginates every document.
type LayoutCfg struct {
	FontName       string  `mapstructure:"font_name" yaml:"font_name"`
	FontSize       float64 `mapstructure:"font_size" yaml:"font_size"`
	LineSpacing    float64 `mapstructure:"line_spacing" yaml:"line_spacing"`
	ViewportWidth  float64 `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight float64 `mapstructure:"viewport_height" yaml:"viewport_height"`
}

// WorkerCfg tunes the background pagination loop.
type WorkerCfg struct {
	BatchSize    int           `mapstructure:"batch_size" yaml:"batch_size"`       // Pages per committed batch
	ScanInterval time.Duration `mapstructure:"scan_interval" yaml:"scan_interval"` // Pause between library scans
	PruneStale   bool          `mapstructure:"prune_stale" yaml:"prune_stale"`     // Drop superseded entries on completion
}

// ReaderCfg tunes the foreground cache client.
type ReaderCfg struct {
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"` // Fallback poll behind notifications
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Layout: LayoutCfg{
			FontName:       "Georgia",
			FontSize:       18,
			LineSpacing:    1.5,
			ViewportWidth:  390,
			ViewportHeight: 844,
		},
		Worker: WorkerCfg{
			BatchSize:    10,
			ScanInterval: 5 * time.Second,
		},
		Reader: ReaderCfg{
			PollInterval: 5 * time.Second,
		},
	}
}

// LayoutSettings converts the layout block into the measurement settings
// the pagination engine keys on.
func (c *Config) LayoutSettings() layout.Settings {
	return layout.Settings{
		FontName:       c.Layout.FontName,
		FontSize:       c.Layout.FontSize,
		LineSpacing:    c.Layout.LineSpacing,
		ViewportWidth:  c.Layout.ViewportWidth,
		ViewportHeight: c.Layout.ViewportHeight,
	}
}
