package pagecache

import (
	"fmt"
	"time"
)

// PageRange is the character span and materialized text of one displayed
// page. Offsets are byte offsets into the document text; Content is the
// exact substring [StartOffset, EndOffset).
type PageRange struct {
	Index       int    `json:"index"`
	StartOffset int    `json:"startOffset"`
	EndOffset   int    `json:"endOffset"`
	Content     string `json:"content"`
}

// Meta is the lightweight view of an entry used for status checks. It
// never carries page content.
type Meta struct {
	PageCount           int
	IsComplete          bool
	LastProcessedOffset int

	// TotalPagesHint is the worker's estimate of the final page count,
	// refreshed on each commit. Zero until the first batch lands.
	TotalPagesHint int
}

// Entry is the full incremental pagination state for one
// (document, settings) pair.
type Entry struct {
	DocumentHash        string      `json:"documentHash"`
	SettingsKey         string      `json:"settingsKey"`
	Pages               []PageRange `json:"pages"`
	LastProcessedOffset int         `json:"lastProcessedOffset"`
	IsComplete          bool        `json:"isComplete"`
	LastUpdated         time.Time   `json:"lastUpdated"`
}

// Validate checks the entry's structural invariants: pages indexed from
// zero without gaps, the first page starting at offset zero, and each
// page's end meeting the next page's start.
func (e *Entry) Validate() error {
	for i, p := range e.Pages {
		if p.Index != i {
			return fmt.Errorf("page %d carries index %d", i, p.Index)
		}
		if i == 0 {
			if p.StartOffset != 0 {
				return fmt.Errorf("first page starts at %d, want 0", p.StartOffset)
			}
		} else if prev := e.Pages[i-1]; p.StartOffset != prev.EndOffset {
			return fmt.Errorf("page %d starts at %d, previous ends at %d", i, p.StartOffset, prev.EndOffset)
		}
		if p.EndOffset <= p.StartOffset {
			return fmt.Errorf("page %d has empty range [%d, %d)", i, p.StartOffset, p.EndOffset)
		}
		if len(p.Content) != p.EndOffset-p.StartOffset {
			return fmt.Errorf("page %d content length %d does not match range [%d, %d)", i, len(p.Content), p.StartOffset, p.EndOffset)
		}
	}
	if n := len(e.Pages); n > 0 && e.LastProcessedOffset < e.Pages[n-1].EndOffset {
		return fmt.Errorf("last processed offset %d behind final page end %d", e.LastProcessedOffset, e.Pages[n-1].EndOffset)
	}
	return nil
}

// Meta projects the entry's metadata view.
func (e *Entry) Meta() Meta {
	return Meta{
		PageCount:           len(e.Pages),
		IsComplete:          e.IsComplete,
		LastProcessedOffset: e.LastProcessedOffset,
	}
}
