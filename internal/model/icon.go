package model

import (
	"time"

	"github.com/google/uuid"
)

// SizeEntry describes one icon of the set: the output file name and the
// square dimension in pixels it must be rendered at.
type SizeEntry struct {
	Name  string `mapstructure:"name" json:"name"`
	Size  int    `mapstructure:"size" json:"size"`
	Idiom string `mapstructure:"idiom" json:"idiom,omitempty"` // asset catalog idiom, e.g. "iphone"
	Scale string `mapstructure:"scale" json:"scale,omitempty"` // asset catalog scale, e.g. "2x"
}

// SizeTable is the ordered list of icons to produce.
// Entries are processed in declaration order.
type SizeTable []SizeEntry

// EntryResult describes an icon that was written successfully.
type EntryResult struct {
	Name string `json:"name"`
	Size int    `json:"size"`
	Path string `json:"path"`
}

// EntryFailure describes an icon that could not be produced.
type EntryFailure struct {
	Name string `json:"name"`
	Size int    `json:"size"`
	Err  error  `json:"-"`
}

// RunResult summarizes a single icon generation run.
type RunResult struct {
	ID           uuid.UUID
	Source       string
	OutputDir    string
	SourceWidth  int
	SourceHeight int
	Written      []EntryResult
	Failed       []EntryFailure
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Partial reports whether at least one entry failed.
func (r RunResult) Partial() bool {
	return len(r.Failed) > 0
}
