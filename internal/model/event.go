package model

import (
	"time"

	"github.com/google/uuid"
)

// RunEvent is the message published once a run has finished.
type RunEvent struct {
	ID           uuid.UUID      `json:"id"`
	Source       string         `json:"source"`
	OutputDir    string         `json:"output_dir"`
	SourceWidth  int            `json:"source_width"`
	SourceHeight int            `json:"source_height"`
	Written      []EventIcon    `json:"written"`
	Failed       []EventFailure `json:"failed"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`
}

// EventIcon is a written icon as reported in a RunEvent.
type EventIcon struct {
	Name   string `json:"name"`
	Size   int    `json:"size"`
	Path   string `json:"path"`
	Object string `json:"object,omitempty"` // object key in the bucket, if mirrored
}

// EventFailure is a failed icon as reported in a RunEvent.
type EventFailure struct {
	Name  string `json:"name"`
	Size  int    `json:"size"`
	Error string `json:"error"`
}

// NewRunEvent builds a RunEvent from the run result. objects maps icon names
// to the bucket keys they were uploaded under and may be nil.
func NewRunEvent(res RunResult, objects map[string]string) RunEvent {
	ev := RunEvent{
		ID:           res.ID,
		Source:       res.Source,
		OutputDir:    res.OutputDir,
		SourceWidth:  res.SourceWidth,
		SourceHeight: res.SourceHeight,
		Written:      make([]EventIcon, 0, len(res.Written)),
		Failed:       make([]EventFailure, 0, len(res.Failed)),
		StartedAt:    res.StartedAt,
		FinishedAt:   res.FinishedAt,
	}

	for _, w := range res.Written {
		ev.Written = append(ev.Written, EventIcon{
			Name:   w.Name,
			Size:   w.Size,
			Path:   w.Path,
			Object: objects[w.Name],
		})
	}

	for _, f := range res.Failed {
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		ev.Failed = append(ev.Failed, EventFailure{Name: f.Name, Size: f.Size, Error: msg})
	}

	return ev
}
