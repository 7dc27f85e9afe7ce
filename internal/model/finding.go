package model

import (
	"fmt"
	"time"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is a single diagnostic reported by a lint tool.
type Finding struct {
	File     string   `json:"file"`             // absolute path
	Line     int      `json:"line"`             // 1-based
	Column   int      `json:"column,omitempty"` // 0 when the tool does not report one
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

func (f Finding) String() string {
	if f.Column > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %s", f.File, f.Line, f.Column, f.Severity, f.Message)
	}
	return fmt.Sprintf("%s:%d: %s: %s", f.File, f.Line, f.Severity, f.Message)
}

// Report is the outcome of one lint run as published by uploaders.
type Report struct {
	RunID     string    `json:"runId"`
	Tool      string    `json:"tool"`
	Target    string    `json:"target"`
	Workspace bool      `json:"workspace"`
	Started   time.Time `json:"started"`
	Stopped   time.Time `json:"stopped"`
	Findings  []Finding `json:"findings"`
}
