// Package model defines the records that make up an Allure results tree.
package model

import "time"

// Status is the outcome of an executable. The empty Status means the outcome
// has not been determined, which report consumers render as "unknown".
type Status string

const (
	// StatusPassed marks an executable that finished without error.
	StatusPassed Status = "passed"
	// StatusFailed marks an executable that failed an assertion.
	StatusFailed Status = "failed"
	// StatusBroken marks an executable that raised an unexpected error.
	StatusBroken Status = "broken"
	// StatusSkipped marks an executable that did not run.
	StatusSkipped Status = "skipped"
)

// Valid reports whether s is one of the known statuses or absent.
func (s Status) Valid() bool {
	switch s {
	case "", StatusPassed, StatusFailed, StatusBroken, StatusSkipped:
		return true
	default:
		return false
	}
}

// Stage is the lifecycle position of an executable.
type Stage string

const (
	// StageScheduled is set on records that exist but have not started.
	StageScheduled Stage = "scheduled"
	// StageRunning is set by start operations.
	StageRunning Stage = "running"
	// StageFinished is set by stop operations.
	StageFinished Stage = "finished"
	// StagePending marks a record that was stopped without running.
	StagePending Stage = "pending"
	// StageInterrupted marks a record closed on behalf of its owner.
	StageInterrupted Stage = "interrupted"
)

// StatusDetails carries the human readable part of a status.
type StatusDetails struct {
	Message string `json:"message,omitempty"`
	Trace   string `json:"trace,omitempty"`
	Known   bool   `json:"known,omitempty"`
	Muted   bool   `json:"muted,omitempty"`
	Flaky   bool   `json:"flaky,omitempty"`
}

// Timestamp converts t into the millisecond precision used by result files.
func Timestamp(t time.Time) int64 {
	return t.UnixMilli()
}
