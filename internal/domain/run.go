package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunTrigger records what started a curation run.
type RunTrigger string

const (
	TriggerScheduled RunTrigger = "scheduled"
	TriggerManual    RunTrigger = "manual"
)

// RunStatus enumerates curation run lifecycle states.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Terminal reports whether the status ends the run lifecycle.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed
}

// CanTransition enforces the monotonic pending -> running -> {completed, failed} order.
func (s RunStatus) CanTransition(to RunStatus) bool {
	switch s {
	case RunPending:
		return to == RunRunning || to == RunFailed
	case RunRunning:
		return to == RunCompleted || to == RunFailed
	default:
		return false
	}
}

// CurationRun is one batch execution that searches for and evaluates candidate videos.
type CurationRun struct {
	ID                  uuid.UUID
	Trigger             RunTrigger
	Status              RunStatus
	StartedAt           time.Time
	CompletedAt         *time.Time
	CandidatesEvaluated int
	CandidatesAccepted  int
	ErrorMessage        string
}

// StuckFor returns how long the run has been in flight relative to now.
func (r CurationRun) StuckFor(now time.Time) time.Duration {
	return now.Sub(r.StartedAt)
}
