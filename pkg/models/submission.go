package models

import (
	"time"
)

// CellStatus represents the externally visible status of a workflow cell
type CellStatus string

const (
	CellStatusPending   CellStatus = "pending"
	CellStatusRunning   CellStatus = "running"
	CellStatusCompleted CellStatus = "completed"
	CellStatusFailed    CellStatus = "failed"
	CellStatusAborted   CellStatus = "aborted"
)

// IsTerminal returns true if no further status change is possible
func (s CellStatus) IsTerminal() bool {
	return s == CellStatusCompleted || s == CellStatusFailed || s == CellStatusAborted
}

// ExecConfig is the snapshot of the ambient execution configuration taken
// at submission time. Every option is delegated to the external workflow
// engine unchanged; the supervisor only threads it through.
type ExecConfig struct {
	RunMode        string   `json:"run_mode" yaml:"run_mode"` // "interactive" or "dryrun"
	MaxProcs       int      `json:"max_procs" yaml:"max_procs"`
	MaxRunningJobs int      `json:"max_running_jobs" yaml:"max_running_jobs"`
	Workdir        string   `json:"workdir" yaml:"workdir"`
	Targets        []string `json:"targets,omitempty" yaml:"targets,omitempty"`
	WorkflowArgs   []string `json:"workflow_args,omitempty" yaml:"workflow_args,omitempty"`
	SlaveID        string   `json:"slave_id" yaml:"slave_id"`
}

// Submission is one request to execute a unit of workflow code under a
// caller-assigned cell identity. Immutable once queued; re-submitting
// under the same identity replaces the queued entry.
type Submission struct {
	CellID string `json:"cell_id"`
	// RunID distinguishes this run from earlier runs of the same cell,
	// so a terminal event from a superseded worker cannot be mistaken
	// for the current one
	RunID       string     `json:"run_id"`
	Code        string     `json:"code"`
	Args        string     `json:"args"` // raw argument string, uninterpreted
	Config      ExecConfig `json:"config"`
	SubmittedAt time.Time  `json:"submitted_at"`
}

// QueueStatus is returned to the caller on submit
type QueueStatus struct {
	CellID   string `json:"cell_id"`
	Position int    `json:"position"` // 1-based from the queue head
}

// StatusRecord is the last-known status of a cell, kept by the supervisor
// so callers arriving after the fact can still query the outcome
type StatusRecord struct {
	CellID    string     `json:"cell_id"`
	Status    CellStatus `json:"status"`
	Position  int        `json:"position,omitempty"`
	Error     string     `json:"error,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunRequest is the API payload for submitting a cell
type RunRequest struct {
	Code string `json:"code"`
	Args string `json:"args,omitempty"`
}

// QueueEntryInfo is one row of a queue snapshot
type QueueEntryInfo struct {
	CellID   string `json:"cell_id"`
	State    string `json:"state"` // "pending" or "running"
	Position int    `json:"position"`
	PID      int    `json:"pid,omitempty"`
}
