package worker

import (
	"github.com/shirou/gopsutil/v3/process"

	"github.com/flowtap/flowtap/pkg/models"
)

// Launcher starts one out-of-process worker per submission. The queue
// depends on this interface so tests can substitute in-memory fakes.
type Launcher interface {
	Start(sub *models.Submission) (Handle, error)
}

// Handle is the supervisor's grip on a spawned worker: liveness checks
// and tree termination. Exclusively owned by the queue entry it serves.
type Handle interface {
	PID() int
	CellID() string
	Alive() bool
	KillTree() error
}

// ProcHandle is the OS-backed Handle implementation
type ProcHandle struct {
	pid    int
	cellID string
}

// NewProcHandle wraps an already-spawned worker process
func NewProcHandle(pid int, cellID string) *ProcHandle {
	return &ProcHandle{pid: pid, cellID: cellID}
}

// PID returns the worker's OS process identifier
func (h *ProcHandle) PID() int {
	return h.pid
}

// CellID returns the identity this worker serves
func (h *ProcHandle) CellID() string {
	return h.cellID
}

// Alive reports whether the worker process exists and has not become a
// zombie. A zombie counts as dead: the work is finished even though the
// pid lingers until reaped.
func (h *ProcHandle) Alive() bool {
	exists, err := process.PidExists(int32(h.pid))
	if err != nil || !exists {
		return false
	}
	p, err := process.NewProcess(int32(h.pid))
	if err != nil {
		return false
	}
	statuses, err := p.Status()
	if err != nil {
		// existence already confirmed
		return true
	}
	for _, st := range statuses {
		if st == process.Zombie {
			return false
		}
	}
	return true
}
