package worker

import (
	"errors"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// ErrKillFailed is returned when a worker process survives termination.
// Reporting "aborted" while the worker lives would break the
// at-most-one-running invariant, so the failure is surfaced instead.
var ErrKillFailed = errors.New("failed to kill workflow")

const killConfirmTimeout = 2 * time.Second

// KillTree terminates the entire process tree rooted at the worker: the
// engine subprocess and anything it fanned out, leaves first, then the
// worker itself. Termination is confirmed, not assumed.
func (h *ProcHandle) KillTree() error {
	p, err := process.NewProcess(int32(h.pid))
	if err != nil {
		// already gone
		return nil
	}

	killDescendants(p)
	p.Terminate()
	p.Kill()

	deadline := time.Now().Add(killConfirmTimeout)
	for time.Now().Before(deadline) {
		if !h.Alive() {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return ErrKillFailed
}

// killDescendants kills the transitive children of p, deepest first, so
// no orphan keeps mutating shared state after its parent dies
func killDescendants(p *process.Process) {
	children, err := p.Children()
	if err != nil {
		return
	}
	for _, child := range children {
		killDescendants(child)
		child.Kill()
	}
}
