package queue

import (
	"github.com/flowtap/flowtap/internal/worker"
	"github.com/flowtap/flowtap/pkg/models"
)

// entryState is the tagged union behind each queue slot: a submission
// that has not started, or a handle on a running worker. Making the two
// variants distinct types keeps the at-most-one-running invariant
// checkable by construction instead of by convention.
type entryState interface {
	isEntryState()
}

// pendingState holds a submission waiting for its turn
type pendingState struct {
	sub *models.Submission
}

func (pendingState) isEntryState() {}

// runningState holds the handle of the single active worker
type runningState struct {
	handle worker.Handle
}

func (runningState) isEntryState() {}

// entry is one slot of the ordered queue
type entry struct {
	cellID string
	// runID ties the slot to one specific run; terminal events carrying
	// a different run id belong to a superseded worker
	runID string
	state entryState

	// done marks a running entry whose terminal event has been
	// consumed; prune may then remove it even if the pid lingers
	done bool
}
