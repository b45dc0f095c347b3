package tap

import (
	"github.com/flowtap/flowtap/pkg/models"
)

// MsgTypeWorkflowStatus is the msg_type of every informer-channel message
const MsgTypeWorkflowStatus = "workflow_status"

// StatusMessage is the terminal event a worker pushes on the informer
// channel. Exactly one is sent per started worker.
type StatusMessage struct {
	MsgType string     `json:"msg_type"`
	Data    StatusData `json:"data"`
}

// StatusData carries the cell identity, the run the event belongs to
// and the terminal status
type StatusData struct {
	CellID    string            `json:"cell_id"`
	RunID     string            `json:"run_id,omitempty"`
	Status    models.CellStatus `json:"status"` // completed or failed
	Exception string            `json:"exception,omitempty"`
}

// NewCompleted builds a completed terminal event for one run of a cell
func NewCompleted(cellID, runID string) StatusMessage {
	return StatusMessage{
		MsgType: MsgTypeWorkflowStatus,
		Data: StatusData{
			CellID: cellID,
			RunID:  runID,
			Status: models.CellStatusCompleted,
		},
	}
}

// NewFailed builds a failed terminal event carrying the failure reason
func NewFailed(cellID, runID, reason string) StatusMessage {
	return StatusMessage{
		MsgType: MsgTypeWorkflowStatus,
		Data: StatusData{
			CellID:    cellID,
			RunID:     runID,
			Status:    models.CellStatusFailed,
			Exception: reason,
		},
	}
}

// StreamChunk is one relayed piece of worker stdout, tagged with the
// owning cell. When the wrapper itself fails, Error carries the failure
// text instead of relayed output.
type StreamChunk struct {
	CellID string `json:"cell_id"`
	Text   string `json:"text,omitempty"`
	Error  string `json:"error,omitempty"`
}
