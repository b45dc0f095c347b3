package queue

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowtap/flowtap/internal/metrics"
	"github.com/flowtap/flowtap/internal/store"
	"github.com/flowtap/flowtap/internal/tap"
	"github.com/flowtap/flowtap/internal/worker"
	"github.com/flowtap/flowtap/pkg/logging"
	"github.com/flowtap/flowtap/pkg/models"
)

// ErrClosed is returned for submissions after the supervisor shut down
var ErrClosed = errors.New("supervisor is closed")

// Options configures a Supervisor
type Options struct {
	Launcher worker.Launcher
	Notifier Notifier
	Store    *store.MemoryStore
	Config   models.ExecConfig
	Logger   *logging.Logger
	Metrics  *metrics.Metrics // optional
}

// Supervisor owns the single-concurrency submission queue: an ordered,
// identity-keyed set of entries of which at most one is ever running.
// All state changes happen under one lock, driven by caller actions
// (Submit, Cancel, Poll) and by terminal events from the informer
// channel. There is no background scheduler loop.
type Supervisor struct {
	mu      sync.Mutex
	entries []*entry
	closed  bool

	launcher worker.Launcher
	notifier Notifier
	store    *store.MemoryStore
	config   models.ExecConfig
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

// New creates a supervisor. Multiple independent supervisors may coexist
// in one process; nothing is shared between them.
func New(opts Options) *Supervisor {
	return &Supervisor{
		launcher: opts.Launcher,
		notifier: opts.Notifier,
		store:    opts.Store,
		config:   opts.Config,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
}

// Submit enqueues a submission under the given cell identity and returns
// its 1-based queue position. Re-submitting an identity that is already
// queued replaces it: any running worker for it is killed first and the
// new submission takes over the original queue position. The call
// returns once queue state is settled; it never waits for completion.
func (s *Supervisor) Submit(cellID, code, args string) (models.QueueStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return models.QueueStatus{}, ErrClosed
	}

	// Latest submission wins per identity: cancel whatever is there,
	// remembering the slot so the replacement keeps its queue order.
	origIdx := s.indexOf(cellID)
	if origIdx >= 0 {
		if err := s.cancelLocked(cellID); err != nil {
			return models.QueueStatus{}, err
		}
		s.store.ClearLogs(cellID)
	}

	sub := &models.Submission{
		CellID:      cellID,
		RunID:       uuid.NewString(),
		Code:        code,
		Args:        args,
		Config:      s.config,
		SubmittedAt: time.Now(),
	}
	e := &entry{cellID: cellID, runID: sub.RunID, state: pendingState{sub: sub}}
	if origIdx >= 0 && origIdx < len(s.entries) {
		s.entries = append(s.entries[:origIdx],
			append([]*entry{e}, s.entries[origIdx:]...)...)
	} else {
		s.entries = append(s.entries, e)
	}

	s.reconcileLocked()

	if s.metrics != nil {
		s.metrics.Submissions.Inc()
	}

	pos := s.positionOf(cellID)
	if pos < 1 {
		// promotion failed and the entry is gone; the failed terminal
		// event has already been reported
		return models.QueueStatus{CellID: cellID}, nil
	}

	s.notifier.Notify(FrontendMessage{
		CellID: cellID,
		Status: models.CellStatusPending,
		Msg:    fmt.Sprintf("#%d in queue", pos),
	})
	if _, running := s.entries[pos-1].state.(runningState); running {
		s.store.SetStatus(cellID, models.CellStatusRunning, pos, "")
	} else {
		s.store.SetStatus(cellID, models.CellStatusPending, pos, "")
	}

	return models.QueueStatus{CellID: cellID, Position: pos}, nil
}

// Cancel removes a cell from the queue, killing its worker tree if one
// is running. Cancelling an unknown or already-finished cell is a
// harmless no-op that still emits the aborted signal; the idempotence is
// intentional so frontends can cancel blindly.
func (s *Supervisor) Cancel(cellID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(cellID)
}

func (s *Supervisor) cancelLocked(cellID string) error {
	// aborted goes out to the frontend before any existence check
	s.notifier.Notify(FrontendMessage{
		CellID: cellID,
		Status: models.CellStatusAborted,
	})

	idx := s.indexOf(cellID)
	if idx >= 0 {
		e := s.entries[idx]
		if r, ok := e.state.(runningState); ok && r.handle.Alive() {
			if err := r.handle.KillTree(); err != nil {
				// Entry and status stay as they are: admitting a kill
				// that did not happen would leave a live worker behind a
				// released queue slot.
				return fmt.Errorf("cell %s: %w", cellID, err)
			}
			s.logger.Info("worker killed", map[string]interface{}{
				"cell_id": cellID,
				"pid":     r.handle.PID(),
			})
		}
		s.entries = append(s.entries[:idx], s.entries[idx+1:]...)
	}

	// the status surface flips to aborted only once nothing is running
	s.store.SetStatus(cellID, models.CellStatusAborted, 0, "")
	if s.metrics != nil {
		s.metrics.Aborted.Inc()
		s.metrics.QueueLength.Set(float64(len(s.entries)))
	}
	return nil
}

// Poll prunes finished workers and promotes the head entry if it is
// still pending. Called after cancellations and terminal events to
// advance the queue without waiting for the next submission.
func (s *Supervisor) Poll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.reconcileLocked()
}

// reconcileLocked is the prune + promote pass run on every mutation
func (s *Supervisor) reconcileLocked() {
	// prune: drop running entries whose worker is gone or whose
	// terminal event has been consumed; pending entries are never pruned
	kept := s.entries[:0]
	for _, e := range s.entries {
		if r, ok := e.state.(runningState); ok {
			if e.done || !r.handle.Alive() {
				continue
			}
		}
		kept = append(kept, e)
	}
	s.entries = kept

	// promote: the head runs, everything else waits. A spawn failure
	// surfaces as a failed status for that cell and must not block the
	// entries behind it.
	for len(s.entries) > 0 {
		head := s.entries[0]
		p, ok := head.state.(pendingState)
		if !ok {
			break
		}

		sub := p.sub
		sub.Config.SlaveID = sub.CellID
		handle, err := s.launcher.Start(sub)
		if err != nil {
			s.logger.Error("failed to spawn worker", map[string]interface{}{
				"cell_id": head.cellID,
				"error":   err.Error(),
			})
			s.store.SetStatus(head.cellID, models.CellStatusFailed, 0, err.Error())
			s.notifier.Notify(FrontendMessage{
				CellID:    head.cellID,
				Status:    models.CellStatusFailed,
				Exception: err.Error(),
			})
			if s.metrics != nil {
				s.metrics.SpawnFailures.Inc()
				s.metrics.Failed.Inc()
			}
			s.entries = s.entries[1:]
			continue
		}

		head.state = runningState{handle: handle}
		s.store.SetStatus(head.cellID, models.CellStatusRunning, 1, "")
		break
	}

	if s.metrics != nil {
		s.metrics.QueueLength.Set(float64(len(s.entries)))
	}
}

// HandleStatus consumes one terminal event from the informer channel,
// relays it to the frontend and advances the queue. An event carrying
// the run id of a superseded worker is dropped: the cell's slot now
// belongs to a different run.
func (s *Supervisor) HandleStatus(msg tap.StatusMessage) {
	cellID := msg.Data.CellID

	s.mu.Lock()
	if idx := s.indexOf(cellID); idx >= 0 {
		e := s.entries[idx]
		if msg.Data.RunID != e.runID {
			s.mu.Unlock()
			return
		}
		if _, ok := e.state.(runningState); ok {
			e.done = true
		}
	}
	s.store.SetStatus(cellID, msg.Data.Status, 0, msg.Data.Exception)
	s.notifier.Notify(FrontendMessage{
		CellID:    cellID,
		Status:    msg.Data.Status,
		Exception: msg.Data.Exception,
	})
	if s.metrics != nil {
		switch msg.Data.Status {
		case models.CellStatusCompleted:
			s.metrics.Completed.Inc()
		case models.CellStatusFailed:
			s.metrics.Failed.Inc()
		}
	}
	if !s.closed {
		s.reconcileLocked()
	}
	s.mu.Unlock()
}

// HandleChunk consumes one stream-channel record: retained for the
// cell's log surface, with wrapper errors folded in as output
func (s *Supervisor) HandleChunk(chunk tap.StreamChunk) {
	if s.metrics != nil {
		s.metrics.StreamChunks.Inc()
	}
	if chunk.Error != "" {
		s.store.AppendLog(chunk.CellID, "ERROR: "+chunk.Error)
		return
	}
	s.store.AppendLog(chunk.CellID, chunk.Text)
}

// Snapshot returns the current queue in order
func (s *Supervisor) Snapshot() []models.QueueEntryInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]models.QueueEntryInfo, 0, len(s.entries))
	for i, e := range s.entries {
		info := models.QueueEntryInfo{
			CellID:   e.cellID,
			Position: i + 1,
			State:    "pending",
		}
		if r, ok := e.state.(runningState); ok {
			info.State = "running"
			info.PID = r.handle.PID()
		}
		infos = append(infos, info)
	}
	return infos
}

// Len returns the number of queued entries
func (s *Supervisor) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close cancels every queued cell and refuses further submissions.
// Returns the first kill failure encountered, after attempting the rest.
func (s *Supervisor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	var firstErr error
	for len(s.entries) > 0 {
		cellID := s.entries[0].cellID
		if err := s.cancelLocked(cellID); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			// skip the stubborn entry so shutdown still drains the rest
			s.entries = s.entries[1:]
		}
	}
	return firstErr
}

func (s *Supervisor) indexOf(cellID string) int {
	for i, e := range s.entries {
		if e.cellID == cellID {
			return i
		}
	}
	return -1
}

func (s *Supervisor) positionOf(cellID string) int {
	return s.indexOf(cellID) + 1
}
