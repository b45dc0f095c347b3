package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/flowtap/flowtap/pkg/models"
)

var (
	ErrCellNotFound = errors.New("cell not found")
)

// DefaultMaxLogLines bounds retained output per cell
const DefaultMaxLogLines = 1000

// MemoryStore keeps the last-known status and a bounded tail of relayed
// output per cell, so callers arriving after a worker finished can still
// query the outcome. Everything is transient; nothing survives a restart.
type MemoryStore struct {
	statusMu sync.RWMutex
	statuses map[string]*models.StatusRecord

	logsMu      sync.RWMutex
	logs        map[string][]string
	maxLogLines int
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		statuses:    make(map[string]*models.StatusRecord),
		logs:        make(map[string][]string),
		maxLogLines: DefaultMaxLogLines,
	}
}

// SetStatus records the latest status of a cell, replacing any previous one
func (s *MemoryStore) SetStatus(cellID string, status models.CellStatus, position int, errMsg string) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	s.statuses[cellID] = &models.StatusRecord{
		CellID:    cellID,
		Status:    status,
		Position:  position,
		Error:     errMsg,
		UpdatedAt: time.Now(),
	}
}

// GetStatus retrieves the last-known status of a cell
func (s *MemoryStore) GetStatus(cellID string) (*models.StatusRecord, error) {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()

	rec, ok := s.statuses[cellID]
	if !ok {
		return nil, ErrCellNotFound
	}
	cp := *rec
	return &cp, nil
}

// AllStatuses returns every recorded status, newest first
func (s *MemoryStore) AllStatuses() []*models.StatusRecord {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()

	records := make([]*models.StatusRecord, 0, len(s.statuses))
	for _, rec := range s.statuses {
		cp := *rec
		records = append(records, &cp)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].UpdatedAt.After(records[j].UpdatedAt)
	})
	return records
}

// AppendLog retains one line of relayed worker output for a cell,
// dropping the oldest lines past the retention bound
func (s *MemoryStore) AppendLog(cellID, line string) {
	s.logsMu.Lock()
	defer s.logsMu.Unlock()

	lines := append(s.logs[cellID], line)
	if len(lines) > s.maxLogLines {
		lines = lines[len(lines)-s.maxLogLines:]
	}
	s.logs[cellID] = lines
}

// GetLogs returns the retained output of a cell
func (s *MemoryStore) GetLogs(cellID string) ([]string, error) {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()

	lines, ok := s.logs[cellID]
	if !ok {
		return nil, ErrCellNotFound
	}
	out := make([]string, len(lines))
	copy(out, lines)
	return out, nil
}

// ClearLogs discards retained output for a cell. Called on resubmission:
// a replaced cell's old output is not kept alongside the new run's.
func (s *MemoryStore) ClearLogs(cellID string) {
	s.logsMu.Lock()
	defer s.logsMu.Unlock()
	delete(s.logs, cellID)
}
