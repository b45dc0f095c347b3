package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/flowtap/flowtap/pkg/models"
)

func TestStatusRoundTrip(t *testing.T) {
	st := NewMemoryStore()

	if _, err := st.GetStatus("X"); !errors.Is(err, ErrCellNotFound) {
		t.Errorf("GetStatus on empty store = %v, expected ErrCellNotFound", err)
	}

	st.SetStatus("X", models.CellStatusPending, 2, "")
	rec, err := st.GetStatus("X")
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if rec.Status != models.CellStatusPending || rec.Position != 2 {
		t.Errorf("record = %+v, expected pending at position 2", rec)
	}

	// latest status replaces the previous one
	st.SetStatus("X", models.CellStatusFailed, 0, "boom")
	rec, _ = st.GetStatus("X")
	if rec.Status != models.CellStatusFailed || rec.Error != "boom" {
		t.Errorf("record = %+v, expected failed with reason", rec)
	}
}

func TestAllStatusesNewestFirst(t *testing.T) {
	st := NewMemoryStore()
	st.SetStatus("A", models.CellStatusCompleted, 0, "")
	st.SetStatus("B", models.CellStatusPending, 1, "")

	records := st.AllStatuses()
	if len(records) != 2 {
		t.Fatalf("records = %d, expected 2", len(records))
	}
	if records[0].CellID != "B" {
		t.Errorf("first record = %s, expected the newest (B)", records[0].CellID)
	}
}

func TestLogRetentionBound(t *testing.T) {
	st := NewMemoryStore()
	st.maxLogLines = 3

	for i := 0; i < 5; i++ {
		st.AppendLog("X", fmt.Sprintf("line %d", i))
	}

	lines, err := st.GetLogs("X")
	if err != nil {
		t.Fatalf("GetLogs failed: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("retained lines = %d, expected 3", len(lines))
	}
	if lines[0] != "line 2" || lines[2] != "line 4" {
		t.Errorf("lines = %v, expected the newest three", lines)
	}
}

func TestClearLogs(t *testing.T) {
	st := NewMemoryStore()
	st.AppendLog("X", "old output")
	st.ClearLogs("X")

	if _, err := st.GetLogs("X"); !errors.Is(err, ErrCellNotFound) {
		t.Errorf("GetLogs after clear = %v, expected ErrCellNotFound", err)
	}
}
