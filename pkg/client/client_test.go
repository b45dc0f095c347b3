package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flowtap/flowtap/pkg/models"
)

func TestRunDecodesQueueStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cells/X/run" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req models.RunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.Code != "print(1)" {
			t.Errorf("code = %q", req.Code)
		}
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(models.QueueStatus{CellID: "X", Position: 1})
	}))
	defer srv.Close()

	status, err := New(srv.URL).Run("X", "print(1)", "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if status.Position != 1 {
		t.Errorf("position = %d, expected 1", status.Position)
	}
}

func TestRunSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "supervisor is closed", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := New(srv.URL).Run("X", "c", ""); err == nil {
		t.Fatal("expected error from 503 response")
	}
}

func TestStatusNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	if _, err := New(srv.URL).Status("ghost"); err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestQueueDecodesEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.QueueEntryInfo{
			{CellID: "X", State: "running", Position: 1, PID: 42},
			{CellID: "Y", State: "pending", Position: 2},
		})
	}))
	defer srv.Close()

	entries, err := New(srv.URL).Queue()
	if err != nil {
		t.Fatalf("Queue failed: %v", err)
	}
	if len(entries) != 2 || entries[0].PID != 42 {
		t.Errorf("entries = %+v", entries)
	}
}
