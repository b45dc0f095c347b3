package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/flowtap/flowtap/internal/metrics"
	"github.com/flowtap/flowtap/internal/queue"
	"github.com/flowtap/flowtap/internal/store"
	"github.com/flowtap/flowtap/pkg/logging"
	"github.com/flowtap/flowtap/pkg/models"
)

// Server is the caller boundary: a small HTTP API through which a
// frontend (or the flowtap CLI) submits, cancels and observes cells
type Server struct {
	supervisor *queue.Supervisor
	store      *store.MemoryStore
	metrics    *metrics.Metrics
	logger     *logging.Logger
	httpSrv    *http.Server
}

// NewServer creates an API server around a supervisor
func NewServer(sup *queue.Supervisor, st *store.MemoryStore, m *metrics.Metrics, logger *logging.Logger) *Server {
	return &Server{
		supervisor: sup,
		store:      st,
		metrics:    m,
		logger:     logger,
	}
}

// Router builds the route table
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/cells/{id}/run", s.RunCell).Methods("POST")
	r.HandleFunc("/cells/{id}/cancel", s.CancelCell).Methods("POST")
	r.HandleFunc("/cells/{id}/status", s.GetCellStatus).Methods("GET")
	r.HandleFunc("/cells/{id}/logs", s.GetCellLogs).Methods("GET")
	r.HandleFunc("/queue", s.GetQueue).Methods("GET")
	r.HandleFunc("/health", s.Health).Methods("GET")
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics).Methods("GET")
	}

	return r
}

// Start serves the API on addr until Shutdown
func (s *Server) Start(addr string) error {
	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("API listening", map[string]interface{}{"addr": addr})
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the API server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// RunCell submits code under the cell identity in the path
func (s *Server) RunCell(w http.ResponseWriter, r *http.Request) {
	cellID := mux.Vars(r)["id"]

	var req models.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	status, err := s.supervisor.Submit(cellID, req.Code, req.Args)
	if err != nil {
		if err == queue.ErrClosed {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, status)
}

// CancelCell cancels a cell and then polls the queue so a waiting
// successor is promoted without needing another submit
func (s *Server) CancelCell(w http.ResponseWriter, r *http.Request) {
	cellID := mux.Vars(r)["id"]

	if err := s.supervisor.Cancel(cellID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.supervisor.Poll()

	writeJSON(w, http.StatusOK, map[string]string{
		"cell_id": cellID,
		"status":  string(models.CellStatusAborted),
	})
}

// GetCellStatus returns the last-known status of a cell
func (s *Server) GetCellStatus(w http.ResponseWriter, r *http.Request) {
	cellID := mux.Vars(r)["id"]

	rec, err := s.store.GetStatus(cellID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetCellLogs returns the retained output of a cell
func (s *Server) GetCellLogs(w http.ResponseWriter, r *http.Request) {
	cellID := mux.Vars(r)["id"]

	lines, err := s.store.GetLogs(cellID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cell_id": cellID,
		"lines":   lines,
	})
}

// GetQueue returns an ordered snapshot of the queue
func (s *Server) GetQueue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.supervisor.Snapshot())
}

// Health is a liveness probe
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"queue_length": s.supervisor.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
