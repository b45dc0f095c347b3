package tap

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/flowtap/flowtap/pkg/logging"
)

// Server owns the supervisor side of the two worker channels: a stream
// listener relaying worker stdout and an informer listener receiving the
// single terminal event per worker. Each channel gets its own loopback
// listener so its address can be handed to the engine command line.
type Server struct {
	mu       sync.RWMutex
	onChunk  func(StreamChunk)
	onStatus func(StatusMessage)
	logger   *logging.Logger

	streamLn  net.Listener
	statusLn  net.Listener
	streamSrv *http.Server
	statusSrv *http.Server
}

// NewServer creates a tap server. Handlers are installed separately so
// the server can be started before its consumer exists; the consumer
// usually needs the listener addresses first.
func NewServer(logger *logging.Logger) *Server {
	return &Server{logger: logger}
}

// SetHandlers installs the message consumers. Safe to call after Start;
// messages arriving before handlers are installed are dropped. Handlers
// run on HTTP handler goroutines and do their own locking.
func (s *Server) SetHandlers(onChunk func(StreamChunk), onStatus func(StatusMessage)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChunk = onChunk
	s.onStatus = onStatus
}

// Start binds both listeners on loopback ephemeral ports and begins
// serving. Addresses are available after Start returns.
func (s *Server) Start() error {
	streamLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to bind stream channel: %w", err)
	}
	statusLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		streamLn.Close()
		return fmt.Errorf("failed to bind informer channel: %w", err)
	}
	s.streamLn = streamLn
	s.statusLn = statusLn

	streamRouter := mux.NewRouter()
	streamRouter.HandleFunc("/", s.handleChunk).Methods("POST")
	s.streamSrv = &http.Server{Handler: streamRouter}

	statusRouter := mux.NewRouter()
	statusRouter.HandleFunc("/", s.handleStatus).Methods("POST")
	s.statusSrv = &http.Server{Handler: statusRouter}

	go s.serve(s.streamSrv, streamLn, "stream")
	go s.serve(s.statusSrv, statusLn, "informer")

	s.logger.Info("tap channels listening", map[string]interface{}{
		"stream": s.StreamAddr(),
		"status": s.StatusAddr(),
	})
	return nil
}

func (s *Server) serve(srv *http.Server, ln net.Listener, name string) {
	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		s.logger.Error("tap listener stopped", map[string]interface{}{
			"channel": name,
			"error":   err.Error(),
		})
	}
}

// StreamAddr returns the host:port of the stream channel
func (s *Server) StreamAddr() string {
	return s.streamLn.Addr().String()
}

// StatusAddr returns the host:port of the informer channel
func (s *Server) StatusAddr() string {
	return s.statusLn.Addr().String()
}

// Shutdown stops both listeners. Messages arriving afterwards are lost,
// which the fire-and-forget contract allows.
func (s *Server) Shutdown(ctx context.Context) error {
	var firstErr error
	if s.streamSrv != nil {
		if err := s.streamSrv.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if s.statusSrv != nil {
		if err := s.statusSrv.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Server) handleChunk(w http.ResponseWriter, r *http.Request) {
	var chunk StreamChunk
	if err := json.NewDecoder(r.Body).Decode(&chunk); err != nil {
		http.Error(w, "invalid stream chunk", http.StatusBadRequest)
		return
	}
	s.mu.RLock()
	fn := s.onChunk
	s.mu.RUnlock()
	if fn != nil {
		fn(chunk)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var msg StatusMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, "invalid status message", http.StatusBadRequest)
		return
	}
	if msg.MsgType != MsgTypeWorkflowStatus {
		http.Error(w, "unknown msg_type", http.StatusBadRequest)
		return
	}
	s.mu.RLock()
	fn := s.onStatus
	s.mu.RUnlock()
	if fn != nil {
		fn(msg)
	}
	w.WriteHeader(http.StatusNoContent)
}
