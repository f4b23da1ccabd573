// Package monitor implements the optional HTTP/WebSocket status server
// that lets an external viewer watch a run's blackboard without
// participating in the executor loop: a JSON snapshot endpoint and a
// streaming log endpoint, each reading the blackboard only through its
// locked snapshot accessors (AsDict, LogLines).
package monitor

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/kcri-tz/kcri-cge-bap/internal/blackboard"
	"github.com/kcri-tz/kcri-cge-bap/pkg/logging"
)

// Server exposes a running blackboard over HTTP.
type Server struct {
	bb       *blackboard.Blackboard
	log      logging.Logger
	upgrader websocket.Upgrader
	router   *mux.Router
}

// New builds a Server reading from bb. log defaults to a no-op logger.
func New(bb *blackboard.Blackboard, log logging.Logger) *Server {
	if log == nil {
		log = logging.NoOpLogger{}
	}
	s := &Server{
		bb:  bb,
		log: log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.router = mux.NewRouter()
	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/ws/log", s.handleLogStream).Methods(http.MethodGet)
	return s
}

// Handler returns the server's http.Handler, for use with http.Server or
// httptest.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe starts serving on addr (e.g. ":8080") until the process
// is killed or the listener errors.
func (s *Server) ListenAndServe(addr string) error {
	s.log.Info("monitor server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// handleStatus returns the current blackboard as JSON, log lines
// included.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snapshot := s.bb.AsDict(true)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		s.log.Warn("status encode failed", "error", err)
	}
}

// logMessage is one line pushed to a /ws/log subscriber.
type logMessage struct {
	Line string `json:"line"`
}

// handleLogStream upgrades to a WebSocket and pushes any log lines
// appended to the blackboard since the last poll, until the client
// disconnects.
func (s *Server) handleLogStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sent := 0
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		lines := s.bb.LogLines()
		for _, line := range lines[sent:] {
			if err := conn.WriteJSON(logMessage{Line: line}); err != nil {
				return
			}
		}
		sent = len(lines)
	}
}
