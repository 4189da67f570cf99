// Package http serves a read-only status API for a running Monitor.
package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/aretw0/fbug"
	"github.com/aretw0/fbug/internal/logging"
	"github.com/aretw0/fbug/internal/metrics"
	"github.com/aretw0/fbug/internal/presentation/graph"
	"github.com/aretw0/fbug/internal/presentation/tui"
	"github.com/aretw0/fbug/pkg/config"
	"github.com/aretw0/fbug/pkg/domain"
	"github.com/aretw0/fbug/pkg/state"
	"github.com/go-chi/chi/v5"
)

// Monitor is the part of fbug.Monitor the API reads from.
type Monitor interface {
	Device() *config.Device
	Machine() *state.Machine
	Stats() fbug.Stats
	Subscribe(size int) (<-chan domain.TransitionEvent, func())
}

// StateResponse is the body of GET /state.
type StateResponse struct {
	Device string     `json:"device"`
	State  string     `json:"state,omitempty"`
	Known  bool       `json:"known"`
	Stats  fbug.Stats `json:"stats"`
}

// Server exposes a Monitor over HTTP.
type Server struct {
	Monitor Monitor
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Option func(*Server)

// WithMetrics serves reg on GET /metrics.
func WithMetrics(reg *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = reg
	}
}

// WithLogger sets the logger for request failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler for mon.
func NewHandler(mon Monitor, opts ...Option) http.Handler {
	server := &Server{
		Monitor: mon,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Get("/state", server.GetState)
	r.Get("/triggers", server.GetTriggers)
	r.Get("/graph", server.GetGraph)
	r.Get("/events", server.SubscribeEvents)
	if server.metrics != nil {
		r.Handle("/metrics", server.metrics.Handler())
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	d := s.Monitor.Device()
	s.writeJSON(w, map[string]string{
		"app":      "fbug-http",
		"version":  strings.TrimSpace(fbug.Version),
		"device":   d.Name,
		"codename": d.Codename,
	})
}

// GetState handles the GET /state request.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	current, known := s.Monitor.Machine().Current()
	s.writeJSON(w, StateResponse{
		Device: s.Monitor.Device().Name,
		State:  current,
		Known:  known,
		Stats:  s.Monitor.Stats(),
	})
}

// GetTriggers handles the GET /triggers request. ?format=text returns the
// plain listing instead of JSON.
func (s *Server) GetTriggers(w http.ResponseWriter, r *http.Request) {
	triggers := s.Monitor.Machine().ListTriggers()
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, tui.TriggersPlain(triggers))
		return
	}
	out := slices.Collect(triggers)
	if out == nil {
		out = []*domain.Trigger{}
	}
	s.writeJSON(w, out)
}

// GetGraph handles the GET /graph request with a Mermaid flowchart marking
// the resting and current states.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	m := s.Monitor.Machine()
	current, _ := m.Current()
	overlay := &graph.GraphOverlay{
		RestingState: s.Monitor.Device().RestingState,
		CurrentState: current,
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graph.GenerateMermaid(m.Graph(), overlay))
}

// SubscribeEvents handles the GET /events request (SSE). Every transition
// is sent as a JSON data line.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events, unsubscribe := s.Monitor.Subscribe(0)
	defer unsubscribe()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("event encode failed", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: transition\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
