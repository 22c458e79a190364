// internal/live/server.go
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/tamzrod/solaredge-bridge/internal/registry"
	"github.com/tamzrod/solaredge-bridge/internal/status"
	"github.com/tamzrod/solaredge-bridge/internal/unit"
)

// Deps are the parts of the engine the server exposes.
type Deps struct {
	Registry registry.Registry
	Tracker  *status.Tracker
	Hub      *Hub
	Units    func() []unit.Unit
	Metrics  http.Handler // optional
}

// Server is the HTTP API: status, registry entries, live updates, metrics.
type Server struct {
	deps      Deps
	router    *mux.Router
	startTime time.Time
}

func NewServer(deps Deps) *Server {
	s := &Server{
		deps:      deps,
		router:    mux.NewRouter(),
		startTime: time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/", s.handleRoot).Methods("GET")
	s.router.Handle("/ws", s.deps.Hub)
	if s.deps.Metrics != nil {
		s.router.Handle("/metrics", s.deps.Metrics).Methods("GET")
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/units", s.handleUnits).Methods("GET")
	api.HandleFunc("/entries", s.handleListEntries).Methods("GET")
	api.HandleFunc("/entries/{id:[0-9]+}", s.handleGetEntry).Methods("GET")
	api.HandleFunc("/entries/{id:[0-9]+}", s.handleDeleteEntry).Methods("DELETE")
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("listen", addr).Info("starting HTTP API server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("live: serve %s: %w", addr, err)

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("live: shutdown: %w", err)
		}
		return nil
	}
}

// ---- handlers ----

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"message": "SolarEdge bridge",
		"status":  "running",
		"uptime":  time.Since(s.startTime).Round(time.Second).String(),
		"clients": s.deps.Hub.Clients(),
	}, http.StatusOK)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	body, err := status.Encode(s.deps.Tracker.Snapshot())
	if err != nil {
		s.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

type unitView struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	DID    int    `json:"did"`
	Offset int    `json:"offset"`
	Schema string `json:"schema"`
	Rows   int    `json:"rows"`
}

func (s *Server) handleUnits(w http.ResponseWriter, _ *http.Request) {
	result := make([]unitView, 0)
	if s.deps.Units != nil {
		for _, u := range s.deps.Units() {
			result = append(result, unitView{
				Name:   u.Name,
				Kind:   u.Kind.String(),
				DID:    u.DID,
				Offset: u.Offset,
				Schema: u.Schema.Name,
				Rows:   len(u.Schema.Rows),
			})
		}
	}
	s.writeJSON(w, map[string]interface{}{
		"units": result,
		"count": len(result),
	}, http.StatusOK)
}

func (s *Server) handleListEntries(w http.ResponseWriter, _ *http.Request) {
	lister, ok := s.deps.Registry.(registry.Lister)
	if !ok {
		s.writeError(w, "Registry cannot be listed", http.StatusNotImplemented)
		return
	}
	entries, err := lister.List()
	if errors.Is(err, registry.ErrUnsupported) {
		s.writeError(w, "Registry cannot be listed", http.StatusNotImplemented)
		return
	}
	if err != nil {
		s.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []registry.Entry{}
	}
	s.writeJSON(w, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	}, http.StatusOK)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	e, err := s.deps.Registry.Get(id)
	if errors.Is(err, registry.ErrNotFound) {
		s.writeError(w, "Entry not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, e, http.StatusOK)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	deleter, ok := s.deps.Registry.(registry.Deleter)
	if !ok {
		s.writeError(w, "Registry does not support removal", http.StatusNotImplemented)
		return
	}
	err := deleter.Delete(id)
	if errors.Is(err, registry.ErrNotFound) {
		s.writeError(w, "Entry not found", http.StatusNotFound)
		return
	}
	if errors.Is(err, registry.ErrUnsupported) {
		s.writeError(w, "Registry does not support removal", http.StatusNotImplemented)
		return
	}
	if err != nil {
		s.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	log.WithField("id", id).Info("registry entry removed")
	s.deps.Hub.Broadcast(Event{Type: EventDeleted, ID: id})
	w.WriteHeader(http.StatusNoContent)
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Error("failed to encode JSON response")
	}
}

// writeError writes an error response.
func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, map[string]string{"error": message}, statusCode)
}
