// Package httpapi is the boundary the display surface talks to. It carries no
// workflow logic: every decision lives in the workflow engine.
package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"taxbuddy/config"
	"taxbuddy/internal/metrics"
	"taxbuddy/records"
	"taxbuddy/session"
	"taxbuddy/workflow"
)

// Router builds HTTP handlers for /api and /ops.
type Router struct {
	cfg      config.Config
	engine   *workflow.Engine
	sessions *session.Manager
	store    *records.Store
}

func NewRouter(cfg config.Config, engine *workflow.Engine, sessions *session.Manager, store *records.Store) *Router {
	return &Router{cfg: cfg, engine: engine, sessions: sessions, store: store}
}

// Handler assembles the full middleware chain.
func (r *Router) Handler() http.Handler {
	m := mux.NewRouter()
	m.HandleFunc("/api/sessions", r.createSession).Methods(http.MethodPost)
	m.HandleFunc("/api/sessions/{id}", r.getSession).Methods(http.MethodGet)
	m.HandleFunc("/api/sessions/{id}/chat", r.chat).Methods(http.MethodPost)
	m.HandleFunc("/api/sessions/{id}/reset", r.reset).Methods(http.MethodPost)
	m.HandleFunc("/ops/health", r.health).Methods(http.MethodGet)
	m.HandleFunc("/ops/metrics", r.metrics).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	return c.Handler(r.requireSecret(m))
}

// requireSecret is a shared-secret bearer check with no workflow significance.
// Disabled when no secret is configured; /ops/health stays open for probes.
func (r *Router) requireSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if r.cfg.APISecret == "" || req.URL.Path == "/ops/health" {
			next.ServeHTTP(w, req)
			return
		}
		token := strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer ")
		if token != r.cfg.APISecret {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, req)
	})
}

func (r *Router) createSession(w http.ResponseWriter, req *http.Request) {
	s := r.sessions.Create()
	respondJSON(w, s.Snapshot())
}

func (r *Router) getSession(w http.ResponseWriter, req *http.Request) {
	s, err := r.sessions.Get(mux.Vars(req)["id"])
	if err != nil {
		http.NotFound(w, req)
		return
	}
	respondJSON(w, s.Snapshot())
}

func (r *Router) chat(w http.ResponseWriter, req *http.Request) {
	s, err := r.sessions.Get(mux.Vars(req)["id"])
	if err != nil {
		http.NotFound(w, req)
		return
	}
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		http.Error(w, "empty message", http.StatusBadRequest)
		return
	}
	reply, err := r.engine.Advance(req.Context(), s, body.Message)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, map[string]any{"reply": reply, "session": s.Snapshot()})
}

func (r *Router) reset(w http.ResponseWriter, req *http.Request) {
	s, err := r.sessions.Get(mux.Vars(req)["id"])
	if err != nil {
		http.NotFound(w, req)
		return
	}
	s.LockTurn()
	s.Reset()
	s.UnlockTurn()
	respondJSON(w, s.Snapshot())
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	if err := r.store.Health(req.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) metrics(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, metrics.Snapshot())
}

func respondJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write json: %v", err)
	}
}
