// Package httpapi exposes the HTTP management surface over
// internal/config and internal/engine: list/create rulesets and routes,
// and trigger validation of a file. GET /rulesets lists only the rulesets
// that at least one route names. Routes are plain stdlib net/http
// method patterns; no web framework is introduced for seven endpoints.
package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/anthropics/tinyvalid/internal/config"
	"github.com/anthropics/tinyvalid/internal/engine"
)

// Server holds the dependencies the HTTP handlers need.
type Server struct {
	Config *config.Store
	Engine *engine.Engine
	Logger *log.Logger
}

// New builds a Server.
func New(store *config.Store, eng *engine.Engine, logger *log.Logger) *Server {
	return &Server{Config: store, Engine: eng, Logger: logger}
}

// Handler returns the http.Handler exposing this surface's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleRoot)
	mux.HandleFunc("GET /rulesets", s.handleListRulesets)
	mux.HandleFunc("GET /rulesets/{name}", s.handleGetRuleset)
	mux.HandleFunc("POST /rulesets/{name}", s.handleSetRuleset)
	mux.HandleFunc("GET /routes", s.handleListRoutes)
	mux.HandleFunc("POST /routes", s.handleAddRoute)
	mux.HandleFunc("POST /validate", s.handleValidate)
	return mux
}

func (s *Server) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "active", "version": "1.0"})
}

type rulesetDoc struct {
	Name  string   `json:"name"`
	Rules []string `json:"rules"`
}

func (s *Server) handleListRulesets(w http.ResponseWriter, r *http.Request) {
	s.logf("API: fetching all rulesets")
	routes := s.Config.GetRoutes()
	names := make(map[string]bool, len(routes))
	for _, route := range routes {
		names[route.Ruleset] = true
	}
	out := make([]rulesetDoc, 0, len(names))
	for name := range names {
		out = append(out, rulesetDoc{Name: name, Rules: s.Config.GetRuleset(name)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetRuleset(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	s.logf("API: fetching ruleset %s", name)
	rules := s.Config.GetRuleset(name)
	if len(rules) == 0 {
		writeError(w, http.StatusNotFound, "ruleset not found")
		return
	}
	writeJSON(w, http.StatusOK, rulesetDoc{Name: name, Rules: rules})
}

func (s *Server) handleSetRuleset(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var lines []string
	if err := json.NewDecoder(r.Body).Decode(&lines); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logf("API: updating ruleset %s", name)
	if err := s.Config.AddRuleset(name, lines); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "ruleset " + name + " updated successfully"})
}

func (s *Server) handleListRoutes(w http.ResponseWriter, r *http.Request) {
	s.logf("API: fetching all routes")
	writeJSON(w, http.StatusOK, s.Config.GetRoutes())
}

type addRouteRequest struct {
	Pattern  string `json:"pattern"`
	Ruleset  string `json:"ruleset"`
	Priority int    `json:"priority"`
}

func (s *Server) handleAddRoute(w http.ResponseWriter, r *http.Request) {
	var req addRouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Priority == 0 {
		req.Priority = 10
	}
	s.logf("API: adding route for %s", req.Pattern)
	if err := s.Config.AddRoute(req.Pattern, req.Ruleset, req.Priority); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "route added successfully"})
}

type validateRequest struct {
	FilePath string `json:"filepath"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.FilePath) == "" {
		writeError(w, http.StatusBadRequest, "filepath is required")
		return
	}
	s.logf("API: triggering validation for %s", req.FilePath)
	result, err := s.Engine.ProcessFile(req.FilePath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"filepath": req.FilePath,
		"outcome":  outcomeString(result.Outcome),
		"batch_id": result.BatchID.String(),
		"report":   result.Report,
	})
}

func outcomeString(o engine.Outcome) string {
	switch o {
	case engine.OutcomePassed:
		return "passed"
	case engine.OutcomeFailed:
		return "failed"
	default:
		return "skipped"
	}
}
