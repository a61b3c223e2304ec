package api

import (
	"encoding/json"
	"net/http"
	"time"
)

// envelope is the standard JSON response wrapper
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// handleTierMetrics returns per-tier metrics for both periods plus their
// comparison.
func (s *Server) handleTierMetrics(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.engine.TierMetrics(r.Context(), q)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respondJSON(w, http.StatusOK, envelope{Success: true, Data: result})
}

// handleTierTrends returns daily active-customer series per tier
func (s *Server) handleTierTrends(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.engine.TierTrends(r.Context(), q)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respondJSON(w, http.StatusOK, envelope{Success: true, Data: result})
}

// handleTierMovement returns the upgrade/downgrade/stable summary
func (s *Server) handleTierMovement(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.engine.Movement(r.Context(), q)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respondJSON(w, http.StatusOK, envelope{Success: true, Data: result})
}

// handleAlerts returns threshold alerts, pushing freshly computed batches
// to the realtime listeners.
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	result, fresh, err := s.engine.Alerts(r.Context(), q)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	if fresh && len(result.Alerts) > 0 {
		s.broker.Broadcast("alerts", result.Alerts)
		s.hub.Broadcast("alerts", result.Alerts)
	}
	s.respondJSON(w, http.StatusOK, envelope{Success: true, Data: result.Alerts})
}

// handleHealth reports process and dependency health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.Ping(); err != nil {
		s.log.WithError(err).Error("health check: database unreachable")
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	s.respondJSON(w, code, map[string]interface{}{
		"status":     status,
		"time":       time.Now().UTC(),
		"sseClients": s.broker.ClientCount(),
		"wsClients":  s.hub.ClientCount(),
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.WithError(err).Warn("failed to encode response")
	}
}

func (s *Server) respondError(w http.ResponseWriter, code int, err error) {
	if code >= http.StatusInternalServerError {
		s.log.WithError(err).Error("request failed")
	}
	s.respondJSON(w, code, envelope{Success: false, Error: err.Error()})
}
