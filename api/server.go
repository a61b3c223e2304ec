// Package api is the HTTP boundary: routing, parameter parsing and
// validation in front of the analytics engine. Requests with malformed
// dates or reversed periods are rejected here; the engine assumes
// well-formed input.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"tiertrend/analytics"
	"tiertrend/database"
	"tiertrend/realtime"
)

// Server handles HTTP API requests
type Server struct {
	engine *analytics.Engine
	db     *database.Database
	broker *realtime.Broker
	hub    *realtime.Hub
	log    *logrus.Logger
}

// NewServer creates a new API server instance
func NewServer(engine *analytics.Engine, db *database.Database, broker *realtime.Broker, hub *realtime.Hub, log *logrus.Logger) *Server {
	return &Server{
		engine: engine,
		db:     db,
		broker: broker,
		hub:    hub,
		log:    log,
	}
}

// Router builds the route table
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/analytics/tier-metrics", s.handleTierMetrics).Methods("GET")
	r.HandleFunc("/api/analytics/tier-trends", s.handleTierTrends).Methods("GET")
	r.HandleFunc("/api/analytics/tier-movement", s.handleTierMovement).Methods("GET")
	r.HandleFunc("/api/analytics/alerts", s.handleAlerts).Methods("GET")

	r.Handle("/api/events", s.broker).Methods("GET") // SSE endpoint
	r.Handle("/api/ws", s.hub).Methods("GET")

	r.HandleFunc("/api/health", s.handleHealth).Methods("GET")

	return r
}

// Start starts the HTTP server on the specified port
func (s *Server) Start(port int) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	s.log.WithField("port", port).Info("HTTP server listening")
	return srv.ListenAndServe()
}
