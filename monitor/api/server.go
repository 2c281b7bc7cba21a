// Package api exposes the reporting boundary over HTTP: rollup snapshots,
// raw sample queries, cache control and the live sample feed.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/jimfhahn/qa-server/monitor/metrics"
	"github.com/jimfhahn/qa-server/monitor/rollup"
	"github.com/jimfhahn/qa-server/monitor/storage"
)

// Server provides the HTTP API for performance data access.
type Server interface {
	Start(ctx context.Context) error
	Stop() error
}

// server implements the API server.
type server struct {
	addr         string
	readTimeout  time.Duration
	writeTimeout time.Duration

	service   *rollup.Service
	samples   storage.SampleReader
	lister    rollup.AuthorityLister
	collector *metrics.SystemCollector
	hub       *WSHub

	log        logrus.FieldLogger
	httpServer *http.Server
	upgrader   websocket.Upgrader
	hubCancel  context.CancelFunc
}

// NewServer creates a new API server instance. collector and hub may be nil;
// the matching routes are then omitted.
func NewServer(
	addr string,
	readTimeout, writeTimeout time.Duration,
	service *rollup.Service,
	samples storage.SampleReader,
	lister rollup.AuthorityLister,
	collector *metrics.SystemCollector,
	hub *WSHub,
	log logrus.FieldLogger,
) Server {
	return &server{
		addr:         addr,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		service:      service,
		samples:      samples,
		lister:       lister,
		collector:    collector,
		hub:          hub,
		log:          log.WithField("component", "api_server"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Dashboard may be served from another origin
			},
		},
	}
}

// Start initializes routes and begins serving.
func (s *server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      router,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  120 * time.Second,
	}

	if s.hub != nil {
		hubCtx, cancel := context.WithCancel(context.Background())
		s.hubCancel = cancel
		go s.hub.Run(hubCtx)
	}

	go func() {
		s.log.WithField("addr", s.httpServer.Addr).Info("API server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("API server failed")
		}
	}()

	return nil
}

// Stop gracefully shuts the server down.
func (s *server) Stop() error {
	if s.hubCancel != nil {
		s.hubCancel()
	}
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down API server: %w", err)
	}
	s.log.Info("API server stopped")
	return nil
}

// setupRoutes wires all endpoints.
func (s *server) setupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/performance", s.handlePerformance).Methods(http.MethodGet)
	v1.HandleFunc("/performance/refresh", s.handleRefresh).Methods(http.MethodPost)
	v1.HandleFunc("/performance/cache", s.handleInvalidate).Methods(http.MethodDelete)
	v1.HandleFunc("/authorities", s.handleAuthorities).Methods(http.MethodGet)
	v1.HandleFunc("/samples", s.handleSamples).Methods(http.MethodGet)

	if s.collector != nil {
		v1.HandleFunc("/system", s.handleSystem).Methods(http.MethodGet)
	}

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	if s.hub != nil {
		router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
			s.hub.ServeWS(s.upgrader, w, r)
		})
	}

	return router
}
