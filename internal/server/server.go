// Package server implements the HTTP server, middleware, and request handlers of the lobby.
package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/lobby/internal/config"
	"github.com/woozymasta/lobby/internal/lobby"
)

// New creates a new Server over the lobby service. history may be nil.
func New(svc *lobby.Service, history SessionReader, cfg *config.Config) *Server {
	return &Server{
		lobby:          svc,
		history:        history,
		authToken:      cfg.Server.AuthToken,
		maxBody:        cfg.Server.MaxBodySize,
		trustProxy:     cfg.Server.TrustProxy,
		limiter:        newIPLimiter(cfg.RateLimit.HardLimitCount, cfg.RateLimit.HardLimitWin),
		staleAfter:     cfg.Registry.StaleAfter,
		sweepInterval:  cfg.Registry.SweepInterval,

		shutdown: make(chan struct{}),
	}
}

// StartWorkers starts the rate limiter cleanup and, when expiry is enabled, the stale server sweeper.
func (s *Server) StartWorkers() {
	if s.limiter != nil {
		s.wg.Add(1)
		go s.limiter.gc(s.shutdown, &s.wg)
	}

	if s.staleAfter <= 0 {
		log.Debug().Msg("Stale expiry disabled")
		return
	}

	log.Info().
		Dur("stale_after", s.staleAfter).
		Dur("interval", s.sweepInterval).
		Msg("Stale expiry enabled")

	s.wg.Add(1)
	go s.sweepStale()
}

// StopWorkers signals background loops to stop and waits for them.
func (s *Server) StopWorkers() {
	s.stopOnce.Do(func() { close(s.shutdown) })
	s.wg.Wait()
}

// Run configures the HTTP routes and returns the main handler.
func (s *Server) Run() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /add_game_server", s.RateLimitMiddleware(http.HandlerFunc(s.handleAddServer)))
	mux.Handle("POST /update_game_server", s.RateLimitMiddleware(http.HandlerFunc(s.handleUpdateServer)))
	mux.Handle("POST /remove_game_server", s.RateLimitMiddleware(http.HandlerFunc(s.handleRemoveServer)))
	mux.Handle("GET /list_game_servers", s.RateLimitMiddleware(http.HandlerFunc(s.handleListServers)))

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /version", handleVersion)
	mux.Handle("GET /metrics", promhttp.Handler())

	if s.authToken != "" {
		mux.Handle("GET /api/servers", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleAdminServers)))
		mux.Handle("GET /api/sessions", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleAdminSessions)))
	}

	return s.LoggingMiddleware(mux)
}

// sweepStale periodically removes servers whose last heartbeat is older than staleAfter.
func (s *Server) sweepStale() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case <-ticker.C:
			if n := s.lobby.ExpireStale(s.staleAfter); n > 0 {
				log.Info().Int("expired", n).Msg("Stale servers removed")
			}
		}
	}
}
