package server

import (
	"sync"
	"time"

	"github.com/woozymasta/lobby/internal/lobby"
	"github.com/woozymasta/lobby/internal/models"
)

// SessionReader gives read access to the session history.
type SessionReader interface {
	GetSessions(limit int, openOnly bool) ([]models.Session, error)
}

// Server holds the dependencies, configuration, and runtime state required
// to serve lobby HTTP requests and run background maintenance of the registry.
type Server struct {
	// lobby executes registration, heartbeat, deregistration and listing.
	lobby *lobby.Service

	// history provides session history for the admin API.
	// It is nil when the history database is disabled.
	history SessionReader

	// shutdown is a signal channel used to broadcast a stop signal to background loops
	// (stale sweeper, rate limiter cleanup) during a graceful shutdown.
	shutdown chan struct{}

	// authToken is the secret token required to access administrative API endpoints.
	// Admin endpoints are not routed when it is empty.
	authToken string

	// wg is used to wait for background loops to return on shutdown.
	wg sync.WaitGroup

	// stopOnce guards the shutdown channel against double close.
	stopOnce sync.Once

	// maxBody specifies the maximum allowed size (in bytes) for incoming request bodies.
	maxBody int64

	// limiter holds per IP token buckets for the public routes.
	// It is nil when rate limiting is disabled.
	limiter *ipLimiter

	// staleAfter is the heartbeat age after which a server is expired. Zero disables expiry.
	staleAfter time.Duration

	// sweepInterval is how often the stale sweeper runs.
	sweepInterval time.Duration

	// trustProxy indicates whether the server should trust headers like X-Forwarded-For
	// or CF-Connecting-IP when determining the client's real IP address.
	trustProxy bool
}

// errorResponse is the JSON body of failed registrations.
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}
