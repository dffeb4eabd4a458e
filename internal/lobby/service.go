// Package lobby implements the lobby service operations on top of the registry:
// registration, heartbeat, deregistration and listing.
package lobby

import (
	"errors"
	"fmt"
	"time"

	"github.com/woozymasta/lobby/internal/metrics"
	"github.com/woozymasta/lobby/internal/models"
	"github.com/woozymasta/lobby/internal/registry"
)

var (
	// ErrUnauthorized is returned when the private key does not match.
	ErrUnauthorized = errors.New("invalid private key")

	// ErrNotFoundOrInvalid is the heartbeat failure for both an unknown server and a bad player count.
	ErrNotFoundOrInvalid = errors.New("server not found or invalid current players")

	// ErrNotFound is the deregistration failure for an unknown server.
	ErrNotFound = errors.New("server not found or invalid private key")

	// ErrInternal is returned on registry faults.
	ErrInternal = errors.New("internal error")
)

// CountryResolver maps an IP address to an ISO country code.
type CountryResolver interface {
	GetCountryCode(ip string) string
}

// EventSink receives registry lifecycle events. Publish must not block.
type EventSink interface {
	Publish(ev models.Event)
}

// Caller is the resolved network identity of a request.
type Caller struct {
	IP      string
	Version models.IPVersion
}

// Service translates lobby requests into registry calls.
type Service struct {
	registry *registry.Registry
	geo      CountryResolver
	sink     EventSink
	now      func() time.Time
}

// New creates a Service over reg. geo and sink are optional.
// The registered servers gauge is set from the current content of reg.
func New(reg *registry.Registry, geo CountryResolver, sink EventSink) *Service {
	metrics.RegisteredServers.Set(float64(reg.Len()))

	return &Service{
		registry: reg,
		geo:      geo,
		sink:     sink,
		now:      time.Now,
	}
}

// Register admits a new game server announced from caller.
// Validation failures are returned as errors wrapping *registry.ValidationError.
func (s *Service) Register(req models.RegisterRequest, caller Caller) (models.RegisterResponse, error) {
	rec := models.Record{
		Port:               req.Port,
		ServerName:         req.ServerName,
		PasswordProtected:  req.PasswordProtected,
		GameMode:           req.GameMode,
		Difficulty:         req.Difficulty,
		TimePassed:         req.TimePassed,
		CurrentPlayers:     req.CurrentPlayers,
		MaxPlayers:         req.MaxPlayers,
		RequiredMods:       req.RequiredMods,
		GameVersion:        req.GameVersion,
		MultiplayerVersion: req.MultiplayerVersion,
		ServerInfo:         req.ServerInfo,
	}

	switch caller.Version {
	case models.IPv4:
		rec.IPv4 = caller.IP
	case models.IPv6:
		rec.IPv6 = caller.IP
	}

	if s.geo != nil && caller.Version != models.IPUnknown {
		rec.CountryCode = s.geo.GetCountryCode(caller.IP)
	}

	stored, err := s.registry.Register(rec)
	if err != nil {
		if errors.Is(err, registry.ErrValidationFailed) {
			metrics.Observe("register", metrics.ResultInvalid)
			return models.RegisterResponse{}, err
		}

		metrics.Observe("register", metrics.ResultError)
		return models.RegisterResponse{}, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	metrics.Observe("register", metrics.ResultOK)
	s.publish(models.EventRegistered, stored)

	return models.RegisterResponse{
		ID:          stored.ID,
		PrivateKey:  stored.PrivateKey,
		IPv4Request: caller.Version == models.IPv4,
	}, nil
}

// Heartbeat refreshes player count and time marker of a registered server.
// Unknown servers and out of bounds player counts both yield ErrNotFoundOrInvalid.
func (s *Service) Heartbeat(req models.HeartbeatRequest) error {
	rec, err := s.registry.Update(req.ID, req.PrivateKey, req.CurrentPlayers, req.TimePassed, req.IPv4)
	switch {
	case err == nil:
		metrics.Observe("heartbeat", metrics.ResultOK)
		s.publish(models.EventUpdated, rec)
		return nil

	case errors.Is(err, registry.ErrUnauthorized):
		metrics.Observe("heartbeat", metrics.ResultUnauthorized)
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)

	case errors.Is(err, registry.ErrNotFound):
		metrics.Observe("heartbeat", metrics.ResultNotFound)
		return fmt.Errorf("%w: %w", ErrNotFoundOrInvalid, err)

	case errors.Is(err, registry.ErrInvalidPlayerCount):
		metrics.Observe("heartbeat", metrics.ResultInvalid)
		return fmt.Errorf("%w: %w", ErrNotFoundOrInvalid, err)

	default:
		metrics.Observe("heartbeat", metrics.ResultError)
		return fmt.Errorf("%w: %w", ErrInternal, err)
	}
}

// Deregister removes a server from the lobby.
func (s *Service) Deregister(req models.DeregisterRequest) error {
	rec, err := s.registry.Remove(req.ID, req.PrivateKey)
	switch {
	case err == nil:
		metrics.Observe("deregister", metrics.ResultOK)
		s.publish(models.EventRemoved, rec)
		return nil

	case errors.Is(err, registry.ErrUnauthorized):
		metrics.Observe("deregister", metrics.ResultUnauthorized)
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)

	case errors.Is(err, registry.ErrNotFound):
		metrics.Observe("deregister", metrics.ResultNotFound)
		return fmt.Errorf("%w: %w", ErrNotFound, err)

	default:
		metrics.Observe("deregister", metrics.ResultError)
		return fmt.Errorf("%w: %w", ErrInternal, err)
	}
}

// ListServers returns every registered server as seen by a caller of the given IP version.
func (s *Service) ListServers(caller models.IPVersion) []models.PublicRecord {
	metrics.Observe("list", metrics.ResultOK)
	return s.registry.List(caller)
}

// Servers returns full records without private keys for administrative views.
func (s *Service) Servers() []models.Record {
	return s.registry.Snapshot()
}

// ExpireStale removes servers that have not been updated within maxAge.
// It returns the number of removed servers.
func (s *Service) ExpireStale(maxAge time.Duration) int {
	expired := s.registry.Sweep(s.now().Add(-maxAge))
	for _, rec := range expired {
		metrics.ExpiredTotal.Inc()
		s.publish(models.EventExpired, rec)
	}

	if len(expired) > 0 {
		metrics.RegisteredServers.Set(float64(s.registry.Len()))
	}

	return len(expired)
}

func (s *Service) publish(kind models.EventKind, rec models.Record) {
	if kind != models.EventUpdated {
		metrics.RegisteredServers.Set(float64(s.registry.Len()))
	}

	if s.sink == nil {
		return
	}

	rec.PrivateKey = ""
	s.sink.Publish(models.Event{Kind: kind, Record: rec, At: s.now()})
}
