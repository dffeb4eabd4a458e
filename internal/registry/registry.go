// Package registry implements the concurrent in-memory directory of registered game servers.
package registry

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/lobby/internal/models"
)

// maxRegisterAttempts bounds identifier regeneration on collision.
const maxRegisterAttempts = 8

var (
	// ErrValidationFailed wraps the *ValidationError of a rejected registration.
	ErrValidationFailed = errors.New("validation failed")

	// ErrNotFound is returned when no record exists for an identifier.
	ErrNotFound = errors.New("server not found")

	// ErrUnauthorized is returned when the private key does not match the record.
	ErrUnauthorized = errors.New("invalid private key")

	// ErrInvalidPlayerCount is returned when a heartbeat reports more players than the record allows.
	ErrInvalidPlayerCount = errors.New("current players exceed max players")

	// ErrInternal marks failures of the registry itself (token source, identifier space).
	ErrInternal = errors.New("internal registry fault")
)

// Options configures a Registry. Zero values select defaults.
type Options struct {
	// Validator checks candidates on registration.
	Validator *Validator

	// Tokens generates identifiers and private keys.
	Tokens TokenGenerator

	// Now is the clock used for timestamps.
	Now func() time.Time
}

// Registry holds live server records keyed by generated identifier.
// A single mutex guards every read and write of the map.
type Registry struct {
	validator *Validator
	tokens    TokenGenerator
	now       func() time.Time
	servers   map[string]*models.Record
	mu        sync.Mutex
}

// New creates an empty Registry.
func New(opts Options) *Registry {
	if opts.Validator == nil {
		opts.Validator = NewValidator(0, 0, nil)
	}
	if opts.Tokens == nil {
		opts.Tokens = Tokens{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Registry{
		validator: opts.Validator,
		tokens:    opts.Tokens,
		now:       opts.Now,
		servers:   make(map[string]*models.Record),
	}
}

// Register validates candidate and stores it under a fresh identifier and private key.
// The returned copy carries the generated ID and PrivateKey.
func (r *Registry) Register(candidate models.Record) (models.Record, error) {
	if err := r.validator.Validate(candidate); err != nil {
		return models.Record{}, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	for attempt := 0; attempt < maxRegisterAttempts; attempt++ {
		id, err := r.tokens.NewID()
		if err != nil {
			return models.Record{}, fmt.Errorf("%w: generate id: %w", ErrInternal, err)
		}
		key, err := r.tokens.NewKey()
		if err != nil {
			return models.Record{}, fmt.Errorf("%w: generate key: %w", ErrInternal, err)
		}

		rec := candidate
		rec.ID = id
		rec.PrivateKey = key

		r.mu.Lock()
		if _, exists := r.servers[id]; exists {
			r.mu.Unlock()
			log.Warn().Str("id", id).Int("attempt", attempt+1).Msg("Identifier collision, regenerating")
			continue
		}
		now := r.now()
		rec.RegisteredAt = now
		rec.LastUpdate = now
		r.servers[id] = &rec
		r.mu.Unlock()

		return rec, nil
	}

	return models.Record{}, fmt.Errorf("%w: no free identifier after %d attempts", ErrInternal, maxRegisterAttempts)
}

// Update applies a heartbeat to the record identified by id.
// A non-empty, valid IPv4 literal in ipv4 replaces the stored IPv4 address.
// On any error the record is left untouched. The returned copy has no private key.
func (r *Registry) Update(id, key string, currentPlayers uint32, timePassed string, ipv4 *string) (models.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.servers[id]
	if !ok {
		return models.Record{}, ErrNotFound
	}
	if !keyMatches(rec.PrivateKey, key) {
		return models.Record{}, ErrUnauthorized
	}
	if currentPlayers > rec.MaxPlayers {
		return models.Record{}, ErrInvalidPlayerCount
	}

	rec.CurrentPlayers = currentPlayers
	rec.TimePassed = timePassed
	rec.LastUpdate = r.next(rec.LastUpdate)

	if ipv4 != nil && *ipv4 != "" && models.IsIPv4Literal(*ipv4) {
		rec.IPv4 = *ipv4
	}

	return redact(*rec), nil
}

// Remove deletes the record identified by id if key matches.
// The removed record is returned without its private key.
func (r *Registry) Remove(id, key string) (models.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.servers[id]
	if !ok {
		return models.Record{}, ErrNotFound
	}
	if !keyMatches(rec.PrivateKey, key) {
		return models.Record{}, ErrUnauthorized
	}

	delete(r.servers, id)

	return redact(*rec), nil
}

// List returns the public projection of every record as seen by a caller of the given IP version.
// Order is unspecified.
func (r *Registry) List(caller models.IPVersion) []models.PublicRecord {
	snapshot := r.Snapshot()

	list := make([]models.PublicRecord, 0, len(snapshot))
	for _, rec := range snapshot {
		list = append(list, rec.Public(SelectAddress(rec, caller)))
	}

	return list
}

// Snapshot copies every record out of the store with private keys removed.
func (r *Registry) Snapshot() []models.Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Record, 0, len(r.servers))
	for _, rec := range r.servers {
		out = append(out, redact(*rec))
	}

	return out
}

// Len returns the number of registered servers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.servers)
}

// Sweep removes every record whose last update is before cutoff and returns them without keys.
func (r *Registry) Sweep(cutoff time.Time) []models.Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []models.Record
	for id, rec := range r.servers {
		if rec.LastUpdate.Before(cutoff) {
			expired = append(expired, redact(*rec))
			delete(r.servers, id)
		}
	}

	return expired
}

// next returns a timestamp strictly after prev.
func (r *Registry) next(prev time.Time) time.Time {
	now := r.now()
	if !now.After(prev) {
		return prev.Add(time.Nanosecond)
	}

	return now
}

func keyMatches(stored, presented string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}

func redact(rec models.Record) models.Record {
	rec.PrivateKey = ""
	return rec
}
