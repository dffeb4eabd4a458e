// Package journal persists registry lifecycle events to the session history asynchronously,
// so that no registry operation ever waits on the database.
package journal

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/lobby/internal/metrics"
	"github.com/woozymasta/lobby/internal/models"
)

// Store is the persistence backend of the journal.
type Store interface {
	OpenSession(s models.Session) error
	TouchSession(id string, t models.SessionTouch) error
	CloseSession(id, reason string, at time.Time) error
}

// Journal fans events out to a fixed set of workers. Events of one server always
// land on the same worker, so they are persisted in publish order.
type Journal struct {
	store Store

	// queues holds one buffered channel per worker.
	queues []chan models.Event

	// shutdown stops the seen cache cleanup loop.
	shutdown chan struct{}

	// seen holds the touchState of every open session (id -> touchState).
	// Heartbeats arriving sooner than touchInterval after the last write are aggregated in memory.
	seen sync.Map

	wg sync.WaitGroup
	mu sync.RWMutex

	touchInterval time.Duration

	// seenTTL is how long an idle seen entry is kept.
	seenTTL time.Duration

	closed bool
}

// touchState is the heartbeat aggregate of one server since its last persisted write.
type touchState struct {
	saved   time.Time
	pending models.SessionTouch
}

// lastActivity is the time of the latest event held by st.
func (st touchState) lastActivity() time.Time {
	if st.pending.At.After(st.saved) {
		return st.pending.At
	}
	return st.saved
}

// New creates a Journal writing to store. queueSize is the buffer of each worker queue.
func New(store Store, workers, queueSize int, touchInterval time.Duration) *Journal {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	queues := make([]chan models.Event, workers)
	for i := range queues {
		queues[i] = make(chan models.Event, queueSize)
	}

	return &Journal{
		store:         store,
		queues:        queues,
		shutdown:      make(chan struct{}),
		touchInterval: touchInterval,
		seenTTL:       max(time.Hour, 2*touchInterval),
	}
}

// Start launches the workers and the seen cache cleanup routine.
func (j *Journal) Start() {
	for _, q := range j.queues {
		j.wg.Add(1)
		go j.worker(q)
	}

	go j.gcSeenCache()
}

// Stop closes the queues and waits for queued events to be written.
// Events published afterwards are dropped.
func (j *Journal) Stop() {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return
	}
	j.closed = true
	close(j.shutdown)
	for _, q := range j.queues {
		close(q)
	}
	j.mu.Unlock()

	j.wg.Wait()
}

// Publish enqueues ev without blocking. When the queue is full the event is dropped.
func (j *Journal) Publish(ev models.Event) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		return
	}

	q := j.queues[xxhash.Sum64String(ev.Record.ID)%uint64(len(j.queues))]
	select {
	case q <- ev:
	default:
		metrics.JournalDroppedTotal.Inc()
		log.Warn().
			Str("id", ev.Record.ID).
			Stringer("event", ev.Kind).
			Msg("Journal queue full, event dropped")
	}
}

func (j *Journal) worker(q <-chan models.Event) {
	defer j.wg.Done()

	for ev := range q {
		j.process(ev)
	}
}

// process writes a single event to the store.
func (j *Journal) process(ev models.Event) {
	rec := ev.Record

	switch ev.Kind {
	case models.EventRegistered:
		if j.write(ev, j.store.OpenSession(sessionFromRecord(rec))) {
			j.seen.Store(rec.ID, touchState{saved: ev.At})
		}

	case models.EventUpdated:
		j.touch(ev)

	case models.EventRemoved:
		j.close(ev, models.EndDeregistered)

	case models.EventExpired:
		j.close(ev, models.EndExpired)
	}
}

// touch adds a heartbeat to the aggregate of its server and persists the
// aggregate once touchInterval has passed since the last write.
func (j *Journal) touch(ev models.Event) {
	id := ev.Record.ID
	players := int(ev.Record.CurrentPlayers)

	var st touchState
	if val, ok := j.seen.Load(id); ok {
		st, _ = val.(touchState)
	}

	st.pending.At = ev.At
	st.pending.Players = players
	st.pending.PeakPlayers = max(st.pending.PeakPlayers, players)
	st.pending.Heartbeats++

	if !st.saved.IsZero() && ev.At.Sub(st.saved) < j.touchInterval {
		j.seen.Store(id, st)
		log.Trace().Str("id", id).Int64("pending", st.pending.Heartbeats).Msg("Heartbeat aggregated")
		return
	}

	if j.write(ev, j.store.TouchSession(id, st.pending)) {
		st = touchState{saved: ev.At}
	}
	j.seen.Store(id, st)
}

// close flushes pending heartbeats of the server and ends its session.
func (j *Journal) close(ev models.Event, reason string) {
	id := ev.Record.ID

	if val, ok := j.seen.LoadAndDelete(id); ok {
		if st, ok := val.(touchState); ok && st.pending.Heartbeats > 0 {
			j.write(ev, j.store.TouchSession(id, st.pending))
		}
	}

	j.write(ev, j.store.CloseSession(id, reason, ev.At))
}

// write reports whether a store call succeeded, counting and logging failures.
func (j *Journal) write(ev models.Event, err error) bool {
	if err != nil {
		metrics.JournalWriteErrorsTotal.Inc()
		log.Error().
			Err(err).
			Str("id", ev.Record.ID).
			Stringer("event", ev.Kind).
			Msg("Failed to write session history")
		return false
	}

	log.Trace().Str("id", ev.Record.ID).Stringer("event", ev.Kind).Msg("Session history written")
	return true
}

// gcSeenCache drops seen entries of servers that stopped sending heartbeats.
func (j *Journal) gcSeenCache() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-j.shutdown:
			return
		case <-ticker.C:
			j.pruneSeen(time.Now().Add(-j.seenTTL))
		}
	}
}

// pruneSeen drops entries without activity since cutoff.
// An entry replaced by a worker in the meantime is kept.
func (j *Journal) pruneSeen(cutoff time.Time) {
	j.seen.Range(func(key, value any) bool {
		if st, ok := value.(touchState); !ok || st.lastActivity().Before(cutoff) {
			j.seen.CompareAndDelete(key, value)
		}
		return true
	})
}

func sessionFromRecord(rec models.Record) models.Session {
	ip := rec.IPv4
	if ip == "" {
		ip = rec.IPv6
	}

	return models.Session{
		ID:                 rec.ID,
		ServerName:         rec.ServerName,
		IP:                 ip,
		Port:               int(rec.Port),
		CountryCode:        rec.CountryCode,
		GameMode:           int(rec.GameMode),
		Difficulty:         int(rec.Difficulty),
		GameVersion:        rec.GameVersion,
		MultiplayerVersion: rec.MultiplayerVersion,
		Players:            int(rec.CurrentPlayers),
		MaxPlayers:         int(rec.MaxPlayers),
		RegisteredAt:       rec.RegisteredAt,
		LastSeen:           rec.LastUpdate,
	}
}
