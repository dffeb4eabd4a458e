package models

import "time"

// Session end reasons stored in the history table.
const (
	EndDeregistered = "deregistered"
	EndExpired      = "expired"
	EndRestart      = "restart"
)

// Session is one registration lifetime of a game server as kept in the history database.
type Session struct {
	RegisteredAt       time.Time  `json:"registered_at"`
	LastSeen           time.Time  `json:"last_seen"`
	EndedAt            *time.Time `json:"ended_at,omitempty"`
	ID                 string     `json:"game_server_id"`
	ServerName         string     `json:"server_name"`
	IP                 string     `json:"ip"`
	CountryCode        string     `json:"country_code"`
	GameVersion        string     `json:"game_version"`
	MultiplayerVersion string     `json:"multiplayer_version"`
	EndReason          string     `json:"end_reason,omitempty"`
	Heartbeats         int64      `json:"heartbeats"`
	Port               int        `json:"port"`
	GameMode           int        `json:"game_mode"`
	Difficulty         int        `json:"difficulty"`
	Players            int        `json:"players"`
	PeakPlayers        int        `json:"peak_players"`
	MaxPlayers         int        `json:"max_players"`
}

// SessionTouch is an aggregate of heartbeats received since the last persisted touch.
type SessionTouch struct {
	// At is the time of the latest heartbeat.
	At time.Time

	// Players is the player count of the latest heartbeat, PeakPlayers the maximum of the aggregate.
	Players     int
	PeakPlayers int

	// Heartbeats is the number of heartbeats aggregated.
	Heartbeats int64
}

// EventKind enumerates registry lifecycle events.
type EventKind uint8

// Registry lifecycle events.
const (
	EventRegistered EventKind = iota + 1
	EventUpdated
	EventRemoved
	EventExpired
)

// String implements fmt.Stringer.
func (k EventKind) String() string {
	switch k {
	case EventRegistered:
		return "registered"
	case EventUpdated:
		return "updated"
	case EventRemoved:
		return "removed"
	case EventExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Event describes a successful registry mutation. Record never carries the private key.
type Event struct {
	At     time.Time
	Record Record
	Kind   EventKind
}
