// Package models defines the data structures used for API requests, registry records and history persistence.
package models

import "time"

// Record is the full registered state of one game server, including its secret key.
type Record struct {
	RegisteredAt       time.Time `json:"registered_at"`
	LastUpdate         time.Time `json:"last_update"`
	ID                 string    `json:"game_server_id"`
	IPv4               string    `json:"ipv4"`
	IPv6               string    `json:"ipv6"`
	ServerName         string    `json:"server_name"`
	TimePassed         string    `json:"time_passed"`
	RequiredMods       string    `json:"required_mods"`
	GameVersion        string    `json:"game_version"`
	MultiplayerVersion string    `json:"multiplayer_version"`
	ServerInfo         string    `json:"server_info"`
	CountryCode        string    `json:"country_code,omitempty"`
	PrivateKey         string    `json:"-"`
	CurrentPlayers     uint32    `json:"current_players"`
	MaxPlayers         uint32    `json:"max_players"`
	Port               uint16    `json:"port"`
	GameMode           uint8     `json:"game_mode"`
	Difficulty         uint8     `json:"difficulty"`
	PasswordProtected  bool      `json:"password_protected"`
}

// LastUpdateUnix returns the last mutation time as Unix seconds.
func (r Record) LastUpdateUnix() int64 {
	return r.LastUpdate.Unix()
}

// Public returns the listing projection of the record with ip as the address shown to the caller.
func (r Record) Public(ip string) PublicRecord {
	return PublicRecord{
		ID:                 r.ID,
		IP:                 ip,
		Port:               r.Port,
		ServerName:         r.ServerName,
		PasswordProtected:  r.PasswordProtected,
		GameMode:           r.GameMode,
		Difficulty:         r.Difficulty,
		TimePassed:         r.TimePassed,
		CurrentPlayers:     r.CurrentPlayers,
		MaxPlayers:         r.MaxPlayers,
		RequiredMods:       r.RequiredMods,
		GameVersion:        r.GameVersion,
		MultiplayerVersion: r.MultiplayerVersion,
		ServerInfo:         r.ServerInfo,
		LastUpdate:         r.LastUpdateUnix(),
		CountryCode:        r.CountryCode,
	}
}

// PublicRecord is the subset of a Record safe to expose to listing clients.
type PublicRecord struct {
	ID                 string `json:"game_server_id"`
	IP                 string `json:"ip"`
	ServerName         string `json:"server_name"`
	TimePassed         string `json:"time_passed"`
	RequiredMods       string `json:"required_mods"`
	GameVersion        string `json:"game_version"`
	MultiplayerVersion string `json:"multiplayer_version"`
	ServerInfo         string `json:"server_info"`
	CountryCode        string `json:"country_code,omitempty"`
	LastUpdate         int64  `json:"last_update"`
	CurrentPlayers     uint32 `json:"current_players"`
	MaxPlayers         uint32 `json:"max_players"`
	Port               uint16 `json:"port"`
	GameMode           uint8  `json:"game_mode"`
	Difficulty         uint8  `json:"difficulty"`
	PasswordProtected  bool   `json:"password_protected"`
}

// RegisterRequest is the payload a game server sends to announce itself.
// Addresses are never taken from the payload, they come from the connection.
type RegisterRequest struct {
	ServerName         string `json:"server_name"`
	TimePassed         string `json:"time_passed"`
	RequiredMods       string `json:"required_mods"`
	GameVersion        string `json:"game_version"`
	MultiplayerVersion string `json:"multiplayer_version"`
	ServerInfo         string `json:"server_info"`
	CurrentPlayers     uint32 `json:"current_players"`
	MaxPlayers         uint32 `json:"max_players"`
	Port               uint16 `json:"port"`
	GameMode           uint8  `json:"game_mode"`
	Difficulty         uint8  `json:"difficulty"`
	PasswordProtected  bool   `json:"password_protected"`
}

// RegisterResponse carries the capability token pair returned after registration.
type RegisterResponse struct {
	ID          string `json:"game_server_id"`
	PrivateKey  string `json:"private_key"`

	// IPv4Request is true when the registration arrived over IPv4, so the lobby already
	// knows the IPv4 address. Older lobbies sent the inverse under the same name.
	IPv4Request bool `json:"ipv4_request"`
}

// HeartbeatRequest is the periodic liveness report of a registered server.
type HeartbeatRequest struct {
	IPv4           *string `json:"ipv4,omitempty"`
	ID             string  `json:"game_server_id"`
	PrivateKey     string  `json:"private_key"`
	TimePassed     string  `json:"time_passed"`
	CurrentPlayers uint32  `json:"current_players"`
}

// DeregisterRequest removes a server from the registry.
type DeregisterRequest struct {
	ID         string `json:"game_server_id"`
	PrivateKey string `json:"private_key"`
}
