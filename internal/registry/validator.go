package registry

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/woozymasta/lobby/internal/models"
)

// Default field limits.
const (
	DefaultMaxNameLength = 25
	DefaultMaxInfoLength = 500
)

// ValidationError names the offending field of a rejected candidate record.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"error"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validator checks candidate records before admission into the registry.
type Validator struct {
	// allowedVersions is a set of xxhash sums of accepted multiplayer versions.
	// An empty set accepts any non-empty version.
	allowedVersions map[uint64]struct{}

	maxNameLength int
	maxInfoLength int
}

// NewValidator returns a Validator with the given limits. Non-positive limits fall back to defaults.
func NewValidator(maxName, maxInfo int, allowedVersions []string) *Validator {
	if maxName <= 0 {
		maxName = DefaultMaxNameLength
	}
	if maxInfo <= 0 {
		maxInfo = DefaultMaxInfoLength
	}

	set := make(map[uint64]struct{}, len(allowedVersions))
	for _, v := range allowedVersions {
		if v == "" {
			continue
		}
		set[xxhash.Sum64String(v)] = struct{}{}
	}

	return &Validator{
		allowedVersions: set,
		maxNameLength:   maxName,
		maxInfoLength:   maxInfo,
	}
}

// Validate checks the field constraints of a candidate record in a fixed order
// and returns a *ValidationError for the first violation.
func (v *Validator) Validate(rec models.Record) error {
	if (rec.IPv4 == "") == (rec.IPv6 == "") {
		return &ValidationError{Field: "address", Reason: "caller address family could not be determined"}
	}

	if rec.Port == 0 {
		return &ValidationError{Field: "port", Reason: "must be nonzero"}
	}

	if rec.ServerName == "" {
		return &ValidationError{Field: "server_name", Reason: "must not be empty"}
	}
	if n := len([]rune(rec.ServerName)); n > v.maxNameLength {
		return &ValidationError{
			Field:  "server_name",
			Reason: fmt.Sprintf("length %d exceeds %d", n, v.maxNameLength),
		}
	}

	if rec.MaxPlayers == 0 {
		return &ValidationError{Field: "max_players", Reason: "must be greater than zero"}
	}
	if rec.CurrentPlayers > rec.MaxPlayers {
		return &ValidationError{
			Field:  "current_players",
			Reason: fmt.Sprintf("%d exceeds max_players %d", rec.CurrentPlayers, rec.MaxPlayers),
		}
	}

	if rec.GameVersion == "" {
		return &ValidationError{Field: "game_version", Reason: "must not be empty"}
	}

	if rec.MultiplayerVersion == "" {
		return &ValidationError{Field: "multiplayer_version", Reason: "must not be empty"}
	}
	if len(v.allowedVersions) > 0 {
		if _, ok := v.allowedVersions[xxhash.Sum64String(rec.MultiplayerVersion)]; !ok {
			return &ValidationError{Field: "multiplayer_version", Reason: "version is not accepted by this lobby"}
		}
	}

	if n := len(rec.ServerInfo); n > v.maxInfoLength {
		return &ValidationError{
			Field:  "server_info",
			Reason: fmt.Sprintf("length %d exceeds %d", n, v.maxInfoLength),
		}
	}

	return nil
}
