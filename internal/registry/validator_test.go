package registry

import (
	"errors"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/lobby/internal/models"
)

func TestValidate(t *testing.T) {
	v := NewValidator(0, 0, nil)

	tests := []struct {
		mutate func(*models.Record)
		name   string
		field  string
	}{
		{name: "valid", mutate: func(*models.Record) {}},
		{name: "valid ipv6", mutate: func(r *models.Record) { r.IPv4 = ""; r.IPv6 = "::1" }},
		{name: "no address", mutate: func(r *models.Record) { r.IPv4 = "" }, field: "address"},
		{name: "both addresses", mutate: func(r *models.Record) { r.IPv6 = "::1" }, field: "address"},
		{name: "zero port", mutate: func(r *models.Record) { r.Port = 0 }, field: "port"},
		{name: "empty name", mutate: func(r *models.Record) { r.ServerName = "" }, field: "server_name"},
		{name: "long name", mutate: func(r *models.Record) { r.ServerName = strings.Repeat("x", 26) }, field: "server_name"},
		{name: "name at limit", mutate: func(r *models.Record) { r.ServerName = strings.Repeat("ж", 25) }},
		{name: "zero max", mutate: func(r *models.Record) { r.MaxPlayers = 0; r.CurrentPlayers = 0 }, field: "max_players"},
		{name: "over capacity", mutate: func(r *models.Record) { r.CurrentPlayers = 11 }, field: "current_players"},
		{name: "full", mutate: func(r *models.Record) { r.CurrentPlayers = 10 }},
		{name: "no game version", mutate: func(r *models.Record) { r.GameVersion = "" }, field: "game_version"},
		{name: "no mp version", mutate: func(r *models.Record) { r.MultiplayerVersion = "" }, field: "multiplayer_version"},
		{name: "long info", mutate: func(r *models.Record) { r.ServerInfo = strings.Repeat("i", 501) }, field: "server_info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := candidate()
			tt.mutate(&rec)

			err := v.Validate(rec)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.NotEmpty(t, verr.Reason)
		})
	}
}

func TestValidateOrder(t *testing.T) {
	v := NewValidator(0, 0, nil)

	rec := candidate()
	rec.Port = 0
	rec.ServerName = ""
	rec.GameVersion = ""

	var verr *ValidationError
	require.True(t, errors.As(v.Validate(rec), &verr))
	assert.Equal(t, "port", verr.Field)
}

func TestValidateAllowedVersions(t *testing.T) {
	v := NewValidator(0, 0, []string{"0.1.5", "0.1.6", ""})

	rec := candidate()
	assert.NoError(t, v.Validate(rec))

	rec.MultiplayerVersion = "0.1.4"
	var verr *ValidationError
	require.True(t, errors.As(v.Validate(rec), &verr))
	assert.Equal(t, "multiplayer_version", verr.Field)
}

func TestValidatePlayerBoundProperty(t *testing.T) {
	v := NewValidator(0, 0, nil)
	properties := gopter.NewProperties(nil)

	properties.Property("accepted iff 0 < max and current <= max", prop.ForAll(
		func(current, maxPlayers uint32) bool {
			rec := candidate()
			rec.CurrentPlayers = current
			rec.MaxPlayers = maxPlayers

			err := v.Validate(rec)
			return (err == nil) == (maxPlayers > 0 && current <= maxPlayers)
		},
		gen.UInt32Range(0, 300),
		gen.UInt32Range(0, 300),
	))

	properties.Property("validation never mutates its input", prop.ForAll(
		func(name string) bool {
			rec := candidate()
			rec.ServerName = name
			before := rec
			_ = v.Validate(rec)
			return before == rec
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
