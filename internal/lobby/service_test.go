package lobby

import (
	"errors"
	"sync"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/lobby/internal/metrics"
	"github.com/woozymasta/lobby/internal/models"
	"github.com/woozymasta/lobby/internal/registry"
)

type recordingSink struct {
	events []models.Event
	mu     sync.Mutex
}

func (s *recordingSink) Publish(ev models.Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *recordingSink) kinds() []models.EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]models.EventKind, 0, len(s.events))
	for _, ev := range s.events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

type staticGeo string

func (g staticGeo) GetCountryCode(string) string { return string(g) }

func registerRequest() models.RegisterRequest {
	return models.RegisterRequest{
		Port:               7777,
		ServerName:         "Freight yard",
		PasswordProtected:  true,
		GameMode:           0,
		Difficulty:         1,
		TimePassed:         "0d 00h 10m 00s",
		CurrentPlayers:     5,
		MaxPlayers:         10,
		RequiredMods:       "modA;modB",
		GameVersion:        "98",
		MultiplayerVersion: "0.1.5",
		ServerInfo:         "Welcome",
	}
}

func newService(t *testing.T) (*Service, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	return New(registry.New(registry.Options{}), staticGeo("DE"), sink), sink
}

func find(list []models.PublicRecord, id string) (models.PublicRecord, bool) {
	for _, p := range list {
		if p.ID == id {
			return p, true
		}
	}
	return models.PublicRecord{}, false
}

func TestRegisterIPv4(t *testing.T) {
	svc, sink := newService(t)

	resp, err := svc.Register(registerRequest(), Caller{IP: "203.0.113.7", Version: models.IPv4})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ID)
	assert.NotEmpty(t, resp.PrivateKey)
	assert.True(t, resp.IPv4Request)

	pub, ok := find(svc.ListServers(models.IPv4), resp.ID)
	require.True(t, ok)
	assert.Equal(t, "203.0.113.7", pub.IP)
	assert.Equal(t, "Freight yard", pub.ServerName)
	assert.True(t, pub.PasswordProtected)
	assert.Equal(t, "modA;modB", pub.RequiredMods)
	assert.Equal(t, "DE", pub.CountryCode)

	assert.Equal(t, []models.EventKind{models.EventRegistered}, sink.kinds())
	assert.Empty(t, sink.events[0].Record.PrivateKey)
}

func TestRegisterIPv6(t *testing.T) {
	svc, _ := newService(t)

	resp, err := svc.Register(registerRequest(), Caller{IP: "2001:db8::7", Version: models.IPv6})
	require.NoError(t, err)
	assert.False(t, resp.IPv4Request)

	pub, _ := find(svc.ListServers(models.IPv6), resp.ID)
	assert.Equal(t, "2001:db8::7", pub.IP)

	pub, _ = find(svc.ListServers(models.IPv4), resp.ID)
	assert.Empty(t, pub.IP)
}

func TestRegisterUnknownFamily(t *testing.T) {
	svc, sink := newService(t)

	_, err := svc.Register(registerRequest(), Caller{IP: "unknown"})
	require.ErrorIs(t, err, registry.ErrValidationFailed)

	var verr *registry.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "address", verr.Field)
	assert.Empty(t, svc.ListServers(models.IPv4))
	assert.Empty(t, sink.kinds())
}

func TestRegisterValidationFailure(t *testing.T) {
	svc, _ := newService(t)

	req := registerRequest()
	req.ServerName = ""
	_, err := svc.Register(req, Caller{IP: "203.0.113.7", Version: models.IPv4})

	var verr *registry.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "server_name", verr.Field)
}

func TestHeartbeatScenario(t *testing.T) {
	svc, sink := newService(t)

	resp, err := svc.Register(registerRequest(), Caller{IP: "203.0.113.7", Version: models.IPv4})
	require.NoError(t, err)

	err = svc.Heartbeat(models.HeartbeatRequest{ID: resp.ID, PrivateKey: resp.PrivateKey, CurrentPlayers: 11, TimePassed: "late"})
	require.ErrorIs(t, err, ErrNotFoundOrInvalid)

	pub, _ := find(svc.ListServers(models.IPv4), resp.ID)
	assert.Equal(t, uint32(5), pub.CurrentPlayers)
	assert.Equal(t, "0d 00h 10m 00s", pub.TimePassed)

	err = svc.Heartbeat(models.HeartbeatRequest{ID: resp.ID, PrivateKey: resp.PrivateKey, CurrentPlayers: 8, TimePassed: "0d 00h 20m 00s"})
	require.NoError(t, err)

	pub, _ = find(svc.ListServers(models.IPv4), resp.ID)
	assert.Equal(t, uint32(8), pub.CurrentPlayers)
	assert.Equal(t, "0d 00h 20m 00s", pub.TimePassed)

	assert.Equal(t, []models.EventKind{models.EventRegistered, models.EventUpdated}, sink.kinds())
}

func TestHeartbeatErrors(t *testing.T) {
	svc, _ := newService(t)
	resp, err := svc.Register(registerRequest(), Caller{IP: "203.0.113.7", Version: models.IPv4})
	require.NoError(t, err)

	err = svc.Heartbeat(models.HeartbeatRequest{ID: "nope", PrivateKey: resp.PrivateKey, CurrentPlayers: 1})
	assert.ErrorIs(t, err, ErrNotFoundOrInvalid)
	assert.ErrorIs(t, err, registry.ErrNotFound)

	err = svc.Heartbeat(models.HeartbeatRequest{ID: resp.ID, PrivateKey: "bad", CurrentPlayers: 1, TimePassed: "x"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrNotFoundOrInvalid)

	pub, _ := find(svc.ListServers(models.IPv4), resp.ID)
	assert.Equal(t, uint32(5), pub.CurrentPlayers)
}

func TestDeregister(t *testing.T) {
	svc, sink := newService(t)
	resp, err := svc.Register(registerRequest(), Caller{IP: "203.0.113.7", Version: models.IPv4})
	require.NoError(t, err)

	err = svc.Deregister(models.DeregisterRequest{ID: resp.ID, PrivateKey: "bad"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, svc.Deregister(models.DeregisterRequest{ID: resp.ID, PrivateKey: resp.PrivateKey}))
	_, ok := find(svc.ListServers(models.IPv4), resp.ID)
	assert.False(t, ok)

	err = svc.Deregister(models.DeregisterRequest{ID: resp.ID, PrivateKey: resp.PrivateKey})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, []models.EventKind{models.EventRegistered, models.EventRemoved}, sink.kinds())
}

func TestExpireStale(t *testing.T) {
	svc, sink := newService(t)
	resp, err := svc.Register(registerRequest(), Caller{IP: "203.0.113.7", Version: models.IPv4})
	require.NoError(t, err)

	assert.Zero(t, svc.ExpireStale(time.Hour))

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.Equal(t, 1, svc.ExpireStale(time.Hour))

	_, ok := find(svc.ListServers(models.IPv4), resp.ID)
	assert.False(t, ok)
	assert.Equal(t, models.EventExpired, sink.kinds()[1])
}

func TestServersHaveNoKeys(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Register(registerRequest(), Caller{IP: "203.0.113.7", Version: models.IPv4})
	require.NoError(t, err)

	servers := svc.Servers()
	require.Len(t, servers, 1)
	assert.Empty(t, servers[0].PrivateKey)
	assert.Equal(t, "203.0.113.7", servers[0].IPv4)
}

func TestNilCollaborators(t *testing.T) {
	svc := New(registry.New(registry.Options{}), nil, nil)

	resp, err := svc.Register(registerRequest(), Caller{IP: "203.0.113.7", Version: models.IPv4})
	require.NoError(t, err)
	require.NoError(t, svc.Heartbeat(models.HeartbeatRequest{ID: resp.ID, PrivateKey: resp.PrivateKey, CurrentPlayers: 1}))
	require.NoError(t, svc.Deregister(models.DeregisterRequest{ID: resp.ID, PrivateKey: resp.PrivateKey}))
}

func registeredGauge(t *testing.T) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, metrics.RegisteredServers.Write(&m))
	return m.GetGauge().GetValue()
}

func TestNewCountsPreloadedServers(t *testing.T) {
	reg := registry.New(registry.Options{})
	for i := 0; i < 3; i++ {
		_, err := reg.Register(models.Record{
			IPv4:               "203.0.113.7",
			Port:               7777,
			ServerName:         "Seeded",
			MaxPlayers:         4,
			GameVersion:        "98",
			MultiplayerVersion: "0.1.5",
		})
		require.NoError(t, err)
	}

	svc := New(reg, nil, nil)
	assert.Equal(t, float64(3), registeredGauge(t))

	_, err := svc.Register(registerRequest(), Caller{IP: "198.51.100.1", Version: models.IPv4})
	require.NoError(t, err)
	assert.Equal(t, float64(4), registeredGauge(t))
}
