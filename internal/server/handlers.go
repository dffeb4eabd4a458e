package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/lobby/internal/lobby"
	"github.com/woozymasta/lobby/internal/models"
	"github.com/woozymasta/lobby/internal/registry"
	"github.com/woozymasta/lobby/internal/vars"
)

const (
	msgInvalidBody     = "Invalid request body"
	msgInvalidKey      = "Invalid private key"
	msgUpdated         = "Server updated"
	msgUpdateNotFound  = "Server not found or invalid current players"
	msgRemoved         = "Server removed"
	msgRemoveNotFound  = "Server not found or invalid private key"
	msgInternalFailure = "Internal server error"

	defaultSessionsLimit = 100
	maxSessionsLimit     = 1000
)

// handleAddServer registers a game server announced by the caller.
// The address is taken from the connection, never from the body.
func (s *Server) handleAddServer(w http.ResponseWriter, r *http.Request) {
	caller := ResolveCaller(r, s.trustProxy)

	var req models.RegisterRequest
	if err := s.decode(w, r, &req); err != nil {
		log.Debug().Err(err).Str("ip", caller.IP).Msg("Invalid register body")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgInvalidBody})
		return
	}

	resp, err := s.lobby.Register(req, caller)
	if err != nil {
		var verr *registry.ValidationError
		if errors.As(err, &verr) {
			log.Info().
				Str("ip", caller.IP).
				Str("field", verr.Field).
				Str("reason", verr.Reason).
				Msg("Registration rejected")
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Reason, Field: verr.Field})
			return
		}

		log.Error().Err(err).Str("ip", caller.IP).Msg("Failed to register server")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgInternalFailure})
		return
	}

	log.Info().
		Str("id", resp.ID).
		Str("ip", caller.IP).
		Str("name", req.ServerName).
		Msg("Server added")

	writeJSON(w, http.StatusOK, resp)
}

// handleUpdateServer applies a heartbeat.
func (s *Server) handleUpdateServer(w http.ResponseWriter, r *http.Request) {
	var req models.HeartbeatRequest
	if err := s.decode(w, r, &req); err != nil {
		log.Debug().Err(err).Msg("Invalid heartbeat body")
		writeJSON(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	err := s.lobby.Heartbeat(req)
	switch {
	case err == nil:
		log.Trace().Str("id", req.ID).Uint32("players", req.CurrentPlayers).Msg("Server updated")
		writeJSON(w, http.StatusOK, msgUpdated)

	case errors.Is(err, lobby.ErrUnauthorized):
		log.Warn().Str("id", req.ID).Msg("Heartbeat with invalid private key")
		writeJSON(w, http.StatusUnauthorized, msgInvalidKey)

	case errors.Is(err, lobby.ErrNotFoundOrInvalid):
		log.Debug().Err(err).Str("id", req.ID).Msg("Heartbeat rejected")
		writeJSON(w, http.StatusBadRequest, msgUpdateNotFound)

	default:
		log.Error().Err(err).Str("id", req.ID).Msg("Failed to update server")
		writeJSON(w, http.StatusInternalServerError, msgInternalFailure)
	}
}

// handleRemoveServer deregisters a server.
func (s *Server) handleRemoveServer(w http.ResponseWriter, r *http.Request) {
	var req models.DeregisterRequest
	if err := s.decode(w, r, &req); err != nil {
		log.Debug().Err(err).Msg("Invalid deregister body")
		writeJSON(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	err := s.lobby.Deregister(req)
	switch {
	case err == nil:
		log.Info().Str("id", req.ID).Msg("Server removed")
		writeJSON(w, http.StatusOK, msgRemoved)

	case errors.Is(err, lobby.ErrUnauthorized):
		log.Warn().Str("id", req.ID).Msg("Deregister with invalid private key")
		writeJSON(w, http.StatusUnauthorized, msgInvalidKey)

	case errors.Is(err, lobby.ErrNotFound):
		log.Debug().Str("id", req.ID).Msg("Deregister of unknown server")
		writeJSON(w, http.StatusBadRequest, msgRemoveNotFound)

	default:
		log.Error().Err(err).Str("id", req.ID).Msg("Failed to remove server")
		writeJSON(w, http.StatusInternalServerError, msgInternalFailure)
	}
}

// handleListServers returns all servers with the address matching the caller's IP version.
func (s *Server) handleListServers(w http.ResponseWriter, r *http.Request) {
	caller := ResolveCaller(r, s.trustProxy)
	writeJSON(w, http.StatusOK, s.lobby.ListServers(caller.Version))
}

// handleAdminServers returns full records without private keys.
// This endpoint is protected by AdminAuthMiddleware.
func (s *Server) handleAdminServers(w http.ResponseWriter, _ *http.Request) {
	servers := s.lobby.Servers()
	if servers == nil {
		servers = []models.Record{}
	}

	writeJSON(w, http.StatusOK, servers)
}

// handleAdminSessions returns recent sessions from the history database.
// Query params: ?limit=100&open=true
func (s *Server) handleAdminSessions(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "History disabled", http.StatusNotFound)
		return
	}

	limit := defaultSessionsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxSessionsLimit)
	}
	openOnly, _ := strconv.ParseBool(r.URL.Query().Get("open"))

	sessions, err := s.history.GetSessions(limit, openOnly)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch sessions")
		http.Error(w, "Database Error", http.StatusInternalServerError)
		return
	}

	if sessions == nil {
		sessions = []models.Session{}
	}

	writeJSON(w, http.StatusOK, sessions)
}

// handleHealth is a simple health check endpoint for load balancers.
func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleVersion returns the build information.
func handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, vars.Info())
}

// decode reads a JSON body of at most maxBody bytes into v.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}
