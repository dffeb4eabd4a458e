// Package storage keeps the history of game server sessions in SQLite.
// It is an operator-facing journal only; the live registry never reads from it.
package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/woozymasta/lobby/internal/models"
	_ "modernc.org/sqlite" // Driver sqlite
)

const sessionColumns = `
	id, server_name, ip, port, country_code, game_mode, difficulty,
	game_version, multiplayer_version, players, peak_players, max_players,
	heartbeats, registered_at, last_seen, ended_at, end_reason`

// Repository manages the SQLite database connection.
type Repository struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at dbPath, sets pool parameters and runs migrations.
func New(dbPath string) (*Repository, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_time_format=sqlite"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// OpenSession inserts a new session row. An existing row with the same id is left as is.
func (r *Repository) OpenSession(s models.Session) error {
	_, err := r.db.Exec(`
	INSERT INTO sessions (
		id, server_name, ip, port, country_code, game_mode, difficulty,
		game_version, multiplayer_version, players, peak_players, max_players,
		heartbeats, registered_at, last_seen
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
	ON CONFLICT(id) DO NOTHING`,
		s.ID, s.ServerName, s.IP, s.Port, s.CountryCode, s.GameMode, s.Difficulty,
		s.GameVersion, s.MultiplayerVersion, s.Players, s.Players, s.MaxPlayers,
		s.RegisteredAt.UTC(), s.LastSeen.UTC(),
	)

	return err
}

// TouchSession applies an aggregate of heartbeats to an open session.
func (r *Repository) TouchSession(id string, t models.SessionTouch) error {
	_, err := r.db.Exec(`
	UPDATE sessions SET
		players = ?,
		peak_players = MAX(peak_players, ?),
		heartbeats = heartbeats + ?,
		last_seen = ?
	WHERE id = ? AND ended_at IS NULL`,
		t.Players, max(t.PeakPlayers, t.Players), t.Heartbeats, t.At.UTC(), id,
	)

	return err
}

// CloseSession marks an open session as ended with the given reason.
func (r *Repository) CloseSession(id, reason string, at time.Time) error {
	_, err := r.db.Exec(`
	UPDATE sessions SET ended_at = ?, end_reason = ?
	WHERE id = ? AND ended_at IS NULL`,
		at.UTC(), reason, id,
	)

	return err
}

// CloseDangling ends every session still open, e.g. left behind by a previous process.
func (r *Repository) CloseDangling(reason string, at time.Time) (int64, error) {
	res, err := r.db.Exec(`
	UPDATE sessions SET ended_at = ?, end_reason = ?
	WHERE ended_at IS NULL`,
		at.UTC(), reason,
	)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// PruneSessions deletes ended sessions that finished before cutoff.
func (r *Repository) PruneSessions(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM sessions WHERE ended_at IS NOT NULL AND ended_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// GetSession retrieves a session by id. It returns nil without error when not found.
func (r *Repository) GetSession(id string) (*models.Session, error) {
	row := r.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)

	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return s, nil
}

// GetSessions returns up to limit sessions ordered by last seen, newest first.
// With openOnly set, ended sessions are skipped.
func (r *Repository) GetSessions(limit int, openOnly bool) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions`
	if openOnly {
		query += ` WHERE ended_at IS NULL`
	}
	query += ` ORDER BY last_seen DESC LIMIT ?`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var sessions []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*models.Session, error) {
	var (
		s     models.Session
		ended sql.NullTime
	)

	if err := row.Scan(
		&s.ID, &s.ServerName, &s.IP, &s.Port, &s.CountryCode, &s.GameMode, &s.Difficulty,
		&s.GameVersion, &s.MultiplayerVersion, &s.Players, &s.PeakPlayers, &s.MaxPlayers,
		&s.Heartbeats, &s.RegisteredAt, &s.LastSeen, &ended, &s.EndReason,
	); err != nil {
		return nil, err
	}

	if ended.Valid {
		t := ended.Time
		s.EndedAt = &t
	}

	return &s, nil
}
