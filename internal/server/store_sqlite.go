package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/playverse/geohunt/internal/geo"
	"github.com/playverse/geohunt/internal/hunt"
)

// SQLiteStore persists games, teams, players, progress, and the
// append-only attempt log. Task points, danger zones, and the timer are
// stored as JSON documents inside the game row; they are always read and
// written as a unit.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func parseStamp(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func (s *SQLiteStore) PlayerFromToken(ctx context.Context, token string) (playerSession, error) {
	var sess playerSession
	err := s.db.QueryRowContext(ctx, `
		SELECT p.id, p.team_id, t.game_id
		FROM players p
		JOIN teams t ON t.id = p.team_id
		WHERE p.session_id = ?
	`, token).Scan(&sess.PlayerID, &sess.TeamID, &sess.GameID)
	if errors.Is(err, sql.ErrNoRows) {
		return sess, errNoSession
	}
	return sess, err
}

func (s *SQLiteStore) TeamLookup(ctx context.Context, joinToken string) (hunt.Team, error) {
	var t hunt.Team
	var startedAt sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT t.id, t.game_id, t.name, t.score, t.started_at
		FROM teams t
		JOIN games g ON g.id = t.game_id
		WHERE t.join_token = ? AND g.status = 'active'
	`, joinToken).Scan(&t.ID, &t.GameID, &t.Name, &t.Score, &startedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	if startedAt.Valid {
		ts := parseStamp(startedAt.String)
		t.StartedAt = &ts
	}
	return t, err
}

func (s *SQLiteStore) JoinTeam(ctx context.Context, gameID, teamID, playerName string) (string, string, error) {
	var playerID, sessionID string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO players (id, team_id, name, session_id, joined_at)
		VALUES (lower(hex(randomblob(8))), ?, ?, lower(hex(randomblob(16))), ?)
		RETURNING id, session_id
	`, teamID, playerName, nowStamp()).Scan(&playerID, &sessionID)
	return playerID, sessionID, err
}

func (s *SQLiteStore) ListPlayers(ctx context.Context, teamID string) ([]PlayerInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name FROM players WHERE team_id = ? ORDER BY joined_at
	`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlayerInfo
	for rows.Next() {
		var p PlayerInfo
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetGame(ctx context.Context, gameID string) (hunt.Game, error) {
	var g hunt.Game
	var tasksJSON, zonesJSON, timerJSON, createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, status, tasks, danger_zones, timer, created_at
		FROM games WHERE id = ?
	`, gameID).Scan(&g.ID, &g.Name, &g.Status, &tasksJSON, &zonesJSON, &timerJSON, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return g, ErrNotFound
	}
	if err != nil {
		return g, err
	}
	if err := json.Unmarshal([]byte(tasksJSON), &g.Tasks); err != nil {
		return g, fmt.Errorf("decoding tasks for game %s: %w", gameID, err)
	}
	if err := json.Unmarshal([]byte(zonesJSON), &g.DangerZones); err != nil {
		return g, fmt.Errorf("decoding danger zones for game %s: %w", gameID, err)
	}
	if err := json.Unmarshal([]byte(timerJSON), &g.Timer); err != nil {
		return g, fmt.Errorf("decoding timer for game %s: %w", gameID, err)
	}
	g.CreatedAt = parseStamp(createdAt)
	return g, nil
}

func (s *SQLiteStore) TeamState(ctx context.Context, gameID, teamID string) (teamState, error) {
	var st teamState
	var startedAt sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, game_id, name, score, started_at FROM teams
		WHERE id = ? AND game_id = ?
	`, teamID, gameID).Scan(&st.Team.ID, &st.Team.GameID, &st.Team.Name, &st.Team.Score, &startedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return st, ErrNotFound
	}
	if err != nil {
		return st, err
	}
	if startedAt.Valid {
		ts := parseStamp(startedAt.String)
		st.Team.StartedAt = &ts
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id FROM team_completions WHERE game_id = ? AND team_id = ? ORDER BY completed_at
	`, gameID, teamID)
	if err != nil {
		return st, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return st, err
		}
		st.Completed = append(st.Completed, id)
	}
	if err := rows.Err(); err != nil {
		return st, err
	}
	st.Team.CompletedTaskIDs = st.Completed

	urows, err := s.db.QueryContext(ctx, `
		SELECT task_id FROM team_unlocks WHERE game_id = ? AND team_id = ? ORDER BY unlocked_at
	`, gameID, teamID)
	if err != nil {
		return st, err
	}
	defer urows.Close()
	for urows.Next() {
		var id string
		if err := urows.Scan(&id); err != nil {
			return st, err
		}
		st.Unlocked = append(st.Unlocked, id)
	}
	return st, urows.Err()
}

func (s *SQLiteStore) StartTeam(ctx context.Context, teamID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE teams SET started_at = ? WHERE id = ? AND started_at IS NULL
	`, at.UTC().Format(time.RFC3339Nano), teamID)
	return err
}

func (s *SQLiteStore) SaveScore(ctx context.Context, teamID string, score int) error {
	if score < 0 {
		score = 0
	}
	_, err := s.db.ExecContext(ctx, `UPDATE teams SET score = ? WHERE id = ?`, score, teamID)
	return err
}

func (s *SQLiteStore) RecordAttempt(ctx context.Context, gameID, teamID, taskID string, pos *geo.Coordinate, status hunt.AttemptStatus) (hunt.TaskAttempt, error) {
	a := hunt.TaskAttempt{
		ID:       uuid.NewString(),
		TeamID:   teamID,
		TaskID:   taskID,
		Position: pos,
		Status:   status,
	}
	var lat, lng sql.NullFloat64
	if pos != nil {
		lat = sql.NullFloat64{Float64: pos.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: pos.Lng, Valid: true}
	}
	// The timestamp is stamped here, on the server. It is the only
	// ordering clients may rely on.
	var created string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO task_attempts (id, game_id, team_id, task_id, lat, lng, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		RETURNING created_at
	`, a.ID, gameID, teamID, taskID, lat, lng, status).Scan(&created)
	if err != nil {
		return a, err
	}
	a.Timestamp = parseStamp(created)
	return a, nil
}

func (s *SQLiteStore) RecordCompletion(ctx context.Context, gameID, teamID, taskID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO team_completions (game_id, team_id, task_id, completed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (game_id, team_id, task_id) DO NOTHING
	`, gameID, teamID, taskID, at.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteStore) RecordUnlock(ctx context.Context, gameID, teamID, taskID, method string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO team_unlocks (game_id, team_id, task_id, method, unlocked_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (game_id, team_id, task_id) DO NOTHING
	`, gameID, teamID, taskID, method, at.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteStore) IsUnlocked(ctx context.Context, gameID, teamID, taskID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM team_unlocks WHERE game_id = ? AND team_id = ? AND task_id = ?
	`, gameID, teamID, taskID).Scan(&n)
	return n > 0, err
}

func (s *SQLiteStore) CreateInstructor(ctx context.Context, email, passwordHash string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO instructors (id, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (email) DO NOTHING
	`, id, email, passwordHash, nowStamp())
	if err != nil {
		return "", err
	}
	acc, err := s.InstructorByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	return acc.ID, nil
}

func (s *SQLiteStore) InstructorByEmail(ctx context.Context, email string) (instructorAccount, error) {
	var acc instructorAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash FROM instructors WHERE email = ?
	`, email).Scan(&acc.ID, &acc.Email, &acc.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return acc, ErrNotFound
	}
	return acc, err
}

func (s *SQLiteStore) CreateInstructorSession(ctx context.Context, instructorID string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO instructor_sessions (id, instructor_id, created_at)
		VALUES (lower(hex(randomblob(16))), ?, ?)
		RETURNING id
	`, instructorID, nowStamp()).Scan(&id)
	return id, err
}

func (s *SQLiteStore) InstructorFromSession(ctx context.Context, sessionID string) (instructorSession, error) {
	var sess instructorSession
	err := s.db.QueryRowContext(ctx, `
		SELECT i.id, i.email
		FROM instructor_sessions s
		JOIN instructors i ON i.id = s.instructor_id
		WHERE s.id = ?
	`, sessionID).Scan(&sess.InstructorID, &sess.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return sess, errNoInstructorSession
	}
	return sess, err
}

func (s *SQLiteStore) DeleteInstructorSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM instructor_sessions WHERE id = ?`, sessionID)
	return err
}

func (s *SQLiteStore) ListGames(ctx context.Context) ([]GameSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id, g.name, g.status, g.tasks, g.danger_zones, g.created_at,
			(SELECT COUNT(*) FROM teams t WHERE t.game_id = g.id)
		FROM games g ORDER BY g.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GameSummary
	for rows.Next() {
		var gs GameSummary
		var tasksJSON, zonesJSON, createdAt string
		if err := rows.Scan(&gs.ID, &gs.Name, &gs.Status, &tasksJSON, &zonesJSON, &createdAt, &gs.TeamCount); err != nil {
			return nil, err
		}
		var tasks []hunt.TaskPoint
		var zones []hunt.DangerZone
		json.Unmarshal([]byte(tasksJSON), &tasks)
		json.Unmarshal([]byte(zonesJSON), &zones)
		gs.TaskCount = len(tasks)
		gs.ZoneCount = len(zones)
		gs.CreatedAt = parseStamp(createdAt)
		out = append(out, gs)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CreateGame(ctx context.Context, g hunt.Game) (hunt.Game, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.Status == "" {
		g.Status = hunt.GameStatusDraft
	}
	tasksJSON, zonesJSON, timerJSON, err := encodeGameDocs(g)
	if err != nil {
		return g, err
	}
	var created string
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO games (id, name, status, tasks, danger_zones, timer, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING created_at
	`, g.ID, g.Name, g.Status, tasksJSON, zonesJSON, timerJSON, nowStamp()).Scan(&created)
	if err != nil {
		return g, err
	}
	g.CreatedAt = parseStamp(created)
	return g, nil
}

func (s *SQLiteStore) UpdateGame(ctx context.Context, g hunt.Game) (hunt.Game, error) {
	tasksJSON, zonesJSON, timerJSON, err := encodeGameDocs(g)
	if err != nil {
		return g, err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE games SET name = ?, status = ?, tasks = ?, danger_zones = ?, timer = ?
		WHERE id = ?
	`, g.Name, g.Status, tasksJSON, zonesJSON, timerJSON, g.ID)
	if err != nil {
		return g, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return g, ErrNotFound
	}
	return s.GetGame(ctx, g.ID)
}

func (s *SQLiteStore) DeleteGame(ctx context.Context, gameID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, gameID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) SetGameStatus(ctx context.Context, gameID string, status hunt.GameStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE games SET status = ? WHERE id = ?`, status, gameID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) ListTeams(ctx context.Context, gameID string) ([]hunt.Team, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, game_id, name, join_token, score, started_at, created_at
		FROM teams WHERE game_id = ? ORDER BY created_at
	`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []hunt.Team
	for rows.Next() {
		var t hunt.Team
		var startedAt sql.NullString
		var createdAt string
		if err := rows.Scan(&t.ID, &t.GameID, &t.Name, &t.JoinToken, &t.Score, &startedAt, &createdAt); err != nil {
			return nil, err
		}
		if startedAt.Valid {
			ts := parseStamp(startedAt.String)
			t.StartedAt = &ts
		}
		t.CreatedAt = parseStamp(createdAt)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CreateTeam(ctx context.Context, gameID, name, joinToken string) (hunt.Team, error) {
	t := hunt.Team{
		ID:        uuid.NewString(),
		GameID:    gameID,
		Name:      name,
		JoinToken: joinToken,
	}
	var created string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO teams (id, game_id, name, join_token, score, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
		RETURNING created_at
	`, t.ID, gameID, name, joinToken, nowStamp()).Scan(&created)
	if err != nil {
		return t, err
	}
	t.CreatedAt = parseStamp(created)
	return t, nil
}

func (s *SQLiteStore) DeleteTeam(ctx context.Context, gameID, teamID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM teams WHERE id = ? AND game_id = ?
	`, teamID, gameID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) ListAttempts(ctx context.Context, gameID string) ([]hunt.TaskAttempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, team_id, task_id, lat, lng, status, created_at
		FROM task_attempts WHERE game_id = ?
		ORDER BY created_at, id
	`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []hunt.TaskAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) FirstToComplete(ctx context.Context, gameID, taskID string) (hunt.TaskAttempt, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, team_id, task_id, lat, lng, status, created_at
		FROM task_attempts
		WHERE game_id = ? AND task_id = ? AND status = 'correct'
		ORDER BY created_at, id LIMIT 1
	`, gameID, taskID)
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	return a, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(r rowScanner) (hunt.TaskAttempt, error) {
	var a hunt.TaskAttempt
	var lat, lng sql.NullFloat64
	var created string
	if err := r.Scan(&a.ID, &a.TeamID, &a.TaskID, &lat, &lng, &a.Status, &created); err != nil {
		return a, err
	}
	if lat.Valid && lng.Valid {
		a.Position = &geo.Coordinate{Lat: lat.Float64, Lng: lng.Float64}
	}
	a.Timestamp = parseStamp(created)
	return a, nil
}

func encodeGameDocs(g hunt.Game) (tasks, zones, timer string, err error) {
	if g.Tasks == nil {
		g.Tasks = []hunt.TaskPoint{}
	}
	if g.DangerZones == nil {
		g.DangerZones = []hunt.DangerZone{}
	}
	tb, err := json.Marshal(g.Tasks)
	if err != nil {
		return "", "", "", fmt.Errorf("encoding tasks: %w", err)
	}
	zb, err := json.Marshal(g.DangerZones)
	if err != nil {
		return "", "", "", fmt.Errorf("encoding danger zones: %w", err)
	}
	mb, err := json.Marshal(g.Timer)
	if err != nil {
		return "", "", "", fmt.Errorf("encoding timer: %w", err)
	}
	return string(tb), string(zb), string(mb), nil
}

// Ensure SQLiteStore implements Store at compile time.
var _ Store = (*SQLiteStore)(nil)
