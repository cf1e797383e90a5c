package server

import (
	"context"
	"errors"
	"time"

	"github.com/playverse/geohunt/internal/geo"
	"github.com/playverse/geohunt/internal/hunt"
)

var ErrNotFound = errors.New("not found")

type playerSession struct {
	PlayerID string
	TeamID   string
	GameID   string
}

// teamState is the persisted per-team progress loaded when a runtime
// session spins up.
type teamState struct {
	Team      hunt.Team
	Completed []string
	Unlocked  []string
}

// Store is the persistence boundary. The engine's in-memory score stays
// authoritative for a running session even if a save fails; the sync
// layer retries.
type Store interface {
	// Player side.
	PlayerFromToken(ctx context.Context, token string) (playerSession, error)
	TeamLookup(ctx context.Context, joinToken string) (hunt.Team, error)
	JoinTeam(ctx context.Context, gameID, teamID, playerName string) (playerID, sessionID string, err error)
	ListPlayers(ctx context.Context, teamID string) ([]PlayerInfo, error)

	GetGame(ctx context.Context, gameID string) (hunt.Game, error)
	TeamState(ctx context.Context, gameID, teamID string) (teamState, error)
	StartTeam(ctx context.Context, teamID string, at time.Time) error
	SaveScore(ctx context.Context, teamID string, score int) error

	RecordAttempt(ctx context.Context, gameID, teamID, taskID string, pos *geo.Coordinate, status hunt.AttemptStatus) (hunt.TaskAttempt, error)
	RecordCompletion(ctx context.Context, gameID, teamID, taskID string, at time.Time) error
	RecordUnlock(ctx context.Context, gameID, teamID, taskID, method string, at time.Time) error
	IsUnlocked(ctx context.Context, gameID, teamID, taskID string) (bool, error)

	// Instructor side.
	CreateInstructor(ctx context.Context, email, passwordHash string) (string, error)
	InstructorByEmail(ctx context.Context, email string) (instructorAccount, error)
	CreateInstructorSession(ctx context.Context, instructorID string) (string, error)
	InstructorFromSession(ctx context.Context, sessionID string) (instructorSession, error)
	DeleteInstructorSession(ctx context.Context, sessionID string) error

	ListGames(ctx context.Context) ([]GameSummary, error)
	CreateGame(ctx context.Context, g hunt.Game) (hunt.Game, error)
	UpdateGame(ctx context.Context, g hunt.Game) (hunt.Game, error)
	DeleteGame(ctx context.Context, gameID string) error
	SetGameStatus(ctx context.Context, gameID string, status hunt.GameStatus) error

	ListTeams(ctx context.Context, gameID string) ([]hunt.Team, error)
	CreateTeam(ctx context.Context, gameID, name, joinToken string) (hunt.Team, error)
	DeleteTeam(ctx context.Context, gameID, teamID string) error

	// ListAttempts returns the append-only attempt log for a game ordered
	// by server timestamp: the single source of truth for
	// first-to-complete tie-breaks. Client receipt order is never used.
	ListAttempts(ctx context.Context, gameID string) ([]hunt.TaskAttempt, error)
	FirstToComplete(ctx context.Context, gameID, taskID string) (hunt.TaskAttempt, error)
}

type instructorAccount struct {
	ID           string
	Email        string
	PasswordHash string
}

type instructorSession struct {
	InstructorID string
	Email        string
}

// GameSummary is the instructor's list view.
type GameSummary struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Status    hunt.GameStatus `json:"status"`
	TaskCount int             `json:"taskCount"`
	ZoneCount int             `json:"zoneCount"`
	TeamCount int             `json:"teamCount"`
	CreatedAt time.Time       `json:"createdAt"`
}

// PlayerInfo is the roster entry shown to teammates.
type PlayerInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
