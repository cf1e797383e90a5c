package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/playverse/geohunt/internal/database"
	"github.com/playverse/geohunt/internal/geo"
	"github.com/playverse/geohunt/internal/hunt"
	"github.com/playverse/geohunt/internal/migrations"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := database.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Run(db))
	return NewSQLiteStore(db)
}

func createGameWithTeam(t *testing.T, store *SQLiteStore) (hunt.Game, hunt.Team) {
	t.Helper()
	ctx := context.Background()
	game, err := store.CreateGame(ctx, hunt.Game{
		Name:   "Test Hunt",
		Status: hunt.GameStatusActive,
		Tasks: []hunt.TaskPoint{{
			ID:               "t1",
			Title:            "First",
			CorrectAnswer:    "42",
			Code:             "CODE-1",
			ActivationTypes:  []hunt.ActivationType{hunt.ActivationManualCode},
			CompletionPolicy: hunt.CompletionKeepUntilCorrect,
			RewardPoints:     10,
		}},
	})
	require.NoError(t, err)
	team, err := store.CreateTeam(ctx, game.ID, "Alpha", "alpha-token")
	require.NoError(t, err)
	return game, team
}

func TestGameRoundTripPreservesSecrets(t *testing.T) {
	store := newTestStore(t)
	game, _ := createGameWithTeam(t, store)

	got, err := store.GetGame(context.Background(), game.ID)
	require.NoError(t, err)
	require.Len(t, got.Tasks, 1)
	// Answer and unlock code must survive persistence; only player-facing
	// DTOs strip them.
	require.Equal(t, "42", got.Tasks[0].CorrectAnswer)
	require.Equal(t, "CODE-1", got.Tasks[0].Code)
}

func TestJoinAndSessionResolution(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	game, team := createGameWithTeam(t, store)

	found, err := store.TeamLookup(ctx, "alpha-token")
	require.NoError(t, err)
	require.Equal(t, team.ID, found.ID)

	_, err = store.TeamLookup(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	playerID, sessionID, err := store.JoinTeam(ctx, game.ID, team.ID, "Maria")
	require.NoError(t, err)
	require.NotEmpty(t, playerID)
	require.NotEmpty(t, sessionID)

	sess, err := store.PlayerFromToken(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, team.ID, sess.TeamID)
	require.Equal(t, game.ID, sess.GameID)

	_, err = store.PlayerFromToken(ctx, "bogus")
	require.ErrorIs(t, err, errNoSession)
}

func TestInactiveGameHidesJoinToken(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	game, _ := createGameWithTeam(t, store)

	require.NoError(t, store.SetGameStatus(ctx, game.ID, hunt.GameStatusEnded))
	_, err := store.TeamLookup(ctx, "alpha-token")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStartTeamIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	game, team := createGameWithTeam(t, store)

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.StartTeam(ctx, team.ID, first))
	// A second start must not move the clock.
	require.NoError(t, store.StartTeam(ctx, team.ID, first.Add(time.Hour)))

	st, err := store.TeamState(ctx, game.ID, team.ID)
	require.NoError(t, err)
	require.NotNil(t, st.Team.StartedAt)
	require.True(t, st.Team.StartedAt.Equal(first))
}

func TestAttemptLogOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	game, team := createGameWithTeam(t, store)

	pos := &geo.Coordinate{Lat: 1, Lng: 2}
	a1, err := store.RecordAttempt(ctx, game.ID, team.ID, "t1", pos, hunt.AttemptWrong)
	require.NoError(t, err)
	require.False(t, a1.Timestamp.IsZero(), "attempts must carry a server stamp")

	a2, err := store.RecordAttempt(ctx, game.ID, team.ID, "t1", nil, hunt.AttemptCorrect)
	require.NoError(t, err)
	require.False(t, a2.Timestamp.Before(a1.Timestamp))

	attempts, err := store.ListAttempts(ctx, game.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	byID := map[string]hunt.TaskAttempt{attempts[0].ID: attempts[0], attempts[1].ID: attempts[1]}
	require.NotNil(t, byID[a1.ID].Position)
	require.Nil(t, byID[a2.ID].Position)
	require.False(t, attempts[1].Timestamp.Before(attempts[0].Timestamp))

	first, err := store.FirstToComplete(ctx, game.ID, "t1")
	require.NoError(t, err)
	require.Equal(t, a2.ID, first.ID)

	_, err = store.FirstToComplete(ctx, game.ID, "t9")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCompletionAndUnlockAreIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	game, team := createGameWithTeam(t, store)

	at := time.Now()
	require.NoError(t, store.RecordCompletion(ctx, game.ID, team.ID, "t1", at))
	require.NoError(t, store.RecordCompletion(ctx, game.ID, team.ID, "t1", at))

	st, err := store.TeamState(ctx, game.ID, team.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"t1"}, st.Completed)

	require.NoError(t, store.RecordUnlock(ctx, game.ID, team.ID, "t1", "manualCode", at))
	require.NoError(t, store.RecordUnlock(ctx, game.ID, team.ID, "t1", "qr", at))

	unlocked, err := store.IsUnlocked(ctx, game.ID, team.ID, "t1")
	require.NoError(t, err)
	require.True(t, unlocked)
}

func TestSaveScoreClamps(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	game, team := createGameWithTeam(t, store)

	require.NoError(t, store.SaveScore(ctx, team.ID, -7))
	st, err := store.TeamState(ctx, game.ID, team.ID)
	require.NoError(t, err)
	require.Equal(t, 0, st.Team.Score)
}

func TestDeleteGameCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	game, team := createGameWithTeam(t, store)

	_, sessionID, err := store.JoinTeam(ctx, game.ID, team.ID, "Maria")
	require.NoError(t, err)

	require.NoError(t, store.DeleteGame(ctx, game.ID))
	_, err = store.PlayerFromToken(ctx, sessionID)
	require.ErrorIs(t, err, errNoSession)
	_, err = store.TeamState(ctx, game.ID, team.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
