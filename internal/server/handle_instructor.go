package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/playverse/geohunt/internal/hunt"
)

// GameRequest is the instructor's create/update payload: the full game
// document, tasks and zones included.
type GameRequest struct {
	Name        string            `json:"name"`
	Status      hunt.GameStatus   `json:"status,omitempty"`
	Tasks       []hunt.TaskPoint  `json:"tasks"`
	DangerZones []hunt.DangerZone `json:"dangerZones"`
	Timer       hunt.TimerConfig  `json:"timer"`
}

func handleListGames(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		games, err := store.ListGames(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if games == nil {
			games = []GameSummary{}
		}
		writeJSON(w, http.StatusOK, games)
	}
}

func handleCreateGame(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, ok := decodeGameRequest(w, r)
		if !ok {
			return
		}
		created, err := store.CreateGame(r.Context(), g)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func handleGetGame(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := store.GetGame(r.Context(), chi.URLParam(r, "gameID"))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

func handleUpdateGame(store Store, hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, ok := decodeGameRequest(w, r)
		if !ok {
			return
		}
		g.ID = chi.URLParam(r, "gameID")
		updated, err := store.UpdateGame(r.Context(), g)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		// Running sessions evaluate against the old config; drop them so
		// the next position sample reloads.
		hub.Invalidate(g.ID)
		writeJSON(w, http.StatusOK, updated)
	}
}

func handleDeleteGame(store Store, hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")
		if err := store.DeleteGame(r.Context(), gameID); errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "game not found")
			return
		} else if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		hub.Invalidate(gameID)
		w.WriteHeader(http.StatusNoContent)
	}
}

type TeamRequest struct {
	Name      string `json:"name"`
	JoinToken string `json:"joinToken,omitempty"`
}

func handleListTeams(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teams, err := store.ListTeams(r.Context(), chi.URLParam(r, "gameID"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if teams == nil {
			teams = []hunt.Team{}
		}
		writeJSON(w, http.StatusOK, teams)
	}
}

func handleCreateTeam(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TeamRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		if req.JoinToken == "" {
			req.JoinToken = uuid.NewString()[:8]
		}

		team, err := store.CreateTeam(r.Context(), chi.URLParam(r, "gameID"), req.Name, req.JoinToken)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, team)
	}
}

func handleDeleteTeam(store Store, hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")
		teamID := chi.URLParam(r, "teamID")
		if err := store.DeleteTeam(r.Context(), gameID, teamID); errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "team not found")
			return
		} else if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		hub.StopTeam(gameID, teamID)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ScoreboardEntry pairs a team with its first-correct attempts so ties
// resolve by server timestamp, never by whichever broadcast landed first.
type ScoreboardEntry struct {
	TeamID         string     `json:"teamId"`
	TeamName       string     `json:"teamName"`
	Score          int        `json:"score"`
	CompletedTasks int        `json:"completedTasks"`
	StartedAt      *time.Time `json:"startedAt,omitempty"`
}

type ScoreboardResponse struct {
	Entries  []ScoreboardEntry  `json:"entries"`
	Attempts []hunt.TaskAttempt `json:"attempts"`
}

func handleScoreboard(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")

		teams, err := store.ListTeams(r.Context(), gameID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		attempts, err := store.ListAttempts(r.Context(), gameID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		completedBy := make(map[string]int)
		seen := make(map[string]bool)
		for _, a := range attempts {
			if a.Status != hunt.AttemptCorrect {
				continue
			}
			key := a.TeamID + "/" + a.TaskID
			if !seen[key] {
				seen[key] = true
				completedBy[a.TeamID]++
			}
		}

		entries := make([]ScoreboardEntry, 0, len(teams))
		for _, t := range teams {
			entries = append(entries, ScoreboardEntry{
				TeamID:         t.ID,
				TeamName:       t.Name,
				Score:          t.Score,
				CompletedTasks: completedBy[t.ID],
				StartedAt:      t.StartedAt,
			})
		}
		if attempts == nil {
			attempts = []hunt.TaskAttempt{}
		}

		writeJSON(w, http.StatusOK, ScoreboardResponse{Entries: entries, Attempts: attempts})
	}
}

func decodeGameRequest(w http.ResponseWriter, r *http.Request) (hunt.Game, bool) {
	var req GameRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return hunt.Game{}, false
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return hunt.Game{}, false
	}

	g := hunt.Game{
		Name:        req.Name,
		Status:      req.Status,
		Tasks:       req.Tasks,
		DangerZones: req.DangerZones,
		Timer:       req.Timer,
	}
	for i := range g.Tasks {
		if g.Tasks[i].ID == "" {
			g.Tasks[i].ID = uuid.NewString()
		}
	}
	for i := range g.DangerZones {
		if g.DangerZones[i].ID == "" {
			g.DangerZones[i].ID = uuid.NewString()
		}
	}
	if err := g.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return hunt.Game{}, false
	}
	return g, true
}
