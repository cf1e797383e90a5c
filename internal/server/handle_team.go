package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type TeamLookupResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	GameID string `json:"gameId"`
}

// handleTeamLookup resolves a join token before the player commits to
// joining; only teams of active games resolve.
func handleTeamLookup(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		team, err := store.TeamLookup(r.Context(), chi.URLParam(r, "joinToken"))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "team not found or game not active")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, TeamLookupResponse{
			ID:     team.ID,
			Name:   team.Name,
			GameID: team.GameID,
		})
	}
}
