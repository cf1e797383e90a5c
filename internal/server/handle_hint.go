package server

import (
	"net/http"

	"github.com/playverse/geohunt/internal/hunt"
)

type HintRequest struct {
	TaskID string `json:"taskId"`
}

type HintResponse struct {
	TaskID string `json:"taskId"`
	Hint   string `json:"hint"`
	Cost   int    `json:"cost"`
	Score  int    `json:"score"`
}

// handleHint sells a hint. The cost is a negative ledger delta: the score
// clamps at zero, so a broke team still gets the hint.
func handleHint(store Store, hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := playerFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		var req HintRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		game, err := hub.Game(r.Context(), sess.GameID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if game.Status != hunt.GameStatusActive {
			writeError(w, http.StatusConflict, "game is not active")
			return
		}

		task := taskByID(&game, req.TaskID)
		if task == nil {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		if task.HintText == "" {
			writeError(w, http.StatusNotFound, "task has no hint")
			return
		}

		run, err := hub.Session(r.Context(), sess.GameID, sess.TeamID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		newScore := run.ApplyHintCost(task.HintCost)

		writeJSON(w, http.StatusOK, HintResponse{
			TaskID: task.ID,
			Hint:   task.HintText,
			Cost:   task.HintCost,
			Score:  newScore,
		})
	}
}
