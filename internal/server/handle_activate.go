package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/playverse/geohunt/internal/engine"
	"github.com/playverse/geohunt/internal/hunt"
)

type ActivateRequest struct {
	TaskID string `json:"taskId"`
	// Method is one of qr, nfc, manualCode.
	Method hunt.ActivationType `json:"method"`
	Code   string              `json:"code"`
}

type ActivateResponse struct {
	TaskID   string `json:"taskId"`
	Unlocked bool   `json:"unlocked"`
	Question string `json:"question,omitempty"`
}

// handleActivate unlocks a task via a code-bearing mechanism (QR, NFC tag,
// or manually typed code). Proximity activation needs no call here: the
// position endpoint reports those tasks as activatable directly.
func handleActivate(store Store, hub *Hub, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := playerFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		var req ActivateRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Code = strings.TrimSpace(req.Code)
		if req.TaskID == "" {
			writeError(w, http.StatusBadRequest, "taskId is required")
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

		run, err := hub.Session(r.Context(), sess.GameID, sess.TeamID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if run.IsCompleted(task.ID) {
			writeError(w, http.StatusConflict, "task already completed")
			return
		}

		// Schedule gating applies to every mechanism, not just proximity.
		st, err := store.TeamState(r.Context(), sess.GameID, sess.TeamID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !engine.ScheduleVisible(task.Schedule, st.Team.StartedAt, game.Timer, time.Now()) {
			writeError(w, http.StatusConflict, "task is not available yet")
			return
		}

		switch req.Method {
		case hunt.ActivationQR, hunt.ActivationNFC, hunt.ActivationManualCode:
		default:
			// Unknown mechanisms degrade to "not activatable" rather
			// than failing hard on malformed configuration.
			writeError(w, http.StatusUnprocessableEntity, "unsupported activation method")
			return
		}
		if !task.HasActivation(req.Method) {
			writeError(w, http.StatusUnprocessableEntity, "task does not support this activation method")
			return
		}

		if req.Code == "" {
			writeError(w, http.StatusBadRequest, "code is required")
			return
		}
		if !strings.EqualFold(req.Code, task.Code) {
			writeError(w, http.StatusUnprocessableEntity, "invalid code")
			return
		}

		// A gated task cannot activate until enough teams stand inside
		// its geofence, whichever mechanism triggered it.
		if task.RequiredTeamCount > 1 && !run.GateReady(task.ID) {
			writeError(w, http.StatusConflict, "not enough teams present")
			return
		}

		if err := store.RecordUnlock(r.Context(), sess.GameID, sess.TeamID, task.ID, string(req.Method), time.Now()); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		broker.Publish(teamTopic(sess.TeamID), SyncEvent{
			Type:   "task_unlocked",
			TeamID: sess.TeamID,
			TaskID: task.ID,
		})

		writeJSON(w, http.StatusOK, ActivateResponse{
			TaskID:   task.ID,
			Unlocked: true,
			Question: task.Question,
		})
	}
}

func taskByID(g *hunt.Game, id string) *hunt.TaskPoint {
	for i := range g.Tasks {
		if g.Tasks[i].ID == id {
			return &g.Tasks[i]
		}
	}
	return nil
}
