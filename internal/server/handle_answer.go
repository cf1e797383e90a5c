package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/playverse/geohunt/internal/engine"
	"github.com/playverse/geohunt/internal/geo"
	"github.com/playverse/geohunt/internal/hunt"
)

type AnswerRequest struct {
	TaskID   string          `json:"taskId"`
	Answer   string          `json:"answer"`
	Position *geo.Coordinate `json:"position,omitempty"`
	// Close requests closing the task without answering; only honored
	// for tasks whose policy allows it.
	Close bool `json:"close,omitempty"`
}

type AnswerResponse struct {
	TaskID    string `json:"taskId"`
	IsCorrect bool   `json:"isCorrect"`
	Closed    bool   `json:"closed"`
	Score     int    `json:"score"`
	// AttemptAt is the server-stamped time of the attempt; the only
	// ordering that counts for first-to-complete.
	AttemptAt time.Time `json:"attemptAt"`
}

func handleAnswer(store Store, hub *Hub, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := playerFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		var req AnswerRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Answer = strings.TrimSpace(req.Answer)
		if req.TaskID == "" {
			writeError(w, http.StatusBadRequest, "taskId is required")
			return
		}
		if req.Answer == "" && !req.Close {
			writeError(w, http.StatusBadRequest, "answer is required")
			return
		}

		game, err := hub.Game(r.Context(), sess.GameID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		st, err := store.TeamState(r.Context(), sess.GameID, sess.TeamID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if game.Status == hunt.GameStatusActive {
			if end, ok := game.Timer.EndTime(st.Team.StartedAt); ok && time.Now().After(end) {
				store.SetGameStatus(r.Context(), sess.GameID, hunt.GameStatusEnded)
				writeError(w, http.StatusConflict, "game has ended")
				return
			}
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
		if run.IsCompleted(task.ID) && task.CompletionPolicy != hunt.CompletionKeepAlways {
			writeError(w, http.StatusConflict, "task already completed")
			return
		}

		if !engine.ScheduleVisible(task.Schedule, st.Team.StartedAt, game.Timer, time.Now()) {
			writeError(w, http.StatusConflict, "task is not available")
			return
		}

		// The task must have been triggered: either a recorded code
		// unlock, or the team currently stands inside its geofence.
		if !taskTriggered(r, store, run, sess, task) {
			writeError(w, http.StatusConflict, "task is not activated")
			return
		}

		if req.Close {
			if task.CompletionPolicy != hunt.CompletionAllowCloseWithoutAnswer {
				writeError(w, http.StatusConflict, "task cannot be closed without an answer")
				return
			}
			attempt, err := store.RecordAttempt(r.Context(), sess.GameID, sess.TeamID, task.ID, req.Position, hunt.AttemptSubmitted)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if err := store.RecordCompletion(r.Context(), sess.GameID, sess.TeamID, task.ID, attempt.Timestamp); err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			run.MarkCompleted(task.ID)
			broker.Publish(teamTopic(sess.TeamID), SyncEvent{
				Type:   "task_closed",
				TeamID: sess.TeamID,
				TaskID: task.ID,
			})
			writeJSON(w, http.StatusOK, AnswerResponse{
				TaskID:    task.ID,
				Closed:    true,
				Score:     run.Score(),
				AttemptAt: attempt.Timestamp,
			})
			return
		}

		isCorrect := strings.EqualFold(req.Answer, strings.TrimSpace(task.CorrectAnswer))

		status := hunt.AttemptWrong
		if isCorrect {
			status = hunt.AttemptCorrect
		}
		attempt, err := store.RecordAttempt(r.Context(), sess.GameID, sess.TeamID, task.ID, req.Position, status)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		closed := false
		switch {
		case isCorrect:
			closed = task.CompletionPolicy != hunt.CompletionKeepAlways
		case task.CompletionPolicy == hunt.CompletionRemoveOnAnyAnswer:
			// A wrong answer also closes the task, without the reward.
			closed = true
		}

		if closed {
			if err := store.RecordCompletion(r.Context(), sess.GameID, sess.TeamID, task.ID, attempt.Timestamp); err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			run.MarkCompleted(task.ID)
		}
		if isCorrect && task.RewardPoints != 0 {
			run.ApplyReward(task.RewardPoints)
		}

		eventType := "wrong_answer"
		if isCorrect {
			eventType = "task_completed"
		}
		broker.Publish(teamTopic(sess.TeamID), SyncEvent{
			Type:   eventType,
			TeamID: sess.TeamID,
			TaskID: task.ID,
		})
		if isCorrect {
			broker.Publish(gameTopic(sess.GameID), SyncEvent{
				Type:     "task_completed",
				TeamID:   sess.TeamID,
				TeamName: st.Team.Name,
				TaskID:   task.ID,
			})
		}

		writeJSON(w, http.StatusOK, AnswerResponse{
			TaskID:    task.ID,
			IsCorrect: isCorrect,
			Closed:    closed,
			Score:     run.Score(),
			AttemptAt: attempt.Timestamp,
		})
	}
}

func taskTriggered(r *http.Request, store Store, run *engine.Session, sess playerSession, task *hunt.TaskPoint) bool {
	if task.HasActivation(hunt.ActivationProximity) {
		for _, td := range run.View().Activatable {
			if td.Task.ID == task.ID {
				return true
			}
		}
	}
	unlocked, err := store.IsUnlocked(r.Context(), sess.GameID, sess.TeamID, task.ID)
	return err == nil && unlocked
}
