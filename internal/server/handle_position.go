package server

import (
	"net/http"

	"github.com/playverse/geohunt/internal/engine"
	"github.com/playverse/geohunt/internal/geo"
)

type PositionRequest struct {
	// Position is null when the device has no GPS fix.
	Position *geo.Coordinate `json:"position"`
	Accuracy *float64        `json:"accuracy,omitempty"`
}

// ActivatableTask is one entry of the nearest-first activatable list.
type ActivatableTask struct {
	TaskID         string  `json:"taskId"`
	Title          string  `json:"title"`
	DistanceMeters float64 `json:"distanceMeters"`
}

type PositionResponse struct {
	Activatable   []ActivatableTask     `json:"activatable"`
	NearestMeters *float64              `json:"nearestMeters,omitempty"`
	Warning       *engine.ZoneWarning   `json:"warning,omitempty"`
	Gates         []engine.GateProgress `json:"gates,omitempty"`
	Score         int                   `json:"score"`
}

func handlePosition(store Store, hub *Hub, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := playerFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		var req PositionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		run, err := hub.Session(r.Context(), sess.GameID, sess.TeamID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		view := run.SubmitPosition(req.Position)

		// Every sample is rebroadcast so other teams' gates and the
		// instructor map see it. Consumers treat it as a snapshot: the
		// latest one wins, ordering across teams is not guaranteed.
		broker.Publish(gameTopic(sess.GameID), SyncEvent{
			Type:     "team_position",
			TeamID:   sess.TeamID,
			Position: req.Position,
		})

		resp := PositionResponse{
			Activatable: make([]ActivatableTask, 0, len(view.Activatable)),
			Warning:     view.Warning,
			Gates:       view.Gates,
			Score:       view.Score,
		}
		for _, td := range view.Activatable {
			resp.Activatable = append(resp.Activatable, ActivatableTask{
				TaskID:         td.Task.ID,
				Title:          td.Task.Title,
				DistanceMeters: td.DistanceMeters,
			})
		}
		if view.HasNearest {
			d := view.NearestMeters
			resp.NearestMeters = &d
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
