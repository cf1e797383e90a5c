package server

import (
	"net/http"
	"time"

	"github.com/playverse/geohunt/internal/engine"
	"github.com/playverse/geohunt/internal/geo"
	"github.com/playverse/geohunt/internal/hunt"
)

type GameInfo struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Status     hunt.GameStatus  `json:"status"`
	Timer      hunt.TimerConfig `json:"timer"`
	TotalTasks int              `json:"totalTasks"`
}

type TeamStateInfo struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Score     int        `json:"score"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
}

// TaskInfo is the player-facing task view. Secrets (answer, unlock code,
// hint text) never leave the server through this type.
type TaskInfo struct {
	ID                string                `json:"id"`
	Title             string                `json:"title"`
	Question          string                `json:"question,omitempty"`
	Fence             geo.Fence             `json:"fence"`
	ActivationTypes   []hunt.ActivationType `json:"activationTypes"`
	RequiredTeamCount int                   `json:"requiredTeamCount,omitempty"`
	RewardPoints      int                   `json:"rewardPoints"`
	HintCost          int                   `json:"hintCost,omitempty"`
	Locked            bool                  `json:"locked"`
	Completed         bool                  `json:"completed"`
}

type GameStateResponse struct {
	Game             GameInfo              `json:"game"`
	Team             TeamStateInfo         `json:"team"`
	Tasks            []TaskInfo            `json:"tasks"`
	CompletedTaskIDs []string              `json:"completedTaskIds"`
	Players          []PlayerInfo          `json:"players"`
	Warning          *engine.ZoneWarning   `json:"warning,omitempty"`
	Gates            []engine.GateProgress `json:"gates,omitempty"`
}

// requiresUnlock reports whether the task must be triggered by a code
// mechanism before its question is revealed. Proximity-activatable tasks
// unlock by walking up to them.
func requiresUnlock(t *hunt.TaskPoint) bool {
	return !t.HasActivation(hunt.ActivationProximity) && len(t.ActivationTypes) > 0
}

func handleGameState(store Store, hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := playerFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
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

		// Timer expiry is evaluated lazily, on read.
		if game.Status == hunt.GameStatusActive {
			if end, ok := game.Timer.EndTime(st.Team.StartedAt); ok && time.Now().After(end) {
				game.Status = hunt.GameStatusEnded
				store.SetGameStatus(r.Context(), sess.GameID, hunt.GameStatusEnded)
			}
		}

		run, err := hub.Session(r.Context(), sess.GameID, sess.TeamID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		view := run.View()

		unlocked := make(map[string]bool, len(st.Unlocked))
		for _, id := range st.Unlocked {
			unlocked[id] = true
		}
		completed := make(map[string]bool, len(st.Completed))
		for _, id := range st.Completed {
			completed[id] = true
		}
		inRange := make(map[string]bool, len(view.Activatable))
		for _, td := range view.Activatable {
			inRange[td.Task.ID] = true
		}

		var tasks []TaskInfo
		for i := range game.Tasks {
			t := &game.Tasks[i]
			if completed[t.ID] && t.CompletionPolicy != hunt.CompletionKeepAlways {
				continue
			}
			if !engine.ScheduleVisible(t.Schedule, st.Team.StartedAt, game.Timer, time.Now()) {
				continue
			}
			locked := requiresUnlock(t) && !unlocked[t.ID] && !inRange[t.ID]
			info := TaskInfo{
				ID:                t.ID,
				Title:             t.Title,
				Fence:             t.Fence,
				ActivationTypes:   t.ActivationTypes,
				RequiredTeamCount: t.RequiredTeamCount,
				RewardPoints:      t.RewardPoints,
				HintCost:          t.HintCost,
				Locked:            locked,
				Completed:         completed[t.ID],
			}
			if !locked {
				info.Question = t.Question
			}
			tasks = append(tasks, info)
		}

		players, err := store.ListPlayers(r.Context(), sess.TeamID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		resp := GameStateResponse{
			Game: GameInfo{
				ID:         game.ID,
				Name:       game.Name,
				Status:     game.Status,
				Timer:      game.Timer,
				TotalTasks: len(game.Tasks),
			},
			Team: TeamStateInfo{
				ID:        st.Team.ID,
				Name:      st.Team.Name,
				Score:     run.Score(),
				StartedAt: st.Team.StartedAt,
			},
			Tasks:            tasks,
			CompletedTaskIDs: st.Completed,
			Players:          players,
			Warning:          view.Warning,
			Gates:            view.Gates,
		}
		if resp.Tasks == nil {
			resp.Tasks = []TaskInfo{}
		}
		if resp.CompletedTaskIDs == nil {
			resp.CompletedTaskIDs = []string{}
		}
		if resp.Players == nil {
			resp.Players = []PlayerInfo{}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
