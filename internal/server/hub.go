package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/playverse/geohunt/internal/engine"
	"github.com/playverse/geohunt/internal/hunt"
)

// Hub owns the runtime side of every active game: one shared multi-team
// gate per game and one engine session per playing team. Sessions are
// created lazily on first use and every cadence they start is cancelled
// through here. A leaked session would keep ticking penalties into a
// stale team's score.
type Hub struct {
	store    Store
	broker   *Broker
	clock    engine.Clock
	logger   *slog.Logger
	staleTTL time.Duration

	mu    sync.Mutex
	games map[string]*gameRuntime
}

type gameRuntime struct {
	game     hunt.Game
	gate     *engine.MultiTeamGate
	sessions map[string]*teamRuntime
	stop     chan struct{}
}

type teamRuntime struct {
	session *engine.Session

	mu          sync.Mutex
	lastWarning *engine.ZoneWarning
	lastGates   map[string]bool
}

func NewHub(store Store, broker *Broker, clock engine.Clock, logger *slog.Logger, staleTTL time.Duration) *Hub {
	if clock == nil {
		clock = engine.RealClock()
	}
	if staleTTL <= 0 {
		staleTTL = engine.DefaultPositionTTL
	}
	return &Hub{
		store:    store,
		broker:   broker,
		clock:    clock,
		logger:   logger,
		staleTTL: staleTTL,
		games:    make(map[string]*gameRuntime),
	}
}

// Game returns the cached game configuration, loading it on first use.
func (h *Hub) Game(ctx context.Context, gameID string) (hunt.Game, error) {
	rt, err := h.runtime(ctx, gameID)
	if err != nil {
		return hunt.Game{}, err
	}
	return rt.game, nil
}

// Session returns the running engine session for a team, creating and
// starting it on first use.
func (h *Hub) Session(ctx context.Context, gameID, teamID string) (*engine.Session, error) {
	rt, err := h.runtime(ctx, gameID)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	if tr, ok := rt.sessions[teamID]; ok {
		h.mu.Unlock()
		return tr.session, nil
	}
	h.mu.Unlock()

	st, err := h.store.TeamState(ctx, gameID, teamID)
	if err != nil {
		return nil, fmt.Errorf("loading team state: %w", err)
	}

	// The team's clock starts the first time its session spins up; the
	// start time anchors start-offset schedules and countdown timers.
	if st.Team.StartedAt == nil {
		now := h.clock.Now()
		if err := h.store.StartTeam(ctx, teamID, now); err != nil {
			return nil, fmt.Errorf("starting team: %w", err)
		}
		st.Team.StartedAt = &now
	}

	tr := &teamRuntime{lastGates: make(map[string]bool)}
	tr.session = engine.NewSession(engine.SessionConfig{
		TeamID:        teamID,
		Tasks:         rt.game.Tasks,
		Zones:         rt.game.DangerZones,
		Timer:         rt.game.Timer,
		TeamStart:     st.Team.StartedAt,
		InitialScore:  st.Team.Score,
		Completed:     st.Completed,
		Gate:          rt.gate,
		Clock:         h.clock,
		OnScoreChange: h.scoreChanged(gameID, teamID),
		OnUpdate:      tr.publishChanges(h.broker, gameID),
	})

	h.mu.Lock()
	if existing, ok := rt.sessions[teamID]; ok {
		// Lost the race; use the winner's session.
		h.mu.Unlock()
		return existing.session, nil
	}
	rt.sessions[teamID] = tr
	h.mu.Unlock()

	tr.session.Start()
	return tr.session, nil
}

// StopTeam tears down a team's session, cancelling both of its cadences.
func (h *Hub) StopTeam(gameID, teamID string) {
	h.mu.Lock()
	rt, ok := h.games[gameID]
	var tr *teamRuntime
	if ok {
		tr = rt.sessions[teamID]
		delete(rt.sessions, teamID)
	}
	h.mu.Unlock()

	if tr != nil {
		tr.session.Stop()
	}
}

// Invalidate drops a game's runtime after its configuration changed, so
// the next access reloads from the store. All sessions are stopped.
func (h *Hub) Invalidate(gameID string) {
	h.mu.Lock()
	rt, ok := h.games[gameID]
	delete(h.games, gameID)
	h.mu.Unlock()

	if !ok {
		return
	}
	close(rt.stop)
	for _, tr := range rt.sessions {
		tr.session.Stop()
	}
}

// Shutdown stops every running session.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	games := h.games
	h.games = make(map[string]*gameRuntime)
	h.mu.Unlock()

	for _, rt := range games {
		close(rt.stop)
		for _, tr := range rt.sessions {
			tr.session.Stop()
		}
	}
}

func (h *Hub) runtime(ctx context.Context, gameID string) (*gameRuntime, error) {
	h.mu.Lock()
	rt, ok := h.games[gameID]
	h.mu.Unlock()
	if ok {
		return rt, nil
	}

	game, err := h.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if err := game.Validate(); err != nil {
		return nil, fmt.Errorf("game %s has invalid configuration: %w", gameID, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.games[gameID]; ok {
		return existing, nil
	}
	rt = &gameRuntime{
		game:     game,
		gate:     engine.NewMultiTeamGate(game.Tasks, h.staleTTL),
		sessions: make(map[string]*teamRuntime),
		stop:     make(chan struct{}),
	}
	h.games[gameID] = rt
	go h.watchBroadcasts(gameID, rt)
	return rt, nil
}

// watchBroadcasts feeds every team's position snapshots into the game's
// shared gate. Locally submitted positions already update the gate
// directly; this path exists for broadcasts bridged from peer instances,
// and redelivery of our own is harmless.
func (h *Hub) watchBroadcasts(gameID string, rt *gameRuntime) {
	ch := h.broker.Subscribe(gameTopic(gameID))
	defer h.broker.Unsubscribe(gameTopic(gameID), ch)

	for {
		select {
		case <-rt.stop:
			return
		case data := <-ch:
			var ev SyncEvent
			if json.Unmarshal(data, &ev) != nil || ev.Type != "team_position" {
				continue
			}
			rt.gate.Update(ev.TeamID, ev.Position, h.clock.Now())
		}
	}
}

// scoreChanged persists and broadcasts every ledger mutation. The engine's
// in-memory score stays authoritative for the session; a failed save is
// logged and the next mutation rewrites the full value anyway.
func (h *Hub) scoreChanged(gameID, teamID string) func(string, int, engine.Delta) {
	return func(_ string, newScore int, d engine.Delta) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.store.SaveScore(ctx, teamID, newScore); err != nil {
			h.logger.Error("saving score failed", "team_id", teamID, "score", newScore, "error", err)
		}

		score := newScore
		ev := SyncEvent{
			Type:   "score_changed",
			TeamID: teamID,
			Score:  &score,
			Reason: string(d.Reason),
		}
		h.broker.Publish(teamTopic(teamID), ev)
		h.broker.Publish(gameTopic(gameID), ev)
	}
}

// publishChanges turns the engine's per-poll view into broadcast events,
// but only when something observable changed: zone entry/exit and gate
// readiness flips. Raw 500 ms polls are too chatty to rebroadcast whole.
func (tr *teamRuntime) publishChanges(broker *Broker, gameID string) func(string, engine.SessionView) {
	return func(teamID string, v engine.SessionView) {
		tr.mu.Lock()

		var events []SyncEvent

		prev := tr.lastWarning
		switch {
		case v.Warning != nil && (prev == nil || prev.Zone.ID != v.Warning.Zone.ID || prev.State != v.Warning.State):
			events = append(events, SyncEvent{
				Type:    "zone_warning",
				TeamID:  teamID,
				Warning: v.Warning,
			})
		case v.Warning == nil && prev != nil:
			events = append(events, SyncEvent{Type: "zone_cleared", TeamID: teamID})
		}
		tr.lastWarning = v.Warning

		for _, g := range v.Gates {
			if tr.lastGates[g.TaskID] != g.Ready {
				gates := []engine.GateProgress{g}
				events = append(events, SyncEvent{
					Type:   "gate_changed",
					TeamID: teamID,
					TaskID: g.TaskID,
					Gates:  gates,
				})
				tr.lastGates[g.TaskID] = g.Ready
			}
		}
		tr.mu.Unlock()

		for _, ev := range events {
			broker.Publish(teamTopic(teamID), ev)
			broker.Publish(gameTopic(gameID), ev)
		}
	}
}
