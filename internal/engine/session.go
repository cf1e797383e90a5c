package engine

import (
	"sync"
	"time"

	"github.com/playverse/geohunt/internal/geo"
	"github.com/playverse/geohunt/internal/hunt"
)

const (
	// DefaultDetectEvery is the position/zone detection cadence.
	DefaultDetectEvery = 500 * time.Millisecond
	// DefaultTickEvery is the penalty accrual cadence.
	DefaultTickEvery = time.Second
	// DefaultPositionTTL bounds how old the last fix may be before the
	// session treats the team as having no position.
	DefaultPositionTTL = 15 * time.Second
)

// SessionConfig wires one team's runtime session.
type SessionConfig struct {
	TeamID       string
	Tasks        []hunt.TaskPoint
	Zones        []hunt.DangerZone
	Timer        hunt.TimerConfig
	TeamStart    *time.Time
	InitialScore int
	Completed    []string

	// Gate is shared by all sessions of a game; readiness depends on
	// every team's broadcasts.
	Gate  *MultiTeamGate
	Clock Clock

	DetectEvery time.Duration
	TickEvery   time.Duration
	PositionTTL time.Duration

	// OnScoreChange fires synchronously on every ledger mutation so the
	// caller can persist and broadcast the new value. The engine itself
	// performs no I/O.
	OnScoreChange func(teamID string, newScore int, d Delta)
	// OnUpdate fires after each detection pass with the fresh view.
	OnUpdate func(teamID string, v SessionView)
}

// SessionView is the engine output consumed by UI layers.
type SessionView struct {
	Score         int            `json:"score"`
	Activatable   []TaskDistance `json:"-"`
	NearestMeters float64        `json:"nearestMeters"`
	HasNearest    bool           `json:"hasNearest"`
	Warning       *ZoneWarning   `json:"warning,omitempty"`
	Gates         []GateProgress `json:"gates,omitempty"`
}

// Session is one team's runtime activation and scoring loop. All state is
// owned by this session and mutated under a single mutex; each timer
// callback runs to completion before the next, so detection and deduction
// never interleave mid-calculation. Cross-team visibility goes through
// the shared gate and the caller's broadcast layer only.
type Session struct {
	cfg     SessionConfig
	ledger  *Ledger
	tracker *ZoneTracker

	mu        sync.Mutex
	lastPos   *geo.Coordinate
	lastPosAt time.Time
	completed map[string]bool
	view      SessionView
	teamStart *time.Time

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewSession builds a session; Start launches its timers.
func NewSession(cfg SessionConfig) *Session {
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	if cfg.DetectEvery <= 0 {
		cfg.DetectEvery = DefaultDetectEvery
	}
	if cfg.TickEvery <= 0 {
		cfg.TickEvery = DefaultTickEvery
	}
	if cfg.PositionTTL <= 0 {
		cfg.PositionTTL = DefaultPositionTTL
	}
	if cfg.Gate == nil {
		cfg.Gate = NewMultiTeamGate(cfg.Tasks, cfg.PositionTTL)
	}

	s := &Session{
		cfg:       cfg,
		completed: make(map[string]bool, len(cfg.Completed)),
		teamStart: cfg.TeamStart,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, id := range cfg.Completed {
		s.completed[id] = true
	}
	s.ledger = NewLedger(cfg.InitialScore, func(newScore int, d Delta) {
		if cfg.OnScoreChange != nil {
			cfg.OnScoreChange(cfg.TeamID, newScore, d)
		}
	})
	s.tracker = NewZoneTracker(cfg.Zones, s.ledger)
	s.view = SessionView{Score: s.ledger.Score()}
	return s
}

// Start launches the detection and penalty cadences. Both are always
// cancelled together by Stop; leaking either would keep mutating a stale
// team's score.
func (s *Session) Start() {
	detect := s.cfg.Clock.NewTicker(s.cfg.DetectEvery)
	tick := s.cfg.Clock.NewTicker(s.cfg.TickEvery)

	go func() {
		defer close(s.done)
		defer detect.Stop()
		defer tick.Stop()
		for {
			select {
			case <-s.stop:
				return
			case now := <-detect.C():
				s.detect(now)
			case now := <-tick.C():
				s.penaltyTick(now)
			}
		}
	}()
}

// Stop cancels both cadences and clears all transient state.
func (s *Session) Stop() {
	s.once.Do(func() {
		close(s.stop)
		<-s.done
		s.mu.Lock()
		s.tracker.Reset()
		s.lastPos = nil
		s.view = SessionView{Score: s.ledger.Score()}
		s.mu.Unlock()
		s.cfg.Gate.Update(s.cfg.TeamID, nil, s.cfg.Clock.Now())
	})
}

// SubmitPosition feeds a position sample (nil means no fix), broadcasts
// it to the shared gate, runs a detection pass immediately, and returns
// the fresh view.
func (s *Session) SubmitPosition(pos *geo.Coordinate) SessionView {
	now := s.cfg.Clock.Now()
	s.mu.Lock()
	s.lastPos = pos
	s.lastPosAt = now
	s.mu.Unlock()

	s.cfg.Gate.Update(s.cfg.TeamID, pos, now)
	s.detect(now)
	return s.View()
}

// SetStartTime records the team's game start, unlocking start-offset
// schedules.
func (s *Session) SetStartTime(t time.Time) {
	s.mu.Lock()
	s.teamStart = &t
	s.mu.Unlock()
}

// View returns the latest engine output.
func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.view
	v.Score = s.ledger.Score()
	return v
}

// Score returns the team's current score.
func (s *Session) Score() int { return s.ledger.Score() }

// ApplyReward credits a completed task's points.
func (s *Session) ApplyReward(points int) int {
	return s.ledger.Apply(Delta{Points: points, Reason: ReasonTaskReward})
}

// ApplyHintCost debits a hint purchase; the ledger clamps at zero.
func (s *Session) ApplyHintCost(cost int) int {
	return s.ledger.Apply(Delta{Points: -cost, Reason: ReasonHintCost})
}

// MarkCompleted records a task as closed for this team.
func (s *Session) MarkCompleted(taskID string) {
	s.mu.Lock()
	s.completed[taskID] = true
	s.mu.Unlock()
}

// IsCompleted reports whether the team has closed the task.
func (s *Session) IsCompleted(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed[taskID]
}

// GateReady reports whether a gated task currently has enough teams in
// range. Ungated tasks are always ready.
func (s *Session) GateReady(taskID string) bool {
	return s.cfg.Gate.Ready(taskID, s.cfg.Clock.Now())
}

// VisibleTasks returns the schedule- and completion-filtered task set as
// of now.
func (s *Session) VisibleTasks() []hunt.TaskPoint {
	now := s.cfg.Clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	return VisibleTasks(s.cfg.Tasks, s.completed, s.teamStart, s.cfg.Timer, now)
}

// detect runs one full evaluation pass: schedule filter, proximity,
// gating, and zone observation.
func (s *Session) detect(now time.Time) {
	s.mu.Lock()

	pos := s.lastPos
	if pos != nil && now.Sub(s.lastPosAt) > s.cfg.PositionTTL {
		// Stale fix: not enforceable, treated exactly like no fix.
		pos = nil
		s.lastPos = nil
	}

	if pos == nil {
		s.tracker.Reset()
		s.view = SessionView{Score: s.ledger.Score()}
		onUpdate, view := s.cfg.OnUpdate, s.view
		s.mu.Unlock()
		if onUpdate != nil {
			onUpdate(s.cfg.TeamID, view)
		}
		return
	}

	visible := VisibleTasks(s.cfg.Tasks, s.completed, s.teamStart, s.cfg.Timer, now)
	prox := EvaluateProximity(*pos, visible)

	// Gated tasks only become activatable once the gate reports
	// readiness, however close this team stands.
	activatable := prox.Activatable[:0:0]
	for _, td := range prox.Activatable {
		if td.Task.RequiredTeamCount > 1 && !s.cfg.Gate.Ready(td.Task.ID, now) {
			continue
		}
		activatable = append(activatable, td)
	}

	s.tracker.Observe(pos, now)

	s.view = SessionView{
		Score:         s.ledger.Score(),
		Activatable:   activatable,
		NearestMeters: prox.NearestMeters,
		HasNearest:    prox.HasNearest,
		Warning:       s.tracker.Warning(),
		Gates:         s.cfg.Gate.All(now),
	}
	onUpdate, view := s.cfg.OnUpdate, s.view
	s.mu.Unlock()

	if onUpdate != nil {
		onUpdate(s.cfg.TeamID, view)
	}
}

// penaltyTick advances danger-zone accrual by one second.
func (s *Session) penaltyTick(now time.Time) {
	s.mu.Lock()
	s.tracker.Tick(now)
	s.view.Warning = s.tracker.Warning()
	s.view.Score = s.ledger.Score()
	s.mu.Unlock()
}
