package engine

import "sync"

// DeltaReason classifies a score mutation for auditing and broadcast.
type DeltaReason string

const (
	ReasonTaskReward  DeltaReason = "taskReward"
	ReasonHintCost    DeltaReason = "hintCost"
	ReasonZonePenalty DeltaReason = "zonePenalty"
)

// Delta is a bounded score change.
type Delta struct {
	Points int         `json:"points"`
	Reason DeltaReason `json:"reason"`
}

// ScoreState is the ledger's authoritative state.
type ScoreState struct {
	Score int `json:"score"`
}

// ApplyDelta is the pure state transition: it returns the state after the
// delta, clamped so the score never goes negative. Being a pure function
// makes replay and property testing trivial.
func ApplyDelta(s ScoreState, d Delta) ScoreState {
	next := s.Score + d.Points
	if next < 0 {
		next = 0
	}
	return ScoreState{Score: next}
}

// Ledger owns one team's authoritative in-memory score. Deltas are applied
// strictly in arrival order; there is no reordering by magnitude or type.
// The ledger performs no I/O; the change callback fires synchronously so
// the caller can persist and broadcast the new value.
type Ledger struct {
	mu       sync.Mutex
	state    ScoreState
	onChange func(newScore int, d Delta)
}

// NewLedger creates a ledger with the given starting score. onChange may
// be nil.
func NewLedger(initial int, onChange func(newScore int, d Delta)) *Ledger {
	if initial < 0 {
		initial = 0
	}
	return &Ledger{state: ScoreState{Score: initial}, onChange: onChange}
}

// Apply mutates the score by d and returns the new value.
func (l *Ledger) Apply(d Delta) int {
	l.mu.Lock()
	l.state = ApplyDelta(l.state, d)
	score := l.state.Score
	cb := l.onChange
	l.mu.Unlock()

	if cb != nil {
		cb(score, d)
	}
	return score
}

// Score returns the current score.
func (l *Ledger) Score() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Score
}
