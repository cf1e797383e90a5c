// Package hunt defines the core domain types for location-based task
// hunts. It has zero external dependencies — everything here is pure Go.
package hunt

import (
	"time"

	"github.com/playverse/geohunt/internal/geo"
)

// ActivationType is the mechanism by which a task can be triggered.
type ActivationType string

const (
	ActivationProximity  ActivationType = "proximity"
	ActivationQR         ActivationType = "qr"
	ActivationNFC        ActivationType = "nfc"
	ActivationManualCode ActivationType = "manualCode"
)

// CompletionPolicy controls what happens to a task after an answer.
type CompletionPolicy string

const (
	CompletionRemoveOnAnyAnswer       CompletionPolicy = "removeOnAnyAnswer"
	CompletionKeepUntilCorrect        CompletionPolicy = "keepUntilCorrect"
	CompletionKeepAlways              CompletionPolicy = "keepAlways"
	CompletionAllowCloseWithoutAnswer CompletionPolicy = "allowCloseWithoutAnswer"
)

// ScheduleMode selects how a task's visibility window is computed.
type ScheduleMode string

const (
	ScheduleAbsoluteWindow ScheduleMode = "absoluteWindow"
	ScheduleStartOffset    ScheduleMode = "startOffset"
	ScheduleEndOffset      ScheduleMode = "endOffset"
)

// Schedule is a time-based visibility rule for a task.
type Schedule struct {
	Enabled              bool         `json:"enabled"`
	Mode                 ScheduleMode `json:"mode"`
	ShowAt               *time.Time   `json:"showAt,omitempty"`
	HideAt               *time.Time   `json:"hideAt,omitempty"`
	ShowAfterMinutes     int          `json:"showAfterMinutes,omitempty"`
	ShowBeforeEndMinutes int          `json:"showBeforeEndMinutes,omitempty"`
}

// TaskPoint is a geofenced task placed on the map.
type TaskPoint struct {
	ID                string           `json:"id"`
	Title             string           `json:"title"`
	Question          string           `json:"question,omitempty"`
	CorrectAnswer     string           `json:"correctAnswer,omitempty"`
	Code              string           `json:"code,omitempty"`
	Fence             geo.Fence        `json:"fence"`
	ActivationTypes   []ActivationType `json:"activationTypes"`
	RequiredTeamCount int              `json:"requiredTeamCount,omitempty"`
	Schedule          *Schedule        `json:"schedule,omitempty"`
	CompletionPolicy  CompletionPolicy `json:"completionPolicy"`
	RewardPoints      int              `json:"rewardPoints"`
	HintText          string           `json:"hintText,omitempty"`
	HintCost          int              `json:"hintCost,omitempty"`
}

// HasActivation reports whether t can be triggered via the given mechanism.
func (t *TaskPoint) HasActivation(a ActivationType) bool {
	for _, at := range t.ActivationTypes {
		if at == a {
			return true
		}
	}
	return false
}

// PenaltyType selects how a danger zone deducts points.
type PenaltyType string

const (
	PenaltyFixed     PenaltyType = "fixed"
	PenaltyTimeBased PenaltyType = "timeBased"
)

// DangerZone is a map region that penalizes teams lingering in it.
type DangerZone struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Center           geo.Coordinate `json:"center"`
	RadiusMeters     float64     `json:"radiusMeters"`
	PenaltyType      PenaltyType `json:"penaltyType"`
	PenaltyMagnitude int         `json:"penaltyMagnitude"`
	GraceSeconds     int         `json:"graceSeconds"`
}

// Fence returns the zone's geofence.
func (z *DangerZone) Fence() geo.Fence {
	return geo.Fence{Center: z.Center, RadiusMeters: z.RadiusMeters}
}

// TimerMode selects how a game's end time is derived.
type TimerMode string

const (
	TimerScheduledEnd TimerMode = "scheduledEnd"
	TimerCountdown    TimerMode = "countdown"
)

// TimerConfig describes the game clock. A zero value means no timer.
type TimerConfig struct {
	Enabled         bool       `json:"enabled"`
	Mode            TimerMode  `json:"mode,omitempty"`
	EndAt           *time.Time `json:"endAt,omitempty"`
	DurationMinutes int        `json:"durationMinutes,omitempty"`
}

// EndTime resolves the absolute game end, if one can be computed.
// Countdown timers need the team's start time; scheduled ends do not.
func (tc TimerConfig) EndTime(teamStart *time.Time) (time.Time, bool) {
	if !tc.Enabled {
		return time.Time{}, false
	}
	switch tc.Mode {
	case TimerScheduledEnd:
		if tc.EndAt != nil {
			return *tc.EndAt, true
		}
	case TimerCountdown:
		if teamStart != nil && tc.DurationMinutes > 0 {
			return teamStart.Add(time.Duration(tc.DurationMinutes) * time.Minute), true
		}
	}
	return time.Time{}, false
}

// Team is a playing group. Score is clamped non-negative at every mutation.
type Team struct {
	ID               string          `json:"id"`
	GameID           string          `json:"gameId"`
	Name             string          `json:"name"`
	JoinToken        string          `json:"joinToken,omitempty"`
	Score            int             `json:"score"`
	CompletedTaskIDs []string        `json:"completedTaskIds"`
	Position         *geo.Coordinate `json:"position,omitempty"`
	StartedAt        *time.Time      `json:"startedAt,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// Game is an instructor-configured hunt: an ordered set of task points,
// danger zones, and a timer.
type Game struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Status      GameStatus   `json:"status"`
	Tasks       []TaskPoint  `json:"tasks"`
	DangerZones []DangerZone `json:"dangerZones"`
	Timer       TimerConfig  `json:"timer"`
	CreatedAt   time.Time    `json:"createdAt"`
}

type GameStatus string

const (
	GameStatusDraft  GameStatus = "draft"
	GameStatusActive GameStatus = "active"
	GameStatusEnded  GameStatus = "ended"
)

// AttemptStatus classifies a logged task attempt.
type AttemptStatus string

const (
	AttemptCorrect   AttemptStatus = "correct"
	AttemptWrong     AttemptStatus = "wrong"
	AttemptSubmitted AttemptStatus = "submitted"
)

// TaskAttempt is an immutable, append-only audit record. The server-stamped
// timestamp is the single source of truth for first-to-complete tie-breaks;
// client receipt order is never trusted.
type TaskAttempt struct {
	ID        string          `json:"id"`
	TeamID    string          `json:"teamId"`
	TaskID    string          `json:"taskId"`
	Position  *geo.Coordinate `json:"position,omitempty"`
	Status    AttemptStatus   `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
}

// Validate checks the invariants configuration must satisfy before a game
// can be activated.
func (g *Game) Validate() error {
	for i := range g.Tasks {
		t := &g.Tasks[i]
		if t.Fence.RadiusMeters < 0 {
			return &ValidationError{Field: "tasks", ID: t.ID, Msg: "radiusMeters must be >= 0"}
		}
		if t.RequiredTeamCount < 0 {
			return &ValidationError{Field: "tasks", ID: t.ID, Msg: "requiredTeamCount must be >= 0"}
		}
	}
	for i := range g.DangerZones {
		z := &g.DangerZones[i]
		if z.PenaltyMagnitude < 0 {
			return &ValidationError{Field: "dangerZones", ID: z.ID, Msg: "penaltyMagnitude must be >= 0"}
		}
		if z.GraceSeconds < 0 {
			return &ValidationError{Field: "dangerZones", ID: z.ID, Msg: "graceSeconds must be >= 0"}
		}
		if z.RadiusMeters < 0 {
			return &ValidationError{Field: "dangerZones", ID: z.ID, Msg: "radiusMeters must be >= 0"}
		}
	}
	return nil
}

// ValidationError reports an invalid game configuration field.
type ValidationError struct {
	Field string
	ID    string
	Msg   string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + " (" + e.ID + "): " + e.Msg
}
