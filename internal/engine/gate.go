package engine

import (
	"sync"
	"time"

	"github.com/playverse/geohunt/internal/geo"
	"github.com/playverse/geohunt/internal/hunt"
)

// GateProgress reports how close a gated task is to readiness.
type GateProgress struct {
	TaskID        string `json:"taskId"`
	CurrentCount  int    `json:"currentCount"`
	RequiredCount int    `json:"requiredCount"`
	Ready         bool   `json:"ready"`
}

// MultiTeamGate tracks, per gated task, which teams' last broadcast
// positions fall inside the task's geofence. Readiness is a property of
// the whole team population, so membership recomputes on every broadcast
// from any team, not just the gate-owning one. Membership is
// instantaneous: a team drops out the moment its broadcast position
// leaves the radius or goes stale.
type MultiTeamGate struct {
	mu       sync.RWMutex
	tasks    map[string]gatedTask
	lastSeen map[string]broadcastPos // teamID -> latest broadcast
	staleTTL time.Duration
}

type gatedTask struct {
	fence    geo.Fence
	required int
}

type broadcastPos struct {
	pos geo.Coordinate
	at  time.Time
}

// NewMultiTeamGate builds a gate over the gated tasks in the given set
// (those with RequiredTeamCount > 1). staleTTL bounds how old a team's
// broadcast may be before it no longer counts.
func NewMultiTeamGate(tasks []hunt.TaskPoint, staleTTL time.Duration) *MultiTeamGate {
	g := &MultiTeamGate{
		tasks:    make(map[string]gatedTask),
		lastSeen: make(map[string]broadcastPos),
		staleTTL: staleTTL,
	}
	for _, t := range tasks {
		if t.RequiredTeamCount > 1 {
			g.tasks[t.ID] = gatedTask{fence: t.Fence, required: t.RequiredTeamCount}
		}
	}
	return g
}

// Update records a team's broadcast position. A nil position removes the
// team from all gates immediately.
func (g *MultiTeamGate) Update(teamID string, pos *geo.Coordinate, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if pos == nil {
		delete(g.lastSeen, teamID)
		return
	}
	g.lastSeen[teamID] = broadcastPos{pos: *pos, at: now}
}

// Ready reports whether the task has enough distinct teams in range.
// Tasks not gated (requiredTeamCount ≤ 1) are always ready.
func (g *MultiTeamGate) Ready(taskID string, now time.Time) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	gt, ok := g.tasks[taskID]
	if !ok {
		return true
	}
	return g.countLocked(gt, now) >= gt.required
}

// Progress returns (current, required) for the task's UI. ok is false for
// ungated tasks.
func (g *MultiTeamGate) Progress(taskID string, now time.Time) (GateProgress, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	gt, ok := g.tasks[taskID]
	if !ok {
		return GateProgress{}, false
	}
	n := g.countLocked(gt, now)
	return GateProgress{
		TaskID:        taskID,
		CurrentCount:  n,
		RequiredCount: gt.required,
		Ready:         n >= gt.required,
	}, true
}

// All returns progress for every gated task, for broadcast to UIs.
func (g *MultiTeamGate) All(now time.Time) []GateProgress {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]GateProgress, 0, len(g.tasks))
	for id, gt := range g.tasks {
		n := g.countLocked(gt, now)
		out = append(out, GateProgress{
			TaskID:        id,
			CurrentCount:  n,
			RequiredCount: gt.required,
			Ready:         n >= gt.required,
		})
	}
	return out
}

func (g *MultiTeamGate) countLocked(gt gatedTask, now time.Time) int {
	n := 0
	for _, bp := range g.lastSeen {
		if g.staleTTL > 0 && now.Sub(bp.at) > g.staleTTL {
			continue
		}
		if gt.fence.Contains(bp.pos) {
			n++
		}
	}
	return n
}
