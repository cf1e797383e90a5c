package engine

import (
	"testing"
	"time"

	"github.com/playverse/geohunt/internal/hunt"
)

func gatedTask3(required int) hunt.TaskPoint {
	t := proximityTask("gated", testOrigin, 50)
	t.RequiredTeamCount = required
	return t
}

func TestGateReadinessThreshold(t *testing.T) {
	g := NewMultiTeamGate([]hunt.TaskPoint{gatedTask3(3)}, 0)
	now := at("2026-06-01T10:00:00Z")
	inside := testOrigin

	g.Update("team-a", &inside, now)
	g.Update("team-b", &inside, now)
	if g.Ready("gated", now) {
		t.Error("2 of 3 teams in range must not be ready")
	}

	g.Update("team-c", &inside, now)
	if !g.Ready("gated", now) {
		t.Error("3rd distinct team in range must flip readiness to true")
	}

	// A team's broadcast position moving outside drops it immediately.
	outside := offset(testOrigin, 200, 0)
	g.Update("team-b", &outside, now)
	if g.Ready("gated", now) {
		t.Error("readiness must flip back when a team leaves the radius")
	}
}

func TestGateProgress(t *testing.T) {
	g := NewMultiTeamGate([]hunt.TaskPoint{gatedTask3(2)}, 0)
	now := at("2026-06-01T10:00:00Z")
	inside := testOrigin

	g.Update("team-a", &inside, now)
	p, ok := g.Progress("gated", now)
	if !ok {
		t.Fatal("expected progress for a gated task")
	}
	if p.CurrentCount != 1 || p.RequiredCount != 2 || p.Ready {
		t.Errorf("unexpected progress: %+v", p)
	}

	if _, ok := g.Progress("ungated", now); ok {
		t.Error("no progress expected for an unknown task")
	}
}

func TestGateUngatedAlwaysReady(t *testing.T) {
	plain := proximityTask("plain", testOrigin, 50)
	g := NewMultiTeamGate([]hunt.TaskPoint{plain}, 0)
	if !g.Ready("plain", at("2026-06-01T10:00:00Z")) {
		t.Error("tasks without a team requirement are always ready")
	}
}

func TestGateStaleBroadcastDrops(t *testing.T) {
	g := NewMultiTeamGate([]hunt.TaskPoint{gatedTask3(2)}, 15*time.Second)
	t0 := at("2026-06-01T10:00:00Z")
	inside := testOrigin

	g.Update("team-a", &inside, t0)
	g.Update("team-b", &inside, t0)
	if !g.Ready("gated", t0) {
		t.Fatal("both teams fresh and in range")
	}

	// team-b's last broadcast ages past the TTL: membership is
	// instantaneous, with no memory of who was ever in range.
	later := t0.Add(20 * time.Second)
	g.Update("team-a", &inside, later)
	if g.Ready("gated", later) {
		t.Error("stale broadcasts must not count toward readiness")
	}
}

func TestGateNilPositionRemoves(t *testing.T) {
	g := NewMultiTeamGate([]hunt.TaskPoint{gatedTask3(2)}, 0)
	now := at("2026-06-01T10:00:00Z")
	inside := testOrigin

	g.Update("team-a", &inside, now)
	g.Update("team-b", &inside, now)
	g.Update("team-b", nil, now)
	if g.Ready("gated", now) {
		t.Error("a team losing its fix must drop out of the gate")
	}
}
