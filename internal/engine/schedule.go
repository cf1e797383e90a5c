package engine

import (
	"time"

	"github.com/playverse/geohunt/internal/hunt"
)

// ScheduleVisible reports whether a task's schedule makes it visible at
// the given instant. It is a pure predicate: identical inputs always give
// identical results.
//
// Missing prerequisites degrade gracefully rather than erroring: a
// start-offset schedule without a known team start is hidden (cannot yet
// be computed), an end-offset schedule without a resolvable game end is
// visible (no end to measure against), and an unknown mode is visible.
func ScheduleVisible(s *hunt.Schedule, teamStart *time.Time, timer hunt.TimerConfig, now time.Time) bool {
	if s == nil || !s.Enabled {
		return true
	}

	switch s.Mode {
	case hunt.ScheduleAbsoluteWindow:
		if s.ShowAt != nil && now.Before(*s.ShowAt) {
			return false
		}
		if s.HideAt != nil && now.After(*s.HideAt) {
			return false
		}
		return true

	case hunt.ScheduleStartOffset:
		if teamStart == nil {
			return false
		}
		return now.Sub(*teamStart) >= time.Duration(s.ShowAfterMinutes)*time.Minute

	case hunt.ScheduleEndOffset:
		end, ok := timer.EndTime(teamStart)
		if !ok {
			return true
		}
		remaining := end.Sub(now)
		return remaining > 0 && remaining <= time.Duration(s.ShowBeforeEndMinutes)*time.Minute

	default:
		// Unknown mode: permissive, so malformed configuration degrades
		// instead of blocking play.
		return true
	}
}

// VisibleTasks filters tasks to those whose schedule allows them at now
// and which the team has not closed out per their completion policy.
func VisibleTasks(tasks []hunt.TaskPoint, completed map[string]bool, teamStart *time.Time, timer hunt.TimerConfig, now time.Time) []hunt.TaskPoint {
	out := make([]hunt.TaskPoint, 0, len(tasks))
	for _, t := range tasks {
		if completed[t.ID] && t.CompletionPolicy != hunt.CompletionKeepAlways {
			continue
		}
		if !ScheduleVisible(t.Schedule, teamStart, timer, now) {
			continue
		}
		out = append(out, t)
	}
	return out
}
