package engine

import (
	"sort"

	"github.com/playverse/geohunt/internal/geo"
	"github.com/playverse/geohunt/internal/hunt"
)

// TaskDistance pairs a task with its current distance from the team.
type TaskDistance struct {
	Task           hunt.TaskPoint
	DistanceMeters float64
}

// ProximityResult is the output of one proximity evaluation.
type ProximityResult struct {
	// Activatable lists tasks with the proximity activation type whose
	// geofence contains the position, nearest first. Ties keep task
	// insertion order.
	Activatable []TaskDistance
	// NearestMeters is the distance to the closest candidate task,
	// independent of its radius. Valid only when HasNearest is true.
	NearestMeters float64
	HasNearest    bool
}

// EvaluateProximity computes which of the given tasks are reachable from
// pos. It is a pure function of its inputs: no side effects, no state.
// Callers pass only schedule-visible, not-yet-completed tasks.
func EvaluateProximity(pos geo.Coordinate, tasks []hunt.TaskPoint) ProximityResult {
	var res ProximityResult
	for _, t := range tasks {
		d := t.Fence.DistanceTo(pos)
		if !res.HasNearest || d < res.NearestMeters {
			res.NearestMeters = d
			res.HasNearest = true
		}
		if t.HasActivation(hunt.ActivationProximity) && d <= t.Fence.RadiusMeters {
			res.Activatable = append(res.Activatable, TaskDistance{Task: t, DistanceMeters: d})
		}
	}
	// Stable sort preserves insertion order among equal distances.
	sort.SliceStable(res.Activatable, func(i, j int) bool {
		return res.Activatable[i].DistanceMeters < res.Activatable[j].DistanceMeters
	})
	return res
}
