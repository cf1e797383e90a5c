package engine

import (
	"time"

	"github.com/playverse/geohunt/internal/geo"
	"github.com/playverse/geohunt/internal/hunt"
)

// ZoneState is the penalty machine state for one team.
type ZoneState string

const (
	ZoneOutside       ZoneState = "OUTSIDE"
	ZoneInGrace       ZoneState = "IN_GRACE"
	ZonePenaltyActive ZoneState = "PENALTY_ACTIVE"
)

// ZoneWarning is the payload surfaced to UIs while a team occupies a
// danger zone.
type ZoneWarning struct {
	Zone             hunt.DangerZone `json:"zone"`
	State            ZoneState       `json:"state"`
	ElapsedSeconds   int             `json:"elapsedSeconds"`
	TotalDeducted    int             `json:"totalDeducted"`
	GraceSecondsLeft int             `json:"graceSecondsLeft"`
}

// ZoneTracker runs the danger-zone state machine for a single team. It is
// driven by two independent cadences: Observe on every position poll and
// Tick once per second for penalty accrual. The tracker owns only this
// team's transient state; deductions flow into the team's ledger.
//
// Occupancy state lives for exactly one continuous stay: leaving all zones
// (or losing the position fix) resets enteredAt, elapsedSeconds, and
// totalDeducted, so briefly stepping out and back in restarts the grace
// period. That is the intended behavior and tests assert it.
type ZoneTracker struct {
	zones  []hunt.DangerZone
	ledger *Ledger

	state         ZoneState
	currentZoneID string
	enteredAt     time.Time
	elapsed       int
	totalDeducted int
}

// NewZoneTracker builds a tracker over the game's zones, deducting into
// the given ledger.
func NewZoneTracker(zones []hunt.DangerZone, ledger *Ledger) *ZoneTracker {
	return &ZoneTracker{zones: zones, ledger: ledger, state: ZoneOutside}
}

// Observe processes one position sample. A nil position means no GPS fix:
// the zone is not enforceable, so all transient state resets rather than
// erroring.
func (zt *ZoneTracker) Observe(pos *geo.Coordinate, now time.Time) {
	if pos == nil {
		zt.Reset()
		return
	}

	zone := zt.nearestContaining(*pos)
	if zone == nil {
		zt.Reset()
		return
	}

	if zone.ID == zt.currentZoneID {
		return
	}

	// Entering a zone (or switching between overlapping zones, which
	// counts as a fresh entry: the nearest containing zone wins).
	zt.Reset()
	zt.currentZoneID = zone.ID
	zt.enteredAt = now

	switch zone.PenaltyType {
	case hunt.PenaltyFixed:
		// One-time deduction on entry; fixed penalties never repeat, so
		// there is no timed state to enter.
		zt.ledger.Apply(Delta{Points: -zone.PenaltyMagnitude, Reason: ReasonZonePenalty})
		zt.totalDeducted = zone.PenaltyMagnitude
	case hunt.PenaltyTimeBased:
		zt.state = ZoneInGrace
	}
}

// Tick advances penalty accrual by one whole second. The grace-expiry
// tick transitions to PENALTY_ACTIVE without deducting; every tick after
// that deducts PenaltyMagnitude, clamped at zero by the ledger.
func (zt *ZoneTracker) Tick(now time.Time) {
	if zt.currentZoneID == "" {
		return
	}
	zone := zt.zoneByID(zt.currentZoneID)
	if zone == nil || zone.PenaltyType != hunt.PenaltyTimeBased {
		return
	}

	zt.elapsed = int(now.Sub(zt.enteredAt) / time.Second)

	switch zt.state {
	case ZoneInGrace:
		if zt.elapsed >= zone.GraceSeconds {
			zt.state = ZonePenaltyActive
		}
	case ZonePenaltyActive:
		zt.ledger.Apply(Delta{Points: -zone.PenaltyMagnitude, Reason: ReasonZonePenalty})
		zt.totalDeducted += zone.PenaltyMagnitude
	}
}

// Warning returns the current warning payload, or nil when the team is
// not inside any zone.
func (zt *ZoneTracker) Warning() *ZoneWarning {
	if zt.currentZoneID == "" {
		return nil
	}
	zone := zt.zoneByID(zt.currentZoneID)
	if zone == nil {
		return nil
	}
	w := &ZoneWarning{
		Zone:           *zone,
		State:          zt.state,
		ElapsedSeconds: zt.elapsed,
		TotalDeducted:  zt.totalDeducted,
	}
	if zone.PenaltyType == hunt.PenaltyTimeBased && zt.state == ZoneInGrace {
		if left := zone.GraceSeconds - zt.elapsed; left > 0 {
			w.GraceSecondsLeft = left
		}
	}
	return w
}

// State returns the machine state.
func (zt *ZoneTracker) State() ZoneState { return zt.state }

// TotalDeducted returns the points deducted during the current occupancy.
func (zt *ZoneTracker) TotalDeducted() int { return zt.totalDeducted }

// Reset clears all occupancy state, returning the machine to OUTSIDE.
func (zt *ZoneTracker) Reset() {
	zt.state = ZoneOutside
	zt.currentZoneID = ""
	zt.enteredAt = time.Time{}
	zt.elapsed = 0
	zt.totalDeducted = 0
}

// nearestContaining returns the closest zone whose radius contains p, or
// nil when no zone does.
func (zt *ZoneTracker) nearestContaining(p geo.Coordinate) *hunt.DangerZone {
	var best *hunt.DangerZone
	var bestDist float64
	for i := range zt.zones {
		z := &zt.zones[i]
		d := geo.DistanceMeters(p, z.Center)
		if d > z.RadiusMeters {
			continue
		}
		if best == nil || d < bestDist {
			best = z
			bestDist = d
		}
	}
	return best
}

func (zt *ZoneTracker) zoneByID(id string) *hunt.DangerZone {
	for i := range zt.zones {
		if zt.zones[i].ID == id {
			return &zt.zones[i]
		}
	}
	return nil
}
