package engine

import (
	"testing"

	"github.com/playverse/geohunt/internal/hunt"
)

func TestProximityAtCenter(t *testing.T) {
	task := proximityTask("t1", testOrigin, 30)
	res := EvaluateProximity(testOrigin, []hunt.TaskPoint{task})

	if len(res.Activatable) != 1 {
		t.Fatalf("expected 1 activatable task, got %d", len(res.Activatable))
	}
	if res.Activatable[0].DistanceMeters != 0 {
		t.Errorf("expected distance 0 at center, got %f", res.Activatable[0].DistanceMeters)
	}
	if !res.HasNearest || res.NearestMeters != 0 {
		t.Errorf("expected nearest 0, got %f", res.NearestMeters)
	}
}

func TestProximityRadiusBoundary(t *testing.T) {
	p := offset(testOrigin, 40, 0)
	task := proximityTask("t1", testOrigin, 50)

	res := EvaluateProximity(p, []hunt.TaskPoint{task})
	if len(res.Activatable) != 1 {
		t.Fatal("point ~40m from center should be inside a 50m radius")
	}

	far := offset(testOrigin, 60, 0)
	res = EvaluateProximity(far, []hunt.TaskPoint{task})
	if len(res.Activatable) != 0 {
		t.Error("point ~60m from center should be outside a 50m radius")
	}
	// The nearest distance is still reported, independent of radius.
	if !res.HasNearest || res.NearestMeters < 55 || res.NearestMeters > 65 {
		t.Errorf("expected nearest ~60m, got %f", res.NearestMeters)
	}
}

func TestProximitySortedNearestFirst(t *testing.T) {
	near := proximityTask("near", offset(testOrigin, 10, 0), 100)
	far := proximityTask("far", offset(testOrigin, 80, 0), 100)

	res := EvaluateProximity(testOrigin, []hunt.TaskPoint{far, near})
	if len(res.Activatable) != 2 {
		t.Fatalf("expected 2 activatable tasks, got %d", len(res.Activatable))
	}
	if res.Activatable[0].Task.ID != "near" {
		t.Errorf("expected nearest first, got %q", res.Activatable[0].Task.ID)
	}
}

func TestProximityTieKeepsInsertionOrder(t *testing.T) {
	center := offset(testOrigin, 25, 0)
	a := proximityTask("a", center, 100)
	b := proximityTask("b", center, 100)

	res := EvaluateProximity(testOrigin, []hunt.TaskPoint{a, b})
	if len(res.Activatable) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(res.Activatable))
	}
	if res.Activatable[0].Task.ID != "a" || res.Activatable[1].Task.ID != "b" {
		t.Errorf("equal distances should keep insertion order, got %q then %q",
			res.Activatable[0].Task.ID, res.Activatable[1].Task.ID)
	}
}

func TestProximityIgnoresNonProximityTasks(t *testing.T) {
	qrOnly := hunt.TaskPoint{
		ID:              "qr",
		Fence:           proximityTask("x", testOrigin, 50).Fence,
		ActivationTypes: []hunt.ActivationType{hunt.ActivationQR},
	}
	res := EvaluateProximity(testOrigin, []hunt.TaskPoint{qrOnly})
	if len(res.Activatable) != 0 {
		t.Error("a qr-only task should not be proximity-activatable")
	}
	// It still contributes to the nearest-distance readout.
	if !res.HasNearest {
		t.Error("expected a nearest distance")
	}
}

func TestProximityEmptyInput(t *testing.T) {
	res := EvaluateProximity(testOrigin, nil)
	if res.HasNearest || len(res.Activatable) != 0 {
		t.Error("empty task set should yield an empty result")
	}
}
