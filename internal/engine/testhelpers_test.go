package engine

import (
	"math"
	"time"

	"github.com/playverse/geohunt/internal/geo"
	"github.com/playverse/geohunt/internal/hunt"
)

// metersPerDegLat is the spherical-earth meters per degree of latitude.
const metersPerDegLat = 6371000.0 * math.Pi / 180

// offset returns a coordinate displaced from c by the given meters.
func offset(c geo.Coordinate, northM, eastM float64) geo.Coordinate {
	return geo.Coordinate{
		Lat: c.Lat + northM/metersPerDegLat,
		Lng: c.Lng + eastM/(metersPerDegLat*math.Cos(c.Lat*math.Pi/180)),
	}
}

var testOrigin = geo.Coordinate{Lat: -12.0464, Lng: -77.0428}

func proximityTask(id string, center geo.Coordinate, radius float64) hunt.TaskPoint {
	return hunt.TaskPoint{
		ID:               id,
		Title:            id,
		Fence:            geo.Fence{Center: center, RadiusMeters: radius},
		ActivationTypes:  []hunt.ActivationType{hunt.ActivationProximity},
		CompletionPolicy: hunt.CompletionRemoveOnAnyAnswer,
		RewardPoints:     10,
	}
}

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func timePtr(t time.Time) *time.Time { return &t }
