// Package geo provides WGS84 coordinates and circular geofences.
// Distances use the great-circle haversine formula on a spherical
// earth; no ellipsoidal correction.
package geo

import "math"

// earthRadiusM is the mean earth radius in meters.
const earthRadiusM = 6371000.0

// Coordinate is a WGS84 position in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DistanceMeters returns the great-circle distance between a and b in meters.
func DistanceMeters(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusM * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Fence is a circular geofence.
type Fence struct {
	Center       Coordinate `json:"center"`
	RadiusMeters float64    `json:"radiusMeters"`
}

// Contains reports whether p lies inside the fence. Boundary equality
// counts as in-range.
func (f Fence) Contains(p Coordinate) bool {
	return DistanceMeters(p, f.Center) <= f.RadiusMeters
}

// DistanceTo returns the distance from p to the fence center in meters.
func (f Fence) DistanceTo(p Coordinate) float64 {
	return DistanceMeters(p, f.Center)
}
