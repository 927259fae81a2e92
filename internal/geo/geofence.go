// Package geo decides physical presence against a circular geofence.
package geo

import "math"

const earthRadiusMeters = 6371000.0

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64
	Lng float64
}

// Fence is a circular geofence. A nil Fence or non-positive radius means no fence.
type Fence struct {
	Center  Point
	RadiusM float64
}

// Contains reports whether p lies within the fence. A nil fence or a fence
// with non-positive radius accepts every point.
func (f *Fence) Contains(p Point) bool {
	if f == nil || f.RadiusM <= 0 {
		return true
	}
	return Distance(f.Center, p) <= f.RadiusM
}

// Distance returns the haversine great-circle distance between a and b in meters.
func Distance(a, b Point) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
