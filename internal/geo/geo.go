// Package geo holds the pure distance and age helpers used by discovery and
// profile views.
package geo

import (
	"math"
	"time"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// DefaultAge is reported for users without a birthdate.
const DefaultAge = 18

// Point is a WGS84 coordinate. A nil *Point means "location unknown".
type Point struct {
	Lat float64
	Lon float64
}

// NewPoint builds a Point from nullable columns. It returns nil if either
// coordinate is missing.
func NewPoint(lat, lon *float64) *Point {
	if lat == nil || lon == nil {
		return nil
	}
	return &Point{Lat: *lat, Lon: *lon}
}

// Known reports whether p carries a usable location. (0,0) is the legacy
// "never set" sentinel and counts as unknown.
func (p *Point) Known() bool {
	return p != nil && !(p.Lat == 0 && p.Lon == 0)
}

// DistanceKm returns the great-circle distance between a and b in kilometres.
// ok is false when either location is unknown.
func DistanceKm(a, b *Point) (km float64, ok bool) {
	if !a.Known() || !b.Known() {
		return 0, false
	}

	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLat := lat2 - lat1
	dLon := radians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c, true
}

// AgeYears returns the age in whole years on the given day. ok is false when
// birthdate is nil.
func AgeYears(birthdate *time.Time, today time.Time) (age int, ok bool) {
	if birthdate == nil {
		return 0, false
	}
	b := birthdate.UTC()
	t := today.UTC()

	age = t.Year() - b.Year()
	if t.Month() < b.Month() || (t.Month() == b.Month() && t.Day() < b.Day()) {
		age--
	}
	return age, true
}

// AgeOrDefault is AgeYears with DefaultAge substituted for a missing birthdate.
func AgeOrDefault(birthdate *time.Time, today time.Time) int {
	if age, ok := AgeYears(birthdate, today); ok {
		return age
	}
	return DefaultAge
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
