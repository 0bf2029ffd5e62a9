package discovery

import (
	"math"

	"github.com/oggyb/matcha/internal/geo"
)

// Weights parameterise the ranking formula
//
//	max(0, DistanceCeilingKm − d) + TagPoints × common + PopularityFactor × popularity
//
// UnknownDistancePoints replaces the distance term when either side has no
// usable location.
type Weights struct {
	DistanceCeilingKm     float64
	TagPoints             float64
	PopularityFactor      float64
	UnknownDistancePoints float64
}

// DefaultWeights ranks unknown locations like candidates 100 km or more away.
var DefaultWeights = Weights{
	DistanceCeilingKm:     100,
	TagPoints:             20,
	PopularityFactor:      0.5,
	UnknownDistancePoints: 0,
}

// Subject is the part of a profile the scorer looks at.
type Subject struct {
	Location   *geo.Point
	Tags       []string
	Popularity float64
}

// Score ranks candidate for viewer. It is pure and symmetric in location.
func Score(viewer, candidate Subject, w Weights) float64 {
	score := w.UnknownDistancePoints
	if d, ok := geo.DistanceKm(viewer.Location, candidate.Location); ok {
		score = math.Max(0, w.DistanceCeilingKm-d)
	}
	score += w.TagPoints * float64(CommonTags(viewer.Tags, candidate.Tags))
	score += w.PopularityFactor * candidate.Popularity
	return score
}

// CommonTags counts the distinct names present in both sets.
func CommonTags(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	n := 0
	for _, t := range b {
		if _, ok := set[t]; ok {
			n++
			delete(set, t)
		}
	}
	return n
}
