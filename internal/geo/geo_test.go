package geo_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/matcha/internal/geo"
)

var (
	paris  = &geo.Point{Lat: 48.8566, Lon: 2.3522}
	london = &geo.Point{Lat: 51.5074, Lon: -0.1278}
	lyon   = &geo.Point{Lat: 45.7640, Lon: 4.8357}
)

func TestDistanceKm_KnownCities(t *testing.T) {
	km, ok := geo.DistanceKm(paris, london)
	require.True(t, ok)
	assert.InDelta(t, 343.5, km, 1.0)

	km, ok = geo.DistanceKm(paris, lyon)
	require.True(t, ok)
	assert.InDelta(t, 391.5, km, 1.5)
}

func TestDistanceKm_Symmetric(t *testing.T) {
	points := []*geo.Point{paris, london, lyon, {Lat: -33.8688, Lon: 151.2093}}
	for _, a := range points {
		for _, b := range points {
			ab, ok1 := geo.DistanceKm(a, b)
			ba, ok2 := geo.DistanceKm(b, a)
			require.True(t, ok1)
			require.True(t, ok2)
			assert.InDelta(t, ab, ba, 1e-9)
		}
	}
}

func TestDistanceKm_SamePointIsZero(t *testing.T) {
	km, ok := geo.DistanceKm(paris, paris)
	require.True(t, ok)
	assert.InDelta(t, 0, km, 1e-9)
}

func TestDistanceKm_Unknown(t *testing.T) {
	_, ok := geo.DistanceKm(nil, paris)
	assert.False(t, ok)

	_, ok = geo.DistanceKm(paris, &geo.Point{})
	assert.False(t, ok, "(0,0) is the unset sentinel")

	lat := 10.0
	assert.Nil(t, geo.NewPoint(&lat, nil))
}

func TestAgeYears(t *testing.T) {
	birth := time.Date(2000, time.June, 15, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		today time.Time
		want  int
	}{
		{"day before anniversary", time.Date(2024, time.June, 14, 12, 0, 0, 0, time.UTC), 23},
		{"on anniversary", time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC), 24},
		{"earlier month", time.Date(2024, time.January, 30, 0, 0, 0, 0, time.UTC), 23},
		{"later month", time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC), 24},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			age, ok := geo.AgeYears(&birth, tc.today)
			require.True(t, ok)
			assert.Equal(t, tc.want, age)
		})
	}
}

func TestAgeYears_MissingBirthdate(t *testing.T) {
	_, ok := geo.AgeYears(nil, time.Now())
	assert.False(t, ok)
	assert.Equal(t, geo.DefaultAge, geo.AgeOrDefault(nil, time.Now()))
}
