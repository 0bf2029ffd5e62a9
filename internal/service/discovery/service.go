// Package discovery ranks the discoverable pool of a viewer and runs the
// bounded profile search.
package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oggyb/matcha/internal/app"
	"github.com/oggyb/matcha/internal/db"
	svcErr "github.com/oggyb/matcha/internal/errors"
	"github.com/oggyb/matcha/internal/geo"
	"github.com/oggyb/matcha/internal/metrics"
	"github.com/oggyb/matcha/internal/repository"
)

// Candidate is one discoverable user as seen by the viewer.
type Candidate struct {
	ID         uint64   `json:"id"`
	Username   string   `json:"username"`
	FirstName  string   `json:"first_name"`
	Gender     string   `json:"gender"`
	City       string   `json:"city,omitempty"`
	Popularity float64  `json:"popularity"`
	Age        *int     `json:"age,omitempty"`
	DistanceKm *float64 `json:"distance_km,omitempty"`
	Tags       []string `json:"tags"`
	CommonTags int      `json:"common_tags"`
	PhotoURL   string   `json:"photo_url,omitempty"`
	// Score is only set by Suggestions.
	Score *float64 `json:"score,omitempty"`
}

// Filter bounds a search. Nil bounds are not applied. A candidate whose age
// or distance is unknown fails any bound on that dimension.
type Filter struct {
	AgeMin        *int     `json:"age_min,omitempty" validate:"omitempty,gte=0,lte=150"`
	AgeMax        *int     `json:"age_max,omitempty" validate:"omitempty,gte=0,lte=150"`
	PopularityMin *float64 `json:"popularity_min,omitempty" validate:"omitempty,gte=0"`
	PopularityMax *float64 `json:"popularity_max,omitempty" validate:"omitempty,gte=0"`
	MaxDistanceKm *float64 `json:"max_distance_km,omitempty" validate:"omitempty,gt=0"`
	Tags          []string `json:"tags,omitempty" validate:"max=20,dive,min=2,max=64,tagname"`
}

// Service computes suggestions and searches over the discoverable pool.
type Service struct {
	appCtx   *app.AppContext
	userRepo *repository.UserRepository
	weights  Weights
	now      func() time.Time
}

// NewService wires discovery with DefaultWeights.
func NewService(appCtx *app.AppContext) *Service {
	return NewServiceWithWeights(appCtx, DefaultWeights)
}

func NewServiceWithWeights(appCtx *app.AppContext, w Weights) *Service {
	return &Service{
		appCtx:   appCtx,
		userRepo: repository.NewUserRepository(appCtx.DB),
		weights:  w,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// OrientationFilter returns the gender restriction implied by a viewer's
// orientation.
//
// Behavior:
//   - heterosexual: male sees female, female sees male, anyone else sees
//     every gender but their own.
//   - gay: same gender only.
//   - bisexual (or unset): no restriction.
func OrientationFilter(gender, orientation string) repository.PoolFilter {
	switch orientation {
	case db.OrientationHeterosexual:
		switch gender {
		case db.GenderMale:
			return repository.PoolFilter{Genders: []string{db.GenderFemale}}
		case db.GenderFemale:
			return repository.PoolFilter{Genders: []string{db.GenderMale}}
		default:
			return repository.PoolFilter{ExcludeGenders: []string{gender}}
		}
	case db.OrientationGay:
		return repository.PoolFilter{Genders: []string{gender}}
	}
	return repository.PoolFilter{}
}

// Suggestions returns the viewer's pool ranked by Score, highest first.
// Equal scores are ordered by user id.
//
// Example:
//
//	list, err := svc.Suggestions(ctx, viewerID)
func (s *Service) Suggestions(ctx context.Context, viewerID uint64) ([]Candidate, error) {
	s.appCtx.Logger.Debug("Suggestions called", "viewer", viewerID)

	viewer, viewerTags, pool, err := s.load(ctx, viewerID, func(v *db.User) repository.PoolFilter {
		return OrientationFilter(v.Gender, v.Orientation)
	})
	if err != nil {
		return nil, fmt.Errorf("suggestions: %w", err)
	}

	me := Subject{Location: geo.NewPoint(viewer.Latitude, viewer.Longitude), Tags: viewerTags}
	for i := range pool {
		c := &pool[i]
		score := Score(me, Subject{
			Location:   geo.NewPoint(c.lat, c.lon),
			Tags:       c.Tags,
			Popularity: c.Popularity,
		}, s.weights)
		c.Score = &score
	}
	sort.SliceStable(pool, func(i, j int) bool {
		if *pool[i].Score != *pool[j].Score {
			return *pool[i].Score > *pool[j].Score
		}
		return pool[i].ID < pool[j].ID
	})

	out := candidates(pool)
	metrics.DiscoveryResults.WithLabelValues("suggestions").Observe(float64(len(out)))
	return out, nil
}

// Search returns the pool members inside every bound of f, ordered by id.
// Orientation is not applied; required tags must all be present.
func (s *Service) Search(ctx context.Context, viewerID uint64, f Filter) ([]Candidate, error) {
	s.appCtx.Logger.Debug("Search called", "viewer", viewerID)

	if err := checkRanges(f); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	_, _, pool, err := s.load(ctx, viewerID, func(*db.User) repository.PoolFilter {
		return repository.PoolFilter{}
	})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	required := normalizeTags(f.Tags)
	out := make([]Candidate, 0, len(pool))
	for _, c := range pool {
		if matches(c.Candidate, f, required) {
			out = append(out, c.Candidate)
		}
	}
	metrics.DiscoveryResults.WithLabelValues("search").Observe(float64(len(out)))
	return out, nil
}

// entry keeps the raw location next to the view for scoring.
type entry struct {
	Candidate
	lat, lon *float64
}

// load fetches the viewer, their tags and the enriched pool.
func (s *Service) load(ctx context.Context, viewerID uint64, filter func(*db.User) repository.PoolFilter) (*db.User, []string, []entry, error) {
	viewer, err := s.userRepo.Get(ctx, viewerID)
	if err != nil {
		return nil, nil, nil, err
	}
	users, err := s.userRepo.Discoverable(ctx, viewerID, filter(viewer))
	if err != nil {
		return nil, nil, nil, err
	}

	ids := make([]uint64, 0, len(users)+1)
	ids = append(ids, viewerID)
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	tags, err := s.userRepo.TagNames(ctx, ids)
	if err != nil {
		return nil, nil, nil, err
	}
	photos, err := s.userRepo.ProfilePhotoURLs(ctx, ids[1:])
	if err != nil {
		return nil, nil, nil, err
	}

	viewerTags := tags[viewerID]
	here := geo.NewPoint(viewer.Latitude, viewer.Longitude)
	today := s.now()

	pool := make([]entry, 0, len(users))
	for _, u := range users {
		c := Candidate{
			ID:         u.ID,
			Username:   u.Username,
			FirstName:  u.FirstName,
			Gender:     u.Gender,
			City:       u.City,
			Popularity: u.Popularity,
			Tags:       tags[u.ID],
			PhotoURL:   photos[u.ID],
		}
		if c.Tags == nil {
			c.Tags = []string{}
		}
		c.CommonTags = CommonTags(viewerTags, c.Tags)
		if age, ok := geo.AgeYears(u.Birthdate, today); ok {
			c.Age = &age
		}
		if km, ok := geo.DistanceKm(here, geo.NewPoint(u.Latitude, u.Longitude)); ok {
			c.DistanceKm = &km
		}
		pool = append(pool, entry{Candidate: c, lat: u.Latitude, lon: u.Longitude})
	}
	return viewer, viewerTags, pool, nil
}

func candidates(pool []entry) []Candidate {
	out := make([]Candidate, len(pool))
	for i, e := range pool {
		out[i] = e.Candidate
	}
	return out
}

func checkRanges(f Filter) error {
	if f.AgeMin != nil && f.AgeMax != nil && *f.AgeMin > *f.AgeMax {
		return fmt.Errorf("age_min exceeds age_max: %w", svcErr.ErrInvalidArgument)
	}
	if f.PopularityMin != nil && f.PopularityMax != nil && *f.PopularityMin > *f.PopularityMax {
		return fmt.Errorf("popularity_min exceeds popularity_max: %w", svcErr.ErrInvalidArgument)
	}
	return nil
}

// normalizeTags lower-cases, trims and deduplicates tag names.
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if _, ok := seen[t]; ok || t == "" {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func matches(c Candidate, f Filter, required []string) bool {
	if f.AgeMin != nil || f.AgeMax != nil {
		if c.Age == nil {
			return false
		}
		if f.AgeMin != nil && *c.Age < *f.AgeMin {
			return false
		}
		if f.AgeMax != nil && *c.Age > *f.AgeMax {
			return false
		}
	}
	if f.PopularityMin != nil && c.Popularity < *f.PopularityMin {
		return false
	}
	if f.PopularityMax != nil && c.Popularity > *f.PopularityMax {
		return false
	}
	if f.MaxDistanceKm != nil && (c.DistanceKm == nil || *c.DistanceKm > *f.MaxDistanceKm) {
		return false
	}
	return CommonTags(required, c.Tags) == len(required)
}
