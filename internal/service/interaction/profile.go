package interaction

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/matcha/internal/db"
	svcErr "github.com/oggyb/matcha/internal/errors"
	"github.com/oggyb/matcha/internal/geo"
	"github.com/oggyb/matcha/internal/metrics"
	"github.com/oggyb/matcha/internal/repository"
	"github.com/oggyb/matcha/internal/service/notification"
	"github.com/oggyb/matcha/internal/utils/pagination"
)

// PhotoView is an opaque photo reference.
type PhotoView struct {
	ID        uint64 `json:"id"`
	URL       string `json:"url"`
	IsProfile bool   `json:"is_profile"`
}

// Profile is what a viewer sees of a target, including the pair state.
type Profile struct {
	ID          uint64      `json:"id"`
	Username    string      `json:"username"`
	FirstName   string      `json:"first_name"`
	LastName    string      `json:"last_name"`
	Gender      string      `json:"gender"`
	Orientation string      `json:"orientation"`
	Biography   string      `json:"biography"`
	City        string      `json:"city"`
	Popularity  float64     `json:"popularity"`
	Age         *int        `json:"age,omitempty"`
	DistanceKm  *float64    `json:"distance_km,omitempty"`
	Tags        []string    `json:"tags"`
	Photos      []PhotoView `json:"photos"`
	IsLiked     bool        `json:"is_liked"`
	LikedBack   bool        `json:"liked_back"`
	IsMatch     bool        `json:"is_match"`
	IsOnline    bool        `json:"is_online"`
	LastSeen    *time.Time  `json:"last_seen,omitempty"`
}

// UserEdge is one entry of the likers / visitors listings.
type UserEdge struct {
	UserID     uint64    `json:"user_id"`
	Username   string    `json:"username"`
	Popularity float64   `json:"popularity"`
	PhotoURL   string    `json:"photo_url,omitempty"`
	At         time.Time `json:"at"`
}

// ViewProfile returns target as seen by viewer and records the visit.
//
// Behavior:
//   - Block in either direction → ErrBlocked (the target looks absent).
//   - Unknown target → gorm.ErrRecordNotFound.
//   - viewer != target: at most one visit per pair per dedup window; a
//     recorded visit grants +1 popularity and a `visit` notification.
//   - A failing visit record is logged, the profile is still returned.
func (s *Service) ViewProfile(ctx context.Context, viewerID, targetID uint64) (*Profile, error) {
	s.appCtx.Logger.Debug("ViewProfile called", "viewer", viewerID, "target", targetID)

	if viewerID != targetID {
		blocked, err := s.blockRepo.EitherWay(ctx, viewerID, targetID)
		if err != nil {
			return nil, s.fail("visit", err)
		}
		if blocked {
			return nil, s.reject("visit", svcErr.ErrBlocked)
		}
	}

	target, err := s.userRepo.GetProfile(ctx, targetID)
	if err != nil {
		return nil, s.outcome("visit", err)
	}
	viewer, err := s.userRepo.Get(ctx, viewerID)
	if err != nil {
		return nil, s.outcome("visit", err)
	}

	p := &Profile{
		ID:          target.ID,
		Username:    target.Username,
		FirstName:   target.FirstName,
		LastName:    target.LastName,
		Gender:      target.Gender,
		Orientation: target.Orientation,
		Biography:   target.Biography,
		City:        target.City,
		Popularity:  target.Popularity,
		Tags:        make([]string, 0, len(target.Tags)),
		Photos:      make([]PhotoView, 0, len(target.Photos)),
		LastSeen:    target.LastSeenAt,
	}
	if age, ok := geo.AgeYears(target.Birthdate, s.now()); ok {
		p.Age = &age
	}
	if km, ok := geo.DistanceKm(geo.NewPoint(viewer.Latitude, viewer.Longitude), geo.NewPoint(target.Latitude, target.Longitude)); ok {
		p.DistanceKm = &km
	}
	for _, t := range target.Tags {
		p.Tags = append(p.Tags, t.Name)
	}
	for _, ph := range target.Photos {
		p.Photos = append(p.Photos, PhotoView{ID: ph.ID, URL: ph.URL, IsProfile: ph.IsProfile})
	}

	ab, ba, err := s.likeRepo.Pair(ctx, viewerID, targetID)
	if err != nil {
		return nil, s.fail("visit", err)
	}
	p.IsLiked = ab != nil
	p.LikedBack = ba != nil
	p.IsMatch = ab != nil && ba != nil
	if s.registry != nil {
		p.IsOnline = s.registry.IsOnline(targetID)
	}
	if p.IsOnline {
		p.LastSeen = nil
	}

	if viewerID != targetID {
		s.recordVisit(ctx, viewerID, targetID)
	}
	return p, nil
}

// recordVisit applies the dedup window, then writes visit + score + notice in
// one transaction.
func (s *Service) recordVisit(ctx context.Context, viewerID, targetID uint64) {
	window := s.appCtx.Config.Visits.DedupWindow

	claimed, err := s.appCtx.RedisCache.ClaimVisit(ctx, viewerID, targetID, window)
	viaCache := err == nil
	if err != nil {
		s.appCtx.Logger.Warn("visit dedup cache unavailable, using store", "err", err)
		seen, dbErr := s.visitRepo.HasSince(ctx, viewerID, targetID, s.now().Add(-window))
		if dbErr != nil {
			s.appCtx.Logger.Error("visit dedup lookup failed", "err", dbErr)
			return
		}
		claimed = !seen
	}
	if !claimed {
		metrics.InteractionTransitions.WithLabelValues("visit", "noop").Inc()
		return
	}

	notice := &notification.Notice{RecipientID: targetID, SenderID: viewerID, Type: db.NotificationVisit}
	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.visitRepo.WithTx(tx).Create(ctx, viewerID, targetID); err != nil {
			return err
		}
		if err := s.userRepo.WithTx(tx).ApplyScoreDelta(ctx, targetID, VisitReward); err != nil {
			return err
		}
		return s.notifier.Persist(ctx, tx, notice)
	})
	if err != nil {
		metrics.InteractionTransitions.WithLabelValues("visit", "error").Inc()
		s.appCtx.Logger.Error("failed to record visit", "viewer", viewerID, "target", targetID, "err", err)
		if viaCache {
			_ = s.appCtx.RedisCache.ReleaseVisit(ctx, viewerID, targetID)
		}
		return
	}

	s.notifier.Deliver(ctx, notice)
	metrics.InteractionTransitions.WithLabelValues("visit", "applied").Inc()
}

// ListLikers returns users currently liking userID, most recent first.
func (s *Service) ListLikers(ctx context.Context, userID uint64, token *string, limit int) ([]UserEdge, *string, error) {
	rows, next, err := s.likeRepo.ListLikers(ctx, userID, token, pagination.ClampLimit(limit))
	if err != nil {
		return nil, nil, fmt.Errorf("list likers: %w", err)
	}
	return toEdges(rows), next, nil
}

// ListVisitors returns visits to userID, most recent first. Users involved in
// a block with userID are hidden.
func (s *Service) ListVisitors(ctx context.Context, userID uint64, token *string, limit int) ([]UserEdge, *string, error) {
	rows, next, err := s.visitRepo.ListVisitors(ctx, userID, token, pagination.ClampLimit(limit))
	if err != nil {
		return nil, nil, fmt.Errorf("list visitors: %w", err)
	}
	return toEdges(rows), next, nil
}

func toEdges(rows []repository.UserEdgeRow) []UserEdge {
	out := make([]UserEdge, 0, len(rows))
	for _, r := range rows {
		e := UserEdge{UserID: r.UserID, Username: r.Username, Popularity: r.Popularity, At: r.CreatedAt}
		if r.PhotoURL != nil {
			e.PhotoURL = *r.PhotoURL
		}
		out = append(out, e)
	}
	return out
}
