// Package interaction implements the like / unlike / block / unblock / report
// transitions between two users and the profile visit that feeds them.
package interaction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/matcha/internal/app"
	"github.com/oggyb/matcha/internal/db"
	svcErr "github.com/oggyb/matcha/internal/errors"
	"github.com/oggyb/matcha/internal/metrics"
	"github.com/oggyb/matcha/internal/moderation"
	"github.com/oggyb/matcha/internal/presence"
	"github.com/oggyb/matcha/internal/repository"
	"github.com/oggyb/matcha/internal/service/notification"
)

// Popularity rewards.
const (
	LikeReward  = 5.0
	VisitReward = 1.0
)

// State is the derived relationship of an ordered pair (A,B).
type State string

const (
	StateNone    State = "none"
	StateALikesB State = "a_likes_b"
	StateBLikesA State = "b_likes_a"
	StateMatched State = "matched"
	StateBlocked State = "blocked"
)

// UnmatchEvent is the payload of the `unmatch` push.
type UnmatchEvent struct {
	UserID uint64 `json:"user_id"`
}

// LikeResult tells the caller what a like did.
type LikeResult struct {
	// Created is false when the edge already existed (no side effects).
	Created bool
	// Match is true when both edges exist after the call.
	Match bool
}

// Service owns the pair state machine. Every transition applies its edge
// mutation, score delta and notification records in one transaction and
// pushes events only after commit.
type Service struct {
	appCtx *app.AppContext

	userRepo    *repository.UserRepository
	likeRepo    *repository.LikeRepository
	blockRepo   *repository.BlockRepository
	visitRepo   *repository.VisitRepository
	reportRepo  *repository.ReportRepository
	messageRepo *repository.MessageRepository

	notifier *notification.Service
	registry presence.Registry
	sink     moderation.Sink
	now      func() time.Time
}

// NewService wires the state machine. sink may be nil (reports are stored
// but nobody is alerted).
func NewService(appCtx *app.AppContext, notifier *notification.Service, registry presence.Registry, sink moderation.Sink) *Service {
	return &Service{
		appCtx:      appCtx,
		userRepo:    repository.NewUserRepository(appCtx.DB),
		likeRepo:    repository.NewLikeRepository(appCtx.DB),
		blockRepo:   repository.NewBlockRepository(appCtx.DB),
		visitRepo:   repository.NewVisitRepository(appCtx.DB),
		reportRepo:  repository.NewReportRepository(appCtx.DB),
		messageRepo: repository.NewMessageRepository(appCtx.DB),
		notifier:    notifier,
		registry:    registry,
		sink:        sink,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Like creates the edge a -> b.
//
// Behavior:
//   - Self target → ErrSelfTarget; a without photo → ErrNoPhoto.
//   - Block in either direction → ErrBlocked.
//   - Existing edge → no side effects, Created = false.
//   - Reverse edge present → match: `match` notification to both, no points.
//   - Otherwise `like` notification to b and +5 popularity for b.
//
// Example:
//
//	res, err := svc.Like(ctx, 1, 2)
func (s *Service) Like(ctx context.Context, a, b uint64) (LikeResult, error) {
	s.appCtx.Logger.Debug("Like called", "actor", a, "target", b)

	if a == b {
		return LikeResult{}, s.reject("like", svcErr.ErrSelfTarget)
	}
	hasPhoto, err := s.userRepo.HasPhoto(ctx, a)
	if err != nil {
		return LikeResult{}, s.fail("like", err)
	}
	if !hasPhoto {
		return LikeResult{}, s.reject("like", svcErr.ErrNoPhoto)
	}

	var res LikeResult
	var notices []*notification.Notice
	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.gate(ctx, tx, a, b); err != nil {
			return err
		}

		likes := s.likeRepo.WithTx(tx)
		back, err := likes.HasLiked(ctx, b, a)
		if err != nil {
			return err
		}
		awarded := LikeReward
		if back {
			awarded = 0
		}

		created, err := likes.Create(ctx, a, b, awarded)
		if err != nil {
			return err
		}
		res = LikeResult{Created: created, Match: back}
		if !created {
			return nil
		}

		if back {
			notices = []*notification.Notice{
				{RecipientID: b, SenderID: a, Type: db.NotificationMatch},
				{RecipientID: a, SenderID: b, Type: db.NotificationMatch},
			}
		} else {
			if err := s.userRepo.WithTx(tx).ApplyScoreDelta(ctx, b, LikeReward); err != nil {
				return err
			}
			notices = []*notification.Notice{{RecipientID: b, SenderID: a, Type: db.NotificationLike}}
		}
		return s.notifier.Persist(ctx, tx, notices...)
	})
	if err != nil {
		return LikeResult{}, s.outcome("like", err)
	}

	if !res.Created {
		metrics.InteractionTransitions.WithLabelValues("like", "noop").Inc()
		return res, nil
	}
	s.notifier.Deliver(ctx, notices...)
	metrics.InteractionTransitions.WithLabelValues("like", "applied").Inc()
	return res, nil
}

// Unlike removes the edge a -> b.
//
// Behavior:
//   - Missing edge → no-op, false.
//   - Otherwise: messages of the pair are marked read (chat freezes), b loses 5
//     points (floored at 0), b gets an `unlike` notification and an `unmatch`
//     push carrying a's id.
func (s *Service) Unlike(ctx context.Context, a, b uint64) (bool, error) {
	s.appCtx.Logger.Debug("Unlike called", "actor", a, "target", b)

	if a == b {
		return false, s.reject("unlike", svcErr.ErrSelfTarget)
	}

	var removed bool
	notice := &notification.Notice{RecipientID: b, SenderID: a, Type: db.NotificationUnlike}
	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.WithTx(tx).LockPair(ctx, a, b); err != nil {
			return err
		}
		var err error
		removed, err = s.likeRepo.WithTx(tx).Delete(ctx, a, b)
		if err != nil || !removed {
			return err
		}
		if err := s.messageRepo.WithTx(tx).MarkPairRead(ctx, a, b); err != nil {
			return err
		}
		if err := s.userRepo.WithTx(tx).ApplyScoreDelta(ctx, b, -LikeReward); err != nil {
			return err
		}
		return s.notifier.Persist(ctx, tx, notice)
	})
	if err != nil {
		return false, s.outcome("unlike", err)
	}
	if !removed {
		metrics.InteractionTransitions.WithLabelValues("unlike", "noop").Inc()
		return false, nil
	}

	s.notifier.Deliver(ctx, notice)
	s.notifier.Push(b, presence.EventUnmatch, UnmatchEvent{UserID: a})
	metrics.InteractionTransitions.WithLabelValues("unlike", "applied").Inc()
	return true, nil
}

// Block creates the edge a -> b silently.
//
// Behavior:
//   - Self target → ErrSelfTarget.
//   - Points granted by any like edge of the pair are taken back exactly.
//   - Both like edges are deleted, the block is inserted (idempotent) and the
//     pair's messages are marked read.
//   - Nothing is pushed to b.
func (s *Service) Block(ctx context.Context, a, b uint64) (bool, error) {
	s.appCtx.Logger.Debug("Block called", "actor", a, "target", b)

	if a == b {
		return false, s.reject("block", svcErr.ErrSelfTarget)
	}

	var created bool
	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.userRepo.WithTx(tx)
		likes := s.likeRepo.WithTx(tx)

		if err := users.LockPair(ctx, a, b); err != nil {
			return err
		}

		ab, ba, err := likes.Pair(ctx, a, b)
		if err != nil {
			return err
		}
		if ab != nil {
			if err := users.ApplyScoreDelta(ctx, b, -ab.Awarded); err != nil {
				return err
			}
			if _, err := likes.Delete(ctx, a, b); err != nil {
				return err
			}
		}
		if ba != nil {
			if err := users.ApplyScoreDelta(ctx, a, -ba.Awarded); err != nil {
				return err
			}
			if _, err := likes.Delete(ctx, b, a); err != nil {
				return err
			}
		}

		created, err = s.blockRepo.WithTx(tx).Create(ctx, a, b)
		if err != nil {
			return err
		}
		return s.messageRepo.WithTx(tx).MarkPairRead(ctx, a, b)
	})
	if err != nil {
		return false, s.outcome("block", err)
	}
	metrics.InteractionTransitions.WithLabelValues("block", "applied").Inc()
	return created, nil
}

// Unblock removes a -> b only. Likes deleted by the block stay deleted.
func (s *Service) Unblock(ctx context.Context, a, b uint64) (bool, error) {
	s.appCtx.Logger.Debug("Unblock called", "actor", a, "target", b)

	if a == b {
		return false, s.reject("unblock", svcErr.ErrSelfTarget)
	}
	removed, err := s.blockRepo.Delete(ctx, a, b)
	if err != nil {
		return false, s.outcome("unblock", err)
	}
	if !removed {
		metrics.InteractionTransitions.WithLabelValues("unblock", "noop").Inc()
		return false, nil
	}
	metrics.InteractionTransitions.WithLabelValues("unblock", "applied").Inc()
	return true, nil
}

// Report records a -> b with reason, independent of like/block state.
//
// Behavior:
//   - Self target → ErrSelfTarget; unknown b → not found.
//   - First report of the pair wins: a repeat keeps the original reason,
//     returns false and raises no new alert.
//   - The moderation alert is fire-and-forget; its failure is only logged.
func (s *Service) Report(ctx context.Context, a, b uint64, reason string) (bool, error) {
	s.appCtx.Logger.Debug("Report called", "actor", a, "target", b)

	if a == b {
		return false, s.reject("report", svcErr.ErrSelfTarget)
	}
	if _, err := s.userRepo.Get(ctx, b); err != nil {
		return false, s.outcome("report", err)
	}

	reason = strings.TrimSpace(reason)
	created, err := s.reportRepo.Create(ctx, a, b, reason)
	if err != nil {
		return false, s.fail("report", err)
	}
	if !created {
		metrics.InteractionTransitions.WithLabelValues("report", "noop").Inc()
		return false, nil
	}

	if s.sink != nil {
		alert := moderation.Alert{ReporterID: a, ReportedID: b, Reason: reason, ReportedAt: s.now()}
		if err := s.sink.Enqueue(ctx, alert); err != nil {
			s.appCtx.Logger.Warn("moderation alert not queued", "reporter", a, "reported", b, "err", err)
		}
	}
	metrics.InteractionTransitions.WithLabelValues("report", "applied").Inc()
	return true, nil
}

// Relationship derives the state of the ordered pair (a,b) from the store.
func (s *Service) Relationship(ctx context.Context, a, b uint64) (State, error) {
	blocked, err := s.blockRepo.EitherWay(ctx, a, b)
	if err != nil {
		return "", err
	}
	if blocked {
		return StateBlocked, nil
	}

	ab, ba, err := s.likeRepo.Pair(ctx, a, b)
	if err != nil {
		return "", err
	}
	switch {
	case ab != nil && ba != nil:
		return StateMatched, nil
	case ab != nil:
		return StateALikesB, nil
	case ba != nil:
		return StateBLikesA, nil
	default:
		return StateNone, nil
	}
}

// gate locks the pair and rejects it when blocked. Runs inside tx.
func (s *Service) gate(ctx context.Context, tx *gorm.DB, a, b uint64) error {
	if err := s.userRepo.WithTx(tx).LockPair(ctx, a, b); err != nil {
		return err
	}
	blocked, err := s.blockRepo.WithTx(tx).EitherWay(ctx, a, b)
	if err != nil {
		return err
	}
	if blocked {
		return svcErr.ErrBlocked
	}
	return nil
}

func (s *Service) reject(action string, err error) error {
	metrics.InteractionTransitions.WithLabelValues(action, "rejected").Inc()
	return fmt.Errorf("%s: %w", action, err)
}

func (s *Service) fail(action string, err error) error {
	metrics.InteractionTransitions.WithLabelValues(action, "error").Inc()
	s.appCtx.Logger.Error("interaction failed", "action", action, "err", err)
	return fmt.Errorf("%s: %w", action, err)
}

// outcome classifies a transaction error as a rejection or a failure.
func (s *Service) outcome(action string, err error) error {
	switch {
	case errors.Is(err, svcErr.ErrBlocked),
		errors.Is(err, svcErr.ErrSelfTarget),
		errors.Is(err, svcErr.ErrNoPhoto),
		errors.Is(err, gorm.ErrRecordNotFound):
		return s.reject(action, err)
	}
	return s.fail(action, err)
}
