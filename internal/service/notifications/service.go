package notifications

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/careersim/bff/internal/app"
	"github.com/careersim/bff/internal/db"
	svcErr "github.com/careersim/bff/internal/errors"
	"github.com/careersim/bff/internal/repository"
)

const listLimit = 20

// Service serves the caller's notification inbox.
type Service struct {
	appCtx        *app.AppContext
	notifications *repository.NotificationRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:        appCtx,
		notifications: repository.NewNotificationRepository(appCtx.DB),
	}
}

// Inbox is the body of GET /api/friends/notifications.
type Inbox struct {
	UnreadCount int64             `json:"unread_count"`
	Items       []db.Notification `json:"items"`
}

// List returns the 20 newest notifications and the exact unread count over
// all of the user's notifications, not just the listed ones.
func (s *Service) List(ctx context.Context, userID string) (*Inbox, error) {
	items, err := s.notifications.ListRecent(ctx, userID, listLimit)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	count, err := s.UnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []db.Notification{}
	}
	return &Inbox{UnreadCount: count, Items: items}, nil
}

// UnreadCount returns the number of unread notifications of userID.
// Cache-first strategy:
//  1. Attempts to read from Redis (notifications:unread:userID).
//  2. On a miss or a Redis error, counts in the DB.
//  3. Caches the DB count for 1h, unless a write landed after the count
//     generation was read; that count may already be stale and is dropped.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	cache := s.appCtx.RedisCache
	cached, ok, err := cache.GetUnreadCount(ctx, userID)
	if err != nil {
		s.appCtx.Logger.Warn("unread count cache read failed", "user_id", userID, "err", err)
	} else if ok {
		return cached, nil
	}

	gen, genErr := cache.UnreadGeneration(ctx, userID)
	count, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return 0, svcErr.Map(err)
	}
	if genErr != nil {
		return count, nil
	}
	if stored, err := cache.FillUnreadCount(ctx, userID, gen, count); err != nil {
		s.appCtx.Logger.Warn("unread count cache write failed", "user_id", userID, "err", err)
	} else if !stored {
		s.appCtx.Logger.Debug("unread count changed while counting, not cached", "user_id", userID)
	}
	return count, nil
}

// MarkRead flips one notification of userID to read. Marking it twice is fine.
func (s *Service) MarkRead(ctx context.Context, id, userID string) error {
	changed, err := s.notifications.MarkRead(ctx, id, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return svcErr.NotFound("Notification not found")
	}
	if err != nil {
		return svcErr.Map(err)
	}
	if changed {
		s.invalidate(ctx, userID)
	}
	return nil
}

// MarkAllRead flips every unread notification of userID and returns how many changed.
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.notifications.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, svcErr.Map(err)
	}
	if n > 0 {
		s.invalidate(ctx, userID)
	}
	return n, nil
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	if err := s.appCtx.RedisCache.InvalidateUnreadCount(ctx, userID); err != nil {
		s.appCtx.Logger.Warn("unread count invalidation failed", "user_id", userID, "err", err)
	}
}
