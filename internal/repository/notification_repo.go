package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/careersim/bff/internal/db"
)

// NotificationRepository provides data access methods for the Notification model.
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(database *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: database}
}

// Create appends an unread notification for n.UserID.
func (r *NotificationRepository) Create(ctx context.Context, n *db.Notification) error {
	n.IsRead = false
	return r.db.WithContext(ctx).Create(n).Error
}

// ListRecent returns the newest limit notifications of userID.
func (r *NotificationRepository) ListRecent(ctx context.Context, userID string, limit int) ([]db.Notification, error) {
	var out []db.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountUnread is an exact count over all unread rows, independent of any
// listing limit.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead flips is_read on a notification owned by userID.
//
// Behavior:
//   - gorm.ErrRecordNotFound if the notification is missing or owned by
//     someone else.
//   - Idempotent: marking an already read row succeeds. Existence is checked
//     separately because mysql reports changed rather than matched rows.
//   - wasUnread tells whether this call changed the row.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) (wasUnread bool, err error) {
	var n db.Notification
	err = r.db.WithContext(ctx).
		Select("id", "is_read").
		Where("id = ? AND user_id = ?", id, userID).
		Take(&n).Error
	if err != nil {
		return false, err
	}
	if n.IsRead {
		return false, nil
	}
	err = r.db.WithContext(ctx).
		Model(&db.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true).Error
	return err == nil, err
}

// MarkAllRead flips every unread notification of userID and returns how
// many changed.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}
