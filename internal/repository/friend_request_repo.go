package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/careersim/bff/internal/db"
)

// FriendRequestRepository provides data access methods for the FriendRequest model.
type FriendRequestRepository struct {
	db *gorm.DB
}

func NewFriendRequestRepository(database *gorm.DB) *FriendRequestRepository {
	return &FriendRequestRepository{db: database}
}

// FindActiveBetween returns a pending or accepted request between a and b
// in either direction, or gorm.ErrRecordNotFound.
func (r *FriendRequestRepository) FindActiveBetween(ctx context.Context, a, b string) (*db.FriendRequest, error) {
	var fr db.FriendRequest
	err := r.db.WithContext(ctx).
		Where("(requester_id = ? AND recipient_id = ?) OR (requester_id = ? AND recipient_id = ?)", a, b, b, a).
		Where("status IN ?", []db.FriendRequestStatus{db.FriendRequestPending, db.FriendRequestAccepted}).
		Order("created_at DESC").
		Take(&fr).Error
	if err != nil {
		return nil, err
	}
	return &fr, nil
}

// CreatePending inserts a pending request from requester to recipient.
// A concurrent duplicate for the same pair fails on the active_pair unique
// index with gorm.ErrDuplicatedKey.
func (r *FriendRequestRepository) CreatePending(ctx context.Context, requesterID, recipientID string) (*db.FriendRequest, error) {
	pair := db.PairKey(requesterID, recipientID)
	fr := &db.FriendRequest{
		RequesterID: requesterID,
		RecipientID: recipientID,
		Status:      db.FriendRequestPending,
		ActivePair:  &pair,
	}
	if err := r.db.WithContext(ctx).Create(fr).Error; err != nil {
		return nil, err
	}
	return fr, nil
}

// ListPendingFor returns pending requests addressed to recipientID, newest first.
func (r *FriendRequestRepository) ListPendingFor(ctx context.Context, recipientID string) ([]db.FriendRequest, error) {
	var out []db.FriendRequest
	err := r.db.WithContext(ctx).
		Where("recipient_id = ? AND status = ?", recipientID, db.FriendRequestPending).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// Respond moves a pending request addressed to recipientID into status.
//
// Behavior:
//   - Only a row that is still pending is updated, so a request is answered
//     exactly once; otherwise gorm.ErrRecordNotFound.
//   - Declining frees the pair (active_pair = NULL) so a new request may be sent.
//   - Returns the request as it was before the update.
func (r *FriendRequestRepository) Respond(
	ctx context.Context,
	requestID, recipientID string,
	status db.FriendRequestStatus,
	at time.Time,
) (*db.FriendRequest, error) {
	var fr db.FriendRequest
	err := r.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ? AND status = ?", requestID, recipientID, db.FriendRequestPending).
		Take(&fr).Error
	if err != nil {
		return nil, err
	}

	fields := map[string]any{
		"status":       status,
		"responded_at": at,
	}
	if status == db.FriendRequestDeclined {
		fields["active_pair"] = nil
	}

	res := r.db.WithContext(ctx).
		Model(&db.FriendRequest{}).
		Where("id = ? AND status = ?", requestID, db.FriendRequestPending).
		Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// answered concurrently
		return nil, gorm.ErrRecordNotFound
	}
	return &fr, nil
}

// AcceptedCounterparts returns the distinct ids of everyone userID has an
// accepted request with, in either direction.
func (r *FriendRequestRepository) AcceptedCounterparts(ctx context.Context, userID string) ([]string, error) {
	var rows []db.FriendRequest
	err := r.db.WithContext(ctx).
		Select("requester_id", "recipient_id").
		Where("status = ?", db.FriendRequestAccepted).
		Where("requester_id = ? OR recipient_id = ?", userID, userID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(rows))
	ids := make([]string, 0, len(rows))
	for _, fr := range rows {
		other := fr.RequesterID
		if other == userID {
			other = fr.RecipientID
		}
		if other == userID {
			continue
		}
		if _, dup := seen[other]; dup {
			continue
		}
		seen[other] = struct{}{}
		ids = append(ids, other)
	}
	return ids, nil
}
