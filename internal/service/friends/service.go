package friends

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/careersim/bff/internal/app"
	"github.com/careersim/bff/internal/auth"
	"github.com/careersim/bff/internal/db"
	svcErr "github.com/careersim/bff/internal/errors"
	"github.com/careersim/bff/internal/metrics"
	"github.com/careersim/bff/internal/repository"
)

const (
	searchLimit     = 10
	unknownUsername = "Unknown"
)

// Service implements the friend graph: search, request lifecycle and the
// friend list. Every request event also writes a notification.
type Service struct {
	appCtx   *app.AppContext
	profiles *repository.ProfileRepository
	requests *repository.FriendRequestRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		profiles: repository.NewProfileRepository(appCtx.DB),
		requests: repository.NewFriendRequestRepository(appCtx.DB),
	}
}

// UserSummary is the public card of another user.
type UserSummary struct {
	ID             string  `json:"id"`
	Username       string  `json:"username"`
	ProfilePicture *string `json:"profile_picture"`
}

// CreateRequestInput names the target by id, username, or both (id wins).
type CreateRequestInput struct {
	Username string `json:"username"`
	UserID   string `json:"user_id"`
}

// PendingRequest is an incoming request with its requester's card.
type PendingRequest struct {
	ID          string                 `json:"id"`
	RequesterID string                 `json:"requester_id"`
	RecipientID string                 `json:"recipient_id"`
	Status      db.FriendRequestStatus `json:"status"`
	CreatedAt   time.Time              `json:"created_at"`
	Requester   UserSummary            `json:"requester"`
}

func summaryOf(p db.Profile) UserSummary {
	return UserSummary{ID: p.ID, Username: p.Username, ProfilePicture: p.ProfilePicture}
}

// Search returns up to 10 users whose username contains q, case-insensitively,
// excluding the caller.
func (s *Service) Search(ctx context.Context, userID, q string) ([]UserSummary, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, svcErr.InvalidInput("Search query cannot be empty")
	}
	found, err := s.profiles.Search(ctx, q, userID, searchLimit)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	out := make([]UserSummary, 0, len(found))
	for _, p := range found {
		out = append(out, summaryOf(p))
	}
	return out, nil
}

// CreateRequest sends a friend request from the caller to the target.
//
// Behavior:
//   - Target resolved by user_id first, then by username.
//   - Missing target or the caller themselves → NotFound.
//   - A pending or accepted request in either direction → Conflict.
//     A declined one does not block a new request.
//   - Request and the target's notification commit together.
func (s *Service) CreateRequest(ctx context.Context, me *auth.CurrentUser, in CreateRequestInput) (*db.FriendRequest, error) {
	in.UserID, in.Username = strings.TrimSpace(in.UserID), strings.TrimSpace(in.Username)
	if in.UserID == "" && in.Username == "" {
		return nil, svcErr.InvalidInput("Username or user_id required")
	}

	target, err := s.resolveTarget(ctx, in)
	if err != nil {
		return nil, err
	}
	if target.ID == me.ID {
		return nil, svcErr.NotFound("User not found")
	}

	var created *db.FriendRequest
	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		requests := repository.NewFriendRequestRepository(tx)

		if _, err := requests.FindActiveBetween(ctx, me.ID, target.ID); err == nil {
			return errDuplicateRequest
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		fr, err := requests.CreatePending(ctx, me.ID, target.ID)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// lost a race with a concurrent request for the same pair
			return errDuplicateRequest
		} else if err != nil {
			return err
		}
		created = fr

		return repository.NewNotificationRepository(tx).Create(ctx, &db.Notification{
			UserID:  target.ID,
			Type:    db.NotificationFriendRequest,
			Message: me.Username + " sent you a friend request",
			Data:    &me.ID,
		})
	})
	if errors.Is(err, errDuplicateRequest) {
		metrics.RecordFriendRequest(metrics.FriendRequestRejected)
		return nil, svcErr.Conflict("Friend request already exists")
	}
	if err != nil {
		return nil, svcErr.Map(err)
	}

	metrics.RecordFriendRequest(metrics.FriendRequestSent)
	s.invalidateUnread(ctx, target.ID)
	s.appCtx.Logger.Debug("friend request sent", "request_id", created.ID, "from", me.ID, "to", target.ID)
	return created, nil
}

var errDuplicateRequest = errors.New("active friend request exists for pair")

func (s *Service) resolveTarget(ctx context.Context, in CreateRequestInput) (*db.Profile, error) {
	if in.UserID != "" {
		p, err := s.profiles.FindByID(ctx, in.UserID)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.Map(err)
		}
	}
	if in.Username != "" {
		p, err := s.profiles.FindByUsername(ctx, in.Username)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.Map(err)
		}
	}
	return nil, svcErr.NotFound("User not found")
}

// ListPending returns the caller's incoming pending requests, newest first.
// A requester without a profile row shows as "Unknown".
func (s *Service) ListPending(ctx context.Context, userID string) ([]PendingRequest, error) {
	pending, err := s.requests.ListPendingFor(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	ids := make([]string, 0, len(pending))
	for _, fr := range pending {
		ids = append(ids, fr.RequesterID)
	}
	found, err := s.profiles.FindByIDs(ctx, ids)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	byID := make(map[string]db.Profile, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	out := make([]PendingRequest, 0, len(pending))
	for _, fr := range pending {
		requester := UserSummary{ID: fr.RequesterID, Username: unknownUsername}
		if p, ok := byID[fr.RequesterID]; ok {
			requester = summaryOf(p)
		}
		out = append(out, PendingRequest{
			ID:          fr.ID,
			RequesterID: fr.RequesterID,
			RecipientID: fr.RecipientID,
			Status:      fr.Status,
			CreatedAt:   fr.CreatedAt,
			Requester:   requester,
		})
	}
	return out, nil
}

// Respond accepts or declines a pending request addressed to the caller.
//
// Behavior:
//   - The pending → accepted/declined flip happens exactly once; any later
//     attempt, or a request addressed to someone else, is NotFound.
//   - Accepting also notifies the requester, in the same transaction.
func (s *Service) Respond(ctx context.Context, me *auth.CurrentUser, requestID string, accept bool) error {
	status := db.FriendRequestDeclined
	if accept {
		status = db.FriendRequestAccepted
	}

	var requesterID string
	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fr, err := repository.NewFriendRequestRepository(tx).Respond(ctx, requestID, me.ID, status, time.Now().UTC())
		if err != nil {
			return err
		}
		requesterID = fr.RequesterID
		if !accept {
			return nil
		}
		return repository.NewNotificationRepository(tx).Create(ctx, &db.Notification{
			UserID:  fr.RequesterID,
			Type:    db.NotificationFriendAccept,
			Message: me.Username + " accepted your friend request",
			Data:    &me.ID,
		})
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return svcErr.NotFound("Request not found")
	}
	if err != nil {
		return svcErr.Map(err)
	}

	if accept {
		metrics.RecordFriendRequest(metrics.FriendRequestAccepted)
		s.invalidateUnread(ctx, requesterID)
	} else {
		metrics.RecordFriendRequest(metrics.FriendRequestDeclined)
	}
	return nil
}

// ListFriends returns everyone with an accepted request with the caller, in
// either direction, sorted by username. Counterparts without a profile are skipped.
func (s *Service) ListFriends(ctx context.Context, userID string) ([]UserSummary, error) {
	ids, err := s.requests.AcceptedCounterparts(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	found, err := s.profiles.FindByIDs(ctx, ids)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	out := make([]UserSummary, 0, len(found))
	for _, p := range found {
		out = append(out, summaryOf(p))
	}
	return out, nil
}

func (s *Service) invalidateUnread(ctx context.Context, userID string) {
	if err := s.appCtx.RedisCache.InvalidateUnreadCount(ctx, userID); err != nil {
		s.appCtx.Logger.Warn("unread count invalidation failed", "user_id", userID, "err", err)
	}
}
