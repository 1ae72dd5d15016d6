package profile

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/careersim/bff/internal/app"
	"github.com/careersim/bff/internal/auth"
	"github.com/careersim/bff/internal/db"
	svcErr "github.com/careersim/bff/internal/errors"
	"github.com/careersim/bff/internal/repository"
)

// Service implements the account and profile operations of /api/users.
type Service struct {
	appCtx   *app.AppContext
	profiles *repository.ProfileRepository
	stats    *repository.StatsRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		profiles: repository.NewProfileRepository(appCtx.DB),
		stats:    repository.NewStatsRepository(appCtx.DB),
	}
}

// UpdateStatsInput is the body of PUT /api/users/profile. Nil fields are left unchanged.
type UpdateStatsInput struct {
	Username            *string `json:"username"`
	TargetRole          *string `json:"target_role"`
	PreferredDifficulty *string `json:"preferred_difficulty"`
}

// UpdateAccountInput is the body of PUT /api/users/account.
// Email is owned by the identity provider and is ignored.
type UpdateAccountInput struct {
	Username       *string `json:"username"`
	Email          *string `json:"email"`
	ProfilePicture *string `json:"profile_picture"`
}

// FullProfile is the body of GET /api/users/me/full.
type FullProfile struct {
	User    *auth.CurrentUser `json:"user"`
	Profile *db.UserStats     `json:"profile"`
}

// Stats returns the user's stats row, creating it on first access.
func (s *Service) Stats(ctx context.Context, userID string) (*db.UserStats, error) {
	st, err := s.stats.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return st, nil
}

// UpdateStats applies in to the stats row and, for a username, to the profile.
//
// Behavior:
//   - Blank username → InvalidInput; taken username → Conflict.
//   - preferred_difficulty outside easy/medium/hard → InvalidInput.
//   - Both rows change in one transaction.
func (s *Service) UpdateStats(ctx context.Context, userID string, in UpdateStatsInput) (*db.UserStats, error) {
	var username string
	if in.Username != nil {
		var err error
		if username, err = normalizeUsername(*in.Username); err != nil {
			return nil, err
		}
	}

	fields := map[string]any{}
	if in.TargetRole != nil {
		fields["target_role"] = *in.TargetRole
	}
	if in.PreferredDifficulty != nil {
		d := db.Difficulty(strings.ToLower(strings.TrimSpace(*in.PreferredDifficulty)))
		if !d.Valid() {
			return nil, svcErr.InvalidInput("preferred_difficulty must be one of easy, medium, hard")
		}
		fields["preferred_difficulty"] = d
	}

	var out *db.UserStats
	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profiles := repository.NewProfileRepository(tx)
		stats := repository.NewStatsRepository(tx)

		if in.Username != nil {
			if err := renameProfile(ctx, profiles, userID, username); err != nil {
				return err
			}
		}
		if _, err := stats.GetOrCreate(ctx, userID); err != nil {
			return err
		}
		if err := stats.Update(ctx, userID, fields); err != nil {
			return err
		}
		var err error
		out, err = stats.FindByUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return out, nil
}

// Full returns the current user together with their stats row.
func (s *Service) Full(ctx context.Context, user *auth.CurrentUser) (*FullProfile, error) {
	st, err := s.Stats(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &FullProfile{User: user, Profile: st}, nil
}

// UpdateAccount changes username and/or profile picture and returns the
// refreshed current user. A blank profile_picture clears it.
func (s *Service) UpdateAccount(ctx context.Context, user *auth.CurrentUser, in UpdateAccountInput) (*auth.CurrentUser, error) {
	fields := map[string]any{}
	if in.Username != nil {
		username, err := normalizeUsername(*in.Username)
		if err != nil {
			return nil, err
		}
		if username != user.Username {
			fields["username"] = username
		}
	}
	if in.ProfilePicture != nil {
		if pic := strings.TrimSpace(*in.ProfilePicture); pic != "" {
			fields["profile_picture"] = pic
		} else {
			fields["profile_picture"] = nil
		}
	}

	if err := s.profiles.Update(ctx, user.ID, fields); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, svcErr.Conflict("Username already taken")
		}
		return nil, svcErr.Map(err)
	}
	return s.Refresh(ctx, user)
}

// Refresh re-reads the caller's profile into a new current user view.
func (s *Service) Refresh(ctx context.Context, user *auth.CurrentUser) (*auth.CurrentUser, error) {
	p, err := s.profiles.FindByID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.NotFound("User not found")
		}
		return nil, svcErr.Map(err)
	}
	fresh := *user
	fresh.Username = p.Username
	fresh.ProfilePicture = p.ProfilePicture
	fresh.CreatedAt = p.CreatedAt
	return &fresh, nil
}

func normalizeUsername(raw string) (string, error) {
	username := strings.TrimSpace(raw)
	if username == "" {
		return "", svcErr.InvalidInput("Username cannot be empty")
	}
	return username, nil
}

func renameProfile(ctx context.Context, profiles *repository.ProfileRepository, userID, username string) error {
	err := profiles.Update(ctx, userID, map[string]any{"username": username})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return svcErr.Conflict("Username already taken")
	}
	return err
}
