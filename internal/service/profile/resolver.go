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

const idPrefixLen = 8

// Resolver turns a verified identity into the current user, creating the
// profile row on the user's first request.
type Resolver struct {
	appCtx   *app.AppContext
	profiles *repository.ProfileRepository
}

func NewResolver(appCtx *app.AppContext) *Resolver {
	return &Resolver{
		appCtx:   appCtx,
		profiles: repository.NewProfileRepository(appCtx.DB),
	}
}

// Resolve returns the current user view for id.
//
// Behavior:
//   - Existing profile → merged with the token identity.
//   - Missing profile → a default one is inserted (username from the email
//     local part) and re-read, so concurrent first requests see the same row.
//   - Default username taken by another user → "<name>-<id prefix>".
func (r *Resolver) Resolve(ctx context.Context, id auth.Identity) (*auth.CurrentUser, error) {
	p, err := r.profiles.FindByID(ctx, id.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		p, err = r.createDefault(ctx, id)
	}
	if err != nil {
		return nil, svcErr.Internal("Could not load user profile", err)
	}
	return CurrentUserOf(id, p), nil
}

func (r *Resolver) createDefault(ctx context.Context, id auth.Identity) (*db.Profile, error) {
	base := DefaultUsername(id)
	for _, username := range []string{base, base + "-" + idPrefix(id.ID)} {
		created, err := r.profiles.CreateIfAbsent(ctx, &db.Profile{
			ID:       id.ID,
			Username: username,
			IsActive: true,
		})
		if err != nil {
			return nil, err
		}
		p, err := r.profiles.FindByID(ctx, id.ID)
		if err == nil {
			if created {
				r.appCtx.Logger.Info("profile created", "user_id", id.ID, "username", p.Username)
			}
			return p, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		// username belongs to someone else, try the suffixed one
	}
	return nil, errors.New("no free default username for " + id.ID)
}

// DefaultUsername is the email local part, or "user-<id prefix>" without an email.
func DefaultUsername(id auth.Identity) string {
	local, _, _ := strings.Cut(id.Email, "@")
	if local = strings.TrimSpace(local); local != "" {
		return local
	}
	return "user-" + idPrefix(id.ID)
}

func idPrefix(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > idPrefixLen {
		return id[:idPrefixLen]
	}
	return id
}

// CurrentUserOf merges a token identity with its stored profile.
func CurrentUserOf(id auth.Identity, p *db.Profile) *auth.CurrentUser {
	return &auth.CurrentUser{
		ID:             id.ID,
		Email:          id.Email,
		Username:       p.Username,
		ProfilePicture: p.ProfilePicture,
		AuthProvider:   id.Provider,
		IsVerified:     id.EmailVerified(),
		CreatedAt:      p.CreatedAt,
	}
}
