package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/careersim/bff/internal/app"
	"github.com/careersim/bff/internal/auth"
	svcErr "github.com/careersim/bff/internal/errors"
	"github.com/careersim/bff/internal/metrics"
	"github.com/careersim/bff/internal/repository"
	"github.com/careersim/bff/internal/service/profile"
)

const defaultExt = "png"

// Upload is one received file.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Service replaces the caller's profile picture in the object store.
type Service struct {
	appCtx   *app.AppContext
	profiles *repository.ProfileRepository
	account  *profile.Service
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		profiles: repository.NewProfileRepository(appCtx.DB),
		account:  profile.NewService(appCtx),
	}
}

// UploadProfilePicture stores up as the user's only picture and returns the
// refreshed current user.
//
// Behavior:
//   - Non-image content type or an oversized file → InvalidInput, before
//     the object store is touched.
//   - Previous objects under "<userID>/" are removed best-effort; a failure
//     there is logged and never reaches the caller.
//   - Upload failure → InternalError.
func (s *Service) UploadProfilePicture(ctx context.Context, user *auth.CurrentUser, up Upload) (*auth.CurrentUser, error) {
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(up.ContentType)), "image/") {
		return nil, svcErr.InvalidInput("Only image uploads are allowed")
	}
	if limit := s.appCtx.Config.Storage.MaxUploadSize; limit > 0 && up.Size > limit {
		return nil, tooLarge(limit)
	}

	key := ObjectKey(user.ID, up.Filename)

	if err := s.removePrevious(ctx, user.ID); err != nil {
		s.appCtx.Logger.Warn("profile picture cleanup failed", "user_id", user.ID, "err", err)
	}

	if err := s.appCtx.Storage.Upload(ctx, key, up.ContentType, up.Body); err != nil {
		metrics.RecordUpload(false)
		return nil, svcErr.Internal("Failed to upload image", err)
	}
	metrics.RecordUpload(true)

	url := s.appCtx.Storage.PublicURL(key)
	if err := s.profiles.Update(ctx, user.ID, map[string]any{"profile_picture": url}); err != nil {
		return nil, svcErr.Map(err)
	}
	s.appCtx.Logger.Info("profile picture replaced", "user_id", user.ID, "key", key)
	return s.account.Refresh(ctx, user)
}

// removePrevious deletes every object under the user's prefix.
func (s *Service) removePrevious(ctx context.Context, userID string) error {
	keys, err := s.appCtx.Storage.List(ctx, userID+"/")
	if err != nil {
		return fmt.Errorf("list %s/: %w", userID, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.appCtx.Storage.Remove(ctx, keys); err != nil {
		return fmt.Errorf("remove %d objects: %w", len(keys), err)
	}
	return nil
}

// ObjectKey builds "<userID>/<random hex>.<ext>" keeping the lower-cased
// extension of filename.
func ObjectKey(userID, filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if ext == "" {
		ext = defaultExt
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return userID + "/" + id + "." + ext
}

func tooLarge(limit int64) error {
	return svcErr.InvalidInput(fmt.Sprintf("Image exceeds the %d byte limit", limit))
}
