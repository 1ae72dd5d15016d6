package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/careersim/bff/internal/db"
)

// ProfileRepository provides data access methods for the Profile model.
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new repository bound to the given DB connection.
func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

// FindByID returns gorm.ErrRecordNotFound when the profile does not exist.
func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*db.Profile, error) {
	var p db.Profile
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepository) FindByUsername(ctx context.Context, username string) (*db.Profile, error) {
	var p db.Profile
	if err := r.db.WithContext(ctx).Where("username = ?", username).Take(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByIDs returns the profiles that exist among ids, ordered by username.
func (r *ProfileRepository) FindByIDs(ctx context.Context, ids []string) ([]db.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []db.Profile
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("username ASC").
		Find(&out).Error
	return out, err
}

// CreateIfAbsent inserts p unless a row with the same id or username exists.
//
// Behavior:
//   - Returns created = true only when this call inserted the row.
//   - Any unique conflict (id or username) is swallowed; the caller decides
//     by re-reading which one happened.
func (r *ProfileRepository) CreateIfAbsent(ctx context.Context, p *db.Profile) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(p)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Update applies the given column values to a profile.
func (r *ProfileRepository) Update(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// Search returns up to limit profiles whose username contains query,
// case-insensitively, excluding excludeID.
//
// '%' and '_' in query match literally. The escape character is '!' because
// a backslash needs different quoting in mysql than in postgres/sqlite.
func (r *ProfileRepository) Search(ctx context.Context, query, excludeID string, limit int) ([]db.Profile, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	var out []db.Profile
	err := r.db.WithContext(ctx).
		Where("LOWER(username) LIKE ? ESCAPE '!'", pattern).
		Where("id <> ?", excludeID).
		Order("username ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
