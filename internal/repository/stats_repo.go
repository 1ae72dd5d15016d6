package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/careersim/bff/internal/db"
)

// StatsRepository provides data access methods for the UserStats model.
type StatsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(database *gorm.DB) *StatsRepository {
	return &StatsRepository{db: database}
}

func (r *StatsRepository) FindByUser(ctx context.Context, userID string) (*db.UserStats, error) {
	var s db.UserStats
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// GetOrCreate returns the user's stats row, inserting a default one first
// if needed. Concurrent callers converge on the same row.
func (r *StatsRepository) GetOrCreate(ctx context.Context, userID string) (*db.UserStats, error) {
	s, err := r.FindByUser(ctx, userID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	fresh := &db.UserStats{UserID: userID}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(fresh).Error
	if err != nil {
		return nil, err
	}
	return r.FindByUser(ctx, userID)
}

// Update applies column values to the user's stats row.
func (r *StatsRepository) Update(ctx context.Context, userID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&db.UserStats{}).
		Where("user_id = ?", userID).
		Updates(fields).Error
}

// Counter columns that Increment may touch.
const (
	CounterTotalSimulations      = "total_simulations"
	CounterSuccessfulSimulations = "successful_simulations"
)

// Increment atomically adds delta to a counter column in a single UPDATE,
// so concurrent increments never lose an update.
func (r *StatsRepository) Increment(ctx context.Context, userID, column string, delta int64) error {
	switch column {
	case CounterTotalSimulations, CounterSuccessfulSimulations:
	default:
		return fmt.Errorf("unknown counter column %q", column)
	}
	return r.db.WithContext(ctx).
		Model(&db.UserStats{}).
		Where("user_id = ?", userID).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
}
