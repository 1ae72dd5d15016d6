package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/careersim/bff/internal/db"
	"github.com/careersim/bff/internal/utils/pagination"
)

// HistoryFilter narrows the application history listing.
type HistoryFilter string

const (
	HistoryAll        HistoryFilter = ""
	HistoryPassed     HistoryFilter = "passed"
	HistoryRejected   HistoryFilter = "rejected"
	HistoryInProgress HistoryFilter = "in_progress"
)

func (f HistoryFilter) Valid() bool {
	switch f {
	case HistoryAll, HistoryPassed, HistoryRejected, HistoryInProgress:
		return true
	}
	return false
}

// DifficultyCounts is one row of the grouped stats aggregate.
type DifficultyCounts struct {
	Difficulty db.Difficulty
	Total      int64
	Completed  int64
	Hired      int64
}

// JobApplicationRepository provides data access methods for the JobApplication model.
// Every read and write is scoped by the owning user id.
type JobApplicationRepository struct {
	db *gorm.DB
}

func NewJobApplicationRepository(database *gorm.DB) *JobApplicationRepository {
	return &JobApplicationRepository{db: database}
}

func (r *JobApplicationRepository) Create(ctx context.Context, j *db.JobApplication) error {
	return r.db.WithContext(ctx).Create(j).Error
}

// Get returns gorm.ErrRecordNotFound when the application is missing or
// belongs to another user.
func (r *JobApplicationRepository) Get(ctx context.Context, id, userID string) (*db.JobApplication, error) {
	var j db.JobApplication
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Take(&j).Error
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// Update writes column values to an owned application. A foreign or missing
// id matches no row; callers check ownership with Get first, since mysql
// reports an unchanged row as not affected.
func (r *JobApplicationRepository) Update(ctx context.Context, id, userID string, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&db.JobApplication{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(fields).Error
}

// Transition applies fields only while the application is still open and in
// stage from. It reports false when the row moved on concurrently or was
// never in that stage.
func (r *JobApplicationRepository) Transition(
	ctx context.Context,
	id, userID string,
	from db.Stage,
	fields map[string]any,
) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.JobApplication{}).
		Where("id = ? AND user_id = ?", id, userID).
		Where("current_stage = ? AND completed = ?", from, false).
		Updates(fields)
	return res.RowsAffected == 1, res.Error
}

// SetHired flips final_hired to hired and reports whether the stored value
// actually changed.
//
// Behavior:
//   - hired = true only matches rows where final_hired is NULL or false.
//   - hired = false only matches rows where final_hired is true, so a row
//     that was never hired is left NULL-or-false and reports no change.
//   - The row value always changes when matched, so RowsAffected is
//     reliable on every dialect.
func (r *JobApplicationRepository) SetHired(ctx context.Context, id, userID string, hired bool) (bool, error) {
	q := r.db.WithContext(ctx).
		Model(&db.JobApplication{}).
		Where("id = ? AND user_id = ?", id, userID)
	if hired {
		q = q.Where("final_hired IS NULL OR final_hired = ?", false)
	} else {
		q = q.Where("final_hired = ?", true)
	}
	res := q.Update("final_hired", hired)
	return res.RowsAffected == 1, res.Error
}

// History lists the user's applications, newest first.
func (r *JobApplicationRepository) History(
	ctx context.Context,
	userID string,
	filter HistoryFilter,
	page pagination.Page,
) ([]db.JobApplication, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	switch filter {
	case HistoryPassed:
		q = q.Where("final_hired = ?", true)
	case HistoryRejected:
		q = q.Where("completed = ? AND final_hired = ?", true, false)
	case HistoryInProgress:
		q = q.Where("completed = ?", false)
	}

	var out []db.JobApplication
	err := q.Order("started_at DESC").
		Order("id DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&out).Error
	return out, err
}

// CountsByDifficulty aggregates totals per difficulty in one grouped query.
// Difficulties with no applications are absent from the result.
func (r *JobApplicationRepository) CountsByDifficulty(ctx context.Context, userID string) ([]DifficultyCounts, error) {
	var out []DifficultyCounts
	err := r.db.WithContext(ctx).
		Model(&db.JobApplication{}).
		Select(
			"difficulty, COUNT(*) AS total, "+
				"SUM(CASE WHEN completed = ? THEN 1 ELSE 0 END) AS completed, "+
				"SUM(CASE WHEN final_hired = ? THEN 1 ELSE 0 END) AS hired",
			true, true,
		).
		Where("user_id = ?", userID).
		Group("difficulty").
		Scan(&out).Error
	return out, err
}
