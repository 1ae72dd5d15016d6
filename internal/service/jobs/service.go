package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/careersim/bff/internal/app"
	"github.com/careersim/bff/internal/cache"
	"github.com/careersim/bff/internal/db"
	svcErr "github.com/careersim/bff/internal/errors"
	"github.com/careersim/bff/internal/metrics"
	"github.com/careersim/bff/internal/repository"
	"github.com/careersim/bff/internal/utils/pagination"
)

const (
	defaultCompany   = "Unknown"
	defaultJobSource = "preset"
	idempotencyOp    = "jobs.create"
)

var (
	errNotFound          = svcErr.NotFound("Job application not found")
	errTransitionBlocked = svcErr.InvalidInput("stage transition not allowed")
)

// Service tracks simulated job applications through
// screening → technical → behavioral → result.
type Service struct {
	appCtx *app.AppContext
	jobs   *repository.JobApplicationRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		jobs:   repository.NewJobApplicationRepository(appCtx.DB),
	}
}

// CreateInput is the body of POST /api/jobs/track/create.
type CreateInput struct {
	Company    string  `json:"company"`
	Role       string  `json:"role"`
	Difficulty string  `json:"difficulty"`
	JobSource  string  `json:"job_source"`
	Location   *string `json:"location"`
	ApplyURL   *string `json:"apply_url"`
	Category   *string `json:"category"`
}

// DifficultyStats is the per-difficulty breakdown of Stats.
type DifficultyStats struct {
	Total  int64 `json:"total"`
	Passed int64 `json:"passed"`
}

// Stats is the body of GET /api/jobs/stats.
type Stats struct {
	TotalSimulations      int64                             `json:"total_simulations"`
	CompletedSimulations  int64                             `json:"completed_simulations"`
	SuccessfulSimulations int64                             `json:"successful_simulations"`
	SuccessRate           float64                           `json:"success_rate"`
	ByDifficulty          map[db.Difficulty]DifficultyStats `json:"by_difficulty"`
}

// Create starts a new application in the screening stage and counts it in
// the user's total_simulations.
//
// Behavior:
//   - Blank company → "Unknown"; blank job_source → "preset".
//   - role is required; difficulty must be easy, medium or hard.
//   - Insert and counter increment commit together.
//   - A non-empty idempotencyKey makes retries return the application
//     created by the first call instead of creating (and counting) another.
func (s *Service) Create(ctx context.Context, userID, idempotencyKey string, in CreateInput) (*db.JobApplication, error) {
	job, err := newApplication(userID, in)
	if err != nil {
		return nil, err
	}

	idemKey := ""
	if k := strings.TrimSpace(idempotencyKey); k != "" {
		idemKey = s.appCtx.RedisCache.KeyForIdempotency(idempotencyOp, userID, k)
		prevID, reserved, err := s.appCtx.RedisCache.ReserveIdempotencyKey(ctx, idemKey)
		switch {
		case errors.Is(err, cache.ErrInFlight):
			return nil, svcErr.Conflict("a request with this Idempotency-Key is still in progress")
		case err != nil:
			s.appCtx.Logger.Warn("idempotency reservation failed, continuing without it", "user_id", userID, "err", err)
			idemKey = ""
		case !reserved:
			return s.Get(ctx, prevID, userID)
		}
	}

	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewJobApplicationRepository(tx).Create(ctx, job); err != nil {
			return err
		}
		stats := repository.NewStatsRepository(tx)
		if _, err := stats.GetOrCreate(ctx, userID); err != nil {
			return err
		}
		return stats.Increment(ctx, userID, repository.CounterTotalSimulations, 1)
	})
	if err != nil {
		s.releaseKey(ctx, idemKey)
		return nil, svcErr.Map(err)
	}

	if idemKey != "" {
		if err := s.appCtx.RedisCache.CompleteIdempotencyKey(ctx, idemKey, job.ID); err != nil {
			s.appCtx.Logger.Warn("idempotency completion failed", "job_id", job.ID, "err", err)
		}
	}
	s.appCtx.Logger.Debug("job application created", "job_id", job.ID, "user_id", userID)
	return job, nil
}

func newApplication(userID string, in CreateInput) (*db.JobApplication, error) {
	role := strings.TrimSpace(in.Role)
	if role == "" {
		return nil, svcErr.InvalidInput("role is required")
	}
	d := db.Difficulty(strings.ToLower(strings.TrimSpace(in.Difficulty)))
	if !d.Valid() {
		return nil, svcErr.InvalidInput("difficulty must be one of easy, medium, hard")
	}
	company := strings.TrimSpace(in.Company)
	if company == "" {
		company = defaultCompany
	}
	source := strings.TrimSpace(in.JobSource)
	if source == "" {
		source = defaultJobSource
	}
	return &db.JobApplication{
		UserID:       userID,
		Company:      company,
		Role:         role,
		Difficulty:   d,
		JobSource:    source,
		Location:     in.Location,
		ApplyURL:     in.ApplyURL,
		Category:     in.Category,
		CurrentStage: db.StageScreening,
	}, nil
}

func (s *Service) releaseKey(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.appCtx.RedisCache.ReleaseIdempotencyKey(ctx, key); err != nil {
		s.appCtx.Logger.Warn("idempotency release failed", "err", err)
	}
}

// Get returns one of the caller's applications.
func (s *Service) Get(ctx context.Context, id, userID string) (*db.JobApplication, error) {
	j, err := s.jobs.Get(ctx, id, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return j, nil
}

// stageResult describes one recorded interview stage.
type stageResult struct {
	stage  db.Stage
	passed bool
	// next is the stage entered on a pass
	next db.Stage
	// fields always written (feedback, score, details)
	details map[string]any
	// replayable reports whether j already holds this exact result and no
	// later stage has been recorded, so re-sending it only refreshes details
	replayable func(j *db.JobApplication) bool
}

// RecordScreening stores the screening verdict. A fail ends the application.
func (s *Service) RecordScreening(ctx context.Context, userID, jobID string, passed bool, feedback string) (*db.JobApplication, error) {
	return s.record(ctx, userID, jobID, stageResult{
		stage:  db.StageScreening,
		passed: passed,
		next:   db.StageTechnical,
		details: map[string]any{
			"screening_passed":   passed,
			"screening_feedback": feedback,
		},
		replayable: func(j *db.JobApplication) bool {
			return sameResult(j.ScreeningPassed, passed) && j.TechnicalPassed == nil && j.BehavioralPassed == nil
		},
	})
}

// RecordTechnical stores the technical verdict, score and free-form details.
// A fail ends the application.
func (s *Service) RecordTechnical(
	ctx context.Context,
	userID, jobID string,
	passed bool,
	score float64,
	details json.RawMessage,
) (*db.JobApplication, error) {
	var detailsCol any
	if len(details) > 0 && string(details) != "null" {
		detailsCol = datatypes.JSON(details)
	}
	return s.record(ctx, userID, jobID, stageResult{
		stage:  db.StageTechnical,
		passed: passed,
		next:   db.StageBehavioral,
		details: map[string]any{
			"technical_passed":  passed,
			"technical_score":   score,
			"technical_details": detailsCol,
		},
		replayable: func(j *db.JobApplication) bool {
			return sameResult(j.TechnicalPassed, passed) && j.BehavioralPassed == nil
		},
	})
}

// RecordBehavioral stores the behavioral verdict. Pass or fail, the
// application moves to the result stage.
func (s *Service) RecordBehavioral(
	ctx context.Context,
	userID, jobID string,
	passed bool,
	score float64,
	feedback *string,
) (*db.JobApplication, error) {
	return s.record(ctx, userID, jobID, stageResult{
		stage:  db.StageBehavioral,
		passed: passed,
		next:   db.StageResult,
		details: map[string]any{
			"behavioral_passed":   passed,
			"behavioral_score":    score,
			"behavioral_feedback": feedback,
		},
		replayable: func(j *db.JobApplication) bool {
			return sameResult(j.BehavioralPassed, passed) && !j.Completed
		},
	})
}

func (s *Service) record(ctx context.Context, userID, jobID string, res stageResult) (*db.JobApplication, error) {
	j, err := s.Get(ctx, jobID, userID)
	if err != nil {
		return nil, err
	}

	if !j.Completed && j.CurrentStage == res.stage {
		fields := res.details
		switch {
		case res.passed || res.stage == db.StageBehavioral:
			fields["current_stage"] = res.next
		default:
			fields["current_stage"] = db.StageResult
			fields["completed"] = true
			fields["completed_at"] = time.Now().UTC()
			fields["final_hired"] = false
		}

		ok, err := s.jobs.Transition(ctx, jobID, userID, res.stage, fields)
		if err != nil {
			return nil, svcErr.Map(err)
		}
		if !ok {
			return nil, errTransitionBlocked
		}
		metrics.RecordJobTransition(string(res.stage), res.passed)
		return s.Get(ctx, jobID, userID)
	}

	if res.replayable(j) {
		if err := s.jobs.Update(ctx, jobID, userID, res.details); err != nil {
			return nil, svcErr.Map(err)
		}
		return s.Get(ctx, jobID, userID)
	}
	return nil, errTransitionBlocked
}

func sameResult(stored *bool, passed bool) bool {
	return stored != nil && *stored == passed
}

// Finalize records the final verdict from any stage and closes the application.
//
// Behavior:
//   - successful_simulations moves only when final_hired actually flips:
//     +1 on not-hired → hired and -1 on hired → not-hired, so retrying a
//     finalize never double-counts.
//   - Application update and counter change commit together.
func (s *Service) Finalize(ctx context.Context, userID, jobID string, hired bool, weightedScore float64) (*db.JobApplication, error) {
	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		jobs := repository.NewJobApplicationRepository(tx)
		if _, err := jobs.Get(ctx, jobID, userID); err != nil {
			return err
		}

		flipped, err := jobs.SetHired(ctx, jobID, userID, hired)
		if err != nil {
			return err
		}
		err = jobs.Update(ctx, jobID, userID, map[string]any{
			"final_hired":          hired,
			"final_weighted_score": weightedScore,
			"completed":            true,
			"completed_at":         time.Now().UTC(),
		})
		if err != nil || !flipped {
			return err
		}

		stats := repository.NewStatsRepository(tx)
		if _, err := stats.GetOrCreate(ctx, userID); err != nil {
			return err
		}
		delta := int64(1)
		if !hired {
			delta = -1
		}
		return stats.Increment(ctx, userID, repository.CounterSuccessfulSimulations, delta)
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, svcErr.Map(err)
	}
	metrics.RecordJobTransition(string(db.StageResult), hired)
	return s.Get(ctx, jobID, userID)
}

// History lists the caller's applications, newest first.
func (s *Service) History(ctx context.Context, userID, filter string, page pagination.Page) ([]db.JobApplication, error) {
	f := repository.HistoryFilter(strings.TrimSpace(filter))
	if !f.Valid() {
		return nil, svcErr.InvalidInput("status_filter must be one of passed, rejected, in_progress")
	}
	out, err := s.jobs.History(ctx, userID, f, page)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if out == nil {
		out = []db.JobApplication{}
	}
	return out, nil
}

// Stats aggregates the caller's applications. success_rate is
// hired/completed×100 rounded to one decimal, 0 without completed runs.
func (s *Service) Stats(ctx context.Context, userID string) (*Stats, error) {
	rows, err := s.jobs.CountsByDifficulty(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	out := &Stats{ByDifficulty: make(map[db.Difficulty]DifficultyStats, len(db.Difficulties))}
	for _, d := range db.Difficulties {
		out.ByDifficulty[d] = DifficultyStats{}
	}
	for _, r := range rows {
		out.TotalSimulations += r.Total
		out.CompletedSimulations += r.Completed
		out.SuccessfulSimulations += r.Hired
		if _, known := out.ByDifficulty[r.Difficulty]; known {
			out.ByDifficulty[r.Difficulty] = DifficultyStats{Total: r.Total, Passed: r.Hired}
		}
	}
	if out.CompletedSimulations > 0 {
		rate := float64(out.SuccessfulSimulations) / float64(out.CompletedSimulations) * 100
		out.SuccessRate = math.Round(rate*10) / 10
	}
	return out, nil
}
