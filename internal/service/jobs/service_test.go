package jobs_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careersim/bff/internal/app/apptest"
	"github.com/careersim/bff/internal/db"
	svcErr "github.com/careersim/bff/internal/errors"
	"github.com/careersim/bff/internal/middleware"
	"github.com/careersim/bff/internal/repository"
	"github.com/careersim/bff/internal/service/jobs"
	"github.com/careersim/bff/internal/service/profile"
	"github.com/careersim/bff/internal/utils/pagination"
)

//
// Test helpers
//

func setup(t *testing.T) (*apptest.Env, *jobs.Service) {
	t.Helper()
	env := apptest.New(t)
	return env, jobs.NewService(env.App)
}

func acme(difficulty string) jobs.CreateInput {
	return jobs.CreateInput{Company: "Acme", Role: "Backend Engineer", Difficulty: difficulty}
}

func counters(t *testing.T, env *apptest.Env, userID string) *db.UserStats {
	t.Helper()
	s, err := repository.NewStatsRepository(env.App.DB).FindByUser(context.Background(), userID)
	require.NoError(t, err)
	return s
}

//
// Tests
//

func TestCreate_DefaultsAndCounter(t *testing.T) {
	ctx := context.Background()
	env, svc := setup(t)

	j, err := svc.Create(ctx, "u1", "", jobs.CreateInput{Role: "SRE", Difficulty: "Hard"})
	require.NoError(t, err)
	assert.Equal(t, "Unknown", j.Company)
	assert.Equal(t, "preset", j.JobSource)
	assert.Equal(t, db.DifficultyHard, j.Difficulty)
	assert.Equal(t, db.StageScreening, j.CurrentStage)
	assert.False(t, j.Completed)

	_, err = svc.Create(ctx, "u1", "", acme("easy"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, counters(t, env, "u1").TotalSimulations)
}

func TestCreate_Validation(t *testing.T) {
	_, svc := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", "", jobs.CreateInput{Role: " ", Difficulty: "easy"})
	assert.True(t, svcErr.Is(err, svcErr.KindInvalidInput))

	_, err = svc.Create(ctx, "u1", "", jobs.CreateInput{Role: "SRE", Difficulty: "nightmare"})
	assert.True(t, svcErr.Is(err, svcErr.KindInvalidInput))
}

func TestCreate_IdempotencyKey(t *testing.T) {
	ctx := context.Background()
	env, svc := setup(t)

	first, err := svc.Create(ctx, "u1", "key-1", acme("easy"))
	require.NoError(t, err)
	again, err := svc.Create(ctx, "u1", "key-1", acme("easy"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.EqualValues(t, 1, counters(t, env, "u1").TotalSimulations)

	// keys are per user
	other, err := svc.Create(ctx, "u2", "key-1", acme("easy"))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestCreate_IdempotencyInFlight(t *testing.T) {
	ctx := context.Background()
	env, svc := setup(t)

	key := env.App.RedisCache.KeyForIdempotency("jobs.create", "u1", "busy")
	require.NoError(t, env.Redis.Set(key, "pending"))

	_, err := svc.Create(ctx, "u1", "busy", acme("easy"))
	assert.True(t, svcErr.Is(err, svcErr.KindConflict))
}

func TestCreate_StalePendingReservationLapses(t *testing.T) {
	ctx := context.Background()
	env, svc := setup(t)

	// a previous attempt reserved the key and died before completing it
	key := env.App.RedisCache.KeyForIdempotency("jobs.create", "u1", "retry")
	_, reserved, err := env.App.RedisCache.ReserveIdempotencyKey(ctx, key)
	require.NoError(t, err)
	require.True(t, reserved)

	_, err = svc.Create(ctx, "u1", "retry", acme("easy"))
	assert.True(t, svcErr.Is(err, svcErr.KindConflict))

	env.Redis.FastForward(2 * time.Minute)
	j, err := svc.Create(ctx, "u1", "retry", acme("easy"))
	require.NoError(t, err)
	assert.NotEmpty(t, j.ID)

	again, err := svc.Create(ctx, "u1", "retry", acme("easy"))
	require.NoError(t, err)
	assert.Equal(t, j.ID, again.ID)
}

func TestCreate_RedisDownStillCreates(t *testing.T) {
	ctx := context.Background()
	env, svc := setup(t)
	env.Redis.Close()

	j, err := svc.Create(ctx, "u1", "key-1", acme("medium"))
	require.NoError(t, err)
	assert.NotEmpty(t, j.ID)
}

func TestScenario_TechnicalFailEndsApplication(t *testing.T) {
	ctx := context.Background()
	_, svc := setup(t)

	j, err := svc.Create(ctx, "u1", "", acme("easy"))
	require.NoError(t, err)

	j, err = svc.RecordScreening(ctx, "u1", j.ID, true, "solid resume")
	require.NoError(t, err)
	assert.Equal(t, db.StageTechnical, j.CurrentStage)

	j, err = svc.RecordTechnical(ctx, "u1", j.ID, false, 41.5, json.RawMessage(`{"problems":2}`))
	require.NoError(t, err)
	assert.True(t, j.Completed)
	require.NotNil(t, j.FinalHired)
	assert.False(t, *j.FinalHired)
	require.NotNil(t, j.TechnicalPassed)
	assert.False(t, *j.TechnicalPassed)
	assert.Equal(t, db.StageResult, j.CurrentStage)
	assert.NotNil(t, j.CompletedAt)
	assert.JSONEq(t, `{"problems":2}`, string(j.TechnicalDetails))

	// no further progress
	_, err = svc.RecordBehavioral(ctx, "u1", j.ID, true, 90, nil)
	assert.True(t, svcErr.Is(err, svcErr.KindInvalidInput))
}

func TestStages_ForwardOnlyWithReplay(t *testing.T) {
	ctx := context.Background()
	_, svc := setup(t)

	j, err := svc.Create(ctx, "u1", "", acme("medium"))
	require.NoError(t, err)

	// technical before screening
	_, err = svc.RecordTechnical(ctx, "u1", j.ID, true, 80, nil)
	assert.True(t, svcErr.Is(err, svcErr.KindInvalidInput))
	assert.Equal(t, "stage transition not allowed", svcErr.PublicMessage(err))

	_, err = svc.RecordScreening(ctx, "u1", j.ID, true, "first")
	require.NoError(t, err)

	// same verdict again refreshes feedback only
	j, err = svc.RecordScreening(ctx, "u1", j.ID, true, "second")
	require.NoError(t, err)
	assert.Equal(t, db.StageTechnical, j.CurrentStage)
	require.NotNil(t, j.ScreeningFeedback)
	assert.Equal(t, "second", *j.ScreeningFeedback)

	// flipping the verdict is not a replay
	_, err = svc.RecordScreening(ctx, "u1", j.ID, false, "changed my mind")
	assert.True(t, svcErr.Is(err, svcErr.KindInvalidInput))

	_, err = svc.RecordTechnical(ctx, "u1", j.ID, true, 88, nil)
	require.NoError(t, err)

	// screening is closed once technical is recorded
	_, err = svc.RecordScreening(ctx, "u1", j.ID, true, "late")
	assert.True(t, svcErr.Is(err, svcErr.KindInvalidInput))

	feedback := "great communicator"
	j, err = svc.RecordBehavioral(ctx, "u1", j.ID, false, 55, &feedback)
	require.NoError(t, err)
	assert.Equal(t, db.StageResult, j.CurrentStage)
	assert.False(t, j.Completed)
}

func TestFinalize_CountsOnlyOnFlip(t *testing.T) {
	ctx := context.Background()
	env, svc := setup(t)

	j, err := svc.Create(ctx, "u1", "", acme("hard"))
	require.NoError(t, err)

	// finalize works from any stage
	j, err = svc.Finalize(ctx, "u1", j.ID, true, 87.5)
	require.NoError(t, err)
	assert.True(t, j.Completed)
	require.NotNil(t, j.FinalHired)
	assert.True(t, *j.FinalHired)
	require.NotNil(t, j.FinalWeightedScore)
	assert.InDelta(t, 87.5, *j.FinalWeightedScore, 0.001)
	assert.EqualValues(t, 1, counters(t, env, "u1").SuccessfulSimulations)

	// retry
	_, err = svc.Finalize(ctx, "u1", j.ID, true, 87.5)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counters(t, env, "u1").SuccessfulSimulations)

	// reverse flip
	_, err = svc.Finalize(ctx, "u1", j.ID, false, 40)
	require.NoError(t, err)
	assert.EqualValues(t, 0, counters(t, env, "u1").SuccessfulSimulations)

	// not hired from the start never touches the counter
	k, err := svc.Create(ctx, "u1", "", acme("easy"))
	require.NoError(t, err)
	_, err = svc.Finalize(ctx, "u1", k.ID, false, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 0, counters(t, env, "u1").SuccessfulSimulations)
}

func TestOwnership(t *testing.T) {
	ctx := context.Background()
	_, svc := setup(t)

	j, err := svc.Create(ctx, "u1", "", acme("easy"))
	require.NoError(t, err)

	_, err = svc.Get(ctx, j.ID, "u2")
	assert.True(t, svcErr.Is(err, svcErr.KindNotFound))
	assert.Equal(t, "Job application not found", svcErr.PublicMessage(err))

	_, err = svc.RecordScreening(ctx, "u2", j.ID, true, "")
	assert.True(t, svcErr.Is(err, svcErr.KindNotFound))

	_, err = svc.Finalize(ctx, "u2", j.ID, true, 99)
	assert.True(t, svcErr.Is(err, svcErr.KindNotFound))

	_, err = svc.Finalize(ctx, "u1", "missing", true, 99)
	assert.True(t, svcErr.Is(err, svcErr.KindNotFound))
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	_, svc := setup(t)

	empty, err := svc.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, empty.SuccessRate)
	assert.Len(t, empty.ByDifficulty, 3)

	hired := []bool{true, true, false, false}
	for i, h := range hired {
		d := "easy"
		if i%2 == 1 {
			d = "hard"
		}
		j, err := svc.Create(ctx, "u1", "", acme(d))
		require.NoError(t, err)
		_, err = svc.Finalize(ctx, "u1", j.ID, h, 70)
		require.NoError(t, err)
	}
	_, err = svc.Create(ctx, "u1", "", acme("medium"))
	require.NoError(t, err)

	st, err := svc.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 5, st.TotalSimulations)
	assert.EqualValues(t, 4, st.CompletedSimulations)
	assert.EqualValues(t, 2, st.SuccessfulSimulations)
	assert.Equal(t, 50.0, st.SuccessRate)
	assert.Equal(t, jobs.DifficultyStats{Total: 2, Passed: 1}, st.ByDifficulty[db.DifficultyEasy])
	assert.Equal(t, jobs.DifficultyStats{Total: 1, Passed: 0}, st.ByDifficulty[db.DifficultyMedium])
	assert.Equal(t, jobs.DifficultyStats{Total: 2, Passed: 1}, st.ByDifficulty[db.DifficultyHard])
}

func TestStats_RoundsToOneDecimal(t *testing.T) {
	ctx := context.Background()
	_, svc := setup(t)

	for _, h := range []bool{true, false, false} {
		j, err := svc.Create(ctx, "u1", "", acme("easy"))
		require.NoError(t, err)
		_, err = svc.Finalize(ctx, "u1", j.ID, h, 50)
		require.NoError(t, err)
	}
	st, err := svc.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 33.3, st.SuccessRate)
}

func TestHistory_Filters(t *testing.T) {
	ctx := context.Background()
	_, svc := setup(t)

	hired, err := svc.Create(ctx, "u1", "", acme("easy"))
	require.NoError(t, err)
	_, err = svc.Finalize(ctx, "u1", hired.ID, true, 90)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u1", "", acme("easy"))
	require.NoError(t, err)

	page := pagination.Page{Limit: pagination.DefaultLimit}
	all, err := svc.History(ctx, "u1", "", page)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	passed, err := svc.History(ctx, "u1", "passed", page)
	require.NoError(t, err)
	require.Len(t, passed, 1)
	assert.Equal(t, hired.ID, passed[0].ID)

	rejected, err := svc.History(ctx, "u1", "rejected", page)
	require.NoError(t, err)
	assert.NotNil(t, rejected)
	assert.Empty(t, rejected)

	_, err = svc.History(ctx, "u1", "hired", page)
	assert.True(t, svcErr.Is(err, svcErr.KindInvalidInput))
}

func TestHTTP_TrackLifecycle(t *testing.T) {
	env := apptest.New(t)
	guards := middleware.NewGuards(env.App.Verifier, profile.NewResolver(env.App), env.App.Logger)
	r := apptest.Engine()
	jobs.NewRegistrar(env.App).RegisterRoutes(r.Group("/api"), guards)
	token := apptest.Token("u1", "neo@matrix.io")

	call := func(method, path, body string, headers ...string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		for i := 0; i+1 < len(headers); i += 2 {
			req.Header.Set(headers[i], headers[i+1])
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := call(http.MethodPost, "/api/jobs/track/create",
		`{"company":"Acme","role":"Engineer","difficulty":"easy","apply_url":"https://acme.io/jobs/1"}`,
		jobs.IdempotencyHeader, "retry-me")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var created db.JobApplication
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotNil(t, created.ApplyURL)

	rec = call(http.MethodPost, "/api/jobs/track/create",
		`{"company":"Acme","role":"Engineer","difficulty":"easy"}`,
		jobs.IdempotencyHeader, "retry-me")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), created.ID)

	rec = call(http.MethodPost, "/api/jobs/track/screening", `{"job_id":"`+created.ID+`","feedback":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "passed is required")

	rec = call(http.MethodPost, "/api/jobs/track/screening", `{"job_id":"`+created.ID+`","passed":true,"feedback":"ok"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"current_stage":"technical"`)

	rec = call(http.MethodPost, "/api/jobs/track/technical",
		`{"job_id":"`+created.ID+`","passed":false,"score":12,"details":{"tests":"3/10"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"completed":true`)

	rec = call(http.MethodPost, "/api/jobs/track/finalize", `{"job_id":"`+created.ID+`","hired":false,"weighted_score":20}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = call(http.MethodGet, "/api/jobs/history?status_filter=rejected", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), created.ID)

	rec = call(http.MethodGet, "/api/jobs/history?offset=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(http.MethodGet, "/api/jobs/history/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = call(http.MethodGet, "/api/jobs/history/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"Job application not found"}`, rec.Body.String())

	rec = call(http.MethodGet, "/api/jobs/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st jobs.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.EqualValues(t, 1, st.TotalSimulations)
	assert.Zero(t, st.SuccessRate)
	assert.Len(t, st.ByDifficulty, 3)
}

func TestHTTP_RequiresAuth(t *testing.T) {
	env := apptest.New(t)
	guards := middleware.NewGuards(env.App.Verifier, profile.NewResolver(env.App), env.App.Logger)
	r := apptest.Engine()
	jobs.NewRegistrar(env.App).RegisterRoutes(r.Group("/api"), guards)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/stats", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
