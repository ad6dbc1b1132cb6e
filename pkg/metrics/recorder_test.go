package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contractx "github.com/tanpawarit/supervisor-agent/agent/contract"
	statex "github.com/tanpawarit/supervisor-agent/agent/state"
)

func TestRecorderCountsSteps(t *testing.T) {
	r := NewRecorder("test")
	ctx := context.Background()

	r.OnStep(ctx, contractx.Step{Kind: contractx.StepSupervisorDecided, Action: statex.ActionAssignWorker, Worker: statex.WorkerCoder})
	r.OnStep(ctx, contractx.Step{Kind: contractx.StepWorkerStarted, Worker: statex.WorkerCoder})
	r.OnStep(ctx, contractx.Step{Kind: contractx.StepWorkerFinished, Worker: statex.WorkerCoder, Duration: time.Second})
	r.OnStep(ctx, contractx.Step{Kind: contractx.StepSupervisorDecided, Action: statex.ActionFinish, Fallback: true})
	r.OnStep(ctx, contractx.Step{Kind: contractx.StepRunCompleted, Duration: 2 * time.Second})

	assert.Equal(t, 1.0, testutil.ToFloat64(r.decisionsTotal.WithLabelValues("assign_worker")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.decisionsTotal.WithLabelValues("finish")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fallbacksTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.workerCallsTotal.WithLabelValues("coder")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runsTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.runsTotal.WithLabelValues(OutcomeError)))
}

func TestRecorderCountsFailures(t *testing.T) {
	r := NewRecorder("test")
	ctx := context.Background()

	r.OnStep(ctx, contractx.Step{Kind: contractx.StepWorkerFinished, Worker: statex.WorkerAnalyst, Err: errors.New("boom")})
	r.OnStep(ctx, contractx.Step{Kind: contractx.StepRunFailed, Err: errors.New("boom")})

	assert.Equal(t, 1.0, testutil.ToFloat64(r.workerFailuresTotal.WithLabelValues("analyst")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runsTotal.WithLabelValues(OutcomeError)))
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.OnStep(context.Background(), contractx.Step{Kind: contractx.StepRunCompleted})
	})
	assert.Nil(t, r.Registry())
}

func TestRecorderHandler(t *testing.T) {
	r := NewRecorder("supervisor")
	r.OnStep(context.Background(), contractx.Step{Kind: contractx.StepRunCompleted, Duration: time.Second})

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `supervisor_runs_total{outcome="success"} 1`)
}
