// Package metrics exposes Prometheus counters for supervisor runs.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	contractx "github.com/tanpawarit/supervisor-agent/agent/contract"
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Recorder counts runs, decisions and worker calls. A nil *Recorder is
// valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	runsTotal           *prometheus.CounterVec
	runDuration         prometheus.Histogram
	decisionsTotal      *prometheus.CounterVec
	fallbacksTotal      prometheus.Counter
	stepLimitsTotal     prometheus.Counter
	workerCallsTotal    *prometheus.CounterVec
	workerFailuresTotal *prometheus.CounterVec
	workerDuration      *prometheus.HistogramVec
}

var _ contractx.Observer = (*Recorder)(nil)

// NewRecorder registers the collectors on a private registry so several
// recorders can coexist in one process.
func NewRecorder(namespace string) *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of supervisor runs by outcome",
		}, []string{"outcome"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Supervisor run duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),
		decisionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "supervisor_decisions_total",
			Help:      "Total number of supervisor decisions by action",
		}, []string{"action"}),
		fallbacksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "supervisor_fallbacks_total",
			Help:      "Supervisor replies that could not be parsed",
		}),
		stepLimitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "supervisor_step_limits_total",
			Help:      "Runs stopped by the supervisor step limit",
		}),
		workerCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_calls_total",
			Help:      "Total number of worker calls by worker",
		}, []string{"worker"}),
		workerFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_failures_total",
			Help:      "Worker calls that returned an error",
		}, []string{"worker"}),
		workerDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "worker_duration_seconds",
			Help:      "Worker call duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"worker"}),
	}
}

// OnStep implements contract.Observer.
func (r *Recorder) OnStep(_ context.Context, step contractx.Step) {
	if r == nil {
		return
	}

	switch step.Kind {
	case contractx.StepSupervisorDecided:
		r.decisionsTotal.WithLabelValues(string(step.Action)).Inc()
		if step.Fallback {
			r.fallbacksTotal.Inc()
		}
		if step.StepLimit {
			r.stepLimitsTotal.Inc()
		}
	case contractx.StepWorkerStarted:
		r.workerCallsTotal.WithLabelValues(string(step.Worker)).Inc()
	case contractx.StepWorkerFinished:
		r.workerDuration.WithLabelValues(string(step.Worker)).Observe(step.Duration.Seconds())
		if step.Err != nil {
			r.workerFailuresTotal.WithLabelValues(string(step.Worker)).Inc()
		}
	case contractx.StepRunCompleted:
		r.runsTotal.WithLabelValues(OutcomeSuccess).Inc()
		r.runDuration.Observe(step.Duration.Seconds())
	case contractx.StepRunFailed:
		r.runsTotal.WithLabelValues(OutcomeError).Inc()
		r.runDuration.Observe(step.Duration.Seconds())
	}
}

// Handler serves the recorder's registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}
