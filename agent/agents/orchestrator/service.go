package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	contractx "github.com/tanpawarit/supervisor-agent/agent/contract"
	nodex "github.com/tanpawarit/supervisor-agent/agent/nodes"
	statex "github.com/tanpawarit/supervisor-agent/agent/state"
)

const tracerName = "github.com/tanpawarit/supervisor-agent/agent/agents/orchestrator"

var (
	ErrInvalidTask   = contractx.ErrInvalidTask
	ErrUnknownWorker = contractx.ErrUnknownWorker
)

type Config struct {
	MaxSteps          int `split_words:"true" default:"8"`
	ResultTokenBudget int `split_words:"true" default:"6000"`
}

type Orchestrator struct {
	models   contractx.Registry
	maxSteps int

	observer  contractx.Observer
	callbacks []callbacks.Handler
	tracer    trace.Tracer

	graphRunner compose.Runnable[statex.AgentState, statex.AgentState]
}

// Result is what a caller gets back from a finished run.
type Result struct {
	FinalAnswer   string
	WorkerResults map[statex.WorkerName]string
	Steps         int
}

// Contributors lists the workers that produced a result, in canonical order.
func (r Result) Contributors() []statex.WorkerName {
	return statex.ContributorsOf(r.WorkerResults)
}

type Option func(*Orchestrator)

// WithCallbacks attaches eino callback handlers to every run.
func WithCallbacks(handlers ...callbacks.Handler) Option {
	return func(o *Orchestrator) {
		for _, h := range handlers {
			if h != nil {
				o.callbacks = append(o.callbacks, h)
			}
		}
	}
}

// WithDefaultObserver receives the steps of every run.
func WithDefaultObserver(obs contractx.Observer) Option {
	return func(o *Orchestrator) {
		o.observer = obs
	}
}

type runOptions struct {
	observers contractx.Observers
}

type RunOption func(*runOptions)

// WithObserver receives the steps of a single run.
func WithObserver(obs contractx.Observer) RunOption {
	return func(ro *runOptions) {
		if obs != nil {
			ro.observers = append(ro.observers, obs)
		}
	}
}

// RunObserver returns the observer a run started with opts would report to.
func RunObserver(opts ...RunOption) contractx.Observer {
	var ro runOptions
	for _, opt := range opts {
		opt(&ro)
	}
	return ro.observers
}

func New(models contractx.Registry, cfg Config, opts ...Option) (*Orchestrator, error) {
	if models == nil {
		return nil, errors.New("model registry is required")
	}
	if models.Supervisor() == nil {
		return nil, errors.New("supervisor is required")
	}

	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 8
	}

	o := &Orchestrator{
		models:   models,
		maxSteps: maxSteps,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(o)
	}

	graphRunner, err := o.compileSupervisorGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// Run drives one task through the supervisor/worker loop until the
// supervisor finishes. It blocks until the run completes.
func (o *Orchestrator) Run(ctx context.Context, task string, opts ...RunOption) (Result, error) {
	var ro runOptions
	if o.observer != nil {
		ro.observers = append(ro.observers, o.observer)
	}
	for _, opt := range opts {
		opt(&ro)
	}

	ctx, span := o.tracer.Start(ctx, "supervisor_workflow",
		trace.WithAttributes(attribute.Int("task.length", len(task))),
	)
	defer span.End()

	started := time.Now()
	ctx = contractx.WithObserver(ctx, ro.observers)

	out, err := o.run(ctx, task)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		ro.observers.OnStep(ctx, contractx.Step{
			Kind:     contractx.StepRunFailed,
			Number:   out.Steps,
			Duration: time.Since(started),
			Err:      err,
		})
		log.Error().Err(err).Dur("elapsed", time.Since(started)).Msg("supervisor run failed")
		return Result{}, err
	}

	span.SetAttributes(
		attribute.Int("run.steps", out.Steps),
		attribute.Int("run.workers", len(out.WorkerResults)),
	)
	ro.observers.OnStep(ctx, contractx.Step{
		Kind:     contractx.StepRunCompleted,
		Number:   out.Steps,
		Duration: time.Since(started),
	})

	return Result{
		FinalAnswer:   out.FinalAnswer,
		WorkerResults: maps.Clone(out.WorkerResults),
		Steps:         out.Steps,
	}, nil
}

func (o *Orchestrator) run(ctx context.Context, task string) (statex.AgentState, error) {
	in, err := nodex.ValidateTask(task)
	if err != nil {
		return statex.AgentState{}, err
	}

	ctx, failure := withRunFailure(ctx)

	var invokeOpts []compose.Option
	if len(o.callbacks) > 0 {
		invokeOpts = append(invokeOpts, compose.WithCallbacks(o.callbacks...))
	}

	out, err := o.graphRunner.Invoke(ctx, in, invokeOpts...)
	if err != nil {
		if cause := failure.first(); cause != nil {
			return statex.AgentState{}, cause
		}
		return statex.AgentState{}, fmt.Errorf("run supervisor graph: %w", err)
	}

	if err := nodex.ValidateFinal(out); err != nil {
		return statex.AgentState{}, err
	}
	return out, nil
}
