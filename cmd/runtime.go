package cmd

import (
	"context"
	"errors"
	"time"

	orchestratorx "github.com/tanpawarit/supervisor-agent/agent/agents/orchestrator"
	"github.com/tanpawarit/supervisor-agent/agent/agents/specialist"
	contractx "github.com/tanpawarit/supervisor-agent/agent/contract"
	llmx "github.com/tanpawarit/supervisor-agent/agent/llm"
	promptx "github.com/tanpawarit/supervisor-agent/agent/prompt"
	configx "github.com/tanpawarit/supervisor-agent/pkg/config"
	metricsx "github.com/tanpawarit/supervisor-agent/pkg/metrics"
	tracingx "github.com/tanpawarit/supervisor-agent/pkg/tracing"
)

const metricsNamespace = "supervisor_agent"

// runtime bundles everything a command needs to run tasks.
type runtime struct {
	orchestrator *orchestratorx.Orchestrator
	tracing      *tracingx.Providers
	metrics      *metricsx.Recorder
}

func newRuntime(ctx context.Context, withMetrics bool) (*runtime, error) {
	llmCfg, err := configx.New[llmx.Config]("OPENAI")
	if err != nil {
		return nil, err
	}
	orchCfg, err := configx.New[orchestratorx.Config]("SUPERVISOR")
	if err != nil {
		return nil, err
	}
	traceCfg, err := configx.New[tracingx.Config]("TRACING")
	if err != nil {
		return nil, err
	}

	providers, err := tracingx.Init(ctx, *traceCfg)
	if err != nil {
		return nil, err
	}

	supervisorModel := llmCfg.OpenAIFor(contractx.AgentTypeSupervisor).Model
	budget := promptx.NewBudget(supervisorModel, orchCfg.ResultTokenBudget)

	registry, err := specialist.NewRegistry(ctx, *llmCfg, budget)
	if err != nil {
		return nil, errors.Join(err, providers.Shutdown(ctx))
	}

	rt := &runtime{tracing: providers}
	var opts []orchestratorx.Option
	if traceCfg.Enabled() {
		opts = append(opts, orchestratorx.WithCallbacks(tracingx.Handler(providers.TracerProvider())))
	}
	if withMetrics {
		rt.metrics = metricsx.NewRecorder(metricsNamespace)
		opts = append(opts, orchestratorx.WithDefaultObserver(rt.metrics))
	}

	rt.orchestrator, err = orchestratorx.New(registry, *orchCfg, opts...)
	if err != nil {
		return nil, errors.Join(err, providers.Shutdown(ctx))
	}
	return rt, nil
}

func (rt *runtime) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return rt.tracing.Shutdown(ctx)
}
