package specialist

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"

	contractx "github.com/tanpawarit/supervisor-agent/agent/contract"
	llmx "github.com/tanpawarit/supervisor-agent/agent/llm"
	promptx "github.com/tanpawarit/supervisor-agent/agent/prompt"
	statex "github.com/tanpawarit/supervisor-agent/agent/state"
)

type registryImpl struct {
	supervisor contractx.Supervisor
	researcher contractx.Worker
	coder      contractx.Worker
	analyst    contractx.Worker
}

func (r *registryImpl) Supervisor() contractx.Supervisor {
	return r.supervisor
}

func (r *registryImpl) Researcher() contractx.Worker {
	return r.researcher
}

func (r *registryImpl) Coder() contractx.Worker {
	return r.coder
}

func (r *registryImpl) Analyst() contractx.Worker {
	return r.analyst
}

type roleModels struct {
	supervisor einomodel.BaseChatModel
	researcher einomodel.BaseChatModel
	coder      einomodel.BaseChatModel
	analyst    einomodel.BaseChatModel
}

// NewRegistry builds one chat model per role and the units that use them.
func NewRegistry(ctx context.Context, cfg llmx.Config, budget *promptx.Budget) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	build := func(agentType contractx.AgentType) (einomodel.BaseChatModel, error) {
		modelCfg := cfg.OpenAIFor(agentType)
		m, err := modelCfg.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: create %s model: %v", contractx.ErrModelInvoke, agentType, err)
		}
		return m, nil
	}

	var models roleModels
	var err error
	if models.supervisor, err = build(contractx.AgentTypeSupervisor); err != nil {
		return nil, err
	}
	if models.researcher, err = build(contractx.AgentTypeResearcher); err != nil {
		return nil, err
	}
	if models.coder, err = build(contractx.AgentTypeCoder); err != nil {
		return nil, err
	}
	if models.analyst, err = build(contractx.AgentTypeAnalyst); err != nil {
		return nil, err
	}

	return newRegistry(ctx, models, promptx.LoadPromptSet(), budget)
}

func newRegistry(
	ctx context.Context,
	models roleModels,
	prompts promptx.PromptSet,
	budget *promptx.Budget,
) (*registryImpl, error) {
	if err := prompts.Validate(); err != nil {
		return nil, err
	}

	supervisor, err := newSupervisor(ctx, models.supervisor, prompts.Supervisor, budget)
	if err != nil {
		return nil, err
	}
	researcher, err := newWorker(ctx, statex.WorkerResearcher, models.researcher, prompts.Worker)
	if err != nil {
		return nil, err
	}
	coder, err := newWorker(ctx, statex.WorkerCoder, models.coder, prompts.Worker)
	if err != nil {
		return nil, err
	}
	analyst, err := newWorker(ctx, statex.WorkerAnalyst, models.analyst, prompts.Worker)
	if err != nil {
		return nil, err
	}

	return &registryImpl{
		supervisor: supervisor,
		researcher: researcher,
		coder:      coder,
		analyst:    analyst,
	}, nil
}
