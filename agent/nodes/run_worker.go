package orchestratornode

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/supervisor-agent/agent/contract"
	statex "github.com/tanpawarit/supervisor-agent/agent/state"
)

// RunWorker calls one worker and reports start and finish to the observer.
func RunWorker(
	ctx context.Context,
	in statex.AgentState,
	worker contractx.Worker,
) (statex.AgentState, error) {
	if worker == nil {
		return in, fmt.Errorf("%w: worker is nil", contractx.ErrValidation)
	}

	obs := contractx.ObserverFrom(ctx)
	name := worker.Name()
	obs.OnStep(ctx, contractx.Step{
		Kind:   contractx.StepWorkerStarted,
		Number: in.Steps,
		Worker: name,
	})

	started := time.Now()
	out, err := worker.Run(ctx, in)
	elapsed := time.Since(started)
	if err != nil {
		obs.OnStep(ctx, contractx.Step{
			Kind:     contractx.StepWorkerFinished,
			Number:   in.Steps,
			Worker:   name,
			Duration: elapsed,
			Err:      err,
		})
		return in, err
	}

	log.Debug().
		Str("worker", string(name)).
		Int("step", out.Steps).
		Dur("elapsed", elapsed).
		Int("result_len", len(out.WorkerResults[name])).
		Msg("worker finished")

	obs.OnStep(ctx, contractx.Step{
		Kind:     contractx.StepWorkerFinished,
		Number:   out.Steps,
		Worker:   name,
		Duration: elapsed,
	})
	return out, nil
}

// PickWorker resolves a worker name against the registry.
func PickWorker(name statex.WorkerName, models contractx.Registry) (contractx.Worker, error) {
	if models == nil {
		return nil, fmt.Errorf("%w: registry is nil", contractx.ErrValidation)
	}
	switch name {
	case statex.WorkerResearcher:
		return models.Researcher(), nil
	case statex.WorkerCoder:
		return models.Coder(), nil
	case statex.WorkerAnalyst:
		return models.Analyst(), nil
	default:
		return nil, fmt.Errorf("%w: %q", contractx.ErrUnknownWorker, name)
	}
}
