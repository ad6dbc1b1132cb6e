package orchestratornode

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/supervisor-agent/agent/contract"
	statex "github.com/tanpawarit/supervisor-agent/agent/state"
)

// Supervise runs one supervisor decision and folds it into the state.
// Once maxSteps decisions have been taken the model is not called again and
// the run finishes with StepLimitAnswer.
func Supervise(
	ctx context.Context,
	in statex.AgentState,
	supervisor contractx.Supervisor,
	maxSteps int,
) (statex.AgentState, error) {
	if supervisor == nil {
		return in, fmt.Errorf("%w: supervisor is nil", contractx.ErrValidation)
	}

	obs := contractx.ObserverFrom(ctx)
	started := time.Now()

	if maxSteps > 0 && in.Steps >= maxSteps {
		out := in.WithFinish(StepLimitAnswer(in))
		log.Warn().Int("steps", in.Steps).Int("max_steps", maxSteps).Msg("supervisor step limit reached")
		obs.OnStep(ctx, contractx.Step{
			Kind:      contractx.StepSupervisorDecided,
			Number:    out.Steps,
			Action:    statex.ActionFinish,
			Reasoning: "step limit reached",
			StepLimit: true,
			Duration:  time.Since(started),
		})
		return out, nil
	}

	decision, err := supervisor.Decide(ctx, in)
	if err != nil {
		return in, err
	}

	out := decision.Apply(in)
	log.Debug().
		Int("step", out.Steps).
		Str("action", string(decision.Action)).
		Str("worker", string(decision.Worker)).
		Bool("fallback", decision.Fallback).
		Msg("supervisor decided")

	obs.OnStep(ctx, contractx.Step{
		Kind:      contractx.StepSupervisorDecided,
		Number:    out.Steps,
		Action:    decision.Action,
		Worker:    decision.Worker,
		Reasoning: decision.Reasoning,
		Fallback:  decision.Fallback,
		Duration:  time.Since(started),
	})
	return out, nil
}

// StepLimitAnswer is the final answer used when the supervisor never finishes.
func StepLimitAnswer(st statex.AgentState) string {
	contributors := st.Contributors()
	if len(contributors) == 0 {
		return "Stopped after reaching the step limit before any specialist could contribute."
	}

	names := make([]string, 0, len(contributors))
	for _, name := range contributors {
		names = append(names, string(name))
	}
	return fmt.Sprintf(
		"Stopped after reaching the step limit. Specialists consulted: %s.",
		strings.Join(names, ", "),
	)
}
