package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	nodex "github.com/tanpawarit/supervisor-agent/agent/nodes"
	statex "github.com/tanpawarit/supervisor-agent/agent/state"
)

func (o *Orchestrator) compileSupervisorGraph(
	ctx context.Context,
) (compose.Runnable[statex.AgentState, statex.AgentState], error) {
	graph := compose.NewGraph[statex.AgentState, statex.AgentState]()

	if err := graph.AddLambdaNode(nodeSupervisor,
		compose.InvokableLambda(func(ctx context.Context, in statex.AgentState) (statex.AgentState, error) {
			out, err := nodex.Supervise(ctx, in, o.models.Supervisor(), o.maxSteps)
			return out, recordFailure(ctx, err)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeSupervisor, err)
	}

	if err := graph.AddLambdaNode(nodeWorkerRouter,
		compose.InvokableLambda(func(ctx context.Context, in statex.AgentState) (statex.AgentState, error) {
			log.Debug().Str("worker", string(in.CurrentWorker)).Msg("routing to worker")
			return in, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeWorkerRouter, err)
	}

	for _, name := range statex.Workers() {
		worker, err := nodex.PickWorker(name, o.models)
		if err != nil {
			return nil, err
		}
		if err := graph.AddLambdaNode(string(name),
			compose.InvokableLambda(func(ctx context.Context, in statex.AgentState) (statex.AgentState, error) {
				out, err := nodex.RunWorker(ctx, in, worker)
				return out, recordFailure(ctx, err)
			}),
		); err != nil {
			return nil, fmt.Errorf("add node %s: %w", name, err)
		}
	}

	edges := [][2]string{
		{compose.START, nodeSupervisor},
		{nodeResearcher, nodeSupervisor},
		{nodeCoder, nodeSupervisor},
		{nodeAnalyst, nodeSupervisor},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	if err := graph.AddBranch(nodeSupervisor, actionBranch()); err != nil {
		return nil, fmt.Errorf("add branch %s: %w", nodeSupervisor, err)
	}
	if err := graph.AddBranch(nodeWorkerRouter, workerBranch()); err != nil {
		return nil, fmt.Errorf("add branch %s: %w", nodeWorkerRouter, err)
	}

	runner, err := graph.Compile(ctx,
		compose.WithGraphName("orchestrator.supervisor_workflow"),
		compose.WithNodeTriggerMode(compose.AnyPredecessor),
		compose.WithMaxRunSteps(maxRunSteps(o.maxSteps)),
	)
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}

// maxRunSteps bounds graph supersteps: each decision costs at most a
// supervisor, router and worker step, plus the final supervisor and END.
func maxRunSteps(maxSteps int) int {
	return 3*maxSteps + 4
}
