package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/tanpawarit/supervisor-agent/agent/contract"
	statex "github.com/tanpawarit/supervisor-agent/agent/state"
)

const (
	nodeSupervisor   = "supervisor"
	nodeWorkerRouter = "worker_router"
	nodeResearcher   = string(statex.WorkerResearcher)
	nodeCoder        = string(statex.WorkerCoder)
	nodeAnalyst      = string(statex.WorkerAnalyst)
)

// RouteAction picks the successor of the supervisor node.
func RouteAction(st statex.AgentState) (string, error) {
	switch st.NextAction {
	case statex.ActionAssignWorker:
		return nodeWorkerRouter, nil
	case statex.ActionFinish:
		return compose.END, nil
	default:
		return "", fmt.Errorf("%w: %q after supervisor", contractx.ErrInvalidAction, st.NextAction)
	}
}

// RouteWorker picks the worker node named by CurrentWorker.
func RouteWorker(st statex.AgentState) (string, error) {
	switch st.CurrentWorker {
	case statex.WorkerResearcher:
		return nodeResearcher, nil
	case statex.WorkerCoder:
		return nodeCoder, nil
	case statex.WorkerAnalyst:
		return nodeAnalyst, nil
	default:
		return "", fmt.Errorf("%w: %q", contractx.ErrUnknownWorker, st.CurrentWorker)
	}
}

func actionBranch() *compose.GraphBranch {
	return compose.NewGraphBranch(
		func(ctx context.Context, st statex.AgentState) (string, error) {
			next, err := RouteAction(st)
			return next, recordFailure(ctx, err)
		},
		map[string]bool{nodeWorkerRouter: true, compose.END: true},
	)
}

func workerBranch() *compose.GraphBranch {
	return compose.NewGraphBranch(
		func(ctx context.Context, st statex.AgentState) (string, error) {
			next, err := RouteWorker(st)
			return next, recordFailure(ctx, err)
		},
		map[string]bool{nodeResearcher: true, nodeCoder: true, nodeAnalyst: true},
	)
}
