package specialist

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/supervisor-agent/agent/contract"
	statex "github.com/tanpawarit/supervisor-agent/agent/state"
)

type workerImpl struct {
	name        statex.WorkerName
	description string
	runner      compose.Runnable[map[string]any, *schema.Message]
}

var _ contractx.Worker = (*workerImpl)(nil)

func newWorker(
	ctx context.Context,
	name statex.WorkerName,
	chatModel einomodel.BaseChatModel,
	template string,
) (*workerImpl, error) {
	if !name.Valid() {
		return nil, fmt.Errorf("%w: %q", contractx.ErrUnknownWorker, name)
	}

	runner, err := compilePromptGraph(ctx, chatModel, template, "worker."+string(name))
	if err != nil {
		return nil, fmt.Errorf("%w: compile worker graph: %v", contractx.ErrModelInvoke, err)
	}

	return &workerImpl{
		name:        name,
		description: contractx.WorkerDescriptions[name],
		runner:      runner,
	}, nil
}

func (w *workerImpl) Name() statex.WorkerName {
	return w.name
}

// Run makes one model call and records the reply under the worker's name.
// Failures are returned as-is to the caller; there is no retry.
func (w *workerImpl) Run(ctx context.Context, st statex.AgentState) (statex.AgentState, error) {
	msg, err := w.runner.Invoke(ctx, map[string]any{
		"name":        string(w.name),
		"description": w.description,
		"task":        st.Task,
	})
	if err != nil {
		return st, fmt.Errorf("%w: worker=%s: %v", contractx.ErrModelInvoke, w.name, err)
	}
	if msg == nil {
		return st, fmt.Errorf("%w: worker=%s returned no message", contractx.ErrSchemaViolation, w.name)
	}

	return st.WithWorkerResult(w.name, strings.TrimSpace(msg.Content)), nil
}
