package specialist

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/supervisor-agent/agent/contract"
	promptx "github.com/tanpawarit/supervisor-agent/agent/prompt"
	statex "github.com/tanpawarit/supervisor-agent/agent/state"
)

type supervisorImpl struct {
	runner             compose.Runnable[map[string]any, *schema.Message]
	parser             schema.MessageParser[supervisorLLMOutput]
	budget             *promptx.Budget
	formatInstructions string
}

var _ contractx.Supervisor = (*supervisorImpl)(nil)

type supervisorLLMOutput struct {
	NextAction     string `json:"next_action" jsonschema:"enum=assign_worker,enum=finish,description=What to do next"`
	WorkerToAssign string `json:"worker_to_assign,omitempty" jsonschema:"enum=researcher,enum=coder,enum=analyst,description=Which worker to assign next (if applicable)"`
	Reasoning      string `json:"reasoning" jsonschema:"description=Explanation for your decision"`
	FinalAnswer    string `json:"final_answer,omitempty" jsonschema:"description=Final answer to the task (if applicable)"`
}

func newSupervisor(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	template string,
	budget *promptx.Budget,
) (*supervisorImpl, error) {
	runner, err := compilePromptGraph(ctx, chatModel, template, "supervisor.decision_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile supervisor graph: %v", contractx.ErrModelInvoke, err)
	}

	instructions, err := promptx.FormatInstructions[supervisorLLMOutput]()
	if err != nil {
		return nil, fmt.Errorf("%w: supervisor format instructions: %v", contractx.ErrPromptMissing, err)
	}

	return &supervisorImpl{
		runner: runner,
		parser: schema.NewMessageJSONParser[supervisorLLMOutput](&schema.MessageJSONParseConfig{
			ParseFrom: schema.MessageParseFromContent,
		}),
		budget:             budget,
		formatInstructions: instructions,
	}, nil
}

// Decide asks the model for the next step. A reply that does not parse is
// not an error: it becomes the terminal fallback decision.
func (s *supervisorImpl) Decide(ctx context.Context, st statex.AgentState) (contractx.Decision, error) {
	msg, err := s.runner.Invoke(ctx, map[string]any{
		"task":                st.Task,
		"worker_results":      s.budget.Render(st.WorkerResults),
		"format_instructions": s.formatInstructions,
	})
	if err != nil {
		return contractx.Decision{}, fmt.Errorf("%w: supervisor invoke: %v", contractx.ErrModelInvoke, err)
	}

	decision, err := s.parse(ctx, msg)
	if err != nil {
		log.Warn().Err(err).Int("step", st.Steps+1).Msg("supervisor reply rejected, finishing with fallback answer")
		return contractx.FallbackDecision(err), nil
	}
	return decision, nil
}

func (s *supervisorImpl) parse(ctx context.Context, msg *schema.Message) (contractx.Decision, error) {
	if msg == nil {
		return contractx.Decision{}, fmt.Errorf("%w: empty supervisor response", contractx.ErrSchemaViolation)
	}

	raw, err := extractJSONObject(msg.Content)
	if err != nil {
		return contractx.Decision{}, err
	}

	out, err := s.parser.Parse(ctx, &schema.Message{Role: schema.Assistant, Content: raw})
	if err != nil {
		return contractx.Decision{}, fmt.Errorf("%w: %v", contractx.ErrSchemaViolation, err)
	}

	return toDecision(out)
}

func toDecision(out supervisorLLMOutput) (contractx.Decision, error) {
	action := statex.NextAction(strings.ToLower(strings.TrimSpace(out.NextAction)))
	reasoning := strings.TrimSpace(out.Reasoning)

	switch action {
	case statex.ActionFinish:
		answer := strings.TrimSpace(out.FinalAnswer)
		if answer == "" {
			return contractx.Decision{}, fmt.Errorf("%w: finish requires final_answer", contractx.ErrSchemaViolation)
		}
		return contractx.Decision{
			Action:      statex.ActionFinish,
			Reasoning:   reasoning,
			FinalAnswer: answer,
		}, nil
	case statex.ActionAssignWorker:
		// Unknown names pass through; routing turns them into ErrUnknownWorker.
		worker, _ := statex.ParseWorkerName(out.WorkerToAssign)
		return contractx.Decision{
			Action:    statex.ActionAssignWorker,
			Worker:    worker,
			Reasoning: reasoning,
		}, nil
	default:
		return contractx.Decision{}, fmt.Errorf("%w: unsupported next_action=%q", contractx.ErrSchemaViolation, out.NextAction)
	}
}
