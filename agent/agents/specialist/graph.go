package specialist

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/tidwall/gjson"

	contractx "github.com/tanpawarit/supervisor-agent/agent/contract"
)

// compilePromptGraph wires prompt -> model. The template is a single user
// message with FString placeholders filled from the invoke variables.
func compilePromptGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	userTemplate string,
	graphName string,
) (compose.Runnable[map[string]any, *schema.Message], error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is nil for %s", contractx.ErrValidation, graphName)
	}
	if strings.TrimSpace(userTemplate) == "" {
		return nil, fmt.Errorf("%w: template for %s", contractx.ErrPromptMissing, graphName)
	}

	template := einoprompt.FromMessages(
		schema.FString,
		schema.UserMessage(userTemplate),
	)

	graph := compose.NewGraph[map[string]any, *schema.Message]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add edge model->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", graphName, err)
	}
	return runner, nil
}

// extractJSONObject pulls the outermost JSON object out of a model reply,
// tolerating code fences and surrounding prose.
func extractJSONObject(content string) (string, error) {
	text := strings.TrimSpace(content)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", fmt.Errorf("%w: reply contains no JSON object", contractx.ErrSchemaViolation)
	}
	candidate := text[start : end+1]
	if !gjson.Valid(candidate) {
		return "", fmt.Errorf("%w: reply JSON is malformed", contractx.ErrSchemaViolation)
	}
	return candidate, nil
}
