package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/supervisor-agent/agent/contract"
	openaix "github.com/tanpawarit/supervisor-agent/pkg/openai"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.openai.com/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" default:"gpt-4o"`
	Organization       string        `envconfig:"ORGANIZATION" split_words:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.2"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"60s"`

	SupervisorModel       string  `envconfig:"SUPERVISOR_MODEL" split_words:"true"`
	ResearcherModel       string  `envconfig:"RESEARCHER_MODEL" split_words:"true"`
	CoderModel            string  `envconfig:"CODER_MODEL" split_words:"true"`
	AnalystModel          string  `envconfig:"ANALYST_MODEL" split_words:"true"`
	SupervisorTemperature float32 `envconfig:"SUPERVISOR_TEMPERATURE" split_words:"true" default:"-1"`
	ResearcherTemperature float32 `envconfig:"RESEARCHER_TEMPERATURE" split_words:"true" default:"-1"`
	CoderTemperature      float32 `envconfig:"CODER_TEMPERATURE" split_words:"true" default:"-1"`
	AnalystTemperature    float32 `envconfig:"ANALYST_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openai api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// OpenAIFor resolves the model settings for one agent, applying its overrides.
func (c Config) OpenAIFor(agentType contractx.AgentType) openaix.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	override := func(m string, t float32) {
		if v := strings.TrimSpace(m); v != "" {
			modelName = v
		}
		if t >= 0 {
			temp = t
		}
	}

	switch agentType {
	case contractx.AgentTypeSupervisor:
		override(c.SupervisorModel, c.SupervisorTemperature)
	case contractx.AgentTypeResearcher:
		override(c.ResearcherModel, c.ResearcherTemperature)
	case contractx.AgentTypeCoder:
		override(c.CoderModel, c.CoderTemperature)
	case contractx.AgentTypeAnalyst:
		override(c.AnalystModel, c.AnalystTemperature)
	}

	maxCompletionToken := c.MaxCompletionToken
	return openaix.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		Organization:       strings.TrimSpace(c.Organization),
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
	}
}
