package cmd

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	contractx "github.com/tanpawarit/supervisor-agent/agent/contract"
	llmx "github.com/tanpawarit/supervisor-agent/agent/llm"
	configx "github.com/tanpawarit/supervisor-agent/pkg/config"
	openaix "github.com/tanpawarit/supervisor-agent/pkg/openai"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the API key and that every configured model exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		llmCfg, err := configx.New[llmx.Config]("OPENAI")
		if err != nil {
			return err
		}
		if err := llmCfg.Validate(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		roles := []contractx.AgentType{
			contractx.AgentTypeSupervisor,
			contractx.AgentTypeResearcher,
			contractx.AgentTypeCoder,
			contractx.AgentTypeAnalyst,
		}

		checked := make(map[string]error, len(roles))
		var failed bool
		for _, role := range roles {
			roleCfg := llmCfg.OpenAIFor(role)
			err, seen := checked[roleCfg.Model]
			if !seen {
				_, err = openaix.CheckModel(cmd.Context(), openaix.NewClient(roleCfg), roleCfg.Model)
				checked[roleCfg.Model] = err
			}

			if err != nil {
				failed = true
				fmt.Fprintf(out, "%s %-10s %s: %v\n", color.RedString("FAIL"), role, roleCfg.Model, err)
				continue
			}
			fmt.Fprintf(out, "%s %-10s %s\n", color.GreenString("ok"), role, roleCfg.Model)
		}

		if failed {
			return errors.New("model check failed")
		}
		return nil
	},
}
