package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	orchestratorx "github.com/tanpawarit/supervisor-agent/agent/agents/orchestrator"
	"github.com/tanpawarit/supervisor-agent/chat"
)

var askCmd = &cobra.Command{
	Use:   "ask <task>",
	Short: "Run a single task and print every specialist's contribution",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer rt.Close()

		task := strings.Join(args, " ")
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", color.CyanString("Task:"), task)

		var opts []orchestratorx.RunOption
		if !quiet {
			opts = append(opts, orchestratorx.WithObserver(chat.ProgressPrinter(out)))
		}
		res, err := rt.orchestrator.Run(cmd.Context(), task, opts...)
		if err != nil {
			return err
		}

		printResult(out, res)
		return nil
	},
}

func printResult(out io.Writer, res orchestratorx.Result) {
	fmt.Fprintf(out, "\n%s\n%s\n", color.GreenString("Final answer:"), res.FinalAnswer)

	fmt.Fprintf(out, "\n%s\n", color.MagentaString("Detailed worker contributions:"))
	for _, name := range res.Contributors() {
		fmt.Fprintf(out, "\n%s\n%s\n", color.YellowString("[%s]", name), res.WorkerResults[name])
	}
}

func init() {
	askCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide per-step progress")
}
