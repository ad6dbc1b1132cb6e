package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/tanpawarit/supervisor-agent/chat"
)

var quiet bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the supervisor in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context(), cmd)
	},
}

func runChat(ctx context.Context, cmd *cobra.Command) error {
	rt, err := newRuntime(ctx, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	repl := chat.NewREPL(os.Stdin, cmd.OutOrStdout(), rt.orchestrator)
	repl.Quiet = quiet
	if err := repl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func init() {
	chatCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide per-step progress")
}
