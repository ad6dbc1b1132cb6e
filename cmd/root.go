package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	configx "github.com/tanpawarit/supervisor-agent/pkg/config"
	logx "github.com/tanpawarit/supervisor-agent/pkg/logger"
)

var (
	envFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "supervisor-agent",
	Short: "Supervisor with researcher, coder and analyst specialists",
	Long: `supervisor-agent routes each task between a supervisor model and three
specialist workers (researcher, coder, analyst) until the supervisor has
enough to answer.

With no subcommand it starts an interactive chat in the terminal.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configx.SetEnvFile(envFile)

		conf, err := configx.New[logx.Config]("LOG")
		if err != nil {
			return err
		}
		if debug {
			conf.Debug = true
		}
		// serve logs JSON unless asked otherwise; terminal commands read better pretty.
		if cmd.Name() != serveCmd.Name() {
			conf.PrettyFormat = true
		}
		logx.Init(*conf)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context(), cmd)
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Debug().Err(err).Msg("command failed")
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "path to .env file (default ./.env when present)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide per-step progress")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)
}
