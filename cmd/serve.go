package cmd

import (
	"github.com/spf13/cobra"

	configx "github.com/tanpawarit/supervisor-agent/pkg/config"
	"github.com/tanpawarit/supervisor-agent/web"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web chat UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		webCfg, err := configx.New[web.Config]("WEB")
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			webCfg.Addr = serveAddr
		}

		rt, err := newRuntime(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer rt.Close()

		srv, err := web.New(rt.orchestrator, *webCfg, web.WithMetrics(rt.metrics.Handler()))
		if err != nil {
			return err
		}
		return srv.ListenAndServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8501", "listen address (overrides WEB_ADDR)")
}
