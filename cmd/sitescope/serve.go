package main

import (
	"github.com/spf13/cobra"

	"github.com/sitescope/sitescope/config"
	"github.com/sitescope/sitescope/internal/agent/core"
	"github.com/sitescope/sitescope/internal/agent/telemetry"
	"github.com/sitescope/sitescope/internal/server"
)

func serveCMD() *cobra.Command {
	var cfgPath string
	var addr string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			if addr != "" {
				cfg.Server.Address = addr
			}

			tele := telemetry.NewTelemetry(cfg.Telemetry)
			orch, err := core.NewOrchestrator(cfg, tele)
			if err != nil {
				return err
			}
			return server.New(cfg, orch, tele).Start()
		},
	}
	serve.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	serve.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return serve
}
