package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sitescope/sitescope/config"
	"github.com/sitescope/sitescope/internal/agent/core"
	"github.com/sitescope/sitescope/internal/agent/telemetry"
)

// analyzeInput is the one-shot input file: the same shape the API takes.
type analyzeInput struct {
	BusinessContext core.BusinessContext `json:"business_context"`
	BaselineMetrics core.BaselineMetrics `json:"baseline_metrics"`
}

func analyzeCMD() *cobra.Command {
	var cfgPath string
	var inputPath string
	var analyze = &cobra.Command{
		Use:   "analyze",
		Short: "Run one analysis synchronously and print the result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath == "" {
				return fmt.Errorf("--input is required")
			}
			raw, err := os.ReadFile(inputPath)
			if err != nil {
				return fmt.Errorf("reading input: %w", err)
			}
			var input analyzeInput
			if err := json.Unmarshal(raw, &input); err != nil {
				return fmt.Errorf("parsing input: %w", err)
			}

			cfg := config.LoadConfig(cfgPath)
			tele := telemetry.NewTelemetry(cfg.Telemetry)
			orch, err := core.NewOrchestrator(cfg, tele)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if cfg.General.MaxProcessingTime > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.General.MaxProcessingTime)
				defer cancel()
			}

			run := orch.RunAnalysis(ctx, input.BusinessContext, input.BaselineMetrics)
			out, err := json.MarshalIndent(run, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding result: %w", err)
			}
			fmt.Println(string(out))
			if run.Status != core.StatusCompleted {
				return fmt.Errorf("analysis finished with status %s", run.Status)
			}
			return nil
		},
	}
	analyze.Flags().StringVar(&inputPath, "input", "", "path to JSON file with business_context and baseline_metrics")
	analyze.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return analyze
}
