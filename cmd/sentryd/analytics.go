package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Show average and recent samples for a recorded metric",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(configFile)
		if err != nil {
			return err
		}
		defer a.Close()

		metric, _ := cmd.Flags().GetString("metric")
		limit, _ := cmd.Flags().GetInt("limit")

		avg, err := a.store.AverageMetric(metric)
		if err != nil {
			return fmt.Errorf("average metric: %w", err)
		}
		samples, err := a.store.RecentMetrics(metric, limit)
		if err != nil {
			return fmt.Errorf("recent metrics: %w", err)
		}
		return printJSON(map[string]any{"metric": metric, "average": avg, "samples": samples})
	},
}

func init() {
	analyticsCmd.Flags().String("metric", "scheduler.sweep_duration_seconds", "metric name to report")
	analyticsCmd.Flags().Int("limit", 20, "maximum number of recent samples to include")
}
