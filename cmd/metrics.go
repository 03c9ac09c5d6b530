package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dssatview/internal/metrics"
	"github.com/KaramelBytes/dssatview/internal/pipeline"
)

var mtSel selection

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Score simulated against observed values (RMSE, R², d-stat)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		req, err := mtSel.timeSeriesRequest(a)
		if err != nil {
			return err
		}
		res := <-pipeline.Run(a.runner, cmd.Context(), "metrics", func(ctx context.Context) ([]metrics.Record, error) {
			return a.engine.Metrics(ctx, req)
		})
		if res.Err != nil {
			return explain(res.Err)
		}
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), res.Value)
		}
		printMetrics(cmd.OutOrStdout(), res.Value)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(metricsCmd)
	mtSel.bindTimeSeries(metricsCmd)
}
