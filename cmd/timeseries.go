package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dssatview/internal/pipeline"
)

var tsSel selection

var timeseriesCmd = &cobra.Command{
	Use:   "timeseries",
	Short: "Plot simulated variables over time against observations",
	Example: `  dssatview timeseries -f Maize -e UFGA8201.MZX -y CWAD,LAID
  dssatview timeseries -f Maize --file PlantGro.OUT -x DAP -y LAID -t 1,2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		req, err := tsSel.timeSeriesRequest(a)
		if err != nil {
			return err
		}
		ts, err := runTimeSeries(cmd.Context(), a, req)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), ts)
		}
		printTimeSeries(cmd.OutOrStdout(), ts, a.draw)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(timeseriesCmd)
	tsSel.bindTimeSeries(timeseriesCmd)
}

func runTimeSeries(ctx context.Context, a *app, req pipeline.TimeSeriesRequest) (*pipeline.TimeSeries, error) {
	res := <-pipeline.Run(a.runner, ctx, "timeseries", func(ctx context.Context) (*pipeline.TimeSeries, error) {
		return a.engine.PlotTimeSeries(ctx, req)
	})
	return res.Value, explain(res.Err)
}

func runScatter(ctx context.Context, a *app, req pipeline.ScatterRequest) (*pipeline.Scatter, error) {
	res := <-pipeline.Run(a.runner, ctx, "scatter", func(ctx context.Context) (*pipeline.Scatter, error) {
		return a.engine.PlotScatter(ctx, req)
	})
	return res.Value, explain(res.Err)
}

// explain adds a configuration hint to folder resolution errors.
func explain(err error) error {
	var ce *pipeline.ConfigError
	if errors.As(err, &ce) && ce.Folder != "" {
		return fmt.Errorf("%w (check dssat_base or set folders.%s with 'dssatview config set')", err, ce.Folder)
	}
	return err
}
