package cmd

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/KaramelBytes/dssatview/internal/metrics"
	"github.com/KaramelBytes/dssatview/internal/pipeline"
	"github.com/KaramelBytes/dssatview/internal/render"
	"github.com/KaramelBytes/dssatview/internal/utils"
)

const sparkWidth = 48

func printJSON(w io.Writer, v any) error {
	b, err := utils.PrettyJSON(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// newTable returns a table writer with the given header. Cells are never
// wrapped so labels stay on one line.
func newTable(w io.Writer, header ...string) *tablewriter.Table {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(header)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	return tw
}

func printMetrics(w io.Writer, recs []metrics.Record) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No paired observations to score.")
		return
	}
	tw := newTable(w, "VARIABLE", "TREATMENT", "N", "RMSE", "NRMSE%", "R²", "D-STAT", "NOTE")
	for _, r := range recs {
		trt := r.Treatment
		if r.TreatmentName != "" {
			trt = fmt.Sprintf("%s (%s)", r.Treatment, r.TreatmentName)
		}
		r2 := "-"
		if r.R2Reported {
			r2 = fmt.Sprintf("%.3f", r.R2)
		}
		note := ""
		if r.LowConfidence() {
			note = "⚠ too few points"
		}
		tw.Append([]string{
			r.Label,
			trt,
			fmt.Sprintf("%d", r.N),
			fmt.Sprintf("%.2f", r.RMSE),
			fmt.Sprintf("%.1f", r.NRMSE),
			r2,
			fmt.Sprintf("%.3f", r.DStat),
			note,
		})
	}
	tw.Render()
}

func printTimeSeries(w io.Writer, ts *pipeline.TimeSeries, opt render.Options) {
	if ts.Empty {
		fmt.Fprintf(w, "⚠ Nothing to plot: %s\n", ts.Reason)
		return
	}
	fmt.Fprintf(w, "X axis: %s", ts.XLabel)
	if ts.Axis != "" {
		fmt.Fprintf(w, " (%s)", ts.Axis)
	}
	fmt.Fprintln(w)
	st := render.Draw(render.NewTextSurface(w, sparkWidth), ts.Series, opt)
	for _, line := range ts.FactorLines() {
		fmt.Fprintf(w, "  scale: %s\n", line)
	}
	fmt.Fprintf(w, "Drew %d series (%d of %d points)\n\n", st.Series, st.PointsDrawn, st.PointsIn)
	printMetrics(w, ts.Metrics)
	if ts.CacheHit {
		fmt.Fprintln(w, "(cached)")
	}
}

func printScatter(w io.Writer, sc *pipeline.Scatter, opt render.Options) {
	if sc.Empty {
		fmt.Fprintf(w, "⚠ Nothing to plot: %s\n", sc.Reason)
		return
	}
	if sc.Dropped > 0 {
		fmt.Fprintf(w, "⚠ Warning: %d variable pairs beyond the %d panel limit were dropped\n", sc.Dropped, render.MaxPanels)
	}
	fmt.Fprintf(w, "Grid %dx%d, treatments %v\n", sc.Rows, sc.Cols, sc.Treatments)
	for _, p := range sc.Panels {
		fmt.Fprintf(w, "\n[%d,%d] %s (%s vs %s)\n", p.Row, p.Col, p.Pair.DisplayName, p.Pair.SimVar, p.Pair.MeasVar)
		if p.HasRange {
			fmt.Fprintf(w, "  1:1 line %.2f to %.2f\n", p.Lo, p.Hi)
		}
		render.Draw(render.NewTextSurface(w, sparkWidth), p.Series, opt)
		printMetrics(w, []metrics.Record{p.Metrics})
	}
	if sc.CacheHit {
		fmt.Fprintln(w, "(cached)")
	}
}
