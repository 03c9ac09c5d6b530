package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dssatview/internal/pipeline"
)

// defaultOutput is the simulation output read when no --file is given.
const defaultOutput = "PlantGro.OUT"

// selection holds the flags that pick data for a plot.
type selection struct {
	folder     string
	files      []string
	experiment string
	treatments []string
	xVar       string
	yVars      []string
	pairs      []string
}

func (s *selection) bindFolder(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.folder, "folder", "f", "", "crop folder name, e.g. Maize")
	cmd.Flags().StringSliceVarP(&s.treatments, "treatment", "t", nil, "treatment numbers (default all)")
}

func (s *selection) bindTimeSeries(cmd *cobra.Command) {
	s.bindFolder(cmd)
	cmd.Flags().StringSliceVar(&s.files, "file", nil, "simulation output files (default "+defaultOutput+")")
	cmd.Flags().StringVarP(&s.experiment, "experiment", "e", "", "experiment file, e.g. UFGA8201.MZX")
	cmd.Flags().StringVarP(&s.xVar, "x", "x", "", "x axis variable (default DATE)")
	cmd.Flags().StringSliceVarP(&s.yVars, "y", "y", nil, "y variables to plot, e.g. CWAD,LAID")
}

func (s *selection) bindScatter(cmd *cobra.Command) {
	s.bindFolder(cmd)
	cmd.Flags().StringSliceVar(&s.pairs, "pair", nil, "variables to compare by code, e.g. HWAM or HWAMS (default all)")
}

func (s *selection) reset() { *s = selection{} }

func (s *selection) timeSeriesRequest(a *app) (pipeline.TimeSeriesRequest, error) {
	if s.folder == "" {
		return pipeline.TimeSeriesRequest{}, fmt.Errorf("--folder is required")
	}
	if len(s.yVars) == 0 {
		return pipeline.TimeSeriesRequest{}, fmt.Errorf("at least one --y variable is required")
	}
	files := s.files
	if len(files) == 0 {
		files = []string{defaultOutput}
	}
	return pipeline.TimeSeriesRequest{
		Folder:         s.folder,
		Files:          files,
		Experiment:     s.experiment,
		Treatments:     s.treatments,
		XVar:           s.xVar,
		YVars:          s.yVars,
		TreatmentNames: a.treatmentNames(s.folder, s.experiment),
	}, nil
}

// scatterRequest picks the requested pairs out of those EVALUATE.OUT offers.
func (s *selection) scatterRequest(ctx context.Context, a *app) (pipeline.ScatterRequest, error) {
	if s.folder == "" {
		return pipeline.ScatterRequest{}, fmt.Errorf("--folder is required")
	}
	avail, err := a.engine.EvaluatePairs(ctx, s.folder)
	if err != nil {
		return pipeline.ScatterRequest{}, err
	}
	pairs := avail
	if len(s.pairs) > 0 {
		pairs = nil
		for _, want := range s.pairs {
			p, ok := findPair(avail, want)
			if !ok {
				return pipeline.ScatterRequest{}, fmt.Errorf("variable pair %s not found in EVALUATE.OUT", want)
			}
			pairs = append(pairs, p)
		}
	}
	return pipeline.ScatterRequest{Folder: s.folder, Treatments: s.treatments, Pairs: pairs}, nil
}

func findPair(pairs []pipeline.VariablePair, code string) (pipeline.VariablePair, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, p := range pairs {
		if p.SimVar == code || p.MeasVar == code || p.Base() == code {
			return p, true
		}
	}
	return pipeline.VariablePair{}, false
}
