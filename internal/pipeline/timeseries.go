package pipeline

import (
	"context"
	"fmt"
	"maps"
	"math"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/KaramelBytes/dssatview/internal/align"
	"github.com/KaramelBytes/dssatview/internal/axis"
	"github.com/KaramelBytes/dssatview/internal/metrics"
	"github.com/KaramelBytes/dssatview/internal/plotcache"
	"github.com/KaramelBytes/dssatview/internal/render"
	"github.com/KaramelBytes/dssatview/internal/scale"
	"github.com/KaramelBytes/dssatview/internal/table"
)

// DefaultXVar is the axis used when a request names none.
const DefaultXVar = "DATE"

// TimeSeriesRequest selects simulation outputs, an experiment and variables.
type TimeSeriesRequest struct {
	Folder         string            `json:"folder"`
	Files          []string          `json:"files"`
	Experiment     string            `json:"experiment,omitempty"`
	Treatments     []string          `json:"treatments,omitempty"`
	XVar           string            `json:"x_var,omitempty"`
	YVars          []string          `json:"y_vars"`
	TreatmentNames map[string]string `json:"treatment_names,omitempty"`
}

// Key is the cache identity of the request. Treatment names only affect
// labels and are not part of it.
func (r TimeSeriesRequest) Key() plotcache.Key {
	x := r.XVar
	if x == "" {
		x = DefaultXVar
	}
	ys := make([]string, len(r.YVars))
	for i, y := range r.YVars {
		ys[i] = table.NormalizeName(y)
	}
	return plotcache.Key{
		Folder:     r.Folder,
		Files:      r.Files,
		Experiment: r.Experiment,
		Treatments: r.Treatments,
		XVar:       table.NormalizeName(x),
		YVars:      ys,
	}
}

// TimeSeries is a finished time series plot.
type TimeSeries struct {
	Key        plotcache.Key           `json:"key"`
	XVar       string                  `json:"x_var"`
	XLabel     string                  `json:"x_label"`
	Variables  []string                `json:"variables"`
	Labels     map[string]string       `json:"labels"`
	Treatments []string                `json:"treatments"`
	Factors    map[string]scale.Factor `json:"factors"`
	Series     []render.Series         `json:"series"`
	Legend     render.Legend           `json:"legend"`
	Metrics    []metrics.Record        `json:"metrics"`
	Axis       string                  `json:"axis,omitempty"`

	// Sim and Obs hold the scaled tables.
	Sim *table.Table `json:"-"`
	Obs *table.Table `json:"-"`

	Empty    bool   `json:"empty,omitempty"`
	Reason   string `json:"reason,omitempty"`
	CacheHit bool   `json:"cache_hit"`
}

// clone copies every slice and map so callers cannot reach the cached value.
// Sim and Obs are never modified after construction and stay shared.
func (ts *TimeSeries) clone() *TimeSeries {
	out := *ts
	out.Key = ts.Key.Clone()
	out.Variables = slices.Clone(ts.Variables)
	out.Labels = maps.Clone(ts.Labels)
	out.Treatments = slices.Clone(ts.Treatments)
	out.Factors = maps.Clone(ts.Factors)
	out.Series = render.CloneSeries(ts.Series)
	out.Legend = ts.Legend.Clone()
	out.Metrics = slices.Clone(ts.Metrics)
	return &out
}

// FactorLines renders the scaling factor of each drawn variable.
func (ts *TimeSeries) FactorLines() []string {
	var out []string
	for _, v := range ts.Variables {
		if f, ok := ts.Factors[v]; ok {
			out = append(out, f.String(ts.Labels[v]))
		}
	}
	return out
}

// PlotTimeSeries builds, or returns from cache, the time series for req.
func (e *Engine) PlotTimeSeries(ctx context.Context, req TimeSeriesRequest) (*TimeSeries, error) {
	done := e.metrics.Stage("timeseries")
	defer done()
	if req.Folder == "" {
		return nil, &ConfigError{Err: fmt.Errorf("folder is required")}
	}
	v, hit, err := e.series.GetOrCompute(req.Key(), func() (*TimeSeries, error) {
		return e.buildTimeSeries(ctx, req)
	})
	e.metrics.Request("timeseries", err)
	if err != nil {
		return nil, err
	}
	out := v.clone()
	out.CacheHit = hit
	return out, nil
}

// Metrics returns the agreement records of the time series for req.
func (e *Engine) Metrics(ctx context.Context, req TimeSeriesRequest) ([]metrics.Record, error) {
	ts, err := e.PlotTimeSeries(ctx, req)
	if err != nil {
		return nil, err
	}
	return ts.Metrics, nil
}

func (e *Engine) buildTimeSeries(ctx context.Context, req TimeSeriesRequest) (*TimeSeries, error) {
	key := req.Key()
	x := key.XVar
	ts := &TimeSeries{Key: key, XVar: x, XLabel: e.Label(x), Labels: map[string]string{}}
	log := e.log.With(zap.String("folder", req.Folder))

	dir, err := e.resolve(req.Folder)
	if err != nil {
		return nil, err
	}

	sim, err := e.loadSimulation(ctx, dir, req.Files, log)
	if err != nil {
		return nil, err
	}
	if sim.Empty() {
		ts.Empty, ts.Reason = true, "no simulation data loaded"
		return ts, nil
	}
	obs, err := e.loadObserved(ctx, req, log)
	if err != nil {
		return nil, err
	}

	done := e.metrics.Stage("dates")
	sim = e.unifier.WithDateColumn(sim)
	obs = e.unifier.WithDateColumn(obs)
	done()

	done = e.metrics.Stage("axis")
	if !sim.Has(x) {
		var o axis.Outcome
		sim, o = axis.Synthesize(sim, x, nil, log)
		log.Debug("simulation axis synthesized", zap.String("variable", x), zap.Stringer("outcome", o))
	}
	var outcome axis.Outcome
	obs, outcome = axis.Synthesize(obs, x, sim, log)
	ts.Axis = outcome.String()
	e.metrics.Axis(ts.Axis)
	done()

	for _, y := range key.YVars {
		c, ok := sim.Column(y)
		if !ok || c.Kind() != table.KindNumeric {
			log.Warn("variable not in simulation output", zap.String("variable", y))
			continue
		}
		ts.Variables = append(ts.Variables, y)
		ts.Labels[y] = e.Label(y)
	}
	if len(ts.Variables) == 0 {
		ts.Empty = true
		ts.Reason = fmt.Sprintf("none of %s found in simulation output", strings.Join(key.YVars, ", "))
		return ts, nil
	}

	ts.Treatments = selectKeys(req.Treatments, sim, obs)
	sim = onlyTreatments(sim, ts.Treatments)
	obs = onlyTreatments(obs, ts.Treatments)

	done = e.metrics.Stage("scale")
	ts.Factors = scale.Compute(sim, ts.Variables, e.opt.Scale)
	ts.Sim = scale.Apply(sim, ts.Factors)
	if !obs.Empty() {
		ts.Obs = scale.Apply(obs, ts.Factors)
	}
	done()

	done = e.metrics.Stage("series")
	ts.Series = append(e.seriesFor(render.Simulated, ts.Sim, ts, req.TreatmentNames),
		e.seriesFor(render.Observed, ts.Obs, ts, req.TreatmentNames)...)
	ts.Legend = render.BuildLegend(ts.Series)
	done()

	if !obs.Empty() {
		done = e.metrics.Stage("metrics")
		ts.Metrics = metrics.ComputeAll(sim, obs, ts.Variables, ts.Treatments, metrics.Options{
			ReportR2:       e.opt.ReportR2,
			Label:          e.Label,
			TreatmentNames: req.TreatmentNames,
			Log:            log,
		})
		done()
	}
	return ts, nil
}

func (e *Engine) loadSimulation(ctx context.Context, dir string, files []string, log *zap.Logger) (*table.Table, error) {
	var parts []*table.Table
	for _, f := range files {
		t, err := e.load(ctx, dir, f)
		if err != nil {
			if isCancel(err) {
				return nil, err
			}
			log.Warn("simulation output unreadable", zap.String("file", f), zap.Error(err))
			continue
		}
		if t.Empty() {
			continue
		}
		names := make([]string, t.Len())
		for i := range names {
			names[i] = filepath.Base(f)
		}
		if nt, err := t.With(table.NewStrings("FILE", table.KindCategorical, names)); err == nil {
			t = nt
		}
		parts = append(parts, t)
	}
	if len(parts) == 0 {
		return nil, nil
	}
	return table.Concat(parts...)
}

// loadObserved returns nil when no experiment is selected or its
// observations are unavailable.
func (e *Engine) loadObserved(ctx context.Context, req TimeSeriesRequest, log *zap.Logger) (*table.Table, error) {
	if req.Experiment == "" {
		return nil, nil
	}
	p, err := e.resolver.ObservedFile(req.Folder, req.Experiment)
	if err != nil {
		if unknownFolder(err) {
			return nil, &ConfigError{Folder: req.Folder, Err: err}
		}
		log.Warn("observed data unavailable", zap.String("experiment", req.Experiment), zap.Error(err))
		return nil, nil
	}
	t, err := e.load(ctx, "", p)
	if err != nil {
		if isCancel(err) {
			return nil, err
		}
		log.Warn("observed data unreadable", zap.String("file", p), zap.Error(err))
		return nil, nil
	}
	return t, nil
}

// seriesFor builds one series per drawn variable and selected treatment
// holding at least one point. Colors follow the treatment's position in the
// selection.
func (e *Engine) seriesFor(src render.Source, t *table.Table, ts *TimeSeries, names map[string]string) []render.Series {
	if t.Empty() {
		return nil
	}
	xs := axisValues(t, ts.XVar)
	trts := align.Treatments(t)
	var out []render.Series
	for vi, v := range ts.Variables {
		c, ok := t.Column(v)
		if !ok || c.Kind() != table.KindNumeric {
			continue
		}
		for ti, k := range ts.Treatments {
			s := render.Series{
				Source:        src,
				Variable:      v,
				Label:         ts.Labels[v],
				Treatment:     k,
				TreatmentName: render.TreatmentDisplay(k, names),
				Style:         render.StyleFor(src, ti, vi, len(ts.Treatments)),
			}
			for i := 0; i < t.Len(); i++ {
				if trts[i] != k {
					continue
				}
				y, ok := c.Float(i)
				if !ok || math.IsNaN(xs[i]) {
					continue
				}
				s.X = append(s.X, xs[i])
				s.Y = append(s.Y, y)
			}
			if s.Len() > 0 {
				out = append(out, s)
			}
		}
	}
	return out
}

// axisValues returns x as float64: numeric values as-is, dates as Unix
// seconds, anything else NaN.
func axisValues(t *table.Table, x string) []float64 {
	out := make([]float64, t.Len())
	c, ok := t.Column(x)
	for i := range out {
		out[i] = math.NaN()
		if !ok {
			continue
		}
		switch c.Kind() {
		case table.KindNumeric:
			if v, ok := c.Float(i); ok {
				out[i] = v
			}
		case table.KindDate:
			if d, ok := c.Date(i); ok {
				out[i] = float64(d.Unix())
			}
		}
	}
	return out
}
