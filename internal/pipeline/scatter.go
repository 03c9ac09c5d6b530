package pipeline

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/KaramelBytes/dssatview/internal/align"
	"github.com/KaramelBytes/dssatview/internal/dssat"
	"github.com/KaramelBytes/dssatview/internal/metrics"
	"github.com/KaramelBytes/dssatview/internal/plotcache"
	"github.com/KaramelBytes/dssatview/internal/render"
	"github.com/KaramelBytes/dssatview/internal/table"
)

// VariablePair selects one simulated/measured column pair of EVALUATE.OUT.
type VariablePair struct {
	DisplayName string `json:"display_name"`
	SimVar      string `json:"sim_var"`
	MeasVar     string `json:"meas_var"`
}

// Base is the variable code shared by the pair, e.g. "HWAM" for HWAMS/HWAMM.
func (p VariablePair) Base() string {
	if b, ok := strings.CutSuffix(p.SimVar, "S"); ok && b != "" {
		return b
	}
	return p.SimVar
}

func (p VariablePair) String() string {
	return strconv.Quote(p.DisplayName) + "," + strconv.Quote(p.SimVar) + "," + strconv.Quote(p.MeasVar)
}

// ScatterRequest selects a folder, treatments and variable pairs.
type ScatterRequest struct {
	Folder         string            `json:"folder"`
	Treatments     []string          `json:"treatments,omitempty"`
	Pairs          []VariablePair    `json:"pairs"`
	TreatmentNames map[string]string `json:"treatment_names,omitempty"`
}

// Key is the cache identity of the request.
func (r ScatterRequest) Key() plotcache.Key {
	ys := make([]string, len(r.Pairs))
	for i, p := range r.Pairs {
		ys[i] = p.String()
	}
	return plotcache.Key{Folder: r.Folder, Files: []string{dssat.EvaluateFile}, Treatments: r.Treatments, YVars: ys}
}

// Panel is one simulated-versus-measured plot.
type Panel struct {
	Pair   VariablePair    `json:"pair"`
	Row    int             `json:"row"`
	Col    int             `json:"col"`
	Series []render.Series `json:"series"`
	// Lo and Hi bound the 1:1 line; HasRange is false without points.
	Lo       float64        `json:"lo"`
	Hi       float64        `json:"hi"`
	HasRange bool           `json:"has_range"`
	Metrics  metrics.Record `json:"metrics"`
}

// Scatter is a finished grid of panels.
type Scatter struct {
	Key        plotcache.Key `json:"key"`
	Rows       int           `json:"rows"`
	Cols       int           `json:"cols"`
	Treatments []string      `json:"treatments"`
	Panels     []Panel       `json:"panels"`
	// Dropped counts pairs beyond render.MaxPanels.
	Dropped  int    `json:"dropped,omitempty"`
	Empty    bool   `json:"empty,omitempty"`
	Reason   string `json:"reason,omitempty"`
	CacheHit bool   `json:"cache_hit"`
}

func (sc *Scatter) clone() *Scatter {
	out := *sc
	out.Key = sc.Key.Clone()
	out.Treatments = slices.Clone(sc.Treatments)
	if sc.Panels != nil {
		out.Panels = make([]Panel, len(sc.Panels))
		for i, p := range sc.Panels {
			p.Series = render.CloneSeries(p.Series)
			out.Panels[i] = p
		}
	}
	return &out
}

// PlotScatter builds, or returns from cache, the scatter grid for req.
func (e *Engine) PlotScatter(ctx context.Context, req ScatterRequest) (*Scatter, error) {
	done := e.metrics.Stage("scatter")
	defer done()
	if req.Folder == "" {
		return nil, &ConfigError{Err: fmt.Errorf("folder is required")}
	}
	v, hit, err := e.scatter.GetOrCompute(req.Key(), func() (*Scatter, error) {
		return e.buildScatter(ctx, req)
	})
	e.metrics.Request("scatter", err)
	if err != nil {
		return nil, err
	}
	out := v.clone()
	out.CacheHit = hit
	return out, nil
}

// readEvaluate loads EVALUATE.OUT of a folder. A missing file yields a nil
// table and a reason.
func (e *Engine) readEvaluate(ctx context.Context, folder string) (*table.Table, string, error) {
	if _, err := e.resolve(folder); err != nil {
		return nil, "", err
	}
	p, err := e.resolver.EvaluatePath(folder)
	if err != nil {
		if unknownFolder(err) {
			return nil, "", &ConfigError{Folder: folder, Err: err}
		}
		e.log.Warn("evaluate output unavailable", zap.String("folder", folder), zap.Error(err))
		return nil, dssat.EvaluateFile + " not available", nil
	}
	t, err := e.load(ctx, "", p)
	if err != nil {
		if isCancel(err) {
			return nil, "", err
		}
		e.log.Warn("evaluate output unreadable", zap.String("file", p), zap.Error(err))
		return nil, dssat.EvaluateFile + " unreadable", nil
	}
	if t.Empty() {
		return nil, dssat.EvaluateFile + " holds no rows", nil
	}
	return t, "", nil
}

func (e *Engine) buildScatter(ctx context.Context, req ScatterRequest) (*Scatter, error) {
	sc := &Scatter{Key: req.Key()}
	ev, reason, err := e.readEvaluate(ctx, req.Folder)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		sc.Empty, sc.Reason = true, reason
		return sc, nil
	}
	pairs := req.Pairs
	if len(pairs) == 0 {
		sc.Empty, sc.Reason = true, "no variable pairs selected"
		return sc, nil
	}
	if len(pairs) > render.MaxPanels {
		sc.Dropped = len(pairs) - render.MaxPanels
		e.log.Warn("too many variable pairs, extra panels dropped", zap.Int("pairs", len(pairs)), zap.Int("dropped", sc.Dropped))
		pairs = pairs[:render.MaxPanels]
	}

	sc.Treatments = selectKeys(req.Treatments, ev)
	sc.Rows, sc.Cols = render.GridFor(len(pairs))
	trts := align.Treatments(ev)
	pooled := strings.Join(sc.Treatments, ",")

	done := e.metrics.Stage("series")
	defer done()
	for i, p := range pairs {
		p.SimVar, p.MeasVar = table.NormalizeName(p.SimVar), table.NormalizeName(p.MeasVar)
		if p.DisplayName == "" {
			p.DisplayName = e.Label(p.Base())
		}
		panel := Panel{Pair: p, Row: i / sc.Cols, Col: i % sc.Cols}
		simC, okS := ev.Column(p.SimVar)
		measC, okM := ev.Column(p.MeasVar)
		if !okS || !okM || simC.Kind() != table.KindNumeric || measC.Kind() != table.KindNumeric {
			e.log.Warn("variable missing for metrics", zap.String("variable", p.Base()), zap.Bool("in_sim", okS), zap.Bool("in_obs", okM))
			panel.Metrics = metrics.Score(p.Base(), p.DisplayName, pooled, "", nil, nil, e.opt.ReportR2, e.log)
			sc.Panels = append(sc.Panels, panel)
			continue
		}
		var allSim, allMeas []float64
		for ti, k := range sc.Treatments {
			s := render.Series{
				Source:        render.Observed,
				Variable:      p.Base(),
				Label:         p.DisplayName,
				Treatment:     k,
				TreatmentName: render.TreatmentDisplay(k, req.TreatmentNames),
				Style:         render.StyleFor(render.Observed, ti, 0, len(sc.Treatments)),
			}
			for r := 0; r < ev.Len(); r++ {
				if trts[r] != k {
					continue
				}
				sv, ok1 := simC.Float(r)
				mv, ok2 := measC.Float(r)
				if !ok1 || !ok2 {
					continue
				}
				s.X = append(s.X, sv)
				s.Y = append(s.Y, mv)
			}
			if s.Len() == 0 {
				continue
			}
			allSim = append(allSim, s.X...)
			allMeas = append(allMeas, s.Y...)
			panel.Series = append(panel.Series, s)
		}
		panel.Lo, panel.Hi, panel.HasRange = render.IdentityRange(allSim, allMeas)
		panel.Metrics = metrics.Score(p.Base(), p.DisplayName, pooled, "", allSim, allMeas, e.opt.ReportR2, e.log)
		sc.Panels = append(sc.Panels, panel)
	}
	return sc, nil
}

// metadataCols are EVALUATE.OUT columns that never form a pair.
var metadataCols = map[string]bool{
	"RUN": true, "EXCODE": true, "TRNO": true, "TN": true,
	"TRT": true, "TR": true, "RN": true, "CR": true,
}

// EvaluatePairs lists the simulated/measured pairs (xxxS/xxxM) found in a
// folder's EVALUATE.OUT, sorted by display name. Pairs with no data on
// either side, no common rows, or identical values throughout are skipped.
func (e *Engine) EvaluatePairs(ctx context.Context, folder string) ([]VariablePair, error) {
	ev, reason, err := e.readEvaluate(ctx, folder)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		e.log.Info("no evaluate pairs", zap.String("folder", folder), zap.String("reason", reason))
		return nil, nil
	}
	var out []VariablePair
	for _, name := range ev.Names() {
		base, ok := strings.CutSuffix(name, "S")
		if !ok || base == "" || metadataCols[name] {
			continue
		}
		simC, _ := ev.Column(name)
		measC, ok := ev.Column(base + "M")
		if !ok || simC.Kind() != table.KindNumeric || measC.Kind() != table.KindNumeric {
			continue
		}
		n, identical := 0, true
		for r := 0; r < ev.Len(); r++ {
			sv, ok1 := simC.Float(r)
			mv, ok2 := measC.Float(r)
			if !ok1 || !ok2 {
				continue
			}
			n++
			if sv != mv {
				identical = false
			}
		}
		if n == 0 {
			continue
		}
		if identical {
			e.log.Info("skipping pair with identical values", zap.String("variable", base))
			continue
		}
		out = append(out, VariablePair{DisplayName: e.Label(base), SimVar: name, MeasVar: base + "M"})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayName != out[j].DisplayName {
			return out[i].DisplayName < out[j].DisplayName
		}
		return out[i].SimVar < out[j].SimVar
	})
	return out, nil
}

// Variable is a plottable column with its label.
type Variable struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// Variables lists the numeric, non-key columns found across the given
// output files of a folder, in first-seen order.
func (e *Engine) Variables(ctx context.Context, folder string, files []string) ([]Variable, error) {
	dir, err := e.resolve(folder)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []Variable
	for _, f := range files {
		t, err := e.load(ctx, dir, f)
		if err != nil {
			if isCancel(err) {
				return nil, err
			}
			e.log.Warn("simulation output unreadable", zap.String("file", f), zap.Error(err))
			continue
		}
		for _, c := range t.Columns() {
			if c.Kind() != table.KindNumeric || metadataCols[c.Name()] || seen[c.Name()] {
				continue
			}
			seen[c.Name()] = true
			out = append(out, Variable{Code: c.Name(), Label: e.Label(c.Name())})
		}
	}
	return out, nil
}
