// Package metrics scores agreement between simulated and observed series.
package metrics

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/dssatview/internal/align"
	"github.com/KaramelBytes/dssatview/internal/table"
)

// MinPairs is the fewest paired points that produce non-zero metrics.
const MinPairs = 2

// Result holds the three agreement scores. Degenerate input yields zeros.
type Result struct {
	N     int     `json:"n"`
	RMSE  float64 `json:"rmse"`
	R2    float64 `json:"r2"`
	DStat float64 `json:"d_stat"`
	NRMSE float64 `json:"nrmse"`
}

// Record is one row of the metrics table.
type Record struct {
	Variable      string  `json:"variable"`
	Label         string  `json:"label,omitempty"`
	Treatment     string  `json:"treatment"`
	TreatmentName string  `json:"treatment_name,omitempty"`
	N             int     `json:"n"`
	RMSE          float64 `json:"rmse"`
	NRMSE         float64 `json:"nrmse"`
	R2            float64 `json:"r2"`
	DStat         float64 `json:"d_stat"`
	// R2Reported says whether R2 should be shown to users; it is always
	// computed.
	R2Reported bool `json:"r2_reported"`
}

// LowConfidence flags records built from too few pairs.
func (r Record) LowConfidence() bool { return r.N < MinPairs }

// pairs drops positions where either side is NaN. Mismatched lengths yield
// nothing.
func pairs(sim, obs []float64) (s, o []float64) {
	if len(sim) != len(obs) {
		return nil, nil
	}
	for i := range sim {
		if math.IsNaN(sim[i]) || math.IsNaN(obs[i]) || math.IsInf(sim[i], 0) || math.IsInf(obs[i], 0) {
			continue
		}
		s = append(s, sim[i])
		o = append(o, obs[i])
	}
	return s, o
}

// Compute scores sim against obs. Mismatched lengths, empty or all-absent
// input and fewer than MinPairs valid pairs all return zero scores.
func Compute(sim, obs []float64) Result {
	s, o := pairs(sim, obs)
	res := Result{N: len(s)}
	if len(sim) != len(obs) || len(s) < MinPairs {
		return res
	}
	res.RMSE = RMSE(s, o)
	res.R2 = RSquared(s, o)
	res.DStat = DStat(s, o)
	res.NRMSE = NRMSE(s, o)
	return res
}

// RMSE is sqrt(mean((obs-sim)^2)).
func RMSE(sim, obs []float64) float64 {
	if len(sim) != len(obs) || len(sim) == 0 {
		return 0
	}
	diff := make([]float64, len(obs))
	floats.SubTo(diff, obs, sim)
	return math.Sqrt(floats.Dot(diff, diff) / float64(len(diff)))
}

// RSquared is the squared Pearson correlation, 0 when either series has
// zero variance.
func RSquared(sim, obs []float64) float64 {
	if len(sim) != len(obs) || len(sim) < MinPairs {
		return 0
	}
	if stat.Variance(sim, nil) == 0 || stat.Variance(obs, nil) == 0 {
		return 0
	}
	r := stat.Correlation(sim, obs, nil)
	if math.IsNaN(r) {
		return 0
	}
	return r * r
}

// DStat is Willmott's index of agreement,
// 1 - sum((obs-sim)^2) / sum((|sim-mean(obs)| + |obs-mean(obs)|)^2),
// and 0 when the denominator is 0.
func DStat(sim, obs []float64) float64 {
	if len(sim) != len(obs) || len(sim) == 0 {
		return 0
	}
	mo := stat.Mean(obs, nil)
	var num, den float64
	for i := range obs {
		d := obs[i] - sim[i]
		num += d * d
		a := math.Abs(sim[i]-mo) + math.Abs(obs[i]-mo)
		den += a * a
	}
	if den == 0 {
		return 0
	}
	return 1 - num/den
}

// NRMSE is RMSE as a percentage of the observed mean, 0 when that mean is 0.
func NRMSE(sim, obs []float64) float64 {
	if len(obs) == 0 {
		return 0
	}
	mo := stat.Mean(obs, nil)
	if mo == 0 {
		return 0
	}
	return RMSE(sim, obs) / mo * 100
}

// Options configures ComputeAll.
type Options struct {
	ReportR2       bool
	Label          func(code string) string
	TreatmentNames map[string]string
	Log            *zap.Logger
}

// ComputeAll scores every variable and treatment over the dates present in
// both tables. Treatments with fewer than MinPairs pairs still get a
// zeroed record. Variables missing from either table are skipped.
func ComputeAll(sim, obs *table.Table, vars, treatments []string, opt Options) []Record {
	log := opt.Log
	if log == nil {
		log = zap.NewNop()
	}
	if sim.Empty() || obs.Empty() {
		return nil
	}
	var out []Record
	for _, v := range vars {
		v = table.NormalizeName(v)
		if !sim.Has(v) || !obs.Has(v) {
			log.Warn("variable missing for metrics", zap.String("variable", v), zap.Bool("in_sim", sim.Has(v)), zap.Bool("in_obs", obs.Has(v)))
			continue
		}
		label := v
		if opt.Label != nil {
			label = opt.Label(v)
		}
		res := align.Align(sim, obs, v, treatments)
		for _, k := range res.Keys {
			p := res.Pairs[k]
			out = append(out, Score(v, label, k, opt.TreatmentNames[k], p.Sim, p.Obs, opt.ReportR2, log))
		}
	}
	return out
}

// Score builds a Record for one variable and treatment from paired values.
func Score(variable, label, treatment, treatmentName string, sim, obs []float64, reportR2 bool, log *zap.Logger) Record {
	r := Compute(sim, obs)
	if r.N < MinPairs && log != nil {
		log.Warn("insufficient paired points", zap.String("variable", variable), zap.String("treatment", treatment), zap.Int("n", r.N))
	}
	return Record{
		Variable:      variable,
		Label:         label,
		Treatment:     treatment,
		TreatmentName: treatmentName,
		N:             r.N,
		RMSE:          r.RMSE,
		NRMSE:         r.NRMSE,
		R2:            r.R2,
		DStat:         r.DStat,
		R2Reported:    reportR2,
	}
}
