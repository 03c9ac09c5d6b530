// Package align pairs simulated and observed values that share a treatment
// and a date.
package align

import (
	"sort"
	"time"

	"github.com/KaramelBytes/dssatview/internal/table"
)

// DefaultTreatment is used for tables without a treatment column.
const DefaultTreatment = "1"

// TreatmentColumns are the recognized treatment key columns, in priority order.
var TreatmentColumns = []string{"TRT", "TRNO"}

// Pair holds equal-length simulated and observed series for one treatment,
// ordered by date.
type Pair struct {
	Treatment string
	Dates     []time.Time
	Sim       []float64
	Obs       []float64
}

// N is the number of paired points.
func (p Pair) N() int { return len(p.Sim) }

// Result is the alignment of one variable across treatments.
type Result struct {
	Variable string
	Keys     []string
	Pairs    map[string]Pair
}

// Treatments returns the canonical treatment key for every row of t.
func Treatments(t *table.Table) []string {
	out := make([]string, t.Len())
	var col *table.Column
	for _, name := range TreatmentColumns {
		if c, ok := t.Column(name); ok {
			col = c
			break
		}
	}
	for i := range out {
		out[i] = DefaultTreatment
		if col != nil {
			out[i] = table.CanonicalKey(col.String(i))
		}
	}
	return out
}

// Keys returns the sorted union of treatment keys in the given tables.
func Keys(tables ...*table.Table) []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range tables {
		if t.Empty() {
			continue
		}
		for _, k := range Treatments(t) {
			if k != "" && !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	table.SortKeys(out)
	return out
}

// byDate indexes the first present value per (treatment, date).
func byDate(t *table.Table, variable string) map[string]map[time.Time]float64 {
	out := map[string]map[time.Time]float64{}
	if t.Empty() {
		return out
	}
	dc, ok := t.Column("DATE")
	vc, okV := t.Column(variable)
	if !ok || !okV || dc.Kind() != table.KindDate || vc.Kind() != table.KindNumeric {
		return out
	}
	trts := Treatments(t)
	for i := 0; i < t.Len(); i++ {
		d, ok := dc.Date(i)
		if !ok {
			continue
		}
		v, ok := vc.Float(i)
		if !ok {
			continue
		}
		m := out[trts[i]]
		if m == nil {
			m = map[time.Time]float64{}
			out[trts[i]] = m
		}
		if _, dup := m[d]; !dup {
			m[d] = v
		}
	}
	return out
}

// Align pairs sim and obs values of variable by treatment and exact date.
// Both tables need a Date-kind DATE column. Only dates where both sides hold
// a value are kept. An empty treatments list means every treatment found in
// either table. The result is deterministic for equal inputs.
func Align(sim, obs *table.Table, variable string, treatments []string) Result {
	variable = table.NormalizeName(variable)
	keys := make([]string, 0, len(treatments))
	seen := map[string]bool{}
	for _, k := range treatments {
		k = table.CanonicalKey(k)
		if k != "" && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		keys = Keys(sim, obs)
	}
	table.SortKeys(keys)

	simIdx := byDate(sim, variable)
	obsIdx := byDate(obs, variable)
	res := Result{Variable: variable, Keys: keys, Pairs: make(map[string]Pair, len(keys))}
	for _, k := range keys {
		p := Pair{Treatment: k}
		s, o := simIdx[k], obsIdx[k]
		var dates []time.Time
		for d := range o {
			if _, ok := s[d]; ok {
				dates = append(dates, d)
			}
		}
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
		p.Dates = dates
		p.Sim = make([]float64, len(dates))
		p.Obs = make([]float64, len(dates))
		for i, d := range dates {
			p.Sim[i] = s[d]
			p.Obs[i] = o[d]
		}
		res.Pairs[k] = p
	}
	return res
}
