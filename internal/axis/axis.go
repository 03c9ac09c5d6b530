// Package axis fills in an x-axis column that an observed table lacks.
package axis

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/KaramelBytes/dssatview/internal/table"
)

// Outcome records which rule produced the axis column.
type Outcome int

const (
	Skipped Outcome = iota
	Present
	Aliased
	FromDates
	FromSimulation
	Sequence
)

func (o Outcome) String() string {
	switch o {
	case Present:
		return "present"
	case Aliased:
		return "aliased"
	case FromDates:
		return "from-dates"
	case FromSimulation:
		return "from-simulation"
	case Sequence:
		return "sequence"
	default:
		return "skipped"
	}
}

// Degraded reports whether the axis is a plain row sequence.
func (o Outcome) Degraded() bool { return o == Sequence }

// aliases lists equivalent day-count column names.
var aliases = map[string][]string{
	"DAS": {"DAP"},
	"DAP": {"DAS"},
}

func dayCount(x string) bool {
	return x == "DOY" || x == "DAP" || x == "DAS"
}

// Synthesize returns obs with an x column, trying in order: the column
// itself or an alias, day counts derived from DATE, a date mapping taken
// from sim, and finally a 0..n-1 sequence. Gaps in a synthesized column are
// forward filled. DATE columns are expected to be Date-kind already.
func Synthesize(obs *table.Table, x string, sim *table.Table, log *zap.Logger) (*table.Table, Outcome) {
	if log == nil {
		log = zap.NewNop()
	}
	if obs.Empty() {
		return obs, Skipped
	}
	x = table.NormalizeName(x)
	if obs.Has(x) {
		return obs, Present
	}
	for _, a := range aliases[x] {
		if c, ok := obs.Column(a); ok {
			out, err := obs.With(c.Renamed(x))
			if err == nil {
				return out, Aliased
			}
		}
	}

	obsDates := dateColumn(obs)
	var vals []float64
	outcome := Skipped

	switch {
	case dayCount(x) && obsDates != nil:
		vals = fromDates(x, obsDates, dateColumn(sim))
		outcome = FromDates
	case obsDates != nil && sim.Has(x) && dateColumn(sim) != nil:
		var unmatched int
		vals, unmatched = fromSimulation(x, obsDates, sim)
		outcome = FromSimulation
		if unmatched > 0 {
			log.Warn("axis values not inferable from simulation", zap.String("variable", x), zap.Int("unmatched", unmatched))
		}
	default:
		if dayCount(x) {
			log.Warn("cannot derive day count without DATE column", zap.String("variable", x))
		}
	}

	if vals == nil {
		log.Warn("creating sequence for missing axis", zap.String("variable", x), zap.Int("rows", obs.Len()))
		vals = make([]float64, obs.Len())
		for i := range vals {
			vals[i] = float64(i)
		}
		outcome = Sequence
	}
	forwardFill(vals)
	out, err := obs.With(table.NewNumeric(x, vals))
	if err != nil {
		return obs, Skipped
	}
	return out, outcome
}

func dateColumn(t *table.Table) *table.Column {
	if t == nil {
		return nil
	}
	c, ok := t.Column("DATE")
	if !ok || c.Kind() != table.KindDate || c.PresentCount() == 0 {
		return nil
	}
	return c
}

func minDate(c *table.Column) time.Time {
	var m time.Time
	for i := 0; i < c.Len(); i++ {
		if d, ok := c.Date(i); ok && (m.IsZero() || d.Before(m)) {
			m = d
		}
	}
	return m
}

func fromDates(x string, obs, sim *table.Column) []float64 {
	vals := make([]float64, obs.Len())
	if x == "DOY" {
		for i := range vals {
			vals[i] = math.NaN()
			if d, ok := obs.Date(i); ok {
				vals[i] = float64(d.YearDay())
			}
		}
		return vals
	}
	start := minDate(obs)
	if sim != nil {
		start = minDate(sim)
	}
	for i := range vals {
		vals[i] = math.NaN()
		if d, ok := obs.Date(i); ok {
			vals[i] = math.Floor(d.Sub(start).Hours() / 24)
		}
	}
	return vals
}

func fromSimulation(x string, obs *table.Column, sim *table.Table) ([]float64, int) {
	simDates, _ := sim.Column("DATE")
	simX, _ := sim.Column(x)
	lookup := map[time.Time]float64{}
	for i := 0; i < simDates.Len(); i++ {
		d, ok := simDates.Date(i)
		if !ok {
			continue
		}
		if _, seen := lookup[d]; seen {
			continue
		}
		if v, ok := simX.Float(i); ok {
			lookup[d] = v
		}
	}
	vals := make([]float64, obs.Len())
	unmatched := 0
	for i := range vals {
		vals[i] = math.NaN()
		d, ok := obs.Date(i)
		if !ok {
			unmatched++
			continue
		}
		if v, ok := lookup[d]; ok {
			vals[i] = v
		} else {
			unmatched++
		}
	}
	return vals, unmatched
}

// forwardFill propagates the last present value over later gaps. Leading
// gaps stay absent.
func forwardFill(vals []float64) {
	last := math.NaN()
	for i, v := range vals {
		if math.IsNaN(v) {
			vals[i] = last
			continue
		}
		last = v
	}
}
