// Package scale maps variables of very different magnitudes onto a shared
// display axis.
package scale

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/KaramelBytes/dssatview/internal/table"
)

// Policy selects how factors are computed.
type Policy int

const (
	// PolicyAuto uses magnitude alignment for more than one variable and
	// range mapping otherwise.
	PolicyAuto Policy = iota
	PolicyRange
	PolicyMagnitude
)

func (p Policy) String() string {
	switch p {
	case PolicyRange:
		return "range"
	case PolicyMagnitude:
		return "magnitude"
	default:
		return "auto"
	}
}

// ParsePolicy accepts "auto", "range" or "magnitude".
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "auto":
		return PolicyAuto, nil
	case "range":
		return PolicyRange, nil
	case "magnitude":
		return PolicyMagnitude, nil
	}
	return PolicyAuto, fmt.Errorf("unknown scaling policy %q", s)
}

// Options carries the target display range and policy.
type Options struct {
	TargetMin float64
	TargetMax float64
	Policy    Policy
}

// DefaultOptions returns the 1000..10000 display range with automatic policy.
func DefaultOptions() Options {
	return Options{TargetMin: 1000, TargetMax: 10000}
}

func (o Options) normalized() Options {
	if o.TargetMin == 0 && o.TargetMax == 0 {
		o.TargetMin, o.TargetMax = 1000, 10000
	}
	if o.TargetMax < o.TargetMin {
		o.TargetMin, o.TargetMax = o.TargetMax, o.TargetMin
	}
	return o
}

// Midpoint of the target range.
func (o Options) Midpoint() float64 {
	o = o.normalized()
	return (o.TargetMin + o.TargetMax) / 2
}

// Factor maps raw values to displayed values: raw*Scale + Offset.
type Factor struct {
	Scale  float64 `json:"scale"`
	Offset float64 `json:"offset"`
}

// Identity leaves values unchanged.
var Identity = Factor{Scale: 1}

// Apply returns raw*Scale + Offset. NaN stays NaN.
func (f Factor) Apply(v float64) float64 { return v*f.Scale + f.Offset }

// Invert recovers the raw value from a displayed one.
func (f Factor) Invert(v float64) float64 {
	if f.Scale == 0 {
		return math.NaN()
	}
	return (v - f.Offset) / f.Scale
}

// String renders the factor as an equation on label.
func (f Factor) String(label string) string {
	return fmt.Sprintf("%s = %.6f * %s + %.2f", label, f.Scale, label, f.Offset)
}

// IsClose is tolerance equality with rtol 1e-5 and atol 1e-8.
func IsClose(a, b float64) bool {
	return math.Abs(a-b) <= 1e-8+1e-5*math.Abs(b)
}

// present returns the non-absent values of a numeric column.
func present(t *table.Table, name string) []float64 {
	c, ok := t.Column(name)
	if !ok || c.Kind() != table.KindNumeric {
		return nil
	}
	var out []float64
	for i := 0; i < c.Len(); i++ {
		if v, ok := c.Float(i); ok {
			out = append(out, v)
		}
	}
	return out
}

// RangeFactor maps [min(vals), max(vals)] onto the target range. A column
// whose extremes are within tolerance gets unit scale with an offset that
// centres its mean on the midpoint.
func RangeFactor(vals []float64, opt Options) (Factor, bool) {
	if len(vals) == 0 {
		return Factor{}, false
	}
	opt = opt.normalized()
	lo, hi := floats.Min(vals), floats.Max(vals)
	if IsClose(lo, hi) {
		mean := floats.Sum(vals) / float64(len(vals))
		return Factor{Scale: 1, Offset: opt.Midpoint() - mean}, true
	}
	s := (opt.TargetMax - opt.TargetMin) / (hi - lo)
	return Factor{Scale: s, Offset: opt.TargetMin - lo*s}, true
}

// Magnitude returns floor(log10(max|v|)), or false when every value is zero.
func Magnitude(vals []float64) (int, bool) {
	if len(vals) == 0 {
		return 0, false
	}
	abs := make([]float64, len(vals))
	for i, v := range vals {
		abs[i] = math.Abs(v)
	}
	m := floats.Max(abs)
	if m == 0 {
		return 0, false
	}
	return int(math.Floor(math.Log10(m))), true
}

// Compute returns a factor per variable present in t with at least one
// value. Variables missing from t are skipped.
func Compute(t *table.Table, vars []string, opt Options) map[string]Factor {
	opt = opt.normalized()
	policy := opt.policyFor(len(vars))
	out := map[string]Factor{}
	if policy == PolicyRange {
		for _, v := range vars {
			if f, ok := RangeFactor(present(t, v), opt); ok {
				out[table.NormalizeName(v)] = f
			}
		}
		return out
	}

	mags := map[string]int{}
	ref, haveRef := 0, false
	for _, v := range vars {
		vals := present(t, v)
		if len(vals) == 0 {
			continue
		}
		name := table.NormalizeName(v)
		m, ok := Magnitude(vals)
		if !ok {
			out[name] = Identity
			continue
		}
		mags[name] = m
		if !haveRef || m > ref {
			ref, haveRef = m, true
		}
	}
	for name, m := range mags {
		out[name] = Factor{Scale: math.Pow(10, float64(ref-m))}
	}
	return out
}

// Scale returns the displayed values per variable. Supplied factors are used
// as given; variables without one are computed from t.
func Scale(t *table.Table, vars []string, opt Options, factors map[string]Factor) map[string][]float64 {
	fs := resolve(t, vars, opt, factors)
	out := map[string][]float64{}
	for _, v := range vars {
		name := table.NormalizeName(v)
		f, ok := fs[name]
		if !ok {
			continue
		}
		c, _ := t.Column(name)
		vals := c.Floats()
		for i := range vals {
			vals[i] = f.Apply(vals[i])
		}
		out[name] = vals
	}
	return out
}

// policyFor resolves PolicyAuto for a plot of n variables.
func (o Options) policyFor(n int) Policy {
	if o.Policy != PolicyAuto {
		return o.Policy
	}
	if n > 1 {
		return PolicyMagnitude
	}
	return PolicyRange
}

// resolve keeps usable supplied factors and computes the rest. The policy is
// chosen from the whole plot so a partially supplied set does not fall back
// to range scaling for its last variable.
func resolve(t *table.Table, vars []string, opt Options, factors map[string]Factor) map[string]Factor {
	opt.Policy = opt.policyFor(len(vars))
	var missing []string
	fs := map[string]Factor{}
	for _, v := range vars {
		name := table.NormalizeName(v)
		if f, ok := factors[name]; ok && len(present(t, name)) > 0 {
			fs[name] = f
			continue
		}
		missing = append(missing, name)
	}
	if len(missing) == len(vars) {
		return Compute(t, vars, opt)
	}
	for k, f := range Compute(t, missing, opt) {
		fs[k] = f
	}
	return fs
}

// Apply returns a copy of t with every variable in factors replaced by its
// displayed values. Other columns are shared.
func Apply(t *table.Table, factors map[string]Factor) *table.Table {
	out := t
	for name, f := range factors {
		c, ok := t.Column(name)
		if !ok || c.Kind() != table.KindNumeric {
			continue
		}
		vals := c.Floats()
		for i := range vals {
			vals[i] = f.Apply(vals[i])
		}
		if nt, err := out.With(table.NewNumeric(name, vals)); err == nil {
			out = nt
		}
	}
	return out
}
