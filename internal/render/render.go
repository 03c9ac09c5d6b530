// Package render turns pipeline output into drawable series and hands them
// to a drawing surface in bounded batches.
package render

import (
	"fmt"
	"math"
	"slices"
)

// Source tells simulated lines from observed points.
type Source string

const (
	Simulated Source = "sim"
	Observed  Source = "obs"
)

// Title is the legend heading for the source.
func (s Source) Title() string {
	if s == Observed {
		return "Observed"
	}
	return "Simulated"
}

var (
	Colors     = []string{"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd", "#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf"}
	LineStyles = []string{"solid", "dash", "dot", "dashdot"}
	Markers    = []string{"o", "s", "d", "t", "p", "h", "+", "x", "star"}
)

// Style is the visual identity of one series.
type Style struct {
	Color    string `json:"color"`
	Line     string `json:"line,omitempty"`
	Marker   string `json:"marker,omitempty"`
	Outlined bool   `json:"outlined,omitempty"`
}

// StyleFor picks a style: color follows the treatment, line style the
// variable, and observed markers cycle over treatment and variable.
func StyleFor(src Source, trtIdx, varIdx, nTreatments int) Style {
	st := Style{Color: Colors[mod(trtIdx, len(Colors))]}
	if src == Simulated {
		st.Line = LineStyles[mod(varIdx, len(LineStyles))]
		return st
	}
	st.Marker = Markers[mod(trtIdx+varIdx*nTreatments, len(Markers))]
	st.Outlined = (varIdx+trtIdx)%2 == 0
	return st
}

func mod(a, n int) int {
	if n == 0 {
		return 0
	}
	return ((a % n) + n) % n
}

// Series is one drawable line or point set.
type Series struct {
	Source        Source    `json:"source"`
	Variable      string    `json:"variable"`
	Label         string    `json:"label"`
	Treatment     string    `json:"treatment"`
	TreatmentName string    `json:"treatment_name"`
	X             []float64 `json:"x"`
	Y             []float64 `json:"y"`
	Style         Style     `json:"style"`
}

// Len is the number of points.
func (s Series) Len() int { return len(s.X) }

// Clone returns s with its own point slices.
func (s Series) Clone() Series {
	s.X = slices.Clone(s.X)
	s.Y = slices.Clone(s.Y)
	return s
}

// CloneSeries deep-copies a series list.
func CloneSeries(in []Series) []Series {
	if in == nil {
		return nil
	}
	out := make([]Series, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}

// TreatmentDisplay returns the caller-supplied name or "Treatment <key>".
func TreatmentDisplay(key string, names map[string]string) string {
	if n, ok := names[key]; ok && n != "" {
		return n
	}
	return fmt.Sprintf("Treatment %s", key)
}

// LegendItem is one entry under a variable heading.
type LegendItem struct {
	Treatment string `json:"treatment"`
	Name      string `json:"name"`
	Style     Style  `json:"style"`
}

// LegendGroup lists the treatments drawn for one variable.
type LegendGroup struct {
	Variable string       `json:"variable"`
	Label    string       `json:"label"`
	Items    []LegendItem `json:"items"`
}

// Legend is grouped by source, then variable, in drawing order.
type Legend struct {
	Simulated []LegendGroup `json:"simulated"`
	Observed  []LegendGroup `json:"observed"`
}

// Clone returns a legend sharing no slices with l.
func (l Legend) Clone() Legend {
	cp := func(groups []LegendGroup) []LegendGroup {
		if groups == nil {
			return nil
		}
		out := make([]LegendGroup, len(groups))
		for i, g := range groups {
			g.Items = slices.Clone(g.Items)
			out[i] = g
		}
		return out
	}
	return Legend{Simulated: cp(l.Simulated), Observed: cp(l.Observed)}
}

// BuildLegend derives the legend from series in their drawing order.
func BuildLegend(series []Series) Legend {
	var lg Legend
	add := func(groups []LegendGroup, s Series) []LegendGroup {
		item := LegendItem{Treatment: s.Treatment, Name: s.TreatmentName, Style: s.Style}
		for i := range groups {
			if groups[i].Variable == s.Variable {
				groups[i].Items = append(groups[i].Items, item)
				return groups
			}
		}
		return append(groups, LegendGroup{Variable: s.Variable, Label: s.Label, Items: []LegendItem{item}})
	}
	for _, s := range series {
		if s.Source == Observed {
			lg.Observed = add(lg.Observed, s)
		} else {
			lg.Simulated = add(lg.Simulated, s)
		}
	}
	return lg
}

// GridFor returns the rows and columns used to lay out n scatter panels.
// Layouts stop growing at 4x4.
func GridFor(n int) (rows, cols int) {
	switch {
	case n <= 1:
		return 1, 1
	case n == 2:
		return 1, 2
	case n <= 4:
		return 2, 2
	case n <= 6:
		return 2, 3
	case n <= 9:
		return 3, 3
	default:
		return 4, 4
	}
}

// MaxPanels is the largest number of scatter panels drawn.
const MaxPanels = 16

// IdentityRange returns the span of the 1:1 line over values, padded by 10%
// of the data span, or by 1 when the data are flat. NaNs are ignored.
func IdentityRange(values ...[]float64) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, vs := range values {
		for _, v := range vs {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 0, false
	}
	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = 1
	}
	return lo - pad, hi + pad, true
}
