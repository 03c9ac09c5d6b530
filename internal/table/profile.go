package table

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Report is a markdown-friendly profile of a normalized table.
type Report struct {
	Name     string
	Rows     int
	Cols     []ColumnSummary
	GroupBy  string
	Groups   []GroupResult
	Warnings []string
}

// ColumnSummary captures kind and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    string
	Label   string
	Present int
	Missing int
	Unique  int
	// Numeric stats
	Min  float64
	Max  float64
	Mean float64
	Std  float64
	// Outliers (robust Z via MAD)
	OutliersCount    int
	OutlierThreshold float64
	// Categorical top values
	TopValues []CategoryCount
	// Date span
	First, Last string
}

type CategoryCount struct {
	Value string
	Count int
}

// GroupResult summarizes numeric columns for one treatment.
type GroupResult struct {
	Key     string
	Size    int
	Metrics map[string]NumSummary
}

type NumSummary struct {
	Count          int
	Min, Max, Mean float64
}

// ProfileOptions controls Profile.
type ProfileOptions struct {
	// GroupBy names an identifier column to summarize per key, e.g. TRT.
	GroupBy string
	// OutlierThreshold on |robust z|; 0 disables outlier counting.
	OutlierThreshold float64
	// Labels maps column names to display labels.
	Labels map[string]string
}

// Profile summarizes every column of t.
func Profile(name string, t *Table, opt ProfileOptions) *Report {
	rep := &Report{Name: name, Rows: t.Len()}
	for _, c := range t.Columns() {
		s := ColumnSummary{Name: c.Name(), Kind: c.Kind().String(), Label: opt.Labels[c.Name()]}
		s.Present = c.PresentCount()
		s.Missing = c.Len() - s.Present
		switch c.Kind() {
		case KindNumeric:
			vals := presentFloats(c)
			if len(vals) > 0 {
				s.Min = floats.Min(vals)
				s.Max = floats.Max(vals)
				s.Mean, s.Std = stat.MeanStdDev(vals, nil)
				if len(vals) < 2 {
					s.Std = 0
				}
			}
			if opt.OutlierThreshold > 0 && len(vals) >= 8 {
				median, mad := medianMAD(vals)
				if mad > 0 {
					for _, v := range vals {
						if math.Abs(0.6745*(v-median)/mad) > opt.OutlierThreshold {
							s.OutliersCount++
						}
					}
				}
				s.OutlierThreshold = opt.OutlierThreshold
			}
		case KindDate:
			var ds []string
			for i := 0; i < c.Len(); i++ {
				if c.Present(i) {
					ds = append(ds, c.String(i))
				}
			}
			sort.Strings(ds)
			if len(ds) > 0 {
				s.First, s.Last = ds[0], ds[len(ds)-1]
			}
		default:
			counts := map[string]int{}
			for i := 0; i < c.Len(); i++ {
				if v := c.String(i); v != "" {
					counts[v]++
				}
			}
			tops := make([]CategoryCount, 0, len(counts))
			for k, v := range counts {
				tops = append(tops, CategoryCount{Value: k, Count: v})
			}
			sort.Slice(tops, func(i, j int) bool {
				if tops[i].Count == tops[j].Count {
					return tops[i].Value < tops[j].Value
				}
				return tops[i].Count > tops[j].Count
			})
			if len(tops) > 8 {
				tops = tops[:8]
			}
			s.TopValues = tops
			s.Unique = len(counts)
		}
		rep.Cols = append(rep.Cols, s)
	}
	if opt.GroupBy != "" {
		if !t.Has(opt.GroupBy) {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("group-by column %s not found", NormalizeName(opt.GroupBy)))
		} else {
			rep.GroupBy = NormalizeName(opt.GroupBy)
			rep.Groups = groupSummaries(t, opt.GroupBy)
		}
	}
	return rep
}

func groupSummaries(t *Table, by string) []GroupResult {
	key, _ := t.Column(by)
	var out []GroupResult
	for _, k := range t.Distinct(by) {
		gr := GroupResult{Key: k, Metrics: map[string]NumSummary{}}
		var rows []int
		for i := 0; i < key.Len(); i++ {
			if key.String(i) == k {
				rows = append(rows, i)
			}
		}
		gr.Size = len(rows)
		for _, c := range t.Columns() {
			if c.Kind() != KindNumeric {
				continue
			}
			var vals []float64
			for _, r := range rows {
				if v, ok := c.Float(r); ok {
					vals = append(vals, v)
				}
			}
			if len(vals) == 0 {
				continue
			}
			gr.Metrics[c.Name()] = NumSummary{Count: len(vals), Min: floats.Min(vals), Max: floats.Max(vals), Mean: stat.Mean(vals, nil)}
		}
		out = append(out, gr)
	}
	return out
}

func presentFloats(c *Column) []float64 {
	var out []float64
	for i := 0; i < c.Len(); i++ {
		if v, ok := c.Float(i); ok {
			out = append(out, v)
		}
	}
	return out
}

// Markdown renders the report as a Markdown document.
func (r *Report) Markdown() string {
	var b strings.Builder
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("# %s\n\n", r.Name))
	} else {
		b.WriteString("# Table summary\n\n")
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(r.Cols)))

	b.WriteString("## Columns\n\n")
	for _, c := range r.Cols {
		total := c.Present + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		name := c.Name
		if c.Label != "" {
			name = fmt.Sprintf("%s (%s)", name, c.Label)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (present %d, missing %.1f%%)", name, c.Kind, c.Present, missPct))
		switch c.Kind {
		case "numeric":
			b.WriteString(fmt.Sprintf(": min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std))
			if c.OutlierThreshold > 0 {
				b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f", c.OutliersCount, c.OutlierThreshold))
			}
		case "date":
			if c.First != "" {
				b.WriteString(fmt.Sprintf(": %s to %s", c.First, c.Last))
			}
		default:
			if len(c.TopValues) > 0 {
				b.WriteString(": top ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
				if c.Unique > len(c.TopValues) {
					b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
				}
			}
		}
		b.WriteString("\n")
	}
	if len(r.Groups) > 0 {
		b.WriteString(fmt.Sprintf("\n## By %s\n\n", r.GroupBy))
		for _, g := range r.Groups {
			b.WriteString(fmt.Sprintf("- %s (n=%d)\n", g.Key, g.Size))
			keys := make([]string, 0, len(g.Metrics))
			for k := range g.Metrics {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			if len(keys) > 6 {
				keys = keys[:6]
			}
			for _, k := range keys {
				m := g.Metrics[k]
				b.WriteString(fmt.Sprintf("  - %s: mean %.4g (min %.4g, max %.4g)\n", k, m.Mean, m.Min, m.Max))
			}
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, w := range r.Warnings {
			b.WriteString("- " + w + "\n")
		}
	}
	return b.String()
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	// stat.Quantile requires sorted input.
	cp := slices.Clone(vals)
	slices.Sort(cp)
	median = stat.Quantile(0.5, stat.LinInterp, cp, nil)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	slices.Sort(dev)
	mad = stat.Quantile(0.5, stat.LinInterp, dev, nil)
	return
}
