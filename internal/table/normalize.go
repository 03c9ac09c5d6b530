package table

import (
	"math"
	"strconv"
	"strings"
)

// Options controls Normalize.
type Options struct {
	// MaxCategories is the largest distinct count a non-numeric column may
	// have and still be typed categorical. Larger columns stay text.
	MaxCategories int
	// FailureRatio is the share of present values that must fail numeric
	// coercion before a column is kept as strings.
	FailureRatio float64
	// Numeric parsing locale. If DecimalSeparator is 0, '.' is assumed.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// Identifiers and Categorical extend the built-in exempt column names.
	Identifiers []string
	Categorical []string
}

// DefaultOptions returns the normalizer defaults.
func DefaultOptions() Options {
	return Options{MaxCategories: 64, FailureRatio: 0.9, DecimalSeparator: '.'}
}

var (
	identifierCols  = []string{"TRT", "TRNO", "TR", "TN", "RUN", "RN"}
	categoricalCols = []string{"CR", "CROP", "EXCODE", "FILE", "SOURCE"}
)

// sentinel spellings of "value intentionally absent"
var missingStrings = map[string]bool{
	"-99": true, "-99.": true, "-99.0": true, "-99.00": true,
	"-99.9": true, "-99.99": true, "NAN": true, "NA": true, "N/A": true,
}

var missingFloats = []float64{-99, -99.9, -99.99}

// IsMissing reports whether v is NaN, infinite or a missing-value sentinel.
func IsMissing(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return true
	}
	for _, m := range missingFloats {
		if v == m {
			return true
		}
	}
	return false
}

// IsMissingString reports whether s is empty or a sentinel spelling.
func IsMissingString(s string) bool {
	s = strings.ToUpper(strings.TrimSpace(s))
	return s == "" || missingStrings[s]
}

// Normalize coerces columns to their kinds and replaces missing-value
// sentinels with absent markers. It never mutates t and is idempotent.
func Normalize(t *Table, opt Options) *Table {
	if t == nil {
		return nil
	}
	if opt.MaxCategories <= 0 {
		opt.MaxCategories = 64
	}
	if opt.FailureRatio <= 0 || opt.FailureRatio > 1 {
		opt.FailureRatio = 0.9
	}
	idents := nameSet(identifierCols, opt.Identifiers)
	cats := nameSet(categoricalCols, opt.Categorical)

	var out []*Column
	for _, c := range t.cols {
		var nc *Column
		switch {
		case idents[c.name]:
			nc = identifierColumn(c)
		case c.kind == KindDate:
			nc = c
		case c.kind == KindNumeric:
			nc = numericColumn(c)
		case c.name == "DATE":
			nc = stringColumn(c, KindText)
		case cats[c.name]:
			nc = stringColumn(c, KindCategorical)
		default:
			nc = coerceColumn(c, opt)
		}
		if nc.PresentCount() == 0 {
			continue
		}
		out = append(out, nc)
	}
	res, _ := New(out...)
	if len(out) == 0 {
		res.rows = t.rows
	}
	return res
}

func nameSet(base, extra []string) map[string]bool {
	m := make(map[string]bool, len(base)+len(extra))
	for _, n := range base {
		m[n] = true
	}
	for _, n := range extra {
		m[NormalizeName(n)] = true
	}
	return m
}

func numericColumn(c *Column) *Column {
	vals := make([]float64, len(c.nums))
	for i, v := range c.nums {
		if IsMissing(v) {
			v = math.NaN()
		}
		vals[i] = v
	}
	return &Column{name: c.name, kind: KindNumeric, nums: vals}
}

func stringColumn(c *Column, kind Kind) *Column {
	vals := make([]string, c.Len())
	for i := range vals {
		s := strings.TrimSpace(c.String(i))
		if IsMissingString(s) {
			s = ""
		}
		vals[i] = s
	}
	return &Column{name: c.name, kind: kind, strs: vals}
}

// CanonicalKey normalizes a treatment-like key: integral float spellings lose
// their fraction ("1.0" -> "1"), surrounding space is trimmed.
func CanonicalKey(s string) string {
	s = strings.TrimSpace(s)
	if IsMissingString(s) {
		return ""
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}

func identifierColumn(c *Column) *Column {
	vals := make([]string, c.Len())
	for i := range vals {
		vals[i] = CanonicalKey(c.String(i))
	}
	return &Column{name: c.name, kind: KindIdentifier, strs: vals}
}

func coerceColumn(c *Column, opt Options) *Column {
	nums := make([]float64, len(c.strs))
	present, failed := 0, 0
	for i, s := range c.strs {
		nums[i] = math.NaN()
		if IsMissingString(s) {
			continue
		}
		present++
		f, ok := parseNumeric(s, opt)
		if !ok {
			failed++
			continue
		}
		if !IsMissing(f) {
			nums[i] = f
		}
	}
	if present > 0 && float64(failed) > opt.FailureRatio*float64(present) {
		sc := stringColumn(c, KindText)
		if c.kind == KindCategorical || distinct(sc.strs) <= opt.MaxCategories {
			sc.kind = KindCategorical
		}
		return sc
	}
	return &Column{name: c.name, kind: KindNumeric, nums: nums}
}

func distinct(vals []string) int {
	seen := map[string]struct{}{}
	for _, v := range vals {
		if v != "" {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.ReplaceAll(strings.TrimSpace(s), "\u00A0", "")
	raw = strings.TrimSpace(strings.TrimSuffix(raw, "%"))
	dec := opt.DecimalSeparator
	if dec == 0 {
		dec = '.'
	}
	thou := opt.ThousandsSeparator
	if thou != 0 && thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func parseInt(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
