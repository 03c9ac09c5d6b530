package table

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Kind is the declared representation of a column.
type Kind int

const (
	KindText Kind = iota
	KindNumeric
	KindCategorical
	KindIdentifier
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindCategorical:
		return "categorical"
	case KindIdentifier:
		return "identifier"
	case KindDate:
		return "date"
	default:
		return "text"
	}
}

// Column is an immutable named sequence of values. Numeric columns use NaN
// for absent values, string columns use "", date columns use the zero time.
type Column struct {
	name  string
	kind  Kind
	nums  []float64
	strs  []string
	dates []time.Time
}

// NormalizeName upper-cases and trims a column header.
func NormalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// NewNumeric builds a numeric column. The slice is copied.
func NewNumeric(name string, vals []float64) *Column {
	cp := make([]float64, len(vals))
	copy(cp, vals)
	return &Column{name: NormalizeName(name), kind: KindNumeric, nums: cp}
}

// NewStrings builds a string-backed column of the given kind (text,
// categorical or identifier). The slice is copied.
func NewStrings(name string, kind Kind, vals []string) *Column {
	if kind == KindNumeric || kind == KindDate {
		kind = KindText
	}
	cp := make([]string, len(vals))
	copy(cp, vals)
	return &Column{name: NormalizeName(name), kind: kind, strs: cp}
}

// NewDates builds a date column. Zero times are treated as not-a-date.
func NewDates(name string, vals []time.Time) *Column {
	cp := make([]time.Time, len(vals))
	copy(cp, vals)
	return &Column{name: NormalizeName(name), kind: KindDate, dates: cp}
}

func (c *Column) Name() string { return c.name }
func (c *Column) Kind() Kind   { return c.kind }

// Len returns the number of rows in the column.
func (c *Column) Len() int {
	switch c.kind {
	case KindNumeric:
		return len(c.nums)
	case KindDate:
		return len(c.dates)
	default:
		return len(c.strs)
	}
}

// Float returns the numeric value at row i and whether it is present.
func (c *Column) Float(i int) (float64, bool) {
	if c.kind != KindNumeric || i < 0 || i >= len(c.nums) {
		return math.NaN(), false
	}
	v := c.nums[i]
	return v, !math.IsNaN(v)
}

// String returns the string form of row i. Numeric values are formatted
// compactly; absent values yield "".
func (c *Column) String(i int) string {
	if i < 0 || i >= c.Len() {
		return ""
	}
	switch c.kind {
	case KindNumeric:
		v := c.nums[i]
		if math.IsNaN(v) {
			return ""
		}
		return formatFloat(v)
	case KindDate:
		d := c.dates[i]
		if d.IsZero() {
			return ""
		}
		return d.Format("2006-01-02")
	default:
		return c.strs[i]
	}
}

// Date returns the date at row i and whether it is a valid date.
func (c *Column) Date(i int) (time.Time, bool) {
	if c.kind != KindDate || i < 0 || i >= len(c.dates) {
		return time.Time{}, false
	}
	d := c.dates[i]
	return d, !d.IsZero()
}

// Present reports whether row i holds a value.
func (c *Column) Present(i int) bool {
	switch c.kind {
	case KindNumeric:
		_, ok := c.Float(i)
		return ok
	case KindDate:
		_, ok := c.Date(i)
		return ok
	default:
		return i >= 0 && i < len(c.strs) && c.strs[i] != ""
	}
}

// Floats returns a copy of the numeric values (nil for non-numeric columns).
func (c *Column) Floats() []float64 {
	if c.kind != KindNumeric {
		return nil
	}
	cp := make([]float64, len(c.nums))
	copy(cp, c.nums)
	return cp
}

// Strings returns the string form of every row.
func (c *Column) Strings() []string {
	out := make([]string, c.Len())
	for i := range out {
		out[i] = c.String(i)
	}
	return out
}

// Dates returns a copy of the date values (nil for non-date columns).
func (c *Column) Dates() []time.Time {
	if c.kind != KindDate {
		return nil
	}
	cp := make([]time.Time, len(c.dates))
	copy(cp, c.dates)
	return cp
}

// PresentCount returns how many rows hold a value.
func (c *Column) PresentCount() int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if c.Present(i) {
			n++
		}
	}
	return n
}

// Renamed returns a copy of the column under a new name.
func (c *Column) Renamed(name string) *Column {
	cp := c.take(nil)
	cp.name = NormalizeName(name)
	return cp
}

// take copies the selected rows (all rows when idx is nil).
func (c *Column) take(idx []int) *Column {
	out := &Column{name: c.name, kind: c.kind}
	n := c.Len()
	if idx == nil {
		idx = make([]int, n)
		for i := range idx {
			idx[i] = i
		}
	}
	switch c.kind {
	case KindNumeric:
		out.nums = make([]float64, len(idx))
		for j, i := range idx {
			out.nums[j] = c.nums[i]
		}
	case KindDate:
		out.dates = make([]time.Time, len(idx))
		for j, i := range idx {
			out.dates[j] = c.dates[i]
		}
	default:
		out.strs = make([]string, len(idx))
		for j, i := range idx {
			out.strs[j] = c.strs[i]
		}
	}
	return out
}

// Table is an ordered, immutable collection of equal-length named columns.
type Table struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// New assembles a table. All columns must have the same length and distinct
// names; a later column with a duplicate name replaces the earlier one.
func New(cols ...*Column) (*Table, error) {
	t := &Table{index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if c == nil {
			continue
		}
		if i == 0 || len(t.cols) == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("column %s has %d rows, want %d", c.name, c.Len(), t.rows)
		}
		if j, ok := t.index[c.name]; ok {
			t.cols[j] = c
			continue
		}
		t.index[c.name] = len(t.cols)
		t.cols = append(t.cols, c)
	}
	return t, nil
}

// MustNew is New for statically known inputs; it panics on error.
func MustNew(cols ...*Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// FromRecords builds a table of text columns from a header and string rows.
// Short rows are padded with absent values, long rows truncated.
func FromRecords(header []string, rows [][]string) (*Table, error) {
	cols := make([][]string, len(header))
	for i := range cols {
		cols[i] = make([]string, len(rows))
	}
	for r, rec := range rows {
		for i := range header {
			if i < len(rec) {
				cols[i][r] = strings.TrimSpace(rec[i])
			}
		}
	}
	out := make([]*Column, 0, len(header))
	seen := map[string]bool{}
	for i, h := range header {
		name := NormalizeName(h)
		if name == "" {
			name = fmt.Sprintf("COL%d", i+1)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, NewStrings(name, KindText, cols[i]))
	}
	return New(out...)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return t.rows
}

// Empty reports whether the table is nil or has no rows.
func (t *Table) Empty() bool { return t == nil || t.rows == 0 || len(t.cols) == 0 }

// Names returns the column names in order.
func (t *Table) Names() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.name
	}
	return out
}

// Columns returns the columns in order. Columns are immutable so they are
// shared, not copied.
func (t *Table) Columns() []*Column {
	if t == nil {
		return nil
	}
	out := make([]*Column, len(t.cols))
	copy(out, t.cols)
	return out
}

// Has reports whether a column exists.
func (t *Table) Has(name string) bool {
	if t == nil {
		return false
	}
	_, ok := t.index[NormalizeName(name)]
	return ok
}

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	if t == nil {
		return nil, false
	}
	i, ok := t.index[NormalizeName(name)]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// With returns a new table with col added, or replacing a column of the
// same name in place.
func (t *Table) With(col *Column) (*Table, error) {
	if t == nil || len(t.cols) == 0 {
		return New(col)
	}
	cols := t.Columns()
	if i, ok := t.index[col.name]; ok {
		cols[i] = col
		return New(cols...)
	}
	return New(append(cols, col)...)
}

// Without returns a new table without the named columns.
func (t *Table) Without(names ...string) *Table {
	drop := map[string]bool{}
	for _, n := range names {
		drop[NormalizeName(n)] = true
	}
	var keep []*Column
	for _, c := range t.Columns() {
		if !drop[c.name] {
			keep = append(keep, c)
		}
	}
	out, _ := New(keep...)
	if len(keep) == 0 {
		out.rows = t.Len()
	}
	return out
}

// Rename returns a new table with a column renamed. Renaming onto an
// existing name replaces that column.
func (t *Table) Rename(from, to string) *Table {
	c, ok := t.Column(from)
	if !ok {
		return t
	}
	rest := t.Without(from)
	out, err := rest.With(c.Renamed(to))
	if err != nil {
		return t
	}
	return out
}

// Select returns a new table with the given rows, in the given order.
func (t *Table) Select(rows []int) *Table {
	cols := make([]*Column, len(t.cols))
	for i, c := range t.cols {
		cols[i] = c.take(rows)
	}
	out, _ := New(cols...)
	out.rows = len(rows)
	return out
}

// Filter returns the rows for which keep returns true.
func (t *Table) Filter(keep func(row int) bool) *Table {
	var idx []int
	for i := 0; i < t.Len(); i++ {
		if keep(i) {
			idx = append(idx, i)
		}
	}
	if idx == nil {
		idx = []int{}
	}
	return t.Select(idx)
}

// Concat stacks tables vertically. The result has the union of columns in
// first-seen order; rows from tables lacking a column are absent. A column
// whose kind differs between inputs is carried as text.
func Concat(tables ...*Table) (*Table, error) {
	var order []string
	kinds := map[string]Kind{}
	total := 0
	for _, t := range tables {
		if t == nil {
			continue
		}
		total += t.Len()
		for _, c := range t.cols {
			k, seen := kinds[c.name]
			if !seen {
				order = append(order, c.name)
				kinds[c.name] = c.kind
				continue
			}
			if k != c.kind {
				kinds[c.name] = KindText
			}
		}
	}
	out := make([]*Column, 0, len(order))
	for _, name := range order {
		kind := kinds[name]
		col := &Column{name: name, kind: kind}
		switch kind {
		case KindNumeric:
			col.nums = make([]float64, 0, total)
		case KindDate:
			col.dates = make([]time.Time, 0, total)
		default:
			col.strs = make([]string, 0, total)
		}
		for _, t := range tables {
			if t == nil {
				continue
			}
			src, ok := t.Column(name)
			for r := 0; r < t.Len(); r++ {
				switch kind {
				case KindNumeric:
					v := math.NaN()
					if ok {
						v, _ = src.Float(r)
					}
					col.nums = append(col.nums, v)
				case KindDate:
					var d time.Time
					if ok {
						d, _ = src.Date(r)
					}
					col.dates = append(col.dates, d)
				default:
					s := ""
					if ok {
						s = src.String(r)
					}
					col.strs = append(col.strs, s)
				}
			}
		}
		out = append(out, col)
	}
	return New(out...)
}

// Equal reports whether two tables hold the same columns, kinds and values.
// NaN equals NaN.
func Equal(a, b *Table) bool {
	if a.Len() != b.Len() {
		return false
	}
	an, bn := a.Names(), b.Names()
	if len(an) != len(bn) {
		return false
	}
	for i := range an {
		if an[i] != bn[i] {
			return false
		}
		ca, _ := a.Column(an[i])
		cb, _ := b.Column(bn[i])
		if ca.kind != cb.kind {
			return false
		}
		for r := 0; r < a.Len(); r++ {
			switch ca.kind {
			case KindNumeric:
				va, vb := ca.nums[r], cb.nums[r]
				if math.IsNaN(va) != math.IsNaN(vb) || (!math.IsNaN(va) && va != vb) {
					return false
				}
			case KindDate:
				if !ca.dates[r].Equal(cb.dates[r]) {
					return false
				}
			default:
				if ca.strs[r] != cb.strs[r] {
					return false
				}
			}
		}
	}
	return true
}

// Distinct returns the distinct present string values of a column, sorted
// with SortKeys.
func (t *Table) Distinct(name string) []string {
	c, ok := t.Column(name)
	if !ok {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for i := 0; i < c.Len(); i++ {
		s := c.String(i)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	SortKeys(out)
	return out
}

// SortKeys sorts identifier keys numerically when every key is an integer,
// lexically otherwise.
func SortKeys(keys []string) {
	allInt := true
	nums := make(map[string]int64, len(keys))
	for _, k := range keys {
		n, err := parseInt(k)
		if err != nil {
			allInt = false
			break
		}
		nums[k] = n
	}
	if allInt {
		sort.SliceStable(keys, func(i, j int) bool { return nums[keys[i]] < nums[keys[j]] })
		return
	}
	sort.Strings(keys)
}
