// Package dates converts the date encodings found in DSSAT files (year plus
// day-of-year, 2-digit-year compact codes, ISO dates) into calendar dates.
package dates

import (
	"math"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/KaramelBytes/dssatview/internal/table"
)

// DefaultCacheSize bounds the memoized conversions.
const DefaultCacheSize = 1024

// PivotYear splits 2-digit years: values at or below it are 20xx.
const PivotYear = 30

// Key is a canonical calendar date or the not-a-date marker.
type Key struct {
	Time  time.Time
	Valid bool
}

// NotADate marks an input that could not be converted.
var NotADate = Key{}

// Year returns the calendar year, 0 for NotADate.
func (k Key) Year() int {
	if !k.Valid {
		return 0
	}
	return k.Time.Year()
}

// DOY returns the day of year, 0 for NotADate.
func (k Key) DOY() int {
	if !k.Valid {
		return 0
	}
	return k.Time.YearDay()
}

func (k Key) String() string {
	if !k.Valid {
		return "NaT"
	}
	return k.Time.Format("2006-01-02")
}

// Input is one of the two accepted shapes: Year+DOY, or a compact code.
type Input struct {
	Year    *float64
	DOY     *float64
	Compact string
}

// FromYearDOY builds a Key for a year and day of year. DOY must be in
// [1,366] and must exist in that year.
func FromYearDOY(year, doy int) Key {
	if doy < 1 || doy > 366 || year < 1 || year > 9999 {
		return NotADate
	}
	t := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, doy-1)
	if t.Year() != year {
		return NotADate
	}
	return Key{Time: t, Valid: true}
}

// FromCompact parses a YYDDD code, e.g. "91083" for 1991 day 83. Numeric
// spellings like "91083.0" are accepted and short codes are zero padded.
func FromCompact(code string) Key {
	code = strings.TrimSpace(code)
	if code == "" {
		return NotADate
	}
	f, err := strconv.ParseFloat(code, 64)
	if err != nil || f < 0 || f != math.Trunc(f) || f > 99999 {
		return NotADate
	}
	n := int(f)
	yy, doy := n/1000, n%1000
	year := 1900 + yy
	if yy <= PivotYear {
		year = 2000 + yy
	}
	return FromYearDOY(year, doy)
}

// FromYearDOYCode parses a 7-digit YYYYDDD code.
func FromYearDOYCode(code string) Key {
	n, err := strconv.Atoi(strings.TrimSpace(code))
	if err != nil || n < 0 {
		return NotADate
	}
	return FromYearDOY(n/1000, n%1000)
}

var layouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
	"02-Jan-2006",
}

// ParseDate accepts the date spellings seen in observation and output
// files. Unparsable input yields NotADate.
func ParseDate(s string) Key {
	s = strings.TrimSpace(s)
	if s == "" {
		return NotADate
	}
	if isDigits(s) {
		switch len(s) {
		case 5:
			return FromCompact(s)
		case 7:
			return FromYearDOYCode(s)
		}
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return Key{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valid: true}
		}
	}
	return NotADate
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// cacheKey is the exact input tuple; absent numbers are flagged so that
// nil and 0 never collide.
type cacheKey struct {
	hasYear, hasDOY bool
	year, doy       float64
	compact         string
}

// Unifier memoizes conversions in a bounded LRU. It is safe for concurrent
// use.
type Unifier struct {
	cache *lru.Cache[cacheKey, Key]
	log   *zap.Logger
}

// NewUnifier creates a Unifier; size <= 0 uses DefaultCacheSize.
func NewUnifier(size int, log *zap.Logger) *Unifier {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	c, _ := lru.New[cacheKey, Key](size)
	return &Unifier{cache: c, log: log}
}

// Unify converts either a compact code or a year/day-of-year pair. When both
// are given the compact code wins. Bad input returns NotADate.
func (u *Unifier) Unify(in Input) Key {
	k := cacheKey{compact: strings.TrimSpace(in.Compact)}
	if in.Year != nil {
		k.hasYear, k.year = true, *in.Year
	}
	if in.DOY != nil {
		k.hasDOY, k.doy = true, *in.DOY
	}
	if v, ok := u.cache.Get(k); ok {
		return v
	}
	v := convert(k)
	if !v.Valid {
		u.log.Debug("unparsable date", zap.String("compact", k.compact), zap.Float64("year", k.year), zap.Float64("doy", k.doy))
	}
	u.cache.Add(k, v)
	return v
}

func convert(k cacheKey) Key {
	if k.compact != "" {
		return FromCompact(k.compact)
	}
	if !k.hasYear || !k.hasDOY {
		return NotADate
	}
	if math.IsNaN(k.year) || math.IsNaN(k.doy) || k.year != math.Trunc(k.year) || k.doy != math.Trunc(k.doy) {
		return NotADate
	}
	if k.doy < 1 || k.doy > 366 {
		return NotADate
	}
	return FromYearDOY(int(k.year), int(k.doy))
}

// Len reports the number of memoized conversions.
func (u *Unifier) Len() int { return u.cache.Len() }

// Clear drops every memoized conversion.
func (u *Unifier) Clear() { u.cache.Purge() }

// WithDateColumn returns a copy of t with a Date-kind DATE column. It is
// derived from an existing DATE column when present, else from YEAR and DOY.
// Tables with neither are returned unchanged.
func (u *Unifier) WithDateColumn(t *table.Table) *table.Table {
	if t.Empty() {
		return t
	}
	if c, ok := t.Column("DATE"); ok {
		if c.Kind() == table.KindDate {
			return t
		}
		out := make([]time.Time, c.Len())
		for i := range out {
			s := c.String(i)
			k := ParseDate(s)
			if !k.Valid && s != "" {
				k = u.Unify(Input{Compact: s})
			}
			if k.Valid {
				out[i] = k.Time
			}
		}
		nt, err := t.With(table.NewDates("DATE", out))
		if err != nil {
			return t
		}
		return nt
	}
	yc, okY := t.Column("YEAR")
	dc, okD := t.Column("DOY")
	if !okY || !okD {
		return t
	}
	out := make([]time.Time, t.Len())
	for i := range out {
		var in Input
		if y, ok := numberAt(yc, i); ok {
			in.Year = &y
		}
		if d, ok := numberAt(dc, i); ok {
			in.DOY = &d
		}
		if k := u.Unify(in); k.Valid {
			out[i] = k.Time
		}
	}
	nt, err := t.With(table.NewDates("DATE", out))
	if err != nil {
		return t
	}
	return nt
}

func numberAt(c *table.Column, i int) (float64, bool) {
	if c.Kind() == table.KindNumeric {
		return c.Float(i)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(c.String(i)), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
