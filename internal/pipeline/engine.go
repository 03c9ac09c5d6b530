// Package pipeline turns loaded DSSAT tables into scaled, aligned and scored
// plot data, caching finished results per query.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/KaramelBytes/dssatview/internal/align"
	"github.com/KaramelBytes/dssatview/internal/dates"
	"github.com/KaramelBytes/dssatview/internal/dssat"
	"github.com/KaramelBytes/dssatview/internal/plotcache"
	"github.com/KaramelBytes/dssatview/internal/scale"
	"github.com/KaramelBytes/dssatview/internal/table"
	"github.com/KaramelBytes/dssatview/internal/telemetry"
	"github.com/KaramelBytes/dssatview/internal/varinfo"
)

// TableReader loads a file into a table with upper-cased, trimmed names.
type TableReader interface {
	ReadTable(ctx context.Context, path string) (*table.Table, error)
}

// FolderResolver maps crop folders to directories and known files.
type FolderResolver interface {
	Resolve(folder string) (string, error)
	ObservedFile(folder, experiment string) (string, error)
	EvaluatePath(folder string) (string, error)
}

// ConfigError reports a request that names an unknown folder or an
// unusable installation. It is the only request-level failure.
type ConfigError struct {
	Folder string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error for folder %q: %v", e.Folder, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Options tunes an Engine.
type Options struct {
	Scale         scale.Options
	Normalize     table.Options
	ReportR2      bool
	CacheCapacity int
	Log           *zap.Logger
	Metrics       *telemetry.Metrics
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		Scale:         scale.DefaultOptions(),
		Normalize:     table.DefaultOptions(),
		ReportR2:      true,
		CacheCapacity: plotcache.DefaultCapacity,
	}
}

// Engine owns the date memo, the variable catalog and the plot caches.
// Methods are synchronous; use a Runner to move them off the caller's
// goroutine.
type Engine struct {
	reader   TableReader
	resolver FolderResolver
	catalog  *varinfo.Catalog
	unifier  *dates.Unifier
	series   *plotcache.Cache[*TimeSeries]
	scatter  *plotcache.Cache[*Scatter]
	opt      Options
	log      *zap.Logger
	metrics  *telemetry.Metrics
}

// New wires an Engine. catalog and unifier may be nil.
func New(reader TableReader, resolver FolderResolver, catalog *varinfo.Catalog, unifier *dates.Unifier, opt Options) *Engine {
	log := opt.Log
	if log == nil {
		log = zap.NewNop()
	}
	if unifier == nil {
		unifier = dates.NewUnifier(dates.DefaultCacheSize, log)
	}
	cacheOpts := func(name string) []plotcache.Option {
		return []plotcache.Option{plotcache.WithName(name), plotcache.WithMetrics(opt.Metrics), plotcache.WithLogger(log)}
	}
	return &Engine{
		reader:   reader,
		resolver: resolver,
		catalog:  catalog,
		unifier:  unifier,
		series:   plotcache.New[*TimeSeries](opt.CacheCapacity, cacheOpts("timeseries")...),
		scatter:  plotcache.New[*Scatter](opt.CacheCapacity, cacheOpts("scatter")...),
		opt:      opt,
		log:      log,
		metrics:  opt.Metrics,
	}
}

// Clear drops every cached plot, date conversion and variable lookup.
func (e *Engine) Clear() {
	e.series.Clear()
	e.scatter.Clear()
	e.unifier.Clear()
	if e.catalog != nil {
		e.catalog.Clear()
	}
}

// CacheLen reports the number of cached time series and scatter results.
func (e *Engine) CacheLen() (series, scatter int) { return e.series.Len(), e.scatter.Len() }

// Label returns the display label of a variable code.
func (e *Engine) Label(code string) string {
	if e.catalog == nil {
		return code
	}
	return e.catalog.DisplayName(code)
}

func (e *Engine) resolve(folder string) (string, error) {
	if e.resolver == nil {
		return "", &ConfigError{Folder: folder, Err: errors.New("no folder resolver configured")}
	}
	dir, err := e.resolver.Resolve(folder)
	if err != nil {
		return "", &ConfigError{Folder: folder, Err: err}
	}
	return dir, nil
}

// load reads and normalizes one file and gives it a TRT column.
func (e *Engine) load(ctx context.Context, dir, file string) (*table.Table, error) {
	p := file
	if !filepath.IsAbs(p) {
		p = filepath.Join(dir, file)
	}
	done := e.metrics.Stage("load")
	raw, err := e.reader.ReadTable(ctx, p)
	done()
	if err != nil {
		return nil, err
	}
	done = e.metrics.Stage("normalize")
	t := withTreatment(table.Normalize(raw, e.opt.Normalize))
	done()
	return t, nil
}

// withTreatment renames TRNO to TRT or adds TRT "1" when no treatment
// column exists.
func withTreatment(t *table.Table) *table.Table {
	if t.Empty() || t.Has("TRT") {
		return t
	}
	if t.Has("TRNO") {
		return t.Rename("TRNO", "TRT")
	}
	ones := make([]string, t.Len())
	for i := range ones {
		ones[i] = align.DefaultTreatment
	}
	out, err := t.With(table.NewStrings("TRT", table.KindIdentifier, ones))
	if err != nil {
		return t
	}
	return out
}

// selectKeys canonicalizes requested treatments, falling back to every
// treatment in the tables.
func selectKeys(requested []string, tables ...*table.Table) []string {
	seen := map[string]bool{}
	var keys []string
	for _, k := range requested {
		k = table.CanonicalKey(k)
		if k != "" && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return align.Keys(tables...)
	}
	table.SortKeys(keys)
	return keys
}

// onlyTreatments keeps the rows whose treatment is in keys.
func onlyTreatments(t *table.Table, keys []string) *table.Table {
	if t.Empty() {
		return t
	}
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	trts := align.Treatments(t)
	return t.Filter(func(i int) bool { return want[trts[i]] })
}

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func unknownFolder(err error) bool { return errors.Is(err, dssat.ErrUnknownFolder) }
