// Package loader reads simulation output and observation files into tables.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/KaramelBytes/dssatview/internal/table"
	"github.com/KaramelBytes/dssatview/internal/telemetry"
)

// Format reads one kind of tabular file.
type Format interface {
	Name() string
	CanRead(path string) bool
	Read(path string) (*table.Table, error)
}

// ErrUnsupported indicates no registered format accepts the file.
var ErrUnsupported = errors.New("unsupported table format")

// Loader dispatches to the first format accepting a path.
type Loader struct {
	formats []Format
	log     *zap.Logger
	metrics *telemetry.Metrics
}

// Option configures a Loader.
type Option func(*Loader)

func WithLogger(l *zap.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.log = l
		}
	}
}

func WithMetrics(m *telemetry.Metrics) Option { return func(ld *Loader) { ld.metrics = m } }

// New returns a Loader with the CSV, XLSX and DSSAT formats registered.
// DSSAT is the fallback for any other extension.
func New(opts ...Option) *Loader {
	ld := &Loader{log: zap.NewNop()}
	for _, o := range opts {
		o(ld)
	}
	ld.Register(CSV{})
	ld.Register(XLSX{})
	ld.Register(DSSAT{})
	return ld
}

// Register appends a format. Earlier formats win.
func (ld *Loader) Register(f Format) { ld.formats = append(ld.formats, f) }

// ReadTable loads path. Column names come back upper-cased and trimmed.
func (ld *Loader) ReadTable(ctx context.Context, path string) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat %s: %w", filepath.Base(path), err)
	}
	for _, f := range ld.formats {
		if !f.CanRead(path) {
			continue
		}
		t, err := f.Read(path)
		if err != nil {
			return nil, fmt.Errorf("read %s as %s: %w", filepath.Base(path), f.Name(), err)
		}
		ld.metrics.Rows(f.Name(), t.Len())
		ld.log.Debug("table loaded", zap.String("file", path), zap.String("format", f.Name()), zap.Int("rows", t.Len()), zap.Int("cols", len(t.Names())))
		return t, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(path))
}

func hasExt(path string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
