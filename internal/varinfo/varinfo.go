// Package varinfo resolves DSSAT variable codes to labels and descriptions.
package varinfo

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const (
	DefaultReferenceCacheSize = 8
	DefaultLookupCacheSize    = 256
)

// Info is the metadata attached to a variable code.
type Info struct {
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Source loads a code->Info reference table from a path.
type Source interface {
	Load(path string) (map[string]Info, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(path string) (map[string]Info, error)

func (f SourceFunc) Load(path string) (map[string]Info, error) { return f(path) }

// DataCDE is the Source for DSSAT DATA.CDE files.
type DataCDE struct{}

func (DataCDE) Load(path string) (map[string]Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference: %w", err)
	}
	defer f.Close()
	return ParseDataCDE(f)
}

// ParseDataCDE reads the fixed-width variable table: code in columns 0-6,
// label in 7-20, description in 21-70, following the first '@' header.
// Lines starting with '!' or '*' are comments.
func ParseDataCDE(r io.Reader) (map[string]Info, error) {
	out := map[string]Info{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	seenHeader := false
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.HasPrefix(line, "!") || strings.HasPrefix(line, "*") {
			continue
		}
		if strings.HasPrefix(line, "@") {
			seenHeader = true
			continue
		}
		if !seenHeader || strings.TrimSpace(line) == "" {
			continue
		}
		code := strings.TrimSpace(field(line, 0, 6))
		if code == "" {
			continue
		}
		out[code] = Info{
			Label:       strings.TrimSpace(field(line, 7, 20)),
			Description: strings.TrimSpace(field(line, 21, 70)),
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan reference: %w", err)
	}
	if !seenHeader {
		return out, fmt.Errorf("no @ header found")
	}
	return out, nil
}

func field(line string, from, to int) string {
	if from >= len(line) {
		return ""
	}
	if to > len(line) {
		to = len(line)
	}
	return line[from:to]
}

type lookupKey struct {
	path, code string
}

type lookupVal struct {
	info Info
	ok   bool
}

// Catalog answers code lookups against one default reference path, caching
// parsed references per path and individual lookups.
type Catalog struct {
	src     Source
	path    string
	refs    *lru.Cache[string, map[string]Info]
	lookups *lru.Cache[lookupKey, lookupVal]
	log     *zap.Logger
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithCacheSizes sets the reference and lookup cache bounds.
func WithCacheSizes(refs, lookups int) Option {
	return func(c *Catalog) {
		if refs > 0 {
			c.refs, _ = lru.New[string, map[string]Info](refs)
		}
		if lookups > 0 {
			c.lookups, _ = lru.New[lookupKey, lookupVal](lookups)
		}
	}
}

// WithLogger sets the logger used for load failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *Catalog) {
		if l != nil {
			c.log = l
		}
	}
}

// NewCatalog creates a Catalog reading path through src. A nil src uses
// DataCDE.
func NewCatalog(src Source, path string, opts ...Option) *Catalog {
	if src == nil {
		src = DataCDE{}
	}
	c := &Catalog{src: src, path: path, log: zap.NewNop()}
	c.refs, _ = lru.New[string, map[string]Info](DefaultReferenceCacheSize)
	c.lookups, _ = lru.New[lookupKey, lookupVal](DefaultLookupCacheSize)
	for _, o := range opts {
		o(c)
	}
	return c
}

// Path returns the default reference path.
func (c *Catalog) Path() string { return c.path }

// Reference returns the parsed reference at path, loading it once. Load
// failures yield an empty table and are not cached.
func (c *Catalog) Reference(path string) map[string]Info {
	if ref, ok := c.refs.Get(path); ok {
		return ref
	}
	if path == "" {
		return map[string]Info{}
	}
	ref, err := c.src.Load(path)
	if err != nil {
		c.log.Warn("variable reference unavailable", zap.String("file", path), zap.Error(err))
		if len(ref) == 0 {
			return map[string]Info{}
		}
	}
	if ref == nil {
		ref = map[string]Info{}
	}
	c.refs.Add(path, ref)
	return ref
}

// Lookup resolves code against the default reference.
func (c *Catalog) Lookup(code string) (Info, bool) {
	return c.LookupIn(c.path, code)
}

// LookupIn resolves code against the reference at path.
func (c *Catalog) LookupIn(path, code string) (Info, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	k := lookupKey{path: path, code: code}
	if v, ok := c.lookups.Get(k); ok {
		return v.info, v.ok
	}
	info, ok := c.Reference(path)[code]
	c.lookups.Add(k, lookupVal{info: info, ok: ok})
	return info, ok
}

// DisplayName returns the label for code, or the code itself.
func (c *Catalog) DisplayName(code string) string {
	if info, ok := c.Lookup(code); ok && info.Label != "" {
		return info.Label
	}
	return code
}

// All returns the default reference table.
func (c *Catalog) All() map[string]Info {
	return c.Reference(c.path)
}

// Clear empties both caches.
func (c *Catalog) Clear() {
	c.refs.Purge()
	c.lookups.Purge()
}
