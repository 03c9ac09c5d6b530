// Package plotcache memoizes finished plot computations keyed on the query
// that produced them.
package plotcache

import (
	"crypto/sha1"
	"encoding/hex"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/KaramelBytes/dssatview/internal/telemetry"
)

// DefaultCapacity bounds a cache when no capacity is configured.
const DefaultCapacity = 256

// Key is the ordered query tuple. Every element takes part in identity and
// order inside slices matters.
type Key struct {
	Folder     string   `json:"folder"`
	Files      []string `json:"files,omitempty"`
	Experiment string   `json:"experiment,omitempty"`
	Treatments []string `json:"treatments,omitempty"`
	XVar       string   `json:"x_var,omitempty"`
	YVars      []string `json:"y_vars,omitempty"`
}

// String is the canonical, unambiguous encoding of the key.
func (k Key) String() string {
	var b strings.Builder
	field := func(name string, vals ...string) {
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strconv.Itoa(len(vals)))
		for _, v := range vals {
			b.WriteByte(':')
			b.WriteString(strconv.Quote(v))
		}
		b.WriteByte(';')
	}
	field("folder", k.Folder)
	field("files", k.Files...)
	field("experiment", k.Experiment)
	field("treatments", k.Treatments...)
	field("x", k.XVar)
	field("y", k.YVars...)
	return b.String()
}

// Digest is a short stable identifier for the key.
func (k Key) Digest() string {
	sum := sha1.Sum([]byte(k.String()))
	return hex.EncodeToString(sum[:])
}

// Clone returns k with its own slices.
func (k Key) Clone() Key {
	k.Files = slices.Clone(k.Files)
	k.Treatments = slices.Clone(k.Treatments)
	k.YVars = slices.Clone(k.YVars)
	return k
}

// Entry is a stored computation.
type Entry[V any] struct {
	ID      string
	Key     Key
	Value   V
	Created time.Time
}

type settings struct {
	name    string
	metrics *telemetry.Metrics
	log     *zap.Logger
}

// Option configures a Cache.
type Option func(*settings)

// WithName labels the cache in logs and metrics.
func WithName(name string) Option { return func(s *settings) { s.name = name } }

// WithMetrics records hits, misses and evictions.
func WithMetrics(m *telemetry.Metrics) Option { return func(s *settings) { s.metrics = m } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// Cache holds up to capacity entries and evicts the oldest insertion first.
// Lookups do not refresh an entry's age. Callers serialize GetOrCompute for
// overlapping keys.
type Cache[V any] struct {
	settings
	entries  *lru.Cache[string, *Entry[V]]
	clearing bool
}

// New creates a cache; capacity <= 0 uses DefaultCapacity.
func New[V any](capacity int, opts ...Option) *Cache[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Cache[V]{settings: settings{name: "plot", log: zap.NewNop()}}
	for _, o := range opts {
		o(&c.settings)
	}
	c.entries, _ = lru.NewWithEvict[string, *Entry[V]](capacity, func(_ string, e *Entry[V]) {
		if c.clearing {
			return
		}
		c.metrics.CacheEvicted(c.name)
		c.log.Debug("plot cache eviction", zap.String("cache", c.name), zap.String("entry", e.ID))
	})
	return c
}

// GetOrCompute returns the stored value for key, or calls fn, stores its
// result and returns it. hit reports whether fn was skipped. Errors from fn
// are returned and nothing is stored.
func (c *Cache[V]) GetOrCompute(key Key, fn func() (V, error)) (v V, hit bool, err error) {
	id := key.String()
	if e, ok := c.entries.Peek(id); ok {
		c.metrics.CacheHit(c.name, true)
		return e.Value, true, nil
	}
	c.metrics.CacheHit(c.name, false)
	v, err = fn()
	if err != nil {
		return v, false, err
	}
	c.entries.Add(id, &Entry[V]{ID: uuid.NewString(), Key: key, Value: v, Created: time.Now()})
	return v, false, nil
}

// Peek returns a stored value without computing.
func (c *Cache[V]) Peek(key Key) (V, bool) {
	if e, ok := c.entries.Peek(key.String()); ok {
		return e.Value, true
	}
	var zero V
	return zero, false
}

// Entries lists stored entries, oldest first.
func (c *Cache[V]) Entries() []Entry[V] {
	var out []Entry[V]
	for _, k := range c.entries.Keys() {
		if e, ok := c.entries.Peek(k); ok {
			out = append(out, *e)
		}
	}
	return out
}

// Len is the number of stored entries.
func (c *Cache[V]) Len() int { return c.entries.Len() }

// Clear removes every entry.
func (c *Cache[V]) Clear() {
	c.clearing = true
	c.entries.Purge()
	c.clearing = false
}
