package pidl

import (
	"sync"

	pidlerrors "github.com/havenworks/pidl/pkg/errors"
)

// Conventional context keys the core writes to.
const (
	KeyJobName  = "job_name"
	KeyRunDate  = "run_date"
	KeyError    = "error"
	KeyExitCode = "exit_code"
)

// ViewKind distinguishes the two kinds of named auxiliary view: keyed
// mappings, and parameterless views over a sequence or scalar.
type ViewKind int

const (
	// ViewKindMapping views are keyed: Get(key) and All() are valid.
	ViewKindMapping ViewKind = iota
	// ViewKindScalar views are parameterless: Value() returns the value verbatim.
	ViewKindScalar
)

// View is a read-only accessor over one named auxiliary option supplied at
// Context construction.
type View struct {
	name    string
	kind    ViewKind
	mapping map[string]any
	value   any
}

// Get returns the value mapped to key. Only valid for mapping-typed views;
// fails with a KeyError when key is absent.
func (v View) Get(key string) (any, error) {
	if v.kind != ViewKindMapping {
		return nil, pidlerrors.NewNoMethodError(v.name + ".get")
	}
	val, ok := v.mapping[key]
	if !ok {
		return nil, pidlerrors.NewKeyError(v.name, key)
	}
	return val, nil
}

// All returns the entire mapping backing a mapping-typed view.
func (v View) All() (map[string]any, error) {
	if v.kind != ViewKindMapping {
		return nil, pidlerrors.NewNoMethodError(v.name + ".all")
	}
	out := make(map[string]any, len(v.mapping))
	for k, val := range v.mapping {
		out[k] = val
	}
	return out, nil
}

// Value returns a scalar or sequence-typed view verbatim.
func (v View) Value() (any, error) {
	if v.kind != ViewKindScalar {
		return nil, pidlerrors.NewNoMethodError(v.name + ".value")
	}
	return v.value, nil
}

// Context is the shared, thread-safe key/value state for one pipeline run.
// All reads and writes serialize on a single mutex; there is no per-key
// locking.
type Context struct {
	mu     sync.Mutex
	values map[string]any
	views  map[string]View
	logger Logger
}

// ContextOption configures a Context at construction time.
type ContextOption func(*Context)

// WithView registers a named auxiliary option. Mapping values (map[string]any)
// become keyed accessors; anything else (slice or scalar) becomes a
// parameterless accessor returning the value verbatim.
func WithView(name string, value any) ContextOption {
	return func(c *Context) {
		if mapping, ok := value.(map[string]any); ok {
			c.views[name] = View{name: name, kind: ViewKindMapping, mapping: mapping}
			return
		}
		c.views[name] = View{name: name, kind: ViewKindScalar, value: value}
	}
}

// WithLogger overrides the Context's logger. Omitted, a no-op logger is used.
func WithLogger(l Logger) ContextOption {
	return func(c *Context) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewContext builds a Context from the supplied named options.
func NewContext(opts ...ContextOption) *Context {
	c := &Context{
		values: make(map[string]any),
		views:  make(map[string]View),
		logger: NoopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set is an idempotent write: it serializes with all other context
// mutations and overwrites any prior value.
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// Get returns the value stored at key, or nil if unset. Reads never fail.
func (c *Context) Get(key string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[key]
}

// IsSet reports whether a value is present at key and is not nil.
func (c *Context) IsSet(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return ok && v != nil
}

// All returns a snapshot of every user-set key/value pair.
func (c *Context) All() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// View returns the named auxiliary accessor, failing with a NoMethodError
// if it was never registered at construction.
func (c *Context) View(name string) (View, error) {
	v, ok := c.views[name]
	if !ok {
		return View{}, pidlerrors.NewNoMethodError(name)
	}
	return v, nil
}

// Logger returns the context's configured logger (never nil).
func (c *Context) Logger() Logger {
	if c.logger == nil {
		return NoopLogger()
	}
	return c.logger
}
