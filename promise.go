package pidl

import (
	"fmt"
	"sync"

	pidlerrors "github.com/havenworks/pidl/pkg/errors"
)

// Promise is a single-assignment, lazily evaluated value. It wraps a raw
// value, a zero-argument thunk, or a reference to a context key, and
// memoizes its result after the first successful evaluation.
type Promise struct {
	mu        sync.Mutex
	evaluated bool
	value     any

	thunk func() (any, error)
	key   string
	ctx   *Context
}

// PromiseOption supplies one of a Promise's mutually exclusive sources.
type PromiseOption func(*promiseConfig) error

type promiseConfig struct {
	hasValue bool
	value    any
	hasThunk bool
	thunk    func() (any, error)
	key      string
	ctx      *Context
}

// WithValue configures the Promise with a raw, already-evaluated value.
func WithValue(v any) PromiseOption {
	return func(cfg *promiseConfig) error {
		cfg.hasValue = true
		cfg.value = v
		return nil
	}
}

// WithThunk configures the Promise with a zero-argument callable, invoked
// the first time Value() is called. Once it has returned without error it
// is never invoked again; a call that returned an error is retried by the
// next Value().
func WithThunk(fn func() (any, error)) PromiseOption {
	return func(cfg *promiseConfig) error {
		cfg.hasThunk = true
		cfg.thunk = fn
		return nil
	}
}

// WithContextKey configures the Promise to read key from ctx on demand. A
// key without a context resolves to the key itself (a bare symbol).
func WithContextKey(key string, ctx *Context) PromiseOption {
	return func(cfg *promiseConfig) error {
		cfg.key = key
		cfg.ctx = ctx
		return nil
	}
}

// NewPromise constructs a Promise from exactly one source. Supplying both a
// raw value and a thunk fails with an ArgumentError.
func NewPromise(opts ...PromiseOption) (*Promise, error) {
	var cfg promiseConfig
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if cfg.hasValue && cfg.hasThunk {
		return nil, pidlerrors.NewArgumentError("promise", "value and thunk cannot both be supplied", nil)
	}

	p := &Promise{}
	switch {
	case cfg.hasValue:
		p.value = cfg.value
		p.evaluated = true
	case cfg.hasThunk:
		p.thunk = cfg.thunk
	case cfg.key != "":
		p.key = cfg.key
		p.ctx = cfg.ctx
		if cfg.ctx == nil {
			// A bare symbol without a context resolves to itself.
			p.value = cfg.key
			p.evaluated = true
		}
	default:
		p.value = nil
		p.evaluated = true
	}
	return p, nil
}

// Value forces evaluation, memoizing the result. Subsequent calls return the
// same memoized value even if the underlying thunk would now return
// something different. A thunk or context read that fails is not memoized:
// nothing was successfully assigned, so the next call retries.
func (p *Promise) Value() (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.evaluated {
		return p.value, nil
	}

	switch {
	case p.thunk != nil:
		v, err := p.thunk()
		if err != nil {
			return nil, err
		}
		p.value = v
		p.evaluated = true
		return p.value, nil
	case p.ctx != nil:
		p.value = p.ctx.Get(p.key)
		p.evaluated = true
		return p.value, nil
	default:
		p.evaluated = true
		return p.value, nil
	}
}

// Evaluated reports whether the value has been materialized. Always true
// for raw values; for a (key, context) source it becomes true only after
// Value() has been called at least once.
func (p *Promise) Evaluated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.evaluated
}

// String forces evaluation and renders the result. Evaluation errors render
// as an empty string; callers needing the error should call Value directly.
func (p *Promise) String() string {
	v, err := p.Value()
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// Truthy reports the Go-idiomatic truthiness of a forced value: anything but
// nil, false, and the empty string is truthy. Used throughout skip-predicate
// evaluation.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	default:
		return true
	}
}
