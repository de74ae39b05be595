package pidl

import pidlerrors "github.com/havenworks/pidl/pkg/errors"

// SkipOption supplies a skip predicate's source: a thunk, a context key, or
// a raw value. Exactly one entity-level predicate may be configured per
// action, task, or pipeline.
type SkipOption func(*skipConfig)

type skipConfig struct {
	hasThunk bool
	thunk    func() bool
	hasKey   bool
	key      string
	ctx      *Context
	hasValue bool
	value    any
}

// SkipIf configures a raw truthy/falsey value as the predicate.
func SkipIf(value any) SkipOption {
	return func(cfg *skipConfig) {
		cfg.hasValue = true
		cfg.value = value
	}
}

// SkipIfFunc configures a thunk that lazily evaluates to truthy/falsey.
func SkipIfFunc(fn func() bool) SkipOption {
	return func(cfg *skipConfig) {
		cfg.hasThunk = true
		cfg.thunk = fn
	}
}

// SkipIfKey configures a context key: the predicate evaluates to
// ctx.IsSet(key) && Truthy(ctx.Get(key)).
func SkipIfKey(key string, ctx *Context) SkipOption {
	return func(cfg *skipConfig) {
		cfg.hasKey = true
		cfg.key = key
		cfg.ctx = ctx
	}
}

// skipPredicate is the configured-and-evaluable form of only_if.
type skipPredicate struct {
	cfg skipConfig
}

// newSkipPredicate validates the supplied options and returns the resulting
// predicate, or nil if none was supplied (a no-op, logged by the caller).
// Supplying both a value and a thunk fails with a RuntimeError.
func newSkipPredicate(opts ...SkipOption) (*skipPredicate, error) {
	var cfg skipConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	sources := 0
	if cfg.hasValue {
		sources++
	}
	if cfg.hasThunk {
		sources++
	}
	if cfg.hasKey {
		sources++
	}
	if sources > 1 {
		return nil, pidlerrors.NewRuntimeError("only_if accepts exactly one of value, thunk, or key", nil)
	}
	if sources == 0 {
		return nil, nil
	}
	return &skipPredicate{cfg: cfg}, nil
}

// evaluate resolves the predicate to a truthy/falsey bool.
func (p *skipPredicate) evaluate() bool {
	switch {
	case p.cfg.hasThunk:
		if p.cfg.thunk == nil {
			return false
		}
		return p.cfg.thunk()
	case p.cfg.hasKey:
		return p.cfg.ctx != nil && p.cfg.ctx.IsSet(p.cfg.key) && Truthy(p.cfg.ctx.Get(p.cfg.key))
	default:
		return Truthy(p.cfg.value)
	}
}

// skip reports whether the entity should be skipped: a predicate is
// configured and it evaluates falsey. No predicate configured means never
// skipped.
func (p *skipPredicate) skip() bool {
	if p == nil {
		return false
	}
	return !p.evaluate()
}
