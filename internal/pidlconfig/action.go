package pidlconfig

import "github.com/havenworks/pidl"

// onlyIf evaluates a document's declarative only_if block using the same
// skip formula as pidl's own predicates, independently of the inner
// action's own Skip() so YAML can gate an action pidl itself doesn't know
// how to configure a predicate on.
type onlyIf struct {
	key   string
	ctx   *pidl.Context
	value any
}

func newOnlyIf(def *OnlyIfDef, ctx *pidl.Context) *onlyIf {
	if def.Key != "" {
		return &onlyIf{key: def.Key, ctx: ctx}
	}
	return &onlyIf{value: def.Value}
}

func (o *onlyIf) skip() bool {
	if o == nil {
		return false
	}
	if o.key != "" {
		return !(o.ctx != nil && o.ctx.IsSet(o.key) && pidl.Truthy(o.ctx.Get(o.key)))
	}
	return !pidl.Truthy(o.value)
}

// configuredAction decorates a factory-built pidl.Action with the error
// policy and skip predicate declared in YAML, without requiring the
// concrete action type to know about either.
type configuredAction struct {
	inner    pidl.Action
	policy   pidl.ErrorPolicy
	exitCode int
	onlyIf   *onlyIf
}

func (c *configuredAction) Name() string { return c.inner.Name() }

func (c *configuredAction) Skip() bool {
	if c.onlyIf.skip() {
		return true
	}
	return c.inner.Skip()
}

func (c *configuredAction) RaiseOnError() bool { return c.policy == pidl.PolicyRaise }
func (c *configuredAction) ExitOnError() bool  { return c.policy == pidl.PolicyExit }
func (c *configuredAction) ExitCode() int      { return c.exitCode }

func (c *configuredAction) Run(ctx *pidl.Context) error { return c.inner.Run(ctx) }

// Unwrap exposes the wrapped action so pidl.ActionString reports its real
// type name instead of configuredAction's.
func (c *configuredAction) Unwrap() pidl.Action { return c.inner }

func (c *configuredAction) Verb() string {
	if v, ok := c.inner.(pidl.Verb); ok {
		return v.Verb()
	}
	return c.inner.Name()
}

func (c *configuredAction) DryRun() string {
	if dr, ok := c.inner.(pidl.DryRunner); ok {
		return dr.DryRun()
	}
	return pidl.ActionString(c.inner)
}

var _ pidl.Action = (*configuredAction)(nil)
var _ pidl.Verb = (*configuredAction)(nil)
var _ pidl.DryRunner = (*configuredAction)(nil)
