package pidllog

import "github.com/havenworks/pidl"

type noop struct{}

func (noop) Debug(string, ...any)       {}
func (noop) Info(string, ...any)        {}
func (noop) Warn(string, ...any)        {}
func (noop) Error(error, string, ...any) {}

// NoOp returns a pidl.Logger that discards everything. Equivalent to
// pidl.NoopLogger, exposed here so callers configuring pidllog explicitly
// don't also need to import the root package just for this.
func NoOp() pidl.Logger { return noop{} }

var _ pidl.Logger = noop{}
