package pidl

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	pidlerrors "github.com/havenworks/pidl/pkg/errors"
)

// ErrorPolicy governs how a Task reacts to an Action's failure.
type ErrorPolicy int

const (
	// PolicyRaise re-raises the failure out of the task, aborting it and the
	// pipeline. The default policy.
	PolicyRaise ErrorPolicy = iota
	// PolicyExit swallows the failure locally, flags the task as exited, and
	// records the action's exit code; the pipeline terminates after the wave.
	PolicyExit
	// PolicyContinue swallows and logs the failure; later actions still run.
	PolicyContinue
)

// ParseErrorPolicy maps a configuration string onto an ErrorPolicy. Unknown
// strings fail with a RuntimeError.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "raise", "":
		return PolicyRaise, nil
	case "exit":
		return PolicyExit, nil
	case "continue":
		return PolicyContinue, nil
	default:
		return PolicyRaise, pidlerrors.NewRuntimeError(fmt.Sprintf("invalid error policy %q", s), nil)
	}
}

// NormalizeExitCode coerces a recorded exit value to a process exit code:
// nil (nothing recorded) and zero are zero; an int, int64, integral
// float64 or numeric string that is non-zero is that integer; anything
// else (a non-numeric string, a non-integral float, any other type)
// becomes 1.
func NormalizeExitCode(v any) int {
	switch val := v.(type) {
	case nil:
		return 0
	case int:
		if val == 0 {
			return 0
		}
		return val
	case int64:
		if val == 0 {
			return 0
		}
		return int(val)
	case float64:
		if val != math.Trunc(val) {
			return 1
		}
		if val == 0 {
			return 0
		}
		return int(val)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 1
		}
		if n == 0 {
			return 0
		}
		return n
	default:
		return 1
	}
}

// Action is the unit of work the core consumes. Concrete action
// implementations are out of scope for pidl; callers embed BaseAction and
// implement Run.
type Action interface {
	Name() string
	Skip() bool
	RaiseOnError() bool
	ExitOnError() bool
	ExitCode() int
	Run(ctx *Context) error
}

// Verb is implemented by actions configured with a distinct verb/type
// symbol. Actions that don't implement it are identified by their own
// Name().
type Verb interface {
	Verb() string
}

// DryRunner is an optional interface an Action may implement to describe
// itself for Pipeline.DryRun without performing any work.
type DryRunner interface {
	DryRun() string
}

// Validator is an optional interface an Action may implement; Task.AddAction
// calls it immediately after registration.
type Validator interface {
	Validate() error
}

// BaseAction supplies the bookkeeping every concrete Action embeds: a name,
// an error policy, an exit code, and an optional skip predicate. It
// implements every Action method except Run.
type BaseAction struct {
	ActionName string
	ActionVerb string
	policy     ErrorPolicy
	exitCode   int
	skip       *skipPredicate
}

// NewBaseAction constructs a BaseAction with the default RAISE policy.
func NewBaseAction(name string) BaseAction {
	return BaseAction{ActionName: name, ActionVerb: name, policy: PolicyRaise}
}

// Name returns the action's configured name.
func (b *BaseAction) Name() string { return b.ActionName }

// Verb returns the action's configured verb, defaulting to its name.
func (b *BaseAction) Verb() string {
	if b.ActionVerb != "" {
		return b.ActionVerb
	}
	return b.ActionName
}

// OnError configures the action's error policy. code is only meaningful
// under PolicyExit and defaults to 0.
func (b *BaseAction) OnError(policy ErrorPolicy, code ...int) {
	b.policy = policy
	if len(code) > 0 {
		b.exitCode = NormalizeExitCode(code[0])
	}
}

// RaiseOnError reports whether the configured policy is PolicyRaise.
func (b *BaseAction) RaiseOnError() bool { return b.policy == PolicyRaise }

// ExitOnError reports whether the configured policy is PolicyExit.
func (b *BaseAction) ExitOnError() bool { return b.policy == PolicyExit }

// ExitCode returns the configured exit code; meaningful only under PolicyExit.
func (b *BaseAction) ExitCode() int { return b.exitCode }

// OnlyIf configures the action's skip predicate. Supplying both a value and
// a thunk fails with a RuntimeError; supplying neither logs a warning via
// the given logger and leaves the predicate unset.
func (b *BaseAction) OnlyIf(logger Logger, opts ...SkipOption) error {
	pred, err := newSkipPredicate(opts...)
	if err != nil {
		return err
	}
	if pred == nil {
		if logger != nil {
			logger.Warn("only_if configured with neither a value nor a thunk; ignoring", "action", b.ActionName)
		}
		return nil
	}
	b.skip = pred
	return nil
}

// Skip evaluates the action's configured predicate, if any.
func (b *BaseAction) Skip() bool {
	if b.skip == nil {
		return false
	}
	return b.skip.skip()
}

// ActionString renders the core's canonical action identity:
// "<ActionTypeName>:<action_name>:<action_verb>".
func ActionString(a Action) string {
	typeName := actionTypeName(a)
	verb := a.Name()
	if v, ok := a.(Verb); ok {
		verb = v.Verb()
	}
	return fmt.Sprintf("%s:%s:%s", typeName, a.Name(), verb)
}

// actionUnwrapper is implemented by decorators (e.g. a config-driven policy
// wrapper) that want ActionString to report the wrapped action's type name
// rather than the decorator's own.
type actionUnwrapper interface {
	Unwrap() Action
}

func actionTypeName(a Action) string {
	for {
		if u, ok := a.(actionUnwrapper); ok {
			a = u.Unwrap()
			continue
		}
		break
	}
	t := reflect.TypeOf(a)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// FuncAction adapts a plain function into an Action, used for the pipeline's
// error handler and for small inline actions in tests and examples.
type FuncAction struct {
	BaseAction
	Fn func(ctx *Context) error
}

// NewFuncAction constructs a FuncAction with the default RAISE policy.
func NewFuncAction(name string, fn func(ctx *Context) error) *FuncAction {
	return &FuncAction{BaseAction: NewBaseAction(name), Fn: fn}
}

// Run invokes the wrapped function.
func (f *FuncAction) Run(ctx *Context) error {
	if f.Fn == nil {
		return nil
	}
	return f.Fn(ctx)
}
