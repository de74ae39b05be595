package pidl

import (
	"fmt"
	"time"

	pidlerrors "github.com/havenworks/pidl/pkg/errors"
)

// ActionFactory builds a named custom action type, registered via
// Task.AddCustomAction so a declarative configuration surface (see
// internal/pidlconfig) can instantiate action types by name.
type ActionFactory func(name string) (Action, error)

// Task is an ordered collection of actions with prerequisite task names.
type Task struct {
	name      string
	actions   []Action
	prereqs   []string
	factories map[string]ActionFactory

	skip *skipPredicate

	exitFlag bool
	exitCode int
	ctx      *Context // set once Run begins, used by Error()
}

// NewTask constructs an empty, unconfigured Task.
func NewTask(name string) *Task {
	return &Task{name: name, factories: make(map[string]ActionFactory)}
}

// Name returns the task's configured name.
func (t *Task) Name() string { return t.name }

// AddAction appends an action to the task's ordered list. If the action
// implements Validator, Validate is called immediately.
func (t *Task) AddAction(a Action) error {
	if v, ok := a.(Validator); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	t.actions = append(t.actions, a)
	return nil
}

// AddCustomAction registers a factory so a declarative configuration surface
// may instantiate this action type by name.
func (t *Task) AddCustomAction(typeName string, factory ActionFactory) {
	t.factories[typeName] = factory
}

// BuildAction instantiates a previously registered custom action type.
func (t *Task) BuildAction(typeName, name string) (Action, error) {
	factory, ok := t.factories[typeName]
	if !ok {
		return nil, pidlerrors.NewArgumentError("action_type", fmt.Sprintf("no factory registered for %q", typeName), nil)
	}
	return factory(name)
}

// After declares prerequisite task names.
func (t *Task) After(names ...string) {
	t.prereqs = append(t.prereqs, names...)
}

// Prereqs returns the task's declared prerequisite names.
func (t *Task) Prereqs() []string {
	return append([]string(nil), t.prereqs...)
}

// OnlyIf configures the task's skip predicate.
func (t *Task) OnlyIf(logger Logger, opts ...SkipOption) error {
	pred, err := newSkipPredicate(opts...)
	if err != nil {
		return err
	}
	if pred == nil {
		if logger != nil {
			logger.Warn("only_if configured with neither a value nor a thunk; ignoring", "task", t.name)
		}
		return nil
	}
	t.skip = pred
	return nil
}

// Skip evaluates the task's configured predicate, if any.
func (t *Task) Skip() bool {
	if t.skip == nil {
		return false
	}
	return t.skip.skip()
}

// First reports whether the task has no prerequisites.
func (t *Task) First() bool { return len(t.prereqs) == 0 }

// Ready reports whether every prerequisite is present in seen.
func (t *Task) Ready(seen map[string]bool) bool {
	for _, p := range t.prereqs {
		if !seen[p] {
			return false
		}
	}
	return true
}

// Exit reports whether an EXIT-policy action failed during this task's run.
func (t *Task) Exit() bool { return t.exitFlag }

// ExitCode returns the exit code recorded by an EXIT-policy failure.
func (t *Task) ExitCode() int { return t.exitCode }

// Error reports whether the shared context has an error recorded. The flag
// lives on the Context rather than locally on the task, so any task run
// after a failure elsewhere in the same run also reports error.
func (t *Task) Error() bool {
	if t.ctx == nil {
		return false
	}
	return t.ctx.IsSet(KeyError)
}

// DryRun renders a description of the task and its actions without running
// anything.
func (t *Task) DryRun() string {
	out := t.name + ":\n"
	for _, a := range t.actions {
		if dr, ok := a.(DryRunner); ok {
			out += "  - " + dr.DryRun() + "\n"
			continue
		}
		out += "  - " + ActionString(a) + "\n"
	}
	return out
}

// Run executes every action in declaration order, applying each action's
// error policy, and emits task/action lifecycle events onto emit.
func (t *Task) Run(ctx *Context, emit sink) error {
	t.ctx = ctx

	start := time.Now()
	emit.Emit("task_start", t.name)

	for _, a := range t.actions {
		if a.Skip() {
			ctx.Logger().Debug("skipping action", "task", t.name, "action", ActionString(a))
			continue
		}

		actionStr := ActionString(a)
		emit.Emit("action_start", actionStr)
		actionStart := time.Now()

		err := a.Run(ctx)
		if err == nil {
			emit.Emit("action_end", actionStr, durationMs(actionStart))
			continue
		}

		switch {
		case a.RaiseOnError():
			ctx.Set(KeyError, err.Error())
			emit.Emit("task_end", t.name, durationMs(start))
			return err
		case a.ExitOnError():
			ctx.Set(KeyError, err.Error())
			t.exitFlag = true
			t.exitCode = a.ExitCode()
			ctx.Set(KeyExitCode, t.exitCode)
			emit.Emit("task_end", t.name, durationMs(start))
			return nil
		default: // PolicyContinue
			ctx.Logger().Error(err, "action failed, continuing", "task", t.name, "action", actionStr)
		}
	}

	emit.Emit("task_end", t.name, durationMs(start))
	return nil
}

func durationMs(since time.Time) int {
	return int(time.Since(since).Milliseconds())
}
