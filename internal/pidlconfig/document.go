// Package pidlconfig decodes a declarative YAML pipeline document into a
// *pidl.Pipeline, using the same builder calls (pidl.New, Task.AddAction,
// ...) a Go caller would use directly. It is sugar over the builder API,
// not a second engine.
package pidlconfig

import (
	"fmt"

	"github.com/havenworks/pidl"
)

// Document is the top-level declarative pipeline definition.
type Document struct {
	Name         string     `yaml:"name" validate:"required,min=1,max=100"`
	Concurrency  int        `yaml:"concurrency,omitempty" validate:"omitempty,min=0,max=256"`
	SingleThread bool       `yaml:"single_thread,omitempty"`
	Skip         []string   `yaml:"skip,omitempty"`
	Tasks        []TaskDef  `yaml:"tasks" validate:"required,min=1,dive"`
}

// OnlyIfDef configures a skip predicate from either a context key or a raw
// value; at most one may be set (validated post-decode, since validator/v10
// struct tags can't express "exactly one of").
type OnlyIfDef struct {
	Key   string `yaml:"key,omitempty"`
	Value any    `yaml:"value,omitempty"`
}

func (o *OnlyIfDef) configured() bool {
	return o != nil && (o.Key != "" || o.Value != nil)
}

// ActionDef references a previously registered action factory by type name,
// plus the error policy pidl applies around it.
type ActionDef struct {
	Type     string     `yaml:"type" validate:"required"`
	Name     string     `yaml:"name" validate:"required"`
	OnError  string     `yaml:"on_error,omitempty" validate:"omitempty,oneof=raise exit continue"`
	ExitCode int        `yaml:"exit_code,omitempty"`
	OnlyIf   *OnlyIfDef `yaml:"only_if,omitempty"`
}

// TaskDef declares one task and its prerequisites.
type TaskDef struct {
	Name    string      `yaml:"name" validate:"required,min=1"`
	After   []string    `yaml:"after,omitempty"`
	OnlyIf  *OnlyIfDef  `yaml:"only_if,omitempty"`
	Actions []ActionDef `yaml:"actions" validate:"required,min=1,dive"`
}

// Build constructs a *pidl.Pipeline from a decoded Document. factories
// supplies the action types the document's "type" fields reference;
// ctxOpts configure the shared Context the same way a Go caller would pass
// them to pidl.NewContext.
func Build(doc *Document, factories map[string]pidl.ActionFactory, ctxOpts ...pidl.ContextOption) (*pidl.Pipeline, error) {
	ctx := pidl.NewContext(ctxOpts...)

	opts := []pidl.Option{
		pidl.WithConcurrency(doc.Concurrency),
		pidl.WithSingleThread(doc.SingleThread),
	}
	if len(doc.Skip) > 0 {
		opts = append(opts, pidl.WithSkip(doc.Skip...))
	}
	if len(factories) > 0 {
		opts = append(opts, pidl.WithActionFactories(factories))
	}

	p, err := pidl.New(doc.Name, ctx, opts...)
	if err != nil {
		return nil, err
	}

	for _, taskDef := range doc.Tasks {
		task, err := buildTask(taskDef, ctx)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", taskDef.Name, err)
		}
		if err := p.AddTask(task); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func buildTask(def TaskDef, ctx *pidl.Context) (*pidl.Task, error) {
	task := pidl.NewTask(def.Name)
	if len(def.After) > 0 {
		task.After(def.After...)
	}

	if def.OnlyIf.configured() {
		if err := task.OnlyIf(ctx.Logger(), onlyIfOption(def.OnlyIf, ctx)); err != nil {
			return nil, err
		}
	}

	for _, actionDef := range def.Actions {
		action, err := buildAction(actionDef, task, ctx)
		if err != nil {
			return nil, fmt.Errorf("action %q: %w", actionDef.Name, err)
		}
		if err := task.AddAction(action); err != nil {
			return nil, err
		}
	}

	return task, nil
}

func buildAction(def ActionDef, task *pidl.Task, ctx *pidl.Context) (pidl.Action, error) {
	inner, err := task.BuildAction(def.Type, def.Name)
	if err != nil {
		return nil, err
	}

	policy, err := pidl.ParseErrorPolicy(def.OnError)
	if err != nil {
		return nil, err
	}

	wrapped := &configuredAction{
		inner:    inner,
		policy:   policy,
		exitCode: pidl.NormalizeExitCode(def.ExitCode),
	}
	if def.OnlyIf.configured() {
		wrapped.onlyIf = newOnlyIf(def.OnlyIf, ctx)
	}
	return wrapped, nil
}

func onlyIfOption(def *OnlyIfDef, ctx *pidl.Context) pidl.SkipOption {
	if def.Key != "" {
		return pidl.SkipIfKey(def.Key, ctx)
	}
	return pidl.SkipIf(def.Value)
}
