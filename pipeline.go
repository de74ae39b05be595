package pidl

import (
	"fmt"
	"strings"
	"sync"
	"time"

	pidlerrors "github.com/havenworks/pidl/pkg/errors"
)

// Pipeline is the orchestrator: it owns the tasks, the optional error
// handler, and the event stream, and computes/dispatches the wave plan.
type Pipeline struct {
	name string
	ctx  *Context

	tasks map[string]*Task
	order []string // task registration order, used for plan tie-breaks

	skipTasks    map[string]bool
	concurrency  int
	singleThread bool
	factories    map[string]ActionFactory

	errorHandler *Task
	skip         *skipPredicate

	emitter *Emitter
}

// Option configures a Pipeline at construction time.
type Option func(*Pipeline) error

// WithSingleThread forces every wave to run serially regardless of size.
func WithSingleThread(v bool) Option {
	return func(p *Pipeline) error { p.singleThread = v; return nil }
}

// WithConcurrency sets the maximum number of tasks run concurrently within
// one wave. 0 (the default) means unbounded. Negative values fail with an
// ArgumentError.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) error {
		if n < 0 {
			return pidlerrors.NewArgumentError("concurrency", "must be a non-negative integer", nil)
		}
		p.concurrency = n
		return nil
	}
}

// WithSkip marks the named tasks as never run, even though they still
// appear in the plan.
func WithSkip(names ...string) Option {
	return func(p *Pipeline) error {
		for _, n := range names {
			p.skipTasks[n] = true
		}
		return nil
	}
}

// WithActionFactories injects named action factories into every task
// registered on this pipeline.
func WithActionFactories(factories map[string]ActionFactory) Option {
	return func(p *Pipeline) error {
		for name, f := range factories {
			p.factories[name] = f
		}
		return nil
	}
}

// New constructs a Pipeline. Two context values are written immediately:
// job_name (the stringified pipeline name) and run_date (the construction
// timestamp).
func New(name string, ctx *Context, opts ...Option) (*Pipeline, error) {
	if ctx == nil {
		ctx = NewContext()
	}

	p := &Pipeline{
		name:        name,
		ctx:         ctx,
		tasks:       make(map[string]*Task),
		skipTasks:   make(map[string]bool),
		factories:   make(map[string]ActionFactory),
		emitter:     NewEmitter(),
		concurrency: 0,
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	ctx.Set(KeyJobName, name)
	ctx.Set(KeyRunDate, time.Now())

	return p, nil
}

// Context returns the pipeline's shared Context.
func (p *Pipeline) Context() *Context { return p.ctx }

// On subscribes a handler to pipeline-level and forwarded task/action
// events.
func (p *Pipeline) On(event string, handler Handler) (Subscription, error) {
	return p.emitter.On(event, handler)
}

// AddTask registers a task under its own name. Duplicate names fail with an
// ArgumentError.
func (p *Pipeline) AddTask(t *Task) error {
	if _, exists := p.tasks[t.name]; exists {
		return pidlerrors.NewArgumentError("task", fmt.Sprintf("duplicate task name %q", t.name), nil)
	}
	for name, factory := range p.factories {
		t.AddCustomAction(name, factory)
	}
	p.tasks[t.name] = t
	p.order = append(p.order, t.name)
	return nil
}

// OnError configures the pipeline's error handler as a dependency-less task
// named "error_handler" that participates in no plan.
func (p *Pipeline) OnError(fn func(ctx *Context) error) {
	t := NewTask("error_handler")
	_ = t.AddAction(NewFuncAction("error_handler", fn))
	p.errorHandler = t
}

// OnlyIf configures the pipeline's own skip predicate.
func (p *Pipeline) OnlyIf(opts ...SkipOption) error {
	pred, err := newSkipPredicate(opts...)
	if err != nil {
		return err
	}
	if pred == nil {
		p.ctx.Logger().Warn("only_if configured with neither a value nor a thunk; ignoring", "pipeline", p.name)
		return nil
	}
	p.skip = pred
	return nil
}

// Skip evaluates the pipeline's configured predicate, if any.
func (p *Pipeline) Skip() bool {
	if p.skip == nil {
		return false
	}
	return p.skip.skip()
}

// Explain computes the wave plan without running anything.
func (p *Pipeline) Explain() (Plan, error) {
	return buildPlan(p.tasks, p.order, p.concurrency)
}

// DryRun walks the plan and renders each task's own description, without
// running anything. The format is not normative; this returns a multi-line
// string.
func (p *Pipeline) DryRun() (string, error) {
	plan, err := p.Explain()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(plan.String())
	for _, wave := range plan {
		for _, name := range wave {
			b.WriteString(p.tasks[name].DryRun())
		}
	}
	return b.String(), nil
}

// RunOne runs the named task directly, ignoring skip lists and dependencies,
// emitting pipeline_start/pipeline_end around it. Unknown names fail with a
// RuntimeError.
func (p *Pipeline) RunOne(name string) error {
	t, ok := p.tasks[name]
	if !ok {
		return pidlerrors.NewRuntimeError(fmt.Sprintf("unknown task %q", name), nil)
	}

	p.emitter.Emit("pipeline_start", p.name)
	start := time.Now()

	err := t.Run(p.ctx, p.emitter)

	p.emitter.Emit("pipeline_end", p.name, durationMs(start))
	return err
}

// Run computes the plan and executes it wave-by-wave, forwarding task and
// action events to pipeline subscribers. If the run stops because a task
// exited with an error recorded, the configured error handler runs before
// Run returns.
func (p *Pipeline) Run() error {
	plan, err := p.Explain()
	if err != nil {
		return err
	}

	if p.Skip() {
		p.ctx.Logger().Info("pipeline skipped", "pipeline", p.name)
		return nil
	}

	p.emitter.Emit("pipeline_start", p.name)
	start := time.Now()

	errored, runErr := p.runPlan(plan)

	if runErr != nil || errored {
		p.runErrorHandler()
	}

	p.emitter.Emit("pipeline_end", p.name, durationMs(start))
	return runErr
}

// runPlan dispatches every wave in order, stopping after the wave in which a
// task exits. It reports whether that exiting task also left an error
// recorded in the context, which determines whether the error handler runs.
func (p *Pipeline) runPlan(plan Plan) (bool, error) {
	for _, wave := range plan {
		runnable := p.filterSkipped(wave)

		var waveErr error
		if p.singleThread {
			waveErr = p.runWaveSerial(runnable)
		} else {
			waveErr = p.runWaveConcurrent(runnable)
		}

		if waveErr != nil {
			return false, waveErr
		}

		if p.anyExited(runnable) {
			return p.anyErrored(runnable), nil
		}
	}
	return false, nil
}

func (p *Pipeline) filterSkipped(wave []string) []string {
	out := make([]string, 0, len(wave))
	for _, name := range wave {
		if p.skipTasks[name] {
			continue
		}
		out = append(out, name)
	}
	return out
}

func (p *Pipeline) anyExited(names []string) bool {
	for _, name := range names {
		if p.tasks[name].Exit() {
			return true
		}
	}
	return false
}

func (p *Pipeline) anyErrored(names []string) bool {
	for _, name := range names {
		if p.tasks[name].Error() {
			return true
		}
	}
	return false
}

// runWaveSerial runs the wave's tasks in order, skipping any whose own
// Skip() predicate is true, re-emitting each task's events directly onto
// the pipeline emitter.
func (p *Pipeline) runWaveSerial(names []string) error {
	for _, name := range names {
		t := p.tasks[name]
		if t.Skip() {
			p.ctx.Logger().Debug("skipping task", "task", name)
			continue
		}
		if err := t.Run(p.ctx, p.emitter); err != nil {
			return err
		}
	}
	return nil
}

// runWaveConcurrent runs the wave's tasks in parallel goroutines, each
// writing into its own bufferedEmitter, then replays every buffer onto the
// pipeline emitter in task-start order once the whole wave has terminated,
// so subscribers always observe events on a single thread.
func (p *Pipeline) runWaveConcurrent(names []string) error {
	runnable := make([]string, 0, len(names))
	for _, name := range names {
		t := p.tasks[name]
		if t.Skip() {
			p.ctx.Logger().Debug("skipping task", "task", name)
			continue
		}
		runnable = append(runnable, name)
	}

	if len(runnable) == 0 {
		return nil
	}

	buffers := make([]*bufferedEmitter, len(runnable))
	errs := make([]error, len(runnable))

	var wg sync.WaitGroup
	for i, name := range runnable {
		buffers[i] = newBufferedEmitter()
		wg.Add(1)
		go func(i int, t *Task, buf *bufferedEmitter) {
			defer wg.Done()
			errs[i] = t.Run(p.ctx, buf)
		}(i, p.tasks[name], buffers[i])
	}
	wg.Wait()

	for _, buf := range buffers {
		buf.flush(p.emitter)
	}

	return aggregateWaveErrors(runnable, errs)
}

// aggregateWaveErrors reports a wave's failures: a single offending task
// names itself in the error; more than one lists every offending task name.
func aggregateWaveErrors(names []string, errs []error) error {
	var failed []string
	var first error
	for i, err := range errs {
		if err == nil {
			continue
		}
		if first == nil {
			first = err
		}
		failed = append(failed, names[i])
	}

	switch len(failed) {
	case 0:
		return nil
	case 1:
		return pidlerrors.NewRuntimeError(fmt.Sprintf("task %q failed", failed[0]), first)
	default:
		return pidlerrors.NewRuntimeError(fmt.Sprintf("tasks failed: %s", strings.Join(failed, ", ")), first)
	}
}

// runErrorHandler invokes the configured error handler, if any, swallowing
// any error it raises. It is skipped if its own Skip() predicate is true.
func (p *Pipeline) runErrorHandler() {
	if p.errorHandler == nil {
		return
	}
	if p.errorHandler.Skip() {
		return
	}
	if err := p.errorHandler.Run(p.ctx, p.emitter); err != nil {
		p.ctx.Logger().Error(err, "error handler failed", "pipeline", p.name)
	}
}
