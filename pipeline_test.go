package pidl

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPipelineRunSerialInDependencyOrder(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var ranOrder []string
	record := func(name string) func(ctx *Context) error {
		return func(ctx *Context) error {
			mu.Lock()
			ranOrder = append(ranOrder, name)
			mu.Unlock()
			return nil
		}
	}

	p, err := New("demo", nil, WithSingleThread(true))
	require.NoError(t, err)

	a := NewTask("a")
	require.NoError(t, a.AddAction(NewFuncAction("a", record("a"))))
	b := NewTask("b")
	b.After("a")
	require.NoError(t, b.AddAction(NewFuncAction("b", record("b"))))

	require.NoError(t, p.AddTask(a))
	require.NoError(t, p.AddTask(b))

	require.NoError(t, p.Run())
	require.Equal(t, []string{"a", "b"}, ranOrder)
}

func TestPipelineWritesJobNameAndRunDate(t *testing.T) {
	t.Parallel()

	ctx := NewContext()
	_, err := New("nightly-build", ctx)
	require.NoError(t, err)

	require.Equal(t, "nightly-build", ctx.Get(KeyJobName))
	require.True(t, ctx.IsSet(KeyRunDate))
}

func TestPipelineRejectsDuplicateTaskNames(t *testing.T) {
	t.Parallel()

	p, err := New("demo", nil)
	require.NoError(t, err)

	require.NoError(t, p.AddTask(NewTask("a")))
	err = p.AddTask(NewTask("a"))
	require.Error(t, err)
}

func TestPipelineRejectsNegativeConcurrency(t *testing.T) {
	t.Parallel()

	_, err := New("demo", nil, WithConcurrency(-1))
	require.Error(t, err)
}

func TestPipelineRaiseAbortsAndRunsErrorHandler(t *testing.T) {
	t.Parallel()

	boom := errors.New("deploy failed")
	handlerCalled := false

	p, err := New("demo", nil, WithSingleThread(true))
	require.NoError(t, err)
	p.OnError(func(ctx *Context) error {
		handlerCalled = true
		require.Equal(t, boom.Error(), ctx.Get(KeyError))
		return nil
	})

	failing := NewTask("deploy")
	require.NoError(t, failing.AddAction(NewFuncAction("deploy", func(ctx *Context) error { return boom })))
	require.NoError(t, p.AddTask(failing))

	err = p.Run()
	require.ErrorIs(t, err, boom)
	require.True(t, handlerCalled)
}

func TestPipelineErrorHandlerRunsExactlyOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	p, err := New("demo", nil, WithSingleThread(true))
	require.NoError(t, err)
	p.OnError(func(ctx *Context) error { calls++; return nil })

	failing := NewTask("deploy")
	require.NoError(t, failing.AddAction(NewFuncAction("deploy", func(ctx *Context) error { return errors.New("x") })))
	require.NoError(t, p.AddTask(failing))

	_ = p.Run()
	require.Equal(t, 1, calls)
}

func TestPipelineExitStopsAfterWaveBoundary(t *testing.T) {
	t.Parallel()

	ranC := false

	p, err := New("demo", nil, WithSingleThread(true))
	require.NoError(t, err)

	a := NewTask("a")
	exiting := &recordingAction{BaseAction: NewBaseAction("a")}
	exiting.OnError(PolicyExit, 3)
	exiting.err = errors.New("a failed")
	require.NoError(t, a.AddAction(exiting))

	b := NewTask("b") // same wave as a, must still run
	ranB := false
	require.NoError(t, b.AddAction(NewFuncAction("b", func(ctx *Context) error { ranB = true; return nil })))

	c := NewTask("c")
	c.After("a", "b") // next wave, must not run
	require.NoError(t, c.AddAction(NewFuncAction("c", func(ctx *Context) error { ranC = true; return nil })))

	require.NoError(t, p.AddTask(a))
	require.NoError(t, p.AddTask(b))
	require.NoError(t, p.AddTask(c))

	require.NoError(t, p.Run())
	require.True(t, ranB, "same-wave sibling tasks still run out")
	require.False(t, ranC, "later waves must not run once a task has exited")
}

func TestPipelineExitRunsErrorHandler(t *testing.T) {
	t.Parallel()

	handlerCalled := false

	p, err := New("demo", nil, WithSingleThread(true))
	require.NoError(t, err)
	p.OnError(func(ctx *Context) error {
		handlerCalled = true
		require.Equal(t, "deploy failed", ctx.Get(KeyError))
		return nil
	})

	deploy := NewTask("deploy")
	exiting := &recordingAction{BaseAction: NewBaseAction("deploy")}
	exiting.OnError(PolicyExit, 1)
	exiting.err = errors.New("deploy failed")
	require.NoError(t, deploy.AddAction(exiting))
	require.NoError(t, p.AddTask(deploy))

	require.NoError(t, p.Run())
	require.True(t, handlerCalled, "error handler must run when an EXIT-policy action leaves an error recorded")
}

func TestPipelineConcurrencyCapProducesPlannedWaves(t *testing.T) {
	t.Parallel()

	p, err := New("demo", nil, WithConcurrency(2))
	require.NoError(t, err)

	a, b, c := NewTask("a"), NewTask("b"), NewTask("c")
	d := NewTask("d")
	d.After("a", "b", "c")

	for _, tk := range []*Task{a, b, c, d} {
		require.NoError(t, p.AddTask(tk))
	}

	plan, err := p.Explain()
	require.NoError(t, err)
	require.Equal(t, Plan{{"a", "b"}, {"c"}, {"d"}}, plan)
}

func TestPipelineRunConcurrentAggregatesMultipleFailures(t *testing.T) {
	t.Parallel()

	p, err := New("demo", nil)
	require.NoError(t, err)

	a := NewTask("a")
	require.NoError(t, a.AddAction(NewFuncAction("a", func(ctx *Context) error { return errors.New("a broke") })))
	b := NewTask("b")
	require.NoError(t, b.AddAction(NewFuncAction("b", func(ctx *Context) error { return errors.New("b broke") })))

	require.NoError(t, p.AddTask(a))
	require.NoError(t, p.AddTask(b))

	err = p.Run()
	require.Error(t, err)
	require.Contains(t, err.Error(), "a")
	require.Contains(t, err.Error(), "b")
}

func TestPipelineRunOneIgnoresDependenciesAndSkipList(t *testing.T) {
	t.Parallel()

	p, err := New("demo", nil, WithSkip("only"))
	require.NoError(t, err)

	ran := false
	task := NewTask("only")
	task.After("setup") // never registered, so the task is never ready in a plan
	require.NoError(t, task.AddAction(NewFuncAction("only", func(ctx *Context) error { ran = true; return nil })))
	require.NoError(t, p.AddTask(task))

	require.NoError(t, p.RunOne("only"))
	require.True(t, ran)
}

func TestPipelineRunOneUnknownTaskFails(t *testing.T) {
	t.Parallel()

	p, err := New("demo", nil)
	require.NoError(t, err)

	err = p.RunOne("ghost")
	require.Error(t, err)
}

func TestPipelineSkipListOmitsTaskFromRun(t *testing.T) {
	t.Parallel()

	ran := false
	p, err := New("demo", nil, WithSingleThread(true), WithSkip("skipped"))
	require.NoError(t, err)

	task := NewTask("skipped")
	require.NoError(t, task.AddAction(NewFuncAction("skipped", func(ctx *Context) error { ran = true; return nil })))
	require.NoError(t, p.AddTask(task))

	require.NoError(t, p.Run())
	require.False(t, ran)
}

func TestPipelineOnForwardsTaskEvents(t *testing.T) {
	t.Parallel()

	p, err := New("demo", nil, WithSingleThread(true))
	require.NoError(t, err)

	var seen []string
	_, err = p.On("task_start", func(event string, args ...any) {
		seen = append(seen, args[0].(string))
	})
	require.NoError(t, err)

	task := NewTask("build")
	require.NoError(t, task.AddAction(NewFuncAction("build", func(ctx *Context) error { return nil })))
	require.NoError(t, p.AddTask(task))

	require.NoError(t, p.Run())
	require.Equal(t, []string{"build"}, seen)
}

func TestPipelineDryRunDoesNotExecuteActions(t *testing.T) {
	t.Parallel()

	p, err := New("demo", nil)
	require.NoError(t, err)

	ran := false
	task := NewTask("build")
	require.NoError(t, task.AddAction(NewFuncAction("build", func(ctx *Context) error { ran = true; return nil })))
	require.NoError(t, p.AddTask(task))

	out, err := p.DryRun()
	require.NoError(t, err)
	require.Contains(t, out, "build")
	require.False(t, ran)
}
