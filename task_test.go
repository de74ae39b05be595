package pidl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTaskReadyAndFirst(t *testing.T) {
	t.Parallel()

	a := NewTask("a")
	require.True(t, a.First())

	b := NewTask("b")
	b.After("a")
	require.False(t, b.First())
	require.False(t, b.Ready(map[string]bool{}))
	require.True(t, b.Ready(map[string]bool{"a": true}))
}

func TestTaskRunEmitsLifecycleEvents(t *testing.T) {
	t.Parallel()

	var events []string
	emit := newRecorderSink(&events)

	task := NewTask("build")
	require.NoError(t, task.AddAction(NewFuncAction("compile", func(ctx *Context) error { return nil })))

	err := task.Run(NewContext(), emit)
	require.NoError(t, err)

	require.Equal(t, []string{"task_start", "action_start", "action_end", "task_end"}, events)
}

func TestTaskRunRaisePropagatesAndSetsError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	task := NewTask("build")
	require.NoError(t, task.AddAction(NewFuncAction("compile", func(ctx *Context) error { return boom })))

	ctx := NewContext()
	err := task.Run(ctx, NewEmitter())
	require.ErrorIs(t, err, boom)
	require.True(t, ctx.IsSet(KeyError))
	require.True(t, task.Error())
}

func TestTaskRunExitStopsRemainingActions(t *testing.T) {
	t.Parallel()

	ran := false
	task := NewTask("deploy")

	failing := &recordingAction{BaseAction: NewBaseAction("step1")}
	failing.OnError(PolicyExit, 7)
	failing.err = errors.New("step1 failed")
	require.NoError(t, task.AddAction(failing))
	require.NoError(t, task.AddAction(NewFuncAction("step2", func(ctx *Context) error { ran = true; return nil })))

	ctx := NewContext()
	err := task.Run(ctx, NewEmitter())
	require.NoError(t, err, "EXIT policy swallows the failure at the task level")
	require.False(t, ran, "remaining actions must not run once the task has exited")
	require.True(t, task.Exit())
	require.Equal(t, 7, task.ExitCode())
	require.Equal(t, 7, ctx.Get(KeyExitCode))
}

func TestTaskRunContinuePolicyRunsRemainingActions(t *testing.T) {
	t.Parallel()

	ran := false
	task := NewTask("deploy")

	failing := &recordingAction{BaseAction: NewBaseAction("step1")}
	failing.OnError(PolicyContinue)
	failing.err = errors.New("step1 failed")
	require.NoError(t, task.AddAction(failing))
	require.NoError(t, task.AddAction(NewFuncAction("step2", func(ctx *Context) error { ran = true; return nil })))

	err := task.Run(NewContext(), NewEmitter())
	require.NoError(t, err)
	require.True(t, ran)
}

func TestTaskRunSkipsActionsWithFalseyPredicate(t *testing.T) {
	t.Parallel()

	ran := false
	task := NewTask("deploy")
	action := NewFuncAction("step1", func(ctx *Context) error { ran = true; return nil })
	require.NoError(t, action.OnlyIf(NoopLogger(), SkipIf(false)))
	require.NoError(t, task.AddAction(action))

	require.NoError(t, task.Run(NewContext(), NewEmitter()))
	require.False(t, ran)
}

func TestTaskErrorReflectsSharedContext(t *testing.T) {
	t.Parallel()

	task := NewTask("observer")
	ctx := NewContext()
	require.False(t, task.Error())

	require.NoError(t, task.Run(ctx, NewEmitter()))
	require.False(t, task.Error())

	ctx.Set(KeyError, "set elsewhere")
	require.True(t, task.Error(), "any task sharing this context becomes error? once the flag is set")
}

// recorderSink adapts a *[]string into a sink, appending each event name.
type recorderSink struct {
	events *[]string
}

func (r recorderSink) Emit(event string, args ...any) {
	*r.events = append(*r.events, event)
}

func newRecorderSink(events *[]string) sink { return recorderSink{events: events} }
