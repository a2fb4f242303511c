package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func nop() *zap.Logger { l, _ := zap.NewDevelopment(); return l }

// counter finishes after steps steps and records its hook calls.
type counter struct {
	Base
	name     string
	steps    int
	inits    int
	stepped  int
	cleanups int
	trace    *[]string
}

func newCounter(name string, steps int, trace *[]string) *counter {
	return &counter{name: name, steps: steps, trace: trace}
}

func (c *counter) Name() string { return c.name }
func (c *counter) Initialize()  { c.inits++ }
func (c *counter) Cleanup()     { c.cleanups++ }

func (c *counter) Step() {
	c.stepped++
	if c.trace != nil {
		*c.trace = append(*c.trace, c.name)
	}
	if c.steps > 0 {
		c.SetProgress(float64(c.stepped) / float64(c.steps))
	}
	if c.stepped >= c.steps {
		c.Finish()
	}
}

func (c *counter) Clone() Command { return newCounter(c.name, c.steps, c.trace) }

type fakeClock struct{ now time.Duration }

func (c *fakeClock) Now() time.Duration { return c.now }

func TestExecute_RunsHeadLifecycle(t *testing.T) {
	p := NewProcessor(nop())
	c := newCounter("a", 2, nil)

	p.Execute(c)
	assert.Equal(t, Created, c.Phase(), "execute does not start the command")
	assert.True(t, p.IsBusy())

	p.Step()
	assert.Equal(t, 1, c.inits)
	assert.Equal(t, Running, c.Phase())
	assert.InDelta(t, 0.5, c.Progress(), 1e-9)

	p.Step()
	assert.Equal(t, Finished, c.Phase())
	assert.Equal(t, 1, c.cleanups)
	assert.False(t, p.IsBusy())

	p.Step()
	assert.Equal(t, 2, c.stepped, "finished command is not stepped again")
	assert.Equal(t, 1, c.inits)
}

func TestExecute_FIFOOneCommandPerTick(t *testing.T) {
	var trace []string
	p := NewProcessor(nop())
	p.Execute(newCounter("a", 1, &trace))
	p.Execute(newCounter("b", 1, &trace))

	p.Step()
	assert.Equal(t, []string{"a"}, trace)
	p.Step()
	assert.Equal(t, []string{"a", "b"}, trace)
	assert.False(t, p.IsBusy())
}

func TestPushPop_IsIdentity(t *testing.T) {
	p := NewProcessor(nop())
	a := newCounter("a", 5, nil)
	b := newCounter("b", 1, nil)
	p.Execute(a)
	p.Execute(b)
	p.Step()
	p.Step()

	p.Push()
	assert.False(t, p.IsBusy())
	assert.Equal(t, 1, p.Depth())
	require.NoError(t, p.Pop())

	assert.Same(t, a, p.Current())
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, Running, a.Phase())
	assert.InDelta(t, 0.4, a.Progress(), 1e-9)

	p.Step()
	assert.Equal(t, 1, a.inits, "restored command is not re-initialized")
	assert.Equal(t, 3, a.stepped)
	assert.Zero(t, a.cleanups)
}

func TestPushRunsInterruptThenResumes(t *testing.T) {
	var trace []string
	p := NewProcessor(nop())
	p.Execute(newCounter("plan", 3, &trace))
	p.Step()

	p.Push()
	p.Execute(newCounter("evade", 1, &trace))
	p.Step()
	assert.False(t, p.IsBusy())
	require.NoError(t, p.Pop())
	p.Step()

	assert.Equal(t, []string{"plan", "evade", "plan"}, trace)
}

func TestPop_EmptyStackIsReportedNoOp(t *testing.T) {
	p := NewProcessor(nop())
	a := newCounter("a", 3, nil)
	p.Execute(a)

	assert.ErrorIs(t, p.Pop(), ErrStackEmpty)
	assert.Same(t, a, p.Current())
	assert.Zero(t, a.cleanups)
}

func TestPop_CancelsLeftoverCommands(t *testing.T) {
	p := NewProcessor(nop())
	p.Push()
	left := newCounter("left", 3, nil)
	p.Execute(left)
	p.Step()

	require.NoError(t, p.Pop())
	assert.Equal(t, Cancelled, left.Phase())
	assert.Equal(t, 1, left.cleanups)
}

func TestCleanup_TerminatesActiveQueueOnly(t *testing.T) {
	var terminated []string
	p := NewProcessor(nop(), WithTerminateHook(func(c Command) {
		terminated = append(terminated, c.Name())
	}))
	saved := newCounter("saved", 3, nil)
	p.Execute(saved)
	p.Push()

	a := newCounter("a", 3, nil)
	b := newCounter("b", 3, nil)
	p.Execute(a)
	p.Execute(b)
	p.Step()

	p.Cleanup()
	assert.False(t, p.IsBusy())
	assert.Equal(t, 1, a.cleanups)
	assert.Equal(t, 1, b.cleanups)
	assert.Equal(t, Cancelled, a.Phase())
	assert.Equal(t, Cancelled, b.Phase())
	assert.Equal(t, []string{"a", "b"}, terminated)

	assert.Equal(t, 1, p.Depth())
	assert.Zero(t, saved.cleanups)

	p.Cleanup()
	assert.Equal(t, 1, a.cleanups, "cleanup runs exactly once")
}

func TestCancel_RunsCleanupSynchronously(t *testing.T) {
	p := NewProcessor(nop())
	a := newCounter("a", 10, nil)
	b := newCounter("b", 10, nil)
	p.Execute(a)
	p.Execute(b)
	p.Step()

	assert.True(t, p.Cancel())
	assert.Equal(t, 1, a.cleanups)
	assert.Equal(t, Cancelled, a.Phase())
	assert.Same(t, b, p.Current())

	assert.True(t, p.CancelCommand(b))
	assert.False(t, p.CancelCommand(b))
	assert.False(t, p.Cancel())
	assert.Equal(t, 1, b.cleanups)
}

func TestMacro_ExpandsInPlace(t *testing.T) {
	var trace []string
	p := NewProcessor(nop())
	m := NewMacro("attack", newCounter("x", 1, &trace), newCounter("y", 1, &trace))
	p.Execute(m)
	p.Execute(newCounter("after", 1, &trace))

	p.Step()
	assert.Equal(t, Finished, m.Phase())
	assert.Equal(t, []string{"x"}, trace, "first child steps on the macro's tick")
	assert.Equal(t, 2, p.Len())

	p.Step()
	p.Step()
	assert.Equal(t, []string{"x", "y", "after"}, trace)
	assert.False(t, p.IsBusy())
}

func TestMacro_NestedAndEmpty(t *testing.T) {
	var trace []string
	p := NewProcessor(nop())
	inner := NewMacro("inner", newCounter("i", 1, &trace))
	p.Execute(NewMacro("outer", NewMacro("empty"), inner, newCounter("o", 1, &trace)))

	for range 5 {
		p.Step()
	}
	assert.Equal(t, []string{"i", "o"}, trace)
	assert.False(t, p.IsBusy())
}

func TestRepeat_FixedCount(t *testing.T) {
	var trace []string
	p := NewProcessor(nop())
	r := NewRepeat(2, newCounter("a", 1, &trace), newCounter("b", 1, &trace))
	p.Execute(r)

	for range 10 {
		p.Step()
	}
	assert.Equal(t, []string{"a", "b", "a", "b"}, trace)
	assert.Equal(t, Finished, r.Phase())
	assert.Equal(t, 2, r.Passes())
	assert.False(t, p.IsBusy())
}

func TestRepeat_ForeverMacroStaysBusy(t *testing.T) {
	var trace []string
	p := NewProcessor(nop())
	r := NewRepeat(Forever, NewMacro("path", newCounter("leg1", 1, &trace), newCounter("leg2", 2, &trace)))
	p.Execute(r)

	for range 1000 {
		p.Step()
		require.True(t, p.IsBusy())
	}
	assert.Greater(t, r.Passes(), 100)

	p.Cleanup()
	assert.Equal(t, Cancelled, r.Phase())
	assert.False(t, p.IsBusy())
}

func TestRepeat_EmptyBodyFinishes(t *testing.T) {
	p := NewProcessor(nop())
	r := NewRepeat(Forever)
	p.Execute(r)
	p.Step()
	assert.Equal(t, Finished, r.Phase())
	assert.False(t, p.IsBusy())
}

func TestPopCommand_ResumesSavedPlan(t *testing.T) {
	var trace []string
	p := NewProcessor(nop())
	plan := newCounter("plan", 3, &trace)
	p.Execute(plan)
	p.Step()

	p.Push()
	pop := NewPop(p)
	p.Execute(NewMacro("attack", newCounter("fire", 1, &trace), pop))
	p.Step()
	p.Step()

	assert.Equal(t, Finished, pop.Phase())
	assert.Equal(t, 0, p.Depth())
	assert.Same(t, plan, p.Current())

	p.Step()
	assert.Equal(t, []string{"plan", "fire", "plan"}, trace)
	assert.Equal(t, 1, plan.inits)
}

func TestWait_UsesSimulationClock(t *testing.T) {
	clock := &fakeClock{now: time.Second}
	p := NewProcessor(nop())
	w := NewWait(clock, 2*time.Second)
	p.Execute(w)

	p.Step()
	assert.True(t, p.IsBusy())
	clock.now += time.Second
	p.Step()
	assert.InDelta(t, 0.5, w.Progress(), 1e-9)
	clock.now += time.Second
	p.Step()
	assert.Equal(t, Finished, w.Phase())
	assert.False(t, p.IsBusy())
}

func TestFuncAndNOP(t *testing.T) {
	calls := 0
	p := NewProcessor(nop())
	p.Execute(NewFunc("once", func() { calls++ }))
	p.Execute(&NOP{})

	p.Step()
	p.Step()
	assert.Equal(t, 1, calls)
	assert.False(t, p.IsBusy())
}

func TestClone_StartsFresh(t *testing.T) {
	p := NewProcessor(nop())
	a := newCounter("a", 1, nil)
	p.Execute(a)
	p.Step()
	require.Equal(t, Finished, a.Phase())

	c := a.Clone()
	assert.Equal(t, Created, PhaseOf(c))
	assert.Zero(t, ProgressOf(c))

	m := NewMacro("m", a)
	mc := m.Clone().(*Macro)
	assert.NotSame(t, a, mc.Children()[0])
	assert.Equal(t, Created, PhaseOf(mc.Children()[0]))
}

func TestSetProgressClamps(t *testing.T) {
	var b Base
	b.SetProgress(-1)
	assert.Zero(t, b.Progress())
	b.SetProgress(3)
	assert.Equal(t, 1.0, b.Progress())
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Wait(1.5s)", Describe(NewWait(&fakeClock{}, 1500*time.Millisecond)))
	assert.Equal(t, "Repeat(forever)", Describe(NewRepeat(Forever, &NOP{})))
	assert.Equal(t, "NOP", Describe(&NOP{}))
	assert.Equal(t, []string{"m(NOP)"}, func() []string {
		p := NewProcessor(nop())
		p.Execute(NewMacro("m", &NOP{}))
		return p.Queue()
	}())
}

// exploding panics on its first Step.
type exploding struct {
	counter
}

func (e *exploding) Step() { panic("sensor fault") }

func TestCleanup_AfterPanickingStepRunsCleanup(t *testing.T) {
	p := NewProcessor(nop())
	c := &exploding{counter: counter{name: "boom", steps: 1}}
	p.Execute(c)

	require.Panics(t, p.Step)
	assert.True(t, p.IsBusy())
	assert.Equal(t, Running, c.Phase())

	p.Cleanup()
	assert.False(t, p.IsBusy())
	assert.Equal(t, 1, c.cleanups)
	assert.Equal(t, Cancelled, c.Phase())
}

func TestPop_AfterPanickingStepRunsCleanup(t *testing.T) {
	p := NewProcessor(nop())
	p.Push()
	c := &exploding{counter: counter{name: "boom", steps: 1}}
	p.Execute(c)

	require.Panics(t, p.Step)
	require.NoError(t, p.Pop())
	assert.Equal(t, 1, c.cleanups)
}

func TestExecute_ReusedMacroRunsAgain(t *testing.T) {
	var trace []string
	p := NewProcessor(nop())
	m := NewMacro("m", newCounter("x", 1, &trace))

	p.Execute(m)
	p.Step()
	require.False(t, p.IsBusy())

	p.Execute(m)
	p.Step()
	assert.False(t, p.IsBusy())
	assert.Equal(t, []string{"x", "x"}, trace)
}

func TestExecute_ReusedRepeatRunsAllPasses(t *testing.T) {
	var trace []string
	p := NewProcessor(nop())
	r := NewRepeat(2, newCounter("a", 1, &trace))

	for range 2 {
		p.Execute(r)
		for i := 0; i < 10 && p.IsBusy(); i++ {
			p.Step()
		}
		require.False(t, p.IsBusy())
	}
	assert.Equal(t, []string{"a", "a", "a", "a"}, trace)
}

func TestExecute_SameLeafQueuedTwiceRunsTwice(t *testing.T) {
	var trace []string
	p := NewProcessor(nop())
	a := newCounter("a", 1, &trace)
	p.Execute(a)
	p.Execute(a)

	p.Step()
	p.Step()
	assert.False(t, p.IsBusy())
	assert.Equal(t, []string{"a", "a"}, trace)
	assert.Equal(t, 1, a.cleanups)
}
