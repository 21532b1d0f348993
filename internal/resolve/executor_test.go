package resolve

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// trace records the order instructions were stepped in.
type trace struct {
	steps []string
}

func (tr *trace) leaf(name string) *Func {
	return Once(name, func(rc *Context) error {
		tr.steps = append(tr.steps, name)
		return nil
	})
}

func (tr *trace) String() string {
	return strings.Join(tr.steps, ",")
}

func runPass(t *testing.T, ex *Executor) Stats {
	t.Helper()
	stats, err := ex.RunUntilComplete(context.Background())
	if err != nil {
		t.Fatalf("RunUntilComplete: %v", err)
	}
	return stats
}

// TestDepthFirstOrder: A spawns B then C; B spawns B1. B's subtree finishes
// before C starts, and C finishes before A is stepped again.
func TestDepthFirstOrder(t *testing.T) {
	tr := &trace{}
	b := NewFunc("B", func(rc *Context) (bool, error) {
		if rc.Self().Base().Stage() == 0 {
			tr.steps = append(tr.steps, "B")
			rc.Spawn(tr.leaf("B1"))
			rc.Self().Base().Next()
			return false, nil
		}
		tr.steps = append(tr.steps, "B'")
		return true, nil
	})
	a := NewFunc("A", func(rc *Context) (bool, error) {
		n := rc.Self().Base()
		if n.Stage() == 0 {
			tr.steps = append(tr.steps, "A")
			rc.Spawn(b)
			rc.Spawn(tr.leaf("C"))
			n.Next()
			return false, nil
		}
		tr.steps = append(tr.steps, "A'")
		return true, nil
	})

	ex := NewExecutor()
	if err := ex.Submit(a); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	stats := runPass(t, ex)

	if got, want := tr.String(), "A,B,B1,B',C,A'"; got != want {
		t.Errorf("order = %s, want %s", got, want)
	}
	if stats.Executed != 4 {
		t.Errorf("Executed = %d, want 4", stats.Executed)
	}
	if stats.Submitted != 4 {
		t.Errorf("Submitted = %d, want 4", stats.Submitted)
	}
	if stats.MaxDepth != 3 {
		t.Errorf("MaxDepth = %d, want 3", stats.MaxDepth)
	}
	if ex.Pending() != 0 {
		t.Errorf("stack not drained: %d left", ex.Pending())
	}
}

// TestCompletedParentDrainsChildren: a node that spawns and reports done in the
// same step still has its children run, and is never stepped again.
func TestCompletedParentDrainsChildren(t *testing.T) {
	tr := &trace{}
	calls := 0
	root := NewFunc("root", func(rc *Context) (bool, error) {
		calls++
		rc.Spawn(tr.leaf("x"))
		rc.Spawn(tr.leaf("y"))
		return true, nil
	})
	ex := NewExecutor()
	_ = ex.Submit(root)
	runPass(t, ex)

	if calls != 1 {
		t.Errorf("root stepped %d times, want 1", calls)
	}
	if tr.String() != "x,y" {
		t.Errorf("children order = %s", tr)
	}
}

func TestCancelPrunesSubtree(t *testing.T) {
	tr := &trace{}
	var grandchild *Func
	child := NewFunc("child", func(rc *Context) (bool, error) {
		tr.steps = append(tr.steps, "child")
		grandchild = tr.leaf("grandchild")
		rc.Spawn(grandchild)
		rc.Spawn(tr.leaf("grandchild2"))
		// Cancel ourselves after spawning: the spawned subtree must never run.
		rc.Self().Base().Cancel()
		return false, nil
	})
	root := NewFunc("root", func(rc *Context) (bool, error) {
		rc.Spawn(child)
		return true, nil
	})

	ex := NewExecutor()
	_ = ex.Submit(root)
	stats := runPass(t, ex)

	if tr.String() != "child" {
		t.Errorf("steps = %s, want only child", tr)
	}
	if grandchild.Alive() {
		t.Error("grandchild should not be alive once its parent is cancelled")
	}
	if child.Alive() {
		t.Error("cancelled child still alive")
	}
	// child + its two never-pushed children
	if stats.Skipped != 3 {
		t.Errorf("Skipped = %d, want 3", stats.Skipped)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	f := tracelessLeaf()
	f.Cancel()
	f.Cancel()
	if f.Alive() || !f.Cancelled() {
		t.Error("expected cancelled, not alive")
	}
}

func tracelessLeaf() *Func {
	return Once("leaf", func(*Context) error { return nil })
}

func TestSiblingCancelledBeforeItRuns(t *testing.T) {
	tr := &trace{}
	later := tr.leaf("later")
	canceller := Once("canceller", func(rc *Context) error {
		tr.steps = append(tr.steps, "canceller")
		later.Cancel()
		return nil
	})
	root := NewFunc("root", func(rc *Context) (bool, error) {
		rc.Spawn(tr.leaf("first"))
		rc.Spawn(canceller)
		rc.Spawn(later)
		return true, nil
	})
	ex := NewExecutor()
	_ = ex.Submit(root)
	stats := runPass(t, ex)

	if tr.String() != "first,canceller" {
		t.Errorf("steps = %s", tr)
	}
	if stats.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", stats.Skipped)
	}
	if stats.Executed != 3 {
		t.Errorf("Executed = %d, want 3 (root, first, canceller)", stats.Executed)
	}
}

func TestFaultIsContained(t *testing.T) {
	tr := &trace{}
	failing := NewFunc("failing", func(rc *Context) (bool, error) {
		tr.steps = append(tr.steps, "failing")
		rc.Spawn(tr.leaf("orphan"))
		return false, errors.New("boom")
	})
	panicking := Once("panicking", func(rc *Context) error {
		tr.steps = append(tr.steps, "panicking")
		panic("kaboom")
	})
	root := NewFunc("root", func(rc *Context) (bool, error) {
		rc.Spawn(failing)
		rc.Spawn(panicking)
		rc.Spawn(tr.leaf("after"))
		return true, nil
	})
	ex := NewExecutor()
	_ = ex.Submit(root)
	stats := runPass(t, ex)

	if tr.String() != "failing,panicking,after" {
		t.Errorf("steps = %s", tr)
	}
	if stats.Faulted != 2 {
		t.Errorf("Faulted = %d, want 2", stats.Faulted)
	}
	if failing.Completed() {
		t.Error("faulted node must not be marked completed")
	}
	if stats.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1 (the orphan never pushed)", stats.Skipped)
	}
	if got := stats.Executed + stats.Skipped + stats.Faulted; got != stats.Submitted {
		t.Errorf("executed+skipped+faulted = %d, submitted = %d", got, stats.Submitted)
	}
}

func TestRootsSpanEverySubmission(t *testing.T) {
	ex := NewExecutor()
	var roots []Instruction
	var child *Func
	first := NewFunc("first", func(rc *Context) (bool, error) {
		if rc.Self().Base().Stage() == 0 {
			child = Once("child", func(rc *Context) error {
				roots = rc.Executor().Roots()
				return nil
			})
			rc.Spawn(child)
			rc.Self().Base().Next()
			return false, nil
		}
		return true, nil
	})
	second := tracelessLeaf()
	_ = ex.Submit(second)
	_ = ex.Submit(first)
	runPass(t, ex)

	if len(roots) != 2 {
		t.Fatalf("Roots = %d entries, want 2", len(roots))
	}
	if roots[0] != Instruction(second) || roots[1] != Instruction(first) {
		t.Errorf("Roots order = %s, %s", roots[0].Name(), roots[1].Name())
	}
	if len(ex.Roots()) != 0 {
		t.Error("idle executor must report no roots")
	}
}

func TestReentrantRunRefused(t *testing.T) {
	ex := NewExecutor()
	var nestedErr error
	var nestedStats Stats
	_ = ex.Submit(Once("outer", func(rc *Context) error {
		nestedStats, nestedErr = rc.Executor().RunUntilComplete(rc.Context())
		return nil
	}))
	runPass(t, ex)

	if !errors.Is(nestedErr, ErrBusy) {
		t.Fatalf("nested run error = %v, want ErrBusy", nestedErr)
	}
	if nestedStats.Steps != 1 {
		t.Errorf("nested call should see in-progress stats, got %+v", nestedStats)
	}
}

func TestRunawayDepthIsFatal(t *testing.T) {
	var spawn func() *Func
	spawn = func() *Func {
		return NewFunc("recurse", func(rc *Context) (bool, error) {
			rc.Spawn(spawn())
			return true, nil
		})
	}
	ex := NewExecutor(WithMaxDepth(50))
	_ = ex.Submit(spawn())
	_, err := ex.RunUntilComplete(context.Background())
	if !errors.Is(err, ErrRunaway) {
		t.Fatalf("err = %v, want ErrRunaway", err)
	}
	if ex.Pending() != 0 {
		t.Errorf("runaway pass should clear the stack, %d left", ex.Pending())
	}
}

func TestRunawayStepsIsFatal(t *testing.T) {
	ex := NewExecutor(WithMaxSteps(100))
	_ = ex.Submit(NewFunc("spin", func(*Context) (bool, error) { return false, nil }))
	_, err := ex.RunUntilComplete(context.Background())
	if !errors.Is(err, ErrRunaway) {
		t.Fatalf("err = %v, want ErrRunaway", err)
	}
}

func TestSubmitNil(t *testing.T) {
	if err := NewExecutor().Submit(nil); !errors.Is(err, ErrNilInstruction) {
		t.Errorf("err = %v", err)
	}
}

// awaitChoice suspends once and records what it was handed.
func awaitChoice(got *any, onAwait func(id ID)) *Func {
	return NewFunc("choice", func(rc *Context) (bool, error) {
		n := rc.Self().Base()
		switch n.Stage() {
		case 0:
			n.Next()
			id := rc.AwaitInput()
			if onAwait != nil {
				onAwait(id)
			}
			return false, nil
		default:
			v, ok := rc.Received()
			if !ok {
				return false, errors.New("resumed without a value")
			}
			*got = v
			return true, nil
		}
	})
}

func TestAwaitInputDeliveredSynchronously(t *testing.T) {
	ex := NewExecutor()
	var got any
	node := awaitChoice(&got, func(id ID) {
		if err := ex.Deliver(id, 2); err != nil {
			t.Errorf("Deliver: %v", err)
		}
	})
	_ = ex.Submit(node)
	runPass(t, ex)

	if got != 2 {
		t.Errorf("received %v, want 2", got)
	}
	if node.State() != StateRunning {
		t.Errorf("state = %s after resume", node.State())
	}
}

func TestAwaitInputDeliveredLater(t *testing.T) {
	ex := NewExecutor()
	var got any
	awaiting := make(chan ID, 1)
	_ = ex.Submit(awaitChoice(&got, func(id ID) { awaiting <- id }))

	go func() {
		id := <-awaiting
		// the pass is blocked on the slot; deliver from another goroutine
		for len(ex.Awaiting()) == 0 {
			time.Sleep(time.Millisecond)
		}
		_ = ex.Deliver(id, "left")
	}()

	runPass(t, ex)
	if got != "left" {
		t.Errorf("received %v, want left", got)
	}
}

func TestAwaitSurvivesContextCancel(t *testing.T) {
	ex := NewExecutor()
	var got any
	var id ID
	_ = ex.Submit(awaitChoice(&got, func(nid ID) { id = nid }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := ex.RunUntilComplete(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if ex.Pending() != 1 {
		t.Fatalf("suspended node should stay queued, stack = %d", ex.Pending())
	}

	if err := ex.Deliver(id, 7); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	runPass(t, ex)
	if got != 7 {
		t.Errorf("received %v after resume, want 7", got)
	}
}

func TestDeliverWithoutSlot(t *testing.T) {
	ex := NewExecutor()
	if err := ex.Deliver(NextID(), 1); !errors.Is(err, ErrNoSlot) {
		t.Errorf("err = %v, want ErrNoSlot", err)
	}
}

func TestResetRefusedWhileRunning(t *testing.T) {
	ex := NewExecutor()
	var resetErr error
	_ = ex.Submit(Once("reset", func(rc *Context) error {
		resetErr = rc.Executor().Reset()
		return nil
	}))
	runPass(t, ex)
	if !errors.Is(resetErr, ErrBusy) {
		t.Errorf("Reset during pass = %v, want ErrBusy", resetErr)
	}

	_ = ex.Submit(tracelessLeaf())
	if err := ex.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if ex.Pending() != 0 {
		t.Error("Reset should clear the stack")
	}
}
