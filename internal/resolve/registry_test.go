package resolve

import (
	"context"
	"errors"
	"testing"
)

func TestRegistryBindsFirstExecutor(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Current(); !errors.Is(err, ErrNoExecutor) {
		t.Fatalf("empty registry Current = %v", err)
	}

	a, b := NewExecutor(), NewExecutor()
	r.Register("a", a)
	r.Register("b", b)
	if cur, _ := r.Current(); cur != a {
		t.Error("first registered executor should be bound")
	}
	if err := r.Bind("b"); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if cur, _ := r.Current(); cur != b {
		t.Error("Bind did not switch executors")
	}
	if err := r.Bind("missing"); !errors.Is(err, ErrNoExecutor) {
		t.Errorf("Bind(missing) = %v", err)
	}

	r.Unregister("b")
	if _, ok := r.Lookup("b"); ok {
		t.Error("b still registered")
	}
	if _, err := r.Current(); !errors.Is(err, ErrNoExecutor) {
		t.Errorf("unbinding should leave no current executor, got %v", err)
	}
}

func TestPackageWrappersUseDefault(t *testing.T) {
	saved := Default
	Default = NewRegistry()
	defer func() { Default = saved }()

	if err := Submit(tracelessLeaf()); !errors.Is(err, ErrNoExecutor) {
		t.Fatalf("Submit without executor = %v", err)
	}

	ex := NewExecutor()
	Default.Register("battle", ex)

	ran := false
	if err := Submit(Once("x", func(*Context) error { ran = true; return nil })); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	stats, err := RunUntilComplete(context.Background())
	if err != nil {
		t.Fatalf("RunUntilComplete: %v", err)
	}
	if !ran || stats.Executed != 1 {
		t.Errorf("ran=%v stats=%+v", ran, stats)
	}

	_ = Submit(tracelessLeaf())
	if err := Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if ex.Pending() != 0 {
		t.Error("Reset did not clear the bound executor")
	}
}

func TestMailboxDeliverTwice(t *testing.T) {
	m := NewMailbox()
	id := NextID()
	m.Open(id)
	if err := m.Deliver(id, 1); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if !m.Ready(id) {
		t.Error("slot should be ready")
	}
	if err := m.Deliver(id, 2); !errors.Is(err, ErrSlotFilled) {
		t.Errorf("second Deliver = %v, want ErrSlotFilled", err)
	}
	v, err := m.Wait(context.Background(), id)
	if err != nil || v != 1 {
		t.Fatalf("Wait = %v, %v", v, err)
	}
	if err := m.Deliver(id, 3); !errors.Is(err, ErrNoSlot) {
		t.Errorf("Deliver after Wait = %v, want ErrNoSlot", err)
	}
}
