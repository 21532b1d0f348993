package resolve

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultMaxDepth = 1000
	DefaultMaxSteps = 100000
)

// Stats summarizes one resolution pass.
type Stats struct {
	Executed  int // nodes stepped to completion
	Steps     int // Execute calls
	Skipped   int // nodes pruned by cancellation, including never-pushed children
	Submitted int // roots submitted plus children spawned
	Faulted   int // nodes abandoned after an error or panic
	MaxDepth  int // deepest stack observed
}

// Observer receives pass-level signals. Metrics implement it.
type Observer interface {
	PassFinished(stats Stats, elapsed time.Duration)
	NodeFaulted(name string)
	Runaway()
}

type nopObserver struct{}

func (nopObserver) PassFinished(Stats, time.Duration) {}
func (nopObserver) NodeFaulted(string)                {}
func (nopObserver) Runaway()                          {}

// Executor owns one explicit stack of instructions and is its sole mutator.
// Only the top of the stack ever executes.
type Executor struct {
	mu      sync.Mutex
	stack   []Instruction
	stats   Stats
	running atomic.Bool

	maxDepth int
	maxSteps int
	mailbox  *Mailbox
	log      zerolog.Logger
	observer Observer
}

// Option configures an Executor.
type Option func(*Executor)

// WithMaxDepth sets the stack depth ceiling.
func WithMaxDepth(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxDepth = n
		}
	}
}

// WithMaxSteps sets the per-pass step ceiling.
func WithMaxSteps(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// WithLogger sets the operational logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Executor) { e.log = l }
}

// WithObserver attaches a pass observer.
func WithObserver(o Observer) Option {
	return func(e *Executor) {
		if o != nil {
			e.observer = o
		}
	}
}

// NewExecutor creates an idle executor with an empty stack.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		maxDepth: DefaultMaxDepth,
		maxSteps: DefaultMaxSteps,
		mailbox:  NewMailbox(),
		log:      zerolog.Nop(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Submit pushes in on top of the stack; it runs next.
func (e *Executor) Submit(in Instruction) error {
	if in == nil {
		return ErrNilInstruction
	}
	in.Base().ID()
	e.mu.Lock()
	e.stack = append(e.stack, in)
	e.stats.Submitted++
	e.mu.Unlock()
	return nil
}

// Deliver fills the mailbox slot of a suspended node. Safe from any goroutine.
func (e *Executor) Deliver(id ID, v any) error {
	return e.mailbox.Deliver(id, v)
}

// Awaiting lists nodes whose mailbox slot is open and still empty.
func (e *Executor) Awaiting() []ID {
	return e.mailbox.Waiting()
}

// Running reports whether a pass is in progress.
func (e *Executor) Running() bool {
	return e.running.Load()
}

// Pending returns the current stack size.
func (e *Executor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.stack)
}

// Roots returns the distinct roots of everything on the stack, bottom first.
func (e *Executor) Roots() []Instruction {
	e.mu.Lock()
	defer e.mu.Unlock()
	var roots []Instruction
	seen := make(map[Instruction]bool)
	for _, in := range e.stack {
		root := in
		for p := in.Base().Parent(); p != nil; p = p.Base().Parent() {
			root = p
		}
		if !seen[root] {
			seen[root] = true
			roots = append(roots, root)
		}
	}
	return roots
}

// Stats returns the counters of the current (or next) pass.
func (e *Executor) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Reset drops every queued instruction and open slot. It is refused while a
// pass is running.
func (e *Executor) Reset() error {
	if e.running.Load() {
		return ErrBusy
	}
	e.mu.Lock()
	e.stack = nil
	e.stats = Stats{}
	e.mu.Unlock()
	e.mailbox.Reset()
	return nil
}

// RunUntilComplete drives the stack to exhaustion, depth first. Node faults are
// contained: the node is logged, popped and abandoned. A second concurrent or
// nested call is refused with ErrBusy and the in-progress stats. If ctx ends
// while a node is suspended the stack is left intact so a later call resumes it.
func (e *Executor) RunUntilComplete(ctx context.Context) (Stats, error) {
	if !e.running.CompareAndSwap(false, true) {
		stats := e.Stats()
		e.log.Warn().Int("stack", e.Pending()).Msg("resolution pass already running; call refused")
		return stats, ErrBusy
	}
	defer e.running.Store(false)

	start := time.Now()
	err := e.loop(ctx)

	e.mu.Lock()
	stats := e.stats
	if err == nil || errors.Is(err, ErrRunaway) {
		e.stats = Stats{}
	}
	e.mu.Unlock()

	e.observer.PassFinished(stats, time.Since(start))
	return stats, err
}

func (e *Executor) loop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		e.mu.Lock()
		if len(e.stack) == 0 {
			e.mu.Unlock()
			return nil
		}
		top := e.stack[len(e.stack)-1]
		n := top.Base()

		if !n.Alive() {
			e.stack = e.stack[:len(e.stack)-1]
			e.stats.Skipped += 1 + n.pendingChildren()
			e.mu.Unlock()
			if n.state != StateRunning {
				e.mailbox.close(n.id)
			}
			e.log.Debug().Str("node", top.Name()).Uint64("id", uint64(n.id)).Msg("pruned cancelled instruction")
			continue
		}

		if n.cursor < len(n.children) {
			child := n.children[n.cursor]
			n.cursor++
			e.stack = append(e.stack, child)
			depth := len(e.stack)
			if depth > e.stats.MaxDepth {
				e.stats.MaxDepth = depth
			}
			e.mu.Unlock()
			if depth > e.maxDepth {
				return e.runaway(fmt.Sprintf("depth %d exceeds %d", depth, e.maxDepth))
			}
			continue
		}

		if n.completed {
			e.stack = e.stack[:len(e.stack)-1]
			e.mu.Unlock()
			continue
		}

		if depth := len(e.stack); depth > e.stats.MaxDepth {
			e.stats.MaxDepth = depth
		}
		e.stats.Steps++
		steps := e.stats.Steps
		e.mu.Unlock()

		if steps > e.maxSteps {
			return e.runaway(fmt.Sprintf("steps exceed %d", e.maxSteps))
		}

		if n.state != StateRunning {
			if !n.hasValue {
				v, err := e.mailbox.Wait(ctx, n.id)
				if err != nil {
					e.mu.Lock()
					e.stats.Steps--
					e.mu.Unlock()
					return err
				}
				n.received, n.hasValue = v, true
			}
			n.state = StateRunning
		}

		done, err := e.step(ctx, top)
		if err != nil {
			e.log.Error().Err(err).Str("node", top.Name()).Uint64("id", uint64(n.id)).Msg("instruction faulted; abandoned")
			e.observer.NodeFaulted(top.Name())
			e.mu.Lock()
			e.stats.Faulted++
			e.stats.Skipped += n.pendingChildren()
			e.remove(top)
			e.mu.Unlock()
			if n.state != StateRunning {
				e.mailbox.close(n.id)
			}
			continue
		}
		if n.state != StateRunning {
			continue
		}
		n.hasValue = false
		if done {
			n.completed = true
			e.mu.Lock()
			e.stats.Executed++
			if n.cursor >= len(n.children) {
				e.pop(top)
			}
			e.mu.Unlock()
		}
	}
}

// pop removes in from the top of the stack. Must be called with mu held.
func (e *Executor) pop(in Instruction) {
	if len(e.stack) > 0 && e.stack[len(e.stack)-1] == in {
		e.stack = e.stack[:len(e.stack)-1]
	}
}

// remove drops in wherever it sits; a faulting step may have submitted roots
// above it. Must be called with mu held.
func (e *Executor) remove(in Instruction) {
	for i := len(e.stack) - 1; i >= 0; i-- {
		if e.stack[i] == in {
			e.stack = append(e.stack[:i], e.stack[i+1:]...)
			return
		}
	}
}

func (e *Executor) step(ctx context.Context, in Instruction) (done bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", in.Name(), r)
		}
	}()
	return in.Execute(&Context{ctx: ctx, ex: e, self: in})
}

func (e *Executor) runaway(reason string) error {
	e.mu.Lock()
	dropped := len(e.stack)
	e.stack = nil
	e.mu.Unlock()
	e.log.Error().Str("reason", reason).Int("dropped", dropped).Msg("resolution runaway; pass aborted")
	e.observer.Runaway()
	return fmt.Errorf("%s: %w", reason, ErrRunaway)
}
