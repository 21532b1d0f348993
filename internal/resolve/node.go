package resolve

import (
	"context"
	"sync/atomic"
)

// ID identifies a node for debugging and as the mailbox key for suspended nodes.
type ID uint64

var lastID atomic.Uint64

// NextID returns a fresh process-unique node id.
func NextID() ID {
	return ID(lastID.Add(1))
}

// State is the explicit suspension state of a node.
type State int

const (
	StateRunning          State = iota
	StateAwaitingInput          // waiting on a player decision
	StateAwaitingResource       // waiting on an external completion (e.g. an animation)
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateAwaitingInput:
		return "awaiting-input"
	case StateAwaitingResource:
		return "awaiting-resource"
	default:
		return "unknown"
	}
}

// Instruction is one node of a resolution tree. Concrete instructions embed Node
// and implement Execute, which is called once per step until it reports done.
type Instruction interface {
	Base() *Node
	Name() string
	Execute(rc *Context) (done bool, err error)
}

// Node carries the lifecycle bookkeeping shared by every instruction. The zero
// value is ready to use; the id is assigned on first submission.
type Node struct {
	id        ID
	parent    Instruction
	cancelled bool
	completed bool
	children  []Instruction
	cursor    int // children already handed to the executor
	stage     int
	state     State

	received any
	hasValue bool
}

// Base returns the node itself. Embedding types inherit it.
func (n *Node) Base() *Node { return n }

// ID returns the node id, assigning one if the node has none yet.
func (n *Node) ID() ID {
	if n.id == 0 {
		n.id = NextID()
	}
	return n.id
}

// Parent returns the structural parent, or nil for a root.
func (n *Node) Parent() Instruction { return n.parent }

// Children returns the owned children in spawn order.
func (n *Node) Children() []Instruction { return n.children }

// Cancel marks the node so it and its whole subtree never run again.
func (n *Node) Cancel() { n.cancelled = true }

// Cancelled reports whether Cancel was called on this node itself.
func (n *Node) Cancelled() bool { return n.cancelled }

// Completed reports whether the node finished its last step.
func (n *Node) Completed() bool { return n.completed }

// Stage is the multi-stage counter a node uses to pick its next phase.
func (n *Node) Stage() int { return n.stage }

// Next advances the stage counter.
func (n *Node) Next() { n.stage++ }

// State returns the suspension state.
func (n *Node) State() State { return n.state }

// Alive reports whether neither the node nor any ancestor has been cancelled.
func (n *Node) Alive() bool {
	if n.cancelled {
		return false
	}
	for p := n.parent; p != nil; p = p.Base().parent {
		if p.Base().cancelled {
			return false
		}
	}
	return true
}

// pendingChildren counts children, recursively, that were spawned but never
// handed to the executor.
func (n *Node) pendingChildren() int {
	count := 0
	for _, c := range n.children[n.cursor:] {
		count += 1 + c.Base().pendingChildren()
	}
	return count
}

// Context is handed to Execute. It is valid only for the duration of one step.
type Context struct {
	ctx  context.Context
	ex   *Executor
	self Instruction
}

// Context returns the context of the running pass.
func (rc *Context) Context() context.Context { return rc.ctx }

// Executor returns the executor running this step.
func (rc *Context) Executor() *Executor { return rc.ex }

// Self returns the instruction being stepped.
func (rc *Context) Self() Instruction { return rc.self }

// Spawn attaches child under the running node. Children run depth-first, in
// spawn order, before the running node is stepped again.
func (rc *Context) Spawn(child Instruction) {
	if child == nil {
		return
	}
	n := rc.self.Base()
	cb := child.Base()
	cb.ID()
	cb.parent = rc.self
	n.children = append(n.children, child)
	rc.ex.mu.Lock()
	rc.ex.stats.Submitted++
	rc.ex.mu.Unlock()
}

// AwaitInput suspends the running node until a value is delivered to its
// mailbox slot. The node is re-entered with the value available via Received.
func (rc *Context) AwaitInput() ID {
	return rc.await(StateAwaitingInput)
}

// AwaitResource is AwaitInput for non-player completions.
func (rc *Context) AwaitResource() ID {
	return rc.await(StateAwaitingResource)
}

func (rc *Context) await(s State) ID {
	n := rc.self.Base()
	n.state = s
	n.received, n.hasValue = nil, false
	rc.ex.mailbox.Open(n.ID())
	return n.id
}

// Received returns the value delivered for the last await, if any.
func (rc *Context) Received() (any, bool) {
	n := rc.self.Base()
	return n.received, n.hasValue
}
