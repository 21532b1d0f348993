package resolve

import (
	"context"
	"fmt"
	"sync"
)

// Mailbox holds one single-use message slot per suspended node. Delivery may
// come from any goroutine and may happen before the run loop starts waiting.
type Mailbox struct {
	mu    sync.Mutex
	slots map[ID]chan any
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{slots: make(map[ID]chan any)}
}

// Open creates the slot for id. Opening an already open slot is a no-op.
func (m *Mailbox) Open(id ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[id]; !ok {
		m.slots[id] = make(chan any, 1)
	}
}

// Deliver fills the slot for id.
func (m *Mailbox) Deliver(id ID, v any) error {
	m.mu.Lock()
	slot, ok := m.slots[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("node %d: %w", id, ErrNoSlot)
	}
	select {
	case slot <- v:
		return nil
	default:
		return fmt.Errorf("node %d: %w", id, ErrSlotFilled)
	}
}

// Ready reports whether the slot for id has been filled.
func (m *Mailbox) Ready(id ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[id]
	return ok && len(slot) > 0
}

// Waiting lists the ids of open, unfilled slots.
func (m *Mailbox) Waiting() []ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []ID
	for id, slot := range m.slots {
		if len(slot) == 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// Wait blocks until the slot for id is filled or ctx is done, then closes the slot.
func (m *Mailbox) Wait(ctx context.Context, id ID) (any, error) {
	m.mu.Lock()
	slot, ok := m.slots[id]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("node %d: %w", id, ErrNoSlot)
	}
	select {
	case v := <-slot:
		m.close(id)
		return v, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Mailbox) close(id ID) {
	m.mu.Lock()
	delete(m.slots, id)
	m.mu.Unlock()
}

// Reset drops every slot.
func (m *Mailbox) Reset() {
	m.mu.Lock()
	m.slots = make(map[ID]chan any)
	m.mu.Unlock()
}
