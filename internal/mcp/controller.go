package mcp

import (
	"sync"

	clashnet "github.com/peterkuimelis/clash/internal/net"
)

// collector implements clashnet.Sender for a tool-driven session. It buffers
// everything the session reports and wakes the waiting tool call when a pass
// returns or suspends on a prompt.
type collector struct {
	mu       sync.Mutex
	messages []clashnet.ServerMessage
	wake     chan struct{}
}

func newCollector() *collector {
	return &collector{wake: make(chan struct{}, 1)}
}

func (c *collector) Send(msg clashnet.ServerMessage) error {
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()

	switch msg.Type {
	case clashnet.MsgResult, clashnet.MsgPrompt:
		select {
		case c.wake <- struct{}{}:
		default:
		}
	}
	return nil
}

// drain returns the buffered messages and clears the buffer.
func (c *collector) drain() []clashnet.ServerMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.messages
	c.messages = nil
	return out
}

// reset discards a stale wake-up before a new action is submitted.
func (c *collector) reset() {
	select {
	case <-c.wake:
	default:
	}
}
