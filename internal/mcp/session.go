package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/peterkuimelis/clash/internal/battle"
	"github.com/peterkuimelis/clash/internal/log"
	clashnet "github.com/peterkuimelis/clash/internal/net"
)

// DefaultWait bounds how long a tool call waits for a pass to return or
// suspend.
const DefaultWait = 30 * time.Second

var errTimeout = errors.New("timed out waiting for the battle to settle")

// ToolResponse is the JSON envelope returned by all MCP tools.
type ToolResponse struct {
	Battle     string              `json:"battle,omitempty"`
	Log        []string            `json:"log"`
	Animations []AnimationView     `json:"animations,omitempty"`
	State      *clashnet.StateView `json:"state,omitempty"`
	Prompts    []battle.Prompt     `json:"prompts,omitempty"`
	Stats      *clashnet.StatsView `json:"stats,omitempty"`
	Error      string              `json:"error,omitempty"`
	Over       bool                `json:"over"`
	Outcome    string              `json:"outcome,omitempty"`
}

// AnimationView is one presentation event emitted since the previous call.
// Instruction can be passed to finish_animation.
type AnimationView struct {
	Instruction string `json:"instruction"`
	Name        string `json:"name"`
}

// BattleSession is the battle an agent drives through tool calls.
type BattleSession struct {
	sess   *clashnet.Session
	out    *collector
	ctx    context.Context
	cancel context.CancelFunc
	wait   time.Duration
}

// NewBattleSession creates an idle session; the first start message opens a
// battle.
func NewBattleSession(cfg clashnet.SessionConfig) *BattleSession {
	ctx, cancel := context.WithCancel(context.Background())
	out := newCollector()
	return &BattleSession{
		sess:   clashnet.NewSession(cfg, out),
		out:    out,
		ctx:    ctx,
		cancel: cancel,
		wait:   DefaultWait,
	}
}

// Do submits msg and waits until the resulting pass returns or stops on a
// prompt. The pass runs on the session's own context: a suspended pass
// outlives the tool call that started it.
func (s *BattleSession) Do(msg clashnet.ClientMessage) (*ToolResponse, error) {
	s.out.reset()
	if err := s.sess.Handle(s.ctx, msg); err != nil {
		return nil, err
	}
	select {
	case <-s.out.wake:
	case <-time.After(s.wait):
		return nil, errTimeout
	}
	return s.respond(), nil
}

// Apply submits a message that does not resolve anything and reports the
// session as it stands.
func (s *BattleSession) Apply(msg clashnet.ClientMessage) (*ToolResponse, error) {
	if err := s.sess.Handle(s.ctx, msg); err != nil {
		return nil, err
	}
	return s.respond(), nil
}

// Peek reports the session without submitting anything.
func (s *BattleSession) Peek() *ToolResponse {
	return s.respond()
}

// Close cancels a suspended pass and releases the battle.
func (s *BattleSession) Close() {
	s.cancel()
	s.sess.Close()
}

// Over reports whether the session's battle has ended.
func (s *BattleSession) Over() bool {
	snap := s.sess.Snapshot()
	return snap.State != nil && snap.State.Over
}

// respond folds the buffered messages into one response. Prompts always come
// from the battle itself, so an answered prompt never lingers.
func (s *BattleSession) respond() *ToolResponse {
	resp := &ToolResponse{Log: []string{}}
	for _, msg := range s.out.drain() {
		switch msg.Type {
		case clashnet.MsgLog:
			if msg.Log != nil {
				resp.Log = append(resp.Log, log.FormatEvent(*msg.Log))
			}
		case clashnet.MsgEvent:
			if msg.Event != nil {
				resp.Animations = append(resp.Animations, AnimationView{Instruction: msg.Event.Instruction, Name: msg.Event.Name})
			}
		case clashnet.MsgResult:
			resp.State = msg.State
			resp.Stats = msg.Stats
			resp.Error = msg.Error
		case clashnet.MsgOver:
			resp.Over = true
			resp.Outcome = msg.Outcome
		}
	}

	snap := s.sess.Snapshot()
	resp.Battle = snap.Battle
	resp.Prompts = snap.Prompts
	if resp.State == nil || len(resp.Prompts) > 0 {
		resp.State = snap.State
	}
	if resp.State != nil && resp.State.Over {
		resp.Over = true
		resp.Outcome = resp.State.Outcome
	}
	return resp
}

// respondJSON marshals a ToolResponse to a JSON string.
func respondJSON(resp *ToolResponse) string {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Sprintf(`{"error": "marshal error: %v"}`, err)
	}
	return string(data)
}
