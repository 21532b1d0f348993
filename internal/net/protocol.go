package net

import (
	"github.com/peterkuimelis/clash/internal/battle"
	"github.com/peterkuimelis/clash/internal/log"
	"github.com/peterkuimelis/clash/internal/resolve"
	"github.com/peterkuimelis/clash/internal/sequence"
)

// Message types for the JSON-lines protocol. The same messages travel over
// TCP and over the web bridge's websocket.
const (
	// Client → server
	MsgStart    = "start"
	MsgUse      = "use"
	MsgEndTurn  = "end_turn"
	MsgDecide   = "decide"
	MsgFinished = "finished"
	MsgResync   = "resync"
	MsgState    = "state" // also the reply type

	// Server → client
	MsgEvent  = "event"
	MsgLog    = "log"
	MsgPrompt = "prompt"
	MsgResult = "result"
	MsgError  = "error"
	MsgOver   = "over"
)

// --- Server → Client messages ---

// ServerMessage is the envelope for all server-to-client messages.
type ServerMessage struct {
	Type   string `json:"type"`
	Battle string `json:"battle,omitempty"`

	// For "event": one presentation event from the sequencer.
	Event *sequence.Event `json:"event,omitempty"`

	// For "log"
	Log *log.BattleEvent `json:"log,omitempty"`

	// For "prompt"
	Prompt *battle.Prompt `json:"prompt,omitempty"`

	// For "result" and "state"
	State   *StateView     `json:"state,omitempty"`
	Mirror  map[string]any `json:"mirror,omitempty"`
	Prompts []battle.Prompt `json:"prompts,omitempty"`
	Stats   *StatsView     `json:"stats,omitempty"`

	// For "error", or a "result" whose pass failed
	Error string `json:"error,omitempty"`

	// For "over"
	Outcome string `json:"outcome,omitempty"`
}

// StatsView is the wire form of one resolution pass's counters.
type StatsView struct {
	Executed  int `json:"executed"`
	Steps     int `json:"steps"`
	Skipped   int `json:"skipped"`
	Submitted int `json:"submitted"`
	Faulted   int `json:"faulted"`
	MaxDepth  int `json:"max_depth"`
}

func statsView(s resolve.Stats) *StatsView {
	return &StatsView{
		Executed:  s.Executed,
		Steps:     s.Steps,
		Skipped:   s.Skipped,
		Submitted: s.Submitted,
		Faulted:   s.Faulted,
		MaxDepth:  s.MaxDepth,
	}
}

// --- Client → Server messages ---

// ClientMessage is the envelope for all client-to-server messages.
type ClientMessage struct {
	Type string `json:"type"`

	// For "start"
	Loadout string `json:"loadout,omitempty"`

	// For "use"
	Card   string `json:"card,omitempty"`
	Target string `json:"target,omitempty"`

	// For "decide"
	Node   uint64 `json:"node,omitempty"`
	Choice string `json:"choice,omitempty"`

	// For "finished": the sequencer instruction the presentation is done with
	Instruction string `json:"instruction,omitempty"`
}
