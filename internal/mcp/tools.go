package mcp

import (
	"context"
	"errors"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/peterkuimelis/clash/internal/battle"
	clashnet "github.com/peterkuimelis/clash/internal/net"
)

var (
	// toolMu serializes tool calls; one battle is driven per stdio process.
	toolMu sync.Mutex

	// activeSession is the singleton battle session.
	activeSession *BattleSession

	// sessionConfig is the template for new sessions, set by main.
	sessionConfig clashnet.SessionConfig
)

// SetSessionConfig sets the configuration used by start_battle.
func SetSessionConfig(cfg clashnet.SessionConfig) {
	toolMu.Lock()
	defer toolMu.Unlock()
	sessionConfig = cfg
}

// Shutdown closes the active session, if any.
func Shutdown() {
	toolMu.Lock()
	defer toolMu.Unlock()
	if activeSession != nil {
		activeSession.Close()
		activeSession = nil
	}
}

// RegisterTools adds all battle tools to the MCP server.
func RegisterTools(s *server.MCPServer) {
	s.AddTool(startBattleTool(), handleStartBattle)
	s.AddTool(useCardTool(), handleUseCard)
	s.AddTool(endTurnTool(), handleEndTurn)
	s.AddTool(decideTool(), handleDecide)
	s.AddTool(finishAnimationTool(), handleFinishAnimation)
	s.AddTool(getStateTool(), handleGetState)
}

// --- Tool definitions ---

func startBattleTool() mcp.Tool {
	return mcp.NewTool("start_battle",
		mcp.WithDescription("Start a new battle. Returns the opening state: the hand, the enemies and their intents. "+
			"A battle still in progress must be finished first."),
		mcp.WithString("loadout", mcp.Description("Loadout name from the loadouts file. Empty picks the first one.")),
	)
}

func useCardTool() mcp.Tool {
	return mcp.NewTool("use_card",
		mcp.WithDescription("Play a card from the hand. Targeted cards need the id of a living enemy. "+
			"Returns once the card has resolved or a decision is needed."),
		mcp.WithString("card", mcp.Required(), mcp.Description("Card id from state.hand")),
		mcp.WithString("target", mcp.Description("Enemy id (e.g. 'e1') for targeted cards")),
	)
}

func endTurnTool() mcp.Tool {
	return mcp.NewTool("end_turn",
		mcp.WithDescription("End the turn. The enemies act on their intents and the next turn begins."),
	)
}

func decideTool() mcp.Tool {
	return mcp.NewTool("decide",
		mcp.WithDescription("Answer a pending prompt. Use this when the response lists prompts."),
		mcp.WithNumber("node", mcp.Required(), mcp.Description("The prompt's node number")),
		mcp.WithString("choice", mcp.Required(), mcp.Description("The id of one of the prompt's options")),
	)
}

func finishAnimationTool() mcp.Tool {
	return mcp.NewTool("finish_animation",
		mcp.WithDescription("Signal that a presentation instruction is done, ending it before its timeout."),
		mcp.WithString("instruction", mcp.Required(), mcp.Description("Instruction id from the animations list")),
	)
}

func getStateTool() mcp.Tool {
	return mcp.NewTool("get_state",
		mcp.WithDescription("Get the current battle state, the log since the last call and any pending prompts. Read-only."),
	)
}

// --- Tool handlers ---

func handleStartBattle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	toolMu.Lock()
	defer toolMu.Unlock()

	if activeSession == nil {
		activeSession = NewBattleSession(sessionConfig)
	}
	resp, err := activeSession.Do(clashnet.ClientMessage{
		Type:    clashnet.MsgStart,
		Loadout: request.GetString("loadout", ""),
	})
	if errors.Is(err, clashnet.ErrSessionActive) {
		return mcp.NewToolResultError("A battle is already running. Finish it before starting another."), nil
	}
	if err != nil {
		return mcp.NewToolResultErrorf("Failed to start battle: %v", err), nil
	}
	return mcp.NewToolResultText(respondJSON(resp)), nil
}

func handleUseCard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	card := request.GetString("card", "")
	if card == "" {
		return mcp.NewToolResultError("card is required"), nil
	}
	return act(clashnet.ClientMessage{
		Type:   clashnet.MsgUse,
		Card:   card,
		Target: request.GetString("target", ""),
	})
}

func handleEndTurn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return act(clashnet.ClientMessage{Type: clashnet.MsgEndTurn})
}

func handleDecide(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node := request.GetInt("node", -1)
	if node < 0 {
		return mcp.NewToolResultError("node must be a prompt's node number"), nil
	}
	return act(clashnet.ClientMessage{
		Type:   clashnet.MsgDecide,
		Node:   uint64(node),
		Choice: request.GetString("choice", ""),
	})
}

func handleFinishAnimation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	toolMu.Lock()
	defer toolMu.Unlock()
	if activeSession == nil {
		return mcp.NewToolResultError("No battle is running. Use start_battle first."), nil
	}
	resp, err := activeSession.Apply(clashnet.ClientMessage{
		Type:        clashnet.MsgFinished,
		Instruction: request.GetString("instruction", ""),
	})
	if err != nil {
		return mcp.NewToolResultErrorf("%v", err), nil
	}
	return mcp.NewToolResultText(respondJSON(resp)), nil
}

func handleGetState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	toolMu.Lock()
	defer toolMu.Unlock()
	if activeSession == nil {
		return mcp.NewToolResultError("No battle is running. Use start_battle first."), nil
	}
	return mcp.NewToolResultText(respondJSON(activeSession.Peek())), nil
}

// act submits a resolving message to the active session and reports where
// the battle stopped.
func act(msg clashnet.ClientMessage) (*mcp.CallToolResult, error) {
	toolMu.Lock()
	defer toolMu.Unlock()
	if activeSession == nil {
		return mcp.NewToolResultError("No battle is running. Use start_battle first."), nil
	}
	resp, err := activeSession.Do(msg)
	switch {
	case errors.Is(err, battle.ErrNoPendingDecision):
		return mcp.NewToolResultError("No prompt is waiting on that node."), nil
	case errors.Is(err, battle.ErrInvalidChoice):
		return mcp.NewToolResultError("That choice is not one of the prompt's options."), nil
	case err != nil:
		return mcp.NewToolResultErrorf("%v", err), nil
	}
	return mcp.NewToolResultText(respondJSON(resp)), nil
}
