package log

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// EventLogger is the interface for logging battle events.
type EventLogger interface {
	Log(event BattleEvent)
	Events() []BattleEvent
}

// --- MemoryLogger: stores events in memory for test assertions ---

type MemoryLogger struct {
	mu     sync.Mutex
	events []BattleEvent
	seq    int
}

func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{}
}

func (l *MemoryLogger) Log(event BattleEvent) {
	l.record(event)
}

func (l *MemoryLogger) record(event BattleEvent) BattleEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	event.Seq = l.seq
	l.events = append(l.events, event)
	return event
}

func (l *MemoryLogger) Events() []BattleEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]BattleEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Since returns events with Seq greater than seq.
func (l *MemoryLogger) Since(seq int) []BattleEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var result []BattleEvent
	for _, e := range l.events {
		if e.Seq > seq {
			result = append(result, e)
		}
	}
	return result
}

// EventsOfType returns all events matching the given type.
func (l *MemoryLogger) EventsOfType(t EventType) []BattleEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var result []BattleEvent
	for _, e := range l.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// LastEvent returns the most recent event, or a zero event if none.
func (l *MemoryLogger) LastEvent() BattleEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.events) == 0 {
		return BattleEvent{}
	}
	return l.events[len(l.events)-1]
}

// --- TextLogger: writes human-readable lines to an io.Writer ---

type TextLogger struct {
	MemoryLogger
	w io.Writer
}

func NewTextLogger(w io.Writer) *TextLogger {
	return &TextLogger{w: w}
}

func (l *TextLogger) Log(event BattleEvent) {
	event = l.MemoryLogger.record(event)
	fmt.Fprintln(l.w, FormatEvent(event))
}

// --- FuncLogger: records events and forwards each one to a callback ---

type FuncLogger struct {
	MemoryLogger
	fn func(BattleEvent)
}

func NewFuncLogger(fn func(BattleEvent)) *FuncLogger {
	return &FuncLogger{fn: fn}
}

func (l *FuncLogger) Log(event BattleEvent) {
	event = l.MemoryLogger.record(event)
	if l.fn != nil {
		l.fn(event)
	}
}

// --- Formatting ---

// FormatEvent formats a single event as a human-readable line.
func FormatEvent(e BattleEvent) string {
	kind := e.Type.String()
	// Pad type to 15 chars for alignment
	for len(kind) < 15 {
		kind += " "
	}
	return fmt.Sprintf("T%-2d %s| %s", e.Turn, kind, e.Details)
}

// FormatAll formats all events as a multi-line string.
func FormatAll(events []BattleEvent) string {
	var sb strings.Builder
	for _, e := range events {
		sb.WriteString(FormatEvent(e))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// --- Helper constructors for common events ---

func NewTurnEvent(turn int) BattleEvent {
	return BattleEvent{
		Turn:    turn,
		Type:    EventTurn,
		Details: fmt.Sprintf("=== Turn %d ===", turn),
	}
}

func NewSkillEvent(turn int, actor, card, target string) BattleEvent {
	details := fmt.Sprintf("%s uses %s", actor, card)
	if target != "" {
		details += " on " + target
	}
	return BattleEvent{
		Turn:    turn,
		Type:    EventSkill,
		Actor:   actor,
		Target:  target,
		Card:    card,
		Details: details,
	}
}

func NewFizzleEvent(turn int, actor, card, reason string) BattleEvent {
	return BattleEvent{
		Turn:    turn,
		Type:    EventFizzle,
		Actor:   actor,
		Card:    card,
		Details: fmt.Sprintf("%s fizzles (%s)", card, reason),
	}
}

func NewDamageEvent(turn int, actor, target string, dealt, blocked, health int) BattleEvent {
	details := fmt.Sprintf("%s hits %s for %d", actor, target, dealt)
	if blocked > 0 {
		details += fmt.Sprintf(" (%d blocked)", blocked)
	}
	details += fmt.Sprintf(" → %d HP", health)
	return BattleEvent{
		Turn:    turn,
		Type:    EventDamage,
		Actor:   actor,
		Target:  target,
		Amount:  dealt,
		Details: details,
	}
}

func NewShieldEvent(turn int, target string, gained, total int) BattleEvent {
	return BattleEvent{
		Turn:    turn,
		Type:    EventShield,
		Target:  target,
		Amount:  gained,
		Details: fmt.Sprintf("%s gains %d shield (%d)", target, gained, total),
	}
}

func NewStatusEvent(turn int, target, status string, delta, stacks int) BattleEvent {
	return BattleEvent{
		Turn:    turn,
		Type:    EventStatus,
		Target:  target,
		Amount:  delta,
		Details: fmt.Sprintf("%s %s %+d (%d)", target, status, delta, stacks),
	}
}

func NewDrawEvent(turn int, card string, burned bool) BattleEvent {
	details := fmt.Sprintf("Draw %s", card)
	if burned {
		details = fmt.Sprintf("Hand full, %s is discarded", card)
	}
	return BattleEvent{
		Turn:    turn,
		Type:    EventDraw,
		Card:    card,
		Details: details,
	}
}

func NewDiscardEvent(turn int, card string) BattleEvent {
	return BattleEvent{
		Turn:    turn,
		Type:    EventDiscard,
		Card:    card,
		Details: fmt.Sprintf("Discard %s", card),
	}
}

func NewMoveEvent(turn int, card, from, to string) BattleEvent {
	return BattleEvent{
		Turn:    turn,
		Type:    EventMove,
		Card:    card,
		Details: fmt.Sprintf("%s: %s → %s", card, from, to),
	}
}

func NewShuffleEvent(turn int, count int) BattleEvent {
	return BattleEvent{
		Turn:    turn,
		Type:    EventShuffle,
		Amount:  count,
		Details: fmt.Sprintf("Shuffle %d cards into the draw pile", count),
	}
}

func NewEnergyEvent(turn int, delta, energy int) BattleEvent {
	t := EventEnergyGain
	if delta < 0 {
		t = EventEnergySpend
	}
	return BattleEvent{
		Turn:    turn,
		Type:    t,
		Amount:  delta,
		Details: fmt.Sprintf("Energy %+d (%d)", delta, energy),
	}
}

func NewDecisionRequestEvent(turn int, prompt string, options int) BattleEvent {
	return BattleEvent{
		Turn:    turn,
		Type:    EventDecisionRequest,
		Amount:  options,
		Details: fmt.Sprintf("Decision: %s (%d options)", prompt, options),
	}
}

func NewDecisionEvent(turn int, choice string) BattleEvent {
	return BattleEvent{
		Turn:    turn,
		Type:    EventDecision,
		Details: fmt.Sprintf("Chose %s", choice),
	}
}

func NewIntentEvent(turn int, actor, action string, amount int) BattleEvent {
	return BattleEvent{
		Turn:    turn,
		Type:    EventIntent,
		Actor:   actor,
		Amount:  amount,
		Details: fmt.Sprintf("%s intends to %s (%d)", actor, action, amount),
	}
}

func NewDefeatEvent(turn int, target string) BattleEvent {
	return BattleEvent{
		Turn:    turn,
		Type:    EventDefeat,
		Target:  target,
		Details: fmt.Sprintf("%s is defeated", target),
	}
}

func NewCancelEvent(turn int, target string, count int) BattleEvent {
	return BattleEvent{
		Turn:    turn,
		Type:    EventCancel,
		Target:  target,
		Amount:  count,
		Details: fmt.Sprintf("%d pending effects on %s cancelled", count, target),
	}
}

func NewWinEvent(turn int) BattleEvent {
	return BattleEvent{
		Turn:    turn,
		Type:    EventWin,
		Details: "Victory!",
	}
}

func NewLossEvent(turn int) BattleEvent {
	return BattleEvent{
		Turn:    turn,
		Type:    EventLoss,
		Details: "Defeat.",
	}
}
