package log

import "fmt"

// EventType enumerates all observable battle events.
type EventType int

const (
	EventTurn EventType = iota
	EventSkill
	EventFizzle
	EventDamage
	EventShield
	EventStatus
	EventDraw
	EventDiscard
	EventMove
	EventShuffle
	EventEnergyGain
	EventEnergySpend
	EventDecisionRequest
	EventDecision
	EventIntent
	EventDefeat
	EventCancel // pending instructions dropped after a defeat
	EventWin
	EventLoss
)

func (e EventType) String() string {
	switch e {
	case EventTurn:
		return "Turn"
	case EventSkill:
		return "Skill"
	case EventFizzle:
		return "Fizzle"
	case EventDamage:
		return "Damage"
	case EventShield:
		return "Shield"
	case EventStatus:
		return "Status"
	case EventDraw:
		return "Draw"
	case EventDiscard:
		return "Discard"
	case EventMove:
		return "Move"
	case EventShuffle:
		return "Shuffle"
	case EventEnergyGain:
		return "EnergyGain"
	case EventEnergySpend:
		return "EnergySpend"
	case EventDecisionRequest:
		return "DecisionRequest"
	case EventDecision:
		return "Decision"
	case EventIntent:
		return "Intent"
	case EventDefeat:
		return "Defeat"
	case EventCancel:
		return "Cancel"
	case EventWin:
		return "Win"
	case EventLoss:
		return "Loss"
	default:
		return "Unknown"
	}
}

// BattleEvent represents a single observable event in a battle.
type BattleEvent struct {
	Seq     int       `json:"seq"`  // monotonic sequence number
	Turn    int       `json:"turn"` // 1-based
	Type    EventType `json:"type"`
	Actor   string    `json:"actor,omitempty"`  // combatant acting
	Target  string    `json:"target,omitempty"` // combatant affected
	Card    string    `json:"card,omitempty"`
	Amount  int       `json:"amount,omitempty"`
	Details string    `json:"details"` // human-readable detail string
}

func (e EventType) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText maps a name written by MarshalText back to its EventType.
func (e *EventType) UnmarshalText(text []byte) error {
	for t := EventTurn; t <= EventLoss; t++ {
		if t.String() == string(text) {
			*e = t
			return nil
		}
	}
	return fmt.Errorf("unknown event type %q", text)
}
