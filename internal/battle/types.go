package battle

import "fmt"

// --- Enums ---

type Outcome string

const (
	OutcomeNone    Outcome = ""
	OutcomeVictory Outcome = "victory"
	OutcomeDefeat  Outcome = "defeat"
)

type Zone int

const (
	ZoneHand Zone = iota
	ZoneDraw
	ZoneDiscard
	ZoneExhaust
)

func (z Zone) String() string {
	switch z {
	case ZoneHand:
		return "hand"
	case ZoneDraw:
		return "draw"
	case ZoneDiscard:
		return "discard"
	case ZoneExhaust:
		return "exhaust"
	default:
		return "unknown"
	}
}

// Status ids understood by the modifier pipeline and end-of-turn decay.
const (
	StatusStrength   = "strength"
	StatusDexterity  = "dexterity"
	StatusWeak       = "weak"
	StatusVulnerable = "vulnerable"
	StatusFrail      = "frail"
)

// decaying statuses lose one stack at the end of their owner's turn.
var decaying = map[string]bool{
	StatusWeak:       true,
	StatusVulnerable: true,
	StatusFrail:      true,
}

const (
	HandLimit       = 10
	OpeningHandSize = 5
	DefaultEnergy   = 3
)

// --- Cards ---

// Card is one card instance in a pile. Skill names the catalogue entry that
// builds its effects.
type Card struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Skill   string `json:"skill"`
	Cost    int    `json:"cost"`
	Exhaust bool   `json:"exhaust,omitempty"`
	Target  bool   `json:"target"` // needs an enemy target
}

func (Card) Kind() string { return "card" }

// Usable reports whether the card can be paid for with energy.
func (c *Card) Usable(energy int) bool {
	return c.Cost <= energy
}

func (c *Card) String() string {
	return fmt.Sprintf("%s (%d)", c.Name, c.Cost)
}

// --- Combatants ---

type Status struct {
	ID     string `json:"id"`
	Stacks int    `json:"stacks"`
}

func (Status) Kind() string { return "status" }

// Enemy intent actions.
const (
	IntentAttack = "attack"
	IntentBlock  = "block"
	IntentDebuff = "debuff"
	IntentBuff   = "buff"
)

// Intent is what an enemy will do on its next turn.
type Intent struct {
	Action string `yaml:"action" json:"action"`
	Amount int    `yaml:"amount" json:"amount"`
	Status string `yaml:"status" json:"status,omitempty"`
}

type Combatant struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Health    int      `json:"health"`
	MaxHealth int      `json:"maxHealth"`
	Shield    int      `json:"shield"`
	Statuses  []Status `json:"statuses"`
	Intent    *Intent  `json:"intent,omitempty"`
	Defeated  bool     `json:"defeated"`

	// Modifiers layered on top of the status-derived ones.
	Modifiers []Modifier `json:"-" project:"-"`

	pattern []Intent
	turn    int
}

func (Combatant) Kind() string { return "combatant" }

// Alive reports whether the combatant can still act and be targeted.
func (c *Combatant) Alive() bool {
	return !c.Defeated && c.Health > 0
}

// Stacks returns the stack count of a status, 0 when absent.
func (c *Combatant) Stacks(id string) int {
	for _, s := range c.Statuses {
		if s.ID == id {
			return s.Stacks
		}
	}
	return 0
}

// AddStacks adjusts a status and drops it once it reaches zero. Returns the new
// stack count.
func (c *Combatant) AddStacks(id string, delta int) int {
	for i, s := range c.Statuses {
		if s.ID != id {
			continue
		}
		s.Stacks += delta
		if s.Stacks <= 0 {
			c.Statuses = append(c.Statuses[:i], c.Statuses[i+1:]...)
			return 0
		}
		c.Statuses[i] = s
		return s.Stacks
	}
	if delta <= 0 {
		return 0
	}
	c.Statuses = append(c.Statuses, Status{ID: id, Stacks: delta})
	return delta
}

// AddModifier appends an explicit modifier.
func (c *Combatant) AddModifier(m Modifier) {
	c.Modifiers = append(c.Modifiers, m)
}

// RemoveModifiers drops every explicit modifier with the given name.
func (c *Combatant) RemoveModifiers(name string) {
	filtered := c.Modifiers[:0]
	for _, m := range c.Modifiers {
		if m.Name != name {
			filtered = append(filtered, m)
		}
	}
	c.Modifiers = filtered
}

// nextIntent advances the enemy's pattern.
func (c *Combatant) nextIntent() {
	if len(c.pattern) == 0 {
		c.Intent = nil
		return
	}
	in := c.pattern[c.turn%len(c.pattern)]
	c.Intent = &in
	c.turn++
}

func (c *Combatant) String() string {
	if c == nil {
		return "(none)"
	}
	return fmt.Sprintf("%s (%d/%d, shield %d)", c.Name, c.Health, c.MaxHealth, c.Shield)
}
