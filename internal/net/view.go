package net

import (
	"strconv"

	"github.com/peterkuimelis/clash/internal/battle"
)

// StateView is the battle from the player's side of the table. Built from the
// authoritative state, so only between resolution passes.
type StateView struct {
	Turn      int             `json:"turn"`
	Energy    int             `json:"energy"`
	MaxEnergy int             `json:"max_energy"`
	Hero      CombatantView   `json:"hero"`
	Enemies   []CombatantView `json:"enemies"`
	Hand      []CardView      `json:"hand"`
	DrawCount int             `json:"draw_count"`
	Discarded int             `json:"discard_count"`
	Exhausted int             `json:"exhaust_count"`
	Over      bool            `json:"over"`
	Outcome   string          `json:"outcome,omitempty"`
}

// CombatantView shows one combatant. Intent is empty for the hero.
type CombatantView struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Health    int            `json:"health"`
	MaxHealth int            `json:"max_health"`
	Shield    int            `json:"shield"`
	Statuses  map[string]int `json:"statuses,omitempty"`
	Intent    string         `json:"intent,omitempty"`
	Defeated  bool           `json:"defeated,omitempty"`
}

// CardView describes a card in hand. Index is the position shown to terminal
// players.
type CardView struct {
	Index    int    `json:"index"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	Cost     int    `json:"cost"`
	Targeted bool   `json:"targeted,omitempty"`
	Playable bool   `json:"playable"`
	Text     string `json:"text,omitempty"`
}

// BuildStateView creates a StateView of b's current state.
func BuildStateView(b *battle.Battle) *StateView {
	s := b.State
	sv := &StateView{
		Turn:      s.Turn,
		Energy:    s.Energy,
		MaxEnergy: s.MaxEnergy,
		Hero:      combatantView(s.Hero),
		DrawCount: len(s.Draw),
		Discarded: len(s.Discard),
		Exhausted: len(s.Exhaust),
		Over:      s.Over,
		Outcome:   string(s.Outcome),
	}
	for _, e := range s.Enemies {
		sv.Enemies = append(sv.Enemies, combatantView(e))
	}
	for i, c := range s.Hand {
		cv := CardView{
			Index:    i,
			ID:       c.ID,
			Name:     c.Name,
			Cost:     c.Cost,
			Targeted: c.Target,
			Playable: !s.Over && c.Usable(s.Energy),
		}
		if skill, err := b.Catalogue().Lookup(c.Skill); err == nil {
			cv.Text = skill.Text
		}
		sv.Hand = append(sv.Hand, cv)
	}
	return sv
}

func combatantView(c *battle.Combatant) CombatantView {
	if c == nil {
		return CombatantView{}
	}
	cv := CombatantView{
		ID:        c.ID,
		Name:      c.Name,
		Health:    c.Health,
		MaxHealth: c.MaxHealth,
		Shield:    c.Shield,
		Defeated:  c.Defeated,
	}
	if len(c.Statuses) > 0 {
		cv.Statuses = make(map[string]int, len(c.Statuses))
		for _, st := range c.Statuses {
			cv.Statuses[st.ID] = st.Stacks
		}
	}
	if c.Intent != nil {
		cv.Intent = IntentString(*c.Intent)
	}
	return cv
}

// IntentString renders an enemy intent for display, e.g. "attack 6" or
// "debuff weak 1".
func IntentString(in battle.Intent) string {
	if in.Status != "" {
		return in.Action + " " + in.Status + " " + strconv.Itoa(in.Amount)
	}
	return in.Action + " " + strconv.Itoa(in.Amount)
}
