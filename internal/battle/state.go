package battle

import (
	"fmt"
	"math/rand"
)

// State is the authoritative battle state. Only instruction bodies running in
// a resolution pass mutate it.
type State struct {
	Turn      int          `json:"turn"`
	Energy    int          `json:"energy"`
	MaxEnergy int          `json:"maxEnergy"`
	Hero      *Combatant   `json:"hero"`
	Enemies   []*Combatant `json:"enemies"`
	Hand      []*Card      `json:"hand"`
	Draw      []*Card      `json:"draw"` // top of the pile is the last element
	Discard   []*Card      `json:"discard"`
	Exhaust   []*Card      `json:"exhaust"`
	Over      bool         `json:"over"`
	Outcome   Outcome      `json:"outcome"`

	rng      *rand.Rand
	nextCard int
}

func (State) Kind() string { return "battle" }

// NewState creates an empty state with a seeded RNG. Seed 0 is a valid seed.
func NewState(seed int64) *State {
	return &State{
		MaxEnergy: DefaultEnergy,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// NewCard creates a card instance with a battle-unique id.
func (s *State) NewCard(name, skill string, cost int, target, exhaust bool) *Card {
	s.nextCard++
	return &Card{
		ID:      fmt.Sprintf("c%d", s.nextCard),
		Name:    name,
		Skill:   skill,
		Cost:    cost,
		Target:  target,
		Exhaust: exhaust,
	}
}

// Combatant finds the hero or an enemy by id.
func (s *State) Combatant(id string) *Combatant {
	if s.Hero != nil && s.Hero.ID == id {
		return s.Hero
	}
	for _, e := range s.Enemies {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// LivingEnemies returns enemies that are not defeated.
func (s *State) LivingEnemies() []*Combatant {
	var result []*Combatant
	for _, e := range s.Enemies {
		if e.Alive() {
			result = append(result, e)
		}
	}
	return result
}

func (s *State) pile(z Zone) *[]*Card {
	switch z {
	case ZoneHand:
		return &s.Hand
	case ZoneDraw:
		return &s.Draw
	case ZoneDiscard:
		return &s.Discard
	case ZoneExhaust:
		return &s.Exhaust
	default:
		return nil
	}
}

// Pile returns the cards in a zone.
func (s *State) Pile(z Zone) []*Card {
	if p := s.pile(z); p != nil {
		return *p
	}
	return nil
}

// FindCard locates a card in any zone.
func (s *State) FindCard(id string) (*Card, Zone, bool) {
	for _, z := range []Zone{ZoneHand, ZoneDraw, ZoneDiscard, ZoneExhaust} {
		for _, c := range *s.pile(z) {
			if c.ID == id {
				return c, z, true
			}
		}
	}
	return nil, 0, false
}

// HandCard returns a card in hand by id.
func (s *State) HandCard(id string) *Card {
	for _, c := range s.Hand {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// MoveCard removes the card from whatever zone holds it and appends it to to.
func (s *State) MoveCard(id string, to Zone) (*Card, Zone, bool) {
	card, from, ok := s.FindCard(id)
	if !ok {
		return nil, 0, false
	}
	src := s.pile(from)
	for i, c := range *src {
		if c.ID == id {
			*src = append((*src)[:i], (*src)[i+1:]...)
			break
		}
	}
	dst := s.pile(to)
	*dst = append(*dst, card)
	return card, from, true
}

// DrawTop moves the top card of the draw pile into the hand, or into the
// discard pile when the hand is full. Returns nil when the pile is empty.
func (s *State) DrawTop() (card *Card, burned bool) {
	if len(s.Draw) == 0 {
		return nil, false
	}
	card = s.Draw[len(s.Draw)-1]
	s.Draw = s.Draw[:len(s.Draw)-1]
	if len(s.Hand) >= HandLimit {
		s.Discard = append(s.Discard, card)
		return card, true
	}
	s.Hand = append(s.Hand, card)
	return card, false
}

// ShuffleDiscardIntoDraw moves the discard pile under the draw pile and
// shuffles. Returns how many cards moved.
func (s *State) ShuffleDiscardIntoDraw() int {
	n := len(s.Discard)
	s.Draw = append(s.Discard, s.Draw...)
	s.Discard = nil
	s.ShuffleDraw()
	return n
}

// ShuffleDraw shuffles the draw pile with the battle RNG.
func (s *State) ShuffleDraw() {
	s.rng.Shuffle(len(s.Draw), func(i, j int) {
		s.Draw[i], s.Draw[j] = s.Draw[j], s.Draw[i]
	})
}

// settle marks the battle over once a side is wiped out.
func (s *State) settle() bool {
	if s.Over {
		return true
	}
	switch {
	case s.Hero != nil && !s.Hero.Alive():
		s.Over, s.Outcome = true, OutcomeDefeat
	case len(s.LivingEnemies()) == 0:
		s.Over, s.Outcome = true, OutcomeVictory
	}
	return s.Over
}
