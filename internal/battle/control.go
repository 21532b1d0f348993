package battle

import (
	"fmt"

	"github.com/peterkuimelis/clash/internal/log"
	"github.com/peterkuimelis/clash/internal/resolve"
)

// Callback runs arbitrary rule code as one step. Fn may spawn children through
// rc; they run before the next sibling.
type Callback struct {
	resolve.Node
	b *Battle

	Label string
	Fn    func(b *Battle, rc *resolve.Context) error
}

func NewCallback(b *Battle, label string, fn func(b *Battle, rc *resolve.Context) error) (*Callback, error) {
	if err := requireBattle(b); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: callback %q has no body", ErrMalformed, label)
	}
	return &Callback{b: b, Label: label, Fn: fn}, nil
}

func (c *Callback) Name() string {
	if c.Label == "" {
		return "callback"
	}
	return "callback:" + c.Label
}

func (c *Callback) Execute(rc *resolve.Context) (bool, error) {
	if c.b.State.Over {
		return true, nil
	}
	return true, c.Fn(c.b, rc)
}

// UseSkill plays a card from the hand: it pays the cost, moves the card out of
// the hand and spawns the skill's effects. A card that cannot be paid for
// fizzles and stays in hand.
type UseSkill struct {
	resolve.Node
	b *Battle

	Card   string
	Target string

	skill *Skill
	spend *SpendResource

	Fizzled bool
	Effects []resolve.Instruction
}

func NewUseSkill(b *Battle, card, target string) (*UseSkill, error) {
	if err := requireBattle(b); err != nil {
		return nil, err
	}
	c := b.State.HandCard(card)
	if c == nil {
		return nil, fmt.Errorf("card %q: %w", card, ErrUnknownCard)
	}
	skill, err := b.catalogue.Lookup(c.Skill)
	if err != nil {
		return nil, err
	}
	if skill.Targeted {
		if err := requireCombatant(b, target, "target"); err != nil {
			return nil, err
		}
	}
	return &UseSkill{b: b, Card: card, Target: target, skill: skill}, nil
}

func (u *UseSkill) Name() string { return "use-skill" }

func (u *UseSkill) Execute(rc *resolve.Context) (bool, error) {
	s := u.b.State
	card := s.HandCard(u.Card)

	switch u.Stage() {
	case 0:
		if s.Over {
			return true, nil
		}
		if card == nil {
			return true, nil
		}
		u.spend = &SpendResource{b: u.b, Amount: card.Cost}
		rc.Spawn(u.spend)
		u.Next()
		return false, nil

	case 1:
		u.Next()
		if card == nil {
			return true, nil
		}
		if !u.spend.Paid {
			u.Fizzled = true
			u.b.Log.Log(log.NewFizzleEvent(s.Turn, s.Hero.Name, card.Name, "not enough energy"))
			u.b.present(EvFizzle, []string{TagCards}, CardData{Card: card.ID, Name: card.Name})
			return true, nil
		}
		effects, err := u.skill.Build(u.b, s.Hero, u.Target)
		if err != nil {
			return false, fmt.Errorf("build %s: %w", u.skill.Name, err)
		}
		to := ZoneDiscard
		if card.Exhaust {
			to = ZoneExhaust
		}
		rc.Spawn(&MoveCard{b: u.b, Card: card.ID, To: to})

		target := ""
		if t := s.Combatant(u.Target); t != nil {
			target = t.Name
		}
		u.b.Log.Log(log.NewSkillEvent(s.Turn, s.Hero.Name, card.Name, target))
		u.b.present(EvSkill, []string{TagCards}, CardData{Card: card.ID, Name: card.Name})

		u.Effects = effects
		for _, in := range effects {
			rc.Spawn(in)
		}
		return true, nil
	}
	return true, nil
}

// defeat marks c defeated, cancels pending work bound to it and settles the
// battle.
func (b *Battle) defeat(rc *resolve.Context, c *Combatant) {
	s := b.State
	c.Defeated = true
	c.Intent = nil
	b.Log.Log(log.NewDefeatEvent(s.Turn, c.Name))
	b.present(EvDefeat, []string{UnitTag(c.ID)}, AmountData{Target: c.ID})

	if n := cancelBound(rc.Executor().Roots(), rc.Self(), c.ID); n > 0 {
		b.Log.Log(log.NewCancelEvent(s.Turn, c.Name, n))
		b.oplog.Debug().Str("target", c.ID).Int("cancelled", n).Msg("cancelled instructions bound to defeated combatant")
	}

	if !s.settle() {
		return
	}
	if s.Outcome == OutcomeVictory {
		b.Log.Log(log.NewWinEvent(s.Turn))
	} else {
		b.Log.Log(log.NewLossEvent(s.Turn))
	}
	b.present(EvOutcome, []string{TagModal}, s.Outcome)
}

// cancelBound cancels every live, unfinished instruction bound to target
// under any of roots. Self and its ancestors are left alone.
func cancelBound(roots []resolve.Instruction, self resolve.Instruction, target string) int {
	lineage := map[resolve.Instruction]bool{self: true}
	for p := self.Base().Parent(); p != nil; p = p.Base().Parent() {
		lineage[p] = true
	}

	count := 0
	var walk func(in resolve.Instruction)
	walk = func(in resolve.Instruction) {
		n := in.Base()
		if !n.Alive() {
			return
		}
		if !lineage[in] && !n.Completed() {
			if bound, ok := in.(Bound); ok && bound.BoundTo() == target {
				n.Cancel()
				count++
				return
			}
		}
		for _, child := range n.Children() {
			walk(child)
		}
	}
	for _, root := range roots {
		walk(root)
	}
	return count
}
