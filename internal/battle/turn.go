package battle

import (
	"fmt"

	"github.com/peterkuimelis/clash/internal/log"
	"github.com/peterkuimelis/clash/internal/resolve"
)

// BattleStart shuffles the deck, opens turn 1 and draws the opening hand.
type BattleStart struct {
	resolve.Node
	b *Battle
}

func (bs *BattleStart) Name() string { return "battle-start" }

func (bs *BattleStart) Execute(rc *resolve.Context) (bool, error) {
	if bs.Stage() > 0 {
		return true, nil
	}
	bs.Next()
	s := bs.b.State
	s.ShuffleDraw()
	bs.b.openTurn(1)
	draw, err := NewDrawCards(bs.b, OpeningHandSize)
	if err != nil {
		return false, err
	}
	rc.Spawn(draw)
	return false, nil
}

// TurnEnd closes the hero's turn, plays the enemies' intents and opens the
// next turn.
type TurnEnd struct {
	resolve.Node
	b *Battle
}

func (t *TurnEnd) Name() string { return "turn-end" }

func (t *TurnEnd) Execute(rc *resolve.Context) (bool, error) {
	s := t.b.State
	if s.Over {
		return true, nil
	}
	stage := t.Stage()
	t.Next()

	switch stage {
	case 0:
		for _, c := range s.Hand {
			d, err := NewDiscard(t.b, c.ID)
			if err != nil {
				return false, err
			}
			rc.Spawn(d)
		}
		return false, t.decay(rc, s.Hero)

	case 1:
		for _, e := range s.LivingEnemies() {
			e.Shield = 0
			if err := t.act(rc, e); err != nil {
				return false, err
			}
		}
		return false, nil

	case 2:
		for _, e := range s.LivingEnemies() {
			if err := t.decay(rc, e); err != nil {
				return false, err
			}
		}
		return false, nil

	case 3:
		s.Hero.Shield = 0
		t.b.openTurn(s.Turn + 1)
		draw, err := NewDrawCards(t.b, OpeningHandSize)
		if err != nil {
			return false, err
		}
		rc.Spawn(draw)
		return false, nil
	}
	return true, nil
}

// act spawns the instructions for e's current intent.
func (t *TurnEnd) act(rc *resolve.Context, e *Combatant) error {
	if e.Intent == nil {
		return nil
	}
	hero := t.b.State.Hero.ID
	var (
		in  resolve.Instruction
		err error
	)
	switch e.Intent.Action {
	case IntentAttack:
		in, err = NewDamage(t.b, e.ID, hero, e.Intent.Amount)
	case IntentBlock:
		in, err = NewGainShield(t.b, e.ID, e.Intent.Amount)
	case IntentDebuff:
		in, err = NewStatusDelta(t.b, hero, e.Intent.Status, e.Intent.Amount)
	case IntentBuff:
		in, err = NewStatusDelta(t.b, e.ID, StatusStrength, e.Intent.Amount)
	default:
		return fmt.Errorf("%s: unknown intent %q", e.Name, e.Intent.Action)
	}
	if err != nil {
		return err
	}
	rc.Spawn(in)
	return nil
}

// decay spawns one-stack reductions of c's decaying statuses.
func (t *TurnEnd) decay(rc *resolve.Context, c *Combatant) error {
	for _, st := range c.Statuses {
		if !decaying[st.ID] {
			continue
		}
		sd, err := NewStatusDelta(t.b, c.ID, st.ID, -1)
		if err != nil {
			return err
		}
		rc.Spawn(sd)
	}
	return nil
}

// openTurn starts turn n: energy refills and every living enemy rolls its next
// intent.
func (b *Battle) openTurn(n int) {
	s := b.State
	s.Turn = n
	s.Energy = s.MaxEnergy
	b.Log.Log(log.NewTurnEvent(n))
	b.present(EvTurn, nil, AmountData{Amount: n, Total: s.Energy})
	for _, e := range s.LivingEnemies() {
		e.nextIntent()
		if e.Intent == nil {
			continue
		}
		b.Log.Log(log.NewIntentEvent(n, e.Name, e.Intent.Action, e.Intent.Amount))
		b.present(EvIntent, []string{UnitTag(e.ID)}, e.Intent)
	}
}
