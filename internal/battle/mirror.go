package battle

import (
	"github.com/peterkuimelis/clash/internal/project"
)

// CardView is the behavior bound to mirrored cards.
type CardView struct{ o *project.Object }

func (v CardView) Name() string { return v.o.String("name") }
func (v CardView) Cost() int    { return v.o.Int("cost") }

// Usable reports whether the card can be paid for with energy.
func (v CardView) Usable(energy int) bool { return v.Cost() <= energy }

// CombatantView is the behavior bound to mirrored combatants.
type CombatantView struct{ o *project.Object }

func (v CombatantView) Defeated() bool { return v.o.Bool("defeated") }

// HealthFraction is current over max health, for health bars.
func (v CombatantView) HealthFraction() float64 {
	full := v.o.Int("maxHealth")
	if full <= 0 {
		return 0
	}
	return float64(v.o.Int("health")) / float64(full)
}

// Has reports whether the combatant carries status.
func (v CombatantView) Has(status string) bool {
	list := v.o.List("statuses")
	if list == nil {
		return false
	}
	return list.Find(status) != nil
}

// BattleView is the behavior bound to the mirror root.
type BattleView struct{ o *project.Object }

func (v BattleView) Energy() int { return v.o.Int("energy") }

// PlayableCards returns the ids of hand cards the shown energy can pay for.
func (v BattleView) PlayableCards() []string {
	hand := v.o.List("hand")
	if hand == nil {
		return nil
	}
	var ids []string
	for _, c := range hand.Objects() {
		if cv, ok := c.Behavior().(CardView); ok && cv.Usable(v.Energy()) {
			ids = append(ids, c.String("id"))
		}
	}
	return ids
}

// NewShapes returns the behavior registry for the battle mirror.
func NewShapes() *project.Shapes {
	s := project.NewShapes()
	s.Register(Card{}.Kind(), func(o *project.Object) any { return CardView{o} })
	s.Register(Combatant{}.Kind(), func(o *project.Object) any { return CombatantView{o} })
	s.Register(State{}.Kind(), func(o *project.Object) any { return BattleView{o} })
	return s
}
