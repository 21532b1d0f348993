package battle

import (
	"fmt"

	"github.com/peterkuimelis/clash/internal/log"
	"github.com/peterkuimelis/clash/internal/resolve"
)

// Bound is implemented by instructions that act on one combatant. Pending
// bound instructions are cancelled when their combatant is defeated.
type Bound interface {
	BoundTo() string
}

var (
	_ resolve.Instruction = (*Damage)(nil)
	_ resolve.Instruction = (*StatusDelta)(nil)
	_ resolve.Instruction = (*GainShield)(nil)
	_ resolve.Instruction = (*GainResource)(nil)
	_ resolve.Instruction = (*SpendResource)(nil)
	_ resolve.Instruction = (*DrawCards)(nil)
	_ resolve.Instruction = (*Reshuffle)(nil)
	_ resolve.Instruction = (*Discard)(nil)
	_ resolve.Instruction = (*MoveCard)(nil)
	_ resolve.Instruction = (*Callback)(nil)
	_ resolve.Instruction = (*UseSkill)(nil)
	_ resolve.Instruction = (*AwaitDecision)(nil)
	_ resolve.Instruction = (*AwaitAnimation)(nil)
	_ resolve.Instruction = (*BattleStart)(nil)
	_ resolve.Instruction = (*TurnEnd)(nil)

	_ Bound = (*Damage)(nil)
	_ Bound = (*StatusDelta)(nil)
	_ Bound = (*GainShield)(nil)
)

func requireBattle(b *Battle) error {
	if b == nil || b.State == nil {
		return fmt.Errorf("%w: no battle", ErrMalformed)
	}
	return nil
}

func requireCombatant(b *Battle, id, field string) error {
	if id == "" {
		return fmt.Errorf("%w: %s is required", ErrMalformed, field)
	}
	if b.State.Combatant(id) == nil {
		return fmt.Errorf("%s %q: %w", field, id, ErrUnknownTarget)
	}
	return nil
}

// --- Damage ---

// Damage hits Target for Amount before modifiers. Shield absorbs first unless
// Piercing. Health never drops below zero.
type Damage struct {
	resolve.Node
	b *Battle

	Source   string
	Target   string
	Amount   int
	Piercing bool

	Dealt   int // health actually lost
	Blocked int // absorbed by shield
	Lethal  bool
}

// NewDamage validates and returns a damage instruction. source may be empty
// for damage with no attacker.
func NewDamage(b *Battle, source, target string, base int) (*Damage, error) {
	if err := requireBattle(b); err != nil {
		return nil, err
	}
	if err := requireCombatant(b, target, "target"); err != nil {
		return nil, err
	}
	if source != "" && b.State.Combatant(source) == nil {
		return nil, fmt.Errorf("source %q: %w", source, ErrUnknownTarget)
	}
	if base < 0 {
		return nil, fmt.Errorf("%w: negative damage %d", ErrMalformed, base)
	}
	return &Damage{b: b, Source: source, Target: target, Amount: base}, nil
}

func (d *Damage) Name() string    { return "damage" }
func (d *Damage) BoundTo() string { return d.Target }

func (d *Damage) Execute(rc *resolve.Context) (bool, error) {
	s := d.b.State
	dst := s.Combatant(d.Target)
	if s.Over || !dst.Alive() {
		return true, nil
	}
	src := s.Combatant(d.Source)

	amount := DamageAmount(d.Amount, src, dst)
	if !d.Piercing {
		d.Blocked = min(amount, dst.Shield)
		dst.Shield -= d.Blocked
	}
	d.Dealt = min(amount-d.Blocked, dst.Health)
	dst.Health -= d.Dealt

	d.b.Log.Log(log.NewDamageEvent(s.Turn, nameOf(src), dst.Name, d.Dealt, d.Blocked, dst.Health))
	d.b.present(EvDamage, []string{UnitTag(dst.ID)}, DamageData{
		Source:  d.Source,
		Target:  d.Target,
		Amount:  d.Dealt,
		Blocked: d.Blocked,
		Lethal:  dst.Health == 0,
	})

	if dst.Health == 0 {
		d.Lethal = true
		d.b.defeat(rc, dst)
	}
	return true, nil
}

// --- Status ---

// StatusDelta adds Delta stacks of a status; a status at zero is removed.
type StatusDelta struct {
	resolve.Node
	b *Battle

	Target string
	Status string
	Delta  int

	Stacks int // stacks after the change
}

func NewStatusDelta(b *Battle, target, status string, delta int) (*StatusDelta, error) {
	if err := requireBattle(b); err != nil {
		return nil, err
	}
	if err := requireCombatant(b, target, "target"); err != nil {
		return nil, err
	}
	if status == "" {
		return nil, fmt.Errorf("%w: status is required", ErrMalformed)
	}
	if delta == 0 {
		return nil, fmt.Errorf("%w: zero status delta", ErrMalformed)
	}
	return &StatusDelta{b: b, Target: target, Status: status, Delta: delta}, nil
}

func (sd *StatusDelta) Name() string    { return "status" }
func (sd *StatusDelta) BoundTo() string { return sd.Target }

func (sd *StatusDelta) Execute(rc *resolve.Context) (bool, error) {
	s := sd.b.State
	c := s.Combatant(sd.Target)
	if s.Over || !c.Alive() {
		return true, nil
	}
	sd.Stacks = c.AddStacks(sd.Status, sd.Delta)
	sd.b.Log.Log(log.NewStatusEvent(s.Turn, c.Name, sd.Status, sd.Delta, sd.Stacks))
	sd.b.present(EvStatus, []string{UnitTag(c.ID)}, StatusData{
		Target: c.ID,
		Status: sd.Status,
		Delta:  sd.Delta,
		Stacks: sd.Stacks,
	})
	return true, nil
}

// --- Shield ---

type GainShield struct {
	resolve.Node
	b *Battle

	Target string
	Amount int

	Gained int
}

func NewGainShield(b *Battle, target string, base int) (*GainShield, error) {
	if err := requireBattle(b); err != nil {
		return nil, err
	}
	if err := requireCombatant(b, target, "target"); err != nil {
		return nil, err
	}
	if base < 0 {
		return nil, fmt.Errorf("%w: negative shield %d", ErrMalformed, base)
	}
	return &GainShield{b: b, Target: target, Amount: base}, nil
}

func (g *GainShield) Name() string    { return "shield" }
func (g *GainShield) BoundTo() string { return g.Target }

func (g *GainShield) Execute(rc *resolve.Context) (bool, error) {
	s := g.b.State
	c := s.Combatant(g.Target)
	if s.Over || !c.Alive() {
		return true, nil
	}
	g.Gained = ShieldAmount(g.Amount, c)
	c.Shield += g.Gained
	g.b.Log.Log(log.NewShieldEvent(s.Turn, c.Name, g.Gained, c.Shield))
	g.b.present(EvShield, []string{UnitTag(c.ID)}, AmountData{Target: c.ID, Amount: g.Gained, Total: c.Shield})
	return true, nil
}

// --- Energy ---

type GainResource struct {
	resolve.Node
	b *Battle

	Amount int

	Energy int // energy after the gain
}

func NewGainResource(b *Battle, amount int) (*GainResource, error) {
	if err := requireBattle(b); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: energy gain must be positive, got %d", ErrMalformed, amount)
	}
	return &GainResource{b: b, Amount: amount}, nil
}

func (g *GainResource) Name() string { return "gain-energy" }

func (g *GainResource) Execute(rc *resolve.Context) (bool, error) {
	s := g.b.State
	if s.Over {
		return true, nil
	}
	s.Energy += g.Amount
	g.Energy = s.Energy
	g.b.Log.Log(log.NewEnergyEvent(s.Turn, g.Amount, s.Energy))
	g.b.flash(EvEnergy, []string{TagEnergy}, AmountData{Amount: g.Amount, Total: s.Energy})
	return true, nil
}

// SpendResource pays Amount energy if available. Paid reports the outcome;
// nothing is spent when the pool is short.
type SpendResource struct {
	resolve.Node
	b *Battle

	Amount int

	Paid bool
}

func NewSpendResource(b *Battle, amount int) (*SpendResource, error) {
	if err := requireBattle(b); err != nil {
		return nil, err
	}
	if amount < 0 {
		return nil, fmt.Errorf("%w: negative cost %d", ErrMalformed, amount)
	}
	return &SpendResource{b: b, Amount: amount}, nil
}

func (sp *SpendResource) Name() string { return "spend-energy" }

func (sp *SpendResource) Execute(rc *resolve.Context) (bool, error) {
	s := sp.b.State
	if s.Energy < sp.Amount {
		return true, nil
	}
	sp.Paid = true
	if sp.Amount == 0 {
		return true, nil
	}
	s.Energy -= sp.Amount
	sp.b.Log.Log(log.NewEnergyEvent(s.Turn, -sp.Amount, s.Energy))
	sp.b.flash(EvEnergy, []string{TagEnergy}, AmountData{Amount: -sp.Amount, Total: s.Energy})
	return true, nil
}

func nameOf(c *Combatant) string {
	if c == nil {
		return "(environment)"
	}
	return c.Name
}
