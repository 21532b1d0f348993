package battle

import (
	"fmt"
	"slices"
	"sort"

	"github.com/peterkuimelis/clash/internal/resolve"
)

// Skill is a catalogue entry. Build turns one use into effect instructions;
// target is empty for untargeted skills.
type Skill struct {
	Name     string `json:"name"`
	Cost     int    `json:"cost"`
	Targeted bool   `json:"targeted"`
	Exhaust  bool   `json:"exhaust"`
	Text     string `json:"text"`

	Build func(b *Battle, src *Combatant, target string) ([]resolve.Instruction, error) `json:"-"`
}

// Catalogue maps skill names to skills.
type Catalogue map[string]*Skill

// Lookup returns the named skill.
func (c Catalogue) Lookup(name string) (*Skill, error) {
	s, ok := c[name]
	if !ok {
		return nil, fmt.Errorf("skill %q: %w", name, ErrUnknownSkill)
	}
	return s, nil
}

// Register adds or replaces a skill.
func (c Catalogue) Register(s *Skill) {
	c[s.Name] = s
}

// Skills returns the catalogue sorted by name.
func (c Catalogue) Skills() []*Skill {
	out := make([]*Skill, 0, len(c))
	for _, s := range c {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Clone returns a shallow copy that can be extended without touching c.
func (c Catalogue) Clone() Catalogue {
	out := make(Catalogue, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// DefaultCatalogue is the sample skill set used by loadouts and the binaries.
var DefaultCatalogue = Catalogue{}

func init() {
	for _, s := range []*Skill{
		{Name: "strike", Cost: 1, Targeted: true, Text: "Deal 6 damage.", Build: attack(6)},
		{Name: "defend", Cost: 1, Text: "Gain 5 shield.", Build: block(5)},
		{Name: "bash", Cost: 2, Targeted: true, Text: "Deal 8 damage. Apply 2 vulnerable.", Build: bash},
		{Name: "cleave", Cost: 1, Text: "Deal 8 damage to all enemies.", Build: cleave},
		{Name: "neutralize", Cost: 0, Targeted: true, Text: "Deal 3 damage. Apply 1 weak.", Build: neutralize},
		{Name: "inflame", Cost: 1, Exhaust: true, Text: "Gain 2 strength. Exhaust.", Build: inflame},
		{Name: "survey", Cost: 1, Text: "Draw 2 cards.", Build: survey},
		{Name: "adrenaline", Cost: 0, Exhaust: true, Text: "Gain 1 energy. Draw 2 cards. Exhaust.", Build: adrenaline},
		{Name: "scheme", Cost: 1, Text: "Discard a card of your choice. Draw 2 cards.", Build: scheme},
		{Name: "execute", Cost: 2, Targeted: true, Text: "Deal 10 damage. If this kills, gain 1 energy.", Build: execute},
	} {
		DefaultCatalogue.Register(s)
	}
}

func attack(amount int) func(*Battle, *Combatant, string) ([]resolve.Instruction, error) {
	return func(b *Battle, src *Combatant, target string) ([]resolve.Instruction, error) {
		d, err := NewDamage(b, src.ID, target, amount)
		if err != nil {
			return nil, err
		}
		return []resolve.Instruction{d}, nil
	}
}

func block(amount int) func(*Battle, *Combatant, string) ([]resolve.Instruction, error) {
	return func(b *Battle, src *Combatant, _ string) ([]resolve.Instruction, error) {
		g, err := NewGainShield(b, src.ID, amount)
		if err != nil {
			return nil, err
		}
		return []resolve.Instruction{g}, nil
	}
}

func bash(b *Battle, src *Combatant, target string) ([]resolve.Instruction, error) {
	d, err := NewDamage(b, src.ID, target, 8)
	if err != nil {
		return nil, err
	}
	v, err := NewStatusDelta(b, target, StatusVulnerable, 2)
	if err != nil {
		return nil, err
	}
	return []resolve.Instruction{d, v}, nil
}

func cleave(b *Battle, src *Combatant, _ string) ([]resolve.Instruction, error) {
	var out []resolve.Instruction
	for _, e := range b.State.LivingEnemies() {
		d, err := NewDamage(b, src.ID, e.ID, 8)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func neutralize(b *Battle, src *Combatant, target string) ([]resolve.Instruction, error) {
	d, err := NewDamage(b, src.ID, target, 3)
	if err != nil {
		return nil, err
	}
	w, err := NewStatusDelta(b, target, StatusWeak, 1)
	if err != nil {
		return nil, err
	}
	return []resolve.Instruction{d, w}, nil
}

func inflame(b *Battle, src *Combatant, _ string) ([]resolve.Instruction, error) {
	st, err := NewStatusDelta(b, src.ID, StatusStrength, 2)
	if err != nil {
		return nil, err
	}
	return []resolve.Instruction{st}, nil
}

func survey(b *Battle, _ *Combatant, _ string) ([]resolve.Instruction, error) {
	d, err := NewDrawCards(b, 2)
	if err != nil {
		return nil, err
	}
	return []resolve.Instruction{d}, nil
}

func adrenaline(b *Battle, _ *Combatant, _ string) ([]resolve.Instruction, error) {
	g, err := NewGainResource(b, 1)
	if err != nil {
		return nil, err
	}
	d, err := NewDrawCards(b, 2)
	if err != nil {
		return nil, err
	}
	return []resolve.Instruction{g, d}, nil
}

// scheme asks which card to discard once it resolves, since the hand may have
// changed between building and running.
func scheme(b *Battle, _ *Combatant, _ string) ([]resolve.Instruction, error) {
	choose, err := NewCallback(b, "choose-discard", func(b *Battle, rc *resolve.Context) error {
		hand := b.State.Hand
		if len(hand) == 0 {
			return nil
		}
		options := make([]Option, 0, len(hand))
		for _, c := range hand {
			options = append(options, Option{ID: c.ID, Label: c.Name})
		}
		dec, err := NewAwaitDecision(b, "Choose a card to discard", options)
		if err != nil {
			return err
		}
		discard, err := NewCallback(b, "discard-choice", func(b *Battle, rc *resolve.Context) error {
			d, err := NewDiscard(b, dec.Choice)
			if err != nil {
				return err
			}
			rc.Spawn(d)
			return nil
		})
		if err != nil {
			return err
		}
		rc.Spawn(dec)
		rc.Spawn(discard)
		return nil
	})
	if err != nil {
		return nil, err
	}
	draw, err := NewDrawCards(b, 2)
	if err != nil {
		return nil, err
	}
	return []resolve.Instruction{choose, draw}, nil
}

// execute reads the damage child's result once it has completed.
func execute(b *Battle, src *Combatant, target string) ([]resolve.Instruction, error) {
	d, err := NewDamage(b, src.ID, target, 10)
	if err != nil {
		return nil, err
	}
	refund, err := NewCallback(b, "execute-refund", func(b *Battle, rc *resolve.Context) error {
		if !d.Completed() || !d.Lethal {
			return nil
		}
		g, err := NewGainResource(b, 1)
		if err != nil {
			return err
		}
		rc.Spawn(g)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return []resolve.Instruction{d, refund}, nil
}

// names lists the catalogue keys, sorted.
func (c Catalogue) names() []string {
	out := make([]string, 0, len(c))
	for k := range c {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
