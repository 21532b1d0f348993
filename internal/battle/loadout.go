package battle

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadoutFile represents the top-level YAML structure.
type LoadoutFile struct {
	Loadouts []Loadout `yaml:"loadouts"`
}

// Loadout is one battle setup: a hero, the enemies and the hero's deck.
type Loadout struct {
	Name    string       `yaml:"name" json:"name"`
	Hero    HeroEntry    `yaml:"hero" json:"hero"`
	Energy  int          `yaml:"energy" json:"energy,omitempty"`
	Enemies []EnemyEntry `yaml:"enemies" json:"enemies"`
	Cards   []CardEntry  `yaml:"cards" json:"cards"`
}

type HeroEntry struct {
	Name   string `yaml:"name" json:"name"`
	Health int    `yaml:"health" json:"health"`
}

// EnemyEntry is an enemy with the intent pattern it cycles through.
type EnemyEntry struct {
	Name    string   `yaml:"name" json:"name"`
	Health  int      `yaml:"health" json:"health"`
	Pattern []Intent `yaml:"pattern" json:"pattern"`
}

// CardEntry represents a skill and its count in the deck.
type CardEntry struct {
	Skill string `yaml:"skill" json:"skill"`
	Count int    `yaml:"count" json:"count"`
}

// Validate checks the loadout against a catalogue.
func (l *Loadout) Validate(c Catalogue) error {
	if l.Hero.Health <= 0 {
		return fmt.Errorf("loadout %q: hero health must be positive", l.Name)
	}
	if len(l.Enemies) == 0 {
		return fmt.Errorf("loadout %q: no enemies", l.Name)
	}
	for _, e := range l.Enemies {
		if e.Health <= 0 {
			return fmt.Errorf("loadout %q: enemy %q health must be positive", l.Name, e.Name)
		}
		for _, in := range e.Pattern {
			switch in.Action {
			case IntentAttack, IntentBlock, IntentBuff:
			case IntentDebuff:
				if in.Status == "" {
					return fmt.Errorf("loadout %q: enemy %q debuff without status", l.Name, e.Name)
				}
			default:
				return fmt.Errorf("loadout %q: enemy %q has unknown intent %q", l.Name, e.Name, in.Action)
			}
		}
	}
	for _, entry := range l.Cards {
		if _, err := c.Lookup(entry.Skill); err != nil {
			return fmt.Errorf("loadout %q: %w (known: %s)", l.Name, err, strings.Join(c.names(), ", "))
		}
		if entry.Count <= 0 {
			return fmt.Errorf("loadout %q: %s count must be positive", l.Name, entry.Skill)
		}
	}
	return nil
}

// Populate fills an empty state from the loadout. Enemy ids are e1, e2, ...;
// the hero is "hero".
func (l *Loadout) Populate(s *State, c Catalogue) error {
	if err := l.Validate(c); err != nil {
		return err
	}
	s.Hero = &Combatant{ID: "hero", Name: orDefault(l.Hero.Name, "Hero"), Health: l.Hero.Health, MaxHealth: l.Hero.Health}
	s.Enemies = s.Enemies[:0]
	for i, e := range l.Enemies {
		s.Enemies = append(s.Enemies, &Combatant{
			ID:        fmt.Sprintf("e%d", i+1),
			Name:      orDefault(e.Name, fmt.Sprintf("Enemy %d", i+1)),
			Health:    e.Health,
			MaxHealth: e.Health,
			pattern:   e.Pattern,
		})
	}
	if l.Energy > 0 {
		s.MaxEnergy = l.Energy
	}
	for _, entry := range l.Cards {
		skill, _ := c.Lookup(entry.Skill)
		for i := 0; i < entry.Count; i++ {
			s.Draw = append(s.Draw, s.NewCard(skill.Name, skill.Name, skill.Cost, skill.Targeted, skill.Exhaust))
		}
	}
	return nil
}

// ParseLoadouts parses YAML loadout data.
func ParseLoadouts(data []byte) ([]Loadout, error) {
	var lf LoadoutFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parse loadout YAML: %w", err)
	}
	return lf.Loadouts, nil
}

// ParseLoadoutFile parses a YAML loadout file.
func ParseLoadoutFile(path string) ([]Loadout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseLoadouts(data)
}

// LoadoutByName returns the named loadout from a file. An empty name selects
// the first one.
func LoadoutByName(path, name string) (Loadout, error) {
	loadouts, err := ParseLoadoutFile(path)
	if err != nil {
		return Loadout{}, err
	}
	if len(loadouts) == 0 {
		return Loadout{}, fmt.Errorf("%s: no loadouts", path)
	}
	if name == "" {
		return loadouts[0], nil
	}
	for _, l := range loadouts {
		if l.Name == name {
			return l, nil
		}
	}
	return Loadout{}, fmt.Errorf("loadout %q not found in %s (have %d)", name, path, len(loadouts))
}

// Starter is the built-in loadout used when none is configured.
var Starter = Loadout{
	Name: "starter",
	Hero: HeroEntry{Name: "Ironclad", Health: 80},
	Enemies: []EnemyEntry{
		{Name: "Cultist", Health: 48, Pattern: []Intent{
			{Action: IntentBuff, Amount: 3},
			{Action: IntentAttack, Amount: 6},
		}},
		{Name: "Louse", Health: 14, Pattern: []Intent{
			{Action: IntentAttack, Amount: 5},
			{Action: IntentDebuff, Amount: 1, Status: StatusWeak},
			{Action: IntentBlock, Amount: 4},
		}},
	},
	Cards: []CardEntry{
		{Skill: "strike", Count: 4},
		{Skill: "defend", Count: 4},
		{Skill: "bash", Count: 1},
		{Skill: "neutralize", Count: 1},
		{Skill: "cleave", Count: 1},
		{Skill: "survey", Count: 1},
	},
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
