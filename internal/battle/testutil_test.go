package battle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/peterkuimelis/clash/internal/log"
	"github.com/peterkuimelis/clash/internal/resolve"
	"github.com/peterkuimelis/clash/internal/sequence"
)

// ScriptedPrompter answers prompts from a predefined list of option ids, in
// order. With the script exhausted prompts are left pending.
type ScriptedPrompter struct {
	t       *testing.T
	choices []string
	seen    []Prompt
}

func NewScriptedPrompter(t *testing.T, choices ...string) *ScriptedPrompter {
	return &ScriptedPrompter{t: t, choices: choices}
}

func (sp *ScriptedPrompter) Prompt(b *Battle, p Prompt) {
	sp.seen = append(sp.seen, p)
	if len(sp.choices) == 0 {
		return
	}
	choice := sp.choices[0]
	sp.choices = sp.choices[1:]
	if err := b.Decide(p.Node, choice); err != nil {
		sp.t.Errorf("scripted decision %q: %v", choice, err)
	}
}

type fixture struct {
	t     *testing.T
	b     *Battle
	clock *sequence.ManualClock
	rec   *sequence.Recorder
	log   *log.MemoryLogger
}

// testLoadout is a hero against a sturdy enemy (e1) and a fragile one (e2).
func testLoadout() *Loadout {
	return &Loadout{
		Name: "test",
		Hero: HeroEntry{Name: "Hero", Health: 50},
		Enemies: []EnemyEntry{
			{Name: "Brute", Health: 20, Pattern: []Intent{{Action: IntentAttack, Amount: 7}}},
			{Name: "Imp", Health: 5, Pattern: []Intent{
				{Action: IntentAttack, Amount: 3},
				{Action: IntentBlock, Amount: 4},
			}},
		},
		Cards: []CardEntry{
			{Skill: "strike", Count: 5},
			{Skill: "defend", Count: 5},
		},
	}
}

func newFixture(t *testing.T, loadout *Loadout, opts ...func(*Config)) *fixture {
	t.Helper()
	f := &fixture{
		t:     t,
		clock: sequence.NewManualClock(),
		rec:   &sequence.Recorder{},
		log:   log.NewMemoryLogger(),
	}
	cfg := Config{
		Loadout:  loadout,
		Seed:     7,
		Log:      f.log,
		Emitter:  f.rec,
		Clock:    f.clock,
		Registry: resolve.NewRegistry(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	b, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(b.Close)
	f.b = b
	return f
}

func withPrompter(p Prompter) func(*Config) {
	return func(c *Config) { c.Prompter = p }
}

func withCatalogue(cat Catalogue) func(*Config) {
	return func(c *Config) { c.Catalogue = cat }
}

// deal replaces the hand with fresh cards for skills and opens turn 1 by hand,
// skipping the shuffled opening draw.
func (f *fixture) deal(skills ...string) []*Card {
	f.t.Helper()
	s := f.b.State
	s.Hand = nil
	var cards []*Card
	for _, name := range skills {
		skill, err := f.b.catalogue.Lookup(name)
		require.NoError(f.t, err)
		c := s.NewCard(skill.Name, skill.Name, skill.Cost, skill.Targeted, skill.Exhaust)
		s.Hand = append(s.Hand, c)
		cards = append(cards, c)
	}
	s.Turn = 1
	s.Energy = s.MaxEnergy
	f.b.started = true
	return cards
}

func (f *fixture) use(card *Card, target string) resolve.Stats {
	f.t.Helper()
	stats, err := f.b.UseCard(context.Background(), card.ID, target)
	require.NoError(f.t, err)
	return stats
}

// flush plays every queued presentation to the end.
func (f *fixture) flush() {
	f.t.Helper()
	for i := 0; i < 1000 && f.b.Seq.Len() > 0; i++ {
		f.clock.Advance(time.Second)
	}
	require.Zero(f.t, f.b.Seq.Len(), "presentation queue did not drain")
}

// eventNames lists emitted presentation events in order.
func (f *fixture) eventNames() []string {
	var names []string
	for _, e := range f.rec.Events() {
		names = append(names, e.Name)
	}
	return names
}

// frame returns the payload of the first emitted event called name.
func (f *fixture) frame(name string) (Frame, bool) {
	for _, e := range f.rec.Events() {
		if e.Name == name {
			fr, ok := e.Payload.(Frame)
			return fr, ok
		}
	}
	return Frame{}, false
}
