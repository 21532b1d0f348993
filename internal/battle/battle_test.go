package battle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peterkuimelis/clash/internal/log"
	"github.com/peterkuimelis/clash/internal/resolve"
	"github.com/peterkuimelis/clash/internal/sequence"
)

// TestUseSkillFollowUpCancelsSibling: a skill pays, deals lethal damage, then a
// follow-up sees the kill and cancels a sibling queued after it.
func TestUseSkillFollowUpCancelsSibling(t *testing.T) {
	cat := DefaultCatalogue.Clone()
	cat.Register(&Skill{
		Name:     "combo",
		Cost:     1,
		Targeted: true,
		Build: func(b *Battle, src *Combatant, target string) ([]resolve.Instruction, error) {
			hit, err := NewDamage(b, src.ID, target, 10)
			if err != nil {
				return nil, err
			}
			later, err := NewGainShield(b, src.ID, 5)
			if err != nil {
				return nil, err
			}
			check, err := NewCallback(b, "check-kill", func(b *Battle, rc *resolve.Context) error {
				if b.State.Combatant(target).Health <= 0 {
					later.Cancel()
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
			return []resolve.Instruction{hit, check, later}, nil
		},
	})
	f := newFixture(t, testLoadout(), withCatalogue(cat))
	cards := f.deal("combo")

	stats := f.use(cards[0], "e2")

	s := f.b.State
	imp := s.Combatant("e2")
	assert.Equal(t, 1, stats.Skipped, "sibling must be skipped")
	assert.Equal(t, 5, stats.Executed) // use-skill, spend, move, damage, callback
	assert.Equal(t, 0, imp.Health)
	assert.True(t, imp.Defeated)
	assert.Equal(t, 0, s.Hero.Shield)
	assert.Equal(t, 2, s.Energy)
	assert.False(t, s.Over, "Brute is still standing")
	assert.Len(t, s.Discard, 1)
	assert.Empty(t, s.Hand)
}

func TestLethalDamageCancelsBoundFollowUps(t *testing.T) {
	cat := DefaultCatalogue.Clone()
	cat.Register(&Skill{
		Name:     "volley",
		Targeted: true,
		Build: func(b *Battle, src *Combatant, target string) ([]resolve.Instruction, error) {
			first, err := NewDamage(b, src.ID, target, 9)
			if err != nil {
				return nil, err
			}
			second, err := NewDamage(b, src.ID, target, 9)
			if err != nil {
				return nil, err
			}
			weak, err := NewStatusDelta(b, target, StatusWeak, 1)
			if err != nil {
				return nil, err
			}
			other, err := NewDamage(b, src.ID, "e1", 6)
			if err != nil {
				return nil, err
			}
			return []resolve.Instruction{first, second, weak, other}, nil
		},
	})
	f := newFixture(t, testLoadout(), withCatalogue(cat))
	cards := f.deal("volley")

	stats := f.use(cards[0], "e2")

	s := f.b.State
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 0, s.Combatant("e2").Health)
	assert.Empty(t, s.Combatant("e2").Statuses)
	assert.Equal(t, 14, s.Combatant("e1").Health)

	cancels := f.log.EventsOfType(log.EventCancel)
	require.Len(t, cancels, 1)
	assert.Equal(t, 2, cancels[0].Amount)
	assert.Len(t, f.log.EventsOfType(log.EventDamage), 2)
}

func TestVictory(t *testing.T) {
	l := testLoadout()
	l.Enemies[0].Health = 8
	f := newFixture(t, l)
	cards := f.deal("cleave", "strike")

	f.use(cards[0], "")

	s := f.b.State
	assert.True(t, s.Over)
	assert.Equal(t, OutcomeVictory, s.Outcome)
	assert.Len(t, f.log.EventsOfType(log.EventWin), 1)
	assert.Len(t, f.log.EventsOfType(log.EventDefeat), 2)

	_, err := f.b.UseCard(context.Background(), cards[1].ID, "e1")
	assert.ErrorIs(t, err, ErrBattleOver)
}

func TestHeroDefeatIsLoss(t *testing.T) {
	l := testLoadout()
	l.Hero.Health = 6
	f := newFixture(t, l)
	_, err := f.b.Start(context.Background())
	require.NoError(t, err)

	_, err = f.b.EndTurn(context.Background())
	require.NoError(t, err)

	s := f.b.State
	assert.True(t, s.Over)
	assert.Equal(t, OutcomeDefeat, s.Outcome)
	assert.Equal(t, 0, s.Hero.Health)
	assert.Len(t, f.log.EventsOfType(log.EventLoss), 1)
	// The Imp's attack was still queued when the hero fell.
	assert.Len(t, f.log.EventsOfType(log.EventDamage), 1)
}

func TestFizzleLeavesCardInHand(t *testing.T) {
	f := newFixture(t, testLoadout())
	cards := f.deal("bash")
	f.b.State.Energy = 1

	_, err := f.b.UseCard(context.Background(), cards[0].ID, "e1")
	require.ErrorIs(t, err, ErrNotEnoughEnergy)

	// Submitted directly the skill resolves and fizzles.
	use, err := NewUseSkill(f.b, cards[0].ID, "e1")
	require.NoError(t, err)
	_, err = f.b.Run(context.Background(), use)
	require.NoError(t, err)

	s := f.b.State
	assert.True(t, use.Fizzled)
	assert.Equal(t, 1, s.Energy)
	assert.Len(t, s.Hand, 1)
	assert.Equal(t, 20, s.Combatant("e1").Health)
	assert.Len(t, f.log.EventsOfType(log.EventFizzle), 1)
}

func TestUseCardValidation(t *testing.T) {
	f := newFixture(t, testLoadout())
	ctx := context.Background()

	_, err := f.b.UseCard(ctx, "c1", "e1")
	assert.ErrorIs(t, err, ErrNotStarted)

	cards := f.deal("strike", "defend")
	_, err = f.b.UseCard(ctx, "nope", "e1")
	assert.ErrorIs(t, err, ErrUnknownCard)
	_, err = f.b.UseCard(ctx, cards[0].ID, "")
	assert.ErrorIs(t, err, ErrUnknownTarget)
	_, err = f.b.UseCard(ctx, cards[0].ID, "hero")
	assert.ErrorIs(t, err, ErrUnknownTarget)
	_, err = f.b.UseCard(ctx, cards[0].ID, "e9")
	assert.ErrorIs(t, err, ErrUnknownTarget)

	// Untargeted skills ignore the target.
	f.use(cards[1], "")
	assert.Equal(t, 5, f.b.State.Hero.Shield)

	_, err = f.b.Start(ctx)
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestModifiersApplyAtReadTime(t *testing.T) {
	f := newFixture(t, testLoadout())
	cards := f.deal("inflame", "strike", "bash", "strike")
	s := f.b.State
	s.Energy = 10
	s.Hero.AddStacks(StatusWeak, 1)

	f.use(cards[0], "")
	assert.Equal(t, 2, s.Hero.Stacks(StatusStrength))
	assert.Equal(t, "strike", s.Hand[0].Name)
	assert.Len(t, s.Exhaust, 1)

	// (6 + 2 strength) * 3/4 weak = 6
	f.use(cards[1], "e1")
	assert.Equal(t, 14, s.Combatant("e1").Health)

	// bash: (8+2)*3/4 = 7, then vulnerable 2
	f.use(cards[2], "e1")
	assert.Equal(t, 7, s.Combatant("e1").Health)
	assert.Equal(t, 2, s.Combatant("e1").Stacks(StatusVulnerable))

	// 6 * 3/2 vulnerable = 9, clamped at the remaining 7
	f.use(cards[3], "e1")
	e1 := s.Combatant("e1")
	assert.Equal(t, 0, e1.Health)
	assert.True(t, e1.Defeated)
}

func TestShieldAbsorbsDamage(t *testing.T) {
	f := newFixture(t, testLoadout())
	f.deal()
	s := f.b.State
	s.Hero.Shield = 4

	d, err := NewDamage(f.b, "e1", "hero", 7)
	require.NoError(t, err)
	_, err = f.b.Run(context.Background(), d)
	require.NoError(t, err)

	assert.Equal(t, 4, d.Blocked)
	assert.Equal(t, 3, d.Dealt)
	assert.Equal(t, 0, s.Hero.Shield)
	assert.Equal(t, 47, s.Hero.Health)

	p, err := NewDamage(f.b, "e1", "hero", 5)
	require.NoError(t, err)
	p.Piercing = true
	s.Hero.Shield = 10
	_, err = f.b.Run(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 42, s.Hero.Health)
	assert.Equal(t, 10, s.Hero.Shield)
}

func TestConstructorsRejectMalformed(t *testing.T) {
	f := newFixture(t, testLoadout())

	_, err := NewDamage(f.b, "", "e1", 3)
	assert.NoError(t, err)
	_, err = NewDamage(f.b, "e1", "", 3)
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = NewDamage(f.b, "e1", "nobody", 3)
	assert.ErrorIs(t, err, ErrUnknownTarget)
	_, err = NewDamage(f.b, "e1", "hero", -1)
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = NewDamage(nil, "e1", "hero", 1)
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = NewStatusDelta(f.b, "hero", StatusWeak, 0)
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = NewDrawCards(f.b, 0)
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = NewGainResource(f.b, 0)
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = NewSpendResource(f.b, -2)
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = NewMoveCard(f.b, "c1", Zone(42))
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = NewAwaitDecision(f.b, "pick", nil)
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = NewCallback(f.b, "empty", nil)
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = NewAwaitAnimation(f.b, sequence.Spec{Duration: sequence.Unbounded})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestExecuteRefundReadsChildResult(t *testing.T) {
	f := newFixture(t, testLoadout())
	cards := f.deal("execute", "execute")
	s := f.b.State
	s.Energy = 4

	f.use(cards[0], "e1")
	assert.Equal(t, 10, s.Combatant("e1").Health)
	assert.Equal(t, 2, s.Energy)

	f.use(cards[1], "e2")
	assert.True(t, s.Combatant("e2").Defeated)
	assert.Equal(t, 1, s.Energy, "lethal execute refunds one energy")
}

func TestStartAndEndTurn(t *testing.T) {
	f := newFixture(t, testLoadout())
	ctx := context.Background()

	_, err := f.b.Start(ctx)
	require.NoError(t, err)

	s := f.b.State
	assert.Equal(t, 1, s.Turn)
	assert.Equal(t, DefaultEnergy, s.Energy)
	assert.Len(t, s.Hand, OpeningHandSize)
	assert.Len(t, s.Draw, 5)
	require.NotNil(t, s.Combatant("e2").Intent)
	assert.Equal(t, IntentAttack, s.Combatant("e2").Intent.Action)

	s.Hero.AddStacks(StatusWeak, 1)
	s.Hero.Shield = 3
	s.Energy = 0

	_, err = f.b.EndTurn(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, s.Turn)
	assert.Equal(t, DefaultEnergy, s.Energy)
	assert.Equal(t, 43, s.Hero.Health, "7 + 3 damage, 3 blocked")
	assert.Equal(t, 0, s.Hero.Shield)
	assert.Zero(t, s.Hero.Stacks(StatusWeak))
	assert.Len(t, s.Hand, OpeningHandSize)
	assert.Len(t, s.Discard, 5)
	assert.Empty(t, s.Draw)
	assert.Equal(t, IntentBlock, s.Combatant("e2").Intent.Action)
	assert.Len(t, f.log.EventsOfType(log.EventTurn), 2)

	// Turn 3 draws through a reshuffle.
	_, err = f.b.EndTurn(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Combatant("e2").Shield)
	assert.Len(t, s.Hand, OpeningHandSize)
	assert.Len(t, f.log.EventsOfType(log.EventShuffle), 1)
}

func TestRunRefusedWhilePassInProgress(t *testing.T) {
	f := newFixture(t, testLoadout(), withPrompter(PrompterFunc(func(*Battle, Prompt) {})))
	cards := f.deal("scheme", "strike")

	done := make(chan error, 1)
	go func() {
		_, err := f.b.UseCard(context.Background(), cards[0].ID, "")
		done <- err
	}()
	require.Eventually(t, func() bool { return len(f.b.Pending()) == 1 }, time.Second, time.Millisecond)

	_, err := f.b.UseCard(context.Background(), cards[1].ID, "e1")
	assert.ErrorIs(t, err, resolve.ErrBusy)
	_, err = f.b.Run(context.Background())
	assert.ErrorIs(t, err, resolve.ErrBusy)

	p := f.b.Pending()[0]
	require.NoError(t, f.b.Decide(p.Node, cards[1].ID))
	require.NoError(t, <-done)
	assert.Len(t, f.b.State.Discard, 2, "scheme and the discarded strike")
}

func TestResyncReplaysMirror(t *testing.T) {
	f := newFixture(t, testLoadout())
	cards := f.deal("strike")
	f.use(cards[0], "e1")
	f.flush()
	f.rec.Drain()

	id := f.b.Resync()
	require.NotEmpty(t, id)
	assert.Equal(t, sequence.StatusFinished, f.b.Seq.Status(id))

	events := f.rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EvResync, events[0].Name)
	fr := events[0].Payload.(Frame)
	assert.Equal(t, 2, fr.State["energy"])
}

func TestBattlesRegisterExecutors(t *testing.T) {
	reg := resolve.NewRegistry()
	b, err := New(Config{Registry: reg, Seed: 1})
	require.NoError(t, err)

	ex, ok := reg.Lookup(b.ID)
	require.True(t, ok)
	assert.Same(t, b.Exec, ex)

	b.Close()
	_, ok = reg.Lookup(b.ID)
	assert.False(t, ok)
}

func TestLoadoutErrorsSurface(t *testing.T) {
	l := testLoadout()
	l.Cards = append(l.Cards, CardEntry{Skill: "fireball", Count: 1})
	_, err := New(Config{Loadout: l, Registry: resolve.NewRegistry()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownSkill))
}

func TestLethalDamageCancelsBoundWorkUnderOtherRoots(t *testing.T) {
	f := newFixture(t, testLoadout())
	first, err := NewDamage(f.b, "hero", "e2", 9)
	require.NoError(t, err)
	second, err := NewDamage(f.b, "hero", "e2", 9)
	require.NoError(t, err)
	shield, err := NewGainShield(f.b, "e2", 4)
	require.NoError(t, err)
	other, err := NewDamage(f.b, "hero", "e1", 6)
	require.NoError(t, err)

	stats, err := f.b.Run(context.Background(), first, second, shield, other)
	require.NoError(t, err)

	assert.True(t, first.Lethal)
	assert.Equal(t, 5, first.Dealt)
	assert.True(t, second.Cancelled())
	assert.False(t, second.Completed())
	assert.True(t, shield.Cancelled())
	assert.Equal(t, 2, stats.Executed)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 14, f.b.State.Combatant("e1").Health)
	assert.Zero(t, f.b.State.Combatant("e2").Shield)

	cancels := f.log.EventsOfType(log.EventCancel)
	require.Len(t, cancels, 1)
	assert.Equal(t, 2, cancels[0].Amount)
}

func TestRunRejectsNilRootAtomically(t *testing.T) {
	f := newFixture(t, testLoadout())
	hit, err := NewDamage(f.b, "hero", "e1", 3)
	require.NoError(t, err)

	_, err = f.b.Run(context.Background(), hit, nil)
	assert.ErrorIs(t, err, resolve.ErrNilInstruction)
	assert.Zero(t, f.b.Exec.Pending(), "nothing may be left on the stack")

	stats, err := f.b.Run(context.Background(), hit)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Executed)
	assert.Equal(t, 17, f.b.State.Combatant("e1").Health)
}

func TestCloseStopsPresentation(t *testing.T) {
	f := newFixture(t, testLoadout())
	cards := f.deal("strike")
	f.use(cards[0], "e1")
	require.NotZero(t, f.clock.Pending())
	emitted := len(f.rec.Events())

	f.b.Close()

	assert.Zero(t, f.clock.Pending())
	assert.Zero(t, f.b.Seq.Len())
	f.clock.Advance(10 * time.Second)
	assert.Len(t, f.rec.Events(), emitted)
	assert.Empty(t, f.b.Resync())
}

func TestPrimitivesSubmitDirectly(t *testing.T) {
	f := newFixture(t, testLoadout())
	ex := resolve.NewExecutor()
	hit, err := NewDamage(f.b, "e1", "hero", 4)
	require.NoError(t, err)
	guard, err := NewGainShield(f.b, "hero", 2)
	require.NoError(t, err)

	require.NoError(t, ex.Submit(hit))
	require.NoError(t, ex.Submit(guard))
	_, err = ex.RunUntilComplete(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, guard.Gained)
	assert.Equal(t, 2, hit.Blocked)
	assert.Equal(t, 48, f.b.State.Hero.Health)
}
