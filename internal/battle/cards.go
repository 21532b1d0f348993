package battle

import (
	"fmt"

	"github.com/peterkuimelis/clash/internal/log"
	"github.com/peterkuimelis/clash/internal/resolve"
)

// DrawCards draws Count cards. When the draw pile runs dry it spawns a
// Reshuffle and resumes once the reshuffle has run; it stops early when both
// piles are empty.
type DrawCards struct {
	resolve.Node
	b *Battle

	Count int

	Drawn []string // card ids, burned cards included
}

func NewDrawCards(b *Battle, count int) (*DrawCards, error) {
	if err := requireBattle(b); err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: draw count must be positive, got %d", ErrMalformed, count)
	}
	return &DrawCards{b: b, Count: count}, nil
}

func (d *DrawCards) Name() string { return "draw" }

func (d *DrawCards) Execute(rc *resolve.Context) (bool, error) {
	s := d.b.State
	for len(d.Drawn) < d.Count {
		if s.Over {
			return true, nil
		}
		if len(s.Draw) == 0 {
			if len(s.Discard) == 0 {
				return true, nil
			}
			d.Next() // stage counts reshuffles
			rc.Spawn(&Reshuffle{b: d.b})
			return false, nil
		}
		card, burned := s.DrawTop()
		d.Drawn = append(d.Drawn, card.ID)
		d.b.Log.Log(log.NewDrawEvent(s.Turn, card.Name, burned))
		to := ZoneHand
		if burned {
			to = ZoneDiscard
		}
		d.b.present(EvDraw, []string{TagCards}, CardData{Card: card.ID, Name: card.Name, From: ZoneDraw.String(), To: to.String()})
	}
	return true, nil
}

// Reshuffle moves the discard pile into the draw pile and shuffles it.
type Reshuffle struct {
	resolve.Node
	b *Battle

	Moved int
}

func NewReshuffle(b *Battle) (*Reshuffle, error) {
	if err := requireBattle(b); err != nil {
		return nil, err
	}
	return &Reshuffle{b: b}, nil
}

func (r *Reshuffle) Name() string { return "reshuffle" }

func (r *Reshuffle) Execute(rc *resolve.Context) (bool, error) {
	s := r.b.State
	r.Moved = s.ShuffleDiscardIntoDraw()
	r.b.Log.Log(log.NewShuffleEvent(s.Turn, r.Moved))
	r.b.present(EvShuffle, []string{TagCards}, AmountData{Amount: r.Moved, Total: len(s.Draw)})
	return true, nil
}

// Discard moves a card from the hand to the discard pile. A card no longer in
// hand is left alone.
type Discard struct {
	resolve.Node
	b *Battle

	Card string

	Moved bool
}

func NewDiscard(b *Battle, card string) (*Discard, error) {
	if err := requireBattle(b); err != nil {
		return nil, err
	}
	if card == "" {
		return nil, fmt.Errorf("%w: card is required", ErrMalformed)
	}
	return &Discard{b: b, Card: card}, nil
}

func (d *Discard) Name() string { return "discard" }

func (d *Discard) Execute(rc *resolve.Context) (bool, error) {
	s := d.b.State
	if s.HandCard(d.Card) == nil {
		return true, nil
	}
	card, _, _ := s.MoveCard(d.Card, ZoneDiscard)
	d.Moved = true
	d.b.Log.Log(log.NewDiscardEvent(s.Turn, card.Name))
	d.b.present(EvDiscard, []string{TagCards}, CardData{Card: card.ID, Name: card.Name, From: ZoneHand.String(), To: ZoneDiscard.String()})
	return true, nil
}

// MoveCard moves a card from whichever zone holds it to To.
type MoveCard struct {
	resolve.Node
	b *Battle

	Card string
	To   Zone

	From  Zone
	Moved bool
}

func NewMoveCard(b *Battle, card string, to Zone) (*MoveCard, error) {
	if err := requireBattle(b); err != nil {
		return nil, err
	}
	if card == "" {
		return nil, fmt.Errorf("%w: card is required", ErrMalformed)
	}
	if b.State.pile(to) == nil {
		return nil, fmt.Errorf("%w: unknown zone %d", ErrMalformed, to)
	}
	return &MoveCard{b: b, Card: card, To: to}, nil
}

func (m *MoveCard) Name() string { return "move-card" }

func (m *MoveCard) Execute(rc *resolve.Context) (bool, error) {
	s := m.b.State
	card, from, ok := s.MoveCard(m.Card, m.To)
	if !ok {
		return true, nil
	}
	m.From, m.Moved = from, true
	m.b.Log.Log(log.NewMoveEvent(s.Turn, card.Name, from.String(), m.To.String()))
	m.b.present(EvMove, []string{TagCards}, CardData{Card: card.ID, Name: card.Name, From: from.String(), To: m.To.String()})
	return true, nil
}
