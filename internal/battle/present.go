package battle

import (
	"errors"
	"time"

	"github.com/peterkuimelis/clash/internal/project"
	"github.com/peterkuimelis/clash/internal/sequence"
)

// Presentation event names.
const (
	EvDamage   = "damage"
	EvShield   = "shield"
	EvStatus   = "status"
	EvDraw     = "draw"
	EvDiscard  = "discard"
	EvMove     = "move"
	EvShuffle  = "shuffle"
	EvEnergy   = "energy"
	EvSkill    = "skill"
	EvFizzle   = "fizzle"
	EvDefeat   = "defeat"
	EvTurn     = "turn"
	EvIntent   = "intent"
	EvPrompt   = "prompt"
	EvDecided  = "decided"
	EvOutcome  = "outcome"
	EvResync   = "resync"
	EvAnimWait = "await-animation"
)

// Schedule tags.
const (
	TagCards  = "cards"
	TagEnergy = "energy"
	TagModal  = "modal"
)

// UnitTag names the presentation lane of one combatant.
func UnitTag(id string) string { return "unit:" + id }

// Timings maps presentation events to their animation ceilings.
type Timings map[string]time.Duration

// DefaultTimings are used for any event a configuration leaves out.
var DefaultTimings = Timings{
	EvDamage:  450 * time.Millisecond,
	EvShield:  300 * time.Millisecond,
	EvStatus:  300 * time.Millisecond,
	EvDraw:    120 * time.Millisecond,
	EvDiscard: 120 * time.Millisecond,
	EvMove:    150 * time.Millisecond,
	EvShuffle: 400 * time.Millisecond,
	EvEnergy:  100 * time.Millisecond,
	EvSkill:   250 * time.Millisecond,
	EvFizzle:  250 * time.Millisecond,
	EvDefeat:  700 * time.Millisecond,
	EvTurn:    500 * time.Millisecond,
	EvIntent:  200 * time.Millisecond,
	EvDecided: 150 * time.Millisecond,
	EvOutcome: time.Second,
}

// For returns the duration of event, falling back to the defaults.
func (t Timings) For(event string) time.Duration {
	if d, ok := t[event]; ok {
		return d
	}
	if d, ok := DefaultTimings[event]; ok {
		return d
	}
	return 200 * time.Millisecond
}

// Frame is the payload of every emitted presentation event. State is the
// mirror after the event's snapshot was merged; it is empty for events that
// do not carry a snapshot.
type Frame struct {
	Data  any            `json:"data,omitempty"`
	State map[string]any `json:"state,omitempty"`
}

type DamageData struct {
	Source  string `json:"source,omitempty"`
	Target  string `json:"target"`
	Amount  int    `json:"amount"`
	Blocked int    `json:"blocked"`
	Lethal  bool   `json:"lethal"`
}

type StatusData struct {
	Target string `json:"target"`
	Status string `json:"status"`
	Delta  int    `json:"delta"`
	Stacks int    `json:"stacks"`
}

type CardData struct {
	Card string `json:"card"`
	Name string `json:"name"`
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

type AmountData struct {
	Target string `json:"target,omitempty"`
	Amount int    `json:"amount"`
	Total  int    `json:"total"`
}

// present enqueues one serialized presentation instruction. The snapshot is
// taken now, while the resolution pass owns the state; the mirror only sees it
// once the instruction starts.
func (b *Battle) present(event string, tags []string, data any) {
	snap := b.snapshot()
	b.enqueue(sequence.Spec{
		Name:     event,
		Tags:     tags,
		Duration: b.timings.For(event),
		Start: func(h sequence.Handle) {
			h.Emit(event, Frame{Data: data, State: b.reconcile(snap, event)})
		},
	})
}

// flash enqueues an instruction that waits for nothing and carries no
// snapshot, so it may overlap serialized instructions without rewinding the
// mirror.
func (b *Battle) flash(event string, tags []string, data any) {
	b.enqueue(sequence.Spec{
		Name:     event,
		Tags:     tags,
		WaitTags: sequence.Immediate,
		Duration: b.timings.For(event),
		Start: func(h sequence.Handle) {
			h.Emit(event, Frame{Data: data})
		},
	})
}

func (b *Battle) snapshot() any { return project.Project(b.State) }

// reconcile merges snap into the mirror and returns the merged view.
func (b *Battle) reconcile(snap any, event string) map[string]any {
	b.mirrorMu.Lock()
	defer b.mirrorMu.Unlock()
	if err := project.Reconcile(snap, b.Mirror, b.Shapes); err != nil {
		b.oplog.Error().Err(err).Str("event", event).Msg("mirror reconcile failed")
	}
	return b.Mirror.Plain()
}

// View returns a plain copy of the mirror as the presentation currently shows it.
func (b *Battle) View() map[string]any {
	b.mirrorMu.Lock()
	defer b.mirrorMu.Unlock()
	return b.Mirror.Plain()
}

func (b *Battle) enqueue(spec sequence.Spec) string {
	id, err := b.Seq.Enqueue(spec)
	switch {
	case errors.Is(err, sequence.ErrStopped):
		b.oplog.Debug().Str("event", spec.Name).Msg("presentation dropped after close")
	case err != nil:
		b.oplog.Error().Err(err).Str("event", spec.Name).Msg("presentation dropped")
	}
	return id
}
