package battle

import (
	"fmt"
	"slices"

	"github.com/peterkuimelis/clash/internal/log"

	"github.com/peterkuimelis/clash/internal/resolve"
	"github.com/peterkuimelis/clash/internal/sequence"
)

// Option is one answer to a prompt.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Prompt asks the player to pick one option. Node is the suspended
// instruction the answer must be delivered to.
type Prompt struct {
	Node    resolve.ID `json:"node"`
	Text    string     `json:"text"`
	Options []Option   `json:"options"`
}

// Has reports whether id names one of the options.
func (p Prompt) Has(id string) bool {
	return slices.ContainsFunc(p.Options, func(o Option) bool { return o.ID == id })
}

// Prompter publishes prompts. It is called from inside the resolution pass
// after the node's input slot is open, so it may answer synchronously through
// Battle.Decide.
type Prompter interface {
	Prompt(b *Battle, p Prompt)
}

// PrompterFunc adapts a function into a Prompter.
type PrompterFunc func(b *Battle, p Prompt)

func (f PrompterFunc) Prompt(b *Battle, p Prompt) { f(b, p) }

// ModalPrompter shows each prompt as an unbounded presentation instruction
// that waits for everything queued before it. The instruction ends when the
// decision arrives.
type ModalPrompter struct{}

func (ModalPrompter) Prompt(b *Battle, p Prompt) {
	snap := b.snapshot()
	id := b.enqueue(sequence.Spec{
		Name:     EvPrompt,
		Tags:     []string{TagModal},
		Duration: sequence.Unbounded,
		Start: func(h sequence.Handle) {
			h.Emit(EvPrompt, Frame{Data: p, State: b.reconcile(snap, EvPrompt)})
		},
	})
	if id == "" {
		return
	}
	// The answer may already have arrived from another goroutine.
	b.promptMu.Lock()
	_, open := b.pending[p.Node]
	if open {
		b.modals[p.Node] = id
	}
	b.promptMu.Unlock()
	if !open {
		b.Seq.Finish(id)
	}
}

// Decide delivers choice to the suspended decision node. The choice must be one
// of the prompt's options.
func (b *Battle) Decide(node resolve.ID, choice string) error {
	b.promptMu.Lock()
	p, ok := b.pending[node]
	if !ok {
		b.promptMu.Unlock()
		return ErrNoPendingDecision
	}
	if !p.Has(choice) {
		b.promptMu.Unlock()
		return ErrInvalidChoice
	}
	delete(b.pending, node)
	modal := b.modals[node]
	delete(b.modals, node)
	b.promptMu.Unlock()

	if err := b.Exec.Deliver(node, choice); err != nil {
		return err
	}
	if modal != "" {
		b.Seq.Finish(modal)
	}
	return nil
}

// Pending returns the prompts waiting for an answer, oldest first.
func (b *Battle) Pending() []Prompt {
	b.promptMu.Lock()
	defer b.promptMu.Unlock()
	out := make([]Prompt, 0, len(b.pending))
	for _, p := range b.pending {
		out = append(out, p)
	}
	slices.SortFunc(out, func(x, y Prompt) int {
		switch {
		case x.Node < y.Node:
			return -1
		case x.Node > y.Node:
			return 1
		}
		return 0
	})
	return out
}

func (b *Battle) publish(p Prompt) {
	b.promptMu.Lock()
	b.pending[p.Node] = p
	b.promptMu.Unlock()
	b.prompter.Prompt(b, p)
}

// AwaitDecision suspends the pass until the player answers. Choice holds the
// chosen option id once the node has completed.
type AwaitDecision struct {
	resolve.Node
	b *Battle

	Text    string
	Options []Option

	Choice string
}

func NewAwaitDecision(b *Battle, text string, options []Option) (*AwaitDecision, error) {
	if err := requireBattle(b); err != nil {
		return nil, err
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("%w: decision %q has no options", ErrMalformed, text)
	}
	return &AwaitDecision{b: b, Text: text, Options: options}, nil
}

func (d *AwaitDecision) Name() string { return "decision" }

func (d *AwaitDecision) prompt() Prompt {
	return Prompt{Node: d.ID(), Text: d.Text, Options: d.Options}
}

func (d *AwaitDecision) Execute(rc *resolve.Context) (bool, error) {
	s := d.b.State
	switch d.Stage() {
	case 0:
		if s.Over {
			return true, nil
		}
		d.Next()
		rc.AwaitInput()
		d.b.Log.Log(log.NewDecisionRequestEvent(s.Turn, d.Text, len(d.Options)))
		d.b.publish(d.prompt())
		return false, nil
	default:
		v, _ := rc.Received()
		choice, _ := v.(string)
		p := d.prompt()
		if !p.Has(choice) {
			d.b.oplog.Warn().Uint64("node", uint64(d.ID())).Interface("choice", v).Msg("invalid decision delivered; asking again")
			rc.AwaitInput()
			d.b.publish(p)
			return false, nil
		}
		d.Choice = choice
		d.b.Log.Log(log.NewDecisionEvent(s.Turn, choice))
		d.b.present(EvDecided, []string{TagModal}, p)
		return true, nil
	}
}

// AwaitAnimation plays Spec and suspends the pass until it finishes, for rules
// that must not continue before a presentation beat has landed.
type AwaitAnimation struct {
	resolve.Node
	b *Battle

	Spec sequence.Spec

	Animation string // sequencer id
}

func NewAwaitAnimation(b *Battle, spec sequence.Spec) (*AwaitAnimation, error) {
	if err := requireBattle(b); err != nil {
		return nil, err
	}
	if spec.Duration == sequence.Unbounded && spec.Start == nil {
		return nil, fmt.Errorf("%w: unbounded animation %q can never finish", ErrMalformed, spec.Name)
	}
	return &AwaitAnimation{b: b, Spec: spec}, nil
}

func (a *AwaitAnimation) Name() string { return "await-animation" }

func (a *AwaitAnimation) Execute(rc *resolve.Context) (bool, error) {
	if a.Stage() > 0 {
		return true, nil
	}
	a.Next()
	node := rc.AwaitResource()
	ex := rc.Executor()
	spec := a.Spec
	onFinish := spec.OnFinish
	spec.OnFinish = func(id string) {
		if onFinish != nil {
			onFinish(id)
		}
		if err := ex.Deliver(node, id); err != nil {
			a.b.oplog.Debug().Err(err).Str("animation", id).Uint64("node", uint64(node)).Msg("animation finished after its node stopped waiting")
		}
	}
	if spec.Name == "" {
		spec.Name = EvAnimWait
	}
	id, err := a.b.Seq.Enqueue(spec)
	if err != nil {
		return false, err
	}
	a.Animation = id
	return false, nil
}
