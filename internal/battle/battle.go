package battle

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/peterkuimelis/clash/internal/log"
	"github.com/peterkuimelis/clash/internal/project"
	"github.com/peterkuimelis/clash/internal/resolve"
	"github.com/peterkuimelis/clash/internal/sequence"
)

// Config holds everything needed to set up a battle. Zero fields fall back to
// defaults: the starter loadout, the default catalogue, the wall clock, the
// modal prompter and the default executor registry.
type Config struct {
	Loadout   *Loadout
	Catalogue Catalogue
	Seed      int64
	Timings   Timings

	Log     log.EventLogger
	Logger  zerolog.Logger
	Emitter sequence.Emitter
	Clock   sequence.Clock

	Prompter Prompter

	MaxDepth     int
	MaxSteps     int
	Observer     resolve.Observer
	AnimObserver sequence.Observer
	Registry     *resolve.Registry
}

// Battle ties one authoritative state to its executor, its presentation
// schedule and the mirror the presentation reads.
type Battle struct {
	ID     string
	State  *State
	Exec   *resolve.Executor
	Seq    *sequence.Sequencer
	Mirror *project.Object
	Shapes *project.Shapes
	Log    log.EventLogger

	catalogue Catalogue
	prompter  Prompter
	timings   Timings
	oplog     zerolog.Logger
	registry  *resolve.Registry

	action   sync.Mutex // held for the whole of a resolution pass
	started  bool
	mirrorMu sync.Mutex

	promptMu sync.Mutex
	pending  map[resolve.ID]Prompt
	modals   map[resolve.ID]string
}

// New builds a battle from cfg and registers its executor. The battle does
// nothing until Start.
func New(cfg Config) (*Battle, error) {
	loadout := cfg.Loadout
	if loadout == nil {
		loadout = &Starter
	}
	catalogue := cfg.Catalogue
	if catalogue == nil {
		catalogue = DefaultCatalogue
	}
	state := NewState(cfg.Seed)
	if err := loadout.Populate(state, catalogue); err != nil {
		return nil, err
	}

	b := &Battle{
		ID:        uuid.NewString(),
		State:     state,
		Shapes:    NewShapes(),
		Log:       cfg.Log,
		catalogue: catalogue,
		prompter:  cfg.Prompter,
		timings:   cfg.Timings,
		registry:  cfg.Registry,
		pending:   make(map[resolve.ID]Prompt),
		modals:    make(map[resolve.ID]string),
	}
	b.oplog = cfg.Logger.With().Str("battle", b.ID).Logger()
	b.Mirror = b.Shapes.New(State{}.Kind())
	if b.Log == nil {
		b.Log = log.NewMemoryLogger()
	}
	if b.prompter == nil {
		b.prompter = ModalPrompter{}
	}
	if b.registry == nil {
		b.registry = resolve.Default
	}

	b.Exec = resolve.NewExecutor(
		resolve.WithMaxDepth(cfg.MaxDepth),
		resolve.WithMaxSteps(cfg.MaxSteps),
		resolve.WithLogger(b.oplog.With().Str("component", "executor").Logger()),
		resolve.WithObserver(cfg.Observer),
	)
	b.Seq = sequence.New(
		sequence.WithClock(cfg.Clock),
		sequence.WithEmitter(cfg.Emitter),
		sequence.WithLogger(b.oplog.With().Str("component", "sequencer").Logger()),
		sequence.WithObserver(cfg.AnimObserver),
	)

	b.reconcile(b.snapshot(), "init")
	b.registry.Register(b.ID, b.Exec)
	return b, nil
}

// Catalogue returns the skills this battle resolves cards against.
func (b *Battle) Catalogue() Catalogue { return b.catalogue }

// Start opens turn 1 and draws the opening hand.
func (b *Battle) Start(ctx context.Context) (resolve.Stats, error) {
	b.promptMu.Lock()
	started := b.started
	b.started = true
	b.promptMu.Unlock()
	if started {
		return resolve.Stats{}, ErrAlreadyStarted
	}
	return b.Run(ctx, &BattleStart{b: b})
}

// UseCard plays a card from the hand against target and resolves it. Targeted
// skills need a living enemy.
func (b *Battle) UseCard(ctx context.Context, cardID, target string) (resolve.Stats, error) {
	if err := b.ready(); err != nil {
		return resolve.Stats{}, err
	}
	s := b.State
	card := s.HandCard(cardID)
	if card == nil {
		return resolve.Stats{}, fmt.Errorf("card %q: %w", cardID, ErrUnknownCard)
	}
	skill, err := b.catalogue.Lookup(card.Skill)
	if err != nil {
		return resolve.Stats{}, err
	}
	if skill.Targeted {
		t := s.Combatant(target)
		if t == nil || t == s.Hero || !t.Alive() {
			return resolve.Stats{}, fmt.Errorf("target %q: %w", target, ErrUnknownTarget)
		}
	}
	if card.Cost > s.Energy {
		return resolve.Stats{}, fmt.Errorf("%s costs %d, have %d: %w", card.Name, card.Cost, s.Energy, ErrNotEnoughEnergy)
	}
	use, err := NewUseSkill(b, cardID, target)
	if err != nil {
		return resolve.Stats{}, err
	}
	return b.Run(ctx, use)
}

// EndTurn ends the hero's turn and resolves the enemies' turn.
func (b *Battle) EndTurn(ctx context.Context) (resolve.Stats, error) {
	if err := b.ready(); err != nil {
		return resolve.Stats{}, err
	}
	return b.Run(ctx, &TurnEnd{b: b})
}

// ready is checked before player actions. State reads here race with nothing:
// a pass in progress holds the action lock and Run refuses to start another.
func (b *Battle) ready() error {
	b.promptMu.Lock()
	started := b.started
	b.promptMu.Unlock()
	if !started {
		return ErrNotStarted
	}
	if b.Exec.Running() || b.Exec.Pending() > 0 {
		return fmt.Errorf("resolution in progress: %w", resolve.ErrBusy)
	}
	if b.State.Over {
		return ErrBattleOver
	}
	return nil
}

// Run submits roots, first root first, and drives the executor until the stack
// is empty. With no roots it resumes a pass that was interrupted while
// suspended. Only one pass runs at a time.
func (b *Battle) Run(ctx context.Context, roots ...resolve.Instruction) (resolve.Stats, error) {
	if !b.action.TryLock() {
		return b.Exec.Stats(), resolve.ErrBusy
	}
	defer b.action.Unlock()
	for _, root := range roots {
		if root == nil {
			return resolve.Stats{}, resolve.ErrNilInstruction
		}
	}
	for i := len(roots) - 1; i >= 0; i-- {
		if err := b.Exec.Submit(roots[i]); err != nil {
			return resolve.Stats{}, err
		}
	}
	return b.Exec.RunUntilComplete(ctx)
}

// Resync replays the mirror to the presentation, for clients that connect
// mid-battle. When nothing is resolving or animating the mirror is first
// brought level with the authoritative state.
func (b *Battle) Resync() string {
	var snap any
	if b.action.TryLock() {
		if b.Exec.Pending() == 0 && b.Seq.Len() == 0 {
			snap = b.snapshot()
		}
		b.action.Unlock()
	}
	return b.enqueue(sequence.Spec{
		Name:     EvResync,
		Tags:     []string{TagModal},
		WaitTags: sequence.Immediate,
		Start: func(h sequence.Handle) {
			state := b.View()
			if snap != nil {
				state = b.reconcile(snap, EvResync)
			}
			h.Emit(EvResync, Frame{State: state})
			h.Finish()
		},
	})
}

// Close unregisters the battle's executor and stops its presentation
// schedule, timers included.
func (b *Battle) Close() {
	b.registry.Unregister(b.ID)
	b.Seq.Stop()
}
