package net

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/peterkuimelis/clash/internal/battle"
	"github.com/peterkuimelis/clash/internal/log"
	"github.com/peterkuimelis/clash/internal/resolve"
	"github.com/peterkuimelis/clash/internal/sequence"
)

var (
	ErrUnknownMessage = errors.New("unknown message type")
	ErrUnknownLoadout = errors.New("unknown loadout")
	ErrSessionActive  = errors.New("battle still in progress")
)

// Sender delivers server messages to one client. Implementations must be safe
// for concurrent use: events arrive from sequencer timers while results arrive
// from the resolution goroutine.
type Sender interface {
	Send(msg ServerMessage) error
}

// SenderFunc adapts a function into a Sender.
type SenderFunc func(ServerMessage) error

func (f SenderFunc) Send(msg ServerMessage) error { return f(msg) }

// Tracker is told when a session opens or closes a battle.
type Tracker interface {
	BattleOpened()
	BattleClosed()
}

// SessionConfig is shared by every session a server hosts.
type SessionConfig struct {
	// Battle is the template for each battle. Loadout, Log, Emitter and
	// Prompter are replaced per session.
	Battle battle.Config
	// Loadouts can be picked by name in a start message. Empty means the
	// battle default.
	Loadouts []battle.Loadout
	Tracker  Tracker
	Logger   zerolog.Logger
}

// Session drives at most one battle for one client. Actions that resolve run
// in the background and report with a result message, so decisions can be
// delivered while a pass is suspended.
type Session struct {
	cfg    SessionConfig
	out    Sender
	logger zerolog.Logger

	mu   sync.Mutex
	b    *battle.Battle
	busy bool
	last *StateView
	wg   sync.WaitGroup
}

func NewSession(cfg SessionConfig, out Sender) *Session {
	return &Session{
		cfg:    cfg,
		out:    out,
		logger: cfg.Logger.With().Str("component", "session").Logger(),
	}
}

// Battle returns the session's current battle, or nil before the first start.
func (s *Session) Battle() *battle.Battle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b
}

// Handle dispatches one client message. A returned error is for the caller to
// report; it means the message had no effect.
func (s *Session) Handle(ctx context.Context, msg ClientMessage) error {
	switch msg.Type {
	case MsgStart:
		return s.start(ctx, msg.Loadout)
	case MsgUse:
		return s.act(ctx, func(ctx context.Context, b *battle.Battle) (resolve.Stats, error) {
			return b.UseCard(ctx, msg.Card, msg.Target)
		})
	case MsgEndTurn:
		return s.act(ctx, func(ctx context.Context, b *battle.Battle) (resolve.Stats, error) {
			return b.EndTurn(ctx)
		})
	case MsgDecide:
		b, err := s.current()
		if err != nil {
			return err
		}
		return b.Decide(resolve.ID(msg.Node), msg.Choice)
	case MsgFinished:
		b, err := s.current()
		if err != nil {
			return err
		}
		b.Seq.Finish(msg.Instruction)
		return nil
	case MsgResync:
		b, err := s.current()
		if err != nil {
			return err
		}
		b.Resync()
		return nil
	case MsgState:
		return s.out.Send(s.Snapshot())
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
}

// Snapshot describes the session without touching a running pass: the state
// view is fresh when idle and the last reported one otherwise.
func (s *Session) Snapshot() ServerMessage {
	s.mu.Lock()
	b, busy, view := s.b, s.busy, s.last
	s.mu.Unlock()

	msg := ServerMessage{Type: MsgState}
	if b == nil {
		return msg
	}
	if !busy {
		view = BuildStateView(b)
	}
	msg.Battle = b.ID
	msg.State = view
	msg.Mirror = b.View()
	msg.Prompts = b.Pending()
	return msg
}

// Wait blocks until the background pass, if any, has returned.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close waits for the running pass and releases the battle. Cancel the
// context the pass was started with first, or a suspended pass keeps Close
// waiting for a decision.
func (s *Session) Close() {
	s.wg.Wait()
	s.mu.Lock()
	b := s.b
	s.b = nil
	s.mu.Unlock()
	s.release(b)
}

func (s *Session) release(b *battle.Battle) {
	if b == nil {
		return
	}
	b.Close()
	if s.cfg.Tracker != nil {
		s.cfg.Tracker.BattleClosed()
	}
}

func (s *Session) current() (*battle.Battle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.b == nil {
		return nil, battle.ErrNotStarted
	}
	return s.b, nil
}

func (s *Session) loadout(name string) (*battle.Loadout, error) {
	if len(s.cfg.Loadouts) == 0 {
		if name != "" && name != battle.Starter.Name {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLoadout, name)
		}
		return nil, nil
	}
	if name == "" {
		return &s.cfg.Loadouts[0], nil
	}
	for i := range s.cfg.Loadouts {
		if s.cfg.Loadouts[i].Name == name {
			return &s.cfg.Loadouts[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownLoadout, name)
}

// start opens a new battle. A finished battle is replaced; one still in
// progress is not.
func (s *Session) start(ctx context.Context, name string) error {
	loadout, err := s.loadout(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.busy || (s.b != nil && !s.b.State.Over) {
		s.mu.Unlock()
		return ErrSessionActive
	}
	old := s.b
	s.b = nil
	s.mu.Unlock()
	s.release(old)

	cfg := s.cfg.Battle
	cfg.Loadout = loadout
	cfg.Logger = s.logger
	cfg.Log = log.NewFuncLogger(func(e log.BattleEvent) {
		s.send(ServerMessage{Type: MsgLog, Log: &e})
	})
	cfg.Emitter = sequence.EmitterFunc(func(e sequence.Event) {
		s.send(ServerMessage{Type: MsgEvent, Event: &e})
	})
	cfg.Prompter = battle.PrompterFunc(func(b *battle.Battle, p battle.Prompt) {
		battle.ModalPrompter{}.Prompt(b, p)
		s.send(ServerMessage{Type: MsgPrompt, Battle: b.ID, Prompt: &p, Mirror: b.View()})
	})

	b, err := battle.New(cfg)
	if err != nil {
		return err
	}
	if s.cfg.Tracker != nil {
		s.cfg.Tracker.BattleOpened()
	}
	s.logger.Info().Str("battle", b.ID).Str("loadout", loadoutName(loadout)).Msg("battle opened")

	s.mu.Lock()
	s.b = b
	s.mu.Unlock()
	return s.act(ctx, func(ctx context.Context, b *battle.Battle) (resolve.Stats, error) {
		return b.Start(ctx)
	})
}

// act runs one action in the background. Only one runs at a time.
func (s *Session) act(ctx context.Context, run func(context.Context, *battle.Battle) (resolve.Stats, error)) error {
	s.mu.Lock()
	b := s.b
	if b == nil {
		s.mu.Unlock()
		return battle.ErrNotStarted
	}
	if s.busy {
		s.mu.Unlock()
		return fmt.Errorf("action in progress: %w", resolve.ErrBusy)
	}
	s.busy = true
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		stats, err := run(ctx, b)
		view := BuildStateView(b)

		s.mu.Lock()
		s.busy = false
		s.last = view
		s.mu.Unlock()

		msg := ServerMessage{
			Type:    MsgResult,
			Battle:  b.ID,
			State:   view,
			Prompts: b.Pending(),
			Stats:   statsView(stats),
		}
		if err != nil {
			msg.Error = err.Error()
			s.logger.Debug().Err(err).Str("battle", b.ID).Msg("action refused or interrupted")
		}
		s.send(msg)
		if view.Over {
			s.send(ServerMessage{Type: MsgOver, Battle: b.ID, Outcome: view.Outcome})
		}
	}()
	return nil
}

func (s *Session) send(msg ServerMessage) {
	if err := s.out.Send(msg); err != nil {
		s.logger.Debug().Err(err).Str("type", msg.Type).Msg("send failed")
	}
}

func loadoutName(l *battle.Loadout) string {
	if l == nil {
		return battle.Starter.Name
	}
	return l.Name
}
