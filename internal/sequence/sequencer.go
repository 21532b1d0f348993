// Package sequence schedules presentation instructions on real time. Ordering
// between instructions is expressed only through tag sets: an instruction waits
// while any earlier unfinished, or any running, instruction carries a tag it
// waits on.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TagAll is carried by every instruction and is the default wait set.
const TagAll = "all"

const idTagPrefix = "id:"

// Unbounded disables the timeout; the instruction only ends via Finish.
const Unbounded time.Duration = -1

var (
	// ErrInvalidSpec is returned by Enqueue for malformed instructions.
	ErrInvalidSpec = errors.New("invalid animation instruction")
	// ErrStopped is returned by Enqueue once the sequencer has been stopped.
	ErrStopped = errors.New("sequencer stopped")
)

// Immediate is a wait set that waits for nothing.
var Immediate = []string{}

// After returns the tag that names one specific instruction, for chaining a
// follow-up onto it.
func After(id string) string {
	return idTagPrefix + id
}

// Status is the one-way lifecycle of an instruction.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusFinished
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	default:
		return "finished"
	}
}

// Spec describes one instruction to enqueue.
type Spec struct {
	Name     string
	Tags     []string
	WaitTags []string // nil waits on TagAll; Immediate waits on nothing
	Duration time.Duration
	Start    func(Handle)
	OnFinish func(id string)
}

// Handle is passed to Start.
type Handle struct {
	ID  string
	seq *Sequencer
}

// Emit sends a presentation event tagged with this instruction's id.
func (h Handle) Emit(event string, payload any) {
	h.seq.emitter.Emit(Event{Instruction: h.ID, Name: event, Payload: payload})
}

// Finish ends this instruction early.
func (h Handle) Finish() {
	h.seq.Finish(h.ID)
}

type instruction struct {
	id       string
	name     string
	tags     map[string]struct{}
	wait     map[string]struct{}
	duration time.Duration
	start    func(Handle)
	onFinish func(string)

	status   Status
	timer    Timer
	queuedAt time.Time
	startAt  time.Time
}

// Observer receives schedule signals. Metrics implement it.
type Observer interface {
	Enqueued(name string)
	Started(name string, waited time.Duration)
	Finished(name string, ran time.Duration, timedOut bool)
}

type nopObserver struct{}

func (nopObserver) Enqueued(string)                      {}
func (nopObserver) Started(string, time.Duration)        {}
func (nopObserver) Finished(string, time.Duration, bool) {}

// Sequencer owns the ordered list of live presentation instructions.
type Sequencer struct {
	mu       sync.Mutex
	queue    []*instruction
	byID     map[string]*instruction
	ready    []*instruction
	draining bool
	deferred Timer
	stopped  bool
	idle     chan struct{}

	clock    Clock
	emitter  Emitter
	log      zerolog.Logger
	observer Observer
}

// Option configures a Sequencer.
type Option func(*Sequencer)

func WithClock(c Clock) Option {
	return func(s *Sequencer) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithEmitter(e Emitter) Option {
	return func(s *Sequencer) {
		if e != nil {
			s.emitter = e
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Sequencer) { s.log = l }
}

func WithObserver(o Observer) Option {
	return func(s *Sequencer) {
		if o != nil {
			s.observer = o
		}
	}
}

// New creates an empty sequencer on the wall clock that discards emitted events.
func New(opts ...Option) *Sequencer {
	s := &Sequencer{
		byID:     make(map[string]*instruction),
		clock:    WallClock,
		emitter:  Discard,
		log:      zerolog.Nop(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enqueue appends an instruction and returns its id. Instructions with an empty
// wait set start before Enqueue returns; every other admission runs once the
// current burst of enqueues has been handed to the clock.
func (s *Sequencer) Enqueue(spec Spec) (string, error) {
	in, err := s.build(spec)
	if err != nil {
		s.log.Error().Err(err).Str("name", spec.Name).Msg("rejected animation instruction")
		return "", err
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return "", ErrStopped
	}
	in.queuedAt = s.clock.Now()
	s.queue = append(s.queue, in)
	s.byID[in.id] = in
	immediate := len(in.wait) == 0
	if immediate {
		s.markRunning(in)
	} else if s.deferred == nil {
		s.deferred = s.clock.AfterFunc(0, func() {
			s.mu.Lock()
			s.deferred = nil
			s.mu.Unlock()
			s.Advance()
		})
	}
	s.mu.Unlock()

	s.observer.Enqueued(in.name)
	if immediate {
		s.drain()
	}
	return in.id, nil
}

func (s *Sequencer) build(spec Spec) (*instruction, error) {
	if spec.Duration < 0 && spec.Duration != Unbounded {
		return nil, fmt.Errorf("%w: negative duration %s", ErrInvalidSpec, spec.Duration)
	}
	id := uuid.NewString()
	in := &instruction{
		id:       id,
		name:     spec.Name,
		tags:     map[string]struct{}{TagAll: {}, After(id): {}},
		wait:     make(map[string]struct{}),
		duration: spec.Duration,
		start:    spec.Start,
		onFinish: spec.OnFinish,
	}
	if in.name == "" {
		in.name = "anim"
	}
	for _, t := range spec.Tags {
		if t == "" {
			return nil, fmt.Errorf("%w: empty tag", ErrInvalidSpec)
		}
		if strings.HasPrefix(t, idTagPrefix) {
			return nil, fmt.Errorf("%w: tag %q uses the reserved id prefix", ErrInvalidSpec, t)
		}
		in.tags[t] = struct{}{}
	}
	if spec.WaitTags == nil {
		in.wait[TagAll] = struct{}{}
	}
	for _, t := range spec.WaitTags {
		if t == "" {
			return nil, fmt.Errorf("%w: empty wait tag", ErrInvalidSpec)
		}
		in.wait[t] = struct{}{}
	}
	return in, nil
}

// Advance admits every pending instruction the wait rule allows and starts
// them. It runs automatically after enqueues and finishes; calling it directly
// flushes a burst without waiting for the clock.
func (s *Sequencer) Advance() {
	s.mu.Lock()
	s.admit()
	s.mu.Unlock()
	s.drain()
}

// admit scans left to right. Must be called with mu held.
func (s *Sequencer) admit() {
	running := make(map[string]struct{})
	for _, in := range s.queue {
		if in.status == StatusRunning {
			for t := range in.tags {
				running[t] = struct{}{}
			}
		}
	}
	earlier := make(map[string]struct{})
	for _, in := range s.queue {
		if in.status == StatusPending && !intersects(in.wait, earlier) && !intersects(in.wait, running) {
			s.markRunning(in)
			for t := range in.tags {
				running[t] = struct{}{}
			}
		}
		for t := range in.tags {
			earlier[t] = struct{}{}
		}
	}
}

// markRunning must be called with mu held.
func (s *Sequencer) markRunning(in *instruction) {
	in.status = StatusRunning
	in.startAt = s.clock.Now()
	s.ready = append(s.ready, in)
}

// drain calls start callbacks one at a time, in admission order, then arms
// timeouts. A drain already in progress further up the call stack (or on
// another goroutine) picks up anything admitted meanwhile.
func (s *Sequencer) drain() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	for len(s.ready) > 0 {
		in := s.ready[0]
		s.ready = s.ready[1:]
		if in.status != StatusRunning {
			continue
		}
		s.mu.Unlock()

		s.observer.Started(in.name, in.startAt.Sub(in.queuedAt))
		s.log.Debug().Str("id", in.id).Str("name", in.name).Msg("animation started")
		s.call(in)

		s.mu.Lock()
		if in.status == StatusRunning && in.duration != Unbounded {
			id := in.id
			in.timer = s.clock.AfterFunc(in.duration, func() { s.expire(id) })
		}
	}
	s.draining = false
	s.mu.Unlock()
}

func (s *Sequencer) call(in *instruction) {
	if in.start == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Str("id", in.id).Str("name", in.name).Interface("panic", r).Msg("animation start panicked")
		}
	}()
	in.start(Handle{ID: in.id, seq: s})
}

// Finish marks the instruction finished, removes it and advances the schedule.
// Repeated calls and unknown ids are ignored.
func (s *Sequencer) Finish(id string) {
	s.finish(id, false)
}

func (s *Sequencer) expire(id string) {
	s.finish(id, true)
}

func (s *Sequencer) finish(id string, timedOut bool) {
	s.mu.Lock()
	in, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.byID, id)
	for i, q := range s.queue {
		if q == in {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			break
		}
	}
	wasRunning := in.status == StatusRunning
	in.status = StatusFinished
	if in.timer != nil {
		in.timer.Stop()
	}
	ran := time.Duration(0)
	if wasRunning {
		ran = s.clock.Now().Sub(in.startAt)
	}
	if len(s.queue) == 0 && s.idle != nil {
		close(s.idle)
		s.idle = nil
	}
	s.mu.Unlock()

	if timedOut {
		s.log.Debug().Str("id", id).Str("name", in.name).Dur("after", in.duration).Msg("animation timed out")
	}
	s.observer.Finished(in.name, ran, timedOut)
	if in.onFinish != nil {
		in.onFinish(id)
	}
	s.Advance()
}

// Stop drops every unfinished instruction without calling OnFinish, disarms
// their timeouts and refuses further enqueues. WaitIdle callers are released.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	if s.deferred != nil {
		s.deferred.Stop()
		s.deferred = nil
	}
	for _, in := range s.queue {
		in.status = StatusFinished
		if in.timer != nil {
			in.timer.Stop()
		}
	}
	dropped := len(s.queue)
	s.queue = nil
	s.ready = nil
	s.byID = make(map[string]*instruction)
	if s.idle != nil {
		close(s.idle)
		s.idle = nil
	}
	s.log.Debug().Int("dropped", dropped).Msg("sequencer stopped")
}

// Status reports an instruction's lifecycle. Finished instructions are removed
// at once, so unknown ids report StatusFinished.
func (s *Sequencer) Status(id string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if in, ok := s.byID[id]; ok {
		return in.status
	}
	return StatusFinished
}

// Len returns the number of unfinished instructions.
func (s *Sequencer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Running lists the ids of running instructions in enqueue order.
func (s *Sequencer) Running() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, in := range s.queue {
		if in.status == StatusRunning {
			ids = append(ids, in.id)
		}
	}
	return ids
}

// WaitIdle blocks until no instruction is left or ctx is done. An unbounded
// instruction whose signal never arrives keeps it blocked.
func (s *Sequencer) WaitIdle(ctx context.Context) error {
	s.mu.Lock()
	if len(s.queue) == 0 {
		s.mu.Unlock()
		return nil
	}
	if s.idle == nil {
		s.idle = make(chan struct{})
	}
	ch := s.idle
	s.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func intersects(a, b map[string]struct{}) bool {
	if len(b) < len(a) {
		a, b = b, a
	}
	for t := range a {
		if _, ok := b[t]; ok {
			return true
		}
	}
	return false
}
