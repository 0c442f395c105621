package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-quiz/internal/assembly"
	"github.com/mind-engage/mindengage-quiz/internal/exam"
	"github.com/mind-engage/mindengage-quiz/internal/scoring"
	"github.com/mind-engage/mindengage-quiz/internal/selection"
	"github.com/mind-engage/mindengage-quiz/internal/stats"
)

type Assembler interface {
	Assemble(ctx context.Context, sel selection.Selection) (assembly.Result, error)
}

type Recorder interface {
	Record(ctx context.Context, s exam.Session, rep scoring.Report) stats.AggregateStats
	Stats() stats.AggregateStats
}

var ErrStaleAssembly = errors.New("selection changed while questions were loading")

// Engine owns one State. Every handler runs under mu, so transitions never
// overlap; the bank fetch in Start is the only work done without it.
type Engine struct {
	Assembler Assembler
	Recorder  Recorder
	Ticker    TickerFactory
	Now       func() time.Time
	NewID     func() string
	Logf      func(format string, args ...any)

	mu         sync.Mutex
	state      State
	gen        uint64
	assembling bool
	ticker     Ticker
	observers  []func(State)
	pending    sync.WaitGroup
}

func NewEngine(initial State, a Assembler, r Recorder, t TickerFactory) *Engine {
	return &Engine{
		Assembler: a,
		Recorder:  r,
		Ticker:    t,
		Now:       time.Now,
		NewID:     uuid.NewString,
		Logf:      log.Printf,
		state:     initial,
	}
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Loading reports whether a Start is waiting on the banks.
func (e *Engine) Loading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.assembling
}

// Observe registers fn to receive every new state. fn runs under the engine
// lock and must not call back into the engine.
func (e *Engine) Observe(fn func(State)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, fn)
}

// Dispatch applies a non-IO event. An in-progress quiz past its deadline is
// submitted first and the event is rejected with ErrTimeUp.
func (e *Engine) Dispatch(ev Event) (State, error) {
	e.mu.Lock()
	if e.expireLocked(e.Now()) {
		st := e.state
		e.mu.Unlock()
		return st, ErrTimeUp
	}
	switch v := ev.(type) {
	case Submit:
		v.At = e.Now()
		ev = v
	case Expire:
		v.At = e.Now()
		ev = v
	}
	st, err := e.applyLocked(ev)
	e.mu.Unlock()
	return st, err
}

// Start assembles the current selection and enters the quiz. The lock is
// released while banks load; a result that arrives after the selection or
// screen changed is dropped with ErrStaleAssembly.
func (e *Engine) Start(ctx context.Context) (State, error) {
	e.mu.Lock()
	if e.state.Screen != ScreenSubjectSelect {
		st := e.state
		e.mu.Unlock()
		return st, wrongScreen(st, Assembled{})
	}
	if e.assembling {
		st := e.state
		e.mu.Unlock()
		return st, ErrAssemblyInProgress
	}
	sel := e.state.Selector.Selection()
	if err := selection.Validate(sel, e.state.Catalog); err != nil {
		st := e.state
		e.mu.Unlock()
		return st, err
	}
	e.assembling = true
	gen := e.gen
	e.mu.Unlock()

	res, err := e.Assembler.Assemble(ctx, sel)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.assembling = false
	if gen != e.gen {
		return e.state, ErrStaleAssembly
	}
	if err != nil {
		e.applyLocked(AssemblyFailed{Err: err})
		return e.state, err
	}
	sess, err := exam.NewSession(e.NewID(), sel, res.Questions, res.TimeBudgetSec, e.Now())
	if err != nil {
		e.applyLocked(AssemblyFailed{Err: err})
		return e.state, err
	}
	st, err := e.applyLocked(Assembled{Session: sess, Warning: res.Warning()})
	if err != nil {
		return st, err
	}
	e.logf("session %s started: %s, %d questions, %ds", sess.ID, sel.Profile(), len(sess.Questions), sess.TimeBudgetSeconds)
	e.startTickerLocked()
	return st, nil
}

// Tick is the countdown callback. It submits the quiz once the budget is
// spent and reports whether it did.
func (e *Engine) Tick(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.expireLocked(now)
}

// Remaining is the countdown for the current quiz, 0 outside one.
func (e *Engine) Remaining(now time.Time) time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Screen != ScreenInQuiz || e.state.Session == nil {
		return 0
	}
	return e.state.Session.Remaining(now)
}

// Stats returns the aggregate record as of the last recorded session.
func (e *Engine) Stats() stats.AggregateStats {
	return e.Recorder.Stats()
}

// Close stops the countdown and waits for pending stats writes.
func (e *Engine) Close() {
	e.mu.Lock()
	t := e.ticker
	e.ticker = nil
	e.mu.Unlock()
	if t != nil {
		t.Stop()
	}
	e.pending.Wait()
}

func (e *Engine) expireLocked(now time.Time) bool {
	s := e.state
	if s.Screen != ScreenInQuiz || s.Session == nil || s.Session.Status != exam.StatusInProgress {
		return false
	}
	if s.Session.Remaining(now) > 0 {
		return false
	}
	if _, err := e.applyLocked(Expire{At: now}); err != nil {
		return false
	}
	e.logf("session %s: time up", s.Session.ID)
	return true
}

// applyLocked reduces, then runs the side effects of the transition.
func (e *Engine) applyLocked(ev Event) (State, error) {
	prev := e.state
	next, err := Reduce(prev, ev)
	if err != nil {
		return prev, err
	}
	e.state = next
	e.gen++

	if prev.Screen == ScreenInQuiz && next.Screen != ScreenInQuiz {
		e.stopTickerLocked()
		if next.Screen == ScreenResults && next.Session != nil && next.Report != nil {
			e.record(*next.Session, *next.Report)
		}
	}
	for _, fn := range e.observers {
		fn(next)
	}
	return next, nil
}

func (e *Engine) record(s exam.Session, rep scoring.Report) {
	if e.Recorder == nil {
		return
	}
	e.pending.Add(1)
	go func() {
		defer e.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		e.Recorder.Record(ctx, s, rep)
	}()
}

func (e *Engine) startTickerLocked() {
	e.stopTickerLocked()
	if e.Ticker == nil {
		return
	}
	t, err := e.Ticker(func() { e.Tick(e.Now()) })
	if err != nil {
		e.logf("countdown: %v", err)
		return
	}
	e.ticker = t
}

// stopTickerLocked detaches the ticker and stops it off the lock; the tick
// callback itself needs the lock.
func (e *Engine) stopTickerLocked() {
	t := e.ticker
	e.ticker = nil
	if t != nil {
		go t.Stop()
	}
}

func (e *Engine) logf(format string, args ...any) {
	if e.Logf != nil {
		e.Logf(format, args...)
	}
}
