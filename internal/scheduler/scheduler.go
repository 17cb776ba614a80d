// Package scheduler debounces translation requests and guarantees that only
// the most recently dispatched request can publish a result.
//
// Every dispatch takes a fresh id from a monotonically increasing
// generation counter. Results are compared against the counter when they
// arrive; anything older is dropped. Superseded calls are not aborted, their
// results are simply ignored.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultDebounce is the quiet period before a request is dispatched.
const DefaultDebounce = 500 * time.Millisecond

// State is the scheduler's coarse lifecycle state.
type State int

const (
	Idle State = iota
	Pending
	InFlight
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case InFlight:
		return "in-flight"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Request is one dispatched translation.
type Request struct {
	ID         uint64
	Text       string
	TargetLang string
	Tone       string
}

// TranslateFunc performs the external call. It may block; ctx is cancelled
// only when the scheduler closes or the request times out.
type TranslateFunc func(ctx context.Context, req Request) (string, error)

// Sink receives the outcomes the UI must reflect. Methods are called with
// the scheduler lock held so that no stale outcome can interleave with a
// newer one; implementations must not call back into the Scheduler.
type Sink interface {
	// OnStart fires when req is dispatched.
	OnStart(req Request)
	// OnResult fires for the current request only.
	OnResult(req Request, text string)
	// OnError fires for the current request only.
	OnError(req Request, err error)
	// OnReset fires when input became empty and the display must clear.
	OnReset()
}

// AfterFunc arms a one-shot timer and returns its stop function.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func realAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Options configures a Scheduler.
type Options struct {
	Translate TranslateFunc
	Sink      Sink
	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration
	// Timeout bounds a single translate call; zero means no limit.
	Timeout time.Duration
	// AfterFunc defaults to time.AfterFunc.
	AfterFunc AfterFunc
}

// Scheduler is safe for concurrent use.
type Scheduler struct {
	translate TranslateFunc
	sink      Sink
	debounce  time.Duration
	timeout   time.Duration
	afterFunc AfterFunc

	baseCtx    context.Context
	cancelBase context.CancelFunc
	wg         sync.WaitGroup

	mu        sync.Mutex
	state     State
	gen       uint64
	armSeq    uint64
	stopTimer func() bool
	pending   Request
	closed    bool
}

// New returns an idle scheduler.
func New(opts Options) *Scheduler {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = realAfterFunc
	}
	if opts.Sink == nil {
		opts.Sink = nopSink{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		translate:  opts.Translate,
		sink:       opts.Sink,
		debounce:   opts.Debounce,
		timeout:    opts.Timeout,
		afterFunc:  opts.AfterFunc,
		baseCtx:    ctx,
		cancelBase: cancel,
	}
}

// Submit records a change to the request key (text, target language or
// tone). Empty or whitespace-only text resets immediately; anything else
// re-arms the debounce timer.
func (s *Scheduler) Submit(text, targetLang, tone string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.stopTimerLocked()
	if strings.TrimSpace(text) == "" {
		s.gen++
		s.state = Idle
		slog.Debug("[DEBUG-SCHED] empty input, reset", "generation", s.gen)
		s.sink.OnReset()
		return
	}

	s.pending = Request{Text: text, TargetLang: targetLang, Tone: tone}
	s.armSeq++
	seq := s.armSeq
	s.stopTimer = s.afterFunc(s.debounce, func() { s.fire(seq) })
	s.state = Pending
}

// Cancel drops the pending timer and invalidates any in-flight request.
// The displayed state is left untouched.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

// Close cancels all work and stops accepting submissions. In-flight calls
// see their context cancelled.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.cancelLocked()
	s.closed = true
	s.mu.Unlock()
	s.cancelBase()
}

// Wait blocks until every dispatched translate goroutine has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// State reports the lifecycle state and the current generation.
func (s *Scheduler) State() (State, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.gen
}

func (s *Scheduler) cancelLocked() {
	s.stopTimerLocked()
	if s.state != Idle {
		s.gen++
		s.state = Idle
	}
}

func (s *Scheduler) stopTimerLocked() {
	if s.stopTimer != nil {
		s.stopTimer()
		s.stopTimer = nil
	}
	s.armSeq++
}

// fire runs when the debounce timer for arm sequence seq expires.
func (s *Scheduler) fire(seq uint64) {
	s.mu.Lock()
	if s.closed || seq != s.armSeq {
		s.mu.Unlock()
		return
	}
	s.stopTimer = nil
	s.gen++
	req := s.pending
	req.ID = s.gen
	s.state = InFlight
	s.sink.OnStart(req)
	s.wg.Add(1)
	s.mu.Unlock()

	slog.Debug("[DEBUG-SCHED] dispatch", "id", req.ID, "textLen", len(req.Text), "target", req.TargetLang)
	go s.run(req)
}

func (s *Scheduler) run(req Request) {
	defer s.wg.Done()
	text, err := s.call(req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if req.ID != s.gen || s.closed {
		slog.Debug("[DEBUG-SCHED] stale result discarded", "id", req.ID, "current", s.gen)
		return
	}
	if s.state == InFlight {
		s.state = Idle
	}
	if err != nil {
		slog.Warn("[WARN-SCHED] translate failed", "id", req.ID, "error", err)
		s.sink.OnError(req, err)
		return
	}
	s.sink.OnResult(req, text)
}

func (s *Scheduler) call(req Request) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("translate panicked: %v", r)
		}
	}()
	if s.translate == nil {
		return "", fmt.Errorf("no translator configured")
	}
	ctx := s.baseCtx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.translate(ctx, req)
}

type nopSink struct{}

func (nopSink) OnStart(Request)          {}
func (nopSink) OnResult(Request, string) {}
func (nopSink) OnError(Request, error)   {}
func (nopSink) OnReset()                 {}
