// Package mock provides a scripted recognition source for tests and local
// runs without cloud credentials. It emits progressive interim results and
// one final result per utterance, and can simulate the provider ending the
// stream on its own and redelivering its last final result after a
// restart.
package mock

import (
	"context"
	"errors"
	"sync"
	"time"

	"voice-order-service/internal/service/stt"
	"voice-order-service/internal/service/transcript"
)

var ErrAlreadyStarted = errors.New("mock source already started")

// Utterance is one scripted spoken phrase.
type Utterance struct {
	Partials []string
	Final    string
}

// DefaultUtterances is a short Bengali dimension order with the stutter a
// recogniser typically produces.
var DefaultUtterances = []Utterance{
	{
		Partials: []string{"অর্ডার", "অর্ডার এস ওয়ান"},
		Final:    "S1 8x10 10 কেজি",
	},
	{
		Partials: []string{"১৬", "16x20"},
		Final:    "16x20 5 কেজি 5 কেজি",
	},
	{
		Partials: []string{"এস টু"},
		Final:    "S2 10x12 3 কেজি",
	},
}

// Option configures a Source.
type Option func(*Source)

func WithUtterances(u []Utterance) Option {
	return func(s *Source) { s.utterances = u }
}

// WithEndAfter makes each run end on its own after n utterances, the way a
// provider stream hits its time limit. Zero means never.
func WithEndAfter(n int) Option {
	return func(s *Source) { s.endAfter = n }
}

// WithRedelivery replays the last final result, with its original
// sequence index, at the start of every restart.
func WithRedelivery(on bool) Option {
	return func(s *Source) { s.redeliver = on }
}

// WithDelay sets the pause before each emitted result.
func WithDelay(d time.Duration) Option {
	return func(s *Source) { s.delay = d }
}

// Source implements stt.Source with scripted results.
type Source struct {
	utterances []Utterance
	endAfter   int
	redeliver  bool
	delay      time.Duration

	mu        sync.Mutex
	next      int
	seq       int
	lastFinal *transcript.Fragment
	running   bool
	starts    int
	cancel    context.CancelFunc
	done      chan struct{}
}

func New(opts ...Option) *Source {
	s := &Source{utterances: DefaultUtterances}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start begins emitting results to cb from a goroutine.
func (s *Source) Start(ctx context.Context, cb stt.Callback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyStarted
	}
	s.running = true
	s.starts++

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	var replay *transcript.Fragment
	if s.redeliver && s.starts > 1 && s.lastFinal != nil {
		f := *s.lastFinal
		replay = &f
	}

	go s.run(runCtx, cb, replay, s.done)
	return nil
}

// Stop ends the current run. It is safe to call when not running.
func (s *Source) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.running = false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}

// Starts returns how many times Start succeeded.
func (s *Source) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

// Exhausted reports whether every utterance has been emitted.
func (s *Source) Exhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next >= len(s.utterances)
}

func (s *Source) run(ctx context.Context, cb stt.Callback, replay *transcript.Fragment, done chan struct{}) {
	defer close(done)

	if replay != nil {
		if !s.emit(ctx, cb, *replay) {
			return
		}
	}

	emitted := 0
	for {
		s.mu.Lock()
		if s.next >= len(s.utterances) {
			s.mu.Unlock()
			// Nothing left to say; stay open like a live microphone.
			<-ctx.Done()
			return
		}
		u := s.utterances[s.next]
		s.next++
		s.mu.Unlock()

		for _, p := range u.Partials {
			if !s.emit(ctx, cb, s.fragment(p, false)) {
				return
			}
		}
		final := s.fragment(u.Final, true)
		if !s.emit(ctx, cb, final) {
			return
		}
		s.mu.Lock()
		s.lastFinal = &final
		s.mu.Unlock()

		emitted++
		if s.endAfter > 0 && emitted >= s.endAfter {
			s.mu.Lock()
			s.running = false
			cancel := s.cancel
			s.cancel = nil
			s.mu.Unlock()
			cancel()
			cb.OnEnd()
			return
		}
	}
}

func (s *Source) fragment(text string, final bool) transcript.Fragment {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := transcript.Fragment{Text: text, IsFinal: final, SequenceIndex: s.seq}
	s.seq++
	return f
}

func (s *Source) emit(ctx context.Context, cb stt.Callback, f transcript.Fragment) bool {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return false
		}
	}
	if ctx.Err() != nil {
		return false
	}
	cb.OnFragment(f)
	return true
}
