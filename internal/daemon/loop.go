package daemon

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrLoopStopped is returned when work is posted to a loop that has stopped.
var ErrLoopStopped = errors.New("event loop stopped")

// Loop is a single-threaded event loop. Everything that touches the
// registry or display state runs on it.
type Loop interface {
	// Post schedules fn to run on the loop. It returns false if the loop
	// no longer accepts work.
	Post(fn func()) bool
	// Every runs fn on the loop every d until stop is called.
	Every(d time.Duration, fn func()) (stop func())
}

// Call states.
const (
	callPending int32 = iota
	callStarted
	callAbandoned
)

// Call runs fn on the loop and waits for it to finish. Either fn runs to
// completion and Call returns nil, or fn never runs and Call returns an
// error. A caller whose ctx ends first abandons fn unless it has already
// started, in which case Call still waits for it.
func Call(ctx context.Context, loop Loop, fn func()) error {
	var state atomic.Int32
	done := make(chan struct{})
	if !loop.Post(func() {
		if !state.CompareAndSwap(callPending, callStarted) {
			return
		}
		defer close(done)
		fn()
	}) {
		return ErrLoopStopped
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		if state.CompareAndSwap(callPending, callAbandoned) {
			return ctx.Err()
		}
		<-done
		return nil
	}
}

// ChanLoop is a Loop driven by a goroutine draining a channel. It is used
// when no GTK main loop is running.
type ChanLoop struct {
	logger *slog.Logger
	tasks  chan func()
	quit   chan struct{}
	once   sync.Once
}

// NewChanLoop creates a channel-driven loop. Call Run to start it.
func NewChanLoop(logger *slog.Logger) *ChanLoop {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChanLoop{
		logger: logger,
		tasks:  make(chan func(), 64),
		quit:   make(chan struct{}),
	}
}

// Run processes posted work until ctx is cancelled or Stop is called.
func (l *ChanLoop) Run(ctx context.Context) {
	l.logger.Debug("event loop started")
	defer l.logger.Debug("event loop stopped")

	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return
		case <-l.quit:
			return
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Stop makes the loop return from Run and reject further work.
func (l *ChanLoop) Stop() {
	l.once.Do(func() { close(l.quit) })
}

// Post implements Loop.
func (l *ChanLoop) Post(fn func()) bool {
	select {
	case <-l.quit:
		return false
	default:
	}

	select {
	case l.tasks <- fn:
		return true
	case <-l.quit:
		return false
	}
}

// Every implements Loop.
func (l *ChanLoop) Every(d time.Duration, fn func()) (stop func()) {
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-l.quit:
				return
			case <-ticker.C:
				if !l.Post(fn) {
					return
				}
			}
		}
	}()

	return func() { once.Do(func() { close(done) }) }
}
