package gtkshell

import (
	"sync/atomic"
	"time"

	coreglib "github.com/diamondburned/gotk4/pkg/core/glib"
)

// Loop schedules work on the GTK main loop. It implements daemon.Loop.
type Loop struct {
	stopped atomic.Bool
}

// NewLoop returns a loop bound to the default GLib main context.
func NewLoop() *Loop {
	return &Loop{}
}

// Stop makes the loop reject further work. Already queued work still runs.
func (l *Loop) Stop() {
	l.stopped.Store(true)
}

// Post implements daemon.Loop.
func (l *Loop) Post(fn func()) bool {
	if l.stopped.Load() {
		return false
	}
	coreglib.IdleAdd(func() {
		if !l.stopped.Load() {
			fn()
		}
	})
	return true
}

// Every implements daemon.Loop.
func (l *Loop) Every(d time.Duration, fn func()) (stop func()) {
	ms := uint(max(d.Milliseconds(), 1))

	var cancelled atomic.Bool
	// The source removes itself on the first tick after cancellation.
	coreglib.TimeoutAdd(ms, func() bool {
		if cancelled.Load() || l.stopped.Load() {
			return false
		}
		fn()
		return true
	})

	return func() { cancelled.Store(true) }
}
