package daemon

import (
	"context"
	"errors"
	"image"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/suchana/internal/config"
	"github.com/jmylchreest/suchana/internal/display"
	"github.com/jmylchreest/suchana/internal/model"
	"github.com/jmylchreest/suchana/internal/shm"
)

func startLoop(t *testing.T) *ChanLoop {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	loop := NewChanLoop(nil)
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return loop
}

func TestChanLoop_CallRunsOnLoop(t *testing.T) {
	loop := startLoop(t)

	var order []int
	for i := range 10 {
		require.NoError(t, Call(context.Background(), loop, func() { order = append(order, i) }))
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestChanLoop_PostAfterStop(t *testing.T) {
	loop := startLoop(t)
	loop.Stop()

	assert.False(t, loop.Post(func() {}))
	assert.True(t, errors.Is(Call(context.Background(), loop, func() {}), ErrLoopStopped))
}

func TestCall_ContextCancelled(t *testing.T) {
	loop := NewChanLoop(nil) // never run

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := Call(ctx, loop, func() {})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func runLoop(t *testing.T, loop *ChanLoop) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestCall_AbandonedWorkNeverRuns(t *testing.T) {
	loop := NewChanLoop(nil) // not running yet, work queues up

	var ran atomic.Bool
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := Call(ctx, loop, func() { ran.Store(true) })
	require.ErrorIs(t, err, context.DeadlineExceeded)

	runLoop(t, loop)
	require.NoError(t, Call(context.Background(), loop, func() {}))
	assert.False(t, ran.Load(), "work abandoned by its caller must not run later")
}

func TestCall_WaitsForStartedWork(t *testing.T) {
	loop := startLoop(t)

	started := make(chan struct{})
	release := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())

	result := make(chan error, 1)
	go func() {
		result <- Call(ctx, loop, func() {
			close(started)
			<-release
		})
	}()

	<-started
	cancel()
	select {
	case err := <-result:
		t.Fatalf("Call returned %v while work was still running", err)
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	assert.NoError(t, <-result)
}

func TestChanLoop_Every(t *testing.T) {
	loop := startLoop(t)

	var count atomic.Int32
	stop := loop.Every(5*time.Millisecond, func() { count.Add(1) })

	assert.Eventually(t, func() bool { return count.Load() >= 3 }, time.Second, 5*time.Millisecond)
	stop()
	stop() // idempotent

	// Drain anything already posted, then make sure ticks stopped.
	require.NoError(t, Call(context.Background(), loop, func() {}))
	after := count.Load()
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, Call(context.Background(), loop, func() {}))
	assert.LessOrEqual(t, count.Load(), after+1)
}

func TestService_ExpiryDrivenByLoop(t *testing.T) {
	loop := startLoop(t)
	before := shm.LiveSegments()

	cfg := config.DefaultDaemonConfig()
	signals := &fakeSignaller{}
	stage := display.NewStage(display.NewHeadless(nil), shm.HeapAllocator{},
		display.PainterFunc(func(*image.RGBA, *model.Notification) {}), cfg.Display.Width, cfg.Display.Height, nil)
	reg := NewRegistry(cfg, stage, signals, nil)
	svc := NewService(loop, reg)

	stop := loop.Every(10*time.Millisecond, func() { reg.Tick(time.Now()) })
	defer stop()

	ctx := context.Background()
	start := time.Now()
	id, err := svc.Notify(ctx, &model.Notification{Summary: "short", ExpireTimeout: 100}, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), id)

	closed := func() []closedSignal {
		var got []closedSignal
		assert.NoError(t, Call(ctx, loop, func() { got = append(got, signals.closed...) }))
		return got
	}
	assert.Eventually(t, func() bool { return len(closed()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond, "must not expire early")
	assert.Equal(t, []closedSignal{{1, model.CloseReasonExpired}}, closed())

	require.NoError(t, svc.CloseNotification(ctx, 1), "closing an unknown id is not an error")

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap)
	assert.Equal(t, before, shm.LiveSegments())
}

func TestService_InvalidArgumentPassesThrough(t *testing.T) {
	loop := startLoop(t)

	cfg := config.DefaultDaemonConfig()
	cfg.Limits.MaxAppName = 3
	stage := display.NewStage(display.NewHeadless(nil), shm.HeapAllocator{},
		display.PainterFunc(func(*image.RGBA, *model.Notification) {}), 100, 50, nil)
	svc := NewService(loop, NewRegistry(cfg, stage, nil, nil))

	_, err := svc.Notify(context.Background(), &model.Notification{AppName: "toolong"}, 0)
	assert.True(t, errors.Is(err, model.ErrInvalidArgument))
}

func TestService_TimedOutNotifyLeavesNoEntry(t *testing.T) {
	loop := NewChanLoop(nil) // not running yet

	wm := display.NewHeadless(nil)
	stage := display.NewStage(wm, shm.HeapAllocator{},
		display.PainterFunc(func(*image.RGBA, *model.Notification) {}), 100, 50, nil)
	svc := NewService(loop, NewRegistry(config.DefaultDaemonConfig(), stage, nil, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	id, err := svc.Notify(ctx, &model.Notification{Summary: "late"}, 0)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, id)

	runLoop(t, loop)
	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap, "a notification whose caller got an error must not appear")
	assert.Empty(t, wm.Live())
}

func TestSupervise(t *testing.T) {
	transport := make(chan struct{})
	close(transport)
	assert.ErrorIs(t, Supervise(context.Background(), transport), ErrTransportLost)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, Supervise(ctx, make(chan struct{})))
}
