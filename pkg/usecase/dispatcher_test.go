package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/reelpull/pkg/domain/model"
	"github.com/m-mizutani/reelpull/pkg/usecase"
)

// recorder collects everything a dispatcher run emits
type recorder struct {
	mu         sync.Mutex
	dispatched []model.ItemID
	positions  []int
	progress   []model.ProgressEvent
	failures   []model.ItemFailure
	sleeps     []time.Duration
}

func (r *recorder) action(fail map[int]error) usecase.DispatchFunc {
	return func(ctx context.Context, item model.DownloadItem, position int) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.dispatched = append(r.dispatched, item.ID)
		r.positions = append(r.positions, position)
		return fail[position]
	}
}

func (r *recorder) hooks() usecase.BatchHooks {
	return usecase.BatchHooks{
		OnProgress: func(ev model.ProgressEvent) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.progress = append(r.progress, ev)
		},
		OnFailure: func(f model.ItemFailure) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.failures = append(r.failures, f)
		},
	}
}

func (r *recorder) sleeper(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sleeps = append(r.sleeps, d)
	return ctx.Err()
}

func makeItems(n int) []model.DownloadItem {
	items := make([]model.DownloadItem, n)
	for i := range items {
		items[i] = model.DownloadItem{
			ID:        model.PositionID(i + 1),
			SourceURL: "https://www.tiktok.com/@user/video/" + model.PositionID(i+1).String(),
		}
	}
	return items
}

func TestDispatcher_Run_ThreeItems(t *testing.T) {
	rec := &recorder{}
	d := usecase.NewDispatcher(usecase.WithDelay(0), usecase.WithSleeper(rec.sleeper))

	result, err := d.Run(context.Background(), makeItems(3), rec.action(nil), rec.hooks())
	gt.NoError(t, err)

	gt.Equal(t, rec.dispatched, []model.ItemID{"1", "2", "3"})
	gt.Equal(t, rec.positions, []int{1, 2, 3})
	gt.Equal(t, rec.progress, []model.ProgressEvent{
		{Completed: 1, Total: 3},
		{Completed: 2, Total: 3},
		{Completed: 3, Total: 3},
	})
	gt.Equal(t, len(rec.failures), 0)

	gt.Equal(t, result.Total, 3)
	gt.Equal(t, result.Dispatched, 3)
	gt.Equal(t, result.Succeeded(), 3)
	gt.False(t, result.Canceled)
	gt.V(t, result.RunID).NotEqual("")
}

func TestDispatcher_Run_Empty(t *testing.T) {
	rec := &recorder{}
	d := usecase.NewDispatcher(usecase.WithSleeper(rec.sleeper))

	result, err := d.Run(context.Background(), nil, rec.action(nil), rec.hooks())
	gt.NoError(t, err)

	gt.Equal(t, len(rec.dispatched), 0)
	gt.Equal(t, len(rec.progress), 0)
	gt.Equal(t, len(rec.sleeps), 0)
	gt.Equal(t, result.Total, 0)
	gt.Equal(t, result.Dispatched, 0)
	gt.False(t, result.Canceled)
	gt.False(t, d.Running())
}

func TestDispatcher_Run_ProgressIsMonotonic(t *testing.T) {
	for _, n := range []int{1, 2, 5, 17} {
		rec := &recorder{}
		d := usecase.NewDispatcher(usecase.WithDelay(0), usecase.WithSleeper(rec.sleeper))

		_, err := d.Run(context.Background(), makeItems(n), rec.action(nil), rec.hooks())
		gt.NoError(t, err)

		gt.Equal(t, len(rec.progress), n)
		for i, ev := range rec.progress {
			gt.Equal(t, ev.Completed, i+1)
			gt.Equal(t, ev.Total, n)
		}
		gt.True(t, rec.progress[n-1].Done())
	}
}

func TestDispatcher_Run_SleepsBetweenItemsOnly(t *testing.T) {
	rec := &recorder{}
	delay := 3 * time.Second
	d := usecase.NewDispatcher(usecase.WithDelay(delay), usecase.WithSleeper(rec.sleeper))

	_, err := d.Run(context.Background(), makeItems(4), rec.action(nil), rec.hooks())
	gt.NoError(t, err)

	gt.Equal(t, rec.sleeps, []time.Duration{delay, delay, delay})
}

func TestDispatcher_Run_FailureDoesNotAbort(t *testing.T) {
	rec := &recorder{}
	d := usecase.NewDispatcher(usecase.WithDelay(0), usecase.WithSleeper(rec.sleeper))

	fail := map[int]error{2: errors.New("anchor click refused")}
	result, err := d.Run(context.Background(), makeItems(3), rec.action(fail), rec.hooks())
	gt.NoError(t, err)

	gt.Equal(t, rec.dispatched, []model.ItemID{"1", "2", "3"})
	gt.Equal(t, rec.progress[len(rec.progress)-1], model.ProgressEvent{Completed: 3, Total: 3})

	gt.Equal(t, len(rec.failures), 1)
	gt.Equal(t, rec.failures[0].Position, 2)
	gt.Equal(t, rec.failures[0].Item.ID, model.ItemID("2"))
	gt.True(t, errors.Is(rec.failures[0], model.ErrDispatchItem))
	gt.String(t, rec.failures[0].Error()).Contains("anchor click refused")

	gt.Equal(t, result.Dispatched, 3)
	gt.Equal(t, result.Succeeded(), 2)
	gt.Equal(t, len(result.Failures), 1)
}

func TestDispatcher_Run_PanicIsContained(t *testing.T) {
	rec := &recorder{}
	d := usecase.NewDispatcher(usecase.WithDelay(0), usecase.WithSleeper(rec.sleeper))

	action := func(ctx context.Context, item model.DownloadItem, position int) error {
		if position == 1 {
			panic("boom")
		}
		return rec.action(nil)(ctx, item, position)
	}

	result, err := d.Run(context.Background(), makeItems(2), action, rec.hooks())
	gt.NoError(t, err)
	gt.Equal(t, rec.dispatched, []model.ItemID{"2"})
	gt.Equal(t, len(result.Failures), 1)
	gt.Equal(t, len(rec.progress), 2)
}

func TestDispatcher_Run_RepeatedRunsAreIndependent(t *testing.T) {
	d := usecase.NewDispatcher(usecase.WithDelay(0))
	items := makeItems(3)

	first := &recorder{}
	r1, err := d.Run(context.Background(), items, first.action(nil), first.hooks())
	gt.NoError(t, err)

	second := &recorder{}
	r2, err := d.Run(context.Background(), items, second.action(nil), second.hooks())
	gt.NoError(t, err)

	gt.Equal(t, first.progress, second.progress)
	gt.Equal(t, first.dispatched, second.dispatched)
	gt.V(t, r1.RunID).NotEqual(r2.RunID)
}

func TestDispatcher_Run_Cancel(t *testing.T) {
	t.Run("canceled before start dispatches nothing", func(t *testing.T) {
		rec := &recorder{}
		d := usecase.NewDispatcher(usecase.WithDelay(0), usecase.WithSleeper(rec.sleeper))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := d.Run(ctx, makeItems(3), rec.action(nil), rec.hooks())
		gt.NoError(t, err)
		gt.True(t, result.Canceled)
		gt.Equal(t, result.Dispatched, 0)
		gt.Equal(t, len(rec.dispatched), 0)
	})

	t.Run("cancel during dispatch stops before the next item", func(t *testing.T) {
		rec := &recorder{}
		d := usecase.NewDispatcher(usecase.WithDelay(0), usecase.WithSleeper(rec.sleeper))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		action := func(c context.Context, item model.DownloadItem, position int) error {
			if position == 2 {
				cancel()
			}
			return rec.action(nil)(c, item, position)
		}

		result, err := d.Run(ctx, makeItems(5), action, rec.hooks())
		gt.NoError(t, err)
		gt.True(t, result.Canceled)
		gt.Equal(t, rec.dispatched, []model.ItemID{"1", "2"})
		gt.Equal(t, result.Dispatched, 2)
		gt.Equal(t, len(rec.progress), 2)
	})

	t.Run("cancel interrupts the real pacing delay", func(t *testing.T) {
		d := usecase.NewDispatcher(usecase.WithDelay(time.Hour))
		rec := &recorder{}

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		result, err := d.Run(ctx, makeItems(2), rec.action(nil), rec.hooks())
		gt.NoError(t, err)
		gt.True(t, result.Canceled)
		gt.Equal(t, result.Dispatched, 1)
		gt.True(t, time.Since(start) < 10*time.Second)
	})
}

func TestDispatcher_Run_SingleFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	d := usecase.NewDispatcher(usecase.WithDelay(0))

	done := make(chan error, 1)
	go func() {
		_, err := d.Run(context.Background(), makeItems(1), func(ctx context.Context, item model.DownloadItem, position int) error {
			close(started)
			<-release
			return nil
		}, usecase.BatchHooks{})
		done <- err
	}()

	<-started
	gt.True(t, d.Running())

	_, err := d.Run(context.Background(), makeItems(1), func(ctx context.Context, item model.DownloadItem, position int) error {
		t.Error("second run must not dispatch")
		return nil
	}, usecase.BatchHooks{})
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrBatchRunning))

	close(release)
	gt.NoError(t, <-done)
	gt.False(t, d.Running())
}

func TestSleepContext(t *testing.T) {
	t.Run("zero delay returns immediately", func(t *testing.T) {
		gt.NoError(t, usecase.SleepContext(context.Background(), 0))
	})

	t.Run("waits for the delay", func(t *testing.T) {
		start := time.Now()
		gt.NoError(t, usecase.SleepContext(context.Background(), 20*time.Millisecond))
		gt.True(t, time.Since(start) >= 20*time.Millisecond)
	})

	t.Run("returns context error when canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := usecase.SleepContext(ctx, time.Hour)
		gt.True(t, errors.Is(err, context.Canceled))
	})
}
