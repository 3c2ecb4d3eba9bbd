package usecase

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reelpull/pkg/domain/model"
	"github.com/m-mizutani/reelpull/pkg/domain/types"
	"github.com/m-mizutani/reelpull/pkg/utils/logging"
)

// DispatchFunc performs the side effect for one item. position is 1-based.
type DispatchFunc func(ctx context.Context, item model.DownloadItem, position int) error

// Sleeper suspends for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// BatchHooks receives notifications from a running batch. Both fields are optional.
type BatchHooks struct {
	OnProgress func(model.ProgressEvent)
	OnFailure  func(model.ItemFailure)
}

// Dispatcher triggers a sequence of items one at a time with a fixed pause
// between consecutive items. One instance runs at most one batch at a time.
type Dispatcher struct {
	delay   time.Duration
	sleep   Sleeper
	now     func() time.Time
	running atomic.Bool
}

// DispatcherOption is a functional option for Dispatcher
type DispatcherOption func(*Dispatcher)

// WithDelay sets the pause between two dispatches. Negative values are treated as zero.
func WithDelay(d time.Duration) DispatcherOption {
	return func(x *Dispatcher) {
		if d < 0 {
			d = 0
		}
		x.delay = d
	}
}

// WithSleeper replaces the wait implementation, mainly for tests.
func WithSleeper(s Sleeper) DispatcherOption {
	return func(x *Dispatcher) {
		x.sleep = s
	}
}

// WithClock replaces time.Now for run timestamps.
func WithClock(now func() time.Time) DispatcherOption {
	return func(x *Dispatcher) {
		x.now = now
	}
}

// NewDispatcher creates a Dispatcher with the default pacing delay.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		delay: types.DefaultDelay,
		sleep: SleepContext,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Delay returns the configured pause between dispatches.
func (d *Dispatcher) Delay() time.Duration {
	return d.delay
}

// Running reports whether a batch is in progress.
func (d *Dispatcher) Running() bool {
	return d.running.Load()
}

// Run dispatches items in order. A failing item is reported through
// hooks.OnFailure and never stops the batch. Canceling ctx stops the run
// before the next dispatch; the dispatch in progress is not interrupted.
func (d *Dispatcher) Run(ctx context.Context, items []model.DownloadItem, action DispatchFunc, hooks BatchHooks) (*model.BatchResult, error) {
	if !d.running.CompareAndSwap(false, true) {
		return nil, goerr.Wrap(model.ErrBatchRunning, "dispatcher is busy")
	}
	defer d.running.Store(false)

	result := &model.BatchResult{
		RunID:     uuid.NewString(),
		Total:     len(items),
		Failures:  []model.ItemFailure{},
		StartedAt: d.now(),
	}
	logger := logging.From(ctx).With("run_id", result.RunID)

	state := model.BatchState{Items: items, Running: true}.Snapshot()
	logger.Debug("batch started", "total", len(items), "delay", d.delay)

	for i, item := range state.Items {
		if ctx.Err() != nil {
			result.Canceled = true
			break
		}

		position := i + 1
		if err := invoke(ctx, action, item, position); err != nil {
			failure := model.ItemFailure{
				Position: position,
				Item:     item,
				Err:      goerr.Wrap(err, "failed to dispatch item", goerr.V("position", position), goerr.V("id", item.ID)),
			}
			result.Failures = append(result.Failures, failure)

			logger.Warn("failed to dispatch item",
				"position", position,
				"id", item.ID,
				"error", err,
			)
			if hooks.OnFailure != nil {
				hooks.OnFailure(failure)
			}
		}

		state.Advance()
		result.Dispatched = state.Cursor

		if hooks.OnProgress != nil {
			hooks.OnProgress(model.ProgressEvent{
				Completed: state.Cursor,
				Total:     len(items),
			})
		}

		if state.Remaining() > 0 {
			if err := d.sleep(ctx, d.delay); err != nil {
				result.Canceled = true
				break
			}
		}
	}

	result.FinishedAt = d.now()

	logger.Debug("batch finished",
		"dispatched", result.Dispatched,
		"failed", len(result.Failures),
		"canceled", result.Canceled,
	)

	return result, nil
}

// invoke calls action and converts a panic into an error so one item can not abort the batch.
func invoke(ctx context.Context, action DispatchFunc, item model.DownloadItem, position int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = goerr.New("panic in dispatch action", goerr.V("recover", r))
		}
	}()
	return action(ctx, item, position)
}

// SleepContext waits for d, returning early with ctx.Err() when ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
