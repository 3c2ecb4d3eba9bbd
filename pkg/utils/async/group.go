package async

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reelpull/pkg/utils/logging"
)

// Group runs handlers in background goroutines and lets the owner wait for
// all of them. A zero Group is ready to use.
type Group struct {
	wg      sync.WaitGroup
	onError func(ctx context.Context, err error)
}

// NewGroup creates a Group. onError, when not nil, receives every error and
// recovered panic in addition to the log line.
func NewGroup(onError func(ctx context.Context, err error)) *Group {
	return &Group{onError: onError}
}

// Go executes handler asynchronously with a detached context and panic recovery
//
// Parameters:
//   - ctx: Original context (values will be preserved, but cancellation won't affect the async handler)
//   - handler: Function to execute asynchronously
//
// Behavior:
//   - Creates a new background context with preserved logger
//   - Executes handler in a new goroutine tracked by the group
//   - Recovers from panics and logs them
//   - Logs errors returned by handler
func (g *Group) Go(ctx context.Context, handler func(ctx context.Context) error) {
	newCtx := newBackgroundContext(ctx)

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				logger := logging.From(newCtx)
				logger.Error("panic in async handler",
					"recover", r,
					"stack", string(stack))
				g.report(newCtx, goerr.New("panic in async handler", goerr.V("recover", r)))
			}
		}()

		if err := handler(newCtx); err != nil {
			logger := logging.From(newCtx)
			logger.Error("error in async handler", "error", err)
			g.report(newCtx, err)
		}
	}()
}

// Wait blocks until every handler started with Go has returned.
func (g *Group) Wait() {
	g.wg.Wait()
}

func (g *Group) report(ctx context.Context, err error) {
	if g.onError != nil {
		g.onError(ctx, err)
	}
}

// newBackgroundContext creates a new background context preserving important values
//
// Preserved values:
//   - request logger
//
// Returns: New context.Background() with preserved values
func newBackgroundContext(ctx context.Context) context.Context {
	newCtx := context.Background()
	newCtx = logging.With(newCtx, logging.From(ctx))
	return newCtx
}
