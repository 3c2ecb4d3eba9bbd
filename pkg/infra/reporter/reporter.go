package reporter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reelpull/pkg/domain/interfaces"
	"github.com/m-mizutani/reelpull/pkg/domain/types"
	"github.com/m-mizutani/reelpull/pkg/utils/logging"
)

// logReporter writes reported errors to the context logger only
type logReporter struct{}

// NewLogReporter creates a reporter that only logs
func NewLogReporter() interfaces.ErrorReporter {
	return &logReporter{}
}

func (x *logReporter) Report(ctx context.Context, err error) {
	logging.From(ctx).Error("Reported error", "error", err)
}

// Sentry sends reported errors to Sentry and logs them
type Sentry struct {
	hub *sentry.Hub
}

var _ interfaces.ErrorReporter = (*Sentry)(nil)

// NewSentry initializes a dedicated Sentry client for dsn
func NewSentry(dsn, environment string) (*Sentry, error) {
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     types.ServiceName + "@" + types.Version,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize sentry client")
	}

	return &Sentry{
		hub: sentry.NewHub(client, sentry.NewScope()),
	}, nil
}

// Report logs err and captures it with its goerr values as extra context
func (x *Sentry) Report(ctx context.Context, err error) {
	logger := logging.From(ctx)
	logger.Error("Reported error", "error", err)

	hub := x.hub.Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		var gerr *goerr.Error
		if errors.As(err, &gerr) {
			values := sentry.Context{}
			for k, v := range gerr.Values() {
				values[k] = fmt.Sprintf("%v", v)
			}
			scope.SetContext("values", values)
		}
		scope.SetTag("service", types.ServiceName)

		if id := hub.CaptureException(err); id != nil {
			logger.Debug("Error sent to sentry", "event_id", *id)
		}
	})
}

// Flush waits up to timeout for queued events to be delivered
func (x *Sentry) Flush(timeout time.Duration) bool {
	return x.hub.Flush(timeout)
}

// New returns a Sentry reporter when dsn is set, otherwise a log-only reporter.
// The returned flush function is always safe to call.
func New(dsn, environment string) (interfaces.ErrorReporter, func(), error) {
	if dsn == "" {
		return NewLogReporter(), func() {}, nil
	}

	s, err := NewSentry(dsn, environment)
	if err != nil {
		return nil, nil, err
	}
	return s, func() { s.Flush(2 * time.Second) }, nil
}
