package cli

import (
	"context"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reelpull/pkg/cli/config"
	"github.com/m-mizutani/reelpull/pkg/domain/interfaces"
	"github.com/m-mizutani/reelpull/pkg/infra/fetcher"
	"github.com/m-mizutani/reelpull/pkg/usecase"
	"github.com/m-mizutani/reelpull/pkg/utils/logging"
)

// components are the wired dependencies shared by the download commands
type components struct {
	session  *usecase.Session
	reporter interfaces.ErrorReporter
	fetcher  *fetcher.Fetcher

	closeInitiator func() error
	flush          func()
}

func newComponents(backendCfg *config.Backend, batchCfg *config.Batch, outputCfg *config.Output, sentryCfg *config.Sentry, stdout io.Writer) (*components, error) {
	if err := batchCfg.Validate(); err != nil {
		return nil, err
	}

	reporter, flush, err := sentryCfg.Configure()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to configure error reporter")
	}

	client, err := backendCfg.Configure()
	if err != nil {
		flush()
		return nil, goerr.Wrap(err, "failed to configure backend client")
	}

	initiator, closeInitiator, err := outputCfg.Initiator(stdout, reporter)
	if err != nil {
		flush()
		return nil, err
	}

	opts := append(batchCfg.SessionOptions(), usecase.WithErrorReporter(reporter))
	x := &components{
		session:        usecase.NewSession(client, initiator, opts...),
		reporter:       reporter,
		closeInitiator: closeInitiator,
		flush:          flush,
	}
	if f, ok := initiator.(*fetcher.Fetcher); ok {
		x.fetcher = f
	}
	return x, nil
}

// Close waits for transfers in flight, releases the output directory and
// flushes reported errors.
func (x *components) Close(ctx context.Context) {
	if err := x.closeInitiator(); err != nil {
		logging.From(ctx).Error("Failed to close output", "error", err)
	}
	x.flush()
}
