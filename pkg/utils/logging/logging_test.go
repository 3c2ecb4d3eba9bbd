package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/reelpull/pkg/utils/logging"
)

func TestFrom(t *testing.T) {
	t.Run("default when empty", func(t *testing.T) {
		gt.Equal(t, logging.From(context.Background()), slog.Default())
	})

	t.Run("stored logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		ctx := logging.With(context.Background(), logger)

		logging.From(ctx).Info("hello", "key", "value")
		gt.String(t, buf.String()).Contains("key=value")
	})

	t.Run("nil logger falls back", func(t *testing.T) {
		ctx := logging.With(context.Background(), nil)
		gt.Equal(t, logging.From(ctx), slog.Default())
	})
}
