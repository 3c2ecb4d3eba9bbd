package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/reelpull/pkg/cli/config"
	"github.com/m-mizutani/reelpull/pkg/domain/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reelpull.toml")
	gt.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestFile_Load(t *testing.T) {
	path := writeConfig(t, `
[backend]
url = "https://backend.example"
timeout = "5s"

[batch]
delay = "250ms"
limit = 0
quality = "720p"

[output]
dir = "/tmp/videos"
dry_run = true

[server]
addr = "127.0.0.1:9000"
shutdown_timeout = "30s"
`)

	f := &config.File{Path: path}
	values, err := f.Load()
	gt.NoError(t, err)

	gt.Equal(t, values["backend-url"], "https://backend.example")
	gt.Equal(t, values["backend-timeout"], "5s")
	gt.Equal(t, values["delay"], "250ms")
	gt.Equal(t, values["limit"], "0")
	gt.Equal(t, values["quality"], "720p")
	gt.Equal(t, values["output"], "/tmp/videos")
	gt.Equal(t, values["dry-run"], "true")
	gt.Equal(t, values["addr"], "127.0.0.1:9000")
	gt.Equal(t, values["shutdown-timeout"], "30s")

	_, ok := values["backend-token"]
	gt.False(t, ok)
	_, ok = values["from-clipboard"]
	gt.False(t, ok)
}

func TestFile_LoadErrors(t *testing.T) {
	t.Run("no path", func(t *testing.T) {
		values, err := (&config.File{}).Load()
		gt.NoError(t, err)
		gt.Equal(t, len(values), 0)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := (&config.File{Path: filepath.Join(t.TempDir(), "none.toml")}).Load()
		gt.Error(t, err)
	})

	t.Run("broken toml", func(t *testing.T) {
		_, err := (&config.File{Path: writeConfig(t, "[batch\nlimit = ")}).Load()
		gt.Error(t, err)
	})
}

func TestFile_Apply(t *testing.T) {
	path := writeConfig(t, `
[batch]
delay = "250ms"
limit = 3
quality = "720p"
`)

	run := func(t *testing.T, args ...string) config.Batch {
		var (
			file  = config.File{Path: path}
			batch config.Batch
		)
		cmd := &cli.Command{
			Name:   "download",
			Flags:  batch.Flags(),
			Before: file.Apply,
			Action: func(ctx context.Context, c *cli.Command) error {
				return nil
			},
		}
		gt.NoError(t, cmd.Run(context.Background(), append([]string{"download"}, args...)))
		return batch
	}

	t.Run("file fills unset flags", func(t *testing.T) {
		batch := run(t)
		gt.Equal(t, batch.Delay, 250*time.Millisecond)
		gt.Equal(t, batch.Limit, 3)
		gt.Equal(t, batch.Quality, "720p")
	})

	t.Run("command line wins", func(t *testing.T) {
		batch := run(t, "--limit", "7", "--delay", "2s")
		gt.Equal(t, batch.Delay, 2*time.Second)
		gt.Equal(t, batch.Limit, 7)
		gt.Equal(t, batch.Quality, "720p")
	})
}

func TestBatch_Validate(t *testing.T) {
	gt.NoError(t, (&config.Batch{Delay: time.Second}).Validate())
	gt.NoError(t, (&config.Batch{}).Validate())

	err := (&config.Batch{Limit: -1}).Validate()
	gt.True(t, errors.Is(err, model.ErrInvalidInput))

	err = (&config.Batch{Delay: -time.Second}).Validate()
	gt.True(t, errors.Is(err, model.ErrInvalidInput))
}

func TestMode_Parse(t *testing.T) {
	mode, err := (&config.Mode{Value: "youtube"}).Parse()
	gt.NoError(t, err)
	gt.Equal(t, mode, model.FetchModeYouTube)

	_, err = (&config.Mode{Value: "vimeo"}).Parse()
	gt.True(t, errors.Is(err, model.ErrInvalidInput))
}

func TestServer_Flags(t *testing.T) {
	run := func(t *testing.T, args ...string) config.Server {
		var server config.Server
		cmd := &cli.Command{
			Name:  "serve",
			Flags: server.Flags(),
			Action: func(ctx context.Context, c *cli.Command) error {
				return nil
			},
		}
		gt.NoError(t, cmd.Run(context.Background(), append([]string{"serve"}, args...)))
		return server
	}

	t.Run("defaults", func(t *testing.T) {
		server := run(t)
		gt.Equal(t, server.Addr, "localhost:8080")
		gt.Equal(t, server.ShutdownTimeout, 10*time.Second)
		gt.NoError(t, server.Validate())
	})

	t.Run("command line", func(t *testing.T) {
		server := run(t, "--shutdown-timeout", "45s")
		gt.Equal(t, server.ShutdownTimeout, 45*time.Second)
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv("REELPULL_SHUTDOWN_TIMEOUT", "2m")
		server := run(t)
		gt.Equal(t, server.ShutdownTimeout, 2*time.Minute)
	})
}

func TestServer_Validate(t *testing.T) {
	err := (&config.Server{ShutdownTimeout: 0}).Validate()
	gt.True(t, errors.Is(err, model.ErrInvalidInput))

	err = (&config.Server{ShutdownTimeout: -time.Second}).Validate()
	gt.True(t, errors.Is(err, model.ErrInvalidInput))
}
