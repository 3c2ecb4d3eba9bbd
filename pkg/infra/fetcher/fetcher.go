package fetcher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reelpull/pkg/domain/interfaces"
	"github.com/m-mizutani/reelpull/pkg/domain/model"
	"github.com/m-mizutani/reelpull/pkg/domain/types"
	"github.com/m-mizutani/reelpull/pkg/utils/async"
	"github.com/m-mizutani/reelpull/pkg/utils/logging"
	"github.com/m-mizutani/reelpull/pkg/utils/safeurl"
)

// LockFileName is created in the output directory while a Fetcher owns it
const LockFileName = ".reelpull.lock"

// maxNameAttempts bounds the " (n)" suffix search for a free file name
const maxNameAttempts = 1000

// Fetcher is the download mechanism behind Initiate: it accepts a download
// URL, returns at once and saves the file in the background, like a browser
// download manager does for an anchor click.
type Fetcher struct {
	outDir     string
	httpClient *http.Client
	lock       *flock.Flock
	group      *async.Group
	reporter   interfaces.ErrorReporter

	closed    atomic.Bool
	inFlight  atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

var _ interfaces.Initiator = (*Fetcher)(nil)

// Option is a functional option for Fetcher
type Option func(*Fetcher)

// WithHTTPClient replaces the HTTP client used for downloads
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.httpClient = c
	}
}

// WithErrorReporter forwards background download failures to r
func WithErrorReporter(r interfaces.ErrorReporter) Option {
	return func(f *Fetcher) {
		f.reporter = r
	}
}

// New creates the output directory if needed and takes its lock.
// It fails with model.ErrOutputLocked when another process holds it.
func New(outDir string, opts ...Option) (*Fetcher, error) {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve output directory", goerr.V("dir", outDir))
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create output directory", goerr.V("dir", abs))
	}

	lock := flock.New(filepath.Join(abs, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to lock output directory", goerr.V("dir", abs))
	}
	if !locked {
		return nil, goerr.Wrap(model.ErrOutputLocked, "output directory is busy", goerr.V("dir", abs))
	}

	f := &Fetcher{
		outDir:     abs,
		httpClient: &http.Client{},
		lock:       lock,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.group = async.NewGroup(f.report)

	return f, nil
}

// Dir returns the absolute output directory
func (f *Fetcher) Dir() string {
	return f.outDir
}

// Initiate validates the request and starts the download in the background.
// The returned error only covers initiation; the transfer outcome is logged
// and counted in Stats.
func (f *Fetcher) Initiate(ctx context.Context, rawURL, suggestedName string) error {
	if f.closed.Load() {
		return goerr.New("fetcher is closed")
	}

	target, err := safeurl.Validate(rawURL)
	if err != nil {
		return goerr.Wrap(err, "refusing to download", goerr.V("url", rawURL))
	}

	f.inFlight.Add(1)
	f.group.Go(ctx, func(ctx context.Context) error {
		defer f.inFlight.Add(-1)

		path, err := f.fetch(ctx, target, suggestedName)
		if err != nil {
			f.failed.Add(1)
			return goerr.Wrap(err, "download failed", goerr.V("name", suggestedName))
		}

		f.completed.Add(1)
		logging.From(ctx).Info("Download saved", "path", path)
		return nil
	})

	return nil
}

// Wait blocks until every initiated download has finished
func (f *Fetcher) Wait() {
	f.group.Wait()
}

// Stats returns the counters of background downloads
func (f *Fetcher) Stats() model.FetchStats {
	return model.FetchStats{
		InFlight:  f.inFlight.Load(),
		Completed: f.completed.Load(),
		Failed:    f.failed.Load(),
	}
}

// Close rejects new downloads, waits for running ones and releases the directory lock
func (f *Fetcher) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}
	f.group.Wait()

	if err := f.lock.Unlock(); err != nil {
		return goerr.Wrap(err, "failed to unlock output directory", goerr.V("dir", f.outDir))
	}
	_ = os.Remove(f.lock.Path())
	return nil
}

func (f *Fetcher) report(ctx context.Context, err error) {
	if f.reporter != nil {
		f.reporter.Report(ctx, err)
	}
}

func (f *Fetcher) fetch(ctx context.Context, rawURL, suggestedName string) (string, error) {
	logger := logging.From(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create download request")
	}
	req.Header.Set("User-Agent", types.ServiceName+"/"+types.Version)

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", goerr.Wrap(err, "download request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", goerr.New("unexpected status for download",
			goerr.V("status", resp.StatusCode),
			goerr.V("body", strings.TrimSpace(string(body))),
		)
	}

	name, body, err := DetermineFilename(resp, suggestedName)
	if err != nil {
		return "", err
	}

	file, path, err := createUnique(f.outDir, name)
	if err != nil {
		return "", err
	}

	n, copyErr := io.Copy(file, body)
	closeErr := file.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(path)
		return "", goerr.Wrap(err, "failed to write download", goerr.V("path", path), goerr.V("bytes", n))
	}

	logger.Debug("download finished",
		"path", path,
		"bytes", n,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return path, nil
}

// createUnique creates name in dir, appending " (n)" before the extension
// when the name is taken. Existing files are never overwritten.
func createUnique(dir, name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 0; i < maxNameAttempts; i++ {
		candidate := name
		if i > 0 {
			candidate = stem + " (" + strconv.Itoa(i) + ")" + ext
		}
		path := filepath.Join(dir, candidate)

		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return file, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", goerr.Wrap(err, "failed to create file", goerr.V("path", path))
		}
	}

	return nil, "", goerr.New("no free file name", goerr.V("dir", dir), goerr.V("name", name))
}

// peekReader returns the first n bytes of r and a reader replaying them before the rest
func peekReader(r io.Reader, n int) ([]byte, io.Reader, error) {
	header := make([]byte, n)
	read, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, nil, goerr.Wrap(err, "failed to read response header bytes")
	}
	header = header[:read]
	return header, io.MultiReader(bytes.NewReader(header), r), nil
}
