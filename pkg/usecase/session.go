package usecase

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reelpull/pkg/domain/interfaces"
	"github.com/m-mizutani/reelpull/pkg/domain/model"
	"github.com/m-mizutani/reelpull/pkg/domain/types"
	"github.com/m-mizutani/reelpull/pkg/utils/logging"
	"github.com/m-mizutani/reelpull/pkg/utils/safeurl"
)

// Session holds what the user fetched last and triggers downloads for it.
// It is created on fetch, replaced on the next fetch and dropped with the process.
type Session struct {
	backend    interfaces.BackendClient
	initiator  interfaces.Initiator
	reporter   interfaces.ErrorReporter
	dispatcher *Dispatcher
	quality    string

	mu       sync.RWMutex
	request  *model.FetchRequest
	result   *model.FetchResult
	progress *model.ProgressEvent
	failures []model.ItemFailure
	last     *model.BatchResult
	cancel   context.CancelFunc
}

var _ interfaces.SessionUseCase = (*Session)(nil)

// SessionOption is a functional option for Session
type SessionOption func(*Session)

// WithDispatcher sets the dispatcher used by DownloadAll
func WithDispatcher(d *Dispatcher) SessionOption {
	return func(s *Session) {
		s.dispatcher = d
	}
}

// WithQuality sets the quality selector sent to the download endpoint
func WithQuality(q string) SessionOption {
	return func(s *Session) {
		if q != "" {
			s.quality = q
		}
	}
}

// WithErrorReporter forwards item failures to r
func WithErrorReporter(r interfaces.ErrorReporter) SessionOption {
	return func(s *Session) {
		s.reporter = r
	}
}

// NewSession creates a new, empty session
func NewSession(backend interfaces.BackendClient, initiator interfaces.Initiator, opts ...SessionOption) *Session {
	s := &Session{
		backend:   backend,
		initiator: initiator,
		quality:   types.DefaultQuality,
		failures:  []model.ItemFailure{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dispatcher == nil {
		s.dispatcher = NewDispatcher()
	}
	return s
}

// Fetch resolves req through the backend, applies the item cap and replaces the session content
func (s *Session) Fetch(ctx context.Context, req model.FetchRequest) (*model.FetchResult, error) {
	logger := logging.From(ctx)

	target, err := safeurl.Validate(req.URL)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid link", goerr.V("url", req.URL))
	}
	if req.Limit < 0 {
		return nil, goerr.Wrap(model.ErrInvalidInput, "limit must not be negative", goerr.V("limit", req.Limit))
	}
	if s.Running() {
		return nil, goerr.Wrap(model.ErrBatchRunning, "can not fetch while downloading")
	}

	mode := req.Mode
	if mode == "" {
		mode = model.FetchModeProfile
	}

	logger.Info("Fetching source", "mode", mode, "url", target, "limit", req.Limit)

	var fetched *model.FetchResult
	switch mode {
	case model.FetchModeProfile:
		fetched, err = s.backend.Profile(ctx, target)
	case model.FetchModeInfo:
		fetched, err = s.backend.Info(ctx, target)
	case model.FetchModeYouTube:
		fetched, err = s.backend.YouTubeInfo(ctx, target)
	case model.FetchModePlaylist:
		fetched, err = s.backend.YouTubePlaylist(ctx, target)
	case model.FetchModeProfileAll:
		fetched, err = s.backend.ProfileAll(ctx, target, s.dispatcher.Delay())
	default:
		return nil, goerr.Wrap(model.ErrInvalidInput, "unknown fetch mode", goerr.V("mode", mode))
	}
	if err != nil {
		s.mu.Lock()
		if s.cancel == nil {
			s.clear()
		}
		s.mu.Unlock()
		return nil, goerr.Wrap(err, "failed to fetch source", goerr.V("mode", mode), goerr.V("url", target))
	}

	limited := fetched.Limit(req.Limit)
	if limited.Profile == "" {
		limited.Profile = defaultProfile(limited)
	}

	stored := req
	stored.Mode = mode
	stored.URL = target

	// A batch may have been claimed while the backend was answering
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return nil, goerr.Wrap(model.ErrBatchRunning, "can not fetch while downloading")
	}
	s.clear()
	s.request = &stored
	s.result = limited
	s.mu.Unlock()

	logger.Info("Source fetched",
		"kind", limited.Kind,
		"profile", limited.Profile,
		"found", len(fetched.Items),
		"kept", len(limited.Items),
	)

	return limited.Limit(0), nil
}

// DownloadAll triggers every item of the session in order with the configured pacing delay.
// Items that can not be initiated are recorded and skipped.
func (s *Session) DownloadAll(ctx context.Context, onProgress func(model.ProgressEvent)) (*model.BatchResult, error) {
	run, err := s.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return run(ctx, onProgress)
}

// Begin claims the batch for the current session content and returns the
// function that triggers it. Until that function returns, Running reports
// true and other batches and fetches are rejected.
func (s *Session) Begin(ctx context.Context) (interfaces.BatchRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return nil, goerr.Wrap(model.ErrBatchRunning, "download already in progress")
	}

	var items []model.DownloadItem
	profile := ""
	if s.result != nil {
		items = s.result.Items
		profile = s.result.Profile
	}

	// The claim outlives the caller's request, only Cancel ends it
	claimed, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.progress = nil
	s.failures = []model.ItemFailure{}

	return func(ctx context.Context, onProgress func(model.ProgressEvent)) (*model.BatchResult, error) {
		defer func() {
			cancel()
			s.mu.Lock()
			s.cancel = nil
			s.mu.Unlock()
		}()

		runCtx, stop := context.WithCancel(ctx)
		defer stop()

		// From here on Cancel stops the run directly
		s.mu.Lock()
		if claimed.Err() != nil {
			stop()
		}
		s.cancel = func() {
			cancel()
			stop()
		}
		s.mu.Unlock()

		return s.run(runCtx, items, profile, onProgress)
	}, nil
}

func (s *Session) run(ctx context.Context, items []model.DownloadItem, profile string, onProgress func(model.ProgressEvent)) (*model.BatchResult, error) {
	logger := logging.From(ctx)
	logger.Info("Downloading videos", "total", len(items), "delay", s.dispatcher.Delay())

	action := func(ctx context.Context, item model.DownloadItem, position int) error {
		return s.initiate(ctx, model.DownloadRequest{
			SourceURL: item.SourceURL,
			Index:     item.ID,
			Profile:   profile,
			Quality:   s.quality,
		})
	}

	hooks := BatchHooks{
		OnProgress: func(ev model.ProgressEvent) {
			s.mu.Lock()
			s.progress = &ev
			s.mu.Unlock()
			if onProgress != nil {
				onProgress(ev)
			}
		},
		OnFailure: func(f model.ItemFailure) {
			s.mu.Lock()
			s.failures = append(s.failures, f)
			s.mu.Unlock()
			if s.reporter != nil {
				s.reporter.Report(ctx, f)
			}
		},
	}

	result, err := s.dispatcher.Run(ctx, items, action, hooks)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.last = result
	s.mu.Unlock()

	logger.Info("All downloads triggered",
		"run_id", result.RunID,
		"dispatched", result.Dispatched,
		"failed", len(result.Failures),
		"canceled", result.Canceled,
	)

	return result, nil
}

// DownloadOne triggers the session item with the given ID
func (s *Session) DownloadOne(ctx context.Context, id model.ItemID) error {
	s.mu.RLock()
	result := s.result
	s.mu.RUnlock()

	if result == nil {
		return goerr.Wrap(model.ErrItemNotFound, "no video fetched yet", goerr.V("id", id))
	}
	item, ok := result.Find(id)
	if !ok {
		return goerr.Wrap(model.ErrItemNotFound, "video is not in the session", goerr.V("id", id))
	}

	return s.initiate(ctx, model.DownloadRequest{
		SourceURL: item.SourceURL,
		Index:     item.ID,
		Profile:   result.Profile,
		Quality:   s.quality,
	})
}

// DownloadSingle triggers a video link without fetching it first
func (s *Session) DownloadSingle(ctx context.Context, videoURL string) error {
	target, err := safeurl.Validate(videoURL)
	if err != nil {
		return goerr.Wrap(err, "invalid video link", goerr.V("url", videoURL))
	}

	return s.initiate(ctx, model.DownloadRequest{
		SourceURL: target,
		Index:     model.PositionID(1),
		Profile:   types.SingleVideoProfile,
		Quality:   s.quality,
	})
}

// Zip requests an archive of the selected session items and writes it to w.
// No IDs selects every item.
func (s *Session) Zip(ctx context.Context, w io.Writer, ids ...model.ItemID) (int64, error) {
	s.mu.RLock()
	result := s.result
	s.mu.RUnlock()

	if result == nil || len(result.Items) == 0 {
		return 0, goerr.Wrap(model.ErrItemNotFound, "no video to archive")
	}

	items, err := result.Select(ids...)
	if err != nil {
		return 0, goerr.Wrap(err, "invalid selection")
	}

	urls := make([]string, 0, len(items))
	for _, item := range items {
		urls = append(urls, item.SourceURL)
	}

	n, err := s.backend.Zip(ctx, urls, s.quality, w)
	if err != nil {
		return n, goerr.Wrap(err, "failed to download archive", goerr.V("count", len(urls)))
	}
	return n, nil
}

// Cancel stops the running batch before its next item. It returns false when nothing runs.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

// Running reports whether DownloadAll is in progress
func (s *Session) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cancel != nil
}

// Reset drops the fetched content
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear()
}

// clear must be called with mu held
func (s *Session) clear() {
	s.request = nil
	s.result = nil
	s.progress = nil
	s.failures = []model.ItemFailure{}
	s.last = nil
}

// Snapshot returns a copy of the session state
func (s *Session) Snapshot() model.SessionView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view := model.SessionView{
		Running:  s.cancel != nil,
		Failures: append([]model.ItemFailure{}, s.failures...),
	}
	if s.request != nil {
		req := *s.request
		view.Request = &req
	}
	if s.result != nil {
		view.Result = s.result.Limit(0)
	}
	if s.progress != nil {
		ev := *s.progress
		view.Progress = &ev
	}
	if s.last != nil {
		last := *s.last
		last.Failures = append([]model.ItemFailure{}, s.last.Failures...)
		view.Last = &last
	}
	return view
}

func (s *Session) initiate(ctx context.Context, req model.DownloadRequest) error {
	downloadURL := s.backend.DownloadURL(req)
	if err := s.initiator.Initiate(ctx, downloadURL, req.SuggestedName()); err != nil {
		return goerr.Wrap(err, "failed to initiate download",
			goerr.V("index", req.Index),
			goerr.V("profile", req.Profile),
		)
	}

	logging.From(ctx).Debug("Download initiated", "index", req.Index, "profile", req.Profile)
	return nil
}

// defaultProfile labels downloads when the backend did not name the source
func defaultProfile(r *model.FetchResult) string {
	if r.Kind == model.SourceKindSingle {
		return types.SingleVideoProfile
	}
	if title := strings.TrimSpace(r.Title); title != "" {
		return title
	}
	return string(model.SourceKindPlaylist)
}
