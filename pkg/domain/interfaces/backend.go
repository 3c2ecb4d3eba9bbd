package interfaces

import (
	"context"
	"io"
	"time"

	"github.com/m-mizutani/reelpull/pkg/domain/model"
)

// BackendClient defines operations against the remote downloader backend
type BackendClient interface {
	// Profile lists the videos of a TikTok profile
	Profile(ctx context.Context, profileURL string) (*model.FetchResult, error)

	// ProfileAll scrapes every video of a TikTok profile, pausing sleep between pages
	ProfileAll(ctx context.Context, profileURL string, sleep time.Duration) (*model.FetchResult, error)

	// Info resolves a single video or playlist link
	Info(ctx context.Context, videoURL string) (*model.FetchResult, error)

	// YouTubeInfo resolves a YouTube video link
	YouTubeInfo(ctx context.Context, videoURL string) (*model.FetchResult, error)

	// YouTubePlaylist lists the videos of a YouTube playlist
	YouTubePlaylist(ctx context.Context, playlistURL string) (*model.FetchResult, error)

	// DownloadURL builds the download endpoint URL for one video
	DownloadURL(req model.DownloadRequest) string

	// Zip streams a ZIP archive of the given videos into w
	Zip(ctx context.Context, urls []string, quality string, w io.Writer) (int64, error)
}

// Initiator starts a download of rawURL and returns without waiting for it
type Initiator interface {
	Initiate(ctx context.Context, rawURL, suggestedName string) error
}

// ErrorReporter forwards errors that cannot be returned to a caller
type ErrorReporter interface {
	Report(ctx context.Context, err error)
}
