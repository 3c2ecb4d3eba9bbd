package interfaces

//go:generate moq -out mocks/session_mock.go -pkg mocks . SessionUseCase

import (
	"context"

	"github.com/m-mizutani/reelpull/pkg/domain/model"
)

// BatchRun triggers the items of a batch claimed by SessionUseCase.Begin
type BatchRun func(ctx context.Context, onProgress func(model.ProgressEvent)) (*model.BatchResult, error)

// SessionUseCase defines the operations of a fetch-and-download session
type SessionUseCase interface {
	// Fetch resolves the request and replaces the session content
	Fetch(ctx context.Context, req model.FetchRequest) (*model.FetchResult, error)

	// DownloadAll triggers every item of the session, one at a time
	DownloadAll(ctx context.Context, onProgress func(model.ProgressEvent)) (*model.BatchResult, error)

	// Begin claims the batch slot and returns the function that runs it.
	// The returned BatchRun must be called exactly once.
	Begin(ctx context.Context) (BatchRun, error)

	// DownloadOne triggers a single item of the session
	DownloadOne(ctx context.Context, id model.ItemID) error

	// DownloadSingle triggers a video link without fetching it first
	DownloadSingle(ctx context.Context, videoURL string) error

	// Cancel stops the running batch between two items
	Cancel() bool

	// Running reports whether a batch is in progress
	Running() bool

	// Snapshot returns a copy of the session state
	Snapshot() model.SessionView
}
