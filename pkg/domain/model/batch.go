package model

import (
	"encoding/json"
	"math"
	"time"
)

// BatchState tracks one dispatcher run. 0 <= Cursor <= len(Items) always holds.
type BatchState struct {
	Items   []DownloadItem
	Cursor  int
	Running bool
}

// Advance moves the cursor one item forward, saturating at len(Items).
func (x *BatchState) Advance() {
	if x.Cursor < len(x.Items) {
		x.Cursor++
	}
}

// Snapshot returns a copy that does not share the item slice.
func (x BatchState) Snapshot() BatchState {
	x.Items = append([]DownloadItem(nil), x.Items...)
	return x
}

// Remaining returns the number of items not dispatched yet.
func (x *BatchState) Remaining() int {
	return len(x.Items) - x.Cursor
}

// ProgressEvent is emitted after every dispatch. Receivers must treat it as a snapshot.
type ProgressEvent struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// Percent returns the rounded completion ratio shown by progress bars.
func (x ProgressEvent) Percent() int {
	if x.Total <= 0 {
		return 0
	}
	return int(math.Round(float64(x.Completed) / float64(x.Total) * 100))
}

// Done reports whether the event is the final one of its run.
func (x ProgressEvent) Done() bool {
	return x.Total > 0 && x.Completed == x.Total
}

// ItemFailure reports an item whose dispatch could not be initiated.
type ItemFailure struct {
	Position int
	Item     DownloadItem
	Err      error
}

func (x ItemFailure) Error() string {
	if x.Err == nil {
		return "dispatch failed for item " + x.Item.ID.String()
	}
	return "dispatch failed for item " + x.Item.ID.String() + ": " + x.Err.Error()
}

func (x ItemFailure) Unwrap() error {
	return x.Err
}

// Is makes every ItemFailure match ErrDispatchItem.
func (x ItemFailure) Is(target error) bool {
	return target == ErrDispatchItem
}

// MarshalJSON renders the failure with its error as a string.
func (x ItemFailure) MarshalJSON() ([]byte, error) {
	msg := ""
	if x.Err != nil {
		msg = x.Err.Error()
	}
	return json.Marshal(struct {
		Position int          `json:"position"`
		Item     DownloadItem `json:"item"`
		Error    string       `json:"error"`
	}{
		Position: x.Position,
		Item:     x.Item,
		Error:    msg,
	})
}

// BatchResult summarizes a finished dispatcher run.
type BatchResult struct {
	RunID      string        `json:"run_id"`
	Total      int           `json:"total"`
	Dispatched int           `json:"dispatched"`
	Failures   []ItemFailure `json:"failures"`
	Canceled   bool          `json:"canceled"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Succeeded returns how many dispatches were initiated without error.
func (x *BatchResult) Succeeded() int {
	return x.Dispatched - len(x.Failures)
}

// Duration returns the wall time of the run.
func (x *BatchResult) Duration() time.Duration {
	return x.FinishedAt.Sub(x.StartedAt)
}

// DownloadRequest parameterizes one call of the backend download endpoint.
type DownloadRequest struct {
	SourceURL string
	Index     ItemID
	Profile   string
	Quality   string
}

// SuggestedName is the file name proposed to the download mechanism. The
// server's Content-Disposition takes precedence when present.
func (x DownloadRequest) SuggestedName() string {
	profile := x.Profile
	if profile == "" {
		profile = "video"
	}
	if x.Index == "" {
		return profile
	}
	return profile + "_" + x.Index.String()
}

// FetchStats counts background downloads handled by an initiator.
type FetchStats struct {
	InFlight  int64 `json:"in_flight"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// SessionView is an immutable snapshot of the session, as served by the local API.
type SessionView struct {
	Request  *FetchRequest  `json:"request,omitempty"`
	Result   *FetchResult   `json:"result,omitempty"`
	Running  bool           `json:"running"`
	Progress *ProgressEvent `json:"progress,omitempty"`
	Failures []ItemFailure  `json:"failures"`
	Last     *BatchResult   `json:"last,omitempty"`
}
