package model_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/reelpull/pkg/domain/model"
)

func TestProgressEvent_Percent(t *testing.T) {
	tests := []struct {
		ev   model.ProgressEvent
		want int
		done bool
	}{
		{ev: model.ProgressEvent{Completed: 1, Total: 3}, want: 33},
		{ev: model.ProgressEvent{Completed: 2, Total: 3}, want: 67},
		{ev: model.ProgressEvent{Completed: 3, Total: 3}, want: 100, done: true},
		{ev: model.ProgressEvent{Completed: 1, Total: 8}, want: 13},
		{ev: model.ProgressEvent{Completed: 0, Total: 0}, want: 0},
	}

	for _, tt := range tests {
		gt.Equal(t, tt.ev.Percent(), tt.want)
		gt.Equal(t, tt.ev.Done(), tt.done)
	}
}

func TestBatchState_Advance(t *testing.T) {
	state := model.BatchState{Items: make([]model.DownloadItem, 2)}
	gt.Equal(t, state.Remaining(), 2)

	state.Advance()
	state.Advance()
	state.Advance()
	gt.Equal(t, state.Cursor, 2)
	gt.Equal(t, state.Remaining(), 0)

	snap := state.Snapshot()
	snap.Items[0].Title = "changed"
	snap.Advance()
	gt.Equal(t, state.Items[0].Title, "")
	gt.Equal(t, snap.Cursor, 2)
}

func TestItemFailure(t *testing.T) {
	cause := errors.New("refused")
	failure := model.ItemFailure{
		Position: 2,
		Item:     model.DownloadItem{ID: "2"},
		Err:      cause,
	}

	gt.True(t, errors.Is(failure, model.ErrDispatchItem))
	gt.True(t, errors.Is(failure, cause))
	gt.Equal(t, failure.Error(), "dispatch failed for item 2: refused")

	raw, err := json.Marshal(failure)
	gt.NoError(t, err)

	var decoded map[string]any
	gt.NoError(t, json.Unmarshal(raw, &decoded))
	gt.Equal(t, decoded["error"], any("refused"))
	gt.Equal(t, decoded["position"], any(float64(2)))
}

func TestBatchResult(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	result := &model.BatchResult{
		Dispatched: 5,
		Failures:   []model.ItemFailure{{Position: 3}},
		StartedAt:  start,
		FinishedAt: start.Add(4 * time.Second),
	}
	gt.Equal(t, result.Succeeded(), 4)
	gt.Equal(t, result.Duration(), 4*time.Second)
}

func TestDownloadRequest_SuggestedName(t *testing.T) {
	gt.Equal(t, model.DownloadRequest{Profile: "someone", Index: "3"}.SuggestedName(), "someone_3")
	gt.Equal(t, model.DownloadRequest{Index: "3"}.SuggestedName(), "video_3")
	gt.Equal(t, model.DownloadRequest{Profile: "single_video"}.SuggestedName(), "single_video")
}
