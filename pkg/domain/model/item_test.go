package model_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/reelpull/pkg/domain/model"
)

func TestItemID_UnmarshalJSON(t *testing.T) {
	var items []model.DownloadItem
	gt.NoError(t, json.Unmarshal([]byte(`[
		{"index": 1, "url": "https://a.example/1"},
		{"index": "2", "url": "https://a.example/2"},
		{"url": "https://a.example/3"}
	]`), &items))

	gt.Equal(t, items[0].ID, model.ItemID("1"))
	gt.Equal(t, items[1].ID, model.ItemID("2"))
	gt.Equal(t, items[2].ID, model.ItemID(""))

	var id model.ItemID
	gt.Error(t, json.Unmarshal([]byte(`{"x":1}`), &id))
}

func TestDownloadItem_DisplayTitle(t *testing.T) {
	gt.Equal(t, model.DownloadItem{ID: "4", Title: "dance"}.DisplayTitle(), "dance")
	gt.Equal(t, model.DownloadItem{ID: "4"}.DisplayTitle(), "Video 4")
}

func TestFetchResult_Limit(t *testing.T) {
	result := &model.FetchResult{
		Kind:    model.SourceKindPlaylist,
		Profile: "someone",
		Items: []model.DownloadItem{
			{ID: "1"}, {ID: "2"}, {ID: "3"},
		},
	}

	tests := []struct {
		limit int
		want  int
	}{
		{limit: 0, want: 3},
		{limit: -5, want: 3},
		{limit: 2, want: 2},
		{limit: 3, want: 3},
		{limit: 10, want: 3},
	}
	for _, tt := range tests {
		limited := result.Limit(tt.limit)
		gt.Equal(t, len(limited.Items), tt.want)
		gt.Equal(t, limited.Profile, "someone")
	}

	limited := result.Limit(1)
	limited.Items[0].Title = "changed"
	gt.Equal(t, result.Items[0].Title, "")
}

func TestFetchResult_Find(t *testing.T) {
	result := &model.FetchResult{Items: []model.DownloadItem{{ID: "7", SourceURL: "https://a.example/7"}}}

	item, ok := result.Find("7")
	gt.True(t, ok)
	gt.Equal(t, item.SourceURL, "https://a.example/7")

	_, ok = result.Find("8")
	gt.False(t, ok)
}

func TestFetchResult_Select(t *testing.T) {
	result := &model.FetchResult{Items: []model.DownloadItem{
		{ID: "1", SourceURL: "https://a.example/1"},
		{ID: "2", SourceURL: "https://a.example/2"},
		{ID: "3", SourceURL: "https://a.example/3"},
	}}

	t.Run("no ids keeps every item", func(t *testing.T) {
		items, err := result.Select()
		gt.NoError(t, err)
		gt.Equal(t, len(items), 3)
	})

	t.Run("listing order without duplicates", func(t *testing.T) {
		items, err := result.Select("3", "1", "3")
		gt.NoError(t, err)
		gt.Equal(t, len(items), 2)
		gt.Equal(t, items[0].ID, model.ItemID("1"))
		gt.Equal(t, items[1].ID, model.ItemID("3"))
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := result.Select("1", "9")
		gt.True(t, errors.Is(err, model.ErrItemNotFound))
	})
}

func TestParseFetchMode(t *testing.T) {
	for _, mode := range model.FetchModes {
		parsed, err := model.ParseFetchMode(string(mode))
		gt.NoError(t, err)
		gt.Equal(t, parsed, mode)
	}

	mode, err := model.ParseFetchMode("profile-all")
	gt.NoError(t, err)
	gt.Equal(t, mode, model.FetchModeProfileAll)

	_, err = model.ParseFetchMode("PROFILE")
	gt.True(t, errors.Is(err, model.ErrInvalidInput))
}
