package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/m-mizutani/goerr/v2"
)

// ItemID identifies a video within a fetch result. The backend reports it
// either as a JSON number (profile listings) or as a string.
type ItemID string

// UnmarshalJSON accepts both `"3"` and `3`.
func (id *ItemID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return goerr.Wrap(err, "failed to decode item id as string")
		}
		*id = ItemID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return goerr.Wrap(err, "item id must be a string or a number", goerr.V("raw", string(data)))
	}
	*id = ItemID(n.String())
	return nil
}

func (id ItemID) String() string {
	return string(id)
}

// PositionID converts a 1-based position into an ItemID, used when the backend omits an index.
func PositionID(position int) ItemID {
	return ItemID(strconv.Itoa(position))
}

// DownloadItem is one downloadable video discovered by an info or profile fetch.
// It is never mutated after being decoded from the backend response.
type DownloadItem struct {
	ID        ItemID `json:"index"`
	SourceURL string `json:"url"`
	Title     string `json:"title,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// DisplayTitle returns the title, or "Video <id>" when the backend did not provide one.
func (x DownloadItem) DisplayTitle() string {
	if x.Title != "" {
		return x.Title
	}
	return fmt.Sprintf("Video %s", x.ID)
}

// SourceKind is the discriminant of an info response.
type SourceKind string

const (
	SourceKindSingle   SourceKind = "single"
	SourceKindPlaylist SourceKind = "playlist"
)

// FetchMode selects which backend endpoint resolves the user supplied link.
type FetchMode string

const (
	FetchModeProfile  FetchMode = "profile"
	FetchModeInfo     FetchMode = "info"
	FetchModeYouTube  FetchMode = "youtube"
	FetchModePlaylist FetchMode = "playlist"

	// FetchModeProfileAll scrapes the whole profile instead of the first page
	FetchModeProfileAll FetchMode = "profile-all"
)

// FetchModes lists every supported mode, in the order shown by the CLI help.
var FetchModes = []FetchMode{
	FetchModeProfile,
	FetchModeInfo,
	FetchModeYouTube,
	FetchModePlaylist,
	FetchModeProfileAll,
}

// ParseFetchMode validates a user supplied mode name.
func ParseFetchMode(s string) (FetchMode, error) {
	for _, m := range FetchModes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", goerr.Wrap(ErrInvalidInput, "unknown fetch mode", goerr.V("mode", s))
}

// FetchRequest is what the user asks for: a link, how to resolve it, and how many items to keep.
type FetchRequest struct {
	Mode  FetchMode `json:"mode"`
	URL   string    `json:"url"`
	Limit int       `json:"limit"` // 0 keeps every item
}

// FetchResult is the parsed backend answer for a FetchRequest.
type FetchResult struct {
	Kind    SourceKind     `json:"kind"`
	Profile string         `json:"profile"`
	Title   string         `json:"title,omitempty"`
	Items   []DownloadItem `json:"items"`
}

// Limit returns a copy of the result holding at most n items. n <= 0 keeps all.
func (x *FetchResult) Limit(n int) *FetchResult {
	items := x.Items
	if n > 0 && n < len(items) {
		items = items[:n]
	}

	copied := make([]DownloadItem, len(items))
	copy(copied, items)

	return &FetchResult{
		Kind:    x.Kind,
		Profile: x.Profile,
		Title:   x.Title,
		Items:   copied,
	}
}

// Find returns the item with the given ID.
func (x *FetchResult) Find(id ItemID) (DownloadItem, bool) {
	for _, item := range x.Items {
		if item.ID == id {
			return item, true
		}
	}
	return DownloadItem{}, false
}

// Select returns the items with the given IDs in listing order. No IDs selects every item.
func (x *FetchResult) Select(ids ...ItemID) ([]DownloadItem, error) {
	if len(ids) == 0 {
		return append([]DownloadItem{}, x.Items...), nil
	}

	wanted := make(map[ItemID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := x.Find(id); !ok {
			return nil, goerr.Wrap(ErrItemNotFound, "video is not in the session", goerr.V("id", id))
		}
		wanted[id] = struct{}{}
	}

	selected := make([]DownloadItem, 0, len(wanted))
	for _, item := range x.Items {
		if _, ok := wanted[item.ID]; ok {
			selected = append(selected, item)
		}
	}
	return selected, nil
}
