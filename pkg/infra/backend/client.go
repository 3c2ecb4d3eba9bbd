package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reelpull/pkg/domain/interfaces"
	"github.com/m-mizutani/reelpull/pkg/domain/model"
	"github.com/m-mizutani/reelpull/pkg/domain/types"
	"github.com/m-mizutani/reelpull/pkg/utils/logging"
)

// maxErrorBody bounds how much of a failed response is read for diagnostics
const maxErrorBody = 4096

type client struct {
	baseURL    *url.URL
	httpClient *http.Client
	token      string
	userAgent  string
}

// Option is a functional option for the backend client
type Option func(*client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(x *client) {
		x.httpClient = c
	}
}

// WithTimeout sets the timeout of every info/profile request
func WithTimeout(d time.Duration) Option {
	return func(x *client) {
		hc := *x.httpClient
		hc.Timeout = d
		x.httpClient = &hc
	}
}

// WithToken sends token as a bearer credential
func WithToken(token string) Option {
	return func(x *client) {
		x.token = token
	}
}

// NewClient creates a client for the downloader backend at baseURL
func NewClient(baseURL string, opts ...Option) (interfaces.BackendClient, error) {
	parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse backend URL", goerr.V("url", baseURL))
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, goerr.Wrap(model.ErrInvalidInput, "backend URL must be http or https", goerr.V("url", baseURL))
	}

	c := &client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		userAgent:  types.ServiceName + "/" + types.Version,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// infoResponse is the common payload of /profile, /info and the YouTube endpoints
type infoResponse struct {
	Type      string               `json:"type"`
	Profile   string               `json:"profile"`
	Title     string               `json:"title"`
	URL       string               `json:"url"`
	Thumbnail string               `json:"thumbnail"`
	Videos    []model.DownloadItem `json:"videos"`
	Error     string               `json:"error"`
	Detail    string               `json:"detail"`
}

// Profile lists the videos of a TikTok profile
func (c *client) Profile(ctx context.Context, profileURL string) (*model.FetchResult, error) {
	resp, err := c.getInfo(ctx, "/profile", url.Values{"profile_url": {profileURL}})
	if err != nil {
		return nil, err
	}
	return resp.toResult(model.SourceKindPlaylist, profileURL), nil
}

// Info resolves a single video or playlist link
func (c *client) Info(ctx context.Context, videoURL string) (*model.FetchResult, error) {
	resp, err := c.getInfo(ctx, "/info", url.Values{"url": {videoURL}})
	if err != nil {
		return nil, err
	}
	return resp.toResult("", videoURL), nil
}

// YouTubeInfo resolves a YouTube video link
func (c *client) YouTubeInfo(ctx context.Context, videoURL string) (*model.FetchResult, error) {
	resp, err := c.getInfo(ctx, "/youtube/info", url.Values{"url": {videoURL}})
	if err != nil {
		return nil, err
	}
	return resp.toResult("", videoURL), nil
}

// YouTubePlaylist lists the videos of a YouTube playlist
func (c *client) YouTubePlaylist(ctx context.Context, playlistURL string) (*model.FetchResult, error) {
	resp, err := c.getInfo(ctx, "/youtube/playlist", url.Values{"url": {playlistURL}})
	if err != nil {
		return nil, err
	}
	return resp.toResult(model.SourceKindPlaylist, playlistURL), nil
}

// DownloadURL builds the download endpoint URL for one video
func (c *client) DownloadURL(req model.DownloadRequest) string {
	quality := req.Quality
	if quality == "" {
		quality = types.DefaultQuality
	}
	index := req.Index
	if index == "" {
		index = model.PositionID(1)
	}

	u := c.endpoint("/download")
	u.RawQuery = url.Values{
		"url":     {req.SourceURL},
		"index":   {index.String()},
		"profile": {req.Profile},
		"quality": {quality},
	}.Encode()
	return u.String()
}

// ProfileAll scrapes every video of a TikTok profile. The backend pauses
// sleep between pages, so the request runs without the per-request timeout.
func (c *client) ProfileAll(ctx context.Context, profileURL string, sleep time.Duration) (*model.FetchResult, error) {
	const path = "/profile/all"

	resp, err := c.postJSON(ctx, path, map[string]any{
		"profile_url":   profileURL,
		"sleep_seconds": sleepSeconds(sleep),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, path)
	}

	var data profileAllResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, goerr.Wrap(model.ErrSourceUnavailable, "failed to decode backend response",
			goerr.V("endpoint", path),
			goerr.V("cause", err.Error()),
		)
	}
	if msg := data.errorMessage(); msg != "" {
		return nil, goerr.Wrap(model.ErrSourceUnavailable, "backend reported an error",
			goerr.V("endpoint", path),
			goerr.V("message", msg),
		)
	}

	info, err := data.toInfo()
	if err != nil {
		return nil, goerr.Wrap(model.ErrSourceUnavailable, "failed to decode profile listing",
			goerr.V("endpoint", path),
			goerr.V("cause", err.Error()),
		)
	}

	if info.Profile == "" {
		info.Profile = profileHandle(profileURL)
	}

	logging.From(ctx).Debug("profile scraped",
		"total_videos", data.TotalVideos,
		"listed", len(info.Videos),
	)
	return info.toResult(model.SourceKindPlaylist, profileURL), nil
}

// Zip streams a ZIP archive of the given videos into w
func (c *client) Zip(ctx context.Context, urls []string, quality string, w io.Writer) (int64, error) {
	resp, err := c.postJSON(ctx, "/zip", map[string]any{
		"urls":    urls,
		"quality": quality,
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, statusError(resp, "/zip")
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, goerr.Wrap(err, "failed to read zip archive", goerr.V("bytes", n))
	}
	return n, nil
}

// postJSON sends a JSON body to one of the long running endpoints. Scrapes and
// archives of large profiles take minutes, so the per-request timeout does not apply.
func (c *client) postJSON(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode request", goerr.V("endpoint", path))
	}

	u := c.endpoint(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create request", goerr.V("endpoint", path))
	}
	req.Header.Set("Content-Type", "application/json")
	c.decorate(req)

	httpClient := *c.httpClient
	httpClient.Timeout = 0

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(model.ErrSourceUnavailable, "backend request failed",
			goerr.V("endpoint", path),
			goerr.V("cause", err.Error()),
		)
	}
	return resp, nil
}

func (c *client) endpoint(path string) *url.URL {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = ""
	return &u
}

func (c *client) decorate(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *client) getInfo(ctx context.Context, path string, query url.Values) (*infoResponse, error) {
	logger := logging.From(ctx)

	u := c.endpoint(path)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create request", goerr.V("endpoint", path))
	}
	req.Header.Set("Accept", "application/json")
	c.decorate(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(model.ErrSourceUnavailable, "backend request failed",
			goerr.V("endpoint", path),
			goerr.V("cause", err.Error()),
		)
	}
	defer resp.Body.Close()

	logger.Debug("backend responded",
		"endpoint", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp, path)
	}

	var data infoResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, goerr.Wrap(model.ErrSourceUnavailable, "failed to decode backend response",
			goerr.V("endpoint", path),
			goerr.V("cause", err.Error()),
		)
	}

	if msg := data.errorMessage(); msg != "" {
		return nil, goerr.Wrap(model.ErrSourceUnavailable, "backend reported an error",
			goerr.V("endpoint", path),
			goerr.V("message", msg),
		)
	}

	return &data, nil
}

func statusError(resp *http.Response, path string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload infoResponse
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &payload) == nil && payload.errorMessage() != "" {
		msg = payload.errorMessage()
	}

	return goerr.Wrap(model.ErrSourceUnavailable, "unexpected status from backend",
		goerr.V("endpoint", path),
		goerr.V("status", resp.StatusCode),
		goerr.V("message", msg),
	)
}

// profileAllResponse is the payload of /profile/all. videos holds either
// plain links or the same objects /profile returns.
type profileAllResponse struct {
	Profile     string            `json:"profile"`
	Videos      []json.RawMessage `json:"videos"`
	TotalVideos int               `json:"total_videos"`
	Error       string            `json:"error"`
	Detail      string            `json:"detail"`
}

func (x *profileAllResponse) errorMessage() string {
	if x.Error != "" {
		return x.Error
	}
	return x.Detail
}

func (x *profileAllResponse) toInfo() (*infoResponse, error) {
	info := &infoResponse{
		Type:    string(model.SourceKindPlaylist),
		Profile: x.Profile,
		Videos:  make([]model.DownloadItem, 0, len(x.Videos)),
	}
	for i, raw := range x.Videos {
		var link string
		if json.Unmarshal(raw, &link) == nil {
			info.Videos = append(info.Videos, model.DownloadItem{
				ID:        model.PositionID(i + 1),
				SourceURL: link,
			})
			continue
		}

		var item model.DownloadItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, goerr.Wrap(err, "unexpected video entry", goerr.V("position", i+1))
		}
		info.Videos = append(info.Videos, item)
	}
	return info, nil
}

// profileHandle extracts "someone" from https://www.tiktok.com/@someone
func profileHandle(profileURL string) string {
	u, err := url.Parse(profileURL)
	if err != nil {
		return ""
	}
	for _, part := range strings.Split(u.Path, "/") {
		if name, ok := strings.CutPrefix(part, "@"); ok && name != "" {
			return name
		}
	}
	return ""
}

// sleepSeconds converts the pacing delay to the whole seconds the backend expects
func sleepSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

func (x *infoResponse) errorMessage() string {
	if x.Error != "" {
		return x.Error
	}
	return x.Detail
}

// toResult converts the payload. kind overrides the response discriminant
// when the endpoint always returns a listing.
func (x *infoResponse) toResult(kind model.SourceKind, requested string) *model.FetchResult {
	if kind == "" {
		switch model.SourceKind(strings.ToLower(x.Type)) {
		case model.SourceKindSingle:
			kind = model.SourceKindSingle
		case model.SourceKindPlaylist, "profile":
			kind = model.SourceKindPlaylist
		default:
			if len(x.Videos) > 1 {
				kind = model.SourceKindPlaylist
			} else {
				kind = model.SourceKindSingle
			}
		}
	}

	items := make([]model.DownloadItem, 0, len(x.Videos))
	for i, v := range x.Videos {
		if v.SourceURL == "" {
			continue
		}
		if v.ID == "" {
			v.ID = model.PositionID(i + 1)
		}
		items = append(items, v)
	}

	// Single video answers may describe the video at the top level instead of in a list
	if len(items) == 0 && kind == model.SourceKindSingle {
		src := x.URL
		if src == "" {
			src = requested
		}
		items = append(items, model.DownloadItem{
			ID:        model.PositionID(1),
			SourceURL: src,
			Title:     x.Title,
			Thumbnail: x.Thumbnail,
		})
	}

	return &model.FetchResult{
		Kind:    kind,
		Profile: x.Profile,
		Title:   x.Title,
		Items:   items,
	}
}
