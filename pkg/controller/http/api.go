package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reelpull/pkg/domain/interfaces"
	"github.com/m-mizutani/reelpull/pkg/domain/model"
	"github.com/m-mizutani/reelpull/pkg/utils/async"
	"github.com/m-mizutani/reelpull/pkg/utils/logging"
)

// maxBodySize limits JSON request bodies
const maxBodySize = 64 * 1024

// SessionHandler exposes the download session as a JSON API
type SessionHandler struct {
	sessionUC interfaces.SessionUseCase
	group     *async.Group
}

// NewSessionHandler creates a new SessionHandler. Batches started through
// DownloadAll run in group.
func NewSessionHandler(sessionUC interfaces.SessionUseCase, group *async.Group) *SessionHandler {
	return &SessionHandler{
		sessionUC: sessionUC,
		group:     group,
	}
}

type singleRequest struct {
	URL string `json:"url"`
}

type acceptedResponse struct {
	Status string `json:"status"`
}

type cancelResponse struct {
	Canceled bool `json:"canceled"`
}

// GetSession returns the current session state
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, h.sessionUC.Snapshot())
}

// Fetch resolves a link and replaces the session content
func (h *SessionHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.FetchRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(ctx, w, err)
		return
	}
	if req.Mode != "" {
		mode, err := model.ParseFetchMode(string(req.Mode))
		if err != nil {
			h.fail(ctx, w, err)
			return
		}
		req.Mode = mode
	}

	result, err := h.sessionUC.Fetch(ctx, req)
	if err != nil {
		h.fail(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, result)
}

// DownloadAll claims the paced batch, runs it in the background and returns immediately.
// Only the request that wins the claim gets 202.
func (h *SessionHandler) DownloadAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	run, err := h.sessionUC.Begin(ctx)
	if err != nil {
		h.fail(ctx, w, err)
		return
	}

	h.group.Go(ctx, func(ctx context.Context) error {
		result, err := run(ctx, nil)
		if err != nil {
			return goerr.Wrap(err, "background download failed")
		}
		logging.From(ctx).Info("Background download finished",
			"run_id", result.RunID,
			"dispatched", result.Dispatched,
			"failed", len(result.Failures),
			"canceled", result.Canceled,
		)
		return nil
	})

	writeJSON(ctx, w, http.StatusAccepted, &acceptedResponse{Status: "started"})
}

// DownloadOne triggers one item of the session
func (h *SessionHandler) DownloadOne(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := model.ItemID(chi.URLParam(r, "id"))

	if err := h.sessionUC.DownloadOne(ctx, id); err != nil {
		h.fail(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusAccepted, &acceptedResponse{Status: "triggered"})
}

// DownloadSingle triggers a video link without fetching it first
func (h *SessionHandler) DownloadSingle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req singleRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(ctx, w, err)
		return
	}
	if err := h.sessionUC.DownloadSingle(ctx, req.URL); err != nil {
		h.fail(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusAccepted, &acceptedResponse{Status: "triggered"})
}

// Cancel stops the running batch before its next item
func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, &cancelResponse{Canceled: h.sessionUC.Cancel()})
}

// Wait blocks until background batches have finished
func (h *SessionHandler) Wait() {
	h.group.Wait()
}

func (h *SessionHandler) fail(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusFromError(err)
	if status >= http.StatusInternalServerError {
		logging.From(ctx).Error("Request failed", "error", err)
	} else {
		logging.From(ctx).Warn("Request rejected", "error", err, "status", status)
	}
	writeError(w, err, status)
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()

	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		return goerr.Wrap(model.ErrInvalidInput, "invalid request body", goerr.V("error", err.Error()))
	}
	return nil
}
