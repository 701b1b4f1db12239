package api

import (
	"context"
	"net/http"

	"github.com/okian/postboard/internal/domain/model"
)

// FeedDependencies defines the store operation behind the public feed.
type FeedDependencies interface {
	Feed(ctx context.Context) ([]model.Post, error)
}

// FeedHandler handles feed requests.
type FeedHandler struct {
	deps FeedDependencies
}

// NewFeedHandler creates a new feed handler.
func NewFeedHandler(deps FeedDependencies) *FeedHandler {
	return &FeedHandler{deps: deps}
}

// HandleFeed handles GET /feed requests.
func (h *FeedHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	posts, err := h.deps.Feed(r.Context())
	if err != nil {
		writeError(w, r, Wrap("api.feed", err))
		return
	}
	writeJSON(w, http.StatusOK, nonNilPosts(posts))
}
