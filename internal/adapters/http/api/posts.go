package api

import (
	"context"
	"errors"
	"net/http"

	repository "github.com/okian/postboard/internal/adapters/repository"
	"github.com/okian/postboard/internal/domain/model"
)

// PostDependencies defines the store operations used by post routes.
type PostDependencies interface {
	GetPost(ctx context.Context, id int64) (model.Post, error)
	CreatePost(ctx context.Context, in model.NewPost) (model.Post, error)
	PublishPost(ctx context.Context, id int64) (model.Post, error)
	DeletePost(ctx context.Context, id int64) (model.Post, error)
}

// PostsHandler handles post requests.
type PostsHandler struct {
	deps         PostDependencies
	maxBodyBytes int64
}

// NewPostsHandler creates a new posts handler.
func NewPostsHandler(deps PostDependencies, maxBodyBytes int64) *PostsHandler {
	return &PostsHandler{deps: deps, maxBodyBytes: maxBodyBytes}
}

// HandleGetPost handles GET /post/{id} requests. A missing post is answered
// with 200 and a JSON null body.
func (h *PostsHandler) HandleGetPost(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_post"
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}

	post, err := h.deps.GetPost(r.Context(), id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusOK, nil)
	case err != nil:
		writeError(w, r, Wrap(op, err))
	default:
		writeJSON(w, http.StatusOK, post)
	}
}

// HandleCreatePost handles POST /post requests.
func (h *PostsHandler) HandleCreatePost(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_post"
	var req createPostRequest
	if err := decodeBody(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}

	post, err := h.deps.CreatePost(r.Context(), model.NewPost{
		Title:       req.Title,
		Content:     req.Content,
		AuthorEmail: req.AuthorEmail,
	})
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandlePublishPost handles PUT /post/publish/{id} requests.
func (h *PostsHandler) HandlePublishPost(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "api.publish_post", h.deps.PublishPost)
}

// HandleDeletePost handles DELETE /post/{id} requests.
func (h *PostsHandler) HandleDeletePost(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "api.delete_post", h.deps.DeletePost)
}

func (h *PostsHandler) mutate(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, int64) (model.Post, error)) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	post, err := fn(r.Context(), id)
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, post)
}
