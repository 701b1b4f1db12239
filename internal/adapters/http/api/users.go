package api

import (
	"context"
	"net/http"

	"github.com/okian/postboard/internal/domain/model"
)

// UserDependencies defines the store operations used by user routes.
type UserDependencies interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	CreateUser(ctx context.Context, in model.NewUser) (model.User, error)
}

// UsersHandler handles user requests.
type UsersHandler struct {
	deps         UserDependencies
	maxBodyBytes int64
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(deps UserDependencies, maxBodyBytes int64) *UsersHandler {
	return &UsersHandler{deps: deps, maxBodyBytes: maxBodyBytes}
}

// HandleListUsers handles GET /users requests.
func (h *UsersHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_users"
	users, err := h.deps.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, nonNilUsers(users))
}

// HandleCreateUser handles POST /user requests.
func (h *UsersHandler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_user"
	var req createUserRequest
	if err := decodeBody(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}

	user, err := h.deps.CreateUser(r.Context(), model.NewUser{Email: req.Email, Name: req.Name})
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, user)
}
