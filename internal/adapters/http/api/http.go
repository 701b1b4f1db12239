// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/postboard/internal/domain/model"
	"github.com/okian/postboard/pkg/logger"
	"github.com/okian/postboard/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultMaxBodyBytes caps request bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	UserDependencies
	PostDependencies
	FeedDependencies
	HealthDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	usersHandler  *UsersHandler
	postsHandler  *PostsHandler
	feedHandler   *FeedHandler
	healthHandler *HealthHandler
	statsHandler  *StatsHandler

	log logger.Logger
}

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	maxBodyBytes int64
	log          logger.Logger
}

// WithMaxBodyBytes caps the size of accepted request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(o *serverOptions) {
		if n > 0 {
			o.maxBodyBytes = n
		}
	}
}

// WithLogger sets the logger used by the middleware chain.
func WithLogger(l logger.Logger) Option {
	return func(o *serverOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	o := serverOptions{maxBodyBytes: DefaultMaxBodyBytes}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Named("http")
	}

	return &Server{
		usersHandler:  NewUsersHandler(deps, o.maxBodyBytes),
		postsHandler:  NewPostsHandler(deps, o.maxBodyBytes),
		feedHandler:   NewFeedHandler(deps),
		healthHandler: NewHealthHandler(deps),
		statsHandler:  NewStatsHandler(statsProvider),
		log:           o.log,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.Handle("GET /users", s.route("users", s.usersHandler.HandleListUsers))
	mux.Handle("POST /user", s.route("user_create", s.usersHandler.HandleCreateUser))
	mux.Handle("GET /feed", s.route("feed", s.feedHandler.HandleFeed))
	mux.Handle("GET /post/{id}", s.route("post_get", s.postsHandler.HandleGetPost))
	mux.Handle("POST /post", s.route("post_create", s.postsHandler.HandleCreatePost))
	mux.Handle("PUT /post/publish/{id}", s.route("post_publish", s.postsHandler.HandlePublishPost))
	mux.Handle("DELETE /post/{id}", s.route("post_delete", s.postsHandler.HandleDeletePost))

	mux.Handle("GET /healthz", s.route("healthz", s.healthHandler.HandleHealth))
	mux.Handle("GET /stats", s.route("stats", s.statsHandler.HandleStats))
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
}

// route wraps a handler with the standard middleware chain.
func (s *Server) route(endpoint string, h http.HandlerFunc) http.Handler {
	return RequestIDMiddleware(
		AccessLogMiddleware(
			MetricsMiddleware(
				RecoverMiddleware(h, s.log),
				endpoint,
			),
			s.log, endpoint,
		),
	)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type statusResponse struct {
	Status string `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to its status and writes the JSON error body. The full
// error chain goes to the log only.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	log := logger.Get()
	if status >= http.StatusInternalServerError {
		log.Error(r.Context(), "request error", logger.String("code", code), logger.Error(err))
	} else {
		log.Debug(r.Context(), "request error", logger.String("code", code), logger.Error(err))
	}
	writeJSON(w, status, errorResponse{Code: code, Message: publicMessage(status, err)})
}

func nonNilUsers(users []model.User) []model.User {
	if users == nil {
		return []model.User{}
	}
	return users
}

func nonNilPosts(posts []model.Post) []model.Post {
	if posts == nil {
		return []model.Post{}
	}
	return posts
}
