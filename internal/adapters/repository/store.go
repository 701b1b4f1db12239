// Package repository defines the store client used by the service and its
// GORM and in-memory implementations.
package repository

import (
	"context"

	"github.com/okian/postboard/internal/domain/model"
)

// Store provides create/read/update/delete access to users and posts.
// Implementations are safe for concurrent use.
type Store interface {
	// ListUsers returns every user ordered by id.
	ListUsers(ctx context.Context) ([]model.User, error)
	// CreateUser inserts a user. A duplicate e-mail yields ErrConstraint.
	CreateUser(ctx context.Context, in model.NewUser) (model.User, error)

	// ListPublishedPosts returns published posts ordered by id with Author loaded.
	ListPublishedPosts(ctx context.Context) ([]model.Post, error)
	// GetPost returns the post with id or ErrNotFound.
	GetPost(ctx context.Context, id int64) (model.Post, error)
	// CreatePost inserts an unpublished post authored by the user owning
	// in.AuthorEmail. An unknown e-mail yields ErrConstraint and inserts nothing.
	CreatePost(ctx context.Context, in model.NewPost) (model.Post, error)
	// PublishPost sets published=true and returns the updated post or ErrNotFound.
	PublishPost(ctx context.Context, id int64) (model.Post, error)
	// DeletePost removes the post and returns it as it was before deletion,
	// or ErrNotFound.
	DeletePost(ctx context.Context, id int64) (model.Post, error)

	// Counts returns entity totals.
	Counts(ctx context.Context) (model.Counts, error)
	// Ping checks connectivity.
	Ping(ctx context.Context) error
	// Close releases the underlying connections.
	Close() error
}

// Migrator is implemented by stores that can create their schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}
