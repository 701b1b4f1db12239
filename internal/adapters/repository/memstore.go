package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/okian/postboard/internal/domain/model"
)

// MemoryStore is an in-memory Store with the same observable semantics as
// GormStore: store-assigned ids, unique e-mails and author resolution by
// e-mail. Returned values never alias internal state.
type MemoryStore struct {
	mu sync.RWMutex

	users   map[int64]model.User
	byEmail map[string]int64
	posts   map[int64]model.Post

	nextUserID int64
	nextPostID int64
	closed     bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[int64]model.User),
		byEmail: make(map[string]int64),
		posts:   make(map[int64]model.Post),
	}
}

func (s *MemoryStore) checkOpen(op string) error {
	if s.closed {
		return &Error{Op: op, Kind: ErrConnection, Err: fmt.Errorf("store closed")}
	}
	return nil
}

// ListUsers implements Store.
func (s *MemoryStore) ListUsers(ctx context.Context) ([]model.User, error) {
	const op = "repository.list_users"
	if err := ctx.Err(); err != nil {
		return nil, classify(op, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(op); err != nil {
		return nil, err
	}

	users := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, copyUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// CreateUser implements Store.
func (s *MemoryStore) CreateUser(ctx context.Context, in model.NewUser) (model.User, error) {
	const op = "repository.create_user"
	if err := ctx.Err(); err != nil {
		return model.User{}, classify(op, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(op); err != nil {
		return model.User{}, err
	}

	if _, taken := s.byEmail[in.Email]; taken {
		return model.User{}, &Error{Op: op, Kind: ErrConstraint, Err: fmt.Errorf("email %q already registered", in.Email)}
	}
	s.nextUserID++
	u := model.User{ID: s.nextUserID, Email: in.Email, Name: copyString(in.Name)}
	s.users[u.ID] = u
	s.byEmail[u.Email] = u.ID
	return copyUser(u), nil
}

// ListPublishedPosts implements Store.
func (s *MemoryStore) ListPublishedPosts(ctx context.Context) ([]model.Post, error) {
	const op = "repository.list_published_posts"
	if err := ctx.Err(); err != nil {
		return nil, classify(op, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(op); err != nil {
		return nil, err
	}

	posts := make([]model.Post, 0)
	for _, p := range s.posts {
		if !p.Published {
			continue
		}
		cp := copyPost(p)
		if author, ok := s.users[p.AuthorID]; ok {
			a := copyUser(author)
			cp.Author = &a
		}
		posts = append(posts, cp)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].ID < posts[j].ID })
	return posts, nil
}

// GetPost implements Store.
func (s *MemoryStore) GetPost(ctx context.Context, id int64) (model.Post, error) {
	const op = "repository.get_post"
	if err := ctx.Err(); err != nil {
		return model.Post{}, classify(op, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(op); err != nil {
		return model.Post{}, err
	}

	p, ok := s.posts[id]
	if !ok {
		return model.Post{}, &Error{Op: op, Kind: ErrNotFound}
	}
	return copyPost(p), nil
}

// CreatePost implements Store.
func (s *MemoryStore) CreatePost(ctx context.Context, in model.NewPost) (model.Post, error) {
	const op = "repository.create_post"
	if err := ctx.Err(); err != nil {
		return model.Post{}, classify(op, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(op); err != nil {
		return model.Post{}, err
	}

	authorID, ok := s.byEmail[in.AuthorEmail]
	if !ok {
		return model.Post{}, &Error{Op: op, Kind: ErrConstraint, Err: fmt.Errorf("no user with email %q", in.AuthorEmail)}
	}
	s.nextPostID++
	p := model.Post{
		ID:        s.nextPostID,
		Title:     in.Title,
		Content:   copyString(in.Content),
		Published: false,
		AuthorID:  authorID,
	}
	s.posts[p.ID] = p
	return copyPost(p), nil
}

// PublishPost implements Store.
func (s *MemoryStore) PublishPost(ctx context.Context, id int64) (model.Post, error) {
	const op = "repository.publish_post"
	if err := ctx.Err(); err != nil {
		return model.Post{}, classify(op, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(op); err != nil {
		return model.Post{}, err
	}

	p, ok := s.posts[id]
	if !ok {
		return model.Post{}, &Error{Op: op, Kind: ErrNotFound}
	}
	p.Published = true
	s.posts[id] = p
	return copyPost(p), nil
}

// DeletePost implements Store.
func (s *MemoryStore) DeletePost(ctx context.Context, id int64) (model.Post, error) {
	const op = "repository.delete_post"
	if err := ctx.Err(); err != nil {
		return model.Post{}, classify(op, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(op); err != nil {
		return model.Post{}, err
	}

	p, ok := s.posts[id]
	if !ok {
		return model.Post{}, &Error{Op: op, Kind: ErrNotFound}
	}
	delete(s.posts, id)
	return copyPost(p), nil
}

// Counts implements Store.
func (s *MemoryStore) Counts(ctx context.Context) (model.Counts, error) {
	const op = "repository.counts"
	if err := ctx.Err(); err != nil {
		return model.Counts{}, classify(op, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(op); err != nil {
		return model.Counts{}, err
	}

	c := model.Counts{Users: int64(len(s.users)), Posts: int64(len(s.posts))}
	for _, p := range s.posts {
		if p.Published {
			c.PublishedPosts++
		}
	}
	return c, nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkOpen("repository.ping")
}

// Close implements Store. Calls after Close fail with ErrConnection.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyUser(u model.User) model.User {
	u.Name = copyString(u.Name)
	return u
}

func copyPost(p model.Post) model.Post {
	p.Content = copyString(p.Content)
	p.Author = nil
	return p
}
