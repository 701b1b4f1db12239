// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	repository "github.com/okian/postboard/internal/adapters/repository"
	"github.com/okian/postboard/internal/domain/model"
	"github.com/okian/postboard/pkg/logger"
	"github.com/okian/postboard/pkg/metrics"
)

// Store drivers understood by Start.
const (
	DriverSQLite   = repository.DialectSQLite
	DriverPostgres = repository.DialectPostgres
	DriverMemory   = "memory"
)

// ErrNotStarted is returned by operations invoked before Start. It wraps
// repository.ErrConnection so callers map it like any unavailable store.
var ErrNotStarted = fmt.Errorf("service not started: %w", repository.ErrConnection)

// Service owns the store handle and exposes one method per API operation.
type Service struct {
	mu sync.RWMutex

	store    repository.Store
	injected bool

	// Store configuration
	driver         string
	dsn            string
	autoMigrate    bool
	queryTimeout   time.Duration
	connectRetries int
	connectBackoff time.Duration
	slowQuery      time.Duration
	maxOpenConns   int
	maxIdleConns   int

	statsInterval time.Duration

	// State
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore injects an already constructed store. Start then skips opening
// one, and Stop still closes it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
			s.injected = true
		}
	}
}

// WithDriver selects the store driver and its DSN.
func WithDriver(driver, dsn string) Option {
	return func(s *Service) {
		if driver != "" {
			s.driver = driver
			s.dsn = dsn
		}
	}
}

// WithAutoMigrate toggles schema synchronisation on Start.
func WithAutoMigrate(enabled bool) Option {
	return func(s *Service) {
		s.autoMigrate = enabled
	}
}

// WithQueryTimeout bounds every store call. Zero disables the deadline.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.queryTimeout = d
		}
	}
}

// WithConnectRetry configures the startup ping.
func WithConnectRetry(retries int, backoff time.Duration) Option {
	return func(s *Service) {
		if retries >= 0 {
			s.connectRetries = retries
		}
		if backoff > 0 {
			s.connectBackoff = backoff
		}
	}
}

// WithSlowQueryThreshold sets the slow query warning threshold.
func WithSlowQueryThreshold(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.slowQuery = d
		}
	}
}

// WithPool sets database/sql pool limits.
func WithPool(maxOpen, maxIdle int) Option {
	return func(s *Service) {
		s.maxOpenConns = maxOpen
		s.maxIdleConns = maxIdle
	}
}

// WithStatsInterval sets how often entity gauges are refreshed. Zero disables.
func WithStatsInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.statsInterval = d
		}
	}
}

// New constructs a new Service with default configuration: an in-memory
// store, no query timeout and entity gauges refreshed every 10 seconds.
func New(opts ...Option) *Service {
	s := &Service{
		driver:         DriverMemory,
		autoMigrate:    true,
		connectBackoff: 200 * time.Millisecond,
		statsInterval:  10 * time.Second,
		stopCh:         make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens the store, applies the schema and starts background refreshers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting postboard service...", logger.String("driver", s.driverName()))

	if s.store == nil {
		store, err := s.openStore(ctx)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = store
	}

	if migrator, ok := s.store.(repository.Migrator); ok && s.autoMigrate {
		if err := migrator.Migrate(ctx); err != nil {
			if !s.injected {
				_ = s.store.Close()
				s.store = nil
			}
			return fmt.Errorf("migrate store: %w", err)
		}
		s.logger.Info(ctx, "store schema synchronised")
	}

	if s.stopCh == nil {
		s.stopCh = make(chan struct{})
	}
	if s.statsInterval > 0 {
		s.wg.Add(1)
		go s.refreshStats(s.stopCh, s.store)
	}

	s.started = true
	s.logger.Info(ctx, "postboard service started",
		logger.String("driver", s.driverName()),
		logger.Bool("autoMigrate", s.autoMigrate),
		logger.Duration("queryTimeout", s.queryTimeout),
	)

	return nil
}

func (s *Service) driverName() string {
	if s.injected {
		return "injected"
	}
	return s.driver
}

func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	switch s.driver {
	case DriverMemory:
		return repository.NewMemoryStore(), nil
	case DriverSQLite, DriverPostgres:
		return repository.Open(ctx, s.driver, s.dsn,
			repository.WithLogger(s.logger.Named("store")),
			repository.WithSlowQueryThreshold(s.slowQuery),
			repository.WithConnectRetry(s.connectRetries, s.connectBackoff),
			repository.WithPool(s.maxOpenConns, s.maxIdleConns),
		)
	default:
		return nil, fmt.Errorf("unknown store driver %q", s.driver)
	}
}

// Stop stops background work and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping postboard service...")

	select {
	case <-s.stopCh:
		// Channel already closed
	default:
		close(s.stopCh)
	}
	s.wg.Wait()
	s.stopCh = nil

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error(context.Background(), "failed to close store", logger.Error(err))
		}
		s.store = nil
	}

	s.started = false
	s.logger.Info(context.Background(), "postboard service stopped")
}

// refreshStats periodically publishes entity counts as gauges.
func (s *Service) refreshStats(stop <-chan struct{}, store repository.Store) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.statsInterval)
			c, err := store.Counts(ctx)
			cancel()
			if err != nil {
				s.logger.Warn(context.Background(), "failed to refresh entity counts", logger.Error(err))
				continue
			}
			metrics.UpdateEntityCounts(c.Users, c.Posts, c.PublishedPosts)
		}
	}
}

// call runs one store operation with the configured deadline and records
// its latency and outcome.
func call[T any](ctx context.Context, s *Service, op string, fn func(context.Context, repository.Store) (T, error)) (T, error) {
	var zero T

	s.mu.RLock()
	store, timeout, log := s.store, s.queryTimeout, s.logger
	started := s.started
	s.mu.RUnlock()

	if !started || store == nil {
		return zero, fmt.Errorf("%s: %w", op, ErrNotStarted)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := fn(ctx, store)
	metrics.RecordStoreOperation(op, float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		kind := repository.KindOf(err)
		metrics.RecordStoreError(op, kind)
		switch kind {
		case repository.KindNotFound, repository.KindConstraint:
			log.Debug(ctx, "store call rejected", logger.String("op", op), logger.String("kind", kind), logger.Error(err))
		default:
			log.Error(ctx, "store call failed", logger.String("op", op), logger.String("kind", kind), logger.Error(err))
		}
		return zero, err
	}
	return out, nil
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	return call(ctx, s, "list_users", func(ctx context.Context, st repository.Store) ([]model.User, error) {
		return st.ListUsers(ctx)
	})
}

// CreateUser registers a user.
func (s *Service) CreateUser(ctx context.Context, in model.NewUser) (model.User, error) {
	u, err := call(ctx, s, "create_user", func(ctx context.Context, st repository.Store) (model.User, error) {
		return st.CreateUser(ctx, in)
	})
	if err == nil {
		s.logger.Info(ctx, "user created", logger.Int64("userID", u.ID))
	}
	return u, err
}

// Feed returns published posts with their authors.
func (s *Service) Feed(ctx context.Context) ([]model.Post, error) {
	return call(ctx, s, "list_published_posts", func(ctx context.Context, st repository.Store) ([]model.Post, error) {
		return st.ListPublishedPosts(ctx)
	})
}

// GetPost returns a single post; a missing id yields repository.ErrNotFound.
func (s *Service) GetPost(ctx context.Context, id int64) (model.Post, error) {
	return call(ctx, s, "get_post", func(ctx context.Context, st repository.Store) (model.Post, error) {
		return st.GetPost(ctx, id)
	})
}

// CreatePost drafts an unpublished post for the user owning in.AuthorEmail.
func (s *Service) CreatePost(ctx context.Context, in model.NewPost) (model.Post, error) {
	p, err := call(ctx, s, "create_post", func(ctx context.Context, st repository.Store) (model.Post, error) {
		return st.CreatePost(ctx, in)
	})
	if err == nil {
		s.logger.Info(ctx, "post created", logger.Int64("postID", p.ID), logger.Int64("authorID", p.AuthorID))
	}
	return p, err
}

// PublishPost marks a post as published.
func (s *Service) PublishPost(ctx context.Context, id int64) (model.Post, error) {
	p, err := call(ctx, s, "publish_post", func(ctx context.Context, st repository.Store) (model.Post, error) {
		return st.PublishPost(ctx, id)
	})
	if err == nil {
		s.logger.Info(ctx, "post published", logger.Int64("postID", p.ID))
	}
	return p, err
}

// DeletePost removes a post and returns its last state.
func (s *Service) DeletePost(ctx context.Context, id int64) (model.Post, error) {
	p, err := call(ctx, s, "delete_post", func(ctx context.Context, st repository.Store) (model.Post, error) {
		return st.DeletePost(ctx, id)
	})
	if err == nil {
		s.logger.Info(ctx, "post deleted", logger.Int64("postID", p.ID))
	}
	return p, err
}

// Ping checks the store connection.
func (s *Service) Ping(ctx context.Context) error {
	_, err := call(ctx, s, "ping", func(ctx context.Context, st repository.Store) (struct{}, error) {
		return struct{}{}, st.Ping(ctx)
	})
	return err
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	started := s.started
	stats := map[string]interface{}{
		"started":      started,
		"driver":       s.driverName(),
		"autoMigrate":  s.autoMigrate,
		"queryTimeout": s.queryTimeout.String(),
	}
	s.mu.RUnlock()

	if !started {
		return stats
	}

	c, err := call(context.Background(), s, "counts", func(ctx context.Context, st repository.Store) (model.Counts, error) {
		return st.Counts(ctx)
	})
	if err != nil {
		stats["error"] = err.Error()
		return stats
	}
	stats["users"] = c.Users
	stats["posts"] = c.Posts
	stats["publishedPosts"] = c.PublishedPosts
	metrics.UpdateEntityCounts(c.Users, c.Posts, c.PublishedPosts)

	return stats
}
