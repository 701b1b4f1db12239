package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/postboard/internal/domain/model"
	"github.com/okian/postboard/pkg/logger"
)

// Dialect names accepted by Open.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

const defaultConnectBackoff = 100 * time.Millisecond

// userRow and postRow are the persisted shapes of model.User and model.Post.
type userRow struct {
	ID    int64   `gorm:"primaryKey;autoIncrement"`
	Email string  `gorm:"uniqueIndex;not null"`
	Name  *string `gorm:"size:255"`
}

func (userRow) TableName() string { return "users" }

type postRow struct {
	ID        int64    `gorm:"primaryKey;autoIncrement"`
	Title     string   `gorm:"not null"`
	Content   *string  `gorm:"type:text"`
	Published bool     `gorm:"not null;default:false;index"`
	AuthorID  int64    `gorm:"not null;index"`
	Author    *userRow `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (postRow) TableName() string { return "posts" }

func (r userRow) toModel() model.User {
	return model.User{ID: r.ID, Email: r.Email, Name: r.Name}
}

func (r postRow) toModel() model.Post {
	p := model.Post{
		ID:        r.ID,
		Title:     r.Title,
		Content:   r.Content,
		Published: r.Published,
		AuthorID:  r.AuthorID,
	}
	if r.Author != nil {
		u := r.Author.toModel()
		p.Author = &u
	}
	return p
}

// GormStore implements Store on a relational database through GORM.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)
var _ Migrator = (*GormStore)(nil)

// Open connects to a SQLite or PostgreSQL database and verifies the
// connection, retrying the ping when WithConnectRetry is given.
func Open(ctx context.Context, dialect, dsn string, opts ...Option) (*GormStore, error) {
	const op = "repository.open"

	o := openOptions{connectBackoff: defaultConnectBackoff}
	for _, opt := range opts {
		opt(&o)
	}

	var dialector gorm.Dialector
	switch dialect {
	case DialectSQLite:
		dialector = sqlite.Open(dsn)
		// SQLite admits one writer at a time and each connection to an
		// in-memory database sees a separate database. A single connection
		// queues concurrent calls in database/sql instead of failing them
		// with "database is locked".
		o.maxOpenConns = 1
	case DialectPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%s: unsupported dialect %q", op, dialect)
	}

	gcfg := &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Discard,
	}
	if o.logger != nil {
		gcfg.Logger = logger.NewGormLogger(o.logger, o.slowQuery)
	}

	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, classify(op, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, classify(op, err)
	}
	if o.maxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(o.maxOpenConns)
	}
	if o.maxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(o.maxIdleConns)
	}

	s := &GormStore{db: db}

	backoff := retry.WithMaxRetries(uint64(o.connectRetries), retry.NewExponential(o.connectBackoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := sqlDB.PingContext(ctx); err != nil {
			if o.logger != nil {
				o.logger.Warn(ctx, "store ping failed", logger.String("dialect", dialect), logger.Error(err))
			}
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, &Error{Op: op, Kind: ErrConnection, Err: err}
	}

	return s, nil
}

// NewGormStore wraps an already opened *gorm.DB.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the users and posts tables.
func (s *GormStore) Migrate(ctx context.Context) error {
	return classify("repository.migrate", s.db.WithContext(ctx).AutoMigrate(&userRow{}, &postRow{}))
}

// ListUsers implements Store.
func (s *GormStore) ListUsers(ctx context.Context) ([]model.User, error) {
	var rows []userRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, classify("repository.list_users", err)
	}
	users := make([]model.User, len(rows))
	for i, r := range rows {
		users[i] = r.toModel()
	}
	return users, nil
}

// CreateUser implements Store.
func (s *GormStore) CreateUser(ctx context.Context, in model.NewUser) (model.User, error) {
	row := userRow{Email: in.Email, Name: in.Name}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.User{}, classify("repository.create_user", err)
	}
	return row.toModel(), nil
}

// ListPublishedPosts implements Store.
func (s *GormStore) ListPublishedPosts(ctx context.Context) ([]model.Post, error) {
	var rows []postRow
	err := s.db.WithContext(ctx).
		Preload("Author").
		Where("published = ?", true).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, classify("repository.list_published_posts", err)
	}
	posts := make([]model.Post, len(rows))
	for i, r := range rows {
		posts[i] = r.toModel()
	}
	return posts, nil
}

// GetPost implements Store.
func (s *GormStore) GetPost(ctx context.Context, id int64) (model.Post, error) {
	var row postRow
	if err := s.db.WithContext(ctx).Take(&row, id).Error; err != nil {
		return model.Post{}, classify("repository.get_post", err)
	}
	return row.toModel(), nil
}

// CreatePost implements Store. The author lookup and the insert run in one
// transaction so a missing author leaves no partial state.
func (s *GormStore) CreatePost(ctx context.Context, in model.NewPost) (model.Post, error) {
	const op = "repository.create_post"
	var row postRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var author userRow
		if err := tx.Where("email = ?", in.AuthorEmail).Take(&author).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &Error{Op: op, Kind: ErrConstraint, Err: fmt.Errorf("no user with email %q", in.AuthorEmail)}
			}
			return err
		}
		row = postRow{
			Title:     in.Title,
			Content:   in.Content,
			Published: false,
			AuthorID:  author.ID,
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return model.Post{}, classify(op, err)
	}
	return row.toModel(), nil
}

// PublishPost implements Store.
func (s *GormStore) PublishPost(ctx context.Context, id int64) (model.Post, error) {
	var row postRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&row, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&row).Update("published", true).Error; err != nil {
			return err
		}
		row.Published = true
		return nil
	})
	if err != nil {
		return model.Post{}, classify("repository.publish_post", err)
	}
	return row.toModel(), nil
}

// DeletePost implements Store.
func (s *GormStore) DeletePost(ctx context.Context, id int64) (model.Post, error) {
	var row postRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&row, id).Error; err != nil {
			return err
		}
		return tx.Delete(&postRow{}, id).Error
	})
	if err != nil {
		return model.Post{}, classify("repository.delete_post", err)
	}
	return row.toModel(), nil
}

// Counts implements Store.
func (s *GormStore) Counts(ctx context.Context) (model.Counts, error) {
	const op = "repository.counts"
	var c model.Counts
	db := s.db.WithContext(ctx)
	if err := db.Model(&userRow{}).Count(&c.Users).Error; err != nil {
		return model.Counts{}, classify(op, err)
	}
	if err := db.Model(&postRow{}).Count(&c.Posts).Error; err != nil {
		return model.Counts{}, classify(op, err)
	}
	if err := db.Model(&postRow{}).Where("published = ?", true).Count(&c.PublishedPosts).Error; err != nil {
		return model.Counts{}, classify(op, err)
	}
	return c, nil
}

// Ping implements Store.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return classify("repository.ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return &Error{Op: "repository.ping", Kind: ErrConnection, Err: err}
	}
	return nil
}

// Close implements Store.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
