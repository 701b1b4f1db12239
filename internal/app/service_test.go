package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	repository "github.com/okian/postboard/internal/adapters/repository"
	service "github.com/okian/postboard/internal/app"
	"github.com/okian/postboard/internal/domain/model"
	"github.com/okian/postboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func strptr(s string) *string { return &s }

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should report the memory driver", func() {
			So(svc, ShouldNotBeNil)
			So(svc.GetStats()["driver"], ShouldEqual, service.DriverMemory)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithDriver(service.DriverSQLite, "file::memory:?_foreign_keys=on"),
			service.WithQueryTimeout(time.Second),
			service.WithConnectRetry(1, 10*time.Millisecond),
			service.WithSlowQueryThreshold(50*time.Millisecond),
			service.WithPool(4, 2),
			service.WithStatsInterval(0),
		)

		Convey("Then it should be created successfully", func() {
			So(svc, ShouldNotBeNil)
			So(svc.GetStats()["queryTimeout"], ShouldEqual, "1s")
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()
		// Ensure service is stopped after test
		defer svc.Stop()

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := svc.Start(ctx)

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
			})

			Convey("And it should be marked as started", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["users"], ShouldEqual, int64(0))
			})

			Convey("And starting twice should be a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})
		})
	})

	Convey("Given a service with an unknown driver", t, func() {
		svc := service.New(service.WithDriver("oracle", ""))

		Convey("Then starting should fail", func() {
			err := svc.Start(context.Background())
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "oracle")
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})
}

func TestService_Stop(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := svc.Start(ctx)
		So(err, ShouldBeNil)

		Convey("When stopping the service", func() {
			svc.Stop()

			Convey("Then it should be marked as stopped", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, false)
			})

			Convey("And operations should report an unavailable store", func() {
				_, err := svc.ListUsers(ctx)
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(errors.Is(err, repository.ErrConnection), ShouldBeTrue)
			})

			Convey("And stopping again should be safe", func() {
				So(func() { svc.Stop() }, ShouldNotPanic)
			})
		})
	})
}

func TestService_Operations(t *testing.T) {
	Convey("Given a started service over an injected memory store", t, func() {
		store := repository.NewMemoryStore()
		svc := service.New(service.WithStore(store), service.WithStatsInterval(0))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When creating a user", func() {
			u, err := svc.CreateUser(ctx, model.NewUser{Email: "alice@x.io", Name: strptr("Alice")})

			Convey("Then the user should be listed", func() {
				So(err, ShouldBeNil)
				So(u.ID, ShouldBeGreaterThan, 0)
				users, err := svc.ListUsers(ctx)
				So(err, ShouldBeNil)
				So(users, ShouldHaveLength, 1)
				So(users[0].Email, ShouldEqual, "alice@x.io")
			})

			Convey("And a duplicate email should be a constraint violation", func() {
				_, err := svc.CreateUser(ctx, model.NewUser{Email: "alice@x.io"})
				So(errors.Is(err, repository.ErrConstraint), ShouldBeTrue)
			})
		})

		Convey("When drafting, publishing and deleting a post", func() {
			_, err := svc.CreateUser(ctx, model.NewUser{Email: "bob@x.io"})
			So(err, ShouldBeNil)

			p, err := svc.CreatePost(ctx, model.NewPost{Title: "Hello", AuthorEmail: "bob@x.io"})
			So(err, ShouldBeNil)
			So(p.Published, ShouldBeFalse)

			feed, err := svc.Feed(ctx)
			So(err, ShouldBeNil)
			So(feed, ShouldBeEmpty)

			p, err = svc.PublishPost(ctx, p.ID)
			So(err, ShouldBeNil)
			So(p.Published, ShouldBeTrue)

			Convey("Then the feed should carry the author", func() {
				feed, err := svc.Feed(ctx)
				So(err, ShouldBeNil)
				So(feed, ShouldHaveLength, 1)
				So(feed[0].Author, ShouldNotBeNil)
				So(feed[0].Author.Email, ShouldEqual, "bob@x.io")
			})

			Convey("Then deleting should make the post unreachable", func() {
				deleted, err := svc.DeletePost(ctx, p.ID)
				So(err, ShouldBeNil)
				So(deleted.ID, ShouldEqual, p.ID)

				_, err = svc.GetPost(ctx, p.ID)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

				_, err = svc.DeletePost(ctx, p.ID)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("Then stats should count the entities", func() {
				stats := svc.GetStats()
				So(stats["users"], ShouldEqual, int64(1))
				So(stats["posts"], ShouldEqual, int64(1))
				So(stats["publishedPosts"], ShouldEqual, int64(1))
			})
		})

		Convey("When creating a post for an unknown author", func() {
			_, err := svc.CreatePost(ctx, model.NewPost{Title: "Orphan", AuthorEmail: "ghost@x.io"})

			Convey("Then it should be a constraint violation", func() {
				So(errors.Is(err, repository.ErrConstraint), ShouldBeTrue)
			})
		})

		Convey("When pinging the store", func() {
			So(svc.Ping(ctx), ShouldBeNil)
		})

		Convey("When the store has been closed underneath the service", func() {
			So(store.Close(), ShouldBeNil)

			Convey("Then operations should fail with a connection error", func() {
				_, err := svc.ListUsers(ctx)
				So(errors.Is(err, repository.ErrConnection), ShouldBeTrue)
				So(svc.Ping(ctx), ShouldNotBeNil)
				So(svc.GetStats()["error"], ShouldNotBeNil)
			})
		})
	})
}

func TestService_QueryTimeout(t *testing.T) {
	Convey("Given a service with a query timeout", t, func() {
		svc := service.New(
			service.WithStore(repository.NewMemoryStore()),
			service.WithQueryTimeout(time.Nanosecond),
			service.WithStatsInterval(0),
		)
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		Convey("When the deadline has passed before the call", func() {
			time.Sleep(time.Millisecond)
			_, err := svc.ListUsers(context.Background())

			Convey("Then the call should be reported as a connection failure", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, repository.ErrConnection), ShouldBeTrue)
			})
		})
	})
}

func TestService_GetStats(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()

		Convey("When getting stats before starting", func() {
			stats := svc.GetStats()

			Convey("Then it should return basic stats", func() {
				So(stats, ShouldNotBeNil)
				So(stats["started"], ShouldEqual, false)
				So(stats, ShouldNotContainKey, "users")
			})
		})
	})
}
