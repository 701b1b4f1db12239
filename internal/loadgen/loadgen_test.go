package loadgen

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/postboard/internal/adapters/http/api"
	repository "github.com/okian/postboard/internal/adapters/repository"
	service "github.com/okian/postboard/internal/app"
	"github.com/okian/postboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newTestServer() (*httptest.Server, func()) {
	svc := service.New(service.WithStore(repository.NewMemoryStore()), service.WithStatsInterval(0))
	if err := svc.Start(context.Background()); err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)
	srv := httptest.NewServer(mux)
	return srv, func() {
		srv.Close()
		svc.Stop()
	}
}

func TestRun(t *testing.T) {
	Convey("Given a running postboard server", t, func() {
		srv, stop := newTestServer()
		defer stop()

		cfg := &Config{
			BaseURL:      srv.URL,
			NumUsers:     10,
			PostsPerUser: 3,
			PublishRatio: 0.5,
			DeleteRatio:  0.4,
			Workers:      4,
			Timeout:      5 * time.Second,
		}

		Convey("When running a full load cycle", func() {
			stats, err := Run(context.Background(), cfg)

			Convey("Then every step should succeed", func() {
				So(err, ShouldBeNil)
				So(stats.UsersCreated, ShouldEqual, 10)
				So(stats.PostsCreated, ShouldEqual, 30)
				So(stats.PostsPublished, ShouldEqual, 15)
				So(stats.PostsDeleted, ShouldEqual, 6)
				So(stats.FeedSize, ShouldEqual, 9)
				So(stats.Failures, ShouldEqual, 0)
				So(stats.Requests, ShouldBeGreaterThan, 60)
			})

			Convey("And a second run against the same store should also pass", func() {
				_, err := Run(context.Background(), cfg)
				So(err, ShouldBeNil)
			})
		})
	})

	Convey("Given an invalid configuration", t, func() {
		cases := []struct {
			name string
			cfg  *Config
		}{
			{"nil", nil},
			{"no url", &Config{NumUsers: 1}},
			{"no users", &Config{BaseURL: "http://x"}},
			{"negative posts", &Config{BaseURL: "http://x", NumUsers: 1, PostsPerUser: -1}},
			{"ratio too high", &Config{BaseURL: "http://x", NumUsers: 1, PublishRatio: 1.5}},
		}
		for _, tc := range cases {
			Convey("When the config has "+tc.name, func() {
				_, err := Run(context.Background(), tc.cfg)
				So(err, ShouldNotBeNil)
			})
		}
	})

	Convey("Given an unreachable server", t, func() {
		srv, stop := newTestServer()
		url := srv.URL
		stop()

		Convey("When running", func() {
			_, err := Run(context.Background(), &Config{BaseURL: url, NumUsers: 1, Workers: 1, Timeout: time.Second})

			Convey("Then the health check should fail", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "health check")
			})
		})
	})
}

func TestRunPool(t *testing.T) {
	Convey("Given a worker pool", t, func() {
		Convey("When every job succeeds", func() {
			seen := make([]bool, 50)
			errs := runPool(context.Background(), 8, 50, func(_ context.Context, i int) error {
				seen[i] = true
				return nil
			})

			Convey("Then every index should be visited once without errors", func() {
				for i := range seen {
					So(seen[i], ShouldBeTrue)
					So(errs[i], ShouldBeNil)
				}
			})
		})

		Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			errs := runPool(ctx, 0, 3, func(context.Context, int) error { return nil })

			Convey("Then remaining jobs should report the cancellation", func() {
				for _, err := range errs {
					So(errors.Is(err, context.Canceled), ShouldBeTrue)
				}
			})
		})
	})
}

func TestPick(t *testing.T) {
	Convey("Given a list of ids", t, func() {
		ids := []int64{1, 2, 3, 4}

		So(pick(ids, 0), ShouldBeEmpty)
		So(pick(ids, 0.5), ShouldResemble, []int64{1, 2})
		So(pick(ids, 1), ShouldResemble, ids)
	})
}
