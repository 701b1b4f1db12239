package loadgen

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/okian/postboard/pkg/logger"
)

// Run executes a complete load run against config.BaseURL.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	if err := validate(config); err != nil {
		return nil, err
	}
	stats := &Stats{StartTime: time.Now()}
	log := logger.Named("loadgen")
	c := newClient(config.BaseURL, config.Timeout)
	run := runID()

	log.Info(ctx, "starting postboard load run",
		logger.String("baseURL", config.BaseURL),
		logger.String("run", run),
		logger.Int("users", config.NumUsers),
		logger.Int("postsPerUser", config.PostsPerUser),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
	)

	finish := func(err error) (*Stats, error) {
		stats.EndTime = time.Now()
		stats.Duration = stats.EndTime.Sub(stats.StartTime)
		stats.Requests = c.requests.Load()
		stats.Failures = c.failures.Load()
		displayFinalStats(ctx, log, stats)
		return stats, err
	}

	// Step 1: Check service health
	if err := c.do(ctx, "GET", "/healthz", nil, nil); err != nil {
		return finish(fmt.Errorf("service health check failed: %w", err))
	}

	// Step 2: Create users
	userReqs := generateUsers(run, config.NumUsers)
	users := make([]User, len(userReqs))
	errs := runPool(ctx, config.Workers, len(userReqs), func(ctx context.Context, i int) error {
		return c.do(ctx, "POST", "/user", userReqs[i], &users[i])
	})
	if err := firstError("create users", errs, log, config.Verbose); err != nil {
		return finish(err)
	}
	stats.UsersCreated = len(users)

	// Step 3: Draft posts
	postReqs := generatePosts(userReqs, config.PostsPerUser)
	posts := make([]Post, len(postReqs))
	errs = runPool(ctx, config.Workers, len(postReqs), func(ctx context.Context, i int) error {
		return c.do(ctx, "POST", "/post", postReqs[i], &posts[i])
	})
	if err := firstError("create posts", errs, log, config.Verbose); err != nil {
		return finish(err)
	}
	stats.PostsCreated = len(posts)

	authors := make(map[int64]string, len(users))
	for _, u := range users {
		authors[u.ID] = u.Email
	}
	postIDs := make([]int64, len(posts))
	for i, p := range posts {
		if p.Published {
			return finish(fmt.Errorf("post %d was created published", p.ID))
		}
		if authors[p.AuthorID] != postReqs[i].AuthorEmail {
			return finish(fmt.Errorf("post %d has author %d, want %s", p.ID, p.AuthorID, postReqs[i].AuthorEmail))
		}
		postIDs[i] = p.ID
	}
	sort.Slice(postIDs, func(i, j int) bool { return postIDs[i] < postIDs[j] })

	// Step 4: Drafts stay out of the feed
	if err := verifyFeed(ctx, c, nil, postIDs, authors, stats); err != nil {
		return finish(fmt.Errorf("draft verification failed: %w", err))
	}

	// Step 5: Publish
	published := pick(postIDs, config.PublishRatio)
	errs = runPool(ctx, config.Workers, len(published), func(ctx context.Context, i int) error {
		var p Post
		if err := c.do(ctx, "PUT", fmt.Sprintf("/post/publish/%d", published[i]), nil, &p); err != nil {
			return err
		}
		if !p.Published {
			return fmt.Errorf("post %d not published after publish", p.ID)
		}
		return nil
	})
	if err := firstError("publish posts", errs, log, config.Verbose); err != nil {
		return finish(err)
	}
	stats.PostsPublished = len(published)

	if err := verifyFeed(ctx, c, published, postIDs[len(published):], authors, stats); err != nil {
		return finish(fmt.Errorf("feed verification failed: %w", err))
	}

	// Step 6: Delete
	deleted := pick(published, config.DeleteRatio)
	errs = runPool(ctx, config.Workers, len(deleted), func(ctx context.Context, i int) error {
		return c.do(ctx, "DELETE", fmt.Sprintf("/post/%d", deleted[i]), nil, nil)
	})
	if err := firstError("delete posts", errs, log, config.Verbose); err != nil {
		return finish(err)
	}
	stats.PostsDeleted = len(deleted)

	if err := verifyDeleted(ctx, c, deleted); err != nil {
		return finish(fmt.Errorf("delete verification failed: %w", err))
	}
	if err := verifyFeed(ctx, c, published[len(deleted):], deleted, authors, stats); err != nil {
		return finish(fmt.Errorf("feed verification after delete failed: %w", err))
	}

	// Step 7: An unknown author is rejected
	if err := verifyUnknownAuthor(ctx, c, run); err != nil {
		return finish(err)
	}

	log.Info(ctx, "load run completed successfully")
	return finish(nil)
}

func validate(config *Config) error {
	switch {
	case config == nil:
		return errors.New("nil config")
	case config.BaseURL == "":
		return errors.New("base URL is required")
	case config.NumUsers < 1:
		return errors.New("at least one user is required")
	case config.PostsPerUser < 0:
		return errors.New("posts per user must not be negative")
	case config.PublishRatio < 0 || config.PublishRatio > 1:
		return errors.New("publish ratio must be within [0, 1]")
	case config.DeleteRatio < 0 || config.DeleteRatio > 1:
		return errors.New("delete ratio must be within [0, 1]")
	}
	return nil
}

// firstError logs failures and returns a summary error when any occurred.
func firstError(step string, errs []error, log logger.Logger, verbose bool) error {
	var first error
	failed := 0
	for _, err := range errs {
		if err == nil {
			continue
		}
		failed++
		if first == nil {
			first = err
		}
		if verbose {
			log.Warn(context.Background(), "request failed", logger.String("step", step), logger.Error(err))
		}
	}
	if first != nil {
		return fmt.Errorf("%s: %d of %d requests failed, first: %w", step, failed, len(errs), first)
	}
	return nil
}

// displayFinalStats logs the run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var requestsPerSecond float64
	if stats.Duration > 0 {
		requestsPerSecond = float64(stats.Requests) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("usersCreated", stats.UsersCreated),
		logger.Int("postsCreated", stats.PostsCreated),
		logger.Int("postsPublished", stats.PostsPublished),
		logger.Int("postsDeleted", stats.PostsDeleted),
		logger.Int("feedSize", stats.FeedSize),
		logger.Int64("requests", stats.Requests),
		logger.Int64("failures", stats.Failures),
		logger.Duration("duration", stats.Duration),
		logger.Float64("requestsPerSecond", requestsPerSecond),
	)
}
