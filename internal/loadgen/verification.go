package loadgen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// verifyFeed checks that every id in present is in the feed with its author
// and that no id in absent is.
func verifyFeed(ctx context.Context, c *client, present, absent []int64, authors map[int64]string, stats *Stats) error {
	var feed []Post
	if err := c.do(ctx, "GET", "/feed", nil, &feed); err != nil {
		return err
	}
	stats.FeedSize = len(feed)

	byID := make(map[int64]Post, len(feed))
	for i, p := range feed {
		if !p.Published {
			return fmt.Errorf("feed entry %d is not published", p.ID)
		}
		if i > 0 && feed[i-1].ID >= p.ID {
			return fmt.Errorf("feed is not ordered by id at %d", p.ID)
		}
		byID[p.ID] = p
	}

	for _, id := range present {
		p, ok := byID[id]
		if !ok {
			return fmt.Errorf("post %d missing from feed", id)
		}
		if p.Author == nil {
			return fmt.Errorf("post %d in feed without author", id)
		}
		if want, ok := authors[p.AuthorID]; ok && p.Author.Email != want {
			return fmt.Errorf("post %d author is %s, want %s", id, p.Author.Email, want)
		}
	}
	for _, id := range absent {
		if _, ok := byID[id]; ok {
			return fmt.Errorf("post %d unexpectedly in feed", id)
		}
	}
	return nil
}

// verifyDeleted checks that deleted posts read back as null and cannot be
// deleted twice.
func verifyDeleted(ctx context.Context, c *client, deleted []int64) error {
	for _, id := range deleted {
		var p *Post
		if err := c.do(ctx, "GET", fmt.Sprintf("/post/%d", id), nil, &p); err != nil {
			return err
		}
		if p != nil {
			return fmt.Errorf("deleted post %d still readable", id)
		}
	}
	if len(deleted) > 0 {
		c.requests.Add(1)
		err := c.roundTrip(ctx, "DELETE", fmt.Sprintf("/post/%d", deleted[0]), nil, nil)
		if !isStatus(err, http.StatusNotFound) {
			return fmt.Errorf("second delete of post %d: want 404, got %v", deleted[0], err)
		}
	}
	return nil
}

func verifyUnknownAuthor(ctx context.Context, c *client, run string) error {
	req := createPostRequest{Title: "orphan", AuthorEmail: "nobody-" + run + "@postboard.test"}
	c.requests.Add(1)
	err := c.roundTrip(ctx, "POST", "/post", req, nil)
	if !isStatus(err, http.StatusConflict) {
		return fmt.Errorf("post with unknown author: want 409, got %v", err)
	}
	return nil
}

func isStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}
