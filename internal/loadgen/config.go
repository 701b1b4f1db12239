// Package loadgen drives a running postboard server through concurrent
// user and post lifecycles and verifies the observable results.
package loadgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL      string        // Base URL of the service
	NumUsers     int           // Number of users to create
	PostsPerUser int           // Posts drafted per user
	PublishRatio float64       // Fraction of posts to publish, 0..1
	DeleteRatio  float64       // Fraction of published posts to delete afterwards, 0..1
	Workers      int           // Number of concurrent workers
	Timeout      time.Duration // HTTP request timeout
	Verbose      bool          // Log every failed request
}

// User mirrors the API user shape.
type User struct {
	ID    int64   `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name"`
}

// Post mirrors the API post shape.
type Post struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Content   *string `json:"content"`
	Published bool    `json:"published"`
	AuthorID  int64   `json:"authorId"`
	Author    *User   `json:"author,omitempty"`
}

type createUserRequest struct {
	Email string  `json:"email"`
	Name  *string `json:"name,omitempty"`
}

type createPostRequest struct {
	Title       string  `json:"title"`
	Content     *string `json:"content,omitempty"`
	AuthorEmail string  `json:"authorEmail"`
}

// Stats holds run statistics.
type Stats struct {
	UsersCreated   int
	PostsCreated   int
	PostsPublished int
	PostsDeleted   int
	Requests       int64
	Failures       int64
	FeedSize       int
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}
