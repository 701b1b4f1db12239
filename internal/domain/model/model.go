// Package model contains the entities exchanged between the store, the
// service and the HTTP layer.
package model

// User is an account that authors posts.
type User struct {
	ID    int64   `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name"`
}

// Post is an article written by exactly one User. Author is only populated
// by queries that load it (the feed).
type Post struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Content   *string `json:"content"`
	Published bool    `json:"published"`
	AuthorID  int64   `json:"authorId"`
	Author    *User   `json:"author,omitempty"`
}

// NewUser carries the fields accepted when creating a User.
type NewUser struct {
	Email string
	Name  *string
}

// NewPost carries the fields accepted when creating a Post. The author is
// resolved by e-mail at creation time.
type NewPost struct {
	Title       string
	Content     *string
	AuthorEmail string
}

// Counts summarizes the store contents.
type Counts struct {
	Users          int64 `json:"users"`
	Posts          int64 `json:"posts"`
	PublishedPosts int64 `json:"publishedPosts"`
}
