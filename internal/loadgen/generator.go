package loadgen

import (
	"fmt"

	"github.com/google/uuid"
)

// runID tags generated e-mails so repeated runs against one store never collide.
func runID() string {
	return uuid.NewString()[:8]
}

func generateUsers(run string, n int) []createUserRequest {
	users := make([]createUserRequest, n)
	for i := range users {
		name := fmt.Sprintf("Load User %d", i)
		users[i] = createUserRequest{
			Email: fmt.Sprintf("load-%s-%d@postboard.test", run, i),
			Name:  &name,
		}
	}
	return users
}

func generatePosts(users []createUserRequest, perUser int) []createPostRequest {
	posts := make([]createPostRequest, 0, len(users)*perUser)
	for ui, u := range users {
		for p := 0; p < perUser; p++ {
			content := fmt.Sprintf("post %d of user %d (%s)", p, ui, uuid.NewString())
			posts = append(posts, createPostRequest{
				Title:       fmt.Sprintf("Post %d/%d", ui, p),
				Content:     &content,
				AuthorEmail: u.Email,
			})
		}
	}
	return posts
}

// pick returns the first ratio share of ids.
func pick(ids []int64, ratio float64) []int64 {
	switch {
	case ratio <= 0:
		return nil
	case ratio >= 1:
		return ids
	}
	return ids[:int(float64(len(ids))*ratio)]
}
