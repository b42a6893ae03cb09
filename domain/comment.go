package domain

import (
	"context"
	"time"
)

// NoLimit makes CommentService.ByPost return every comment.
const NoLimit = -1

// Comment is stored at /comments/{id} and referenced by id from its post.
// It is never changed after creation, except for an explicit author name refresh.
type Comment struct {
	ID         string    `json:"id"`
	PostID     string    `json:"postId"`
	Author     string    `json:"author"`
	AuthorName string    `json:"authorName"`
	Content    string    `json:"content"`
	Date       time.Time `json:"date"`
}

// CommentService is the comment store.
type CommentService interface {
	Create(ctx context.Context, comment *Comment) error
	ByPost(ctx context.Context, postID string, limit int) ([]Comment, error)
}
