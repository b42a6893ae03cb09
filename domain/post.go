package domain

import (
	"context"
	"time"
)

// MaxContentLength is the maximum number of characters of a post or comment.
const MaxContentLength = 100

// Post is stored at /posts/{id}. AuthorName is a copy of the author's full name
// taken when the post was written; it is not updated when the author renames
// (see PostService.RefreshAuthorNames). Comments holds comment ids in the order
// they were added.
type Post struct {
	ID         string    `json:"id"`
	Author     string    `json:"author"`
	AuthorName string    `json:"authorName"`
	Content    string    `json:"content"`
	Date       time.Time `json:"date"`
	Likes      IDSet     `json:"likes"`
	Comments   []string  `json:"comments"`
}

// PostService is the content store.
type PostService interface {
	Create(ctx context.Context, post *Post) error
	ByID(ctx context.Context, id string) (*Post, error)
	ByAuthor(ctx context.Context, authorID string) ([]Post, error)
	All(ctx context.Context) ([]Post, error)
	RefreshAuthorNames(ctx context.Context, userID string) (int, error)
}
