package crud

import (
	"context"

	"wtfSocial/domain"
)

// FeedService builds newest-first post lists out of the post store.
type FeedService struct {
	posts *PostService
}

// NewFeedService returns an instance of FeedService.
func NewFeedService(posts *PostService) *FeedService {
	return &FeedService{posts: posts}
}

var _ domain.FeedService = &FeedService{}

// Global returns all posts, newest first.
func (fs *FeedService) Global(ctx context.Context) ([]domain.Post, error) {
	return fs.posts.All(ctx)
}

// ByUser returns the user's posts, newest first.
func (fs *FeedService) ByUser(ctx context.Context, userID string) ([]domain.Post, error) {
	posts, err := fs.posts.ByAuthor(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(posts)-1; i < j; i, j = i+1, j-1 {
		posts[i], posts[j] = posts[j], posts[i]
	}
	return posts, nil
}
