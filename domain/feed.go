package domain

import "context"

// FeedService assembles newest-first post lists.
type FeedService interface {
	Global(ctx context.Context) ([]Post, error)
	ByUser(ctx context.Context, userID string) ([]Post, error)
}
