package domain

import "context"

// LikeService toggles a user's membership in a post's like set.
type LikeService interface {
	ToggleLike(ctx context.Context, postID, userID string) (IDSet, error)
}
