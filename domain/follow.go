package domain

import (
	"context"
	"time"
)

// Edge is stored at /follows/{followerID}/{followeeID} and is the authoritative
// state of one follow relation. The follower's Followings and the followee's
// Followers are projections of it.
type Edge struct {
	FollowerID string    `json:"followerId"`
	FolloweeID string    `json:"followeeId"`
	Following  bool      `json:"following"`
	Revision   int64     `json:"revision"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// EdgeOutcome tells what a Follow or Unfollow call did.
type EdgeOutcome int

const (
	// OutcomeSkipped means one of the users does not exist; nothing was written.
	OutcomeSkipped EdgeOutcome = iota
	// OutcomeUnchanged means the edge already was in the requested state.
	OutcomeUnchanged
	// OutcomeApplied means the edge changed state.
	OutcomeApplied
)

func (o EdgeOutcome) String() string {
	switch o {
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeApplied:
		return "applied"
	default:
		return "skipped"
	}
}

// FollowService is the follow graph.
type FollowService interface {
	Follow(ctx context.Context, followerID, followeeID string) (EdgeOutcome, error)
	Unfollow(ctx context.Context, followerID, followeeID string) (EdgeOutcome, error)
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)
	Followers(ctx context.Context, userID string) ([]User, error)
	Followings(ctx context.Context, userID string) ([]User, error)
	Repair(ctx context.Context, followerID, followeeID string) error
}
