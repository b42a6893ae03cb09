package crud

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"wtfSocial/database"
	"wtfSocial/domain"
	"wtfSocial/errs"
)

const testPepper = "test-pepper"

func newServices(t *testing.T, tree database.Tree) *Services {
	t.Helper()
	s, err := NewServices(tree,
		WithUser(testPepper),
		WithFollow(),
		WithPost(),
		WithLike(),
		WithComment(),
		WithFeed(),
	)
	require.NoError(t, err)
	s.User.bcryptCost = bcrypt.MinCost
	return s
}

func newMemoryServices(t *testing.T) *Services {
	return newServices(t, database.NewMemoryTree())
}

func newRedisServices(t *testing.T) *Services {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := newServices(t, database.NewRedisTreeFromClient(client, "social:"))
	t.Cleanup(func() { s.Close() })
	return s
}

func register(t *testing.T, s *Services, name, email string) *domain.User {
	t.Helper()
	u := &domain.User{
		FullName: name,
		Email:    email,
		Password: "secret",
		Address:  "Main Street 1",
		Bio:      "Hello there",
	}
	require.NoError(t, s.User.Create(context.Background(), u))
	return u
}

func TestNewServicesOrder(t *testing.T) {
	_, err := NewServices(database.NewMemoryTree(), WithFollow())
	assert.Error(t, err)

	_, err = NewServices(database.NewMemoryTree(), WithUser(""), WithFeed())
	assert.Error(t, err)
}

// Scenario from registration to comments, run on two backends.
func TestScenario(t *testing.T) {
	for name, open := range map[string]func(*testing.T) *Services{
		"memory": newMemoryServices,
		"redis":  newRedisServices,
	} {
		open := open
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			alice := register(t, s, "Alice Liddell", "alice@example.com")
			bob := register(t, s, "Bob Builder", "bob@example.com")

			outcome, err := s.Follow.Follow(ctx, alice.ID, bob.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.OutcomeApplied, outcome)

			following, err := s.Follow.IsFollowing(ctx, alice.ID, bob.ID)
			require.NoError(t, err)
			assert.True(t, following)

			followers, err := s.Follow.Followers(ctx, bob.ID)
			require.NoError(t, err)
			require.Len(t, followers, 1)
			assert.Equal(t, alice.ID, followers[0].ID)

			post := &domain.Post{Author: bob.ID, Content: "first post"}
			require.NoError(t, s.Post.Create(ctx, post))
			assert.Equal(t, "Bob Builder", post.AuthorName)

			likes, err := s.Like.ToggleLike(ctx, post.ID, alice.ID)
			require.NoError(t, err)
			assert.True(t, likes.Has(alice.ID))

			comment := &domain.Comment{PostID: post.ID, Author: alice.ID, Content: "nice"}
			require.NoError(t, s.Comment.Create(ctx, comment))

			comments, err := s.Comment.ByPost(ctx, post.ID, domain.NoLimit)
			require.NoError(t, err)
			require.Len(t, comments, 1)
			assert.Equal(t, "Alice Liddell", comments[0].AuthorName)

			feed, err := s.Feed.Global(ctx)
			require.NoError(t, err)
			require.Len(t, feed, 1)
			assert.Equal(t, post.ID, feed[0].ID)
			assert.Equal(t, []string{comment.ID}, feed[0].Comments)

			outcome, err = s.Follow.Unfollow(ctx, alice.ID, bob.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.OutcomeApplied, outcome)

			bobNow, err := s.User.ByID(ctx, bob.ID)
			require.NoError(t, err)
			assert.Zero(t, bobNow.Followers.Len())
			assert.Equal(t, []string{post.ID}, bobNow.Posts)
		})
	}
}

// brokenTree fails every call the way an unreachable backend would.
type brokenTree struct{}

var errBackendDown = errors.New("connection refused")

func (brokenTree) Get(context.Context, string) (database.Node, error) {
	return database.Node{}, errBackendDown
}

func (brokenTree) Children(context.Context, string) ([]database.Node, error) {
	return nil, errBackendDown
}

func (brokenTree) CompareAndSwap(context.Context, string, int64, []byte) error {
	return errBackendDown
}

func (brokenTree) Close() error { return nil }

func TestStorageUnavailable(t *testing.T) {
	s := newServices(t, brokenTree{})
	ctx := context.Background()

	_, err := s.User.ByID(ctx, "someone")
	assert.True(t, errs.Is(err, errs.EUNAVAILABLE), "got %v", err)
	assert.ErrorIs(t, err, errBackendDown)

	err = s.User.Create(ctx, &domain.User{
		FullName: "Alice Liddell",
		Email:    "alice@example.com",
		Password: "secret",
		Address:  "Main Street 1",
		Bio:      "Hello there",
	})
	assert.True(t, errs.Is(err, errs.EUNAVAILABLE), "got %v", err)

	_, err = s.Feed.Global(ctx)
	assert.True(t, errs.Is(err, errs.EUNAVAILABLE), "got %v", err)

	_, err = s.Follow.Follow(ctx, "a", "b")
	assert.True(t, errs.Is(err, errs.EUNAVAILABLE), "got %v", err)

	_, err = s.Comment.ByPost(ctx, "p", domain.NoLimit)
	assert.True(t, errs.Is(err, errs.EUNAVAILABLE), "got %v", err)
}
