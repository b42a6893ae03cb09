package crud

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"wtfSocial/domain"
	"wtfSocial/errs"
)

func TestToggleLike(t *testing.T) {
	s := newMemoryServices(t)
	ctx := context.Background()
	bob := register(t, s, "Bob Builder", "bob@example.com")
	alice := register(t, s, "Alice Liddell", "alice@example.com")
	post := &domain.Post{Author: bob.ID, Content: "like me"}
	require.NoError(t, s.Post.Create(ctx, post))

	likes, err := s.Like.ToggleLike(ctx, post.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, likes.Has(alice.ID))
	assert.Equal(t, 1, likes.Len())

	likes, err = s.Like.ToggleLike(ctx, post.ID, alice.ID)
	require.NoError(t, err)
	assert.NotNil(t, likes)
	assert.Zero(t, likes.Len())

	stored, err := s.Post.ByID(ctx, post.ID)
	require.NoError(t, err)
	assert.False(t, stored.Likes.Has(alice.ID))
}

func TestToggleLikeErrors(t *testing.T) {
	s := newMemoryServices(t)
	ctx := context.Background()
	bob := register(t, s, "Bob Builder", "bob@example.com")
	post := &domain.Post{Author: bob.ID, Content: "like me"}
	require.NoError(t, s.Post.Create(ctx, post))

	_, err := s.Like.ToggleLike(ctx, "missing", bob.ID)
	assert.True(t, errs.Is(err, errs.ENOTFOUND), "got %v", err)

	_, err = s.Like.ToggleLike(ctx, post.ID, "ghost")
	assert.True(t, errs.Is(err, errs.ENOTFOUND), "got %v", err)

	stored, err := s.Post.ByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.Likes.Len())
}

func TestToggleLikeConcurrentUsers(t *testing.T) {
	s := newMemoryServices(t)
	ctx := context.Background()
	bob := register(t, s, "Bob Builder", "bob@example.com")
	post := &domain.Post{Author: bob.ID, Content: "popular"}
	require.NoError(t, s.Post.Create(ctx, post))

	const n = 8
	likers := make([]string, n)
	for i := range likers {
		likers[i] = register(t, s, fmt.Sprintf("Liker %d", i), fmt.Sprintf("liker%d@example.com", i)).ID
	}

	var wg sync.WaitGroup
	errc := make(chan error, n)
	for _, id := range likers {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := s.Like.ToggleLike(ctx, post.ID, id)
			errc <- err
		}(id)
	}
	wg.Wait()
	close(errc)
	for err := range errc {
		require.NoError(t, err)
	}

	stored, err := s.Post.ByID(ctx, post.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, likers, stored.Likes.Slice())
}
