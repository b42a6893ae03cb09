package crud

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"wtfSocial/database"
	"wtfSocial/errs"
)

// A ServicesConfig is any function that takes in a pointer to a Services
// object and returns an error. It wraps the constructor of a crud service,
// so that main.go can pick the services it needs as functional options.
type ServicesConfig func(*Services) error

// Services is a container object holding pointers to all the crud services.
// The crud services all share the tree provided by Services.
type Services struct {
	tree    database.Tree
	User    *UserService
	Follow  *FollowService
	Post    *PostService
	Like    *LikeService
	Comment *CommentService
	Feed    *FeedService
}

// NewServices returns a new Services object, containing any crud services
// it's told to create by one of the passed in ServicesConfig functions.
// Services depending on others must come after them: WithUser first, WithPost before WithFeed.
func NewServices(tree database.Tree, cfgs ...ServicesConfig) (*Services, error) {
	s := Services{
		tree: tree,
	}
	for _, cfg := range cfgs {
		if err := cfg(&s); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

// Close closes the shared tree.
func (s *Services) Close() error {
	return s.tree.Close()
}

// WithUser wraps the constructor of UserService, NewUserService.
func WithUser(pepper string) ServicesConfig {
	return func(s *Services) error {
		s.User = NewUserService(s.tree, pepper)
		return nil
	}
}

// WithFollow wraps the constructor of FollowService, NewFollowService.
func WithFollow() ServicesConfig {
	return func(s *Services) error {
		if s.User == nil {
			return errors.New("crud: WithFollow needs WithUser")
		}
		s.Follow = NewFollowService(s.tree, s.User)
		return nil
	}
}

// WithPost wraps the constructor of PostService, NewPostService.
func WithPost() ServicesConfig {
	return func(s *Services) error {
		if s.User == nil {
			return errors.New("crud: WithPost needs WithUser")
		}
		s.Post = NewPostService(s.tree, s.User)
		return nil
	}
}

// WithLike wraps the constructor of LikeService, NewLikeService.
func WithLike() ServicesConfig {
	return func(s *Services) error {
		if s.User == nil {
			return errors.New("crud: WithLike needs WithUser")
		}
		s.Like = NewLikeService(s.tree, s.User)
		return nil
	}
}

// WithComment wraps the constructor of CommentService, NewCommentService.
func WithComment() ServicesConfig {
	return func(s *Services) error {
		if s.User == nil {
			return errors.New("crud: WithComment needs WithUser")
		}
		s.Comment = NewCommentService(s.tree, s.User)
		return nil
	}
}

// WithFeed wraps the constructor of FeedService, NewFeedService.
func WithFeed() ServicesConfig {
	return func(s *Services) error {
		if s.Post == nil {
			return errors.New("crud: WithFeed needs WithPost")
		}
		s.Feed = NewFeedService(s.Post)
		return nil
	}
}

// newID returns a UUIDv7. They sort by creation time, which makes the
// key order of /posts the insertion order.
var newID = func() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Tree paths of the three collections and the follow edges.
func userPath(id string) string    { return database.Join("users", id) }
func postPath(id string) string    { return database.Join("posts", id) }
func commentPath(id string) string { return database.Join("comments", id) }
func edgePath(follower, followee string) string {
	return database.Join("follows", follower, followee)
}

// storageErr turns a backend failure into an EUNAVAILABLE error.
// Application errors pass through untouched.
func storageErr(err error) error {
	if err == nil {
		return nil
	}
	var e *errs.Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errs.Wrap(errs.EUNAVAILABLE, err, "The request was cancelled.")
	}
	return errs.Wrap(errs.EUNAVAILABLE, err, "The store is unavailable.")
}
