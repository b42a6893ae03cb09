package crud

import (
	"context"
	"errors"

	"wtfSocial/database"
	"wtfSocial/domain"
	"wtfSocial/errs"
	pkglog "wtfSocial/log"
)

// LikeService manages the like sets of posts.
// It implements the domain.LikeService interface.
type LikeService struct {
	likeValidator
}

// likeValidator makes sure the liking user exists.
// On success, it passes the data on to likeTree.
type likeValidator struct {
	users *UserService
	likeTree
}

// likeTree flips memberships in a post's like set.
type likeTree struct {
	tree database.Tree
}

// NewLikeService returns an instance of LikeService.
func NewLikeService(tree database.Tree, users *UserService) *LikeService {
	return &LikeService{
		likeValidator{
			users: users,
			likeTree: likeTree{
				tree: tree,
			},
		},
	}
}

// Ensure the LikeService struct properly implements the domain.LikeService interface.
var _ domain.LikeService = &LikeService{}

// ToggleLike adds userID to the post's like set if it is absent and removes it
// otherwise. It returns the like set after the change.
func (lv *likeValidator) ToggleLike(ctx context.Context, postID, userID string) (domain.IDSet, error) {
	if !database.ValidSegment(postID) {
		return nil, errs.Errorf(errs.ENOTFOUND, "The liked post does not exist.")
	}
	if _, err := lv.users.ByID(ctx, userID); err != nil {
		return nil, err
	}
	return lv.likeTree.toggle(ctx, postID, userID)
}

func (lt *likeTree) toggle(ctx context.Context, postID, userID string) (domain.IDSet, error) {
	var likes domain.IDSet
	var liked bool
	err := database.Update(ctx, lt.tree, postPath(postID), func(p *domain.Post) error {
		liked = p.Likes.Toggle(userID)
		likes = p.Likes
		return nil
	})
	if errors.Is(err, database.ErrNodeNotFound) {
		return nil, errs.Errorf(errs.ENOTFOUND, "The liked post does not exist.")
	}
	if err != nil {
		return nil, storageErr(err)
	}
	if likes == nil {
		likes = domain.IDSet{}
	}

	pkglog.Ctx(ctx).Debug().
		Str(pkglog.FieldPostID, postID).
		Str(pkglog.FieldUserID, userID).
		Bool("liked", liked).
		Msg("like toggled")
	return likes, nil
}
