package crud

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"wtfSocial/database"
	"wtfSocial/domain"
	"wtfSocial/errs"
	pkglog "wtfSocial/log"
)

// CommentService manages Comments.
// It implements the domain.CommentService interface.
type CommentService struct {
	commentValidator
}

// commentValidator runs validations on incoming Comment data.
// On success, it passes the data on to commentTree.
// Otherwise, it returns the error of the validation that has failed.
type commentValidator struct {
	users *UserService
	commentTree
}

// commentTree reads and writes /comments subtrees and the comment lists of posts.
type commentTree struct {
	tree database.Tree
}

// NewCommentService returns an instance of CommentService.
func NewCommentService(tree database.Tree, users *UserService) *CommentService {
	return &CommentService{
		commentValidator{
			users: users,
			commentTree: commentTree{
				tree: tree,
			},
		},
	}
}

// Ensure the CommentService struct properly implements the domain.CommentService interface.
var _ domain.CommentService = &CommentService{}

// Create validates a comment and attaches it to its post. Nothing is written
// when the post or the author does not exist.
func (cv *commentValidator) Create(ctx context.Context, comment *domain.Comment) error {
	err := runCommentValFns(comment,
		cv.authorIDValid,
		cv.postIDValid,
		cv.contentRequired,
		cv.contentMaxLength)
	if err != nil {
		return err
	}
	if _, err := database.Read[domain.Post](ctx, cv.tree, postPath(comment.PostID)); err != nil {
		if errors.Is(err, database.ErrNodeNotFound) {
			return errs.Errorf(errs.ENOTFOUND, "The commented post does not exist.")
		}
		return storageErr(err)
	}
	author, err := cv.users.ByID(ctx, comment.Author)
	if err != nil {
		return err
	}
	comment.AuthorName = author.FullName
	return cv.commentTree.Create(ctx, comment)
}

// runCommentValFns runs any number of functions of type commentValFn on the passed in Comment object.
// If none of them returns an error, it returns nil. Otherwise, it returns the respective error.
func runCommentValFns(comment *domain.Comment, fns ...commentValFn) error {
	for _, fn := range fns {
		if err := fn(comment); err != nil {
			return err
		}
	}
	return nil
}

// A commentValFn is any function that takes in a pointer to a domain.Comment object and returns an error.
type commentValFn func(comment *domain.Comment) error

func (cv *commentValidator) authorIDValid(comment *domain.Comment) error {
	if !database.ValidSegment(comment.Author) {
		return errs.Errorf(errs.EINVALID, "A comment needs an author.")
	}
	return nil
}

func (cv *commentValidator) postIDValid(comment *domain.Comment) error {
	if !database.ValidSegment(comment.PostID) {
		return errs.Errorf(errs.ENOTFOUND, "The commented post does not exist.")
	}
	return nil
}

func (cv *commentValidator) contentRequired(comment *domain.Comment) error {
	comment.Content = strings.TrimSpace(comment.Content)
	if comment.Content == "" {
		return errs.Errorf(errs.EINVALID, "Comment can't be empty.")
	}
	return nil
}

func (cv *commentValidator) contentMaxLength(comment *domain.Comment) error {
	if utf8.RuneCountInString(comment.Content) > domain.MaxContentLength {
		return errs.Errorf(errs.EINVALID, "Comment can't be longer than 100 characters.")
	}
	return nil
}

// ByPost returns up to limit comments of the post in the order they were added.
// A negative limit (domain.NoLimit) returns all of them. Comment ids that don't
// resolve are skipped and don't count against the limit. An unknown post has no comments.
func (ct *commentTree) ByPost(ctx context.Context, postID string, limit int) ([]domain.Comment, error) {
	comments := make([]domain.Comment, 0)
	if !database.ValidSegment(postID) || limit == 0 {
		return comments, nil
	}
	post, err := database.Read[domain.Post](ctx, ct.tree, postPath(postID))
	if errors.Is(err, database.ErrNodeNotFound) {
		return comments, nil
	}
	if err != nil {
		return nil, storageErr(err)
	}

	for _, id := range post.Comments {
		c, err := database.Read[domain.Comment](ctx, ct.tree, commentPath(id))
		if errors.Is(err, database.ErrNodeNotFound) {
			continue
		}
		if err != nil {
			return nil, storageErr(err)
		}
		comments = append(comments, *c)
		if limit >= 0 && len(comments) == limit {
			break
		}
	}
	return comments, nil
}

// Create stores the comment and appends its id to the post's comment list.
func (ct *commentTree) Create(ctx context.Context, comment *domain.Comment) error {
	id, err := newID()
	if err != nil {
		return err
	}
	comment.ID = id
	if comment.Date.IsZero() {
		comment.Date = time.Now().UTC()
	}
	if err := database.Create(ctx, ct.tree, commentPath(id), comment); err != nil {
		return storageErr(err)
	}

	err = database.Update(ctx, ct.tree, postPath(comment.PostID), func(p *domain.Post) error {
		p.Comments = append(p.Comments, id)
		return nil
	})
	if errors.Is(err, database.ErrNodeNotFound) {
		return errs.Errorf(errs.ENOTFOUND, "The commented post does not exist.")
	}
	if err != nil {
		return storageErr(err)
	}

	pkglog.Ctx(ctx).Debug().
		Str(pkglog.FieldCommentID, id).
		Str(pkglog.FieldPostID, comment.PostID).
		Msg("comment added")
	return nil
}
