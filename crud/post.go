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

// PostService manages Posts.
// It implements the domain.PostService interface.
type PostService struct {
	postValidator
}

// postValidator runs validations on incoming Post data.
// On success, it passes the data on to postTree.
// Otherwise, it returns the error of the validation that has failed.
type postValidator struct {
	users *UserService
	postTree
}

// postTree reads and writes /posts subtrees and the author's post list.
// It assumes that data has been validated.
type postTree struct {
	tree database.Tree
}

// NewPostService returns an instance of PostService.
func NewPostService(tree database.Tree, users *UserService) *PostService {
	return &PostService{
		postValidator{
			users: users,
			postTree: postTree{
				tree: tree,
			},
		},
	}
}

// Ensure the PostService struct properly implements the domain.PostService interface.
var _ domain.PostService = &PostService{}

// Create validates a new post, copies the author's current name onto it, stores
// it and appends its id to the author's post list.
func (pv *postValidator) Create(ctx context.Context, post *domain.Post) error {
	err := runPostValFns(post,
		pv.authorIDValid,
		pv.contentRequired,
		pv.contentMaxLength)
	if err != nil {
		return err
	}
	author, err := pv.users.ByID(ctx, post.Author)
	if err != nil {
		return err
	}
	post.AuthorName = author.FullName
	return pv.postTree.Create(ctx, post)
}

// RefreshAuthorNames rewrites the author name copy on every post and comment
// written by userID to the user's current full name. It returns how many
// documents were changed. Documents that already carry the name are not written.
func (pv *postValidator) RefreshAuthorNames(ctx context.Context, userID string) (int, error) {
	user, err := pv.users.ByID(ctx, userID)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, id := range user.Posts {
		ok, err := refreshName[domain.Post](ctx, pv.tree, postPath(id), user.FullName,
			func(p *domain.Post) *string { return &p.AuthorName })
		if err != nil {
			return changed, err
		}
		if ok {
			changed++
		}
	}

	// Comments are not indexed by author.
	comments, err := database.List[domain.Comment](ctx, pv.tree, "/comments")
	if err != nil {
		return changed, storageErr(err)
	}
	for _, c := range comments {
		if c.Author != userID || c.AuthorName == user.FullName {
			continue
		}
		ok, err := refreshName[domain.Comment](ctx, pv.tree, commentPath(c.ID), user.FullName,
			func(c *domain.Comment) *string { return &c.AuthorName })
		if err != nil {
			return changed, err
		}
		if ok {
			changed++
		}
	}

	pkglog.Ctx(ctx).Info().
		Str(pkglog.FieldUserID, userID).
		Int("changed", changed).
		Msg("author names refreshed")
	return changed, nil
}

// refreshName sets the name field picked by field to name. Missing documents are skipped.
func refreshName[T any](ctx context.Context, tree database.Tree, path, name string, field func(*T) *string) (bool, error) {
	var changed bool
	err := database.Update(ctx, tree, path, func(v *T) error {
		changed = false
		f := field(v)
		if *f == name {
			return database.ErrAbort
		}
		*f = name
		changed = true
		return nil
	})
	if errors.Is(err, database.ErrNodeNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storageErr(err)
	}
	return changed, nil
}

// runPostValFns runs any number of functions of type postValFn on the passed in Post object.
// If none of them returns an error, it returns nil. Otherwise, it returns the respective error.
func runPostValFns(post *domain.Post, fns ...postValFn) error {
	for _, fn := range fns {
		if err := fn(post); err != nil {
			return err
		}
	}
	return nil
}

// A postValFn is any function that takes in a pointer to a domain.Post object and returns an error.
type postValFn func(post *domain.Post) error

// authorIDValid makes sure that the post names an author.
func (pv *postValidator) authorIDValid(post *domain.Post) error {
	if !database.ValidSegment(post.Author) {
		return errs.Errorf(errs.EINVALID, "A post needs an author.")
	}
	return nil
}

// contentRequired trims the content and makes sure something is left.
func (pv *postValidator) contentRequired(post *domain.Post) error {
	post.Content = strings.TrimSpace(post.Content)
	if post.Content == "" {
		return errs.Errorf(errs.EINVALID, "Post content can't be empty.")
	}
	return nil
}

// contentMaxLength makes sure that the content is at most domain.MaxContentLength characters long.
func (pv *postValidator) contentMaxLength(post *domain.Post) error {
	if utf8.RuneCountInString(post.Content) > domain.MaxContentLength {
		return errs.Errorf(errs.EINVALID, "Post content can't be longer than 100 characters.")
	}
	return nil
}

// ByID retrieves a post by id.
func (pt *postTree) ByID(ctx context.Context, id string) (*domain.Post, error) {
	if !database.ValidSegment(id) {
		return nil, errs.Errorf(errs.ENOTFOUND, "The post does not exist.")
	}
	post, err := database.Read[domain.Post](ctx, pt.tree, postPath(id))
	if errors.Is(err, database.ErrNodeNotFound) {
		return nil, errs.Errorf(errs.ENOTFOUND, "The post does not exist.")
	}
	if err != nil {
		return nil, storageErr(err)
	}
	return post, nil
}

// ByAuthor returns the author's posts in creation order. Ids in the author's
// list that don't resolve are left out.
func (pt *postTree) ByAuthor(ctx context.Context, authorID string) ([]domain.Post, error) {
	if !database.ValidSegment(authorID) {
		return nil, errs.Errorf(errs.ENOTFOUND, "The user does not exist.")
	}
	author, err := database.Read[domain.User](ctx, pt.tree, userPath(authorID))
	if errors.Is(err, database.ErrNodeNotFound) {
		return nil, errs.Errorf(errs.ENOTFOUND, "The user does not exist.")
	}
	if err != nil {
		return nil, storageErr(err)
	}

	posts := make([]domain.Post, 0, len(author.Posts))
	for _, id := range author.Posts {
		post, err := pt.ByID(ctx, id)
		if errs.Is(err, errs.ENOTFOUND) {
			continue
		} else if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	return posts, nil
}

// All returns every post, newest first.
func (pt *postTree) All(ctx context.Context) ([]domain.Post, error) {
	posts, err := database.List[domain.Post](ctx, pt.tree, "/posts")
	if err != nil {
		return nil, storageErr(err)
	}
	// Post ids sort by creation time.
	for i, j := 0, len(posts)-1; i < j; i, j = i+1, j-1 {
		posts[i], posts[j] = posts[j], posts[i]
	}
	return posts, nil
}

// Create stores the post and appends its id to the author's post list.
// The post is written first, so a post list never points at a post that was not stored.
func (pt *postTree) Create(ctx context.Context, post *domain.Post) error {
	id, err := newID()
	if err != nil {
		return err
	}
	post.ID = id
	post.Likes = domain.IDSet{}
	post.Comments = []string{}
	if post.Date.IsZero() {
		post.Date = time.Now().UTC()
	}
	if err := database.Create(ctx, pt.tree, postPath(id), post); err != nil {
		return storageErr(err)
	}

	err = database.Update(ctx, pt.tree, userPath(post.Author), func(u *domain.User) error {
		u.Posts = append(u.Posts, id)
		return nil
	})
	if errors.Is(err, database.ErrNodeNotFound) {
		return errs.Errorf(errs.ENOTFOUND, "The user does not exist.")
	}
	if err != nil {
		return storageErr(err)
	}

	pkglog.Ctx(ctx).Debug().
		Str(pkglog.FieldPostID, id).
		Str(pkglog.FieldUserID, post.Author).
		Msg("post created")
	return nil
}
