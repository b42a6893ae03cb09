package crud

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"wtfSocial/database"
	"wtfSocial/domain"
	"wtfSocial/errs"
	pkglog "wtfSocial/log"
)

// FollowService manages the follow graph.
//
// A follow relation lives in three places: the edge record at
// /follows/{follower}/{followee}, the follower's Followings and the followee's
// Followers. The edge is written first and is the single source of truth.
// Each of the two user documents is then brought in line with it in its own
// transaction, which reads the edge after reading the user. Whatever order racing
// Follow and Unfollow calls interleave in, the last projection of each side sees
// the final edge state, so both sides end up agreeing with it.
type FollowService struct {
	followValidator
}

// followValidator makes sure both ends of an edge exist before anything is written.
type followValidator struct {
	users *UserService
	followTree
}

// followTree reads and writes edge records and their projections.
type followTree struct {
	tree database.Tree
}

// NewFollowService returns an instance of FollowService.
func NewFollowService(tree database.Tree, users *UserService) *FollowService {
	return &FollowService{
		followValidator{
			users: users,
			followTree: followTree{
				tree: tree,
			},
		},
	}
}

// Ensure the FollowService struct properly implements the domain.FollowService interface.
var _ domain.FollowService = &FollowService{}

// Follow makes followerID follow followeeID. Following oneself is allowed.
// When either user is missing nothing is written and OutcomeSkipped is returned.
func (fv *followValidator) Follow(ctx context.Context, followerID, followeeID string) (domain.EdgeOutcome, error) {
	return fv.setEdge(ctx, followerID, followeeID, true)
}

// Unfollow is the inverse of Follow.
func (fv *followValidator) Unfollow(ctx context.Context, followerID, followeeID string) (domain.EdgeOutcome, error) {
	return fv.setEdge(ctx, followerID, followeeID, false)
}

// Repair re-projects the edge between two users onto both user documents.
// It is a no-op when either user or the edge is missing.
func (fv *followValidator) Repair(ctx context.Context, followerID, followeeID string) error {
	ok, err := fv.bothExist(ctx, followerID, followeeID)
	if err != nil || !ok {
		return err
	}
	return fv.followTree.project(ctx, followerID, followeeID)
}

// Followers resolves the ids in the user's follower set. Ids that no longer
// resolve are left out.
func (fv *followValidator) Followers(ctx context.Context, userID string) ([]domain.User, error) {
	user, err := fv.users.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return fv.users.ByIDs(ctx, user.Followers.Slice())
}

// Followings resolves the ids in the user's following set.
func (fv *followValidator) Followings(ctx context.Context, userID string) ([]domain.User, error) {
	user, err := fv.users.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return fv.users.ByIDs(ctx, user.Followings.Slice())
}

// IsFollowing checks the follower's following set only. A missing follower follows nobody.
func (fv *followValidator) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	user, err := fv.users.ByID(ctx, followerID)
	if errs.Is(err, errs.ENOTFOUND) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return user.Followings.Has(followeeID), nil
}

func (fv *followValidator) setEdge(ctx context.Context, followerID, followeeID string, following bool) (domain.EdgeOutcome, error) {
	logger := pkglog.Ctx(ctx).With().
		Str(pkglog.FieldFollowerID, followerID).
		Str(pkglog.FieldFolloweeID, followeeID).
		Bool("following", following).
		Logger()

	ok, err := fv.bothExist(ctx, followerID, followeeID)
	if err != nil {
		return domain.OutcomeSkipped, err
	}
	if !ok {
		logger.Debug().Msg("follow edge skipped, user missing")
		return domain.OutcomeSkipped, nil
	}

	changed, err := fv.followTree.writeEdge(ctx, followerID, followeeID, following)
	if err != nil {
		return domain.OutcomeSkipped, err
	}
	// Project even when the edge was unchanged; an earlier call may have
	// failed between the edge write and its projections.
	if err := fv.followTree.project(ctx, followerID, followeeID); err != nil {
		return domain.OutcomeSkipped, err
	}
	if !changed {
		return domain.OutcomeUnchanged, nil
	}
	logger.Info().Msg("follow edge changed")
	return domain.OutcomeApplied, nil
}

func (fv *followValidator) bothExist(ctx context.Context, followerID, followeeID string) (bool, error) {
	for _, id := range []string{followerID, followeeID} {
		ok, err := fv.users.exists(ctx, id)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// edge reads the edge record between two users.
func (ft *followTree) edge(ctx context.Context, followerID, followeeID string) (*domain.Edge, bool, error) {
	e, err := database.Read[domain.Edge](ctx, ft.tree, edgePath(followerID, followeeID))
	if errors.Is(err, database.ErrNodeNotFound) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

// writeEdge sets the edge to the requested state and reports whether it changed.
// An edge that was never written starts out from the follower's following set,
// so relations stored before edges existed can still be undone.
func (ft *followTree) writeEdge(ctx context.Context, followerID, followeeID string, following bool) (bool, error) {
	path := edgePath(followerID, followeeID)
	var changed bool
	err := database.Transact(ctx, ft.tree, path, func(current []byte, exists bool) ([]byte, error) {
		changed = false
		e := domain.Edge{FollowerID: followerID, FolloweeID: followeeID}
		if exists {
			if err := json.Unmarshal(current, &e); err != nil {
				return nil, err
			}
		} else {
			follower, err := database.Read[domain.User](ctx, ft.tree, userPath(followerID))
			if err != nil {
				return nil, err
			}
			e.Following = follower.Followings.Has(followeeID)
		}
		if exists && e.Following == following {
			return nil, database.ErrAbort
		}
		changed = e.Following != following
		e.Following = following
		e.Revision++
		e.UpdatedAt = time.Now().UTC()
		return json.Marshal(&e)
	})
	if err != nil {
		return false, storageErr(err)
	}
	return changed, nil
}

// project copies the edge state into the follower's Followings and the
// followee's Followers.
func (ft *followTree) project(ctx context.Context, followerID, followeeID string) error {
	sides := []struct {
		owner  string
		member string
		set    func(u *domain.User) *domain.IDSet
	}{
		{followerID, followeeID, func(u *domain.User) *domain.IDSet { return &u.Followings }},
		{followeeID, followerID, func(u *domain.User) *domain.IDSet { return &u.Followers }},
	}
	for _, side := range sides {
		err := database.Update(ctx, ft.tree, userPath(side.owner), func(u *domain.User) error {
			e, found, err := ft.edge(ctx, followerID, followeeID)
			if err != nil {
				return err
			}
			if !found {
				return database.ErrAbort
			}
			// Written even when nothing changed: the version bump makes any
			// concurrent projection that read the edge earlier fail its swap.
			side.set(u).Set(side.member, e.Following)
			return nil
		})
		if errors.Is(err, database.ErrNodeNotFound) {
			continue
		}
		if err != nil {
			return storageErr(err)
		}
	}
	return nil
}
