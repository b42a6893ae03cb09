package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"wtfSocial/auth"
	"wtfSocial/domain"
	"wtfSocial/errs"
)

func (s *Server) registerFollowRoutes(r *mux.Router) {
	r.HandleFunc("/follow/{user_id}", s.requireAuth(s.handleFollow)).Methods("POST")
	r.HandleFunc("/follow/{user_id}", s.requireAuth(s.handleUnfollow)).Methods("DELETE")
	r.HandleFunc("/follow/{user_id}", s.requireAuth(s.handleIsFollowing)).Methods("GET")
}

type followResponse struct {
	FollowerID string `json:"followerId"`
	FolloweeID string `json:"followeeId"`
	Following  bool   `json:"following"`
	Outcome    string `json:"outcome,omitempty"`
}

// handleFollow handles the route "POST /follow/{user_id}".
func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	s.setFollow(w, r, s.fs.Follow, true)
}

// handleUnfollow handles the route "DELETE /follow/{user_id}".
func (s *Server) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	s.setFollow(w, r, s.fs.Unfollow, false)
}

func (s *Server) setFollow(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, followerID, followeeID string) (domain.EdgeOutcome, error), following bool) {
	follower := auth.UserFrom(r.Context())
	followeeID := mux.Vars(r)["user_id"]

	outcome, err := op(r.Context(), follower.ID, followeeID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	// The signed in user exists, so a skipped edge means the other user doesn't.
	if outcome == domain.OutcomeSkipped {
		errs.ReturnError(w, r, errs.Errorf(errs.ENOTFOUND, "The user does not exist."))
		return
	}

	w.WriteHeader(http.StatusOK)
	resp := followResponse{
		FollowerID: follower.ID,
		FolloweeID: followeeID,
		Following:  following,
		Outcome:    outcome.String(),
	}
	if err := json.NewEncoder(w).Encode(&resp); err != nil {
		errs.LogError(r, err)
	}
}

// handleIsFollowing handles the route "GET /follow/{user_id}".
func (s *Server) handleIsFollowing(w http.ResponseWriter, r *http.Request) {
	follower := auth.UserFrom(r.Context())
	followeeID := mux.Vars(r)["user_id"]

	following, err := s.fs.IsFollowing(r.Context(), follower.ID, followeeID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	resp := followResponse{FollowerID: follower.ID, FolloweeID: followeeID, Following: following}
	if err := json.NewEncoder(w).Encode(&resp); err != nil {
		errs.LogError(r, err)
	}
}
