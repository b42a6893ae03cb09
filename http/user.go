package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"wtfSocial/auth"
	"wtfSocial/domain"
	"wtfSocial/errs"
	pkglog "wtfSocial/log"
)

func (s *Server) registerUserRoutes(r *mux.Router) {
	// Get the profile data of a specific user.
	r.HandleFunc("/profile/{user_id}", s.requireAuth(s.handleGetProfile)).Methods("GET")

	// Update the signed in user's data.
	r.HandleFunc("/profile", s.requireAuth(s.handleUpdateProfile)).Methods("PUT")

	// The people around a user and their posts.
	r.HandleFunc("/profile/{user_id}/followers", s.requireAuth(s.handleGetFollowers)).Methods("GET")
	r.HandleFunc("/profile/{user_id}/followings", s.requireAuth(s.handleGetFollowings)).Methods("GET")
	r.HandleFunc("/profile/{user_id}/posts", s.requireAuth(s.handleGetUserPosts)).Methods("GET")

	// Search for users.
	r.HandleFunc("/search/profiles", s.requireAuth(s.handleSearchProfiles)).Methods("GET")
}

// handleSearchProfiles handles the route "GET /search/profiles?q=term".
// It returns the profiles whose full name contains the term.
func (s *Server) handleSearchProfiles(w http.ResponseWriter, r *http.Request) {
	users, err := s.us.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(profiles(users)); err != nil {
		errs.LogError(r, err)
	}
}

// handleGetProfile handles the route "GET /profile/{user_id}".
// It returns the requested user's public profile and whether the signed in user follows them.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	// Fetch the user.
	user, err := s.us.ByID(r.Context(), mux.Vars(r)["user_id"])
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	profile := user.Profile()

	// Check if the authed user is following that user.
	authed := auth.UserFrom(r.Context())
	if authed.ID != user.ID {
		following, err := s.fs.IsFollowing(r.Context(), authed.ID, user.ID)
		if err != nil {
			errs.ReturnError(w, r, err)
			return
		}
		profile.AuthFollow = &following
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(&profile); err != nil {
		errs.LogError(r, err)
	}
}

// handleUpdateProfile handles the route "PUT /profile".
// A changed full name is copied onto the user's posts and comments.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	// Parse the request's json body.
	var upd domain.UserUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid update data."))
		return
	}

	authed := auth.UserFrom(r.Context())
	user, err := s.us.Update(r.Context(), authed.ID, upd)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	if user.FullName != authed.FullName {
		if _, err := s.ps.RefreshAuthorNames(r.Context(), user.ID); err != nil {
			// The profile itself is updated; stale names can be refreshed later.
			pkglog.Ctx(r.Context()).Warn().Err(err).Msg("refreshing author names failed")
		}
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(user.Profile()); err != nil {
		errs.LogError(r, err)
	}
}

// handleGetFollowers handles the route "GET /profile/{user_id}/followers".
func (s *Server) handleGetFollowers(w http.ResponseWriter, r *http.Request) {
	users, err := s.fs.Followers(r.Context(), mux.Vars(r)["user_id"])
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(profiles(users)); err != nil {
		errs.LogError(r, err)
	}
}

// handleGetFollowings handles the route "GET /profile/{user_id}/followings".
func (s *Server) handleGetFollowings(w http.ResponseWriter, r *http.Request) {
	users, err := s.fs.Followings(r.Context(), mux.Vars(r)["user_id"])
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(profiles(users)); err != nil {
		errs.LogError(r, err)
	}
}

// handleGetUserPosts handles the route "GET /profile/{user_id}/posts".
// It returns the user's posts, newest first.
func (s *Server) handleGetUserPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.feed.ByUser(r.Context(), mux.Vars(r)["user_id"])
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(posts); err != nil {
		errs.LogError(r, err)
	}
}

// profiles maps users to their public profiles.
func profiles(users []domain.User) []domain.Profile {
	out := make([]domain.Profile, len(users))
	for i := range users {
		out[i] = users[i].Profile()
	}
	return out
}
