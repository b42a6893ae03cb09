package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"wtfSocial/auth"
	"wtfSocial/errs"
)

// registerLikeRoutes is a helper for registering all Like routes.
func (s *Server) registerLikeRoutes(r *mux.Router) {
	// Like a post, or take the like back.
	r.HandleFunc("/post/{post_id}/like", s.requireAuth(s.handleToggleLike)).Methods("POST")
}

type likeResponse struct {
	PostID    string   `json:"postId"`
	Liked     bool     `json:"liked"`
	Likes     []string `json:"likes"`
	LikeCount int      `json:"likeCount"`
}

// handleToggleLike handles the route "POST /post/{post_id}/like".
// It flips the signed in user's like and returns the post's likes afterwards.
func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["post_id"]
	user := auth.UserFrom(r.Context())

	likes, err := s.ls.ToggleLike(r.Context(), postID, user.ID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	resp := likeResponse{
		PostID:    postID,
		Liked:     likes.Has(user.ID),
		Likes:     likes.Slice(),
		LikeCount: likes.Len(),
	}
	if err := json.NewEncoder(w).Encode(&resp); err != nil {
		errs.LogError(r, err)
	}
}
