package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"wtfSocial/auth"
	"wtfSocial/domain"
	"wtfSocial/errs"
)

// registerCommentRoutes is a helper for registering all Comment routes.
func (s *Server) registerCommentRoutes(r *mux.Router) {
	r.HandleFunc("/post/{post_id}/comment", s.requireAuth(s.handleCreateComment)).Methods("POST")
	r.HandleFunc("/post/{post_id}/comments", s.requireAuth(s.handleGetComments)).Methods("GET")
}

type commentRequest struct {
	Content string `json:"content"`
}

// handleCreateComment handles the route "POST /post/{post_id}/comment".
func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	// Parse the request's json body.
	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid json body."))
		return
	}

	// Attach the comment to the post.
	comment := domain.Comment{
		PostID:  mux.Vars(r)["post_id"],
		Author:  auth.UserFrom(r.Context()).ID,
		Content: req.Content,
	}
	if err := s.cs.Create(r.Context(), &comment); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	// Return the created comment.
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(&comment); err != nil {
		errs.LogError(r, err)
	}
}

// handleGetComments handles the route "GET /post/{post_id}/comments?limit=n".
// Without a limit all comments are returned.
func (s *Server) handleGetComments(w http.ResponseWriter, r *http.Request) {
	limit := domain.NoLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid limit."))
			return
		}
		limit = n
	}

	comments, err := s.cs.ByPost(r.Context(), mux.Vars(r)["post_id"], limit)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(comments); err != nil {
		errs.LogError(r, err)
	}
}
