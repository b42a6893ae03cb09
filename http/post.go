package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"wtfSocial/auth"
	"wtfSocial/domain"
	"wtfSocial/errs"
)

// registerPostRoutes is a helper for registering all Post routes.
func (s *Server) registerPostRoutes(r *mux.Router) {
	// Write a new post.
	r.HandleFunc("/post", s.requireAuth(s.handleCreatePost)).Methods("POST")

	// Get a single post.
	r.HandleFunc("/post/{post_id}", s.requireAuth(s.handleGetPost)).Methods("GET")

	// Get all posts, newest first.
	r.HandleFunc("/feed", s.requireAuth(s.handleGetFeed)).Methods("GET")
}

type postRequest struct {
	Content string `json:"content"`
}

// handleCreatePost handles the route "POST /post".
// The signed in user becomes the author.
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	// Parse the request's json body.
	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid json body."))
		return
	}

	// Store the post.
	post := domain.Post{
		Author:  auth.UserFrom(r.Context()).ID,
		Content: req.Content,
	}
	if err := s.ps.Create(r.Context(), &post); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	// Return the created post.
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(&post); err != nil {
		errs.LogError(r, err)
	}
}

// handleGetPost handles the route "GET /post/{post_id}".
func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.ps.ByID(r.Context(), mux.Vars(r)["post_id"])
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(post); err != nil {
		errs.LogError(r, err)
	}
}

// handleGetFeed handles the route "GET /feed".
func (s *Server) handleGetFeed(w http.ResponseWriter, r *http.Request) {
	posts, err := s.feed.Global(r.Context())
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(posts); err != nil {
		errs.LogError(r, err)
	}
}
