package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"wtfSocial/auth"
	"wtfSocial/domain"
	"wtfSocial/errs"
)

func (s *Server) registerAuthRoutes(r *mux.Router) {
	r.HandleFunc("/register", s.handleRegister).Methods("POST")
	r.HandleFunc("/login", s.handleLogin).Methods("POST")
	r.HandleFunc("/logout", s.handleLogout).Methods("POST")
	r.HandleFunc("/me", s.requireAuth(s.handleMe)).Methods("GET")
}

type registerRequest struct {
	FullName       string `json:"fullName"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	RepeatPassword string `json:"repeatPassword"`
	Address        string `json:"address"`
	Bio            string `json:"bio"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	User      domain.Profile `json:"user"`
}

// handleRegister handles the route "POST /register".
// It creates a new user and signs them in.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	// Parse the request's json body.
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid json body."))
		return
	}

	// Create the user. The password is hashed on the way.
	user := domain.User{
		FullName:        req.FullName,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.RepeatPassword,
		Address:         req.Address,
		Bio:             req.Bio,
	}
	if err := s.us.Create(r.Context(), &user); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	s.signIn(w, r, &user, http.StatusCreated)
}

// handleLogin handles the route "POST /login".
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid json body."))
		return
	}

	user, err := s.us.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	s.signIn(w, r, user, http.StatusOK)
}

// handleLogout handles the route "POST /logout". Tokens are stateless,
// so signing out means dropping the session cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.IsProd,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{"message": "Signed out."}); err != nil {
		errs.LogError(r, err)
	}
}

// handleMe handles the route "GET /me" and returns the signed in user's profile.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFrom(r.Context())

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(user.Profile()); err != nil {
		errs.LogError(r, err)
	}
}

// signIn issues a session token for user, sets it as cookie and returns it in the body.
func (s *Server) signIn(w http.ResponseWriter, r *http.Request, user *domain.User, status int) {
	token, exp, err := s.tokens.Issue(user.ID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   s.opts.IsProd,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(&sessionResponse{Token: token, ExpiresAt: exp, User: user.Profile()}); err != nil {
		errs.LogError(r, err)
	}
}
