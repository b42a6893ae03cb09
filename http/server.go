package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"wtfSocial/auth"
	"wtfSocial/crud"
	"wtfSocial/domain"
	"wtfSocial/errs"
	pkglog "wtfSocial/log"
)

// sessionCookie is the name of the cookie holding the session token.
const sessionCookie = "session"

// Options holds the settings of a Server that come from configuration.
type Options struct {
	IsProd    bool
	ClientURL string
	// CSRFKey turns on csrf protection for cookie sessions when set. It must be 32 bytes long.
	CSRFKey string
}

// Server provides the http functionality of this app, namely routing,
// request handling, and middleware. It also performs authentication
// before handing things over to one of the crud services.
type Server struct {
	router  *mux.Router
	handler http.Handler
	opts    Options
	tokens  *auth.Tokens

	us   domain.UserService
	fs   domain.FollowService
	ps   domain.PostService
	ls   domain.LikeService
	cs   domain.CommentService
	feed domain.FeedService
}

// NewServer returns a new instance of the server, registers all necessary
// routes and gives their handlers access to the app services passed in.
func NewServer(opts Options, tokens *auth.Tokens, services *crud.Services) *Server {
	// Construct a new Server with a gorilla router and the services passed in.
	s := &Server{
		router: mux.NewRouter(),
		opts:   opts,
		tokens: tokens,
		us:     services.User,
		fs:     services.Follow,
		ps:     services.Post,
		ls:     services.Like,
		cs:     services.Comment,
		feed:   services.Feed,
	}

	// Register routes.
	s.registerAuthRoutes(s.router)
	s.registerUserRoutes(s.router)
	s.registerFollowRoutes(s.router)
	s.registerPostRoutes(s.router)
	s.registerLikeRoutes(s.router)
	s.registerCommentRoutes(s.router)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errs.ReturnError(w, r, errs.Errorf(errs.ENOTFOUND, "Route not found."))
	})

	// Set up middleware that needs to run on every request.
	mws := []mux.MiddlewareFunc{pkglog.HTTPMiddleware(pkglog.L()), setContentTypeJSON}
	if opts.CSRFKey != "" {
		// Requests authenticated by the session cookie have to echo the token
		// handed out in the X-CSRF-Token header of every response.
		csrfMw := csrf.Protect([]byte(opts.CSRFKey),
			csrf.Secure(opts.IsProd),
			csrf.Path("/"),
			csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				errs.ReturnError(w, r, errs.Errorf(errs.EUNAUTHORIZED, "Invalid csrf token."))
			})))
		mws = append(mws, csrfMw, exposeCSRFToken)
	}
	mws = append(mws, s.checkUser)
	s.router.Use(mws...)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{opts.ClientURL}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-CSRF-Token"}),
		handlers.ExposedHeaders([]string{"X-CSRF-Token", "X-Request-ID"}),
		handlers.AllowCredentials(),
	)
	s.handler = handlers.RecoveryHandler(handlers.PrintRecoveryStack(!opts.IsProd))(cors(s.router))
	return s
}

// ServeHTTP makes the Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger := pkglog.L()
		logger.Info().Str("addr", addr).Msg("http server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// The setContentTypeJSON middleware sets the content type to "application/json".
func setContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func exposeCSRFToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-CSRF-Token", csrf.Token(r))
		next.ServeHTTP(w, r)
	})
}

// checkUser reads the session token from the Authorization header or the session
// cookie. If it is valid and its user still exists, the user is put into the
// request context. Requests without a valid token go on anonymously.
func (s *Server) checkUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			if cookie, err := r.Cookie(sessionCookie); err == nil {
				token = cookie.Value
			}
		}
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := s.tokens.Verify(token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		user, err := s.us.ByID(r.Context(), userID)
		if err != nil {
			if !errs.Is(err, errs.ENOTFOUND) {
				errs.ReturnError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := auth.WithUser(r.Context(), user)
		l := pkglog.Ctx(ctx).With().Str(pkglog.FieldUserID, user.ID).Logger()
		ctx = pkglog.WithLogger(ctx, l)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuth only lets requests through that carry a signed in user.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.UserFrom(r.Context()) == nil {
			errs.ReturnError(w, r, errs.Errorf(errs.EUNAUTHORIZED, "You need to be signed in."))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
