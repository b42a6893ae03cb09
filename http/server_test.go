package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"wtfSocial/auth"
	"wtfSocial/crud"
	"wtfSocial/database"
	"wtfSocial/domain"
)

func newTestServer(t *testing.T, tree database.Tree, opts Options) *Server {
	t.Helper()
	services, err := crud.NewServices(tree,
		crud.WithUser("test-pepper"),
		crud.WithFollow(),
		crud.WithPost(),
		crud.WithLike(),
		crud.WithComment(),
		crud.WithFeed(),
	)
	require.NoError(t, err)
	tokens, err := auth.NewTokens("test-hmac-key", time.Hour, "wtfSocial")
	require.NoError(t, err)
	return NewServer(opts, tokens, services)
}

func do(t *testing.T, srv http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func signUp(t *testing.T, srv http.Handler, name, email string) sessionResponse {
	t.Helper()
	rec := do(t, srv, "POST", "/register", "", registerRequest{
		FullName:       name,
		Email:          email,
		Password:       "secret",
		RepeatPassword: "secret",
		Address:        "Main Street 1",
		Bio:            "Hello there",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var session sessionResponse
	decode(t, rec, &session)
	return session
}

func TestRegisterAndLogin(t *testing.T) {
	srv := newTestServer(t, database.NewMemoryTree(), Options{})
	session := signUp(t, srv, "Alice Liddell", "alice@example.com")
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "alice@example.com", session.User.Email)

	rec := do(t, srv, "POST", "/login", "", loginRequest{Email: "alice@example.com", Password: "wrong"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, "POST", "/login", "", loginRequest{Email: "ALICE@example.com", Password: "secret"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "passwordHash")

	// The cookie alone is enough to be signed in.
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	req := httptest.NewRequest("GET", "/me", nil)
	req.AddCookie(cookies[0])
	me := httptest.NewRecorder()
	srv.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code, me.Body.String())
	var profile domain.Profile
	decode(t, me, &profile)
	assert.Equal(t, session.User.ID, profile.ID)

	rec = do(t, srv, "POST", "/logout", session.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterErrors(t *testing.T) {
	srv := newTestServer(t, database.NewMemoryTree(), Options{})
	signUp(t, srv, "Alice Liddell", "alice@example.com")

	rec := do(t, srv, "POST", "/register", "", registerRequest{
		FullName: "Other Alice", Email: "alice@example.com", Password: "secret",
		Address: "Main Street 2", Bio: "Hello again",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, srv, "POST", "/register", "", registerRequest{
		FullName: "Al", Email: "al@example.com", Password: "secret",
		Address: "Main Street 2", Bio: "Hello again",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	decode(t, rec, &body)
	assert.NotEmpty(t, body["error"])
}

func TestRequireAuth(t *testing.T) {
	srv := newTestServer(t, database.NewMemoryTree(), Options{})
	for _, token := range []string{"", "garbage"} {
		rec := do(t, srv, "GET", "/feed", token, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestFollowRoutes(t *testing.T) {
	srv := newTestServer(t, database.NewMemoryTree(), Options{})
	alice := signUp(t, srv, "Alice Liddell", "alice@example.com")
	bob := signUp(t, srv, "Bob Builder", "bob@example.com")

	rec := do(t, srv, "POST", "/follow/"+bob.User.ID, alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp followResponse
	decode(t, rec, &resp)
	assert.Equal(t, "applied", resp.Outcome)

	rec = do(t, srv, "GET", "/profile/"+bob.User.ID, alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile domain.Profile
	decode(t, rec, &profile)
	require.NotNil(t, profile.AuthFollow)
	assert.True(t, *profile.AuthFollow)
	assert.Equal(t, 1, profile.FollowerCount)

	rec = do(t, srv, "GET", "/profile/"+bob.User.ID+"/followers", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var followers []domain.Profile
	decode(t, rec, &followers)
	require.Len(t, followers, 1)
	assert.Equal(t, alice.User.ID, followers[0].ID)

	rec = do(t, srv, "DELETE", "/follow/"+bob.User.ID, alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, "GET", "/follow/"+bob.User.ID, alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &resp)
	assert.False(t, resp.Following)

	rec = do(t, srv, "POST", "/follow/ghost", alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostLikeCommentRoutes(t *testing.T) {
	srv := newTestServer(t, database.NewMemoryTree(), Options{})
	alice := signUp(t, srv, "Alice Liddell", "alice@example.com")
	bob := signUp(t, srv, "Bob Builder", "bob@example.com")

	rec := do(t, srv, "POST", "/post", bob.Token, postRequest{Content: strings.Repeat("x", 101)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, "POST", "/post", bob.Token, postRequest{Content: "can we fix it?"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var post domain.Post
	decode(t, rec, &post)
	assert.Equal(t, "Bob Builder", post.AuthorName)

	rec = do(t, srv, "POST", "/post/"+post.ID+"/like", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var like likeResponse
	decode(t, rec, &like)
	assert.True(t, like.Liked)
	assert.Equal(t, 1, like.LikeCount)

	rec = do(t, srv, "POST", "/post/missing/like", alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	for _, text := range []string{"first", "second"} {
		rec = do(t, srv, "POST", "/post/"+post.ID+"/comment", alice.Token, commentRequest{Content: text})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec = do(t, srv, "GET", "/post/"+post.ID+"/comments?limit=1", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var comments []domain.Comment
	decode(t, rec, &comments)
	require.Len(t, comments, 1)
	assert.Equal(t, "first", comments[0].Content)

	rec = do(t, srv, "GET", "/post/"+post.ID+"/comments?limit=abc", alice.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, "GET", "/feed", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var feed []domain.Post
	decode(t, rec, &feed)
	require.Len(t, feed, 1)
	assert.Len(t, feed[0].Comments, 2)

	rec = do(t, srv, "GET", "/profile/"+bob.User.ID+"/posts", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &feed)
	assert.Len(t, feed, 1)
}

func TestUpdateProfileRefreshesAuthorNames(t *testing.T) {
	srv := newTestServer(t, database.NewMemoryTree(), Options{})
	bob := signUp(t, srv, "Bob Builder", "bob@example.com")

	rec := do(t, srv, "POST", "/post", bob.Token, postRequest{Content: "hello"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var post domain.Post
	decode(t, rec, &post)

	rec = do(t, srv, "PUT", "/profile", bob.Token, map[string]string{"fullName": "Robert Builder"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, "GET", "/post/"+post.ID, bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &post)
	assert.Equal(t, "Robert Builder", post.AuthorName)

	rec = do(t, srv, "GET", "/search/profiles?q=robert", bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var found []domain.Profile
	decode(t, rec, &found)
	assert.Len(t, found, 1)
}

func TestCSRFProtection(t *testing.T) {
	srv := newTestServer(t, database.NewMemoryTree(), Options{CSRFKey: "0123456789abcdef0123456789abcdef"})

	rec := do(t, srv, "GET", "/feed", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-CSRF-Token"))

	rec = do(t, srv, "POST", "/login", "", loginRequest{Email: "a@example.com", Password: "secret"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "Invalid csrf token.", body["error"])
}

type downTree struct{}

func (downTree) Get(context.Context, string) (database.Node, error) {
	return database.Node{}, errors.New("dial tcp: connection refused")
}

func (downTree) Children(context.Context, string) ([]database.Node, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func (downTree) CompareAndSwap(context.Context, string, int64, []byte) error {
	return errors.New("dial tcp: connection refused")
}

func (downTree) Close() error { return nil }

func TestStorageUnavailable(t *testing.T) {
	srv := newTestServer(t, downTree{}, Options{})
	rec := do(t, srv, "POST", "/login", "", loginRequest{Email: "a@example.com", Password: "secret"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}
