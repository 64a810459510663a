package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ellarises/web/internal/flash"
	"github.com/ellarises/web/internal/identity/entity"
	"github.com/ellarises/web/internal/identity/repo"
	"github.com/ellarises/web/internal/session"
	"github.com/ellarises/web/internal/view"
)

type handlerEnv struct {
	store    *repo.MemoryStore
	sessions *session.MemoryStore
	handler  http.Handler
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	logger := zap.NewNop().Sugar()
	store := repo.NewMemoryStore()
	sessStore := session.NewMemoryStore(time.Hour)
	mgr := session.NewManager(sessStore, false, logger)
	views, err := view.New(logger)
	require.NoError(t, err)

	mux := http.NewServeMux()
	NewHandler(newTestService(store), mgr, views, logger).Register(mux)
	return &handlerEnv{store: store, sessions: sessStore, handler: mgr.Middleware(mux)}
}

func (e *handlerEnv) post(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *handlerEnv) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func flashFrom(t *testing.T, rec *httptest.ResponseRecorder) flash.Notice {
	t.Helper()
	c := responseCookie(rec, flash.CookieName)
	require.NotNil(t, c, "expected flash cookie")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	n, ok := flash.ReadAndClear(httptest.NewRecorder(), req)
	require.True(t, ok)
	return n
}

func signupForm(email, pw, confirm string) url.Values {
	return url.Values{
		"firstName":       {"Amy"},
		"lastName":        {"Lee"},
		"email":           {email},
		"password":        {pw},
		"confirmPassword": {confirm},
	}
}

func TestHandler_SignupSuccess(t *testing.T) {
	env := newHandlerEnv(t)

	rec := env.post("/signup", signupForm("Amy@X.com", "pw", "pw"))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/my-journey", rec.Header().Get("Location"))

	c := responseCookie(rec, session.CookieName)
	require.NotNil(t, c)
	s, err := env.sessions.Get(context.Background(), c.Value)
	require.NoError(t, err)
	assert.Equal(t, "amy@x.com", s.Identity.Email)

	n := flashFrom(t, rec)
	assert.Equal(t, flash.KindSuccess, n.Kind)
	assert.Equal(t, "Your account was created. Welcome to Ella Rises.", n.Message)
}

func TestHandler_SignupFailures(t *testing.T) {
	env := newHandlerEnv(t)
	require.Equal(t, http.StatusSeeOther, env.post("/signup", signupForm("taken@x.com", "pw", "pw")).Code)

	tests := []struct {
		name     string
		form     url.Values
		location string
		message  string
	}{
		{"missing fields", url.Values{"email": {"a@b.com"}}, "/signup?email=a%40b.com", "Please fill out all required fields."},
		{"mismatch", signupForm("a@b.com", "pw", "other"), "/signup?email=a%40b.com", "Passwords do not match."},
		{"password too long", signupForm("a@b.com", strings.Repeat("x", 73), strings.Repeat("x", 73)), "/signup?email=a%40b.com", "Password must be at most 72 bytes."},
		{"no email", signupForm("", "pw", "pw"), "/signup", "Please fill out all required fields."},
		{"duplicate", signupForm("TAKEN@x.com", "pw", "pw"), "/login?email=TAKEN%40x.com", "An account with that email already exists."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.post("/signup", tt.form)
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, tt.location, rec.Header().Get("Location"))
			assert.Nil(t, responseCookie(rec, session.CookieName))
			n := flashFrom(t, rec)
			assert.Equal(t, flash.KindError, n.Kind)
			assert.Equal(t, tt.message, n.Message)
		})
	}
}

func TestHandler_SignupFormKeepsEmail(t *testing.T) {
	env := newHandlerEnv(t)

	rec := env.post("/signup", signupForm("amy@x.com", "pw", "other"))
	loc := rec.Header().Get("Location")
	require.Equal(t, "/signup?email=amy%40x.com", loc)

	rec = env.get(loc, responseCookie(rec, flash.CookieName))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="amy@x.com"`)
	assert.Contains(t, rec.Body.String(), "Passwords do not match.")
}

func TestHandler_LoginRoutesByRole(t *testing.T) {
	env := newHandlerEnv(t)
	seedAccount(t, env.store, "u1", "amy@x.com", "pw", entity.RoleUser, true)
	seedAccount(t, env.store, "a1", "root@x.com", "pw", entity.RoleAdmin, true)

	rec := env.post("/login", url.Values{"email": {"Amy@x.com"}, "password": {"pw"}})
	assert.Equal(t, "/my-journey", rec.Header().Get("Location"))
	assert.Equal(t, "Welcome back to Ella Rises.", flashFrom(t, rec).Message)

	rec = env.post("/login", url.Values{"email": {"root@x.com"}, "password": {"pw"}})
	assert.Equal(t, "/manage", rec.Header().Get("Location"))
}

func TestHandler_LoginFailureIsGeneric(t *testing.T) {
	env := newHandlerEnv(t)
	seedAccount(t, env.store, "u1", "amy@x.com", "pw", entity.RoleUser, true)

	unknown := env.post("/login", url.Values{"email": {"ghost@x.com"}, "password": {"pw"}})
	wrong := env.post("/login", url.Values{"email": {"amy@x.com"}, "password": {"nope"}})

	assert.Equal(t, flashFrom(t, unknown).Message, flashFrom(t, wrong).Message)
	assert.True(t, strings.HasPrefix(wrong.Header().Get("Location"), "/login"))
	assert.Nil(t, responseCookie(wrong, session.CookieName))
}

func TestHandler_LoginReplacesExistingSession(t *testing.T) {
	env := newHandlerEnv(t)
	seedAccount(t, env.store, "u1", "amy@x.com", "pw", entity.RoleUser, true)

	old, err := env.sessions.Create(context.Background(), entity.SessionIdentity{AccountID: "someone"})
	require.NoError(t, err)

	rec := env.post("/login", url.Values{"email": {"amy@x.com"}, "password": {"pw"}},
		&http.Cookie{Name: session.CookieName, Value: old.ID})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	_, err = env.sessions.Get(context.Background(), old.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)
	c := responseCookie(rec, session.CookieName)
	require.NotNil(t, c)
	assert.NotEqual(t, old.ID, c.Value)
}

func TestHandler_FormsRedirectAuthenticated(t *testing.T) {
	env := newHandlerEnv(t)
	s, err := env.sessions.Create(context.Background(), entity.SessionIdentity{AccountID: "a1", Role: entity.RoleAdmin})
	require.NoError(t, err)
	cookie := &http.Cookie{Name: session.CookieName, Value: s.ID}

	for _, path := range []string{"/login", "/signup"} {
		rec := env.get(path, cookie)
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.Equal(t, "/manage", rec.Header().Get("Location"), path)
	}

	rec := env.get("/login?email=amy%40x.com")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="amy@x.com"`)

	rec = env.get("/signup")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Create Account")
}

func TestHandler_Logout(t *testing.T) {
	env := newHandlerEnv(t)
	s, err := env.sessions.Create(context.Background(), entity.SessionIdentity{AccountID: "a1"})
	require.NoError(t, err)

	rec := env.post("/logout", nil, &http.Cookie{Name: session.CookieName, Value: s.ID})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	_, err = env.sessions.Get(context.Background(), s.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)
	c := responseCookie(rec, session.CookieName)
	require.NotNil(t, c)
	assert.Equal(t, -1, c.MaxAge)

	anon := env.post("/logout", nil)
	assert.Equal(t, "/", anon.Header().Get("Location"))
}
