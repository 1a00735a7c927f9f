package authhttp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/open-rails/authgate/core"
	"github.com/open-rails/authgate/session"
)

func newTestService(t *testing.T, mutate func(*core.Options)) *Service {
	t.Helper()
	opts := core.Options{
		Domain:       "example.auth0.com",
		ClientID:     "abc",
		ClientSecret: "secret",
	}
	if mutate != nil {
		mutate(&opts)
	}
	s, err := New(core.ServerInfo{URI: "http://app.example.com", Protocol: "http"}, opts)
	require.NoError(t, err)
	return s.DisableRateLimiter()
}

func sessionCookie(t *testing.T, s *Service, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == s.cfg.Session.Name {
			return c
		}
	}
	return nil
}

// loadSession re-binds a browser cookie to its session for assertions.
func loadSession(t *testing.T, s *Service, cookie *http.Cookie) session.Session {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		r.AddCookie(cookie)
	}
	sess, err := s.sessions.Load(httptest.NewRecorder(), r)
	require.NoError(t, err)
	return sess
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate_RedirectsToDialogAndTakesOver(t *testing.T) {
	s := newTestService(t, nil)
	called := false
	h := s.Authenticate(okHandler(&called))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/private", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, s.cfg.DialogURL, rec.Header().Get("Location"))
	require.False(t, called, "downstream handler must not run on takeover")

	sess := loadSession(t, s, sessionCookie(t, s, rec))
	dest, ok, err := sess.Destination(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "/private", dest)
}

func TestAuthenticate_DestinationSetExactlyOnce(t *testing.T) {
	s := newTestService(t, nil)
	called := false
	h := s.Authenticate(okHandler(&called))

	rec1 := httptest.NewRecorder()
	h.ServeHTTP(rec1, httptest.NewRequest(http.MethodGet, "/private", nil))
	cookie := sessionCookie(t, s, rec1)
	require.NotNil(t, cookie)

	// Second unauthenticated hit on a different path must not overwrite.
	r2 := httptest.NewRequest(http.MethodGet, "/other", nil)
	r2.AddCookie(cookie)
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, r2)
	require.Equal(t, http.StatusFound, rec2.Code)

	dest, ok, err := loadSession(t, s, cookie).Destination(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "/private", dest)
}

func TestAuthenticate_PassThroughWithCredentials(t *testing.T) {
	var successCalls int
	var successArg any
	s := newTestService(t, func(o *core.Options) {
		o.Success = func(ctx context.Context, v any) (any, error) {
			successCalls++
			successArg = v
			return "discarded", nil
		}
	})

	// Seed credentials the way a completed callback would.
	w := httptest.NewRecorder()
	sess, err := s.sessions.Load(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	creds := map[string]any{"sub": "u1", "name": "Alice"}
	require.NoError(t, sess.SetCredentials(context.Background(), creds))
	cookie := sessionCookie(t, s, w)
	require.NotNil(t, cookie)

	var got map[string]any
	h := s.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = CredentialsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/private", nil)
	r.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, creds, got, "credentials must pass through verbatim")
	require.Equal(t, 1, successCalls)
	require.Equal(t, creds, successArg)
}

type failingManager struct{ err error }

func (f failingManager) Load(http.ResponseWriter, *http.Request) (session.Session, error) {
	return nil, f.err
}

func TestAuthenticate_ErrorYieldsUnauthorizedWithMessage(t *testing.T) {
	s := newTestService(t, nil).WithSessionManager(failingManager{err: errors.New("store down")})

	called := false
	rec := httptest.NewRecorder()
	s.Authenticate(okHandler(&called)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/private", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"store down"}`, rec.Body.String())
	require.False(t, called)
}

func TestAuthenticate_ErrorRoutedToErrorHook(t *testing.T) {
	var hookErr error
	s := newTestService(t, func(o *core.Options) {
		o.Error = func(ctx context.Context, v any) (any, error) {
			hookErr, _ = v.(error)
			return "ignored", nil
		}
	}).WithSessionManager(failingManager{err: errors.New("store down")})

	rec := httptest.NewRecorder()
	s.Authenticate(okHandler(new(bool))).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/private", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.EqualError(t, hookErr, "store down")
}

func TestAuthenticate_SuccessHookPanicIsContained(t *testing.T) {
	s := newTestService(t, func(o *core.Options) {
		o.Success = func(ctx context.Context, v any) (any, error) {
			panic("hook exploded")
		}
	})

	w := httptest.NewRecorder()
	sess, err := s.sessions.Load(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NoError(t, sess.SetCredentials(context.Background(), map[string]any{"sub": "u1"}))
	cookie := sessionCookie(t, s, w)

	r := httptest.NewRequest(http.MethodGet, "/private", nil)
	r.AddCookie(cookie)
	rec := httptest.NewRecorder()
	s.Authenticate(okHandler(new(bool))).ServeHTTP(rec, r)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "hook exploded")
}

func TestLoginRouteRedirectsToDialog(t *testing.T) {
	s := newTestService(t, nil)
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, s.cfg.DialogURL, rec.Header().Get("Location"))
}
