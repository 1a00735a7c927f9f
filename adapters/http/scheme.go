package authhttp

import (
	"context"
	"fmt"
	"net/http"

	"github.com/open-rails/authgate/core"
)

type credentialsCtxKey struct{}

func setCredentials(ctx context.Context, creds map[string]any) context.Context {
	return context.WithValue(ctx, credentialsCtxKey{}, creds)
}

// CredentialsFromContext returns the session credentials attached by
// Authenticate.
func CredentialsFromContext(ctx context.Context) (map[string]any, bool) {
	creds, ok := ctx.Value(credentialsCtxKey{}).(map[string]any)
	return creds, ok
}

// Authenticate gates a protected route on session credentials. Requests with
// credentials pass through with them attached to the context; requests
// without are remembered (destination, captured exactly once) and redirected
// to the provider's login dialog, bypassing the downstream handler entirely.
// Failures yield 401 with the error's message; the message text reaches the
// browser, a deliberate simplicity trade-off.
func (s *Service) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		creds, redirect, err := s.authenticate(w, r)
		if err != nil {
			s.authError(r.Context(), err)
			unauthorized(w, err.Error())
			return
		}
		if redirect {
			http.Redirect(w, r, s.cfg.DialogURL, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(setCredentials(r.Context(), creds)))
	})
}

func (s *Service) authenticate(w http.ResponseWriter, r *http.Request) (creds map[string]any, redirect bool, err error) {
	// Hooks are host code; a panic there must not take the request down
	// unhandled.
	defer func() {
		if rec := recover(); rec != nil {
			creds, redirect = nil, false
			err = fmt.Errorf("authenticate: panic: %v", rec)
		}
	}()

	ctx := r.Context()
	sess, err := s.sessions.Load(w, r)
	if err != nil {
		return nil, false, err
	}

	if _, ok, derr := sess.Destination(ctx); derr != nil {
		return nil, false, derr
	} else if !ok {
		if serr := sess.SetDestination(ctx, r.URL.Path); serr != nil {
			return nil, false, serr
		}
	}

	creds, ok, err := sess.Credentials(ctx)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, true, nil
	}

	if _, _, herr := core.InvokeHook(ctx, s.cfg.Success, creds); herr != nil {
		return nil, false, herr
	}
	return creds, false, nil
}

// authError routes authenticate failures to the error hook when configured,
// otherwise to the operational log. The hook's result is ignored either way.
func (s *Service) authError(ctx context.Context, err error) {
	if s.cfg.Error != nil {
		_, _, _ = core.InvokeHook(ctx, s.cfg.Error, err)
		return
	}
	s.log.Error("authentication failed", "err", err)
}
