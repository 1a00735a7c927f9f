package authhttp

import (
	"net/http"

	"github.com/open-rails/authgate/core"
)

// handleCallbackGET is the provider-redirect handler: token exchange, profile
// fetch, transform and success hooks, credential persistence, final redirect.
// Each step runs only after its predecessor fully returned.
func (s *Service) handleCallbackGET(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLCallback) {
		tooMany(w)
		return
	}

	ctx := r.Context()
	q := r.URL.Query()

	if q.Get("error") != "" && q.Get("error_description") != "" {
		cbErr := &CallbackError{Code: q.Get("error"), Description: q.Get("error_description")}
		res, invoked, err := core.InvokeHook(ctx, s.cfg.Error, cbErr)
		if err != nil {
			s.log.Error("error hook failed", "err", err)
			badRequest(w, "callback_error")
			return
		}
		if invoked {
			if h, ok := res.(http.Handler); ok {
				h.ServeHTTP(w, r)
				return
			}
			badRequest(w, "callback_error")
			return
		}
		// No error hook configured: fail closed rather than proceed with an
		// empty code.
		s.log.Warn("provider reported an error on callback", "err", cbErr)
		badRequest(w, "callback_error")
		return
	}

	sess, err := s.sessions.Load(w, r)
	if err != nil {
		s.log.Error("session load failed", "err", err)
		serverErr(w, "session_load_failed")
		return
	}

	token, err := s.client.Exchange(ctx, q.Get("code"))
	if err != nil {
		s.log.Error("token exchange failed", "err", err)
		unauthorized(w, "exchange_failed")
		return
	}

	profile, err := s.client.FetchProfile(ctx, token)
	if err != nil {
		s.log.Error("profile fetch failed", "err", err)
		unauthorized(w, "userinfo_failed")
		return
	}

	if res, invoked, err := core.InvokeHook(ctx, s.cfg.Transformer, profile); err != nil {
		s.log.Error("transformer hook failed", "err", err)
		serverErr(w, "transform_failed")
		return
	} else if invoked {
		m, ok := res.(map[string]any)
		if !ok {
			s.log.Error("transformer hook returned a non-profile value")
			serverErr(w, "transform_failed")
			return
		}
		profile = m
	}

	// The success hook must fully return before credentials persist.
	if _, _, err := core.InvokeHook(ctx, s.cfg.Success, profile); err != nil {
		s.log.Error("success hook failed", "err", err)
		serverErr(w, "success_hook_failed")
		return
	}

	if err := sess.SetCredentials(ctx, profile); err != nil {
		s.log.Error("session write failed", "err", err)
		serverErr(w, "session_write_failed")
		return
	}

	target := s.cfg.LoginSuccessRedirectPath
	if target == "" {
		if dest, ok, derr := sess.Destination(ctx); derr == nil && ok {
			target = dest
		}
	}
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusFound)
}
