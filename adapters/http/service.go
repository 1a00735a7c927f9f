// Package authhttp mounts the authorization-code login flow on a net/http
// host: a login redirect route, the provider callback route, and the
// Authenticate middleware that gates protected routes on session credentials.
package authhttp

import (
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/open-rails/authgate/core"
	"github.com/open-rails/authgate/provider"
	memorylimiter "github.com/open-rails/authgate/ratelimit/memory"
	"github.com/open-rails/authgate/session"
	memorystore "github.com/open-rails/authgate/storage/memory"
	redisstore "github.com/open-rails/authgate/storage/redis"
)

// Service wires the resolved configuration, the provider client, and the
// session manager behind net/http mounting helpers.
type Service struct {
	cfg      *core.Config
	client   *provider.Client
	sessions session.Manager
	rl       RateLimiter
	log      *slog.Logger
}

// New resolves the configuration and wires defaults: cookie sessions over an
// in-memory store and the built-in per-IP rate limits. A missing domain,
// client_id, or client_secret fails resolution and nothing is registered.
func New(server core.ServerInfo, opts core.Options) (*Service, error) {
	cfg, err := core.Resolve(server, opts)
	if err != nil {
		return nil, err
	}
	s := &Service{
		cfg:      cfg,
		client:   provider.New(cfg.BaseURL, cfg.ClientID, cfg.ClientSecret, cfg.RedirectURI),
		sessions: session.NewCookieManager(cfg, memorystore.NewKV()),
		rl:       memorylimiter.New(ToMemoryLimits(DefaultRateLimits())),
		log:      cfg.Logger,
	}
	return s, nil
}

// WithRedis swaps the session backing store to Redis for multi-instance hosts.
func (s *Service) WithRedis(rdb *redis.Client) *Service {
	s.sessions = session.NewCookieManager(s.cfg, redisstore.NewKV(rdb, "authgate:"))
	return s
}

// WithSessionManager replaces the session manager entirely.
func (s *Service) WithSessionManager(m session.Manager) *Service {
	s.sessions = m
	return s
}

// WithProviderClient replaces the provider client (tests point it at a stub
// server).
func (s *Service) WithProviderClient(c *provider.Client) *Service {
	s.client = c
	return s
}

// WithHTTPClient sets the HTTP client used for provider calls.
func (s *Service) WithHTTPClient(hc *http.Client) *Service {
	s.client.HTTPClient = hc
	return s
}

func (s *Service) WithRateLimiter(rl RateLimiter) *Service { s.rl = rl; return s }
func (s *Service) DisableRateLimiter() *Service            { s.rl = nil; return s }

// Config exposes the resolved configuration for hosts that need the derived
// paths or URLs.
func (s *Service) Config() *core.Config { return s.cfg }

// allow applies a per-IP limit for the bucket, failing open on limiter error.
func (s *Service) allow(r *http.Request, bucket string) bool {
	if s.rl == nil {
		return true
	}
	ip := clientIP(r)
	if ip == "" {
		return true
	}
	ok, err := s.rl.AllowNamed(bucket, "auth:"+bucket+":ip:"+ip)
	if err != nil {
		return true
	}
	return ok
}

// Handler returns the login and callback routes as one handler, mountable
// under the host's router at any point that preserves the configured paths.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

// Register mounts the login and callback routes on the host's mux.
func (s *Service) Register(mux *http.ServeMux) {
	mux.Handle("GET "+s.cfg.LoginPath, http.HandlerFunc(s.handleLoginGET))
	mux.Handle("GET "+s.cfg.CallbackPath, http.HandlerFunc(s.handleCallbackGET))
}

// handleLoginGET sends the browser to the provider's hosted login page.
func (s *Service) handleLoginGET(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLLogin) {
		tooMany(w)
		return
	}
	http.Redirect(w, r, s.cfg.DialogURL, http.StatusFound)
}
