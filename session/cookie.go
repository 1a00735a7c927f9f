package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/open-rails/authgate/core"
)

const keyPrefix = "authgate:sess:"

// CookieManager identifies the browser with a signed session-id cookie and
// keeps the session entry as one JSON document in a KV store. The cookie
// value is an HS256 token carrying only the random session id; all data stays
// server-side.
type CookieManager struct {
	cookieName     string
	secret         []byte
	credentialsKey string
	storeBlank     bool
	secure         bool
	httpOnly       bool
	sameSite       http.SameSite
	ttl            time.Duration
	kv             KV
}

func NewCookieManager(cfg *core.Config, kv KV) *CookieManager {
	return &CookieManager{
		cookieName:     cfg.Session.Name,
		secret:         []byte(cfg.Session.Secret),
		credentialsKey: cfg.CredentialsKey,
		storeBlank:     cfg.Session.StoreBlank,
		secure:         cfg.Session.Secure,
		httpOnly:       cfg.Session.HTTPOnly,
		sameSite:       cfg.Session.SameSite,
		ttl:            cfg.Session.TTL,
		kv:             kv,
	}
}

// Load resolves the request's session. A missing, tampered, or expired cookie
// yields a fresh session id. Unless StoreBlank is set, neither the cookie nor
// the store entry is written until the first mutation.
func (m *CookieManager) Load(w http.ResponseWriter, r *http.Request) (Session, error) {
	if c, err := r.Cookie(m.cookieName); err == nil {
		if sid := m.verify(c.Value); sid != "" {
			return &cookieSession{m: m, w: w, sid: sid, cookieSet: true}, nil
		}
	}
	s := &cookieSession{m: m, w: w, sid: uuid.NewString()}
	if m.storeBlank {
		if err := s.ensureCookie(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (m *CookieManager) verify(value string) string {
	tok, err := jwt.Parse(value, func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return ""
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	sid, _ := claims["sid"].(string)
	return sid
}

func (m *CookieManager) sign(sid string) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid": sid,
		"iat": time.Now().Unix(),
	})
	return tok.SignedString(m.secret)
}

type cookieSession struct {
	m         *CookieManager
	w         http.ResponseWriter
	sid       string
	cookieSet bool
}

func (s *cookieSession) Destination(ctx context.Context) (string, bool, error) {
	rec, err := s.read(ctx)
	if err != nil {
		return "", false, err
	}
	dest, ok := rec["destination"].(string)
	if !ok || dest == "" {
		return "", false, nil
	}
	return dest, true, nil
}

func (s *cookieSession) SetDestination(ctx context.Context, path string) error {
	return s.update(ctx, "destination", path)
}

func (s *cookieSession) Credentials(ctx context.Context) (map[string]any, bool, error) {
	rec, err := s.read(ctx)
	if err != nil {
		return nil, false, err
	}
	creds, ok := rec[s.m.credentialsKey].(map[string]any)
	if !ok {
		return nil, false, nil
	}
	return creds, true, nil
}

func (s *cookieSession) SetCredentials(ctx context.Context, creds map[string]any) error {
	return s.update(ctx, s.m.credentialsKey, creds)
}

func (s *cookieSession) read(ctx context.Context) (map[string]any, error) {
	b, ok, err := s.m.kv.Get(ctx, keyPrefix+s.sid)
	if err != nil {
		return nil, fmt.Errorf("session read: %w", err)
	}
	if !ok {
		return map[string]any{}, nil
	}
	var rec map[string]any
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("session decode: %w", err)
	}
	return rec, nil
}

// update is a read-modify-write without locking; see the Session doc comment.
func (s *cookieSession) update(ctx context.Context, field string, value any) error {
	rec, err := s.read(ctx)
	if err != nil {
		return err
	}
	rec[field] = value
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("session encode: %w", err)
	}
	if err := s.m.kv.Set(ctx, keyPrefix+s.sid, b, s.m.ttl); err != nil {
		return fmt.Errorf("session write: %w", err)
	}
	return s.ensureCookie()
}

func (s *cookieSession) ensureCookie() error {
	if s.cookieSet {
		return nil
	}
	signed, err := s.m.sign(s.sid)
	if err != nil {
		return fmt.Errorf("session cookie: %w", err)
	}
	http.SetCookie(s.w, &http.Cookie{
		Name:     s.m.cookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(s.m.ttl / time.Second),
		Secure:   s.m.secure,
		HttpOnly: s.m.httpOnly,
		SameSite: s.m.sameSite,
	})
	s.cookieSet = true
	return nil
}
