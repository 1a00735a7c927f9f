package core

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
)

// ServerInfo describes the host server authgate is mounted on.
type ServerInfo struct {
	// URI is the externally reachable base URL, e.g. "http://localhost:8080".
	URI string
	// Protocol is "http" or "https"; it drives the session cookie Secure flag.
	Protocol string
}

// SessionOptions configure the per-browser session cookie and its backing
// store. The bool fields are pointers so an explicit false survives the
// defaults merge.
type SessionOptions struct {
	// Name is the cookie name; a random 10-character name is generated when
	// unset so no fixed value ever appears across processes.
	Name string
	// Secret signs the session cookie. Generated (256 characters) when unset.
	Secret     string
	StoreBlank *bool
	Secure     *bool
	HTTPOnly   *bool
	SameSite   http.SameSite
	// TTL bounds both the cookie and the stored session entry.
	TTL time.Duration
}

// Options are the user-supplied settings accepted at registration.
type Options struct {
	Domain       string `validate:"required"`
	ClientID     string `validate:"required"`
	ClientSecret string `validate:"required"`

	Scope        string
	LoginPath    string
	CallbackPath string

	// CredentialsKey names the session field the profile is stored under.
	// Random when unset.
	CredentialsKey string

	Session SessionOptions

	// AppURL defaults to the server URI; RedirectURI defaults to
	// AppURL + CallbackPath.
	AppURL      string
	RedirectURI string

	// LoginSuccessRedirectPath, when set, wins over the session destination
	// after a successful callback.
	LoginSuccessRedirectPath string

	Transformer Hook
	Success     Hook
	Error       Hook

	Logger *slog.Logger
}

var optionValidator = validator.New()

// requiredFieldNames maps struct fields to the option names users know.
var requiredFieldNames = map[string]string{
	"Domain":       "domain",
	"ClientID":     "client_id",
	"ClientSecret": "client_secret",
}

// Resolve merges opts over computed defaults, validates required settings,
// and derives the provider URLs. It is a plain constructor: each call
// produces a fresh, immutable Config, so tests and multi-tenant hosts can
// resolve as many configurations as they need.
func Resolve(server ServerInfo, opts Options) (*Config, error) {
	if err := optionValidator.Struct(opts); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				name := requiredFieldNames[fe.StructField()]
				if name == "" {
					name = fe.StructField()
				}
				fields = append(fields, name)
			}
			return nil, fmt.Errorf("%w: %s", ErrMissingSetting, strings.Join(fields, ", "))
		}
		return nil, err
	}

	if err := mergo.Merge(&opts, defaultOptions(server)); err != nil {
		return nil, fmt.Errorf("merge options: %w", err)
	}

	cfg := &Config{
		Domain:         opts.Domain,
		ClientID:       opts.ClientID,
		ClientSecret:   opts.ClientSecret,
		Scope:          opts.Scope,
		LoginPath:      opts.LoginPath,
		CallbackPath:   opts.CallbackPath,
		CredentialsKey: opts.CredentialsKey,
		Session: SessionConfig{
			Name:       opts.Session.Name,
			Secret:     opts.Session.Secret,
			StoreBlank: *opts.Session.StoreBlank,
			Secure:     *opts.Session.Secure,
			HTTPOnly:   *opts.Session.HTTPOnly,
			SameSite:   opts.Session.SameSite,
			TTL:        opts.Session.TTL,
		},
		AppURL:                   opts.AppURL,
		RedirectURI:              opts.RedirectURI,
		LoginSuccessRedirectPath: opts.LoginSuccessRedirectPath,
		Transformer:              opts.Transformer,
		Success:                  opts.Success,
		Error:                    opts.Error,
		Logger:                   opts.Logger,
	}
	if cfg.RedirectURI == "" {
		cfg.RedirectURI = cfg.AppURL + cfg.CallbackPath
	}
	cfg.BaseURL = "https://" + cfg.Domain
	// Built by concatenation: the provider expects these exact parameters in
	// this exact order, with the scope unescaped.
	cfg.DialogURL = cfg.BaseURL + "/login?response_type=code&scope=" + cfg.Scope +
		"&client=" + cfg.ClientID + "&redirect_uri=" + cfg.RedirectURI
	return cfg, nil
}

func defaultOptions(server ServerInfo) Options {
	return Options{
		Scope:          "profile openid email",
		LoginPath:      "/login",
		CallbackPath:   "/callback",
		CredentialsKey: randName(10),
		Session: SessionOptions{
			Name:       randName(10),
			Secret:     randSecret(),
			StoreBlank: boolPtr(false),
			Secure:     boolPtr(server.Protocol == "https"),
			HTTPOnly:   boolPtr(true),
			SameSite:   http.SameSiteLaxMode,
			TTL:        24 * time.Hour,
		},
		AppURL: server.URI,
		Logger: slog.Default(),
	}
}

const nameAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// randName returns a random cookie-safe identifier of n characters.
func randName(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("authgate: crypto/rand unavailable: " + err.Error())
	}
	for i := range b {
		b[i] = nameAlphabet[int(b[i])%len(nameAlphabet)]
	}
	return string(b)
}

// randSecret returns a 256-character signing secret.
func randSecret() string {
	b := make([]byte, 192)
	if _, err := rand.Read(b); err != nil {
		panic("authgate: crypto/rand unavailable: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func boolPtr(b bool) *bool { return &b }
