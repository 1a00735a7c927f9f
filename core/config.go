package core

import (
	"log/slog"
	"net/http"
	"time"
)

// SessionConfig is the resolved form of SessionOptions.
type SessionConfig struct {
	Name       string
	Secret     string
	StoreBlank bool
	Secure     bool
	HTTPOnly   bool
	SameSite   http.SameSite
	TTL        time.Duration
}

// Config is the resolved configuration. It is write-once: Resolve fills every
// field and nothing mutates it afterwards, so it is safe to share across
// concurrent requests without locking.
type Config struct {
	Domain       string
	ClientID     string
	ClientSecret string
	Scope        string

	LoginPath    string
	CallbackPath string

	CredentialsKey string
	Session        SessionConfig

	AppURL      string
	RedirectURI string

	// BaseURL is the provider root, https://<domain>.
	BaseURL string
	// DialogURL is the provider's hosted login page with the client identity
	// and callback target baked in.
	DialogURL string

	LoginSuccessRedirectPath string

	Transformer Hook
	Success     Hook
	Error       Hook

	Logger *slog.Logger
}
