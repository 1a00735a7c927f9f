// Dev server for exercising the login flow end to end against a real
// provider tenant. Not part of the library API.
//
// Run with AUTHGATE_DOMAIN, AUTHGATE_CLIENT_ID, and AUTHGATE_CLIENT_SECRET
// set (a .env file works too); browse to /private to trigger the redirect
// dance.
package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	authhttp "github.com/open-rails/authgate/adapters/http"
	"github.com/open-rails/authgate/core"
)

func main() {
	_ = godotenv.Load()

	addr := envOr("AUTHGATE_LISTEN_ADDR", ":8080")
	appURL := envOr("AUTHGATE_APP_URL", "http://localhost:8080")
	protocol := "http"
	if strings.HasPrefix(appURL, "https://") {
		protocol = "https"
	}

	svc, err := authhttp.New(core.ServerInfo{URI: appURL, Protocol: protocol}, core.Options{
		Domain:       os.Getenv("AUTHGATE_DOMAIN"),
		ClientID:     os.Getenv("AUTHGATE_CLIENT_ID"),
		ClientSecret: os.Getenv("AUTHGATE_CLIENT_SECRET"),
		Success: func(ctx context.Context, v any) (any, error) {
			slog.Info("login succeeded", "profile", v)
			return nil, nil
		},
	})
	if err != nil {
		log.Fatal(err)
	}
	if u := os.Getenv("AUTHGATE_REDIS_URL"); u != "" {
		opt, err := redis.ParseURL(u)
		if err != nil {
			log.Fatal(err)
		}
		svc = svc.WithRedis(redis.NewClient(opt))
	}

	cfg := svc.Config()
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Method(http.MethodGet, cfg.LoginPath, svc.Handler())
	r.Method(http.MethodGet, cfg.CallbackPath, svc.Handler())
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("authgate devserver; try /private\n"))
	})
	r.Group(func(r chi.Router) {
		r.Use(svc.Authenticate)
		r.Get("/private", func(w http.ResponseWriter, r *http.Request) {
			creds, _ := authhttp.CredentialsFromContext(r.Context())
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(creds)
		})
	})

	log.Printf("authgate devserver listening on %s (app url %s)", addr, appURL)
	log.Fatal(http.ListenAndServe(addr, r))
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
