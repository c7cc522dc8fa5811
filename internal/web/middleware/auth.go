package middleware

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/prodsync/internal/config"
)

type actorKey struct{}

// AnonymousActor is used when API keys are not required and the caller
// does not name itself.
const AnonymousActor = "anonymous"

// ActorHeader names the caller when API keys are disabled.
const ActorHeader = "X-Actor"

// APIKeyAuth returns middleware that validates the X-API-Key header and
// stores the key's actor in the request context.
// If RequireAPIKey is false, the actor comes from X-Actor instead.
// If RequireAPIKey is true but no keys are configured, all requests are rejected.
func APIKeyAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	keys := cfg.KeyActors()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.RequireAPIKey {
				actor := strings.TrimSpace(r.Header.Get(ActorHeader))
				if actor == "" {
					actor = AnonymousActor
				}
				next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
				return
			}

			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				slog.Warn("auth: missing API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, `{"error":"missing API key","code":"AUTH_MISSING_KEY"}`, http.StatusUnauthorized)
				return
			}

			actor, ok := lookupActor(apiKey, keys)
			if !ok {
				slog.Warn("auth: invalid API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, `{"error":"invalid API key","code":"AUTH_INVALID_KEY"}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// lookupActor finds the actor of key.
// Every configured key is compared in constant time so the comparison time
// does not depend on which key matches.
func lookupActor(key string, keys map[string]string) (string, bool) {
	var actor string
	found := 0
	for validKey, a := range keys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(validKey)) == 1 {
			actor = a
			found = 1
		}
	}
	return actor, found == 1
}

// WithActor stores the acting identity in ctx.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the acting identity, or AnonymousActor.
func ActorFromContext(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}
	return AnonymousActor
}
