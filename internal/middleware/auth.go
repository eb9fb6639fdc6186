package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nextchamp-saqib/pulse/internal/auth"
	"github.com/nextchamp-saqib/pulse/internal/cache"
	"github.com/nextchamp-saqib/pulse/internal/model"
	"github.com/nextchamp-saqib/pulse/internal/repository"
)

const (
	// minAuthDuration is the minimum time to spend on auth to prevent timing attacks.
	minAuthDuration = 200 * time.Millisecond
	// defaultTenantHeader names the request header producers use to select
	// a tenant; a missing header falls back to "default".
	defaultTenantHeader = "X-Pulse-Tenant"
)

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger     *slog.Logger
	Repository *repository.Repository
	Cache      *cache.Cache
}

// Auth returns a middleware that authenticates ingest requests against the
// single shared secret stored in Settings.APIKeyHash.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()
			defer func() {
				elapsed := time.Since(startTime)
				if elapsed < minAuthDuration {
					time.Sleep(minAuthDuration - elapsed)
				}
			}()

			secret := extractAPIKey(r)
			if secret == "" {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", "missing_secret"),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			secretHash := auth.QuickHash(secret)
			valid, cacheHit := cfg.Cache.GetSecretValid(r.Context(), secretHash)

			if !cacheHit {
				settings, err := cfg.Repository.GetSettings(r.Context())
				if err != nil {
					cfg.Logger.Error("database error during auth",
						slog.String("error", err.Error()),
						slog.String("request_id", GetRequestID(r.Context())),
					)
					writeAuthError(w)
					return
				}

				match, err := auth.VerifyPassword(secret, settings.APIKeyHash)
				if err != nil {
					match = false
				}
				valid = match
				_ = cfg.Cache.SetSecretValid(r.Context(), secretHash, valid)
			}

			if !valid {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", "invalid_secret"),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			authCtx := &model.AuthContext{Tenant: tenantFromRequest(r)}
			cfg.Logger.Info("authentication successful",
				slog.String("tenant", authCtx.Tenant),
				slog.String("ip", r.RemoteAddr),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.Bool("cache_hit", cacheHit),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			ctx := auth.ContextWithAuth(r.Context(), authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// tenantFromRequest resolves the tenant header, defaulting to "default".
func tenantFromRequest(r *http.Request) string {
	tenant := r.Header.Get(defaultTenantHeader)
	if tenant == "" {
		return "default"
	}
	return tenant
}

// extractAPIKey extracts the shared secret from the request.
// Supports both "Authorization: Bearer <secret>" and "X-Pulse-API-Key: <secret>" headers.
func extractAPIKey(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		if strings.HasPrefix(authHeader, "Bearer ") {
			return strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	return r.Header.Get("X-Pulse-API-Key")
}

// writeAuthError writes a 401 Unauthorized response.
// Uses the same message for all auth failures to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"Invalid or missing ingest secret"}}`))
}
