package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/riobizsols/assetledger/internal/auth"
	"github.com/riobizsols/assetledger/internal/metrics"
	"github.com/riobizsols/assetledger/internal/model"
	"github.com/riobizsols/assetledger/internal/store"
)

type contextKey string

const (
	claimsKey    contextKey = "claims"
	requestIDKey contextKey = "request_id"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware takes the request id from the incoming header or
// generates one, echoes it back and stores it in the context.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestID returns the request id stored by RequestIDMiddleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// AuthMiddleware validates JWT from Authorization header, rejects revoked
// tokens and adds claims to context.
func AuthMiddleware(signer *auth.Signer, db *sql.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				jsonError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}

			tokenStr := strings.TrimPrefix(header, "Bearer ")
			claims, err := signer.Validate(tokenStr)
			if err != nil {
				jsonError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			revoked, err := store.IsTokenRevoked(r.Context(), db, claims.ID)
			if err != nil {
				storeError(w, r, "check token revocation", err)
				return
			}
			if revoked {
				jsonError(w, http.StatusUnauthorized, "token has been revoked")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole returns middleware that checks if the user has at least the given role.
func RequireRole(minimum string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			if claims == nil {
				jsonError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if !model.RoleAtLeast(claims.Role, minimum) {
				jsonError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetClaims retrieves the JWT claims from the context.
func GetClaims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// actor is the username recorded on ledger and group writes.
func actor(r *http.Request) string {
	if claims := GetClaims(r.Context()); claims != nil {
		return claims.Username
	}
	return ""
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs HTTP requests with method, path, status, duration
// and request id, and records request metrics.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)
		metrics.RecordRequest(r.Method, rec.status, elapsed.Seconds())
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.RequestURI(),
			"status", rec.status,
			"duration", elapsed.Round(time.Millisecond),
			"request_id", RequestID(r.Context()),
		)
	})
}

// RecoverMiddleware turns a handler panic into a 500.
func RecoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				slog.Error("handler panic", "panic", v, "path", r.URL.Path, "request_id", RequestID(r.Context()))
				jsonError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
