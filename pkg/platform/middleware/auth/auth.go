// Package auth authenticates API callers from a bearer access token.
package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	id "breachledger/pkg/domain"
	request "breachledger/pkg/platform/middleware/request"
	"breachledger/pkg/requestcontext"
)

// JWTValidator validates a raw bearer token.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims is the subset of token claims the registry relies on.
type JWTClaims struct {
	UserID         string
	OrganizationID string
}

const (
	msgMissingToken = "Missing or invalid Authorization header"
	msgInvalidToken = "Invalid or expired token"
)

// RequireAuth validates the bearer token and places the caller's user and
// organization on the request context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, ok := bearerToken(r)
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", request.GetRequestID(ctx),
				)
				unauthorized(w, msgMissingToken)
				return
			}

			userID, orgID, err := principal(validator, raw)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", request.GetRequestID(ctx),
				)
				unauthorized(w, msgInvalidToken)
				return
			}

			ctx = requestcontext.WithUserID(ctx, userID)
			ctx = requestcontext.WithOrganizationID(ctx, orgID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

// principal resolves the caller from a token. Claims that are present but do
// not parse as ids are treated like an invalid token.
func principal(validator JWTValidator, raw string) (id.UserID, id.OrganizationID, error) {
	claims, err := validator.ValidateToken(raw)
	if err != nil {
		return id.UserID{}, id.OrganizationID{}, err
	}
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return id.UserID{}, id.OrganizationID{}, fmt.Errorf("subject claim: %w", err)
	}
	orgID, err := id.ParseOrganizationID(claims.OrganizationID)
	if err != nil {
		return id.UserID{}, id.OrganizationID{}, fmt.Errorf("organization claim: %w", err)
	}
	return userID, orgID, nil
}

func unauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"unauthorized","error_description":%q}`, description))
}
