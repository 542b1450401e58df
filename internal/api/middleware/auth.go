package middleware

import (
	"context"
	"net/http"
	"time"

	"codewars_portal/internal/common"
	"codewars_portal/internal/common/security"
	"codewars_portal/internal/domain/model"
	"codewars_portal/internal/platform/logger"

	"github.com/go-chi/jwtauth/v5"
	"go.uber.org/zap"
)

type contextKey string

const (
	IdentityCtxKey     contextKey = "identity"
	TokenIDCtxKey      contextKey = "tokenID"
	TokenExpiresCtxKey contextKey = "tokenExpiresAt"
)

// RevocationChecker reports whether a session token id was logged out.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Authenticator requires a verified, unrevoked session token (see jwtauth.Verifier) and
// stores the caller's identity in the request context.
func Authenticator(revocations RevocationChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				common.RespondWithDomainError(w, common.ErrUnauthorized)
				return
			}

			if token.Expiration().IsZero() {
				common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: exp is missing")
				return
			}
			tokenID, err := security.GetTokenIDFromClaims(claims)
			if err != nil {
				common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
				return
			}
			identity, err := security.GetIdentityFromClaims(claims)
			if err != nil {
				common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
				return
			}

			if revocations != nil {
				revoked, err := revocations.IsRevoked(r.Context(), tokenID)
				if err != nil {
					logger.Error(r.Context(), "session revocation lookup failed", zap.Error(err))
					common.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
					return
				}
				if revoked {
					common.RespondWithError(w, http.StatusUnauthorized, "Session has been logged out")
					return
				}
			}

			ctx := context.WithValue(r.Context(), IdentityCtxKey, identity)
			ctx = context.WithValue(ctx, TokenIDCtxKey, tokenID)
			ctx = context.WithValue(ctx, TokenExpiresCtxKey, token.Expiration())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentityFromContext returns the caller's identity. Without Authenticator upstream it
// returns an unauthenticated zero Identity.
func GetIdentityFromContext(ctx context.Context) model.Identity {
	identity, _ := ctx.Value(IdentityCtxKey).(model.Identity)
	return identity
}

func GetTokenIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(TokenIDCtxKey).(string)
	return id, ok
}

func GetTokenExpiryFromContext(ctx context.Context) (time.Time, bool) {
	exp, ok := ctx.Value(TokenExpiresCtxKey).(time.Time)
	return exp, ok && !exp.IsZero()
}
