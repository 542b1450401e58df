package security

import (
	"errors"
	"time"

	"codewars_portal/internal/domain/model"
	"codewars_portal/internal/platform/config"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionCookieName is the cookie jwtauth.Verifier reads the session token from.
const SessionCookieName = "jwt"

var TokenAuth *jwtauth.JWTAuth

func InitJWT() {
	TokenAuth = jwtauth.New("HS256", config.AppConfig.JWTKey, nil)
}

type SessionToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// GenerateToken signs a session token for a team member.
func GenerateToken(identity model.Identity) (*SessionToken, error) {
	now := time.Now()
	expiresAt := now.Add(config.AppConfig.SessionTTL)
	tokenID := uuid.NewString()
	claims := jwt.MapClaims{
		"team_code": identity.TeamCode,
		"email":     identity.Email,
		"jti":       tokenID,
		"exp":       expiresAt.Unix(),
		"iat":       now.Unix(),
	}
	_, tokenString, err := TokenAuth.Encode(claims)
	if err != nil {
		return nil, err
	}
	return &SessionToken{Token: tokenString, ID: tokenID, ExpiresAt: time.Unix(expiresAt.Unix(), 0)}, nil
}

func GetTokenIDFromClaims(claims jwt.MapClaims) (string, error) {
	id, ok := claims["jti"].(string)
	if !ok || id == "" {
		return "", errors.New("jti claim is missing or not a string")
	}
	return id, nil
}

// GetIdentityFromClaims reads team_code and email. Either may be empty; callers that
// need both check model.Identity.Complete.
func GetIdentityFromClaims(claims jwt.MapClaims) (model.Identity, error) {
	teamCode, ok := claims["team_code"].(string)
	if !ok {
		return model.Identity{}, errors.New("team_code claim is missing or not a string")
	}
	email, ok := claims["email"].(string)
	if !ok {
		return model.Identity{}, errors.New("email claim is missing or not a string")
	}
	return model.NewAuthenticatedIdentity(teamCode, email), nil
}
