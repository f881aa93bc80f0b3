// api/session/token.go
package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	casaflow_errors "github.com/casaflow/api/errors"
	"github.com/casaflow/api/model"
)

// Claims carries the authenticated identity inside a session token. The
// workspace id is baked into the token: switching workspaces means issuing a
// new token, never reinterpreting an old one.
type Claims struct {
	UserID      string `json:"userID"`
	Email       string `json:"email"`
	WorkspaceID string `json:"workspaceID"`
	jwt.RegisteredClaims
}

// TokenManager signs and validates session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for the identity.
func (tm *TokenManager) Issue(identity model.Identity) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:      identity.UserID,
		Email:       identity.Email,
		WorkspaceID: identity.WorkspaceID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   identity.UserID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// Validate parses a token and returns the identity it asserts.
func (tm *TokenManager) Validate(tokenString string) (*model.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", casaflow_errors.ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, casaflow_errors.ErrUnauthorized
	}
	if claims.UserID == "" || claims.WorkspaceID == "" {
		return nil, casaflow_errors.ErrUnauthorized
	}

	return &model.Identity{
		UserID:      claims.UserID,
		Email:       claims.Email,
		WorkspaceID: claims.WorkspaceID,
	}, nil
}
