package auth

import (
	"time"

	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const (
	// TokenExpiry is how long session tokens are valid.
	TokenExpiry = 7 * 24 * time.Hour
	// TokenIssuer is set on every token and required when validating.
	TokenIssuer = "bibliotech"
)

// JWTClaims represents the claims in a session token.
type JWTClaims struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// GenerateToken creates a new session token for the user.
func (s *Service) GenerateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return signed, nil
}

// ValidateToken checks the signature, issuer and expiry of a session token
// and returns its claims.
func (s *Service) ValidateToken(tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return claims, nil
}
