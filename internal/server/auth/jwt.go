// Package auth issues and verifies the HS256 token pair handed out at login.
// Tokens are self-contained; nothing is persisted server-side.
package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/dmitrijs2005/taskhub/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Identity is what an access token says about its bearer.
type Identity struct {
	UserID int64
	Name   string
	Email  string
	Mobile string
}

// AccessClaims are carried by access tokens. Name, email and mobile are
// always present, possibly empty.
type AccessClaims struct {
	jwt.RegisteredClaims
	TokenType string `json:"token_type"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Mobile    string `json:"mobile"`
}

// RefreshClaims are carried by refresh tokens.
type RefreshClaims struct {
	jwt.RegisteredClaims
	TokenType string `json:"token_type"`
}

var now = time.Now

func registered(userID int64, validityDuration time.Duration) jwt.RegisteredClaims {
	issued := now()
	return jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(issued.Add(validityDuration)),
		ID:        uuid.NewString(),
	}
}

func GenerateAccessToken(id Identity, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		RegisteredClaims: registered(id.UserID, validityDuration),
		TokenType:        TokenTypeAccess,
		Name:             id.Name,
		Email:            id.Email,
		Mobile:           id.Mobile,
	})
	return token.SignedString(secretKey)
}

func GenerateRefreshToken(userID int64, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{
		RegisteredClaims: registered(userID, validityDuration),
		TokenType:        TokenTypeRefresh,
	})
	return token.SignedString(secretKey)
}

// ParseAccessToken verifies an access token and returns its identity.
// Expired tokens yield common.ErrTokenExpired; anything else that fails,
// including a refresh token, yields common.ErrInvalidToken.
func ParseAccessToken(tokenString string, secretKey []byte) (*Identity, error) {
	claims := &AccessClaims{}
	if err := parse(tokenString, claims, secretKey); err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, common.ErrInvalidToken
	}

	userID, err := subject(claims.RegisteredClaims)
	if err != nil {
		return nil, err
	}

	return &Identity{
		UserID: userID,
		Name:   claims.Name,
		Email:  claims.Email,
		Mobile: claims.Mobile,
	}, nil
}

// ParseRefreshToken verifies a refresh token and returns the user id it was
// issued to.
func ParseRefreshToken(tokenString string, secretKey []byte) (int64, error) {
	claims := &RefreshClaims{}
	if err := parse(tokenString, claims, secretKey); err != nil {
		return 0, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return 0, common.ErrInvalidToken
	}
	return subject(claims.RegisteredClaims)
}

func parse(tokenString string, claims jwt.Claims, secretKey []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return common.ErrTokenExpired
		}
		return common.ErrInvalidToken
	}
	if !token.Valid {
		return common.ErrInvalidToken
	}
	return nil
}

func subject(c jwt.RegisteredClaims) (int64, error) {
	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, common.ErrInvalidToken
	}
	return userID, nil
}
