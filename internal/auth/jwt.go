package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

const DefaultTokenTTL = 24 * time.Hour

// AccessClaims are the claims carried by a session token.
type AccessClaims struct {
	UserID string `json:"user_id"`
	jwt.StandardClaims
}

// JWTManager signs and verifies HS256 session tokens.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTManager(secret string, ttl time.Duration) (*JWTManager, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &JWTManager{secret: []byte(secret), ttl: ttl}, nil
}

// Generate issues a signed token for userID.
func (j *JWTManager) Generate(userID string) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		UserID: userID,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(j.ttl).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate verifies signature and expiry, returning the user id and the
// token's expiry time.
func (j *JWTManager) Validate(tokenString string) (string, time.Time, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return j.secret, nil
	})
	if err != nil || !token.Valid {
		return "", time.Time{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || claims.UserID == "" {
		return "", time.Time{}, ErrInvalidToken
	}
	return claims.UserID, time.Unix(claims.ExpiresAt, 0), nil
}
