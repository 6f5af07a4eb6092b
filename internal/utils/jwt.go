package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/huangang/annoreview/internal/config"
)

// Claims are the access-token claims understood by the auth middleware.
type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager signs and verifies access tokens with settings injected at start-up.
type JWTManager struct {
	secret []byte
	method jwt.SigningMethod
	expire time.Duration
}

func NewJWTManager(cfg *config.JWTConfig) (*JWTManager, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported jwt algorithm: %q", cfg.Algorithm)
	}
	if cfg.ExpireHour <= 0 {
		return nil, fmt.Errorf("invalid jwt expiry: %d hours", cfg.ExpireHour)
	}
	return &JWTManager{
		secret: []byte(cfg.Secret),
		method: method,
		expire: time.Duration(cfg.ExpireHour) * time.Hour,
	}, nil
}

// TTL is how long a freshly generated token stays valid.
func (m *JWTManager) TTL() time.Duration {
	return m.expire
}

func (m *JWTManager) GenerateToken(userID uint, username, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expire)),
		},
	}
	return jwt.NewWithClaims(m.method, claims).SignedString(m.secret)
}

func (m *JWTManager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{m.method.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
