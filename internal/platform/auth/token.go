package auth

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"deployd/internal/platform/config"
)

// Claims carried by ops API bearer tokens. Deploy endpoints never use
// these; they are authenticated by request signature instead.
type Claims struct {
	Scopes []string `json:"scp"`
	jwt.RegisteredClaims
}

// HasScope reports whether the token was granted the named scope.
func (c *Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

type TokenService struct {
	config config.AdminConfig
}

func NewTokenService(cfg config.AdminConfig) *TokenService {
	return &TokenService{config: cfg}
}

func (s *TokenService) Generate(subject string, scopes []string, ttl time.Duration) (string, error) {
	if s.config.JWTSecret == "" {
		return "", errors.New("auth: admin.jwt_secret not configured")
	}
	if ttl == 0 {
		ttl = s.config.TokenTTL
	}

	claims := Claims{
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "deployd",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	if s.config.JWTSecret == "" {
		return nil, errors.New("auth: admin.jwt_secret not configured")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.config.JWTSecret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("auth: invalid token")
}
