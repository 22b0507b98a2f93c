package utils

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims mirrors the tokens minted by the upstream identity service.
// The subject claim carries the user's email and is the only identity
// field guaranteed to be present.
type Claims struct {
	jwt.RegisteredClaims
}

// Email returns the user identity carried in the token.
func (c *Claims) Email() string {
	return c.Subject
}

// ProcessJWTSecret converts the shared secret from its configured form
// into HMAC key bytes. The identity service stores the secret Base64
// encoded; if decoding fails the raw UTF-8 bytes are used instead. Keys
// shorter than 32 bytes are repeated until they fill 32 bytes, matching
// the issuer's key derivation.
func ProcessJWTSecret(secret string) []byte {
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		key = []byte(secret)
	}

	if n := len(key); n > 0 && n < 32 {
		key = bytes.Repeat(key, 32/n+1)[:32]
	}

	return key
}

// GenerateJWT mints a token compatible with the identity service's
// format. Used by tests and local tooling only; production tokens come
// from upstream.
func GenerateJWT(email, jwtSecret string, expiresIn time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ProcessJWTSecret(jwtSecret))
}

func ValidateJWT(tokenString, jwtSecret string) (*Claims, error) {
	// Remove Bearer prefix if present
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	key := ProcessJWTSecret(jwtSecret)

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return key, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %v", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	// Check if token is expired
	if claims.ExpiresAt != nil && claims.ExpiresAt.Time.Before(time.Now()) {
		return nil, fmt.Errorf("token is expired")
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("token missing subject claim")
	}

	return claims, nil
}

func ExtractTokenFromHeader(authHeader string) string {
	if authHeader == "" {
		return ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}

	return parts[1]
}
