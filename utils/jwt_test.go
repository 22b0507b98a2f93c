package utils

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessJWTSecret(t *testing.T) {
	t.Run("decodes base64 secrets", func(t *testing.T) {
		raw := []byte("0123456789abcdef0123456789abcdef")
		encoded := base64.StdEncoding.EncodeToString(raw)

		assert.Equal(t, raw, ProcessJWTSecret(encoded))
	})

	t.Run("falls back to raw bytes when not base64", func(t *testing.T) {
		key := ProcessJWTSecret("not-valid-base64!with-32-characters")
		assert.Equal(t, []byte("not-valid-base64!with-32-characters"), key)
	})

	t.Run("repeats short keys to fill 32 bytes", func(t *testing.T) {
		key := ProcessJWTSecret(base64.StdEncoding.EncodeToString([]byte("shortkey")))
		require.Len(t, key, 32)
		assert.Equal(t, []byte("shortkeyshortkeyshortkeyshortkey"), key)
	})

	t.Run("repetition truncates at 32 bytes", func(t *testing.T) {
		key := ProcessJWTSecret(base64.StdEncoding.EncodeToString([]byte("short!")))
		require.Len(t, key, 32)
		assert.Equal(t, []byte("short!short!short!short!short!sh"), key)
	})

	t.Run("empty secret stays empty", func(t *testing.T) {
		assert.Empty(t, ProcessJWTSecret(""))
	})
}

func TestValidateJWT(t *testing.T) {
	secret := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

	t.Run("round trip", func(t *testing.T) {
		token, err := GenerateJWT("mother@example.com", secret, time.Hour)
		require.NoError(t, err)

		claims, err := ValidateJWT(token, secret)
		require.NoError(t, err)
		assert.Equal(t, "mother@example.com", claims.Email())
	})

	t.Run("accepts token with Bearer prefix", func(t *testing.T) {
		token, err := GenerateJWT("mother@example.com", secret, time.Hour)
		require.NoError(t, err)

		claims, err := ValidateJWT("Bearer "+token, secret)
		require.NoError(t, err)
		assert.Equal(t, "mother@example.com", claims.Email())
	})

	t.Run("rejects expired token", func(t *testing.T) {
		token, err := GenerateJWT("mother@example.com", secret, -time.Minute)
		require.NoError(t, err)

		_, err = ValidateJWT(token, secret)
		assert.Error(t, err)
	})

	t.Run("accepts upstream tokens minted with a short secret", func(t *testing.T) {
		// The identity service derives its HS256 key by repeating a
		// sub-32-byte secret until it fills 32 bytes.
		shortSecret := base64.StdEncoding.EncodeToString([]byte("shortkey"))
		issuerKey := []byte("shortkeyshortkeyshortkeyshortkey")

		token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "mother@example.com",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		signed, err := token.SignedString(issuerKey)
		require.NoError(t, err)

		claims, err := ValidateJWT(signed, shortSecret)
		require.NoError(t, err)
		assert.Equal(t, "mother@example.com", claims.Email())
	})

	t.Run("rejects wrong secret", func(t *testing.T) {
		token, err := GenerateJWT("mother@example.com", secret, time.Hour)
		require.NoError(t, err)

		other := base64.StdEncoding.EncodeToString([]byte("ffffffffffffffffffffffffffffffff"))
		_, err = ValidateJWT(token, other)
		assert.Error(t, err)
	})

	t.Run("rejects missing subject", func(t *testing.T) {
		claims := Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString(ProcessJWTSecret(secret))
		require.NoError(t, err)

		_, err = ValidateJWT(signed, secret)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "subject")
	})

	t.Run("rejects non HMAC algorithms", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "mother@example.com"},
		})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = ValidateJWT(signed, secret)
		assert.Error(t, err)
	})
}

func TestExtractTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc.def.ghi", ExtractTokenFromHeader("Bearer abc.def.ghi"))
	assert.Empty(t, ExtractTokenFromHeader(""))
	assert.Empty(t, ExtractTokenFromHeader("abc.def.ghi"))
	assert.Empty(t, ExtractTokenFromHeader("Basic abc.def.ghi"))
	assert.Empty(t, ExtractTokenFromHeader("Bearer"))
}
