package auth

import (
	"testing"

	"envanter-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTokenRoundTrip(t *testing.T) {
	secret := "test-secret-test-secret-test-secret"
	user := &models.User{ID: 42, Email: "ayse@example.com", Role: models.RolePicker}

	tokenStr, err := GenerateToken(secret, user)
	require.NoError(t, err)
	require.NotEmpty(t, tokenStr)

	token, err := jwt.ParseWithClaims(tokenStr, &JWTCustomClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims, ok := token.Claims.(*JWTCustomClaims)
	require.True(t, ok)
	assert.EqualValues(t, 42, claims.UserID)
	assert.Equal(t, "ayse@example.com", claims.Email)
	assert.Equal(t, models.RolePicker, claims.Role)
}

func TestGenerateTokenWrongSecretRejected(t *testing.T) {
	user := &models.User{ID: 1, Email: "x@example.com", Role: models.RoleAdmin}

	tokenStr, err := GenerateToken("dogru-anahtar-dogru-anahtar-1234", user)
	require.NoError(t, err)

	_, err = jwt.ParseWithClaims(tokenStr, &JWTCustomClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte("yanlis-anahtar-yanlis-anahtar-12"), nil
	})
	assert.Error(t, err)
}
