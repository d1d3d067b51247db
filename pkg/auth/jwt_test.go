package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerify(t *testing.T) {
	manager := NewJWTManager("test-secret", 15*time.Minute)
	userID := uuid.New()

	token, err := manager.Generate(userID, RolePro)
	require.NoError(t, err)

	claims, err := manager.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, RolePro, claims.Role)
	assert.Equal(t, userID.String(), claims.Subject)
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := NewJWTManager("issuer-secret", 15*time.Minute)
	verifier := NewJWTManager("other-secret", 15*time.Minute)

	token, err := issuer.Generate(uuid.New(), RoleCustomer)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.Error(t, err)
}

func TestVerifyExpiredToken(t *testing.T) {
	manager := NewJWTManager("test-secret", -time.Minute)

	token, err := manager.Generate(uuid.New(), RoleCustomer)
	require.NoError(t, err)

	_, err = manager.Verify(token)
	assert.Error(t, err)
}

func TestVerifyGarbage(t *testing.T) {
	manager := NewJWTManager("test-secret", 15*time.Minute)

	_, err := manager.Verify("not.a.token")
	assert.Error(t, err)
}
