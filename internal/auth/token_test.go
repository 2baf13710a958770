package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/job-scheduling/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 30)

	token, signed, err := tm.GenerateToken("staff-1", domain.StaffRoleCSO)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, token.ExpiresAt.Sub(token.IssuedAt))

	claims, err := tm.ParseToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "staff-1", claims.StaffID)
	assert.Equal(t, domain.StaffRoleCSO, claims.Role)
	assert.Equal(t, token.ID, claims.ID)
}

func TestParseTokenRejectsForeignSignature(t *testing.T) {
	_, signed, err := NewTokenManager("one", 30).GenerateToken("staff-1", domain.StaffRoleAdmin)
	require.NoError(t, err)

	_, err = NewTokenManager("two", 30).ParseToken(signed)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	_, signed, err := tm.GenerateToken("staff-1", domain.StaffRoleAdmin)
	require.NoError(t, err)

	_, err = tm.ParseToken(signed)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "correct horse"))
	assert.Error(t, ComparePassword(hash, "battery staple"))
}
