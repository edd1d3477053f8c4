package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager() *Manager {
	return &Manager{Secret: []byte("test-secret"), SessionTTL: time.Hour, Issuer: "coreflow-cms"}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	m := testManager()
	token, err := m.NewSessionToken(Principal{UserID: "u1", Username: "alice", Role: RoleUser})
	require.NoError(t, err)

	p, err := m.PrincipalFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, RoleUser, p.Role)
}

func TestSessionTokenRejectsOtherSecret(t *testing.T) {
	token, err := testManager().NewSessionToken(Principal{UserID: "u1", Username: "alice", Role: RoleUser})
	require.NoError(t, err)

	other := &Manager{Secret: []byte("other"), SessionTTL: time.Hour, Issuer: "coreflow-cms"}
	_, err = other.PrincipalFromToken(token)
	assert.Error(t, err)
}

func TestSessionTokenExpired(t *testing.T) {
	m := &Manager{Secret: []byte("s"), SessionTTL: -time.Minute, Issuer: "coreflow-cms"}
	token, err := m.NewSessionToken(Principal{UserID: "u1", Username: "alice", Role: RoleUser})
	require.NoError(t, err)

	_, err = m.PrincipalFromToken(token)
	assert.Error(t, err)
}

func TestPrincipalCan(t *testing.T) {
	var anon *Principal
	assert.False(t, anon.Authenticated())
	assert.False(t, anon.Can(RoleUser))

	user := &Principal{UserID: "1", Role: RoleUser}
	mod := &Principal{UserID: "2", Role: RoleModerator}
	admin := &Principal{UserID: "3", Role: RoleAdmin}

	assert.False(t, user.Can(RoleModerator))
	assert.True(t, mod.Can(RoleModerator))
	assert.False(t, mod.Can(RoleAdmin))
	assert.True(t, admin.Can(RoleModerator))
	assert.True(t, Operator().Can(RoleAdmin))
	assert.False(t, Operator().Authenticated())
}

func TestPrincipalContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, PrincipalFromContext(ctx))

	p := &Principal{UserID: "u1", Role: RoleUser}
	assert.Same(t, p, PrincipalFromContext(WithPrincipal(ctx, p)))
}

func TestPasswordHashing(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "correct horse"))
	assert.Error(t, ComparePassword(hash, "wrong horse"))
}
