package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_IssueAndVerify(t *testing.T) {
	issuer, err := NewTokenIssuer("0123456789abcdef0123456789abcdef", time.Hour)
	require.NoError(t, err)

	token, err := issuer.Issue("user-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	subject, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", subject)
}

func TestTokenIssuer_RejectsForeignToken(t *testing.T) {
	issuer, err := NewTokenIssuer("0123456789abcdef0123456789abcdef", time.Hour)
	require.NoError(t, err)
	other, err := NewTokenIssuer("ffffffffffffffffffffffffffffffff", time.Hour)
	require.NoError(t, err)

	token, err := other.Issue("user-1")
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.Error(t, err)
}

func TestTokenIssuer_RejectsExpiredToken(t *testing.T) {
	issuer, err := NewTokenIssuer("0123456789abcdef0123456789abcdef", -time.Minute)
	require.NoError(t, err)

	token, err := issuer.Issue("user-1")
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.Error(t, err)
}

func TestNewTokenIssuer_EmptySecret(t *testing.T) {
	_, err := NewTokenIssuer("", time.Hour)
	assert.Error(t, err)
}
