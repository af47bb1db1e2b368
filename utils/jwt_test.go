package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionManagerIssueVerify(t *testing.T) {
	m := NewSessionManager("secret", time.Hour)
	token, exp, err := m.Issue("redaksi", "admin")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	s, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "redaksi", s.Username)
	assert.Equal(t, "admin", s.Role)
}

func TestSessionManagerRejectsWrongSecret(t *testing.T) {
	token, _, err := NewSessionManager("one", time.Hour).Issue("redaksi", "admin")
	require.NoError(t, err)

	_, err = NewSessionManager("two", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionManagerRejectsExpired(t *testing.T) {
	m := NewSessionManager("secret", time.Minute)
	issuedAt := time.Now().Add(-time.Hour)
	m.now = func() time.Time { return issuedAt }
	token, _, err := m.Issue("redaksi", "admin")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionManagerRejectsGarbageAndNone(t *testing.T) {
	m := NewSessionManager("secret", time.Hour)
	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := m.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, tok)
	}

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Username: "redaksi",
		Role:     "super_admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
