package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	m := NewManager([]byte("test-secret"))

	signed, err := m.Issue(&Session{
		UserID:            "user-1",
		Email:             "pat@firm.com",
		Name:              "Pat Doe",
		GoogleAccessToken: "ya29.token",
	})
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	sess, err := m.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sess.UserID)
	assert.Equal(t, "pat@firm.com", sess.Email)
	assert.Equal(t, "Pat Doe", sess.Name)
	assert.Equal(t, "ya29.token", sess.GoogleAccessToken)
	assert.WithinDuration(t, time.Now().Add(DefaultTTL), sess.ExpiresAt, time.Minute)
}

func TestValidate_ExpiredToken(t *testing.T) {
	m := NewManagerWithTTL([]byte("test-secret"), -time.Minute)

	signed, err := m.Issue(&Session{UserID: "user-1"})
	require.NoError(t, err)

	_, err = m.Validate(signed)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidate_WrongSecret(t *testing.T) {
	signed, err := NewManager([]byte("secret-a")).Issue(&Session{UserID: "user-1"})
	require.NoError(t, err)

	_, err = NewManager([]byte("secret-b")).Validate(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_Garbage(t *testing.T) {
	m := NewManager([]byte("test-secret"))

	_, err := m.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
