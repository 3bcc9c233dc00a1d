package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSetPassword(t *testing.T) {
	u := User{Email: "pw@example.com"}
	require.NoError(t, u.SetPassword("correct horse", bcrypt.MinCost))

	assert.NotEqual(t, "correct horse", u.Password)
	assert.True(t, IsHashed(u.Password))

	ok, err := u.PasswordMatches("correct horse")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = u.PasswordMatches("battery staple")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordMatches_NotAHash(t *testing.T) {
	u := User{Password: "plain"}
	_, err := u.PasswordMatches("plain")
	assert.Error(t, err)
	assert.False(t, IsHashed("plain"))
}

func TestHashPassword_InvalidCost(t *testing.T) {
	_, err := HashPassword("x", bcrypt.MaxCost+1)
	assert.Error(t, err)
}
