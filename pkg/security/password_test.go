package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("long-enough")
	require.NoError(t, err)
	assert.NotEqual(t, "long-enough", hash)

	assert.NoError(t, h.Compare(hash, "long-enough"))
	assert.Error(t, h.Compare(hash, "wrong-password"))
}

func TestBcryptHasherRejectsShortPassword(t *testing.T) {
	_, err := NewBcryptHasher(bcrypt.MinCost).Hash("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestBcryptHasherClampsCost(t *testing.T) {
	h := NewBcryptHasher(99).(*bcryptHasher)
	assert.Equal(t, bcrypt.DefaultCost, h.cost)
}
