package userservice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordSet(t *testing.T) {
	var p Password

	err := p.set("salasana")
	assert.NoError(t, err)
	assert.NotEqual(t, []byte("salasana"), p.hash)

	cost, err := bcrypt.Cost(p.hash)
	assert.NoError(t, err)
	assert.Equal(t, bcryptCost, cost)

	assert.NoError(t, bcrypt.CompareHashAndPassword(p.hash, []byte("salasana")))
	assert.ErrorIs(t, bcrypt.CompareHashAndPassword(p.hash, []byte("salainen")), bcrypt.ErrMismatchedHashAndPassword)

	p.clearPlain()
	assert.Empty(t, p.Plain)
}

func TestPasswordSalted(t *testing.T) {
	var a, b Password
	assert.NoError(t, a.set("heimuumit"))
	assert.NoError(t, b.set("heimuumit"))

	assert.NotEqual(t, a.hash, b.hash)
}
