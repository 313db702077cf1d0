package userservice

import (
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

func (p *Password) set(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcryptCost)
	if err != nil {
		return err
	}

	p.Plain = pwd
	p.hash = hash

	return nil
}

// clearPlain drops the raw password once the hash has been derived.
func (p *Password) clearPlain() {
	p.Plain = ""
}
