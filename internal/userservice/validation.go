package userservice

import (
	"github.com/sushihentaime/bloglist/internal/common"
)

func validateUsername(v *common.Validator, username string) {
	v.Check(username != "", "username", "username must be provided")
}

func validatePassword(v *common.Validator, password string) {
	v.Check(password != "", "password", "password must be provided")
}
