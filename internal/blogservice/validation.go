package blogservice

import (
	"github.com/sushihentaime/bloglist/internal/common"
)

func validateTitleAndURL(v *common.Validator, title, url string) {
	v.Check(title != "" && url != "", "blog", "title and url are required")
}

// likesOrDefault coerces an absent likes count to zero.
func likesOrDefault(likes *int) int {
	if likes == nil {
		return 0
	}

	return *likes
}
