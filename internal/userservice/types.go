package userservice

import (
	"context"
	"log/slog"

	"github.com/sushihentaime/bloglist/internal/common"
)

// UserStore is the document-store surface the service needs for the users collection.
type UserStore interface {
	FindAll(ctx context.Context) ([]User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	Insert(ctx context.Context, u *User) error
	AddBlog(ctx context.Context, userID, blogID string) error
	RemoveBlog(ctx context.Context, blogID string) error
}

type UserService struct {
	store  UserStore
	mb     common.MessageProducer
	c      *common.Cache
	logger *slog.Logger
}

type User struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Name     string   `json:"name"`
	Password Password `json:"-"`
	Blogs    []string `json:"blogs"`
}

type Password struct {
	Plain string `json:"-"`
	hash  []byte `json:"-"`
}
