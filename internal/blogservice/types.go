package blogservice

import (
	"context"
	"log/slog"

	"github.com/sushihentaime/bloglist/internal/common"
)

type Blog struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	URL    string `json:"url"`
	Likes  int    `json:"likes"`
	// UserID is empty for blogs nobody owns.
	UserID string `json:"user,omitempty"`
}

// BlogStore is the document-store surface the service needs for the blogs collection.
type BlogStore interface {
	FindAll(ctx context.Context) ([]Blog, error)
	FindByID(ctx context.Context, id string) (*Blog, error)
	Insert(ctx context.Context, b *Blog) error
	InsertMany(ctx context.Context, blogs []Blog) ([]Blog, error)
	UpdateByID(ctx context.Context, b *Blog) error
	DeleteByID(ctx context.Context, id string) error
}

// UserLinker maintains the user side of the blog ownership reference.
type UserLinker interface {
	UserExists(ctx context.Context, id string) (bool, error)
	AttachBlog(ctx context.Context, userID, blogID string) error
	DetachBlog(ctx context.Context, blogID string) error
}

type BlogService struct {
	store  BlogStore
	users  UserLinker
	mb     common.MessageProducer
	c      *common.Cache
	logger *slog.Logger
}

type CreateBlogRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	URL    string `json:"url"`
	Likes  *int   `json:"likes"`
	UserID string `json:"userId"`
}

type UpdateBlogRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	URL    string `json:"url"`
	Likes  *int   `json:"likes"`
}
