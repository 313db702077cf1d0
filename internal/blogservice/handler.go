package blogservice

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sushihentaime/bloglist/internal/common"
)

var (
	ErrUserNotFound = errors.New("user does not exist")
)

// NewBlogService wires the blogs collection. mb may be nil, in which case no
// blog.created events are published.
func NewBlogService(store BlogStore, users UserLinker, mb common.MessageProducer, c *common.Cache, logger *slog.Logger) *BlogService {
	return &BlogService{
		store:  store,
		users:  users,
		mb:     mb,
		c:      c,
		logger: logger,
	}
}

// GetBlogs returns every blog in store order.
func (s *BlogService) GetBlogs(ctx context.Context) ([]Blog, error) {
	if cached, ok := s.c.Get(common.CacheKeyBlogs); ok {
		return cached.([]Blog), nil
	}

	gen := s.c.Generation(common.CacheKeyBlogs)

	blogs, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	s.c.SetIfUnchanged(common.CacheKeyBlogs, blogs, gen)

	return blogs, nil
}

// GetBlogByID returns a blog by its ID.
func (s *BlogService) GetBlogByID(ctx context.Context, id string) (*Blog, error) {
	return s.store.FindByID(ctx, id)
}

// CreateBlog stores a new blog. Title and url are required and likes defaults to
// zero. When UserID is set the user must exist and gains the blog in its list.
func (s *BlogService) CreateBlog(ctx context.Context, req *CreateBlogRequest) (*Blog, error) {
	blog := Blog{
		Title:  stripScripts(req.Title),
		Author: stripScripts(req.Author),
		URL:    req.URL,
		Likes:  likesOrDefault(req.Likes),
		UserID: req.UserID,
	}

	v := common.NewValidator()
	validateTitleAndURL(v, blog.Title, blog.URL)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	if blog.UserID != "" {
		err := s.requireUser(ctx, blog.UserID)
		if err != nil {
			return nil, err
		}
	}

	err := s.store.Insert(ctx, &blog)
	if err != nil {
		return nil, err
	}

	s.c.Invalidate(common.CacheKeyBlogs)

	if blog.UserID != "" {
		err = s.users.AttachBlog(ctx, blog.UserID, blog.ID)
		if err != nil {
			// undo the insert so the owner never misses a blog that names it
			derr := s.store.DeleteByID(ctx, blog.ID)
			if derr != nil {
				s.logger.Error("could not remove blog after failed attach", slog.String("blog_id", blog.ID), slog.String("error", derr.Error()))
			}
			s.c.Invalidate(common.CacheKeyBlogs)

			return nil, err
		}
	}

	s.publish(ctx, &blog)

	return &blog, nil
}

// UpdateBlog replaces title, author, url and likes of an existing blog, applying
// the same rules as CreateBlog. Ownership is left untouched.
func (s *BlogService) UpdateBlog(ctx context.Context, id string, req *UpdateBlogRequest) (*Blog, error) {
	blog := Blog{
		ID:     id,
		Title:  stripScripts(req.Title),
		Author: stripScripts(req.Author),
		URL:    req.URL,
		Likes:  likesOrDefault(req.Likes),
	}

	v := common.NewValidator()
	validateTitleAndURL(v, blog.Title, blog.URL)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	err := s.store.UpdateByID(ctx, &blog)
	if err != nil {
		return nil, err
	}

	s.c.Invalidate(common.CacheKeyBlogs)

	return &blog, nil
}

// DeleteBlog removes a blog and its id from the owner's list. Deleting a
// missing blog succeeds.
func (s *BlogService) DeleteBlog(ctx context.Context, id string) error {
	err := s.store.DeleteByID(ctx, id)
	if err != nil {
		return err
	}

	s.c.Invalidate(common.CacheKeyBlogs)

	return s.users.DetachBlog(ctx, id)
}

// ImportBlogs bulk-inserts blogs. Every request is validated before anything is
// written, so one bad entry leaves the collection unchanged.
func (s *BlogService) ImportBlogs(ctx context.Context, reqs []CreateBlogRequest) ([]Blog, error) {
	blogs := make([]Blog, 0, len(reqs))
	owners := make(map[string]struct{})

	for _, req := range reqs {
		blog := Blog{
			Title:  stripScripts(req.Title),
			Author: stripScripts(req.Author),
			URL:    req.URL,
			Likes:  likesOrDefault(req.Likes),
			UserID: req.UserID,
		}

		v := common.NewValidator()
		validateTitleAndURL(v, blog.Title, blog.URL)
		if !v.Valid() {
			return nil, v.ValidationError()
		}

		if blog.UserID != "" {
			owners[blog.UserID] = struct{}{}
		}

		blogs = append(blogs, blog)
	}

	if len(blogs) == 0 {
		return blogs, nil
	}

	for userID := range owners {
		err := s.requireUser(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	inserted, err := s.store.InsertMany(ctx, blogs)
	if err != nil {
		return nil, err
	}

	s.c.Invalidate(common.CacheKeyBlogs)

	for _, blog := range inserted {
		if blog.UserID == "" {
			continue
		}

		err = s.users.AttachBlog(ctx, blog.UserID, blog.ID)
		if err != nil {
			return nil, err
		}
	}

	return inserted, nil
}

func (s *BlogService) requireUser(ctx context.Context, userID string) error {
	ok, err := s.users.UserExists(ctx, userID)
	if err != nil {
		return err
	}

	if !ok {
		return ErrUserNotFound
	}

	return nil
}

func (s *BlogService) publish(ctx context.Context, blog *Blog) {
	if s.mb == nil {
		return
	}

	err := common.PublishEvent(ctx, s.mb, common.BlogCreatedKey, blog.ID, blog.Title)
	if err != nil {
		s.logger.Error("could not publish blog.created event", slog.String("blog_id", blog.ID), slog.String("error", err.Error()))
	}
}
