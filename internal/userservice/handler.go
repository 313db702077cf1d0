package userservice

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sushihentaime/bloglist/internal/common"
)

var (
	ErrDuplicateUsername = errors.New("username already exists")
	ErrNotFound          = errors.New("user not found")
)

// NewUserService wires the users collection. mb may be nil, in which case no
// user.created events are published.
func NewUserService(store UserStore, mb common.MessageProducer, c *common.Cache, logger *slog.Logger) *UserService {
	return &UserService{
		store:  store,
		mb:     mb,
		c:      c,
		logger: logger,
	}
}

// CreateUser hashes the password, stores the user and publishes a user.created event.
// The returned user never carries the plain password.
func (s *UserService) CreateUser(ctx context.Context, username, name, password string) (*User, error) {
	v := common.NewValidator()
	validateUsername(v, username)
	validatePassword(v, password)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	_, err := s.store.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, ErrDuplicateUsername
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	u := User{
		Username: username,
		Name:     name,
		Blogs:    []string{},
	}

	err = u.Password.set(password)
	if err != nil {
		return nil, err
	}
	u.Password.clearPlain()

	// the unique index still guards against a concurrent insert of the same username
	err = s.store.Insert(ctx, &u)
	if err != nil {
		return nil, err
	}

	s.c.Invalidate(common.CacheKeyUsers)
	s.publish(ctx, u.ID, u.Username)

	return &u, nil
}

// GetUsers returns every user together with the ids of the blogs they own.
func (s *UserService) GetUsers(ctx context.Context) ([]User, error) {
	if cached, ok := s.c.Get(common.CacheKeyUsers); ok {
		return cached.([]User), nil
	}

	gen := s.c.Generation(common.CacheKeyUsers)

	users, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	s.c.SetIfUnchanged(common.CacheKeyUsers, users, gen)

	return users, nil
}

// UserExists reports whether id names a stored user.
func (s *UserService) UserExists(ctx context.Context, id string) (bool, error) {
	_, err := s.store.FindByID(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return false, nil
		default:
			return false, err
		}
	}

	return true, nil
}

// AttachBlog appends blogID to the user's blog list.
func (s *UserService) AttachBlog(ctx context.Context, userID, blogID string) error {
	err := s.store.AddBlog(ctx, userID, blogID)
	if err != nil {
		return err
	}

	s.c.Invalidate(common.CacheKeyUsers)

	return nil
}

// DetachBlog removes blogID from whichever user lists it.
func (s *UserService) DetachBlog(ctx context.Context, blogID string) error {
	err := s.store.RemoveBlog(ctx, blogID)
	if err != nil {
		return err
	}

	s.c.Invalidate(common.CacheKeyUsers)

	return nil
}

func (s *UserService) publish(ctx context.Context, id, username string) {
	if s.mb == nil {
		return
	}

	err := common.PublishEvent(ctx, s.mb, common.UserCreatedKey, id, username)
	if err != nil {
		s.logger.Error("could not publish user.created event", slog.String("user_id", id), slog.String("error", err.Error()))
	}
}
