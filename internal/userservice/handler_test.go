package userservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"

	"github.com/sushihentaime/bloglist/internal/common"
	"github.com/sushihentaime/bloglist/internal/testutils"
)

type mockProducer struct {
	mock.Mock
}

func (m *mockProducer) Publish(ctx context.Context, msg []byte, key common.BindingKey, exchange common.Exchange) error {
	args := m.Called(key, exchange)
	return args.Error(0)
}

func setupTestEnvironment(t *testing.T, mb common.MessageProducer) (*UserService, *MongoUserStore, func() error) {
	db := testutils.TestMongo(t)
	store := NewMongoUserStore(db)
	require.NoError(t, store.EnsureIndexes(context.Background()))

	cache := common.NewCache(5*time.Minute, 10*time.Minute)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cleanup := func() error {
		_, err := db.Collection(usersCollection).DeleteMany(context.Background(), bson.M{})
		if err != nil {
			return err
		}

		cache.Flush()

		return nil
	}

	return NewUserService(store, mb, cache, logger), store, cleanup
}

// seedUser stores "testi" directly, bypassing the service.
func seedUser(t *testing.T, store UserStore) *User {
	hash, err := bcrypt.GenerateFromPassword([]byte("salasana"), 10)
	require.NoError(t, err)

	u := &User{Username: "testi", Name: "Erkki Esimerkki", Password: Password{hash: hash}}
	require.NoError(t, store.Insert(context.Background(), u))

	return u
}

func TestCreateUser(t *testing.T) {
	s, store, cleanup := setupTestEnvironment(t, nil)

	testCases := []struct {
		name        string
		username    string
		userName    string
		password    string
		expectedErr error
		wantCount   int
	}{
		{
			name:      "fresh username",
			username:  "tofslan",
			userName:  "Tove Jansson",
			password:  "heimuumit",
			wantCount: 2,
		},
		{
			name:        "username already taken",
			username:    "testi",
			userName:    "Erkki Esimerkki",
			password:    "salainen",
			expectedErr: ErrDuplicateUsername,
			wantCount:   1,
		},
		{
			name:      "two character credentials",
			username:  "ab",
			userName:  "Vilijonkka",
			password:  "ab",
			wantCount: 2,
		},
		{
			name:        "missing password",
			username:    "vilijonkka",
			expectedErr: common.ValidationError{Errors: map[string]string{"password": "password must be provided"}},
			wantCount:   1,
		},
		{
			name:     "empty payload",
			password: "",
			expectedErr: common.ValidationError{Errors: map[string]string{
				"username": "username must be provided",
				"password": "password must be provided",
			}},
			wantCount: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			seedUser(t, store)

			u, err := s.CreateUser(ctx, tc.username, tc.userName, tc.password)
			assert.Equal(t, tc.expectedErr, err)

			if err == nil {
				assert.NotEmpty(t, u.ID)
				assert.Equal(t, tc.username, u.Username)
				assert.Empty(t, u.Password.Plain)
				assert.Equal(t, []string{}, u.Blogs)

				stored, err := store.FindByUsername(ctx, tc.username)
				require.NoError(t, err)
				assert.NoError(t, bcrypt.CompareHashAndPassword(stored.Password.hash, []byte(tc.password)))
			}

			users, err := store.FindAll(ctx)
			assert.NoError(t, err)
			assert.Len(t, users, tc.wantCount)

			t.Cleanup(func() {
				err := cleanup()
				assert.NoError(t, err)
			})
		})
	}
}

func TestCreateUserPublishesEvent(t *testing.T) {
	mb := new(mockProducer)
	mb.On("Publish", common.UserCreatedKey, common.BloglistExchange).Return(nil).Once()

	s, _, cleanup := setupTestEnvironment(t, mb)
	t.Cleanup(func() { assert.NoError(t, cleanup()) })

	_, err := s.CreateUser(context.Background(), "mymmeli", "Mymmeli", "heimuumit")
	assert.NoError(t, err)

	mb.AssertExpectations(t)
}

func TestCreateUserPublishFailureIsNotFatal(t *testing.T) {
	mb := new(mockProducer)
	mb.On("Publish", common.UserCreatedKey, common.BloglistExchange).Return(errors.New("broker down"))

	s, store, cleanup := setupTestEnvironment(t, mb)
	t.Cleanup(func() { assert.NoError(t, cleanup()) })

	u, err := s.CreateUser(context.Background(), "nuuskamuikkunen", "Nuuskamuikkunen", "huuliharppu")
	assert.NoError(t, err)

	_, err = store.FindByID(context.Background(), u.ID)
	assert.NoError(t, err)
}

func TestGetUsersInvalidatedOnCreate(t *testing.T) {
	s, store, cleanup := setupTestEnvironment(t, nil)
	t.Cleanup(func() { assert.NoError(t, cleanup()) })

	ctx := context.Background()
	seedUser(t, store)

	users, err := s.GetUsers(ctx)
	assert.NoError(t, err)
	assert.Len(t, users, 1)

	_, err = s.CreateUser(ctx, "tofslan", "Tove Jansson", "heimuumit")
	assert.NoError(t, err)

	users, err = s.GetUsers(ctx)
	assert.NoError(t, err)
	assert.Len(t, users, 2)
}

// pausingUserStore holds its first FindAll result until release is closed.
type pausingUserStore struct {
	UserStore
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (p *pausingUserStore) FindAll(ctx context.Context) ([]User, error) {
	users, err := p.UserStore.FindAll(ctx)
	p.once.Do(func() {
		close(p.started)
		<-p.release
	})

	return users, err
}

func TestGetUsersOverlappingCreateIsNotCached(t *testing.T) {
	_, store, cleanup := setupTestEnvironment(t, nil)
	t.Cleanup(func() { assert.NoError(t, cleanup()) })

	paused := &pausingUserStore{UserStore: store, started: make(chan struct{}), release: make(chan struct{})}
	s := NewUserService(paused, nil, common.NewCache(5*time.Minute, 10*time.Minute), slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	result := make(chan []User, 1)
	go func() {
		users, err := s.GetUsers(ctx)
		assert.NoError(t, err)
		result <- users
	}()

	<-paused.started

	_, err := s.CreateUser(ctx, "tofslan", "Tove Jansson", "heimuumit")
	require.NoError(t, err)

	close(paused.release)
	assert.Empty(t, <-result)

	users, err := s.GetUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestAttachAndDetachBlog(t *testing.T) {
	s, store, cleanup := setupTestEnvironment(t, nil)
	t.Cleanup(func() { assert.NoError(t, cleanup()) })

	ctx := context.Background()
	u := seedUser(t, store)

	blogID := "66426e93a189228adc77d783"

	ok, err := s.UserExists(ctx, u.ID)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.UserExists(ctx, "664275b688b3cbb58af74252")
	assert.NoError(t, err)
	assert.False(t, ok)

	_, err = s.UserExists(ctx, "not-an-id")
	assert.ErrorIs(t, err, common.ErrInvalidID)

	assert.NoError(t, s.AttachBlog(ctx, u.ID, blogID))

	users, err := s.GetUsers(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []string{blogID}, users[0].Blogs)

	assert.NoError(t, s.DetachBlog(ctx, blogID))

	users, err = s.GetUsers(ctx)
	assert.NoError(t, err)
	assert.Empty(t, users[0].Blogs)

	err = s.AttachBlog(ctx, "664275b688b3cbb58af74252", blogID)
	assert.ErrorIs(t, err, ErrNotFound)
}
