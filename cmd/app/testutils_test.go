package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sushihentaime/bloglist/internal/blogservice"
	"github.com/sushihentaime/bloglist/internal/common"
	"github.com/sushihentaime/bloglist/internal/testutils"
	"github.com/sushihentaime/bloglist/internal/userservice"
)

type testServer struct {
	*httptest.Server
}

func newTestServer(t *testing.T, h http.Handler) *testServer {
	ts := httptest.NewServer(h)

	t.Cleanup(ts.Close)

	return &testServer{ts}
}

// newTestApplication wires the services to a fresh MongoDB. reset empties both
// collections and the list cache.
func newTestApplication(t *testing.T) (app *application, db *mongo.Database, reset func()) {
	db = testutils.TestMongo(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	userStore := userservice.NewMongoUserStore(db)
	require.NoError(t, userStore.EnsureIndexes(context.Background()))

	cache := common.NewCache(5*time.Minute, 10*time.Minute)
	users := userservice.NewUserService(userStore, nil, cache, logger)

	app = &application{
		config: &Config{
			Environment: "testing",
			Version:     "1.0.0",
			DBDriver:    common.DriverMongo,
		},
		logger:      logger,
		userService: users,
		blogService: blogservice.NewBlogService(blogservice.NewMongoBlogStore(db), users, nil, cache, logger),
	}

	reset = func() {
		for _, coll := range []string{"blogs", "users"} {
			_, err := db.Collection(coll).DeleteMany(context.Background(), bson.M{})
			require.NoError(t, err)
		}

		cache.Flush()
	}

	return app, db, reset
}

// do sends payload as the JSON body (a string is sent verbatim) and returns the
// status and raw response body.
func (ts *testServer) do(t *testing.T, method, path string, payload any) (int, []byte) {
	var body io.Reader
	switch p := payload.(type) {
	case nil:
	case string:
		body = bytes.NewReader([]byte(p))
	default:
		jsonPayload, err := json.Marshal(p)
		require.NoError(t, err)
		body = bytes.NewReader(jsonPayload)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	require.NoError(t, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	responseBody, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	return res.StatusCode, responseBody
}

func decode[T any](t *testing.T, body []byte) T {
	var v T
	require.NoError(t, json.Unmarshal(body, &v))
	return v
}
