// Package storage opens the configured backend and hands out the per-collection stores.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/sushihentaime/bloglist/internal/blogservice"
	"github.com/sushihentaime/bloglist/internal/common"
	"github.com/sushihentaime/bloglist/internal/userservice"
)

type Options struct {
	Driver string

	MongoURI string
	MongoDB  string

	PostgresDSN string
}

type Stores struct {
	Blogs blogservice.BlogStore
	Users userservice.UserStore
	close func() error
}

func (s *Stores) Close() error {
	return s.close()
}

// Open connects to the backend named by opts.Driver. The Mongo backend gets its
// unique username index, the Postgres backend is migrated to the latest schema.
func Open(ctx context.Context, opts Options) (*Stores, error) {
	switch opts.Driver {
	case common.DriverMongo:
		client, db, err := common.NewMongoDB(opts.MongoURI, opts.MongoDB)
		if err != nil {
			return nil, err
		}

		users := userservice.NewMongoUserStore(db)
		if err := users.EnsureIndexes(ctx); err != nil {
			common.CloseMongo(client)
			return nil, err
		}

		return &Stores{
			Blogs: blogservice.NewMongoBlogStore(db),
			Users: users,
			close: func() error { return common.CloseMongo(client) },
		}, nil

	case common.DriverPostgres:
		if err := common.MigratePostgres(opts.PostgresDSN); err != nil {
			return nil, err
		}

		db, err := common.NewDB(opts.PostgresDSN, 10, 5, 15*time.Minute)
		if err != nil {
			return nil, err
		}

		return &Stores{
			Blogs: blogservice.NewPostgresBlogStore(db),
			Users: userservice.NewPostgresUserStore(db),
			close: func() error { return common.CloseDB(db) },
		}, nil

	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", opts.Driver)
	}
}
