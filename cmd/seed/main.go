// Command seed bulk-loads blogs from a JSON array into the configured store.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/sushihentaime/bloglist/internal/blogservice"
	"github.com/sushihentaime/bloglist/internal/common"
	"github.com/sushihentaime/bloglist/internal/storage"
	"github.com/sushihentaime/bloglist/internal/userservice"
)

func main() {
	configPath := flag.String("config", ".env", "path to the env configuration file")
	file := flag.String("file", "blogs.json", "JSON array of blogs to import")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	err := run(*configPath, *file, logger)
	if err != nil {
		logger.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(configPath, file string, logger *slog.Logger) error {
	opts, err := loadStorageOptions(configPath)
	if err != nil {
		return err
	}

	blogs, err := readBlogs(file)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	stores, err := storage.Open(ctx, opts)
	if err != nil {
		return err
	}
	defer stores.Close()

	cache := common.NewCache(time.Minute, time.Minute)
	users := userservice.NewUserService(stores.Users, nil, cache, logger)
	svc := blogservice.NewBlogService(stores.Blogs, users, nil, cache, logger)

	inserted, err := svc.ImportBlogs(ctx, blogs)
	if err != nil {
		return err
	}

	logger.Info("blogs imported", slog.Int("count", len(inserted)), slog.String("driver", opts.Driver))

	return nil
}

func loadStorageOptions(path string) (storage.Options, error) {
	v := viper.New()
	v.SetDefault("DB_DRIVER", common.DriverMongo)
	v.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGODB_DB", "bloglist")
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_USER", "")
	v.SetDefault("POSTGRES_PASSWORD", "")
	v.SetDefault("POSTGRES_DB", "bloglist")

	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return storage.Options{}, err
	}

	return storage.Options{
		Driver:   v.GetString("DB_DRIVER"),
		MongoURI: v.GetString("MONGODB_URI"),
		MongoDB:  v.GetString("MONGODB_DB"),
		PostgresDSN: common.PostgresDSN(
			v.GetString("POSTGRES_HOST"),
			v.GetString("POSTGRES_PORT"),
			v.GetString("POSTGRES_USER"),
			v.GetString("POSTGRES_PASSWORD"),
			v.GetString("POSTGRES_DB"),
		),
	}, nil
}

func readBlogs(path string) ([]blogservice.CreateBlogRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	var blogs []blogservice.CreateBlogRequest
	if err := json.Unmarshal(data, &blogs); err != nil {
		return nil, fmt.Errorf("could not decode %s: %w", path, err)
	}

	return blogs, nil
}
