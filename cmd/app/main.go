package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/sushihentaime/bloglist/internal/blogservice"
	"github.com/sushihentaime/bloglist/internal/common"
	"github.com/sushihentaime/bloglist/internal/mailservice"
	"github.com/sushihentaime/bloglist/internal/storage"
	"github.com/sushihentaime/bloglist/internal/userservice"
)

type application struct {
	config      *Config
	logger      *slog.Logger
	userService *userservice.UserService
	blogService *blogservice.BlogService
	mailService *mailservice.MailService
	broker      *common.MessageBroker
}

func newLogger(env string) *slog.Logger {
	if env == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}

	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func (c *Config) storageOptions() storage.Options {
	return storage.Options{
		Driver:      c.DBDriver,
		MongoURI:    c.MongoURI,
		MongoDB:     c.MongoDB,
		PostgresDSN: common.PostgresDSN(c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName),
	}
}

func main() {
	configPath := flag.String("config", ".env", "path to the env configuration file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg.Environment)

	err = run(cfg, logger)
	if err != nil {
		logger.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *Config, logger *slog.Logger) error {
	app, closeAll, err := newApplication(cfg, logger)
	if err != nil {
		return err
	}
	defer closeAll()

	return app.serve()
}

// newApplication connects the store and, when configured, the broker and the
// notification consumer. On error everything opened so far is already closed;
// otherwise the returned func closes it.
func newApplication(cfg *Config, logger *slog.Logger) (app *application, closeAll func(), err error) {
	var closers []func()
	closeOpened := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	defer func() {
		if err != nil {
			closeOpened()
		}
	}()

	stores, err := storage.Open(context.Background(), cfg.storageOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to the %s database: %w", cfg.DBDriver, err)
	}
	closers = append(closers, func() { stores.Close() })

	app = &application{
		config: cfg,
		logger: logger,
	}

	// a nil *MessageBroker must not reach the services as a non-nil interface
	var producer common.MessageProducer
	if cfg.brokerEnabled() {
		var broker *common.MessageBroker
		broker, err = common.NewMessageBroker(common.AMQPURI(cfg.MQUser, cfg.MQPassword, cfg.MQHost, cfg.MQPort))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to the message broker: %w", err)
		}
		closers = append(closers, func() { broker.Close() })

		err = common.SetupBloglistExchange(broker)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to setup the bloglist exchange: %w", err)
		}

		app.broker = broker
		producer = broker
	} else {
		logger.Info("RABBITMQ_HOST not set, created events will not be published")
	}

	cache := common.NewCache(cfg.CacheTTL, 2*cfg.CacheTTL)

	app.userService = userservice.NewUserService(stores.Users, producer, cache, logger)
	app.blogService = blogservice.NewBlogService(stores.Blogs, app.userService, producer, cache, logger)

	if app.broker != nil && cfg.mailEnabled() {
		app.mailService = mailservice.NewMailService(app.broker, cfg.MailHost, cfg.MailUser, cfg.MailPassword, cfg.MailSender, cfg.NotifyRecipient, cfg.MailPort, logger)

		err = app.mailService.NotifyCreated()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to start the notification consumer: %w", err)
		}
	}

	return app, closeOpened, nil
}
