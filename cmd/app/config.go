package main

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/viper"

	"github.com/sushihentaime/bloglist/internal/common"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Environment    string   `mapstructure:"ENVIRONMENT"`
	Version        string   `mapstructure:"VERSION"`
	TrustedOrigins []string `mapstructure:"TRUSTED_ORIGINS"`
	TLSCertFile    string   `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile     string   `mapstructure:"TLS_KEY_FILE"`

	DBDriver string `mapstructure:"DB_DRIVER"`

	MongoURI string `mapstructure:"MONGODB_URI"`
	MongoDB  string `mapstructure:"MONGODB_DB"`

	DBHost     string `mapstructure:"POSTGRES_HOST"`
	DBPort     string `mapstructure:"POSTGRES_PORT"`
	DBUser     string `mapstructure:"POSTGRES_USER"`
	DBPassword string `mapstructure:"POSTGRES_PASSWORD"`
	DBName     string `mapstructure:"POSTGRES_DB"`

	MailHost        string `mapstructure:"MAIL_HOST"`
	MailPort        int    `mapstructure:"MAIL_PORT"`
	MailUser        string `mapstructure:"MAIL_USER"`
	MailPassword    string `mapstructure:"MAIL_PASSWORD"`
	MailSender      string `mapstructure:"MAIL_SENDER"`
	NotifyRecipient string `mapstructure:"NOTIFY_RECIPIENT"`

	MQHost     string `mapstructure:"RABBITMQ_HOST"`
	MQPort     string `mapstructure:"RABBITMQ_PORT"`
	MQUser     string `mapstructure:"RABBITMQ_USER"`
	MQPassword string `mapstructure:"RABBITMQ_PASSWORD"`

	RateLimitRPS     float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst   int     `mapstructure:"RATE_LIMIT_BURST"`
	RateLimitEnabled bool    `mapstructure:"RATE_LIMIT_ENABLED"`

	CacheTTL time.Duration `mapstructure:"CACHE_TTL"`
}

var defaults = map[string]any{
	"PORT":               "3003",
	"ENVIRONMENT":        "development",
	"VERSION":            "1.0.0",
	"TRUSTED_ORIGINS":    []string{},
	"TLS_CERT_FILE":      "",
	"TLS_KEY_FILE":       "",
	"DB_DRIVER":          common.DriverMongo,
	"MONGODB_URI":        "mongodb://localhost:27017",
	"MONGODB_DB":         "bloglist",
	"POSTGRES_HOST":      "",
	"POSTGRES_PORT":      "5432",
	"POSTGRES_USER":      "",
	"POSTGRES_PASSWORD":  "",
	"POSTGRES_DB":        "bloglist",
	"MAIL_HOST":          "",
	"MAIL_PORT":          587,
	"MAIL_USER":          "",
	"MAIL_PASSWORD":      "",
	"MAIL_SENDER":        "Bloglist <no-reply@bloglist.local>",
	"NOTIFY_RECIPIENT":   "",
	"RABBITMQ_HOST":      "",
	"RABBITMQ_PORT":      "5672",
	"RABBITMQ_USER":      "guest",
	"RABBITMQ_PASSWORD":  "guest",
	"RATE_LIMIT_RPS":     2.0,
	"RATE_LIMIT_BURST":   4,
	"RATE_LIMIT_ENABLED": true,
	"CACHE_TTL":          "5m",
}

// loadConfig reads the env file at path and overlays the process environment.
// A missing file is not an error.
func loadConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) brokerEnabled() bool {
	return c.MQHost != ""
}

func (c *Config) mailEnabled() bool {
	return c.MailHost != "" && c.NotifyRecipient != ""
}
