package app

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/yungbote/counselbridge-backend/internal/clients/mailservice"
	"github.com/yungbote/counselbridge-backend/internal/clients/rabbitmq"
	"github.com/yungbote/counselbridge-backend/internal/clients/redis"
	"github.com/yungbote/counselbridge-backend/internal/clients/rocketchat"
	"github.com/yungbote/counselbridge-backend/internal/data/db"
	"github.com/yungbote/counselbridge-backend/internal/jobs/worker"
	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
	"github.com/yungbote/counselbridge-backend/internal/services"
)

type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"counselbridge"`
	Environment string `env:"APP_ENV"      envDefault:"development"`
	Version     string `env:"APP_VERSION"  envDefault:"dev"`
	Port        string `env:"PORT"         envDefault:"8080"`

	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	Postgres   PostgresConfig
	RocketChat RocketChatConfig
	Redis      RedisConfig
	Statistics StatisticsConfig
	Mail       MailConfig
	Auth       AuthConfig
	Worker     WorkerConfig
	Repair     RepairConfig
}

type PostgresConfig struct {
	Driver   string `env:"DB_DRIVER"         envDefault:"postgres"`
	DSN      string `env:"DATABASE_DSN"`
	Host     string `env:"POSTGRES_HOST"     envDefault:"localhost"`
	Port     string `env:"POSTGRES_PORT"     envDefault:"5432"`
	User     string `env:"POSTGRES_USER"     envDefault:"postgres"`
	Password string `env:"POSTGRES_PASSWORD"`
	Name     string `env:"POSTGRES_NAME"     envDefault:"userservice"`
	SSLMode  string `env:"POSTGRES_SSLMODE"  envDefault:"disable"`
}

type RocketChatConfig struct {
	BaseURL         string        `env:"ROCKETCHAT_BASE_URL"`
	TechnicalUserID string        `env:"ROCKETCHAT_TECHNICAL_USER_ID"`
	TechnicalToken  string        `env:"ROCKETCHAT_TECHNICAL_TOKEN"`
	SystemUsername  string        `env:"ROCKETCHAT_SYSTEM_USERNAME"   envDefault:"system"`
	SystemUserID    string        `env:"ROCKETCHAT_SYSTEM_USER_ID"`
	Timeout         time.Duration `env:"ROCKETCHAT_TIMEOUT"           envDefault:"15s"`
	MembersPageSize int           `env:"ROCKETCHAT_MEMBERS_PAGE_SIZE" envDefault:"100"`
}

type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB"            envDefault:"0"`
	LockTTL  time.Duration `env:"ROOM_LOCK_TTL"       envDefault:"30s"`
	LockWait time.Duration `env:"ROOM_LOCK_MAX_WAIT"  envDefault:"10s"`
}

type StatisticsConfig struct {
	Enabled     bool   `env:"STATISTICS_ENABLED"  envDefault:"false"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
	Exchange    string `env:"STATISTICS_EXCHANGE" envDefault:"statistics.topic"`
}

type MailConfig struct {
	ServiceBaseURL string        `env:"MAIL_SERVICE_BASE_URL"`
	AppBaseURL     string        `env:"APP_BASE_URL"             envDefault:"http://localhost:9001"`
	Timeout        time.Duration `env:"MAIL_SERVICE_TIMEOUT"     envDefault:"10s"`
	MaxRetries     int           `env:"MAIL_SERVICE_MAX_RETRIES" envDefault:"3"`
}

type AuthConfig struct {
	KeycloakPublicKeyPEM string `env:"KEYCLOAK_PUBLIC_KEY_PEM"`
	KeycloakIssuer       string `env:"KEYCLOAK_ISSUER"`
	JWTSecretKey         string `env:"JWT_SECRET_KEY"`
}

type WorkerConfig struct {
	Concurrency int `env:"ASYNC_WORKER_CONCURRENCY" envDefault:"4"`
	QueueSize   int `env:"ASYNC_QUEUE_SIZE"         envDefault:"256"`
}

type RepairConfig struct {
	Interval    time.Duration `env:"MEMBERSHIP_REPAIR_INTERVAL"     envDefault:"1m"`
	MaxAttempts int           `env:"MEMBERSHIP_REPAIR_MAX_ATTEMPTS" envDefault:"5"`
	BatchSize   int           `env:"MEMBERSHIP_REPAIR_BATCH_SIZE"   envDefault:"50"`
}

// LoadConfig reads a local .env when present, then the process environment.
func LoadConfig(log *logger.Logger) (Config, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("reading .env failed", "error", err)
		} else {
			log.Debug("no .env file found, using environment variables")
		}
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var missing []string
	if strings.TrimSpace(c.RocketChat.BaseURL) == "" {
		missing = append(missing, "ROCKETCHAT_BASE_URL")
	}
	if strings.TrimSpace(c.Mail.ServiceBaseURL) == "" {
		missing = append(missing, "MAIL_SERVICE_BASE_URL")
	}
	if c.Auth.KeycloakPublicKeyPEM == "" && c.Auth.JWTSecretKey == "" {
		missing = append(missing, "KEYCLOAK_PUBLIC_KEY_PEM or JWT_SECRET_KEY")
	}
	if c.Statistics.Enabled && strings.TrimSpace(c.Statistics.RabbitMQURL) == "" {
		missing = append(missing, "RABBITMQ_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func (c Config) dbConfig() db.Config {
	p := c.Postgres
	return db.Config{Driver: p.Driver, DSN: p.DSN, Host: p.Host, Port: p.Port, User: p.User, Password: p.Password, Name: p.Name, SSLMode: p.SSLMode}
}

func (c Config) rocketChatConfig() rocketchat.Config {
	rc := c.RocketChat
	return rocketchat.Config{
		BaseURL:         rc.BaseURL,
		TechnicalUserID: rc.TechnicalUserID,
		TechnicalToken:  rc.TechnicalToken,
		SystemUsername:  rc.SystemUsername,
		Timeout:         rc.Timeout,
		MembersPageSize: rc.MembersPageSize,
	}
}

func (c Config) mailConfig() mailservice.Config {
	return mailservice.Config{BaseURL: c.Mail.ServiceBaseURL, Timeout: c.Mail.Timeout, MaxRetries: c.Mail.MaxRetries}
}

func (c Config) redisConfig() redis.Config {
	return redis.Config{Addr: c.Redis.Addr, Password: c.Redis.Password, DB: c.Redis.DB, TTL: c.Redis.LockTTL, MaxWait: c.Redis.LockWait}
}

func (c Config) rabbitConfig() rabbitmq.Config {
	return rabbitmq.Config{URL: c.Statistics.RabbitMQURL, Exchange: c.Statistics.Exchange}
}

func (c Config) authConfig() services.AuthConfig {
	return services.AuthConfig{
		PublicKeyPEM: c.Auth.KeycloakPublicKeyPEM,
		HMACSecret:   c.Auth.JWTSecretKey,
		Issuer:       c.Auth.KeycloakIssuer,
	}
}

func (c Config) workerConfig() worker.Config {
	return worker.Config{Concurrency: c.Worker.Concurrency, QueueSize: c.Worker.QueueSize}
}

// systemUserIDs are room members never evicted during reconciliation.
func (c Config) systemUserIDs() []string {
	var ids []string
	for _, id := range []string{c.RocketChat.TechnicalUserID, c.RocketChat.SystemUserID} {
		if strings.TrimSpace(id) != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
