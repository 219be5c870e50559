package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "CRAFTLANE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "CRAFTLANE_DB_DSN"
	EnvDBHost = "CRAFTLANE_DB_HOST"
	EnvDBUser = "CRAFTLANE_DB_USER"
	EnvDBName = "CRAFTLANE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App        AppConfig
	Service    ServiceConfig
	DB         DBConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Commission CommissionConfig
	GCP        GCPConfig
	PubSub     PubSubConfig
	Square     SquareConfig
	Carrier    CarrierConfig
	Eventing   EventingConfig
	Outbox     OutboxConfig
	RateLimit  RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Commission.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CRAFTLANE_APP_ENV" required:"true"`
	Port         string `envconfig:"CRAFTLANE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CRAFTLANE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CRAFTLANE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CRAFTLANE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CRAFTLANE_DB_DSN"`
	Driver string `envconfig:"CRAFTLANE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CRAFTLANE_DB_HOST"`
	LegacyPort     int    `envconfig:"CRAFTLANE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CRAFTLANE_DB_USER"`
	LegacyPassword string `envconfig:"CRAFTLANE_DB_PASSWORD"`
	LegacyName     string `envconfig:"CRAFTLANE_DB_NAME"`
	LegacySSLMode  string `envconfig:"CRAFTLANE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CRAFTLANE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CRAFTLANE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CRAFTLANE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CRAFTLANE_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"CRAFTLANE_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CRAFTLANE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CRAFTLANE_REDIS_ADDR"`
	Password     string        `envconfig:"CRAFTLANE_REDIS_PASSWORD"`
	DB           int           `envconfig:"CRAFTLANE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CRAFTLANE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CRAFTLANE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CRAFTLANE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CRAFTLANE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CRAFTLANE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CRAFTLANE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CRAFTLANE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CRAFTLANE_JWT_EXPIRATION_MINUTES" required:"true"`
}

// CommissionConfig carries the platform commission applied to seller payouts.
type CommissionConfig struct {
	Rate string `envconfig:"CRAFTLANE_COMMISSION_RATE" default:"0.10"`
}

// RateDecimal parses the configured commission rate.
func (c CommissionConfig) RateDecimal() decimal.Decimal {
	rate, err := decimal.NewFromString(c.Rate)
	if err != nil {
		return decimal.Zero
	}
	return rate
}

func (c CommissionConfig) validate() error {
	rate, err := decimal.NewFromString(c.Rate)
	if err != nil {
		return fmt.Errorf("invalid commission rate %q: %w", c.Rate, err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("commission rate %q must be in [0,1)", c.Rate)
	}
	return nil
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CRAFTLANE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"CRAFTLANE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CRAFTLANE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"CRAFTLANE_PUBSUB_NOTIFICATION_TOPIC" default:"cl-notification-events"`
	NotificationSubscription string `envconfig:"CRAFTLANE_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
	OrdersTopic              string `envconfig:"CRAFTLANE_PUBSUB_ORDERS_TOPIC" default:"cl-order-events"`
	OrdersSubscription       string `envconfig:"CRAFTLANE_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
}

type SquareConfig struct {
	AccessToken   string `envconfig:"CRAFTLANE_SQUARE_ACCESS_TOKEN"`
	WebhookSecret string `envconfig:"CRAFTLANE_SQUARE_WEBHOOK_SECRET"`
	LocationID    string `envconfig:"CRAFTLANE_SQUARE_LOCATION_ID"`
	Env           string `envconfig:"CRAFTLANE_SQUARE_ENV" default:"sandbox"`
	RedirectBase  string `envconfig:"CRAFTLANE_SQUARE_REDIRECT_BASE"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type CarrierConfig struct {
	BaseURL string        `envconfig:"CRAFTLANE_CARRIER_BASE_URL"`
	APIKey  string        `envconfig:"CRAFTLANE_CARRIER_API_KEY"`
	Timeout time.Duration `envconfig:"CRAFTLANE_CARRIER_TIMEOUT" default:"10s"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"CRAFTLANE_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	WebhookReplayTTL     time.Duration `envconfig:"CRAFTLANE_WEBHOOK_REPLAY_TTL" default:"168h"`
}

type RateLimitConfig struct {
	WebhookWindow     time.Duration `envconfig:"CRAFTLANE_RATE_LIMIT_WEBHOOK_WINDOW" default:"1m"`
	WebhookIPLimit    int           `envconfig:"CRAFTLANE_RATE_LIMIT_WEBHOOK_IP_LIMIT" default:"120"`
	CheckoutWindow    time.Duration `envconfig:"CRAFTLANE_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
	CheckoutUserLimit int           `envconfig:"CRAFTLANE_RATE_LIMIT_CHECKOUT_USER_LIMIT" default:"10"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"CRAFTLANE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"CRAFTLANE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"CRAFTLANE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
