package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Matching     MatchingConfig
	Checkout     CheckoutConfig
	Cron         CronConfig
	Crypto       CryptoConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BERRY_APP_ENV" required:"true"`
	Port         string `envconfig:"BERRY_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"BERRY_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"BERRY_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"BERRY_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"BERRY_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(a.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

type ServiceConfig struct {
	Kind string `envconfig:"BERRY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BERRY_DB_DSN"`
	Driver string `envconfig:"BERRY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BERRY_DB_HOST"`
	LegacyPort     int    `envconfig:"BERRY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BERRY_DB_USER"`
	LegacyPassword string `envconfig:"BERRY_DB_PASSWORD"`
	LegacyName     string `envconfig:"BERRY_DB_NAME"`
	LegacySSLMode  string `envconfig:"BERRY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BERRY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BERRY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BERRY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BERRY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"BERRY_DB_SLOW_QUERY" default:"250ms"`
	TxRetries       int           `envconfig:"BERRY_DB_TX_RETRIES" default:"3"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BERRY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BERRY_REDIS_ADDR"`
	Password     string        `envconfig:"BERRY_REDIS_PASSWORD"`
	DB           int           `envconfig:"BERRY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BERRY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BERRY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BERRY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BERRY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BERRY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BERRY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BERRY_JWT_ISSUER" default:"berry-events"`
	ExpirationMinutes int    `envconfig:"BERRY_JWT_EXPIRATION_MINUTES" default:"60"`
	// PreviousSecret keeps tokens signed before a secret rotation valid
	// until they expire.
	PreviousSecret string        `envconfig:"BERRY_JWT_PREVIOUS_SECRET"`
	Leeway         time.Duration `envconfig:"BERRY_JWT_LEEWAY" default:"30s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BERRY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BERRY_AUTO_MIGRATE" default:"false"`
	Realtime    bool `envconfig:"BERRY_FEATURE_REALTIME" default:"true"`
}

type MatchingConfig struct {
	SweepInterval   time.Duration `envconfig:"BERRY_MATCHING_SWEEP_INTERVAL" default:"15s"`
	DefaultRadiusKm float64       `envconfig:"BERRY_MATCHING_DEFAULT_RADIUS_KM" default:"20"`
	QueueTTL        time.Duration `envconfig:"BERRY_MATCHING_QUEUE_TTL" default:"30m"`
	LockTTL         time.Duration `envconfig:"BERRY_MATCHING_LOCK_TTL" default:"1m"`
	BatchSize       int           `envconfig:"BERRY_MATCHING_BATCH_SIZE" default:"100"`
	// InProcess runs the matcher inside the API so realtime events reach the
	// API's websocket hub. cmd/matcher serves deployments that turn it off.
	InProcess bool `envconfig:"BERRY_MATCHING_IN_PROCESS" default:"true"`

	LocationPingLimit  int           `envconfig:"BERRY_MATCHING_LOCATION_PING_LIMIT" default:"30"`
	LocationPingWindow time.Duration `envconfig:"BERRY_MATCHING_LOCATION_PING_WINDOW" default:"1m"`
}

type CheckoutConfig struct {
	PlatformFeePercent    string        `envconfig:"BERRY_CHECKOUT_PLATFORM_FEE_PERCENT" default:"15"`
	TipEligibleCategories string        `envconfig:"BERRY_CHECKOUT_TIP_ELIGIBLE_CATEGORIES" default:"cleaning,gardening,pool,home_care"`
	CartTTL               time.Duration `envconfig:"BERRY_CHECKOUT_CART_TTL" default:"336h"`
	MaxCartItems          int           `envconfig:"BERRY_CHECKOUT_MAX_CART_ITEMS" default:"3"`
}

// TipCategories returns the normalized tip-eligible category list.
func (c CheckoutConfig) TipCategories() []string {
	var out []string
	for _, cat := range strings.Split(c.TipEligibleCategories, ",") {
		if cat = strings.ToLower(strings.TrimSpace(cat)); cat != "" {
			out = append(out, cat)
		}
	}
	return out
}

func (c CheckoutConfig) validate() error {
	if c.MaxCartItems <= 0 {
		return fmt.Errorf("%s must be positive", EnvCheckoutMaxCartItems)
	}
	if strings.TrimSpace(c.PlatformFeePercent) == "" {
		return fmt.Errorf("%s is required", EnvCheckoutPlatformFee)
	}
	return nil
}

// CronConfig tunes the housekeeping worker.
type CronConfig struct {
	Interval            time.Duration `envconfig:"BERRY_CRON_INTERVAL" default:"5m"`
	LockTTL             time.Duration `envconfig:"BERRY_CRON_LOCK_TTL" default:"4m"`
	UnpaidOrderTTL      time.Duration `envconfig:"BERRY_CRON_UNPAID_ORDER_TTL" default:"30m"`
	OutboxRetentionDays int           `envconfig:"BERRY_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
}

type CryptoConfig struct {
	GateCodeSecret string `envconfig:"BERRY_GATE_CODE_SECRET" required:"true"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BERRY_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"BERRY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BERRY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	BookingsTopic string `envconfig:"BERRY_PUBSUB_BOOKINGS_TOPIC" default:"berry-booking-events"`
	OrdersTopic   string `envconfig:"BERRY_PUBSUB_ORDERS_TOPIC" default:"berry-order-events"`
	WalletTopic   string `envconfig:"BERRY_PUBSUB_WALLET_TOPIC" default:"berry-wallet-events"`

	PublishDelay   time.Duration `envconfig:"BERRY_PUBSUB_PUBLISH_DELAY" default:"10ms"`
	PublishBatch   int           `envconfig:"BERRY_PUBSUB_PUBLISH_BATCH" default:"100"`
	PublishTimeout time.Duration `envconfig:"BERRY_PUBSUB_PUBLISH_TIMEOUT" default:"30s"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"BERRY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"BERRY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"BERRY_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
