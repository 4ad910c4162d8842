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
	Checkout     CheckoutConfig
	Cart         CartConfig
	Webhook      WebhookConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Stripe       StripeConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	Tracing      TracingConfig
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
	Env          string   `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string   `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	SiteURL      string   `envconfig:"STOREFRONT_SITE_URL" required:"true"`
	CORSOrigins  []string `envconfig:"STOREFRONT_CORS_ORIGINS"`
	LogLevel     string   `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins falls back to the site URL when no explicit origins are configured.
func (a AppConfig) AllowedOrigins() []string {
	if len(a.CORSOrigins) > 0 {
		return a.CORSOrigins
	}
	if a.SiteURL == "" {
		return nil
	}
	return []string{strings.TrimRight(a.SiteURL, "/")}
}

type ServiceConfig struct {
	Kind string `envconfig:"STOREFRONT_SERVICE_KIND" default:"api"`
	// MetricsAddr exposes /metrics for the background workers; empty disables it.
	MetricsAddr string `envconfig:"STOREFRONT_WORKER_METRICS_ADDR"`
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig verifies buyer tokens minted by the identity provider.
type JWTConfig struct {
	Secret string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STOREFRONT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

// CheckoutConfig holds the fixed hosted-session parameters.
type CheckoutConfig struct {
	Currency          string   `envconfig:"STOREFRONT_CHECKOUT_CURRENCY" default:"usd"`
	ShippingCountries []string `envconfig:"STOREFRONT_CHECKOUT_SHIPPING_COUNTRIES" default:"US,CA,GB,AE"`
	SuccessPath       string   `envconfig:"STOREFRONT_CHECKOUT_SUCCESS_PATH" default:"/success"`
	CancelPath        string   `envconfig:"STOREFRONT_CHECKOUT_CANCEL_PATH" default:"/cancel"`
}

func (c CheckoutConfig) validate() error {
	if strings.TrimSpace(c.Currency) == "" {
		return fmt.Errorf("%s is required", EnvCheckoutCurrency)
	}
	if len(c.ShippingCountries) == 0 {
		return fmt.Errorf("%s is required", EnvCheckoutShippingCountries)
	}
	return nil
}

// SuccessURL joins the site URL with the configured success path.
func (c CheckoutConfig) SuccessURL(siteURL string) string {
	return joinURL(siteURL, c.SuccessPath)
}

// CancelURL joins the site URL with the configured cancel path.
func (c CheckoutConfig) CancelURL(siteURL string) string {
	return joinURL(siteURL, c.CancelPath)
}

type CartConfig struct {
	TTL time.Duration `envconfig:"STOREFRONT_CART_TTL" default:"720h"`
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"STOREFRONT_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
	MaxBodyBytes   int64         `envconfig:"STOREFRONT_WEBHOOK_MAX_BODY_BYTES" default:"65536"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"STOREFRONT_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"STOREFRONT_PUBSUB_ORDERS_TOPIC" default:"storefront-order-events"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"STOREFRONT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"STOREFRONT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"STOREFRONT_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"STOREFRONT_OUTBOX_RETENTION" default:"720h"`
}

type CronConfig struct {
	Interval      time.Duration `envconfig:"STOREFRONT_CRON_INTERVAL" default:"15m"`
	LockTTL       time.Duration `envconfig:"STOREFRONT_CRON_LOCK_TTL" default:"10m"`
	SweepLookback time.Duration `envconfig:"STOREFRONT_CRON_SWEEP_LOOKBACK" default:"72h"`
	SweepGrace    time.Duration `envconfig:"STOREFRONT_CRON_SWEEP_GRACE" default:"10m"`
}

// TracingConfig selects the span exporter: none, stdout or otlp.
type TracingConfig struct {
	Exporter    string  `envconfig:"STOREFRONT_OTEL_EXPORTER" default:"none"`
	Endpoint    string  `envconfig:"STOREFRONT_OTEL_EXPORTER_ENDPOINT"`
	Insecure    bool    `envconfig:"STOREFRONT_OTEL_EXPORTER_INSECURE" default:"true"`
	SampleRatio float64 `envconfig:"STOREFRONT_OTEL_SAMPLE_RATIO" default:"1"`
}

// ExporterKind returns the normalized exporter name.
func (t TracingConfig) ExporterKind() string {
	kind := strings.ToLower(strings.TrimSpace(t.Exporter))
	if kind == "" {
		return "none"
	}
	return kind
}

type StripeConfig struct {
	APIKey string `envconfig:"STOREFRONT_STRIPE_API_KEY"`
	Secret string `envconfig:"STOREFRONT_STRIPE_WEBHOOK_SECRET"`
	Env    string `envconfig:"STOREFRONT_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

func joinURL(base, path string) string {
	base = strings.TrimRight(base, "/")
	if path == "" {
		return base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
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
