// Package config loads RENTMARKET_* environment variables into typed
// settings shared by every binary.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Gateway      GatewayConfig
	Checkout     CheckoutConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Kafka        KafkaConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	RateLimit    RateLimitConfig
}

// Load parses the environment and then checks cross-field rules, reporting
// every broken rule at once.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	return multierr.Combine(
		c.DB.resolveDSN(),
		c.Gateway.validate(),
		c.Checkout.validate(),
		c.Outbox.validate(c.Kafka),
		c.RateLimit.validate(),
	)
}

type AppConfig struct {
	Env          string   `envconfig:"RENTMARKET_APP_ENV" required:"true"`
	Port         string   `envconfig:"RENTMARKET_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"RENTMARKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"RENTMARKET_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"RENTMARKET_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool  { return strings.EqualFold(a.Env, AppEnvDev) }
func (a AppConfig) IsProd() bool { return strings.EqualFold(a.Env, AppEnvProd) }

// ServiceConfig names the running binary; bootstrap overrides it.
type ServiceConfig struct {
	Kind string `envconfig:"RENTMARKET_SERVICE_KIND" default:"api"`
}

// JWTConfig verifies access tokens minted by the identity service.
type JWTConfig struct {
	Secret            string        `envconfig:"RENTMARKET_JWT_SECRET" required:"true"`
	Issuer            string        `envconfig:"RENTMARKET_JWT_ISSUER" required:"true"`
	ExpirationMinutes int           `envconfig:"RENTMARKET_JWT_EXPIRATION_MINUTES" default:"60"`
	Leeway            time.Duration `envconfig:"RENTMARKET_JWT_LEEWAY" default:"30s"`
}

// GatewayConfig points at the payment gateway Core API.
type GatewayConfig struct {
	ServerKey      string        `envconfig:"RENTMARKET_GATEWAY_SERVER_KEY" required:"true"`
	BaseURL        string        `envconfig:"RENTMARKET_GATEWAY_BASE_URL" default:"https://api.sandbox.midtrans.com/v2"`
	Env            string        `envconfig:"RENTMARKET_GATEWAY_ENV" default:"sandbox"`
	Timeout        time.Duration `envconfig:"RENTMARKET_GATEWAY_TIMEOUT" default:"15s"`
	ExpiryTimezone string        `envconfig:"RENTMARKET_GATEWAY_EXPIRY_TIMEZONE" default:"Asia/Jakarta"`
	ReplayGuardTTL time.Duration `envconfig:"RENTMARKET_GATEWAY_REPLAY_GUARD_TTL" default:"72h"`
}

// Environment is the lower-cased gateway environment, sandbox when blank.
func (g GatewayConfig) Environment() string {
	if env := strings.ToLower(strings.TrimSpace(g.Env)); env != "" {
		return env
	}
	return GatewayEnvSandbox
}

func (g GatewayConfig) validate() error {
	switch g.Environment() {
	case GatewayEnvSandbox, GatewayEnvProduction:
	default:
		return fmt.Errorf("%s must be %q or %q", EnvGatewayEnv, GatewayEnvSandbox, GatewayEnvProduction)
	}
	if g.Timeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvGatewayTimeout)
	}
	return nil
}

type CheckoutConfig struct {
	ServiceFee        int64  `envconfig:"RENTMARKET_CHECKOUT_SERVICE_FEE" default:"2000"`
	OrderNumberPrefix string `envconfig:"RENTMARKET_CHECKOUT_ORDER_NUMBER_PREFIX" default:"ORD-"`
}

func (c CheckoutConfig) validate() error {
	if c.ServiceFee < 0 {
		return fmt.Errorf("%s must not be negative", EnvServiceFee)
	}
	return nil
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"RENTMARKET_AUTO_MIGRATE" default:"false"`
}

type CronConfig struct {
	Interval          time.Duration `envconfig:"RENTMARKET_CRON_INTERVAL" default:"15m"`
	PendingPaymentTTL time.Duration `envconfig:"RENTMARKET_CRON_PENDING_PAYMENT_TTL" default:"24h"`
	JobTimeout        time.Duration `envconfig:"RENTMARKET_CRON_JOB_TIMEOUT" default:"5m"`
}

// RateLimitConfig throttles checkout per customer and webhook deliveries per
// source IP. A zero limit disables the policy.
type RateLimitConfig struct {
	Window        time.Duration `envconfig:"RENTMARKET_RATE_LIMIT_WINDOW" default:"1m"`
	CheckoutLimit int           `envconfig:"RENTMARKET_RATE_LIMIT_CHECKOUT" default:"10"`
	WebhookLimit  int           `envconfig:"RENTMARKET_RATE_LIMIT_WEBHOOK" default:"600"`
}

func (r RateLimitConfig) validate() error {
	if r.CheckoutLimit < 0 || r.WebhookLimit < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}
	if (r.CheckoutLimit > 0 || r.WebhookLimit > 0) && r.Window <= 0 {
		return fmt.Errorf("%s must be positive when a limit is set", EnvRateLimitWindow)
	}
	return nil
}
