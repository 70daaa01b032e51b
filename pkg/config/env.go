package config

const EnvPrefix = "RENTMARKET"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	GatewayEnvSandbox    = "sandbox"
	GatewayEnvProduction = "production"

	OutboxSinkPubSub = "pubsub"
	OutboxSinkKafka  = "kafka"
)

const (
	EnvAppEnv           = "RENTMARKET_APP_ENV"
	EnvPort             = "RENTMARKET_APP_PORT"
	EnvDBDSN            = "RENTMARKET_DB_DSN"
	EnvDBHost           = "RENTMARKET_DB_HOST"
	EnvDBPort           = "RENTMARKET_DB_PORT"
	EnvDBUser           = "RENTMARKET_DB_USER"
	EnvDBPassword       = "RENTMARKET_DB_PASSWORD"
	EnvDBName           = "RENTMARKET_DB_NAME"
	EnvRedisURL         = "RENTMARKET_REDIS_URL"
	EnvJWTSecret        = "RENTMARKET_JWT_SECRET"
	EnvJWTIssuer        = "RENTMARKET_JWT_ISSUER"
	EnvGatewayServerKey = "RENTMARKET_GATEWAY_SERVER_KEY"
	EnvGatewayEnv       = "RENTMARKET_GATEWAY_ENV"
	EnvGatewayTimeout   = "RENTMARKET_GATEWAY_TIMEOUT"
	EnvServiceFee       = "RENTMARKET_CHECKOUT_SERVICE_FEE"
	EnvOutboxSink       = "RENTMARKET_OUTBOX_SINK"
	EnvKafkaBrokers     = "RENTMARKET_KAFKA_BROKERS"
	EnvRateLimitWindow  = "RENTMARKET_RATE_LIMIT_WINDOW"
)
