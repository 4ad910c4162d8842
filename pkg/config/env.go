package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvSiteURL  = "STOREFRONT_SITE_URL"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBName = "STOREFRONT_DB_NAME"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvJWTSecret = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer = "STOREFRONT_JWT_ISSUER"

	EnvCheckoutCurrency          = "STOREFRONT_CHECKOUT_CURRENCY"
	EnvCheckoutShippingCountries = "STOREFRONT_CHECKOUT_SHIPPING_COUNTRIES"

	EnvStripeAPIKey = "STOREFRONT_STRIPE_API_KEY"
	EnvStripeSecret = "STOREFRONT_STRIPE_WEBHOOK_SECRET"
	EnvStripeEnv    = "STOREFRONT_STRIPE_ENV"

	EnvGCPProjectID      = "STOREFRONT_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic = "STOREFRONT_PUBSUB_ORDERS_TOPIC"
	EnvCronSweepLookback = "STOREFRONT_CRON_SWEEP_LOOKBACK"
	EnvOTELEndpoint      = "STOREFRONT_OTEL_EXPORTER_ENDPOINT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
