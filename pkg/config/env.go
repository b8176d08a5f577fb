package config

// EnvPrefix is passed to envconfig; every field carries an explicit key so the
// prefix only matters for fields without one.
const EnvPrefix = "BERRY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "BERRY_APP_ENV"
	EnvPort     = "BERRY_APP_PORT"
	EnvLogLevel = "BERRY_LOG_LEVEL"

	EnvDBDSN  = "BERRY_DB_DSN"
	EnvDBHost = "BERRY_DB_HOST"
	EnvDBUser = "BERRY_DB_USER"
	EnvDBName = "BERRY_DB_NAME"

	EnvRedisURL = "BERRY_REDIS_URL"

	EnvJWTSecret = "BERRY_JWT_SECRET"

	EnvGateCodeSecret = "BERRY_GATE_CODE_SECRET"

	EnvMatchingSweepInterval = "BERRY_MATCHING_SWEEP_INTERVAL"
	EnvCheckoutPlatformFee   = "BERRY_CHECKOUT_PLATFORM_FEE_PERCENT"
	EnvCheckoutTipCategories = "BERRY_CHECKOUT_TIP_ELIGIBLE_CATEGORIES"
	EnvCheckoutMaxCartItems  = "BERRY_CHECKOUT_MAX_CART_ITEMS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
