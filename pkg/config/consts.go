package config

// EnvPrefix is handed to envconfig; individual fields carry the full
// variable name so the prefix stays empty here.
const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names shared between Load, tests, and deploy tooling.
const (
	EnvAppEnv   = "BACKOFFICE_APP_ENV"
	EnvPort     = "BACKOFFICE_APP_PORT"
	EnvLogLevel = "BACKOFFICE_LOG_LEVEL"

	EnvDBDSN  = "BACKOFFICE_DB_DSN"
	EnvDBHost = "BACKOFFICE_DB_HOST"
	EnvDBUser = "BACKOFFICE_DB_USER"
	EnvDBName = "BACKOFFICE_DB_NAME"

	EnvRedisURL = "BACKOFFICE_REDIS_URL"

	EnvGCPProjectID          = "BACKOFFICE_GCP_PROJECT_ID"
	EnvPubSubNotifyTopic     = "BACKOFFICE_PUBSUB_NOTIFY_TOPIC"
	EnvIdempotencyTTL        = "BACKOFFICE_PAYMENTS_IDEMPOTENCY_TTL"
	EnvIdempotencyWaitBound  = "BACKOFFICE_PAYMENTS_IDEMPOTENCY_WAIT"
	EnvWithdrawalOverride    = "BACKOFFICE_PAYMENTS_ALLOW_WITHDRAWAL_OVERRIDE"
	EnvReferencePrefixLength = "BACKOFFICE_PAYMENTS_REFERENCE_LENGTH"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
