package config

// EnvPrefix is empty because every field carries its full variable name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "LUCID_APP_ENV"
	EnvPort     = "LUCID_APP_PORT"
	EnvLogLevel = "LUCID_LOG_LEVEL"

	EnvDBDSN  = "LUCID_DB_DSN"
	EnvDBHost = "LUCID_DB_HOST"
	EnvDBUser = "LUCID_DB_USER"
	EnvDBName = "LUCID_DB_NAME"

	EnvRedisURL = "LUCID_REDIS_URL"

	EnvJWTSecret  = "LUCID_JWT_SECRET"
	EnvJWTIssuer  = "LUCID_JWT_ISSUER"
	EnvJWTExpMins = "LUCID_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "LUCID_GCP_PROJECT_ID"
	EnvGCSBucket    = "LUCID_GCS_BUCKET_NAME"

	EnvVeoModel           = "LUCID_VEO_MODEL"
	EnvVeoPollInterval    = "LUCID_VEO_POLL_INTERVAL"
	EnvVeoMaxPollAttempts = "LUCID_VEO_MAX_POLL_ATTEMPTS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
