package config

const (
	EnvPrefix = "BAKERY"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	EnvAppEnv          = "BAKERY_APP_ENV"
	EnvPort            = "BAKERY_APP_PORT"
	EnvDBDSN           = "BAKERY_DB_DSN"
	EnvDBHost          = "BAKERY_DB_HOST"
	EnvDBUser          = "BAKERY_DB_USER"
	EnvDBName          = "BAKERY_DB_NAME"
	EnvUseSQLite       = "BAKERY_USE_SQLITE"
	EnvRedisURL        = "BAKERY_REDIS_URL"
	EnvBOMURL          = "BAKERY_BOM_API_URL"
	EnvLaborRate       = "BAKERY_LABOR_RATE"
	EnvMarkupPct       = "BAKERY_MARKUP_PCT"
	EnvVATPct          = "BAKERY_VAT_PCT"
	EnvDefaultCurrency = "BAKERY_DEFAULT_CURRENCY"
	EnvCompanyName     = "BAKERY_COMPANY_NAME"
	EnvValidityDays    = "BAKERY_QUOTE_VALIDITY_DAYS"
	EnvJobTypes        = "BAKERY_JOB_TYPES"
	EnvDocumentsBack   = "BAKERY_DOCUMENTS_BACKEND"
	EnvGCSBucket       = "BAKERY_GCS_BUCKET_NAME"
	EnvEventsEnabled   = "BAKERY_EVENTS_ENABLED"
	EnvQuoteTopic      = "BAKERY_PUBSUB_QUOTE_TOPIC"
)

var dbPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
