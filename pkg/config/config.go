package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/bakery-quotes/pkg/enums"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	BOM          BOMConfig
	Pricing      PricingConfig
	Materials    MaterialsConfig
	Documents    DocumentsConfig
	Intake       IntakeConfig
	HTTP         HTTPConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	GCS          GCSConfig
	Events       EventsConfig
	BigQuery     BigQueryConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects pricing parameters and backends the service cannot run with.
func (c *Config) Validate() error {
	var errs error
	p := c.Pricing
	if !p.LaborRate.IsPositive() {
		errs = multierr.Append(errs, fmt.Errorf("%s must be positive", EnvLaborRate))
	}
	if p.MarkupPct.IsNegative() {
		errs = multierr.Append(errs, fmt.Errorf("%s must not be negative", EnvMarkupPct))
	}
	if p.VATPct.IsNegative() || p.VATPct.GreaterThan(decimal.NewFromInt(1)) {
		errs = multierr.Append(errs, fmt.Errorf("%s must be between 0 and 1", EnvVATPct))
	}
	if len(p.NormalizedJobTypes()) == 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must list at least one job type", EnvJobTypes))
	}
	if len(strings.TrimSpace(p.DefaultCurrency)) != 3 {
		errs = multierr.Append(errs, fmt.Errorf("%s must be a 3-letter code", EnvDefaultCurrency))
	}
	if p.ValidityDays <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must be positive", EnvValidityDays))
	}
	backend, err := enums.ParseDocumentBackend(c.Documents.Backend)
	if err != nil {
		errs = multierr.Append(errs, err)
	} else if backend == enums.DocumentBackendGCS && strings.TrimSpace(c.GCS.BucketName) == "" {
		errs = multierr.Append(errs, fmt.Errorf("%s is required when documents use gcs", EnvGCSBucket))
	}
	if c.Events.Enabled && strings.TrimSpace(c.Events.QuoteTopic) == "" {
		errs = multierr.Append(errs, fmt.Errorf("%s is required when events are enabled", EnvQuoteTopic))
	}
	if errs != nil {
		return fmt.Errorf("invalid config: %w", errs)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"BAKERY_APP_ENV" default:"dev"`
	Port         string `envconfig:"BAKERY_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"BAKERY_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"BAKERY_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"BAKERY_LOG_WARN_STACK" default:"false"`
	// WorkerID names this replica in logs and cron lock values. Blank falls
	// back to the hostname.
	WorkerID string `envconfig:"BAKERY_WORKER_ID"`
	// MetricsAddr is where worker binaries serve /metrics. Blank disables it.
	MetricsAddr string `envconfig:"BAKERY_METRICS_ADDR"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BAKERY_DB_DSN"`
	Driver string `envconfig:"BAKERY_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"BAKERY_DB_HOST"`
	Port     int    `envconfig:"BAKERY_DB_PORT" default:"5432"`
	User     string `envconfig:"BAKERY_DB_USER"`
	Password string `envconfig:"BAKERY_DB_PASSWORD"`
	Name     string `envconfig:"BAKERY_DB_NAME"`
	SSLMode  string `envconfig:"BAKERY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BAKERY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BAKERY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BAKERY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BAKERY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQuery is the latency above which a statement is logged at warn.
	SlowQuery time.Duration `envconfig:"BAKERY_DB_SLOW_QUERY" default:"200ms"`
}

// IsSQLite reports whether the configured driver is sqlite.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DriverSQLite)
}

// RedisConfig is optional; an empty URL and address disables caching,
// idempotency replay and redis-backed intake sessions.
type RedisConfig struct {
	URL          string        `envconfig:"BAKERY_REDIS_URL"`
	Address      string        `envconfig:"BAKERY_REDIS_ADDR"`
	Password     string        `envconfig:"BAKERY_REDIS_PASSWORD"`
	DB           int           `envconfig:"BAKERY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BAKERY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BAKERY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BAKERY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BAKERY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BAKERY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type BOMConfig struct {
	BaseURL string        `envconfig:"BAKERY_BOM_API_URL" default:"http://localhost:8000"`
	Timeout time.Duration `envconfig:"BAKERY_BOM_TIMEOUT" default:"10s"`
}

type PricingConfig struct {
	LaborRate          decimal.Decimal `envconfig:"BAKERY_LABOR_RATE" default:"15.00"`
	MarkupPct          decimal.Decimal `envconfig:"BAKERY_MARKUP_PCT" default:"0.30"`
	VATPct             decimal.Decimal `envconfig:"BAKERY_VAT_PCT" default:"0.20"`
	DefaultCurrency    string          `envconfig:"BAKERY_DEFAULT_CURRENCY" default:"GBP"`
	DefaultCompanyName string          `envconfig:"BAKERY_COMPANY_NAME" default:"The Artisan Bakery"`
	DefaultNotes       string          `envconfig:"BAKERY_QUOTE_NOTES" default:"Thank you for your business!"`
	ValidityDays       int             `envconfig:"BAKERY_QUOTE_VALIDITY_DAYS" default:"30"`
	JobTypes           []string        `envconfig:"BAKERY_JOB_TYPES" default:"cupcakes,cake,pastry_box"`
	MaxQuantity        int             `envconfig:"BAKERY_MAX_QUANTITY" default:"10000"`
}

// NormalizedJobTypes trims, lowercases and de-duplicates JobTypes.
func (p PricingConfig) NormalizedJobTypes() []string {
	seen := make(map[string]struct{}, len(p.JobTypes))
	out := make([]string, 0, len(p.JobTypes))
	for _, jt := range p.JobTypes {
		jt = strings.ToLower(strings.TrimSpace(jt))
		if jt == "" {
			continue
		}
		if _, ok := seen[jt]; ok {
			continue
		}
		seen[jt] = struct{}{}
		out = append(out, jt)
	}
	return out
}

type MaterialsConfig struct {
	LookupTimeout time.Duration `envconfig:"BAKERY_MATERIALS_LOOKUP_TIMEOUT" default:"5s"`
	CacheTTL      time.Duration `envconfig:"BAKERY_MATERIALS_CACHE_TTL" default:"5m"`
}

type DocumentsConfig struct {
	Backend      string `envconfig:"BAKERY_DOCUMENTS_BACKEND" default:"file"`
	OutputDir    string `envconfig:"BAKERY_DOCUMENTS_DIR" default:"quotes"`
	TemplatePath string `envconfig:"BAKERY_TEMPLATE_PATH"`
	ObjectPrefix string `envconfig:"BAKERY_DOCUMENTS_PREFIX" default:"quotes/"`
}

type IntakeConfig struct {
	SessionTTL time.Duration `envconfig:"BAKERY_INTAKE_SESSION_TTL" default:"1h"`
}

type HTTPConfig struct {
	CORSOrigins     []string      `envconfig:"BAKERY_CORS_ORIGINS" default:"*"`
	QuoteRateLimit  int           `envconfig:"BAKERY_QUOTE_RATE_LIMIT" default:"30"`
	QuoteRateWindow time.Duration `envconfig:"BAKERY_QUOTE_RATE_WINDOW" default:"1m"`
	// Intake messages share the quote window but have their own budget.
	IntakeRateLimit int           `envconfig:"BAKERY_INTAKE_RATE_LIMIT" default:"120"`
	IdempotencyTTL  time.Duration `envconfig:"BAKERY_IDEMPOTENCY_TTL" default:"24h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BAKERY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BAKERY_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BAKERY_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"BAKERY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BAKERY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName string `envconfig:"BAKERY_GCS_BUCKET_NAME"`
}

// EventsConfig controls the quote event outbox. The API only records rows;
// cmd/outbox-publisher relays them to Pub/Sub.
type EventsConfig struct {
	Enabled      bool          `envconfig:"BAKERY_EVENTS_ENABLED" default:"false"`
	QuoteTopic   string        `envconfig:"BAKERY_PUBSUB_QUOTE_TOPIC" default:"quote-events"`
	BatchSize    int           `envconfig:"BAKERY_OUTBOX_BATCH_SIZE" default:"50"`
	PollInterval time.Duration `envconfig:"BAKERY_OUTBOX_POLL_INTERVAL" default:"500ms"`
	MaxAttempts  int           `envconfig:"BAKERY_OUTBOX_MAX_ATTEMPTS" default:"10"`

	AnalyticsSubscription string        `envconfig:"BAKERY_PUBSUB_ANALYTICS_SUBSCRIPTION" default:"quote-events-analytics"`
	IdempotencyTTL        time.Duration `envconfig:"BAKERY_EVENT_IDEMPOTENCY_TTL" default:"720h"`
}

// CronConfig drives cmd/cron-worker.
type CronConfig struct {
	Interval time.Duration `envconfig:"BAKERY_CRON_INTERVAL" default:"1h"`
	// Schedule is a five-field cron expression. When set it replaces Interval.
	Schedule        string        `envconfig:"BAKERY_CRON_SCHEDULE"`
	OutboxRetention time.Duration `envconfig:"BAKERY_OUTBOX_RETENTION" default:"720h"`
	BacklogAge      time.Duration `envconfig:"BAKERY_OUTBOX_BACKLOG_AGE" default:"5m"`
	JobTimeout      time.Duration `envconfig:"BAKERY_CRON_JOB_TIMEOUT" default:"5m"`
}

// BigQueryConfig names the dataset cmd/analytics-worker streams quote facts into.
type BigQueryConfig struct {
	Dataset          string `envconfig:"BAKERY_BQ_DATASET" default:"bakery"`
	QuoteEventsTable string `envconfig:"BAKERY_BQ_QUOTE_EVENTS_TABLE" default:"quote_events"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DriverSQLite
		if db.DSN == "" {
			db.DSN = "file:bakery.db?cache=shared"
		}
		return nil
	}
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbPartEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
