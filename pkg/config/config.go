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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	GCS          GCSConfig
	Veo          VeoConfig
	VideoLimits  VideoLimitsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Veo.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LUCID_APP_ENV" required:"true"`
	Port         string `envconfig:"LUCID_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LUCID_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LUCID_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"LUCID_DB_DSN"`
	Driver string `envconfig:"LUCID_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LUCID_DB_HOST"`
	LegacyPort     int    `envconfig:"LUCID_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LUCID_DB_USER"`
	LegacyPassword string `envconfig:"LUCID_DB_PASSWORD"`
	LegacyName     string `envconfig:"LUCID_DB_NAME"`
	LegacySSLMode  string `envconfig:"LUCID_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LUCID_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LUCID_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LUCID_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LUCID_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LUCID_REDIS_URL"`
	Address      string        `envconfig:"LUCID_REDIS_ADDR"`
	Password     string        `envconfig:"LUCID_REDIS_PASSWORD"`
	DB           int           `envconfig:"LUCID_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LUCID_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LUCID_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LUCID_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LUCID_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LUCID_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"LUCID_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"LUCID_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"LUCID_JWT_EXPIRATION_MINUTES" default:"60"`
}

// SessionTTL is how long a registered session outlives its access token.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LUCID_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"LUCID_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"LUCID_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"LUCID_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string        `envconfig:"LUCID_GCS_BUCKET_NAME" required:"true"`
	PublicBaseURL string        `envconfig:"LUCID_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
	APIBaseURL    string        `envconfig:"LUCID_GCS_API_BASE_URL" default:"https://storage.googleapis.com"`
	UploadTimeout time.Duration `envconfig:"LUCID_GCS_UPLOAD_TIMEOUT" default:"2m"`
}

// VeoConfig holds the fixed provider coordinates. BaseURL and StorageBaseURL
// exist so tests can point the client at a local server.
type VeoConfig struct {
	Region          string        `envconfig:"LUCID_VEO_REGION" default:"us-central1"`
	Model           string        `envconfig:"LUCID_VEO_MODEL" default:"veo-2.0-generate-001"`
	BaseURL         string        `envconfig:"LUCID_VEO_BASE_URL"`
	StorageBaseURL  string        `envconfig:"LUCID_VEO_STORAGE_BASE_URL" default:"https://storage.googleapis.com"`
	TokenURL        string        `envconfig:"LUCID_VEO_TOKEN_URL" default:"https://oauth2.googleapis.com/token"`
	Scope           string        `envconfig:"LUCID_VEO_SCOPE" default:"https://www.googleapis.com/auth/cloud-platform"`
	PollInterval    time.Duration `envconfig:"LUCID_VEO_POLL_INTERVAL" default:"5s"`
	MaxPollAttempts int           `envconfig:"LUCID_VEO_MAX_POLL_ATTEMPTS" default:"60"`
	HTTPTimeout     time.Duration `envconfig:"LUCID_VEO_HTTP_TIMEOUT" default:"60s"`
	DefaultPrompt   string        `envconfig:"LUCID_VEO_DEFAULT_PROMPT" default:"Gentle, dreamlike motion. Soft camera drift, slowly shifting light and atmosphere, subtle movement in the scene."`
}

// Endpoint returns the regional Vertex AI base URL unless overridden.
func (v VeoConfig) Endpoint() string {
	if strings.TrimSpace(v.BaseURL) != "" {
		return strings.TrimRight(v.BaseURL, "/")
	}
	return fmt.Sprintf("https://%s-aiplatform.googleapis.com", v.Region)
}

// PollBudget is the longest the orchestrator waits for a job.
func (v VeoConfig) PollBudget() time.Duration {
	return time.Duration(v.MaxPollAttempts) * v.PollInterval
}

func (v VeoConfig) validate() error {
	if v.PollInterval <= 0 {
		return fmt.Errorf("%s must be positive", EnvVeoPollInterval)
	}
	if v.MaxPollAttempts <= 0 {
		return fmt.Errorf("%s must be positive", EnvVeoMaxPollAttempts)
	}
	if strings.TrimSpace(v.Model) == "" {
		return fmt.Errorf("%s is required", EnvVeoModel)
	}
	return nil
}

type VideoLimitsConfig struct {
	Window        time.Duration `envconfig:"LUCID_VIDEO_RATE_LIMIT_WINDOW" default:"1h"`
	RequestsLimit int           `envconfig:"LUCID_VIDEO_RATE_LIMIT_REQUESTS" default:"10"`
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
