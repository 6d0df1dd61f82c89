package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "PHOTOVAULT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "PHOTOVAULT_DB_DSN"
	EnvDBHost = "PHOTOVAULT_DB_HOST"
	EnvDBUser = "PHOTOVAULT_DB_USER"
	EnvDBName = "PHOTOVAULT_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Billing      BillingConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PHOTOVAULT_APP_ENV" required:"true"`
	Port         string `envconfig:"PHOTOVAULT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PHOTOVAULT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PHOTOVAULT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PHOTOVAULT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PHOTOVAULT_DB_DSN"`
	Driver string `envconfig:"PHOTOVAULT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PHOTOVAULT_DB_HOST"`
	LegacyPort     int    `envconfig:"PHOTOVAULT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PHOTOVAULT_DB_USER"`
	LegacyPassword string `envconfig:"PHOTOVAULT_DB_PASSWORD"`
	LegacyName     string `envconfig:"PHOTOVAULT_DB_NAME"`
	LegacySSLMode  string `envconfig:"PHOTOVAULT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PHOTOVAULT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PHOTOVAULT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PHOTOVAULT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PHOTOVAULT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PHOTOVAULT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PHOTOVAULT_REDIS_ADDR"`
	Password     string        `envconfig:"PHOTOVAULT_REDIS_PASSWORD"`
	DB           int           `envconfig:"PHOTOVAULT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PHOTOVAULT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PHOTOVAULT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PHOTOVAULT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PHOTOVAULT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PHOTOVAULT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// BillingConfig tunes the commission sweep worker.
type BillingConfig struct {
	SweepInterval   time.Duration `envconfig:"PHOTOVAULT_BILLING_SWEEP_INTERVAL" default:"24h"`
	SweepBatchLimit int           `envconfig:"PHOTOVAULT_BILLING_SWEEP_BATCH_LIMIT" default:"500"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PHOTOVAULT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PHOTOVAULT_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PHOTOVAULT_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"PHOTOVAULT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PHOTOVAULT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	BillingTopic        string `envconfig:"PHOTOVAULT_PUBSUB_BILLING_TOPIC" required:"true"`
	BillingSubscription string `envconfig:"PHOTOVAULT_PUBSUB_BILLING_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PHOTOVAULT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PHOTOVAULT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PHOTOVAULT_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"PHOTOVAULT_OUTBOX_RETENTION_DAYS" default:"30"`
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
