package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App        AppConfig
	Service    ServiceConfig
	DB         DBConfig
	Redis      RedisConfig
	Routing    RoutingConfig
	Feed       FeedConfig
	AutoAssign AutoAssignConfig
	Metrics    MetricsConfig
	Flags      FeatureFlagsConfig
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
	Env          string `envconfig:"CURBSIDE_APP_ENV" required:"true"`
	Port         string `envconfig:"CURBSIDE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CURBSIDE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CURBSIDE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CURBSIDE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CURBSIDE_DB_DSN"`
	Driver string `envconfig:"CURBSIDE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CURBSIDE_DB_HOST"`
	LegacyPort     int    `envconfig:"CURBSIDE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CURBSIDE_DB_USER"`
	LegacyPassword string `envconfig:"CURBSIDE_DB_PASSWORD"`
	LegacyName     string `envconfig:"CURBSIDE_DB_NAME"`
	LegacySSLMode  string `envconfig:"CURBSIDE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CURBSIDE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CURBSIDE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CURBSIDE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CURBSIDE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CURBSIDE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CURBSIDE_REDIS_ADDR"`
	Password     string        `envconfig:"CURBSIDE_REDIS_PASSWORD"`
	DB           int           `envconfig:"CURBSIDE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CURBSIDE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CURBSIDE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CURBSIDE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CURBSIDE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CURBSIDE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// RoutingConfig configures the external route-optimization provider.
type RoutingConfig struct {
	BaseURL        string        `envconfig:"CURBSIDE_ROUTING_BASE_URL"`
	APIKey         string        `envconfig:"CURBSIDE_ROUTING_API_KEY"`
	RequestTimeout time.Duration `envconfig:"CURBSIDE_ROUTING_REQUEST_TIMEOUT" default:"10s"`
	PlanPollEvery  time.Duration `envconfig:"CURBSIDE_ROUTING_PLAN_POLL_EVERY" default:"2s"`
}

// FeedConfig configures the driver-event feed poller.
type FeedConfig struct {
	PollInterval  time.Duration `envconfig:"CURBSIDE_FEED_POLL_INTERVAL" default:"15s"`
	BufferSize    int           `envconfig:"CURBSIDE_FEED_BUFFER_SIZE" default:"200"`
	LockKey       string        `envconfig:"CURBSIDE_FEED_LOCK_KEY" default:"feed-poller"`
	LockTTL       time.Duration `envconfig:"CURBSIDE_FEED_LOCK_TTL" default:"1m"`
	CursorName    string        `envconfig:"CURBSIDE_FEED_CURSOR_NAME" default:"driver-events"`
	InitialCursor string        `envconfig:"CURBSIDE_FEED_INITIAL_CURSOR" default:"0"`
}

// AutoAssignConfig holds the pickup-day placement policy knobs.
type AutoAssignConfig struct {
	Enabled            bool    `envconfig:"CURBSIDE_AUTOASSIGN_ENABLED" default:"false"`
	AutoApprove        bool    `envconfig:"CURBSIDE_AUTOASSIGN_AUTO_APPROVE" default:"false"`
	Metric             string  `envconfig:"CURBSIDE_AUTOASSIGN_METRIC" default:"both"`
	HistoryWindowDays  int     `envconfig:"CURBSIDE_AUTOASSIGN_HISTORY_DAYS" default:"14"`
	MaxExtraDistanceKM float64 `envconfig:"CURBSIDE_AUTOASSIGN_MAX_DISTANCE_KM" default:"0"`
	MaxExtraMinutes    float64 `envconfig:"CURBSIDE_AUTOASSIGN_MAX_MINUTES" default:"0"`
}

type MetricsConfig struct {
	Port string `envconfig:"CURBSIDE_METRICS_PORT" default:"9102"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CURBSIDE_AUTO_MIGRATE" default:"false"`
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
