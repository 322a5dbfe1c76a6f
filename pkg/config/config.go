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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Broadcast    BroadcastConfig
	Retention    RetentionConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Broadcast.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"NOTICECAST_APP_ENV" required:"true"`
	Port         string   `envconfig:"NOTICECAST_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"NOTICECAST_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"NOTICECAST_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"NOTICECAST_CORS_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"NOTICECAST_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"NOTICECAST_DB_DSN"`

	LegacyHost     string `envconfig:"NOTICECAST_DB_HOST"`
	LegacyPort     int    `envconfig:"NOTICECAST_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"NOTICECAST_DB_USER"`
	LegacyPassword string `envconfig:"NOTICECAST_DB_PASSWORD"`
	LegacyName     string `envconfig:"NOTICECAST_DB_NAME"`
	LegacySSLMode  string `envconfig:"NOTICECAST_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"NOTICECAST_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"NOTICECAST_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"NOTICECAST_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NOTICECAST_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"NOTICECAST_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"NOTICECAST_REDIS_URL" required:"true"`
	Address      string        `envconfig:"NOTICECAST_REDIS_ADDR"`
	Password     string        `envconfig:"NOTICECAST_REDIS_PASSWORD"`
	DB           int           `envconfig:"NOTICECAST_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"NOTICECAST_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"NOTICECAST_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"NOTICECAST_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NOTICECAST_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"NOTICECAST_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig verifies tokens issued by the external auth layer.
type JWTConfig struct {
	Secret            string `envconfig:"NOTICECAST_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"NOTICECAST_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"NOTICECAST_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"NOTICECAST_AUTO_MIGRATE" default:"false"`
	RedisRelay  bool `envconfig:"NOTICECAST_FEATURE_REDIS_RELAY" default:"true"`
}

// BroadcastConfig tunes the real-time push path.
type BroadcastConfig struct {
	Channel             string        `envconfig:"NOTICECAST_BROADCAST_CHANNEL" default:"notices"`
	SubscriberBuffer    int           `envconfig:"NOTICECAST_BROADCAST_SUBSCRIBER_BUFFER" default:"16"`
	HeartbeatInterval   time.Duration `envconfig:"NOTICECAST_BROADCAST_HEARTBEAT" default:"25s"`
	StreamConnectLimit  int           `envconfig:"NOTICECAST_BROADCAST_CONNECT_LIMIT" default:"30"`
	StreamConnectWindow time.Duration `envconfig:"NOTICECAST_BROADCAST_CONNECT_WINDOW" default:"1m"`
	RetryHintMillis     uint          `envconfig:"NOTICECAST_BROADCAST_RETRY_MS" default:"3000"`
}

func (b BroadcastConfig) validate() error {
	if strings.TrimSpace(b.Channel) == "" {
		return fmt.Errorf("%s must not be empty", EnvBroadcastChannel)
	}
	if b.SubscriberBuffer <= 0 {
		return fmt.Errorf("%s must be positive", EnvBroadcastBuffer)
	}
	if b.HeartbeatInterval <= 0 {
		return fmt.Errorf("%s must be positive", EnvBroadcastHeartbeat)
	}
	return nil
}

// RetentionConfig controls automatic removal of passive notices.
type RetentionConfig struct {
	PassiveNoticeDays int `envconfig:"NOTICECAST_RETENTION_PASSIVE_DAYS" default:"90"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"NOTICECAST_CRON_INTERVAL" default:"24h"`
	LockTTL  time.Duration `envconfig:"NOTICECAST_CRON_LOCK_TTL" default:"1h"`
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
