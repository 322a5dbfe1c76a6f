package config

const EnvPrefix = "NOTICECAST"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv             = "NOTICECAST_APP_ENV"
	EnvPort               = "NOTICECAST_APP_PORT"
	EnvLogLevel           = "NOTICECAST_LOG_LEVEL"
	EnvDBDSN              = "NOTICECAST_DB_DSN"
	EnvDBHost             = "NOTICECAST_DB_HOST"
	EnvDBUser             = "NOTICECAST_DB_USER"
	EnvDBName             = "NOTICECAST_DB_NAME"
	EnvDBPassword         = "NOTICECAST_DB_PASSWORD"
	EnvRedisURL           = "NOTICECAST_REDIS_URL"
	EnvJWTSecret          = "NOTICECAST_JWT_SECRET"
	EnvJWTIssuer          = "NOTICECAST_JWT_ISSUER"
	EnvBroadcastChannel   = "NOTICECAST_BROADCAST_CHANNEL"
	EnvBroadcastBuffer    = "NOTICECAST_BROADCAST_SUBSCRIBER_BUFFER"
	EnvBroadcastHeartbeat = "NOTICECAST_BROADCAST_HEARTBEAT"
	EnvRetentionDays      = "NOTICECAST_RETENTION_PASSIVE_DAYS"
	EnvCORSOrigins        = "NOTICECAST_CORS_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
