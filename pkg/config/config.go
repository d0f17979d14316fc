package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "CASHLINK_DB_DSN"
	EnvDBHost = "CASHLINK_DB_HOST"
	EnvDBUser = "CASHLINK_DB_USER"
	EnvDBName = "CASHLINK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Recovery     RecoveryConfig
	Cleanup      CleanupConfig
	Socket       SocketConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"CASHLINK_APP_ENV" required:"true"`
	Port         string `envconfig:"CASHLINK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CASHLINK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CASHLINK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CASHLINK_SERVICE_KIND" default:"gateway"`
}

type DBConfig struct {
	DSN    string `envconfig:"CASHLINK_DB_DSN"`
	Driver string `envconfig:"CASHLINK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CASHLINK_DB_HOST"`
	LegacyPort     int    `envconfig:"CASHLINK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CASHLINK_DB_USER"`
	LegacyPassword string `envconfig:"CASHLINK_DB_PASSWORD"`
	LegacyName     string `envconfig:"CASHLINK_DB_NAME"`
	LegacySSLMode  string `envconfig:"CASHLINK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CASHLINK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CASHLINK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CASHLINK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CASHLINK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CASHLINK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CASHLINK_REDIS_ADDR"`
	Password     string        `envconfig:"CASHLINK_REDIS_PASSWORD"`
	DB           int           `envconfig:"CASHLINK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CASHLINK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CASHLINK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CASHLINK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CASHLINK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CASHLINK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CASHLINK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CASHLINK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CASHLINK_JWT_EXPIRATION_MINUTES" default:"720"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CASHLINK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CASHLINK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CASHLINK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CASHLINK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CASHLINK_ARGON_KEY_LEN" default:"32"`
}

// RecoveryConfig controls the per-kind reconnect grace windows. Players and
// cashiers are tuned independently: cashiers keep longer-lived workstation
// sessions while players drop off mobile networks constantly.
type RecoveryConfig struct {
	PlayerGrace  time.Duration `envconfig:"CASHLINK_RECOVERY_PLAYER_GRACE" default:"30s"`
	CashierGrace time.Duration `envconfig:"CASHLINK_RECOVERY_CASHIER_GRACE" default:"60s"`
}

type CleanupConfig struct {
	Enabled        bool          `envconfig:"CASHLINK_CLEANUP_ENABLED" default:"true"`
	Interval       time.Duration `envconfig:"CASHLINK_CLEANUP_INTERVAL" default:"5m"`
	TransactionTTL time.Duration `envconfig:"CASHLINK_CLEANUP_TRANSACTION_TTL" default:"24h"`
}

type SocketConfig struct {
	ReadLimitBytes   int64         `envconfig:"CASHLINK_SOCKET_READ_LIMIT_BYTES" default:"65536"`
	WriteTimeout     time.Duration `envconfig:"CASHLINK_SOCKET_WRITE_TIMEOUT" default:"10s"`
	PingInterval     time.Duration `envconfig:"CASHLINK_SOCKET_PING_INTERVAL" default:"25s"`
	PongWait         time.Duration `envconfig:"CASHLINK_SOCKET_PONG_WAIT" default:"60s"`
	HandshakeTimeout time.Duration `envconfig:"CASHLINK_SOCKET_HANDSHAKE_TIMEOUT" default:"10s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CASHLINK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CASHLINK_AUTO_MIGRATE" default:"false"`
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
