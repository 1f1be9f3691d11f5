package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "bonusweb"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "BONUSWEB_APP_ENV"
	EnvDBDSN  = "BONUSWEB_DB_DSN"
	EnvDBHost = "BONUSWEB_DB_HOST"
	EnvDBUser = "BONUSWEB_DB_USER"
	EnvDBName = "BONUSWEB_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Identity     IdentityConfig
	Loyalty      LoyaltyConfig
	Verification VerificationConfig
	ScanPassword ScanPasswordConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
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
	Env          string `envconfig:"BONUSWEB_APP_ENV" required:"true"`
	Port         string `envconfig:"BONUSWEB_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"BONUSWEB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BONUSWEB_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BONUSWEB_DB_DSN"`
	Driver string `envconfig:"BONUSWEB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BONUSWEB_DB_HOST"`
	LegacyPort     int    `envconfig:"BONUSWEB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BONUSWEB_DB_USER"`
	LegacyPassword string `envconfig:"BONUSWEB_DB_PASSWORD"`
	LegacyName     string `envconfig:"BONUSWEB_DB_NAME"`
	LegacySSLMode  string `envconfig:"BONUSWEB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BONUSWEB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BONUSWEB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BONUSWEB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BONUSWEB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BONUSWEB_REDIS_URL"`
	Address      string        `envconfig:"BONUSWEB_REDIS_ADDR"`
	Password     string        `envconfig:"BONUSWEB_REDIS_PASSWORD"`
	DB           int           `envconfig:"BONUSWEB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BONUSWEB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BONUSWEB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BONUSWEB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BONUSWEB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BONUSWEB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// IdentityConfig describes the tokens minted by the external identity layer.
// This service only verifies and unpacks them.
type IdentityConfig struct {
	JWTSecret string `envconfig:"BONUSWEB_IDENTITY_JWT_SECRET" required:"true"`
	Issuer    string `envconfig:"BONUSWEB_IDENTITY_ISSUER" default:"bonusweb"`
}

type LoyaltyConfig struct {
	DefaultRewardPointCost int           `envconfig:"BONUSWEB_DEFAULT_REWARD_POINT_COST" default:"100"`
	DefaultPointsPerScan   int           `envconfig:"BONUSWEB_DEFAULT_POINTS_PER_SCAN" default:"1"`
	LockTimeout            time.Duration `envconfig:"BONUSWEB_WALLET_LOCK_TIMEOUT" default:"5s"`
}

type VerificationConfig struct {
	CodeTTL    time.Duration `envconfig:"BONUSWEB_VERIFICATION_CODE_TTL" default:"10m"`
	CodeLength int           `envconfig:"BONUSWEB_VERIFICATION_CODE_LENGTH" default:"6"`
}

type ScanPasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BONUSWEB_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BONUSWEB_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BONUSWEB_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BONUSWEB_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BONUSWEB_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BONUSWEB_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BONUSWEB_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"BONUSWEB_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"BONUSWEB_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	RewardEventsTopic string `envconfig:"BONUSWEB_PUBSUB_REWARD_EVENTS_TOPIC" default:"bw-reward-events"`
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

	u := url.URL{
		Scheme:   "postgres",
		User:     userInfo,
		Host:     fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:     db.LegacyName,
		RawQuery: "sslmode=" + db.LegacySSLMode,
	}
	db.DSN = u.String()
	return nil
}
