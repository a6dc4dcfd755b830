package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Admin     AdminConfig
	Pricing   PricingConfig
	Upload    UploadConfig
	Storage   StorageConfig
	RateLimit RateLimitConfig
	Messaging MessagingConfig
	Flags     FlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Flags.UseSQLite {
		cfg.DB.applySQLite()
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PRINTLY_APP_ENV" required:"true"`
	Port         string `envconfig:"PRINTLY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PRINTLY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PRINTLY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PRINTLY_DB_DSN"`
	Driver string `envconfig:"PRINTLY_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"PRINTLY_DB_HOST"`
	Port     int    `envconfig:"PRINTLY_DB_PORT" default:"5432"`
	User     string `envconfig:"PRINTLY_DB_USER"`
	Password string `envconfig:"PRINTLY_DB_PASSWORD"`
	Name     string `envconfig:"PRINTLY_DB_NAME"`
	SSLMode  string `envconfig:"PRINTLY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PRINTLY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PRINTLY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PRINTLY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PRINTLY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PRINTLY_REDIS_URL"`
	Address      string        `envconfig:"PRINTLY_REDIS_ADDR"`
	Password     string        `envconfig:"PRINTLY_REDIS_PASSWORD"`
	DB           int           `envconfig:"PRINTLY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PRINTLY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PRINTLY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PRINTLY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PRINTLY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PRINTLY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// AdminConfig carries the single-admin passcode gate. The passcode is stored
// as an argon2id hash; a successful check issues a short-lived capability JWT.
type AdminConfig struct {
	PasscodeHash      string `envconfig:"PRINTLY_ADMIN_PASSCODE_HASH" required:"true"`
	JWTSecret         string `envconfig:"PRINTLY_ADMIN_JWT_SECRET" required:"true"`
	JWTIssuer         string `envconfig:"PRINTLY_ADMIN_JWT_ISSUER" default:"printly"`
	SessionTTLMinutes int    `envconfig:"PRINTLY_ADMIN_SESSION_TTL_MINUTES" default:"720"`

	ArgonMemoryKB    int `envconfig:"PRINTLY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PRINTLY_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PRINTLY_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PRINTLY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PRINTLY_ARGON_KEY_LEN" default:"32"`
}

// SessionTTL returns the capability token lifetime.
func (a AdminConfig) SessionTTL() time.Duration {
	if a.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(a.SessionTTLMinutes) * time.Minute
}

type PricingConfig struct {
	// PricePerPage is in whole currency units (rupees), not paise.
	PricePerPage int `envconfig:"PRINTLY_PRICE_PER_PAGE" default:"5"`
}

type UploadConfig struct {
	MaxFileMB  int `envconfig:"PRINTLY_UPLOAD_MAX_FILE_MB" default:"25"`
	MaxBatchMB int `envconfig:"PRINTLY_UPLOAD_MAX_BATCH_MB" default:"100"`
}

// MaxFileBytes returns the per-file cap in bytes.
func (u UploadConfig) MaxFileBytes() int64 {
	return int64(u.MaxFileMB) * 1024 * 1024
}

// MaxBatchBytes returns the per-upload-batch cap in bytes.
func (u UploadConfig) MaxBatchBytes() int64 {
	return int64(u.MaxBatchMB) * 1024 * 1024
}

type StorageConfig struct {
	Driver   string `envconfig:"PRINTLY_STORAGE_DRIVER" default:"local"`
	LocalDir string `envconfig:"PRINTLY_STORAGE_LOCAL_DIR" default:"./uploads"`
	BaseURL  string `envconfig:"PRINTLY_STORAGE_BASE_URL" default:"/files"`

	S3Bucket   string `envconfig:"PRINTLY_STORAGE_S3_BUCKET"`
	S3Region   string `envconfig:"PRINTLY_STORAGE_S3_REGION"`
	S3Endpoint string `envconfig:"PRINTLY_STORAGE_S3_ENDPOINT"`

	// Static credentials for MinIO-style endpoints. Leave empty on AWS to
	// use the ambient credential chain.
	S3AccessKey string `envconfig:"PRINTLY_STORAGE_S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"PRINTLY_STORAGE_S3_SECRET_KEY"`
}

// MessagingConfig holds the shop's WhatsApp number used to build contact
// deep links. Digits only, with country code.
type MessagingConfig struct {
	ShopWhatsApp string `envconfig:"PRINTLY_SHOP_WHATSAPP"`
}

type RateLimitConfig struct {
	TokenWindow     time.Duration `envconfig:"PRINTLY_RATE_LIMIT_TOKEN_WINDOW" default:"1m"`
	TokenPhoneLimit int           `envconfig:"PRINTLY_RATE_LIMIT_TOKEN_PHONE_LIMIT" default:"5"`
	TokenIPLimit    int           `envconfig:"PRINTLY_RATE_LIMIT_TOKEN_IP_LIMIT" default:"20"`
}

type FlagsConfig struct {
	UseSQLite   bool `envconfig:"PRINTLY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PRINTLY_AUTO_MIGRATE" default:"false"`
}

// applySQLite flips the database to the embedded sqlite driver so local
// development can run without a Postgres instance.
func (db *DBConfig) applySQLite() {
	db.Driver = DBDriverSQLite
	if db.DSN == "" {
		db.DSN = SQLiteDevDSN
	}
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
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
