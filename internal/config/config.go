package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains server configuration parameters.
type Config struct {
	LogLevel int      `env:"LOG_LEVEL" envDefault:"0"`
	AppEnv   string   `env:"APP_ENV" envDefault:"development"`
	HTTP     HTTP     `envPrefix:"HTTP_"`
	GRPC     GRPC     `envPrefix:"GRPC_"`
	Redis    Redis    `envPrefix:"REDIS_"`
	Mongo    Mongo    `envPrefix:"MONGO_"`
	JWT      JWT      `envPrefix:"JWT_"`
	Storage  Storage  `envPrefix:"MINIO_"`
	Cache    Cache    `envPrefix:"CACHE_"`
	Login    Login    `envPrefix:"LOGIN_"`
}

// HTTP contains HTTP API server parameters.
type HTTP struct {
	Port               string        `env:"PORT" envDefault:"8080"`
	EnableHTTPS        bool          `env:"ENABLE_HTTPS" envDefault:"false"`
	CertFileName       string        `env:"CERT_FILE_NAME" envDefault:"cert.pem"`
	PrivateKeyFileName string        `env:"PRIVATE_KEY_FILE_NAME" envDefault:"key.pem"`
	TrustProxy         bool          `env:"TRUST_PROXY" envDefault:"false"`
	AllowedOrigins     []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	ReadTimeout        time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout       time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
}

// GRPC contains gRPC health server parameters.
type GRPC struct {
	Enabled bool   `env:"ENABLED" envDefault:"true"`
	Port    string `env:"PORT" envDefault:"50051"`
}

// Redis contains key-value store connection parameters.
type Redis struct {
	Addr        string        `env:"ADDR" envDefault:"localhost:6379"`
	Password    string        `env:"PASSWORD"`
	DB          int           `env:"DB" envDefault:"0"`
	DialTimeout time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	OpTimeout   time.Duration `env:"OP_TIMEOUT" envDefault:"3s"`
}

// Mongo contains database connection parameters.
type Mongo struct {
	URI            string        `env:"URI" envDefault:"mongodb://localhost:27017"`
	Database       string        `env:"DATABASE" envDefault:"beatstream"`
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"10s"`
}

// JWT contains token signing and lifetime parameters.
type JWT struct {
	Secret             string        `env:"SECRET" envDefault:"devsecret"`
	RefreshSecret      string        `env:"REFRESH_SECRET" envDefault:"devrefreshsecret"`
	AccessTTL          time.Duration `env:"ACCESS_TTL" envDefault:"15m"`
	RememberAccessTTL  time.Duration `env:"REMEMBER_ACCESS_TTL" envDefault:"720h"`
	RefreshTTL         time.Duration `env:"REFRESH_TTL" envDefault:"168h"`
	RememberRefreshTTL time.Duration `env:"REMEMBER_REFRESH_TTL" envDefault:"720h"`
	PreciseRotationTTL bool          `env:"PRECISE_ROTATION_TTL" envDefault:"false"`
}

// Storage contains object storage parameters.
type Storage struct {
	Endpoint   string        `env:"ENDPOINT" envDefault:"localhost:9000"`
	AccessKey  string        `env:"ACCESS_KEY" envDefault:"beatstream-access-key"`
	SecretKey  string        `env:"SECRET_KEY" envDefault:"beatstream-secret-key"`
	Bucket     string        `env:"BUCKET_NAME" envDefault:"beatstream-audio"`
	UseSSL     bool          `env:"USE_SSL" envDefault:"false"`
	PresignTTL time.Duration `env:"PRESIGN_TTL" envDefault:"1h"`
}

// Cache contains cache maintenance parameters.
type Cache struct {
	// SweepSchedule is a cron spec; empty disables the sweep.
	SweepSchedule  string `env:"SWEEP_SCHEDULE" envDefault:"@every 1h"`
	HealthSchedule string `env:"HEALTH_SCHEDULE" envDefault:"@every 30s"`
}

// Login contains account lockout parameters.
type Login struct {
	MaxAttempts  int           `env:"MAX_ATTEMPTS" envDefault:"5"`
	LockDuration time.Duration `env:"LOCK_DURATION" envDefault:"2h"`
}

// IsProduction reports whether the process runs in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// NewConfig loads configuration from environment variables.
func NewConfig() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Redis.OpTimeout <= 0 {
		return nil, fmt.Errorf("REDIS_OP_TIMEOUT must be positive, got %s", cfg.Redis.OpTimeout)
	}

	return &cfg, nil
}
