package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig       `envPrefix:"APP_"`
	Server    ServerConfig    `envPrefix:"SERVER_"`
	Log       LogConfig       `envPrefix:"LOG_"`
	Database  DatabaseConfig  `envPrefix:"DATABASE_"`
	Auth      AuthConfig      `envPrefix:"AUTH_"`
	JWT       JWTConfig       `envPrefix:"JWT_"`
	OTP       OTPConfig       `envPrefix:"OTP_"`
	Redis     RedisConfig     `envPrefix:"REDIS_"`
	Mail      MailConfig      `envPrefix:"MAIL_"`
	Storage   StorageConfig   `envPrefix:"STORAGE_"`
	Upload    UploadConfig    `envPrefix:"UPLOAD_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
	CORS      CORSConfig      `envPrefix:"CORS_"`
	Bootstrap BootstrapConfig `envPrefix:"BOOTSTRAP_"`
}

type AppConfig struct {
	Name     string `env:"NAME" envDefault:"Druk Health"`
	URL      string `env:"URL" envDefault:"http://localhost:8080"`
	Timezone string `env:"TIMEZONE" envDefault:"Local"`
}

type ServerConfig struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	Host            string        `env:"HOST" envDefault:"localhost"`
	TrustedProxies  []string      `env:"TRUSTED_PROXIES" envSeparator:","`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

type LogConfig struct {
	Level      string `env:"LEVEL" envDefault:"info"`
	Format     string `env:"FORMAT" envDefault:"json"`
	Output     string `env:"OUTPUT" envDefault:"stdout"`
	MaxSizeMB  int    `env:"MAX_SIZE_MB" envDefault:"50"`
	MaxBackups int    `env:"MAX_BACKUPS" envDefault:"5"`
	MaxAgeDays int    `env:"MAX_AGE_DAYS" envDefault:"28"`
}

type DatabaseConfig struct {
	Driver       string        `env:"DRIVER" envDefault:"sqlite"`
	DSN          string        `env:"DSN" envDefault:"ctgadmin.db"`
	AutoMigrate  bool          `env:"AUTO_MIGRATE" envDefault:"true"`
	MaxOpenConns int           `env:"MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLife  time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"1h"`
}

type AuthConfig struct {
	MinLength      int  `env:"MIN_LENGTH" envDefault:"6"`
	RequireUpper   bool `env:"REQUIRE_UPPER" envDefault:"false"`
	RequireLower   bool `env:"REQUIRE_LOWER" envDefault:"false"`
	RequireNumber  bool `env:"REQUIRE_NUMBER" envDefault:"false"`
	RequireSpecial bool `env:"REQUIRE_SPECIAL" envDefault:"false"`
	BcryptCost     int  `env:"BCRYPT_COST" envDefault:"10"`
}

type JWTConfig struct {
	SecretKey    string        `env:"SECRET_KEY"`
	Algorithm    string        `env:"ALGORITHM" envDefault:"HS256"`
	AccessExpiry time.Duration `env:"ACCESS_EXPIRY" envDefault:"24h"`
	Issuer       string        `env:"ISSUER" envDefault:"drukhealth"`
}

type OTPConfig struct {
	Length        int           `env:"LENGTH" envDefault:"6"`
	Expiry        time.Duration `env:"EXPIRY" envDefault:"5m"`
	Cooldown      time.Duration `env:"COOLDOWN" envDefault:"60s"`
	MaxAttempts   int           `env:"MAX_ATTEMPTS" envDefault:"5"`
	ResetWindow   time.Duration `env:"RESET_WINDOW" envDefault:"10m"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"15m"`
	Store         string        `env:"STORE" envDefault:"memory"`
	HashCost      int           `env:"HASH_COST" envDefault:"10"`
}

type RedisConfig struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
	Prefix   string `env:"PREFIX" envDefault:"ctgadmin:"`
}

type MailConfig struct {
	Enabled      bool          `env:"ENABLED" envDefault:"true"`
	Host         string        `env:"HOST" envDefault:"localhost"`
	Port         int           `env:"PORT" envDefault:"587"`
	Username     string        `env:"USERNAME"`
	Password     string        `env:"PASSWORD"`
	Encryption   string        `env:"ENCRYPTION" envDefault:"starttls"`
	FromAddress  string        `env:"FROM_ADDRESS" envDefault:"no-reply@drukhealth.local"`
	FromName     string        `env:"FROM_NAME" envDefault:"Druk Health"`
	TemplatesDir string        `env:"TEMPLATES_DIR"`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"15s"`
}

type StorageConfig struct {
	Driver        string `env:"DRIVER" envDefault:"local"`
	LocalDir      string `env:"LOCAL_DIR" envDefault:"uploads"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`
	Bucket        string `env:"BUCKET"`
	Region        string `env:"REGION" envDefault:"us-east-1"`
	Endpoint      string `env:"ENDPOINT"`
	AccessKey     string `env:"ACCESS_KEY"`
	SecretKey     string `env:"SECRET_KEY"`
	UsePathStyle  bool   `env:"USE_PATH_STYLE" envDefault:"false"`
	KeyPrefix     string `env:"KEY_PREFIX" envDefault:"ctg_scans/"`
}

type UploadConfig struct {
	MaxSize      int64    `env:"MAX_SIZE" envDefault:"10485760"`
	AllowedTypes []string `env:"ALLOWED_TYPES" envSeparator:"," envDefault:"image/jpeg,image/png"`
	FieldName    string   `env:"FIELD_NAME" envDefault:"ctgImage"`
}

type CountingMode string

const (
	CountAll      CountingMode = "all"
	CountFailures CountingMode = "failures"
	CountSuccess  CountingMode = "success"
)

type RateLimitConfig struct {
	Store                string        `env:"STORE" envDefault:"memory"`
	LoginRate            int           `env:"LOGIN_RATE" envDefault:"10"`
	LoginPeriod          time.Duration `env:"LOGIN_PERIOD" envDefault:"15m"`
	LoginCountMode       CountingMode  `env:"LOGIN_COUNT_MODE" envDefault:"failures"`
	ForgotPasswordRate   int           `env:"FORGOT_PASSWORD_RATE" envDefault:"5"`
	ForgotPasswordPeriod time.Duration `env:"FORGOT_PASSWORD_PERIOD" envDefault:"15m"`
	VerifyOTPRate        int           `env:"VERIFY_OTP_RATE" envDefault:"20"`
	VerifyOTPPeriod      time.Duration `env:"VERIFY_OTP_PERIOD" envDefault:"15m"`
}

type CORSConfig struct {
	AllowOrigins []string `env:"ALLOW_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://127.0.0.1:5173,https://drukhealthfrontend.vercel.app"`
}

type BootstrapConfig struct {
	SuperAdminEmail    string `env:"SUPERADMIN_EMAIL"`
	SuperAdminPassword string `env:"SUPERADMIN_PASSWORD"`
	SuperAdminName     string `env:"SUPERADMIN_NAME" envDefault:"Super Admin"`
}

func LoadConfig(cfg any) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	if err := env.Parse(cfg); err != nil {
		return err
	}

	if c, ok := cfg.(*Config); ok {
		return c.Validate()
	}

	return nil
}

func (c *Config) Validate() error {
	if err := validateJWTConfig(&c.JWT); err != nil {
		return err
	}
	if err := validateOTPConfig(&c.OTP); err != nil {
		return err
	}
	if err := validateStorageConfig(&c.Storage); err != nil {
		return err
	}
	return nil
}

var weakSecretPatterns = []string{"password", "secret", "test", "example", "default", "change"}

func validateJWTConfig(cfg *JWTConfig) error {
	if len(cfg.SecretKey) < 32 {
		return fmt.Errorf("JWT secret key must be at least 32 characters long")
	}

	lower := strings.ToLower(cfg.SecretKey)
	for _, pattern := range weakSecretPatterns {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("JWT secret key contains weak patterns (%s)", pattern)
		}
	}

	if cfg.Algorithm != "" && cfg.Algorithm != "HS256" {
		return fmt.Errorf("unsupported JWT algorithm: %s (supported: HS256)", cfg.Algorithm)
	}

	return nil
}

func validateOTPConfig(cfg *OTPConfig) error {
	if cfg.Length < 4 || cfg.Length > 10 {
		return fmt.Errorf("OTP length must be between 4 and 10 digits")
	}
	if cfg.Expiry <= 0 {
		return fmt.Errorf("OTP expiry must be positive")
	}
	if cfg.Cooldown < 0 {
		return fmt.Errorf("OTP cooldown cannot be negative")
	}
	if cfg.MaxAttempts < 1 {
		return fmt.Errorf("OTP max attempts must be at least 1")
	}
	switch cfg.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("OTP store must be: memory or redis")
	}
	return nil
}

func validateStorageConfig(cfg *StorageConfig) error {
	switch cfg.Driver {
	case "local":
		if cfg.LocalDir == "" {
			return fmt.Errorf("local storage directory is required")
		}
	case "s3":
		if cfg.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when STORAGE_DRIVER=s3")
		}
	default:
		return fmt.Errorf("unsupported storage driver: %s (supported: local, s3)", cfg.Driver)
	}
	return nil
}
