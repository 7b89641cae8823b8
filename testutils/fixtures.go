package testutils

import (
	"time"

	"github.com/drukhealth/ctgadmin/config"
	"golang.org/x/crypto/bcrypt"
)

func GetTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:     "Druk Health",
			URL:      "http://localhost:8080",
			Timezone: "UTC",
		},
		Server: config.ServerConfig{
			Host:            "localhost",
			Port:            "8080",
			ShutdownTimeout: 5 * time.Second,
		},
		Log: config.LogConfig{
			Level:  "debug",
			Format: "console",
			Output: "stdout",
		},
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			DSN:         ":memory:",
			AutoMigrate: true,
		},
		Auth: config.AuthConfig{
			MinLength:  6,
			BcryptCost: bcrypt.MinCost,
		},
		JWT: config.JWTConfig{
			SecretKey:    "test-secret-key-32-chars-long!!",
			Algorithm:    "HS256",
			AccessExpiry: 15 * time.Minute,
			Issuer:       "test-issuer",
		},
		OTP: config.OTPConfig{
			Length:        6,
			Expiry:        5 * time.Minute,
			Cooldown:      60 * time.Second,
			MaxAttempts:   3,
			ResetWindow:   10 * time.Minute,
			SweepInterval: time.Minute,
			Store:         "memory",
			HashCost:      bcrypt.MinCost,
		},
		Redis: config.RedisConfig{
			Prefix: "ctgadmin-test:",
		},
		Mail: config.MailConfig{
			Enabled:     false,
			FromAddress: "no-reply@drukhealth.bt",
			FromName:    "Druk Health",
		},
		Storage: config.StorageConfig{
			Driver:        "local",
			LocalDir:      "uploads",
			PublicBaseURL: "http://localhost:8080/uploads",
			KeyPrefix:     "ctg_scans/",
		},
		Upload: config.UploadConfig{
			MaxSize:      1 << 20,
			AllowedTypes: []string{"image/jpeg", "image/png"},
			FieldName:    "ctgImage",
		},
		RateLimit: config.RateLimitConfig{
			Store:                "memory",
			LoginRate:            100,
			LoginPeriod:          time.Minute,
			LoginCountMode:       config.CountFailures,
			ForgotPasswordRate:   100,
			ForgotPasswordPeriod: time.Minute,
			VerifyOTPRate:        100,
			VerifyOTPPeriod:      time.Minute,
		},
		CORS: config.CORSConfig{
			AllowOrigins: []string{"http://localhost:5173"},
		},
	}
}

var TestPasswords = struct {
	Valid    string
	Another  string
	TooShort string
}{
	Valid:    "ctg-pass1",
	Another:  "ctg-pass2",
	TooShort: "abc",
}

var TestAdmins = struct {
	SuperAdmin struct {
		Name     string
		Email    string
		Password string
	}
	Admin struct {
		Name     string
		Email    string
		Password string
	}
}{
	SuperAdmin: struct {
		Name     string
		Email    string
		Password string
	}{
		Name:     "Karma Dorji",
		Email:    "super@drukhealth.bt",
		Password: "super-pass1",
	},
	Admin: struct {
		Name     string
		Email    string
		Password string
	}{
		Name:     "Pema Choden",
		Email:    "pema@drukhealth.bt",
		Password: "pema-pass1",
	},
}

// PNGHeader is the smallest prefix http.DetectContentType reports as image/png.
var PNGHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

// JPEGHeader is the smallest prefix http.DetectContentType reports as image/jpeg.
var JPEGHeader = []byte{0xff, 0xd8, 0xff, 0xe0, 0, 0x10, 'J', 'F', 'I', 'F', 0}
