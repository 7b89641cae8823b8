package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/drukhealth/ctgadmin/config"
	"github.com/drukhealth/ctgadmin/services/logging"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var ErrWeakPassword = errors.New("password does not meet policy")

// PolicyError carries the human readable reason a password was refused.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string {
	return e.Reason
}

func (e *PolicyError) Is(target error) bool {
	return target == ErrWeakPassword
}

type Passwords struct {
	config config.AuthConfig
	logger *logging.Service
}

func NewPasswords(cfg config.AuthConfig, logger *logging.Service) *Passwords {
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Passwords{config: cfg, logger: logger}
}

func (p *Passwords) ValidatePassword(password string) error {
	if len(password) < p.config.MinLength {
		if p.logger != nil {
			p.logger.Debug("password validation failed: insufficient length",
				zap.Int("length", len(password)),
				zap.Int("min_required", p.config.MinLength))
		}
		return &PolicyError{Reason: fmt.Sprintf("password must be at least %d characters", p.config.MinLength)}
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	var missing []string
	if p.config.RequireUpper && !hasUpper {
		missing = append(missing, "one uppercase letter")
	}
	if p.config.RequireLower && !hasLower {
		missing = append(missing, "one lowercase letter")
	}
	if p.config.RequireNumber && !hasNumber {
		missing = append(missing, "one number")
	}
	if p.config.RequireSpecial && !hasSpecial {
		missing = append(missing, "one special character")
	}

	if len(missing) > 0 {
		if p.logger != nil {
			p.logger.Debug("password validation failed: missing requirements",
				zap.Strings("missing_requirements", missing))
		}
		return &PolicyError{Reason: fmt.Sprintf("password must contain at least %s", strings.Join(missing, ", "))}
	}

	return nil
}

func (p *Passwords) HashPassword(password string) (string, error) {
	if err := p.ValidatePassword(password); err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.config.BcryptCost)
	if err != nil {
		if p.logger != nil {
			p.logger.Error("password hashing failed", zap.Error(err))
		}
		return "", ErrPasswordHashingFailed
	}
	return string(hash), nil
}

func (p *Passwords) VerifyPassword(hashedPassword, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
