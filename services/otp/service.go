package otp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/drukhealth/ctgadmin/config"
	"github.com/drukhealth/ctgadmin/services/logging"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailRequired         = errors.New("email is required")
	ErrCodeRequired          = errors.New("otp code is required")
	ErrNotRequested          = errors.New("otp expired or not requested")
	ErrExpired               = errors.New("otp expired")
	ErrInvalidCode           = errors.New("invalid otp")
	ErrAlreadyVerified       = errors.New("otp already used")
	ErrTooManyAttempts       = errors.New("too many invalid otp attempts")
	ErrNotVerified           = errors.New("otp not verified")
	ErrVerificationExpired   = errors.New("otp verification expired")
	ErrCooldown              = errors.New("otp cooldown active")
	ErrCodeGenerationFailure = errors.New("failed to generate otp")
)

// CooldownError reports how long a caller must wait before another code can be issued.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("please wait %ds before requesting another OTP", e.Seconds())
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldown
}

// Seconds rounds the remaining wait up to whole seconds.
func (e *CooldownError) Seconds() int {
	return int(math.Ceil(e.Remaining.Seconds()))
}

// NormalizeEmail is the store key for an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type Service struct {
	config    config.OTPConfig
	store     Store
	generator Generator
	logger    *logging.Service
	now       func() time.Time

	mu       sync.Mutex
	stopChan chan struct{}
	doneChan chan struct{}
}

func NewService(cfg config.OTPConfig, store Store, logger *logging.Service) *Service {
	if cfg.HashCost < bcrypt.MinCost || cfg.HashCost > bcrypt.MaxCost {
		cfg.HashCost = bcrypt.DefaultCost
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.ResetWindow <= 0 {
		cfg.ResetWindow = 10 * time.Minute
	}

	return &Service{
		config:    cfg,
		store:     store,
		generator: HOTPGenerator{Digits: cfg.Length},
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) SetGenerator(g Generator) {
	s.generator = g
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) Expiry() time.Duration {
	return s.config.Expiry
}

// Issue creates a fresh code for email, replacing any previous one unless the cooldown is still running.
func (s *Service) Issue(ctx context.Context, email string) (string, error) {
	key := NormalizeEmail(email)
	if key == "" {
		return "", ErrEmailRequired
	}

	now := s.now()

	current, err := s.store.Get(ctx, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("failed to load otp entry: %w", err)
	}
	if current != nil && now.Before(current.CooldownUntil) {
		return "", s.cooldown(key, current.CooldownUntil.Sub(now))
	}

	code, err := s.generator.Generate()
	if err != nil {
		if s.logger != nil {
			s.logger.Error("otp generation failed", zap.Error(err))
		}
		return "", ErrCodeGenerationFailure
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.config.HashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash otp: %w", err)
	}

	err = s.store.Update(ctx, key, func(current *Entry) (*Entry, Mutation, error) {
		if current != nil && now.Before(current.CooldownUntil) {
			return nil, Keep, s.cooldown(key, current.CooldownUntil.Sub(now))
		}
		return &Entry{
			CodeHash:      string(hash),
			IssuedAt:      now,
			ExpiresAt:     now.Add(s.config.Expiry),
			CooldownUntil: now.Add(s.config.Cooldown),
		}, Replace, nil
	})
	if err != nil {
		return "", err
	}

	if s.logger != nil {
		s.logger.Info("otp issued", zap.String("email", key), zap.Duration("expires_in", s.config.Expiry))
	}
	return code, nil
}

func (s *Service) cooldown(key string, remaining time.Duration) error {
	if s.logger != nil {
		s.logger.Warn("otp requested during cooldown", zap.String("email", key), zap.Duration("remaining", remaining))
	}
	return &CooldownError{Remaining: remaining}
}

// Verify checks code against the pending entry. A match marks the entry verified and opens the reset window.
func (s *Service) Verify(ctx context.Context, email, code string) error {
	key := NormalizeEmail(email)
	if key == "" {
		return ErrEmailRequired
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrCodeRequired
	}

	now := s.now()

	err := s.store.Update(ctx, key, func(current *Entry) (*Entry, Mutation, error) {
		if current == nil {
			return nil, Keep, ErrNotRequested
		}
		if current.Verified {
			return nil, Keep, ErrAlreadyVerified
		}
		if !now.Before(current.ExpiresAt) {
			return nil, Remove, ErrExpired
		}

		if bcrypt.CompareHashAndPassword([]byte(current.CodeHash), []byte(code)) != nil {
			current.Attempts++
			if current.Attempts >= s.config.MaxAttempts {
				return nil, Remove, ErrTooManyAttempts
			}
			return current, Replace, ErrInvalidCode
		}

		current.Verified = true
		current.VerifiedAt = now
		current.ResetDeadline = now.Add(s.config.ResetWindow)
		current.CodeHash = ""
		return current, Replace, nil
	})

	if s.logger != nil {
		if err != nil {
			s.logger.Warn("otp verification failed", zap.String("email", key), zap.Error(err))
		} else {
			s.logger.Info("otp verified", zap.String("email", key))
		}
	}
	return err
}

// CheckVerified reports whether email holds a verified entry whose reset window is still open.
func (s *Service) CheckVerified(ctx context.Context, email string) error {
	key := NormalizeEmail(email)
	if key == "" {
		return ErrEmailRequired
	}

	current, err := s.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return ErrNotVerified
	}
	if err != nil {
		return fmt.Errorf("failed to load otp entry: %w", err)
	}
	if !current.Verified {
		return ErrNotVerified
	}
	if !s.now().Before(current.ResetDeadline) {
		return ErrVerificationExpired
	}
	return nil
}

// Consume deletes a verified entry. It is the only way a verification is spent.
func (s *Service) Consume(ctx context.Context, email string) error {
	key := NormalizeEmail(email)
	if key == "" {
		return ErrEmailRequired
	}

	now := s.now()

	err := s.store.Update(ctx, key, func(current *Entry) (*Entry, Mutation, error) {
		if current == nil || !current.Verified {
			return nil, Keep, ErrNotVerified
		}
		if !now.Before(current.ResetDeadline) {
			return nil, Remove, ErrVerificationExpired
		}
		return nil, Remove, nil
	})

	if err == nil && s.logger != nil {
		s.logger.Info("otp consumed", zap.String("email", key))
	}
	return err
}

// Discard drops whatever is stored for email, including an active cooldown.
func (s *Service) Discard(ctx context.Context, email string) error {
	key := NormalizeEmail(email)
	if key == "" {
		return ErrEmailRequired
	}
	return s.store.Delete(ctx, key)
}

func (s *Service) Sweep(ctx context.Context) (int, error) {
	removed, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep otp entries: %w", err)
	}
	return removed, nil
}
