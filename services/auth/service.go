package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/drukhealth/ctgadmin/config"
	"github.com/drukhealth/ctgadmin/services/admins"
	jwtservice "github.com/drukhealth/ctgadmin/services/jwt"
	"github.com/drukhealth/ctgadmin/services/logging"
	"github.com/drukhealth/ctgadmin/services/otp"
	"go.uber.org/zap"
)

var (
	ErrPasswordHashingFailed      = errors.New("failed to hash password")
	ErrInvalidCredentials         = errors.New("invalid credentials")
	ErrMissingCredentials         = errors.New("email and password are required")
	ErrEmailRequired              = errors.New("email is required")
	ErrAdminNotFound              = errors.New("no admin found with this email")
	ErrOTPDelivery                = errors.New("failed to send otp")
	ErrEmailAndOTPRequired        = errors.New("email and otp are required")
	ErrEmailAndPasswordRequired   = errors.New("email and new password are required")
	ErrOldAndNewPasswordRequired  = errors.New("old and new password are required")
	ErrOldPasswordIncorrect       = errors.New("old password incorrect")
	ErrTokenGenerationFailed      = errors.New("failed to generate access token")
	ErrPasswordResetNotAuthorized = errors.New("otp verification required before reset")
)

const (
	otpTemplate             = "otp_code"
	otpSubject              = "Your OTP Code - Druk Health"
	passwordChangedTemplate = "password_changed"
	passwordChangedSubject  = "Your password was changed - Druk Health"
)

type MailSender interface {
	SendTemplate(ctx context.Context, templateName string, to []string, subject string, data map[string]any) error
}

type LoginResult struct {
	Token     string         `json:"token"`
	ExpiresIn int            `json:"expiresIn"`
	Admin     admins.Profile `json:"data"`
}

type Service struct {
	config    *config.Config
	passwords *Passwords
	admins    *admins.Service
	otp       *otp.Service
	tokens    *jwtservice.Service
	mailer    MailSender
	logger    *logging.Service
}

func NewService(cfg *config.Config, passwords *Passwords, adminService *admins.Service, otpService *otp.Service, tokens *jwtservice.Service, mailer MailSender, logger *logging.Service) *Service {
	return &Service{
		config:    cfg,
		passwords: passwords,
		admins:    adminService,
		otp:       otpService,
		tokens:    tokens,
		mailer:    mailer,
		logger:    logger,
	}
}

func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = otp.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	admin, err := s.admins.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, admins.ErrNotFound) {
			if s.logger != nil {
				s.logger.Warn("login failed: unknown email", zap.String("email", email))
			}
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.passwords.VerifyPassword(admin.PasswordHash, password); err != nil {
		if s.logger != nil {
			s.logger.Warn("login failed: wrong password", zap.Uint("admin_id", admin.ID))
		}
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(jwtservice.Subject{
		ID:    admin.ID,
		Email: admin.Email,
		Role:  admin.Role,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenGenerationFailed, err)
	}

	if s.logger != nil {
		s.logger.Info("admin logged in", zap.Uint("admin_id", admin.ID), zap.String("role", admin.Role))
	}

	return &LoginResult{
		Token:     token,
		ExpiresIn: s.tokens.AccessExpirySeconds(),
		Admin:     admin.Profile(),
	}, nil
}

func (s *Service) Me(ctx context.Context, adminID uint) (*admins.Admin, error) {
	admin, err := s.admins.Get(ctx, adminID)
	if errors.Is(err, admins.ErrNotFound) {
		return nil, ErrAdminNotFound
	}
	return admin, err
}

// ForgotPassword issues a fresh code and mails it. A code that could not be
// delivered is discarded so the cooldown does not block a retry.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = otp.NormalizeEmail(email)
	if email == "" {
		return ErrEmailRequired
	}

	admin, err := s.admins.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, admins.ErrNotFound) {
			return ErrAdminNotFound
		}
		return err
	}

	code, err := s.otp.Issue(ctx, email)
	if err != nil {
		return err
	}

	err = s.mailer.SendTemplate(ctx, otpTemplate, []string{admin.Email}, otpSubject, map[string]any{
		"Name":          displayName(admin),
		"Code":          code,
		"ExpiryMinutes": int(s.otp.Expiry().Round(time.Minute) / time.Minute),
	})
	if err != nil {
		if discardErr := s.otp.Discard(ctx, email); discardErr != nil && s.logger != nil {
			s.logger.Error("failed to discard undelivered otp", zap.Error(discardErr))
		}
		if s.logger != nil {
			s.logger.Error("otp delivery failed", zap.Uint("admin_id", admin.ID), zap.Error(err))
		}
		return fmt.Errorf("%w: %v", ErrOTPDelivery, err)
	}

	if s.logger != nil {
		s.logger.Info("password reset otp sent", zap.Uint("admin_id", admin.ID))
	}
	return nil
}

func (s *Service) VerifyOTP(ctx context.Context, email, code string) error {
	email = otp.NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return ErrEmailAndOTPRequired
	}
	return s.otp.Verify(ctx, email, code)
}

// ResetPassword sets a new password for an address whose code was verified.
// The verification is consumed only once the new password is stored.
func (s *Service) ResetPassword(ctx context.Context, email, newPassword string) error {
	email = otp.NormalizeEmail(email)
	if email == "" || newPassword == "" {
		return ErrEmailAndPasswordRequired
	}

	if err := s.otp.CheckVerified(ctx, email); err != nil {
		if errors.Is(err, otp.ErrNotVerified) || errors.Is(err, otp.ErrVerificationExpired) {
			return fmt.Errorf("%w: %v", ErrPasswordResetNotAuthorized, err)
		}
		return err
	}

	if err := s.passwords.ValidatePassword(newPassword); err != nil {
		return err
	}

	admin, err := s.admins.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, admins.ErrNotFound) {
			return ErrAdminNotFound
		}
		return err
	}

	if err := s.admins.SetPassword(ctx, admin.ID, newPassword); err != nil {
		return err
	}

	if err := s.otp.Consume(ctx, email); err != nil && s.logger != nil {
		s.logger.Warn("failed to consume otp after reset", zap.Uint("admin_id", admin.ID), zap.Error(err))
	}

	if s.logger != nil {
		s.logger.Info("password reset completed", zap.Uint("admin_id", admin.ID))
	}
	s.notifyPasswordChanged(ctx, admin)
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, adminID uint, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return ErrOldAndNewPasswordRequired
	}

	admin, err := s.admins.Get(ctx, adminID)
	if err != nil {
		if errors.Is(err, admins.ErrNotFound) {
			return ErrAdminNotFound
		}
		return err
	}

	if err := s.passwords.VerifyPassword(admin.PasswordHash, oldPassword); err != nil {
		return ErrOldPasswordIncorrect
	}

	if err := s.admins.SetPassword(ctx, admin.ID, newPassword); err != nil {
		return err
	}

	s.notifyPasswordChanged(ctx, admin)
	return nil
}

func (s *Service) notifyPasswordChanged(ctx context.Context, admin *admins.Admin) {
	err := s.mailer.SendTemplate(ctx, passwordChangedTemplate, []string{admin.Email}, passwordChangedSubject, map[string]any{
		"Name":      displayName(admin),
		"ChangedAt": time.Now().UTC().Format("2006-01-02 15:04 MST"),
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("password change notice not delivered", zap.Uint("admin_id", admin.ID), zap.Error(err))
	}
}

func displayName(admin *admins.Admin) string {
	if admin.Name != "" {
		return admin.Name
	}
	return admin.Email
}
