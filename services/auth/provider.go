package auth

import (
	"github.com/drukhealth/ctgadmin/config"
	"github.com/drukhealth/ctgadmin/services/admins"
	jwtservice "github.com/drukhealth/ctgadmin/services/jwt"
	"github.com/drukhealth/ctgadmin/services/logging"
	"github.com/drukhealth/ctgadmin/services/mail"
	"github.com/drukhealth/ctgadmin/services/otp"
	"go.uber.org/fx"
)

func ProvidePasswords(cfg *config.Config, logger *logging.Service) *Passwords {
	return NewPasswords(cfg.Auth, logger.Named("passwords"))
}

func ProvideAuthService(cfg *config.Config, passwords *Passwords, adminService *admins.Service, otpService *otp.Service, tokens *jwtservice.Service, mailer *mail.Service, logger *logging.Service) *Service {
	return NewService(cfg, passwords, adminService, otpService, tokens, mailer, logger.Named("auth"))
}

var Module = fx.Options(
	fx.Provide(ProvidePasswords),
	fx.Provide(func(p *Passwords) admins.PasswordHasher { return p }),
	fx.Provide(ProvideAuthService),
)
