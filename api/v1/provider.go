package v1

import (
	"github.com/drukhealth/ctgadmin/apidoc"
	"github.com/drukhealth/ctgadmin/config"
	"github.com/drukhealth/ctgadmin/middleware/ratelimit"
	"github.com/drukhealth/ctgadmin/server"
	"github.com/drukhealth/ctgadmin/services/admins"
	"github.com/drukhealth/ctgadmin/services/auth"
	jwtservice "github.com/drukhealth/ctgadmin/services/jwt"
	"github.com/drukhealth/ctgadmin/services/logging"
	"github.com/drukhealth/ctgadmin/services/scanfeed"
	"github.com/drukhealth/ctgadmin/services/scans"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type routeParams struct {
	fx.In

	Server         *server.Server
	Config         *config.Config
	Auth           *auth.Service
	Admins         *admins.Service
	Scans          *scans.Service
	Feed           *scanfeed.Hub
	Tokens         *jwtservice.Service
	RateLimitStore ratelimit.Store
	DB             *gorm.DB
	Doc            *apidoc.Document
	Logger         *logging.Service
}

func ProvideDocument(cfg *config.Config) *apidoc.Document {
	return NewDocument(cfg.App.Name)
}

func registerRoutes(p routeParams) {
	RegisterRoutes(p.Server, Dependencies{
		Config:         p.Config,
		Auth:           p.Auth,
		Admins:         p.Admins,
		Scans:          p.Scans,
		Feed:           p.Feed,
		Tokens:         p.Tokens,
		RateLimitStore: p.RateLimitStore,
		DB:             p.DB,
		Doc:            p.Doc,
		Logger:         p.Logger.Named("api"),
	})
}

var Module = fx.Options(
	fx.Provide(ProvideDocument),
	fx.Invoke(registerRoutes),
)
