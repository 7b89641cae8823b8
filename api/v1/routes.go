package v1

import (
	"github.com/drukhealth/ctgadmin/apidoc"
	"github.com/drukhealth/ctgadmin/config"
	mwjwt "github.com/drukhealth/ctgadmin/middleware/jwt"
	"github.com/drukhealth/ctgadmin/middleware/jwtshared"
	"github.com/drukhealth/ctgadmin/middleware/ratelimit"
	"github.com/drukhealth/ctgadmin/middleware/roles"
	"github.com/drukhealth/ctgadmin/server"
	"github.com/drukhealth/ctgadmin/services/admins"
	"github.com/drukhealth/ctgadmin/services/auth"
	jwtservice "github.com/drukhealth/ctgadmin/services/jwt"
	"github.com/drukhealth/ctgadmin/services/logging"
	"github.com/drukhealth/ctgadmin/services/scanfeed"
	"github.com/drukhealth/ctgadmin/services/scans"
	"github.com/drukhealth/ctgadmin/services/storage"
	"gorm.io/gorm"
)

const BasePath = "/api"

// TokenQueryParam carries the token for EventSource clients.
const TokenQueryParam = "token"

type Dependencies struct {
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

func RegisterRoutes(srv *server.Server, deps Dependencies) {
	cfg := deps.Config
	limits := cfg.RateLimit

	authHandler := NewAuthHandler(deps.Auth)
	adminHandler := NewAdminHandler(deps.Admins)
	scanHandler := NewScanHandler(cfg, deps.Scans, deps.Feed, deps.Logger)
	healthHandler := NewHealthHandler(deps.DB, deps.Logger)

	requireJWT := mwjwt.RequireJWT(deps.Tokens)
	streamJWT := mwjwt.RequireJWTWithConfig(mwjwt.Config{Service: deps.Tokens, QueryParam: TokenQueryParam})
	loadAdmin := jwtshared.Middleware(deps.Admins)
	superAdmin := roles.RequireSuperAdmin()

	loginLimit := ratelimit.Middleware(&ratelimit.Config{
		Store:     deps.RateLimitStore,
		Name:      "login",
		Rate:      limits.LoginRate,
		Period:    limits.LoginPeriod,
		CountMode: limits.LoginCountMode,
		Logger:    deps.Logger,
	})
	forgotLimit := ratelimit.Middleware(&ratelimit.Config{
		Store:     deps.RateLimitStore,
		Name:      "forgot-password",
		Rate:      limits.ForgotPasswordRate,
		Period:    limits.ForgotPasswordPeriod,
		CountMode: config.CountAll,
		Logger:    deps.Logger,
	})
	verifyLimit := ratelimit.Middleware(&ratelimit.Config{
		Store:     deps.RateLimitStore,
		Name:      "verify-otp",
		Rate:      limits.VerifyOTPRate,
		Period:    limits.VerifyOTPPeriod,
		CountMode: config.CountFailures,
		Logger:    deps.Logger,
	})

	api := srv.Group(BasePath)

	api.GET("/health", healthHandler.Check)
	if deps.Doc != nil {
		api.GET("/docs/openapi.json", deps.Doc.JSONHandler())
		api.GET("/docs/openapi.yaml", deps.Doc.YAMLHandler())
	}

	authGroup := api.Group("/auth")
	authGroup.POST("/login", authHandler.Login, loginLimit)
	authGroup.POST("/forgot-password", authHandler.ForgotPassword, forgotLimit)
	authGroup.POST("/verify-otp", authHandler.VerifyOTP, verifyLimit)
	authGroup.POST("/reset-password", authHandler.ResetPassword)
	authGroup.POST("/change-password", authHandler.ChangePassword, requireJWT, loadAdmin)
	authGroup.GET("/me", authHandler.Me, requireJWT, loadAdmin)

	adminGroup := api.Group("/admins", requireJWT, loadAdmin, superAdmin)
	adminGroup.GET("", adminHandler.List)
	adminGroup.POST("", adminHandler.Create)
	adminGroup.GET("/:id", adminHandler.Get)
	adminGroup.PUT("/:id", adminHandler.Update)
	adminGroup.DELETE("/:id", adminHandler.Delete)

	api.POST("/postCTG", scanHandler.Upload, requireJWT, loadAdmin)
	api.GET("/scans", scanHandler.List, requireJWT, loadAdmin)
	api.GET("/scans/stats", scanHandler.Stats, requireJWT, loadAdmin)
	api.GET("/scans/stream", scanHandler.Stream, streamJWT, loadAdmin)
	api.GET("/scans/:id", scanHandler.Get, requireJWT, loadAdmin)
	api.PUT("/scans/:id", scanHandler.Update, requireJWT, loadAdmin)
	api.DELETE("/scans/:id", scanHandler.Delete, requireJWT, loadAdmin)

	if cfg.Storage.Driver == "local" {
		srv.Static(storage.UploadsPath, cfg.Storage.LocalDir)
	}
}
