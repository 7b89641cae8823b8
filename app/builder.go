package app

import (
	"fmt"

	v1 "github.com/drukhealth/ctgadmin/api/v1"
	"github.com/drukhealth/ctgadmin/config"
	"github.com/drukhealth/ctgadmin/database"
	"github.com/drukhealth/ctgadmin/middleware/ratelimit"
	"github.com/drukhealth/ctgadmin/server"
	"github.com/drukhealth/ctgadmin/services/admins"
	"github.com/drukhealth/ctgadmin/services/auth"
	jwtservice "github.com/drukhealth/ctgadmin/services/jwt"
	"github.com/drukhealth/ctgadmin/services/logging"
	"github.com/drukhealth/ctgadmin/services/mail"
	"github.com/drukhealth/ctgadmin/services/otp"
	"github.com/drukhealth/ctgadmin/services/scanfeed"
	"github.com/drukhealth/ctgadmin/services/scans"
	"github.com/drukhealth/ctgadmin/services/storage"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Models are migrated on startup when auto-migration is enabled.
var Models = []any{&admins.Admin{}, &scans.Scan{}}

type AppBuilder struct {
	config    *config.Config
	logger    *logging.Service
	fxOptions []fx.Option
	bootstrap bool
	errors    []error
}

func NewApp() *AppBuilder {
	return &AppBuilder{
		fxOptions: make([]fx.Option, 0),
		bootstrap: true,
		errors:    make([]error, 0),
	}
}

func (b *AppBuilder) WithConfig(cfg *config.Config) *AppBuilder {
	if cfg == nil {
		b.addError("config cannot be nil")
		return b
	}
	b.config = cfg
	return b
}

func (b *AppBuilder) WithAutoConfig() *AppBuilder {
	cfg := &config.Config{}
	if err := config.LoadConfig(cfg); err != nil {
		b.addError(fmt.Sprintf("failed to load config: %v", err))
		return b
	}
	b.config = cfg
	return b
}

// WithLogger replaces the logger built from the log config.
func (b *AppBuilder) WithLogger(logger *logging.Service) *AppBuilder {
	if logger == nil {
		b.addError("logger cannot be nil")
		return b
	}
	b.logger = logger
	return b
}

// WithoutBootstrap skips creating the configured super admin on start.
func (b *AppBuilder) WithoutBootstrap() *AppBuilder {
	b.bootstrap = false
	return b
}

func (b *AppBuilder) WithFxOptions(opts ...fx.Option) *AppBuilder {
	b.fxOptions = append(b.fxOptions, opts...)
	return b
}

func (b *AppBuilder) Build() (*App, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	if b.config == nil {
		if err := b.WithAutoConfig().validate(); err != nil {
			return nil, err
		}
	}

	logger := b.logger
	if logger == nil {
		var err error
		logger, err = b.createLogger()
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	app := &App{
		config: b.config,
		logger: logger,
	}

	options := b.buildFxOptions(logger)
	options = append(options, fx.Populate(&app.db, &app.server, &app.admins))

	app.fx = fx.New(options...)
	if err := app.fx.Err(); err != nil {
		return nil, fmt.Errorf("failed to wire application: %w", err)
	}

	return app, nil
}

func (b *AppBuilder) addError(msg string) {
	b.errors = append(b.errors, fmt.Errorf("%s", msg))
}

func (b *AppBuilder) validate() error {
	if len(b.errors) > 0 {
		return fmt.Errorf("configuration errors: %v", b.errors)
	}
	return nil
}

func (b *AppBuilder) createLogger() (*logging.Service, error) {
	if b.config == nil {
		return nil, fmt.Errorf("config required for logger creation")
	}
	return logging.NewService(logging.ConfigFrom(b.config))
}

func (b *AppBuilder) buildFxOptions(logger *logging.Service) []fx.Option {
	options := []fx.Option{
		config.NewProvider(b.config),
		fx.Supply(logger),
		fx.Supply(database.WithModels(Models...)),
		fx.NopLogger,
		database.Module,
	}

	if database.RedisRequired(b.config) {
		options = append(options, database.RedisModule)
	}

	options = append(options,
		mail.Module,
		jwtservice.Module,
		otp.Module,
		admins.Module,
		auth.Module,
		storage.Module,
		scanfeed.Module,
		scans.Module,
		ratelimit.Module,
		fx.Invoke(closeDatabaseOnStop),
	)

	// registered before the server: start hooks run in order, stop hooks in reverse
	if b.bootstrap {
		options = append(options, fx.Invoke(registerBootstrap))
	}

	options = append(options,
		server.NewProvider(),
		v1.Module,
	)

	return append(options, b.fxOptions...)
}

func closeDatabaseOnStop(lc fx.Lifecycle, db *gorm.DB) {
	lc.Append(fx.StopHook(func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}))
}
