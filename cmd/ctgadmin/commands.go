package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	v1 "github.com/drukhealth/ctgadmin/api/v1"
	"github.com/drukhealth/ctgadmin/app"
	"github.com/drukhealth/ctgadmin/config"
	"github.com/drukhealth/ctgadmin/database"
	"github.com/drukhealth/ctgadmin/services/admins"
	"github.com/drukhealth/ctgadmin/services/auth"
	"github.com/drukhealth/ctgadmin/services/logging"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ctgadmin",
		Short: "Druk Health CTG admin backend",
		Long: `ctgadmin serves the admin API used by Druk Health staff to manage admin
accounts and CTG scan records. Configuration is read from the environment
and an optional .env file.`,
		SilenceUsage: true,
	}

	root.AddCommand(newServeCmd(), newSeedCmd(), newOpenAPICmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := app.NewApp().WithAutoConfig().Build()
			if err != nil {
				return err
			}
			return application.Run()
		},
	}
}

func newSeedCmd() *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "seed-superadmin",
		Short: "Create the super admin account if it does not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := &config.Config{}
			if err := config.LoadConfig(cfg); err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			applySeedFlags(cmd, &cfg.Bootstrap, name, email, password)
			if cfg.Bootstrap.SuperAdminEmail == "" {
				return fmt.Errorf("super admin email is required (--email or BOOTSTRAP_SUPERADMIN_EMAIL)")
			}
			return seedSuperAdmin(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name of the super admin")
	cmd.Flags().StringVar(&email, "email", "", "email of the super admin")
	cmd.Flags().StringVar(&password, "password", "", "initial password of the super admin")
	return cmd
}

// applySeedFlags lets explicitly set flags override the environment.
func applySeedFlags(cmd *cobra.Command, cfg *config.BootstrapConfig, name, email, password string) {
	if cmd.Flags().Changed("name") {
		cfg.SuperAdminName = name
	}
	if cmd.Flags().Changed("email") {
		cfg.SuperAdminEmail = email
	}
	if cmd.Flags().Changed("password") {
		cfg.SuperAdminPassword = password
	}
}

func seedSuperAdmin(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.NewService(logging.ConfigFrom(cfg))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.ProvideDatabase(*cfg, database.WithModels(app.Models...), logger)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	passwords := auth.NewPasswords(cfg.Auth, logger.Named("passwords"))
	adminService := admins.NewService(admins.NewRepository(db), passwords, logger.Named("admins"))

	return app.BootstrapSuperAdmin(ctx, cfg.Bootstrap, adminService, logger)
}

func newOpenAPICmd() *cobra.Command {
	var format, output, name string

	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Print the OpenAPI document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var out io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				out = f
			}
			return writeOpenAPI(cmd.Context(), out, name, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format: yaml or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	cmd.Flags().StringVar(&name, "app-name", "Druk Health", "application name used in the document title")
	return cmd
}

func writeOpenAPI(ctx context.Context, w io.Writer, name, format string) error {
	doc := v1.NewDocument(name)
	if err := doc.Validate(ctx); err != nil {
		return fmt.Errorf("invalid OpenAPI document: %w", err)
	}

	var (
		raw []byte
		err error
	)
	switch strings.ToLower(format) {
	case "yaml", "yml":
		raw, err = doc.YAML()
	case "json":
		raw, err = doc.JSON()
	default:
		return fmt.Errorf("unsupported format %q (use yaml or json)", format)
	}
	if err != nil {
		return err
	}

	_, err = w.Write(raw)
	return err
}
