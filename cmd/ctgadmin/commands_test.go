package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/drukhealth/ctgadmin/config"
	"github.com/drukhealth/ctgadmin/services/admins"
	"github.com/drukhealth/ctgadmin/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "seed-superadmin", "openapi"}, names)
}

func TestOpenAPICmd(t *testing.T) {
	t.Run("yaml to stdout", func(t *testing.T) {
		root := newRootCmd()
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetArgs([]string{"openapi"})

		require.NoError(t, root.Execute())
		assert.Contains(t, out.String(), "openapi: 3.")
		assert.Contains(t, out.String(), "/postCTG")
	})

	t.Run("json to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "openapi.json")
		root := newRootCmd()
		root.SetArgs([]string{"openapi", "--format", "json", "--output", path, "--app-name", "Test"})

		require.NoError(t, root.Execute())

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		var doc map[string]any
		require.NoError(t, json.Unmarshal(raw, &doc))
		assert.Equal(t, "Test CTG Admin API", doc["info"].(map[string]any)["title"])
	})

	t.Run("unknown format", func(t *testing.T) {
		root := newRootCmd()
		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})
		root.SetArgs([]string{"openapi", "--format", "toml"})

		err := root.Execute()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported format")
	})
}

func TestApplySeedFlags(t *testing.T) {
	cmd := newSeedCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--email", "flag@drukhealth.bt"}))

	cfg := config.BootstrapConfig{
		SuperAdminName:     "From Env",
		SuperAdminEmail:    "env@drukhealth.bt",
		SuperAdminPassword: "env-pass1",
	}
	applySeedFlags(cmd, &cfg, "", "flag@drukhealth.bt", "")

	assert.Equal(t, "flag@drukhealth.bt", cfg.SuperAdminEmail)
	assert.Equal(t, "From Env", cfg.SuperAdminName)
	assert.Equal(t, "env-pass1", cfg.SuperAdminPassword)
}

func TestSeedSuperAdmin(t *testing.T) {
	cfg := testutils.GetTestConfig()
	cfg.Log.Level = "error"
	cfg.Database.DSN = filepath.Join(t.TempDir(), "seed.db")
	cfg.Bootstrap = config.BootstrapConfig{
		SuperAdminName:     "Karma Dorji",
		SuperAdminEmail:    "Super@DrukHealth.bt",
		SuperAdminPassword: "super-pass1",
	}

	require.NoError(t, seedSuperAdmin(t.Context(), cfg))
	require.NoError(t, seedSuperAdmin(t.Context(), cfg))

	db, err := gorm.Open(sqlite.Open(cfg.Database.DSN), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	var list []admins.Admin
	require.NoError(t, db.Find(&list).Error)
	require.Len(t, list, 1)
	assert.Equal(t, "super@drukhealth.bt", list[0].Email)
	assert.Equal(t, admins.RoleSuperAdmin, list[0].Role)
}
