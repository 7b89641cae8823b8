package app

import (
	"testing"

	"github.com/drukhealth/ctgadmin/services/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestNewApp(t *testing.T) {
	builder := NewApp()

	assert.NotNil(t, builder)
	assert.NotNil(t, builder.fxOptions)
	assert.NotNil(t, builder.errors)
	assert.Empty(t, builder.fxOptions)
	assert.Empty(t, builder.errors)
	assert.True(t, builder.bootstrap)
	assert.Nil(t, builder.config)
	assert.Nil(t, builder.logger)
}

func TestAppBuilder_WithConfig(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := createTestConfig(t)
		builder := NewApp()

		result := builder.WithConfig(cfg)

		assert.Equal(t, builder, result)
		assert.Equal(t, cfg, builder.config)
	})

	t.Run("nil config", func(t *testing.T) {
		builder := NewApp()

		result := builder.WithConfig(nil)

		assert.Equal(t, builder, result)
		assert.Nil(t, builder.config)
		assert.Len(t, builder.errors, 1)
		assert.Contains(t, builder.errors[0].Error(), "config cannot be nil")
	})
}

func TestAppBuilder_WithLogger(t *testing.T) {
	builder := NewApp().WithLogger(nil)
	assert.Len(t, builder.errors, 1)

	logger := logging.NewNop()
	builder = NewApp().WithLogger(logger)
	assert.Same(t, logger, builder.logger)
}

func TestAppBuilder_WithoutBootstrap(t *testing.T) {
	builder := NewApp()

	result := builder.WithoutBootstrap()

	assert.Equal(t, builder, result)
	assert.False(t, builder.bootstrap)
}

func TestAppBuilder_WithFxOptions(t *testing.T) {
	builder := NewApp()
	opt1 := fx.Provide(func() string { return "test" })
	opt2 := fx.Provide(func() int { return 42 })

	builder.WithFxOptions(opt1).WithFxOptions(opt2)

	assert.Len(t, builder.fxOptions, 2)
}

func TestAppBuilder_Build(t *testing.T) {
	t.Run("builder errors", func(t *testing.T) {
		_, err := NewApp().WithConfig(nil).Build()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration errors")
	})

	t.Run("wiring errors", func(t *testing.T) {
		cfg := createTestConfig(t)
		cfg.Database.Driver = "oracle"

		_, err := NewApp().WithConfig(cfg).WithLogger(logging.NewNop()).Build()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to wire application")
		assert.Contains(t, err.Error(), "unsupported database driver")
	})

	t.Run("redis store without redis", func(t *testing.T) {
		cfg := createTestConfig(t)
		cfg.OTP.Store = "redis"
		cfg.Redis.Addr = "127.0.0.1:1"

		_, err := NewApp().WithConfig(cfg).WithLogger(logging.NewNop()).Build()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis")
	})

	t.Run("extra options are applied", func(t *testing.T) {
		var invoked bool
		cfg := createTestConfig(t)

		app, err := NewApp().
			WithConfig(cfg).
			WithLogger(logging.NewNop()).
			WithFxOptions(fx.Invoke(func() { invoked = true })).
			Build()

		require.NoError(t, err)
		assert.NotNil(t, app)
		assert.True(t, invoked)
		assert.NotNil(t, app.DB())
		assert.NotNil(t, app.HTTPServer())
		assert.NotNil(t, app.Admins())
	})
}
