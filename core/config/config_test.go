package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/keyfeed/core/config"
)

type cachedConfig struct {
	Name string `env:"CONFIG_TEST_CACHED_NAME" envDefault:"first"`
}

type defaultsConfig struct {
	Limit    int           `env:"CONFIG_TEST_LIMIT" envDefault:"10"`
	Interval time.Duration `env:"CONFIG_TEST_INTERVAL" envDefault:"15s"`
	Policy   string        `env:"CONFIG_TEST_POLICY" envDefault:"drop_oldest"`
}

type requiredConfig struct {
	Secret string `env:"CONFIG_TEST_REQUIRED_SECRET,required"`
}

type parsedConfig struct {
	Value string `env:"CONFIG_TEST_PARSED_VALUE"`
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var cfg defaultsConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, 10, cfg.Limit)
		assert.Equal(t, 15*time.Second, cfg.Interval)
		assert.Equal(t, "drop_oldest", cfg.Policy)
	})

	t.Run("cached per type", func(t *testing.T) {
		t.Setenv("CONFIG_TEST_CACHED_NAME", "first")
		var first cachedConfig
		require.NoError(t, config.Load(&first))

		t.Setenv("CONFIG_TEST_CACHED_NAME", "second")
		var second cachedConfig
		require.NoError(t, config.Load(&second))

		assert.Equal(t, "first", first.Name)
		assert.Equal(t, first, second)
	})

	t.Run("missing required", func(t *testing.T) {
		var cfg requiredConfig
		err := config.Load(&cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil target", func(t *testing.T) {
		err := config.Load[defaultsConfig](nil)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})
}

func TestMustLoad(t *testing.T) {
	assert.Panics(t, func() {
		var cfg requiredConfig
		config.MustLoad(&cfg)
	})
}

func TestParse(t *testing.T) {
	t.Setenv("CONFIG_TEST_PARSED_VALUE", "a")
	var cfg parsedConfig
	require.NoError(t, config.Parse(&cfg))
	assert.Equal(t, "a", cfg.Value)

	t.Setenv("CONFIG_TEST_PARSED_VALUE", "b")
	require.NoError(t, config.Parse(&cfg))
	assert.Equal(t, "b", cfg.Value)
}
