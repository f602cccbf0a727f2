// internal/config/config_test.go
package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.True(t, cfg.Payment.DemoMode)
	assert.Equal(t, "UGX", cfg.Payment.Currency)
	assert.Equal(t, 100.0, cfg.Payment.CreditsRateUGX)
	assert.Equal(t, 72, cfg.Cart.TTLHours)

	free, ok := cfg.Commission.Tiers["free"]
	require.True(t, ok)
	assert.Equal(t, 10.0, free.Percent)
	assert.Equal(t, 500.0, free.MinimumFee)
}

func TestValidateProductionGuards(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Environment = "production"
	cfg.Database.Password = "secret"
	cfg.JWT.SecretKey = "a-real-secret"

	// Demo mode must never ship.
	cfg.Payment.DemoMode = true
	assert.Error(t, cfg.Validate())

	cfg.Payment.DemoMode = false
	assert.NoError(t, cfg.Validate())

	cfg.JWT.SecretKey = "your-secret-key-change-in-production"
	assert.Error(t, cfg.Validate())
}

func TestCommissionEnvOverride(t *testing.T) {
	t.Setenv("COMMISSION_PREMIUM_PERCENT", "4.5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4.5, cfg.Commission.Tiers["premium"].Percent)
}
