package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BILLING_TIMEZONE", "")
	t.Setenv("APP_PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "restaurant-billing", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 8, cfg.Auth.PasswordMinLength)
	assert.Equal(t, "America/Sao_Paulo", cfg.Billing.Timezone)
	assert.Equal(t, 10, cfg.Billing.DefaultDueDay)
	assert.True(t, cfg.Billing.DefaultMonthlyAmount.IsZero())
	assert.Equal(t, time.Minute, cfg.Scheduler.CheckInterval())
	assert.Equal(t, 25*time.Hour, cfg.Scheduler.LockTTL())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BILLING_TIMEZONE", "UTC")
	t.Setenv("BILLING_DEFAULT_MONTHLY_AMOUNT", "199.90")
	t.Setenv("SCHEDULER_GENERATION_ENABLED", "true")
	t.Setenv("SCHEDULER_CHECK_INTERVAL_SECONDS", "5")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "0")
	t.Setenv("NOTIFY_WEBHOOK_URL", "https://hooks.example.com/billing")
	t.Setenv("NOTIFY_WEBHOOK_TIMEOUT_SECONDS", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Billing.DefaultMonthlyAmount.Equal(decimal.RequireFromString("199.90")))
	assert.Equal(t, time.UTC, cfg.Billing.Location())
	assert.True(t, cfg.Scheduler.GenerationEnabled)
	assert.Equal(t, 5*time.Second, cfg.Scheduler.CheckInterval())
	assert.Zero(t, cfg.App.RequestTimeout())
	assert.Equal(t, "https://hooks.example.com/billing", cfg.Notification.WebhookURL)
	assert.Equal(t, 2, cfg.Notification.WebhookTimeoutSeconds)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Run("timezone", func(t *testing.T) {
		t.Setenv("BILLING_TIMEZONE", "Mars/Olympus")
		_, err := Load()
		assert.ErrorContains(t, err, "BILLING_TIMEZONE")
	})
	t.Run("amount", func(t *testing.T) {
		t.Setenv("BILLING_DEFAULT_MONTHLY_AMOUNT", "lots")
		_, err := Load()
		assert.ErrorContains(t, err, "BILLING_DEFAULT_MONTHLY_AMOUNT")
	})
	t.Run("redis db", func(t *testing.T) {
		t.Setenv("REDIS_DB", "primary")
		_, err := Load()
		assert.ErrorContains(t, err, "REDIS_DB")
	})
}

func TestGetEnvAsIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("SOME_INT", "ten")
	assert.Equal(t, 3, getEnvAsInt("SOME_INT", 3))
	t.Setenv("SOME_BOOL", "maybe")
	assert.True(t, getEnvAsBool("SOME_BOOL", true))
}
