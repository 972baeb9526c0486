package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_HOST", "SPEND_REQUEST_TTL", "TASK_XP", "TX_MAX_RETRIES"} {
		t.Setenv(key, "")
	}
	t.Setenv("SPEND_REQUEST_TTL", "bogus")
	t.Setenv("PORT", "9000")
	t.Setenv("TASK_XP", "25")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 72*time.Hour, cfg.SpendRequestTTL)
	assert.Equal(t, int64(25), cfg.TaskXP)
	assert.False(t, cfg.UseDatabase())
	assert.Equal(t, "disable", cfg.DBSSLMode)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	valid := Config{
		Port:            "8000",
		JWTSecret:       "secret",
		SpendRequestTTL: time.Hour,
		SweepInterval:   time.Minute,
		TxMaxRetries:    3,
		TaskXP:          10,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing jwt secret", func(c *Config) { c.JWTSecret = "" }},
		{"zero ttl", func(c *Config) { c.SpendRequestTTL = 0 }},
		{"zero retries", func(c *Config) { c.TxMaxRetries = 0 }},
		{"negative task xp", func(c *Config) { c.TaskXP = -1 }},
		{"db host without name", func(c *Config) { c.DBHost = "localhost"; c.DBName = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestRenderHostForcesTLS(t *testing.T) {
	t.Setenv("DB_HOST", "dpg-xyz.oregon-postgres.render.com")
	t.Setenv("DB_SSLMODE", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "require", cfg.DBSSLMode)
	assert.Contains(t, cfg.DSN(), "sslmode=require")
}
