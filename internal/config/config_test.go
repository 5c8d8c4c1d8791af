package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("FINANCE_CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, "auto", cfg.DBTransactions)
	assert.Equal(t, 30*time.Second, cfg.TxTimeout)
	assert.Equal(t, RecalcInline, cfg.RecalcMode)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, 10, cfg.OutboxMaxAttempts)
	assert.False(t, cfg.ReconcileRepair)
}

func TestLoadRejectsUnknownRecalcMode(t *testing.T) {
	t.Setenv("RECALC_MODE", "eventually")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RECALC_MODE")
}

func TestLoadRejectsDefaultSecretInProd(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	t.Setenv("TX_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TX_TIMEOUT")
}

func TestLoadFileValuesSitBeneathEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buildledger.toml")
	content := `
[database]
url = "file-db.sqlite"
tx_timeout = "45s"

[recalc]
mode = "outbox"
outbox_max_attempts = 3

[reconcile]
repair = true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("FINANCE_CONFIG_FILE", path)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("RECALC_MODE", "inline")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "file-db.sqlite", cfg.DatabaseURL)
	assert.Equal(t, 45*time.Second, cfg.TxTimeout)
	assert.Equal(t, RecalcInline, cfg.RecalcMode, "env wins over file")
	assert.Equal(t, 3, cfg.OutboxMaxAttempts)
	assert.True(t, cfg.ReconcileRepair)
}

func TestLoadSplitsCORSOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://app.example.com, ,https://ops.example.com ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://app.example.com", "https://ops.example.com"}, cfg.CORSAllowedOrigins)
}
