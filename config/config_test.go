package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/revenue-engine/config"
	"github.com/warp/revenue-engine/generic"
)

// chdir moves into dir for the test so Load finds (or misses) a .env file.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, config.DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "revenue.db", cfg.DBDSN)
	assert.Equal(t, generic.CurrencyUSD, cfg.Currency)
	assert.Equal(t, "0.000001", cfg.DOTolerance.String())
	assert.Equal(t, time.Hour, cfg.AuditInterval)
}

func TestLoad_EnvThenFlags(t *testing.T) {
	// GIVEN: Port and DSN in the environment
	// WHEN: A -port flag is also passed
	// THEN: The flag wins for port, the environment for DSN

	chdir(t, t.TempDir())
	t.Setenv("REVENUE_HTTP_PORT", "9000")
	t.Setenv("REVENUE_DB_DSN", ":memory:")
	t.Setenv("REVENUE_DO_TOLERANCE", "0.0001")
	t.Setenv("REVENUE_AUDIT_INTERVAL", "0s")

	cfg, err := config.Load([]string{"-port", "9100"})
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.HTTPPort)
	assert.Equal(t, ":memory:", cfg.DBDSN)
	assert.Equal(t, "0.0001", cfg.DOTolerance.String())
	assert.Equal(t, time.Duration(0), cfg.AuditInterval)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("REVENUE_LOG_LEVEL=debug\n"), 0o600))
	// godotenv never overrides variables that are already set, and
	// t.Setenv restores the empty value afterwards.
	t.Setenv("REVENUE_LOG_LEVEL", "")
	os.Unsetenv("REVENUE_LOG_LEVEL")

	cfg, err := config.Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	chdir(t, t.TempDir())

	cases := map[string][]string{
		"bad driver": {"-driver", "mysql"},
		"bad port":   {"-port", "0"},
		"empty dsn":  {"-db", " "},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(args)
			assert.Error(t, err)
		})
	}

	t.Run("tolerance", func(t *testing.T) {
		t.Setenv("REVENUE_DO_TOLERANCE", "abc")
		_, err := config.Load(nil)
		assert.Error(t, err)
	})
}

func TestConfig_PricingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pricing.yaml")
	require.NoError(t, os.WriteFile(path, []byte("regions:\n  Permian:\n    oil: \"2.50\"\n"), 0o600))

	cfg := config.Config{PricingConfigPath: path}
	p, err := cfg.Pricing()
	require.NoError(t, err)
	assert.Contains(t, p.Regions, "permian")

	_, err = config.Config{PricingConfigPath: filepath.Join(dir, "missing.yaml")}.Pricing()
	assert.Error(t, err)
}
