package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsAndEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DATABASE_DSN", "postgres://localhost/shorturl")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("REDIS_TTL", "1h")
	t.Setenv("CODE_LENGTH", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "postgres://localhost/shorturl", cfg.Database.DSN)
	assert.Equal(t, time.Hour, cfg.Redis.TTL)
	assert.Equal(t, 8, cfg.Shortener.CodeLength)
	assert.Equal(t, 10, cfg.Shortener.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.Enrich.Timeout)
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	yaml := "server:\n  addr: \":9090\"\nshortener:\n  code_length: 7\ndatabase:\n  dsn: postgres://file\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("DATABASE_DSN", "")
	require.NoError(t, os.Unsetenv("DATABASE_DSN"))
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("HTTP_ADDR", ":7070")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr, "env overrides file")
	assert.Equal(t, 7, cfg.Shortener.CodeLength)
	assert.Equal(t, "postgres://file", cfg.Database.DSN)
}

func TestLoadRequiresDSN(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("JWT_SECRET", "secret")

	_, err := Load()
	assert.ErrorContains(t, err, "DATABASE_DSN")
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	cfg.Database.DSN = "postgres://x"
	cfg.Auth.JWTSecret = "s"
	require.NoError(t, cfg.Validate())

	cfg.Shortener.CodeLength = 2
	assert.Error(t, cfg.Validate())

	cfg.Shortener.CodeLength = 6
	cfg.Stats.Timezone = "Not/AZone"
	assert.Error(t, cfg.Validate())
}

func TestStatsLocation(t *testing.T) {
	cfg := defaultConfig()
	assert.Equal(t, time.Local, cfg.StatsLocation())
	cfg.Stats.Timezone = "UTC"
	assert.Equal(t, "UTC", cfg.StatsLocation().String())
}

func TestCORSOriginList(t *testing.T) {
	cfg := defaultConfig()
	cfg.Server.CORSOrigins = " https://a.example , ,https://b.example"
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOriginList())
}

func TestTrustedProxyList(t *testing.T) {
	cfg := defaultConfig()
	list, err := cfg.TrustedProxyList()
	require.NoError(t, err)
	assert.Empty(t, list, "no proxy trusted by default")

	cfg.RateLimit.TrustedProxies = "10.0.0.0/8, 192.0.2.10 ,2001:db8::/32"
	list, err = cfg.TrustedProxyList()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "10.0.0.0/8", list[0].String())
	assert.Equal(t, "192.0.2.10/32", list[1].String())
	assert.Equal(t, "2001:db8::/32", list[2].String())

	cfg.Database.DSN = "postgres://x"
	cfg.Auth.JWTSecret = "s"
	cfg.RateLimit.TrustedProxies = "proxy.internal"
	assert.ErrorContains(t, cfg.Validate(), "proxy.internal")
}

func TestLoadTrustedProxiesFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DATABASE_DSN", "postgres://localhost/shorturl")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", cfg.RateLimit.TrustedProxies)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
