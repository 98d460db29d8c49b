package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir moves into an empty directory so a developer's .env does not leak in.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"TELEGRAM_BOT_TOKEN", "MEGA_EMAIL", "MEGA_PASSWORD", "DOWNLOAD_DIR",
		"YTDLP_PATH", "YTDLP_COOKIES", "LOG_LEVEL", "SESSION_TTL", "PORT", "WORKERS",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "temp_downloads", cfg.Download.Dir)
	assert.Equal(t, 8080, cfg.Health.Port)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, time.Hour, cfg.SessionTTLDuration())
	assert.Equal(t, 30*time.Minute, cfg.DownloadTimeout())
	assert.Equal(t, "0.0.0.0:8080", cfg.HealthAddr())
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := chdir(t)
	clearEnv(t)

	path := filepath.Join(dir, "megadrop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
telegram:
  token: from-file
  page_size: 10
mega:
  email: me@example.com
download:
  quality: 320K
workers: 2
`), 0o644))

	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")
	t.Setenv("PORT", "9090")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, 10, cfg.Telegram.PageSize)
	assert.Equal(t, "me@example.com", cfg.Mega.Email)
	assert.Equal(t, "320K", cfg.Download.Quality)
	assert.Equal(t, "mp3", cfg.Download.Format, "unset keys keep defaults")
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 9090, cfg.Health.Port)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := chdir(t)
	clearEnv(t)
	require.NoError(t, os.Unsetenv("MEGA_PASSWORD"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("MEGA_PASSWORD=hunter2\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("MEGA_PASSWORD") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", cfg.Mega.Password)
}

func TestLoad_Errors(t *testing.T) {
	dir := chdir(t)
	clearEnv(t)

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "read config")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("workers: [nope"), 0o644))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "parse config")

	t.Setenv("PORT", "eighty")
	_, err = Load("")
	assert.ErrorContains(t, err, "PORT")
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 0
	cfg.Health.Port = 70000
	cfg.SessionTTL = "forever"
	cfg.Telegram.PageSize = 500

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")
	assert.Contains(t, err.Error(), "port")
	assert.Contains(t, err.Error(), "session_ttl")
	assert.Contains(t, err.Error(), "page_size")
}

func TestParseDuration(t *testing.T) {
	d, err := parseDuration("0")
	require.NoError(t, err)
	assert.Zero(t, d)

	d, err = parseDuration(" 90s ")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	_, err = parseDuration("-1s")
	assert.Error(t, err)
}
