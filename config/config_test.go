package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	os.Unsetenv("PORT")

	cfg := FromEnv()

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadSize)
	assert.Equal(t, 20, cfg.SearchLimit)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("MAX_UPLOAD_MB", "2")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := FromEnv()

	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, int64(2<<20), cfg.MaxUploadSize)
	assert.True(t, cfg.MinioUseSSL)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 0, cfg.RedisDB, "invalid ints fall back to the default")
}

func TestConfig_AuthEnabled(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.AuthEnabled())

	cfg.AdminPasswordHash = "$2a$10$abc"
	assert.True(t, cfg.AuthEnabled())
}

func TestLoadPlayerFrom_MissingFilesUseDefaults(t *testing.T) {
	cfg, err := LoadPlayerFrom(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	def := DefaultPlayerConfig()
	assert.Equal(t, def.APIURL, cfg.APIURL)
	assert.InDelta(t, 1.0, cfg.Volume, 1e-9)
	assert.Equal(t, 300*time.Millisecond, cfg.SearchDebounce)
}

func TestLoadPlayerFrom_LastFileWins(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.toml")
	second := filepath.Join(dir, "second.toml")

	require.NoError(t, os.WriteFile(first, []byte(`
api_url = "http://first:8000/"
volume = 0.4
`), 0o644))
	require.NoError(t, os.WriteFile(second, []byte(`
api_url = "http://second:8000/"
search_debounce = "500ms"
`), 0o644))

	cfg, err := LoadPlayerFrom(first, second)
	require.NoError(t, err)

	assert.Equal(t, "http://second:8000", cfg.APIURL)
	assert.InDelta(t, 0.4, cfg.Volume, 1e-9)
	assert.Equal(t, 500*time.Millisecond, cfg.SearchDebounce)
}

func TestLoadPlayerFrom_ClampsVolume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "player.toml")
	require.NoError(t, os.WriteFile(path, []byte("volume = 3.5\n"), 0o644))

	cfg, err := LoadPlayerFrom(path)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, cfg.Volume, 1e-9)
}

func TestLoadPlayerFrom_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "player.toml")
	require.NoError(t, os.WriteFile(path, []byte("volume = [unterminated"), 0o644))

	_, err := LoadPlayerFrom(path)
	assert.Error(t, err)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL=info\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("LOG_LEVEL") })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	go func() {
		_ = Watch(ctx, path, func(c *Config) { changes <- c })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL=debug\n"), 0o644))

	// A single write may surface as several events, the first of which can
	// observe a truncated file.
	deadline := time.After(3 * time.Second)
	for {
		select {
		case c := <-changes:
			if c.LogLevel == "debug" {
				return
			}
		case <-deadline:
			t.Fatal("no reload with the new value after write")
		}
	}
}
