package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("COMPASS_CONFIG", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8888", cfg.Server.URL)
	require.Equal(t, 30*time.Second, cfg.Server.Timeout)
	require.Equal(t, "CALDERA_API_KEY", cfg.Server.APIKeyEnv)
	require.False(t, cfg.Layer.LegacyPayload)
	require.Equal(t, filepath.Join(home, "Downloads"), cfg.Export.Dir)
	require.Equal(t, "layers", cfg.Export.S3Prefix)
	require.Equal(t, "INFO", cfg.Log.Level)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "compass.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
url = "https://caldera.example:8443/"
timeout = "5s"
api_key = "from-file"

[layer]
legacy_payload = true

[export]
dir = "/srv/layers"
s3_bucket = "archive"
`), 0o600))
	t.Setenv("HOME", dir)
	t.Setenv("COMPASS_CONFIG", path)
	t.Setenv("COMPASS_UPLOAD_DIR", "/srv/incoming")
	t.Setenv("CALDERA_API_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "https://caldera.example:8443", cfg.Server.URL)
	require.Equal(t, 5*time.Second, cfg.Server.Timeout)
	require.True(t, cfg.Layer.LegacyPayload)
	require.Equal(t, "/srv/layers", cfg.Export.Dir)
	require.Equal(t, "archive", cfg.Export.S3Bucket)
	require.Equal(t, "/srv/incoming", cfg.Upload.Dir)
	require.Equal(t, "from-file", cfg.APIKey())

	t.Setenv("CALDERA_API_KEY", " from-env ")
	require.Equal(t, "from-env", cfg.APIKey())
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("COMPASS_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))

	_, err := Load()
	require.Error(t, err)
}

func TestSaveRoundTripOmitsAPIKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf", "config.toml")
	t.Setenv("HOME", dir)
	t.Setenv("COMPASS_CONFIG", path)

	cfg := Config{
		Server:   ServerConfig{URL: "http://10.0.0.5:8888", APIKeyEnv: "RED_KEY", APIKey: "secret", Timeout: 12 * time.Second},
		Layer:    LayerConfig{LegacyPayload: true},
		Export:   ExportConfig{Dir: "/tmp/out", S3Prefix: "p"},
		Upload:   UploadConfig{Dir: "/tmp/in"},
		Database: DatabaseConfig{Path: "/tmp/compass.db"},
		Log:      LogConfig{Path: "/tmp/compass.log", Level: "DEBUG"},
	}
	require.NoError(t, Save(cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(data), "secret")

	loaded, err := Load()
	require.NoError(t, err)
	cfg.Server.APIKey = ""
	require.Equal(t, cfg, loaded)
}
