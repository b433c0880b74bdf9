package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Server   ServerConfig
	Layer    LayerConfig
	Export   ExportConfig
	Upload   UploadConfig
	Database DatabaseConfig
	Log      LogConfig
}

// ServerConfig points at the CALDERA server hosting the compass plugin.
type ServerConfig struct {
	URL       string
	APIKeyEnv string `mapstructure:"api_key_env"`
	APIKey    string `mapstructure:"api_key"`
	Timeout   time.Duration
}

// LayerConfig controls the export request.
type LayerConfig struct {
	LegacyPayload bool `mapstructure:"legacy_payload"`
}

// ExportConfig says where layer.json lands.
type ExportConfig struct {
	Dir      string
	S3Bucket string `mapstructure:"s3_bucket"`
	S3Prefix string `mapstructure:"s3_prefix"`
	S3Region string `mapstructure:"s3_region"`
}

// UploadConfig holds the directory the upload picker lists.
type UploadConfig struct {
	Dir string
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// LogConfig holds the log file and level.
type LogConfig struct {
	Path  string
	Level string
}

// Load reads configuration from file and env. Env var overrides use prefix COMPASS_.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("COMPASS_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "compass"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("COMPASS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	c.Server.URL = strings.TrimRight(strings.TrimSpace(c.Server.URL), "/")
	if c.Server.URL == "" {
		return Config{}, fmt.Errorf("config: server.url is required")
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	home := os.Getenv("HOME")
	v.SetDefault("server.url", "http://localhost:8888")
	v.SetDefault("server.api_key_env", "CALDERA_API_KEY")
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.timeout", "30s")
	v.SetDefault("layer.legacy_payload", false)
	v.SetDefault("export.dir", filepath.Join(home, "Downloads"))
	v.SetDefault("export.s3_bucket", "")
	v.SetDefault("export.s3_prefix", "layers")
	v.SetDefault("export.s3_region", "")
	v.SetDefault("upload.dir", ".")
	v.SetDefault("database.path", filepath.Join(home, ".local", "share", "compass", "compass.db"))
	v.SetDefault("log.path", filepath.Join(home, ".local", "state", "compass", "compass.log"))
	v.SetDefault("log.level", "INFO")
}

// APIKey resolves the key: the named env var wins over the config value.
func (c Config) APIKey() string {
	if env := strings.TrimSpace(c.Server.APIKeyEnv); env != "" {
		if v := os.Getenv(env); v != "" {
			return strings.TrimSpace(v)
		}
	}
	return strings.TrimSpace(c.Server.APIKey)
}

// Path is the file Save writes: $COMPASS_CONFIG or ~/.config/compass/config.toml.
func Path() string {
	if path := os.Getenv("COMPASS_CONFIG"); path != "" {
		return path
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "compass", "config.toml")
}

// Save writes the provided config to disk, creating the config directory if needed.
// The API key is never written; keep it in the environment.
func Save(cfg Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("server.url", cfg.Server.URL)
	v.Set("server.api_key_env", cfg.Server.APIKeyEnv)
	v.Set("server.timeout", cfg.Server.Timeout.String())
	v.Set("layer.legacy_payload", cfg.Layer.LegacyPayload)
	v.Set("export.dir", cfg.Export.Dir)
	v.Set("export.s3_bucket", cfg.Export.S3Bucket)
	v.Set("export.s3_prefix", cfg.Export.S3Prefix)
	v.Set("export.s3_region", cfg.Export.S3Region)
	v.Set("upload.dir", cfg.Upload.Dir)
	v.Set("database.path", cfg.Database.Path)
	v.Set("log.path", cfg.Log.Path)
	v.Set("log.level", cfg.Log.Level)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
