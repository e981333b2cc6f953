package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	constants "nselfadmin/config"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Collaborator CollaboratorConfig      `mapstructure:"collaborator"`
	Realtime     RealtimeConfig          `mapstructure:"realtime"`
	Runtime      RuntimeConfig           `mapstructure:"runtime"`
	Server       ServerConfig            `mapstructure:"server"`
	OTel         OTelConfig              `mapstructure:"otel"`
	Sources      map[string]SourceConfig `mapstructure:"sources"`
	Log          LogConfig               `mapstructure:"log"`

	// File is the config file that was read, empty when running on defaults.
	File string `mapstructure:"-"`
}

// CollaboratorConfig points at the admin backend serving the data endpoints.
type CollaboratorConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RealtimeConfig configures the push stream subscription.
type RealtimeConfig struct {
	URL         string        `mapstructure:"url"`
	Enabled     bool          `mapstructure:"enabled"`
	Reconnect   bool          `mapstructure:"reconnect"`
	MinInterval time.Duration `mapstructure:"min_interval"`
	MaxInterval time.Duration `mapstructure:"max_interval"`
}

// RuntimeConfig selects and tunes the container runtime stats provider.
type RuntimeConfig struct {
	Provider          string        `mapstructure:"provider"`
	Binary            string        `mapstructure:"binary"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	StorageCapacityGB float64       `mapstructure:"storage_capacity_gb"`
}

type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

// OTelConfig enables OTLP export when Endpoint is set.
type OTelConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Token    string        `mapstructure:"token"`
	Insecure bool          `mapstructure:"insecure"`
	Interval time.Duration `mapstructure:"interval"`
}

// SourceConfig holds the per-source polling settings.
type SourceConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

type LogConfig struct {
	File  string `mapstructure:"file"`
	Debug bool   `mapstructure:"debug"`
}

// DefaultSourceIntervals lists every polled source with its default cadence.
var DefaultSourceIntervals = map[string]time.Duration{
	constants.SOURCE_PROJECT:         constants.DEFAULT_PROJECT_INTERVAL,
	constants.SOURCE_SYSTEM:          constants.DEFAULT_SYSTEM_INTERVAL,
	constants.SOURCE_CONTAINERS:      constants.DEFAULT_CONTAINERS_INTERVAL,
	constants.SOURCE_CONTAINER_STATS: constants.DEFAULT_CONTAINER_STATS_INTERVAL,
	constants.SOURCE_DATABASE:        constants.DEFAULT_DATABASE_INTERVAL,
}

// Source returns the settings for name, falling back to its defaults.
func (cfg *Config) Source(name string) SourceConfig {
	sc, ok := cfg.Sources[name]
	if !ok {
		return SourceConfig{Enabled: true, Interval: DefaultSourceIntervals[name]}
	}
	if sc.Interval <= 0 {
		sc.Interval = DefaultSourceIntervals[name]
	}
	return sc
}

// DefaultPath returns $HOME/.nselfadmin/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home+constants.CONFIG_DIR_NAME, "config.yaml")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("NSELFADMIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("collaborator.base_url", constants.DEFAULT_COLLABORATOR_URL)
	v.SetDefault("collaborator.token", "")
	v.SetDefault("collaborator.timeout", constants.DEFAULT_COLLABORATOR_TIMEOUT)

	v.SetDefault("realtime.url", constants.DEFAULT_REALTIME_URL)
	v.SetDefault("realtime.enabled", true)
	v.SetDefault("realtime.reconnect", true)
	v.SetDefault("realtime.min_interval", constants.DEFAULT_RECONNECT_INITIAL)
	v.SetDefault("realtime.max_interval", constants.DEFAULT_RECONNECT_MAX)

	v.SetDefault("runtime.provider", constants.PROVIDER_CLI)
	v.SetDefault("runtime.binary", constants.DEFAULT_RUNTIME_BINARY)
	v.SetDefault("runtime.cache_ttl", constants.DEFAULT_STATS_CACHE_TTL)
	v.SetDefault("runtime.storage_capacity_gb", constants.DEFAULT_STORAGE_CAPACITY_GB)

	v.SetDefault("server.listen", constants.DEFAULT_LISTEN_ADDR)

	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.token", "")
	v.SetDefault("otel.insecure", false)
	v.SetDefault("otel.interval", constants.DEFAULT_OTEL_INTERVAL)

	for name, interval := range DefaultSourceIntervals {
		v.SetDefault("sources."+name+".enabled", true)
		v.SetDefault("sources."+name+".interval", interval)
	}

	v.SetDefault("log.file", constants.LOG_FILE)
	v.SetDefault("log.debug", false)
	return v
}

// LoadConfig loads configuration from path, or from config.yaml in
// $HOME/.nselfadmin and the working directory when path is empty.
// A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("$HOME" + constants.CONFIG_DIR_NAME)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(path != "" && os.IsNotExist(err)) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (cfg *Config) Validate() error {
	switch cfg.Runtime.Provider {
	case constants.PROVIDER_CLI, constants.PROVIDER_ENGINE:
	default:
		return fmt.Errorf("runtime.provider must be %q or %q, got %q",
			constants.PROVIDER_CLI, constants.PROVIDER_ENGINE, cfg.Runtime.Provider)
	}
	if cfg.Runtime.CacheTTL < 0 {
		return fmt.Errorf("runtime.cache_ttl must not be negative")
	}
	if cfg.Runtime.StorageCapacityGB <= 0 {
		return fmt.Errorf("runtime.storage_capacity_gb must be positive")
	}
	for name, sc := range cfg.Sources {
		if _, ok := DefaultSourceIntervals[name]; !ok {
			return fmt.Errorf("unknown source %q", name)
		}
		if sc.Interval < 0 {
			return fmt.Errorf("sources.%s.interval must be positive", name)
		}
	}
	return nil
}

// SaveConfig writes cfg as YAML to path, or to DefaultPath when path is empty.
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("collaborator.base_url", cfg.Collaborator.BaseURL)
	if cfg.Collaborator.Token != "" {
		v.Set("collaborator.token", cfg.Collaborator.Token)
	}
	v.Set("collaborator.timeout", cfg.Collaborator.Timeout.String())

	v.Set("realtime.url", cfg.Realtime.URL)
	v.Set("realtime.enabled", cfg.Realtime.Enabled)
	v.Set("realtime.reconnect", cfg.Realtime.Reconnect)
	v.Set("realtime.min_interval", cfg.Realtime.MinInterval.String())
	v.Set("realtime.max_interval", cfg.Realtime.MaxInterval.String())

	v.Set("runtime.provider", cfg.Runtime.Provider)
	v.Set("runtime.binary", cfg.Runtime.Binary)
	v.Set("runtime.cache_ttl", cfg.Runtime.CacheTTL.String())
	v.Set("runtime.storage_capacity_gb", cfg.Runtime.StorageCapacityGB)

	v.Set("server.listen", cfg.Server.Listen)

	if cfg.OTel.Endpoint != "" {
		v.Set("otel.endpoint", cfg.OTel.Endpoint)
		v.Set("otel.token", cfg.OTel.Token)
		v.Set("otel.insecure", cfg.OTel.Insecure)
		v.Set("otel.interval", cfg.OTel.Interval.String())
	}

	for name := range DefaultSourceIntervals {
		sc := cfg.Source(name)
		v.Set("sources."+name+".enabled", sc.Enabled)
		v.Set("sources."+name+".interval", sc.Interval.String())
	}

	v.Set("log.file", cfg.Log.File)
	v.Set("log.debug", cfg.Log.Debug)

	return v.WriteConfigAs(path)
}
