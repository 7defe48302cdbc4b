package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configData Config

// PluginsConfig controls plugin discovery and auto-loading.
type PluginsConfig struct {
	Enabled     bool     `mapstructure:"enabled"      yaml:"enabled"`
	AutoLoad    []string `mapstructure:"auto_load"    yaml:"auto_load"`
	SearchPaths []string `mapstructure:"search_paths" yaml:"search_paths"`
	Loader      string   `mapstructure:"loader"       yaml:"loader"`
}

// CacheConfig controls the default cache policy.
type CacheConfig struct {
	Location string        `mapstructure:"location" yaml:"location"`
	TTL      time.Duration `mapstructure:"ttl"      yaml:"ttl"`
	Ignore   bool          `mapstructure:"ignore"   yaml:"ignore"`
	Dir      string        `mapstructure:"dir"      yaml:"dir"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Config holds all configuration settings.
type Config struct {
	Plugins PluginsConfig `mapstructure:"plugins" yaml:"plugins"`
	Cache   CacheConfig   `mapstructure:"cache"   yaml:"cache"`
	Log     LogConfig     `mapstructure:"log"     yaml:"log"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Plugins: PluginsConfig{
			Enabled:     true,
			AutoLoad:    []string{},
			SearchPaths: []string{},
			Loader:      "wasm",
		},
		Cache: CacheConfig{
			Location: "persistent",
			TTL:      24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "human",
		},
	}
}

// Initialize sets up the configuration system. An empty cfgFile searches the
// default locations and creates $HOME/.go_draconis/config.yaml if missing.
func Initialize(cfgFile string) error {
	v := viper.GetViper()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.go_draconis")
		v.AddConfigPath("/etc/go_draconis/")

		if err := ensureConfig(); err != nil {
			return fmt.Errorf("error creating config file: %w", err)
		}
	}

	cfg, err := Load(v)
	if err != nil {
		return err
	}
	configData = cfg

	return nil
}

// Load applies defaults and environment bindings to v, reads its config file
// if one is found, and decodes the result.
func Load(v *viper.Viper) (Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("GODRACONIS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// Defaults are enough when the search finds no file. A file named
		// explicitly with SetConfigFile must exist.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	return cfg, nil
}

// setDefaults registers every option of Defaults with v.
func setDefaults(v *viper.Viper) {
	d := Defaults()

	v.SetDefault("plugins.enabled", d.Plugins.Enabled)
	v.SetDefault("plugins.auto_load", d.Plugins.AutoLoad)
	v.SetDefault("plugins.search_paths", d.Plugins.SearchPaths)
	v.SetDefault("plugins.loader", d.Plugins.Loader)

	v.SetDefault("cache.location", d.Cache.Location)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.ignore", d.Cache.Ignore)
	v.SetDefault("cache.dir", d.Cache.Dir)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// ensureConfig creates a default config file if none exists.
func ensureConfig() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	dir := filepath.Join(home, ".go_draconis")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	configFile := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configFile); !os.IsNotExist(err) {
		return nil
	}

	return WriteDefault(configFile)
}

// WriteDefault writes the default configuration to path as YAML.
func WriteDefault(path string) error {
	body, err := yaml.Marshal(Defaults())
	if err != nil {
		return err
	}

	header := "# go_draconis configuration file\n"

	return os.WriteFile(path, append([]byte(header), body...), 0o644)
}

// Get returns the current configuration.
func Get() *Config {
	return &configData
}
