// Package config resolves settings from flags, MORNINGSTAR_* environment
// variables and the config.toml file in the data directory.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/team-kosa-skynet/morningstar/pkg/models"
)

const (
	EnvPrefix      = "MORNINGSTAR"
	ConfigFileName = "config.toml"
)

type Config struct {
	BaseURL           string        `mapstructure:"base_url"`
	DataDir           string        `mapstructure:"data_dir"`
	Models            []string      `mapstructure:"models"`
	RevealInterval    time.Duration `mapstructure:"reveal_interval"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	LogLevel          string        `mapstructure:"log_level"`
	LogFile           string        `mapstructure:"log_file"`
}

// SetDefaults registers the built-in values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("base_url", "http://localhost:8080")
	v.SetDefault("data_dir", "~/.morningstar")
	v.SetDefault("models", []string{"gpt:gpt:GPT", "claude:claude:Claude", "gemini:gemini:Gemini"})
	v.SetDefault("reveal_interval", 20*time.Millisecond)
	v.SetDefault("requests_per_second", 10.0)
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_file", "")
}

// Load reads the configuration. Flags must already be bound on v.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	dataDir, err := expandHome(v.GetString("data_dir"))
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dataDir, ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	cfg.DataDir = dataDir
	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(dataDir, "morningstar.log")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be fixed up silently
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("base_url must not be empty")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return errors.Errorf("base_url %q must start with http:// or https://", c.BaseURL)
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("requests_per_second must not be negative")
	}
	if c.RevealInterval < 0 {
		return errors.New("reveal_interval must not be negative")
	}
	if len(c.Models) == 0 {
		return errors.New("at least one model must be configured")
	}
	if _, err := c.ModelInfos(); err != nil {
		return err
	}
	return nil
}

// ModelInfos parses the configured model list
func (c *Config) ModelInfos() ([]models.ModelInfo, error) {
	out := make([]models.ModelInfo, 0, len(c.Models))
	for _, raw := range c.Models {
		m, err := models.ParseModelInfo(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// SelectModels resolves ids against the configured models, in the order given.
// Unknown entries are parsed as ad hoc "id:brand:Name" models. No ids selects
// every configured model. A repeated id is kept once, first occurrence wins.
func (c *Config) SelectModels(ids []string) ([]models.ModelInfo, error) {
	known, err := c.ModelInfos()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return uniqueModels(known), nil
	}

	byID := make(map[string]models.ModelInfo, len(known))
	for _, m := range known {
		if _, dup := byID[m.ID]; !dup {
			byID[m.ID] = m
		}
	}
	out := make([]models.ModelInfo, 0, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			out = append(out, m)
			continue
		}
		m, err := models.ParseModelInfo(id)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return uniqueModels(out), nil
}

// uniqueModels keeps the first model of every id
func uniqueModels(in []models.ModelInfo) []models.ModelInfo {
	seen := make(map[string]bool, len(in))
	out := make([]models.ModelInfo, 0, len(in))
	for _, m := range in {
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		out = append(out, m)
	}
	return out
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve home directory")
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
