// Package config loads obscheck settings from defaults, an optional TOML
// file and OBSCHECK_* environment variables, in increasing precedence.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"github.com/rtm0/obscheck/internal/check"
)

const appName = "obscheck"

// Config holds every setting.
type Config struct {
	Cache CacheConfig `mapstructure:"cache" toml:"cache"`
	Check CheckConfig `mapstructure:"check" toml:"check"`
}

// CacheConfig locates the error store.
type CacheConfig struct {
	Path string `mapstructure:"path" toml:"path"`
}

// CheckConfig tunes validation.
type CheckConfig struct {
	Units       string `mapstructure:"units" toml:"units"` // allowed or exact
	Concurrency int    `mapstructure:"concurrency" toml:"concurrency"`
}

// UnitPolicy returns the configured unit comparison.
func (c *Config) UnitPolicy() (check.UnitPolicy, error) {
	p, ok := check.ParseUnitPolicy(c.Check.Units)
	if !ok {
		return p, errors.WithHint(
			errors.Newf("unknown check.units %q", c.Check.Units),
			`use "allowed" or "exact"`)
	}
	return p, nil
}

// DefaultCachePath is $XDG_CACHE_HOME/obscheck/errors.sqlite.
func DefaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = filepath.Join(os.TempDir(), appName+"-cache")
		return filepath.Join(dir, "errors.sqlite")
	}
	return filepath.Join(dir, appName, "errors.sqlite")
}

// DefaultConfigPath is $XDG_CONFIG_HOME/obscheck/config.toml.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, appName, "config.toml")
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("cache.path", DefaultCachePath())
	v.SetDefault("check.units", check.UnitsAllowed.String())
	v.SetDefault("check.concurrency", 1)
}

// Load reads configuration. An empty path means the default location, which
// may be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(strings.ToUpper(appName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			if explicit || !isNotExist(err) {
				return nil, errors.Wrapf(err, "read config %s", path)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if _, err := cfg.UnitPolicy(); err != nil {
		return nil, err
	}
	if cfg.Check.Concurrency < 1 {
		cfg.Check.Concurrency = 1
	}
	return &cfg, nil
}

func isNotExist(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf) || errors.Is(err, os.ErrNotExist)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{Path: DefaultCachePath()},
		Check: CheckConfig{Units: check.UnitsAllowed.String(), Concurrency: 1},
	}
}

// WriteDefault writes the built-in configuration as TOML to path. An existing
// file is left alone unless overwrite is set.
func WriteDefault(path string, overwrite bool) error {
	if _, err := os.Stat(path); err == nil && !overwrite {
		return errors.WithHint(errors.Newf("%s already exists", path), "pass --overwrite to replace it")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(err, "create config directory")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return errors.Wrap(err, "create config file")
	}
	if err := toml.NewEncoder(f).Encode(Default()); err != nil {
		f.Close()
		return errors.Wrap(err, "encode config")
	}
	return errors.Wrap(f.Close(), "close config file")
}
