// Package config loads tool configuration via Viper. Configuration only
// fills command options the user left unset; explicit flags always win.
package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/metacrawl/metacrawl/internal/crawler"
)

// Config captures every knob the commands consult.
type Config struct {
	Proxy     string            `mapstructure:"proxy"`
	UseProxy  bool              `mapstructure:"use_proxy"`
	Timeout   int               `mapstructure:"timeout"`
	Retry     int               `mapstructure:"retry"`
	UserAgent string            `mapstructure:"user_agent"`
	HostQPS   float64           `mapstructure:"host_qps"`
	Browser   BrowserConfig     `mapstructure:"browser"`
	SiteURLs  map[string]string `mapstructure:"site_urls"`
}

// BrowserConfig controls the shared browser session.
type BrowserConfig struct {
	Headless          bool `mapstructure:"headless"`
	NavTimeoutSeconds int  `mapstructure:"nav_timeout_seconds"`
}

// Load reads configuration from the given file, or, when path is empty,
// from config.yaml in the working directory or the user config dir. A
// missing file is not an error; defaults apply. The second return value
// is the config file actually used ("" when none).
func Load(path string) (Config, string, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(xdg.ConfigHome, "metacrawl"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, "", fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, "", fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, "", err
	}
	return cfg, v.ConfigFileUsed(), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("proxy", "")
	v.SetDefault("use_proxy", true)
	v.SetDefault("timeout", 5)
	v.SetDefault("retry", 1)
	v.SetDefault("user_agent", "metacrawl/0.1")
	v.SetDefault("host_qps", 2.0)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.nav_timeout_seconds", 30)
	v.SetDefault("site_urls", map[string]string{})
}

func (c Config) validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0, got %d", c.Timeout)
	}
	if c.Retry < 1 {
		return fmt.Errorf("retry must be >= 1, got %d", c.Retry)
	}
	return nil
}

// EffectiveProxy returns the proxy to use, honoring the use_proxy toggle.
func (c Config) EffectiveProxy() string {
	if !c.UseProxy {
		return ""
	}
	return c.Proxy
}

// SiteURL returns the configured base URL override for a site; empty
// means the crawler should use its built-in default.
func (c Config) SiteURL(site crawler.Site) string {
	return c.SiteURLs[string(site)]
}
