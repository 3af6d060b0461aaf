// Package config loads connector settings from a config file, the
// environment and command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jmerrifield20/neosconnect/pkg/connector"
)

// EnvPrefix prefixes every environment override, e.g. NEOSCONNECT_BASE_URL.
const EnvPrefix = "NEOSCONNECT"

// RateLimit paces outgoing requests. An RPS of zero disables pacing.
type RateLimit struct {
	RPS   float64 `mapstructure:"rps" json:"rps"`
	Burst int     `mapstructure:"burst" json:"burst"`
}

// Validate implements validation.Validatable.
func (r RateLimit) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RPS, validation.Min(0.0)),
		validation.Field(&r.Burst, validation.When(r.RPS > 0, validation.Min(1))),
	)
}

// Config is the resolved connector configuration.
type Config struct {
	BaseURL   string        `mapstructure:"base_url" json:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout" json:"timeout"`
	RateLimit RateLimit     `mapstructure:"rate_limit" json:"rate_limit"`
	Username  string        `mapstructure:"username" json:"username"`
	Password  string        `mapstructure:"password" json:"password,omitempty"`
	// Token seeds the session with a known anti-forgery token.
	Token string `mapstructure:"token" json:"token,omitempty"`
	// ResourceCacheTTL keeps JSON resources this long; zero disables caching.
	ResourceCacheTTL time.Duration `mapstructure:"resource_cache_ttl" json:"resource_cache_ttl"`

	// Routes holds overrides keyed by dotted route name.
	Routes map[string]string `mapstructure:"-" json:"routes"`
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"base-url": "base_url",
	"timeout":  "timeout",
	"username": "username",
	"password": "password",
	"token":    "token",
}

// Load reads the configuration. path names an explicit config file; when it
// is empty neosconnect.yaml is looked up in the working directory and in
// $HOME/.neosconnect, and a missing file is not an error. Flags that are part
// of flags override both file and environment.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("base_url", "http://localhost:8081")
	v.SetDefault("timeout", "10s")
	v.SetDefault("rate_limit.rps", 0)
	v.SetDefault("rate_limit.burst", 1)
	v.SetDefault("username", "")
	v.SetDefault("password", "")
	v.SetDefault("token", "")
	v.SetDefault("resource_cache_ttl", "0s")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("neosconnect")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".neosconnect"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Route names are dotted themselves, so viper sees them as nested keys.
	cfg.Routes = map[string]string{}
	for _, key := range v.AllKeys() {
		if name, ok := strings.CutPrefix(key, "routes."); ok {
			cfg.Routes[name] = v.GetString(key)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate implements validation.Validatable.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, validation.By(absoluteURL)),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.RateLimit),
		validation.Field(&c.ResourceCacheTTL, validation.Min(time.Duration(0))),
		validation.Field(&c.Password, validation.When(c.Username != "", validation.Required)),
		validation.Field(&c.Routes, validation.By(knownRoutes)),
	)
}

func absoluteURL(value interface{}) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("must be an absolute URL")
	}
	return nil
}

func knownRoutes(value interface{}) error {
	overrides, _ := value.(map[string]string)
	routes := connector.DefaultRoutes()
	for name, address := range overrides {
		if err := routes.Set(name, address); err != nil {
			return err
		}
	}
	return routes.Validate()
}

// Options translates the configuration into connector options.
func (c *Config) Options(logger *zap.Logger) []connector.Option {
	opts := []connector.Option{
		connector.WithLogger(logger),
		connector.WithTimeout(c.Timeout),
	}
	if c.RateLimit.RPS > 0 {
		opts = append(opts, connector.WithRateLimit(c.RateLimit.RPS, c.RateLimit.Burst))
	}
	if c.Token != "" {
		opts = append(opts, connector.WithToken(c.Token))
	}
	if c.ResourceCacheTTL > 0 {
		opts = append(opts, connector.WithResourceCache(c.ResourceCacheTTL))
	}

	names := make([]string, 0, len(c.Routes))
	for name := range c.Routes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		opts = append(opts, connector.WithRoute(name, c.Routes[name]))
	}
	return opts
}

// NewClient builds a connector client from the configuration.
func (c *Config) NewClient(logger *zap.Logger, extra ...connector.Option) (*connector.Client, error) {
	return connector.New(c.BaseURL, append(c.Options(logger), extra...)...)
}
