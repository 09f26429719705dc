package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Security  SecurityConfig  `mapstructure:"security"`
	Apps      []AppConfig     `mapstructure:"apps"`
	History   HistoryConfig   `mapstructure:"history"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Admin     AdminConfig     `mapstructure:"admin"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type SecurityConfig struct {
	APISecret       string        `mapstructure:"api_secret"`
	ReplayWindow    time.Duration `mapstructure:"replay_window"`
	MaxPayloadBytes int64         `mapstructure:"max_payload_bytes"`
}

// String redacts the shared secret so a SecurityConfig can be logged
// or formatted without leaking it.
func (c SecurityConfig) String() string {
	return fmt.Sprintf("{APISecret:***** ReplayWindow:%s MaxPayloadBytes:%d}", c.ReplayWindow, c.MaxPayloadBytes)
}

// AppConfig describes one deployable app: a correctly signed POST to
// its endpoint runs its deploy command.
type AppConfig struct {
	Name     string        `mapstructure:"name"`
	Endpoint string        `mapstructure:"endpoint"`
	RunArgs  []string      `mapstructure:"run_args"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type HistoryConfig struct {
	DatabasePath string        `mapstructure:"database_path"`
	Retention    time.Duration `mapstructure:"retention"`
}

type RateLimitConfig struct {
	TriggerPerMinute int `mapstructure:"trigger_per_minute"`
	APIReadPerMinute int `mapstructure:"api_read_per_minute"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

type AdminConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

func (c AdminConfig) String() string {
	return fmt.Sprintf("{JWTSecret:***** TokenTTL:%s}", c.TokenTTL)
}

func Load(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 5000)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "15m")
	viper.SetDefault("server.idle_timeout", "60s")
	viper.SetDefault("security.replay_window", "5m")
	viper.SetDefault("security.max_payload_bytes", 1<<20)
	viper.SetDefault("history.database_path", "deployd.db")
	viper.SetDefault("history.retention", "8760h")
	viper.SetDefault("rate_limit.trigger_per_minute", 50)
	viper.SetDefault("rate_limit.api_read_per_minute", 300)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("admin.token_ttl", "24h")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects configurations the server cannot safely run with.
// A missing shared secret in particular must fail startup rather than
// degrade into an unauthenticated deploy endpoint.
func (c *Config) Validate() error {
	if c.Security.APISecret == "" {
		return fmt.Errorf("config: security.api_secret must not be empty")
	}
	if c.Security.ReplayWindow <= 0 {
		return fmt.Errorf("config: security.replay_window must be positive")
	}
	if c.Security.MaxPayloadBytes <= 0 {
		return fmt.Errorf("config: security.max_payload_bytes must be positive")
	}

	names := make(map[string]bool)
	endpoints := make(map[string]bool)
	for _, app := range c.Apps {
		if app.Name == "" {
			return fmt.Errorf("config: every app needs a name")
		}
		if names[app.Name] {
			return fmt.Errorf("config: duplicate app name %q", app.Name)
		}
		names[app.Name] = true

		if !strings.HasPrefix(app.Endpoint, "/") {
			return fmt.Errorf("config: app %q endpoint %q must start with /", app.Name, app.Endpoint)
		}
		if endpoints[app.Endpoint] {
			return fmt.Errorf("config: duplicate endpoint %q", app.Endpoint)
		}
		endpoints[app.Endpoint] = true

		if len(app.RunArgs) == 0 {
			return fmt.Errorf("config: app %q has no run_args", app.Name)
		}
	}

	return nil
}
