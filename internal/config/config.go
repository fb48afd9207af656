// ABOUTME: Configuration for the dic server and CLI.
// ABOUTME: Reads .env files, an optional dic.yaml, and DIC_* environment variables through viper.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Port      string        `mapstructure:"port"`
	DBPath    string        `mapstructure:"db_path"`
	LogLevel  string        `mapstructure:"log_level"`
	LogFile   string        `mapstructure:"log_file"`
	Dev       bool          `mapstructure:"dev"`
	NoticeTTL time.Duration `mapstructure:"notice_ttl"`
	// SessionIdle is how long an editor session without requests or
	// connected browsers is kept before it is closed.
	SessionIdle time.Duration `mapstructure:"session_idle"`

	OpenAIKey    string `mapstructure:"openai_api_key"`
	AnthropicKey string `mapstructure:"anthropic_api_key"`

	Generate GenerateConfig `mapstructure:"generate"`
	Remote   RemoteConfig   `mapstructure:"remote"`
}

// GenerateConfig selects the schema generation provider.
type GenerateConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
}

// RemoteConfig points sessions and CLI commands at another dic server's API.
// Empty URLs mean the local generator and database are used.
type RemoteConfig struct {
	GenerateURL string        `mapstructure:"generate_url"`
	SchemasURL  string        `mapstructure:"schemas_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "9000")
	v.SetDefault("db_path", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("dev", false)
	v.SetDefault("notice_ttl", 3*time.Second)
	v.SetDefault("session_idle", 30*time.Minute)
	v.SetDefault("openai_api_key", "")
	v.SetDefault("anthropic_api_key", "")
	v.SetDefault("generate.provider", "auto")
	v.SetDefault("generate.model", "")
	v.SetDefault("remote.generate_url", "")
	v.SetDefault("remote.schemas_url", "")
	v.SetDefault("remote.timeout", 30*time.Second)
}

// Load builds the configuration. configFile, when set, must exist; otherwise
// the standard locations are searched for dic.yaml.
func Load(configFile string) (*Config, error) {
	LoadDotEnv()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Provider keys keep their conventional names.
	if err := v.BindEnv("openai_api_key", "DIC_OPENAI_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("anthropic_api_key", "DIC_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("generate.model", "DIC_GENERATE_MODEL", "OPENAI_MODEL"); err != nil {
		return nil, err
	}

	if configFile == "" {
		configFile = findConfigFile()
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later and less clearly.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port %q", c.Port)
	}
	switch strings.ToLower(c.Generate.Provider) {
	case "", "auto", "openai", "anthropic", "static":
	default:
		return fmt.Errorf("invalid generate.provider %q (want auto, openai, anthropic or static)", c.Generate.Provider)
	}
	if c.NoticeTTL <= 0 {
		return fmt.Errorf("notice_ttl must be positive")
	}
	if c.SessionIdle <= 0 {
		return fmt.Errorf("session_idle must be positive")
	}
	path, err := ValidateDBPath(c.DBPath)
	if err != nil {
		return err
	}
	c.DBPath = path
	return nil
}

// LoadDotEnv loads .env from the current directory or its parents, then from
// the home directory. Existing environment variables win.
func LoadDotEnv() {
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		godotenv.Load(filepath.Join(home, ".env"))
	}
}

// findConfigFile searches ./dic.yaml, ./dic.yml, then the user config
// directory's dic/config.yaml.
func findConfigFile() string {
	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, "dic.yaml"), filepath.Join(cwd, "dic.yml"))
	}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "dic", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
