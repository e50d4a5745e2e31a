package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding configuration keys
const EnvPrefix = "MAIL_ASSISTANT"

// legacyEnv maps configuration keys to the plain variable names accepted in a .env file
var legacyEnv = map[string]string{
	"smtp.host":                 "SMTP_SERVER",
	"smtp.port":                 "SMTP_PORT",
	"smtp.username":             "SMTP_EMAIL",
	"smtp.password":             "SMTP_PASSWORD",
	"assistant.manager_address": "MANAGER_EMAIL",
	"assistant.profile_name":    "PROFILE_NAME",
	"openai.api_key":            "GROQ_API_KEY",
	"calendar.credentials_file": "GOOGLE_CLIENT_SECRET_FILE",
	"calendar.scopes":           "CAL_SCOPES",
}

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New loads an optional .env file and then the configuration file
func New() (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/llm-mail-assistant/")
	v.AddConfigPath("$HOME/.llm-mail-assistant")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromFile loads configuration from an explicit file path
func NewFromFile(path string) (*Config, error) {
	v := NewEmptyViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults and environment bindings
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	bindEnv(v)
	return v
}

// LoadDotEnv loads variables from path into the environment, if the file exists
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, name := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, prefixed, name)
	}
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Assistant defaults
	v.SetDefault("assistant.manager_address", "")
	v.SetDefault("assistant.profile_name", "John Doe")
	v.SetDefault("assistant.timezone", "America/Toronto")
	v.SetDefault("assistant.work_start", "09:00")
	v.SetDefault("assistant.work_end", "17:00")
	v.SetDefault("assistant.dry_run", false)

	// LLM provider defaults
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.max_body_size", 4096)

	// Triage defaults
	v.SetDefault("triage.ignore_domains", []string{})

	// Agent defaults
	v.SetDefault("agent.max_iterations", 2)

	// OpenAI-compatible defaults, pointed at Groq
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("openai.model_name", "llama3-70b-8192")
	v.SetDefault("openai.max_tokens", 1000)
	v.SetDefault("openai.temperature", 0.0)
	v.SetDefault("openai.top_p", 1.0)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-1.5-flash")
	v.SetDefault("gemini.max_tokens", 1000)
	v.SetDefault("gemini.temperature", 0.0)
	v.SetDefault("gemini.top_p", 1.0)

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.max_tokens", 1000)
	v.SetDefault("bedrock.temperature", 0.0)
	v.SetDefault("bedrock.top_p", 1.0)

	// SMTP transport defaults
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 465)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("smtp.security", "tls")
	v.SetDefault("smtp.helo", "localhost")
	v.SetDefault("smtp.timeout", "30s")

	// Calendar defaults
	v.SetDefault("calendar.calendar_id", "primary")
	v.SetDefault("calendar.credentials_file", "credentials.json")
	v.SetDefault("calendar.token_file", "token.json")
	v.SetDefault("calendar.scopes", []string{"https://www.googleapis.com/auth/calendar"})
	v.SetDefault("calendar.breaker.max_failures", 5)
	v.SetDefault("calendar.breaker.timeout", "60s")

	// Classification store defaults
	v.SetDefault("store.type", "memory")
	v.SetDefault("store.enabled", true)
	v.SetDefault("store.ttl", "24h")
	v.SetDefault("store.cleanup_frequency", "1h")
	v.SetDefault("store.sqlite_path", "/data/classifications.db")
	v.SetDefault("store.mysql_dsn", "user:password@tcp(localhost:3306)/mail_assistant")

	// Server defaults
	v.SetDefault("server.listen_address", "127.0.0.1:2525")
	v.SetDefault("server.domain", "localhost")
	v.SetDefault("server.max_message_bytes", 10*1024*1024)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.handle_timeout", "2m")
	v.SetDefault("server.auth_username", "")
	v.SetDefault("server.auth_password", "")
	v.SetDefault("server.metrics_address", ":9090")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(c.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// Set overrides a configuration value
func (c *Config) Set(key string, value any) {
	c.v.Set(key, value)
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
