package config

import (
	"fmt"
	"strings"
	"time"
)

// AssistantConfig is the configuration record handed to the core components
type AssistantConfig struct {
	ManagerAddress string
	ProfileName    string
	TimeZone       string
	WorkStart      string
	WorkEnd        string
	DryRun         bool
}

// Location resolves the configured IANA timezone
func (a AssistantConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(a.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", a.TimeZone, err)
	}
	return loc, nil
}

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider    string
	MaxBodySize int
}

// TriageConfig represents the triage rules
type TriageConfig struct {
	IgnoreDomains []string
}

// AgentConfig represents the routing loop settings
type AgentConfig struct {
	MaxIterations int
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// OpenAIConfig represents the configuration for OpenAI-compatible endpoints
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// SMTPConfig represents the outbound mail settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Security string
	Helo     string
	Timeout  time.Duration
}

// Address returns host:port
func (s SMTPConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CalendarConfig represents the Google Calendar settings
type CalendarConfig struct {
	CalendarID         string
	CredentialsFile    string
	TokenFile          string
	Scopes             []string
	BreakerMaxFailures uint32
	BreakerTimeout     time.Duration
}

// StoreConfig represents the classification store settings
type StoreConfig struct {
	Type             string
	Enabled          bool
	TTL              time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
}

// ServerConfig represents the SMTP ingress settings
type ServerConfig struct {
	ListenAddress   string
	Domain          string
	MaxMessageBytes int64
	ReadTimeout     time.Duration
	HandleTimeout   time.Duration
	AuthUsername    string
	AuthPassword    string
	MetricsAddress  string
}

// LoggingConfig represents the logger settings
type LoggingConfig struct {
	Level  string
	Format string
}

// GetAssistant returns the assistant configuration
func (c *Config) GetAssistant() AssistantConfig {
	return AssistantConfig{
		ManagerAddress: strings.TrimSpace(c.GetString("assistant.manager_address")),
		ProfileName:    c.GetString("assistant.profile_name"),
		TimeZone:       c.GetString("assistant.timezone"),
		WorkStart:      c.GetString("assistant.work_start"),
		WorkEnd:        c.GetString("assistant.work_end"),
		DryRun:         c.GetBool("assistant.dry_run"),
	}
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider:    strings.ToLower(c.GetString("llm.provider")),
		MaxBodySize: c.GetInt("llm.max_body_size"),
	}
}

// GetTriage returns the triage configuration
func (c *Config) GetTriage() TriageConfig {
	return TriageConfig{
		IgnoreDomains: c.GetStringSlice("triage.ignore_domains"),
	}
}

// GetAgent returns the routing loop configuration
func (c *Config) GetAgent() AgentConfig {
	return AgentConfig{
		MaxIterations: c.GetInt("agent.max_iterations"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetSMTP returns the outbound mail configuration
func (c *Config) GetSMTP() (SMTPConfig, error) {
	timeout, err := c.GetDuration("smtp.timeout")
	if err != nil {
		return SMTPConfig{}, err
	}

	from := c.GetString("smtp.from")
	if from == "" {
		from = c.GetString("smtp.username")
	}

	return SMTPConfig{
		Host:     c.GetString("smtp.host"),
		Port:     c.GetInt("smtp.port"),
		Username: c.GetString("smtp.username"),
		Password: c.GetString("smtp.password"),
		From:     from,
		Security: strings.ToLower(c.GetString("smtp.security")),
		Helo:     c.GetString("smtp.helo"),
		Timeout:  timeout,
	}, nil
}

// GetCalendar returns the calendar configuration
func (c *Config) GetCalendar() (CalendarConfig, error) {
	timeout, err := c.GetDuration("calendar.breaker.timeout")
	if err != nil {
		return CalendarConfig{}, err
	}

	return CalendarConfig{
		CalendarID:         c.GetString("calendar.calendar_id"),
		CredentialsFile:    c.GetString("calendar.credentials_file"),
		TokenFile:          c.GetString("calendar.token_file"),
		Scopes:             c.GetStringSlice("calendar.scopes"),
		BreakerMaxFailures: uint32(c.GetInt("calendar.breaker.max_failures")),
		BreakerTimeout:     timeout,
	}, nil
}

// GetStore returns the classification store configuration
func (c *Config) GetStore() (StoreConfig, error) {
	ttl, err := c.GetDuration("store.ttl")
	if err != nil {
		return StoreConfig{}, err
	}
	cleanupFreq, err := c.GetDuration("store.cleanup_frequency")
	if err != nil {
		return StoreConfig{}, err
	}

	return StoreConfig{
		Type:             strings.ToLower(c.GetString("store.type")),
		Enabled:          c.GetBool("store.enabled"),
		TTL:              ttl,
		CleanupFrequency: cleanupFreq,
		SQLitePath:       c.GetString("store.sqlite_path"),
		MySQLDSN:         c.GetString("store.mysql_dsn"),
	}, nil
}

// GetServer returns the SMTP ingress configuration
func (c *Config) GetServer() (ServerConfig, error) {
	readTimeout, err := c.GetDuration("server.read_timeout")
	if err != nil {
		return ServerConfig{}, err
	}
	handleTimeout, err := c.GetDuration("server.handle_timeout")
	if err != nil {
		return ServerConfig{}, err
	}

	return ServerConfig{
		ListenAddress:   c.GetString("server.listen_address"),
		Domain:          c.GetString("server.domain"),
		MaxMessageBytes: int64(c.GetInt("server.max_message_bytes")),
		ReadTimeout:     readTimeout,
		HandleTimeout:   handleTimeout,
		AuthUsername:    c.GetString("server.auth_username"),
		AuthPassword:    c.GetString("server.auth_password"),
		MetricsAddress:  c.GetString("server.metrics_address"),
	}, nil
}

// GetLogging returns the logger configuration
func (c *Config) GetLogging() LoggingConfig {
	return LoggingConfig{
		Level:  c.GetString("logging.level"),
		Format: c.GetString("logging.format"),
	}
}
