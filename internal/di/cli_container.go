package di

import (
	"flag"
	"os"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-mail-assistant/internal/adapters/gcal"
	"github.com/mikey/llm-mail-assistant/internal/adapters/ingress"
	"github.com/mikey/llm-mail-assistant/internal/config"
	"github.com/mikey/llm-mail-assistant/internal/core"
	"github.com/mikey/llm-mail-assistant/internal/factory"
	"github.com/mikey/llm-mail-assistant/internal/logging"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Input flags
	InputFile  string
	ConfigFile string

	// Behaviour flags
	Provider  string
	Profile   string
	DryRun    bool
	Authorize bool

	// Logging flags
	Verbose bool
	JSONLog bool
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	flag.StringVar(&flags.InputFile, "file", "", "Input email file (use stdin if not specified)")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (default search path if not specified)")
	flag.StringVar(&flags.Provider, "provider", "", "LLM provider override (openai, groq, gemini, bedrock)")
	flag.StringVar(&flags.Profile, "profile", "", "Name of the person the assistant works for")
	flag.BoolVar(&flags.DryRun, "dry-run", false, "Log outbound mail and calendar writes instead of performing them")
	flag.BoolVar(&flags.Authorize, "authorize", false, "Run the calendar consent flow and cache the token")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")

	flag.Parse()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		cfg, err := loadCLIConfig(flags)
		if err != nil {
			return nil, err
		}
		if used := cfg.GetViper().ConfigFileUsed(); used != "" {
			logger.Info("Loaded configuration from file", zap.String("file", used))
		}
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	// Register metrics, discarded for one-shot runs
	if err := container.Provide(func() core.MetricsRecorder {
		return core.NopMetrics{}
	}); err != nil {
		return nil, err
	}

	if err := provideAssistant(container); err != nil {
		return nil, err
	}

	// Register an in-memory store; repeated runs are independent
	if err := container.Provide(func(f *factory.StoreFactory) (core.ClassificationRepository, error) {
		return f.CreateRepository()
	}); err != nil {
		return nil, err
	}

	// Register calendar credential provider for -authorize
	if err := container.Provide(func(f *factory.TransportFactory) (*gcal.FileTokenProvider, error) {
		return f.CreateTokenProvider()
	}); err != nil {
		return nil, err
	}

	// Register CLI source
	if err := container.Provide(func(service *core.AssistantService, flags *CLIFlags, logger *zap.Logger) *ingress.CLISource {
		return ingress.NewCLISource(service, os.Stdout, flags.Verbose, logger)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// loadCLIConfig loads the configuration and applies command line overrides
func loadCLIConfig(flags *CLIFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.ConfigFile != "" {
		if err := config.LoadDotEnv(".env"); err != nil {
			return nil, err
		}
		cfg, err = config.NewFromFile(flags.ConfigFile)
	} else {
		cfg, err = config.New()
	}
	if err != nil {
		return nil, err
	}

	applyCLIOverrides(cfg, flags)
	return cfg, nil
}

// applyCLIOverrides sets the values the CLI controls over the loaded configuration
func applyCLIOverrides(cfg *config.Config, flags *CLIFlags) {
	if flags.Provider != "" {
		cfg.Set("llm.provider", flags.Provider)
	}
	if flags.Profile != "" {
		cfg.Set("assistant.profile_name", flags.Profile)
	}
	if flags.DryRun {
		cfg.Set("assistant.dry_run", true)
	}

	cfg.Set("store.type", "memory")
	cfg.Set("store.enabled", false)
	cfg.Set("store.cleanup_frequency", "0s")
}
