package di

import (
	"go.uber.org/dig"

	"github.com/mikey/llm-mail-assistant/internal/config"
	"github.com/mikey/llm-mail-assistant/internal/core"
	"github.com/mikey/llm-mail-assistant/internal/factory"
	"github.com/mikey/llm-mail-assistant/internal/logging"
	"github.com/mikey/llm-mail-assistant/internal/metrics"
	"github.com/mikey/llm-mail-assistant/internal/ports"
)

// BuildContainer creates and configures a dependency injection container for the daemon
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register metrics
	if err := container.Provide(metrics.NewRecorder); err != nil {
		return nil, err
	}
	if err := container.Provide(func(r *metrics.Recorder) core.MetricsRecorder {
		return r
	}); err != nil {
		return nil, err
	}

	if err := provideAssistant(container); err != nil {
		return nil, err
	}

	// Register classification store
	if err := container.Provide(func(f *factory.StoreFactory) (core.ClassificationRepository, error) {
		return f.CreateRepository()
	}); err != nil {
		return nil, err
	}

	// Register mail source
	if err := container.Provide(factory.NewIngressFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.IngressFactory) (ports.MailSource, error) {
		return f.CreateMailSource()
	}); err != nil {
		return nil, err
	}

	return container, nil
}
