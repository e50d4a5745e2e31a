package di

import (
	"go.uber.org/dig"

	"github.com/mikey/llm-mail-assistant/internal/core"
	"github.com/mikey/llm-mail-assistant/internal/factory"
	"github.com/mikey/llm-mail-assistant/internal/utils"
)

// provideAssistant registers the factories and components shared by the daemon and the CLI
func provideAssistant(container *dig.Container) error {
	// Register factories and the text processor
	for _, constructor := range []interface{}{
		factory.NewLLMFactory,
		factory.NewStoreFactory,
		factory.NewTransportFactory,
		factory.NewAssistantFactory,
		utils.NewTextProcessor,
	} {
		if err := container.Provide(constructor); err != nil {
			return err
		}
	}

	// Register completion client
	if err := container.Provide(func(f *factory.LLMFactory) (core.Completer, error) {
		return f.CreateCompleter()
	}); err != nil {
		return err
	}

	// Register mail and calendar collaborators
	if err := container.Provide(func(f *factory.TransportFactory) (core.MailTransport, error) {
		return f.CreateMailTransport()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.TransportFactory) (core.CalendarService, error) {
		return f.CreateCalendar()
	}); err != nil {
		return err
	}

	// Register classifier, sender rules and router
	if err := container.Provide(func(f *factory.AssistantFactory, completer core.Completer, tp *utils.TextProcessor) core.Classifier {
		return f.CreateClassifier(completer, tp)
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.AssistantFactory) core.SenderFilter {
		return f.CreateSenderFilter()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(
		f *factory.AssistantFactory,
		completer core.Completer,
		transport core.MailTransport,
		calendar core.CalendarService,
		metrics core.MetricsRecorder,
	) (core.Router, error) {
		return f.CreateRouter(completer, transport, calendar, metrics)
	}); err != nil {
		return err
	}

	// Register assistant service
	return container.Provide(func(
		f *factory.AssistantFactory,
		classifier core.Classifier,
		router core.Router,
		store core.ClassificationRepository,
		senderFilter core.SenderFilter,
		metrics core.MetricsRecorder,
	) (*core.AssistantService, error) {
		return f.CreateService(classifier, router, store, senderFilter, metrics)
	})
}
