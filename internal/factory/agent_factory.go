package factory

import (
	"fmt"

	"github.com/mikey/llm-mail-assistant/internal/agent"
	"github.com/mikey/llm-mail-assistant/internal/availability"
	"github.com/mikey/llm-mail-assistant/internal/config"
	"github.com/mikey/llm-mail-assistant/internal/core"
	"github.com/mikey/llm-mail-assistant/internal/senderrule"
	"github.com/mikey/llm-mail-assistant/internal/triage"
	"github.com/mikey/llm-mail-assistant/internal/utils"
	"go.uber.org/zap"
)

// AssistantFactory wires the classifier, the action catalog and the router
type AssistantFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewAssistantFactory creates a new assistant factory
func NewAssistantFactory(cfg *config.Config, logger *zap.Logger) *AssistantFactory {
	return &AssistantFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateClassifier creates the triage classifier
func (f *AssistantFactory) CreateClassifier(completer core.Completer, textProcessor *utils.TextProcessor) core.Classifier {
	return triage.NewClassifier(
		completer,
		textProcessor,
		f.cfg.GetAssistant().ProfileName,
		f.cfg.GetLLM().MaxBodySize,
		f.logger,
	)
}

// CreateSenderFilter creates the sender rule checker
func (f *AssistantFactory) CreateSenderFilter() core.SenderFilter {
	domains := f.cfg.GetTriage().IgnoreDomains
	if len(domains) > 0 {
		f.logger.Info("Loaded ignored sender domains", zap.Strings("domains", domains))
	}
	return senderrule.NewChecker(domains, f.logger)
}

// CreateCalculator creates the availability calculator for the configured zone
func (f *AssistantFactory) CreateCalculator() (*availability.Calculator, error) {
	assistantCfg := f.cfg.GetAssistant()
	loc, err := assistantCfg.Location()
	if err != nil {
		return nil, err
	}

	calc, err := availability.NewCalculator(loc, assistantCfg.WorkStart, assistantCfg.WorkEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to create availability calculator: %w", err)
	}
	return calc, nil
}

// CreateRouter creates the action catalog and the bounded router over it
func (f *AssistantFactory) CreateRouter(
	completer core.Completer,
	transport core.MailTransport,
	calendar core.CalendarService,
	metrics core.MetricsRecorder,
) (core.Router, error) {
	assistantCfg := f.cfg.GetAssistant()
	if assistantCfg.ManagerAddress == "" {
		return nil, fmt.Errorf("assistant.manager_address is required")
	}

	calCfg, err := f.cfg.GetCalendar()
	if err != nil {
		return nil, fmt.Errorf("invalid calendar configuration: %w", err)
	}

	calc, err := f.CreateCalculator()
	if err != nil {
		return nil, err
	}

	catalog := agent.NewCatalog(metrics, f.logger,
		agent.NewNotifyAction(transport, assistantCfg.ManagerAddress, f.logger),
		agent.NewScheduleMeetingAction(calendar, calc.Location(), calCfg.CalendarID, assistantCfg.ManagerAddress, f.logger),
		agent.NewCheckAvailabilityAction(calendar, calc, calCfg.CalendarID, f.logger),
	)

	return agent.NewRouter(
		completer,
		catalog,
		assistantCfg.ProfileName,
		f.cfg.GetAgent().MaxIterations,
		metrics,
		f.logger,
	), nil
}

// CreateService creates the assistant service
func (f *AssistantFactory) CreateService(
	classifier core.Classifier,
	router core.Router,
	store core.ClassificationRepository,
	senderFilter core.SenderFilter,
	metrics core.MetricsRecorder,
) (*core.AssistantService, error) {
	storeCfg, err := f.cfg.GetStore()
	if err != nil {
		return nil, fmt.Errorf("invalid store configuration: %w", err)
	}

	return core.NewAssistantService(
		classifier,
		router,
		store,
		senderFilter,
		metrics,
		f.logger,
		storeCfg.Enabled,
		storeCfg.TTL,
	), nil
}
