package factory

import (
	"fmt"

	"github.com/mikey/llm-mail-assistant/internal/adapters/gcal"
	"github.com/mikey/llm-mail-assistant/internal/adapters/mailer"
	"github.com/mikey/llm-mail-assistant/internal/config"
	"github.com/mikey/llm-mail-assistant/internal/core"
	"go.uber.org/zap"
)

// TransportFactory creates the mail and calendar collaborators
type TransportFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewTransportFactory creates a new transport factory
func NewTransportFactory(cfg *config.Config, logger *zap.Logger) *TransportFactory {
	return &TransportFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateMailTransport creates the outbound mail transport
func (f *TransportFactory) CreateMailTransport() (core.MailTransport, error) {
	if f.cfg.GetAssistant().DryRun {
		f.logger.Info("Dry run enabled, outbound mail is logged only")
		return mailer.NewLogMailer(f.logger), nil
	}

	smtpCfg, err := f.cfg.GetSMTP()
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP configuration: %w", err)
	}

	m, err := mailer.NewSMTPMailer(mailer.Options{
		Host:     smtpCfg.Host,
		Port:     smtpCfg.Port,
		Username: smtpCfg.Username,
		Password: smtpCfg.Password,
		From:     smtpCfg.From,
		Security: smtpCfg.Security,
		Helo:     smtpCfg.Helo,
		Timeout:  smtpCfg.Timeout,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP mailer: %w", err)
	}
	return m, nil
}

// CreateTokenProvider creates the file-backed calendar credential provider
func (f *TransportFactory) CreateTokenProvider() (*gcal.FileTokenProvider, error) {
	calCfg, err := f.cfg.GetCalendar()
	if err != nil {
		return nil, fmt.Errorf("invalid calendar configuration: %w", err)
	}
	return gcal.NewFileTokenProvider(calCfg.CredentialsFile, calCfg.TokenFile, calCfg.Scopes, f.logger), nil
}

// CreateCalendar creates the calendar service
func (f *TransportFactory) CreateCalendar() (core.CalendarService, error) {
	if f.cfg.GetAssistant().DryRun {
		f.logger.Info("Dry run enabled, calendar writes are logged only")
		return gcal.NewLogCalendar(f.logger), nil
	}

	calCfg, err := f.cfg.GetCalendar()
	if err != nil {
		return nil, fmt.Errorf("invalid calendar configuration: %w", err)
	}

	provider := gcal.NewFileTokenProvider(calCfg.CredentialsFile, calCfg.TokenFile, calCfg.Scopes, f.logger)
	if !provider.HasToken() {
		f.logger.Warn("No cached calendar token, run the triage CLI with -authorize",
			zap.String("token_file", calCfg.TokenFile))
	}

	return gcal.NewClient(provider, gcal.ClientOptions{
		BreakerMaxFailures: calCfg.BreakerMaxFailures,
		BreakerTimeout:     calCfg.BreakerTimeout,
	}, f.logger), nil
}
