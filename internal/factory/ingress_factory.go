package factory

import (
	"fmt"

	"github.com/mikey/llm-mail-assistant/internal/adapters/ingress"
	"github.com/mikey/llm-mail-assistant/internal/config"
	"github.com/mikey/llm-mail-assistant/internal/core"
	"github.com/mikey/llm-mail-assistant/internal/ports"
	"go.uber.org/zap"
)

// IngressFactory creates mail sources based on configuration
type IngressFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *core.AssistantService
}

// NewIngressFactory creates a new ingress factory
func NewIngressFactory(cfg *config.Config, logger *zap.Logger, service *core.AssistantService) *IngressFactory {
	return &IngressFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
	}
}

// CreateMailSource creates the SMTP listener
func (f *IngressFactory) CreateMailSource() (ports.MailSource, error) {
	serverCfg, err := f.cfg.GetServer()
	if err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	return ingress.NewSMTPListener(f.service, ingress.ListenerOptions{
		Address:         serverCfg.ListenAddress,
		Domain:          serverCfg.Domain,
		MaxMessageBytes: serverCfg.MaxMessageBytes,
		ReadTimeout:     serverCfg.ReadTimeout,
		HandleTimeout:   serverCfg.HandleTimeout,
		AuthUsername:    serverCfg.AuthUsername,
		AuthPassword:    serverCfg.AuthPassword,
	}, f.logger), nil
}
