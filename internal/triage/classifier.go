package triage

import (
	"context"
	"fmt"
	"time"

	"github.com/mikey/llm-mail-assistant/internal/core"
	"github.com/mikey/llm-mail-assistant/internal/utils"
	"go.uber.org/zap"
)

// Classifier assigns a triage label to an email using a completion model
type Classifier struct {
	completer     core.Completer
	parser        *Parser
	textProcessor *utils.TextProcessor
	profileName   string
	maxBodySize   int
	logger        *zap.Logger
}

// NewClassifier creates a new Classifier
func NewClassifier(
	completer core.Completer,
	textProcessor *utils.TextProcessor,
	profileName string,
	maxBodySize int,
	logger *zap.Logger,
) *Classifier {
	return &Classifier{
		completer:     completer,
		parser:        NewParser(),
		textProcessor: textProcessor,
		profileName:   profileName,
		maxBodySize:   maxBodySize,
		logger:        logger,
	}
}

// Classify asks the model for a label and parses its answer
func (c *Classifier) Classify(ctx context.Context, email *core.EmailMessage) (*core.Classification, error) {
	body := c.textProcessor.ProcessText(email.ThreadBody, c.maxBodySize)

	raw, err := c.completer.Complete(ctx, SystemPrompt(c.profileName), UserPrompt(email, body))
	if err != nil {
		return nil, fmt.Errorf("failed to classify email: %w: %w", core.ErrCompletion, err)
	}

	parsed, err := c.parser.Parse(raw)
	if err != nil {
		c.logger.Warn("Unparseable classifier output",
			zap.String("subject", email.Subject),
			zap.Int("output_size", len(raw)))
		return nil, err
	}

	if parsed.Source == core.SourceRecovered {
		c.logger.Debug("Classification recovered from free text",
			zap.String("classification", string(parsed.Label)))
	}

	return &core.Classification{
		Label:        parsed.Label,
		Reasoning:    parsed.Reasoning,
		Source:       parsed.Source,
		ClassifiedAt: time.Now(),
		ModelUsed:    c.completer.Model(),
	}, nil
}
