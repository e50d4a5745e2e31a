package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Summaries reported for emails that do not reach the router
const (
	NotifySummary    = "Notify: This is important but no reply needed."
	IgnoreSummary    = "Ignore: No action taken."
	DuplicateSummary = "Already handled: No action taken."
)

// SenderFilter decides whether a sender is ignored without consulting the model
type SenderFilter interface {
	IsIgnored(from string) bool
}

// AssistantService classifies incoming email and routes the ones that need a response
type AssistantService struct {
	classifier   Classifier
	router       Router
	store        ClassificationRepository
	senderFilter SenderFilter
	metrics      MetricsRecorder
	logger       *zap.Logger
	storeEnabled bool
	storeTTL     time.Duration
	flights      singleflight.Group
}

// NewAssistantService creates a new assistant service
func NewAssistantService(
	classifier Classifier,
	router Router,
	store ClassificationRepository,
	senderFilter SenderFilter,
	metrics MetricsRecorder,
	logger *zap.Logger,
	storeEnabled bool,
	storeTTL time.Duration,
) *AssistantService {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &AssistantService{
		classifier:   classifier,
		router:       router,
		store:        store,
		senderFilter: senderFilter,
		metrics:      metrics,
		logger:       logger,
		storeEnabled: storeEnabled && store != nil,
		storeTTL:     storeTTL,
	}
}

// HandleEmail triages one email and, when it needs a response, runs the router
func (s *AssistantService) HandleEmail(ctx context.Context, email *EmailMessage) (*Outcome, error) {
	sender := email.SenderAddress()

	// Sender rules short-circuit the model
	if s.senderFilter != nil && s.senderFilter.IsIgnored(sender) {
		s.logger.Info("Ignoring email from filtered sender",
			zap.String("sender", sender),
			zap.String("action", "sender_rule"))

		classification := &Classification{
			Label:        LabelIgnore,
			Reasoning:    "Sender domain is on the ignore list",
			Source:       SourceSenderRule,
			ClassifiedAt: time.Now(),
			ModelUsed:    "sender_rule",
		}
		s.metrics.ObserveClassification(classification.Label, classification.Source)
		return &Outcome{Classification: classification, Summary: IgnoreSummary}, nil
	}

	fingerprint := email.Fingerprint()

	// Concurrent deliveries of one email share a single classification and routing
	result, err, shared := s.flights.Do(fingerprint, func() (interface{}, error) {
		return s.handle(ctx, email, sender, fingerprint)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("Delivery shared in-flight handling",
			zap.String("sender", sender),
			zap.String("fingerprint", fingerprint))
	}
	return result.(*Outcome), nil
}

// handle runs the store lookup, classification and routing for one fingerprint
func (s *AssistantService) handle(ctx context.Context, email *EmailMessage, sender, fingerprint string) (*Outcome, error) {
	// A stored classification means this email was already handled
	if s.storeEnabled {
		entry, err := s.store.Get(ctx, fingerprint)
		switch {
		case err == nil:
			s.logger.Debug("Classification found in store",
				zap.String("sender", sender),
				zap.String("classification", string(entry.Label)))

			classification := &Classification{
				Label:        entry.Label,
				Reasoning:    entry.Reasoning,
				Source:       SourceStore,
				ClassifiedAt: entry.ClassifiedAt,
				ModelUsed:    "store",
			}
			s.metrics.ObserveClassification(classification.Label, classification.Source)
			return &Outcome{Classification: classification, Summary: DuplicateSummary}, nil
		case !errors.Is(err, ErrNotFound):
			s.logger.Warn("Failed to read classification store", zap.Error(err))
		}
	}

	classification, err := s.classifier.Classify(ctx, email)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveClassification(classification.Label, classification.Source)

	s.logger.Info("Email classified",
		zap.String("sender", sender),
		zap.String("subject", email.Subject),
		zap.String("classification", string(classification.Label)),
		zap.String("source", string(classification.Source)))

	if s.storeEnabled {
		entry := &StoredClassification{
			Fingerprint:  fingerprint,
			Sender:       sender,
			Label:        classification.Label,
			Reasoning:    classification.Reasoning,
			ClassifiedAt: classification.ClassifiedAt,
			ExpiresAt:    time.Now().Add(s.storeTTL),
		}
		if err := s.store.Set(ctx, entry); err != nil {
			s.logger.Error("Failed to store classification", zap.Error(err))
		}
	}

	outcome := &Outcome{Classification: classification}

	switch classification.Label {
	case LabelRespond:
		result, err := s.router.Route(ctx, email)
		if err != nil {
			// Let a redelivery classify and route again
			if s.storeEnabled {
				if delErr := s.store.Delete(ctx, fingerprint); delErr != nil {
					s.logger.Error("Failed to remove classification", zap.Error(delErr))
				}
			}
			return nil, fmt.Errorf("failed to route email: %w", err)
		}
		outcome.Agent = result
		outcome.Summary = result.Output
	case LabelNotify:
		outcome.Summary = NotifySummary
	default:
		outcome.Summary = IgnoreSummary
	}

	return outcome, nil
}
