package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mikey/llm-mail-assistant/internal/core"
	"go.uber.org/zap"
)

// Tool invocation outcomes reported to metrics
const (
	OutcomeExecuted = "executed"
	OutcomeRejected = "rejected"
	OutcomeUnknown  = "unknown"
)

// Action is one side-effecting operation the router may invoke
type Action interface {
	// Name returns the identifier the model uses to select the action
	Name() string

	// Description tells the model when to use the action
	Description() string

	// Format returns an example invocation
	Format() string

	// Decode validates the structured input and builds a request
	Decode(input json.RawMessage) (core.ActionRequest, error)

	// Execute performs the action and reports the outcome as text
	Execute(ctx context.Context, req core.ActionRequest) string
}

// Catalog holds the fixed set of actions available to the router
type Catalog struct {
	mu      sync.RWMutex
	actions map[string]Action
	order   []string
	metrics core.MetricsRecorder
	logger  *zap.Logger
}

// NewCatalog creates a catalog with the given actions
func NewCatalog(metrics core.MetricsRecorder, logger *zap.Logger, actions ...Action) *Catalog {
	if metrics == nil {
		metrics = core.NopMetrics{}
	}
	c := &Catalog{
		actions: make(map[string]Action),
		metrics: metrics,
		logger:  logger,
	}
	for _, action := range actions {
		c.Register(action)
	}
	return c
}

// Register adds an action to the catalog
func (c *Catalog) Register(action Action) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.actions[action.Name()]; !exists {
		c.order = append(c.order, action.Name())
	}
	c.actions[action.Name()] = action
}

// Get retrieves an action by name
func (c *Catalog) Get(name string) (Action, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	action, ok := c.actions[name]
	if !ok {
		return nil, fmt.Errorf("action not found: %s", name)
	}
	return action, nil
}

// List returns the actions in registration order
func (c *Catalog) List() []Action {
	c.mu.RLock()
	defer c.mu.RUnlock()

	actions := make([]Action, 0, len(c.order))
	for _, name := range c.order {
		actions = append(actions, c.actions[name])
	}
	return actions
}

// Names returns the action names in registration order
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// Invoke validates and runs one action, returning the observation and whether it executed
func (c *Catalog) Invoke(ctx context.Context, name string, input json.RawMessage) (string, bool) {
	action, err := c.Get(strings.TrimSpace(name))
	if err != nil {
		c.metrics.ObserveToolInvocation(name, OutcomeUnknown)
		return fmt.Sprintf("Unknown action %q. Valid actions are: %s.", name, strings.Join(c.Names(), ", ")), false
	}

	req, err := action.Decode(input)
	if err != nil {
		c.logger.Debug("Rejected action input",
			zap.String("action", action.Name()),
			zap.Error(err))
		c.metrics.ObserveToolInvocation(action.Name(), OutcomeRejected)
		return fmt.Sprintf("Invalid input for %s: %v", action.Name(), err), false
	}

	c.metrics.ObserveToolInvocation(action.Name(), OutcomeExecuted)
	return action.Execute(ctx, req), true
}
