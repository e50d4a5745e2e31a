package agent

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mikey/llm-mail-assistant/internal/core"
	"go.uber.org/zap"
)

// DefaultMaxIterations bounds a routing session when no ceiling is configured
const DefaultMaxIterations = 2

// StoppedMessage is the output of a session stopped before any observation
const StoppedMessage = "Agent stopped due to iteration limit."

// Router runs the bounded think, act, observe loop for one email at a time
type Router struct {
	completer     core.Completer
	catalog       *Catalog
	profileName   string
	maxIterations int
	metrics       core.MetricsRecorder
	logger        *zap.Logger
}

// NewRouter creates a new Router
func NewRouter(
	completer core.Completer,
	catalog *Catalog,
	profileName string,
	maxIterations int,
	metrics core.MetricsRecorder,
	logger *zap.Logger,
) *Router {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if metrics == nil {
		metrics = core.NopMetrics{}
	}
	return &Router{
		completer:     completer,
		catalog:       catalog,
		profileName:   profileName,
		maxIterations: maxIterations,
		metrics:       metrics,
		logger:        logger,
	}
}

// Route drives the model through at most maxIterations steps for email
func (r *Router) Route(ctx context.Context, email *core.EmailMessage) (*core.AgentResult, error) {
	state := &core.AgentLoopState{
		SessionID: uuid.NewString(),
		State:     core.LoopStart,
	}
	logger := r.logger.With(zap.String("session_id", state.SessionID))
	systemPrompt := SystemPrompt(r.profileName, r.catalog.List())

	var steps []core.AgentStep
	var output string

	for state.Iteration < r.maxIterations {
		state.Iteration++
		state.State = core.LoopThinking

		raw, err := r.completer.Complete(ctx, systemPrompt, UserPrompt(email, steps))
		if err != nil {
			return nil, fmt.Errorf("failed to get next routing step: %w: %w", core.ErrCompletion, err)
		}

		step, err := ParseStep(raw)
		if err != nil {
			observation := fmt.Sprintf("Invalid response format: %v. Respond with a single JSON blob containing \"action\" and \"action_input\".", err)
			logger.Debug("Unparseable routing step", zap.Int("iteration", state.Iteration), zap.Error(err))
			state.State = core.LoopObserve
			state.LastObservation = observation
			steps = append(steps, core.AgentStep{
				Iteration:   state.Iteration,
				Action:      "invalid",
				Input:       raw,
				Observation: observation,
			})
			continue
		}

		if step.IsFinal() {
			state.Done = true
			state.State = core.LoopDone
			output = step.FinalText()
			break
		}

		state.State = core.LoopToolCall
		logger.Info("Invoking action",
			zap.Int("iteration", state.Iteration),
			zap.String("action", step.Action))

		observation, executed := r.catalog.Invoke(ctx, step.Action, step.Input)

		state.State = core.LoopObserve
		state.LastObservation = observation
		steps = append(steps, core.AgentStep{
			Iteration:   state.Iteration,
			Action:      step.Action,
			Input:       string(step.Input),
			Observation: observation,
			Executed:    executed,
		})
	}

	if !state.Done {
		state.State = core.LoopStopped
		output = state.LastObservation
		if output == "" {
			output = StoppedMessage
		}
	}

	logger.Info("Routing session finished",
		zap.String("state", string(state.State)),
		zap.Int("iterations", state.Iteration))
	r.metrics.ObserveRoutingSession(state.State, state.Iteration)

	return &core.AgentResult{
		SessionID:  state.SessionID,
		Output:     output,
		State:      state.State,
		Iterations: state.Iteration,
		Steps:      steps,
	}, nil
}
