package ingress

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mikey/llm-mail-assistant/internal/core"
	"go.uber.org/zap"
)

// CLISource runs the assistant on a single message read from a file or stdin
type CLISource struct {
	handler EmailHandler
	logger  *zap.Logger
	out     io.Writer
	verbose bool
}

// NewCLISource creates a new CLI source writing its report to out
func NewCLISource(handler EmailHandler, out io.Writer, verbose bool, logger *zap.Logger) *CLISource {
	return &CLISource{
		handler: handler,
		logger:  logger,
		out:     out,
		verbose: verbose,
	}
}

// Process reads one RFC 5322 message from r, handles it and prints the outcome
func (c *CLISource) Process(ctx context.Context, r io.Reader) (*core.Outcome, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}

	email, err := ParseMessage(raw, Envelope{})
	if err != nil {
		c.logger.Warn("Failed to fully parse message", zap.Error(err))
	}

	fmt.Fprintf(c.out, "\n=== Email Summary ===\n")
	fmt.Fprintf(c.out, "From: %s\n", email.Author)
	fmt.Fprintf(c.out, "To: %s\n", email.Recipient)
	fmt.Fprintf(c.out, "Subject: %s\n", email.Subject)
	fmt.Fprintf(c.out, "Body length: %d bytes\n", len(email.ThreadBody))

	if c.verbose {
		preview := email.ThreadBody
		if len(preview) > 500 {
			preview = preview[:500] + "..."
		}
		fmt.Fprintf(c.out, "\nBody preview:\n%s\n", preview)
	}

	startTime := time.Now()
	outcome, err := c.handler.HandleEmail(ctx, email)
	if err != nil {
		fmt.Fprintf(c.out, "\nError: %v\n", err)
		return nil, err
	}

	c.Report(outcome, time.Since(startTime))
	return outcome, nil
}

// Report prints the classification and, when present, the agent output
func (c *CLISource) Report(outcome *core.Outcome, elapsed time.Duration) {
	fmt.Fprintf(c.out, "\n=== Results ===\n")
	fmt.Fprintf(c.out, "Classification: %s\n", outcome.Classification.Label)
	fmt.Fprintf(c.out, "Reasoning: %s\n", outcome.Classification.Reasoning)
	fmt.Fprintf(c.out, "Source: %s\n", outcome.Classification.Source)

	if outcome.Agent != nil {
		fmt.Fprintf(c.out, "Agent Output:\n%s\n", outcome.Agent.Output)
		if c.verbose {
			for _, step := range outcome.Agent.Steps {
				fmt.Fprintf(c.out, "  [%d] %s %s -> %s\n", step.Iteration, step.Action, step.Input, step.Observation)
			}
		}
	} else {
		fmt.Fprintf(c.out, "%s\n", outcome.Summary)
	}

	fmt.Fprintf(c.out, "Processing time: %v\n", elapsed)
}
