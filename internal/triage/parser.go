package triage

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/mikey/llm-mail-assistant/internal/core"
)

// NoReasoning is the reasoning used when none can be recovered from model output
const NoReasoning = "No detailed reasoning provided"

var (
	classificationFieldPattern = regexp.MustCompile(`(?i)"classification"\s*:\s*"?\s*(ignore|notify|respond)\b`)
	labelTokenPattern          = regexp.MustCompile(`(?i)"?\b(ignore|notify|respond)\b"?`)
	reasoningFieldPattern      = regexp.MustCompile(`"reasoning"\s*:\s*"([^"]+)"`)
)

// ParsedOutput is the reasoning and label extracted from a classifier response
type ParsedOutput struct {
	Reasoning string
	Label     core.Label
	Source    core.ClassificationSource
}

type classificationResponse struct {
	Reasoning      string `json:"reasoning"`
	Classification string `json:"classification"`
}

// Parser turns raw classifier text into a label and reasoning
type Parser struct{}

// NewParser creates a new Parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse tries a strict decode first and falls back to pattern recovery
func (p *Parser) Parse(raw string) (*ParsedOutput, error) {
	if out, err := p.DecodeStrict(raw); err == nil {
		return out, nil
	}
	return p.Recover(raw)
}

// DecodeStrict decodes the response as a JSON object with a valid classification field
func (p *Parser) DecodeStrict(raw string) (*ParsedOutput, error) {
	text := strings.TrimSpace(raw)

	var resp classificationResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		// Try the outermost object embedded in surrounding prose
		jsonStart := strings.Index(text, "{")
		jsonEnd := strings.LastIndex(text, "}")
		if jsonStart < 0 || jsonEnd <= jsonStart {
			return nil, fmt.Errorf("failed to extract JSON from model output: %w", err)
		}
		resp = classificationResponse{}
		if err := json.Unmarshal([]byte(text[jsonStart:jsonEnd+1]), &resp); err != nil {
			return nil, fmt.Errorf("failed to parse model output as JSON: %w", err)
		}
	}

	label, ok := core.ParseLabel(resp.Classification)
	if !ok {
		return nil, fmt.Errorf("unknown classification %q: %w", resp.Classification, core.ErrMalformedOutput)
	}

	reasoning := strings.TrimSpace(resp.Reasoning)
	if reasoning == "" {
		reasoning = NoReasoning
	}

	return &ParsedOutput{
		Reasoning: reasoning,
		Label:     label,
		Source:    core.SourceModel,
	}, nil
}

// Recover scans free text for a classification label and a reasoning field
func (p *Parser) Recover(raw string) (*ParsedOutput, error) {
	var token string
	if m := classificationFieldPattern.FindStringSubmatch(raw); m != nil {
		token = m[1]
	} else if m := labelTokenPattern.FindStringSubmatch(raw); m != nil {
		token = m[1]
	}

	label, ok := core.ParseLabel(token)
	if !ok {
		return nil, fmt.Errorf("no classification label in model output: %w", core.ErrMalformedOutput)
	}

	reasoning := NoReasoning
	if m := reasoningFieldPattern.FindStringSubmatch(raw); m != nil && strings.TrimSpace(m[1]) != "" {
		reasoning = strings.TrimSpace(m[1])
	}

	return &ParsedOutput{
		Reasoning: reasoning,
		Label:     label,
		Source:    core.SourceRecovered,
	}, nil
}
