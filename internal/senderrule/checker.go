package senderrule

import (
	"strings"

	"go.uber.org/zap"
)

// Checker matches sender addresses against domains that are always ignored
type Checker struct {
	domains []string
	logger  *zap.Logger
}

// NewChecker creates a new sender rule checker
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	normalizedDomains := make([]string, 0, len(domains))
	for _, domain := range domains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "" {
			continue
		}
		normalizedDomains = append(normalizedDomains, strings.TrimPrefix(domain, "@"))
	}

	if len(normalizedDomains) > 0 && logger != nil {
		logger.Info("Initialized sender rules", zap.Strings("ignore_domains", normalizedDomains))
	}

	return &Checker{
		domains: normalizedDomains,
		logger:  logger,
	}
}

// IsIgnored reports whether the sender's domain, or a parent of it, is on the ignore list
func (c *Checker) IsIgnored(from string) bool {
	if len(c.domains) == 0 {
		return false
	}

	at := strings.LastIndex(from, "@")
	if at < 0 || at == len(from)-1 {
		return false
	}
	domain := strings.ToLower(strings.TrimSpace(from[at+1:]))

	for _, ignored := range c.domains {
		if domain == ignored || strings.HasSuffix(domain, "."+ignored) {
			if c.logger != nil {
				c.logger.Debug("Sender domain is ignored",
					zap.String("domain", domain),
					zap.String("sender", from))
			}
			return true
		}
	}

	return false
}
