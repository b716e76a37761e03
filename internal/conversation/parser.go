// Package conversation provides the plain-text cook mode: command parsing,
// the line loop, and user notification.
package conversation

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/hammamikhairi/ottoflow/internal/domain"
	"github.com/hammamikhairi/ottoflow/internal/logger"
)

// Compile-time interface check.
var _ domain.CommandParser = (*KeywordParser)(nil)

// KeywordParser matches user input to intents using keywords and simple patterns.
type KeywordParser struct {
	log      *logger.Logger
	patterns []patternRule
}

type patternRule struct {
	regex  *regexp.Regexp
	intent domain.IntentType
}

// NewKeywordParser creates a keyword-based command parser.
func NewKeywordParser(log *logger.Logger) *KeywordParser {
	p := &KeywordParser{log: log}
	// Step commands capture an optional step number in group 1.
	p.patterns = []patternRule{
		{regexp.MustCompile(`(?i)^(?:done|did|d|x|check|finished?)(?:\s+(?:step\s+)?#?(\d+))?$`), domain.IntentDone},
		{regexp.MustCompile(`(?i)^#?(\d+)$`), domain.IntentDone},
		{regexp.MustCompile(`(?i)^(?:undo|u|reopen|uncheck)(?:\s+(?:step\s+)?#?(\d+))?$`), domain.IntentUndo},
		{regexp.MustCompile(`(?i)^(board|b|steps|list|ls|show)$`), domain.IntentBoard},
		{regexp.MustCompile(`(?i)^(ready|r|next|what now\??|what'?s next\??)$`), domain.IntentReady},
		{regexp.MustCompile(`(?i)^(diagram|mermaid|graph|flow)$`), domain.IntentDiagram},
		{regexp.MustCompile(`(?i)^(status|progress|where|info)$`), domain.IntentStatus},
		{regexp.MustCompile(`(?i)^(help|h|\?)$`), domain.IntentHelp},
		{regexp.MustCompile(`(?i)^(quit|exit|stop|q|bye)$`), domain.IntentQuit},
	}
	return p
}

// Parse converts user input into an intent. Input that matches nothing is
// IntentUnknown, not an error.
func (p *KeywordParser) Parse(ctx context.Context, input string) (*domain.Intent, error) {
	trimmed := strings.Join(strings.Fields(input), " ")
	if trimmed == "" {
		return &domain.Intent{Type: domain.IntentUnknown}, nil
	}

	p.log.Debug("parsing input: %q", trimmed)

	for _, rule := range p.patterns {
		m := rule.regex.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		intent := &domain.Intent{Type: rule.intent, Raw: trimmed}
		if rule.intent == domain.IntentDone || rule.intent == domain.IntentUndo {
			if len(m) > 1 && m[1] != "" {
				n, err := strconv.Atoi(m[1])
				if err != nil {
					// Only digits reach here; Atoi fails on overflow.
					return &domain.Intent{Type: domain.IntentUnknown, Raw: trimmed}, nil
				}
				intent.Step = n
			}
		}
		p.log.Debug("matched intent: %s (step=%d)", intent.Type, intent.Step)
		return intent, nil
	}

	p.log.Debug("no match, returning unknown intent")
	return &domain.Intent{Type: domain.IntentUnknown, Raw: trimmed}, nil
}
