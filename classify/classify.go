// Package classify decides whether a message is a flight confirmation email
// and which carrier it came from, using an ordered heuristic rule table.
// False positives and negatives are expected; no confidence score exists.
package classify

import (
	"fmt"
	"regexp"
	"strings"

	"flightfwd/model"
)

// UnknownCarrier is the carrier label for unmatched messages.
const UnknownCarrier = "Unknown"

type compiledRule struct {
	carrier string
	generic bool
	from    []*regexp.Regexp
	subject []*regexp.Regexp
}

// Classifier evaluates messages against a compiled rule table.
type Classifier struct {
	rules []compiledRule
}

// New compiles the default rule table.
func New() (*Classifier, error) {
	return NewWithRules(Rules)
}

// NewWithRules compiles a custom rule table, preserving its order.
func NewWithRules(rules []Rule) (*Classifier, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		from, err := compilePatterns(rule.FromPatterns)
		if err != nil {
			return nil, fmt.Errorf("rule %s: compile from pattern: %w", rule.Carrier, err)
		}
		subject, err := compilePatterns(rule.SubjectPatterns)
		if err != nil {
			return nil, fmt.Errorf("rule %s: compile subject pattern: %w", rule.Carrier, err)
		}
		compiled = append(compiled, compiledRule{
			carrier: rule.Carrier,
			generic: rule.Generic,
			from:    from,
			subject: subject,
		})
	}
	return &Classifier{rules: compiled}, nil
}

// Classify evaluates rules in table order and returns on the first match.
// Generic rules match by subject alone; all others require both a sender and
// a subject pattern to match.
func (c *Classifier) Classify(msg *model.NormalizedMessage) model.ClassificationResult {
	from := strings.ToLower(msg.From)
	subject := strings.ToLower(msg.Subject)

	for _, rule := range c.rules {
		subjectMatch := matchAny(rule.subject, subject)
		if rule.generic {
			if subjectMatch {
				return model.ClassificationResult{Match: true, Carrier: rule.carrier, Message: msg}
			}
			continue
		}
		if subjectMatch && matchAny(rule.from, from) {
			return model.ClassificationResult{Match: true, Carrier: rule.carrier, Message: msg}
		}
	}

	return model.ClassificationResult{Carrier: UnknownCarrier, Message: msg}
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func matchAny(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
