package governance

import (
	"context"
	"fmt"
	"os"
	"path"

	"gopkg.in/yaml.v3"
)

// Rule effects.
const (
	EffectAllow = "allow"
	EffectDeny  = "deny"
)

// Rule matches requests by vault, classification and client name globs
// (path.Match syntax). An empty list matches anything.
type Rule struct {
	Name            string   `yaml:"name"`
	Vaults          []string `yaml:"vaults"`
	Classifications []string `yaml:"classifications"`
	Clients         []string `yaml:"clients"`
	Effect          string   `yaml:"effect"`
	Scope           string   `yaml:"scope"`
}

// RuleSet is the content of a rules file. Rules are evaluated in order and the
// first match wins.
type RuleSet struct {
	Default string `yaml:"default"`
	Rules   []Rule `yaml:"rules"`
}

// ParseRuleSet decodes and validates a YAML rule set.
func ParseRuleSet(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("failed to parse governance rules: %w", err)
	}

	if rs.Default == "" {
		rs.Default = EffectDeny
	}
	if rs.Default != EffectAllow && rs.Default != EffectDeny {
		return nil, fmt.Errorf("invalid default effect %q", rs.Default)
	}

	for i, rule := range rs.Rules {
		if rule.Effect != EffectAllow && rule.Effect != EffectDeny {
			return nil, fmt.Errorf("rule %d (%s): invalid effect %q", i, rule.Name, rule.Effect)
		}
		for _, patterns := range [][]string{rule.Vaults, rule.Classifications, rule.Clients} {
			for _, p := range patterns {
				if _, err := path.Match(p, ""); err != nil {
					return nil, fmt.Errorf("rule %d (%s): bad pattern %q: %w", i, rule.Name, p, err)
				}
			}
		}
	}
	return &rs, nil
}

// LoadRuleSet reads a rule set from a file.
func LoadRuleSet(filename string) (*RuleSet, error) {
	data, err := os.ReadFile(filename) //nolint:gosec // operator supplied path
	if err != nil {
		return nil, fmt.Errorf("failed to read governance rules: %w", err)
	}
	return ParseRuleSet(data)
}

// RuleEvaluator evaluates a static RuleSet.
type RuleEvaluator struct {
	rules *RuleSet
}

// NewRuleEvaluator creates a RuleEvaluator.
func NewRuleEvaluator(rules *RuleSet) *RuleEvaluator {
	return &RuleEvaluator{rules: rules}
}

// Evaluate implements Evaluator.
func (e *RuleEvaluator) Evaluate(_ context.Context, req Request) (Decision, error) {
	for _, rule := range e.rules.Rules {
		if !matchAny(rule.Vaults, req.VaultName) ||
			!matchAny(rule.Classifications, string(req.Classification)) ||
			!matchAny(rule.Clients, req.Requester.ClientName) {
			continue
		}
		if rule.Effect == EffectAllow {
			return Allow(rule.Scope), nil
		}
		return Deny(ReasonPolicyDenied), nil
	}

	if e.rules.Default == EffectAllow {
		return Allow(""), nil
	}
	return Deny(ReasonNoMatchingRule), nil
}

func matchAny(patterns []string, value string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if ok, _ := path.Match(p, value); ok {
			return true
		}
	}
	return false
}
