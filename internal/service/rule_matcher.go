package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/spec-kit/campus-support/internal/domain"
	"github.com/spec-kit/campus-support/internal/repository"
)

// RuleMatcher picks the escalation rule for a ticket's next level.
type RuleMatcher struct {
	rules repository.EscalationRuleRepository
}

// NewRuleMatcher binds a matcher to a rule repository, which may be
// transaction scoped.
func NewRuleMatcher(rules repository.EscalationRuleRepository) *RuleMatcher {
	return &RuleMatcher{rules: rules}
}

// FindRule returns the best active rule at nextLevel for the given domain and
// scope, or nil when none applies. Ties are broken by specificity and then ID
// so overlapping configuration never fails an escalation.
func (m *RuleMatcher) FindRule(ctx context.Context, domainID string, scopeID *string, nextLevel int) (*domain.EscalationRule, error) {
	candidates, err := m.rules.ListActiveCandidates(ctx, domainID, scopeID, nextLevel)
	if err != nil {
		return nil, fmt.Errorf("list escalation rules: %w", err)
	}

	matches := candidates[:0:0]
	for _, rule := range candidates {
		if ruleMatches(rule, domainID, scopeID, nextLevel) {
			matches = append(matches, rule)
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Level != b.Level {
			return a.Level < b.Level
		}
		if sa, sb := specificity(a), specificity(b); sa != sb {
			return sa < sb
		}
		return a.ID < b.ID
	})
	rule := matches[0]
	return &rule, nil
}

func ruleMatches(rule domain.EscalationRule, domainID string, scopeID *string, level int) bool {
	if !rule.IsActive || rule.Level != level {
		return false
	}
	if rule.DomainID != nil && *rule.DomainID != domainID {
		return false
	}
	if rule.ScopeID != nil && (scopeID == nil || *rule.ScopeID != *scopeID) {
		return false
	}
	return true
}

// specificity ranks rules from most to least specific.
func specificity(rule domain.EscalationRule) int {
	switch {
	case rule.DomainID != nil && rule.ScopeID != nil:
		return 0
	case rule.DomainID != nil:
		return 1
	case rule.ScopeID != nil:
		return 2
	default:
		return 3
	}
}
