// Package pattern classifies token-creation events against a prioritized
// rule list and loads the rule list from disk.
package pattern

import (
	"sort"

	"github.com/BlueGuider/Price-Based-Bot/internal/domain"
)

// Match returns the highest-priority enabled pattern whose gas-price and
// gas-limit ranges both contain the event's observed values, or nil when
// nothing matches. The input slice is never mutated and the result does
// not depend on its order: candidates are ranked by (priority, name).
func Match(ev *domain.TokenCreationEvent, patterns []domain.TradingPattern) *domain.TradingPattern {
	candidates := make([]*domain.TradingPattern, 0, len(patterns))
	for i := range patterns {
		p := &patterns[i]
		if !p.Enabled {
			continue
		}
		if p.Matches(ev) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority < candidates[j].Priority
		}
		return candidates[i].Name < candidates[j].Name
	})

	matched := *candidates[0]
	return &matched
}
