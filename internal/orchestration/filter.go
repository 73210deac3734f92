package orchestration

import (
	"fmt"
	"path/filepath"

	"github.com/emergent-company/epf-eval/internal/scenarios"
)

// SelectScenarios resolves ids or glob patterns against candidates, matching
// either the scenario ID or its Name. Results follow pattern order, then
// candidate order, without duplicates. An empty patterns slice returns every
// candidate. A pattern matching nothing is an unknown scenario.
func SelectScenarios(candidates []*scenarios.Scenario, patterns []string) ([]*scenarios.Scenario, error) {
	if len(patterns) == 0 {
		return candidates, nil
	}

	seen := map[string]bool{}
	var matched []*scenarios.Scenario
	for _, p := range patterns {
		hits := 0
		for _, s := range candidates {
			ok, err := matches(s, p)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			hits++
			if !seen[s.ID] {
				seen[s.ID] = true
				matched = append(matched, s)
			}
		}
		if hits == 0 {
			_, err := scenarios.Get(p)
			return nil, err
		}
	}
	return matched, nil
}

// matches reports whether a scenario's ID or Name matches pattern.
func matches(s *scenarios.Scenario, pattern string) (bool, error) {
	for _, name := range []string{s.ID, s.Name} {
		ok, err := filepath.Match(pattern, name)
		if err != nil {
			return false, fmt.Errorf("invalid scenario pattern %q: %w", pattern, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
