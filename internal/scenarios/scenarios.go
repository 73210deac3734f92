// Package scenarios holds the eval tasks: a user prompt, the behaviors under
// test, an optional fixture resolver, and a scorer over the finished
// transcript.
package scenarios

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/emergent-company/epf-eval/internal/models"
	"github.com/emergent-company/epf-eval/internal/tools"
)

// SystemPrompt is shared by every scenario. It is a condensed form of the
// EPF agent instructions.
//
//go:embed system_prompt.md
var SystemPrompt string

// ErrUnknownScenario is returned by Get for ids that are not registered.
var ErrUnknownScenario = errors.New("unknown scenario")

// Resolver answers a tool call for one scenario. The registry is passed in
// so scenarios never reach for shared state.
type Resolver func(reg *tools.Registry, tool string, args map[string]any) string

// ScoreFunc judges a finished conversation.
type ScoreFunc func(conv *models.Conversation) []models.BehaviorScore

// Scenario is one immutable eval task.
type Scenario struct {
	ID          string
	Name        string
	Description string
	UserMessage string
	Behaviors   []models.ComplianceBehavior

	// FixtureResolver is optional; nil uses the registry's default fixtures.
	FixtureResolver Resolver

	// Tools is optional; nil offers the whole catalog.
	Tools []tools.ToolDef

	Score ScoreFunc
}

// ToolDefs returns the tools offered to the model.
func (s *Scenario) ToolDefs() []tools.ToolDef {
	if s.Tools == nil {
		return tools.All()
	}
	return s.Tools
}

// ResolverFor binds the scenario's resolver to reg.
func (s *Scenario) ResolverFor(reg *tools.Registry) tools.ResolveFunc {
	if s.FixtureResolver == nil {
		return reg.Resolve
	}
	return func(tool string, args map[string]any) string {
		return s.FixtureResolver(reg, tool, args)
	}
}

// Run scores conv, returning nil when the scenario has no scorer.
func (s *Scenario) Run(conv *models.Conversation) []models.BehaviorScore {
	if s.Score == nil {
		return nil
	}
	return s.Score(conv)
}

var registry = []*Scenario{
	healthCheckCompliance,
	createFeatureWizardFirst,
	structuralErrorWizard,
	surfaceErrorDirectFix,
	tieredDiscovery,
	fullFeatureWorkflow,
}

// All returns every scenario in registration order.
func All() []*Scenario {
	out := make([]*Scenario, len(registry))
	copy(out, registry)
	return out
}

// IDs returns every scenario id in registration order.
func IDs() []string {
	ids := make([]string, len(registry))
	for i, s := range registry {
		ids[i] = s.ID
	}
	return ids
}

// Get looks up a scenario by id.
func Get(id string) (*Scenario, error) {
	for _, s := range registry {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s. Available: %s", ErrUnknownScenario, id, strings.Join(IDs(), ", "))
}
