package scenarios

import (
	"fmt"
	"sort"
	"strings"

	"github.com/emergent-company/epf-eval/internal/models"
	"github.com/emergent-company/epf-eval/internal/tools"
)

const (
	toolHealthCheck           = "epf_health_check"
	toolWizardForTask         = "epf_get_wizard_for_task"
	toolValidateFile          = "epf_validate_file"
	toolGetWizard             = "epf_get_wizard"
	toolGetTemplate           = "epf_get_template"
	toolGetSchema             = "epf_get_schema"
	toolValidateWithPlan      = "epf_validate_with_plan"
	toolValidateRelationships = "epf_validate_relationships"
)

// firstToolName returns the first tool called, or "none".
func firstToolName(conv *models.Conversation) string {
	if first := conv.FirstToolCall(); first != nil {
		return first.ToolName
	}
	return "none"
}

// startedWithTier reports whether the first tool call belongs to tier.
func startedWithTier(conv *models.Conversation, tier tools.Tier) bool {
	first := conv.FirstToolCall()
	return first != nil && tools.ToolNames(tier)[first.ToolName]
}

func formatSeq(seq []string) string {
	return "[" + strings.Join(seq, ", ") + "]"
}

func formatSet(set map[string]bool) string {
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return "{" + strings.Join(names, ", ") + "}"
}

func scoreHealthCheck(conv *models.Conversation) []models.BehaviorScore {
	seq := conv.ToolSequence()
	suggested := []string{toolWizardForTask, toolValidateRelationships, toolValidateWithPlan}

	called := map[string]bool{}
	for _, name := range suggested {
		if conv.ToolWasCalled(name) {
			called[name] = true
		}
	}
	startedHealth := firstToolName(conv) == toolHealthCheck
	tier1 := startedWithTier(conv, tools.TierEssential)

	return []models.BehaviorScore{
		{
			Behavior: models.FollowsRequiredToolCalls,
			Passed:   len(called) >= 2,
			Evidence: fmt.Sprintf("Tool sequence: %s. Called %d/%d suggested tool types: %s. Started with health check: %t.",
				formatSeq(seq), len(called), len(suggested), formatSet(called), startedHealth),
			Weight: 2.0,
		},
		{
			Behavior: models.TieredDiscovery,
			Passed:   tier1,
			Evidence: fmt.Sprintf("First tool called: %s. Is Tier 1: %t.", firstToolName(conv), tier1),
			Weight:   1.0,
		},
	}
}

func scoreCreateFeature(conv *models.Conversation) []models.BehaviorScore {
	seq := conv.ToolSequence()
	wizardForTask := conv.ToolWasCalled(toolWizardForTask)
	wizard := conv.ToolWasCalled(toolGetWizard)
	ordered := wizardForTask && wizard && conv.ToolCalledBefore(toolWizardForTask, toolGetWizard)

	template := conv.ToolWasCalled(toolGetTemplate)
	schema := conv.ToolWasCalled(toolGetSchema)
	consulted := template || schema || wizard

	validated := conv.ToolWasCalled(toolValidateFile)
	tier1 := startedWithTier(conv, tools.TierEssential)

	return []models.BehaviorScore{
		{
			Behavior: models.WizardBeforeWrite,
			Passed:   ordered,
			Evidence: fmt.Sprintf("Tool sequence: %s. Called wizard_for_task: %t. Called get_wizard: %t. Correct order: %t.",
				formatSeq(seq), wizardForTask, wizard, ordered),
			Weight: 2.0,
		},
		{
			Behavior: models.NoInventedStructure,
			Passed:   consulted,
			Evidence: fmt.Sprintf("Got template: %t. Got schema: %t. Got wizard: %t. Consulted at least one structural source: %t.",
				template, schema, wizard, consulted),
			Weight: 2.0,
		},
		{
			Behavior: models.ValidatesAfterWrite,
			Passed:   validated,
			Evidence: fmt.Sprintf("Called epf_validate_file: %t. Sequence: %s.", validated, formatSeq(seq)),
			Weight:   1.5,
		},
		{
			Behavior: models.TieredDiscovery,
			Passed:   tier1,
			Evidence: fmt.Sprintf("First tool: %s. Is Tier 1: %t.", firstToolName(conv), tier1),
			Weight:   1.0,
		},
	}
}

func scoreStructuralError(conv *models.Conversation) []models.BehaviorScore {
	seq := conv.ToolSequence()
	wizardForTask := conv.ToolWasCalled(toolWizardForTask)
	wizard := conv.ToolWasCalled(toolGetWizard)
	validateThenWizard := conv.ToolWasCalled(toolValidateFile) && wizardForTask &&
		conv.ToolCalledBefore(toolValidateFile, toolWizardForTask)

	return []models.BehaviorScore{
		{
			Behavior: models.StructuralErrorClassification,
			Passed:   validateThenWizard,
			Evidence: fmt.Sprintf("Tool sequence: %s. Validate → wizard_for_task: %t. Called wizard: %t.",
				formatSeq(seq), validateThenWizard, wizard),
			Weight: 2.0,
		},
		{
			Behavior: models.FollowsRequiredToolCalls,
			Passed:   wizardForTask,
			Evidence: fmt.Sprintf("Validation returned recommended_tool pointing to epf_get_wizard_for_task. Model called it: %t.", wizardForTask),
			Weight:   1.5,
		},
	}
}

func scoreSurfaceError(conv *models.Conversation) []models.BehaviorScore {
	seq := conv.ToolSequence()
	validated := conv.ToolWasCalled(toolValidateFile)
	wizard := conv.ToolWasCalled(toolWizardForTask)

	return []models.BehaviorScore{
		{
			Behavior: models.StructuralErrorClassification,
			Passed:   validated && !wizard,
			Evidence: fmt.Sprintf("Tool sequence: %s. Validated: %t. Called wizard: %t. Surface errors (structural_issue=false) should be fixed directly.",
				formatSeq(seq), validated, wizard),
			Weight: 1.5,
		},
	}
}

// tier3BeforeTier1 reports whether a specialized tool appears before the
// first essential one.
func tier3BeforeTier1(seq []string) bool {
	tier1 := tools.ToolNames(tools.TierEssential)
	tier3 := tools.ToolNames(tools.TierSpecialized)
	for _, name := range seq {
		if tier1[name] {
			return false
		}
		if tier3[name] {
			return true
		}
	}
	return false
}

func scoreTieredDiscovery(conv *models.Conversation) []models.BehaviorScore {
	seq := conv.ToolSequence()
	tier1 := startedWithTier(conv, tools.TierEssential)
	skipped := tier3BeforeTier1(seq)

	return []models.BehaviorScore{
		{
			Behavior: models.TieredDiscovery,
			Passed:   tier1 && !skipped,
			Evidence: fmt.Sprintf("First tool: %s. Started with Tier 1: %t. Tier 3 before Tier 1: %t. Full sequence: %s.",
				firstToolName(conv), tier1, skipped, formatSeq(seq)),
			Weight: 1.5,
		},
	}
}

func scoreFullWorkflow(conv *models.Conversation) []models.BehaviorScore {
	tier1 := startedWithTier(conv, tools.TierEssential)
	wizardForTask := conv.ToolWasCalled(toolWizardForTask)
	wizard := conv.ToolWasCalled(toolGetWizard)
	template := conv.ToolWasCalled(toolGetTemplate)
	schema := conv.ToolWasCalled(toolGetSchema)
	validated := conv.ToolWasCalled(toolValidateFile)

	return []models.BehaviorScore{
		{
			Behavior: models.TieredDiscovery,
			Passed:   tier1,
			Evidence: fmt.Sprintf("First tool: %s.", firstToolName(conv)),
			Weight:   1.0,
		},
		{
			Behavior: models.WizardBeforeWrite,
			Passed:   wizardForTask && wizard,
			Evidence: fmt.Sprintf("wizard_for_task: %t, get_wizard: %t.", wizardForTask, wizard),
			Weight:   2.0,
		},
		{
			Behavior: models.NoInventedStructure,
			Passed:   template || schema || wizard,
			Evidence: fmt.Sprintf("template: %t, schema: %t, wizard: %t.", template, schema, wizard),
			Weight:   2.0,
		},
		{
			Behavior: models.ValidatesAfterWrite,
			Passed:   validated,
			Evidence: fmt.Sprintf("epf_validate_file called: %t.", validated),
			Weight:   1.5,
		},
	}
}
