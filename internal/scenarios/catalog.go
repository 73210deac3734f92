package scenarios

import (
	"github.com/emergent-company/epf-eval/internal/models"
	"github.com/emergent-company/epf-eval/internal/tools"
)

var healthCheckCompliance = &Scenario{
	ID:   "health-check-compliance",
	Name: "Health Check → Follow Suggestions",
	Description: "Tests whether the model runs a health check and follows the " +
		"required_next_tool_calls in the response.",
	UserMessage: "I just cloned the EPF instance at docs/EPF/_instances/emergent. " +
		"Please check its health and fix any issues you find.",
	Behaviors: []models.ComplianceBehavior{
		models.FollowsRequiredToolCalls,
		models.TieredDiscovery,
	},
	Score: scoreHealthCheck,
}

var createFeatureWizardFirst = &Scenario{
	ID:   "create-feature-wizard-first",
	Name: "Create Feature → Wizard First",
	Description: "Tests whether the model follows the wizard-first protocol when asked " +
		"to create a new feature definition.",
	UserMessage: "Create a new feature definition for a 'Smart Search' capability in our product. " +
		"It should allow users to search across knowledge base articles using semantic search. " +
		"The EPF instance is at docs/EPF/_instances/emergent.",
	Behaviors: []models.ComplianceBehavior{
		models.WizardBeforeWrite,
		models.NoInventedStructure,
		models.ValidatesAfterWrite,
		models.TieredDiscovery,
	},
	Score: scoreCreateFeature,
}

var structuralErrorWizard = &Scenario{
	ID:   "structural-error-wizard",
	Name: "Structural Errors → Consult Wizard",
	Description: "Tests whether the model recognizes structural validation errors and " +
		"consults the wizard instead of brute-forcing fixes.",
	UserMessage: "Please validate the feature definition at FIRE/definitions/product/fd-014.yaml " +
		"and fix any errors. Use ai_friendly=true for the validation.",
	Behaviors: []models.ComplianceBehavior{
		models.StructuralErrorClassification,
		models.FollowsRequiredToolCalls,
	},
	FixtureResolver: variantResolver(map[string]string{
		toolValidateFile:  "structural_errors",
		toolWizardForTask: "",
	}),
	Score: scoreStructuralError,
}

var surfaceErrorDirectFix = &Scenario{
	ID:   "surface-error-direct-fix",
	Name: "Surface Errors → Fix Directly",
	Description: "Tests whether the model correctly identifies surface errors and fixes them " +
		"directly instead of unnecessarily consulting a wizard.",
	UserMessage: "Validate the feature definition at FIRE/definitions/product/fd-014.yaml " +
		"(use ai_friendly=true) and tell me what needs fixing.",
	Behaviors: []models.ComplianceBehavior{
		models.StructuralErrorClassification,
	},
	FixtureResolver: variantResolver(map[string]string{
		toolValidateFile: "surface_errors",
	}),
	Score: scoreSurfaceError,
}

var tieredDiscovery = &Scenario{
	ID:   "tiered-discovery",
	Name: "Tiered Discovery — Start with Tier 1",
	Description: "Tests whether the model starts with Tier 1 tools (health_check, " +
		"wizard_for_task, validate_file) instead of jumping to specialized tools.",
	UserMessage: "I need to understand the current state of our EPF instance at " +
		"docs/EPF/_instances/emergent and make sure everything is in order. " +
		"What tools should I use and what's the status?",
	Behaviors: []models.ComplianceBehavior{
		models.TieredDiscovery,
	},
	Score: scoreTieredDiscovery,
}

var fullFeatureWorkflow = &Scenario{
	ID:   "full-feature-workflow",
	Name: "Full Feature Workflow (E2E)",
	Description: "End-to-end test: model must check health, consult wizard, get template, " +
		"produce artifact content, and validate — all in the correct order.",
	UserMessage: "Create a new feature definition (fd-015) for 'Automated Report Generation' — " +
		"the ability to generate investor memos and compliance documents from EPF data. " +
		"Follow the full EPF workflow. Instance: docs/EPF/_instances/emergent.",
	Behaviors: []models.ComplianceBehavior{
		models.TieredDiscovery,
		models.WizardBeforeWrite,
		models.NoInventedStructure,
		models.ValidatesAfterWrite,
	},
	FixtureResolver: variantResolver(map[string]string{
		toolHealthCheck:  "healthy",
		toolValidateFile: "",
	}),
	Score: scoreFullWorkflow,
}

// variantResolver serves the named fixture variant for listed tools and the
// base fixture for everything else.
func variantResolver(variants map[string]string) Resolver {
	return func(reg *tools.Registry, tool string, _ map[string]any) string {
		return reg.Get(tool, variants[tool])
	}
}
