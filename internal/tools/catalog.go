// Package tools defines the simulated EPF tool catalog and the fixture
// responses the agent loop returns in place of real tool execution.
package tools

import "fmt"

// Tier is a discovery bucket. It is metadata only; ordering is judged by
// the scenario scorers.
type Tier int

const (
	TierEssential Tier = iota + 1
	TierGuided
	TierSpecialized
)

func (t Tier) String() string {
	switch t {
	case TierEssential:
		return "Essential"
	case TierGuided:
		return "Guided"
	case TierSpecialized:
		return "Specialized"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// ToolParam describes one tool argument.
type ToolParam struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Enum        []string
}

// ToolDef is an immutable catalog entry.
type ToolDef struct {
	Name        string
	Tier        Tier
	Description string
	Parameters  []ToolParam
}

var catalog = []ToolDef{
	// Tier 1: entry points.
	{
		Name:        "epf_health_check",
		Tier:        TierEssential,
		Description: "Run a comprehensive health check on an EPF instance. RECOMMENDED FIRST STEP: Always run health check before starting work to assess scope. Returns structure validation, schema validation, content readiness, and workflow guidance. The response includes required_next_tool_calls that you MUST follow.",
		Parameters: []ToolParam{
			{Name: "instance_path", Type: "string", Description: "Path to the EPF instance directory", Required: true},
			{Name: "detail_level", Type: "string", Description: "Level of detail: summary, warnings_only, full"},
		},
	},
	{
		Name:        "epf_get_wizard_for_task",
		Tier:        TierEssential,
		Description: "Recommend the best wizard for a user's task. This is the MANDATORY first step before creating, modifying, or evaluating any EPF artifact. You MUST call this tool before writing feature definitions, roadmaps, assessments, or any other EPF content.",
		Parameters: []ToolParam{
			{Name: "task", Type: "string", Description: "Description of what the user wants to do", Required: true},
		},
	},
	{
		Name:        "epf_validate_file",
		Tier:        TierEssential,
		Description: "Validate a local EPF YAML file against its schema. Automatically detects the artifact type from the filename/path pattern. Use ai_friendly=true for structured output with error classification and required_next_tool_calls.",
		Parameters: []ToolParam{
			{Name: "path", Type: "string", Description: "The path to the YAML file to validate", Required: true},
			{Name: "ai_friendly", Type: "string", Description: "Return AI-friendly structured output (true/false, default: false)"},
		},
	},

	// Tier 2: reached when Tier 1 directs the model.
	{
		Name:        "epf_get_wizard",
		Tier:        TierGuided,
		Description: "Get the full content and metadata for an EPF wizard. MUST be called after epf_get_wizard_for_task identifies the right wizard.",
		Parameters: []ToolParam{
			{Name: "name", Type: "string", Description: "The wizard name", Required: true},
		},
	},
	{
		Name:        "epf_get_template",
		Tier:        TierGuided,
		Description: "Get the starting template YAML for an EPF artifact type.",
		Parameters: []ToolParam{
			{Name: "artifact_type", Type: "string", Description: "The artifact type (e.g., 'feature_definition')", Required: true},
		},
	},
	{
		Name:        "epf_get_schema",
		Tier:        TierGuided,
		Description: "Get the JSON Schema for a specific EPF artifact type.",
		Parameters: []ToolParam{
			{Name: "artifact_type", Type: "string", Description: "The artifact type", Required: true},
		},
	},
	{
		Name:        "epf_validate_with_plan",
		Tier:        TierGuided,
		Description: "Validate a file and return a chunked fix plan for AI agents. Groups errors into manageable chunks with priorities and fix strategies.",
		Parameters: []ToolParam{
			{Name: "path", Type: "string", Description: "The path to the YAML file to validate", Required: true},
		},
	},
	{
		Name:        "epf_get_product_vision",
		Tier:        TierGuided,
		Description: "Get the product's vision, mission, purpose, and values from the North Star artifact.",
		Parameters: []ToolParam{
			{Name: "instance_path", Type: "string", Description: "Path to the EPF instance directory", Required: true},
		},
	},
	{
		Name:        "epf_get_personas",
		Tier:        TierGuided,
		Description: "Get all personas (target users) from the EPF instance.",
		Parameters: []ToolParam{
			{Name: "instance_path", Type: "string", Description: "Path to the EPF instance directory", Required: true},
		},
	},
	{
		Name:        "epf_get_roadmap_summary",
		Tier:        TierGuided,
		Description: "Get roadmap summary with OKRs and key results.",
		Parameters: []ToolParam{
			{Name: "instance_path", Type: "string", Description: "Path to the EPF instance directory", Required: true},
			{Name: "track", Type: "string", Description: "Optional track name to filter"},
		},
	},
	{
		Name:        "epf_validate_relationships",
		Tier:        TierGuided,
		Description: "Validate all relationship paths in features and KRs against the value model.",
		Parameters: []ToolParam{
			{Name: "instance_path", Type: "string", Description: "Path to the EPF instance directory", Required: true},
		},
	},
	{
		Name:        "epf_get_section_example",
		Tier:        TierGuided,
		Description: "Get a template example for a specific section of an artifact type.",
		Parameters: []ToolParam{
			{Name: "artifact_type", Type: "string", Description: "The artifact type", Required: true},
			{Name: "section", Type: "string", Description: "The section path to extract", Required: true},
		},
	},

	// Tier 3
	{
		Name:        "epf_list_schemas",
		Tier:        TierSpecialized,
		Description: "List all available EPF schemas.",
	},
	{
		Name:        "epf_detect_artifact_type",
		Tier:        TierSpecialized,
		Description: "Detect the EPF artifact type from a file path.",
		Parameters: []ToolParam{
			{Name: "path", Type: "string", Description: "The file path to analyze", Required: true},
		},
	},
	{
		Name:        "epf_agent_instructions",
		Tier:        TierSpecialized,
		Description: "Get comprehensive AI agent instructions for working with EPF.",
		Parameters: []ToolParam{
			{Name: "path", Type: "string", Description: "Optional path to check for EPF instance"},
		},
	},
	{
		Name:        "epf_aim_bootstrap",
		Tier:        TierSpecialized,
		Description: "Create a Living Reality Assessment non-interactively.",
		Parameters: []ToolParam{
			{Name: "instance_path", Type: "string", Description: "Path to EPF instance", Required: true},
		},
	},
	{
		Name:        "epf_fix_file",
		Tier:        TierSpecialized,
		Description: "Auto-fix common issues in EPF YAML files.",
		Parameters: []ToolParam{
			{Name: "path", Type: "string", Description: "Path to the YAML file or directory to fix", Required: true},
			{Name: "dry_run", Type: "string", Description: "Preview changes (true/false, default: false)"},
		},
	},
}

// All returns a copy of the full catalog, Tier 1 first.
func All() []ToolDef {
	out := make([]ToolDef, len(catalog))
	copy(out, catalog)
	return out
}

// TierTools returns the tools assigned to tier, in catalog order.
func TierTools(tier Tier) []ToolDef {
	var out []ToolDef
	for _, t := range catalog {
		if t.Tier == tier {
			out = append(out, t)
		}
	}
	return out
}

// ToolNames returns the set of tool names in tier.
func ToolNames(tier Tier) map[string]bool {
	names := map[string]bool{}
	for _, t := range TierTools(tier) {
		names[t.Name] = true
	}
	return names
}

// Lookup finds a tool by name.
func Lookup(name string) (ToolDef, bool) {
	for _, t := range catalog {
		if t.Name == name {
			return t, true
		}
	}
	return ToolDef{}, false
}

// TierOf returns the tier of name, or 0 for tools outside the catalog.
func TierOf(name string) Tier {
	if t, ok := Lookup(name); ok {
		return t.Tier
	}
	return 0
}
