package tools

import (
	"encoding/json"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// ToolSuggestion is the shape of entries in required_next_tool_calls and of
// recommended_tool.
type ToolSuggestion struct {
	Tool     string         `mapstructure:"tool" json:"tool"`
	Params   map[string]any `mapstructure:"params" json:"params"`
	Reason   string         `mapstructure:"reason" json:"reason"`
	Priority string         `mapstructure:"priority" json:"priority"`
}

// FieldError is one validation error inside a section.
type FieldError struct {
	Path      string `mapstructure:"path" json:"path"`
	ErrorType string `mapstructure:"error_type" json:"error_type"`
	Priority  string `mapstructure:"priority" json:"priority"`
	Message   string `mapstructure:"message" json:"message"`
	FixHint   string `mapstructure:"fix_hint" json:"fix_hint"`
}

// SectionErrors groups validation errors by artifact section.
type SectionErrors struct {
	Section    string       `mapstructure:"section" json:"section"`
	ErrorCount int          `mapstructure:"error_count" json:"error_count"`
	Errors     []FieldError `mapstructure:"errors" json:"errors"`
}

// Guidance holds the structured steering fields a tool response may carry.
// The loop never reads these; the model and the scorers do.
type Guidance struct {
	RequiredNextToolCalls []ToolSuggestion `mapstructure:"required_next_tool_calls"`
	RecommendedTool       *ToolSuggestion  `mapstructure:"recommended_tool"`
	StructuralIssue       *bool            `mapstructure:"structural_issue"`
	ErrorsBySection       []SectionErrors  `mapstructure:"errors_by_section"`
}

// Empty reports whether the response carries no guidance at all.
func (g Guidance) Empty() bool {
	return len(g.RequiredNextToolCalls) == 0 && g.RecommendedTool == nil &&
		g.StructuralIssue == nil && len(g.ErrorsBySection) == 0
}

// SuggestedTools lists every tool the guidance points at, in order, with
// duplicates removed.
func (g Guidance) SuggestedTools() []string {
	seen := map[string]bool{}
	var out []string
	add := func(s ToolSuggestion) {
		if s.Tool != "" && !seen[s.Tool] {
			seen[s.Tool] = true
			out = append(out, s.Tool)
		}
	}
	for _, s := range g.RequiredNextToolCalls {
		add(s)
	}
	if g.RecommendedTool != nil {
		add(*g.RecommendedTool)
	}
	return out
}

// DecodeGuidance extracts the guidance fields from a fixture response.
// Unrelated fields are ignored.
func DecodeGuidance(fixture string) (Guidance, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(fixture), &raw); err != nil {
		return Guidance{}, fmt.Errorf("parsing fixture: %w", err)
	}

	var g Guidance
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &g,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Guidance{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Guidance{}, fmt.Errorf("decoding guidance: %w", err)
	}
	return g, nil
}
