package tools

import "strings"

// parameterSchema builds the JSON-Schema object describing the arguments.
// upper selects Gemini's upper-case type names.
func (t ToolDef) parameterSchema(upper bool) map[string]any {
	props := map[string]any{}
	var required []string
	for _, p := range t.Parameters {
		typ := p.Type
		if upper {
			typ = strings.ToUpper(typ)
		}
		prop := map[string]any{"type": typ, "description": p.Description}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	objType := "object"
	if upper {
		objType = "OBJECT"
	}
	schema := map[string]any{"type": objType, "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// InputSchema returns the lower-case JSON-Schema for the tool's arguments.
func (t ToolDef) InputSchema() map[string]any {
	return t.parameterSchema(false)
}

// RequiredParams lists the names of required parameters in order.
func (t ToolDef) RequiredParams() []string {
	var out []string
	for _, p := range t.Parameters {
		if p.Required {
			out = append(out, p.Name)
		}
	}
	return out
}

// OpenAISchema renders the tool as an OpenAI function-calling tool.
func (t ToolDef) OpenAISchema() map[string]any {
	return map[string]any{
		"type": "function",
		"function": map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"parameters":  t.parameterSchema(false),
		},
	}
}

// AnthropicSchema renders the tool as an Anthropic tool definition.
func (t ToolDef) AnthropicSchema() map[string]any {
	return map[string]any{
		"name":         t.Name,
		"description":  t.Description,
		"input_schema": t.parameterSchema(false),
	}
}

// GoogleSchema renders the tool as a Gemini function declaration.
func (t ToolDef) GoogleSchema() map[string]any {
	return map[string]any{
		"name":        t.Name,
		"description": t.Description,
		"parameters":  t.parameterSchema(true),
	}
}
