// Package validation checks the contracts the eval depends on: vendor tool
// schemas, fixture guidance fields, and tool names referenced by the system
// prompt.
package validation

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/emergent-company/epf-eval/internal/tools"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const schemaBase = "https://epf-eval.local/schemas/"

// defaultPrinter is used to format schema validation error messages.
var defaultPrinter = message.NewPrinter(language.English)

// Vendor names a rendered tool schema flavour.
type Vendor string

const (
	VendorOpenAI    Vendor = "openai"
	VendorAnthropic Vendor = "anthropic"
	VendorGoogle    Vendor = "google"
)

var (
	vendorSchemas  map[Vendor]*jsonschema.Schema
	guidanceSchema *jsonschema.Schema
)

func init() {
	compiler := jsonschema.NewCompiler()
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		panic(fmt.Sprintf("reading embedded schemas: %v", err))
	}
	for _, e := range entries {
		data, err := schemaFS.ReadFile("schemas/" + e.Name())
		if err != nil {
			panic(fmt.Sprintf("reading %s: %v", e.Name(), err))
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			panic(fmt.Sprintf("failed to parse embedded %s: %v", e.Name(), err))
		}
		if err := compiler.AddResource(schemaBase+e.Name(), doc); err != nil {
			panic(fmt.Sprintf("failed to add %s resource: %v", e.Name(), err))
		}
	}

	vendorSchemas = map[Vendor]*jsonschema.Schema{
		VendorOpenAI:    mustCompile(compiler, "openai_tool.schema.json"),
		VendorAnthropic: mustCompile(compiler, "anthropic_tool.schema.json"),
		VendorGoogle:    mustCompile(compiler, "google_function.schema.json"),
	}
	guidanceSchema = mustCompile(compiler, "guidance.schema.json")
}

func mustCompile(c *jsonschema.Compiler, name string) *jsonschema.Schema {
	sch, err := c.Compile(schemaBase + name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// ValidateToolSchemas renders every tool for every vendor and validates the
// result. The returned map is keyed by "vendor/tool" and is empty when all
// schemas are well formed.
func ValidateToolSchemas(defs []tools.ToolDef) map[string][]string {
	problems := map[string][]string{}
	for _, td := range defs {
		rendered := map[Vendor]map[string]any{
			VendorOpenAI:    td.OpenAISchema(),
			VendorAnthropic: td.AnthropicSchema(),
			VendorGoogle:    td.GoogleSchema(),
		}
		for vendor, doc := range rendered {
			if errs := ValidateToolSchema(vendor, doc); len(errs) > 0 {
				problems[string(vendor)+"/"+td.Name] = errs
			}
		}
	}
	return problems
}

// ValidateToolSchema validates a single rendered tool document.
func ValidateToolSchema(vendor Vendor, doc map[string]any) []string {
	sch, ok := vendorSchemas[vendor]
	if !ok {
		return []string{fmt.Sprintf("unknown vendor %q", vendor)}
	}
	instance, err := toInstance(doc)
	if err != nil {
		return []string{err.Error()}
	}
	return validateAgainstSchema(sch, instance)
}

// ValidateFixtureGuidance checks that the guidance fields of a fixture
// response keep their contracted names and shapes.
func ValidateFixtureGuidance(fixture string) []string {
	instance, err := jsonschema.UnmarshalJSON(strings.NewReader(fixture))
	if err != nil {
		return []string{fmt.Sprintf("JSON parse error: %v", err)}
	}
	return validateAgainstSchema(guidanceSchema, instance)
}

// ValidateFixtures runs ValidateFixtureGuidance over every default fixture
// in reg, keyed by fixture key.
func ValidateFixtures(reg *tools.Registry) map[string][]string {
	problems := map[string][]string{}
	for _, key := range reg.Keys() {
		tool, variant := tools.SplitFixtureKey(key)
		if errs := ValidateFixtureGuidance(reg.Get(tool, variant)); len(errs) > 0 {
			problems[key] = errs
		}
	}
	return problems
}

// toInstance round-trips a Go value through JSON so the validator sees
// plain JSON types.
func toInstance(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(data))
}

func validateAgainstSchema(schema *jsonschema.Schema, instance any) []string {
	err := schema.Validate(instance)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{fmt.Sprintf("schema: %v", err)}
	}
	var errs []string
	collectSchemaErrors(ve, &errs)
	sort.Strings(errs)
	return errs
}

func collectSchemaErrors(ve *jsonschema.ValidationError, errs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/" + strings.Join(ve.InstanceLocation, "/")
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(defaultPrinter)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, errs)
	}
}
