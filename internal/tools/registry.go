package tools

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
)

//go:embed fixtures/*.json
var fixtureFS embed.FS

// variantSep joins a tool name and a scenario variant into a fixture key.
const variantSep = "__"

// FixtureKey returns "tool__variant", or the bare tool name when variant is
// empty.
func FixtureKey(tool, variant string) string {
	if variant == "" {
		return tool
	}
	return tool + variantSep + variant
}

// SplitFixtureKey is the inverse of FixtureKey.
func SplitFixtureKey(key string) (tool, variant string) {
	tool, variant, _ = strings.Cut(key, variantSep)
	return tool, variant
}

// Registry resolves tool calls to canned JSON responses. Overrides are
// meant to be registered before any agent loop starts; lookups are safe
// for concurrent use.
type Registry struct {
	defaults map[string][]byte

	mu        sync.RWMutex
	overrides map[string][]byte
}

var loadDefaults = sync.OnceValues(func() (map[string][]byte, error) {
	entries, err := fixtureFS.ReadDir("fixtures")
	if err != nil {
		return nil, fmt.Errorf("reading embedded fixtures: %w", err)
	}

	out := make(map[string][]byte, len(entries))
	for _, e := range entries {
		name := e.Name()
		data, err := fixtureFS.ReadFile(path.Join("fixtures", name))
		if err != nil {
			return nil, fmt.Errorf("reading fixture %s: %w", name, err)
		}
		pretty, err := indent(data)
		if err != nil {
			return nil, fmt.Errorf("fixture %s: %w", name, err)
		}
		out[strings.TrimSuffix(name, ".json")] = pretty
	}
	return out, nil
})

// NewRegistry returns a registry backed by the built-in default fixtures
// and no overrides. It panics if the embedded fixtures are malformed, which
// is caught by this package's tests.
func NewRegistry() *Registry {
	defaults, err := loadDefaults()
	if err != nil {
		panic(err)
	}
	return &Registry{
		defaults:  defaults,
		overrides: map[string][]byte{},
	}
}

// Register adds a scenario-specific override for (tool, variant). The
// fixture may be any JSON-marshalable value, a json.RawMessage, or raw JSON
// as a []byte.
func (r *Registry) Register(tool, variant string, fixture any) error {
	var raw []byte
	switch v := fixture.(type) {
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal fixture %s: %w", FixtureKey(tool, variant), err)
		}
		raw = data
	}

	pretty, err := indent(raw)
	if err != nil {
		return fmt.Errorf("fixture %s: %w", FixtureKey(tool, variant), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[FixtureKey(tool, variant)] = pretty
	return nil
}

// Get resolves a fixture. It never fails: an override for the exact key
// wins, then the default for the exact key, then the default for the bare
// tool name, and finally an error-shaped payload for unknown tools.
func (r *Registry) Get(tool, variant string) string {
	key := FixtureKey(tool, variant)

	r.mu.RLock()
	data, ok := r.overrides[key]
	r.mu.RUnlock()
	if ok {
		return string(data)
	}
	if data, ok := r.defaults[key]; ok {
		return string(data)
	}
	if data, ok := r.defaults[tool]; ok {
		return string(data)
	}
	return unknownTool(tool)
}

// Resolve is the default fixture resolver: it ignores arguments and returns
// the tool's base fixture.
func (r *Registry) Resolve(tool string, _ map[string]any) string {
	return r.Get(tool, "")
}

// Has reports whether a default or override exists for the exact key.
func (r *Registry) Has(tool, variant string) bool {
	key := FixtureKey(tool, variant)
	r.mu.RLock()
	_, ok := r.overrides[key]
	r.mu.RUnlock()
	if ok {
		return true
	}
	_, ok = r.defaults[key]
	return ok
}

// Keys lists every default fixture key, sorted.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.defaults))
	for k := range r.defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type unknownToolPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func unknownTool(tool string) string {
	data, _ := json.Marshal(unknownToolPayload{
		Error:   "Unknown tool: " + tool,
		Message: "Tool not found in eval fixtures",
	})
	return string(data)
}

// IsUnknownTool reports whether a resolved fixture is the synthesized
// unknown-tool payload for tool.
func IsUnknownTool(tool, fixture string) bool {
	var p unknownToolPayload
	if err := json.Unmarshal([]byte(fixture), &p); err != nil {
		return false
	}
	return p.Error == "Unknown tool: "+tool
}

func indent(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(raw), "", "  "); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return buf.Bytes(), nil
}

// ResolveFunc answers one tool call with a fixture JSON string.
type ResolveFunc func(tool string, args map[string]any) string
