package providers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/emergent-company/epf-eval/internal/models"
)

// Family selects the wire protocol.
type Family string

const (
	FamilyAnthropic Family = "anthropic"
	FamilyOpenAI    Family = "openai"
	FamilyGoogle    Family = "google"
)

// AuthStrategy selects how a family authenticates.
type AuthStrategy string

const (
	// AuthAPIKey sends a vendor API key.
	AuthAPIKey AuthStrategy = "api-key"
	// AuthVertex uses Google Application Default Credentials against Vertex AI.
	AuthVertex AuthStrategy = "vertex"
	// AuthBedrock uses the AWS default credential chain against Bedrock.
	AuthBedrock AuthStrategy = "bedrock"
)

const (
	defaultVertexProject      = "legalplant-dev"
	defaultVertexClaudeRegion = "us-east5"
	defaultVertexGeminiRegion = "us-central1"
	defaultBedrockRegion      = "us-east-1"
	defaultAnthropicMaxTokens = 4096
	vertexGlobalLocation      = "global"
)

// ErrUnknownProvider is returned for names absent from the builtin table.
var ErrUnknownProvider = errors.New("unknown provider")

// Config fully describes one provider instance.
type Config struct {
	Name    models.ProviderName
	Family  Family
	Auth    AuthStrategy
	Model   string
	Region  string
	Project string
	APIKey  string
	// BaseURL overrides the vendor endpoint. Used by tests and proxies.
	BaseURL   string
	MaxTokens int
}

func (c Config) validate() error {
	if c.Name == "" {
		return errors.New("provider name is required")
	}
	if c.Model == "" {
		return fmt.Errorf("provider %s: model is required", c.Name)
	}
	switch c.Family {
	case FamilyAnthropic:
		switch c.Auth {
		case AuthAPIKey, AuthVertex, AuthBedrock:
		default:
			return fmt.Errorf("provider %s: auth %q not supported for %s", c.Name, c.Auth, c.Family)
		}
	case FamilyOpenAI:
		if c.Auth != AuthAPIKey {
			return fmt.Errorf("provider %s: auth %q not supported for %s", c.Name, c.Auth, c.Family)
		}
	case FamilyGoogle:
		if c.Auth != AuthAPIKey && c.Auth != AuthVertex {
			return fmt.Errorf("provider %s: auth %q not supported for %s", c.Name, c.Auth, c.Family)
		}
	default:
		return fmt.Errorf("provider %s: unknown family %q", c.Name, c.Family)
	}
	return nil
}

// builtin is one row of the provider table.
type builtin struct {
	family    Family
	auth      AuthStrategy
	model     string
	apiKeyEnv string
	regionEnv string
	region    string
}

var builtins = map[models.ProviderName]builtin{
	"anthropic":             {family: FamilyAnthropic, auth: AuthAPIKey, model: "claude-sonnet-4-20250514", apiKeyEnv: "ANTHROPIC_API_KEY"},
	"openai":                {family: FamilyOpenAI, auth: AuthAPIKey, model: "gpt-4o", apiKeyEnv: "OPENAI_API_KEY"},
	"google":                {family: FamilyGoogle, auth: AuthAPIKey, model: "gemini-2.5-pro", apiKeyEnv: "GOOGLE_API_KEY"},
	"vertex-claude":         {family: FamilyAnthropic, auth: AuthVertex, model: "claude-opus-4-6", regionEnv: "VERTEX_CLAUDE_REGION", region: defaultVertexClaudeRegion},
	"vertex-claude-sonnet":  {family: FamilyAnthropic, auth: AuthVertex, model: "claude-sonnet-4-6", regionEnv: "VERTEX_CLAUDE_REGION", region: defaultVertexClaudeRegion},
	"vertex-gemini":         {family: FamilyGoogle, auth: AuthVertex, model: "gemini-2.5-pro", regionEnv: "VERTEX_GEMINI_REGION", region: defaultVertexGeminiRegion},
	"vertex-gemini-3-pro":   {family: FamilyGoogle, auth: AuthVertex, model: "gemini-3-pro-preview", region: vertexGlobalLocation},
	"vertex-gemini-3.1-pro": {family: FamilyGoogle, auth: AuthVertex, model: "gemini-3.1-pro-preview", region: vertexGlobalLocation},
	"bedrock-claude":        {family: FamilyAnthropic, auth: AuthBedrock, model: "anthropic.claude-sonnet-4-20250514-v1:0", regionEnv: "AWS_REGION", region: defaultBedrockRegion},
}

// Names lists every builtin provider, sorted.
func Names() []models.ProviderName {
	names := make([]models.ProviderName, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// IsADC reports whether name authenticates with cloud default credentials
// rather than an API key.
func IsADC(name models.ProviderName) bool {
	b, ok := builtins[name]
	return ok && b.auth != AuthAPIKey
}

// APIKeyEnv returns the environment variable holding name's API key, or ""
// for ADC providers.
func APIKeyEnv(name models.ProviderName) string {
	return builtins[name].apiKeyEnv
}

// Lookup resolves a builtin provider into a Config, reading keys, regions
// and the Vertex project from the environment. model overrides the default
// model when non-empty.
func Lookup(name models.ProviderName, model string) (Config, error) {
	return lookup(name, model, os.Getenv)
}

// LookupEnv is Lookup with getenv in place of the process environment.
func LookupEnv(name models.ProviderName, model string, getenv func(string) string) (Config, error) {
	return lookup(name, model, getenv)
}

func lookup(name models.ProviderName, model string, getenv func(string) string) (Config, error) {
	b, ok := builtins[name]
	if !ok {
		all := make([]string, 0, len(builtins))
		for _, n := range Names() {
			all = append(all, string(n))
		}
		return Config{}, fmt.Errorf("%w: %s. Available: %s", ErrUnknownProvider, name, strings.Join(all, ", "))
	}

	cfg := Config{
		Name:   name,
		Family: b.family,
		Auth:   b.auth,
		Model:  b.model,
		Region: b.region,
	}
	if model != "" {
		cfg.Model = model
	}
	if b.regionEnv != "" {
		if v := getenv(b.regionEnv); v != "" {
			cfg.Region = v
		}
	}
	if b.apiKeyEnv != "" {
		cfg.APIKey = getenv(b.apiKeyEnv)
	}
	if b.auth == AuthVertex {
		cfg.Project = getenv("VERTEX_PROJECT")
		if cfg.Project == "" {
			cfg.Project = defaultVertexProject
		}
	}
	if b.family == FamilyAnthropic {
		cfg.MaxTokens = defaultAnthropicMaxTokens
	}
	return cfg, nil
}

// Option customizes provider construction.
type Option func(*options)

type options struct {
	httpClient *http.Client
}

// WithHTTPClient sets the HTTP client used for vendor calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// New builds the provider described by cfg. No network or credential work
// happens here; clients are created on the first Send.
func New(cfg Config, opts ...Option) (Provider, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = http.DefaultClient
	}

	switch cfg.Family {
	case FamilyAnthropic:
		return newAnthropic(cfg, o), nil
	case FamilyOpenAI:
		return newOpenAI(cfg, o), nil
	default:
		return newGemini(cfg, o), nil
	}
}

// NewByName is Lookup followed by New.
func NewByName(name models.ProviderName, model string, opts ...Option) (Provider, error) {
	cfg, err := Lookup(name, model)
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}
