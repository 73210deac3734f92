// Package projectconfig loads .epf-eval.yaml project configuration, the
// optional .env file beside it, and the environment overrides that apply on
// top of both.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/emergent-company/epf-eval/internal/utils"
)

// FileName is the project configuration file looked up by Load.
const FileName = ".epf-eval.yaml"

// Default values for project configuration. New() references them and no
// other code should duplicate them.
const (
	DefaultMaxTurns    = 10
	DefaultWorkers     = 1
	DefaultRepeat      = 1
	DefaultCallTimeout = 2 * time.Minute

	maxWalkLevels = 10
)

// DefaultProviders run when neither flags nor the file name any.
var DefaultProviders = []string{"anthropic", "openai", "google"}

// RateLimitConfig throttles every provider to the same request rate.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute,omitempty"`
	Burst             int `yaml:"burst,omitempty"`
}

// VertexConfig holds defaults for the Vertex AI providers. The VERTEX_*
// environment variables take precedence.
type VertexConfig struct {
	Project      string `yaml:"project,omitempty"`
	ClaudeRegion string `yaml:"claude_region,omitempty"`
	GeminiRegion string `yaml:"gemini_region,omitempty"`
}

// TracingConfig selects the OTLP trace endpoint.
type TracingConfig struct {
	Endpoint    string `yaml:"endpoint,omitempty"`
	ServiceName string `yaml:"service_name,omitempty"`
}

// OutputConfig holds default artifact locations. Relative paths resolve
// against the directory holding the config file.
type OutputConfig struct {
	TranscriptDir string `yaml:"transcript_dir,omitempty"`
	MetricsFile   string `yaml:"metrics_file,omitempty"`
	Upload        string `yaml:"upload,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .epf-eval.yaml.
type ProjectConfig struct {
	Providers   []string          `yaml:"providers,omitempty"`
	Models      map[string]string `yaml:"models,omitempty"`
	MaxTurns    int               `yaml:"max_turns,omitempty"`
	Workers     int               `yaml:"workers,omitempty"`
	Repeat      int               `yaml:"repeat,omitempty"`
	CallTimeout time.Duration     `yaml:"call_timeout,omitempty"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit,omitempty"`
	Vertex      VertexConfig      `yaml:"vertex,omitempty"`
	Tracing     TracingConfig     `yaml:"tracing,omitempty"`
	Output      OutputConfig      `yaml:"output,omitempty"`

	// Path is the file the values came from, or "" for pure defaults.
	Path string `yaml:"-"`
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Providers:   append([]string(nil), DefaultProviders...),
		Models:      map[string]string{},
		MaxTurns:    DefaultMaxTurns,
		Workers:     DefaultWorkers,
		Repeat:      DefaultRepeat,
		CallTimeout: DefaultCallTimeout,
	}
}

// Dir is the directory holding the config file, or "" for defaults.
func (c *ProjectConfig) Dir() string {
	if c.Path == "" {
		return ""
	}
	return filepath.Dir(c.Path)
}

// Load finds .epf-eval.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
// Real I/O errors (e.g. permission denied) are returned to the caller.
func Load(startDir string) (*ProjectConfig, error) {
	p, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("loading %s: %w", FileName, err)
	}
	return LoadFile(p)
}

// LoadFile reads an explicit config file. A missing file is an error.
func LoadFile(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := fileCfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}

	cfg := New()
	mergeConfig(cfg, &fileCfg)
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	cfg.Path = path
	cfg.Output.TranscriptDir = utils.ResolvePath(cfg.Output.TranscriptDir, cfg.Dir())
	cfg.Output.MetricsFile = utils.ResolvePath(cfg.Output.MetricsFile, cfg.Dir())
	return cfg, nil
}

// findConfigFile walks up from dir looking for .epf-eval.yaml. It returns
// os.ErrNotExist if no config file is found and propagates real I/O errors.
func findConfigFile(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < maxWalkLevels; i++ {
		p := filepath.Join(dir, FileName)
		_, err := os.Stat(p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func (c *ProjectConfig) validate() error {
	switch {
	case c.MaxTurns < 0:
		return fmt.Errorf("max_turns must not be negative, got %d", c.MaxTurns)
	case c.Workers < 0:
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	case c.Repeat < 0:
		return fmt.Errorf("repeat must not be negative, got %d", c.Repeat)
	case c.CallTimeout < 0:
		return fmt.Errorf("call_timeout must not be negative, got %s", c.CallTimeout)
	case c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.Burst < 0:
		return errors.New("rate_limit values must not be negative")
	}
	return nil
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	if len(src.Providers) > 0 {
		dst.Providers = src.Providers
	}
	for name, model := range src.Models {
		dst.Models[name] = model
	}
	if src.MaxTurns != 0 {
		dst.MaxTurns = src.MaxTurns
	}
	if src.Workers != 0 {
		dst.Workers = src.Workers
	}
	if src.Repeat != 0 {
		dst.Repeat = src.Repeat
	}
	if src.CallTimeout != 0 {
		dst.CallTimeout = src.CallTimeout
	}

	if src.RateLimit.RequestsPerMinute != 0 {
		dst.RateLimit.RequestsPerMinute = src.RateLimit.RequestsPerMinute
	}
	if src.RateLimit.Burst != 0 {
		dst.RateLimit.Burst = src.RateLimit.Burst
	}

	if src.Vertex.Project != "" {
		dst.Vertex.Project = src.Vertex.Project
	}
	if src.Vertex.ClaudeRegion != "" {
		dst.Vertex.ClaudeRegion = src.Vertex.ClaudeRegion
	}
	if src.Vertex.GeminiRegion != "" {
		dst.Vertex.GeminiRegion = src.Vertex.GeminiRegion
	}

	if src.Tracing.Endpoint != "" {
		dst.Tracing.Endpoint = src.Tracing.Endpoint
	}
	if src.Tracing.ServiceName != "" {
		dst.Tracing.ServiceName = src.Tracing.ServiceName
	}

	if src.Output.TranscriptDir != "" {
		dst.Output.TranscriptDir = src.Output.TranscriptDir
	}
	if src.Output.MetricsFile != "" {
		dst.Output.MetricsFile = src.Output.MetricsFile
	}
	if src.Output.Upload != "" {
		dst.Output.Upload = src.Output.Upload
	}
}
