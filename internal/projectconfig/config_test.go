package projectconfig

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestNew_ReturnsAllDefaults(t *testing.T) {
	cfg := New()

	if !slices.Equal(cfg.Providers, []string{"anthropic", "openai", "google"}) {
		t.Errorf("Providers = %v", cfg.Providers)
	}
	assertEqualInt(t, "MaxTurns", 10, cfg.MaxTurns)
	assertEqualInt(t, "Workers", 1, cfg.Workers)
	assertEqualInt(t, "Repeat", 1, cfg.Repeat)
	if cfg.CallTimeout != 2*time.Minute {
		t.Errorf("CallTimeout = %s, want 2m", cfg.CallTimeout)
	}
	assertEqualInt(t, "RateLimit.RequestsPerMinute", 0, cfg.RateLimit.RequestsPerMinute)
	assertEqual(t, "Tracing.Endpoint", "", cfg.Tracing.Endpoint)
	assertEqual(t, "Path", "", cfg.Path)
	assertEqual(t, "Dir", "", cfg.Dir())
	if cfg.Models == nil {
		t.Error("Models should be an empty map")
	}

	// Mutating a config never leaks into the package default.
	cfg.Providers[0] = "vertex-claude"
	if DefaultProviders[0] != "anthropic" {
		t.Error("DefaultProviders was mutated through New()")
	}
}

func TestLoad_FullConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, FileName, `
providers: [vertex-claude, vertex-gemini]
models:
  vertex-claude: claude-sonnet-4-6
max_turns: 6
workers: 4
repeat: 3
call_timeout: 45s
rate_limit:
  requests_per_minute: 30
  burst: 2
vertex:
  project: acme-dev
  claude_region: europe-west1
  gemini_region: europe-west4
tracing:
  endpoint: http://collector:4318/v1/traces
  service_name: epf-nightly
output:
  transcript_dir: results/transcripts
  metrics_file: /var/lib/node_exporter/epf.prom
  upload: https://acct.blob.core.windows.net/reports/
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if !slices.Equal(cfg.Providers, []string{"vertex-claude", "vertex-gemini"}) {
		t.Errorf("Providers = %v", cfg.Providers)
	}
	assertEqual(t, "ModelFor(vertex-claude)", "claude-sonnet-4-6", cfg.ModelFor("vertex-claude"))
	assertEqual(t, "ModelFor(openai)", "", cfg.ModelFor("openai"))
	assertEqualInt(t, "MaxTurns", 6, cfg.MaxTurns)
	assertEqualInt(t, "Workers", 4, cfg.Workers)
	assertEqualInt(t, "Repeat", 3, cfg.Repeat)
	if cfg.CallTimeout != 45*time.Second {
		t.Errorf("CallTimeout = %s, want 45s", cfg.CallTimeout)
	}
	assertEqualInt(t, "RateLimit.RequestsPerMinute", 30, cfg.RateLimit.RequestsPerMinute)
	assertEqualInt(t, "RateLimit.Burst", 2, cfg.RateLimit.Burst)
	assertEqual(t, "Vertex.Project", "acme-dev", cfg.Vertex.Project)
	assertEqual(t, "Vertex.ClaudeRegion", "europe-west1", cfg.Vertex.ClaudeRegion)
	assertEqual(t, "Vertex.GeminiRegion", "europe-west4", cfg.Vertex.GeminiRegion)
	assertEqual(t, "Tracing.Endpoint", "http://collector:4318/v1/traces", cfg.Tracing.Endpoint)
	assertEqual(t, "Tracing.ServiceName", "epf-nightly", cfg.Tracing.ServiceName)
	assertEqual(t, "Output.Upload", "https://acct.blob.core.windows.net/reports/", cfg.Output.Upload)

	absDir, _ := filepath.Abs(dir)
	assertEqual(t, "Path", filepath.Join(absDir, FileName), cfg.Path)
	assertEqual(t, "Output.TranscriptDir", filepath.Join(absDir, "results/transcripts"), cfg.Output.TranscriptDir)
	assertEqual(t, "Output.MetricsFile", "/var/lib/node_exporter/epf.prom", cfg.Output.MetricsFile)
}

func TestLoad_PartialConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, FileName, `
workers: 8
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Overridden
	assertEqualInt(t, "Workers", 8, cfg.Workers)

	// Defaults preserved
	assertEqualInt(t, "MaxTurns", 10, cfg.MaxTurns)
	assertEqualInt(t, "Repeat", 1, cfg.Repeat)
	if len(cfg.Providers) != 3 {
		t.Errorf("Providers = %v, want defaults", cfg.Providers)
	}
	if cfg.CallTimeout != DefaultCallTimeout {
		t.Errorf("CallTimeout = %s, want default", cfg.CallTimeout)
	}
}

func TestLoad_MissingFile_ReturnsDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	defaults := New()
	assertEqualInt(t, "MaxTurns", defaults.MaxTurns, cfg.MaxTurns)
	assertEqualInt(t, "Workers", defaults.Workers, cfg.Workers)
	assertEqual(t, "Path", "", cfg.Path)
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("LoadFile() should fail for an explicit missing file")
	}
}

func TestLoad_InvalidYAML_ReturnsError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, FileName, `
providers: [not valid yaml
    this is broken
`)

	_, err := Load(dir)
	if err == nil {
		t.Fatal("Load() should return error for invalid YAML")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := map[string]string{
		"negative workers":  "workers: -1\n",
		"negative turns":    "max_turns: -3\n",
		"negative repeat":   "repeat: -2\n",
		"negative timeout":  "call_timeout: -5s\n",
		"negative rate":     "rate_limit:\n  requests_per_minute: -1\n",
		"unparsed duration": "call_timeout: soon\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, FileName, content)
			if _, err := Load(dir); err == nil {
				t.Fatalf("Load() should reject %q", content)
			}
		})
	}
}

func TestLoad_WalksUpDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, FileName, `
repeat: 5
`)

	child := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(child, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(child)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	assertEqualInt(t, "Repeat", 5, cfg.Repeat)
	// Other defaults still populated
	assertEqualInt(t, "MaxTurns", 10, cfg.MaxTurns)
}

func TestLoad_StopsAfterTenLevels(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, FileName, "repeat: 5\n")

	parts := []string{root}
	for i := 0; i < 10; i++ {
		parts = append(parts, "d")
	}
	deep := filepath.Join(parts...)
	if err := os.MkdirAll(deep, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(deep)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	assertEqualInt(t, "Repeat", DefaultRepeat, cfg.Repeat)
}

// --- test helpers ---

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func assertEqual(t *testing.T, field, want, got string) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %q, want %q", field, got, want)
	}
}

func assertEqualInt(t *testing.T, field string, want, got int) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %d, want %d", field, got, want)
	}
}
