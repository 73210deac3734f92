package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/epf-eval/internal/models"
	"github.com/emergent-company/epf-eval/internal/orchestration"
	"github.com/emergent-company/epf-eval/internal/providers"
	"github.com/emergent-company/epf-eval/internal/reporting"
	"github.com/emergent-company/epf-eval/internal/telemetry"
	"github.com/emergent-company/epf-eval/internal/tools"
	"github.com/emergent-company/epf-eval/internal/upload"
)

// healthCheckProvider opens with a health check and then answers in text.
type healthCheckProvider struct {
	*providers.Scripted
}

func (p *healthCheckProvider) Send(ctx context.Context, _ string, messages []providers.Message, _ []tools.ToolDef) (*models.Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(messages) == 1 {
		return providers.ToolCallTurn("epf_health_check"), nil
	}
	return &models.Turn{Content: "done"}, nil
}

// stubRunHooks replaces provider construction, trace export, upload and the
// clock for the duration of the test.
func stubRunHooks(t *testing.T) *[]providers.Config {
	t.Helper()
	origProvider, origExport, origUpload, origNow := newProvider, exportTraces, uploadReport, now
	t.Cleanup(func() {
		newProvider, exportTraces, uploadReport, now = origProvider, origExport, origUpload, origNow
	})

	var built []providers.Config
	newProvider = func(cfg providers.Config) (providers.Provider, error) {
		built = append(built, cfg)
		return &healthCheckProvider{Scripted: providers.NewScripted(cfg.Name, cfg.Family)}, nil
	}
	exportTraces = func(context.Context, telemetry.Config, *models.EvalRun) (int, error) {
		t.Fatal("trace export must not run")
		return 0, nil
	}
	uploadReport = func(context.Context, upload.Destination, []byte, upload.Options) (string, error) {
		t.Fatal("upload must not run")
		return "", nil
	}
	now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return &built
}

// isolateEnv clears credentials and tracing settings inherited from the
// developer's shell.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GOOGLE_API_KEY",
		"LANGFUSE_PUBLIC_KEY", "LANGFUSE_SECRET_KEY", "LANGFUSE_HOST",
		"OTEL_EXPORTER_OTLP_ENDPOINT", upload.ConnectionStringEnv,
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".epf-eval.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestResolveProviderNames(t *testing.T) {
	defaults := []string{"anthropic", "openai", "google"}
	tests := []struct {
		name      string
		requested []string
		vertex    bool
		want      []string
	}{
		{name: "defaults", want: defaults},
		{name: "explicit", requested: []string{"google", "anthropic"}, want: []string{"google", "anthropic"}},
		{name: "vertex only", vertex: true, want: []string{"vertex-claude", "vertex-gemini"}},
		{name: "vertex maps explicit names", requested: []string{"anthropic", "openai", "google"}, vertex: true, want: []string{"vertex-claude", "openai", "vertex-gemini"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveProviderNames(tt.requested, defaults, tt.vertex))
		})
	}
}

func TestReportFormat(t *testing.T) {
	tests := []struct {
		name    string
		opts    runOptions
		changed bool
		want    reporting.Format
	}{
		{name: "default", opts: runOptions{format: "table"}, want: reporting.FormatTableName},
		{name: "json flag wins", opts: runOptions{format: "junit", jsonOutput: true}, changed: true, want: reporting.FormatJSONName},
		{name: "output extension", opts: runOptions{format: "table", output: "out/results.xml"}, want: reporting.FormatJUnitName},
		{name: "compressed output extension", opts: runOptions{format: "table", output: "results.json.gz"}, want: reporting.FormatJSONName},
		{name: "explicit format beats extension", opts: runOptions{format: "markdown", output: "results.json"}, changed: true, want: reporting.FormatMarkdownName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.opts.reportFormat(tt.changed)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := (&runOptions{format: "yaml"}).reportFormat(true)
	require.Error(t, err)
}

func TestRun_UsageErrors(t *testing.T) {
	stubRunHooks(t)
	isolateEnv(t)
	cfg := writeConfig(t, "providers: [anthropic]\n")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown scenario", args: []string{"-s", "no-such-scenario"}, want: "no-such-scenario"},
		{name: "unknown provider", args: []string{"-p", "cohere"}, want: "unknown provider"},
		{name: "bad format", args: []string{"--format", "yaml"}, want: "yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, err := runCLI(t, append([]string{"--config", cfg, "run"}, tt.args...)...)
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.want)
			assert.Equal(t, ExitUsage, exitCode(err, &strings.Builder{}))
			assert.Empty(t, stderr)
		})
	}
}

func TestRun_MissingKeys(t *testing.T) {
	built := stubRunHooks(t)
	isolateEnv(t)
	cfg := writeConfig(t, "")

	stdout, stderr, err := runCLI(t, "--config", cfg, "run", "-p", "openai", "-p", "google")
	require.Error(t, err)

	var usageErr *UsageError
	require.True(t, errors.As(err, &usageErr))
	assert.True(t, usageErr.Quiet)
	assert.Equal(t, "Missing API keys: openai (OPENAI_API_KEY), google (GOOGLE_API_KEY)\nSet them in .env or environment variables.\n", stderr)
	assert.Empty(t, stdout)
	assert.Empty(t, *built, "no provider is constructed")
}

func TestRun_InvalidConfigIsUsageError(t *testing.T) {
	stubRunHooks(t)
	cfg := writeConfig(t, "workers: -3\n")

	_, _, err := runCLI(t, "--config", cfg, "run")
	require.Error(t, err)
	assert.Equal(t, ExitUsage, exitCode(err, &strings.Builder{}))
}

func TestRun_EndToEnd(t *testing.T) {
	built := stubRunHooks(t)
	isolateEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg := writeConfig(t, `providers: [anthropic]
models:
  anthropic: claude-test
output:
  transcript_dir: transcripts
  metrics_file: metrics/epf.prom
`)
	cfgDir := filepath.Dir(cfg)
	out := filepath.Join(t.TempDir(), "results.json.gz")

	stdout, stderr, err := runCLI(t, "--config", cfg, "run",
		"-s", "health-check-compliance", "-s", "tiered-discovery",
		"-o", out)
	require.NoError(t, err)
	assert.Empty(t, stderr)

	require.Len(t, *built, 1)
	assert.Equal(t, models.ProviderName("anthropic"), (*built)[0].Name)
	assert.Equal(t, "claude-test", (*built)[0].Model)
	assert.Equal(t, "sk-test", (*built)[0].APIKey)

	assert.Contains(t, stdout, "\nRunning 2 eval(s): 2 scenarios × 1 providers\n\n")
	assert.Contains(t, stdout, "  [anthropic ] ")
	assert.Contains(t, stdout, "Langfuse not configured — skipping tracing.\n")
	assert.Contains(t, stdout, "Transcripts written to "+filepath.Join(cfgDir, "transcripts")+" (2 files)\n")
	assert.Contains(t, stdout, "Metrics written to "+filepath.Join(cfgDir, "metrics", "epf.prom")+"\n")
	assert.Contains(t, stdout, `"run_id": "eval-20260102-030405-`)
	assert.Contains(t, stdout, "Results written to "+out+"\n")

	transcripts, err := filepath.Glob(filepath.Join(cfgDir, "transcripts", "*.json"))
	require.NoError(t, err)
	assert.Len(t, transcripts, 2)

	prom, err := os.ReadFile(filepath.Join(cfgDir, "metrics", "epf.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(prom), "epf_eval_results")

	compressed, err := os.ReadFile(out)
	require.NoError(t, err)
	data, err := reporting.Decode(reporting.CompressionGzip, compressed)
	require.NoError(t, err)
	var report reporting.JSONReport
	require.NoError(t, json.Unmarshal(data, &report))
	require.Len(t, report.Results, 2)
	assert.Equal(t, "health-check-compliance", report.Results[0].ScenarioID)
	assert.Equal(t, "tiered-discovery", report.Results[1].ScenarioID)
	assert.Equal(t, []string{"epf_health_check"}, report.Results[0].ToolSequence)
	assert.True(t, strings.HasPrefix(report.RunID, "eval-20260102-030405-"))
}

func TestRun_TracingAndUpload(t *testing.T) {
	stubRunHooks(t)
	isolateEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("LANGFUSE_PUBLIC_KEY", "pk")
	t.Setenv("LANGFUSE_SECRET_KEY", "sk")
	t.Setenv(upload.ConnectionStringEnv, "UseDevelopmentStorage=true")

	var traced *models.EvalRun
	var traceCfg telemetry.Config
	exportTraces = func(_ context.Context, cfg telemetry.Config, run *models.EvalRun) (int, error) {
		traceCfg, traced = cfg, run
		return len(run.Results), nil
	}
	var dest upload.Destination
	var uploaded []byte
	var opts upload.Options
	uploadReport = func(_ context.Context, d upload.Destination, data []byte, o upload.Options) (string, error) {
		dest, uploaded, opts = d, data, o
		return d.URL(), nil
	}

	cfg := writeConfig(t, "providers: [anthropic]\n")
	stdout, _, err := runCLI(t, "--config", cfg, "run",
		"-s", "tiered-discovery", "--repeat", "2", "--format", "junit",
		"--upload", "https://acct.blob.core.windows.net/reports/nightly/")
	require.NoError(t, err)

	require.NotNil(t, traced)
	assert.Len(t, traced.Results, 2)
	assert.Equal(t, "Langfuse", traceCfg.Target())
	assert.Contains(t, stdout, "\nRunning 2 eval(s): 1 scenarios × 1 providers × 2 repeats\n\n")
	assert.Contains(t, stdout, " #2... ")
	assert.Contains(t, stdout, "Tracing to Langfuse...\n  2 traces sent.\n\n")

	assert.Equal(t, "reports", dest.Container)
	assert.Equal(t, "nightly/"+traced.RunID+".xml", dest.Blob)
	assert.Equal(t, "UseDevelopmentStorage=true", opts.ConnectionString)
	assert.Equal(t, reporting.FormatJUnitName.ContentType(), opts.ContentType)
	assert.Contains(t, string(uploaded), "<testsuites")
	assert.Contains(t, stdout, "Report uploaded to https://acct.blob.core.windows.net/reports/nightly/"+traced.RunID+".xml\n")
}

func TestRun_NoTrace(t *testing.T) {
	stubRunHooks(t)
	isolateEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("LANGFUSE_PUBLIC_KEY", "pk")
	t.Setenv("LANGFUSE_SECRET_KEY", "sk")

	cfg := writeConfig(t, "providers: [anthropic]\n")
	stdout, _, err := runCLI(t, "--config", cfg, "run", "-s", "tiered-discovery", "--no-trace")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "Tracing")
	assert.NotContains(t, stdout, "Langfuse")
	assert.Contains(t, stdout, "EPF Model Compliance Eval — ")
}

func TestProgressRow(t *testing.T) {
	ok := progressRow(orchestrationEvent("anthropic", "Tiered Discovery", 2, 0.5, ""), false)
	assert.Equal(t, "  [anthropic ] Tiered Discovery... "+reporting.Percent(0.5), ok)

	repeated := progressRow(orchestrationEvent("openai", "Tiered Discovery", 2, 1, ""), true)
	assert.Equal(t, "  [openai    ] Tiered Discovery #2... "+reporting.Percent(1), repeated)

	failed := progressRow(orchestrationEvent("google", "Tiered Discovery", 1, 0, strings.Repeat("x", 80)), false)
	assert.Equal(t, "  [google    ] Tiered Discovery... ERROR: "+reporting.Truncate(strings.Repeat("x", 80), 60), failed)
}

func orchestrationEvent(provider models.ProviderName, name string, repeat int, rate float64, errMsg string) orchestration.ProgressEvent {
	return orchestration.ProgressEvent{
		EventType:    orchestration.EventPairCompleted,
		ScenarioName: name,
		Provider:     provider,
		Repeat:       repeat,
		Rate:         rate,
		Error:        errMsg,
	}
}

func TestProgressPrinterIgnoresStartEvents(t *testing.T) {
	var buf strings.Builder
	p := newProgressPrinter(&buf, 2, false)
	p.listen(orchestration.ProgressEvent{EventType: orchestration.EventPairStarted, Provider: "openai", ScenarioName: "A"})
	p.listen(orchestrationEvent("openai", "A", 1, 1, ""))
	p.stop()

	assert.Equal(t, "  [openai    ] A... "+reporting.Percent(1)+"\n", buf.String())
	assert.Equal(t, 1, p.done)
}
