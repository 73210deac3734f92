package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/emergent-company/epf-eval/internal/execution"
	"github.com/emergent-company/epf-eval/internal/metrics"
	"github.com/emergent-company/epf-eval/internal/models"
	"github.com/emergent-company/epf-eval/internal/orchestration"
	"github.com/emergent-company/epf-eval/internal/providers"
	"github.com/emergent-company/epf-eval/internal/reporting"
	"github.com/emergent-company/epf-eval/internal/scenarios"
	"github.com/emergent-company/epf-eval/internal/telemetry"
	"github.com/emergent-company/epf-eval/internal/tools"
	"github.com/emergent-company/epf-eval/internal/transcript"
	"github.com/emergent-company/epf-eval/internal/upload"
)

// Test hooks.
var (
	newProvider  = defaultNewProvider
	exportTraces = telemetry.Export
	uploadReport = upload.Blob
	now          = time.Now
)

type runOptions struct {
	providers     []string
	scenarios     []string
	model         string
	jsonOutput    bool
	output        string
	format        string
	noTrace       bool
	vertex        bool
	workers       int
	repeat        int
	maxTurns      int
	timeout       time.Duration
	transcriptDir string
	metricsFile   string
	uploadURL     string
	interactive   bool
}

func newRunCommand(a *app) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run eval scenarios against model providers",
		Long: `Run eval scenarios against model providers.

Every selected scenario runs against every selected provider. Providers
default to anthropic, openai and google (or the providers listed in the
project config); scenarios default to all of them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEval(cmd, a, o)
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&o.providers, "provider", "p", nil, "Provider(s) to test (can be repeated)")
	f.StringArrayVarP(&o.scenarios, "scenario", "s", nil, "Scenario ID, name or glob pattern (can be repeated). Defaults to all")
	f.StringVarP(&o.model, "model", "m", "", "Override model name (applies to all providers)")
	f.BoolVarP(&o.jsonOutput, "json-output", "j", false, "Output as JSON (same as --format json)")
	f.StringVarP(&o.output, "output", "o", "", "Write results to file (.gz and .zst are compressed)")
	f.StringVar(&o.format, "format", string(reporting.FormatTableName), "Report format: table, json, junit, markdown")
	f.BoolVar(&o.noTrace, "no-trace", false, "Disable trace export")
	f.BoolVar(&o.vertex, "vertex", false, "Use Vertex AI providers (vertex-claude + vertex-gemini). Uses ADC auth")
	f.IntVar(&o.workers, "workers", 0, "Number of concurrent scenario runs (default from config, 1)")
	f.IntVar(&o.repeat, "repeat", 0, "Run each scenario N times per provider (default from config, 1)")
	f.IntVar(&o.maxTurns, "max-turns", 0, "Agent loop turn ceiling (default from config, 10)")
	f.DurationVar(&o.timeout, "timeout", 0, "Per-call provider timeout (default from config, 2m)")
	f.StringVar(&o.transcriptDir, "transcript-dir", "", "Directory to save per-result transcript JSON files")
	f.StringVar(&o.metricsFile, "metrics-file", "", "Write Prometheus textfile metrics to this path")
	f.StringVar(&o.uploadURL, "upload", "", "Upload the report to an Azure Blob URL (container or blob, optional SAS)")
	f.BoolVar(&o.interactive, "interactive", false, "Choose providers and scenarios interactively")

	return cmd
}

// applyConfig fills unset flags from the project config.
func (o *runOptions) applyConfig(a *app) {
	if o.workers <= 0 {
		o.workers = a.cfg.Workers
	}
	if o.repeat <= 0 {
		o.repeat = a.cfg.Repeat
	}
	if o.maxTurns <= 0 {
		o.maxTurns = a.cfg.MaxTurns
	}
	if o.timeout <= 0 {
		o.timeout = a.cfg.CallTimeout
	}
	if o.transcriptDir == "" {
		o.transcriptDir = a.cfg.Output.TranscriptDir
	}
	if o.metricsFile == "" {
		o.metricsFile = a.cfg.Output.MetricsFile
	}
	if o.uploadURL == "" {
		o.uploadURL = a.cfg.Output.Upload
	}
}

// reportFormat resolves --format, -j and the -o extension, in that order of
// precedence when set explicitly.
func (o *runOptions) reportFormat(formatChanged bool) (reporting.Format, error) {
	if o.jsonOutput {
		return reporting.FormatJSONName, nil
	}
	f, err := reporting.ParseFormat(o.format)
	if err != nil {
		return "", err
	}
	if !formatChanged && o.output != "" {
		f = reporting.FormatFromPath(o.output, f)
	}
	return f, nil
}

// resolveProviderNames applies --vertex to the requested names. Explicit
// names keep their order; anthropic and google map to their Vertex variants.
func resolveProviderNames(requested, defaults []string, vertex bool) []string {
	if vertex && len(requested) == 0 {
		return []string{"vertex-claude", "vertex-gemini"}
	}
	names := requested
	if len(names) == 0 {
		names = defaults
	}
	if !vertex {
		return append([]string(nil), names...)
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		switch n {
		case "anthropic":
			out = append(out, "vertex-claude")
		case "google":
			out = append(out, "vertex-gemini")
		default:
			out = append(out, n)
		}
	}
	return out
}

// providerConfigs resolves every name, collecting missing API keys.
func providerConfigs(names []string, model string, a *app) ([]providers.Config, []string, error) {
	var cfgs []providers.Config
	var missing []string
	for _, n := range names {
		name := models.ProviderName(n)
		m := model
		if m == "" {
			m = a.cfg.ModelFor(n)
		}
		cfg, err := providers.LookupEnv(name, m, a.getenv)
		if err != nil {
			return nil, nil, &UsageError{Err: err}
		}
		if cfg.Auth == providers.AuthAPIKey && cfg.APIKey == "" {
			missing = append(missing, fmt.Sprintf("%s (%s)", n, providers.APIKeyEnv(name)))
		}
		cfgs = append(cfgs, cfg)
	}
	return cfgs, missing, nil
}

func defaultNewProvider(cfg providers.Config) (providers.Provider, error) {
	return providers.New(cfg)
}

func runEval(cmd *cobra.Command, a *app, o *runOptions) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	o.applyConfig(a)

	format, err := o.reportFormat(cmd.Flags().Changed("format"))
	if err != nil {
		return &UsageError{Err: err}
	}

	if o.interactive {
		picked, err := selectInteractive(cmd.InOrStdin(), stderr, a.cfg.Providers)
		if err != nil {
			return &UsageError{Err: err}
		}
		o.providers, o.scenarios = picked.providers, picked.scenarios
	}

	names := resolveProviderNames(o.providers, a.cfg.Providers, o.vertex)
	selected, err := orchestration.SelectScenarios(scenarios.All(), o.scenarios)
	if err != nil {
		return &UsageError{Err: err}
	}
	cfgs, missing, err := providerConfigs(names, o.model, a)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		fmt.Fprintf(stderr, "Missing API keys: %s\n", strings.Join(missing, ", "))
		fmt.Fprintln(stderr, "Set them in .env or environment variables.")
		return &UsageError{Err: errors.New("missing API keys"), Quiet: true}
	}

	provs := make([]providers.Provider, 0, len(cfgs))
	for _, c := range cfgs {
		p, err := newProvider(c)
		if err != nil {
			return usageErrorf("provider %s: %w", c.Name, err)
		}
		provs = append(provs, providers.RateLimited(p, providers.NewLimiter(a.cfg.RateLimit.RequestsPerMinute, a.cfg.RateLimit.Burst)))
	}

	total := len(provs) * len(selected) * o.repeat
	plan := fmt.Sprintf("%d scenarios × %d providers", len(selected), len(provs))
	if o.repeat > 1 {
		plan += fmt.Sprintf(" × %d repeats", o.repeat)
	}
	fmt.Fprintf(stdout, "\nRunning %d eval(s): %s\n\n", total, plan)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	progress := newProgressPrinter(stdout, total, o.repeat > 1)
	runner := orchestration.NewRunner(tools.NewRegistry(),
		orchestration.WithWorkers(o.workers),
		orchestration.WithRepeats(o.repeat),
		orchestration.WithLoopOptions(execution.LoopOptions{MaxTurns: o.maxTurns, CallTimeout: o.timeout}),
		orchestration.WithProgressListener(progress.listen),
	)
	run, runErr := runner.Run(ctx, orchestration.NewRunID(now()), selected, provs)
	progress.stop()
	fmt.Fprintln(stdout)
	if run == nil {
		return runErr
	}

	if !o.noTrace {
		traceRun(ctx, stdout, stderr, a, run)
	}

	if o.transcriptDir != "" {
		files, err := transcript.WriteAll(o.transcriptDir, run)
		if err != nil {
			fmt.Fprintf(stderr, "[WARN] writing transcripts: %v\n", err)
		} else {
			fmt.Fprintf(stdout, "Transcripts written to %s (%d files)\n", o.transcriptDir, len(files))
		}
	}
	if o.metricsFile != "" {
		if err := metrics.WriteTextfile(o.metricsFile, run); err != nil {
			fmt.Fprintf(stderr, "[WARN] %v\n", err)
		} else {
			fmt.Fprintf(stdout, "Metrics written to %s\n", o.metricsFile)
		}
	}

	report, err := reporting.Render(run, format)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, strings.TrimRight(string(report), "\n"))

	if o.output != "" {
		if err := reporting.WriteFile(o.output, report); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Results written to %s\n", o.output)
	}
	if o.uploadURL != "" {
		if err := uploadRun(ctx, stdout, a, o.uploadURL, run.RunID, format, report); err != nil {
			return err
		}
	}

	return runErr
}

func traceRun(ctx context.Context, stdout, stderr io.Writer, a *app, run *models.EvalRun) {
	cfg := telemetry.FromEnv(a.getenv, a.cfg.Tracing.Endpoint, a.cfg.Tracing.ServiceName)
	if !cfg.Enabled() {
		fmt.Fprint(stdout, "Langfuse not configured — skipping tracing.\n\n")
		return
	}
	fmt.Fprintf(stdout, "Tracing to %s...\n", cfg.Target())
	n, err := exportTraces(ctx, cfg, run)
	if err != nil {
		fmt.Fprintf(stderr, "[WARN] trace export failed: %v\n", err)
	}
	fmt.Fprintf(stdout, "  %d traces sent.\n\n", n)
}

func uploadRun(ctx context.Context, stdout io.Writer, a *app, rawURL, runID string, format reporting.Format, report []byte) error {
	dest, err := upload.ParseDestination(rawURL, runID+format.Extension())
	if err != nil {
		return &UsageError{Err: err}
	}
	u, err := uploadReport(ctx, dest, report, upload.Options{
		ConnectionString: a.getenv(upload.ConnectionStringEnv),
		ContentType:      format.ContentType(),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Report uploaded to %s\n", u)
	return nil
}
