package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/epf-eval/internal/scenarios"
)

func TestDryRun(t *testing.T) {
	isolateEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("VERTEX_PROJECT", "acme")
	cfg := writeConfig(t, "")

	out, _, err := runCLI(t, "--config", cfg, "dry-run")
	require.NoError(t, err)

	assert.Contains(t, out, "=== EPF Model Compliance Eval — Dry Run ===")
	assert.Contains(t, out, "  All tool schemas valid (OpenAI, Anthropic, Google)\n")
	assert.Contains(t, out, "epf_health_check__healthy")
	assert.Contains(t, out, "      suggests: epf_get_wizard_for_task, epf_validate_relationships, epf_validate_with_plan\n")
	assert.Contains(t, out, "Guidance contract valid in all")
	assert.Contains(t, out, "Scenario: "+scenarios.All()[0].Name)
	assert.Contains(t, out, "✓ openai       configured")
	assert.Contains(t, out, "✗ anthropic    not set")
	assert.Contains(t, out, "  Project:  acme\n")
	assert.Contains(t, out, "  Tracing: not configured\n")
	assert.Contains(t, out, "=== Dry run complete — framework is ready ===")
	assert.NotContains(t, out, "Agent loop simulation")
	assert.NotContains(t, out, "✗ missing fixture")
}

func TestDryRunSimulate(t *testing.T) {
	isolateEnv(t)
	cfg := writeConfig(t, "tracing:\n  endpoint: http://localhost:4318/v1/traces\n")

	out, _, err := runCLI(t, "--config", cfg, "dry-run", "--simulate")
	require.NoError(t, err)

	assert.Contains(t, out, "Agent loop simulation (scripted provider):\n")
	for _, s := range scenarios.All() {
		assert.Contains(t, out, "  "+s.ID)
	}
	assert.Contains(t, out, "  Tracing: http://localhost:4318/v1/traces\n")
	assert.Contains(t, out, "=== Dry run complete — framework is ready ===")
}
