package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/epf-eval/internal/scenarios"
	"github.com/emergent-company/epf-eval/internal/tools"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := execute(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestListCommand(t *testing.T) {
	out, _, err := runCLI(t, "list")
	require.NoError(t, err)

	assert.Contains(t, out, "ID")
	assert.Contains(t, out, strings.Repeat("-", 100))
	for _, s := range scenarios.All() {
		assert.Contains(t, out, "  "+s.ID)
		assert.Contains(t, out, s.Name)
	}
	assert.Contains(t, out, "follows_required_tool_calls")
	assert.Contains(t, out, "\n6 scenarios available.\n")
}

func TestShowSystemPromptCommand(t *testing.T) {
	out, _, err := runCLI(t, "show-system-prompt")
	require.NoError(t, err)
	assert.Equal(t, scenarios.SystemPrompt+"\n", out)
}

func TestShowToolsCommand(t *testing.T) {
	out, _, err := runCLI(t, "show-tools")
	require.NoError(t, err)

	assert.Contains(t, out, "\nTier 1 (Essential)\n")
	assert.Contains(t, out, "\nTier 2 (Guided)\n")
	assert.Contains(t, out, "\nTier 3 (Specialized)\n")
	assert.Contains(t, out, "(instance_path, detail_level)")
	for _, td := range tools.All() {
		assert.Contains(t, out, "  "+td.Name)
	}

	// Tier 1 is listed before Tier 3.
	assert.Less(t, strings.Index(out, "epf_health_check"), strings.Index(out, "Tier 3"))
}
