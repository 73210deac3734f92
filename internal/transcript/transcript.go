// Package transcript writes one JSON file per scenario result so failed
// conversations can be inspected turn by turn.
package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/emergent-company/epf-eval/internal/models"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

func sanitizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "-")
	s = unsafeChars.ReplaceAllString(s, "")
	if s == "" {
		s = "unnamed"
	}
	return s
}

// File is the on-disk shape of a transcript.
type File struct {
	RunID          string                 `json:"run_id"`
	ScenarioID     string                 `json:"scenario_id"`
	ScenarioName   string                 `json:"scenario_name"`
	Provider       models.ProviderName    `json:"provider"`
	Model          string                 `json:"model"`
	ComplianceRate float64                `json:"compliance_rate"`
	Error          string                 `json:"error,omitempty"`
	DurationMs     int64                  `json:"duration_ms"`
	ToolSequence   []string               `json:"tool_sequence"`
	Scores         []models.BehaviorScore `json:"scores"`
	Conversation   *models.Conversation   `json:"conversation"`
}

// Filename returns the transcript filename for the index-th result of a run.
// The index keeps repeated pairs apart.
func Filename(runID string, index int, r *models.ScenarioResult) string {
	return fmt.Sprintf("%s-%03d-%s-%s.json", sanitizeName(runID), index, sanitizeName(string(r.Provider)), sanitizeName(r.ScenarioID))
}

// Build assembles the transcript for one result.
func Build(runID string, r *models.ScenarioResult) *File {
	scores := r.Scores
	if scores == nil {
		scores = []models.BehaviorScore{}
	}
	return &File{
		RunID:          runID,
		ScenarioID:     r.ScenarioID,
		ScenarioName:   r.ScenarioName,
		Provider:       r.Provider,
		Model:          r.Model,
		ComplianceRate: r.ComplianceRate(),
		Error:          r.Error,
		DurationMs:     r.DurationMs,
		ToolSequence:   r.ToolSequence(),
		Scores:         scores,
		Conversation:   r.Conversation,
	}
}

// Write serializes the index-th result of a run into dir.
func Write(dir, runID string, index int, r *models.ScenarioResult) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create transcript dir: %w", err)
	}

	path := filepath.Join(dir, Filename(runID, index, r))

	data, err := json.MarshalIndent(Build(runID, r), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal transcript: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}

	return path, nil
}

// WriteAll writes a transcript for every result of run and returns the paths
// in result order.
func WriteAll(dir string, run *models.EvalRun) ([]string, error) {
	paths := make([]string, 0, len(run.Results))
	for i, r := range run.Results {
		path, err := Write(dir, run.RunID, i, r)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
