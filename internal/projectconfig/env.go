package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/emergent-company/epf-eval/internal/utils"
)

// LoadDotEnv loads .env from each directory that has one. Variables already
// present in the environment are never overridden. It returns the files
// that were loaded.
func LoadDotEnv(dirs ...string) ([]string, error) {
	var loaded []string
	for _, dir := range utils.UniqueDirs(dirs...) {
		p := filepath.Join(dir, ".env")
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return loaded, fmt.Errorf("reading %s: %w", p, err)
		}
		if err := godotenv.Load(p); err != nil {
			return loaded, fmt.Errorf("loading %s: %w", p, err)
		}
		loaded = append(loaded, p)
	}
	return loaded, nil
}

// Env layers the file's Vertex settings under getenv: a variable set in the
// environment wins, otherwise the config value is returned.
func (c *ProjectConfig) Env(getenv func(string) string) func(string) string {
	fallback := map[string]string{
		"VERTEX_PROJECT":       c.Vertex.Project,
		"VERTEX_CLAUDE_REGION": c.Vertex.ClaudeRegion,
		"VERTEX_GEMINI_REGION": c.Vertex.GeminiRegion,
	}
	return func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fallback[key]
	}
}

// ModelFor returns the configured model override for provider, or "".
func (c *ProjectConfig) ModelFor(provider string) string {
	return c.Models[provider]
}
