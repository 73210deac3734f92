package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath makes p relative to baseDir. Empty and absolute paths are
// returned unchanged, and a leading "~/" expands to the home directory.
func ResolvePath(p, baseDir string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	if rest, ok := strings.CutPrefix(p, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	if baseDir == "" {
		return p
	}
	return filepath.Join(baseDir, p)
}

// UniqueDirs returns the distinct non-empty directories in order.
func UniqueDirs(dirs ...string) []string {
	seen := make(map[string]bool, len(dirs))
	var out []string
	for _, d := range dirs {
		if d == "" {
			continue
		}
		clean := filepath.Clean(d)
		if seen[clean] {
			continue
		}
		seen[clean] = true
		out = append(out, clean)
	}
	return out
}
