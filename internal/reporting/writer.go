package reporting

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/emergent-company/epf-eval/internal/models"
)

// Format names a report rendering.
type Format string

const (
	FormatTableName    Format = "table"
	FormatJSONName     Format = "json"
	FormatJUnitName    Format = "junit"
	FormatMarkdownName Format = "markdown"
)

// Formats lists every supported format.
var Formats = []Format{FormatTableName, FormatJSONName, FormatJUnitName, FormatMarkdownName}

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == strings.ToLower(s) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown report format %q (want one of table, json, junit, markdown)", s)
}

// Extension is the file suffix a report in f is written with.
func (f Format) Extension() string {
	switch f {
	case FormatJSONName:
		return ".json"
	case FormatJUnitName:
		return ".xml"
	case FormatMarkdownName:
		return ".md"
	default:
		return ".txt"
	}
}

// ContentType is the MIME type of a report in f.
func (f Format) ContentType() string {
	switch f {
	case FormatJSONName:
		return "application/json"
	case FormatJUnitName:
		return "application/xml"
	case FormatMarkdownName:
		return "text/markdown; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// FormatFromPath guesses a format from an output path, ignoring any
// compression suffix. It returns fallback when the extension says nothing.
func FormatFromPath(path string, fallback Format) Format {
	base := strings.TrimSuffix(strings.TrimSuffix(strings.ToLower(path), ".gz"), ".zst")
	switch filepath.Ext(base) {
	case ".json":
		return FormatJSONName
	case ".xml":
		return FormatJUnitName
	case ".md":
		return FormatMarkdownName
	case ".txt":
		return FormatTableName
	default:
		return fallback
	}
}

// Render produces the report bytes for format.
func Render(run *models.EvalRun, format Format) ([]byte, error) {
	switch format {
	case FormatTableName, "":
		return []byte(FormatTable(run)), nil
	case FormatJSONName:
		return FormatJSON(run)
	case FormatJUnitName:
		return FormatJUnit(run)
	case FormatMarkdownName:
		return []byte(FormatMarkdown(run)), nil
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

// Compression is chosen from the output file extension.
type Compression string

const (
	CompressionNone Compression = ""
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// CompressionFor maps .gz to gzip and .zst to zstd; anything else is stored
// as is.
func CompressionFor(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return CompressionGzip
	case ".zst":
		return CompressionZstd
	default:
		return CompressionNone
	}
}

// Encode compresses data with c.
func Encode(c Compression, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	var w io.WriteCloser
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionGzip:
		w = gzip.NewWriter(&buf)
	case CompressionZstd:
		zw, err := zstd.NewWriter(&buf)
		if err != nil {
			return nil, fmt.Errorf("creating zstd writer: %w", err)
		}
		w = zw
	default:
		return nil, fmt.Errorf("unknown compression %q", c)
	}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("compressing report: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compressing report: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reverses Encode.
func Decode(c Compression, data []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close() //nolint:errcheck
		return io.ReadAll(r)
	case CompressionZstd:
		r, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	default:
		return nil, fmt.Errorf("unknown compression %q", c)
	}
}

// WriteFile writes data to path, compressing by extension and creating
// parent directories.
func WriteFile(path string, data []byte) error {
	encoded, err := Encode(CompressionFor(path), data)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
