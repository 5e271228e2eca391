package serializer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Format is an output encoding for reports.
type Format string

const (
	// FormatJSON writes indented JSON.
	FormatJSON Format = "json"
	// FormatYAML writes YAML.
	FormatYAML Format = "yaml"
	// FormatTable writes one KEY/VALUE row per leaf of the report.
	FormatTable Format = "table"
)

// IsUnknown reports whether f is not a supported format.
func (f Format) IsUnknown() bool {
	return !slices.Contains(SupportedFormats(), string(f))
}

// SupportedFormats returns the accepted --format values.
func SupportedFormats() []string {
	return []string{string(FormatJSON), string(FormatYAML), string(FormatTable)}
}

// Writer serializes reports to an output in one Format.
type Writer struct {
	format Format
	output io.Writer
	closer io.Closer
}

func newWriter(format Format, output io.Writer, closer io.Closer) *Writer {
	if format.IsUnknown() {
		slog.Warn("unknown format, defaulting to JSON", "format", format)
		format = FormatJSON
	}
	if output == nil {
		output = os.Stdout
	}
	return &Writer{format: format, output: output, closer: closer}
}

// NewWriter returns a Writer on output, or stdout when output is nil.
// Unknown formats fall back to JSON.
func NewWriter(format Format, output io.Writer) *Writer {
	return newWriter(format, output, nil)
}

// NewStdoutWriter returns a Writer on stdout.
func NewStdoutWriter(format Format) *Writer {
	return newWriter(format, os.Stdout, nil)
}

// NewFileWriterOrStdout creates a Writer for the file at path. An empty
// path, or a file that cannot be created, falls back to stdout.
// Call Close on the returned Writer to release the file.
func NewFileWriterOrStdout(format Format, path string) *Writer {
	path = strings.TrimSpace(path)
	if path == "" {
		return NewStdoutWriter(format)
	}
	file, err := os.Create(path)
	if err != nil {
		slog.Error("failed to create output file, writing to stdout", "error", err, "path", path)
		return NewStdoutWriter(format)
	}
	return newWriter(format, file, file)
}

// Close releases the output file, if any. Safe on stdout writers.
func (w *Writer) Close() error {
	if w.closer == nil {
		return nil
	}
	err := w.closer.Close()
	w.closer = nil
	return err
}

// Serialize writes v in the configured format. ctx is checked before
// writing; the write itself is not interruptible.
func (w *Writer) Serialize(ctx context.Context, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch w.format {
	case FormatJSON:
		enc := json.NewEncoder(w.output)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to serialize to JSON: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w.output)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to serialize to YAML: %w", err)
		}
		return enc.Close()
	case FormatTable:
		return w.serializeTable(v)
	default:
		return fmt.Errorf("unsupported format: %s", w.format)
	}
}

type row struct {
	key   string
	value string
}

func (w *Writer) serializeTable(v any) error {
	rows, err := tableRows(v)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w.output, "<empty>")
		return err
	}

	tw := tabwriter.NewWriter(w.output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tVALUE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", r.key, r.value)
	}
	return tw.Flush()
}

// tableRows flattens the JSON form of v, so keys follow json tags and
// embedded envelopes (kind, apiVersion, metadata.*, spec.bundles[0].coordinate).
// Object keys are sorted; arrays keep their order.
func tableRows(v any) ([]row, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize to table: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("failed to serialize to table: %w", err)
	}

	var rows []row
	appendRows(&rows, "", tree)
	return rows, nil
}

func appendRows(rows *[]row, key string, node any) {
	switch n := node.(type) {
	case map[string]any:
		if len(n) == 0 {
			if key != "" {
				*rows = append(*rows, row{key, "{}"})
			}
			return
		}
		for _, k := range slices.Sorted(maps.Keys(n)) {
			child := k
			if key != "" {
				child = key + "." + k
			}
			appendRows(rows, child, n[k])
		}
	case []any:
		if len(n) == 0 {
			if key != "" {
				*rows = append(*rows, row{key, "[]"})
			}
			return
		}
		for i, e := range n {
			appendRows(rows, fmt.Sprintf("%s[%d]", key, i), e)
		}
	case nil:
		*rows = append(*rows, row{leafKey(key), "-"})
	default:
		*rows = append(*rows, row{leafKey(key), fmt.Sprint(n)})
	}
}

func leafKey(key string) string {
	if key == "" {
		return "value"
	}
	return key
}
