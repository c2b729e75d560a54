package render

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format represents an output format
type Format string

const (
	FormatTable  Format = "table"
	FormatJSON   Format = "json"
	FormatNDJSON Format = "ndjson"
	FormatYAML   Format = "yaml"
	FormatTSV    Format = "tsv"
)

// ParseFormat validates an output format name. Empty means table.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatNDJSON, FormatYAML, FormatTSV:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want table, json, ndjson, yaml or tsv)", s)
}

// Options for rendering
type Options struct {
	Format    Format
	Porcelain bool
}

// Renderer handles output rendering
type Renderer struct {
	writer io.Writer
	opts   Options
}

// NewRenderer creates a new renderer
func NewRenderer(writer io.Writer, opts Options) *Renderer {
	if opts.Format == "" {
		opts.Format = FormatTable
	}
	return &Renderer{
		writer: writer,
		opts:   opts,
	}
}

// Format returns the format the renderer writes
func (r *Renderer) Format() Format {
	return r.opts.Format
}

// Render writes data in the configured format. table supplies headers and
// rows for the table and tsv formats and may be nil when data has no tabular
// form, in which case those formats fall back to JSON.
func (r *Renderer) Render(data any, table func() ([]string, [][]string)) error {
	switch r.opts.Format {
	case FormatJSON:
		return r.RenderJSON(data)
	case FormatYAML:
		return r.RenderYAML(data)
	case FormatNDJSON:
		return r.RenderNDJSON(data)
	}
	if table == nil {
		return r.RenderJSON(data)
	}
	headers, rows := table()
	if r.opts.Format == FormatTSV {
		return r.RenderTSV(headers, rows)
	}
	return r.RenderTable(headers, rows)
}

// RenderJSON renders data as JSON
func (r *Renderer) RenderJSON(data any) error {
	encoder := json.NewEncoder(r.writer)
	encoder.SetEscapeHTML(false)
	if !r.opts.Porcelain {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// RenderNDJSON renders a slice as one JSON document per line. Anything else
// is written as a single line.
func (r *Renderer) RenderNDJSON(data any) error {
	encoder := json.NewEncoder(r.writer)
	encoder.SetEscapeHTML(false)

	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return encoder.Encode(data)
	}
	for i := 0; i < v.Len(); i++ {
		if err := encoder.Encode(v.Index(i).Interface()); err != nil {
			return err
		}
	}
	return nil
}

// RenderYAML renders data as YAML. The value goes through its JSON form first
// so field names and omitempty rules match the JSON output.
func (r *Renderer) RenderYAML(data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal for yaml: %w", err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to convert json to yaml: %w", err)
	}
	blockStyle(&doc)

	encoder := yaml.NewEncoder(r.writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return err
	}
	return encoder.Close()
}

// blockStyle drops the flow and quoting styles the JSON parse left on every
// node. The encoder still quotes strings that would otherwise read as another
// type.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// RenderTSV renders data as tab-separated values
func (r *Renderer) RenderTSV(headers []string, rows [][]string) error {
	if _, err := fmt.Fprintln(r.writer, strings.Join(headers, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(r.writer, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return nil
}

// RenderTable renders data as a formatted table
func (r *Renderer) RenderTable(headers []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	if r.opts.Porcelain {
		return r.RenderTSV(headers, rows)
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	r.renderTableRow(headers, widths)
	r.renderTableSeparator(widths)
	for _, row := range rows {
		r.renderTableRow(row, widths)
	}
	return nil
}

func (r *Renderer) renderTableRow(cells []string, widths []int) {
	var b strings.Builder
	for i, cell := range cells {
		if i >= len(widths) {
			break
		}
		if i == len(cells)-1 || i == len(widths)-1 {
			b.WriteString(cell)
			break
		}
		fmt.Fprintf(&b, "%-*s  ", widths[i], cell)
	}
	fmt.Fprintln(r.writer, b.String())
}

func (r *Renderer) renderTableSeparator(widths []int) {
	parts := make([]string, len(widths))
	for i, width := range widths {
		parts[i] = strings.Repeat("-", width)
	}
	fmt.Fprintln(r.writer, strings.Join(parts, "  "))
}
