package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// Format represents an output format.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatYAML), "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// Table is the tabular view of a result.
type Table struct {
	Header table.Row
	Rows   []table.Row
	// Footer is printed under the rows when non-empty.
	Footer string
}

// Printer writes results in one format.
type Printer struct {
	w      io.Writer
	format Format
}

// NewPrinter returns a printer writing to w.
func NewPrinter(w io.Writer, format Format) *Printer {
	return &Printer{w: w, format: format}
}

// Format reports the printer's format.
func (p *Printer) Format() Format {
	return p.format
}

// Print renders data as JSON or YAML, or tbl in table format.
func (p *Printer) Print(data any, tbl *Table) error {
	switch p.format {
	case FormatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		return writeYAML(p.w, data)
	default:
		if tbl == nil {
			return writeYAML(p.w, data)
		}
		_, err := fmt.Fprintln(p.w, renderTable(tbl))
		return err
	}
}

// writeYAML round-trips data through JSON so YAML keys follow the API
// field names.
func writeYAML(w io.Writer, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

func renderTable(tbl *Table) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(tbl.Header)
	t.AppendRows(tbl.Rows)
	if tbl.Footer != "" {
		footer := make(table.Row, len(tbl.Header))
		footer[0] = tbl.Footer
		t.AppendFooter(footer)
	}
	return t.Render()
}
