// Package output renders command results as text, tables, JSON or YAML.
package output

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"

	"github.com/agentstation/listingmap/pkg/errors"
)

// Formats.
const (
	Text  = "text"
	Table = "table"
	JSON  = "json"
	YAML  = "yaml"
)

// Data is a value laid out as rows for table output.
type Data struct {
	Headers []string
	Rows    [][]string
}

// Tabular values know how to lay themselves out as a table.
type Tabular interface {
	TableData() Data
}

// Detect returns the explicit format when set. Otherwise it picks a table
// for terminals and plain text for pipes and redirects.
func Detect(explicit string, f *os.File) string {
	if explicit != "" {
		return strings.ToLower(explicit)
	}
	if f != nil && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return Table
	}
	return Text
}

// Print writes v in format. Text output, and table output for values that
// are not Tabular, is delegated to text.
func Print(w io.Writer, format string, v any, text func(io.Writer) error) error {
	switch format {
	case "", Text:
		return text(w)
	case Table:
		t, ok := v.(Tabular)
		if !ok {
			return text(w)
		}
		return WriteTable(w, t.TableData())
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case YAML:
		data, err := yaml.MarshalWithOptions(v, yaml.UseJSONMarshaler())
		if err != nil {
			return errors.WrapParse("yaml", "", err)
		}
		_, err = w.Write(data)
		return err
	default:
		return &errors.ValidationError{Field: "format", Value: format, Message: "must be text, table, json or yaml"}
	}
}

// WriteTable renders data with tablewriter.
func WriteTable(w io.Writer, data Data) error {
	table := tablewriter.NewTable(w)
	if len(data.Headers) > 0 {
		headers := make([]any, len(data.Headers))
		for i, h := range data.Headers {
			headers[i] = h
		}
		table.Header(headers...)
	}
	for _, row := range data.Rows {
		cells := make([]any, len(row))
		for i, c := range row {
			cells[i] = c
		}
		if err := table.Append(cells...); err != nil {
			return err
		}
	}
	return table.Render()
}
