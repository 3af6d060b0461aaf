package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// printer writes text output, aligned in columns when rows are tab separated.
type printer struct {
	tw *tabwriter.Writer
}

func (p *printer) line(format string, args ...any) {
	fmt.Fprintf(p.tw, format+"\n", args...)
}

// row writes one tab separated table row.
func (p *printer) row(cells ...string) {
	for i, c := range cells {
		if i > 0 {
			fmt.Fprint(p.tw, "\t")
		}
		fmt.Fprint(p.tw, c)
	}
	fmt.Fprintln(p.tw)
}

// render writes v as JSON or YAML, or calls text for the text format.
func render(w io.Writer, v any, text func(p *printer)) error {
	switch outputFormat {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		// Round trip through JSON so YAML keys follow the json tags.
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(b, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		p := &printer{tw: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
		text(p)
		return p.tw.Flush()
	}
}

// renderRaw prints a raw JSON document; text output is indented JSON.
func renderRaw(w io.Writer, raw json.RawMessage) error {
	if outputFormat != formatText {
		return render(w, raw, nil)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(generic)
}
