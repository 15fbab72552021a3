package cli

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"horizons/internal/filewalker"
	"horizons/internal/horizons"
	"horizons/internal/store"
)

var outputFormats = []string{"json", "yaml", "tsv"}

func checkFormat(format string) error {
	for _, f := range outputFormats {
		if f == format {
			return nil
		}
	}
	return fmt.Errorf("unknown output format %q (want json, yaml or tsv)", format)
}

// writeResults prints parsed files. TSV output separates files with a
// "# <path>" line.
func writeResults(w io.Writer, format string, results []*filewalker.ParseResult) error {
	switch format {
	case "json":
		return store.WriteJSON(w, results)
	case "yaml":
		return writeYAML(w, results)
	}

	for _, r := range results {
		if _, err := fmt.Fprintf(w, "# %s\n", r.Path); err != nil {
			return err
		}
		var err error
		if r.Vectors != nil {
			err = store.WriteVectorsTSV(w, r.Vectors)
		} else {
			err = store.WriteElementsTSV(w, r.Elements)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func writeBodies(w io.Writer, format string, bodies []horizons.MajorBody) error {
	switch format {
	case "json":
		return store.WriteJSON(w, bodies)
	case "yaml":
		return writeYAML(w, bodies)
	}

	if _, err := fmt.Fprintln(w, "id\tname\tdesignation"); err != nil {
		return err
	}
	for _, b := range bodies {
		if _, err := fmt.Fprintf(w, "%d\t%s\t%s\n", b.ID, b.Name, b.Designation); err != nil {
			return err
		}
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode YAML: %w", err)
	}
	return enc.Close()
}
