package horizons

import (
	"iter"
	"strconv"
	"strings"
)

// MajorBody is one row of the major body listing.
type MajorBody struct {
	ID          int      `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Designation string   `json:"designation,omitempty" yaml:"designation,omitempty"`
	Aliases     []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// column is the byte span of one table column, taken from the dashed rule
// under the header. The last column runs to the end of the line.
type column struct {
	start, end int
}

// ParseMajorBodies reads the table returned for COMMAND=MB. Rows between the
// dashed rule and the first blank line are decoded; rows whose first column
// is not an integer id are skipped.
func ParseMajorBodies(lines iter.Seq[string]) []MajorBody {
	var (
		bodies []MajorBody
		cols   []column
	)
	for line := range lines {
		if cols == nil {
			if isRule(line) {
				cols = ruleColumns(line)
			}
			continue
		}
		if strings.TrimSpace(line) == "" {
			break
		}
		if b, ok := parseBodyRow(line, cols); ok {
			bodies = append(bodies, b)
		}
	}
	return bodies
}

func isRule(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "---") && strings.Trim(t, "- ") == ""
}

func ruleColumns(rule string) []column {
	var cols []column
	for i := 0; i < len(rule); {
		if rule[i] != '-' {
			i++
			continue
		}
		j := i
		for j < len(rule) && rule[j] == '-' {
			j++
		}
		cols = append(cols, column{start: i, end: j})
		i = j
	}
	// Values may spill into the gap before the next column.
	for k := 0; k+1 < len(cols); k++ {
		cols[k].end = cols[k+1].start
	}
	if len(cols) > 0 {
		cols[0].start = 0
		cols[len(cols)-1].end = -1
	}
	return cols
}

func cell(line string, c column) string {
	if c.start >= len(line) {
		return ""
	}
	end := c.end
	if end < 0 || end > len(line) {
		end = len(line)
	}
	return strings.TrimSpace(line[c.start:end])
}

func parseBodyRow(line string, cols []column) (MajorBody, bool) {
	if len(cols) < 2 {
		return MajorBody{}, false
	}
	id, err := strconv.Atoi(cell(line, cols[0]))
	if err != nil {
		return MajorBody{}, false
	}
	b := MajorBody{ID: id, Name: cell(line, cols[1])}
	if len(cols) > 2 {
		b.Designation = cell(line, cols[2])
	}
	if len(cols) > 3 {
		for _, alias := range strings.Split(cell(line, cols[3]), ",") {
			if alias = strings.TrimSpace(alias); alias != "" {
				b.Aliases = append(b.Aliases, alias)
			}
		}
	}
	return b, true
}

// FindBody returns the first body whose name matches name, ignoring case.
func FindBody(bodies []MajorBody, name string) (MajorBody, bool) {
	for _, b := range bodies {
		if strings.EqualFold(b.Name, name) {
			return b, true
		}
	}
	return MajorBody{}, false
}
