package ephemeris

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// label points at a span of the source with a short message.
type label struct {
	start, end int
	message    string
}

// report is the rendered form of one SyntaxError.
type report struct {
	message string
	labels  []label
	note    string
}

func newReport(e *SyntaxError) report {
	switch e.Reason {
	case ReasonUnclosed:
		return report{
			message: "Unclosed delimiter",
			labels: []label{
				{start: e.DelimiterOffset, end: e.DelimiterOffset + len(e.Delimiter), message: "Unclosed delimiter " + e.Delimiter},
				{start: e.Offset, end: e.End, message: "Must be closed before this " + describeFound(e.Found)},
			},
			note: expectedNote(e.Expected),
		}
	case ReasonCustom:
		return report{
			message: e.Message,
			labels:  []label{{start: e.Offset, end: e.End, message: e.Message}},
		}
	}
	if e.Found == "" {
		return report{
			message: "Unexpected end of input",
			labels:  []label{{start: e.Offset, end: e.End, message: "Input ends here"}},
			note:    expectedNote(e.Expected),
		}
	}
	return report{
		message: "Unexpected token",
		labels:  []label{{start: e.Offset, end: e.End, message: "Unexpected token " + describeFound(e.Found)}},
		note:    expectedNote(e.Expected),
	}
}

func describeFound(found string) string {
	if found == "" {
		return "end of input"
	}
	return strconv.Quote(found)
}

func expectedNote(expected []string) string {
	if len(expected) == 0 {
		return ""
	}
	return "Expected " + strings.Join(expected, ", ")
}

// RenderDiagnostics writes one report per error to w: a message, the source
// lines under each labeled span and, when known, the tokens that would have
// been accepted. path names the source in the location header.
func RenderDiagnostics(w io.Writer, source, path string, errs SyntaxErrors) error {
	r := lipgloss.NewRenderer(w)
	st := styles{
		title:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		gutter: r.NewStyle().Foreground(lipgloss.Color("12")),
		marker: r.NewStyle().Foreground(lipgloss.Color("9")),
		note:   r.NewStyle().Faint(true),
	}

	var b strings.Builder
	for _, e := range errs {
		renderReport(&b, st, source, path, newReport(e))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

type styles struct {
	title, gutter, marker, note lipgloss.Style
}

func renderReport(b *strings.Builder, st styles, source, path string, rep report) {
	fmt.Fprintf(b, "%s %s\n", st.title.Render("Error:"), rep.message)

	width := 1
	for _, l := range rep.labels {
		line, _, _ := locate(source, l.start)
		width = max(width, len(strconv.Itoa(line)))
	}
	pad := strings.Repeat(" ", width)

	if len(rep.labels) > 0 {
		line, col, _ := locate(source, rep.labels[0].start)
		fmt.Fprintf(b, "%s %s %s:%d:%d\n", pad, st.gutter.Render("-->"), path, line, col)
	}
	for _, l := range rep.labels {
		line, col, text := locate(source, l.start)
		fmt.Fprintf(b, "%s %s\n", pad, st.gutter.Render("|"))
		fmt.Fprintf(b, "%*d %s %s\n", width, line, st.gutter.Render("|"), text)

		span := max(1, min(l.end-l.start, len(text)-(col-1)))
		indent := indentFor(text, col-1)
		fmt.Fprintf(b, "%s %s %s%s %s\n", pad, st.gutter.Render("|"), indent,
			st.marker.Render(strings.Repeat("^", span)), l.message)
	}
	if rep.note != "" {
		fmt.Fprintf(b, "%s %s %s\n", pad, st.gutter.Render("="), st.note.Render("note: "+rep.note))
	}
	b.WriteString("\n")
}

// locate converts a byte offset into a 1-based line and column and returns
// the text of that line without its line ending.
func locate(source string, offset int) (line, col int, text string) {
	offset = min(max(offset, 0), len(source))
	start := strings.LastIndexByte(source[:offset], '\n') + 1
	end := strings.IndexByte(source[offset:], '\n')
	if end < 0 {
		end = len(source)
	} else {
		end += offset
	}
	line = strings.Count(source[:start], "\n") + 1
	col = offset - start + 1
	text = strings.TrimSuffix(source[start:end], "\r")
	return line, col, text
}

// indentFor keeps tabs so the marker lines up with the source text.
func indentFor(text string, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i < len(text) && text[i] == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}
