package ephemeris

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Reason classifies a SyntaxError.
type Reason int

const (
	// ReasonUnexpected is an unexpected token or end of input.
	ReasonUnexpected Reason = iota
	// ReasonUnclosed is a $$SOE block that never reaches $$EOE.
	ReasonUnclosed
	// ReasonCustom is a value that matched the grammar but could not be decoded.
	ReasonCustom
)

// SyntaxError is one failure of the document parser.
type SyntaxError struct {
	Reason Reason
	// Offset and End delimit the offending bytes of the source.
	Offset int
	End    int
	// Found is the unexpected text, empty at end of input.
	Found string
	// Expected lists the quoted tokens accepted at Offset, sorted.
	Expected []string

	// Delimiter and DelimiterOffset locate the opening sentinel of an
	// unclosed block.
	Delimiter       string
	DelimiterOffset int

	// Message explains a ReasonCustom error.
	Message string
}

func (e *SyntaxError) Error() string {
	switch e.Reason {
	case ReasonUnclosed:
		return fmt.Sprintf("offset %d: unclosed delimiter %s opened at offset %d", e.Offset, e.Delimiter, e.DelimiterOffset)
	case ReasonCustom:
		return fmt.Sprintf("offset %d: %s", e.Offset, e.Message)
	}
	found := "end of input"
	if e.Found != "" {
		found = strconv.Quote(e.Found)
	}
	if len(e.Expected) == 0 {
		return fmt.Sprintf("offset %d: unexpected %s", e.Offset, found)
	}
	return fmt.Sprintf("offset %d: unexpected %s, expected %s", e.Offset, found, strings.Join(e.Expected, ", "))
}

// SyntaxErrors is every error found in one document, in source order.
type SyntaxErrors []*SyntaxError

func (es SyntaxErrors) Error() string {
	switch len(es) {
	case 0:
		return "no syntax errors"
	case 1:
		return es[0].Error()
	}
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d syntax errors: %s", len(es), strings.Join(msgs, "; "))
}

func unexpectedAt(src string, pos int, expected []string) *SyntaxError {
	e := &SyntaxError{Reason: ReasonUnexpected, Offset: pos, End: pos, Expected: expected}
	if pos < len(src) {
		_, size := utf8.DecodeRuneInString(src[pos:])
		e.Found = src[pos : pos+size]
		e.End = pos + size
	}
	return e
}

// elementLabels are the grammar productions of the twelve fields, in the
// order of elementRows.
var elementLabels = [12]string{"EC", "QR", "IN", "OM", "W", "Tp", "N", "MA", "TA", "A", "AD", "PR"}

// ParseElementsDocument parses a complete ELEMENTS response with the grammar
// in elements.ebnf. Text before $$SOE and after $$EOE is ignored.
//
// Unlike ParseOrbitalElements it keeps fractional seconds of each epoch and
// does not stop at the first problem: after a malformed record it skips to
// the next epoch line and carries on. If anything failed the error is a
// SyntaxErrors holding every failure and no records are returned.
func ParseElementsDocument(text string) ([]OrbitalElements, error) {
	g, err := elementsGrammar()
	if err != nil {
		return nil, err
	}
	names := append([]string{"Calendar", "Value"}, elementLabels[:]...)
	p := &documentParser{src: text, m: newMatcher(g, text, names...)}
	return p.parse()
}

type documentParser struct {
	src  string
	m    *matcher
	errs SyntaxErrors
}

func (p *documentParser) parse() ([]OrbitalElements, error) {
	open := strings.Index(p.src, StartOfEphemeris)
	if open < 0 {
		return nil, SyntaxErrors{unexpectedAt(p.src, len(p.src), []string{strconv.Quote(StartOfEphemeris)})}
	}
	p.m.reset()
	pos, ok := p.m.matchName("Open", open)
	if !ok {
		return nil, SyntaxErrors{p.m.unexpected()}
	}

	var records []OrbitalElements
	for {
		p.m.reset()
		if _, ok := p.m.matchName("Close", pos); ok {
			break
		}
		if pos >= len(p.src) {
			p.errs = append(p.errs, &SyntaxError{
				Reason:          ReasonUnclosed,
				Offset:          pos,
				End:             pos,
				Expected:        []string{strconv.Quote(EndOfEphemeris)},
				Delimiter:       StartOfEphemeris,
				DelimiterOffset: open,
			})
			break
		}

		end, ok := p.m.matchName("Record", pos)
		if !ok {
			e := p.m.unexpected()
			p.errs = append(p.errs, e)
			pos = p.resync(e.Offset)
			continue
		}
		if rec, ok := p.decode(); ok {
			records = append(records, rec)
		}
		pos = end
	}

	if len(p.errs) > 0 {
		return nil, p.errs
	}
	return records, nil
}

// resync returns the start of the first line after from that opens a record
// or closes the block, or the end of input.
func (p *documentParser) resync(from int) int {
	pos := from
	for pos < len(p.src) {
		nl := strings.IndexByte(p.src[pos:], '\n')
		if nl < 0 {
			return len(p.src)
		}
		pos += nl + 1
		if p.m.probe("Close", pos) || p.m.probe("Epoch", pos) {
			return pos
		}
	}
	return len(p.src)
}

// decode builds a record from the captures of the last Record match. Values
// that fit the grammar but not their type become custom errors.
func (p *documentParser) decode() (OrbitalElements, bool) {
	var rec OrbitalElements
	var values [12]float32
	var value capture
	ok := true

	for _, c := range p.m.captures {
		switch c.name {
		case "Calendar":
			t, err := parseCalendar(p.src[c.start:c.end])
			if err != nil {
				p.custom(c, err)
				ok = false
				continue
			}
			rec.Time = t
		case "Value":
			value = c
		default:
			i := labelIndex(c.name)
			if i < 0 {
				continue
			}
			v, err := parseFloat32(c.name, p.src[value.start:value.end])
			if err != nil {
				p.custom(value, err)
				ok = false
				continue
			}
			values[i] = v
		}
	}

	for row := range elementRows {
		rec.setRow(row, [3]float32{values[row*3], values[row*3+1], values[row*3+2]})
	}
	return rec, ok
}

func (p *documentParser) custom(c capture, err error) {
	p.errs = append(p.errs, &SyntaxError{
		Reason:  ReasonCustom,
		Offset:  c.start,
		End:     c.end,
		Found:   p.src[c.start:c.end],
		Message: err.Error(),
	})
}

func labelIndex(name string) int {
	for i, l := range elementLabels {
		if l == name {
			return i
		}
	}
	return -1
}
