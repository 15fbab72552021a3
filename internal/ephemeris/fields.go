package ephemeris

import (
	"strconv"
	"strings"
	"time"
)

// epochLayout is the calendar part of an epoch line without fractional seconds.
const epochLayout = "2006-Jan-02 15:04:05"

// expectLabel strips label from the front of line. The match is exact,
// including the padding inside labels such as " W =".
func expectLabel(line, label string) (string, error) {
	rest, ok := strings.CutPrefix(line, label)
	if !ok {
		return "", &UnexpectedLabelError{Expected: label, Line: line}
	}
	return rest, nil
}

// takeFixed splits the first width bytes off line. A short line yields
// whatever is left and an empty remainder.
func takeFixed(line string, width int) (field, rest string) {
	if len(line) <= width {
		return line, ""
	}
	return line[:width], line[width:]
}

// parseFloat32 decodes a trimmed field holding an optionally signed decimal
// with an optional E exponent.
func parseFloat32(name, raw string) (float32, error) {
	s := strings.TrimSpace(raw)
	if s == "" || !isDecimal(s) {
		return 0, &NumericParseError{Field: name, Raw: raw}
	}
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, &NumericParseError{Field: name, Raw: raw, Err: err}
	}
	return float32(v), nil
}

// isDecimal rejects what strconv would otherwise accept (inf, nan, hex,
// underscores) so only plain scientific notation gets through.
func isDecimal(s string) bool {
	digits := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digits = true
		case c == '+', c == '-', c == '.', c == 'E', c == 'e':
		default:
			return false
		}
	}
	return digits
}

// labeledRow decodes a data line holding three labeled fixed-width fields.
func labeledRow(line string, labels [3]string) ([3]float32, error) {
	var row [3]float32
	rest := line
	for i, label := range labels {
		var err error
		if rest, err = expectLabel(rest, label); err != nil {
			return row, err
		}
		var field string
		field, rest = takeFixed(rest, fieldWidth)
		if row[i], err = parseFloat32(strings.TrimSpace(label), field); err != nil {
			return row, err
		}
	}
	return row, nil
}

// parseEpoch decodes the "<julian day> = A.D. <date> TDB" preamble of a record.
// Only the first 20 characters of the date are read, so fractional seconds are
// dropped and the result has whole-second resolution.
func parseEpoch(line string) (time.Time, error) {
	parts := strings.Split(line, "=")
	if len(parts) < 2 {
		return time.Time{}, &DateParseError{Raw: line}
	}
	text, ok := strings.CutPrefix(strings.TrimSpace(parts[1]), "A.D. ")
	if !ok {
		return time.Time{}, &DateParseError{Raw: line}
	}
	date, _ := takeFixed(text, len(epochLayout))
	t, err := time.Parse(epochLayout, date)
	if err != nil {
		return time.Time{}, &DateParseError{Raw: line, Err: err}
	}
	return t.UTC(), nil
}

// parseCalendar decodes "YYYY-Mon-DD HH:MM:SS[.ffff]" keeping fractional
// seconds.
func parseCalendar(text string) (time.Time, error) {
	t, err := time.Parse(epochLayout, strings.TrimSpace(text))
	if err != nil {
		return time.Time{}, &DateParseError{Raw: text, Err: err}
	}
	return t.UTC(), nil
}
