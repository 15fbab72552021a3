package ephemeris

import (
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElementsGrammarVerifies(t *testing.T) {
	g, err := elementsGrammar()
	require.NoError(t, err)
	for _, name := range append([]string{"Block", "Record", "Epoch", "Calendar", "Value"}, elementLabels[:]...) {
		assert.Contains(t, g, name)
	}
}

func TestParseElementsDocumentAgreesWithStream(t *testing.T) {
	text := readFixture(t, "orbital_elements.txt")

	want, err := StreamParser{}.ParseElements(text)
	require.NoError(t, err)
	got, err := GrammarParser{}.ParseElements(text)
	require.NoError(t, err)

	require.Len(t, got, len(want))
	for i := range want {
		g := got[i]
		g.Time = g.Time.Truncate(time.Second)
		assert.Equal(t, want[i], g, "record %d", i)
	}
}

func TestParseElementsDocumentKeepsFractionalSeconds(t *testing.T) {
	text := strings.Replace(readFixture(t, "orbital_elements.txt"),
		"2022-Jun-19 21:00:00.0000", "2022-Jun-19 21:00:00.2500", 1)

	records, err := ParseElementsDocument(text)
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, time.Date(2022, time.June, 19, 21, 0, 0, 250_000_000, time.UTC), records[1].Time)

	stream, err := StreamParser{}.ParseElements(text)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2022, time.June, 19, 21, 0, 0, 0, time.UTC), stream[1].Time)
}

func TestParseElementsDocumentCRLF(t *testing.T) {
	text := readFixture(t, "orbital_elements.txt")
	want, err := ParseElementsDocument(text)
	require.NoError(t, err)
	got, err := ParseElementsDocument(strings.ReplaceAll(text, "\n", "\r\n"))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseElementsDocumentEmptyBlock(t *testing.T) {
	records, err := ParseElementsDocument("header\n$$SOE\n$$EOE\ntrailer\n")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func syntaxErrors(t *testing.T, err error) SyntaxErrors {
	t.Helper()
	var errs SyntaxErrors
	require.True(t, errors.As(err, &errs), "got %v", err)
	return errs
}

func TestParseElementsDocumentUnexpectedLabel(t *testing.T) {
	text := strings.Replace(readFixture(t, "orbital_elements.txt"),
		" EC= 1.711794334680415E-02", " XC= 1.711794334680415E-02", 1)

	records, err := ParseElementsDocument(text)
	assert.Nil(t, records)
	errs := syntaxErrors(t, err)
	require.Len(t, errs, 1)

	e := errs[0]
	assert.Equal(t, ReasonUnexpected, e.Reason)
	assert.Equal(t, strings.Index(text, "XC="), e.Offset)
	assert.Equal(t, "X", e.Found)
	assert.Equal(t, []string{strconv.Quote("EC")}, e.Expected)
}

func TestParseElementsDocumentCollectsEveryError(t *testing.T) {
	text := readFixture(t, "orbital_elements.txt")
	text = strings.Replace(text, " MA= 1.635515780663357E+02", " MA= ?.635515780663357E+02", 1)
	text = strings.Replace(text, " W = 3.006845751468352E+02", " w = 3.006845751468352E+02", 1)

	_, err := ParseElementsDocument(text)
	errs := syntaxErrors(t, err)
	require.Len(t, errs, 2)

	assert.Equal(t, strings.Index(text, "?.635515780663357"), errs[0].Offset)
	assert.Equal(t, "?", errs[0].Found)
	assert.Equal(t, strings.Index(text, "w = 3.006845751468352"), errs[1].Offset)
	assert.Equal(t, []string{strconv.Quote("W")}, errs[1].Expected)
	assert.Less(t, errs[0].Offset, errs[1].Offset)
}

func TestParseElementsDocumentUnclosed(t *testing.T) {
	text := readFixture(t, "orbital_elements.txt")
	text = text[:strings.Index(text, EndOfEphemeris)]

	_, err := ParseElementsDocument(text)
	errs := syntaxErrors(t, err)
	require.Len(t, errs, 1)

	e := errs[0]
	assert.Equal(t, ReasonUnclosed, e.Reason)
	assert.Equal(t, len(text), e.Offset)
	assert.Equal(t, StartOfEphemeris, e.Delimiter)
	assert.Equal(t, strings.Index(text, StartOfEphemeris), e.DelimiterOffset)
}

func TestParseElementsDocumentMissingSOE(t *testing.T) {
	text := "no ephemeris here\n"
	_, err := ParseElementsDocument(text)
	errs := syntaxErrors(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, len(text), errs[0].Offset)
	assert.Empty(t, errs[0].Found)
	assert.Equal(t, []string{strconv.Quote(StartOfEphemeris)}, errs[0].Expected)
}

func TestParseElementsDocumentJunkAfterSOE(t *testing.T) {
	text := "$$SOE junk\n$$EOE\n"
	_, err := ParseElementsDocument(text)
	errs := syntaxErrors(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, strings.Index(text, "junk"), errs[0].Offset)
	assert.Equal(t, []string{strconv.Quote("\n"), strconv.Quote("\r")}, errs[0].Expected)
}

func TestParseElementsDocumentUndecodableValues(t *testing.T) {
	text := readFixture(t, "orbital_elements.txt")
	text = strings.Replace(text, "2022-Jun-20 00:00:00.0000", "2022-Feb-30 00:00:00.0000", 1)
	text = strings.Replace(text, "PR= 3.154253131741964E+07", "PR= 3.154253131741964E+99", 1)

	_, err := ParseElementsDocument(text)
	errs := syntaxErrors(t, err)
	require.Len(t, errs, 2)

	assert.Equal(t, ReasonCustom, errs[0].Reason)
	assert.Equal(t, strings.Index(text, "2022-Feb-30"), errs[0].Offset)
	assert.Equal(t, "2022-Feb-30 00:00:00.0000", errs[0].Found)

	assert.Equal(t, ReasonCustom, errs[1].Reason)
	assert.Equal(t, strings.Index(text, "3.154253131741964E+99"), errs[1].Offset)
	assert.Contains(t, errs[1].Message, "PR")
}

func TestSyntaxErrorsError(t *testing.T) {
	errs := SyntaxErrors{
		{Reason: ReasonUnexpected, Offset: 3, Found: "x", Expected: []string{`"EC"`}},
		{Reason: ReasonUnexpected, Offset: 9},
	}
	assert.Equal(t, `offset 3: unexpected "x", expected "EC"`, errs[0].Error())
	assert.Equal(t, "offset 9: unexpected end of input", errs[1].Error())
	assert.True(t, strings.HasPrefix(errs.Error(), "2 syntax errors: "))
}

func BenchmarkElementsParsers(b *testing.B) {
	text := readFixture(b, "orbital_elements.txt")
	for _, p := range []ElementsParser{StreamParser{}, GrammarParser{}} {
		b.Run(p.Name(), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				if _, err := p.ParseElements(text); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
