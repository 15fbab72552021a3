package ephemeris

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrbitalElements(t *testing.T) {
	records, err := Collect(ParseOrbitalElements(Lines(readFixture(t, "orbital_elements.txt"))))
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, OrbitalElements{
		Time:                     time.Date(2022, time.June, 19, 18, 0, 0, 0, time.UTC),
		Eccentricity:             float32(1.711794334680415e-02),
		PeriapsisDistance:        float32(1.469885520304013e+08),
		Inclination:              float32(3.134746902320420e-03),
		LongitudeOfAscendingNode: float32(1.633896137466430e+02),
		ArgumentOfPerifocus:      float32(3.006492364709574e+02),
		TimeOfPeriapsis:          float32(2459584.392523936927),
		MeanMotion:               float32(1.141316101270797e-05),
		MeanAnomaly:              float32(1.635515780663357e+02),
		TrueAnomaly:              float32(1.640958153023696e+02),
		SemiMajorAxis:            float32(1.495485150384278e+08),
		ApoapsisDistance:         float32(1.521084780464543e+08),
		SiderealOrbitPeriod:      float32(3.154253230977451e+07),
	}, records[0])

	assert.Equal(t, time.Date(2022, time.June, 20, 3, 0, 0, 0, time.UTC), records[3].Time)
	assert.Equal(t, float32(3.154253131741964e+07), records[3].SiderealOrbitPeriod)
}

func elementLines(t *testing.T) []string {
	t.Helper()
	lines := strings.Split(readFixture(t, "orbital_elements.txt"), "\n")
	soe := indexOf(lines, StartOfEphemeris)
	require.GreaterOrEqual(t, soe, 0)
	return lines[soe:]
}

func TestParseOrbitalElementsTruncated(t *testing.T) {
	lines := elementLines(t)
	tests := []struct {
		keep  int
		state string
		done  int
	}{
		{keep: 1, state: "waiting for date", done: 0},
		{keep: 2, state: "date", done: 0},
		{keep: 3, state: "first row", done: 0},
		{keep: 4, state: "second row", done: 0},
		{keep: 5, state: "third row", done: 0},
		{keep: 6, state: "waiting for date", done: 1},
	}
	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			records, err := Collect(ParseOrbitalElements(SliceLines(lines[:tt.keep])))
			assert.Len(t, records, tt.done)

			var truncated *TruncatedInputError
			require.ErrorAs(t, err, &truncated)
			assert.Equal(t, tt.state, truncated.State)
			assert.True(t, errors.Is(err, ErrTruncatedInput))
		})
	}
}

func TestParseOrbitalElementsLabelOrder(t *testing.T) {
	lines := append([]string(nil), elementLines(t)[:7]...)
	// Swap QR and EC on the first row of the first record.
	lines[2] = " QR= 1.469885520304013E+08 EC= 1.711794334680415E-02 IN= 3.134746902320420E-03"
	lines[6] = EndOfEphemeris

	_, err := Collect(ParseOrbitalElements(SliceLines(lines)))
	var lineErr *LineError
	require.ErrorAs(t, err, &lineErr)
	assert.Equal(t, 3, lineErr.Line)
	assert.Equal(t, "date", lineErr.State)

	var labelErr *UnexpectedLabelError
	require.ErrorAs(t, err, &labelErr)
	assert.Equal(t, " EC=", labelErr.Expected)
}

func TestParseOrbitalElementsBadNumber(t *testing.T) {
	lines := append([]string(nil), elementLines(t)[:7]...)
	lines[4] = " N = 1.141316101270797E-05 MA= not-a-number-at-all!! TA= 1.640958153023696E+02"
	lines[6] = EndOfEphemeris

	records, err := Collect(ParseOrbitalElements(SliceLines(lines)))
	assert.Empty(t, records)

	var numErr *NumericParseError
	require.ErrorAs(t, err, &numErr)
	assert.Equal(t, "MA=", numErr.Field)

	var lineErr *LineError
	require.ErrorAs(t, err, &lineErr)
	assert.Equal(t, 5, lineErr.Line)
	assert.Equal(t, "second row", lineErr.State)
}

func TestParseOrbitalElementsStopsAfterFirstError(t *testing.T) {
	lines := append([]string(nil), elementLines(t)...)
	lines[2] = "garbage"

	var errs int
	for _, err := range ParseOrbitalElements(SliceLines(lines)) {
		if err != nil {
			errs++
		}
	}
	assert.Equal(t, 1, errs)
}

func TestParseOrbitalElementsEmptyBlock(t *testing.T) {
	records, err := Collect(ParseOrbitalElements(Lines("$$SOE\n$$EOE\n")))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseOrbitalElementsRejectsVectors(t *testing.T) {
	_, err := Collect(ParseOrbitalElements(Lines(readFixture(t, "vector.txt"))))
	var labelErr *UnexpectedLabelError
	require.ErrorAs(t, err, &labelErr)
	assert.Equal(t, " EC=", labelErr.Expected)
}

func TestSniff(t *testing.T) {
	assert.Equal(t, KindVectors, Sniff(readFixture(t, "vector.txt")))
	assert.Equal(t, KindElements, Sniff(readFixture(t, "orbital_elements.txt")))
	assert.Equal(t, KindUnknown, Sniff("$$SOE\n$$EOE\n"))
	assert.Equal(t, KindUnknown, Sniff("no block"))
}

func TestParserFor(t *testing.T) {
	p, err := ParserFor("")
	require.NoError(t, err)
	assert.Equal(t, "stream", p.Name())

	p, err = ParserFor("Grammar")
	require.NoError(t, err)
	assert.Equal(t, "grammar", p.Name())

	_, err = ParserFor("regex")
	assert.Error(t, err)
}
