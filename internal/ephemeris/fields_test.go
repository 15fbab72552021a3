package ephemeris

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpectLabel(t *testing.T) {
	rest, err := expectLabel(" X = 1.0", " X =")
	require.NoError(t, err)
	assert.Equal(t, " 1.0", rest)

	_, err = expectLabel(" X= 1.0", " X =")
	var labelErr *UnexpectedLabelError
	require.ErrorAs(t, err, &labelErr)
	assert.Equal(t, " X =", labelErr.Expected)
	assert.Equal(t, " X= 1.0", labelErr.Line)
}

func TestTakeFixed(t *testing.T) {
	field, rest := takeFixed("abcdef", 4)
	assert.Equal(t, "abcd", field)
	assert.Equal(t, "ef", rest)

	field, rest = takeFixed("abc", 4)
	assert.Equal(t, "abc", field)
	assert.Empty(t, rest)

	field, rest = takeFixed("", 4)
	assert.Empty(t, field)
	assert.Empty(t, rest)
}

func TestParseFloat32(t *testing.T) {
	tests := []struct {
		raw  string
		want float32
	}{
		{" 1.870010427985840E+02", float32(1.870010427985840e+02)},
		{"-5.861602653492581E+03", float32(-5.861602653492581e+03)},
		{"  2459584.392523936927", float32(2459584.392523936927)},
		{"42", 42},
		{"+1e-3 ", float32(1e-3)},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseFloat32("EC", tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFloat32Rejects(t *testing.T) {
	for _, raw := range []string{"", "   ", "abc", "NaN", "Inf", "0x1p3", "1_000", "1.0.0", "E"} {
		t.Run(raw, func(t *testing.T) {
			_, err := parseFloat32("QR", raw)
			var numErr *NumericParseError
			require.ErrorAs(t, err, &numErr)
			assert.Equal(t, "QR", numErr.Field)
			assert.Equal(t, raw, numErr.Raw)
		})
	}
}

func TestLabeledRow(t *testing.T) {
	row, err := labeledRow(" X = 1.870010427985840E+02 Y = 2.484687803242536E+03 Z =-5.861602653492581E+03", positionLabels)
	require.NoError(t, err)
	assert.Equal(t, [3]float32{
		float32(1.870010427985840e+02),
		float32(2.484687803242536e+03),
		float32(-5.861602653492581e+03),
	}, row)

	_, err = labeledRow(" X = 1.870010427985840E+02 Q = 2.484687803242536E+03 Z =-5.861602653492581E+03", positionLabels)
	var labelErr *UnexpectedLabelError
	require.ErrorAs(t, err, &labelErr)
	assert.Equal(t, " Y =", labelErr.Expected)

	_, err = labeledRow(" X = 1.870010427985840E+02 Y = 2.48468780324253xE+03 Z =-5.861602653492581E+03", positionLabels)
	var numErr *NumericParseError
	require.ErrorAs(t, err, &numErr)
	assert.Equal(t, "Y =", numErr.Field)
}

func TestParseEpoch(t *testing.T) {
	got, err := parseEpoch("2459805.372175926 = A.D. 2022-Aug-13 19:55:56.0000 TDB ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2022, time.August, 13, 19, 55, 56, 0, time.UTC), got)

	// Fractional seconds beyond the 20th character are dropped.
	got, err = parseEpoch("2459750.250000000 = A.D. 2022-Jun-19 18:00:00.7500 TDB")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2022, time.June, 19, 18, 0, 0, 0, time.UTC), got)
}

func TestParseEpochRejects(t *testing.T) {
	for _, line := range []string{
		"",
		"2459805.372175926 A.D. 2022-Aug-13 19:55:56.0000 TDB",
		"2459805.372175926 = B.C. 2022-Aug-13 19:55:56.0000 TDB",
		"2459805.372175926 = A.D. 2022-Foo-13 19:55:56.0000 TDB",
		" X = 1.870010427985840E+02 Y = 2.484687803242536E+03",
	} {
		_, err := parseEpoch(line)
		var dateErr *DateParseError
		assert.True(t, errors.As(err, &dateErr), "line %q", line)
	}
}

func TestParseCalendarKeepsFraction(t *testing.T) {
	got, err := parseCalendar("2022-Jun-19 18:00:00.7500")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2022, time.June, 19, 18, 0, 0, 750_000_000, time.UTC), got)

	_, err = parseCalendar("2022-Jun-32 18:00:00")
	var dateErr *DateParseError
	assert.ErrorAs(t, err, &dateErr)
}
