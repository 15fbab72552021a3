package horizons

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"horizons/internal/ephemeris"
)

func readFixture(t *testing.T, path ...string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(path...))
	require.NoError(t, err)
	return string(data)
}

func TestParseMajorBodies(t *testing.T) {
	bodies := ParseMajorBodies(ephemeris.Lines(readFixture(t, "testdata", "major_bodies.txt")))
	require.Len(t, bodies, 9)

	assert.Equal(t, MajorBody{ID: 0, Name: "Solar System Barycenter", Aliases: []string{"SSB"}}, bodies[0])
	assert.Equal(t, MajorBody{ID: 1, Name: "Mercury Barycenter"}, bodies[1])
	assert.Equal(t, MajorBody{ID: 399, Name: "Earth", Aliases: []string{"Geocentric"}}, bodies[6])
	assert.Equal(t, MajorBody{
		ID:          -125544,
		Name:        "International Space Station",
		Designation: "1998-067A",
		Aliases:     []string{"ISS", "Zarya"},
	}, bodies[8])
}

func TestParseMajorBodiesSkipsRowsWithoutID(t *testing.T) {
	lines := []string{
		"  ID#      Name",
		"  -------  --------------------",
		"      399  Earth",
		"  unknown  Somewhere",
		"      499  Mars",
		"",
		"      599  Jupiter",
	}
	bodies := ParseMajorBodies(ephemeris.SliceLines(lines))
	require.Len(t, bodies, 2)
	assert.Equal(t, "Earth", bodies[0].Name)
	assert.Equal(t, 499, bodies[1].ID)
}

func TestParseMajorBodiesWithoutTable(t *testing.T) {
	assert.Empty(t, ParseMajorBodies(ephemeris.Lines("no bodies matched\n")))
}

func TestFindBody(t *testing.T) {
	bodies := ParseMajorBodies(ephemeris.Lines(readFixture(t, "testdata", "major_bodies.txt")))
	earth, ok := FindBody(bodies, "earth")
	require.True(t, ok)
	assert.Equal(t, 399, earth.ID)

	_, ok = FindBody(bodies, "Vulcan")
	assert.False(t, ok)
}
