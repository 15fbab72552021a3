package ephemeris

import (
	"iter"
	"time"
)

// Label rows of an orbital element record, in file order.
var elementRows = [4][3]string{
	{" EC=", " QR=", " IN="},
	{" OM=", " W =", " Tp="},
	{" N =", " MA=", " TA="},
	{" A =", " AD=", " PR="},
}

// ParseOrbitalElements lazily decodes orbital element records from a Horizons
// ELEMENTS table. Every record spans five lines: the epoch followed by the
// EC/QR/IN, OM/W/Tp, N/MA/TA and A/AD/PR rows. Labels must appear exactly and
// in that order.
//
// Termination and error behavior match ParseStateVectors.
func ParseOrbitalElements(lines iter.Seq[string]) iter.Seq2[OrbitalElements, error] {
	return run[OrbitalElements](lines, waitingForSOE[OrbitalElements]{body: elementsBody()})
}

func elementsBody() waitingForDate[OrbitalElements] {
	return waitingForDate[OrbitalElements]{
		onDate: func(t time.Time, body state[OrbitalElements]) state[OrbitalElements] {
			return elementsRow{record: OrbitalElements{Time: t}, body: body}
		},
	}
}

// elementsRow carries the partially assembled record and the index of the
// data row it expects next (0 for EC/QR/IN through 3 for A/AD/PR).
type elementsRow struct {
	record OrbitalElements
	row    int
	body   state[OrbitalElements]
}

func (s elementsRow) next(line string) (state[OrbitalElements], *OrbitalElements, error) {
	values, err := labeledRow(line, elementRows[s.row])
	if err != nil {
		return s, nil, err
	}
	rec := s.record
	rec.setRow(s.row, values)
	if s.row == len(elementRows)-1 {
		return s.body, &rec, nil
	}
	return elementsRow{record: rec, row: s.row + 1, body: s.body}, nil, nil
}

func (s elementsRow) String() string {
	return [...]string{"date", "first row", "second row", "third row"}[s.row]
}

func (r *OrbitalElements) setRow(row int, v [3]float32) {
	switch row {
	case 0:
		r.Eccentricity, r.PeriapsisDistance, r.Inclination = v[0], v[1], v[2]
	case 1:
		r.LongitudeOfAscendingNode, r.ArgumentOfPerifocus, r.TimeOfPeriapsis = v[0], v[1], v[2]
	case 2:
		r.MeanMotion, r.MeanAnomaly, r.TrueAnomaly = v[0], v[1], v[2]
	case 3:
		r.SemiMajorAxis, r.ApoapsisDistance, r.SiderealOrbitPeriod = v[0], v[1], v[2]
	}
}
