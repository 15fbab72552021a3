package ephemeris

import (
	"iter"
	"time"
)

var (
	positionLabels = [3]string{" X =", " Y =", " Z ="}
	velocityLabels = [3]string{" VX=", " VY=", " VZ="}
)

// ParseStateVectors lazily decodes state vector records from a Horizons
// VECTORS table. Every record spans four lines: the epoch, the X/Y/Z line,
// the VX/VY/VZ line and a light-time/range line that is skipped unparsed.
//
// The sequence ends after $$EOE. A decode failure is yielded as a
// *LineError and ends the sequence; input ending before $$EOE yields a
// *TruncatedInputError.
func ParseStateVectors(lines iter.Seq[string]) iter.Seq2[StateVector, error] {
	return run[StateVector](lines, waitingForSOE[StateVector]{body: vectorBody()})
}

func vectorBody() waitingForDate[StateVector] {
	return waitingForDate[StateVector]{
		onDate: func(t time.Time, body state[StateVector]) state[StateVector] {
			return vectorDate{time: t, body: body}
		},
	}
}

// vectorDate holds the epoch and expects the position line.
type vectorDate struct {
	time time.Time
	body state[StateVector]
}

func (s vectorDate) next(line string) (state[StateVector], *StateVector, error) {
	pos, err := labeledRow(line, positionLabels)
	if err != nil {
		return s, nil, err
	}
	return vectorPosition{time: s.time, position: pos, body: s.body}, nil, nil
}

func (vectorDate) String() string { return "date" }

// vectorPosition expects the velocity line.
type vectorPosition struct {
	time     time.Time
	position [3]float32
	body     state[StateVector]
}

func (s vectorPosition) next(line string) (state[StateVector], *StateVector, error) {
	vel, err := labeledRow(line, velocityLabels)
	if err != nil {
		return s, nil, err
	}
	return vectorComplete{
		record: StateVector{Time: s.time, Position: s.position, Velocity: vel},
		body:   s.body,
	}, nil, nil
}

func (vectorPosition) String() string { return "position" }

// vectorComplete consumes the LT/RG/RR line and emits the record.
type vectorComplete struct {
	record StateVector
	body   state[StateVector]
}

func (s vectorComplete) next(string) (state[StateVector], *StateVector, error) {
	rec := s.record
	return s.body, &rec, nil
}

func (vectorComplete) String() string { return "complete" }
