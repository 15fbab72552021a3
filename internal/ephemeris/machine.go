package ephemeris

import (
	"iter"
	"time"
)

// state is one node of a record state machine. Each state carries the fields
// parsed so far and consumes exactly one line. A non-nil record is returned
// by the state that consumes the last line of a record.
type state[R any] interface {
	next(line string) (state[R], *R, error)
	String() string
}

// waitingForSOE discards lines until the $$SOE sentinel.
type waitingForSOE[R any] struct {
	body state[R]
}

func (s waitingForSOE[R]) next(line string) (state[R], *R, error) {
	if line == StartOfEphemeris {
		return s.body, nil, nil
	}
	return s, nil, nil
}

func (waitingForSOE[R]) String() string { return "waiting for " + StartOfEphemeris }

// waitingForDate expects either $$EOE or the epoch line of the next record.
type waitingForDate[R any] struct {
	onDate func(t time.Time, body state[R]) state[R]
}

func (s waitingForDate[R]) next(line string) (state[R], *R, error) {
	if line == EndOfEphemeris {
		return end[R]{}, nil, nil
	}
	t, err := parseEpoch(line)
	if err != nil {
		return s, nil, err
	}
	return s.onDate(t, s), nil, nil
}

func (waitingForDate[R]) String() string { return "waiting for date" }

// end is terminal.
type end[R any] struct{}

func (s end[R]) next(string) (state[R], *R, error) { return s, nil, nil }

func (end[R]) String() string { return "end" }

// run drives a state machine over lines. The returned sequence stops after
// $$EOE, after the first error, or when the caller stops pulling. Running out
// of lines before $$EOE yields a *TruncatedInputError.
func run[R any](lines iter.Seq[string], initial state[R]) iter.Seq2[R, error] {
	return func(yield func(R, error) bool) {
		var zero R
		st := initial
		n := 0
		for line := range lines {
			n++
			next, rec, err := st.next(line)
			if err != nil {
				yield(zero, &LineError{Line: n, State: st.String(), Err: err})
				return
			}
			st = next
			if rec != nil && !yield(*rec, nil) {
				return
			}
			if _, done := st.(end[R]); done {
				return
			}
		}
		yield(zero, &TruncatedInputError{State: st.String(), Lines: n})
	}
}

// Collect drains a record sequence, stopping at the first error. Records read
// before the error are returned with it.
func Collect[R any](seq iter.Seq2[R, error]) ([]R, error) {
	var out []R
	for rec, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}
