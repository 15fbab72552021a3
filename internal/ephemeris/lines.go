package ephemeris

import (
	"bufio"
	"io"
	"iter"
	"strings"
)

// maxLineSize bounds a single response line; Horizons headers can be long.
const maxLineSize = 1024 * 1024

// Lines splits text into newline-stripped lines. A trailing "\r" is removed
// from each line and a final empty line after the last newline is omitted.
func Lines(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for len(text) > 0 {
			line, rest, _ := strings.Cut(text, "\n")
			if !yield(strings.TrimSuffix(line, "\r")) {
				return
			}
			text = rest
		}
	}
}

// ScanLines reads newline-stripped lines from r. The returned function
// reports a read error once the sequence has been drained.
func ScanLines(r io.Reader) (iter.Seq[string], func() error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	seq := func(yield func(string) bool) {
		for scanner.Scan() {
			if !yield(scanner.Text()) {
				return
			}
		}
	}
	return seq, scanner.Err
}

// SliceLines adapts an already split response.
func SliceLines(lines []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, l := range lines {
			if !yield(l) {
				return
			}
		}
	}
}
