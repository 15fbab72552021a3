package ephemeris

import (
	"iter"
	"strconv"
	"strings"
)

// Body names a body in a response header, e.g. "Earth (399)".
type Body struct {
	Name string `json:"name" yaml:"name"`
	ID   int    `json:"id" yaml:"id"`
}

// Header is the part of a response preamble needed to file its records.
type Header struct {
	Target Body `json:"target" yaml:"target"`
	Center Body `json:"center" yaml:"center"`
	// Found reports whether both body lines were present.
	Found bool `json:"-" yaml:"-"`
}

const (
	targetPrefix = "Target body name:"
	centerPrefix = "Center body name:"
)

// ParseHeader reads the target and center body lines that precede $$SOE.
func ParseHeader(lines iter.Seq[string]) Header {
	var h Header
	var target, center bool
	for line := range lines {
		if line == StartOfEphemeris {
			break
		}
		if rest, ok := strings.CutPrefix(line, targetPrefix); ok {
			h.Target, target = parseBody(rest)
		} else if rest, ok := strings.CutPrefix(line, centerPrefix); ok {
			h.Center, center = parseBody(rest)
		}
	}
	h.Found = target && center
	return h
}

// parseBody reads "Earth (399)   {source: DE441}".
func parseBody(s string) (Body, bool) {
	s, _, _ = strings.Cut(s, "{")
	s = strings.TrimSpace(s)
	open := strings.LastIndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return Body{Name: s}, false
	}
	id, err := strconv.Atoi(s[open+1 : len(s)-1])
	if err != nil {
		return Body{Name: s}, false
	}
	name := strings.TrimSpace(s[:open])
	// Spacecraft repeat the kind in parentheses: "ISS (spacecraft) (-125544)".
	name = strings.TrimSpace(strings.TrimSuffix(name, "(spacecraft)"))
	return Body{Name: name, ID: id}, true
}
