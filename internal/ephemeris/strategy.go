package ephemeris

import (
	"fmt"
	"strings"
)

// ElementsParser is implemented by both orbital element readers. Given the
// same well-formed text they return the same records, except that
// StreamParser truncates epochs to whole seconds.
type ElementsParser interface {
	Name() string
	ParseElements(text string) ([]OrbitalElements, error)
}

// StreamParser reads elements line by line with the state machine.
type StreamParser struct{}

func (StreamParser) Name() string { return "stream" }

func (StreamParser) ParseElements(text string) ([]OrbitalElements, error) {
	return Collect(ParseOrbitalElements(Lines(text)))
}

// GrammarParser reads elements with the whole-document grammar. Its errors
// are SyntaxErrors.
type GrammarParser struct{}

func (GrammarParser) Name() string { return "grammar" }

func (GrammarParser) ParseElements(text string) ([]OrbitalElements, error) {
	return ParseElementsDocument(text)
}

// ParserFor returns the strategy registered under name.
func ParserFor(name string) (ElementsParser, error) {
	switch strings.ToLower(name) {
	case "", "stream":
		return StreamParser{}, nil
	case "grammar":
		return GrammarParser{}, nil
	default:
		return nil, fmt.Errorf("unknown elements parser %q (want stream or grammar)", name)
	}
}

// Sniff reports the record kind of a response from the first data line after
// $$SOE. It returns KindUnknown when the block is missing or empty.
func Sniff(text string) Kind {
	seenSOE := false
	dateSeen := false
	for line := range Lines(text) {
		switch {
		case !seenSOE:
			seenSOE = line == StartOfEphemeris
		case line == EndOfEphemeris:
			return KindUnknown
		case !dateSeen:
			dateSeen = true
		case strings.HasPrefix(line, positionLabels[0]):
			return KindVectors
		case strings.HasPrefix(line, elementRows[0][0]):
			return KindElements
		default:
			return KindUnknown
		}
	}
	return KindUnknown
}
