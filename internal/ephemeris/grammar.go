package ephemeris

import (
	"bytes"
	_ "embed"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/exp/ebnf"
)

//go:embed elements.ebnf
var elementsEBNF []byte

// elementsStart is the start production of elements.ebnf.
const elementsStart = "Block"

// elementsGrammar parses and verifies elements.ebnf once.
var elementsGrammar = sync.OnceValues(func() (ebnf.Grammar, error) {
	g, err := ebnf.Parse("elements.ebnf", bytes.NewReader(elementsEBNF))
	if err != nil {
		return nil, fmt.Errorf("parse elements grammar: %w", err)
	}
	if err := ebnf.Verify(g, elementsStart); err != nil {
		return nil, fmt.Errorf("verify elements grammar: %w", err)
	}
	return g, nil
})

// quietProductions never contribute to the expected set of an error; a
// missing blank is reported as whatever was expected after it.
var quietProductions = map[string]bool{
	"Gap":   true,
	"Blank": true,
}

// capture is the span of a named production that matched.
type capture struct {
	name       string
	start, end int
}

// matcher interprets an ebnf.Grammar over a string with ordered choice and
// greedy repetition. Failures are tracked at the farthest offset reached so a
// failed match can be explained by what would have been accepted there.
type matcher struct {
	grammar  ebnf.Grammar
	src      string
	capture  map[string]bool
	captures []capture

	quiet    int
	farthest int
	expected map[string]struct{}
}

func newMatcher(g ebnf.Grammar, src string, captureNames ...string) *matcher {
	m := &matcher{
		grammar: g,
		src:     src,
		capture: make(map[string]bool, len(captureNames)),
	}
	for _, name := range captureNames {
		m.capture[name] = true
	}
	m.reset()
	return m
}

// reset forgets failures and captures from a previous match.
func (m *matcher) reset() {
	m.captures = m.captures[:0]
	m.farthest = -1
	m.expected = make(map[string]struct{})
}

// matchName matches production name at pos and returns the end offset.
func (m *matcher) matchName(name string, pos int) (int, bool) {
	prod, ok := m.grammar[name]
	if !ok {
		return pos, false
	}
	if prod.Expr == nil {
		return pos, true
	}
	if quietProductions[name] {
		m.quiet++
		defer func() { m.quiet-- }()
	}

	mark := len(m.captures)
	end, ok := m.match(prod.Expr, pos)
	if !ok {
		m.captures = m.captures[:mark]
		return pos, false
	}
	if m.capture[name] {
		m.captures = append(m.captures, capture{name: name, start: pos, end: end})
	}
	return end, true
}

// probe reports whether name matches at pos without recording failures or
// captures.
func (m *matcher) probe(name string, pos int) bool {
	farthest, expected, mark := m.farthest, m.expected, len(m.captures)
	m.expected = make(map[string]struct{})
	m.quiet++
	_, ok := m.matchName(name, pos)
	m.quiet--
	m.farthest, m.expected, m.captures = farthest, expected, m.captures[:mark]
	return ok
}

func (m *matcher) match(expr ebnf.Expression, pos int) (int, bool) {
	switch e := expr.(type) {
	case nil:
		return pos, true

	case *ebnf.Token:
		if strings.HasPrefix(m.src[pos:], e.String) {
			return pos + len(e.String), true
		}
		m.fail(pos, strconv.Quote(e.String))
		return pos, false

	case *ebnf.Range:
		lo, hi := e.Begin.String[0], e.End.String[0]
		if pos < len(m.src) && m.src[pos] >= lo && m.src[pos] <= hi {
			return pos + 1, true
		}
		m.fail(pos, strconv.Quote(e.Begin.String)+"…"+strconv.Quote(e.End.String))
		return pos, false

	case ebnf.Sequence:
		mark := len(m.captures)
		cur := pos
		for _, item := range e {
			next, ok := m.match(item, cur)
			if !ok {
				m.captures = m.captures[:mark]
				return pos, false
			}
			cur = next
		}
		return cur, true

	case ebnf.Alternative:
		for _, alt := range e {
			if next, ok := m.match(alt, pos); ok {
				return next, true
			}
		}
		return pos, false

	case *ebnf.Repetition:
		cur := pos
		for {
			next, ok := m.match(e.Body, cur)
			if !ok || next == cur {
				return cur, true
			}
			cur = next
		}

	case *ebnf.Option:
		if next, ok := m.match(e.Body, pos); ok {
			return next, true
		}
		return pos, true

	case *ebnf.Group:
		return m.match(e.Body, pos)

	case *ebnf.Name:
		return m.matchName(e.String, pos)
	}
	return pos, false
}

func (m *matcher) fail(pos int, want string) {
	if m.quiet > 0 || pos < m.farthest {
		return
	}
	if pos > m.farthest {
		m.farthest = pos
		m.expected = make(map[string]struct{})
	}
	m.expected[want] = struct{}{}
}

// unexpected describes the farthest failure of the last match.
func (m *matcher) unexpected() *SyntaxError {
	pos := m.farthest
	if pos < 0 {
		pos = 0
	}
	expected := make([]string, 0, len(m.expected))
	for want := range m.expected {
		expected = append(expected, want)
	}
	sort.Strings(expected)
	return unexpectedAt(m.src, pos, expected)
}
