// Package permutation expands a constrained regular-expression dialect into
// the full set of literal strings the expression can match.
//
// The dialect is deliberately small: literal characters, alternation,
// grouping, bounded and unbounded repetition, and the "any character"
// wildcard. Anything else (character classes, backreferences, anchors,
// group flags) is rejected with [ErrUnsupportedConstruct] rather than
// approximated. Unbounded or very large repetitions are rejected with
// [ErrTooManyRepetitions] instead of attempting the expansion.
package permutation

import (
	"errors"
	"fmt"
	"strings"
)

// MaxRepetitions is the hard safety cap on the effective upper bound of a
// repetition quantifier. Patterns exceeding it fail outright; there is no
// soft truncation.
const MaxRepetitions = 5000

var (
	// ErrTooManyRepetitions is returned when a repetition quantifier has an
	// effective upper bound greater than MaxRepetitions.
	ErrTooManyRepetitions = errors.New("permutation: repetition bound exceeds safety cap")

	// ErrUnsupportedConstruct is returned when the pattern contains a regex
	// construct outside the supported dialect.
	ErrUnsupportedConstruct = errors.New("permutation: unsupported construct")

	// ErrMalformedPattern is returned for syntax errors such as unbalanced
	// parentheses or a dangling quantifier.
	ErrMalformedPattern = errors.New("permutation: malformed pattern")
)

// printableRunes covers the printable ASCII range used to expand the `.`
// wildcard.
var printableRunes = func() []rune {
	runes := make([]rune, 0, 95)
	for r := rune(0x20); r <= 0x7e; r++ {
		runes = append(runes, r)
	}
	return runes
}()

// Resolve enumerates every distinct literal string the pattern matches.
// The order of the returned slice is not significant; callers must treat the
// result as a set.
func Resolve(pattern string) ([]string, error) {
	p := &parser{input: []rune(pattern)}
	alts, err := p.parseAlternation()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.input) {
		return nil, fmt.Errorf("%w: unexpected %q at position %d", ErrMalformedPattern, p.input[p.pos], p.pos)
	}
	return expandAlternation(alts)
}

// node is one construct in the parsed pattern. The construct set is closed,
// so a plain tagged union is sufficient.
type node struct {
	kind     nodeKind
	literal  rune
	alts     [][]*node // group alternatives, each a sequence
	sub      *node     // repeat target
	min, max int       // repeat bounds; max < 0 means unbounded
}

type nodeKind int

const (
	nodeLiteral nodeKind = iota
	nodeWildcard
	nodeGroup
	nodeRepeat
)

type parser struct {
	input []rune
	pos   int
}

// parseAlternation parses a sequence of alternatives separated by '|',
// stopping at ')' or end of input.
func (p *parser) parseAlternation() ([][]*node, error) {
	var alts [][]*node
	seq, err := p.parseSequence()
	if err != nil {
		return nil, err
	}
	alts = append(alts, seq)

	for p.pos < len(p.input) && p.input[p.pos] == '|' {
		p.pos++
		seq, err := p.parseSequence()
		if err != nil {
			return nil, err
		}
		alts = append(alts, seq)
	}
	return alts, nil
}

func (p *parser) parseSequence() ([]*node, error) {
	seq := []*node{}
	for p.pos < len(p.input) {
		r := p.input[p.pos]
		if r == '|' || r == ')' {
			break
		}

		atom, err := p.parseAtom()
		if err != nil {
			return nil, err
		}

		atom, err = p.parseQuantifier(atom)
		if err != nil {
			return nil, err
		}
		seq = append(seq, atom)
	}
	return seq, nil
}

func (p *parser) parseAtom() (*node, error) {
	r := p.input[p.pos]
	switch r {
	case '(':
		p.pos++
		if p.pos < len(p.input) && p.input[p.pos] == '?' {
			return nil, fmt.Errorf("%w: group flags at position %d", ErrUnsupportedConstruct, p.pos)
		}
		alts, err := p.parseAlternation()
		if err != nil {
			return nil, err
		}
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return nil, fmt.Errorf("%w: unbalanced parenthesis", ErrMalformedPattern)
		}
		p.pos++
		return &node{kind: nodeGroup, alts: alts}, nil

	case '[':
		return nil, fmt.Errorf("%w: character class at position %d", ErrUnsupportedConstruct, p.pos)

	case '^', '$':
		return nil, fmt.Errorf("%w: anchor %q at position %d", ErrUnsupportedConstruct, r, p.pos)

	case '.':
		p.pos++
		return &node{kind: nodeWildcard}, nil

	case '\\':
		if p.pos+1 >= len(p.input) {
			return nil, fmt.Errorf("%w: trailing backslash", ErrMalformedPattern)
		}
		esc := p.input[p.pos+1]
		switch {
		case esc >= '1' && esc <= '9':
			return nil, fmt.Errorf("%w: backreference \\%c at position %d", ErrUnsupportedConstruct, esc, p.pos)
		case strings.ContainsRune("dDwWsSbB", esc):
			return nil, fmt.Errorf("%w: character class \\%c at position %d", ErrUnsupportedConstruct, esc, p.pos)
		}
		p.pos += 2
		return &node{kind: nodeLiteral, literal: esc}, nil

	case '*', '+', '?':
		return nil, fmt.Errorf("%w: dangling quantifier %q at position %d", ErrMalformedPattern, r, p.pos)

	default:
		p.pos++
		return &node{kind: nodeLiteral, literal: r}, nil
	}
}

// parseQuantifier wraps atom in a repeat node when a quantifier follows it.
func (p *parser) parseQuantifier(atom *node) (*node, error) {
	if p.pos >= len(p.input) {
		return atom, nil
	}

	switch p.input[p.pos] {
	case '?':
		p.pos++
		return &node{kind: nodeRepeat, sub: atom, min: 0, max: 1}, nil
	case '*':
		p.pos++
		return &node{kind: nodeRepeat, sub: atom, min: 0, max: -1}, nil
	case '+':
		p.pos++
		return &node{kind: nodeRepeat, sub: atom, min: 1, max: -1}, nil
	case '{':
		return p.parseBounds(atom)
	}
	return atom, nil
}

// parseBounds parses {n}, {n,} and {n,m}.
func (p *parser) parseBounds(atom *node) (*node, error) {
	start := p.pos
	p.pos++ // consume '{'

	minVal, ok := p.parseInt()
	if !ok {
		return nil, fmt.Errorf("%w: invalid repetition bounds at position %d", ErrMalformedPattern, start)
	}

	maxVal := minVal
	if p.pos < len(p.input) && p.input[p.pos] == ',' {
		p.pos++
		if p.pos < len(p.input) && p.input[p.pos] == '}' {
			maxVal = -1
		} else {
			maxVal, ok = p.parseInt()
			if !ok {
				return nil, fmt.Errorf("%w: invalid repetition bounds at position %d", ErrMalformedPattern, start)
			}
		}
	}

	if p.pos >= len(p.input) || p.input[p.pos] != '}' {
		return nil, fmt.Errorf("%w: unterminated repetition bounds at position %d", ErrMalformedPattern, start)
	}
	p.pos++

	if maxVal >= 0 && maxVal < minVal {
		return nil, fmt.Errorf("%w: repetition bounds {%d,%d} out of order", ErrMalformedPattern, minVal, maxVal)
	}
	return &node{kind: nodeRepeat, sub: atom, min: minVal, max: maxVal}, nil
}

func (p *parser) parseInt() (int, bool) {
	start := p.pos
	v := 0
	for p.pos < len(p.input) && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
		v = v*10 + int(p.input[p.pos]-'0')
		p.pos++
	}
	return v, p.pos > start
}

func expandAlternation(alts [][]*node) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, seq := range alts {
		expanded, err := expandSequence(seq)
		if err != nil {
			return nil, err
		}
		for _, s := range expanded {
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out, nil
}

// expandSequence combines sibling expansions via cartesian product.
func expandSequence(seq []*node) ([]string, error) {
	results := []string{""}
	for _, n := range seq {
		options, err := expandNode(n)
		if err != nil {
			return nil, err
		}

		next := make([]string, 0, len(results)*len(options))
		for _, prefix := range results {
			for _, opt := range options {
				next = append(next, prefix+opt)
			}
		}
		results = next
	}
	return results, nil
}

func expandNode(n *node) ([]string, error) {
	switch n.kind {
	case nodeLiteral:
		return []string{string(n.literal)}, nil

	case nodeWildcard:
		options := make([]string, len(printableRunes))
		for i, r := range printableRunes {
			options[i] = string(r)
		}
		return options, nil

	case nodeGroup:
		return expandAlternation(n.alts)

	case nodeRepeat:
		if n.max < 0 || n.max > MaxRepetitions {
			bound := "unbounded"
			if n.max >= 0 {
				bound = fmt.Sprintf("%d", n.max)
			}
			return nil, fmt.Errorf("%w: upper bound %s exceeds %d", ErrTooManyRepetitions, bound, MaxRepetitions)
		}

		options, err := expandNode(n.sub)
		if err != nil {
			return nil, err
		}

		seen := make(map[string]struct{})
		var out []string
		for count := n.min; count <= n.max; count++ {
			for _, s := range repeatCross(options, count) {
				if _, dup := seen[s]; dup {
					continue
				}
				seen[s] = struct{}{}
				out = append(out, s)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: unknown node kind %d", ErrMalformedPattern, n.kind)
}

// repeatCross concatenates options with itself count times.
func repeatCross(options []string, count int) []string {
	results := []string{""}
	for i := 0; i < count; i++ {
		next := make([]string, 0, len(results)*len(options))
		for _, prefix := range results {
			for _, opt := range options {
				next = append(next, prefix+opt)
			}
		}
		results = next
	}
	return results
}
