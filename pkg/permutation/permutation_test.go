package permutation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		expected []string
	}{
		{"plain literal", "hello", []string{"hello"}},
		{"empty pattern", "", []string{""}},
		{"simple alternation", "(hello|world)", []string{"hello", "world"}},
		{"top-level alternation", "cat|dog", []string{"cat", "dog"}},
		{"optional character", "colou?r", []string{"color", "colour"}},
		{"exact repetition", "a{3}", []string{"aaa"}},
		{"bounded repetition", "a{2,3}", []string{"aa", "aaa"}},
		{"zero minimum repetition", "ab{0,2}", []string{"a", "ab", "abb"}},
		{"sibling groups", "(a|b)(c|d)", []string{"ac", "ad", "bc", "bd"}},
		{"nested groups", "(a(b|c))d", []string{"abd", "acd"}},
		{"escaped metacharacter", `\.`, []string{"."}},
		{"escaped brace", `a\{b`, []string{"a{b"}},
		{"group repetition", "(ab){1,2}", []string{"ab", "abab"}},
		{"alternation with shared prefix", "(send|receive)d", []string{"sendd", "received"}},
		{"duplicate branches deduplicated", "(a|a|b)", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.pattern)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.expected, got)
		})
	}
}

func TestResolveWildcard(t *testing.T) {
	got, err := Resolve(".")
	require.NoError(t, err)

	assert.Len(t, got, 95)
	assert.Contains(t, got, "a")
	assert.Contains(t, got, " ")
	assert.Contains(t, got, "~")
}

func TestResolveTooManyRepetitions(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
	}{
		{"unbounded star", "x*"},
		{"unbounded plus", "x+"},
		{"open upper bound", "x{2,}"},
		{"bound above cap", "x{1,5001}"},
		{"exact bound above cap", "x{5001}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.pattern)
			assert.ErrorIs(t, err, ErrTooManyRepetitions)
		})
	}
}

func TestResolveBoundAtCap(t *testing.T) {
	got, err := Resolve("x{4999,5000}")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestResolveUnsupportedConstruct(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
	}{
		{"character class", "[abc]"},
		{"digit class", `\d+`},
		{"word class", `\w`},
		{"whitespace class", `\s`},
		{"backreference", `(a)\1`},
		{"non-capturing group", "(?:ab)"},
		{"caret anchor", "^ab"},
		{"dollar anchor", "ab$"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.pattern)
			assert.ErrorIs(t, err, ErrUnsupportedConstruct)
		})
	}
}

func TestResolveMalformedPattern(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
	}{
		{"unbalanced open", "(ab"},
		{"unbalanced close", "ab)"},
		{"dangling quantifier", "*ab"},
		{"trailing backslash", `ab\`},
		{"bounds out of order", "a{3,2}"},
		{"unterminated bounds", "a{2,3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.pattern)
			assert.ErrorIs(t, err, ErrMalformedPattern)
		})
	}
}

// Literal braces without a leading digit are not repetition bounds in this
// dialect, but a well-formed bound must still parse as one.
func TestResolveBraceLiteralRequiresDigits(t *testing.T) {
	_, err := Resolve("a{x}")
	assert.Error(t, err)
}

func TestResolveDeterministicSet(t *testing.T) {
	first, err := Resolve("(alpha|beta|gamma){1,2}")
	require.NoError(t, err)

	second, err := Resolve("(alpha|beta|gamma){1,2}")
	require.NoError(t, err)

	assert.ElementsMatch(t, first, second)

	// 3 single picks plus 9 ordered pairs.
	assert.Len(t, first, 12)
}

func TestResolveErrorIsDistinct(t *testing.T) {
	_, capErr := Resolve("x*")
	_, constructErr := Resolve("[x]")

	assert.False(t, errors.Is(capErr, ErrUnsupportedConstruct))
	assert.False(t, errors.Is(constructErr, ErrTooManyRepetitions))
}
