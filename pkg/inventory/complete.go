package inventory

import (
	"sort"
	"strconv"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/Biometria-se/grizzly-lsp-sub000/pkg/step"
)

// fuzzyThreshold is the minimum similarity ratio for the fuzzy tier.
const fuzzyThreshold = 0.6

// Candidate is one ranked completion suggestion.
type Candidate struct {
	// Label is the candidate's full display text with the user's
	// already-typed quoted values back-filled into position.
	Label string

	// NewText is the text to insert, with every unfilled quoted argument
	// slot numbered as a snippet tab stop when Snippet is true.
	NewText string

	// StartOffset is the byte offset into the typed expression where the
	// edit begins. Zero means the whole typed expression is replaced; this
	// happens when the candidate matched by containment or fuzziness
	// rather than by prefix.
	StartOffset int

	// Preselect marks a candidate whose full text is being offered.
	Preselect bool

	// Snippet reports whether NewText contains snippet tab stops.
	Snippet bool
}

// Complete matches the partially typed expression against the keyword's
// entries and returns ranked candidates.
//
// Matching runs in three tiers: prefix matches first, then containment,
// then fuzzy similarity. The later tiers are only consulted while the user
// is still completing the first word, or when the prefix tier is empty.
func (inv *Inventory) Complete(keyword, typed string) []Candidate {
	collapsed := step.CollapseQuoted(typed)
	expressions := expressionSet(inv.Entries(keyword))

	matched := matchTiers(expressions, collapsed)

	typedValues := step.QuotedValues(typed)
	candidates := make([]Candidate, 0, len(matched))
	for _, expression := range matched {
		if c, ok := buildCandidate(expression, typed, typedValues); ok {
			candidates = append(candidates, c)
		}
	}
	return candidates
}

func expressionSet(entries []Entry) []string {
	seen := make(map[string]struct{}, len(entries))
	expressions := make([]string, 0, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.Expression]; dup {
			continue
		}
		seen[e.Expression] = struct{}{}
		expressions = append(expressions, e.Expression)
	}
	return expressions
}

// matchTiers applies the three matching tiers in order and unions the
// results, keeping the first occurrence of each expression.
func matchTiers(expressions []string, collapsed string) []string {
	var prefix []string
	for _, e := range expressions {
		if strings.HasPrefix(e, collapsed) {
			prefix = append(prefix, e)
		}
	}

	// Deeper tiers only apply while the first word is still being typed,
	// or when nothing matched by prefix.
	if len(prefix) > 0 && strings.Contains(collapsed, " ") {
		return prefix
	}

	seen := make(map[string]struct{}, len(prefix))
	ordered := make([]string, 0, len(expressions))
	appendNew := func(exprs []string) {
		for _, e := range exprs {
			if _, dup := seen[e]; dup {
				continue
			}
			seen[e] = struct{}{}
			ordered = append(ordered, e)
		}
	}
	appendNew(prefix)

	var containment []string
	for _, e := range expressions {
		if strings.Contains(e, collapsed) {
			containment = append(containment, e)
		}
	}
	appendNew(containment)

	type scored struct {
		expression string
		score      float64
	}
	var fuzzy []scored
	params := levenshtein.NewParams()
	for _, e := range expressions {
		if score := levenshtein.Similarity(e, collapsed, params); score >= fuzzyThreshold {
			fuzzy = append(fuzzy, scored{expression: e, score: score})
		}
	}
	sort.SliceStable(fuzzy, func(i, j int) bool {
		if fuzzy[i].score != fuzzy[j].score {
			return fuzzy[i].score > fuzzy[j].score
		}
		return fuzzy[i].expression < fuzzy[j].expression
	})
	for _, f := range fuzzy {
		appendNew([]string{f.expression})
	}

	return ordered
}

// buildCandidate computes the insertion text for one matched expression.
// Returns false for a candidate identical to what is already typed; there
// is nothing useful to insert.
func buildCandidate(expression, typed string, typedValues []string) (Candidate, bool) {
	text := backfill(expression, typedValues)
	if text == typed {
		return Candidate{}, false
	}

	var newText string
	var startOffset int
	if strings.HasPrefix(text, typed) {
		// Editors replace from the start of the word under the cursor, so
		// the insertion keeps everything from the last typed word on.
		prefix := ""
		if idx := strings.LastIndex(typed, " "); idx >= 0 {
			prefix = typed[:idx+1]
		}
		newText = strings.TrimPrefix(text, prefix)
		if newText == "" {
			newText = lastToken(text)
		}
		startOffset = len(prefix)
	} else {
		// Containment and fuzzy matches replace the whole typed expression.
		newText = text
		startOffset = 0
	}

	preselect := newText == text
	newText, slots := numberSlots(newText)

	return Candidate{
		Label:       text,
		NewText:     newText,
		StartOffset: startOffset,
		Preselect:   preselect,
		Snippet:     slots > 0,
	}, true
}

// backfill re-inserts already-typed quoted values into the candidate's
// quoted slots, matched left to right by position.
func backfill(expression string, values []string) string {
	for _, value := range values {
		idx := strings.Index(expression, `""`)
		if idx < 0 {
			break
		}
		expression = expression[:idx] + `"` + value + `"` + expression[idx+2:]
	}
	return expression
}

// numberSlots turns every remaining empty-quoted slot into a sequentially
// numbered snippet tab stop.
func numberSlots(text string) (string, int) {
	n := 0
	for strings.Contains(text, `""`) {
		n++
		text = strings.Replace(text, `""`, `"$`+strconv.Itoa(n)+`"`, 1)
	}
	return text, n
}

func lastToken(s string) string {
	if idx := strings.LastIndex(s, " "); idx >= 0 {
		return s[idx+1:]
	}
	return s
}
