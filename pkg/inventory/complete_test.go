package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Biometria-se/grizzly-lsp-sub000/pkg/step"
)

func buildInventory(t *testing.T, steps []step.RawStep, types step.TypeTable) *Inventory {
	t.Helper()
	inv, errs := Build(steps, types)
	require.Empty(t, errs)
	return inv
}

func labels(candidates []Candidate) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.Label)
	}
	return out
}

func TestCompleteEmptyExpressionReturnsAll(t *testing.T) {
	inv := buildInventory(t, []step.RawStep{
		{Keyword: "Given", Pattern: "a first step"},
		{Keyword: "Given", Pattern: "a second step"},
		{Keyword: "Then", Pattern: "a then step"},
	}, nil)

	candidates := inv.Complete("given", "")
	assert.ElementsMatch(t, []string{"a first step", "a second step"}, labels(candidates))

	for _, c := range candidates {
		assert.Equal(t, c.Label, c.NewText)
		assert.True(t, c.Preselect)
		assert.False(t, c.Snippet)
	}
}

func TestCompletePrefixTier(t *testing.T) {
	inv := buildInventory(t, []step.RawStep{
		{Keyword: "When", Pattern: "the user logs in"},
		{Keyword: "When", Pattern: "the user logs out"},
		{Keyword: "When", Pattern: "a request is sent"},
	}, nil)

	candidates := inv.Complete("when", "the user logs")
	assert.Equal(t, []string{"the user logs in", "the user logs out"}, labels(candidates))
}

func TestCompleteExactMatchExcluded(t *testing.T) {
	inv := buildInventory(t, []step.RawStep{
		{Keyword: "Given", Pattern: "a thing"},
		{Keyword: "Given", Pattern: "a thing extra"},
	}, nil)

	candidates := inv.Complete("given", "a thing")
	assert.Equal(t, []string{"a thing extra"}, labels(candidates))
}

func TestCompleteInsertionAfterPrefix(t *testing.T) {
	inv := buildInventory(t, []step.RawStep{
		{Keyword: "Given", Pattern: "the user logs in"},
	}, nil)

	candidates := inv.Complete("given", "the user lo")
	require.Len(t, candidates, 1)

	// The insertion keeps everything from the last typed word on, so the
	// editor's word-replacing edit reconstructs the full step.
	assert.Equal(t, "logs in", candidates[0].NewText)
	assert.Equal(t, len("the user "), candidates[0].StartOffset)
	assert.False(t, candidates[0].Preselect)
}

func TestCompleteContainmentGatedByFirstWord(t *testing.T) {
	inv := buildInventory(t, []step.RawStep{
		{Keyword: "Then", Pattern: "metrics are collected"},
		{Keyword: "Then", Pattern: "all metrics are reset"},
	}, nil)

	// Still on the first word: containment applies even though the prefix
	// tier already matched.
	candidates := inv.Complete("then", "metrics")
	assert.Equal(t, []string{"metrics are collected", "all metrics are reset"}, labels(candidates))

	// Past the first word with prefix matches: containment is skipped.
	candidates = inv.Complete("then", "metrics are")
	assert.Equal(t, []string{"metrics are collected"}, labels(candidates))
}

func TestCompleteContainmentReplacesTypedText(t *testing.T) {
	inv := buildInventory(t, []step.RawStep{
		{Keyword: "Then", Pattern: "all metrics are reset"},
	}, nil)

	candidates := inv.Complete("then", "metrics")
	require.Len(t, candidates, 1)

	// The candidate does not start with what the user typed, so the edit
	// replaces the whole typed expression.
	assert.Equal(t, "all metrics are reset", candidates[0].NewText)
	assert.Equal(t, 0, candidates[0].StartOffset)
}

func TestCompleteFuzzyTier(t *testing.T) {
	inv := buildInventory(t, []step.RawStep{
		{Keyword: "When", Pattern: "restart scenario"},
	}, nil)

	// A typo within the similarity threshold still finds the step.
	candidates := inv.Complete("when", "restrt scenario")
	assert.Equal(t, []string{"restart scenario"}, labels(candidates))
}

func TestCompleteQuotedValueBackfill(t *testing.T) {
	inv := buildInventory(t, []step.RawStep{
		{Keyword: "Given", Pattern: `a user of type "{user_type}" with weight "{weight}" load testing "{host}"`},
	}, nil)

	candidates := inv.Complete("given", `a user of type "RestApi" with weight "1" load`)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, `a user of type "RestApi" with weight "1" load testing ""`, c.Label)
	assert.Equal(t, `load testing "$1"`, c.NewText)
	assert.Equal(t, len(`a user of type "RestApi" with weight "1" `), c.StartOffset)
	assert.True(t, c.Snippet)
}

func TestCompleteSnippetNumbering(t *testing.T) {
	inv := buildInventory(t, []step.RawStep{
		{Keyword: "Given", Pattern: `set "{name}" to "{value}" in "{scope}"`},
	}, nil)

	candidates := inv.Complete("given", "")
	require.Len(t, candidates, 1)

	assert.Equal(t, `set "$1" to "$2" in "$3"`, candidates[0].NewText)
	assert.True(t, candidates[0].Snippet)
}

func TestCompleteAnyAliasSearchesAllKeywords(t *testing.T) {
	inv := buildInventory(t, []step.RawStep{
		{Keyword: "Given", Pattern: "a given step"},
		{Keyword: "Then", Pattern: "a then step"},
	}, nil)

	candidates := inv.Complete("and", "a ")
	assert.ElementsMatch(t, []string{"a given step", "a then step"}, labels(candidates))
}

func TestCompleteNoMatch(t *testing.T) {
	inv := buildInventory(t, []step.RawStep{
		{Keyword: "Given", Pattern: "something entirely different"},
	}, nil)

	candidates := inv.Complete("given", "zzzzzzzzzzzzzzzz qqqq")
	assert.Empty(t, candidates)
}
