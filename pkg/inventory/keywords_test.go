package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Biometria-se/grizzly-lsp-sub000/pkg/gherkin"
	"github.com/Biometria-se/grizzly-lsp-sub000/pkg/step"
)

func TestDeriveKeywords(t *testing.T) {
	table, err := gherkin.Load("en")
	require.NoError(t, err)

	inv := buildInventory(t, []step.RawStep{
		{Keyword: "Given", Pattern: "a user"},
		{Keyword: "Then", Pattern: "a result"},
	}, nil)

	sets := DeriveKeywords(table, inv)

	assert.ElementsMatch(t, []string{"And", "But", "*"}, sets.Any)
	assert.ElementsMatch(t, []string{"Feature", "Business Need", "Ability", "Background"}, sets.Once)
	assert.Contains(t, sets.Headers, "Scenario Outline")
	assert.Contains(t, sets.Headers, "Examples")

	// Given and then are implemented, when is not; the aliases always
	// qualify.
	assert.Contains(t, sets.Steps, "Given")
	assert.Contains(t, sets.Steps, "Then")
	assert.NotContains(t, sets.Steps, "When")
	assert.Contains(t, sets.Steps, "And")
	assert.Contains(t, sets.Steps, "*")
}

func TestDeriveKeywordsSharedBucketEnablesAllStepRoles(t *testing.T) {
	table, err := gherkin.Load("en")
	require.NoError(t, err)

	inv := buildInventory(t, []step.RawStep{
		{Keyword: "Step", Pattern: "do something"},
	}, nil)

	sets := DeriveKeywords(table, inv)
	assert.Contains(t, sets.Steps, "Given")
	assert.Contains(t, sets.Steps, "When")
	assert.Contains(t, sets.Steps, "Then")
}

func TestDeriveKeywordsRecomputedPerLanguage(t *testing.T) {
	inv := buildInventory(t, []step.RawStep{
		{Keyword: "Given", Pattern: "a user"},
	}, nil)

	en, err := gherkin.Load("en")
	require.NoError(t, err)
	sv, err := gherkin.Load("sv")
	require.NoError(t, err)

	enSets := DeriveKeywords(en, inv)
	svSets := DeriveKeywords(sv, inv)

	assert.Contains(t, enSets.Steps, "Given")
	assert.Contains(t, svSets.Steps, "Givet")
	assert.NotContains(t, svSets.Steps, "Given")
}

func TestKeywordSetPredicates(t *testing.T) {
	table, err := gherkin.Load("en")
	require.NoError(t, err)

	sets := DeriveKeywords(table, nil)

	assert.True(t, sets.IsValid("Feature"))
	assert.True(t, sets.IsValid("given"), "validity check is case-insensitive")
	assert.False(t, sets.IsValid("Bogus"))

	assert.True(t, sets.IsAny("And"))
	assert.True(t, sets.IsAny("*"))
	assert.False(t, sets.IsAny("Given"))

	assert.True(t, sets.IsOnce("Feature"))
	assert.True(t, sets.IsOnce("Background"))
	assert.False(t, sets.IsOnce("Scenario"))

	assert.True(t, sets.IsHeader("Scenario"))
	assert.False(t, sets.IsHeader("Given"))
}
