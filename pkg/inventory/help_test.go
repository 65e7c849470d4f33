package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Biometria-se/grizzly-lsp-sub000/pkg/step"
)

func TestFindHelpExactMatch(t *testing.T) {
	inv := buildInventory(t, []step.RawStep{
		{Keyword: "Given", Pattern: `hello "{name}"`, Help: "help text"},
	}, nil)

	// "And" is an any-alias, compatible with every entry; the quoted value
	// collapses before comparison.
	assert.Equal(t, "help text", inv.FindHelp("and", `hello "world"`))
}

func TestFindHelpPrefixTieBreak(t *testing.T) {
	inv := buildInventory(t, []step.RawStep{
		{Keyword: "Then", Pattern: "response time is low", Help: "low help"},
		{Keyword: "Then", Pattern: "response time is recorded", Help: "recorded help"},
	}, nil)

	// Both entries share the typed prefix; the lexicographically greatest
	// expression wins.
	assert.Equal(t, "recorded help", inv.FindHelp("then", "response time is"))
}

func TestFindHelpSkipsEntriesWithoutHelp(t *testing.T) {
	inv := buildInventory(t, []step.RawStep{
		{Keyword: "Then", Pattern: "response time is zero"},
		{Keyword: "Then", Pattern: "response time is recorded", Help: "recorded help"},
	}, nil)

	assert.Equal(t, "recorded help", inv.FindHelp("then", "response time is"))
}

func TestFindHelpNoMatch(t *testing.T) {
	inv := buildInventory(t, []step.RawStep{
		{Keyword: "Given", Pattern: "a user", Help: "user help"},
	}, nil)

	assert.Empty(t, inv.FindHelp("given", "no such step"))
}

func TestFindHelpKeywordCompatibility(t *testing.T) {
	inv := buildInventory(t, []step.RawStep{
		{Keyword: "Given", Pattern: "a user", Help: "user help"},
		{Keyword: "Step", Pattern: "wait briefly", Help: "wait help"},
	}, nil)

	// The generic bucket is reachable from every specific keyword.
	assert.Equal(t, "wait help", inv.FindHelp("then", "wait briefly"))

	// A given-only entry is invisible under then.
	assert.Empty(t, inv.FindHelp("then", "a user"))
}
