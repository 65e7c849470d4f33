package inventory

import (
	"sort"
	"strings"

	"github.com/Biometria-se/grizzly-lsp-sub000/pkg/gherkin"
)

// KeywordSets are the derived keyword groups for one natural language and
// one inventory. They are a pure function of (language table, inventory
// keyword set) and must be recomputed whenever either changes.
type KeywordSets struct {
	// All contains every keyword spelling valid in the language.
	All []string

	// Steps contains the spellings valid at step position: the step roles
	// with at least one implemented entry, plus the any-aliases.
	Steps []string

	// Any contains the no-op alias spellings that match steps of every
	// role: and, but and the "*" bullet.
	Any []string

	// Once contains the spellings that may appear at most once per
	// document: feature and background.
	Once []string

	// Headers contains the section header spellings: feature, background,
	// scenario, scenario outline, examples.
	Headers []string
}

// DeriveKeywords computes the keyword sets for a language table and the
// currently built inventory.
func DeriveKeywords(table *gherkin.Keywords, inv *Inventory) KeywordSets {
	sets := KeywordSets{}

	anyRoles := []gherkin.Role{gherkin.RoleAnd, gherkin.RoleBut}
	for _, role := range anyRoles {
		sets.Any = append(sets.Any, table.Spellings(role)...)
	}
	sets.Any = append(sets.Any, "*")

	onceRoles := []gherkin.Role{gherkin.RoleFeature, gherkin.RoleBackground}
	for _, role := range onceRoles {
		sets.Once = append(sets.Once, table.Spellings(role)...)
	}

	headerRoles := []gherkin.Role{
		gherkin.RoleFeature, gherkin.RoleBackground, gherkin.RoleScenario,
		gherkin.RoleScenarioOutline, gherkin.RoleExamples,
	}
	for _, role := range headerRoles {
		sets.Headers = append(sets.Headers, table.Spellings(role)...)
	}

	implemented := make(map[string]struct{})
	if inv != nil {
		for _, k := range inv.Keywords() {
			implemented[k] = struct{}{}
		}
	}
	_, hasShared := implemented["step"]

	stepRoles := []gherkin.Role{gherkin.RoleGiven, gherkin.RoleWhen, gherkin.RoleThen}
	for _, role := range stepRoles {
		_, ok := implemented[string(role)]
		if ok || hasShared {
			sets.Steps = append(sets.Steps, table.Spellings(role)...)
		}
	}
	sets.Steps = append(sets.Steps, sets.Any...)

	sets.All = append(sets.All, sets.Headers...)
	for _, role := range gherkin.StepRoles {
		sets.All = append(sets.All, table.Spellings(role)...)
	}
	sets.All = append(sets.All, "*")
	sets.All = dedupeStrings(sets.All)

	return sets
}

// Contains reports whether keyword is in the set, case-insensitively.
func contains(set []string, keyword string) bool {
	for _, s := range set {
		if strings.EqualFold(s, keyword) {
			return true
		}
	}
	return false
}

// IsValid reports whether the keyword is valid in the language.
func (s KeywordSets) IsValid(keyword string) bool { return contains(s.All, keyword) }

// IsAny reports whether the keyword is a no-op alias matching any role.
func (s KeywordSets) IsAny(keyword string) bool { return contains(s.Any, keyword) }

// IsOnce reports whether the keyword may appear at most once per document.
func (s KeywordSets) IsOnce(keyword string) bool { return contains(s.Once, keyword) }

// IsHeader reports whether the keyword introduces a section.
func (s KeywordSets) IsHeader(keyword string) bool { return contains(s.Headers, keyword) }

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
