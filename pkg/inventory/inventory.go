// Package inventory holds the rebuildable index of normalized step
// expressions and the matching operations editors query against it:
// completion, help lookup, the implemented-step predicate and definition
// lookup.
//
// An Inventory is immutable once built. Rebuilding constructs a fresh
// Inventory off to the side; the owning session publishes it with a single
// reference swap so concurrent read-only queries never observe a partially
// built index.
package inventory

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Biometria-se/grizzly-lsp-sub000/pkg/gherkin"
	"github.com/Biometria-se/grizzly-lsp-sub000/pkg/step"
)

// ErrNoSteps is returned when a build yields no entries at all, typically
// because the step source could not be loaded.
var ErrNoSteps = errors.New("inventory: no step definitions")

// Entry is one normalized step expression with its provenance. Immutable
// once created.
type Entry struct {
	// Keyword is the lowercased keyword the step was declared under.
	Keyword string

	// Expression is the normalized display string.
	Expression string

	// Callable references the implementing function, qualified as
	// "module.function".
	Callable string

	// Location is where the implementation lives, for go-to-definition.
	Location step.Location

	// Help is the optional documentation text.
	Help string
}

// BuildError reports a step pattern that could not be normalized. The
// containing build continues without it.
type BuildError struct {
	Keyword string
	Pattern string
	Err     error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("step %q %q: %v", e.Keyword, e.Pattern, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// Inventory maps lowercased keywords to their ordered step entries.
type Inventory struct {
	entries map[string][]Entry
}

// Build normalizes every raw step and indexes the resulting variants under
// the step's lowercased keyword. Steps declared under the generic "step"
// keyword are stored once in a shared bucket that given/when/then queries
// consult.
//
// Normalization failures are isolated: the offending pattern is skipped and
// reported in the returned error list while the rest of the build proceeds.
func Build(steps []step.RawStep, types step.TypeTable) (*Inventory, []error) {
	inv := &Inventory{entries: make(map[string][]Entry)}
	var buildErrs []error

	for _, raw := range steps {
		variants, errs := step.Normalize(raw.Pattern, types)
		for _, err := range errs {
			buildErrs = append(buildErrs, &BuildError{
				Keyword: raw.Keyword,
				Pattern: raw.Pattern,
				Err:     err,
			})
		}
		if len(variants) == 0 {
			continue
		}

		sort.Strings(variants)
		keyword := strings.ToLower(raw.Keyword)
		for _, expression := range variants {
			inv.entries[keyword] = append(inv.entries[keyword], Entry{
				Keyword:    keyword,
				Expression: expression,
				Callable:   raw.Callable,
				Location:   raw.Location,
				Help:       raw.Help,
			})
		}
	}

	return inv, buildErrs
}

// Len returns the total number of entries.
func (inv *Inventory) Len() int {
	n := 0
	for _, entries := range inv.entries {
		n += len(entries)
	}
	return n
}

// Keywords returns the sorted set of keywords that have entries.
func (inv *Inventory) Keywords() []string {
	keywords := make([]string, 0, len(inv.entries))
	for k := range inv.entries {
		keywords = append(keywords, k)
	}
	sort.Strings(keywords)
	return keywords
}

// Entries returns the entries for a canonical step keyword. Given, when and
// then include the shared generic "step" bucket. The any-aliases ("and",
// "but", "step", "*") span every keyword's entries.
func (inv *Inventory) Entries(keyword string) []Entry {
	keyword = strings.ToLower(keyword)

	switch keyword {
	case "and", "but", "step", "*":
		return inv.all()
	}

	entries := make([]Entry, 0, len(inv.entries[keyword]))
	entries = append(entries, inv.entries[keyword]...)
	if keyword == string(gherkin.RoleGiven) || keyword == string(gherkin.RoleWhen) || keyword == string(gherkin.RoleThen) {
		entries = append(entries, inv.entries["step"]...)
	}
	return entries
}

func (inv *Inventory) all() []Entry {
	keywords := inv.Keywords()
	var entries []Entry
	for _, k := range keywords {
		entries = append(entries, inv.entries[k]...)
	}
	return entries
}

// Lookup finds the entry whose normalized expression equals the collapsed
// expression under a key compatible with the keyword.
func (inv *Inventory) Lookup(keyword, expression string) (Entry, bool) {
	collapsed := step.CollapseQuoted(strings.TrimSpace(expression))
	for _, entry := range inv.Entries(keyword) {
		if entry.Expression == collapsed {
			return entry, true
		}
	}
	return Entry{}, false
}

// Implemented reports whether the collapsed expression matches any entry
// for the keyword. Diagnostics use this as the "step not implemented"
// predicate.
func (inv *Inventory) Implemented(keyword, expression string) bool {
	_, ok := inv.Lookup(keyword, expression)
	return ok
}
