package inventory

import (
	"strings"

	"github.com/Biometria-se/grizzly-lsp-sub000/pkg/step"
)

// FindHelp returns the documentation text for the entry best matching the
// typed expression under the given keyword. Quoted values in the expression
// collapse before comparison, mirroring the normalized form entries use.
//
// An exact expression match wins immediately. Otherwise the help of the
// lexicographically greatest entry whose expression starts with the typed
// expression and carries help text is returned. Empty string means no
// match; lookups never fail.
func (inv *Inventory) FindHelp(keyword, expression string) string {
	collapsed := step.CollapseQuoted(strings.TrimSpace(expression))
	entries := inv.Entries(keyword)

	for _, entry := range entries {
		if entry.Expression == collapsed {
			return entry.Help
		}
	}

	var best, bestExpression string
	for _, entry := range entries {
		if entry.Help == "" || !strings.HasPrefix(entry.Expression, collapsed) {
			continue
		}
		if entry.Expression > bestExpression {
			best = entry.Help
			bestExpression = entry.Expression
		}
	}
	return best
}
