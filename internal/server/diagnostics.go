package server

import (
	"fmt"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/Biometria-se/grizzly-lsp-sub000/pkg/gherkin"
	"github.com/Biometria-se/grizzly-lsp-sub000/pkg/inventory"
)

// stepLine is one keyword-bearing line of a feature document.
type stepLine struct {
	// Keyword is the literal spelling as typed, without a trailing colon.
	Keyword string

	// Role is the canonical role the keyword resolved to. Empty when the
	// keyword is not part of the active language.
	Role gherkin.Role

	// Expression is the text after the keyword.
	Expression string

	// KeywordStart and ExpressionStart are character offsets into the line.
	KeywordStart    int
	ExpressionStart int
}

// parseStepLine splits a document line into keyword and expression against
// the active language table. The keyword is matched as the longest spelling
// that prefixes the line, so multi-word spellings resolve correctly. ok is
// false for lines that carry no keyword token at all (blank lines,
// comments, tags, table rows).
func parseStepLine(line string, table *gherkin.Keywords) (stepLine, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" {
		return stepLine{}, false
	}
	switch trimmed[0] {
	case '#', '@', '|':
		return stepLine{}, false
	}

	indent := len(line) - len(trimmed)

	keyword, role, ok := matchKeyword(trimmed, table)
	if !ok {
		// Unrecognized token; report it word by word.
		keyword = trimmed
		if idx := strings.IndexAny(trimmed, " \t"); idx >= 0 {
			keyword = trimmed[:idx]
		}
		keyword = strings.TrimSuffix(keyword, ":")
	}

	rest := strings.TrimPrefix(trimmed[len(keyword):], ":")
	sl := stepLine{
		Keyword:      keyword,
		Role:         role,
		KeywordStart: indent,
		Expression:   strings.TrimSpace(rest),
	}
	sl.ExpressionStart = len(line) - len(strings.TrimLeft(rest, " \t"))
	return sl, true
}

// matchKeyword finds the longest keyword spelling prefixing the line,
// case-insensitively. The spelling must be followed by end of line,
// whitespace or a colon.
func matchKeyword(trimmed string, table *gherkin.Keywords) (string, gherkin.Role, bool) {
	allRoles := []gherkin.Role{
		gherkin.RoleFeature, gherkin.RoleBackground, gherkin.RoleScenarioOutline,
		gherkin.RoleScenario, gherkin.RoleExamples, gherkin.RoleGiven,
		gherkin.RoleWhen, gherkin.RoleThen, gherkin.RoleAnd, gherkin.RoleBut,
		gherkin.RoleStep,
	}

	var (
		best     string
		bestRole gherkin.Role
	)
	for _, role := range allRoles {
		for _, spelling := range table.Spellings(role) {
			if len(spelling) <= len(best) || len(spelling) > len(trimmed) {
				continue
			}
			if !strings.EqualFold(trimmed[:len(spelling)], spelling) {
				continue
			}
			if len(trimmed) > len(spelling) {
				switch trimmed[len(spelling)] {
				case ' ', '\t', ':':
				default:
					continue
				}
			}
			best = trimmed[:len(spelling)]
			bestRole = role
		}
	}
	return best, bestRole, best != ""
}

// isStepRole reports whether a role starts a runnable step line.
func isStepRole(role gherkin.Role) bool {
	if role == gherkin.RoleStep {
		return true
	}
	for _, r := range gherkin.StepRoles {
		if role == r {
			return true
		}
	}
	return false
}

// computeDiagnostics scans a feature document and reports invalid
// keywords, repeated one-shot keywords and steps whose expression matches
// no inventory entry. The document is never parsed as a full Gherkin AST;
// only line-leading keywords are interpreted.
func computeDiagnostics(text string, table *gherkin.Keywords, inv *inventory.Inventory, keywords inventory.KeywordSets) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}
	seenOnce := make(map[gherkin.Role]bool)

	inDocstring := false
	inBody := false

	for lineNo, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, `"""`) || strings.HasPrefix(trimmed, "```") {
			inDocstring = !inDocstring
			continue
		}
		if inDocstring {
			continue
		}

		sl, ok := parseStepLine(line, table)
		if !ok {
			continue
		}

		switch {
		case sl.Role == "":
			// Free description text is legal outside a scenario body.
			if inBody {
				diagnostics = append(diagnostics, invalidKeywordDiagnostic(sl, lineNo))
			}

		case isStepRole(sl.Role):
			if !inBody {
				continue
			}
			if inv != nil && sl.Expression != "" && !inv.Implemented(string(sl.Role), sl.Expression) {
				diagnostics = append(diagnostics, notImplementedDiagnostic(sl, lineNo, line))
			}

		default:
			if keywords.IsOnce(sl.Keyword) && seenOnce[sl.Role] {
				diagnostics = append(diagnostics, repeatedKeywordDiagnostic(sl, lineNo))
			}
			seenOnce[sl.Role] = true

			switch sl.Role {
			case gherkin.RoleBackground, gherkin.RoleScenario, gherkin.RoleScenarioOutline:
				inBody = true
			case gherkin.RoleFeature, gherkin.RoleExamples:
				inBody = false
			}
		}
	}

	return diagnostics
}

func lineRange(lineNo, start, end int) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: uint32(lineNo), Character: uint32(start)},
		End:   protocol.Position{Line: uint32(lineNo), Character: uint32(end)},
	}
}

func invalidKeywordDiagnostic(sl stepLine, lineNo int) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range:    lineRange(lineNo, sl.KeywordStart, sl.KeywordStart+len(sl.Keyword)),
		Severity: protocol.DiagnosticSeverityError,
		Source:   diagnosticSource,
		Message:  fmt.Sprintf("%q is not a keyword in the active language", sl.Keyword),
	}
}

func notImplementedDiagnostic(sl stepLine, lineNo int, line string) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range:    lineRange(lineNo, sl.ExpressionStart, len(strings.TrimRight(line, " \t"))),
		Severity: protocol.DiagnosticSeverityWarning,
		Source:   diagnosticSource,
		Message:  fmt.Sprintf("no step implementation matches %q", sl.Expression),
	}
}

func repeatedKeywordDiagnostic(sl stepLine, lineNo int) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range:    lineRange(lineNo, sl.KeywordStart, sl.KeywordStart+len(sl.Keyword)),
		Severity: protocol.DiagnosticSeverityError,
		Source:   diagnosticSource,
		Message:  fmt.Sprintf("%q may only appear once per document", sl.Keyword),
	}
}
