package step

import (
	"errors"
	"regexp"
	"strings"

	"github.com/Biometria-se/grizzly-lsp-sub000/pkg/permutation"
)

// placeholderPattern matches {name} and {name:type} placeholders.
var placeholderPattern = regexp.MustCompile(`\{([^{}:]+)(?::([^{}]+))?\}`)

// resolvedPlaceholder is one typed placeholder with its substitution values
// and permutation coordinate.
type resolvedPlaceholder struct {
	token  string
	values []string
	xAxis  bool
	yAxis  bool
}

// Normalize expands a raw step pattern into its set of concrete display
// variants.
//
// Quoted placeholder spans collapse to an empty-quoted literal `""`, untyped
// placeholders are erased, and typed placeholders are substituted according
// to their descriptor's permutation coordinate: both-false types in place,
// YAxis types as one variant per value, XAxis types as one variant per
// combined row of values across all XAxis placeholders.
//
// Unknown type names are recorded as [UnhandledTypeError] soft errors and
// the placeholder is left unresolved in the output. A resolver failure
// (unsupported construct, repetition cap) aborts normalization of this
// pattern and is returned as the sole error with no variants.
//
// The returned variants form a set: deduplicated, order not significant.
func Normalize(pattern string, types TypeTable) ([]string, []error) {
	hadPlaceholder := placeholderPattern.MatchString(pattern)

	work := collapseQuotedPlaceholders(pattern)
	work = stripUntyped(work)

	resolved, softErrs, fatal := resolvePlaceholders(work, types)
	if fatal != nil {
		return nil, []error{fatal}
	}

	if !hadPlaceholder {
		return []string{pattern}, nil
	}

	variants := expandVariants(work, resolved)
	return dedupe(variants), softErrs
}

// collapseQuotedPlaceholders replaces every quoted span that contains a
// placeholder with the empty-quoted literal `""`. Quoted spans without
// placeholders are left as written.
func collapseQuotedPlaceholders(pattern string) string {
	var b strings.Builder
	rest := pattern
	for {
		open := strings.IndexByte(rest, '"')
		if open < 0 {
			break
		}
		closing := strings.IndexByte(rest[open+1:], '"')
		if closing < 0 {
			break
		}
		span := rest[open : open+closing+2]
		b.WriteString(rest[:open])
		if placeholderPattern.MatchString(span) {
			b.WriteString(`""`)
		} else {
			b.WriteString(span)
		}
		rest = rest[open+closing+2:]
	}
	b.WriteString(rest)
	return b.String()
}

// stripUntyped erases all untyped placeholders, preserving surrounding text
// verbatim.
func stripUntyped(pattern string) string {
	return placeholderPattern.ReplaceAllStringFunc(pattern, func(token string) string {
		if strings.Contains(token, ":") {
			return token
		}
		return ""
	})
}

// resolvePlaceholders looks up every distinct typed placeholder token.
// Single-character type names are native primitives: they contribute one
// empty replacement with both axes false, like a quoted value.
func resolvePlaceholders(pattern string, types TypeTable) ([]resolvedPlaceholder, []error, error) {
	var resolved []resolvedPlaceholder
	var softErrs []error
	seen := make(map[string]struct{})

	for _, match := range placeholderPattern.FindAllStringSubmatch(pattern, -1) {
		token, name, typeName := match[0], match[1], match[2]
		if typeName == "" {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}

		if desc, ok := types[typeName]; ok {
			values, err := desc.Replacements()
			if err != nil {
				if errors.Is(err, permutation.ErrTooManyRepetitions) || errors.Is(err, permutation.ErrUnsupportedConstruct) {
					return nil, nil, err
				}
				softErrs = append(softErrs, err)
				continue
			}
			resolved = append(resolved, resolvedPlaceholder{
				token:  token,
				values: values,
				xAxis:  desc.XAxis,
				yAxis:  desc.YAxis,
			})
			continue
		}

		if len(typeName) == 1 {
			resolved = append(resolved, resolvedPlaceholder{token: token, values: []string{""}})
			continue
		}

		softErrs = append(softErrs, &UnhandledTypeError{Placeholder: name, Type: typeName})
	}

	return resolved, softErrs, nil
}

// expandVariants applies the three-stage replacement order: in-place
// substitutions first, then YAxis fan-out to fixpoint, then the XAxis
// combination matrix over every variant produced so far.
func expandVariants(pattern string, resolved []resolvedPlaceholder) []string {
	work := pattern

	for _, r := range resolved {
		if r.xAxis || r.yAxis {
			continue
		}
		for i := 0; strings.Contains(work, r.token); i++ {
			work = strings.Replace(work, r.token, r.values[i%len(r.values)], 1)
		}
	}

	variants := expandYAxis([]string{work}, resolved)
	return expandXAxis(variants, resolved)
}

// expandYAxis fans out YAxis placeholders, one complete variant per value,
// repeating until no resolved YAxis token remains in any variant.
func expandYAxis(variants []string, resolved []resolvedPlaceholder) []string {
	for {
		expanded := false
		var next []string
		for _, v := range variants {
			var target *resolvedPlaceholder
			for i := range resolved {
				if resolved[i].yAxis && strings.Contains(v, resolved[i].token) {
					target = &resolved[i]
					break
				}
			}
			if target == nil {
				next = append(next, v)
				continue
			}
			expanded = true
			for _, value := range target.values {
				next = append(next, strings.Replace(v, target.token, value, 1))
			}
		}
		variants = next
		if !expanded {
			return variants
		}
	}
}

// expandXAxis substitutes one value per XAxis placeholder for every row of
// the combination matrix. Rows whose slots are all the identical value are
// excluded. A value is substituted only where its placeholder's own token is
// still present, and only at its first occurrence.
func expandXAxis(variants []string, resolved []resolvedPlaceholder) []string {
	var xs []resolvedPlaceholder
	for _, r := range resolved {
		if r.xAxis {
			xs = append(xs, r)
		}
	}
	if len(xs) == 0 {
		return variants
	}

	rows := combinationRows(xs)
	next := make([]string, 0, len(variants)*len(rows))
	for _, v := range variants {
		for _, row := range rows {
			s := v
			for i, x := range xs {
				if strings.Contains(s, x.token) {
					s = strings.Replace(s, x.token, row[i], 1)
				}
			}
			next = append(next, s)
		}
	}
	return next
}

// combinationRows builds the value matrix across all XAxis placeholders,
// one value per placeholder, excluding degenerate all-identical rows.
func combinationRows(xs []resolvedPlaceholder) [][]string {
	rows := [][]string{{}}
	for _, x := range xs {
		var next [][]string
		for _, row := range rows {
			for _, value := range x.values {
				extended := make([]string, len(row), len(row)+1)
				copy(extended, row)
				next = append(next, append(extended, value))
			}
		}
		rows = next
	}

	if len(xs) < 2 {
		return rows
	}

	filtered := rows[:0]
	for _, row := range rows {
		identical := true
		for _, value := range row[1:] {
			if value != row[0] {
				identical = false
				break
			}
		}
		if !identical {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

func dedupe(variants []string) []string {
	seen := make(map[string]struct{}, len(variants))
	out := make([]string, 0, len(variants))
	for _, v := range variants {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// CollapseQuoted replaces the contents of every balanced quoted span with
// the empty string, yielding the same `""` form normalized step expressions
// use. Matching and help lookup collapse typed expressions with this before
// comparing them against inventory entries.
func CollapseQuoted(s string) string {
	var b strings.Builder
	rest := s
	for {
		open := strings.IndexByte(rest, '"')
		if open < 0 {
			break
		}
		closing := strings.IndexByte(rest[open+1:], '"')
		if closing < 0 {
			break
		}
		b.WriteString(rest[:open])
		b.WriteString(`""`)
		rest = rest[open+closing+2:]
	}
	b.WriteString(rest)
	return b.String()
}

// QuotedValues returns the non-empty contents of every balanced quoted span
// in left-to-right order. Used to back-fill already-typed values into a
// completion candidate.
func QuotedValues(s string) []string {
	var values []string
	rest := s
	for {
		open := strings.IndexByte(rest, '"')
		if open < 0 {
			return values
		}
		closing := strings.IndexByte(rest[open+1:], '"')
		if closing < 0 {
			return values
		}
		if content := rest[open+1 : open+closing+1]; content != "" {
			values = append(values, content)
		}
		rest = rest[open+closing+2:]
	}
}
