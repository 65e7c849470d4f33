// Package step models parametrized step patterns and expands their typed
// placeholders into the concrete display variants a user could type.
//
// A step pattern is a single line template such as
//
//	send {direction:Direction} request to "{host}"
//
// Placeholders come in two forms: untyped ({name}) and typed ({name:type}).
// Untyped placeholders accept an arbitrary user value and never produce
// variants; typed placeholders reference a [TypeDescriptor] whose value set
// is either enumerated directly or resolved from a regular-expression
// pattern via the permutation package.
package step

import (
	"fmt"

	"github.com/Biometria-se/grizzly-lsp-sub000/pkg/permutation"
)

// TypeDescriptor describes one custom placeholder type: either a fixed set
// of member values or a regular-expression pattern to enumerate.
//
// The XAxis and YAxis flags form the type's permutation coordinate. A YAxis
// type fans out each of its values as an independent variant. An XAxis type
// combines one value per placeholder across all XAxis placeholders in the
// same pattern. With both flags false the type collapses to a single
// deterministic substitution.
type TypeDescriptor struct {
	// Values is the ordered member set of an enumerable type.
	Values []string

	// Pattern is the capture pattern of a regex-backed type. Ignored when
	// Values is non-empty.
	Pattern string

	XAxis bool
	YAxis bool
}

// Replacements resolves the descriptor's substitution values.
func (d TypeDescriptor) Replacements() ([]string, error) {
	if len(d.Values) > 0 {
		return d.Values, nil
	}
	if d.Pattern != "" {
		return permutation.Resolve(d.Pattern)
	}
	return []string{""}, nil
}

// TypeTable maps custom type names to their descriptors.
type TypeTable map[string]TypeDescriptor

// Location points at the source of a step implementation.
type Location struct {
	File string
	Line int
}

// RawStep is one step declaration as discovered from a step-definition
// source: the grammatical keyword it was registered under, the raw pattern
// text, a reference to the implementing callable, and optional help text.
type RawStep struct {
	Keyword  string
	Pattern  string
	Callable string
	Help     string
	Location Location
}

// UnhandledTypeError is the soft error recorded when a typed placeholder
// references a type name absent from the type table. Normalization
// continues; the placeholder is left unresolved in the output.
type UnhandledTypeError struct {
	Placeholder string
	Type        string
}

func (e *UnhandledTypeError) Error() string {
	return fmt.Sprintf("unhandled type: %s, %s", e.Placeholder, e.Type)
}
