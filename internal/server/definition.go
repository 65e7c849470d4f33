package server

import (
	"context"
	"path/filepath"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// Definition handles textDocument/definition by resolving the step line's
// collapsed expression to the location its implementation was extracted
// from.
func (s *Server) Definition(ctx context.Context, params *protocol.DefinitionParams) ([]protocol.Location, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	line, ok := lineAt(text, int(params.Position.Line))
	if !ok {
		return nil, nil
	}

	inv, _, published := s.session.Snapshot()
	if !published {
		return nil, nil
	}

	table, _ := s.session.Resolve(text)
	sl, ok := parseStepLine(line, table)
	if !ok || !isStepRole(sl.Role) || sl.Expression == "" {
		return nil, nil
	}

	entry, ok := inv.Lookup(string(sl.Role), sl.Expression)
	if !ok || entry.Location.File == "" {
		return nil, nil
	}

	path := entry.Location.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, filepath.FromSlash(path))
	}

	targetLine := uint32(0)
	if entry.Location.Line > 0 {
		targetLine = uint32(entry.Location.Line - 1)
	}

	return []protocol.Location{{
		URI: uri.File(path),
		Range: protocol.Range{
			Start: protocol.Position{Line: targetLine, Character: 0},
			End:   protocol.Position{Line: targetLine, Character: 0},
		},
	}}, nil
}
