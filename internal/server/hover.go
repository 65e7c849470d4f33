package server

import (
	"context"

	"go.lsp.dev/protocol"
)

// Hover handles textDocument/hover by returning the help text of the step
// definition matching the hovered line.
func (s *Server) Hover(ctx context.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
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

	help := inv.FindHelp(string(sl.Role), sl.Expression)
	if help == "" {
		return nil, nil
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.Markdown,
			Value: help,
		},
		Range: &protocol.Range{
			Start: protocol.Position{Line: params.Position.Line, Character: uint32(sl.KeywordStart)},
			End:   protocol.Position{Line: params.Position.Line, Character: uint32(len(line))},
		},
	}, nil
}
