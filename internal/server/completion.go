package server

import (
	"context"
	"strings"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/Biometria-se/grizzly-lsp-sub000/pkg/inventory"
)

// Completion handles textDocument/completion requests. Before the first
// word of a line is finished it offers keyword completions; after a step
// keyword it delegates to the inventory's matching tiers.
func (s *Server) Completion(ctx context.Context, params *protocol.CompletionParams) (*protocol.CompletionList, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	line, ok := lineAt(text, int(params.Position.Line))
	if !ok {
		return nil, nil
	}
	if int(params.Position.Character) < len(line) {
		line = line[:params.Position.Character]
	}

	s.logger.Debug("completion",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.String("line", line))

	inv, _, published := s.session.Snapshot()
	table, keywords := s.session.Resolve(text)
	sl, ok := parseStepLine(line, table)
	if !ok {
		if strings.TrimSpace(line) == "" {
			return &protocol.CompletionList{Items: s.keywordItems(keywords, "")}, nil
		}
		return nil, nil
	}

	// Still typing the first word.
	if firstWordOnly := !strings.ContainsAny(strings.TrimLeft(line, " \t"), " \t"); sl.Role == "" || firstWordOnly {
		return &protocol.CompletionList{Items: s.keywordItems(keywords, sl.Keyword)}, nil
	}

	if !published || !isStepRole(sl.Role) {
		return &protocol.CompletionList{Items: []protocol.CompletionItem{}}, nil
	}

	typed := line[min(sl.ExpressionStart, len(line)):]
	candidates := inv.Complete(string(sl.Role), typed)

	items := make([]protocol.CompletionItem, 0, len(candidates))
	for _, c := range candidates {
		item := protocol.CompletionItem{
			Label:     c.Label,
			Kind:      protocol.CompletionItemKindFunction,
			Preselect: c.Preselect,
			TextEdit: &protocol.TextEdit{
				Range: lineRange(int(params.Position.Line),
					sl.ExpressionStart+c.StartOffset,
					int(params.Position.Character)),
				NewText: c.NewText,
			},
		}
		if c.Snippet {
			item.InsertTextFormat = protocol.InsertTextFormatSnippet
		}
		items = append(items, item)
	}

	return &protocol.CompletionList{IsIncomplete: false, Items: items}, nil
}

// keywordItems offers the language's valid keywords, filtered by the
// typed prefix. Header keywords insert with a trailing colon.
func (s *Server) keywordItems(keywords inventory.KeywordSets, prefix string) []protocol.CompletionItem {
	items := make([]protocol.CompletionItem, 0, len(keywords.All))
	for _, keyword := range keywords.All {
		if prefix != "" && !strings.HasPrefix(strings.ToLower(keyword), strings.ToLower(prefix)) {
			continue
		}
		insert := keyword
		if keywords.IsHeader(keyword) {
			insert += ":"
		}
		items = append(items, protocol.CompletionItem{
			Label:      keyword,
			Kind:       protocol.CompletionItemKindKeyword,
			InsertText: insert,
		})
	}
	return items
}
