package server

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
)

const testURI = protocol.DocumentURI("file:///project/features/login.feature")

func newTestServer(t *testing.T) *Server {
	t.Helper()
	sess := newTestSession(t, &fakeSource{result: testResult()})
	_, err := sess.Rebuild(context.Background())
	require.NoError(t, err)

	return New(sess, "/project", zap.NewNop())
}

func openDocument(s *Server, text string) {
	s.setDocument(testURI, text)
}

func completionParams(line, character int) *protocol.CompletionParams {
	return &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
			Position:     protocol.Position{Line: uint32(line), Character: uint32(character)},
		},
	}
}

func TestCompletionKeywords(t *testing.T) {
	s := newTestServer(t)
	openDocument(s, "Feature: f\n  Scenario: s\n    Giv")

	list, err := s.Completion(context.Background(), completionParams(2, 7))
	require.NoError(t, err)
	require.NotNil(t, list)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Given", list.Items[0].Label)
	assert.Equal(t, protocol.CompletionItemKindKeyword, list.Items[0].Kind)
}

func TestCompletionHeaderKeywordGetsColon(t *testing.T) {
	s := newTestServer(t)
	openDocument(s, "Feat")

	list, err := s.Completion(context.Background(), completionParams(0, 4))
	require.NoError(t, err)
	require.NotNil(t, list)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Feature", list.Items[0].Label)
	assert.Equal(t, "Feature:", list.Items[0].InsertText)
}

func TestCompletionSteps(t *testing.T) {
	s := newTestServer(t)
	line := "    Given a user"
	openDocument(s, "Feature: f\n  Scenario: s\n"+line)

	list, err := s.Completion(context.Background(), completionParams(2, len(line)))
	require.NoError(t, err)
	require.NotNil(t, list)
	require.Len(t, list.Items, 1)

	item := list.Items[0]
	assert.Equal(t, `a user of type ""`, item.Label)
	require.NotNil(t, item.TextEdit)
	assert.Equal(t, `user of type "$1"`, item.TextEdit.NewText)
	assert.Equal(t, protocol.InsertTextFormatSnippet, item.InsertTextFormat)

	// Edit begins after the already-typed "a " prefix.
	assert.Equal(t, uint32(12), item.TextEdit.Range.Start.Character)
	assert.Equal(t, uint32(len(line)), item.TextEdit.Range.End.Character)
}

func TestCompletionUnopenedDocument(t *testing.T) {
	s := newTestServer(t)

	list, err := s.Completion(context.Background(), completionParams(0, 0))
	require.NoError(t, err)
	assert.Nil(t, list)
}

func TestHover(t *testing.T) {
	s := newTestServer(t)
	line := `    Given a user of type "RestApi"`
	openDocument(s, "Feature: f\n  Scenario: s\n"+line)

	hover, err := s.Hover(context.Background(), &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
			Position:     protocol.Position{Line: 2, Character: 8},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, hover)
	assert.Equal(t, "Declares a user.", hover.Contents.Value)
}

func TestHoverNoHelp(t *testing.T) {
	s := newTestServer(t)
	openDocument(s, "Feature: f\n  Scenario: s\n    When the load test starts")

	hover, err := s.Hover(context.Background(), &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
			Position:     protocol.Position{Line: 2, Character: 8},
		},
	})
	require.NoError(t, err)
	assert.Nil(t, hover)
}

func TestDefinition(t *testing.T) {
	s := newTestServer(t)
	line := `    Given a user of type "RestApi"`
	openDocument(s, "Feature: f\n  Scenario: s\n"+line)

	locations, err := s.Definition(context.Background(), &protocol.DefinitionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
			Position:     protocol.Position{Line: 2, Character: 8},
		},
	})
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.True(t, strings.HasSuffix(string(locations[0].URI), "/project/features/steps/steps.py"),
		"got %s", locations[0].URI)
	assert.Equal(t, uint32(11), locations[0].Range.Start.Line)
}

func TestDefinitionUnknownStep(t *testing.T) {
	s := newTestServer(t)
	openDocument(s, "Feature: f\n  Scenario: s\n    Given no such step")

	locations, err := s.Definition(context.Background(), &protocol.DefinitionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
			Position:     protocol.Position{Line: 2, Character: 8},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, locations)
}

func TestHoverHonorsLanguageDirective(t *testing.T) {
	s := newTestServer(t)
	openDocument(s, "# language: sv\nEgenskap: f\n  Scenario: s\n    Givet a user of type \"RestApi\"")

	hover, err := s.Hover(context.Background(), &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
			Position:     protocol.Position{Line: 3, Character: 8},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, hover)
	assert.Equal(t, "Declares a user.", hover.Contents.Value)
}

func TestDocumentLanguage(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"directive", "# language: sv\nEgenskap: f\n", "sv", true},
		{"directive after comment", "# comment\n#language:de\nFunktion: f\n", "de", true},
		{"none", "Feature: f\n", "", false},
		{"too late", "Feature: f\n# language: sv\n", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DocumentLanguage(tt.text)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("DocumentLanguage() = %q, %v, want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestDocumentLifecycle(t *testing.T) {
	s := newTestServer(t)

	s.setDocument(testURI, "one\ntwo")
	text, ok := s.document(testURI)
	require.True(t, ok)

	line, ok := lineAt(text, 1)
	require.True(t, ok)
	assert.Equal(t, "two", line)

	_, ok = lineAt(text, 5)
	assert.False(t, ok)

	s.removeDocument(testURI)
	_, ok = s.document(testURI)
	assert.False(t, ok)
}
