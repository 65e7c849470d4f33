package server

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Biometria-se/grizzly-lsp-sub000/pkg/gherkin"
	"github.com/Biometria-se/grizzly-lsp-sub000/pkg/inventory"
	"github.com/Biometria-se/grizzly-lsp-sub000/pkg/stepsource"
)

// ErrRebuildFailed is returned when the step source could not be loaded at
// all. The previously published inventory, if any, stays authoritative.
var ErrRebuildFailed = errors.New("server: inventory rebuild failed")

// snapshot is one immutable published state: an inventory and the keyword
// sets derived from it for the session's language.
type snapshot struct {
	inventory *inventory.Inventory
	keywords  inventory.KeywordSets
}

// Session holds the per-editor-session state: the active natural language
// and the published inventory. Reads go through an atomic pointer so
// in-flight queries never observe a partially built inventory; Rebuild
// assembles the replacement off to the side and publishes it with one swap.
type Session struct {
	source stepsource.Source

	mu       sync.Mutex
	language string
	table    *gherkin.Keywords

	current atomic.Pointer[snapshot]
}

// NewSession creates a session for the given step source and language code.
func NewSession(source stepsource.Source, language string) (*Session, error) {
	table, err := gherkin.Load(language)
	if err != nil {
		return nil, err
	}
	return &Session{source: source, language: language, table: table}, nil
}

// Language returns the active natural-language code.
func (s *Session) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// Table returns the keyword table of the active language.
func (s *Session) Table() *gherkin.Keywords {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table
}

// SetLanguage switches the active language and recomputes the derived
// keyword sets against the current inventory. Entries are untouched.
func (s *Session) SetLanguage(code string) error {
	table, err := gherkin.Load(code)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.language = code
	s.table = table
	s.mu.Unlock()

	if snap := s.current.Load(); snap != nil {
		s.current.Store(&snapshot{
			inventory: snap.inventory,
			keywords:  inventory.DeriveKeywords(table, snap.inventory),
		})
	}
	return nil
}

// Snapshot returns the published inventory and keyword sets. The second
// return is false before the first successful rebuild.
func (s *Session) Snapshot() (*inventory.Inventory, inventory.KeywordSets, bool) {
	snap := s.current.Load()
	if snap == nil {
		return nil, inventory.KeywordSets{}, false
	}
	return snap.inventory, snap.keywords, true
}

var languageDirective = regexp.MustCompile(`^#\s*language:\s*([A-Za-z-]+)`)

// DocumentLanguage reads a feature document's leading "# language: xx"
// directive. Only comment lines may precede it.
func DocumentLanguage(text string) (string, bool) {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, "#") {
			return "", false
		}
		if m := languageDirective.FindStringSubmatch(trimmed); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// Resolve returns the keyword table and derived keyword sets to use for a
// document, honoring its language directive. An unknown directive falls
// back to the session language.
func (s *Session) Resolve(text string) (*gherkin.Keywords, inventory.KeywordSets) {
	snap := s.current.Load()

	if code, ok := DocumentLanguage(text); ok && code != s.Language() {
		if table, err := gherkin.Load(code); err == nil {
			var sets inventory.KeywordSets
			if snap != nil {
				sets = inventory.DeriveKeywords(table, snap.inventory)
			}
			return table, sets
		}
	}

	if snap == nil {
		return s.Table(), inventory.KeywordSets{}
	}
	return s.Table(), snap.keywords
}

// Rebuild loads the step source and builds a fresh inventory. Per-step
// failures are returned as soft errors with the inventory still published;
// a total source failure returns ErrRebuildFailed and leaves the previous
// snapshot in place.
func (s *Session) Rebuild(ctx context.Context) ([]error, error) {
	result, err := s.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRebuildFailed, err)
	}

	soft := make([]error, 0, len(result.Errors))
	for _, loadErr := range result.Errors {
		soft = append(soft, loadErr)
	}

	inv, buildErrs := inventory.Build(result.Steps, result.Types)
	soft = append(soft, buildErrs...)

	s.current.Store(&snapshot{
		inventory: inv,
		keywords:  inventory.DeriveKeywords(s.Table(), inv),
	})
	return soft, nil
}
