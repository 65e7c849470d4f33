// Package gherkin provides the per-language keyword tables used to resolve
// what a typed keyword means. Full feature-file parsing is out of scope
// here; this package only answers "which spellings are valid in language X
// and which canonical role does this spelling carry".
package gherkin

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed languages.yaml
var languagesYAML []byte

// ErrUnknownLanguage is returned when a language code has no keyword table.
var ErrUnknownLanguage = errors.New("gherkin: unknown language")

// Role is a canonical grammatical category, independent of the
// natural-language spelling used in a document.
type Role string

const (
	RoleFeature         Role = "feature"
	RoleBackground      Role = "background"
	RoleScenario        Role = "scenario"
	RoleScenarioOutline Role = "scenario_outline"
	RoleExamples        Role = "examples"
	RoleGiven           Role = "given"
	RoleWhen            Role = "when"
	RoleThen            Role = "then"
	RoleAnd             Role = "and"
	RoleBut             Role = "but"

	// RoleStep is the generic step role. It has no localized spelling of
	// its own besides the "*" bullet; step definitions registered under it
	// match given, when and then alike.
	RoleStep Role = "step"
)

// StepRoles are the roles that may start a step line.
var StepRoles = []Role{RoleGiven, RoleWhen, RoleThen, RoleAnd, RoleBut}

// Keywords is the keyword table of one natural language: canonical role to
// the list of literal spellings valid in that language.
type Keywords struct {
	Name            string   `yaml:"name"`
	Feature         []string `yaml:"feature"`
	Background      []string `yaml:"background"`
	Scenario        []string `yaml:"scenario"`
	ScenarioOutline []string `yaml:"scenario_outline"`
	Examples        []string `yaml:"examples"`
	Given           []string `yaml:"given"`
	When            []string `yaml:"when"`
	Then            []string `yaml:"then"`
	And             []string `yaml:"and"`
	But             []string `yaml:"but"`
}

var (
	tablesOnce sync.Once
	tables     map[string]*Keywords
	tablesErr  error
)

func loadTables() (map[string]*Keywords, error) {
	tablesOnce.Do(func() {
		tables = make(map[string]*Keywords)
		tablesErr = yaml.Unmarshal(languagesYAML, &tables)
	})
	return tables, tablesErr
}

// Load returns the keyword table for the given language code.
func Load(code string) (*Keywords, error) {
	all, err := loadTables()
	if err != nil {
		return nil, fmt.Errorf("gherkin: parsing language tables: %w", err)
	}

	table, ok := all[strings.ToLower(code)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, code)
	}
	return table, nil
}

// Available returns the sorted list of supported language codes.
func Available() []string {
	all, err := loadTables()
	if err != nil {
		return nil
	}

	codes := make([]string, 0, len(all))
	for code := range all {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Spellings returns the literal keyword spellings for a role. RoleStep
// yields the "*" bullet.
func (k *Keywords) Spellings(role Role) []string {
	switch role {
	case RoleFeature:
		return k.Feature
	case RoleBackground:
		return k.Background
	case RoleScenario:
		return k.Scenario
	case RoleScenarioOutline:
		return k.ScenarioOutline
	case RoleExamples:
		return k.Examples
	case RoleGiven:
		return k.Given
	case RoleWhen:
		return k.When
	case RoleThen:
		return k.Then
	case RoleAnd:
		return k.And
	case RoleBut:
		return k.But
	case RoleStep:
		return []string{"*"}
	}
	return nil
}

// RoleOf resolves a typed keyword to its canonical role, matching
// case-insensitively. The "*" bullet resolves to RoleStep.
func (k *Keywords) RoleOf(keyword string) (Role, bool) {
	keyword = strings.TrimSuffix(strings.TrimSpace(keyword), ":")
	if keyword == "*" {
		return RoleStep, true
	}

	roles := []Role{
		RoleFeature, RoleBackground, RoleScenario, RoleScenarioOutline,
		RoleExamples, RoleGiven, RoleWhen, RoleThen, RoleAnd, RoleBut,
	}
	for _, role := range roles {
		for _, spelling := range k.Spellings(role) {
			if strings.EqualFold(keyword, spelling) {
				return role, true
			}
		}
	}
	return "", false
}
