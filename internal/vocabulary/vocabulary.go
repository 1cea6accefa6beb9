// Package vocabulary holds the keyword and unit tables the message parser
// matches against. A Vocabulary is immutable once built; accessors hand out
// copies so callers cannot change what the parser sees.
package vocabulary

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/exp/slices"
)

// Unit maps an amount suffix such as "rb" or "juta" to its multiplier
type Unit struct {
	Token      string `yaml:"token"`
	Multiplier int64  `yaml:"multiplier"`
}

// Spec is the serialisable form of a vocabulary
type Spec struct {
	Version         string   `yaml:"version"`
	Units           []Unit   `yaml:"units"`
	IncomeKeywords  []string `yaml:"income_keywords"`
	ExpenseKeywords []string `yaml:"expense_keywords"`
	Params          []string `yaml:"params"`
}

// Vocabulary is a validated, read-only Spec
type Vocabulary struct {
	version     string
	units       []Unit
	multipliers map[string]int64
	income      []string
	expense     []string
	params      []string
}

var (
	unitTokenRE = regexp.MustCompile(`^[a-z]+$`)
	paramNameRE = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// New validates spec and returns an immutable Vocabulary. Tokens, keywords and
// parameter names are lower-cased; their order is kept.
func New(spec Spec) (*Vocabulary, error) {
	v := &Vocabulary{
		version:     strings.TrimSpace(spec.Version),
		multipliers: make(map[string]int64, len(spec.Units)),
	}

	if v.version == "" {
		return nil, fmt.Errorf("vocabulary version is required")
	}

	if len(spec.Units) == 0 {
		return nil, fmt.Errorf("vocabulary %s: at least one unit is required", v.version)
	}
	for _, u := range spec.Units {
		token := strings.ToLower(strings.TrimSpace(u.Token))
		if !unitTokenRE.MatchString(token) {
			return nil, fmt.Errorf("vocabulary %s: invalid unit token %q", v.version, u.Token)
		}
		if u.Multiplier < 1 {
			return nil, fmt.Errorf("vocabulary %s: unit %q must have a multiplier of at least 1", v.version, token)
		}
		if _, dup := v.multipliers[token]; dup {
			return nil, fmt.Errorf("vocabulary %s: duplicate unit %q", v.version, token)
		}
		v.multipliers[token] = u.Multiplier
		v.units = append(v.units, Unit{Token: token, Multiplier: u.Multiplier})
	}

	var err error
	if v.income, err = normalizeKeywords(spec.IncomeKeywords); err != nil {
		return nil, fmt.Errorf("vocabulary %s: income keywords: %w", v.version, err)
	}
	if v.expense, err = normalizeKeywords(spec.ExpenseKeywords); err != nil {
		return nil, fmt.Errorf("vocabulary %s: expense keywords: %w", v.version, err)
	}

	for _, p := range spec.Params {
		name := strings.ToLower(strings.TrimSpace(p))
		if !paramNameRE.MatchString(name) {
			return nil, fmt.Errorf("vocabulary %s: invalid parameter name %q", v.version, p)
		}
		if !slices.Contains(v.params, name) {
			v.params = append(v.params, name)
		}
	}

	return v, nil
}

func normalizeKeywords(in []string) ([]string, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("at least one keyword is required")
	}
	out := make([]string, 0, len(in))
	for _, kw := range in {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			return nil, fmt.Errorf("empty keyword")
		}
		if slices.Contains(out, kw) {
			continue
		}
		out = append(out, kw)
	}
	return out, nil
}

// Version identifies the vocabulary revision
func (v *Vocabulary) Version() string { return v.version }

// Units returns the unit table in configured order
func (v *Vocabulary) Units() []Unit { return slices.Clone(v.units) }

// UnitTokens returns every unit token, longest first, so that an alternation
// built from them never settles on a shorter prefix
func (v *Vocabulary) UnitTokens() []string {
	tokens := make([]string, len(v.units))
	for i, u := range v.units {
		tokens[i] = u.Token
	}
	slices.SortStableFunc(tokens, func(a, b string) int {
		return len(b) - len(a)
	})
	return tokens
}

// Multiplier looks up a unit by its full token, ignoring case
func (v *Vocabulary) Multiplier(token string) (int64, bool) {
	m, ok := v.multipliers[strings.ToLower(token)]
	return m, ok
}

// IncomeKeywords returns the income keywords in match order
func (v *Vocabulary) IncomeKeywords() []string { return slices.Clone(v.income) }

// ExpenseKeywords returns the expense keywords in match order
func (v *Vocabulary) ExpenseKeywords() []string { return slices.Clone(v.expense) }

// Keywords returns expense then income keywords
func (v *Vocabulary) Keywords() []string {
	return append(slices.Clone(v.expense), v.income...)
}

// Params returns the recognized command parameter names
func (v *Vocabulary) Params() []string { return slices.Clone(v.params) }

// Spec converts the vocabulary back to its serialisable form
func (v *Vocabulary) Spec() Spec {
	return Spec{
		Version:         v.version,
		Units:           v.Units(),
		IncomeKeywords:  v.IncomeKeywords(),
		ExpenseKeywords: v.ExpenseKeywords(),
		Params:          v.Params(),
	}
}
