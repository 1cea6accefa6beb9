// Package parser turns free-form chat messages into transaction drafts and
// -show commands into report queries.
//
// A Parser is built once from a vocabulary and is safe for concurrent use: it
// holds only compiled patterns and read-only keyword lists.
package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"

	"github.com/lox/chat-ledger/internal/types"
	"github.com/lox/chat-ledger/internal/vocabulary"
)

// Amount is the first monetary quantity found in a message
type Amount struct {
	Value decimal.Decimal
	// Raw is the matched text before unit resolution, e.g. "15rb"
	Raw string
}

type Parser struct {
	vocab    *vocabulary.Vocabulary
	expense  []string
	income   []string
	amountRE *regexp.Regexp
	keyword  *regexp.Regexp
	dateFlag *regexp.Regexp
}

// New compiles the patterns for v
func New(v *vocabulary.Vocabulary) *Parser {
	return &Parser{
		vocab:    v,
		expense:  v.ExpenseKeywords(),
		income:   v.IncomeKeywords(),
		amountRE: amountPattern(v.UnitTokens()),
		keyword:  wordsPattern(longestFirst(v.Keywords())),
		dateFlag: valueFlagPattern("date", dateLayout),
	}
}

// Vocabulary returns the vocabulary the parser was built from
func (p *Parser) Vocabulary() *vocabulary.Vocabulary {
	return p.vocab
}

// ExtractAmount returns the leftmost amount in text
func (p *Parser) ExtractAmount(text string) (Amount, bool) {
	m := p.amountRE.FindStringSubmatchIndex(text)
	if m == nil {
		return Amount{}, false
	}

	digits := strings.ReplaceAll(text[m[2]:m[3]], ".", "")
	value, err := decimal.NewFromString(digits)
	if err != nil {
		return Amount{}, false
	}

	if m[4] >= 0 {
		multiplier, ok := p.vocab.Multiplier(text[m[4]:m[5]])
		if !ok {
			return Amount{}, false
		}
		value = value.Mul(decimal.NewFromInt(multiplier))
	}

	return Amount{Value: value, Raw: text[m[0]:m[1]]}, true
}

// Classify decides the direction of text. Expense keywords are checked first,
// so a message containing both kinds is an expense.
func (p *Parser) Classify(text string) types.TransactionType {
	lower := strings.ToLower(text)

	for _, kw := range p.expense {
		if strings.Contains(lower, kw) {
			return types.TransactionTypeExpense
		}
	}

	for _, kw := range p.income {
		if strings.Contains(lower, kw) {
			return types.TransactionTypeIncome
		}
	}

	return types.TransactionTypeUnknown
}

// ExtractDescription removes one whole-word occurrence of rawAmount and every
// direction keyword from text, then trims the ends
func (p *Parser) ExtractDescription(text, rawAmount string) string {
	desc := text

	if rawAmount != "" {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(rawAmount) + `\b`)
		if err == nil {
			if loc := re.FindStringIndex(desc); loc != nil {
				desc = desc[:loc[0]] + desc[loc[1]:]
			}
		}
	}

	desc = p.keyword.ReplaceAllString(desc, "")
	return strings.TrimSpace(desc)
}

// ParseMessage runs the full pipeline over a "store" message. params are the
// recognized -flag names to strip before parsing.
func (p *Parser) ParseMessage(raw string, params []string) (types.TransactionDraft, error) {
	if !utf8.ValidString(raw) {
		return types.TransactionDraft{}, Errorf(CodeInvalidInput, "message is not valid text")
	}
	if strings.TrimSpace(raw) == "" {
		return types.TransactionDraft{}, Errorf(CodeInvalidInput, "message is empty")
	}

	text, date := p.StripParams(raw, params)

	amount, ok := p.ExtractAmount(text)
	if !ok {
		return types.TransactionDraft{}, Errorf(CodeNoAmount, "no amount found in message")
	}

	kind := p.Classify(text)
	if kind == types.TransactionTypeUnknown {
		return types.TransactionDraft{}, Errorf(CodeNoType, "could not tell whether the message is income or expense")
	}

	return types.TransactionDraft{
		Amount:          amount.Value,
		Type:            kind,
		Description:     p.ExtractDescription(text, amount.Raw),
		TransactionDate: date,
	}, nil
}

func longestFirst(words []string) []string {
	out := slices.Clone(words)
	slices.SortStableFunc(out, func(a, b string) int {
		return len(b) - len(a)
	})
	return out
}
