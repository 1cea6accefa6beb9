package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// The patterns the parser matches with are generated here from data: date
// layouts are written as "DD-MM-YYYY" style strings and amount units come from
// the vocabulary, so no literal date or unit patterns live in the parsing code.

type dateField int

const (
	fieldDay dateField = iota
	fieldMonth
	fieldYear
)

var layoutFields = map[byte]dateField{
	'D': fieldDay,
	'M': fieldMonth,
	'Y': fieldYear,
}

// layout is a fixed-width date grammar such as DD-MM-YYYY
type layout struct {
	text     string
	body     string // regexp without anchors or capture groups
	anchored *regexp.Regexp
	fields   []dateField
}

// dateParts holds the fields a layout captured. Fields the layout does not
// contain stay nil.
type dateParts struct {
	Day, Month, Year *int
}

func mustCompileLayout(text string) layout {
	l, err := compileLayout(text)
	if err != nil {
		panic(err)
	}
	return l
}

// compileLayout turns each run of D, M or Y into a fixed-width digit group and
// quotes everything else literally
func compileLayout(text string) (layout, error) {
	l := layout{text: text}
	var body, captured strings.Builder

	for i := 0; i < len(text); {
		field, ok := layoutFields[text[i]]
		if !ok {
			lit := regexp.QuoteMeta(text[i : i+1])
			body.WriteString(lit)
			captured.WriteString(lit)
			i++
			continue
		}

		j := i
		for j < len(text) && text[j] == text[i] {
			j++
		}
		for _, f := range l.fields {
			if f == field {
				return layout{}, fmt.Errorf("layout %q repeats field %c", text, text[i])
			}
		}
		digits := fmt.Sprintf(`\d{%d}`, j-i)
		body.WriteString(digits)
		captured.WriteString("(" + digits + ")")
		l.fields = append(l.fields, field)
		i = j
	}

	if len(l.fields) == 0 {
		return layout{}, fmt.Errorf("layout %q has no date fields", text)
	}

	l.body = body.String()
	l.anchored = regexp.MustCompile("^" + captured.String() + "$")
	return l, nil
}

// match parses s if it matches the layout exactly
func (l layout) match(s string) (dateParts, bool) {
	m := l.anchored.FindStringSubmatch(s)
	if m == nil {
		return dateParts{}, false
	}

	var parts dateParts
	for i, f := range l.fields {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return dateParts{}, false
		}
		switch f {
		case fieldDay:
			parts.Day = &n
		case fieldMonth:
			parts.Month = &n
		case fieldYear:
			parts.Year = &n
		}
	}
	return parts, true
}

// amountPattern matches a plain or dot-grouped integer, optionally glued to one
// of units, ending on a word boundary. Group 1 is the number, group 2 the unit.
func amountPattern(units []string) *regexp.Regexp {
	quoted := make([]string, len(units))
	for i, u := range units {
		quoted[i] = regexp.QuoteMeta(u)
	}
	return regexp.MustCompile(`(?i)\b(\d{1,3}(?:\.\d{3})*|\d+)(` + strings.Join(quoted, "|") + `)?\b`)
}

// wordsPattern matches any of words as a whole word, ignoring case
func wordsPattern(words []string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// flagPattern matches -name or -name:value for any of names, where the dash
// starts the text or follows whitespace. Group 1 is the leading whitespace.
func flagPattern(names []string) *regexp.Regexp {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = regexp.QuoteMeta(n)
	}
	return regexp.MustCompile(`(?i)(^|\s)-(?:` + strings.Join(quoted, "|") + `)(?::\S+)?\b`)
}

// valueFlagPattern matches -name:<layout> anywhere, even glued to a preceding
// word. Group 1 is the value.
func valueFlagPattern(name string, l layout) *regexp.Regexp {
	return regexp.MustCompile(`(?i)-` + regexp.QuoteMeta(name) + `:(` + l.body + `)\b`)
}
