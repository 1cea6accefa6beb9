package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lox/chat-ledger/internal/types"
)

// ReportCommand is the prefix of a report query message
const ReportCommand = "-show"

type periodGrammar struct {
	layout layout
	code   Code
	what   string
}

var periodGrammars = map[types.ReportType]periodGrammar{
	types.ReportTypeDaily:   {layout: dateLayout, code: CodeBadDailyFormat, what: "date format for daily"},
	types.ReportTypeMonthly: {layout: mustCompileLayout("MM-YYYY"), code: CodeBadMonthlyFormat, what: "period format for monthly"},
	types.ReportTypeYearly:  {layout: mustCompileLayout("YYYY"), code: CodeBadYearlyFormat, what: "period format for yearly"},
}

// IsReportCommand reports whether text should be routed to ParseReportQuery.
// The prefix must be followed by the end of the text, whitespace or a colon,
// so words such as "-showroom" are not commands.
func IsReportCommand(text string) bool {
	text = strings.TrimLeftFunc(text, unicode.IsSpace)
	if !strings.HasPrefix(text, ReportCommand) {
		return false
	}
	rest := text[len(ReportCommand):]
	if rest == "" || rest[0] == ':' {
		return true
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return unicode.IsSpace(r)
}

// ParseReportQuery parses "-show[:type[:period]]". The form
// "-show type:period" is accepted too.
//
// With no type the query is empty, meaning the default period. A type with no
// period leaves every date field nil, meaning the current period of that type.
// Numbers are not range-checked.
func ParseReportQuery(text string) (types.ReportQuery, error) {
	if !utf8.ValidString(text) {
		return types.ReportQuery{}, Errorf(CodeInvalidInput, "command is not valid text")
	}
	if !IsReportCommand(text) {
		return types.ReportQuery{}, Errorf(CodeInvalidInput, "not a %s command", ReportCommand)
	}

	rest := strings.TrimSpace(text)[len(ReportCommand):]
	rest = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest), ":"))
	if rest == "" {
		return types.ReportQuery{}, nil
	}

	kind, period, _ := strings.Cut(rest, ":")
	reportType := types.ReportType(strings.TrimSpace(kind))
	period = strings.TrimSpace(period)

	if period == "" {
		return types.ReportQuery{Type: reportType}, nil
	}

	grammar, ok := periodGrammars[reportType]
	if !ok {
		return types.ReportQuery{}, Errorf(CodeUnsupportedType, "Unsupported type with parameter: %s", reportType)
	}

	parts, ok := grammar.layout.match(period)
	if !ok {
		return types.ReportQuery{}, Errorf(grammar.code, "Invalid %s. Expected %s", grammar.what, grammar.layout.text)
	}

	return types.ReportQuery{
		Type:  reportType,
		Day:   parts.Day,
		Month: parts.Month,
		Year:  parts.Year,
	}, nil
}
