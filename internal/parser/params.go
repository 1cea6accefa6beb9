package parser

import (
	"regexp"
	"strings"
)

// dateLayout is the grammar of the -date override and of daily report periods
var dateLayout = mustCompileLayout("DD-MM-YYYY")

// StripParams removes -name and -name:value tokens for each recognized name
// and returns the trimmed remainder. A -date:DD-MM-YYYY token is always
// consumed and its value returned as the date override, before generic
// stripping, whether or not "date" is in params. Unlike generic flags it is
// recognized even when glued to the previous word. The date is not
// calendar-checked here.
//
// Stripping repeats until nothing changes, so StripParams(StripParams(s)) has
// the same text as StripParams(s).
func (p *Parser) StripParams(text string, params []string) (string, *string) {
	flags := flagPatternFor(params)
	text = strings.TrimSpace(text)

	var date *string
	for {
		next := text

		if m := p.dateFlag.FindStringSubmatch(next); m != nil {
			if date == nil {
				value := m[1]
				date = &value
			}
			next = strings.TrimSpace(p.dateFlag.ReplaceAllString(next, ""))
		}

		if flags != nil {
			next = strings.TrimSpace(flags.ReplaceAllString(next, "${1}"))
		}

		if next == text {
			return text, date
		}
		text = next
	}
}

func flagPatternFor(params []string) *regexp.Regexp {
	names := make([]string, 0, len(params))
	for _, name := range params {
		name = strings.TrimPrefix(strings.TrimSpace(name), "-")
		if name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	return flagPattern(longestFirst(names))
}
