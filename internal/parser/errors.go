package parser

import (
	"errors"
	"fmt"
)

// Code categorises why a message could not be parsed
type Code int

const (
	CodeInvalidInput Code = iota + 1
	CodeNoAmount
	CodeNoType
	CodeBadDailyFormat
	CodeBadMonthlyFormat
	CodeBadYearlyFormat
	CodeUnsupportedType
	// CodeUnsupportedFilter is raised by report consumers, never by the parser
	CodeUnsupportedFilter
)

var codeNames = map[Code]string{
	CodeInvalidInput:      "invalid-input",
	CodeNoAmount:          "no-amount",
	CodeNoType:            "no-type",
	CodeBadDailyFormat:    "bad-daily-format",
	CodeBadMonthlyFormat:  "bad-monthly-format",
	CodeBadYearlyFormat:   "bad-yearly-format",
	CodeUnsupportedType:   "unsupported-type",
	CodeUnsupportedFilter: "unsupported-filter",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Error is a parse failure. It is always returned, never panicked.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Errorf builds an *Error with a formatted message
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the failure code from err, if it carries one
func CodeOf(err error) (Code, bool) {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Code, true
	}
	return 0, false
}
