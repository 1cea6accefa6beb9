package types

import "github.com/shopspring/decimal"

// ReportType is the granularity of a report query
type ReportType string

const (
	ReportTypeDaily   ReportType = "daily"
	ReportTypeMonthly ReportType = "monthly"
	ReportTypeYearly  ReportType = "yearly"
)

// ReportQuery is the structured filter parsed from a -show command.
// An empty Type with all fields nil means "default period". A non-empty Type
// with nil fields means "current period of that type". Both are resolved by the
// consumer, not the parser.
type ReportQuery struct {
	Type  ReportType `json:"type,omitempty"`
	Day   *int       `json:"day"`
	Month *int       `json:"month"`
	Year  *int       `json:"year"`
}

// Totals holds aggregated income and expense for a period
type Totals struct {
	Income  decimal.Decimal `json:"total_income"`
	Expense decimal.Decimal `json:"total_expense"`
}

// Balance returns income minus expense
func (t Totals) Balance() decimal.Decimal {
	return t.Income.Sub(t.Expense)
}
