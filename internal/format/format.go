// Package format renders chat replies.
package format

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/lox/chat-ledger/internal/types"
	"github.com/lox/chat-ledger/internal/vocabulary"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var printer = message.NewPrinter(language.Indonesian)

var templateFuncs = template.FuncMap{
	"rupiah": FormatRupiah,
	"join":   strings.Join,
	"orDash": func(s string) string {
		if strings.TrimSpace(s) == "" {
			return "-"
		}
		return s
	},
}

var templates = template.Must(template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.tmpl"))

// FormatRupiah renders an amount as "Rp 15.000"
func FormatRupiah(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}

	if !d.IsInteger() {
		f, _ := d.Float64()
		return sign + "Rp " + printer.Sprint(number.Decimal(f, number.MaxFractionDigits(2)))
	}
	if d.BigInt().IsInt64() {
		return sign + "Rp " + printer.Sprintf("%d", d.IntPart())
	}
	return sign + "Rp " + groupThousands(d.String())
}

// groupThousands puts a dot between every three digits of an integer string
func groupThousands(digits string) string {
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Transaction renders the confirmation for a stored transaction
func Transaction(tx types.StoredTransaction) (string, error) {
	return render("transaction.tmpl", tx)
}

// ReportData is what the report template renders
type ReportData struct {
	Type   types.ReportType
	Period string
	Totals types.Totals
}

// Report renders totals for a period
func Report(data ReportData) (string, error) {
	return render("report.tmpl", data)
}

type helpData struct {
	Units   []vocabulary.Unit
	Income  []string
	Expense []string
	Params  []string
}

// Help renders usage for the active vocabulary
func Help(v *vocabulary.Vocabulary) (string, error) {
	return render("help.tmpl", helpData{
		Units:   v.Units(),
		Income:  v.IncomeKeywords(),
		Expense: v.ExpenseKeywords(),
		Params:  v.Params(),
	})
}

// Error renders a failure the sender can act on
func Error(err error) string {
	return "Error: " + err.Error()
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}
