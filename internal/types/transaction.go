package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the direction of a transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
	TransactionTypeUnknown TransactionType = "unknown"
)

// Valid reports whether t is a storable direction
func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// TransactionDraft is the structured result of parsing a chat message.
// It is built once per message and handed to storage unchanged.
type TransactionDraft struct {
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Description string          `json:"description"`
	// TransactionDate is an explicit DD-MM-YYYY override, not yet calendar-checked
	TransactionDate *string `json:"transaction_date,omitempty"`
}

// StoredTransaction is a draft after it has been persisted
type StoredTransaction struct {
	ID          string          `json:"id"`
	Sender      string          `json:"sender,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
}
