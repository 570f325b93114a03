// Package models provides the data structures used throughout the application.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType carries the direction of a transaction. Amounts are always
// non-negative magnitudes.
type TransactionType string

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// Transaction is a persisted income or expense record owned by a user.
type Transaction struct {
	ID          string          `json:"id" gorm:"type:text;primaryKey" csv:"-"`
	UserID      string          `json:"user_id" gorm:"type:text;index" csv:"-"`
	Date        string          `json:"date" gorm:"type:varchar(10);index" csv:"Date"`
	Category    string          `json:"category" csv:"Category"`
	Type        TransactionType `json:"type" gorm:"type:varchar(10)" csv:"Type"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:numeric(14,2)" csv:"Amount"`
	Description string          `json:"description" csv:"Description"`
	CreatedAt   time.Time       `json:"created_at" csv:"-"`
	UpdatedAt   time.Time       `json:"updated_at" csv:"-"`
}

// TableName implements gorm's tabler interface.
func (Transaction) TableName() string { return TableTransactions }

// IsExpense returns true if money left the account.
func (t Transaction) IsExpense() bool {
	return t.Type == TransactionTypeExpense
}

// SignedAmount returns the amount negated for expenses.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.IsExpense() {
		return t.Amount.Neg()
	}
	return t.Amount
}

// ParsedTransaction is a candidate row produced by an import parser. Its date
// is still the raw source text; it becomes a Transaction on confirmation.
type ParsedTransaction struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      float64         `json:"amount"`
	Type        TransactionType `json:"type"`
	Category    string          `json:"category"`
}

// NewParsedTransaction returns a candidate with the default category.
func NewParsedTransaction(date, description string, amount float64, typ TransactionType) ParsedTransaction {
	return ParsedTransaction{
		Date:        date,
		Description: description,
		Amount:      amount,
		Type:        typ,
		Category:    CategoryOther,
	}
}
