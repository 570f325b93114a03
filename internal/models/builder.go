package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionBuilder provides a fluent API for constructing transactions
type TransactionBuilder struct {
	tx  Transaction
	err error
}

// NewTransactionBuilder creates a new TransactionBuilder with default values
func NewTransactionBuilder() *TransactionBuilder {
	return &TransactionBuilder{
		tx: Transaction{
			Category: CategoryOther,
			Type:     TransactionTypeExpense,
			Amount:   decimal.Zero,
		},
	}
}

// WithID sets the transaction ID
func (b *TransactionBuilder) WithID(id string) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	b.tx.ID = id
	return b
}

// WithUserID sets the owning user
func (b *TransactionBuilder) WithUserID(userID string) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	if userID == "" {
		b.err = errors.New("user id cannot be empty")
		return b
	}
	b.tx.UserID = userID
	return b
}

// WithDate sets the transaction date from a YYYY-MM-DD string
func (b *TransactionBuilder) WithDate(date string) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	if date == "" {
		b.err = errors.New("date cannot be empty")
		return b
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		b.err = fmt.Errorf("date %q is not YYYY-MM-DD: %w", date, err)
		return b
	}
	b.tx.Date = date
	return b
}

// WithDateFromTime sets the transaction date from a time.Time
func (b *TransactionBuilder) WithDateFromTime(date time.Time) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	if date.IsZero() {
		b.err = errors.New("date cannot be zero")
		return b
	}
	b.tx.Date = date.Format(DateLayout)
	return b
}

// WithAmount sets the magnitude. Negative amounts flip the type to expense.
func (b *TransactionBuilder) WithAmount(amount decimal.Decimal) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	if amount.IsNegative() {
		b.tx.Type = TransactionTypeExpense
		amount = amount.Abs()
	}
	b.tx.Amount = amount
	return b
}

// WithAmountFromFloat sets the amount from a float64 value
func (b *TransactionBuilder) WithAmountFromFloat(amount float64) *TransactionBuilder {
	return b.WithAmount(decimal.NewFromFloat(amount).Round(2))
}

// WithDescription sets the description
func (b *TransactionBuilder) WithDescription(description string) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	b.tx.Description = description
	return b
}

// WithCategory sets the category
func (b *TransactionBuilder) WithCategory(category string) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	if category != "" {
		b.tx.Category = category
	}
	return b
}

// WithType sets the direction
func (b *TransactionBuilder) WithType(t TransactionType) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	if !t.Valid() {
		b.err = fmt.Errorf("invalid transaction type %q", t)
		return b
	}
	b.tx.Type = t
	return b
}

// AsExpense marks the transaction as outgoing money
func (b *TransactionBuilder) AsExpense() *TransactionBuilder {
	return b.WithType(TransactionTypeExpense)
}

// AsIncome marks the transaction as incoming money
func (b *TransactionBuilder) AsIncome() *TransactionBuilder {
	return b.WithType(TransactionTypeIncome)
}

// FromParsed copies the fields of an import candidate. The date must already
// be normalized to YYYY-MM-DD.
func (b *TransactionBuilder) FromParsed(p ParsedTransaction) *TransactionBuilder {
	return b.WithDate(p.Date).
		WithDescription(p.Description).
		WithAmountFromFloat(p.Amount).
		WithType(p.Type).
		WithCategory(p.Category)
}

// Build validates the transaction and returns the final Transaction
func (b *TransactionBuilder) Build() (Transaction, error) {
	if b.err != nil {
		return Transaction{}, fmt.Errorf("builder error: %w", b.err)
	}

	if b.tx.Date == "" {
		return Transaction{}, errors.New("date is required")
	}

	if b.tx.Amount.IsNegative() {
		return Transaction{}, errors.New("amount must not be negative")
	}

	return b.tx, nil
}
