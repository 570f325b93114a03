// Package validation checks user-entered values before any write reaches
// the data store. Every failure is a *parsererror.ValidationError.
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/normalizer"
	"fjacquet/fintrack/internal/parsererror"
)

// Amount parses raw and requires a non-negative value. When positive is set
// zero is rejected too, as for amounts typed by the user.
func Amount(raw string, positive bool) (decimal.Decimal, error) {
	amount, err := normalizer.ParseAmount(raw)
	if err != nil {
		return decimal.Zero, &parsererror.ValidationError{Field: "amount", Value: raw, Reason: "must be a number"}
	}
	return amount, CheckAmount(amount, positive)
}

// CheckAmount applies the sign rules of Amount to an already parsed value.
func CheckAmount(amount decimal.Decimal, positive bool) error {
	switch {
	case amount.IsNegative():
		return &parsererror.ValidationError{Field: "amount", Value: amount.String(), Reason: "must not be negative"}
	case positive && amount.IsZero():
		return &parsererror.ValidationError{Field: "amount", Value: amount.String(), Reason: "must be greater than zero"}
	}
	return nil
}

// Date requires an ISO calendar date (YYYY-MM-DD).
func Date(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if _, err := time.Parse(models.DateLayout, s); err != nil {
		return "", &parsererror.ValidationError{Field: "date", Value: raw, Reason: "must be a valid YYYY-MM-DD date"}
	}
	return s, nil
}

// Description sanitizes raw. Empty descriptions are allowed.
func Description(raw string) string {
	return normalizer.SanitizeDescription(raw)
}

// Category trims raw and requires 1 to MaxCategoryLength characters.
func Category(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" || utf8.RuneCountInString(s) > models.MaxCategoryLength {
		return "", &parsererror.ValidationError{Field: "category", Value: raw,
			Reason: fmt.Sprintf("must be 1-%d characters", models.MaxCategoryLength)}
	}
	return s, nil
}

// Type requires income or expense.
func Type(raw string) (models.TransactionType, error) {
	t := models.TransactionType(strings.ToLower(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", &parsererror.ValidationError{Field: "type", Value: raw, Reason: "must be income or expense"}
	}
	return t, nil
}

// TransactionInput is a transaction as typed into a form.
type TransactionInput struct {
	Date        string `json:"date" binding:"required"`
	Description string `json:"description"`
	Amount      string `json:"amount" binding:"required"`
	Type        string `json:"type" binding:"required"`
	Category    string `json:"category"`
}

// Transaction validates in and returns the unsaved transaction for userID.
func Transaction(userID string, in TransactionInput) (models.Transaction, error) {
	date, err := Date(in.Date)
	if err != nil {
		return models.Transaction{}, err
	}
	amount, err := Amount(in.Amount, true)
	if err != nil {
		return models.Transaction{}, err
	}
	typ, err := Type(in.Type)
	if err != nil {
		return models.Transaction{}, err
	}
	category := models.CategoryOther
	if strings.TrimSpace(in.Category) != "" {
		if category, err = Category(in.Category); err != nil {
			return models.Transaction{}, err
		}
	}

	tx, err := models.NewTransactionBuilder().
		WithUserID(userID).
		WithDate(date).
		WithAmount(amount).
		WithType(typ).
		WithDescription(Description(in.Description)).
		WithCategory(category).
		Build()
	if err != nil {
		return models.Transaction{}, &parsererror.ValidationError{Field: "transaction", Reason: err.Error()}
	}
	return tx, nil
}

// IsValidPath checks that path exists and is absolute.
func IsValidPath(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("path does not exist: %s", path)
	}
	if err != nil {
		return fmt.Errorf("error checking path %s: %w", path, err)
	}

	if !filepath.IsAbs(path) {
		return fmt.Errorf("path must be absolute: %s", path)
	}

	if !info.IsDir() && !info.Mode().IsRegular() {
		return fmt.Errorf("path %s is neither a file nor a directory", path)
	}

	return nil
}

// IsValidExportFormat checks if the given export format is supported.
func IsValidExportFormat(format string) error {
	switch format {
	case "csv", "xlsx", "pdf", "json":
		return nil
	default:
		return fmt.Errorf("unsupported export format: %s. Supported formats are 'csv', 'xlsx', 'pdf', 'json'", format)
	}
}

// IsValidFilePermissions rejects modes that grant access to others.
func IsValidFilePermissions(mode os.FileMode) error {
	if mode&0007 != 0 {
		return fmt.Errorf("file permissions are too permissive: %s. Recommended 0600 or 0644", mode.String())
	}
	return nil
}
