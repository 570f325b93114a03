package parsererror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseError(t *testing.T) {
	original := errors.New("invalid decimal")
	err := &ParseError{Parser: "csv", Field: "amount", Value: "abc", Err: original}

	assert.Equal(t, "csv: failed to parse amount='abc': invalid decimal", err.Error())
	assert.True(t, errors.Is(err, original))
}

func TestUnsupportedFormatError(t *testing.T) {
	err := &UnsupportedFormatError{FileName: "statement.pdf", ContentType: "application/pdf"}
	assert.Equal(t, "unsupported format for 'statement.pdf' (application/pdf)", err.Error())

	err.Reason = "binary content"
	assert.Contains(t, err.Error(), "binary content")
}

func TestInvalidBackupFormatError(t *testing.T) {
	err := &InvalidBackupFormatError{MissingKeys: []string{"transactions"}}
	assert.Equal(t, "invalid backup format: missing keys [transactions]", err.Error())

	err = &InvalidBackupFormatError{Reason: "not a JSON object"}
	assert.Equal(t, "invalid backup format: not a JSON object", err.Error())
}

func TestRemote(t *testing.T) {
	assert.NoError(t, Remote("insert", nil))

	base := errors.New("connection reset")
	wrapped := Remote("transactions.insert", base)

	var rc *RemoteCallError
	require.True(t, errors.As(wrapped, &rc))
	assert.Equal(t, "transactions.insert", rc.Op)
	assert.True(t, errors.Is(wrapped, base))

	assert.Same(t, wrapped, Remote("other", wrapped), "already-wrapped errors are not re-wrapped")
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Field: "amount", Value: "-3", Reason: "must not be negative"}
	assert.Equal(t, "validation failed for amount='-3': must not be negative", err.Error())

	err = &ValidationError{Field: "date", Reason: "is required"}
	assert.Equal(t, "validation failed for date: is required", err.Error())
}

func TestCategorizationError(t *testing.T) {
	original := errors.New("rules unavailable")
	err := &CategorizationError{Transaction: "UBER", Strategy: "Rule", Err: original}

	assert.Equal(t, "categorization failed for UBER using Rule: rules unavailable", err.Error())
	assert.True(t, errors.Is(err, original))
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{name: "nil", err: nil, contains: ""},
		{name: "unsupported", err: &UnsupportedFormatError{FileName: "a.bin"}, contains: "not supported"},
		{name: "no transactions wrapped", err: fmt.Errorf("csv: %w", ErrNoTransactionsFound), contains: "No valid transactions"},
		{name: "backup", err: &InvalidBackupFormatError{Reason: "x"}, contains: "backup"},
		{name: "validation", err: &ValidationError{Field: "amount", Reason: "must be positive"}, contains: "amount: must be positive"},
		{name: "remote", err: Remote("select", errors.New("x")), contains: "server"},
		{name: "categorization over remote", err: &CategorizationError{Transaction: "ACME", Strategy: "AI", Err: Remote("ai.chat", errors.New("x"))}, contains: "pick one yourself"},
		{name: "other", err: errors.New("x"), contains: "Something went wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, UserMessage(tt.err), tt.contains)
		})
	}
}
