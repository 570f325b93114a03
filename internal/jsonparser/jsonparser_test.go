package jsonparser

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/parsererror"
)

func TestParse_Shapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		count int
	}{
		{
			name:  "bare array",
			input: `[{"amount":-45.5,"date":"2024-03-01","description":"Coffee Shop"}]`,
			count: 1,
		},
		{
			name:  "transactions wrapper",
			input: `{"transactions":[{"amount":10,"date":"2024-03-01","description":"A"},{"amount":"-5","date":"2024-03-02","description":"B"}]}`,
			count: 2,
		},
		{
			name:  "data wrapper",
			input: `{"data":[{"amount":10,"date":"2024-03-01","description":"A"}]}`,
			count: 1,
		},
		{
			name:  "single object",
			input: `{"amount":10,"date":"2024-03-01","description":"A"}`,
			count: 1,
		},
		{
			name:  "non-object elements skipped",
			input: `[1, "x", {"amount":10,"date":"2024-03-01","description":"A"}]`,
			count: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(strings.NewReader(tt.input), logging.NewMockLogger())
			require.NoError(t, err)
			assert.Len(t, got, tt.count)
		})
	}
}

func TestParse_SignedAmount(t *testing.T) {
	got, err := Parse(strings.NewReader(`[{"amount":-45.5,"date":"2024-03-01","description":"Coffee Shop"}]`), nil)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, models.ParsedTransaction{
		Date:        "2024-03-01",
		Description: "Coffee Shop",
		Amount:      45.5,
		Type:        models.TransactionTypeExpense,
		Category:    models.CategoryOther,
	}, got[0])
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse(strings.NewReader(`{not json`), nil)
	var unsupported *parsererror.UnsupportedFormatError
	assert.True(t, errors.As(err, &unsupported))

	_, err = Parse(strings.NewReader(`"just a string"`), nil)
	assert.True(t, errors.As(err, &unsupported))

	_, err = Parse(strings.NewReader(`[]`), nil)
	assert.True(t, errors.Is(err, parsererror.ErrNoTransactionsFound))

	_, err = Parse(strings.NewReader(`[{"amount":0,"date":"2024-03-01","description":"zero"}]`), nil)
	assert.True(t, errors.Is(err, parsererror.ErrNoTransactionsFound))
}
