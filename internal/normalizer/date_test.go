package normalizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExcelSerialToISO(t *testing.T) {
	got, err := ExcelSerialToISO(45352)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", got)

	got, err = ExcelSerialToISO(45292.75)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", got)

	_, err = ExcelSerialToISO(0)
	assert.Error(t, err)
	_, err = ExcelSerialToISO(-5)
	assert.Error(t, err)
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{name: "string passes through trimmed", input: "  03/01/2024 ", expected: "03/01/2024"},
		{name: "excel serial", input: 45352.0, expected: "2024-03-01"},
		{name: "excel serial int", input: 45352, expected: "2024-03-01"},
		{name: "time value", input: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), expected: "2024-03-01"},
		{name: "zero time", input: time.Time{}, expected: ""},
		{name: "nil", input: nil, expected: ""},
		{name: "bad serial", input: -1.0, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeDate(tt.input))
		})
	}
}

func TestToISODate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{input: "2024-03-01", expected: "2024-03-01"},
		{input: "2024/03/01", expected: "2024-03-01"},
		{input: "15/03/2024", expected: "2024-03-15"},
		{input: "15.03.2024", expected: "2024-03-15"},
		{input: "1-Mar-2024", expected: "2024-03-01"},
		{input: "Mar 1, 2024", expected: "2024-03-01"},
		{input: "  2024-03-01  ", expected: "2024-03-01"},
		{input: "yesterday", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ToISODate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
