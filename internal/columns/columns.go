// Package columns maps heterogeneous bank-export column names onto the
// semantic fields of a transaction using ranked synonym lists.
package columns

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/normalizer"
)

// Field is a semantic column of an imported row.
type Field int

const (
	FieldDate Field = iota
	FieldDescription
	FieldDebit
	FieldCredit
	FieldAmount
	FieldType
)

func (f Field) String() string {
	switch f {
	case FieldDate:
		return "date"
	case FieldDescription:
		return "description"
	case FieldDebit:
		return "debit"
	case FieldCredit:
		return "credit"
	case FieldAmount:
		return "amount"
	case FieldType:
		return "type"
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// Synonyms lists the accepted header names per field, highest priority first.
var Synonyms = map[Field][]string{
	FieldDate:        {"post date", "date", "transaction date", "value date", "posting date", "txn date"},
	FieldDescription: {"narration", "description", "transaction details", "particulars", "remarks", "details"},
	FieldDebit:       {"debit", "withdrawal", "withdrawal amt", "debit amt"},
	FieldCredit:      {"credit", "deposit", "deposit amt", "credit amt"},
	FieldAmount:      {"amount", "transaction amount", "txn amount"},
	FieldType:        {"type", "transaction type", "dr/cr", "cr/dr"},
}

// Cell is one header/value pair of a row.
type Cell struct {
	Header string
	Value  any
}

// Row is an ordered set of cells from one source record.
type Row []Cell

// NewRow zips headers and values. Missing values are nil, extra values are
// dropped.
func NewRow(headers []string, values []string) Row {
	row := make(Row, 0, len(headers))
	for i, h := range headers {
		var v any
		if i < len(values) {
			v = values[i]
		}
		row = append(row, Cell{Header: h, Value: v})
	}
	return row
}

// RowFromMap builds a row from a decoded JSON object. Keys are sorted so the
// resolution order is deterministic.
func RowFromMap(m map[string]any) Row {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	row := make(Row, 0, len(keys))
	for _, k := range keys {
		row = append(row, Cell{Header: k, Value: m[k]})
	}
	return row
}

// Lookup returns the raw value of the first synonym of field whose column
// holds a non-empty cell. Exact header matches beat substring matches for
// the same synonym.
func Lookup(row Row, field Field) (any, bool) {
	for _, syn := range Synonyms[field] {
		if v, ok := match(row, syn, true); ok {
			return v, true
		}
		if v, ok := match(row, syn, false); ok {
			return v, true
		}
	}
	return nil, false
}

func match(row Row, synonym string, exact bool) (any, bool) {
	for _, c := range row {
		h := strings.ToLower(strings.TrimSpace(c.Header))
		if h == "" {
			continue
		}
		hit := h == synonym
		if !exact {
			hit = strings.Contains(h, synonym)
		}
		if hit && !isEmpty(c.Value) {
			return c.Value, true
		}
	}
	return nil, false
}

// Resolve is Lookup rendered as a trimmed string.
func Resolve(row Row, field Field) (string, bool) {
	v, ok := Lookup(row, field)
	if !ok {
		return "", false
	}
	return toString(v), true
}

// ResolveAmount applies the debit, credit, signed-amount precedence. ok is
// false when no amount column carries a usable value.
func ResolveAmount(row Row) (amount float64, typ models.TransactionType, ok bool) {
	if v, found := Lookup(row, FieldDebit); found {
		if debit := normalizer.CleanValue(v); debit > 0 {
			return debit, models.TransactionTypeExpense, true
		}
	}
	if v, found := Lookup(row, FieldCredit); found {
		if credit := normalizer.CleanValue(v); credit > 0 {
			return credit, models.TransactionTypeIncome, true
		}
	}
	if v, found := Lookup(row, FieldAmount); found {
		signed := normalizer.CleanValue(v)
		typ = models.TransactionTypeIncome
		if signed < 0 || explicitExpense(row) {
			typ = models.TransactionTypeExpense
		}
		return math.Abs(signed), typ, true
	}
	return 0, "", false
}

// explicitExpense reports whether a type column marks the row as outgoing.
func explicitExpense(row Row) bool {
	t, ok := Resolve(row, FieldType)
	if !ok {
		return false
	}
	switch strings.ToLower(t) {
	case "expense", "debit", "dr", "d", "withdrawal":
		return true
	}
	return false
}

// MapRow converts a row into an import candidate. The candidate may still be
// invalid; callers filter with normalizer.IsValid.
func MapRow(row Row) models.ParsedTransaction {
	var date string
	if v, ok := Lookup(row, FieldDate); ok {
		date = normalizer.NormalizeDate(v)
	}
	description, _ := Resolve(row, FieldDescription)
	amount, typ, ok := ResolveAmount(row)
	if !ok {
		typ = models.TransactionTypeExpense
	}
	return models.NewParsedTransaction(date, normalizer.SanitizeDescription(description), amount, typ)
}

// HasHeader reports whether any of headers matches a synonym of field.
func HasHeader(headers []string, field Field) bool {
	for _, h := range headers {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		for _, syn := range Synonyms[field] {
			if strings.Contains(h, syn) {
				return true
			}
		}
	}
	return false
}

func isEmpty(v any) bool {
	switch s := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(s) == ""
	}
	return false
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case time.Time:
		return s.Format(normalizer.ISOLayout)
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}
