package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/parsererror"
	"fjacquet/fintrack/internal/store"
)

func seedAccount(t *testing.T, ds *store.MemoryStore, userID string) {
	t.Helper()
	ctx := context.Background()
	txs := []models.Transaction{
		{UserID: userID, Date: "2024-03-01", Description: "Coffee Shop", Category: "Food", Type: models.TransactionTypeExpense, Amount: decimal.RequireFromString("4.50")},
		{UserID: userID, Date: "2024-03-02", Description: "Salary", Category: "Income", Type: models.TransactionTypeIncome, Amount: decimal.NewFromInt(3000)},
	}
	require.NoError(t, ds.Insert(ctx, models.TableTransactions, &txs))
	rules := []models.CategorizationRule{{UserID: userID, Keyword: "uber", Category: "Transport", Priority: 5, IsActive: true}}
	require.NoError(t, ds.Insert(ctx, models.TableCategorizationRules, &rules))
	rec := models.RecurringTransaction{UserID: userID, Description: "Rent", Type: models.TransactionTypeExpense,
		Amount: decimal.NewFromInt(1200), Frequency: models.FrequencyMonthly, StartDate: "2024-01-05", NextDueDate: "2024-04-05", IsActive: true}
	require.NoError(t, ds.Insert(ctx, models.TableRecurringTransactions, &rec))
}

func TestExportImportRoundTrip(t *testing.T) {
	ds := store.NewMemoryStore(nil)
	seedAccount(t, ds, "u1")
	svc := NewService(ds, nil)
	ctx := context.Background()

	doc, err := svc.Export(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, doc.Transactions, 2)
	assert.Len(t, doc.CategorizationRules, 1)
	assert.Empty(t, doc.BudgetGoals)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, doc))

	var top map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &top))
	for _, k := range RequiredKeys {
		assert.Contains(t, top, k)
	}
	assert.JSONEq(t, "[]", string(top["budget_goals"]))

	counts, err := svc.Import(ctx, "u2", &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[models.TableTransactions])
	assert.Equal(t, 1, counts[models.TableRecurringTransactions])

	var restored []models.Transaction
	require.NoError(t, ds.Select(ctx, models.TableTransactions, store.Query{UserID: "u2"}, &restored))
	require.Len(t, restored, 2)
	assert.Equal(t, "Coffee Shop", restored[0].Description)
	assert.NotEqual(t, doc.Transactions[0].ID, restored[0].ID)
}

func TestDecode_MissingKeys(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"version":1,"transactions":[]}`))
	var berr *parsererror.InvalidBackupFormatError
	require.ErrorAs(t, err, &berr)
	assert.ElementsMatch(t, []string{"exported_at", "budget_goals", "recurring_transactions", "portfolio_holdings", "categorization_rules"}, berr.MissingKeys)
}

func TestDecode_Invalid(t *testing.T) {
	base := `{"version":1,"exported_at":"2024-03-01T00:00:00Z","budget_goals":[],"recurring_transactions":[],"portfolio_holdings":[],"categorization_rules":[],`
	tests := []struct {
		name string
		body string
	}{
		{"not json", `[1,2]`},
		{"bad date", base + `"transactions":[{"date":"yesterday","type":"expense","amount":"1"}]}`},
		{"negative amount", base + `"transactions":[{"date":"2024-03-01","type":"expense","amount":"-1"}]}`},
		{"bad type", base + `"transactions":[{"date":"2024-03-01","type":"gift","amount":"1"}]}`},
		{"future version", strings.Replace(base, `"version":1`, `"version":9`, 1) + `"transactions":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.body))
			var berr *parsererror.InvalidBackupFormatError
			assert.ErrorAs(t, err, &berr)
		})
	}
}

func TestImport_NoPartialWritesOnInvalidRow(t *testing.T) {
	ds := store.NewMemoryStore(nil)
	body := `{"version":1,"exported_at":"2024-03-01T00:00:00Z","budget_goals":[],"recurring_transactions":[],"portfolio_holdings":[],
"categorization_rules":[{"keyword":"uber","category":"Transport","priority":1,"is_active":true}],
"transactions":[{"date":"2024-03-01","type":"expense","amount":"1","description":"ok"},{"date":"bad","type":"expense","amount":"1"}]}`

	_, err := NewService(ds, nil).Import(context.Background(), "u1", strings.NewReader(body))
	require.Error(t, err)
	assert.Equal(t, "This backup file is invalid. Nothing was imported.", parsererror.UserMessage(err))
	assert.Equal(t, 0, ds.Count(models.TableCategorizationRules))
	assert.Equal(t, 0, ds.Count(models.TableTransactions))
}

func TestImport_RemoteFailureReportsProgress(t *testing.T) {
	ds := store.NewMemoryStore(nil)
	seedAccount(t, ds, "u1")
	svc := NewService(ds, nil)
	doc, err := svc.Export(context.Background(), "u1")
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, doc))

	ds.FailNext("insert", models.TableTransactions, errors.New("503"))
	written, err := svc.Import(context.Background(), "u2", &buf)
	require.Error(t, err)
	assert.Equal(t, Counts{models.TableCategorizationRules: 1}, written)
}

func TestCountsString(t *testing.T) {
	assert.Equal(t, "a=1 b=2", Counts{"b": 2, "a": 1}.String())
}
