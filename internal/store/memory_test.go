package store

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/parsererror"
)

func newTx(user, date, desc string, amount int64) models.Transaction {
	return models.Transaction{
		UserID:      user,
		Date:        date,
		Description: desc,
		Category:    models.CategoryOther,
		Type:        models.TransactionTypeExpense,
		Amount:      decimal.NewFromInt(amount),
	}
}

func TestMemoryStore_InsertAssignsIDsAndTimestamps(t *testing.T) {
	s := NewMemoryStore(logging.NewMockLogger())
	ctx := context.Background()

	tx := newTx("u1", "2024-03-01", "Coffee", 4)
	require.NoError(t, s.Insert(ctx, models.TableTransactions, &tx))
	assert.NotEmpty(t, tx.ID)
	assert.False(t, tx.CreatedAt.IsZero())

	batch := []models.Transaction{newTx("u1", "2024-03-02", "A", 1), newTx("u1", "2024-03-03", "B", 2)}
	require.NoError(t, s.Insert(ctx, models.TableTransactions, &batch))
	assert.NotEmpty(t, batch[0].ID)
	assert.NotEqual(t, batch[0].ID, batch[1].ID)
	assert.Equal(t, 3, s.Count(models.TableTransactions))
}

func TestMemoryStore_InsertRequiresUser(t *testing.T) {
	s := NewMemoryStore(nil)
	batch := []models.Transaction{newTx("u1", "2024-03-02", "A", 1), newTx("", "2024-03-03", "B", 2)}

	err := s.Insert(context.Background(), models.TableTransactions, &batch)
	assert.Error(t, err)
	assert.Equal(t, 0, s.Count(models.TableTransactions), "batch must be all or nothing")
}

func TestMemoryStore_SelectScopesFiltersAndOrders(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()

	rules := []models.CategorizationRule{
		{UserID: "u1", Keyword: "uber", Category: "Food", Priority: 1, IsActive: true},
		{UserID: "u1", Keyword: "uber", Category: "Transport", Priority: 5, IsActive: true},
		{UserID: "u1", Keyword: "old", Category: "X", Priority: 9, IsActive: false},
		{UserID: "u2", Keyword: "uber", Category: "Other", Priority: 7, IsActive: true},
	}
	require.NoError(t, s.Insert(ctx, models.TableCategorizationRules, &rules))

	var got []models.CategorizationRule
	q := Query{UserID: "u1"}.Where("is_active", true).OrderBy("priority", true)
	require.NoError(t, s.Select(ctx, models.TableCategorizationRules, q, &got))

	require.Len(t, got, 2)
	assert.Equal(t, "Transport", got[0].Category)
	assert.Equal(t, "Food", got[1].Category)

	q.Limit = 1
	require.NoError(t, s.Select(ctx, models.TableCategorizationRules, q, &got))
	assert.Len(t, got, 1)
}

func TestMemoryStore_SelectReturnsCopies(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()
	tx := newTx("u1", "2024-03-01", "Coffee", 4)
	require.NoError(t, s.Insert(ctx, models.TableTransactions, &tx))

	var first []models.Transaction
	require.NoError(t, s.Select(ctx, models.TableTransactions, Query{UserID: "u1"}, &first))
	first[0].Description = "mutated"

	var second []models.Transaction
	require.NoError(t, s.Select(ctx, models.TableTransactions, Query{UserID: "u1"}, &second))
	assert.Equal(t, "Coffee", second[0].Description)
}

func TestMemoryStore_UpdateAndDelete(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()
	tx := newTx("u1", "2024-03-01", "Coffee", 4)
	require.NoError(t, s.Insert(ctx, models.TableTransactions, &tx))

	require.NoError(t, s.Update(ctx, models.TableTransactions, "u1", tx.ID, map[string]any{
		"category": "Food",
		"amount":   decimal.NewFromFloat(4.5),
	}))

	var got []models.Transaction
	require.NoError(t, s.Select(ctx, models.TableTransactions, Query{UserID: "u1"}, &got))
	assert.Equal(t, "Food", got[0].Category)
	assert.Equal(t, "4.5", got[0].Amount.String())

	err := s.Update(ctx, models.TableTransactions, "u2", tx.ID, map[string]any{"category": "X"})
	assert.ErrorIs(t, err, ErrNotFound, "other users cannot patch the row")

	assert.Error(t, s.Update(ctx, models.TableTransactions, "u1", tx.ID, map[string]any{"user_id": "u2"}))

	require.NoError(t, s.Delete(ctx, models.TableTransactions, "u1", tx.ID))
	assert.ErrorIs(t, s.Delete(ctx, models.TableTransactions, "u1", tx.ID), ErrNotFound)
}

func TestMemoryStore_FailNext(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()
	boom := errors.New("network down")

	s.FailNext("insert", models.TableTransactions, boom)
	tx := newTx("u1", "2024-03-01", "Coffee", 4)
	err := s.Insert(ctx, models.TableTransactions, &tx)

	var remote *parsererror.RemoteCallError
	require.True(t, errors.As(err, &remote))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, s.Calls("insert", models.TableTransactions))

	s.FailNext("insert", models.TableTransactions, nil)
	assert.NoError(t, s.Insert(ctx, models.TableTransactions, &tx))
}

func TestValidateQuery(t *testing.T) {
	assert.Error(t, ValidateQuery(Query{}))
	assert.Error(t, ValidateQuery(Query{UserID: "u"}.Where("id; drop", 1)))
	assert.Error(t, ValidateQuery(Query{UserID: "u"}.OrderBy("Date", false)))
	assert.NoError(t, ValidateQuery(Query{UserID: "u"}.Where("is_active", true).OrderBy("priority", true)))
}

func TestAssignIDs(t *testing.T) {
	tx := models.Transaction{ID: "keep"}
	require.NoError(t, AssignIDs(&tx))
	assert.Equal(t, "keep", tx.ID)

	ptrs := []*models.Transaction{{}, {}}
	require.NoError(t, AssignIDs(&ptrs))
	assert.NotEmpty(t, ptrs[0].ID)

	assert.Error(t, AssignIDs(tx))
	n := 3
	assert.Error(t, AssignIDs(&n))
}
