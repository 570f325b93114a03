package gormstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/parsererror"
	"fjacquet/fintrack/internal/store"
)

// dryRunDB builds a handle that renders SQL without connecting.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=fintrack dbname=fintrack sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	return db
}

func TestBuildSelect(t *testing.T) {
	db := dryRunDB(t)
	q := store.Query{UserID: "u1"}.Where("is_active", true).OrderBy("priority", true)
	q.Limit = 5

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var rules []models.CategorizationRule
		return buildSelect(tx, models.TableCategorizationRules, q).Find(&rules)
	})

	assert.Contains(t, sql, `"categorization_rules"`)
	assert.Contains(t, sql, `"user_id" = 'u1'`)
	assert.Contains(t, sql, `"is_active" = true`)
	assert.Contains(t, sql, `ORDER BY "priority" DESC`)
	assert.Contains(t, sql, "LIMIT 5")
}

func TestSelect_RejectsUnsafeColumns(t *testing.T) {
	s := New(dryRunDB(t), nil)
	var out []models.Transaction

	err := s.Select(t.Context(), models.TableTransactions, store.Query{UserID: "u1"}.Where("1=1 --", 1), &out)
	assert.Error(t, err)

	err = s.Select(t.Context(), models.TableTransactions, store.Query{}, &out)
	assert.Error(t, err)
}

func TestUpdate_RejectsOwnershipColumns(t *testing.T) {
	s := New(dryRunDB(t), nil)
	err := s.Update(t.Context(), models.TableTransactions, "u1", "id1", map[string]any{"user_id": "u2"})
	assert.Error(t, err)

	var remote *parsererror.RemoteCallError
	assert.False(t, errors.As(err, &remote), "validation errors are local")
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(parsererror.Remote("x", store.ErrNotFound)))
	assert.True(t, IsNotFound(gorm.ErrRecordNotFound))
	assert.False(t, IsNotFound(errors.New("other")))
}
