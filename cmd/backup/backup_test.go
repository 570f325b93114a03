package backup_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"fjacquet/fintrack/cmd/backup"
	"fjacquet/fintrack/cmd/root"
	"fjacquet/fintrack/internal/container"
	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	root.Init()
	root.Cmd.AddCommand(backup.Cmd)
	os.Exit(m.Run())
}

func run(t *testing.T, ds store.DataStore, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	root.ContainerOptions = []container.Option{
		container.WithLogger(logging.NewMockLogger()),
		container.WithDataStore(ds),
	}
	t.Cleanup(func() { root.ContainerOptions = nil })

	var out bytes.Buffer
	root.Cmd.SetOut(&out)
	root.Cmd.SetErr(&out)
	root.Cmd.SetArgs(args)
	err := root.Cmd.Execute()
	return out.String(), err
}

func TestBackupExportRestore(t *testing.T) {
	ds := store.NewMemoryStore(nil)
	require.NoError(t, ds.Insert(t.Context(), models.TableTransactions, []models.Transaction{
		{UserID: "alice", Date: "2024-03-01", Description: "Coffee", Category: "Food",
			Type: models.TransactionTypeExpense, Amount: decimal.RequireFromString("4.50")},
		{UserID: "alice", Date: "2024-03-02", Description: "Salary", Category: "Income",
			Type: models.TransactionTypeIncome, Amount: decimal.NewFromInt(3000)},
	}))
	path := filepath.Join(t.TempDir(), "backups", "alice.json")

	out, err := run(t, ds, "backup", "export", "-u", "alice", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Backup written to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"categorization_rules"`)
	assert.Contains(t, string(data), "Salary")

	out, err = run(t, ds, "backup", "restore", "-u", "bob", "-i", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Restored")
	assert.Contains(t, out, "transactions=2")

	var restored []models.Transaction
	require.NoError(t, ds.Select(t.Context(), models.TableTransactions, store.Query{UserID: "bob"}, &restored))
	assert.Len(t, restored, 2)
}

func TestBackupRestore_InvalidFileImportsNothing(t *testing.T) {
	ds := store.NewMemoryStore(nil)
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":1,"transactions":[]}`), 0600))

	_, err := run(t, ds, "backup", "restore", "-u", "bob", "-i", path)
	assert.Error(t, err)
	assert.Equal(t, 0, ds.Count(models.TableTransactions))
}

func TestBackupRestore_MissingFile(t *testing.T) {
	_, err := run(t, store.NewMemoryStore(nil), "backup", "restore", "-u", "bob", "-i", "/does/not/exist.json")
	assert.ErrorContains(t, err, "failed to open backup file")
}

func TestBackupExport_DefaultName(t *testing.T) {
	ds := store.NewMemoryStore(nil)
	out, err := run(t, ds, "backup", "export", "-u", "alice", "-o", "")
	require.NoError(t, err)
	assert.Contains(t, out, "fintrack-backup-")

	matches, err := filepath.Glob("fintrack-backup-*.json")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}
