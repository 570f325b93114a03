// Package backup exports a user's whole account as one JSON document and
// restores it. A restore validates the entire document before writing
// anything.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/parsererror"
	"fjacquet/fintrack/internal/store"
	"fjacquet/fintrack/internal/validation"
)

// Version of the document layout written by Export.
const Version = 1

// RequiredKeys must all be present at the top level of a backup.
var RequiredKeys = []string{
	"version",
	"exported_at",
	models.TableTransactions,
	models.TableBudgetGoals,
	models.TableRecurringTransactions,
	models.TablePortfolioHoldings,
	models.TableCategorizationRules,
}

// Document is the full-account backup.
type Document struct {
	Version               int                           `json:"version"`
	ExportedAt            time.Time                     `json:"exported_at"`
	Transactions          []models.Transaction          `json:"transactions"`
	BudgetGoals           []models.BudgetGoal           `json:"budget_goals"`
	RecurringTransactions []models.RecurringTransaction `json:"recurring_transactions"`
	PortfolioHoldings     []models.PortfolioHolding     `json:"portfolio_holdings"`
	CategorizationRules   []models.CategorizationRule   `json:"categorization_rules"`
}

// Counts reports rows per collection.
type Counts map[string]int

func (c Counts) String() string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, c[k]))
	}
	return strings.Join(parts, " ")
}

// Service reads and writes backups through the data store.
type Service struct {
	ds     store.DataStore
	logger logging.Logger
	now    func() time.Time
}

// NewService creates a Service.
func NewService(ds store.DataStore, logger logging.Logger) *Service {
	return &Service{ds: ds, logger: logging.OrDefault(logger), now: time.Now}
}

// Export loads every collection of userID.
func (s *Service) Export(ctx context.Context, userID string) (*Document, error) {
	doc := &Document{Version: Version, ExportedAt: s.now().UTC()}
	q := store.Query{UserID: userID}
	loads := []struct {
		table string
		dest  any
	}{
		{models.TableTransactions, &doc.Transactions},
		{models.TableBudgetGoals, &doc.BudgetGoals},
		{models.TableRecurringTransactions, &doc.RecurringTransactions},
		{models.TablePortfolioHoldings, &doc.PortfolioHoldings},
		{models.TableCategorizationRules, &doc.CategorizationRules},
	}
	for _, l := range loads {
		if err := s.ds.Select(ctx, l.table, q, l.dest); err != nil {
			return nil, fmt.Errorf("export %s: %w", l.table, err)
		}
	}
	doc.normalize()

	s.logger.Info("Exported backup",
		logging.F(logging.FieldUserID, userID),
		logging.F(logging.FieldCount, doc.counts().String()))
	return doc, nil
}

// Write encodes doc as indented JSON.
func Write(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Decode reads and validates a backup without touching the store.
func Decode(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, &parsererror.InvalidBackupFormatError{Reason: "not a JSON object"}
	}
	var missing []string
	for _, k := range RequiredKeys {
		if _, ok := top[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, &parsererror.InvalidBackupFormatError{MissingKeys: missing}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &parsererror.InvalidBackupFormatError{Reason: err.Error()}
	}
	if doc.Version < 1 || doc.Version > Version {
		return nil, &parsererror.InvalidBackupFormatError{Reason: fmt.Sprintf("unsupported version %d", doc.Version)}
	}
	if err := doc.validate(); err != nil {
		return nil, &parsererror.InvalidBackupFormatError{Reason: err.Error()}
	}
	return &doc, nil
}

// Import restores a backup into userID's account. Rows get new ids. Nothing
// is written unless the whole document is valid.
func (s *Service) Import(ctx context.Context, userID string, r io.Reader) (Counts, error) {
	doc, err := Decode(r)
	if err != nil {
		s.logger.WithError(err).Warn("Rejected backup", logging.F(logging.FieldUserID, userID))
		return nil, err
	}
	doc.reown(userID)

	written := Counts{}
	inserts := []struct {
		table string
		rows  any
		n     int
	}{
		{models.TableCategorizationRules, &doc.CategorizationRules, len(doc.CategorizationRules)},
		{models.TableTransactions, &doc.Transactions, len(doc.Transactions)},
		{models.TableBudgetGoals, &doc.BudgetGoals, len(doc.BudgetGoals)},
		{models.TableRecurringTransactions, &doc.RecurringTransactions, len(doc.RecurringTransactions)},
		{models.TablePortfolioHoldings, &doc.PortfolioHoldings, len(doc.PortfolioHoldings)},
	}
	for _, in := range inserts {
		if in.n == 0 {
			continue
		}
		if err := s.ds.Insert(ctx, in.table, in.rows); err != nil {
			s.logger.WithError(err).Error("Backup restore stopped",
				logging.F(logging.FieldTable, in.table),
				logging.F("written", written.String()))
			return written, fmt.Errorf("restore %s: %w", in.table, err)
		}
		written[in.table] = in.n
	}

	s.logger.Info("Restored backup",
		logging.F(logging.FieldUserID, userID),
		logging.F(logging.FieldCount, written.String()))
	return written, nil
}

func (d *Document) counts() Counts {
	return Counts{
		models.TableTransactions:          len(d.Transactions),
		models.TableBudgetGoals:           len(d.BudgetGoals),
		models.TableRecurringTransactions: len(d.RecurringTransactions),
		models.TablePortfolioHoldings:     len(d.PortfolioHoldings),
		models.TableCategorizationRules:   len(d.CategorizationRules),
	}
}

// normalize turns nil collections into empty ones so every key is written.
func (d *Document) normalize() {
	if d.Transactions == nil {
		d.Transactions = []models.Transaction{}
	}
	if d.BudgetGoals == nil {
		d.BudgetGoals = []models.BudgetGoal{}
	}
	if d.RecurringTransactions == nil {
		d.RecurringTransactions = []models.RecurringTransaction{}
	}
	if d.PortfolioHoldings == nil {
		d.PortfolioHoldings = []models.PortfolioHolding{}
	}
	if d.CategorizationRules == nil {
		d.CategorizationRules = []models.CategorizationRule{}
	}
}

func (d *Document) validate() error {
	for i, tx := range d.Transactions {
		if _, err := validation.Date(tx.Date); err != nil {
			return fmt.Errorf("transactions[%d]: %w", i, err)
		}
		if err := validation.CheckAmount(tx.Amount, false); err != nil {
			return fmt.Errorf("transactions[%d]: %w", i, err)
		}
		if !tx.Type.Valid() {
			return fmt.Errorf("transactions[%d]: invalid type %q", i, tx.Type)
		}
	}
	for i, r := range d.CategorizationRules {
		if strings.TrimSpace(r.Keyword) == "" || strings.TrimSpace(r.Category) == "" {
			return fmt.Errorf("categorization_rules[%d]: keyword and category are required", i)
		}
	}
	for i, r := range d.RecurringTransactions {
		if !r.Frequency.Valid() {
			return fmt.Errorf("recurring_transactions[%d]: invalid frequency %q", i, r.Frequency)
		}
		if _, err := validation.Date(r.StartDate); err != nil {
			return fmt.Errorf("recurring_transactions[%d]: %w", i, err)
		}
	}
	for i, g := range d.BudgetGoals {
		if err := validation.CheckAmount(g.TargetAmount, false); err != nil {
			return fmt.Errorf("budget_goals[%d]: %w", i, err)
		}
	}
	for i, h := range d.PortfolioHoldings {
		if strings.TrimSpace(h.Symbol) == "" {
			return fmt.Errorf("portfolio_holdings[%d]: symbol is required", i)
		}
	}
	return nil
}

// reown clears ids and assigns every row to userID.
func (d *Document) reown(userID string) {
	for i := range d.Transactions {
		d.Transactions[i].ID, d.Transactions[i].UserID = "", userID
	}
	for i := range d.BudgetGoals {
		d.BudgetGoals[i].ID, d.BudgetGoals[i].UserID = "", userID
	}
	for i := range d.RecurringTransactions {
		d.RecurringTransactions[i].ID, d.RecurringTransactions[i].UserID = "", userID
	}
	for i := range d.PortfolioHoldings {
		d.PortfolioHoldings[i].ID, d.PortfolioHoldings[i].UserID = "", userID
	}
	for i := range d.CategorizationRules {
		d.CategorizationRules[i].ID, d.CategorizationRules[i].UserID = "", userID
	}
}
