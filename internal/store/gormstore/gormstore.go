// Package gormstore implements store.DataStore on the hosted Postgres
// database through gorm.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/parsererror"
	"fjacquet/fintrack/internal/store"
)

// Store is a gorm-backed DataStore.
type Store struct {
	db     *gorm.DB
	logger logging.Logger
}

// Open connects to Postgres with dsn.
func Open(dsn string, logger logging.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, parsererror.Remote("database.open", err)
	}
	return New(db, logger), nil
}

// New wraps an existing gorm handle.
func New(db *gorm.DB, logger logging.Logger) *Store {
	return &Store{db: db, logger: logging.OrDefault(logger)}
}

// AutoMigrate creates or updates every table the application uses.
func (s *Store) AutoMigrate() error {
	err := s.db.AutoMigrate(
		&models.Transaction{},
		&models.CategorizationRule{},
		&models.RecurringTransaction{},
		&models.BudgetGoal{},
		&models.PortfolioHolding{},
		&models.ChatConversation{},
		&models.Profile{},
	)
	if err != nil {
		return parsererror.Remote("database.migrate", err)
	}
	s.logger.Info("Database schema migrated")
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// buildSelect applies q to a query on table.
func buildSelect(db *gorm.DB, table string, q store.Query) *gorm.DB {
	tx := db.Table(table).Where(clause.Eq{Column: clause.Column{Name: "user_id"}, Value: q.UserID})
	for _, f := range q.Filters {
		tx = tx.Where(clause.Eq{Column: clause.Column{Name: f.Field}, Value: f.Value})
	}
	for _, o := range q.Order {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: o.Field}, Desc: o.Desc})
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	return tx
}

// Select implements store.DataStore.
func (s *Store) Select(ctx context.Context, table string, q store.Query, dest any) error {
	if err := store.ValidateQuery(q); err != nil {
		return err
	}
	start := time.Now()
	if err := buildSelect(s.db.WithContext(ctx), table, q).Find(dest).Error; err != nil {
		s.logger.WithError(err).Warn("Select failed", logging.F(logging.FieldTable, table))
		return parsererror.Remote(table+".select", err)
	}
	s.logger.Debug("Selected rows",
		logging.F(logging.FieldTable, table),
		logging.F(logging.FieldDuration, time.Since(start).Milliseconds()))
	return nil
}

// Insert implements store.DataStore. Batches run in one transaction.
func (s *Store) Insert(ctx context.Context, table string, rows any) error {
	if err := store.AssignIDs(rows); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Table(table).Create(rows).Error
	})
	if err != nil {
		s.logger.WithError(err).Warn("Insert failed", logging.F(logging.FieldTable, table))
		return parsererror.Remote(table+".insert", err)
	}
	return nil
}

// Update implements store.DataStore.
func (s *Store) Update(ctx context.Context, table, userID, id string, patch map[string]any) error {
	values := make(map[string]any, len(patch)+1)
	for k, v := range patch {
		if !store.ValidColumn(k) || k == "id" || k == "user_id" {
			return fmt.Errorf("invalid update column %q", k)
		}
		values[k] = v
	}
	values["updated_at"] = time.Now().UTC()

	res := s.db.WithContext(ctx).Table(table).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(values)
	if res.Error != nil {
		return parsererror.Remote(table+".update", res.Error)
	}
	if res.RowsAffected == 0 {
		return parsererror.Remote(table+".update", store.ErrNotFound)
	}
	return nil
}

// Delete implements store.DataStore.
func (s *Store) Delete(ctx context.Context, table, userID, id string) error {
	res := s.db.WithContext(ctx).Exec("DELETE FROM ? WHERE id = ? AND user_id = ?",
		clause.Table{Name: table}, id, userID)
	if res.Error != nil {
		return parsererror.Remote(table+".delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return parsererror.Remote(table+".delete", store.ErrNotFound)
	}
	return nil
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

var _ store.DataStore = (*Store)(nil)
