// Package transactions serves transaction reads through the query cache and
// applies create, update and delete optimistically.
package transactions

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"fjacquet/fintrack/internal/cache"
	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/parsererror"
	"fjacquet/fintrack/internal/store"
	"fjacquet/fintrack/internal/validation"
)

// TempIDPrefix marks rows that exist only in the cache until the server
// assigns their id.
const TempIDPrefix = "temp-"

// ListQuery narrows a transaction listing. The zero value lists everything.
type ListQuery struct {
	Category string
	Type     models.TransactionType
	Limit    int
}

// Matches reports whether tx belongs in a listing for q.
func (q ListQuery) Matches(tx models.Transaction) bool {
	return (q.Category == "" || q.Category == tx.Category) &&
		(q.Type == "" || q.Type == tx.Type)
}

func (q ListQuery) params() string {
	return fmt.Sprintf("category=%s&type=%s&limit=%d", q.Category, q.Type, q.Limit)
}

// UserKey is the cache prefix of every transaction listing of userID.
func UserKey(userID string) cache.Key {
	return cache.NewKey(models.TableTransactions, userID)
}

// Key is the cache key of one listing.
func Key(userID string, q ListQuery) cache.Key {
	return cache.NewKey(models.TableTransactions, userID, q.params())
}

// listing is the cached value; it remembers its query so optimistic
// inserts land only in listings they match.
type listing struct {
	query ListQuery
	rows  []models.Transaction
}

// Patch lists the fields an update changes. Nil fields are left alone.
type Patch struct {
	Date        *string `json:"date,omitempty"`
	Description *string `json:"description,omitempty"`
	Amount      *string `json:"amount,omitempty"`
	Type        *string `json:"type,omitempty"`
	Category    *string `json:"category,omitempty"`
}

// Service is the only writer of cached transaction listings.
type Service struct {
	ds     store.DataStore
	cache  *cache.Cache
	logger logging.Logger
	tempID func() string
}

// NewService creates a Service.
func NewService(ds store.DataStore, c *cache.Cache, logger logging.Logger) *Service {
	return &Service{
		ds:     ds,
		cache:  c,
		logger: logging.OrDefault(logger),
		tempID: func() string { return TempIDPrefix + uuid.NewString() },
	}
}

func (s *Service) fetcher(userID string, q ListQuery) cache.FetchFunc {
	return func(ctx context.Context) (any, error) {
		sq := store.Query{UserID: userID, Limit: q.Limit}.
			OrderBy("date", true).
			OrderBy("created_at", true)
		if q.Category != "" {
			sq = sq.Where("category", q.Category)
		}
		if q.Type != "" {
			sq = sq.Where("type", string(q.Type))
		}
		var rows []models.Transaction
		if err := s.ds.Select(ctx, models.TableTransactions, sq, &rows); err != nil {
			return nil, err
		}
		return listing{query: q, rows: rows}, nil
	}
}

// List returns the user's transactions, newest first, from the cache when
// fresh.
func (s *Service) List(ctx context.Context, userID string, q ListQuery) ([]models.Transaction, error) {
	v, err := s.cache.Fetch(ctx, Key(userID, q), 0, s.fetcher(userID, q))
	if err != nil {
		s.logger.WithError(err).Warn("Failed to list transactions",
			logging.F(logging.FieldUserID, userID))
		return nil, err
	}
	return slices.Clone(v.(listing).rows), nil
}

// Prefetch warms a listing without blocking.
func (s *Service) Prefetch(ctx context.Context, userID string, q ListQuery) {
	s.cache.Prefetch(ctx, Key(userID, q), 0, s.fetcher(userID, q))
}

// Create validates in, shows it in cached listings under a temporary id and
// inserts it. The returned transaction carries the server id.
func (s *Service) Create(ctx context.Context, userID string, in validation.TransactionInput) (models.Transaction, error) {
	tx, err := validation.Transaction(userID, in)
	if err != nil {
		return models.Transaction{}, err
	}

	placeholder := tx
	placeholder.ID = s.tempID()

	err = s.cache.Mutate(ctx, cache.Mutation{
		Name:   "transactions.create",
		Prefix: UserKey(userID),
		Apply: func(_ cache.Key, current any) any {
			l := current.(listing)
			if !l.query.Matches(placeholder) {
				return l
			}
			rows := make([]models.Transaction, 0, len(l.rows)+1)
			rows = append(append(rows, placeholder), l.rows...)
			if l.query.Limit > 0 && len(rows) > l.query.Limit {
				rows = rows[:l.query.Limit]
			}
			return listing{query: l.query, rows: rows}
		},
		Remote: func(ctx context.Context) error {
			return s.ds.Insert(ctx, models.TableTransactions, &tx)
		},
	})
	if err != nil {
		return models.Transaction{}, err
	}

	s.logger.Info("Created transaction",
		logging.F(logging.FieldUserID, userID),
		logging.F(logging.FieldTransactionID, tx.ID))
	return tx, nil
}

// Update validates p and patches the row in cached listings, then remotely.
func (s *Service) Update(ctx context.Context, userID, id string, p Patch) error {
	cols, err := p.columns()
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return nil
	}

	return s.cache.Mutate(ctx, cache.Mutation{
		Name:   "transactions.update",
		Prefix: UserKey(userID),
		Apply: func(_ cache.Key, current any) any {
			l := current.(listing)
			rows := slices.Clone(l.rows)
			for i := range rows {
				if rows[i].ID == id {
					p.applyTo(&rows[i])
				}
			}
			return listing{query: l.query, rows: rows}
		},
		Remote: func(ctx context.Context) error {
			return s.ds.Update(ctx, models.TableTransactions, userID, id, cols)
		},
	})
}

// Delete removes the row from cached listings, then remotely.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if strings.HasPrefix(id, TempIDPrefix) {
		return &parsererror.ValidationError{Field: "id", Value: id, Reason: "transaction is still being saved"}
	}
	return s.cache.Mutate(ctx, cache.Mutation{
		Name:   "transactions.delete",
		Prefix: UserKey(userID),
		Apply: func(_ cache.Key, current any) any {
			l := current.(listing)
			rows := slices.DeleteFunc(slices.Clone(l.rows), func(tx models.Transaction) bool {
				return tx.ID == id
			})
			return listing{query: l.query, rows: rows}
		},
		Remote: func(ctx context.Context) error {
			return s.ds.Delete(ctx, models.TableTransactions, userID, id)
		},
	})
}

// BulkInsert stores txs in one call, preserving order, then invalidates
// every cached listing of the user.
func (s *Service) BulkInsert(ctx context.Context, userID string, txs []models.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	for i := range txs {
		txs[i].UserID = userID
	}
	if err := s.ds.Insert(ctx, models.TableTransactions, &txs); err != nil {
		s.logger.WithError(err).Error("Bulk insert failed",
			logging.F(logging.FieldUserID, userID),
			logging.F(logging.FieldCount, len(txs)))
		return err
	}
	n := s.cache.Invalidate(UserKey(userID))
	s.logger.Info("Bulk inserted transactions",
		logging.F(logging.FieldUserID, userID),
		logging.F(logging.FieldCount, len(txs)),
		logging.F("invalidated_keys", n))
	return nil
}

// Invalidate marks every cached listing of userID stale, for writes made
// outside this service such as a backup restore.
func (s *Service) Invalidate(userID string) int {
	return s.cache.Invalidate(UserKey(userID))
}

func (p Patch) columns() (map[string]any, error) {
	cols := make(map[string]any)
	if p.Date != nil {
		d, err := validation.Date(*p.Date)
		if err != nil {
			return nil, err
		}
		cols["date"] = d
	}
	if p.Description != nil {
		cols["description"] = validation.Description(*p.Description)
	}
	if p.Amount != nil {
		a, err := validation.Amount(*p.Amount, true)
		if err != nil {
			return nil, err
		}
		cols["amount"] = a
	}
	if p.Type != nil {
		t, err := validation.Type(*p.Type)
		if err != nil {
			return nil, err
		}
		cols["type"] = string(t)
	}
	if p.Category != nil {
		c, err := validation.Category(*p.Category)
		if err != nil {
			return nil, err
		}
		cols["category"] = c
	}
	return cols, nil
}

// applyTo copies already validated fields onto tx.
func (p Patch) applyTo(tx *models.Transaction) {
	if p.Date != nil {
		tx.Date = strings.TrimSpace(*p.Date)
	}
	if p.Description != nil {
		tx.Description = validation.Description(*p.Description)
	}
	if p.Amount != nil {
		if a, err := validation.Amount(*p.Amount, true); err == nil {
			tx.Amount = a
		}
	}
	if p.Type != nil {
		if t, err := validation.Type(*p.Type); err == nil {
			tx.Type = t
		}
	}
	if p.Category != nil {
		tx.Category = strings.TrimSpace(*p.Category)
	}
}
