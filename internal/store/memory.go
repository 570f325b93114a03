package store

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/parsererror"
)

type record map[string]any

// MemoryStore is an in-process DataStore. Rows are held as decoded JSON
// objects so any model with json tags matching its column names can be
// stored. Reads return copies.
type MemoryStore struct {
	mu       sync.RWMutex
	tables   map[string][]record
	failures map[string]error
	calls    map[string]int
	now      func() time.Time
	logger   logging.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(logger logging.Logger) *MemoryStore {
	return &MemoryStore{
		tables:   make(map[string][]record),
		failures: make(map[string]error),
		calls:    make(map[string]int),
		now:      time.Now,
		logger:   logging.OrDefault(logger),
	}
}

// FailNext makes every subsequent op ("select", "insert", "update",
// "delete") on table return err until cleared with a nil err.
func (s *MemoryStore) FailNext(op, table string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := op + ":" + table
	if err == nil {
		delete(s.failures, key)
		return
	}
	s.failures[key] = err
}

// Calls returns how many times op was invoked on table.
func (s *MemoryStore) Calls(op, table string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[op+":"+table]
}

func (s *MemoryStore) enter(op, table string) error {
	key := op + ":" + table
	s.calls[key]++
	if err, ok := s.failures[key]; ok {
		return parsererror.Remote(table+"."+op, err)
	}
	return nil
}

// Select implements DataStore.
func (s *MemoryStore) Select(ctx context.Context, table string, q Query, dest any) error {
	if err := ctx.Err(); err != nil {
		return parsererror.Remote(table+".select", err)
	}
	if err := ValidateQuery(q); err != nil {
		return err
	}

	s.mu.Lock()
	if err := s.enter("select", table); err != nil {
		s.mu.Unlock()
		return err
	}
	var matched []record
	for _, r := range s.tables[table] {
		if r["user_id"] != q.UserID || !matches(r, q.Filters) {
			continue
		}
		matched = append(matched, r)
	}
	// marshal under the lock so callers never share maps with the store
	data, err := json.Marshal(orderAndLimit(matched, q))
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode %s rows: %w", table, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode %s rows: %w", table, err)
	}
	return nil
}

// Insert implements DataStore. A batch is stored entirely or not at all.
func (s *MemoryStore) Insert(ctx context.Context, table string, rows any) error {
	if err := ctx.Err(); err != nil {
		return parsererror.Remote(table+".insert", err)
	}
	if err := AssignIDs(rows); err != nil {
		return err
	}

	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode %s rows: %w", table, err)
	}
	var batch []record
	if reflect.ValueOf(rows).Elem().Kind() == reflect.Slice {
		err = json.Unmarshal(data, &batch)
	} else {
		var one record
		err = json.Unmarshal(data, &one)
		batch = []record{one}
	}
	if err != nil {
		return fmt.Errorf("decode %s rows: %w", table, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("insert", table); err != nil {
		return err
	}

	now := s.now().UTC().Format(time.RFC3339Nano)
	for i, r := range batch {
		if uid, _ := r["user_id"].(string); uid == "" {
			return fmt.Errorf("%s row %d has no user_id", table, i)
		}
		if _, ok := r["created_at"]; ok {
			r["created_at"] = now
		}
		if _, ok := r["updated_at"]; ok {
			r["updated_at"] = now
		}
	}
	s.tables[table] = append(s.tables[table], batch...)

	s.logger.Debug("Inserted rows",
		logging.F(logging.FieldTable, table),
		logging.F(logging.FieldCount, len(batch)))

	// hand timestamps back to the caller
	out, err := json.Marshal(batch)
	if err != nil {
		return nil
	}
	if reflect.ValueOf(rows).Elem().Kind() == reflect.Slice {
		_ = json.Unmarshal(out, rows)
	} else {
		_ = json.Unmarshal(out[1:len(out)-1], rows)
	}
	return nil
}

// Update implements DataStore.
func (s *MemoryStore) Update(ctx context.Context, table, userID, id string, patch map[string]any) error {
	if err := ctx.Err(); err != nil {
		return parsererror.Remote(table+".update", err)
	}
	for k := range patch {
		if !ValidColumn(k) || k == "id" || k == "user_id" {
			return fmt.Errorf("invalid update column %q", k)
		}
	}
	normalized, err := normalize(patch)
	if err != nil {
		return fmt.Errorf("encode %s patch: %w", table, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("update", table); err != nil {
		return err
	}

	for _, r := range s.tables[table] {
		if r["id"] == id && r["user_id"] == userID {
			for k, v := range normalized {
				r[k] = v
			}
			if _, ok := r["updated_at"]; ok {
				r["updated_at"] = s.now().UTC().Format(time.RFC3339Nano)
			}
			return nil
		}
	}
	return parsererror.Remote(table+".update", ErrNotFound)
}

// Delete implements DataStore.
func (s *MemoryStore) Delete(ctx context.Context, table, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return parsererror.Remote(table+".delete", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("delete", table); err != nil {
		return err
	}

	rows := s.tables[table]
	for i, r := range rows {
		if r["id"] == id && r["user_id"] == userID {
			s.tables[table] = append(rows[:i:i], rows[i+1:]...)
			return nil
		}
	}
	return parsererror.Remote(table+".delete", ErrNotFound)
}

// Count returns the number of rows in table across all users.
func (s *MemoryStore) Count(table string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables[table])
}

func matches(r record, filters []Filter) bool {
	for _, f := range filters {
		want, err := normalizeValue(f.Value)
		if err != nil || !reflect.DeepEqual(r[f.Field], want) {
			return false
		}
	}
	return true
}

func orderAndLimit(rows []record, q Query) []record {
	if len(q.Order) > 0 {
		sort.SliceStable(rows, func(i, j int) bool {
			for _, o := range q.Order {
				c := compare(rows[i][o.Field], rows[j][o.Field])
				if c == 0 {
					continue
				}
				if o.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	if rows == nil {
		rows = []record{}
	}
	return rows
}

func compare(a, b any) int {
	switch x := a.(type) {
	case float64:
		if y, ok := b.(float64); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	case string:
		if y, ok := b.(string); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	case bool:
		if y, ok := b.(bool); ok && x != y {
			if !x {
				return -1
			}
			return 1
		}
		return 0
	}
	return 0
}

// normalize round-trips a patch through JSON so stored values have the same
// dynamic types as inserted rows.
func normalize(patch map[string]any) (map[string]any, error) {
	data, err := json.Marshal(patch)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	err = json.Unmarshal(data, &out)
	return out, err
}

var _ DataStore = (*MemoryStore)(nil)
