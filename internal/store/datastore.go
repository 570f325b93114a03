// Package store defines the generic data-store contract every service talks
// to, an in-memory implementation, and the YAML category bucket file.
package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Update and Delete when no row of the user has
// the given id.
var ErrNotFound = errors.New("record not found")

// Filter is an equality condition on a column.
type Filter struct {
	Field string
	Value any
}

// Order sorts a selection by one column.
type Order struct {
	Field string
	Desc  bool
}

// Query scopes a selection to one user. Filters are ANDed.
type Query struct {
	UserID  string
	Filters []Filter
	Order   []Order
	Limit   int
}

// Where returns a copy of q with an extra equality filter.
func (q Query) Where(field string, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Value: value})
	return q
}

// OrderBy returns a copy of q with an extra sort column.
func (q Query) OrderBy(field string, desc bool) Query {
	q.Order = append(append([]Order(nil), q.Order...), Order{Field: field, Desc: desc})
	return q
}

// DataStore is the generic CRUD surface over named collections. Every row is
// scoped by user_id.
type DataStore interface {
	// Select loads the matching rows of table into dest, a pointer to a slice.
	Select(ctx context.Context, table string, q Query, dest any) error
	// Insert stores one row (pointer to struct) or many (pointer to slice)
	// atomically and writes server-assigned ids back into rows.
	Insert(ctx context.Context, table string, rows any) error
	// Update patches the columns of one row.
	Update(ctx context.Context, table, userID, id string, patch map[string]any) error
	// Delete removes one row.
	Delete(ctx context.Context, table, userID, id string) error
}

var columnName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidColumn reports whether name is safe to use as a column identifier.
func ValidColumn(name string) bool {
	return columnName.MatchString(name)
}

// ValidateQuery checks every column named by q.
func ValidateQuery(q Query) error {
	if q.UserID == "" {
		return fmt.Errorf("query requires a user id")
	}
	for _, f := range q.Filters {
		if !ValidColumn(f.Field) {
			return fmt.Errorf("invalid filter column %q", f.Field)
		}
	}
	for _, o := range q.Order {
		if !ValidColumn(o.Field) {
			return fmt.Errorf("invalid order column %q", o.Field)
		}
	}
	return nil
}

// AssignIDs sets a fresh UUID on every struct in rows whose string ID field
// is empty. rows is a pointer to a struct or to a slice of structs.
func AssignIDs(rows any) error {
	v := reflect.ValueOf(rows)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("rows must be a non-nil pointer, got %T", rows)
	}
	v = v.Elem()

	switch v.Kind() {
	case reflect.Struct:
		assignID(v)
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			item := v.Index(i)
			if item.Kind() == reflect.Pointer {
				item = item.Elem()
			}
			if item.Kind() == reflect.Struct {
				assignID(item)
			}
		}
	default:
		return fmt.Errorf("rows must point to a struct or slice, got %T", rows)
	}
	return nil
}

func assignID(v reflect.Value) {
	f := v.FieldByName("ID")
	if f.IsValid() && f.CanSet() && f.Kind() == reflect.String && f.String() == "" {
		f.SetString(uuid.NewString())
	}
}
