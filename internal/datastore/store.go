// Package datastore is the table-scoped row store behind the application: select with filters, order and
// limit, count, insert, update and delete by id. Rows are loosely typed maps, the same shape a hosted
// database-as-a-service hands back as JSON; typing happens one layer up in the facade.
package datastore

import (
	"context"
	"errors"
	"strings"
)

// Row is one record as returned by the store, keyed by column name.
type Row map[string]any

// Op is a filter predicate operator.
type Op string

const (
	OpEq      Op = "eq"
	OpNeq     Op = "neq"
	OpGt      Op = "gt"
	OpGte     Op = "gte"
	OpLt      Op = "lt"
	OpLte     Op = "lte"
	OpILike   Op = "ilike"
	OpIn      Op = "in"
	OpIsNull  Op = "is_null"
	OpNotNull Op = "not_null"
)

// Cond is a single column predicate.
type Cond struct {
	Column string
	Op     Op
	Value  any
}

func Eq(column string, value any) Cond  { return Cond{Column: column, Op: OpEq, Value: value} }
func Neq(column string, value any) Cond { return Cond{Column: column, Op: OpNeq, Value: value} }
func Gt(column string, value any) Cond  { return Cond{Column: column, Op: OpGt, Value: value} }
func Gte(column string, value any) Cond { return Cond{Column: column, Op: OpGte, Value: value} }
func Lt(column string, value any) Cond  { return Cond{Column: column, Op: OpLt, Value: value} }
func Lte(column string, value any) Cond { return Cond{Column: column, Op: OpLte, Value: value} }
func IsNull(column string) Cond         { return Cond{Column: column, Op: OpIsNull} }
func NotNull(column string) Cond        { return Cond{Column: column, Op: OpNotNull} }

// ILike matches a LIKE pattern case-insensitively. Backslash escapes % and _.
func ILike(column, pattern string) Cond {
	return Cond{Column: column, Op: OpILike, Value: pattern}
}

// Contains is a case-insensitive substring match on column.
func Contains(column, substr string) Cond {
	return ILike(column, "%"+escapeLike(substr)+"%")
}

// In matches any of values. An empty list matches nothing.
func In[T any](column string, values []T) Cond {
	list := make([]any, len(values))
	for i, v := range values {
		list[i] = v
	}
	return Cond{Column: column, Op: OpIn, Value: list}
}

// Order sorts by a column.
type Order struct {
	Column string
	Desc   bool
}

func Asc(column string) Order  { return Order{Column: column} }
func Desc(column string) Order { return Order{Column: column, Desc: true} }

// Query selects rows. Filters are ANDed; Any is one OR group ANDed with Filters.
type Query struct {
	Filters []Cond
	Any     []Cond
	Order   []Order
	Limit   int
}

// Store is the row-level surface every higher layer is written against.
type Store interface {
	Select(ctx context.Context, table string, q Query) ([]Row, error)
	Insert(ctx context.Context, table string, row Row) (Row, error)
	// Update changes the row with id. Guards further restrict which row may match.
	Update(ctx context.Context, table, id string, patch Row, guards ...Cond) (Row, error)
	Delete(ctx context.Context, table, id string) error
	Count(ctx context.Context, table string, filters ...Cond) (int, error)
}

var (
	// ErrNotFound is returned by Update when no row has the id or a guard fails.
	ErrNotFound = errors.New("row not found")
	// ErrUnknownTable and ErrUnknownColumn reject names outside the schema.
	ErrUnknownTable  = errors.New("unknown table")
	ErrUnknownColumn = errors.New("unknown column")
	// ErrConflict is returned when a write violates a unique constraint.
	ErrConflict = errors.New("unique constraint violated")
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// IsUniqueViolation reports whether a driver error is a unique constraint failure.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
