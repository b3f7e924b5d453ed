package datastore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLStore implements Store on top of sqlx. It works unchanged on SQLite and PostgreSQL.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore wraps an open database handle.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Select(ctx context.Context, table string, q Query) ([]Row, error) {
	cols := Columns(table)
	if cols == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	where, args, err := buildWhere(table, q.Filters, q.Any)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s%s", strings.Join(cols, ", "), table, where)
	if len(q.Order) > 0 {
		parts := make([]string, 0, len(q.Order))
		for _, o := range q.Order {
			if !hasColumn(table, o.Column) {
				return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, o.Column)
			}
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			parts = append(parts, o.Column+" "+dir)
		}
		b.WriteString(" ORDER BY " + strings.Join(parts, ", "))
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}

	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(b.String()), args...)
	if err != nil {
		return nil, fmt.Errorf("selecting %s: %w", table, err)
	}
	defer rows.Close()

	out := []Row{}
	for rows.Next() {
		row := Row{}
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", table, err)
		}
		out = append(out, normalizeRow(row))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", table, err)
	}
	return out, nil
}

func (s *SQLStore) Insert(ctx context.Context, table string, row Row) (Row, error) {
	cols := Columns(table)
	if cols == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	if _, ok := row["id"]; !ok {
		return nil, fmt.Errorf("inserting %s: id is required", table)
	}

	names, args, err := orderedValues(table, row)
	if err != nil {
		return nil, err
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		table, strings.Join(names, ", "), placeholders, strings.Join(cols, ", "))

	out := Row{}
	if err := s.db.QueryRowxContext(ctx, s.db.Rebind(query), args...).MapScan(out); err != nil {
		if IsUniqueViolation(err) {
			return nil, fmt.Errorf("inserting %s: %w", table, ErrConflict)
		}
		return nil, fmt.Errorf("inserting %s: %w", table, err)
	}
	return normalizeRow(out), nil
}

func (s *SQLStore) Update(ctx context.Context, table, id string, patch Row, guards ...Cond) (Row, error) {
	cols := Columns(table)
	if cols == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	filters := append([]Cond{Eq("id", id)}, guards...)
	changes := make(Row, len(patch))
	for k, v := range patch {
		if k != "id" {
			changes[k] = v
		}
	}
	if len(changes) == 0 {
		rows, err := s.Select(ctx, table, Query{Filters: filters, Limit: 1})
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, ErrNotFound
		}
		return rows[0], nil
	}

	names, args, err := orderedValues(table, changes)
	if err != nil {
		return nil, err
	}
	where, whereArgs, err := buildWhere(table, filters, nil)
	if err != nil {
		return nil, err
	}
	sets := make([]string, len(names))
	for i, name := range names {
		sets[i] = name + " = ?"
	}
	args = append(args, whereArgs...)
	query := fmt.Sprintf("UPDATE %s SET %s%s RETURNING %s",
		table, strings.Join(sets, ", "), where, strings.Join(cols, ", "))

	out := Row{}
	err = s.db.QueryRowxContext(ctx, s.db.Rebind(query), args...).MapScan(out)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, fmt.Errorf("updating %s: %w", table, ErrConflict)
		}
		return nil, fmt.Errorf("updating %s: %w", table, err)
	}
	return normalizeRow(out), nil
}

func (s *SQLStore) Delete(ctx context.Context, table, id string) error {
	if Columns(table) == nil {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", table)
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), id); err != nil {
		return fmt.Errorf("deleting from %s: %w", table, err)
	}
	return nil
}

func (s *SQLStore) Count(ctx context.Context, table string, filters ...Cond) (int, error) {
	if Columns(table) == nil {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	where, args, err := buildWhere(table, filters, nil)
	if err != nil {
		return 0, err
	}
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", table, where)
	if err := s.db.GetContext(ctx, &n, s.db.Rebind(query), args...); err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	return n, nil
}

func buildWhere(table string, all, anyOf []Cond) (string, []any, error) {
	var (
		clauses []string
		args    []any
	)
	for _, c := range all {
		clause, cargs, err := buildCond(table, c)
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, clause)
		args = append(args, cargs...)
	}
	if len(anyOf) > 0 {
		ors := make([]string, 0, len(anyOf))
		for _, c := range anyOf {
			clause, cargs, err := buildCond(table, c)
			if err != nil {
				return "", nil, err
			}
			ors = append(ors, clause)
			args = append(args, cargs...)
		}
		clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
	}
	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func buildCond(table string, c Cond) (string, []any, error) {
	if !hasColumn(table, c.Column) {
		return "", nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, c.Column)
	}
	col := c.Column
	switch c.Op {
	case OpEq:
		return col + " = ?", []any{dbValue(c.Value)}, nil
	case OpNeq:
		return col + " <> ?", []any{dbValue(c.Value)}, nil
	case OpGt:
		return col + " > ?", []any{dbValue(c.Value)}, nil
	case OpGte:
		return col + " >= ?", []any{dbValue(c.Value)}, nil
	case OpLt:
		return col + " < ?", []any{dbValue(c.Value)}, nil
	case OpLte:
		return col + " <= ?", []any{dbValue(c.Value)}, nil
	case OpILike:
		pattern, ok := c.Value.(string)
		if !ok {
			return "", nil, fmt.Errorf("ilike on %s needs a string pattern", col)
		}
		return "LOWER(" + col + `) LIKE ? ESCAPE '\'`, []any{strings.ToLower(pattern)}, nil
	case OpIn:
		values, _ := c.Value.([]any)
		if len(values) == 0 {
			return "1 = 0", nil, nil
		}
		args := make([]any, len(values))
		for i, v := range values {
			args[i] = dbValue(v)
		}
		return col + " IN (" + strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ") + ")", args, nil
	case OpIsNull:
		return col + " IS NULL", nil, nil
	case OpNotNull:
		return col + " IS NOT NULL", nil, nil
	}
	return "", nil, fmt.Errorf("unsupported operator %q", c.Op)
}

func orderedValues(table string, row Row) ([]string, []any, error) {
	var (
		names []string
		args  []any
	)
	// Iterate in schema order so generated SQL is deterministic.
	for _, col := range Columns(table) {
		v, ok := row[col]
		if !ok {
			continue
		}
		names = append(names, col)
		args = append(args, dbValue(v))
	}
	if len(names) != len(row) {
		for key := range row {
			if !hasColumn(table, key) {
				return nil, nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, key)
			}
		}
	}
	return names, args, nil
}

// dbValue converts structured values (maps, slices, structs) into JSON text columns.
func dbValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case driver.Valuer, time.Time, string, []byte, bool,
		int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return val
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		return dbValue(rv.Elem().Interface())
	}
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Map, reflect.Slice, reflect.Struct, reflect.Array:
		encoded, err := json.Marshal(v)
		if err != nil {
			return v
		}
		return string(encoded)
	}
	return v
}

func normalizeRow(row Row) Row {
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
		}
	}
	return row
}
