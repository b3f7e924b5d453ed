package facade

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"

	"campusrx/m/internal/apperr"
	"campusrx/m/internal/datastore"
)

// Query selects records. It is the datastore query: AND filters, one OR group, order and limit.
type Query = datastore.Query

// Patch is a partial update keyed by column name.
type Patch map[string]any

// Table is the typed data access surface for one entity. Each method issues one store call, plus a read of
// the target row when a pharmacy changes a table whose rows it owns.
type Table[T any] struct {
	f     *Facade
	codec codec[T]
}

func (t *Table[T]) List(ctx context.Context, q Query) (out []T, err error) {
	defer t.track(OpList, time.Now(), &err)
	if err := t.authorize(access{table: t.codec.table, op: OpList}); err != nil {
		return nil, err
	}
	q.Filters = t.scope(OpList, q.Filters)
	rows, err := t.f.store.Select(ctx, t.codec.table, q)
	if err != nil {
		return nil, t.normalize(err, "listing")
	}
	return decodeRows[T](t.codec.entity, rows, t.codec.required)
}

func (t *Table[T]) Get(ctx context.Context, id string) (out T, err error) {
	defer t.track(OpGet, time.Now(), &err)
	if err := t.authorize(access{table: t.codec.table, op: OpGet, id: id}); err != nil {
		return out, err
	}
	rows, err := t.f.store.Select(ctx, t.codec.table, Query{
		Filters: t.scope(OpGet, []datastore.Cond{datastore.Eq("id", id)}),
		Limit:   1,
	})
	if err != nil {
		return out, t.normalize(err, "getting")
	}
	if len(rows) == 0 {
		return out, apperr.Newf(apperr.KindNotFound, "%s %s not found", t.codec.entity, id)
	}
	return decodeRow[T](t.codec.entity, rows[0], t.codec.required)
}

func (t *Table[T]) Count(ctx context.Context, filters ...datastore.Cond) (n int, err error) {
	defer t.track(OpCount, time.Now(), &err)
	if err := t.authorize(access{table: t.codec.table, op: OpCount}); err != nil {
		return 0, err
	}
	n, err = t.f.store.Count(ctx, t.codec.table, t.scope(OpCount, filters)...)
	if err != nil {
		return 0, t.normalize(err, "counting")
	}
	return n, nil
}

// Create validates rec, assigns an id and timestamps, and inserts it.
func (t *Table[T]) Create(ctx context.Context, rec T) (out T, err error) {
	defer t.track(OpCreate, time.Now(), &err)
	if err := t.f.validate.Struct(rec); err != nil {
		return out, validationError(t.codec.entity, err)
	}
	if t.codec.check != nil {
		if err := t.codec.check(&rec); err != nil {
			return out, err
		}
	}
	t.codec.stamp(&rec, t.f.newID(), t.f.now())
	row := t.codec.encode(&rec)
	if err := t.authorize(access{table: t.codec.table, op: OpCreate, record: row}); err != nil {
		return out, err
	}
	created, err := t.f.store.Insert(ctx, t.codec.table, row)
	if err != nil {
		return out, t.normalize(err, "creating")
	}
	return decodeRow[T](t.codec.entity, created, t.codec.required)
}

// Update applies patch to the record with id. Unknown columns are rejected.
func (t *Table[T]) Update(ctx context.Context, id string, patch Patch) (T, error) {
	return t.UpdateWhere(ctx, id, patch)
}

// UpdateWhere is Update restricted to a record that also matches guards. A record failing a guard is
// reported as not found and left unchanged.
func (t *Table[T]) UpdateWhere(ctx context.Context, id string, patch Patch, guards ...datastore.Cond) (out T, err error) {
	defer t.track(OpUpdate, time.Now(), &err)
	clean, err := t.preparePatch(patch)
	if err != nil {
		return out, err
	}
	if err := t.authorize(access{table: t.codec.table, op: OpUpdate, id: id, record: datastore.Row(clean)}); err != nil {
		return out, err
	}
	if err := t.reachable(ctx, OpUpdate, id); err != nil {
		return out, err
	}
	updated, err := t.f.store.Update(ctx, t.codec.table, id, datastore.Row(clean), t.scope(OpUpdate, guards)...)
	if err != nil {
		return out, t.normalize(err, "updating")
	}
	return decodeRow[T](t.codec.entity, updated, t.codec.required)
}

// Remove deletes the record with id. Removing a missing id succeeds.
func (t *Table[T]) Remove(ctx context.Context, id string) (err error) {
	defer t.track(OpRemove, time.Now(), &err)
	if err := t.authorize(access{table: t.codec.table, op: OpRemove, id: id}); err != nil {
		return err
	}
	if err := t.reachable(ctx, OpRemove, id); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil
		}
		return err
	}
	if err := t.f.store.Delete(ctx, t.codec.table, id); err != nil {
		return t.normalize(err, "removing")
	}
	return nil
}

func (t *Table[T]) preparePatch(patch Patch) (Patch, error) {
	clean := make(Patch, len(patch)+1)
	var unknown []string
	for key, value := range patch {
		switch key {
		case "id", "created_at":
			return nil, fieldError(key, "cannot be changed")
		}
		if !hasColumn(t.codec.table, key) {
			unknown = append(unknown, key)
			continue
		}
		clean[key] = value
	}
	if len(unknown) > 0 {
		return nil, apperr.Newf(apperr.KindValidation, "unknown %s fields: %s", t.codec.entity, strings.Join(unknown, ", ")).
			WithDetails(map[string]any{"unknown": unknown})
	}
	for _, col := range t.codec.nonBlank {
		if v, ok := clean[col]; ok && isBlank(v) {
			return nil, fieldError(col, "is required")
		}
	}
	if t.codec.checkPatch != nil {
		if err := t.codec.checkPatch(clean); err != nil {
			return nil, err
		}
	}
	if hasColumn(t.codec.table, "updated_at") {
		clean["updated_at"] = t.f.now()
	}
	return clean, nil
}

func (t *Table[T]) authorize(a access) error {
	p := t.f.session.Principal()
	if allowed(p, a) {
		return nil
	}
	return apperr.Newf(apperr.KindUnauthorized, "%s may not %s %s", p.Role, a.op, t.codec.entity)
}

// scope narrows filters to the rows the principal may reach with op.
func (t *Table[T]) scope(op Op, filters []datastore.Cond) []datastore.Cond {
	p := t.f.session.Principal()
	col := ownerColumn(p, t.codec.table, op)
	if col == "" {
		return filters
	}
	out := make([]datastore.Cond, 0, len(filters)+1)
	out = append(out, filters...)
	return append(out, datastore.Eq(col, p.PharmacyID))
}

// reachable rejects op on a row owned by another pharmacy.
func (t *Table[T]) reachable(ctx context.Context, op Op, id string) error {
	p := t.f.session.Principal()
	col := ownerColumn(p, t.codec.table, op)
	if col == "" {
		return nil
	}
	rows, err := t.f.store.Select(ctx, t.codec.table, Query{
		Filters: []datastore.Cond{datastore.Eq("id", id)},
		Limit:   1,
	})
	if err != nil {
		return t.normalize(err, "checking")
	}
	if len(rows) == 0 {
		return apperr.Newf(apperr.KindNotFound, "%s %s not found", t.codec.entity, id)
	}
	if cast.ToString(rows[0][col]) != p.PharmacyID {
		return apperr.Newf(apperr.KindUnauthorized, "%s %s belongs to another pharmacy", t.codec.entity, id)
	}
	return nil
}

func (t *Table[T]) track(op Op, started time.Time, err *error) {
	t.f.metrics.observe(t.codec.entity, op, started, *err)
}

// normalize maps store failures onto the error taxonomy. Anything unrecognised is a transport failure.
func (t *Table[T]) normalize(err error, doing string) error {
	msg := fmt.Sprintf("%s %s", doing, t.codec.entity)
	switch {
	case errors.Is(err, datastore.ErrNotFound):
		return apperr.Wrap(apperr.KindNotFound, err, msg)
	case errors.Is(err, datastore.ErrUnknownColumn):
		return apperr.Wrap(apperr.KindValidation, err, msg)
	case errors.Is(err, datastore.ErrConflict):
		return apperr.Wrap(apperr.KindValidation, err, msg).
			WithDetails(map[string]string{"conflict": "a matching " + t.codec.entity + " already exists"})
	case errors.Is(err, datastore.ErrUnknownTable):
		return apperr.Wrap(apperr.KindInternal, err, msg)
	case errors.Is(err, context.Canceled):
		return err
	}
	return apperr.Wrap(apperr.KindRemoteUnavailable, err, msg)
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	return strings.TrimSpace(fmt.Sprint(v)) == ""
}

func hasColumn(table, column string) bool {
	for _, c := range datastore.Columns(table) {
		if c == column {
			return true
		}
	}
	return false
}

func newID() string { return uuid.NewString() }
