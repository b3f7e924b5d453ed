package datastore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusrx/m/internal/database"
	"campusrx/m/internal/datastore"
)

func newStore(t *testing.T) *datastore.SQLStore {
	t.Helper()
	return datastore.NewSQLStore(database.NewTestDB(t))
}

func insertMedicine(t *testing.T, s datastore.Store, id, name, category string) datastore.Row {
	t.Helper()
	now := time.Now().UTC()
	row, err := s.Insert(context.Background(), datastore.TableMedicines, datastore.Row{
		"id":         id,
		"name":       name,
		"category":   category,
		"price":      "4.50",
		"created_at": now,
		"updated_at": now,
	})
	require.NoError(t, err)
	return row
}

func TestInsertReturnsFullRow(t *testing.T) {
	s := newStore(t)

	row := insertMedicine(t, s, "m1", "Paracetamol", "Pain Relief")

	assert.Equal(t, "m1", row["id"])
	assert.Equal(t, "Paracetamol", row["name"])
	assert.Contains(t, row, "description")
	assert.Nil(t, row["description"])
}

func TestInsertRejectsUnknownColumn(t *testing.T) {
	s := newStore(t)

	_, err := s.Insert(context.Background(), datastore.TableMedicines, datastore.Row{"id": "m1", "colour": "red"})
	require.ErrorIs(t, err, datastore.ErrUnknownColumn)
}

func TestUnknownTable(t *testing.T) {
	s := newStore(t)

	_, err := s.Select(context.Background(), "drugs", datastore.Query{})
	require.ErrorIs(t, err, datastore.ErrUnknownTable)
}

func TestSelectFiltersOrderAndLimit(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	insertMedicine(t, s, "m1", "Paracetamol", "Pain Relief")
	insertMedicine(t, s, "m2", "Amoxicillin", "Antibiotics")
	insertMedicine(t, s, "m3", "Ibuprofen", "Pain Relief")

	rows, err := s.Select(ctx, datastore.TableMedicines, datastore.Query{
		Filters: []datastore.Cond{datastore.Eq("category", "Pain Relief")},
		Order:   []datastore.Order{datastore.Asc("name")},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Ibuprofen", rows[0]["name"])
	assert.Equal(t, "Paracetamol", rows[1]["name"])

	rows, err = s.Select(ctx, datastore.TableMedicines, datastore.Query{
		Order: []datastore.Order{datastore.Desc("name")},
		Limit: 1,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Paracetamol", rows[0]["name"])
}

func TestSelectContainsIsCaseInsensitiveAndEscaped(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	insertMedicine(t, s, "m1", "Paracetamol", "Pain Relief")
	insertMedicine(t, s, "m2", "Vitamin C 100%", "Vitamins")

	rows, err := s.Select(ctx, datastore.TableMedicines, datastore.Query{
		Filters: []datastore.Cond{datastore.Contains("name", "PARA")},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "m1", rows[0]["id"])

	rows, err = s.Select(ctx, datastore.TableMedicines, datastore.Query{
		Filters: []datastore.Cond{datastore.Contains("name", "%")},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "m2", rows[0]["id"])
}

func TestSelectAnyGroup(t *testing.T) {
	s := newStore(t)
	insertMedicine(t, s, "m1", "Paracetamol", "Pain Relief")
	insertMedicine(t, s, "m2", "Amoxicillin", "Antibiotics")
	insertMedicine(t, s, "m3", "Cetirizine", "Allergy")

	rows, err := s.Select(context.Background(), datastore.TableMedicines, datastore.Query{
		Any: []datastore.Cond{
			datastore.Contains("name", "amox"),
			datastore.Contains("category", "allergy"),
		},
		Order: []datastore.Order{datastore.Asc("id")},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "m2", rows[0]["id"])
	assert.Equal(t, "m3", rows[1]["id"])
}

func TestSelectIn(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	insertMedicine(t, s, "m1", "Paracetamol", "Pain Relief")
	insertMedicine(t, s, "m2", "Amoxicillin", "Antibiotics")

	rows, err := s.Select(ctx, datastore.TableMedicines, datastore.Query{
		Filters: []datastore.Cond{datastore.In("id", []string{"m2", "missing"})},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	rows, err = s.Select(ctx, datastore.TableMedicines, datastore.Query{
		Filters: []datastore.Cond{datastore.In("id", []string{})},
	})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestUpdateAndNotFound(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	insertMedicine(t, s, "m1", "Paracetamol", "Pain Relief")

	row, err := s.Update(ctx, datastore.TableMedicines, "m1", datastore.Row{"name": "Panadol"})
	require.NoError(t, err)
	assert.Equal(t, "Panadol", row["name"])
	assert.Equal(t, "Pain Relief", row["category"])

	_, err = s.Update(ctx, datastore.TableMedicines, "nope", datastore.Row{"name": "x"})
	require.ErrorIs(t, err, datastore.ErrNotFound)
}

func TestUpdateLeavesCallerPatchIntact(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	insertMedicine(t, s, "m1", "Paracetamol", "Pain Relief")

	patch := datastore.Row{"id": "m1", "name": "Panadol"}
	row, err := s.Update(ctx, datastore.TableMedicines, "m1", patch)
	require.NoError(t, err)
	assert.Equal(t, "Panadol", row["name"])
	assert.Equal(t, "m1", row["id"])
	assert.Equal(t, datastore.Row{"id": "m1", "name": "Panadol"}, patch)
}

func TestUpdateGuards(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	insertMedicine(t, s, "m1", "Paracetamol", "Pain Relief")

	_, err := s.Update(ctx, datastore.TableMedicines, "m1", datastore.Row{"name": "Panadol"},
		datastore.Eq("category", "Antibiotics"))
	require.ErrorIs(t, err, datastore.ErrNotFound)

	_, err = s.Update(ctx, datastore.TableMedicines, "m1", datastore.Row{},
		datastore.Eq("category", "Antibiotics"))
	require.ErrorIs(t, err, datastore.ErrNotFound)

	row, err := s.Update(ctx, datastore.TableMedicines, "m1", datastore.Row{"name": "Panadol"},
		datastore.Eq("category", "Pain Relief"))
	require.NoError(t, err)
	assert.Equal(t, "Panadol", row["name"])
}

func TestUniqueStockPair(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	link := func(id string) datastore.Row {
		return datastore.Row{"id": id, "medicine_id": "m1", "pharmacy_id": "p1", "quantity": 3, "created_at": now, "updated_at": now}
	}

	_, err := s.Insert(ctx, datastore.TableStockLinks, link("l1"))
	require.NoError(t, err)
	_, err = s.Insert(ctx, datastore.TableStockLinks, link("l2"))
	require.ErrorIs(t, err, datastore.ErrConflict)
}

func TestDeleteIsIdempotentAndCount(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	insertMedicine(t, s, "m1", "Paracetamol", "Pain Relief")
	insertMedicine(t, s, "m2", "Ibuprofen", "Pain Relief")

	n, err := s.Count(ctx, datastore.TableMedicines)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.Delete(ctx, datastore.TableMedicines, "m1"))
	require.NoError(t, s.Delete(ctx, datastore.TableMedicines, "m1"))

	n, err = s.Count(ctx, datastore.TableMedicines, datastore.Eq("category", "Pain Relief"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStructuredValuesStoredAsJSON(t *testing.T) {
	s := newStore(t)

	row, err := s.Insert(context.Background(), datastore.TableActivityLogs, datastore.Row{
		"id":          "a1",
		"action_type": "approved",
		"entity_type": "pharmacy_request",
		"details":     map[string]any{"notes": "ok"},
		"created_at":  time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"notes":"ok"}`, row["details"].(string))
}
