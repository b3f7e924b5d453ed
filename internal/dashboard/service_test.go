package dashboard_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusrx/m/domain"
	"campusrx/m/internal/aggregate"
	"campusrx/m/internal/apperr"
	"campusrx/m/internal/availability"
	"campusrx/m/internal/dashboard"
	"campusrx/m/internal/database"
	"campusrx/m/internal/datastore"
	"campusrx/m/internal/facade"
	"campusrx/m/internal/session"
)

type env struct {
	now   time.Time
	admin *facade.Facade
}

func (e *env) clock() time.Time { return e.now }

func (e *env) service(sess *session.Session) *dashboard.Service {
	f := e.admin.As(sess)
	return dashboard.NewService(f, availability.New(f, nil))
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{now: time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)}
	store := datastore.NewSQLStore(database.NewTestDB(t))
	e.admin = facade.New(store, session.Static(session.Principal{Role: domain.RoleAdmin}), facade.WithClock(e.clock))
	return e
}

func TestAdminDashboard(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.now = time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	old, err := e.admin.Pharmacies.Create(ctx, domain.Pharmacy{Name: "Legon Hall", Phone: "1", Hours: domain.DefaultHours, Available: true})
	require.NoError(t, err)
	e.now = time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC)
	fresh, err := e.admin.Pharmacies.Create(ctx, domain.Pharmacy{Name: "Akuafo Hall", Phone: "2", Hours: domain.DefaultHours})
	require.NoError(t, err)
	e.now = time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)

	var meds []domain.Medicine
	for _, m := range []domain.Medicine{
		{Name: "Paracetamol", Category: "Pain Relief"},
		{Name: "Ibuprofen", Category: "Pain Relief"},
		{Name: "Amoxicillin", Category: "Antibiotics"},
	} {
		m.Price = domain.PriceOf(decimal.NewFromInt(2))
		created, err := e.admin.Medicines.Create(ctx, m)
		require.NoError(t, err)
		meds = append(meds, created)
	}
	for _, l := range []domain.StockLink{
		{MedicineID: meds[0].ID, PharmacyID: old.ID, Quantity: 3},
		{MedicineID: meds[1].ID, PharmacyID: old.ID, Quantity: 30},
		{MedicineID: meds[2].ID, PharmacyID: fresh.ID, Quantity: 0},
	} {
		_, err := e.admin.Stock.Create(ctx, l)
		require.NoError(t, err)
	}
	_, err = e.admin.Requests.Create(ctx, domain.PharmacyRequest{
		PharmacyName: "Volta", OwnerName: "K", Email: "k@example.edu", Phone: "3", Location: "Volta Hall", LicenseNumber: "L1",
	})
	require.NoError(t, err)
	for q, n := range map[string]int{"paracetamol": 2, "amoxicillin": 5} {
		_, err := e.admin.Searches.Create(ctx, domain.SearchEntry{MedicineName: q, Count: n})
		require.NoError(t, err)
	}

	d, err := e.service(session.Static(session.Principal{Role: domain.RoleAdmin})).Admin(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, d.TotalMedicines)
	assert.Equal(t, 2, d.TotalPharmacies)
	assert.Equal(t, 1, d.AvailablePharmacies)
	assert.Equal(t, 1, d.PendingRequests)
	assert.Equal(t, 1, d.NewPharmacies)
	assert.Equal(t, 1, d.LowStock)
	assert.Equal(t, []aggregate.CategoryCount{{Category: "Pain Relief", Count: 2}, {Category: "Antibiotics", Count: 1}}, d.Categories)
	require.Len(t, d.TopSearches, 2)
	assert.Equal(t, "amoxicillin", d.TopSearches[0].MedicineName)
}

func TestPharmacyDashboardAndTrend(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	pharmacy, err := e.admin.Pharmacies.Create(ctx, domain.Pharmacy{Name: "Legon Hall", Phone: "1", Hours: domain.DefaultHours})
	require.NoError(t, err)
	var meds []domain.Medicine
	for _, m := range []domain.Medicine{
		{Name: "Paracetamol", Category: "Pain Relief"},
		{Name: "Cetirizine", Category: "Allergy"},
		{Name: "Amoxicillin", Category: "Antibiotics"},
	} {
		m.Price = domain.PriceOf(decimal.NewFromInt(2))
		created, err := e.admin.Medicines.Create(ctx, m)
		require.NoError(t, err)
		meds = append(meds, created)
	}

	e.now = time.Date(2024, 4, 8, 10, 0, 0, 0, time.UTC)
	_, err = e.admin.Stock.Create(ctx, domain.StockLink{MedicineID: meds[0].ID, PharmacyID: pharmacy.ID, Quantity: 4})
	require.NoError(t, err)
	e.now = time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC)
	_, err = e.admin.Stock.Create(ctx, domain.StockLink{MedicineID: meds[1].ID, PharmacyID: pharmacy.ID, Quantity: 16})
	require.NoError(t, err)
	_, err = e.admin.Stock.Create(ctx, domain.StockLink{MedicineID: meds[2].ID, PharmacyID: pharmacy.ID, Quantity: 0})
	require.NoError(t, err)
	e.now = time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)

	svc := e.service(session.Static(session.Principal{Role: domain.RolePharmacy, PharmacyID: pharmacy.ID}))
	d, err := svc.Pharmacy(ctx, pharmacy.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, d.TotalMedicines)
	assert.Equal(t, 2, d.InStock)
	assert.Equal(t, 1, d.OutOfStock)
	assert.Equal(t, 1, d.LowStock)
	assert.Equal(t, 20, d.Summary.TotalUnits)
	assert.Equal(t, []aggregate.CategoryCount{{Category: "Allergy", Count: 1}, {Category: "Pain Relief", Count: 1}}, d.Categories)

	_, err = svc.Pharmacy(ctx, "someone-else")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	trend, err := e.service(session.Static(session.Principal{Role: domain.RoleAdmin})).Trend(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []aggregate.DayTotal{
		{Day: "2024-04-08", Total: 4},
		{Day: "2024-04-09", Total: 0},
		{Day: "2024-04-10", Total: 16},
	}, trend)
}
