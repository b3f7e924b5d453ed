package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusrx/m/domain"
	"campusrx/m/internal/api"
	"campusrx/m/internal/auth"
	"campusrx/m/internal/config"
	"campusrx/m/internal/database"
	"campusrx/m/internal/datastore"
	"campusrx/m/internal/facade"
	"campusrx/m/internal/requests"
	"campusrx/m/internal/session"
	"campusrx/m/internal/storage"
)

type capturedMail struct{ to, body string }

type captureMailer struct{ sent []capturedMail }

func (m *captureMailer) Send(ctx context.Context, to, subject, body string) error {
	m.sent = append(m.sent, capturedMail{to: to, body: body})
	return nil
}

type env struct {
	t        *testing.T
	srv      http.Handler
	admin    *facade.Facade
	mailer   *captureMailer
	legon    domain.Pharmacy
	akuafo   domain.Pharmacy
	adminTok string
	legonTok string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	base := facade.New(datastore.NewSQLStore(database.NewTestDB(t)), nil, facade.WithMetrics(facade.NewMetrics(reg)))
	admin := base.As(session.Static(session.Principal{UserID: "root", Role: domain.RoleAdmin}))

	mailer := &captureMailer{}
	authSvc := auth.NewService(admin,
		config.JWTConfig{Secret: "test-secret", Issuer: "campusrx-test", TTL: time.Hour},
		config.LinkConfig{TTL: 15 * time.Minute, BaseURL: "https://rx.example.edu/auth/link"},
		auth.NewMemoryLinkStore(), mailer, nil)

	bucket, err := storage.NewLocalBucket(t.TempDir(), "https://rx.example.edu/files")
	require.NoError(t, err)

	e := &env{t: t, admin: admin, mailer: mailer}
	e.srv = api.New(api.Deps{
		Facade:   base,
		Auth:     authSvc,
		Bucket:   bucket,
		Gatherer: reg,
		FilesDir: bucket.Dir(),
	}).Router()

	e.legon, err = admin.Pharmacies.Create(ctx, domain.Pharmacy{Name: "Legon Hall Pharmacy", Phone: "0302000001", Hours: domain.DefaultHours, Available: true})
	require.NoError(t, err)
	e.akuafo, err = admin.Pharmacies.Create(ctx, domain.Pharmacy{Name: "Akuafo Pharmacy", Phone: "0302000002", Hours: domain.DefaultHours, Available: true})
	require.NoError(t, err)

	_, err = authSvc.CreateUser(ctx, domain.User{Email: "admin@example.edu", Role: domain.RoleAdmin}, "admin-pass")
	require.NoError(t, err)
	_, err = authSvc.CreateUser(ctx, domain.User{Email: "legon@example.edu", Role: domain.RolePharmacy, PharmacyID: e.legon.ID}, "legon-pass")
	require.NoError(t, err)

	e.adminTok = e.login("admin@example.edu", "admin-pass")
	e.legonTok = e.login("legon@example.edu", "legon-pass")
	return e
}

func (e *env) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func (e *env) login(email, password string) string {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[struct {
		AccessToken string `json:"access_token"`
	}](e.t, rec).AccessToken
}

func (e *env) medicine(name, category string) domain.Medicine {
	e.t.Helper()
	m, err := e.admin.Medicines.Create(context.Background(), domain.Medicine{Name: name, Category: category, Price: domain.PriceOf(decimal.NewFromInt(5))})
	require.NoError(e.t, err)
	return m
}

func (e *env) stock(medicineID, pharmacyID string, qty int) domain.StockLink {
	e.t.Helper()
	l, err := e.admin.Stock.Create(context.Background(), domain.StockLink{MedicineID: medicineID, PharmacyID: pharmacyID, Quantity: qty})
	require.NoError(e.t, err)
	return l
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type errorResponse struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func TestHealthAndMetrics(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	e.do(http.MethodGet, "/medicines", "", nil)
	rec = e.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "facade_calls_total")
}

func TestSearchMedicines(t *testing.T) {
	e := newEnv(t)
	para := e.medicine("Paracetamol", "Pain Relief")
	e.medicine("Amoxicillin", "Antibiotics")
	e.stock(para.ID, e.akuafo.ID, 5)
	e.stock(para.ID, e.legon.ID, 20)

	rec := e.do(http.MethodGet, "/medicines?query=PARA", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	hits := decode[[]struct {
		Medicine   domain.Medicine `json:"medicine"`
		Pharmacies []struct {
			Pharmacy domain.Pharmacy `json:"pharmacy"`
			Quantity int             `json:"quantity"`
		} `json:"pharmacies"`
	}](t, rec)
	require.Len(t, hits, 1)
	assert.Equal(t, "Paracetamol", hits[0].Medicine.Name)
	require.Len(t, hits[0].Pharmacies, 2)
	assert.Equal(t, e.legon.ID, hits[0].Pharmacies[0].Pharmacy.ID)
	assert.Equal(t, 20, hits[0].Pharmacies[0].Quantity)

	rec = e.do(http.MethodGet, "/medicines/"+para.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Akuafo Pharmacy")

	rec = e.do(http.MethodGet, "/medicines/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode[errorResponse](t, rec).Error.Code)
}

func TestPharmacyDetailListsInStockOnly(t *testing.T) {
	e := newEnv(t)
	para := e.medicine("Paracetamol", "Pain Relief")
	amox := e.medicine("Amoxicillin", "Antibiotics")
	e.stock(para.ID, e.legon.ID, 3)
	e.stock(amox.ID, e.legon.ID, 0)

	rec := e.do(http.MethodGet, "/pharmacies/"+e.legon.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[struct {
		Pharmacy  domain.Pharmacy `json:"pharmacy"`
		Medicines []struct {
			Medicine domain.Medicine `json:"medicine"`
			Quantity int             `json:"quantity"`
		} `json:"medicines"`
	}](t, rec)
	assert.Equal(t, "Legon Hall Pharmacy", detail.Pharmacy.Name)
	require.Len(t, detail.Medicines, 1)
	assert.Equal(t, para.ID, detail.Medicines[0].Medicine.ID)

	rec = e.do(http.MethodGet, "/pharmacies", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]domain.Pharmacy](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, "Akuafo Pharmacy", list[0].Name)
}

func TestCategories(t *testing.T) {
	e := newEnv(t)
	e.medicine("Paracetamol", "Pain Relief")
	e.medicine("Ibuprofen", "Pain Relief")
	e.medicine("Amoxicillin", "Antibiotics")

	rec := e.do(http.MethodGet, "/categories", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	counts := decode[[]struct {
		Category string `json:"category"`
		Count    int    `json:"count"`
	}](t, rec)
	byCategory := map[string]int{}
	for _, c := range counts {
		byCategory[c.Category] = c.Count
	}
	assert.Equal(t, map[string]int{"Pain Relief": 2, "Antibiotics": 1}, byCategory)
}

func TestSubmitPharmacyRequest(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodPost, "/pharmacy-requests", "", map[string]string{"pharmacy_name": "Volta Hall"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorResponse](t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	assert.Contains(t, body.Error.Details, "email")

	rec = e.do(http.MethodPost, "/pharmacy-requests", "", map[string]string{
		"pharmacy_name":  "Volta Hall Pharmacy",
		"owner_name":     "Ama Mensah",
		"email":          "ama@example.edu",
		"phone":          "0244000000",
		"location":       "Volta Hall",
		"license_number": "PC-2291",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, domain.RequestPending, decode[domain.PharmacyRequest](t, rec).Status)
}

func TestAuthAndRoleGuards(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodGet, "/auth/me", e.legonTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[session.Principal](t, rec)
	assert.Equal(t, domain.RolePharmacy, me.Role)
	assert.Equal(t, "Legon Hall Pharmacy", me.PharmacyName)

	rec = e.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "legon@example.edu", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(http.MethodGet, "/medicines", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/admin/dashboard", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, "/admin/dashboard", e.legonTok, nil).Code)
	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/admin/dashboard", e.adminTok, nil).Code)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, "/pharmacy/dashboard", e.adminTok, nil).Code)
}

func TestLoginLink(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodPost, "/auth/link", "", map[string]string{"email": "nobody@example.edu"})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, e.mailer.sent)

	rec = e.do(http.MethodPost, "/auth/link", "", map[string]string{"email": "legon@example.edu"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, e.mailer.sent, 1)

	match := regexp.MustCompile(`token=(\S+)`).FindStringSubmatch(e.mailer.sent[0].body)
	require.Len(t, match, 2)
	token, err := url.QueryUnescape(match[1])
	require.NoError(t, err)

	rec = e.do(http.MethodPost, "/auth/link/consume", "", map[string]string{"token": token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "access_token")

	rec = e.do(http.MethodPost, "/auth/link/consume", "", map[string]string{"token": token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPharmacyInventory(t *testing.T) {
	e := newEnv(t)
	para := e.medicine("Paracetamol", "Pain Relief")
	amox := e.medicine("Amoxicillin", "Antibiotics")
	foreign := e.stock(amox.ID, e.akuafo.ID, 4)

	rec := e.do(http.MethodPost, "/pharmacy/inventory", e.legonTok, map[string]any{"medicine_id": para.ID, "quantity": 12})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	link := decode[domain.StockLink](t, rec)
	assert.Equal(t, e.legon.ID, link.PharmacyID)

	rec = e.do(http.MethodPost, "/pharmacy/inventory", e.legonTok, map[string]any{"medicine_id": para.ID, "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodPut, "/pharmacy/inventory/"+link.ID, e.legonTok, map[string]any{"quantity": 0})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 0, decode[domain.StockLink](t, rec).Quantity)

	rec = e.do(http.MethodPut, "/pharmacy/inventory/"+link.ID, e.legonTok, map[string]any{"quantity": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodPut, "/pharmacy/inventory/"+foreign.ID, e.legonTok, map[string]any{"quantity": 0})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(http.MethodGet, "/pharmacy/inventory", e.legonTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode[[]struct {
		ID       string           `json:"id"`
		Quantity int              `json:"quantity"`
		Medicine *domain.Medicine `json:"medicine"`
	}](t, rec)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Medicine)
	assert.Equal(t, "Paracetamol", items[0].Medicine.Name)

	assert.Equal(t, http.StatusNoContent, e.do(http.MethodDelete, "/pharmacy/inventory/"+link.ID, e.legonTok, nil).Code)
	assert.Equal(t, http.StatusNoContent, e.do(http.MethodDelete, "/pharmacy/inventory/"+link.ID, e.legonTok, nil).Code)

	rec = e.do(http.MethodGet, "/pharmacy/dashboard", e.legonTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_medicines":0`)
}

func TestPharmacyHours(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodPut, "/pharmacy/hours", e.legonTok, map[string]any{
		"weekly_hours": map[string]any{"monday": map[string]any{"open": "18:00", "close": "08:00"}},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error.Details, "weekly_hours")

	rec = e.do(http.MethodPut, "/pharmacy/hours", e.legonTok, map[string]any{
		"hours":        "8:00 AM - 8:00 PM",
		"weekly_hours": map[string]any{"monday": map[string]any{"open": "08:00", "close": "20:00"}, "sunday": map[string]any{"closed": true}},
		"available":    false,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[domain.Pharmacy](t, rec)
	assert.Equal(t, "8:00 AM - 8:00 PM", updated.Hours)
	assert.Equal(t, "20:00", updated.WeeklyHours["monday"].Close)
	assert.True(t, updated.WeeklyHours["sunday"].Closed)
	assert.False(t, updated.Available)
}

func TestPharmacyNotifications(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodPost, "/admin/notifications", e.adminTok, map[string]string{
		"pharmacy_id": e.legon.ID, "title": "Welcome", "message": "Your listing is live",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	n := decode[domain.Notification](t, rec)
	assert.Equal(t, "info", n.Type)

	rec = e.do(http.MethodGet, "/pharmacy/notifications", e.legonTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Unread        int                   `json:"unread"`
		Notifications []domain.Notification `json:"notifications"`
	}](t, rec)
	assert.Equal(t, 1, list.Unread)
	require.Len(t, list.Notifications, 1)

	rec = e.do(http.MethodPost, "/pharmacy/notifications/"+n.ID+"/read", e.legonTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[domain.Notification](t, rec).IsRead)

	assert.Equal(t, http.StatusNoContent, e.do(http.MethodDelete, "/pharmacy/notifications/"+n.ID, e.legonTok, nil).Code)
}

func TestApproveRequest(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	req, err := requests.NewService(e.admin, nil).Submit(ctx, domain.PharmacyRequest{
		PharmacyName: "Volta Hall Pharmacy", OwnerName: "Ama", Email: "ama@example.edu",
		Phone: "0244000000", Location: "Volta Hall", LicenseNumber: "PC-1",
	})
	require.NoError(t, err)

	rec := e.do(http.MethodGet, "/admin/requests?status=pending", e.adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.PharmacyRequest](t, rec), 1)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/admin/requests?status=lost", e.adminTok, nil).Code)

	rec = e.do(http.MethodPost, "/admin/requests/"+req.ID+"/approve", e.adminTok, map[string]string{"notes": "licence checked"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Volta Hall Pharmacy")

	rec = e.do(http.MethodPost, "/admin/requests/"+req.ID+"/reject", e.adminTok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodGet, "/admin/activity?entity_type=pharmacy_request", e.adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	logs := decode[[]domain.ActivityLog](t, rec)
	require.Len(t, logs, 1)
	assert.Equal(t, "approved", logs[0].ActionType)

	n, err := e.admin.Pharmacies.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestAdminMedicineCRUD(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodPost, "/admin/medicines", e.adminTok, map[string]any{"name": "Cetirizine", "category": "Allergy"})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	body := decode[errorResponse](t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	assert.Equal(t, "required", body.Error.Details["price"])

	rec = e.do(http.MethodPost, "/admin/medicines", e.adminTok, map[string]any{"name": "Cetirizine", "category": "Allergy", "price": "6.5"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	m := decode[domain.Medicine](t, rec)
	e.stock(m.ID, e.legon.ID, 9)

	rec = e.do(http.MethodPut, "/admin/medicines/"+m.ID, e.adminTok, map[string]any{"price": 7.25})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "7.25", decode[domain.Medicine](t, rec).Price.StringFixed(2))

	rec = e.do(http.MethodPut, "/admin/medicines/"+m.ID, e.adminTok, map[string]any{"name": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusNoContent, e.do(http.MethodDelete, "/admin/medicines/"+m.ID, e.adminTok, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/admin/medicines/"+m.ID, e.adminTok, nil).Code)

	links, err := e.admin.Stock.Count(context.Background(), datastore.Eq("medicine_id", m.ID))
	require.NoError(t, err)
	assert.Zero(t, links)

	rec = e.do(http.MethodGet, "/admin/activity?entity_type=medicine", e.adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.ActivityLog](t, rec), 3)
}

func TestAdminPharmacyCRUD(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodPost, "/admin/pharmacies", e.adminTok, map[string]any{"name": "Night Market Chemist", "phone": "0302999999"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[domain.Pharmacy](t, rec)
	assert.Equal(t, domain.DefaultHours, p.Hours)
	assert.True(t, p.Available)

	rec = e.do(http.MethodPut, "/admin/pharmacies/"+p.ID, e.adminTok, map[string]any{
		"weekly_hours": map[string]any{"friday": map[string]any{"open": "09:00", "close": "17:00"}},
		"latitude":     5.6502,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[domain.Pharmacy](t, rec)
	require.NotNil(t, updated.Latitude)
	assert.InDelta(t, 5.6502, *updated.Latitude, 1e-9)
	assert.Equal(t, "09:00", updated.WeeklyHours["friday"].Open)

	assert.Equal(t, http.StatusNoContent, e.do(http.MethodDelete, "/admin/pharmacies/"+p.ID, e.adminTok, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/admin/pharmacies/"+p.ID, e.adminTok, nil).Code)
}

func TestAdminCreatesPharmacyAccount(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodPost, "/admin/users", e.adminTok, map[string]any{"email": "akuafo@example.edu", "role": "pharmacy"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error.Details, "pharmacy_id")

	rec = e.do(http.MethodPost, "/admin/users", e.adminTok, map[string]any{
		"email": "akuafo@example.edu", "role": "pharmacy", "pharmacy_id": e.akuafo.ID, "password": "akuafo-pass",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")

	tok := e.login("akuafo@example.edu", "akuafo-pass")
	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/pharmacy/dashboard", tok, nil).Code)
}

func TestUploadPharmacyImage(t *testing.T) {
	e := newEnv(t)

	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var pngData bytes.Buffer
	require.NoError(t, png.Encode(&pngData, img))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "front.png")
	require.NoError(t, err)
	_, err = part.Write(pngData.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/pharmacy/images", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+e.legonTok)
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	p := decode[domain.Pharmacy](t, rec)
	require.True(t, strings.HasPrefix(p.ImageURL, "https://rx.example.edu/files/pharmacies/"), p.ImageURL)

	served := e.do(http.MethodGet, strings.TrimPrefix(p.ImageURL, "https://rx.example.edu"), "", nil)
	assert.Equal(t, http.StatusOK, served.Code)
	assert.Equal(t, "image/jpeg", served.Header().Get("Content-Type"))
}
