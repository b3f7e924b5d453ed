package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"campusrx/m/domain"
	"campusrx/m/internal/apperr"
	"campusrx/m/internal/dashboard"
	"campusrx/m/internal/datastore"
	"campusrx/m/internal/facade"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 500
	maxTrendDays         = 90
)

func (h *Handler) adminDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.dashboardFor(r).Admin(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (h *Handler) trend(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", dashboard.DefaultTrendDays, maxTrendDays)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	totals, err := h.dashboardFor(r).Trend(r.Context(), days)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, totals)
}

func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request) {
	status := domain.RequestStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	switch status {
	case "", domain.RequestPending, domain.RequestApproved, domain.RequestRejected:
	default:
		h.respondError(w, r, apperr.New(apperr.KindValidation, "status must be pending, approved or rejected").
			WithDetails(map[string]string{"status": "oneof"}))
		return
	}
	list, err := h.requestsFor(r).List(r.Context(), status)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

type decisionRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) approveRequest(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := h.decodeOptionalJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	decision, err := h.requestsFor(r).Approve(r.Context(), chi.URLParam(r, "id"), req.Notes)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, decision)
}

func (h *Handler) rejectRequest(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := h.decodeOptionalJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	decision, err := h.requestsFor(r).Reject(r.Context(), chi.URLParam(r, "id"), req.Notes)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, decision)
}

func (h *Handler) listActivity(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultActivityLimit, maxActivityLimit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	q := facade.Query{Order: []datastore.Order{datastore.Desc("created_at")}, Limit: limit}
	if entity := strings.TrimSpace(r.URL.Query().Get("entity_type")); entity != "" {
		q.Filters = append(q.Filters, datastore.Eq("entity_type", entity))
	}
	logs, err := h.facadeFor(r).Activity.List(r.Context(), q)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, logs)
}

type sendNotificationRequest struct {
	PharmacyID string `json:"pharmacy_id" validate:"required"`
	Title      string `json:"title" validate:"required"`
	Message    string `json:"message" validate:"required"`
	Type       string `json:"type"`
}

func (h *Handler) sendNotification(w http.ResponseWriter, r *http.Request) {
	var req sendNotificationRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if _, err := h.facadeFor(r).Pharmacies.Get(r.Context(), req.PharmacyID); err != nil {
		h.respondError(w, r, err)
		return
	}
	kind := req.Type
	if kind == "" {
		kind = "info"
	}
	n, err := h.notificationsFor(r).Send(r.Context(), domain.Notification{
		PharmacyID: req.PharmacyID,
		Title:      req.Title,
		Message:    req.Message,
		Type:       kind,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, n)
}

// Medicines

func (h *Handler) adminListMedicines(w http.ResponseWriter, r *http.Request) {
	q := facade.Query{Order: []datastore.Order{datastore.Asc("name")}}
	if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
		q.Filters = append(q.Filters, datastore.Eq("category", category))
	}
	medicines, err := h.facadeFor(r).Medicines.List(r.Context(), q)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, medicines)
}

type medicineRequest struct {
	Name        string           `json:"name" validate:"required"`
	Description string           `json:"description"`
	Category    string           `json:"category" validate:"required"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Unit        string           `json:"unit"`
	ImageURL    string           `json:"image_url"`
}

func (h *Handler) adminCreateMedicine(w http.ResponseWriter, r *http.Request) {
	var req medicineRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	f := h.facadeFor(r)
	medicine, err := f.Medicines.Create(r.Context(), domain.Medicine{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Category:    strings.TrimSpace(req.Category),
		Price:       req.Price,
		Unit:        req.Unit,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.audit(r, f, "created", "medicine", medicine.ID, map[string]any{"name": medicine.Name})
	respondJSON(w, http.StatusCreated, medicine)
}

func (h *Handler) adminGetMedicine(w http.ResponseWriter, r *http.Request) {
	medicine, err := h.facadeFor(r).Medicines.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, medicine)
}

func (h *Handler) adminUpdateMedicine(w http.ResponseWriter, r *http.Request) {
	patch, err := h.decodePatch(w, r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	f := h.facadeFor(r)
	medicine, err := f.Medicines.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.audit(r, f, "updated", "medicine", medicine.ID, map[string]any{"fields": patchKeys(patch)})
	respondJSON(w, http.StatusOK, medicine)
}

// adminRemoveMedicine deletes the medicine and every stock link pointing at it.
func (h *Handler) adminRemoveMedicine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f := h.facadeFor(r)
	if err := h.removeLinks(r, f, datastore.Eq("medicine_id", id)); err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := f.Medicines.Remove(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.audit(r, f, "deleted", "medicine", id, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) adminUploadMedicineImage(w http.ResponseWriter, r *http.Request) {
	f := h.facadeFor(r)
	id := chi.URLParam(r, "id")
	if _, err := f.Medicines.Get(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	url, err := h.uploadImage(w, r, "medicines")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	medicine, err := f.Medicines.Update(r.Context(), id, facade.Patch{"image_url": url})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, medicine)
}

// Pharmacies

func (h *Handler) adminListPharmacies(w http.ResponseWriter, r *http.Request) {
	pharmacies, err := h.facadeFor(r).Pharmacies.List(r.Context(), facade.Query{
		Order: []datastore.Order{datastore.Desc("created_at")},
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, pharmacies)
}

type pharmacyBody struct {
	Name        string           `json:"name" validate:"required"`
	Location    string           `json:"location"`
	Hours       string           `json:"hours"`
	WeeklyHours domain.WeekHours `json:"weekly_hours"`
	Phone       string           `json:"phone" validate:"required"`
	Email       string           `json:"email" validate:"omitempty,email"`
	Description string           `json:"description"`
	ImageURL    string           `json:"image_url"`
	Latitude    *float64         `json:"latitude" validate:"omitempty,latitude"`
	Longitude   *float64         `json:"longitude" validate:"omitempty,longitude"`
	Available   *bool            `json:"available"`
}

func (h *Handler) adminCreatePharmacy(w http.ResponseWriter, r *http.Request) {
	var req pharmacyBody
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	hours := strings.TrimSpace(req.Hours)
	if hours == "" {
		hours = domain.DefaultHours
	}
	available := true
	if req.Available != nil {
		available = *req.Available
	}
	f := h.facadeFor(r)
	pharmacy, err := f.Pharmacies.Create(r.Context(), domain.Pharmacy{
		Name:        strings.TrimSpace(req.Name),
		Location:    req.Location,
		Hours:       hours,
		WeeklyHours: req.WeeklyHours,
		Phone:       strings.TrimSpace(req.Phone),
		Email:       req.Email,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Available:   available,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.audit(r, f, "created", "pharmacy", pharmacy.ID, map[string]any{"name": pharmacy.Name})
	respondJSON(w, http.StatusCreated, pharmacy)
}

func (h *Handler) adminGetPharmacy(w http.ResponseWriter, r *http.Request) {
	pharmacy, err := h.facadeFor(r).Pharmacies.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, pharmacy)
}

func (h *Handler) adminUpdatePharmacy(w http.ResponseWriter, r *http.Request) {
	patch, err := h.decodePatch(w, r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if raw, ok := patch["weekly_hours"]; ok && raw != nil {
		hours, err := toWeekHours(raw)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		patch["weekly_hours"] = hours
	}
	f := h.facadeFor(r)
	pharmacy, err := f.Pharmacies.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.audit(r, f, "updated", "pharmacy", pharmacy.ID, map[string]any{"fields": patchKeys(patch)})
	respondJSON(w, http.StatusOK, pharmacy)
}

// adminRemovePharmacy deletes the pharmacy and its stock links.
func (h *Handler) adminRemovePharmacy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f := h.facadeFor(r)
	if err := h.removeLinks(r, f, datastore.Eq("pharmacy_id", id)); err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := f.Pharmacies.Remove(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.audit(r, f, "deleted", "pharmacy", id, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeLinks(r *http.Request, f *facade.Facade, cond datastore.Cond) error {
	links, err := f.Stock.List(r.Context(), facade.Query{Filters: []datastore.Cond{cond}})
	if err != nil {
		return err
	}
	for _, l := range links {
		if err := f.Stock.Remove(r.Context(), l.ID); err != nil {
			return err
		}
	}
	return nil
}

// audit appends an activity entry. A failed append is logged and does not fail the request.
func (h *Handler) audit(r *http.Request, f *facade.Facade, action, entity, id string, details map[string]any) {
	_, err := f.Activity.Append(r.Context(), domain.ActivityLog{
		ActionType: action,
		EntityType: entity,
		EntityID:   id,
		Details:    details,
	})
	if err != nil {
		ctx := h.log.WithFields(r.Context(), map[string]any{"action": action, "entity_type": entity, "entity_id": id})
		h.log.Warn(ctx, "unable to record activity")
	}
}

// decodePatch reads a partial update as a JSON object.
func (h *Handler) decodePatch(w http.ResponseWriter, r *http.Request) (facade.Patch, error) {
	var patch facade.Patch
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&patch); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperr.New(apperr.KindValidation, "request body is required")
		}
		return nil, apperr.Wrap(apperr.KindValidation, err, "malformed request body").
			WithDetails(map[string]string{"body": err.Error()})
	}
	return patch, nil
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be empty.
func (h *Handler) decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	if r.ContentLength == 0 {
		return nil
	}
	return h.decodeJSON(w, r, dest)
}

func toWeekHours(v any) (domain.WeekHours, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var hours domain.WeekHours
	if err := json.Unmarshal(raw, &hours); err != nil {
		return nil, apperr.New(apperr.KindValidation, "weekly_hours must be a weekly schedule").
			WithDetails(map[string]string{"weekly_hours": "must be a weekly schedule"})
	}
	return hours, nil
}

func patchKeys(p facade.Patch) []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	return keys
}
