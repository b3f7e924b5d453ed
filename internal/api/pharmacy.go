package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"campusrx/m/domain"
	"campusrx/m/internal/apperr"
	"campusrx/m/internal/datastore"
	"campusrx/m/internal/facade"
	"campusrx/m/internal/storage"
)

func (h *Handler) pharmacyDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.dashboardFor(r).Pharmacy(r.Context(), principalOf(r).PharmacyID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

type inventoryItem struct {
	domain.StockLink
	Medicine *domain.Medicine `json:"medicine,omitempty"`
}

// listInventory returns every stock link of the caller's pharmacy, out-of-stock ones included.
func (h *Handler) listInventory(w http.ResponseWriter, r *http.Request) {
	f := h.facadeFor(r)
	links, err := f.Stock.List(r.Context(), facade.Query{
		Filters: []datastore.Cond{datastore.Eq("pharmacy_id", principalOf(r).PharmacyID)},
		Order:   []datastore.Order{datastore.Desc("updated_at")},
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ids := make([]string, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.MedicineID)
	}
	medicines, err := f.Medicines.List(r.Context(), facade.Query{Filters: []datastore.Cond{datastore.In("id", ids)}})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	byID := make(map[string]domain.Medicine, len(medicines))
	for _, m := range medicines {
		byID[m.ID] = m
	}

	items := make([]inventoryItem, 0, len(links))
	for _, l := range links {
		item := inventoryItem{StockLink: l}
		if m, ok := byID[l.MedicineID]; ok {
			item.Medicine = &m
		}
		items = append(items, item)
	}
	respondJSON(w, http.StatusOK, items)
}

type addInventoryRequest struct {
	MedicineID string `json:"medicine_id" validate:"required"`
	Quantity   int    `json:"quantity" validate:"gte=0"`
}

func (h *Handler) addInventory(w http.ResponseWriter, r *http.Request) {
	var req addInventoryRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	f := h.facadeFor(r)
	if _, err := f.Medicines.Get(r.Context(), req.MedicineID); err != nil {
		h.respondError(w, r, err)
		return
	}
	link, err := f.Stock.Create(r.Context(), domain.StockLink{
		MedicineID: req.MedicineID,
		PharmacyID: principalOf(r).PharmacyID,
		Quantity:   req.Quantity,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, link)
}

type updateInventoryRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0"`
}

func (h *Handler) updateInventory(w http.ResponseWriter, r *http.Request) {
	var req updateInventoryRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	f := h.facadeFor(r)
	link, err := h.ownedLink(r, f, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	link, err = f.Stock.Update(r.Context(), link.ID, facade.Patch{"quantity": *req.Quantity})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, link)
}

func (h *Handler) removeInventory(w http.ResponseWriter, r *http.Request) {
	f := h.facadeFor(r)
	link, err := h.ownedLink(r, f, chi.URLParam(r, "id"))
	if apperr.Is(err, apperr.KindNotFound) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := f.Stock.Remove(r.Context(), link.ID); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ownedLink loads a stock link of the caller's pharmacy. Links of other pharmacies read as not found.
func (h *Handler) ownedLink(r *http.Request, f *facade.Facade, id string) (domain.StockLink, error) {
	link, err := f.Stock.Get(r.Context(), id)
	if err != nil {
		return link, err
	}
	if link.PharmacyID != principalOf(r).PharmacyID {
		return domain.StockLink{}, apperr.New(apperr.KindNotFound, "stock link not found")
	}
	return link, nil
}

type hoursRequest struct {
	Hours       *string          `json:"hours"`
	WeeklyHours domain.WeekHours `json:"weekly_hours"`
	Available   *bool            `json:"available"`
}

func (h *Handler) updateHours(w http.ResponseWriter, r *http.Request) {
	var req hoursRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	patch := facade.Patch{}
	if req.Hours != nil {
		patch["hours"] = strings.TrimSpace(*req.Hours)
	}
	if req.WeeklyHours != nil {
		patch["weekly_hours"] = req.WeeklyHours
	}
	if req.Available != nil {
		patch["available"] = *req.Available
	}
	pharmacy, err := h.facadeFor(r).Pharmacies.Update(r.Context(), principalOf(r).PharmacyID, patch)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, pharmacy)
}

type notificationList struct {
	Unread        int                   `json:"unread"`
	Notifications []domain.Notification `json:"notifications"`
}

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	svc := h.notificationsFor(r)
	pharmacyID := principalOf(r).PharmacyID
	list, err := svc.List(r.Context(), pharmacyID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	unread, err := svc.Unread(r.Context(), pharmacyID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, notificationList{Unread: unread, Notifications: list})
}

func (h *Handler) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.notificationsFor(r).MarkRead(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, n)
}

func (h *Handler) deleteNotification(w http.ResponseWriter, r *http.Request) {
	if err := h.notificationsFor(r).Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) uploadPharmacyImage(w http.ResponseWriter, r *http.Request) {
	url, err := h.uploadImage(w, r, "pharmacies")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	pharmacy, err := h.facadeFor(r).Pharmacies.Update(r.Context(), principalOf(r).PharmacyID, facade.Patch{"image_url": url})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, pharmacy)
}

// uploadImage stores the "image" part of a multipart form and returns its public URL.
func (h *Handler) uploadImage(w http.ResponseWriter, r *http.Request, prefix string) (string, error) {
	if h.bucket == nil {
		return "", apperr.New(apperr.KindInternal, "image storage is not configured")
	}
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxUploadBytes+1<<20)
	file, _, err := r.FormFile("image")
	if err != nil {
		return "", apperr.Wrap(apperr.KindValidation, err, "an image file is required").
			WithDetails(map[string]string{"image": "required"})
	}
	defer file.Close()
	return h.bucket.Upload(r.Context(), prefix, file)
}
