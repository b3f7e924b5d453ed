package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"campusrx/m/domain"
	"campusrx/m/internal/aggregate"
	"campusrx/m/internal/availability"
	"campusrx/m/internal/datastore"
	"campusrx/m/internal/facade"
)

func (h *Handler) searchMedicines(w http.ResponseWriter, r *http.Request) {
	results, err := h.resolverFor(r).SearchMedicines(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, results)
}

func (h *Handler) getMedicine(w http.ResponseWriter, r *http.Request) {
	f := h.facadeFor(r)
	medicine, err := f.Medicines.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	stocking, err := availability.New(f, h.log).PharmaciesStocking(r.Context(), medicine.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, availability.MedicineAvailability{Medicine: medicine, Pharmacies: stocking})
}

func (h *Handler) listPharmacies(w http.ResponseWriter, r *http.Request) {
	q := facade.Query{Order: []datastore.Order{datastore.Asc("name")}}
	if strings.EqualFold(r.URL.Query().Get("available"), "true") {
		q.Filters = append(q.Filters, datastore.Eq("available", true))
	}
	pharmacies, err := h.facadeFor(r).Pharmacies.List(r.Context(), q)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, pharmacies)
}

type pharmacyDetail struct {
	Pharmacy  domain.Pharmacy              `json:"pharmacy"`
	Medicines []availability.MedicineStock `json:"medicines"`
}

func (h *Handler) getPharmacy(w http.ResponseWriter, r *http.Request) {
	f := h.facadeFor(r)
	pharmacy, err := f.Pharmacies.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	stock, err := availability.New(f, h.log).MedicinesAt(r.Context(), pharmacy.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, pharmacyDetail{Pharmacy: pharmacy, Medicines: stock})
}

func (h *Handler) categories(w http.ResponseWriter, r *http.Request) {
	medicines, err := h.facadeFor(r).Medicines.List(r.Context(), facade.Query{})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	counts, err := aggregate.CountByCategory(medicines)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, counts)
}

type pharmacyRequestBody struct {
	PharmacyName  string `json:"pharmacy_name" validate:"required"`
	OwnerName     string `json:"owner_name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"required"`
	Location      string `json:"location" validate:"required"`
	LicenseNumber string `json:"license_number" validate:"required"`
}

func (h *Handler) submitRequest(w http.ResponseWriter, r *http.Request) {
	var body pharmacyRequestBody
	if err := h.decodeJSON(w, r, &body); err != nil {
		h.respondError(w, r, err)
		return
	}
	req, err := h.requestsFor(r).Submit(r.Context(), domain.PharmacyRequest{
		PharmacyName:  body.PharmacyName,
		OwnerName:     body.OwnerName,
		Email:         body.Email,
		Phone:         body.Phone,
		Location:      body.Location,
		LicenseNumber: body.LicenseNumber,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, req)
}
