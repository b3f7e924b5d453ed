package api

import (
	"net/http"

	"campusrx/m/domain"
	"campusrx/m/internal/auth"
	"campusrx/m/internal/session"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type linkRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type consumeLinkRequest struct {
	Token string `json:"token" validate:"required"`
}

type authResponse struct {
	auth.Token
	Principal session.Principal `json:"principal"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	token, p, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, authResponse{Token: token, Principal: p})
}

// requestLink always answers 202 so the endpoint does not reveal which emails have accounts.
func (h *Handler) requestLink(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.auth.RequestLink(r.Context(), req.Email); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

func (h *Handler) consumeLink(w http.ResponseWriter, r *http.Request) {
	var req consumeLinkRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	token, p, err := h.auth.ConsumeLink(r.Context(), req.Token)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, authResponse{Token: token, Principal: p})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, principalOf(r))
}

type createUserRequest struct {
	Email       string      `json:"email" validate:"required,email"`
	Password    string      `json:"password" validate:"omitempty,min=8"`
	Role        domain.Role `json:"role" validate:"required,oneof=admin pharmacy"`
	PharmacyID  string      `json:"pharmacy_id" validate:"required_if=Role pharmacy"`
	DisplayName string      `json:"display_name"`
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if req.PharmacyID != "" {
		if _, err := h.facadeFor(r).Pharmacies.Get(r.Context(), req.PharmacyID); err != nil {
			h.respondError(w, r, err)
			return
		}
	}
	user, err := h.auth.CreateUser(r.Context(), domain.User{
		Email:       req.Email,
		Role:        req.Role,
		PharmacyID:  req.PharmacyID,
		DisplayName: req.DisplayName,
	}, req.Password)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}
