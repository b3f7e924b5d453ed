package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"campusrx/m/internal/apperr"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

// respondError writes err as an error envelope. Only kinds whose details are public expose the message.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	meta := apperr.MetadataFor(kind)
	body := errorBody{Code: string(kind), Message: meta.PublicMessage}
	if typed := apperr.As(err); typed != nil && meta.DetailsAllowed {
		body.Message = typed.Message()
		body.Details = typed.Details()
	}
	if meta.HTTPStatus >= http.StatusInternalServerError {
		h.log.Error(r.Context(), "request failed", err)
	}
	respondJSON(w, meta.HTTPStatus, errorEnvelope{Error: body})
}

// decodeJSON reads a JSON body into dest and checks its validate tags.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.New(apperr.KindValidation, "request body is required")
		}
		return apperr.Wrap(apperr.KindValidation, err, "malformed request body").
			WithDetails(map[string]string{"body": err.Error()})
	}
	if err := h.validate.Struct(dest); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return apperr.Wrap(apperr.KindInternal, err, "validating request body")
		}
		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}
		return apperr.New(apperr.KindValidation, "invalid request body").WithDetails(details)
	}
	return nil
}

func queryInt(r *http.Request, key string, def, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > max {
		return 0, apperr.New(apperr.KindValidation, fmt.Sprintf("%s must be between 1 and %d", key, max)).
			WithDetails(map[string]string{key: "range"})
	}
	return n, nil
}
