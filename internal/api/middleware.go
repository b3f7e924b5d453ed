package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"campusrx/m/internal/apperr"
	"campusrx/m/internal/session"
)

const requestIDHeader = "X-Request-ID"

func (h *Handler) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(h.log.WithRequestID(r.Context(), id)))
	})
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		ctx := h.log.WithFields(r.Context(), map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      status,
			"bytes":       ww.BytesWritten(),
			"duration_ms": time.Since(started).Milliseconds(),
		})
		h.log.Info(ctx, "http request")
	})
}

// sessionMiddleware resolves the bearer token into a session. No token means an anonymous session; a bad
// token is rejected.
func (h *Handler) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := session.New(h.auth, bearerToken(r))
		if err := sess.Reload(r.Context()); err != nil {
			h.respondError(w, r, err)
			return
		}
		p := sess.Principal()
		ctx := session.WithContext(r.Context(), sess)
		if p.UserID != "" {
			ctx = h.log.WithFields(ctx, map[string]any{"user_id": p.UserID, "role": p.Role})
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return h.requireRole(session.Principal.IsAdmin, next)
}

func (h *Handler) requirePharmacy(next http.Handler) http.Handler {
	return h.requireRole(session.Principal.IsPharmacy, next)
}

func (h *Handler) requireRole(ok func(session.Principal) bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := principalOf(r)
		if p.UserID == "" {
			h.respondError(w, r, apperr.New(apperr.KindUnauthorized, "missing bearer token"))
			return
		}
		if !ok(p) {
			respondJSON(w, http.StatusForbidden, errorEnvelope{Error: errorBody{
				Code:    "FORBIDDEN",
				Message: "insufficient permissions",
			}})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[len("Bearer "):])
}

func sessionOf(r *http.Request) *session.Session {
	return session.FromContext(r.Context())
}

func principalOf(r *http.Request) session.Principal {
	return sessionOf(r).Principal()
}
