// Package api exposes the pharmacy locator over HTTP.
package api

import (
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campusrx/m/internal/auth"
	"campusrx/m/internal/availability"
	"campusrx/m/internal/dashboard"
	"campusrx/m/internal/facade"
	"campusrx/m/internal/logger"
	"campusrx/m/internal/notifications"
	"campusrx/m/internal/requests"
	"campusrx/m/internal/storage"
)

// Deps are the collaborators the handlers are built from.
type Deps struct {
	// Facade is the anonymous facade; each request gets a copy acting for its own session.
	Facade *facade.Facade
	Auth   *auth.Service
	Bucket storage.Bucket
	Log    *logger.Logger
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// FilesDir is served under /files/ when set.
	FilesDir    string
	CORSOrigins []string
}

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	facade   *facade.Facade
	auth     *auth.Service
	bucket   storage.Bucket
	log      *logger.Logger
	validate *validator.Validate
	gatherer prometheus.Gatherer
	filesDir string
	origins  []string
}

// New constructs a Handler.
func New(deps Deps) *Handler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &Handler{
		facade:   deps.Facade,
		auth:     deps.Auth,
		bucket:   deps.Bucket,
		log:      log,
		validate: validate,
		gatherer: deps.Gatherer,
		filesDir: deps.FilesDir,
		origins:  origins,
	}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(h.requestID)
	r.Use(h.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)
	if h.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
	if h.filesDir != "" {
		r.Handle("/files/*", http.StripPrefix("/files/", http.FileServer(http.Dir(h.filesDir))))
	}

	r.Group(func(r chi.Router) {
		r.Use(h.sessionMiddleware)

		r.Get("/medicines", h.searchMedicines)
		r.Get("/medicines/{id}", h.getMedicine)
		r.Get("/pharmacies", h.listPharmacies)
		r.Get("/pharmacies/{id}", h.getPharmacy)
		r.Get("/categories", h.categories)
		r.Post("/pharmacy-requests", h.submitRequest)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.login)
			r.Post("/link", h.requestLink)
			r.Post("/link/consume", h.consumeLink)
			r.Get("/me", h.me)
		})

		r.Route("/pharmacy", func(r chi.Router) {
			r.Use(h.requirePharmacy)
			r.Get("/dashboard", h.pharmacyDashboard)
			r.Get("/inventory", h.listInventory)
			r.Post("/inventory", h.addInventory)
			r.Put("/inventory/{id}", h.updateInventory)
			r.Delete("/inventory/{id}", h.removeInventory)
			r.Put("/hours", h.updateHours)
			r.Get("/notifications", h.listNotifications)
			r.Post("/notifications/{id}/read", h.markNotificationRead)
			r.Delete("/notifications/{id}", h.deleteNotification)
			r.Post("/images", h.uploadPharmacyImage)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.requireAdmin)
			r.Get("/dashboard", h.adminDashboard)
			r.Get("/trend", h.trend)
			r.Get("/requests", h.listRequests)
			r.Post("/requests/{id}/approve", h.approveRequest)
			r.Post("/requests/{id}/reject", h.rejectRequest)
			r.Get("/activity", h.listActivity)
			r.Post("/users", h.createUser)
			r.Post("/notifications", h.sendNotification)

			r.Route("/medicines", func(r chi.Router) {
				r.Get("/", h.adminListMedicines)
				r.Post("/", h.adminCreateMedicine)
				r.Get("/{id}", h.adminGetMedicine)
				r.Put("/{id}", h.adminUpdateMedicine)
				r.Delete("/{id}", h.adminRemoveMedicine)
				r.Post("/{id}/image", h.adminUploadMedicineImage)
			})
			r.Route("/pharmacies", func(r chi.Router) {
				r.Get("/", h.adminListPharmacies)
				r.Post("/", h.adminCreatePharmacy)
				r.Get("/{id}", h.adminGetPharmacy)
				r.Put("/{id}", h.adminUpdatePharmacy)
				r.Delete("/{id}", h.adminRemovePharmacy)
			})
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

// facadeFor returns the facade acting for the request's session.
func (h *Handler) facadeFor(r *http.Request) *facade.Facade {
	return h.facade.As(sessionOf(r))
}

func (h *Handler) resolverFor(r *http.Request) *availability.Resolver {
	return availability.New(h.facadeFor(r), h.log)
}

func (h *Handler) requestsFor(r *http.Request) *requests.Service {
	return requests.NewService(h.facadeFor(r), h.log)
}

func (h *Handler) notificationsFor(r *http.Request) *notifications.Service {
	return notifications.NewService(h.facadeFor(r))
}

func (h *Handler) dashboardFor(r *http.Request) *dashboard.Service {
	f := h.facadeFor(r)
	return dashboard.NewService(f, availability.New(f, h.log))
}
