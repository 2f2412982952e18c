// Package httpserver exposes the services over a chi JSON API.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/and161185/formsync/internal/metrics"
	"github.com/and161185/formsync/internal/service"
)

const defaultRequestTimeout = 60 * time.Second

// Deps collects everything the router serves. Hub, Metrics and Ping are optional.
type Deps struct {
	Auth     service.AuthService
	Users    service.UserService
	Roles    service.RoleService
	Products service.ProductService
	Sync     service.SyncService
	Forms    service.FormService
	Answers  service.AnswerService

	Hub     http.Handler
	Metrics *metrics.Metrics
	Ping    func(ctx context.Context) error
	Log     *zap.Logger

	RequestTimeout time.Duration
}

// Server holds the handlers and their dependencies.
type Server struct {
	d   Deps
	log *zap.Logger
}

// New builds the server. Call Router to obtain the handler.
func New(d Deps) *Server {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = defaultRequestTimeout
	}
	return &Server{d: d, log: d.Log.Named("http")}
}

// Router wires middleware and every route.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		s.logRequests,
		s.recoverPanics,
	)

	// Long-lived connections stay outside the request timeout.
	if s.d.Hub != nil {
		r.Handle("/ws", s.d.Hub)
	}
	if s.d.Metrics != nil {
		r.Handle("/metrics", s.d.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.d.RequestTimeout))

		r.Get("/healthz", s.healthz)
		r.Post("/login", s.login)
		r.With(s.identify).Post("/users", s.createUser)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/users", s.listUsers)
			r.Route("/users/{id}", func(r chi.Router) {
				r.Get("/", s.getUser)
				r.Put("/", s.updateUser)
				r.Delete("/", s.deleteUser)
			})
			r.Get("/roles", s.listRoles)

			r.Route("/products", func(r chi.Router) {
				r.Get("/", s.listProducts)
				r.Post("/", s.createProduct)
				r.Get("/{id}", s.getProduct)
				r.Put("/{id}", s.updateProduct)
				r.Delete("/{id}", s.deleteProduct)
			})

			r.Post("/sync", s.pull)
			r.Post("/sync/push", s.push)

			r.Route("/forms", func(r chi.Router) {
				r.Get("/", s.listForms)
				r.Post("/", s.createForm)
				r.Get("/{id}", s.getForm)
				r.Put("/{id}", s.updateForm)
				r.Delete("/{id}", s.deleteForm)
				r.Post("/{id}/duplicate", s.duplicateForm)
				r.Post("/{id}/sections", s.createSection)
			})
			r.Put("/sections/{id}", s.updateSection)
			r.Delete("/sections/{id}", s.deleteSection)
			r.Post("/sections/{id}/fields", s.createField)
			r.Put("/fields/{id}", s.updateField)
			r.Delete("/fields/{id}", s.deleteField)

			r.Route("/answers", func(r chi.Router) {
				r.Get("/mine", s.listMyAnswers)
				r.Get("/dashboard", s.answerDashboard)
				r.Get("/form/{formId}", s.listFormAnswersForMe)
				r.Post("/form/{formId}", s.saveAnswer)
				r.With(requireAdmin).Get("/form/{formId}/all", s.listFormAnswers)
				r.Get("/{id}", s.getAnswer)
			})
		})
	})
	return r
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.d.Ping != nil {
		if err := s.d.Ping(r.Context()); err != nil {
			s.log.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
